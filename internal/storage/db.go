package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/renderinc/uservoice-export/internal/notes"
)

// DB wraps SQLite database operations
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	storage := &DB{db: db}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// initSchema creates tables if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		cutoff TIMESTAMP,
		output_path TEXT NOT NULL,
		suggestions INTEGER NOT NULL DEFAULT 0,
		supporters INTEGER NOT NULL DEFAULT 0,
		users INTEGER NOT NULL DEFAULT 0,
		forums INTEGER NOT NULL DEFAULT 0,
		notes INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		complete BOOLEAN NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS notes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		note_title TEXT NOT NULL,
		note_text TEXT NOT NULL,
		person_email TEXT,
		person_name TEXT,
		company_domain TEXT,
		tags TEXT,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_notes_email ON notes(person_email);
	CREATE INDEX IF NOT EXISTS idx_notes_tags ON notes(tags);
	`

	_, err := d.db.Exec(schema)
	return err
}

const runColumns = `id, started_at, finished_at, cutoff, output_path,
	suggestions, supporters, users, forums, notes, skipped, complete, error`

// BeginRun records the start of a run
func (d *DB) BeginRun(run *Run) error {
	query := `INSERT INTO runs (id, started_at, cutoff, output_path) VALUES (?, ?, ?, ?)`

	_, err := d.db.Exec(query, run.ID, run.StartedAt.UTC(), utcPtr(run.Cutoff), run.OutputPath)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final run counters and its notes in one transaction.
// Notes are stored unescaped.
func (d *DB) FinishRun(run *Run, items []notes.Note) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	update := `
	UPDATE runs SET
		finished_at = ?, suggestions = ?, supporters = ?, users = ?, forums = ?,
		notes = ?, skipped = ?, complete = ?, error = ?
	WHERE id = ?
	`
	res, err := tx.Exec(update,
		utcPtr(run.FinishedAt), run.Suggestions, run.Supporters, run.Users, run.Forums,
		run.Notes, run.Skipped, run.Complete, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: unknown run %s", run.ID)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO notes (run_id, seq, note_title, note_text, person_email, person_name, company_domain, tags)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare note insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range items {
		_, err := stmt.Exec(run.ID, i,
			notes.Unescape(n.Title), notes.Unescape(n.Text), n.PersonEmail, n.PersonName, n.CompanyDomain, n.Tags)
		if err != nil {
			return fmt.Errorf("insert note %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (d *DB) GetRun(id string) (*Run, error) {
	run, err := scanRun(d.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// LastCompleteRun returns the most recent successful run that fetched every
// collection completely, or nil if there is none
func (d *DB) LastCompleteRun() (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs
	WHERE complete = 1 AND finished_at IS NOT NULL AND error = ''
	ORDER BY started_at DESC LIMIT 1`

	run, err := scanRun(d.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListRuns returns runs, newest first. limit <= 0 means no limit.
func (d *DB) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RunNotes returns the notes archived for a run in output order. An empty
// runID returns the notes of every run.
func (d *DB) RunNotes(runID string) ([]*StoredNote, error) {
	query := `
	SELECT run_id, seq, note_title, note_text, person_email, person_name, company_domain, tags
	FROM notes
	`
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY run_id, seq"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StoredNote
	for rows.Next() {
		n := &StoredNote{}
		err := rows.Scan(
			&n.RunID, &n.Seq, &n.Title, &n.Text, &n.PersonEmail, &n.PersonName, &n.CompanyDomain, &n.Tags,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}

	return items, rows.Err()
}

// Count returns the total number of archived notes
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	err := row.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.Cutoff, &run.OutputPath,
		&run.Suggestions, &run.Supporters, &run.Users, &run.Forums, &run.Notes, &run.Skipped, &run.Complete, &run.Error,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
