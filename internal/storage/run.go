package storage

import (
	"fmt"
	"time"

	"github.com/renderinc/uservoice-export/internal/notes"
)

// Run represents one export run in the archive
type Run struct {
	ID          string     `db:"id" json:"id"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"` // NULL while running
	Cutoff      *time.Time `db:"cutoff" json:"cutoff,omitempty"`           // NULL if nothing was filtered
	OutputPath  string     `db:"output_path" json:"output_path"`
	Suggestions int        `db:"suggestions" json:"suggestions"`
	Supporters  int        `db:"supporters" json:"supporters"`
	Users       int        `db:"users" json:"users"`
	Forums      int        `db:"forums" json:"forums"`
	Notes       int        `db:"notes" json:"notes"`
	Skipped     int        `db:"skipped" json:"skipped"`       // supporters with unresolved references
	Complete    bool       `db:"complete" json:"complete"`     // every collection fully paginated
	Error       string     `db:"error" json:"error,omitempty"` // set when the run failed
}

// StoredNote is a note as archived for a run. Title and Text hold the
// source text, without the doubled quotes of the CSV form.
type StoredNote struct {
	RunID string `db:"run_id" json:"run_id"`
	Seq   int    `db:"seq" json:"seq"`
	notes.Note
}

// Key identifies the note across runs
func (n *StoredNote) Key() string {
	return fmt.Sprintf("%s/%d", n.RunID, n.Seq)
}
