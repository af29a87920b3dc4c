package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/renderinc/uservoice-export/internal/notes"
	"github.com/renderinc/uservoice-export/internal/search"
	"github.com/renderinc/uservoice-export/internal/storage"
	"github.com/renderinc/uservoice-export/internal/uservoice"
)

// ErrIncomplete is returned in strict mode when a collection could not be
// fetched completely
var ErrIncomplete = errors.New("incomplete fetch")

// Options controls one export run
type Options struct {
	Output string    // CSV destination
	Cutoff time.Time // zero falls back to the last complete archived run
	Strict bool      // fail instead of exporting a truncated working set
}

// Worker runs the UserVoice to ProductBoard export
type Worker struct {
	client *uservoice.Client
	db     *storage.DB   // optional run archive
	index  *search.Index // optional, requires db
	logger *zap.Logger
	opts   Options
}

// NewWorker creates a new export worker. db and index may be nil.
func NewWorker(client *uservoice.Client, db *storage.DB, index *search.Index, logger *zap.Logger, opts Options) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		client: client,
		db:     db,
		index:  index,
		logger: logger,
		opts:   opts,
	}
}

// Stats holds export statistics
type Stats struct {
	RunID             string
	Cutoff            time.Time
	Suggestions       int // fetched
	SuggestionsKept   int // at or after the cutoff
	Supporters        int
	SupportersKept    int
	Users             int
	Forums            int
	Notes             int
	SkippedSupporters int
	Truncated         []string // resources whose fetch stopped early
	Output            string
	Duration          time.Duration
}

// Complete reports whether every collection was fetched completely
func (s *Stats) Complete() bool {
	return len(s.Truncated) == 0
}

// Run fetches, filters, joins and writes the notes. Stages run strictly one
// after another. With an archive, a failed run is still finished with its
// error recorded.
func (w *Worker) Run(ctx context.Context) (_ *Stats, err error) {
	startTime := time.Now()
	stats := &Stats{
		RunID:  uuid.NewString(),
		Output: w.opts.Output,
	}

	cutoff, err := w.resolveCutoff()
	if err != nil {
		return nil, err
	}
	stats.Cutoff = cutoff

	run := &storage.Run{
		ID:         stats.RunID,
		StartedAt:  startTime,
		OutputPath: w.opts.Output,
	}
	if !cutoff.IsZero() {
		run.Cutoff = &cutoff
	}
	if w.db != nil {
		if err := w.db.BeginRun(run); err != nil {
			return nil, fmt.Errorf("archive run: %w", err)
		}
		defer func() {
			if err != nil {
				w.recordFailure(run, stats, err)
			}
		}()
	}

	w.logger.Info("Starting export", zap.String("run_id", stats.RunID), zap.Time("cutoff", cutoff))

	ws, err := w.fetch(ctx, stats, cutoff)
	if err != nil {
		return nil, err
	}

	if !stats.Complete() {
		w.logger.Warn("Working set is incomplete", zap.Strings("truncated", stats.Truncated))
		if w.opts.Strict {
			return nil, fmt.Errorf("%w: %v", ErrIncomplete, stats.Truncated)
		}
	}

	res := notes.NewTransformer(w.logger).Transform(ws)
	stats.Notes = len(res.Notes)
	stats.SkippedSupporters = res.SkippedSupporters
	w.logger.Info("Converted to notes", zap.Int("notes", stats.Notes))

	if err := notes.WriteFile(w.opts.Output, res.Notes); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	w.logger.Info("Output written", zap.String("path", w.opts.Output))

	if w.db != nil {
		fillRun(run, stats)
		if err := w.archive(run, res.Notes); err != nil {
			return nil, err
		}
	}

	stats.Duration = time.Since(startTime)
	w.logger.Info("Export complete",
		zap.Int("notes", stats.Notes),
		zap.Int("skipped_supporters", stats.SkippedSupporters),
		zap.Bool("complete", stats.Complete()),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// fillRun copies the final counters into the archived run
func fillRun(run *storage.Run, stats *Stats) {
	finishedAt := time.Now()
	run.FinishedAt = &finishedAt
	run.Suggestions = stats.SuggestionsKept
	run.Supporters = stats.SupportersKept
	run.Users = stats.Users
	run.Forums = stats.Forums
	run.Notes = stats.Notes
	run.Skipped = stats.SkippedSupporters
	run.Complete = stats.Complete()
}

// recordFailure finishes an archived run that ended in runErr. Notes are
// not archived; the CSV may not have been written.
func (w *Worker) recordFailure(run *storage.Run, stats *Stats, runErr error) {
	fillRun(run, stats)
	run.Complete = false
	run.Error = runErr.Error()

	if err := w.db.FinishRun(run, nil); err != nil {
		w.logger.Error("Recording failed run", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	w.logger.Warn("Run archived as failed", zap.String("run_id", run.ID), zap.Error(runErr))
}

// resolveCutoff uses the configured cutoff, or the start of the last complete
// archived run
func (w *Worker) resolveCutoff() (time.Time, error) {
	if !w.opts.Cutoff.IsZero() || w.db == nil {
		return w.opts.Cutoff, nil
	}

	last, err := w.db.LastCompleteRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("last archived run: %w", err)
	}
	if last == nil {
		return time.Time{}, nil
	}

	w.logger.Info("Using last complete run as cutoff",
		zap.String("run_id", last.ID),
		zap.Time("started_at", last.StartedAt))
	return last.StartedAt, nil
}

// fetch builds the working set
func (w *Worker) fetch(ctx context.Context, stats *Stats, cutoff time.Time) (notes.WorkingSet, error) {
	var ws notes.WorkingSet

	// 1. Suggestions, minus those from previous imports
	w.logger.Info("Retrieving suggestions")
	suggestions, err := uservoice.Fetch[uservoice.Suggestion](ctx, w.client, uservoice.Request{
		Resource: "suggestions",
		Paginate: true,
	})
	if err != nil {
		return ws, fmt.Errorf("fetch suggestions: %w", err)
	}
	w.track(stats, "suggestions", suggestions.Complete)
	stats.Suggestions = len(suggestions.Records)
	ws.Suggestions = uservoice.Since(suggestions.Records, cutoff)
	stats.SuggestionsKept = len(ws.Suggestions)
	w.logger.Info("Retrieved suggestions",
		zap.Int("fetched", stats.Suggestions),
		zap.Int("kept", stats.SuggestionsKept))

	// 2. Supporters, same cutoff
	w.logger.Info("Retrieving supporters")
	supporters, err := uservoice.Fetch[uservoice.Supporter](ctx, w.client, uservoice.Request{
		Resource: "supporters",
		Paginate: true,
	})
	if err != nil {
		return ws, fmt.Errorf("fetch supporters: %w", err)
	}
	w.track(stats, "supporters", supporters.Complete)
	stats.Supporters = len(supporters.Records)
	ws.Supporters = uservoice.Since(supporters.Records, cutoff)
	stats.SupportersKept = len(ws.Supporters)
	w.logger.Info("Retrieved supporters",
		zap.Int("fetched", stats.Supporters),
		zap.Int("kept", stats.SupportersKept))

	// 3. Only the users the kept records reference
	ids := uservoice.ReferencedUsers(ws.Suggestions, ws.Supporters)
	w.logger.Info("Retrieving users", zap.Int("referenced", len(ids)))
	ws.Users, err = w.fetchUsers(ctx, stats, ids)
	if err != nil {
		return ws, err
	}
	stats.Users = len(ws.Users)
	w.logger.Info("Retrieved users", zap.Int("count", stats.Users))

	// 4. Forums
	w.logger.Info("Retrieving forums")
	forums, err := uservoice.Fetch[uservoice.Forum](ctx, w.client, uservoice.Request{
		Resource: "forums",
		Paginate: true,
	})
	if err != nil {
		return ws, fmt.Errorf("fetch forums: %w", err)
	}
	w.track(stats, "forums", forums.Complete)
	ws.Forums = forums.Records
	stats.Forums = len(ws.Forums)
	w.logger.Info("Retrieved forums", zap.Int("count", stats.Forums))

	return ws, nil
}

// fetchUsers looks up ids by id list, at most PerPage ids per request
func (w *Worker) fetchUsers(ctx context.Context, stats *Stats, ids []int64) ([]uservoice.User, error) {
	users := []uservoice.User{}
	complete := true

	for start := 0; start < len(ids); start += uservoice.PerPage {
		end := min(start+uservoice.PerPage, len(ids))

		col, err := uservoice.Fetch[uservoice.User](ctx, w.client, uservoice.Request{
			Resource: "users",
			Suffix:   uservoice.IDSuffix(ids[start:end]),
		})
		if err != nil {
			return nil, fmt.Errorf("fetch users: %w", err)
		}
		complete = complete && col.Complete
		users = append(users, col.Records...)
	}

	w.track(stats, "users", complete)
	return users, nil
}

func (w *Worker) track(stats *Stats, resource string, complete bool) {
	if !complete {
		stats.Truncated = append(stats.Truncated, resource)
	}
}

// archive stores the run and its notes, then indexes them
func (w *Worker) archive(run *storage.Run, items []notes.Note) error {
	if err := w.db.FinishRun(run, items); err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	w.logger.Info("Run archived", zap.String("run_id", run.ID), zap.Bool("complete", run.Complete))

	if w.index == nil {
		return nil
	}

	stored, err := w.db.RunNotes(run.ID)
	if err != nil {
		return fmt.Errorf("load archived notes: %w", err)
	}
	if err := w.index.IndexNotes(stored); err != nil {
		return fmt.Errorf("index notes: %w", err)
	}
	w.logger.Info("Notes indexed", zap.Int("count", len(stored)))
	return nil
}
