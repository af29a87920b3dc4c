package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/uservoice-export/internal/notes"
	"github.com/renderinc/uservoice-export/internal/uservoice"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func finishedRun(t *testing.T, db *DB, id string, started time.Time, complete bool, items []notes.Note) *Run {
	t.Helper()
	run := &Run{ID: id, StartedAt: started, OutputPath: "output.csv"}
	require.NoError(t, db.BeginRun(run))

	finished := started.Add(time.Minute)
	run.FinishedAt = &finished
	run.Notes = len(items)
	run.Complete = complete
	require.NoError(t, db.FinishRun(run, items))
	return run
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cutoff := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	run := &Run{ID: "run-1", StartedAt: started, Cutoff: &cutoff, OutputPath: "out.csv"}
	require.NoError(t, db.BeginRun(run))

	got, err := db.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.FinishedAt)
	assert.False(t, got.Complete)
	require.NotNil(t, got.Cutoff)
	assert.True(t, cutoff.Equal(*got.Cutoff))

	finished := started.Add(2 * time.Minute)
	run.FinishedAt = &finished
	run.Suggestions, run.Supporters, run.Users, run.Forums = 2, 3, 4, 1
	run.Notes, run.Skipped, run.Complete = 4, 1, true
	items := []notes.Note{
		{Title: "Add dark mode", Text: "Add dark mode", PersonEmail: "ann@example.com", Tags: "UI"},
		{Title: "Upvote for Add dark mode at 2024-02-01", Text: notes.UpvoteText},
	}
	require.NoError(t, db.FinishRun(run, items))

	got, err = db.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
	assert.Equal(t, 2, got.Suggestions)
	assert.Equal(t, 3, got.Supporters)
	assert.Equal(t, 4, got.Users)
	assert.Equal(t, 1, got.Forums)
	assert.Equal(t, 1, got.Skipped)
	assert.True(t, got.Complete)

	stored, err := db.RunNotes("run-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].Seq)
	assert.Equal(t, "Add dark mode", stored[0].Title)
	assert.Equal(t, "UI", stored[0].Tags)
	assert.Equal(t, "run-1/1", stored[1].Key())

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetRunUnknown(t *testing.T) {
	db := openTestDB(t)

	run, err := db.GetRun("missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestFinishRunUnknown(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	err := db.FinishRun(&Run{ID: "missing", FinishedAt: &now}, []notes.Note{{Title: "x", Text: "y"}})
	assert.Error(t, err)

	count, err := db.Count()
	require.NoError(t, err)
	assert.Zero(t, count, "notes are rolled back")
}

func TestLastCompleteRun(t *testing.T) {
	db := openTestDB(t)

	run, err := db.LastCompleteRun()
	require.NoError(t, err)
	assert.Nil(t, run)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	finishedRun(t, db, "old", base, true, nil)
	finishedRun(t, db, "newer", base.AddDate(0, 1, 0), true, nil)
	finishedRun(t, db, "truncated", base.AddDate(0, 2, 0), false, nil)
	require.NoError(t, db.BeginRun(&Run{ID: "running", StartedAt: base.AddDate(0, 3, 0), OutputPath: "x"}))

	run, err = db.LastCompleteRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "newer", run.ID)
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		finishedRun(t, db, id, base.AddDate(0, 0, i), true, nil)
	}

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)

	runs, err = db.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunNotesAllRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	finishedRun(t, db, "a", base, true, []notes.Note{{Title: "a0", Text: "x"}, {Title: "a1", Text: "x"}})
	finishedRun(t, db, "b", base.AddDate(0, 0, 1), true, []notes.Note{{Title: "b0", Text: "x"}})

	all, err := db.RunNotes("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a/0", all[0].Key())
	assert.Equal(t, "b/0", all[2].Key())

	only, err := db.RunNotes("b")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "b0", only[0].Title)
}

func TestFinishRunStoresSourceText(t *testing.T) {
	db := openTestDB(t)
	finishedRun(t, db, "run-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true, []notes.Note{
		notes.FromSuggestion(uservoice.Suggestion{Title: `Say "hi"`, Body: `Quote "this"`, CreatedAt: "2024-01-01"}, uservoice.User{}, ""),
	})

	stored, err := db.RunNotes("run-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, `Say "hi"`, stored[0].Title)
	assert.Equal(t, "Quote \"this\"\n\nImported from UserVoice, created 2024-01-01", stored[0].Text)
}

func TestFailedRunIsNotLastComplete(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	finishedRun(t, db, "ok", base, true, nil)

	failed := &Run{ID: "failed", StartedAt: base.AddDate(0, 1, 0), OutputPath: "output.csv"}
	require.NoError(t, db.BeginRun(failed))
	finished := failed.StartedAt.Add(time.Minute)
	failed.FinishedAt = &finished
	failed.Complete = true
	failed.Error = "write csv: disk full"
	require.NoError(t, db.FinishRun(failed, nil))

	got, err := db.GetRun("failed")
	require.NoError(t, err)
	assert.Equal(t, "write csv: disk full", got.Error)

	last, err := db.LastCompleteRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "ok", last.ID)
}
