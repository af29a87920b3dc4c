package notes

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow(t *testing.T) {
	n := Note{
		Title:         `Say ""hi""`,
		Text:          "line one\n\nline two",
		PersonEmail:   "ann@example.com",
		PersonName:    "Ann",
		CompanyDomain: "example.com",
		Tags:          "UI",
	}

	assert.Equal(t, "\"Say \"\"hi\"\"\",\"line one\n\nline two\",ann@example.com,Ann,example.com,UI", Row(n))
}

func TestRowEmptyFields(t *testing.T) {
	assert.Equal(t, `"t","x",,,,`, Row(Note{Title: "t", Text: "x"}))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Note{
		{Title: "One", Text: "First", Tags: "UI"},
		{Title: "Two", Text: UpvoteText, PersonEmail: "a@b.c"},
	})
	require.NoError(t, err)

	rows := strings.Split(buf.String(), LineEnding)
	require.Len(t, rows, 3)
	assert.Equal(t, "note_title,note_text,person_email,person_name,company_domain,tags", rows[0])
	assert.Equal(t, `"One","First",,,,UI`, rows[1])
	assert.Equal(t, `"Two","Upvote",a@b.c,,,`, rows[2])
	assert.False(t, strings.HasSuffix(buf.String(), LineEnding), "no trailing terminator")
}

func TestWriteHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, strings.Join(Header, ","), buf.String())
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new file"), 0o644))

	require.NoError(t, WriteFile(path, []Note{{Title: "A", Text: "B"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header, ",")+LineEnding+`"A","B",,,,`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is cleaned up")
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "output.csv")
	assert.Error(t, WriteFile(path, nil))
}
