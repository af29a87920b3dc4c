package notes

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Header is the ProductBoard note import header
var Header = []string{"note_title", "note_text", "person_email", "person_name", "company_domain", "tags"}

// LineEnding is the host line terminator
var LineEnding = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// Row renders one note. Title and text are wrapped in quotes, the other
// fields are emitted as-is.
func Row(n Note) string {
	return strings.Join([]string{
		`"` + n.Title + `"`,
		`"` + n.Text + `"`,
		n.PersonEmail,
		n.PersonName,
		n.CompanyDomain,
		n.Tags,
	}, ",")
}

// Write renders the header and one row per note, joined by LineEnding
func Write(w io.Writer, notes []Note) error {
	rows := make([]string, 0, len(notes)+1)
	rows = append(rows, strings.Join(Header, ","))
	for _, n := range notes {
		rows = append(rows, Row(n))
	}

	if _, err := io.WriteString(w, strings.Join(rows, LineEnding)); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteFile writes the notes to path, replacing any previous content only
// once the new file is completely written.
func WriteFile(path string, notes []Note) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := Write(tmp, notes); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
