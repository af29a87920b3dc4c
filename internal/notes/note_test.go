package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderinc/uservoice-export/internal/uservoice"
)

func forumID(id int64) *int64 { return &id }

func TestFromSuggestion(t *testing.T) {
	ann := uservoice.User{ID: 1, Name: "Ann", EmailAddress: "ann@example.com"}

	t.Run("empty body falls back to title", func(t *testing.T) {
		s := uservoice.Suggestion{ID: 1, Title: "Add dark mode", CreatedAt: "2024-01-01"}

		n := FromSuggestion(s, ann, "UI")

		assert.Equal(t, "Add dark mode", n.Title)
		assert.Equal(t, "Add dark mode\n\nImported from UserVoice, created 2024-01-01", n.Text)
		assert.Equal(t, "ann@example.com", n.PersonEmail)
		assert.Equal(t, "Ann", n.PersonName)
		assert.Equal(t, "example.com", n.CompanyDomain)
		assert.Equal(t, "UI", n.Tags)
	})

	t.Run("body is used when present", func(t *testing.T) {
		s := uservoice.Suggestion{ID: 1, Title: "Dark mode", Body: "Please add it", CreatedAt: "2024-01-01"}

		n := FromSuggestion(s, ann, "")

		assert.True(t, strings.HasPrefix(n.Text, "Please add it"))
		assert.True(t, strings.HasSuffix(n.Text, "created 2024-01-01"))
		assert.Empty(t, n.Tags)
	})

	t.Run("missing author", func(t *testing.T) {
		s := uservoice.Suggestion{ID: 1, Title: "Anonymous idea"}

		n := FromSuggestion(s, uservoice.User{}, "")

		assert.Empty(t, n.PersonEmail)
		assert.Empty(t, n.PersonName)
		assert.Empty(t, n.CompanyDomain)
	})

	t.Run("quotes are doubled", func(t *testing.T) {
		s := uservoice.Suggestion{Title: `Support "smart" quotes`, Body: `He said "hi"`}

		n := FromSuggestion(s, ann, "")

		assert.Equal(t, `Support ""smart"" quotes`, n.Title)
		assert.True(t, strings.HasPrefix(n.Text, `He said ""hi""`))
	})
}

func TestFromSupporter(t *testing.T) {
	user := uservoice.User{ID: 2, Name: "Bob", EmailAddress: "bob@corp.io"}
	suggestion := uservoice.Suggestion{ID: 9, Title: `The "best" idea`}
	sup := uservoice.Supporter{ID: 3, CreatedAt: "2024-02-01", Links: uservoice.SupporterLinks{User: 2, Suggestion: 9}}

	n := FromSupporter(sup, user, suggestion, "API")

	assert.Equal(t, `Upvote for The ""best"" idea at 2024-02-01`, n.Title)
	assert.Equal(t, UpvoteText, n.Text)
	assert.Equal(t, "bob@corp.io", n.PersonEmail)
	assert.Equal(t, "Bob", n.PersonName)
	assert.Equal(t, "corp.io", n.CompanyDomain)
	assert.Equal(t, "API", n.Tags)
}

func TestCompanyDomain(t *testing.T) {
	tests := map[string]string{
		"ann@example.com": "example.com",
		"no-at-sign":      "",
		"":                "",
		"trailing@":       "",
		"a@b@c":           "b@c",
	}
	for email, want := range tests {
		assert.Equal(t, want, CompanyDomain(email), email)
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `""`, Escape(`"`))
	assert.Equal(t, `a""""b`, Escape(`a""b`))
	assert.Equal(t, "plain", Escape("plain"))
}

func TestTransform(t *testing.T) {
	ws := WorkingSet{
		Suggestions: []uservoice.Suggestion{
			{ID: 100, Title: "Add dark mode", CreatedAt: "2024-01-01", Links: uservoice.SuggestionLinks{CreatedBy: 1, Forum: forumID(50)}},
			{ID: 101, Title: "Export to PDF", Body: "We need PDFs", CreatedAt: "2024-01-05", Links: uservoice.SuggestionLinks{CreatedBy: 99}},
			{ID: 102, Title: "Unknown forum", CreatedAt: "2024-01-06", Links: uservoice.SuggestionLinks{CreatedBy: 2, Forum: forumID(77)}},
		},
		Supporters: []uservoice.Supporter{
			{ID: 1, CreatedAt: "2024-02-01", Links: uservoice.SupporterLinks{User: 2, Suggestion: 100}},
			{ID: 2, CreatedAt: "2024-02-02", Links: uservoice.SupporterLinks{User: 404, Suggestion: 100}}, // unknown user
			{ID: 3, CreatedAt: "2024-02-03", Links: uservoice.SupporterLinks{User: 1, Suggestion: 404}}, // unknown suggestion
			{ID: 4, CreatedAt: "2024-02-04", Links: uservoice.SupporterLinks{User: 1, Suggestion: 101}},
		},
		Users: []uservoice.User{
			{ID: 1, Name: "Ann", EmailAddress: "ann@example.com"},
			{ID: 2, Name: "Bob", EmailAddress: "bob"},
		},
		Forums: []uservoice.Forum{{ID: 50, Name: "UI"}},
	}

	res := NewTransformer(nil).Transform(ws)

	assert.Equal(t, 3, res.FromSuggestions)
	assert.Equal(t, 2, res.FromSupporters)
	assert.Equal(t, 2, res.SkippedSupporters)
	require.Len(t, res.Notes, 5)

	// suggestion notes come first, in input order
	assert.Equal(t, "Add dark mode", res.Notes[0].Title)
	assert.Equal(t, "UI", res.Notes[0].Tags)
	assert.Equal(t, "example.com", res.Notes[0].CompanyDomain)

	assert.Equal(t, "Export to PDF", res.Notes[1].Title)
	assert.Empty(t, res.Notes[1].PersonEmail, "author 99 was not fetched")
	assert.Empty(t, res.Notes[1].Tags)

	assert.Equal(t, "Unknown forum", res.Notes[2].Title)
	assert.Empty(t, res.Notes[2].Tags)
	assert.Empty(t, res.Notes[2].CompanyDomain, "email without @")

	assert.Equal(t, "Upvote for Add dark mode at 2024-02-01", res.Notes[3].Title)
	assert.Equal(t, "Bob", res.Notes[3].PersonName)
	assert.Equal(t, "UI", res.Notes[3].Tags, "tag comes from the suggestion's forum")

	assert.Equal(t, "Upvote for Export to PDF at 2024-02-04", res.Notes[4].Title)
	assert.Equal(t, "Ann", res.Notes[4].PersonName)
}

func TestTransformEmpty(t *testing.T) {
	res := NewTransformer(nil).Transform(WorkingSet{})

	assert.Empty(t, res.Notes)
	assert.Zero(t, res.SkippedSupporters)
}

func TestUnescape(t *testing.T) {
	for _, s := range []string{`"`, `a""b`, `plain`, `He said "hi"`} {
		assert.Equal(t, s, Unescape(Escape(s)))
	}
}
