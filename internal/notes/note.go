// Package notes converts UserVoice records into ProductBoard note rows.
package notes

import (
	"fmt"
	"strings"

	"github.com/renderinc/uservoice-export/internal/uservoice"
	"go.uber.org/zap"
)

// UpvoteText is the note text of every supporter-derived note
const UpvoteText = "Upvote"

// Note is one row of the ProductBoard import. Title and Text already have
// their quote characters doubled.
type Note struct {
	Title         string `json:"note_title"`
	Text          string `json:"note_text"`
	PersonEmail   string `json:"person_email"`
	PersonName    string `json:"person_name"`
	CompanyDomain string `json:"company_domain"`
	Tags          string `json:"tags"`
}

// WorkingSet is everything fetched for one run
type WorkingSet struct {
	Suggestions []uservoice.Suggestion
	Supporters  []uservoice.Supporter
	Users       []uservoice.User
	Forums      []uservoice.Forum
}

// Result is the output of a transform
type Result struct {
	Notes             []Note
	FromSuggestions   int
	FromSupporters    int
	SkippedSupporters int
}

// Transformer joins a working set into notes
type Transformer struct {
	logger *zap.Logger
}

// NewTransformer creates a transformer; a nil logger discards diagnostics
func NewTransformer(logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{logger: logger}
}

// Transform produces all suggestion notes followed by all supporter notes.
// Supporters whose user or suggestion is missing from ws are skipped.
func (t *Transformer) Transform(ws WorkingSet) *Result {
	users := make(map[int64]uservoice.User, len(ws.Users))
	for _, u := range ws.Users {
		users[u.ID] = u
	}
	forums := make(map[int64]uservoice.Forum, len(ws.Forums))
	for _, f := range ws.Forums {
		forums[f.ID] = f
	}
	suggestions := make(map[int64]uservoice.Suggestion, len(ws.Suggestions))
	for _, s := range ws.Suggestions {
		suggestions[s.ID] = s
	}

	res := &Result{Notes: make([]Note, 0, len(ws.Suggestions)+len(ws.Supporters))}

	for _, s := range ws.Suggestions {
		author, _ := lookup(users, s.Links.CreatedBy)
		res.Notes = append(res.Notes, FromSuggestion(s, author, forumTag(forums, s)))
	}
	res.FromSuggestions = len(res.Notes)
	t.logger.Info("Converted suggestions to notes", zap.Int("notes", res.FromSuggestions))

	for _, sup := range ws.Supporters {
		user, okUser := lookup(users, sup.Links.User)
		suggestion, okSuggestion := lookup(suggestions, sup.Links.Suggestion)
		if !okUser || !okSuggestion {
			t.logger.Warn("Skipping supporter with unresolved reference",
				zap.Int64("supporter_id", sup.ID),
				zap.Int64("user_id", sup.Links.User),
				zap.Bool("user_found", okUser),
				zap.Int64("suggestion_id", sup.Links.Suggestion),
				zap.Bool("suggestion_found", okSuggestion))
			res.SkippedSupporters++
			continue
		}
		res.Notes = append(res.Notes, FromSupporter(sup, user, suggestion, forumTag(forums, suggestion)))
		res.FromSupporters++
	}
	t.logger.Info("Converted supporters to notes",
		zap.Int("notes", res.FromSupporters),
		zap.Int("skipped", res.SkippedSupporters))

	return res
}

// FromSuggestion builds the note for a suggestion. A zero author leaves the
// person fields empty.
func FromSuggestion(s uservoice.Suggestion, author uservoice.User, tag string) Note {
	// Text is required for a note, title is required for a suggestion
	text := s.Body
	if text == "" {
		text = s.Title
	}
	text += fmt.Sprintf("\n\nImported from UserVoice, created %s", s.CreatedAt)

	return Note{
		Title:         Escape(s.Title),
		Text:          Escape(text),
		PersonEmail:   author.EmailAddress,
		PersonName:    author.Name,
		CompanyDomain: CompanyDomain(author.EmailAddress),
		Tags:          tag,
	}
}

// FromSupporter builds the upvote note for a supporter
func FromSupporter(sup uservoice.Supporter, user uservoice.User, suggestion uservoice.Suggestion, tag string) Note {
	title := fmt.Sprintf("Upvote for %s at %s", suggestion.Title, sup.CreatedAt)

	return Note{
		Title:         Escape(title),
		Text:          Escape(UpvoteText),
		PersonEmail:   user.EmailAddress,
		PersonName:    user.Name,
		CompanyDomain: CompanyDomain(user.EmailAddress),
		Tags:          tag,
	}
}

// CompanyDomain returns everything after the first '@', or "" without one
func CompanyDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return domain
}

// Escape doubles every quote character
func Escape(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

// Unescape reverses Escape
func Unescape(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

func forumTag(forums map[int64]uservoice.Forum, s uservoice.Suggestion) string {
	if s.Links.Forum == nil {
		return ""
	}
	f, ok := forums[*s.Links.Forum]
	if !ok {
		return ""
	}
	return f.Name
}

func lookup[V any](m map[int64]V, id int64) (V, bool) {
	v, ok := m[id]
	return v, ok
}
