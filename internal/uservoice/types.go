package uservoice

// Suggestion represents a UserVoice suggestion (an idea posted to a forum)
type Suggestion struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	CreatedAt string          `json:"created_at"` // kept verbatim for note provenance
	Links     SuggestionLinks `json:"links"`
}

// SuggestionLinks holds the foreign keys of a suggestion
type SuggestionLinks struct {
	CreatedBy int64  `json:"created_by"`
	Forum     *int64 `json:"forum"` // nil if the suggestion has no forum
}

// Supporter represents a single upvote of a suggestion by a user
type Supporter struct {
	ID        int64          `json:"id"`
	CreatedAt string         `json:"created_at"`
	Links     SupporterLinks `json:"links"`
}

// SupporterLinks holds the foreign keys of a supporter
type SupporterLinks struct {
	User       int64 `json:"user"`
	Suggestion int64 `json:"suggestion"`
}

// User represents a UserVoice user
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
}

// Forum represents a UserVoice forum
type Forum struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Pagination is the cursor block returned with paginated responses
type Pagination struct {
	TotalRecords int    `json:"total_records"`
	Cursor       string `json:"cursor"`
}

// Created returns the raw creation timestamp; used by the retention filter.
func (s Suggestion) Created() string { return s.CreatedAt }

// Created returns the raw creation timestamp; used by the retention filter.
func (s Supporter) Created() string { return s.CreatedAt }
