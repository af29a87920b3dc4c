package uservoice

import (
	"slices"
	"strconv"
	"strings"
)

// ReferencedUsers returns the distinct user ids referenced as suggestion
// authors or supporter users, sorted ascending. Zero ids are ignored.
func ReferencedUsers(suggestions []Suggestion, supporters []Supporter) []int64 {
	seen := make(map[int64]struct{}, len(suggestions)+len(supporters))
	for _, s := range suggestions {
		if s.Links.CreatedBy != 0 {
			seen[s.Links.CreatedBy] = struct{}{}
		}
	}
	for _, s := range supporters {
		if s.Links.User != 0 {
			seen[s.Links.User] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IDSuffix renders ids as a path suffix, e.g. "/1,2,3"
func IDSuffix(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "/" + strings.Join(parts, ",")
}
