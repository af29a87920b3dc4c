package search

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/renderinc/uservoice-export/internal/storage"
)

// Index wraps a Bleve search index of archived notes
type Index struct {
	index bleve.Index
}

// IndexedNote represents a note in the search index
type IndexedNote struct {
	ID     string
	RunID  string
	Title  string
	Text   string
	Person string
	Email  string
	Domain string
	Tags   string
}

// SearchResult represents a search result
type SearchResult struct {
	ID        string              `json:"id"`
	RunID     string              `json:"run_id"`
	Title     string              `json:"title"`
	Person    string              `json:"person"`
	Email     string              `json:"email"`
	Tags      string              `json:"tags"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"` // Highlighted snippets
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// buildIndexMapping creates the note mapping; ids and tags are matched whole
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("RunID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Text", textFieldMapping)
	docMapping.AddFieldMappingsAt("Person", textFieldMapping)
	docMapping.AddFieldMappingsAt("Email", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Domain", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexNotes adds or updates archived notes in one batch
func (i *Index) IndexNotes(items []*storage.StoredNote) error {
	batch := i.index.NewBatch()
	for _, n := range items {
		doc := toIndexed(n)
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search performs a query-string search (quotes, +/-, fuzzy ~, field:value)
func (i *Index) Search(queryStr string, limit int) ([]*SearchResult, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	search := bleve.NewSearchRequestOptions(query, limit, 0, false)
	search.Highlight = bleve.NewHighlight()
	search.Fields = []string{"RunID", "Title", "Person", "Email", "Tags"}

	results, err := i.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	searchResults := make([]*SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		result := &SearchResult{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}

		result.RunID, _ = hit.Fields["RunID"].(string)
		result.Title, _ = hit.Fields["Title"].(string)
		result.Person, _ = hit.Fields["Person"].(string)
		result.Email, _ = hit.Fields["Email"].(string)
		result.Tags, _ = hit.Fields["Tags"].(string)

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// Rebuild indexes every note in the archive, reporting progress per note
func (i *Index) Rebuild(db *storage.DB, progress func(current, total int)) error {
	items, err := db.RunNotes("")
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}

	const batchSize = 500
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		if err := i.IndexNotes(items[start:end]); err != nil {
			return err
		}
		if progress != nil {
			progress(end, len(items))
		}
	}
	return nil
}

// Count returns the number of notes in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func toIndexed(n *storage.StoredNote) *IndexedNote {
	return &IndexedNote{
		ID:     n.Key(),
		RunID:  n.RunID,
		Title:  n.Title,
		Text:   n.Text,
		Person: n.PersonName,
		Email:  n.PersonEmail,
		Domain: n.CompanyDomain,
		Tags:   n.Tags,
	}
}
