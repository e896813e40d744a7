// Package search provides full-text search over catalog books using Bleve.
package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hmans/catalog/internal/library"
)

// DefaultSearchLimit is the default maximum number of search results.
const DefaultSearchLimit = 100

// Index wraps a Bleve in-memory index of books.
type Index struct {
	index bleve.Index
}

type bookDocument struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Author string   `json:"author"`
	Genres []string `json:"genres"`
	Year   float64  `json:"published"`
}

// NewIndex creates a new in-memory Bleve index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "standard"

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	numericFieldMapping := bleve.NewNumericFieldMapping()

	bookMapping := bleve.NewDocumentMapping()
	bookMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	bookMapping.AddFieldMappingsAt("title", textFieldMapping)
	bookMapping.AddFieldMappingsAt("author", textFieldMapping)
	// Genres are tags like "sci-fi"; match them whole.
	bookMapping.AddFieldMappingsAt("genres", keywordFieldMapping)
	bookMapping.AddFieldMappingsAt("published", numericFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = bookMapping
	indexMapping.DefaultAnalyzer = "standard"
	indexMapping.IndexDynamic = false
	indexMapping.StoreDynamic = false
	indexMapping.ScoringModel = "bm25"

	return indexMapping
}

// Close closes the index.
func (idx *Index) Close() error {
	return idx.index.Close()
}

func toDocument(b *library.Book) bookDocument {
	doc := bookDocument{
		ID:     b.ID,
		Title:  b.Title,
		Genres: b.Genres,
		Year:   float64(b.Published),
	}
	if b.Author != nil {
		doc.Author = b.Author.Name
	}
	return doc
}

// IndexBook adds or updates a book in the index.
func (idx *Index) IndexBook(b *library.Book) error {
	return idx.index.Index(b.ID, toDocument(b))
}

// IndexBooks indexes multiple books in one batch.
func (idx *Index) IndexBooks(books []*library.Book) error {
	batch := idx.index.NewBatch()
	for _, b := range books {
		if err := batch.Index(b.ID, toDocument(b)); err != nil {
			return err
		}
	}
	return idx.index.Batch(batch)
}

// Count returns the number of indexed books.
func (idx *Index) Count() (uint64, error) {
	return idx.index.DocCount()
}

// Search executes a query string search and returns matching book IDs in
// rank order. A limit of 0 or less uses DefaultSearchLimit.
//
// The query string syntax supports plain terms, phrases, wildcards and
// field prefixes such as "author:tolkien" or "genres:classic".
func (idx *Index) Search(queryStr string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	req := bleve.NewSearchRequest(bleve.NewQueryStringQuery(queryStr))
	req.Size = limit

	result, err := idx.index.Search(req)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
