package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/mitsukeru/internal/models"
)

// BleveIndex implements Index with one Bleve index per table, stored under
// a common root directory.
type BleveIndex struct {
	root string

	mu      sync.Mutex
	indexes map[string]bleve.Index
}

// NewBleveIndex creates a Bleve-backed Index rooted at dir. Per-table indexes
// are opened or created lazily on first use; an existing index directory is
// reused so unchanged documents survive a restart. If the mapping changes in
// code, remove the index directory to force a rebuild.
func NewBleveIndex(dir string) (*BleveIndex, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index root: %w", err)
	}
	return &BleveIndex{
		root:    dir,
		indexes: make(map[string]bleve.Index),
	}, nil
}

// newMapping builds the document mapping shared by all tables. The standard
// analyzer (lowercase + tokenize, no stemming) keeps matching literal:
// "bayes" matches "Bayes" but is not stemmed down to "bay".
func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	docMapping.DefaultAnalyzer = standard.Name
	im.AddDocumentMapping("record", docMapping)
	im.DefaultType = "record"
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = standard.Name
	return im
}

// forTable returns the Bleve index for table, opening or creating it as needed.
func (b *BleveIndex) forTable(table string) (bleve.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if idx, ok := b.indexes[table]; ok {
		return idx, nil
	}

	path := filepath.Join(b.root, table)
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index for %s: %w", table, openErr)
		}
		b.indexes[table] = idx
		return idx, nil
	}

	idx, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index for %s: %w", table, err)
	}
	b.indexes[table] = idx
	return idx, nil
}

// Add indexes the field values for id. An existing document with the same id
// is overwritten.
func (b *BleveIndex) Add(ctx context.Context, table string, id uint, values map[string]string) error {
	idx, err := b.forTable(table)
	if err != nil {
		return err
	}
	return idx.Index(models.FormatID(id), values)
}

// Remove deletes the document for id. Removing an id that was never indexed
// is not an error.
func (b *BleveIndex) Remove(ctx context.Context, table string, id uint) error {
	idx, err := b.forTable(table)
	if err != nil {
		return err
	}
	return idx.Delete(models.FormatID(id))
}

// Query runs a match query over all indexed fields and returns one page of
// ids in rank order, plus the engine's total match count. Hits whose document
// id is not a valid entity id are skipped.
func (b *BleveIndex) Query(ctx context.Context, table, expression string, page, perPage int) ([]uint, int, error) {
	idx, err := b.forTable(table)
	if err != nil {
		return nil, 0, err
	}

	q := bleve.NewMatchQuery(expression)
	req := bleve.NewSearchRequest(q)
	req.Size = perPage
	req.From = (page - 1) * perPage
	results, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("Bleve search failed: %w", err)
	}

	ids := make([]uint, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, parseErr := models.ParseID(hit.ID)
		if parseErr != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, int(results.Total), nil
}

// Count returns the number of documents indexed for table.
func (b *BleveIndex) Count(table string) (uint64, error) {
	idx, err := b.forTable(table)
	if err != nil {
		return 0, err
	}
	return idx.DocCount()
}

// Close closes all open per-table indexes. The first error wins; remaining
// indexes are still closed.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for table, idx := range b.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close index for %s: %w", table, err)
		}
		delete(b.indexes, table)
	}
	return firstErr
}
