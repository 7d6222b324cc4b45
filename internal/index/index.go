// Package index defines the search-index collaborator for searchable models.
package index

import "context"

// Index defines the operations the searchable layer needs from an external
// full-text index. Documents are grouped per table; ids are the entities'
// primary keys. Query returns matching ids in rank order plus the total
// match count reported by the engine. Errors are surfaced unchanged; there
// are no retries at this layer.
type Index interface {
	// Add writes (or overwrites) the document for id in the given table.
	Add(ctx context.Context, table string, id uint, values map[string]string) error
	// Remove deletes the document for id from the given table.
	Remove(ctx context.Context, table string, id uint) error
	// Query returns one page of matching ids for expression, in rank order,
	// and the total number of matches across all pages.
	Query(ctx context.Context, table, expression string, page, perPage int) (ids []uint, total int, err error)
	// Count returns the number of documents indexed for the table.
	Count(table string) (uint64, error)
	Close() error
}
