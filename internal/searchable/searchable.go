// Package searchable keeps relational models in sync with a full-text index
// and turns index hits back into relational queries.
//
// The search contract: Search returns a deferred *gorm.DB plus the total
// reported by the index. When the index yields no ids, the returned query is
// explicitly impossible (WHERE 1 = 0) and the total is forced to 0 — the id
// list is the source of truth, never the engine's separately reported count.
package searchable

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hyperjump/mitsukeru/internal/index"
)

// Model is the behavior an entity adopts to become searchable.
type Model interface {
	// SearchID returns the primary identifier, used as the index document id.
	SearchID() uint
	// SearchTable returns the table name, which doubles as the index name.
	SearchTable() string
	// SearchValues returns the indexed field content for this instance.
	SearchValues() map[string]string
}

// Binding ties one model type to the database and the search index.
type Binding struct {
	db    *gorm.DB
	index index.Index
	model Model
	table string
}

// NewBinding creates a binding for model. The model instance is only used
// for type and table information.
func NewBinding(db *gorm.DB, idx index.Index, model Model) *Binding {
	return &Binding{
		db:    db,
		index: idx,
		model: model,
		table: model.SearchTable(),
	}
}

// Table returns the bound table name.
func (b *Binding) Table() string { return b.table }

// QueryIndex fetches one page of matching ids and the total match count from
// the index. Index errors propagate unchanged; there is no retry here.
func (b *Binding) QueryIndex(ctx context.Context, expression string, page, perPage int) ([]uint, int, error) {
	return b.index.Query(ctx, b.table, expression, page, perPage)
}

// EmptySearch returns a query constrained by an always-false predicate.
// It matches zero rows under any data state, including a row whose id is 0,
// and its SQL reads as WHERE 1 = 0 rather than looking like a real filter.
func (b *Binding) EmptySearch() *gorm.DB {
	return b.db.Model(b.model).Where("1 = 0")
}

// Search queries the index and converts the hit list into a relational query.
// An empty id list yields (EmptySearch(), 0) even when the index reported a
// nonzero total. Otherwise the query is restricted to the returned ids and
// ordered to preserve their rank order exactly.
func (b *Binding) Search(ctx context.Context, expression string, page, perPage int) (*gorm.DB, int, error) {
	ids, total, err := b.QueryIndex(ctx, expression, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return b.EmptySearch().WithContext(ctx), 0, nil
	}
	q := b.db.WithContext(ctx).
		Model(b.model).
		Where("id IN ?", ids).
		Clauses(clause.OrderBy{Expression: rankOrder(ids)})
	return q, total, nil
}

// rankOrder builds a positional CASE expression mapping each id to its rank,
// so ids [5,1,3] sort rows as 5, 1, 3 instead of primary-key order.
func rankOrder(ids []uint) clause.Expr {
	var sb strings.Builder
	vars := make([]interface{}, 0, len(ids)*2)
	sb.WriteString("CASE id")
	for pos, id := range ids {
		sb.WriteString(" WHEN ? THEN ?")
		vars = append(vars, id, pos)
	}
	sb.WriteString(" END")
	return clause.Expr{SQL: sb.String(), Vars: vars}
}
