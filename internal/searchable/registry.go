package searchable

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"gorm.io/gorm"

	"github.com/hyperjump/mitsukeru/internal/index"
)

// Registry holds the bindings for all searchable model types, keyed by table.
type Registry struct {
	db       *gorm.DB
	index    index.Index
	bindings map[string]*Binding
}

// NewRegistry creates an empty registry backed by db and idx.
func NewRegistry(db *gorm.DB, idx index.Index) *Registry {
	return &Registry{
		db:       db,
		index:    idx,
		bindings: make(map[string]*Binding),
	}
}

// Register adds a searchable model and returns its binding. Registering the
// same table twice replaces the previous binding.
func (r *Registry) Register(model Model) *Binding {
	b := NewBinding(r.db, r.index, model)
	r.bindings[b.table] = b
	return b
}

// Get returns the binding for table.
func (r *Registry) Get(table string) (*Binding, bool) {
	b, ok := r.bindings[table]
	return b, ok
}

// Names returns the registered table names, sorted for stable output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reindex re-adds every row of every registered model to the index. Rows are
// walked in batches so large tables do not load into memory at once.
func (r *Registry) Reindex(ctx context.Context) error {
	for _, name := range r.Names() {
		if err := r.bindings[name].Reindex(ctx); err != nil {
			return fmt.Errorf("reindex %s: %w", name, err)
		}
	}
	return nil
}

const reindexBatchSize = 200

// Reindex re-adds every row of the bound model to the index.
func (b *Binding) Reindex(ctx context.Context) error {
	sliceType := reflect.SliceOf(reflect.TypeOf(b.model))
	batch := reflect.New(sliceType)

	result := b.db.WithContext(ctx).Model(b.model).FindInBatches(batch.Interface(), reindexBatchSize, func(tx *gorm.DB, _ int) error {
		rows := batch.Elem()
		for i := 0; i < rows.Len(); i++ {
			m, ok := rows.Index(i).Interface().(Model)
			if !ok {
				continue
			}
			if err := b.index.Add(ctx, b.table, m.SearchID(), m.SearchValues()); err != nil {
				return err
			}
		}
		return nil
	})
	return result.Error
}
