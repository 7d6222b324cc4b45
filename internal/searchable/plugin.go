package searchable

import (
	"reflect"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/mitsukeru/internal/index"
)

// Plugin is a GORM plugin that mirrors create, update, and delete of
// searchable models into the search index, the way commit hooks would.
// Index failures never fail the database write; they are logged and the
// index converges on the next reindex.
//
// Deletes must pass the populated model (db.Delete(&post)) so the id is
// available when the callback runs.
type Plugin struct {
	index  index.Index
	logger *zap.Logger
}

// NewPlugin creates the index-sync plugin. logger may be nil.
func NewPlugin(idx index.Index, logger *zap.Logger) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{index: idx, logger: logger}
}

// Name implements gorm.Plugin.
func (p *Plugin) Name() string { return "searchable" }

// Initialize implements gorm.Plugin and registers the sync callbacks.
func (p *Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").Register("searchable:after_create", p.sync); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("searchable:after_update", p.sync); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("searchable:after_delete", p.remove)
}

func (p *Plugin) sync(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	p.each(db, func(m Model) {
		if err := p.index.Add(db.Statement.Context, m.SearchTable(), m.SearchID(), m.SearchValues()); err != nil {
			p.logger.Warn("index sync failed",
				zap.String("table", m.SearchTable()),
				zap.Uint("id", m.SearchID()),
				zap.Error(err))
		}
	})
}

func (p *Plugin) remove(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	p.each(db, func(m Model) {
		if err := p.index.Remove(db.Statement.Context, m.SearchTable(), m.SearchID()); err != nil {
			p.logger.Warn("index remove failed",
				zap.String("table", m.SearchTable()),
				zap.Uint("id", m.SearchID()),
				zap.Error(err))
		}
	})
}

// each invokes fn for every searchable model touched by the statement.
// Models without an id (zero value) are skipped: the statement carried
// conditions only, not a loaded row.
func (p *Plugin) each(db *gorm.DB, fn func(Model)) {
	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			p.one(rv.Index(i), fn)
		}
	case reflect.Struct:
		p.one(rv, fn)
	case reflect.Ptr:
		if !rv.IsNil() {
			p.one(rv.Elem(), fn)
		}
	}
}

func (p *Plugin) one(v reflect.Value, fn func(Model)) {
	if v.Kind() == reflect.Struct {
		if !v.CanAddr() {
			return
		}
		v = v.Addr()
	}
	m, ok := v.Interface().(Model)
	if !ok || m.SearchID() == 0 {
		return
	}
	fn(m)
}
