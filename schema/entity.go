package schema

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Table is embedded in entity structs to declare table metadata:
//
//	type Account struct {
//	    schema.Table `db:"ACCOUNTS,schema=billing"`
//	    ID   int64  `db:",id,generated"`
//	    Name string
//	}
type Table struct{}

var tableType = reflect.TypeOf(Table{})

// KeyInspector reports the primary-key columns of a table in ordinal order.
type KeyInspector interface {
	PrimaryKeys(ctx context.Context, schema, table string) ([]string, error)
}

// Entity is the mapping metadata of one entity type. It is built once per
// type by a Registry and shared by all callers.
type Entity struct {
	typ       reflect.Type
	table     string
	schema    string
	access    Access
	columns   []*Column
	byName    map[string]*Column
	ids       []*Column
	version   *Column
	generated *Column
	genErr    error

	// Primary-key ordering, resolved lazily when it is not declared.
	mu    sync.Mutex
	order atomic.Pointer[keyOrder]
}

type keyOrder struct {
	columns []*Column
	err     error
}

// Type returns the entity struct type.
func (e *Entity) Type() reflect.Type { return e.typ }

// Name returns the entity type name.
func (e *Entity) Name() string { return e.typ.Name() }

// Table returns the table name.
func (e *Entity) Table() string { return e.table }

// Schema returns the schema name. It may be empty.
func (e *Entity) Schema() string { return e.schema }

// QualifiedTable returns the table name prefixed by its schema, if any.
func (e *Entity) QualifiedTable() string {
	if e.schema == "" {
		return e.table
	}
	return e.schema + "." + e.table
}

// Access returns the property access mode.
func (e *Entity) Access() Access { return e.access }

// Columns returns all mapped columns in declaration order.
// The returned slice must not be modified.
func (e *Entity) Columns() []*Column { return e.columns }

// Column returns the column with the given name, matched case-insensitively.
func (e *Entity) Column(name string) *Column {
	return e.byName[strings.ToUpper(name)]
}

// DeclaredIDs returns the id columns in declaration order.
func (e *Entity) DeclaredIDs() []*Column { return e.ids }

// Version returns the optimistic-lock version column, or nil.
func (e *Entity) Version() *Column { return e.version }

// Generated returns the generated-value column, or nil.
func (e *Entity) Generated() *Column { return e.generated }

// GenerationErr returns the error from resolving the generation strategy
// of the generated column, if any. It is surfaced on insert.
func (e *Entity) GenerationErr() error { return e.genErr }

// New returns a pointer to a new zero entity.
func (e *Entity) New() reflect.Value { return reflect.New(e.typ) }

// IDs returns the id columns ordered by primary-key ordinal. Single-column
// keys and keys with declared ordinals need no lookup; otherwise the
// ordering is read once through ki. If it cannot be determined, id-based
// lookup is disabled for the entity and a *MetadataError is returned on
// every call. A lookup cut short by ctx is not cached.
func (e *Entity) IDs(ctx context.Context, ki KeyInspector) ([]*Column, error) {
	if len(e.ids) == 0 {
		return nil, NewConfigError(e.Name(), "", "no id columns declared", nil)
	}
	if o := e.order.Load(); o != nil {
		return o.columns, o.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if o := e.order.Load(); o != nil {
		return o.columns, o.err
	}
	o := &keyOrder{}
	o.columns, o.err = e.lookupOrder(ctx, ki)
	if o.err != nil && (ctx.Err() != nil || errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded)) {
		return nil, o.err
	}
	if o.err != nil {
		o.columns = nil
		o.err = &MetadataError{Entity: e.Name(), Table: e.QualifiedTable(), Cause: o.err}
	}
	e.order.Store(o)
	return o.columns, o.err
}

// IDLookupDisabled reports whether a previous primary-key lookup failed.
func (e *Entity) IDLookupDisabled() bool {
	o := e.order.Load()
	return o != nil && o.err != nil
}

// staticOrder returns the id ordering when it is known without asking
// the database.
func (e *Entity) staticOrder() ([]*Column, bool) {
	if len(e.ids) == 1 {
		return e.ids, true
	}
	for _, c := range e.ids {
		if c.idOrdinal == 0 {
			return nil, false
		}
	}
	ids := slices.Clone(e.ids)
	slices.SortStableFunc(ids, func(a, b *Column) int { return cmp.Compare(a.idOrdinal, b.idOrdinal) })
	return ids, true
}

func (e *Entity) lookupOrder(ctx context.Context, ki KeyInspector) ([]*Column, error) {
	if ki == nil {
		return nil, errors.New("no primary-key inspector configured")
	}
	names, err := ki.PrimaryKeys(ctx, e.schema, e.table)
	if err != nil {
		return nil, err
	}
	if len(names) != len(e.ids) {
		return nil, fmt.Errorf("database reports %d primary-key columns, entity declares %d", len(names), len(e.ids))
	}
	ids := make([]*Column, 0, len(names))
	for _, name := range names {
		c := e.Column(name)
		if c == nil || !c.id {
			return nil, fmt.Errorf("primary-key column %q is not a declared id column", name)
		}
		ids = append(ids, c)
	}
	return ids, nil
}
