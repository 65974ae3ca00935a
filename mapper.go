package sqldao

import (
	"github.com/syssam/sqldao/dialect/sql"
	"github.com/syssam/sqldao/schema"
)

// mapper assigns the rows of one result set to new entities. The column
// plan is computed once from the result set header; result columns
// without a matching entity column are scanned and discarded, and entity
// columns missing from the result keep their zero value.
type mapper[T any] struct {
	entity  *schema.Entity
	dialect sql.Dialect
	plan    []*schema.Column
	raw     []any
	dest    []any
}

func newMapper[T any](e *schema.Entity, d sql.Dialect, rows sql.ColumnScanner) (*mapper[T], error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, &DriverError{Entity: e.Name(), Op: "read columns", Err: err}
	}
	m := &mapper[T]{
		entity:  e,
		dialect: d,
		plan:    make([]*schema.Column, len(names)),
		raw:     make([]any, len(names)),
		dest:    make([]any, len(names)),
	}
	for i, name := range names {
		m.plan[i] = e.Column(name)
		m.dest[i] = &m.raw[i]
	}
	return m, nil
}

// scan maps the current row into a new entity.
func (m *mapper[T]) scan(rows sql.ColumnScanner) (*T, error) {
	clear(m.raw)
	if err := rows.Scan(m.dest...); err != nil {
		return nil, &DriverError{Entity: m.entity.Name(), Op: "scan", Err: err}
	}
	ptr := m.entity.New()
	for i, c := range m.plan {
		if c == nil {
			continue
		}
		v, err := m.dialect.Convert(m.raw[i], c.Type(), c.Temporal())
		if err != nil {
			return nil, &MappingError{Entity: m.entity.Name(), Column: c.Name(), Err: err}
		}
		if err := c.Set(ptr, v); err != nil {
			return nil, &MappingError{Entity: m.entity.Name(), Column: c.Name(), Err: err}
		}
	}
	return ptr.Interface().(*T), nil
}

// collect maps all remaining rows and closes rows.
func collect[T any](e *schema.Entity, d sql.Dialect, rows sql.ColumnScanner) (items []*T, rerr error) {
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = &DriverError{Entity: e.Name(), Op: "close rows", Err: err}
		}
	}()
	m, err := newMapper[T](e, d, rows)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		item, err := m.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &DriverError{Entity: e.Name(), Op: "read rows", Err: err}
	}
	return items, nil
}
