package sqldao

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/sqldao/dialect/sql"
	"github.com/syssam/sqldao/schema"
	"github.com/syssam/sqldao/schema/field"
)

// Insert inserts item. Keys of the sequence and table strategies are
// assigned before the statement runs; identity keys are read back and
// assigned after it. A numeric version column starts at zero.
func (d *DAO[T]) Insert(ctx context.Context, item *T) error {
	return d.InsertAll(ctx, []*T{item})
}

// InsertAll inserts items in one batch. Generated keys are assigned to
// the entities in order.
func (d *DAO[T]) InsertAll(ctx context.Context, items []*T) error {
	if len(items) == 0 {
		return nil
	}
	e, err := d.entity()
	if err != nil {
		return err
	}
	if err := e.GenerationErr(); err != nil {
		return err
	}
	ptrs, err := d.pointers(e, "insert", items)
	if err != nil {
		return err
	}
	for _, ptr := range ptrs {
		if err := d.preInsert(ctx, e, ptr); err != nil {
			return err
		}
	}
	g := e.Generated()
	if g == nil || g.Strategy() != schema.StrategyIdentity {
		stmt := sql.Insert(e)
		argv, err := bindAll(e, "insert", stmt, ptrs)
		if err != nil {
			return err
		}
		_, err = d.execBatch(ctx, e, "insert", stmt.Query, argv)
		return err
	}
	stmt := sql.InsertIdentity(e)
	argv, err := bindAll(e, "insert", stmt, ptrs)
	if err != nil {
		return err
	}
	d.client.log.DebugContext(ctx, "exec", "entity", e.Name(), "op", "insert", "sql", stmt.Query, "size", len(argv))
	keys, err := d.exec.ExecReturning(ctx, stmt.Query, g.Name(), argv)
	if err != nil {
		return &DriverError{Entity: e.Name(), Op: "insert", Err: err}
	}
	defer func() {
		if err := keys.Close(); err != nil {
			d.client.log.WarnContext(ctx, "closing generated keys failed", "entity", e.Name(), "error", err)
		}
	}()
	for i, ptr := range ptrs {
		k, ok := keys.Next()
		if !ok {
			return &DriverError{
				Entity: e.Name(),
				Op:     "read generated key",
				Err:    fmt.Errorf("%w: %d keys for %d entities", ErrKeyCountMismatch, i, len(ptrs)),
			}
		}
		v, err := d.client.dialect.Convert(k, g.Type(), g.Temporal())
		if err != nil {
			return &DriverError{Entity: e.Name(), Op: "read generated key", Err: err}
		}
		if err := g.Set(ptr, v); err != nil {
			return &DriverError{Entity: e.Name(), Op: "read generated key", Err: err}
		}
	}
	return nil
}

// preInsert resets the version and assigns pre-generated keys.
func (d *DAO[T]) preInsert(ctx context.Context, e *schema.Entity, ptr reflect.Value) error {
	if v := e.Version(); v != nil && v.BindType().Numeric() {
		zero, err := field.Convert(int64(0), v.Type(), field.TemporalNone)
		if err != nil {
			return &MappingError{Entity: e.Name(), Column: v.Name(), Err: err}
		}
		if err := v.Set(ptr, zero); err != nil {
			return &MappingError{Entity: e.Name(), Column: v.Name(), Err: err}
		}
	}
	g := e.Generated()
	if g == nil || !g.Strategy().PreInsert() {
		return nil
	}
	if d.client.keys == nil {
		return schema.NewConfigError(e.Name(), g.Property(), fmt.Sprintf("no key generator configured for %s strategy", g.Strategy()), nil)
	}
	s, err := d.client.keys.Next(ctx, g.Generator())
	if err != nil {
		return &DriverError{Entity: e.Name(), Op: "generate key", Err: err}
	}
	v, err := field.ParseString(s, g.Type())
	if err != nil {
		return &MappingError{Entity: e.Name(), Column: g.Name(), Err: err}
	}
	if err := g.Set(ptr, v); err != nil {
		return &MappingError{Entity: e.Name(), Column: g.Name(), Err: err}
	}
	return nil
}
