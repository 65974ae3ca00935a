package schema

import (
	"fmt"
	"reflect"

	"github.com/syssam/sqldao/schema/field"
)

// Column describes one mapped property of an entity. It is immutable once
// the owning Entity is built.
type Column struct {
	owner     reflect.Type
	name      string
	property  string
	typ       reflect.Type
	bind      field.Type
	temporal  field.Temporal
	id        bool
	idOrdinal int
	version   bool
	generated bool
	declared  Strategy
	strategy  Strategy
	generator string
	access    accessor
}

// Name returns the database column name.
func (c *Column) Name() string { return c.name }

// Property returns the Go property name.
func (c *Column) Property() string { return c.property }

// Type returns the Go property type.
func (c *Column) Type() reflect.Type { return c.typ }

// BindType returns the type used when binding values to the driver.
func (c *Column) BindType() field.Type { return c.bind }

// Temporal returns the calendar category of a time-valued column.
func (c *Column) Temporal() field.Temporal { return c.temporal }

// IsID reports whether the column is part of the primary key.
func (c *Column) IsID() bool { return c.id }

// IDOrdinal returns the declared primary-key position (1-based), or 0.
func (c *Column) IDOrdinal() int { return c.idOrdinal }

// IsVersion reports whether the column is the optimistic-lock version.
func (c *Column) IsVersion() bool { return c.version }

// IsGenerated reports whether the column value is generated.
func (c *Column) IsGenerated() bool { return c.generated }

// DeclaredStrategy returns the strategy as declared on the entity.
func (c *Column) DeclaredStrategy() Strategy { return c.declared }

// Strategy returns the strategy resolved against the dialect capabilities.
// It is StrategyNone if resolution failed; see Entity.GenerationErr.
func (c *Column) Strategy() Strategy { return c.strategy }

// Generator returns the key generator name.
func (c *Column) Generator() string { return c.generator }

// Equal reports whether both columns belong to the same entity type and
// share the same name.
func (c *Column) Equal(o *Column) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.owner == o.owner && c.name == o.name
}

// String implements the fmt.Stringer interface.
func (c *Column) String() string {
	return c.name
}

// Get returns the property value of the entity pointed to by ptr.
func (c *Column) Get(ptr reflect.Value) (reflect.Value, error) {
	if err := c.check(ptr); err != nil {
		return reflect.Value{}, err
	}
	return c.access.get(ptr), nil
}

// Value returns the driver value of the property.
func (c *Column) Value(ptr reflect.Value) (any, error) {
	v, err := c.Get(ptr)
	if err != nil {
		return nil, err
	}
	return field.Bind(v, c.temporal), nil
}

// Set assigns v to the property of the entity pointed to by ptr.
func (c *Column) Set(ptr reflect.Value, v reflect.Value) error {
	if err := c.check(ptr); err != nil {
		return err
	}
	if !v.IsValid() {
		v = reflect.Zero(c.typ)
	}
	if !v.Type().AssignableTo(c.typ) {
		if !v.Type().ConvertibleTo(c.typ) {
			return fmt.Errorf("sqldao: cannot assign %s to %s.%s (%s)", v.Type(), c.owner.Name(), c.property, c.typ)
		}
		v = v.Convert(c.typ)
	}
	c.access.set(ptr, v)
	return nil
}

func (c *Column) check(ptr reflect.Value) error {
	if !ptr.IsValid() || ptr.Kind() != reflect.Pointer || ptr.IsNil() || ptr.Type().Elem() != c.owner {
		return fmt.Errorf("sqldao: column %s expects a non-nil *%s", c.name, c.owner.Name())
	}
	return nil
}
