package schema

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/sqldao/schema/field"
)

// Definition is the static mapping description of an entity type. It is
// produced either by reading struct tags or by generated code (see
// Describer), and turned into an Entity by a Registry.
type Definition struct {
	Table   string
	Schema  string
	Access  Access
	Columns []ColumnDef
}

// ColumnDef describes one mapped property. An empty Name is derived from
// the property by the registry Naming. A Strategy other than StrategyNone
// marks the column as generated.
type ColumnDef struct {
	Name      string
	Property  string
	ID        bool
	IDOrdinal int
	Version   bool
	Strategy  Strategy
	Generator string
	Temporal  field.Temporal
}

// Describer is implemented by entity types carrying a generated static
// Definition. The registry uses it instead of reading struct tags.
type Describer interface {
	DescribeEntity() Definition
}

var (
	describerType = reflect.TypeOf((*Describer)(nil)).Elem()
	scannerIface  = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// describe returns the static definition of t, if t implements Describer.
func describe(t reflect.Type) (Definition, bool) {
	switch {
	case t.Implements(describerType):
		return reflect.Zero(t).Interface().(Describer).DescribeEntity(), true
	case reflect.PointerTo(t).Implements(describerType):
		return reflect.New(t).Interface().(Describer).DescribeEntity(), true
	}
	return Definition{}, false
}

// DefinitionOf reads the Definition of a struct type from its `db` tags.
func DefinitionOf(t reflect.Type) (Definition, error) {
	var def Definition
	if t.Kind() != reflect.Struct {
		return def, fmt.Errorf("entity type %s is not a struct", t)
	}
	if f, ok := findTable(t); ok {
		tag, err := ParseTag(f.Tag.Get(TagKey))
		if err != nil {
			return def, fmt.Errorf("table tag: %w", err)
		}
		def.Table, def.Schema, def.Access = tag.Name, tag.Schema, tag.Access
	}
	err := walkFields(t, def.Access, func(f reflect.StructField, tag Tag) {
		c := ColumnDef{
			Name:      tag.Name,
			Property:  f.Name,
			ID:        tag.ID,
			IDOrdinal: tag.IDOrdinal,
			Version:   tag.Version,
			Generator: tag.Generator,
			Temporal:  tag.Temporal,
		}
		switch {
		case tag.Generated:
			c.Strategy = tag.Strategy
		case tag.Generator != "":
			c.Strategy = StrategyAuto
		}
		def.Columns = append(def.Columns, c)
	})
	return def, err
}

func findTable(t reflect.Type) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.Anonymous && f.Type == tableType {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// walkFields visits the mapped fields of t, flattening embedded structs.
func walkFields(t reflect.Type, access Access, visit func(reflect.StructField, Tag)) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type == tableType {
			continue
		}
		raw, tagged := f.Tag.Lookup(TagKey)
		tag, err := ParseTag(raw)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		if tag.Skip || tag.Ref || isEntity(f.Type) {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !tagged && !leafStruct(f.Type) {
			if err := walkFields(f.Type, access, visit); err != nil {
				return err
			}
			continue
		}
		if access == AccessField && !f.IsExported() {
			continue
		}
		visit(f, tag)
	}
	return nil
}

// isEntity reports whether t refers to another entity, through pointers
// and slices. Such properties are relationships and are not mapped.
func isEntity(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	_, ok := findTable(t)
	return ok
}

// leafStruct reports whether a struct type is a single value, such as
// time.Time or a sql.Scanner, rather than a group of properties.
func leafStruct(t reflect.Type) bool {
	return field.TypeOf(t) != field.TypeOther || reflect.PointerTo(t).Implements(scannerIface)
}

// build turns a definition into an Entity, resolving accessors, names and
// the generation strategy.
func (r *Registry) build(t reflect.Type, def Definition) (*Entity, error) {
	e := &Entity{
		typ:    t,
		table:  def.Table,
		schema: def.Schema,
		access: def.Access,
		byName: make(map[string]*Column, len(def.Columns)),
	}
	if e.table == "" {
		e.table = r.naming.TableName(t.Name())
	}
	for _, cd := range def.Columns {
		c, err := r.column(e, cd)
		if err != nil {
			return nil, err
		}
		key := strings.ToUpper(c.name)
		if _, ok := e.byName[key]; ok {
			return nil, NewConfigError(t.Name(), c.property, fmt.Sprintf("duplicate column %q", c.name), nil)
		}
		e.byName[key] = c
		e.columns = append(e.columns, c)
		if c.id {
			e.ids = append(e.ids, c)
		}
		if c.version {
			if e.version != nil {
				return nil, NewConfigError(t.Name(), c.property, fmt.Sprintf("duplicate version column (already %s)", e.version.property), nil)
			}
			e.version = c
		}
		if c.generated {
			if e.generated != nil {
				return nil, NewConfigError(t.Name(), c.property, fmt.Sprintf("duplicate generated column (already %s)", e.generated.property), nil)
			}
			e.generated = c
		}
	}
	if len(e.columns) == 0 {
		return nil, NewConfigError(t.Name(), "", "no mapped columns", nil)
	}
	if g := e.generated; g != nil {
		s, err := ResolveStrategy(g.declared, r.caps)
		if err != nil {
			e.genErr = NewConfigError(t.Name(), g.property, fmt.Sprintf("generation strategy %s", g.declared), err)
		}
		g.strategy = s
		if g.generator == "" {
			g.generator = DefaultGeneratorName(e.table, g.name)
		}
	}
	if ids, ok := e.staticOrder(); ok && len(ids) > 0 {
		e.order.Store(&keyOrder{columns: ids})
	}
	return e, nil
}

func (r *Registry) column(e *Entity, cd ColumnDef) (*Column, error) {
	var (
		acc accessor
		typ reflect.Type
		err error
	)
	switch e.access {
	case AccessProperty:
		acc, typ, err = propertyAccess(e.typ, cd.Property)
	default:
		acc, typ, err = fieldAccess(e.typ, cd.Property)
	}
	if err != nil {
		return nil, NewConfigError(e.typ.Name(), cd.Property, "", err)
	}
	c := &Column{
		owner:     e.typ,
		name:      cd.Name,
		property:  cd.Property,
		typ:       typ,
		bind:      field.TypeOf(typ),
		temporal:  cd.Temporal,
		id:        cd.ID || cd.IDOrdinal > 0,
		idOrdinal: cd.IDOrdinal,
		version:   cd.Version,
		generated: cd.Strategy != StrategyNone,
		declared:  cd.Strategy,
		generator: cd.Generator,
		access:    acc,
	}
	if c.name == "" {
		c.name = r.naming.ColumnName(cd.Property)
	}
	if c.bind == field.TypeTime && c.temporal == field.TemporalNone {
		c.temporal = field.TemporalTimestamp
	}
	if c.temporal != field.TemporalNone && c.bind != field.TypeTime {
		return nil, NewConfigError(e.typ.Name(), cd.Property, fmt.Sprintf("temporal category %s on non-time property", c.temporal), nil)
	}
	if c.version && c.id {
		return nil, NewConfigError(e.typ.Name(), cd.Property, "a column cannot be both id and version", nil)
	}
	return c, nil
}
