package daogen

import (
	"fmt"
	"go/types"
	"reflect"

	"github.com/syssam/sqldao/schema"
)

// definition mirrors schema.DefinitionOf over type-checked sources.
func definition(st *types.Struct) (schema.Definition, error) {
	var def schema.Definition
	if i := tableField(st); i != nil {
		tag, err := schema.ParseTag(reflect.StructTag(st.Tag(*i)).Get(schema.TagKey))
		if err != nil {
			return def, fmt.Errorf("table tag: %w", err)
		}
		def.Table, def.Schema, def.Access = tag.Name, tag.Schema, tag.Access
	}
	err := walk(st, def.Access, func(f *types.Var, tag schema.Tag) {
		c := schema.ColumnDef{
			Name:      tag.Name,
			Property:  f.Name(),
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
			c.Strategy = schema.StrategyAuto
		}
		def.Columns = append(def.Columns, c)
	})
	return def, err
}

// tableField returns the index of the embedded schema.Table marker.
func tableField(st *types.Struct) *int {
	for i := 0; i < st.NumFields(); i++ {
		if f := st.Field(i); f.Embedded() && isNamed(f.Type(), schemaPkg, "Table") {
			return &i
		}
	}
	return nil
}

func walk(st *types.Struct, access schema.Access, visit func(*types.Var, schema.Tag)) error {
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if isNamed(f.Type(), schemaPkg, "Table") {
			continue
		}
		raw, tagged := reflect.StructTag(st.Tag(i)).Lookup(schema.TagKey)
		tag, err := schema.ParseTag(raw)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name(), err)
		}
		if tag.Skip || tag.Ref || isEntity(f.Type()) {
			continue
		}
		if inner, ok := f.Type().Underlying().(*types.Struct); ok && f.Embedded() && !tagged && !leaf(f.Type()) {
			if err := walk(inner, access, visit); err != nil {
				return err
			}
			continue
		}
		if access == schema.AccessField && !f.Exported() {
			continue
		}
		visit(f, tag)
	}
	return nil
}

// isEntity reports whether t refers to another entity type.
func isEntity(t types.Type) bool {
	for {
		switch u := t.(type) {
		case *types.Pointer:
			t = u.Elem()
			continue
		case *types.Slice:
			t = u.Elem()
			continue
		}
		break
	}
	st, ok := t.Underlying().(*types.Struct)
	return ok && tableField(st) != nil
}

// leaf reports whether a struct type holds a single value: time.Time or a
// type with a Scan method.
func leaf(t types.Type) bool {
	if isNamed(t, "time", "Time") {
		return true
	}
	ms := types.NewMethodSet(types.NewPointer(t))
	for i := 0; i < ms.Len(); i++ {
		if ms.At(i).Obj().Name() == "Scan" {
			return true
		}
	}
	return false
}

func isNamed(t types.Type, pkg, name string) bool {
	n, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := n.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == pkg && obj.Name() == name
}
