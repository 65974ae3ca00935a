package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
)

// Access selects how property values are read and written.
type Access uint8

const (
	// AccessField reads and writes exported struct fields directly.
	AccessField Access = iota
	// AccessProperty goes through accessor methods: X() or GetX() to read
	// and SetX(v) to write. Tags stay on the backing field.
	AccessProperty
)

// String implements the fmt.Stringer interface.
func (a Access) String() string {
	if a == AccessProperty {
		return "property"
	}
	return "field"
}

// ConstName returns the constant name of the access mode, used by code generators.
func (a Access) ConstName() string {
	if a == AccessProperty {
		return "AccessProperty"
	}
	return "AccessField"
}

// ParseAccess parses an access mode name.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "field":
		return AccessField, nil
	case "property", "accessor":
		return AccessProperty, nil
	default:
		return AccessField, fmt.Errorf("unknown access mode %q", s)
	}
}

// accessor reads and writes one property of an entity. The entity is
// always passed as a non-nil pointer.
type accessor interface {
	get(ptr reflect.Value) reflect.Value
	set(ptr reflect.Value, v reflect.Value)
}

type fieldAccessor struct {
	index []int
}

func (a fieldAccessor) get(ptr reflect.Value) reflect.Value {
	return ptr.Elem().FieldByIndex(a.index)
}

func (a fieldAccessor) set(ptr reflect.Value, v reflect.Value) {
	ptr.Elem().FieldByIndex(a.index).Set(v)
}

type propertyAccessor struct {
	getter, setter int
}

func (a propertyAccessor) get(ptr reflect.Value) reflect.Value {
	return ptr.Method(a.getter).Call(nil)[0]
}

func (a propertyAccessor) set(ptr reflect.Value, v reflect.Value) {
	ptr.Method(a.setter).Call([]reflect.Value{v})
}

// fieldAccess resolves an exported, possibly promoted, struct field.
func fieldAccess(t reflect.Type, property string) (accessor, reflect.Type, error) {
	f, ok := t.FieldByName(property)
	if !ok {
		return nil, nil, fmt.Errorf("no field %q", property)
	}
	if !f.IsExported() {
		return nil, nil, fmt.Errorf("field %q is not exported", property)
	}
	for i := 1; i < len(f.Index); i++ {
		if t.FieldByIndex(f.Index[:i]).Type.Kind() == reflect.Pointer {
			return nil, nil, fmt.Errorf("field %q is promoted through an embedded pointer", property)
		}
	}
	return fieldAccessor{index: f.Index}, f.Type, nil
}

// propertyAccess resolves the accessor pair of a property on *t.
func propertyAccess(t reflect.Type, property string) (accessor, reflect.Type, error) {
	pt := reflect.PointerTo(t)
	for _, name := range accessorNames(property) {
		getter, ok := pt.MethodByName(name)
		if !ok {
			getter, ok = pt.MethodByName("Get" + name)
		}
		if !ok || getter.Type.NumIn() != 1 || getter.Type.NumOut() != 1 {
			continue
		}
		typ := getter.Type.Out(0)
		setter, ok := pt.MethodByName("Set" + name)
		if !ok || setter.Type.NumIn() != 2 || setter.Type.In(1) != typ {
			return nil, nil, fmt.Errorf("no setter Set%s(%s) for property %q", name, typ, property)
		}
		return propertyAccessor{getter: getter.Index, setter: setter.Index}, typ, nil
	}
	return nil, nil, fmt.Errorf("no getter for property %q", property)
}

// accessorNames returns the candidate method suffixes of a property,
// e.g. Id and ID for "id".
func accessorNames(property string) []string {
	names := []string{strcase.ToCamel(property)}
	if upper := strings.ToUpper(property[:1]) + property[1:]; upper != names[0] {
		names = append(names, upper)
	}
	if all := strings.ToUpper(property); all != names[0] {
		names = append(names, all)
	}
	return names
}
