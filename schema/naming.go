package schema

import (
	"github.com/go-openapi/inflect"
	"github.com/iancoleman/strcase"
)

// Naming derives database identifiers for entities and properties that do
// not declare them.
type Naming interface {
	TableName(typeName string) string
	ColumnName(property string) string
}

// DefaultNaming converts names to their upper-case underscore form,
// e.g. UserAccount to USER_ACCOUNT. Plural pluralizes table names first.
type DefaultNaming struct {
	Plural bool
}

// TableName implements Naming.
func (n DefaultNaming) TableName(typeName string) string {
	if n.Plural {
		typeName = inflect.Pluralize(typeName)
	}
	return strcase.ToScreamingSnake(typeName)
}

// ColumnName implements Naming.
func (DefaultNaming) ColumnName(property string) string {
	return strcase.ToScreamingSnake(property)
}
