package sql

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/syssam/sqldao/schema"
)

// Statement pairs SQL text with its ordered bind arguments.
type Statement struct {
	Query string
	Args  []any
}

// BatchStatement pairs SQL text with the columns whose values fill its
// placeholders, in order. The same statement is bound once per entity.
type BatchStatement struct {
	Query   string
	Columns []*schema.Column
}

// Args pulls the bind arguments from the entity pointed to by ptr.
func (b BatchStatement) Args(ptr reflect.Value) ([]any, error) {
	args := make([]any, 0, len(b.Columns))
	for _, c := range b.Columns {
		v, err := c.Value(ptr)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// Bind returns the single-execution statement for the entity pointed to by ptr.
func (b BatchStatement) Bind(ptr reflect.Value) (Statement, error) {
	args, err := b.Args(ptr)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Query: b.Query, Args: args}, nil
}

// SelectAll returns the query selecting all columns of all rows.
//
//	SELECT ID, NAME FROM S.T
func SelectAll(e *schema.Entity) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, c := range e.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name())
	}
	b.WriteString(" FROM ")
	b.WriteString(e.QualifiedTable())
	return b.String()
}

// SelectByID returns the query selecting one row by its id columns, which
// must be given in primary-key order.
//
//	SELECT ID, NAME FROM S.T WHERE ID = ?
func SelectByID(e *schema.Entity, ids []*schema.Column) BatchStatement {
	var b strings.Builder
	b.WriteString(SelectAll(e))
	where(&b, ids, nil)
	return BatchStatement{Query: b.String(), Columns: ids}
}

// Update returns the optimistic update statement. Columns are bound in
// order: SET columns in declaration order, the id columns, then the
// version column. The version is incremented by the database.
//
//	UPDATE S.T SET NAME = ?, VERSION = VERSION + 1 WHERE ID = ? AND VERSION = ?
func Update(e *schema.Entity, ids []*schema.Column) (BatchStatement, error) {
	var (
		b       strings.Builder
		columns []*schema.Column
		version = e.Version()
	)
	b.WriteString("UPDATE ")
	b.WriteString(e.QualifiedTable())
	b.WriteString(" SET ")
	for _, c := range e.Columns() {
		if c.IsID() || c.IsVersion() {
			continue
		}
		if len(columns) > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name())
		b.WriteString(" = ?")
		columns = append(columns, c)
	}
	if version != nil {
		if len(columns) > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s + 1", version.Name(), version.Name())
	} else if len(columns) == 0 {
		return BatchStatement{}, fmt.Errorf("sql: entity %s has no updatable columns", e.Name())
	}
	where(&b, ids, version)
	columns = append(columns, ids...)
	if version != nil {
		columns = append(columns, version)
	}
	return BatchStatement{Query: b.String(), Columns: columns}, nil
}

// Delete returns the delete statement. Only id columns are bound.
//
//	DELETE FROM S.T WHERE ID = ?
func Delete(e *schema.Entity, ids []*schema.Column) BatchStatement {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(e.QualifiedTable())
	where(&b, ids, nil)
	return BatchStatement{Query: b.String(), Columns: ids}
}

// Insert returns the insert statement binding every column, including
// the generated one.
//
//	INSERT INTO S.T (ID, NAME) VALUES (?, ?)
func Insert(e *schema.Entity) BatchStatement {
	return insert(e, e.Columns())
}

// InsertIdentity returns the insert statement omitting the generated
// column, whose value is assigned by the database.
//
//	INSERT INTO S.T (NAME) VALUES (?)
func InsertIdentity(e *schema.Entity) BatchStatement {
	g := e.Generated()
	if g == nil {
		return Insert(e)
	}
	columns := make([]*schema.Column, 0, len(e.Columns())-1)
	for _, c := range e.Columns() {
		if !c.Equal(g) {
			columns = append(columns, c)
		}
	}
	return insert(e, columns)
}

func insert(e *schema.Entity, columns []*schema.Column) BatchStatement {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(e.QualifiedTable())
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name())
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('?')
	}
	b.WriteByte(')')
	return BatchStatement{Query: b.String(), Columns: columns}
}

func where(b *strings.Builder, ids []*schema.Column, version *schema.Column) {
	for i, c := range ids {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(c.Name())
		b.WriteString(" = ?")
	}
	if version != nil {
		if len(ids) == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(version.Name())
		b.WriteString(" = ?")
	}
}

var (
	// trailingOrderBy matches a final ORDER BY clause outside parentheses.
	trailingOrderBy = regexp.MustCompile(`(?is)\s+ORDER\s+BY\s+[^()]*$`)
	// rowLimit matches the row-limiting keywords that may follow ORDER BY.
	rowLimit = regexp.MustCompile(`(?i)\b(LIMIT|OFFSET|FETCH)\b`)
)

// Count wraps a query into a query counting its rows. A trailing
// ORDER BY is dropped unless a row limit follows it.
//
//	SELECT COUNT(*) FROM (SELECT ID FROM T) q
func Count(query string) string {
	query = strings.TrimRight(strings.TrimSpace(query), ";")
	if loc := trailingOrderBy.FindStringIndex(query); loc != nil && !rowLimit.MatchString(query[loc[0]:]) {
		query = query[:loc[0]]
	}
	return "SELECT COUNT(*) FROM (" + query + ") q"
}

// HasOrderBy reports whether the query ends with an ORDER BY clause.
func HasOrderBy(query string) bool {
	return trailingOrderBy.MatchString(query)
}

// OrderBy appends an ORDER BY clause on the given columns.
func OrderBy(query string, columns []*schema.Column) string {
	if len(columns) == 0 {
		return query
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name()
	}
	return query + " ORDER BY " + strings.Join(names, ", ")
}
