package sql

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/syssam/sqldao/dialect"
	"github.com/syssam/sqldao/schema/field"
)

// Dialect encapsulates the vendor-specific behavior the DAO layer relies on.
type Dialect interface {
	dialect.Capabilities
	// Name returns the dialect name, e.g. dialect.Postgres.
	Name() string
	// Convert coerces a value read from the driver into a property type.
	Convert(src any, target reflect.Type, temporal field.Temporal) (reflect.Value, error)
	// Paginate restricts a query to a window of rows.
	Paginate(query string, offset, limit int) (string, []any)
	// Returning rewrites an insert statement to return the given column.
	// It reports false if generated keys are read with LastInsertId instead.
	Returning(query, column string) (string, bool)
	// PrimaryKeyQuery returns the query listing the primary-key columns of a
	// table in ordinal order.
	PrimaryKeyQuery(schema, table string) (string, []any)
	// NextValQuery returns the query reading the next value of a sequence.
	NextValQuery(sequence string) (string, []any, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]Dialect)
)

// RegisterDialect makes a dialect available by name. Registering the same
// name twice replaces the previous dialect.
func RegisterDialect(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[d.Name()] = d
}

// DialectFor returns the dialect registered for a dialect or driver name.
func DialectFor(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	if d, ok := dialects[dialect.Normalize(name)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("dialect/sql: unsupported dialect %q", name)
}

func init() {
	RegisterDialect(Postgres{})
	RegisterDialect(MySQL{})
	RegisterDialect(SQLite{})
	RegisterDialect(SQLServer{})
}

// base holds the behavior shared by the ANSI-leaning dialects.
type base struct{}

// Convert implements Dialect.
func (base) Convert(src any, target reflect.Type, temporal field.Temporal) (reflect.Value, error) {
	return field.Convert(src, target, temporal)
}

// Paginate implements Dialect.
func (base) Paginate(query string, offset, limit int) (string, []any) {
	return query + " LIMIT ? OFFSET ?", []any{limit, offset}
}

// Returning implements Dialect.
func (base) Returning(query, column string) (string, bool) {
	return query + " RETURNING " + column, true
}

// NextValQuery implements Dialect.
func (base) NextValQuery(sequence string) (string, []any, error) {
	return "", nil, fmt.Errorf("dialect/sql: sequences are not supported")
}

// informationSchemaKeys lists primary-key columns from information_schema.
// The %s verb receives the dialect's current-schema expression.
const informationSchemaKeys = `SELECT kcu.column_name FROM information_schema.table_constraints tc ` +
	`JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name ` +
	`AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name ` +
	`WHERE tc.constraint_type = 'PRIMARY KEY' AND LOWER(tc.table_name) = LOWER(?) ` +
	`AND tc.table_schema = COALESCE(NULLIF(?, ''), %s) ORDER BY kcu.ordinal_position`

// Postgres is the PostgreSQL dialect. It supports identity columns and sequences.
type Postgres struct{ base }

// Name implements Dialect.
func (Postgres) Name() string { return dialect.Postgres }

// SupportsIdentity implements dialect.Capabilities.
func (Postgres) SupportsIdentity() bool { return true }

// SupportsSequence implements dialect.Capabilities.
func (Postgres) SupportsSequence() bool { return true }

// PrimaryKeyQuery implements Dialect.
func (Postgres) PrimaryKeyQuery(schema, table string) (string, []any) {
	return fmt.Sprintf(informationSchemaKeys, "current_schema()"), []any{table, schema}
}

// NextValQuery implements Dialect.
func (Postgres) NextValQuery(sequence string) (string, []any, error) {
	return "SELECT nextval(?)", []any{sequence}, nil
}

// MySQL is the MySQL/MariaDB dialect. Generated keys are read with LastInsertId.
type MySQL struct{ base }

// Name implements Dialect.
func (MySQL) Name() string { return dialect.MySQL }

// SupportsIdentity implements dialect.Capabilities.
func (MySQL) SupportsIdentity() bool { return true }

// SupportsSequence implements dialect.Capabilities.
func (MySQL) SupportsSequence() bool { return false }

// Returning implements Dialect.
func (MySQL) Returning(string, string) (string, bool) { return "", false }

// PrimaryKeyQuery implements Dialect.
func (MySQL) PrimaryKeyQuery(schema, table string) (string, []any) {
	return fmt.Sprintf(informationSchemaKeys, "DATABASE()"), []any{table, schema}
}

// Convert implements Dialect. BIT(1) columns arrive as a single raw byte.
func (MySQL) Convert(src any, target reflect.Type, temporal field.Temporal) (reflect.Value, error) {
	if b, ok := src.([]byte); ok && len(b) == 1 && b[0] <= 1 && target.Kind() == reflect.Bool {
		return reflect.ValueOf(b[0] == 1).Convert(target), nil
	}
	return field.Convert(src, target, temporal)
}

// SQLite is the SQLite dialect. Generated keys are read with LastInsertId.
type SQLite struct{ base }

// Name implements Dialect.
func (SQLite) Name() string { return dialect.SQLite }

// SupportsIdentity implements dialect.Capabilities.
func (SQLite) SupportsIdentity() bool { return true }

// SupportsSequence implements dialect.Capabilities.
func (SQLite) SupportsSequence() bool { return false }

// Returning implements Dialect.
func (SQLite) Returning(string, string) (string, bool) { return "", false }

// PrimaryKeyQuery implements Dialect.
func (SQLite) PrimaryKeyQuery(schema, table string) (string, []any) {
	if schema == "" {
		return "SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", []any{table}
	}
	return "SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk", []any{table, schema}
}

// SQLServer is the Microsoft SQL Server dialect.
type SQLServer struct{ base }

// Name implements Dialect.
func (SQLServer) Name() string { return dialect.SQLServer }

// SupportsIdentity implements dialect.Capabilities.
func (SQLServer) SupportsIdentity() bool { return true }

// SupportsSequence implements dialect.Capabilities.
func (SQLServer) SupportsSequence() bool { return true }

// Paginate implements Dialect. OFFSET/FETCH requires an ORDER BY clause.
func (SQLServer) Paginate(query string, offset, limit int) (string, []any) {
	if !HasOrderBy(query) {
		query += " ORDER BY (SELECT NULL)"
	}
	return query + " OFFSET ? ROWS FETCH NEXT ? ROWS ONLY", []any{offset, limit}
}

// Returning implements Dialect.
func (SQLServer) Returning(query, column string) (string, bool) {
	i := strings.Index(strings.ToUpper(query), ") VALUES (")
	if i < 0 {
		return "", false
	}
	return query[:i+1] + " OUTPUT INSERTED." + column + query[i+1:], true
}

// PrimaryKeyQuery implements Dialect.
func (SQLServer) PrimaryKeyQuery(schema, table string) (string, []any) {
	return fmt.Sprintf(informationSchemaKeys, "SCHEMA_NAME()"), []any{table, schema}
}

// NextValQuery implements Dialect.
func (SQLServer) NextValQuery(sequence string) (string, []any, error) {
	if !isValidIdentifier(sequence) {
		return "", nil, fmt.Errorf("dialect/sql: invalid sequence name %q", sequence)
	}
	return "SELECT NEXT VALUE FOR " + sequence, nil, nil
}

// Rebind rewrites ? placeholders into the bind style of the dialect,
// e.g. $1 for Postgres and @p1 for SQL Server.
func Rebind(name, query string) string {
	return sqlx.Rebind(sqlx.BindType(dialect.Normalize(name)), query)
}
