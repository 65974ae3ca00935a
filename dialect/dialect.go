package dialect

import (
	"context"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL     = "mysql"
	SQLite    = "sqlite3"
	Postgres  = "postgres"
	SQLServer = "sqlserver"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the DAO layer.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Capabilities reports which key-generation mechanisms a database supports.
type Capabilities interface {
	SupportsIdentity() bool
	SupportsSequence() bool
}

// Flags is a static Capabilities value.
type Flags struct {
	Identity bool
	Sequence bool
}

// SupportsIdentity implements Capabilities.
func (f Flags) SupportsIdentity() bool { return f.Identity }

// SupportsSequence implements Capabilities.
func (f Flags) SupportsSequence() bool { return f.Sequence }

// Normalize maps a database/sql driver name to its dialect name,
// e.g. "pgx" to Postgres and "sqlite" to SQLite.
func Normalize(driverName string) string {
	switch name := strings.ToLower(driverName); {
	case name == "pgx" || strings.HasPrefix(name, Postgres):
		return Postgres
	case strings.HasPrefix(name, "sqlite"):
		return SQLite
	case name == "mssql" || strings.HasPrefix(name, SQLServer):
		return SQLServer
	case strings.HasPrefix(name, MySQL):
		return MySQL
	default:
		return name
	}
}
