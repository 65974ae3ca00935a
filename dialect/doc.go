// Package dialect defines the contracts between the DAO layer and a database.
//
// # Supported Dialects
//
//	dialect.Postgres  = "postgres"
//	dialect.MySQL     = "mysql"
//	dialect.SQLite    = "sqlite3"
//	dialect.SQLServer = "sqlserver"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Capabilities
//
// Key-generation strategies are validated against a Capabilities value,
// which reports identity-column and sequence support:
//
//	caps := dialect.Flags{Identity: true}
//	caps.SupportsSequence() // false
//
// The dialect/sql package provides the database/sql based implementation,
// including per-dialect pagination, RETURNING support and primary-key
// inspection.
package dialect
