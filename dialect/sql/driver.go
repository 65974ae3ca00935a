package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"

	"github.com/syssam/sqldao/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn) *Driver {
	return &Driver{dialect: dialect, Conn: c}
}

// Open wraps the database/sql.Open method and returns a Driver. The
// driver name may be a registered database/sql driver such as "pgx" or
// "sqlite"; the dialect is derived from it.
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(driverName, db), nil
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(driverName string, db *sql.DB) *Driver {
	name := dialect.Normalize(driverName)
	return NewDriver(name, Conn{db, name})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Driver method.
func (d Driver) Dialect() string {
	return d.dialect
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// preparer is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier. Queries are
// written with ? placeholders and rebound to the dialect bind style.
type Conn struct {
	ExecQuerier
	dialect string
}

// Dialect returns the dialect name of the connection.
func (c Conn) Dialect() string { return c.dialect }

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	query = Rebind(c.dialect, query)
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, Rebind(c.dialect, query), argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

// ExecBatch executes the statement once per argument list and returns the
// affected row count of each execution. The statement is prepared once
// when the underlying connection supports it.
func (c Conn) ExecBatch(ctx context.Context, query string, argv [][]any) (counts []int64, rerr error) {
	if len(argv) == 0 {
		return nil, nil
	}
	query = Rebind(c.dialect, query)
	exec := func(args []any) (sql.Result, error) { return c.ExecContext(ctx, query, args...) }
	if p, ok := c.ExecQuerier.(preparer); ok {
		stmt, err := p.PrepareContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: prepare: %w", err)
		}
		defer func() { rerr = errors.Join(rerr, stmt.Close()) }()
		exec = func(args []any) (sql.Result, error) { return stmt.ExecContext(ctx, args...) }
	}
	counts = make([]int64, len(argv))
	for i, args := range argv {
		res, err := exec(args)
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: batch exec %d: %w", i, err)
		}
		if counts[i], err = res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("dialect/sql: batch rows affected %d: %w", i, err)
		}
	}
	return counts, nil
}

// ExecReturning executes an insert statement once per argument list and
// collects the generated value of column for each row, in order. Dialects
// with RETURNING (or OUTPUT) read the value from the statement; others use
// LastInsertId.
func (c Conn) ExecReturning(ctx context.Context, query, column string, argv [][]any) (*GeneratedKeys, error) {
	d, err := DialectFor(c.dialect)
	if err != nil {
		return nil, err
	}
	keys := &GeneratedKeys{}
	q, returning := d.Returning(query, column)
	if !returning {
		ids := make([]any, 0, len(argv))
		query = Rebind(c.dialect, query)
		for i, args := range argv {
			res, err := c.ExecContext(ctx, query, args...)
			if err != nil {
				return nil, fmt.Errorf("dialect/sql: exec %d: %w", i, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("dialect/sql: read generated key %d: %w", i, err)
			}
			ids = append(ids, id)
		}
		keys.values = ids
		return keys, nil
	}
	q = Rebind(c.dialect, q)
	for i, args := range argv {
		rows, err := c.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: exec %d: %w", i, err)
		}
		for rows.Next() {
			var v any
			if err := rows.Scan(&v); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("dialect/sql: read generated key %d: %w", i, err)
			}
			keys.values = append(keys.values, v)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("dialect/sql: read generated key %d: %w", i, err)
		}
		keys.closeErr = errors.Join(keys.closeErr, rows.Close())
	}
	return keys, nil
}

// PrimaryKeys returns the primary-key columns of a table in ordinal order.
// It implements schema.KeyInspector.
func (c Conn) PrimaryKeys(ctx context.Context, schema, table string) (names []string, rerr error) {
	d, err := DialectFor(c.dialect)
	if err != nil {
		return nil, err
	}
	query, args := d.PrimaryKeyQuery(schema, table)
	rows := &Rows{}
	if err := c.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("dialect/sql: no primary key reported for table %q", table)
	}
	return names, nil
}

// GeneratedKeys holds the keys produced by ExecReturning, one per
// inserted row.
type GeneratedKeys struct {
	values   []any
	pos      int
	closeErr error
}

// Len returns the number of keys.
func (k *GeneratedKeys) Len() int { return len(k.values) }

// Next returns the next key. It reports false when all keys were consumed.
func (k *GeneratedKeys) Next() (any, bool) {
	if k.pos >= len(k.values) {
		return nil, false
	}
	v := k.values[k.pos]
	k.pos++
	return v, true
}

// Close releases the keys and reports errors from closing the underlying
// result sets.
func (k *GeneratedKeys) Close() error {
	k.values = nil
	return k.closeErr
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*Tx)(nil)
)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}
