// Package keygen provides key generators for entities whose generated
// column uses the sequence or table strategy.
//
// A Generator returns the next key of a named generator as a string; the
// DAO layer converts it to the property type of the generated column.
//
//	gen := keygen.NewSequence(drv)
//	client := sqldao.NewClient(drv, sqldao.WithKeyGenerator(gen))
package keygen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/syssam/sqldao/dialect"
	"github.com/syssam/sqldao/dialect/sql"
)

// ErrNoGenerator is returned by a Generator that does not know a name.
var ErrNoGenerator = errors.New("keygen: unknown generator")

// Generator produces the next key for a named generator.
type Generator interface {
	Next(ctx context.Context, name string) (string, error)
}

// Func is an adapter to allow the use of ordinary functions as Generator.
type Func func(ctx context.Context, name string) (string, error)

// Next calls f(ctx, name).
func (f Func) Next(ctx context.Context, name string) (string, error) { return f(ctx, name) }

// Memory is an in-process generator keeping one counter per name.
// Counters start at 1. It is safe for concurrent use.
type Memory struct {
	counters sync.Map // name -> *atomic.Int64
}

// NewMemory returns an empty in-memory generator.
func NewMemory() *Memory { return &Memory{} }

// Next implements Generator.
func (m *Memory) Next(_ context.Context, name string) (string, error) {
	c, _ := m.counters.LoadOrStore(name, new(atomic.Int64))
	return strconv.FormatInt(c.(*atomic.Int64).Add(1), 10), nil
}

// Reset sets the counter of name so that the next key is start.
func (m *Memory) Reset(name string, start int64) {
	c, _ := m.counters.LoadOrStore(name, new(atomic.Int64))
	c.(*atomic.Int64).Store(start - 1)
}

// UUID generates time-ordered version 7 UUIDs regardless of the name.
type UUID struct{}

// Next implements Generator.
func (UUID) Next(context.Context, string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("keygen: uuid: %w", err)
	}
	return id.String(), nil
}

// Sequence reads keys from database sequences. The generator name is the
// sequence name.
type Sequence struct {
	drv     dialect.ExecQuerier
	dialect sql.Dialect
}

// NewSequence returns a generator reading sequences through drv.
func NewSequence(drv interface {
	dialect.ExecQuerier
	Dialect() string
}) (*Sequence, error) {
	d, err := sql.DialectFor(drv.Dialect())
	if err != nil {
		return nil, err
	}
	if !d.SupportsSequence() {
		return nil, fmt.Errorf("keygen: dialect %s does not support sequences", d.Name())
	}
	return &Sequence{drv: drv, dialect: d}, nil
}

// Next implements Generator.
func (s *Sequence) Next(ctx context.Context, name string) (string, error) {
	query, args, err := s.dialect.NextValQuery(name)
	if err != nil {
		return "", err
	}
	v, err := scanOne(ctx, s.drv, query, args)
	if err != nil {
		return "", fmt.Errorf("keygen: sequence %s: %w", name, err)
	}
	return v, nil
}

// DefaultTable is the counter table used by Table generators.
const DefaultTable = "DAO_SEQUENCES"

// Table keeps counters in a database table with the columns NAME and
// NEXT_VALUE:
//
//	CREATE TABLE DAO_SEQUENCES (NAME VARCHAR(255) PRIMARY KEY, NEXT_VALUE BIGINT NOT NULL)
//
// Each key is allocated in its own transaction.
type Table struct {
	drv   dialect.Driver
	table string
}

// TableOption configures a Table generator.
type TableOption func(*Table)

// WithTableName sets the counter table name.
func WithTableName(name string) TableOption {
	return func(t *Table) { t.table = name }
}

// NewTable returns a generator allocating keys from a counter table.
func NewTable(drv dialect.Driver, opts ...TableOption) *Table {
	t := &Table{drv: drv, table: DefaultTable}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Next implements Generator.
func (t *Table) Next(ctx context.Context, name string) (_ string, rerr error) {
	tx, err := t.drv.Tx(ctx)
	if err != nil {
		return "", fmt.Errorf("keygen: table %s: %w", name, err)
	}
	defer func() {
		if rerr != nil {
			rerr = errors.Join(rerr, tx.Rollback())
		}
	}()
	var res sql.Result
	if err := tx.Exec(ctx, "UPDATE "+t.table+" SET NEXT_VALUE = NEXT_VALUE + 1 WHERE NAME = ?", []any{name}, &res); err != nil {
		return "", fmt.Errorf("keygen: table %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("keygen: table %s: %w", name, err)
	}
	if n == 0 {
		if err := tx.Exec(ctx, "INSERT INTO "+t.table+" (NAME, NEXT_VALUE) VALUES (?, 1)", []any{name}, nil); err != nil {
			return "", fmt.Errorf("keygen: table %s: %w", name, err)
		}
	}
	v, err := scanOne(ctx, tx, "SELECT NEXT_VALUE FROM "+t.table+" WHERE NAME = ?", []any{name})
	if err != nil {
		return "", fmt.Errorf("keygen: table %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("keygen: table %s: commit: %w", name, err)
	}
	return v, nil
}

func scanOne(ctx context.Context, q dialect.ExecQuerier, query string, args []any) (_ string, rerr error) {
	rows := &sql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return "", err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no value returned")
	}
	var v int64
	if err := rows.Scan(&v); err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}

// Names is a Generator that dispatches by generator name. Unknown names
// fall back to Default, or fail with ErrNoGenerator when it is nil.
type Names struct {
	Generators map[string]Generator
	Default    Generator
}

// Next implements Generator.
func (n Names) Next(ctx context.Context, name string) (string, error) {
	if g, ok := n.Generators[name]; ok {
		return g.Next(ctx, name)
	}
	if n.Default != nil {
		return n.Default.Next(ctx, name)
	}
	return "", fmt.Errorf("%w %q", ErrNoGenerator, name)
}

var (
	_ Generator = Func(nil)
	_ Generator = (*Memory)(nil)
	_ Generator = UUID{}
	_ Generator = (*Sequence)(nil)
	_ Generator = (*Table)(nil)
	_ Generator = Names{}
)
