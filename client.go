package sqldao

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/syssam/sqldao/dialect"
	"github.com/syssam/sqldao/dialect/sql"
	"github.com/syssam/sqldao/keygen"
	"github.com/syssam/sqldao/querystore"
	"github.com/syssam/sqldao/schema"
)

// DefaultPageSize is the page size used when a page is requested without
// an explicit size.
const DefaultPageSize = 25

// Executor is the statement layer the DAO runs on. It is implemented by
// *sql.Driver, *sql.Tx and their Stats and Debug wrappers.
type Executor interface {
	dialect.ExecQuerier
	schema.KeyInspector
	// Dialect returns the dialect name.
	Dialect() string
	// ExecBatch executes a statement once per argument list and returns
	// the affected row counts.
	ExecBatch(ctx context.Context, query string, argv [][]any) ([]int64, error)
	// ExecReturning executes an insert once per argument list and returns
	// the generated values of column.
	ExecReturning(ctx context.Context, query, column string, argv [][]any) (*sql.GeneratedKeys, error)
}

var (
	_ Executor = (*sql.Driver)(nil)
	_ Executor = (*sql.Tx)(nil)
	_ Executor = (*sql.StatsDriver)(nil)
	_ Executor = (*sql.StatsTx)(nil)
	_ Executor = (*sql.DebugDriver)(nil)
)

// Client holds the collaborators shared by all DAOs: the executor, the
// dialect, the entity metadata registry, the key generator and the named
// query repository. A Client is safe for concurrent use; the DAOs it
// creates are not.
//
// Each Client builds its own metadata registry unless one is passed with
// WithRegistry. Clients of the same dialect should share a registry so
// that entity metadata, including looked-up key orderings, is built once
// per process:
//
//	primary, _ := sqldao.NewClient(drv)
//	replica, _ := sqldao.NewClient(replicaDrv, sqldao.WithRegistry(primary.Registry()))
type Client struct {
	exec     Executor
	dialect  sql.Dialect
	registry *schema.Registry
	keys     keygen.Generator
	queries  querystore.Repository
	log      *slog.Logger
	pageSize int
	regOpts  []schema.RegistryOption
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Statements are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithKeyGenerator sets the generator used by the sequence and table
// generation strategies.
func WithKeyGenerator(g keygen.Generator) Option {
	return func(c *Client) {
		c.keys = g
	}
}

// WithQueries sets the repository resolving named queries.
func WithQueries(r querystore.Repository) Option {
	return func(c *Client) {
		c.queries = r
	}
}

// WithPageSize sets the page size used when none is given.
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// WithRegistry shares an existing metadata registry, typically the
// Registry of another Client. Its capabilities should match the dialect
// of the executor. WithRegistryOptions is ignored when it is set.
func WithRegistry(r *schema.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithRegistryOptions configures the registry created by NewClient.
func WithRegistryOptions(opts ...schema.RegistryOption) Option {
	return func(c *Client) {
		c.regOpts = append(c.regOpts, opts...)
	}
}

// NewClient returns a Client running statements on exec.
//
//	drv, err := sql.Open("pgx", dsn)
//	client, err := sqldao.NewClient(drv, sqldao.WithKeyGenerator(keygen.NewTable(drv)))
//	accounts := sqldao.For[Account](client)
func NewClient(exec Executor, opts ...Option) (*Client, error) {
	d, err := sql.DialectFor(exec.Dialect())
	if err != nil {
		return nil, err
	}
	c := &Client{
		exec:     exec,
		dialect:  d,
		log:      slog.Default(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pageSize < 1 {
		c.pageSize = DefaultPageSize
	}
	if c.registry == nil {
		c.registry = schema.NewRegistry(d, append([]schema.RegistryOption{schema.WithLogger(c.log)}, c.regOpts...)...)
	}
	return c, nil
}

// Dialect returns the dialect of the client.
func (c *Client) Dialect() sql.Dialect { return c.dialect }

// Registry returns the entity metadata registry.
func (c *Client) Registry() *schema.Registry { return c.registry }

// Executor returns the executor statements run on.
func (c *Client) Executor() Executor { return c.exec }

// TableName returns the qualified table name of the entity type of v,
// which may be a struct value, a pointer or a reflect.Type.
func (c *Client) TableName(v any) (string, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	e, err := c.registry.Entity(t)
	if err != nil {
		return "", err
	}
	return e.QualifiedTable(), nil
}
