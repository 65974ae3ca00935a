package sqldao

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/syssam/sqldao/dialect/sql"
	"github.com/syssam/sqldao/querystore"
	"github.com/syssam/sqldao/schema"
	"github.com/syssam/sqldao/schema/field"
)

// Result is the outcome of a multi-row query. Items holds the entities of
// a materialized query; Cursor is set instead when the query was
// deferred. Pagination is set for paginated queries.
type Result[T any] struct {
	Items      []*T
	Pagination *Pagination
	Cursor     *Cursor[T]
}

// DAO runs the statements of one entity type. Page, PageSize, PageToken
// and Defer configure the next query call and are reset by it. A DAO is
// meant for a single logical operation and is not safe for concurrent use.
type DAO[T any] struct {
	client   *Client
	exec     Executor
	page     int
	size     int
	deferred bool
	err      error
}

// For returns a DAO for the entity type T, which must be a struct type.
func For[T any](c *Client) *DAO[T] {
	return &DAO[T]{client: c, exec: c.exec}
}

// Using runs the DAO on ex, typically a transaction started by the caller.
func (d *DAO[T]) Using(ex Executor) *DAO[T] {
	d.exec = ex
	return d
}

// Page requests the n-th page (1-based) of the next query.
func (d *DAO[T]) Page(n int) *DAO[T] {
	if n < 1 {
		d.fail("page", fmt.Sprintf("page number %d must be positive", n))
	}
	d.page = n
	return d
}

// PageSize sets the page size of the next query. Setting a size without
// a page requests the first page.
func (d *DAO[T]) PageSize(n int) *DAO[T] {
	if n < 1 {
		d.fail("page size", fmt.Sprintf("page size %d must be positive", n))
	}
	d.size = n
	return d
}

// PageToken requests the page addressed by a token from Pagination.Token.
func (d *DAO[T]) PageToken(token string) *DAO[T] {
	p, err := ParsePageToken(token)
	if err != nil {
		d.err = &ArgumentError{Entity: d.entityName(), Op: "page token", Message: "invalid token", Err: err}
		return d
	}
	d.page, d.size = p.Page, p.Size
	return d
}

// Defer makes the next query return a Cursor instead of materialized items.
// It cannot be combined with pagination.
func (d *DAO[T]) Defer() *DAO[T] {
	d.deferred = true
	return d
}

func (d *DAO[T]) fail(op, msg string) {
	if d.err == nil {
		d.err = &ArgumentError{Entity: d.entityName(), Op: op, Message: msg}
	}
}

func (d *DAO[T]) entityName() string {
	return reflect.TypeFor[T]().Name()
}

// settings holds the builder settings consumed by a query call.
type settings struct {
	page, size int
	deferred   bool
	err        error
}

func (s settings) paginated() bool { return s.page > 0 || s.size > 0 }

func (d *DAO[T]) take() settings {
	s := settings{page: d.page, size: d.size, deferred: d.deferred, err: d.err}
	d.page, d.size, d.deferred, d.err = 0, 0, false, nil
	return s
}

// entity returns the metadata of T.
func (d *DAO[T]) entity() (*schema.Entity, error) {
	e, err := schema.Of[T](d.client.registry)
	if err != nil {
		return nil, err
	}
	if e.Type() != reflect.TypeFor[T]() {
		return nil, schema.NewConfigError(reflect.TypeFor[T]().String(), "", "entity type must be a struct type", nil)
	}
	return e, nil
}

// TableName returns the qualified table name of T.
func (d *DAO[T]) TableName() (string, error) {
	e, err := d.entity()
	if err != nil {
		return "", err
	}
	return e.QualifiedTable(), nil
}

// Find returns the entity with the given key values, in primary-key
// order. It fails with a *NotFoundError if no row matches.
func (d *DAO[T]) Find(ctx context.Context, ids ...any) (*T, error) {
	item, err := d.FindOrNil(ctx, ids...)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, NewNotFoundError(d.entityName(), ids...)
	}
	return item, nil
}

// FindOrNil is like Find but returns nil, nil if no row matches.
func (d *DAO[T]) FindOrNil(ctx context.Context, ids ...any) (*T, error) {
	if s := d.take(); s.err != nil {
		return nil, s.err
	}
	e, err := d.entity()
	if err != nil {
		return nil, err
	}
	cols, args, err := d.keyArgs(ctx, e, "find", ids)
	if err != nil {
		return nil, err
	}
	stmt := sql.SelectByID(e, cols)
	rows, err := d.query(ctx, e, "select", stmt.Query, args)
	if err != nil {
		return nil, err
	}
	items, err := collect[T](e, d.client.dialect, rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// keyArgs validates caller-supplied key values against the id columns.
func (d *DAO[T]) keyArgs(ctx context.Context, e *schema.Entity, op string, ids []any) ([]*schema.Column, []any, error) {
	cols, err := e.IDs(ctx, d.exec)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) != len(cols) {
		return nil, nil, &ArgumentError{
			Entity:  e.Name(),
			Op:      op,
			Message: fmt.Sprintf("got %d key values, entity has %d id columns", len(ids), len(cols)),
		}
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		if id == nil {
			return nil, nil, &ArgumentError{Entity: e.Name(), Op: op, Message: fmt.Sprintf("key value for %s is nil", cols[i].Name())}
		}
		args[i] = field.Bind(reflect.ValueOf(id), cols[i].Temporal())
	}
	return cols, args, nil
}

// FindAll returns all entities. Paginated results are ordered by the id
// columns.
func (d *DAO[T]) FindAll(ctx context.Context) (*Result[T], error) {
	s := d.take()
	if s.err != nil {
		return nil, s.err
	}
	e, err := d.entity()
	if err != nil {
		return nil, err
	}
	query := sql.SelectAll(e)
	if s.paginated() {
		order, err := e.IDs(ctx, d.exec)
		if err != nil {
			if !schema.IsMetadataError(err) {
				return nil, err
			}
			// Primary-key order is unknown; declaration order is still stable.
			order = e.DeclaredIDs()
		}
		query = sql.OrderBy(query, order)
	}
	return d.run(ctx, e, s, "find all", query, nil)
}

// FindByQuery runs the named query of the query repository, looked up in
// the namespace of the entity type name.
func (d *DAO[T]) FindByQuery(ctx context.Context, name string, args ...any) (*Result[T], error) {
	s := d.take()
	if s.err != nil {
		return nil, s.err
	}
	e, err := d.entity()
	if err != nil {
		return nil, err
	}
	if d.client.queries == nil {
		return nil, schema.NewConfigError(e.Name(), "", "no query repository configured", nil)
	}
	query, err := d.client.queries.Lookup(e.Name(), name)
	if err != nil {
		if errors.Is(err, querystore.ErrNotFound) {
			return nil, &ArgumentError{Entity: e.Name(), Op: "find by query", Message: fmt.Sprintf("unknown query %q", name), Err: err}
		}
		return nil, &DriverError{Entity: e.Name(), Op: "lookup query", Err: err}
	}
	return d.run(ctx, e, s, "find by query", query, args)
}

// FindBySQL runs a select statement written with ? placeholders. Its
// result columns are matched to entity columns by name.
func (d *DAO[T]) FindBySQL(ctx context.Context, query string, args ...any) (*Result[T], error) {
	s := d.take()
	if s.err != nil {
		return nil, s.err
	}
	e, err := d.entity()
	if err != nil {
		return nil, err
	}
	return d.run(ctx, e, s, "find by sql", query, args)
}

// Count returns the number of rows of the entity table.
func (d *DAO[T]) Count(ctx context.Context) (int64, error) {
	if s := d.take(); s.err != nil {
		return 0, s.err
	}
	e, err := d.entity()
	if err != nil {
		return 0, err
	}
	return d.count(ctx, e, sql.SelectAll(e), nil)
}

// run executes a multi-row query according to the settings.
func (d *DAO[T]) run(ctx context.Context, e *schema.Entity, s settings, op, query string, args []any) (*Result[T], error) {
	if s.deferred && s.paginated() {
		return nil, &ArgumentError{Entity: e.Name(), Op: op, Message: "deferred queries cannot be paginated"}
	}
	if s.deferred {
		rows, err := d.query(ctx, e, "select", query, args)
		if err != nil {
			return nil, err
		}
		m, err := newMapper[T](e, d.client.dialect, rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		return &Result[T]{Cursor: newCursor(rows, m, d.client.log)}, nil
	}
	if !s.paginated() {
		rows, err := d.query(ctx, e, "select", query, args)
		if err != nil {
			return nil, err
		}
		items, err := collect[T](e, d.client.dialect, rows)
		if err != nil {
			return nil, err
		}
		return &Result[T]{Items: items}, nil
	}
	p := &Pagination{Page: max(s.page, 1), Size: s.size}
	if p.Size == 0 {
		p.Size = d.client.pageSize
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return nil, &ArgumentError{Entity: e.Name(), Op: "page", Message: fmt.Sprintf("page %d of size %d is out of range", p.Page, p.Size)}
	}
	total, err := d.count(ctx, e, query, args)
	if err != nil {
		return nil, err
	}
	p.Total = total
	res := &Result[T]{Pagination: p}
	if int64(p.Offset()) >= total {
		return res, nil
	}
	pageQuery, pargs := d.client.dialect.Paginate(query, p.Offset(), p.Size)
	rows, err := d.query(ctx, e, "select page", pageQuery, append(append([]any(nil), args...), pargs...))
	if err != nil {
		return nil, err
	}
	if res.Items, err = collect[T](e, d.client.dialect, rows); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *DAO[T]) count(ctx context.Context, e *schema.Entity, query string, args []any) (_ int64, rerr error) {
	rows, err := d.query(ctx, e, "count", sql.Count(query), args)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = &DriverError{Entity: e.Name(), Op: "count", Err: err}
		}
	}()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, &DriverError{Entity: e.Name(), Op: "count", Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, &DriverError{Entity: e.Name(), Op: "count", Err: err}
	}
	return n, nil
}

func (d *DAO[T]) query(ctx context.Context, e *schema.Entity, op, query string, args []any) (*sql.Rows, error) {
	if args == nil {
		args = []any{}
	}
	d.client.log.DebugContext(ctx, "query", "entity", e.Name(), "op", op, "sql", query, "args", args)
	rows := &sql.Rows{}
	if err := d.exec.Query(ctx, query, args, rows); err != nil {
		return nil, &DriverError{Entity: e.Name(), Op: op, Err: err}
	}
	return rows, nil
}

// pointers validates a batch of entities and returns their pointer values.
func (d *DAO[T]) pointers(e *schema.Entity, op string, items []*T) ([]reflect.Value, error) {
	ptrs := make([]reflect.Value, len(items))
	for i, item := range items {
		if item == nil {
			return nil, &ArgumentError{Entity: e.Name(), Op: op, Message: fmt.Sprintf("entity %d is nil", i)}
		}
		ptrs[i] = reflect.ValueOf(item)
	}
	return ptrs, nil
}

func bindAll(e *schema.Entity, op string, stmt sql.BatchStatement, ptrs []reflect.Value) ([][]any, error) {
	argv := make([][]any, len(ptrs))
	for i, ptr := range ptrs {
		args, err := stmt.Args(ptr)
		if err != nil {
			return nil, &ArgumentError{Entity: e.Name(), Op: op, Message: "cannot bind entity", Err: err}
		}
		argv[i] = args
	}
	return argv, nil
}

func (d *DAO[T]) execBatch(ctx context.Context, e *schema.Entity, op, query string, argv [][]any) ([]int64, error) {
	d.client.log.DebugContext(ctx, "exec", "entity", e.Name(), "op", op, "sql", query, "size", len(argv))
	counts, err := d.exec.ExecBatch(ctx, query, argv)
	if err != nil {
		return nil, &DriverError{Entity: e.Name(), Op: op, Err: err}
	}
	return counts, nil
}

// Update writes all non-id columns of item and returns the number of
// affected rows. If the entity has a version column, the row must still
// carry the in-memory version; otherwise an *OptimisticLockError is
// returned. On success the in-memory version is incremented to match the
// database.
func (d *DAO[T]) Update(ctx context.Context, item *T) (int64, error) {
	e, err := d.entity()
	if err != nil {
		return 0, err
	}
	counts, ptrs, err := d.update(ctx, e, "update", []*T{item})
	if err != nil {
		return 0, err
	}
	if v := e.Version(); v != nil {
		if counts[0] == 0 {
			return 0, d.lockError(ctx, e, ptrs[0])
		}
		if err := bumpVersion(v, ptrs[0]); err != nil {
			return 0, &MappingError{Entity: e.Name(), Column: v.Name(), Err: err}
		}
	}
	return counts[0], nil
}

// UpdateAll updates items in one batch and returns the total number of
// affected rows. Rows whose version no longer matches are skipped without
// error; only the entities that were written get their version incremented.
func (d *DAO[T]) UpdateAll(ctx context.Context, items []*T) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	e, err := d.entity()
	if err != nil {
		return 0, err
	}
	counts, ptrs, err := d.update(ctx, e, "update all", items)
	if err != nil {
		return 0, err
	}
	var total int64
	v := e.Version()
	for i, n := range counts {
		total += n
		if v != nil && n > 0 {
			if err := bumpVersion(v, ptrs[i]); err != nil {
				return total, &MappingError{Entity: e.Name(), Column: v.Name(), Err: err}
			}
		}
	}
	return total, nil
}

func (d *DAO[T]) update(ctx context.Context, e *schema.Entity, op string, items []*T) ([]int64, []reflect.Value, error) {
	ptrs, err := d.pointers(e, op, items)
	if err != nil {
		return nil, nil, err
	}
	ids, err := e.IDs(ctx, d.exec)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := sql.Update(e, ids)
	if err != nil {
		return nil, nil, schema.NewConfigError(e.Name(), "", "cannot build update", err)
	}
	argv, err := bindAll(e, op, stmt, ptrs)
	if err != nil {
		return nil, nil, err
	}
	counts, err := d.execBatch(ctx, e, op, stmt.Query, argv)
	if err != nil {
		return nil, nil, err
	}
	return counts, ptrs, nil
}

func (d *DAO[T]) lockError(ctx context.Context, e *schema.Entity, ptr reflect.Value) error {
	lerr := &OptimisticLockError{Entity: e.Name()}
	if ids, err := e.IDs(ctx, d.exec); err == nil {
		for _, c := range ids {
			v, _ := c.Value(ptr)
			lerr.IDs = append(lerr.IDs, v)
		}
	}
	lerr.Version, _ = e.Version().Value(ptr)
	return lerr
}

// bumpVersion mirrors the server-side version increment on integer
// version columns.
func bumpVersion(c *schema.Column, ptr reflect.Value) error {
	if !c.BindType().Integer() {
		return nil
	}
	cur, err := c.Value(ptr)
	if err != nil {
		return err
	}
	n, err := field.Convert(cur, reflect.TypeFor[int64](), field.TemporalNone)
	if err != nil {
		return err
	}
	next, err := field.Convert(n.Int()+1, c.Type(), field.TemporalNone)
	if err != nil {
		return err
	}
	return c.Set(ptr, next)
}

// Delete deletes the row of item by its id columns and returns the number
// of affected rows. The version column is not checked.
func (d *DAO[T]) Delete(ctx context.Context, item *T) (int64, error) {
	return d.DeleteAll(ctx, []*T{item})
}

// DeleteAll deletes the rows of items in one batch and returns the total
// number of affected rows.
func (d *DAO[T]) DeleteAll(ctx context.Context, items []*T) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	e, err := d.entity()
	if err != nil {
		return 0, err
	}
	ptrs, err := d.pointers(e, "delete", items)
	if err != nil {
		return 0, err
	}
	ids, err := e.IDs(ctx, d.exec)
	if err != nil {
		return 0, err
	}
	stmt := sql.Delete(e, ids)
	argv, err := bindAll(e, "delete", stmt, ptrs)
	if err != nil {
		return 0, err
	}
	counts, err := d.execBatch(ctx, e, "delete", stmt.Query, argv)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// DeleteByID deletes the row with the given key values, in primary-key
// order, and returns the number of affected rows.
func (d *DAO[T]) DeleteByID(ctx context.Context, ids ...any) (int64, error) {
	e, err := d.entity()
	if err != nil {
		return 0, err
	}
	cols, args, err := d.keyArgs(ctx, e, "delete", ids)
	if err != nil {
		return 0, err
	}
	counts, err := d.execBatch(ctx, e, "delete", sql.Delete(e, cols).Query, [][]any{args})
	if err != nil {
		return 0, err
	}
	return counts[0], nil
}
