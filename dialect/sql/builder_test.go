package sql_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldao/dialect"
	"github.com/syssam/sqldao/dialect/sql"
	"github.com/syssam/sqldao/schema"
)

type Invoice struct {
	schema.Table `db:"INVOICES,schema=sales"`

	ID      int64     `db:",id,generated"`
	Number  string    ``
	Issued  time.Time `db:",temporal=date"`
	Total   float64   ``
	Version int       `db:",version"`
}

type Note struct {
	ID   int64 `db:",id"`
	Body string
}

type Line struct {
	schema.Table `db:"LINES"`
	OrderID      int64 `db:",id=1"`
	LineNo       int   `db:",id=2"`
	Qty          int
}

type KeyOnly struct {
	ID int64 `db:",id"`
}

func entity[T any](t *testing.T) (*schema.Entity, []*schema.Column) {
	t.Helper()
	e, err := schema.Of[T](schema.NewRegistry(dialect.Flags{Identity: true}))
	require.NoError(t, err)
	ids, err := e.IDs(context.Background(), nil)
	require.NoError(t, err)
	return e, ids
}

func names(cols []*schema.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name()
	}
	return out
}

func TestSelect(t *testing.T) {
	e, ids := entity[Invoice](t)
	assert.Equal(t, "SELECT ID, NUMBER, ISSUED, TOTAL, VERSION FROM sales.INVOICES", sql.SelectAll(e))

	stmt := sql.SelectByID(e, ids)
	assert.Equal(t, "SELECT ID, NUMBER, ISSUED, TOTAL, VERSION FROM sales.INVOICES WHERE ID = ?", stmt.Query)
	assert.Equal(t, []string{"ID"}, names(stmt.Columns))

	e, ids = entity[Line](t)
	stmt = sql.SelectByID(e, ids)
	assert.Equal(t, "SELECT ORDER_ID, LINE_NO, QTY FROM LINES WHERE ORDER_ID = ? AND LINE_NO = ?", stmt.Query)
}

func TestUpdate(t *testing.T) {
	t.Run("Versioned", func(t *testing.T) {
		e, ids := entity[Invoice](t)
		stmt, err := sql.Update(e, ids)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE sales.INVOICES SET NUMBER = ?, ISSUED = ?, TOTAL = ?, VERSION = VERSION + 1 WHERE ID = ? AND VERSION = ?", stmt.Query)
		assert.Equal(t, []string{"NUMBER", "ISSUED", "TOTAL", "ID", "VERSION"}, names(stmt.Columns))

		inv := &Invoice{ID: 7, Number: "A-1", Issued: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), Total: 9.5, Version: 3}
		bound, err := stmt.Bind(reflect.ValueOf(inv))
		require.NoError(t, err)
		assert.Equal(t, []any{"A-1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 9.5, int64(7), 3}, bound.Args)
	})
	t.Run("Versionless", func(t *testing.T) {
		e, ids := entity[Note](t)
		stmt, err := sql.Update(e, ids)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE NOTE SET BODY = ? WHERE ID = ?", stmt.Query)
		assert.Equal(t, []string{"BODY", "ID"}, names(stmt.Columns))
	})
	t.Run("Composite", func(t *testing.T) {
		e, ids := entity[Line](t)
		stmt, err := sql.Update(e, ids)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE LINES SET QTY = ? WHERE ORDER_ID = ? AND LINE_NO = ?", stmt.Query)
	})
	t.Run("NothingToSet", func(t *testing.T) {
		e, ids := entity[KeyOnly](t)
		_, err := sql.Update(e, ids)
		require.Error(t, err)
	})
}

func TestDelete(t *testing.T) {
	e, ids := entity[Invoice](t)
	stmt := sql.Delete(e, ids)
	assert.Equal(t, "DELETE FROM sales.INVOICES WHERE ID = ?", stmt.Query)
	assert.Equal(t, []string{"ID"}, names(stmt.Columns))

	bound, err := stmt.Bind(reflect.ValueOf(&Invoice{ID: 4, Version: 9}))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(4)}, bound.Args, "version is not bound on delete")
}

func TestInsert(t *testing.T) {
	e, _ := entity[Invoice](t)
	stmt := sql.Insert(e)
	assert.Equal(t, "INSERT INTO sales.INVOICES (ID, NUMBER, ISSUED, TOTAL, VERSION) VALUES (?, ?, ?, ?, ?)", stmt.Query)
	assert.Len(t, stmt.Columns, 5)

	stmt = sql.InsertIdentity(e)
	assert.Equal(t, "INSERT INTO sales.INVOICES (NUMBER, ISSUED, TOTAL, VERSION) VALUES (?, ?, ?, ?)", stmt.Query)
	assert.Equal(t, []string{"NUMBER", "ISSUED", "TOTAL", "VERSION"}, names(stmt.Columns))

	e, _ = entity[Note](t)
	assert.Equal(t, sql.Insert(e), sql.InsertIdentity(e), "no generated column")
}

func TestBatchArgs(t *testing.T) {
	e, _ := entity[Note](t)
	stmt := sql.Insert(e)
	for i, n := range []*Note{{ID: 1, Body: "a"}, {ID: 2, Body: "b"}} {
		args, err := stmt.Args(reflect.ValueOf(n))
		require.NoError(t, err)
		assert.Equal(t, []any{int64(i + 1), n.Body}, args)
	}
	_, err := stmt.Args(reflect.ValueOf(Note{}))
	require.Error(t, err)
}

func TestCount(t *testing.T) {
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT ID FROM T) q", sql.Count("SELECT ID FROM T"))
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT ID FROM T WHERE A = ?) q", sql.Count("SELECT ID FROM T WHERE A = ? ORDER BY ID DESC;"))
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT ID FROM (SELECT ID FROM T ORDER BY ID) s) q", sql.Count("SELECT ID FROM (SELECT ID FROM T ORDER BY ID) s"))
}

func TestCountRowLimit(t *testing.T) {
	tests := []string{
		"SELECT ID FROM T ORDER BY ID LIMIT 10",
		"SELECT ID FROM T ORDER BY ID LIMIT ? OFFSET ?",
		"SELECT ID FROM T ORDER BY ID OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY",
		"SELECT ID FROM T order by ID desc limit 3",
	}
	for _, query := range tests {
		assert.Equal(t, "SELECT COUNT(*) FROM ("+query+") q", sql.Count(query+";"), query)
	}
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT LIMIT_AMOUNT FROM T) q", sql.Count("SELECT LIMIT_AMOUNT FROM T ORDER BY LIMIT_AMOUNT"))
}

func TestOrderBy(t *testing.T) {
	e, ids := entity[Line](t)
	assert.Equal(t, "SELECT ORDER_ID, LINE_NO, QTY FROM LINES ORDER BY ORDER_ID, LINE_NO", sql.OrderBy(sql.SelectAll(e), ids))
	assert.Equal(t, "SELECT 1", sql.OrderBy("SELECT 1", nil))
	assert.True(t, sql.HasOrderBy("SELECT A FROM T order by A"))
	assert.False(t, sql.HasOrderBy("SELECT A FROM T"))
}
