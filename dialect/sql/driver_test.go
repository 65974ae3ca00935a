package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldao/dialect"
)

func TestOpenDBDialect(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, dialect.Postgres, OpenDB("pgx", db).Dialect())
	assert.Equal(t, dialect.SQLite, OpenDB("sqlite", db).Dialect())
	assert.Same(t, db, OpenDB("mysql", db).DB())
}

func TestConnRebind(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE T SET A = $1 WHERE ID = $2")).
		WithArgs("x", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	var res Result
	require.NoError(t, drv.Exec(context.Background(), "UPDATE T SET A = ? WHERE ID = ?", []any{"x", 1}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT A FROM T WHERE ID = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"A"}).AddRow("x"))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT A FROM T WHERE ID = ?", []any{1}, rows))
	require.True(t, rows.Next())
	var a string
	require.NoError(t, rows.Scan(&a))
	assert.Equal(t, "x", a)
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnInvalidArgs(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)
	ctx := context.Background()
	require.Error(t, drv.Exec(ctx, "DELETE FROM T", "oops", nil))
	require.Error(t, drv.Exec(ctx, "DELETE FROM T", []any{}, new(int)))
	require.Error(t, drv.Query(ctx, "SELECT 1", []any{}, new(int)))
	require.Error(t, drv.Query(ctx, "SELECT 1", 1, &Rows{}))
}

func TestExecBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	prep := mock.ExpectPrepare(regexp.QuoteMeta("UPDATE T SET A = ? WHERE ID = ? AND V = ?"))
	prep.ExpectExec().WithArgs("a", 1, 0).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("b", 2, 5).WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WithArgs("c", 3, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.WillBeClosed()

	counts, err := drv.ExecBatch(context.Background(), "UPDATE T SET A = ? WHERE ID = ? AND V = ?", [][]any{
		{"a", 1, 0}, {"b", 2, 5}, {"c", 3, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0, 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())

	counts, err = drv.ExecBatch(context.Background(), "UPDATE T SET A = ?", nil)
	require.NoError(t, err)
	assert.Nil(t, counts)
}

func TestExecBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	prep := mock.ExpectPrepare(regexp.QuoteMeta("DELETE FROM T WHERE ID = ?"))
	prep.ExpectExec().WithArgs(1).WillReturnError(errors.New("disk full"))
	prep.WillBeClosed()
	_, err = drv.ExecBatch(context.Background(), "DELETE FROM T WHERE ID = ?", [][]any{{1}, {2}})
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecReturning(t *testing.T) {
	t.Run("LastInsertId", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		drv := OpenDB(dialect.MySQL, db)
		q := "INSERT INTO T (A) VALUES (?)"
		mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs("a").WillReturnResult(sqlmock.NewResult(10, 1))
		mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs("b").WillReturnResult(sqlmock.NewResult(11, 1))
		keys, err := drv.ExecReturning(context.Background(), q, "ID", [][]any{{"a"}, {"b"}})
		require.NoError(t, err)
		require.Equal(t, 2, keys.Len())
		k, ok := keys.Next()
		require.True(t, ok)
		assert.Equal(t, int64(10), k)
		k, _ = keys.Next()
		assert.Equal(t, int64(11), k)
		_, ok = keys.Next()
		assert.False(t, ok)
		require.NoError(t, keys.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("Returning", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		drv := OpenDB(dialect.Postgres, db)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO T (A) VALUES ($1) RETURNING ID")).
			WithArgs("a").
			WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(int64(5)))
		keys, err := drv.ExecReturning(context.Background(), "INSERT INTO T (A) VALUES (?)", "ID", [][]any{{"a"}})
		require.NoError(t, err)
		k, ok := keys.Next()
		require.True(t, ok)
		assert.Equal(t, int64(5), k)
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("ReadError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		drv := OpenDB(dialect.MySQL, db)
		mock.ExpectExec("INSERT INTO T").WillReturnResult(sqlmock.NewErrorResult(errors.New("no id")))
		_, err = drv.ExecReturning(context.Background(), "INSERT INTO T (A) VALUES (?)", "ID", [][]any{{"a"}})
		require.ErrorContains(t, err, "read generated key")
	})
}

func TestPrimaryKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk")).
		WithArgs("LINES").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ORDER_ID").AddRow("LINE_NO"))
	names, err := drv.PrimaryKeys(context.Background(), "", "LINES")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORDER_ID", "LINE_NO"}, names)

	mock.ExpectQuery("pragma_table_info").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	_, err = drv.PrimaryKeys(context.Background(), "", "NOPE")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM T WHERE ID = $1")).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "DELETE FROM T WHERE ID = ?", []any{1}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, isValidIdentifier("billing.ORDER_SEQ"))
	assert.False(t, isValidIdentifier("x; DROP TABLE T"))
	assert.False(t, isValidIdentifier(""))
}
