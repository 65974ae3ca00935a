package keygen

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldao/dialect"
	"github.com/syssam/sqldao/dialect/sql"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v, err := m.Next(ctx, "ORDERS_ID")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	v, _ = m.Next(ctx, "ORDERS_ID")
	assert.Equal(t, "2", v)
	v, _ = m.Next(ctx, "LINES_ID")
	assert.Equal(t, "1", v)

	m.Reset("ORDERS_ID", 100)
	v, _ = m.Next(ctx, "ORDERS_ID")
	assert.Equal(t, "100", v)
}

func TestMemoryConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.Next(ctx, "K")
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestUUID(t *testing.T) {
	v, err := UUID{}.Next(context.Background(), "ignored")
	require.NoError(t, err)
	id, err := uuid.Parse(v)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestNames(t *testing.T) {
	ctx := context.Background()
	g := Names{Generators: map[string]Generator{
		"A": Func(func(context.Context, string) (string, error) { return "a", nil }),
	}}
	v, err := g.Next(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	_, err = g.Next(ctx, "B")
	require.ErrorIs(t, err, ErrNoGenerator)

	g.Default = NewMemory()
	v, err = g.Next(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestSequence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSequence(sql.OpenDB(dialect.Postgres, db))
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval($1)")).
		WithArgs("ORDERS_ID").
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))
	v, err := s.Next(context.Background(), "ORDERS_ID")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	mock.ExpectQuery("nextval").WillReturnError(errors.New(`relation "NOPE" does not exist`))
	_, err = s.Next(context.Background(), "NOPE")
	require.ErrorContains(t, err, "keygen: sequence NOPE")
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = NewSequence(sql.OpenDB(dialect.SQLite, db))
	require.Error(t, err)
}

func TestTable(t *testing.T) {
	const (
		update = "UPDATE DAO_SEQUENCES SET NEXT_VALUE = NEXT_VALUE + 1 WHERE NAME = ?"
		insert = "INSERT INTO DAO_SEQUENCES (NAME, NEXT_VALUE) VALUES (?, 1)"
		get    = "SELECT NEXT_VALUE FROM DAO_SEQUENCES WHERE NAME = ?"
	)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	g := NewTable(sql.OpenDB(dialect.SQLite, db))
	ctx := context.Background()

	t.Run("First", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(update)).WithArgs("ORDERS_ID").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta(insert)).WithArgs("ORDERS_ID").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(regexp.QuoteMeta(get)).WithArgs("ORDERS_ID").
			WillReturnRows(sqlmock.NewRows([]string{"NEXT_VALUE"}).AddRow(int64(1)))
		mock.ExpectCommit()
		v, err := g.Next(ctx, "ORDERS_ID")
		require.NoError(t, err)
		assert.Equal(t, "1", v)
	})
	t.Run("Existing", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(update)).WithArgs("ORDERS_ID").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(get)).WithArgs("ORDERS_ID").
			WillReturnRows(sqlmock.NewRows([]string{"NEXT_VALUE"}).AddRow(int64(2)))
		mock.ExpectCommit()
		v, err := g.Next(ctx, "ORDERS_ID")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})
	t.Run("Rollback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(update)).WillReturnError(errors.New("table is locked"))
		mock.ExpectRollback()
		_, err := g.Next(ctx, "ORDERS_ID")
		require.ErrorContains(t, err, "table is locked")
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	g := NewTable(sql.OpenDB(dialect.SQLite, db), WithTableName("KEYS"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE KEYS SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT NEXT_VALUE FROM KEYS")).
		WillReturnRows(sqlmock.NewRows([]string{"NEXT_VALUE"}).AddRow(int64(7)))
	mock.ExpectCommit()
	v, err := g.Next(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}
