package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldao/dialect"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(0),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	ctx := context.Background()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"A"}))
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT A FROM T", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE").WillReturnError(errors.New("locked"))
	require.Error(t, drv.Exec(ctx, "DELETE FROM T", []any{}, nil))

	prep := mock.ExpectPrepare("UPDATE")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = drv.ExecBatch(ctx, "UPDATE T SET A = ?", [][]any{{1}, {2}})
	require.NoError(t, err)

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalQueries)
	assert.Equal(t, int64(3), s.TotalExecs)
	assert.Equal(t, int64(1), s.TotalBatches)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(3), s.SlowQueries)
	assert.Len(t, slow, 3)
	assert.Contains(t, s.String(), "queries=1 execs=3 batches=1")

	drv.QueryStats().Reset()
	assert.Zero(t, drv.QueryStats().Stats().TotalQueries)
	assert.Zero(t, StatsSnapshot{}.AvgDuration())
}

func TestStatsDriverThreshold(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))
	assert.Equal(t, 100*time.Millisecond, drv.SlowThreshold())
	drv.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, drv.SlowThreshold())
}

func TestStatsTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "DELETE FROM T", []any{}, nil))
	require.NoError(t, tx.Rollback())
	assert.Equal(t, int64(1), drv.QueryStats().Stats().TotalExecs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlowQueryLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db), WithSlowThreshold(0), WithSlowQueryLog(l))

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM T", []any{}, nil))
	assert.Contains(t, buf.String(), "slow query detected")
	assert.Contains(t, buf.String(), "DELETE FROM T")
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.SQLite, db), l)

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM T WHERE ID = ?", []any{1}, nil))
	assert.Contains(t, buf.String(), "msg=exec")
	assert.Contains(t, buf.String(), "DELETE FROM T WHERE ID = ?")
}
