package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/sqldao/dialect"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of statements executed, counting
	// each entry of a batch.
	TotalExecs atomic.Int64
	// TotalBatches is the number of batch executions.
	TotalBatches atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of execution errors.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalBatches:  s.TotalBatches.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalBatches.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalBatches  int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the average duration per recorded call.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d batches=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalBatches, s.TotalDuration, s.AvgDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps a Driver with query statistics collection.
type StatsDriver struct {
	*Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow query detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow queries.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow queries to the given logger, or to the
// default logger if l is nil.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		l.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsDriver wraps a Driver with statistics collection.
//
//	drv, _ := sql.Open("pgx", dsn)
//	stats := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowQueryLog(nil))
//	client, _ := sqldao.NewClient(stats)
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow query threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	argv, _ := args.([]any)
	d.record(ctx, query, argv, start, err, kindQuery, 1)
	return err
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	argv, _ := args.([]any)
	d.record(ctx, query, argv, start, err, kindExec, 1)
	return err
}

// ExecBatch executes a batch and records statistics.
func (d *StatsDriver) ExecBatch(ctx context.Context, query string, argv [][]any) ([]int64, error) {
	start := time.Now()
	counts, err := d.Driver.ExecBatch(ctx, query, argv)
	d.record(ctx, query, nil, start, err, kindBatch, len(argv))
	return counts, err
}

// ExecReturning executes an insert batch and records statistics.
func (d *StatsDriver) ExecReturning(ctx context.Context, query, column string, argv [][]any) (*GeneratedKeys, error) {
	start := time.Now()
	keys, err := d.Driver.ExecReturning(ctx, query, column, argv)
	d.record(ctx, query, nil, start, err, kindBatch, len(argv))
	return keys, err
}

type callKind uint8

const (
	kindQuery callKind = iota
	kindExec
	kindBatch
)

func (d *StatsDriver) record(ctx context.Context, query string, args []any, start time.Time, err error, kind callKind, n int) {
	duration := time.Since(start)
	switch kind {
	case kindQuery:
		d.stats.TotalQueries.Add(1)
	case kindExec:
		d.stats.TotalExecs.Add(1)
	case kindBatch:
		d.stats.TotalBatches.Add(1)
		d.stats.TotalExecs.Add(int64(n))
	}
	d.stats.TotalDuration.Add(int64(duration))

	if err != nil {
		d.stats.Errors.Add(1)
	}

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, args, duration)
		}
	}
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginTx starts a transaction with options that also records statistics.
func (d *StatsDriver) BeginTx(ctx context.Context, opts *TxOptions) (*StatsTx, error) {
	tx, err := d.Driver.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx wraps a transaction with statistics collection.
type StatsTx struct {
	*Tx
	driver *StatsDriver
}

// Query executes a query within the transaction and records statistics.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	argv, _ := args.([]any)
	tx.driver.record(ctx, query, argv, start, err, kindQuery, 1)
	return err
}

// Exec executes a statement within the transaction and records statistics.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	argv, _ := args.([]any)
	tx.driver.record(ctx, query, argv, start, err, kindExec, 1)
	return err
}

// ExecBatch executes a batch within the transaction and records statistics.
func (tx *StatsTx) ExecBatch(ctx context.Context, query string, argv [][]any) ([]int64, error) {
	start := time.Now()
	counts, err := tx.Tx.ExecBatch(ctx, query, argv)
	tx.driver.record(ctx, query, nil, start, err, kindBatch, len(argv))
	return counts, err
}

// ExecReturning executes an insert batch within the transaction and records statistics.
func (tx *StatsTx) ExecReturning(ctx context.Context, query, column string, argv [][]any) (*GeneratedKeys, error) {
	start := time.Now()
	keys, err := tx.Tx.ExecReturning(ctx, query, column, argv)
	tx.driver.record(ctx, query, nil, start, err, kindBatch, len(argv))
	return keys, err
}

// DebugDriver wraps a Driver with debug logging.
type DebugDriver struct {
	*Driver
	log *slog.Logger
}

// NewDebugDriver wraps a Driver logging every statement at debug level
// to l, or to the default logger if l is nil.
func NewDebugDriver(drv *Driver, l *slog.Logger) *DebugDriver {
	if l == nil {
		l = slog.Default()
	}
	return &DebugDriver{Driver: drv, log: l}
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log.DebugContext(ctx, "query", "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec executes a statement and logs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log.DebugContext(ctx, "exec", "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// ExecBatch executes a batch and logs it.
func (d *DebugDriver) ExecBatch(ctx context.Context, query string, argv [][]any) ([]int64, error) {
	d.log.DebugContext(ctx, "exec batch", "sql", query, "size", len(argv))
	return d.Driver.ExecBatch(ctx, query, argv)
}

// ExecReturning executes an insert batch and logs it.
func (d *DebugDriver) ExecReturning(ctx context.Context, query, column string, argv [][]any) (*GeneratedKeys, error) {
	d.log.DebugContext(ctx, "exec returning", "sql", query, "column", column, "size", len(argv))
	return d.Driver.ExecReturning(ctx, query, column, argv)
}

// Ensure interfaces are implemented.
var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
)

// OpenWithStats opens a database connection with statistics collection enabled.
func OpenWithStats(driverName, source string, opts ...StatsOption) (*StatsDriver, *QueryStats, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, nil, err
	}
	drv := NewStatsDriver(OpenDB(driverName, db), opts...)
	return drv, drv.QueryStats(), nil
}
