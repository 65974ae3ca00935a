package sqldao

import (
	"io"
	"iter"
	"log/slog"

	"github.com/syssam/sqldao/dialect/sql"
)

type cursorState uint8

const (
	cursorOpen cursorState = iota
	cursorStepping
	cursorRanging
	cursorDone
	cursorClosed
)

// Cursor is a forward-only, single-pass sequence over an open result set.
// It owns the rows but not the connection they were read from. A cursor
// must be closed unless it was read to the end:
//
//	cur := res.Cursor
//	defer cur.Close()
//	for acc, err := range cur.All() {
//	    ...
//	}
//
// A Cursor is not safe for concurrent use.
type Cursor[T any] struct {
	rows   *sql.Rows
	mapper *mapper[T]
	state  cursorState
	ranged bool
	log    *slog.Logger
}

func newCursor[T any](rows *sql.Rows, m *mapper[T], l *slog.Logger) *Cursor[T] {
	return &Cursor[T]{rows: rows, mapper: m, log: l}
}

// Next returns the next entity, or io.EOF after the last one. Reading to
// the end releases the result set.
func (c *Cursor[T]) Next() (*T, error) {
	switch {
	case c.state == cursorClosed:
		return nil, ErrCursorClosed
	case c.ranged:
		return nil, ErrCursorConsumed
	case c.state == cursorDone:
		return nil, io.EOF
	}
	c.state = cursorStepping
	return c.next()
}

func (c *Cursor[T]) next() (*T, error) {
	if !c.rows.Next() {
		err := c.rows.Err()
		c.release(cursorDone)
		if err != nil {
			return nil, &DriverError{Entity: c.mapper.entity.Name(), Op: "read rows", Err: err}
		}
		return nil, io.EOF
	}
	return c.mapper.scan(c.rows)
}

// All returns an iterator over the remaining entities. It can be used
// once, and only if Next was not called; otherwise it yields
// ErrCursorConsumed. The result set is released when the loop ends,
// including on break.
func (c *Cursor[T]) All() iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		switch c.state {
		case cursorClosed:
			yield(nil, ErrCursorClosed)
			return
		case cursorOpen:
		default:
			yield(nil, ErrCursorConsumed)
			return
		}
		c.state = cursorRanging
		c.ranged = true
		defer c.release(cursorDone)
		for {
			item, err := c.next()
			if err == io.EOF {
				return
			}
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the result set. Reads after Close fail with
// ErrCursorClosed. Close is idempotent.
func (c *Cursor[T]) Close() error {
	if c.state == cursorClosed {
		return nil
	}
	done := c.state == cursorDone
	c.state = cursorClosed
	if done {
		return nil
	}
	return c.rows.Close()
}

// release closes the rows after the cursor was read, logging close
// errors since no caller is left to receive them.
func (c *Cursor[T]) release(state cursorState) {
	if c.state == cursorClosed || c.state == cursorDone {
		return
	}
	c.state = state
	if err := c.rows.Close(); err != nil {
		c.log.Warn("closing cursor rows failed", "entity", c.mapper.entity.Name(), "error", err)
	}
}
