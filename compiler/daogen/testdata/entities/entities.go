package entities

import (
	"database/sql"
	"time"

	"github.com/syssam/sqldao/schema"
)

type Audit struct {
	Author  string
	Changed time.Time
}

type Account struct {
	schema.Table `db:"ACCOUNTS,schema=billing"`

	ID      int64     `db:",id,generated=identity"`
	Owner   string    `db:"OWNER_NAME"`
	Opened  time.Time `db:",temporal=date"`
	Note    sql.NullString
	Version int `db:",version"`
	Audit
	Lines []*Line
	Cache string `db:"-"`
}

type Line struct {
	schema.Table `db:",access=property"`

	order int64
	no    int
	Qty   int `db:",transient"`
}

func (l *Line) Order() int64     { return l.order }
func (l *Line) SetOrder(v int64) { l.order = v }
func (l *Line) No() int          { return l.no }
func (l *Line) SetNo(v int)      { l.no = v }

type Ticket struct {
	schema.Table

	ID    int64 `db:",id,generator=TICKET_SEQ"`
	Title string
}

// Plain has no table marker and is skipped unless requested by name.
type Plain struct {
	ID int64 `db:",id"`
}
