package sql

import (
	"errors"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ConstraintKind classifies database constraint violations.
type ConstraintKind uint8

// Constraint kinds.
const (
	ConstraintNone ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintCheck
)

// String implements the fmt.Stringer interface.
func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintCheck:
		return "check"
	default:
		return "none"
	}
}

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQL Server error numbers for constraint violations.
const (
	mssqlUniqueIndex      = 2601
	mssqlUniqueConstraint = 2627
	mssqlConflict         = 547 // foreign key and check constraints
)

// Constraint returns the kind of constraint violated by err, if any.
func Constraint(err error) ConstraintKind {
	if err == nil {
		return ConstraintNone
	}
	if e, ok := asError[*pgconn.PgError](err); ok {
		return pgConstraint(e.Code)
	}
	if e, ok := asError[*pq.Error](err); ok {
		return pgConstraint(string(e.Code))
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		switch e.Number {
		case mysqlDuplicateEntry:
			return ConstraintUnique
		case mysqlForeignKeyParent, mysqlForeignKeyChild:
			return ConstraintForeignKey
		case mysqlCheckConstraintViolate:
			return ConstraintCheck
		}
		return ConstraintNone
	}
	if e, ok := asError[*sqlite.Error](err); ok {
		switch e.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ConstraintUnique
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ConstraintForeignKey
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return ConstraintCheck
		}
		// Without extended result codes the message names the constraint.
	}
	if e, ok := asError[mssql.Error](err); ok {
		switch e.Number {
		case mssqlUniqueIndex, mssqlUniqueConstraint:
			return ConstraintUnique
		case mssqlConflict:
			if strings.Contains(e.Message, "FOREIGN KEY") || strings.Contains(e.Message, "REFERENCE") {
				return ConstraintForeignKey
			}
			return ConstraintCheck
		}
		return ConstraintNone
	}
	// Fallback to string matching for drivers without typed errors.
	msg := err.Error()
	switch {
	case containsAny(msg, "violates unique constraint", "UNIQUE constraint failed", "Error 1062"):
		return ConstraintUnique
	case containsAny(msg, "violates foreign key constraint", "FOREIGN KEY constraint failed", "Error 1451", "Error 1452"):
		return ConstraintForeignKey
	case containsAny(msg, "violates check constraint", "CHECK constraint failed", "Error 3819"):
		return ConstraintCheck
	}
	return ConstraintNone
}

func pgConstraint(code string) ConstraintKind {
	switch code {
	case pgerrcode.UniqueViolation:
		return ConstraintUnique
	case pgerrcode.ForeignKeyViolation:
		return ConstraintForeignKey
	case pgerrcode.CheckViolation:
		return ConstraintCheck
	}
	return ConstraintNone
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return Constraint(err) != ConstraintNone
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return Constraint(err) == ConstraintUnique
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return Constraint(err) == ConstraintForeignKey
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	return Constraint(err) == ConstraintCheck
}

// asError attempts to extract an error of type T from the error chain.
func asError[T error](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
