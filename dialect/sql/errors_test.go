package sql

import (
	"errors"
	"fmt"
	"testing"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConstraint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConstraintKind
	}{
		{"nil", nil, ConstraintNone},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, ConstraintUnique},
		{"pgx fk", &pgconn.PgError{Code: "23503"}, ConstraintForeignKey},
		{"pgx check", &pgconn.PgError{Code: "23514"}, ConstraintCheck},
		{"pgx other", &pgconn.PgError{Code: "42P01"}, ConstraintNone},
		{"pq unique", &pq.Error{Code: "23505"}, ConstraintUnique},
		{"mysql unique", &mysql.MySQLError{Number: 1062}, ConstraintUnique},
		{"mysql fk parent", &mysql.MySQLError{Number: 1451}, ConstraintForeignKey},
		{"mysql fk child", &mysql.MySQLError{Number: 1452}, ConstraintForeignKey},
		{"mysql check", &mysql.MySQLError{Number: 3819}, ConstraintCheck},
		{"mysql other", &mysql.MySQLError{Number: 1146}, ConstraintNone},
		{"mssql unique", mssql.Error{Number: 2627}, ConstraintUnique},
		{"mssql fk", mssql.Error{Number: 547, Message: "The INSERT statement conflicted with the FOREIGN KEY constraint"}, ConstraintForeignKey},
		{"mssql check", mssql.Error{Number: 547, Message: "The INSERT statement conflicted with the CHECK constraint"}, ConstraintCheck},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), ConstraintUnique},
		{"sqlite text", errors.New("constraint failed: UNIQUE constraint failed: T.A (2067)"), ConstraintUnique},
		{"sqlite fk text", errors.New("FOREIGN KEY constraint failed"), ConstraintForeignKey},
		{"plain", errors.New("connection refused"), ConstraintNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Constraint(tt.err))
		})
	}
}

func TestIsConstraintError(t *testing.T) {
	err := &mysql.MySQLError{Number: 1062}
	assert.True(t, IsConstraintError(err))
	assert.True(t, IsUniqueConstraintError(err))
	assert.False(t, IsForeignKeyConstraintError(err))
	assert.False(t, IsCheckConstraintError(err))
	assert.False(t, IsConstraintError(errors.New("boom")))
	assert.Equal(t, "unique", ConstraintUnique.String())
}
