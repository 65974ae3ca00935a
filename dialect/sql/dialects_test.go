package sql

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldao/dialect"
	"github.com/syssam/sqldao/schema/field"
)

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{
		"postgres":  dialect.Postgres,
		"pgx":       dialect.Postgres,
		"sqlite":    dialect.SQLite,
		"sqlite3":   dialect.SQLite,
		"mysql":     dialect.MySQL,
		"mssql":     dialect.SQLServer,
		"sqlserver": dialect.SQLServer,
	} {
		d, err := DialectFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name(), name)
	}
	_, err := DialectFor("oracle")
	require.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		d                  Dialect
		identity, sequence bool
	}{
		{Postgres{}, true, true},
		{SQLServer{}, true, true},
		{MySQL{}, true, false},
		{SQLite{}, true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.identity, tt.d.SupportsIdentity(), tt.d.Name())
		assert.Equal(t, tt.sequence, tt.d.SupportsSequence(), tt.d.Name())
	}
}

func TestPaginate(t *testing.T) {
	q, args := Postgres{}.Paginate("SELECT ID FROM T ORDER BY ID", 4, 2)
	assert.Equal(t, "SELECT ID FROM T ORDER BY ID LIMIT ? OFFSET ?", q)
	assert.Equal(t, []any{2, 4}, args)

	q, args = SQLServer{}.Paginate("SELECT ID FROM T ORDER BY ID", 4, 2)
	assert.Equal(t, "SELECT ID FROM T ORDER BY ID OFFSET ? ROWS FETCH NEXT ? ROWS ONLY", q)
	assert.Equal(t, []any{4, 2}, args)

	q, _ = SQLServer{}.Paginate("SELECT ID FROM T", 0, 10)
	assert.Equal(t, "SELECT ID FROM T ORDER BY (SELECT NULL) OFFSET ? ROWS FETCH NEXT ? ROWS ONLY", q)
}

func TestReturning(t *testing.T) {
	const insert = "INSERT INTO T (A) VALUES (?)"
	q, ok := Postgres{}.Returning(insert, "ID")
	require.True(t, ok)
	assert.Equal(t, "INSERT INTO T (A) VALUES (?) RETURNING ID", q)

	q, ok = SQLServer{}.Returning(insert, "ID")
	require.True(t, ok)
	assert.Equal(t, "INSERT INTO T (A) OUTPUT INSERTED.ID VALUES (?)", q)

	_, ok = MySQL{}.Returning(insert, "ID")
	assert.False(t, ok)
	_, ok = SQLite{}.Returning(insert, "ID")
	assert.False(t, ok)
}

func TestNextValQuery(t *testing.T) {
	q, args, err := Postgres{}.NextValQuery("billing.ACCOUNT_SEQ")
	require.NoError(t, err)
	assert.Equal(t, "SELECT nextval(?)", q)
	assert.Equal(t, []any{"billing.ACCOUNT_SEQ"}, args)

	q, args, err = SQLServer{}.NextValQuery("ACCOUNT_SEQ")
	require.NoError(t, err)
	assert.Equal(t, "SELECT NEXT VALUE FOR ACCOUNT_SEQ", q)
	assert.Empty(t, args)

	_, _, err = SQLServer{}.NextValQuery("X; DROP TABLE T")
	require.Error(t, err)
	_, _, err = MySQL{}.NextValQuery("ACCOUNT_SEQ")
	require.Error(t, err)
}

func TestPrimaryKeyQuery(t *testing.T) {
	q, args := Postgres{}.PrimaryKeyQuery("", "ORDERS")
	assert.Contains(t, q, "current_schema()")
	assert.Contains(t, q, "ORDER BY kcu.ordinal_position")
	assert.Equal(t, []any{"ORDERS", ""}, args)

	q, _ = MySQL{}.PrimaryKeyQuery("shop", "ORDERS")
	assert.Contains(t, q, "DATABASE()")

	q, args = SQLite{}.PrimaryKeyQuery("main", "ORDERS")
	assert.Equal(t, "SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk", q)
	assert.Equal(t, []any{"ORDERS", "main"}, args)
}

func TestMySQLConvertBit(t *testing.T) {
	v, err := MySQL{}.Convert([]byte{1}, reflect.TypeOf(false), field.TemporalNone)
	require.NoError(t, err)
	assert.Equal(t, true, v.Interface())

	v, err = MySQL{}.Convert(int64(0), reflect.TypeOf(false), field.TemporalNone)
	require.NoError(t, err)
	assert.Equal(t, false, v.Interface())
}

func TestRebind(t *testing.T) {
	const q = "SELECT A FROM T WHERE ID = ? AND V = ?"
	assert.Equal(t, "SELECT A FROM T WHERE ID = $1 AND V = $2", Rebind(dialect.Postgres, q))
	assert.Equal(t, "SELECT A FROM T WHERE ID = @p1 AND V = @p2", Rebind(dialect.SQLServer, q))
	assert.Equal(t, q, Rebind(dialect.MySQL, q))
	assert.Equal(t, q, Rebind("sqlite", q))
}
