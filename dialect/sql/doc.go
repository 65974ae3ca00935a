// Package sql provides the database/sql based driver layer and the SQL
// statement builders of the DAO engine.
//
// # Statements
//
// The builders are pure functions of entity metadata:
//
//	sql.SelectAll(e)          // SELECT ID, NAME FROM T
//	sql.SelectByID(e, ids)    // ... WHERE ID = ?
//	sql.Update(e, ids)        // UPDATE T SET NAME = ?, VERSION = VERSION + 1 WHERE ID = ? AND VERSION = ?
//	sql.Delete(e, ids)        // DELETE FROM T WHERE ID = ?
//	sql.Insert(e)             // INSERT INTO T (ID, NAME) VALUES (?, ?)
//	sql.InsertIdentity(e)     // INSERT INTO T (NAME) VALUES (?)
//
// A BatchStatement carries the columns bound to its placeholders so the
// same SQL can be executed once per entity.
//
// # Driver
//
// Placeholders are written as ? and rebound per dialect before execution:
//
//	drv, err := sql.Open("pgx", dsn)
//	counts, err := drv.ExecBatch(ctx, stmt.Query, argv)
//	keys, err := drv.ExecReturning(ctx, stmt.Query, "ID", argv)
//
// # Dialects
//
// Postgres, MySQL, SQLite and SQLServer are registered by default and
// report identity/sequence support, pagination syntax, generated-key
// retrieval and primary-key inspection queries.
//
// # Statistics
//
// StatsDriver and DebugDriver wrap a Driver to record query statistics
// and log statements through log/slog.
package sql
