// Package sqldao is a generic data-access engine for plain Go structs.
//
// Entity types describe their table mapping with `db` struct tags (see
// package schema). A Client binds an Executor, usually a *sql.Driver, to
// the entity metadata registry, and For returns a typed DAO:
//
//	type Account struct {
//	    schema.Table `db:"ACCOUNTS"`
//
//	    ID      int64  `db:",id,generated"`
//	    Owner   string
//	    Balance int64
//	    Version int    `db:",version"`
//	}
//
//	drv, err := sql.Open("pgx", dsn)
//	client, err := sqldao.NewClient(drv)
//	accounts := sqldao.For[Account](client)
//
//	acc := &Account{Owner: "ada"}
//	err = accounts.Insert(ctx, acc)       // acc.ID is assigned
//	acc, err = accounts.Find(ctx, acc.ID)
//	_, err = accounts.Update(ctx, acc)    // *OptimisticLockError on conflict
//
// # Queries
//
// Multi-row queries return a Result. Page and PageSize select one page,
// counted by a preceding count query. Defer returns a single-pass Cursor
// over the open result set instead of materialized items:
//
//	res, err := accounts.Page(2).PageSize(50).FindAll(ctx)
//	res, err = accounts.Defer().FindByQuery(ctx, "rich", 1000)
//	defer res.Cursor.Close()
//
// The settings apply to the next query call only.
//
// # Errors
//
// Errors are typed: *NotFoundError, *OptimisticLockError, *ConfigError,
// *MetadataError, *ArgumentError, *DriverError and *MappingError. Each has
// an IsXxx helper and most match a sentinel with errors.Is.
package sqldao
