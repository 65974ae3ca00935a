// Package schema builds the mapping metadata of entity types.
//
// An entity is a plain struct. Table metadata is declared on an embedded
// Table marker and column metadata on `db` struct tags:
//
//	type Account struct {
//	    schema.Table `db:"ACCOUNTS,schema=billing"`
//
//	    ID      int64     `db:",id,generated"`
//	    Owner   string    `db:"OWNER_NAME"`
//	    Opened  time.Time `db:",temporal=date"`
//	    Version int       `db:",version"`
//	    Branch  *Branch   `db:",ref"`
//	}
//
// Undeclared names are derived in upper-case underscore form (UserID becomes
// USER_ID). Fields tagged `db:"-"` and relationships to other entities are
// not mapped.
//
// # Registry
//
// A Registry builds each Entity once and caches it:
//
//	reg := schema.NewRegistry(dialect.Flags{Identity: true})
//	e, err := schema.Of[Account](reg)
//
// Generated columns have their strategy resolved against the registry's
// capabilities when the entity is built (see ResolveStrategy). Types
// implementing Describer skip tag parsing and use their static Definition,
// as emitted by the daogen code generator.
package schema
