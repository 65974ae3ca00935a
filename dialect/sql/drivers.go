package sql

import (
	// Registers the "pgx" database/sql driver. The "postgres", "mysql",
	// "sqlite" and "sqlserver" drivers register through the packages
	// imported for error classification.
	_ "github.com/jackc/pgx/v5/stdlib"
)
