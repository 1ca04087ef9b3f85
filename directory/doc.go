// Package directory provides auth.Directory implementations backed by
// infrastructure: a SQL store (PostgreSQL through pgx or SQLite through
// modernc.org/sqlite) with embedded goose migrations, a read-through cache
// layer, a resilience layer and an ordered chain.
//
// A typical stack, outermost first:
//
//	db, err := directory.Open(ctx, directory.DriverSQLite, "auth.db")
//	store, err := directory.NewSQLDirectory(db, directory.DriverSQLite)
//	var dir auth.Directory = directory.NewResilient(store, exec)
//	dir = directory.NewCached(dir, memCache, policy)
//
// Every implementation matches identifiers exactly and reports a missing
// account as auth.ErrAccountNotFound.
package directory
