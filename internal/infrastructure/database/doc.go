// Package database opens the SQLite store behind comments, selection
// snapshots and saved filters, and applies the embedded schema migrations.
//
// The connection runs in WAL mode with a busy timeout and a single open
// connection. Migrations are versioned YYYYMMDD_HHMMSS_name.up.sql files with
// optional .down.sql rollbacks, read from MigrationsFS:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
