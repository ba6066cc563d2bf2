// Package database provides the bridge's local SQLite store.
//
// It opens the database with WAL mode and a busy timeout, applies embedded
// schema migrations, and exposes health checks. The history package builds
// its repositories (device inventory, publish failures) on top of it.
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
