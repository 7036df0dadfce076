// Package database provides SQLite connectivity for the lightshow controller.
//
// The database records compile runs (one row per sequence build, with the
// frame count, universe width and content hash of the produced frame store)
// and playback sessions. Frame data itself never goes into SQLite; it lives
// in raw frame store files next to the database.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns must be NULLABLE or carry a DEFAULT.
package database
