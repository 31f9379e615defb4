// Package database owns the SQLite connection used for contact messages.
//
// It provides:
//   - Open, with WAL mode and a busy timeout taken from config
//   - Versioned up/down migrations read from an fs.FS (normally the
//     embedded migrations package)
//   - HealthCheck for the /health endpoint
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// All queries use placeholders; the file is chmod 0600 after creation.
package database
