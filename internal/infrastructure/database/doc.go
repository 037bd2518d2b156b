// Package database provides SQLite connection management and schema
// migrations for the Hearth interaction log.
//
// The database is a single local SQLite file. Connections are limited
// to one writer, with WAL mode enabled for concurrent readers.
// Migrations are embedded SQL files registered by the migrations
// package via MigrationsFS, applied in filename-timestamp order with
// one transaction per migration.
//
// Usage:
//
//	db, err := database.Open(database.Config{
//		Path:        "./data/hearth.db",
//		WALMode:     true,
//		BusyTimeout: 5,
//	})
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//		return err
//	}
package database
