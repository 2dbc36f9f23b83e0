// Package storage persists the training document and serves it to the
// analytics engine.
//
// The document is kept as one JSON blob under a configurable key. Blobs are
// the byte-level backends (a directory of files, a SQLite table or a
// PostgreSQL table); Store is the typed layer on top that owns the decoded
// document and flushes the metric cache after every analytic mutation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/replift/internal/config"
)

var (
	// ErrNoDocument is returned by Blobs.Get when nothing is stored under the key.
	ErrNoDocument = errors.New("no document stored")
	// ErrNotFound is returned when a session, program or active session does not exist.
	ErrNotFound = errors.New("not found")
)

// Blobs stores opaque documents by key.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MigrationsDir is where the PostgreSQL schema migrations live, relative to
// the working directory.
const MigrationsDir = "migrations"

// OpenBlobs selects and opens the backend named by cfg.Driver. For PostgreSQL it
// applies pending migrations first.
func OpenBlobs(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (Blobs, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		log.Info("using file storage", "dir", cfg.Path)
		return NewFileBlobs(cfg.Path)
	case config.DriverSQLite:
		log.Info("using sqlite storage", "path", cfg.Path)
		return OpenSQLiteBlobs(cfg.Path)
	case config.DriverPostgres:
		dsn := cfg.Postgres.DSN()
		if err := RunMigrations(dsn, MigrationsDir); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
		return NewPostgresBlobs(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
