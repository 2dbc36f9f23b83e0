package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claude/replift/internal/models"
)

// PostgresBlobs stores documents as JSONB rows in the documents table.
type PostgresBlobs struct {
	Pool *pgxpool.Pool
}

// NewPostgresBlobs creates a connection pool and checks connectivity.
func NewPostgresBlobs(ctx context.Context, dsn string) (*PostgresBlobs, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresBlobs{Pool: pool}, nil
}

// Get returns the stored document for key.
func (p *PostgresBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := p.Pool.QueryRow(ctx, `SELECT data FROM documents WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put upserts the document for key. data must be valid JSON.
func (p *PostgresBlobs) Put(ctx context.Context, key string, data []byte) error {
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO documents (key, data, version, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (key) DO UPDATE
			SET data = EXCLUDED.data, version = EXCLUDED.version, updated_at = NOW()`,
		key, string(data), models.DocumentVersion)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes the document for key.
func (p *PostgresBlobs) Delete(ctx context.Context, key string) error {
	if _, err := p.Pool.Exec(ctx, `DELETE FROM documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresBlobs) Close() error {
	p.Pool.Close()
	return nil
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
