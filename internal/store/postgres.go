package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresBackend keeps the document as one jsonb row. The single-row model
// matches the single-logical-writer design: the last full-document write
// wins, the same limitation the file backend has.
type PostgresBackend struct {
	db *sql.DB
}

// OpenPostgres connects to Postgres and prepares the document table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	b := NewPostgresBackend(db)
	if err := b.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewPostgresBackend wraps an existing connection pool (tests pass sqlmock).
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Init creates the document table when absent.
func (b *PostgresBackend) Init(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
		create table if not exists rrsa_document (
			id smallint primary key check (id = 1),
			data jsonb not null,
			updated_at timestamptz not null default now()
		)`)
	return err
}

// Close releases the underlying pool.
func (b *PostgresBackend) Close() error { return b.db.Close() }

// DB exposes the pool for readiness probes.
func (b *PostgresBackend) DB() *sql.DB { return b.db }

// Load fetches the single document row.
func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `select data from rrsa_document where id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save upserts the single document row.
func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		insert into rrsa_document (id, data, updated_at)
		values (1, $1, now())
		on conflict (id) do update
		set data = excluded.data, updated_at = now()`, data)
	return err
}
