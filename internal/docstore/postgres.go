package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists documents to a single "documents" table keyed by
// (collection, id), with the body in a jsonb column. It implements Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the documents table if it does not exist.
// Called once at startup by the server main.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT        NOT NULL,
			id         TEXT        NOT NULL,
			doc        JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)`)
	if err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, collection, id string, out any) error {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT doc FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return &StoreError{Op: "get", Collection: collection, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &StoreError{Op: "get", Collection: collection, Err: fmt.Errorf("decode %q: %w", id, err)}
	}
	return nil
}

// Put implements Store. Existing documents are overwritten.
func (s *PostgresStore) Put(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &StoreError{Op: "put", Collection: collection, Err: fmt.Errorf("encode %q: %w", id, err)}
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, doc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		collection, id, raw,
	)
	if err != nil {
		return &StoreError{Op: "put", Collection: collection, Err: err}
	}
	return nil
}

// Delete implements Store. Deleting a missing document is not an error.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	)
	if err != nil {
		return &StoreError{Op: "delete", Collection: collection, Err: err}
	}
	return nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, doc FROM documents WHERE collection = $1 ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, &StoreError{Op: "list", Collection: collection, Err: err}
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, &StoreError{Op: "list", Collection: collection, Err: err}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list", Collection: collection, Err: err}
	}
	return docs, nil
}
