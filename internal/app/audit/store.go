package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists audit entries in PostgreSQL. It satisfies Persister.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertAuditEntry writes one entry through to the audit_logs table.
func (s *Store) InsertAuditEntry(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, created_at, category, message)
		VALUES ($1, $2, $3, $4)`,
		e.ID, e.Timestamp, string(e.Category), e.Message,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first, for warming the
// in-memory trail after a restart.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, category, message
		FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var category string
		if err := rows.Scan(&e.ID, &e.Timestamp, &category, &e.Message); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Category = Category(category)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
