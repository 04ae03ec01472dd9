package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// epoch marks a row that has never opened a window.
var epoch = time.Unix(0, 0).UTC()

// PostgresStore keeps entries in a shared rate_limits table so several server
// replicas enforce one quota per client.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the rate_limits table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rate_limits (
			client_key TEXT PRIMARY KEY,
			count      INTEGER     NOT NULL,
			reset_at   TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// Take locks the client's row for the duration of one transaction and applies
// the fixed-window rule to it.
func (s *PostgresStore) Take(ctx context.Context, key string, now time.Time, policy Policy) (Decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Decision{}, fmt.Errorf("Take: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rate_limits (client_key, count, reset_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (client_key) DO NOTHING`, key, epoch,
	); err != nil {
		return Decision{}, fmt.Errorf("Take: %w", err)
	}

	var e Entry
	if err := tx.QueryRowContext(ctx, `
		SELECT count, reset_at FROM rate_limits
		WHERE client_key = $1
		FOR UPDATE`, key,
	).Scan(&e.Count, &e.ResetAt); err != nil {
		return Decision{}, fmt.Errorf("Take: %w", err)
	}
	if e.ResetAt.Equal(epoch) {
		e.ResetAt = time.Time{}
	}

	d := apply(&e, now, policy)
	if d.Allowed {
		if _, err := tx.ExecContext(ctx, `
			UPDATE rate_limits SET count = $2, reset_at = $3
			WHERE client_key = $1`, key, e.Count, e.ResetAt,
		); err != nil {
			return Decision{}, fmt.Errorf("Take: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Decision{}, fmt.Errorf("Take: %w", err)
	}
	return d, nil
}

// Sweep deletes rows whose window has ended.
func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE reset_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("Sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("Sweep: %w", err)
	}
	return int(n), nil
}
