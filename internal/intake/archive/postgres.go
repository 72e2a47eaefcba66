// internal/intake/archive/postgres.go
package archive

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresReservation reserves canonical keys through a unique-key
// insert. ON CONFLICT DO NOTHING makes the check-and-reserve a single
// atomic statement; RowsAffected tells whether this caller won the key.
type PostgresReservation struct {
	db *sql.DB
}

func NewPostgresReservation(db *sql.DB) *PostgresReservation {
	return &PostgresReservation{db: db}
}

// EnsureSchema creates the reservation table when missing.
func (p *PostgresReservation) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS archive_keys (
			key         TEXT PRIMARY KEY,
			reserved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure archive_keys table: %w", err)
	}
	return nil
}

func (p *PostgresReservation) Reserve(ctx context.Context, key string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO archive_keys (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, key)
	if err != nil {
		return false, fmt.Errorf("postgres reserve %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres reserve %s: %w", key, err)
	}
	return n == 1, nil
}
