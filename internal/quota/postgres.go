package quota

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
)

type postgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a Postgres-backed ledger over the profiles table.
func NewPostgresLedger(db *sql.DB) Ledger {
	return &postgresLedger{db: db}
}

func (l *postgresLedger) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT available_minutes FROM profiles WHERE id = $1`

	var balance int
	err := l.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// Decrement uses an atomic floor-at-zero update so concurrent debits from the
// same user cannot drive the balance negative.
func (l *postgresLedger) Decrement(ctx context.Context, userID uuid.UUID, n int) (int, error) {
	query := `
		UPDATE profiles
		SET available_minutes = GREATEST(available_minutes - $2, 0)
		WHERE id = $1
		RETURNING available_minutes
	`

	var balance int
	err := l.db.QueryRowContext(ctx, query, userID, n).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement balance: %w", err)
	}

	log.Printf("[Quota] Decremented %d minute(s) for user %s, balance now %d", n, userID, balance)
	return balance, nil
}

func (l *postgresLedger) Increment(ctx context.Context, userID uuid.UUID, n int) (int, error) {
	query := `
		UPDATE profiles
		SET available_minutes = available_minutes + $2
		WHERE id = $1
		RETURNING available_minutes
	`

	var balance int
	err := l.db.QueryRowContext(ctx, query, userID, n).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment balance: %w", err)
	}

	log.Printf("[Quota] Added %d minute(s) for user %s, balance now %d", n, userID, balance)
	return balance, nil
}

func (l *postgresLedger) CreateProfile(ctx context.Context, userID uuid.UUID, email string, initialMinutes int) error {
	query := `
		INSERT INTO profiles (id, email, available_minutes)
		VALUES ($1, $2, $3)
	`

	if _, err := l.db.ExecContext(ctx, query, userID, email, initialMinutes); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	log.Printf("[Quota] Created profile %s with %d initial minute(s)", userID, initialMinutes)
	return nil
}
