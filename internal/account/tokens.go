package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTokenNotFound = errors.New("verification token not found")
	ErrTokenExpired  = errors.New("verification token expired")
	ErrTokenUsed     = errors.New("verification token already used")
)

// TokenStore persists email verification tokens.
type TokenStore interface {
	Insert(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error

	// Consume marks the token used and returns its user. Expired or
	// already-used tokens fail without side effects.
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}

type postgresTokenStore struct {
	db *sql.DB
}

// NewPostgresTokenStore creates a TokenStore over the verification_tokens table.
func NewPostgresTokenStore(db *sql.DB) TokenStore {
	return &postgresTokenStore{db: db}
}

func (s *postgresTokenStore) Insert(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	query := `
		INSERT INTO verification_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`

	if _, err := s.db.ExecContext(ctx, query, token, userID, expiresAt); err != nil {
		return fmt.Errorf("failed to insert verification token: %w", err)
	}
	return nil
}

func (s *postgresTokenStore) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	query := `SELECT user_id, expires_at, used FROM verification_tokens WHERE token = $1`

	var userID uuid.UUID
	var expiresAt time.Time
	var used bool

	err := s.db.QueryRowContext(ctx, query, token).Scan(&userID, &expiresAt, &used)
	if err == sql.ErrNoRows {
		return uuid.Nil, ErrTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read verification token: %w", err)
	}

	if used {
		return uuid.Nil, ErrTokenUsed
	}
	if time.Now().After(expiresAt) {
		return uuid.Nil, ErrTokenExpired
	}

	update := `UPDATE verification_tokens SET used = TRUE WHERE token = $1`
	if _, err := s.db.ExecContext(ctx, update, token); err != nil {
		return uuid.Nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	return userID, nil
}

// MemoryTokenStore is an in-memory TokenStore for tests.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
}

type memoryToken struct {
	userID    uuid.UUID
	expiresAt time.Time
	used      bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memoryToken)}
}

func (s *MemoryTokenStore) Insert(_ context.Context, token string, userID uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *MemoryTokenStore) Consume(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return uuid.Nil, ErrTokenNotFound
	}
	if t.used {
		return uuid.Nil, ErrTokenUsed
	}
	if time.Now().After(t.expiresAt) {
		return uuid.Nil, ErrTokenExpired
	}

	t.used = true
	s.tokens[token] = t
	return t.userID, nil
}
