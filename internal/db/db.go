package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Open opens a PostgreSQL connection pool and verifies connectivity.
func Open(databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[DB] Connected to PostgreSQL")
	return conn, nil
}

const profilesTableSQL = `
	CREATE TABLE IF NOT EXISTS profiles (
		id                UUID PRIMARY KEY,
		email             TEXT NOT NULL DEFAULT '',
		verified          BOOLEAN NOT NULL DEFAULT FALSE,
		available_minutes INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const verificationTokensTableSQL = `
	CREATE TABLE IF NOT EXISTS verification_tokens (
		token      TEXT PRIMARY KEY,
		user_id    UUID NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		used       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

const processedEventsTableSQL = `
	CREATE TABLE IF NOT EXISTS processed_events (
		event_id   TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// EnsureSchema creates the tables the service needs if they do not exist.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range []string{profilesTableSQL, verificationTokensTableSQL, processedEventsTableSQL} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	log.Printf("[DB] Schema ensured")
	return nil
}
