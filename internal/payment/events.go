package payment

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

type postgresEventStore struct {
	db *sql.DB
}

// NewPostgresEventStore creates an EventStore over the processed_events table.
func NewPostgresEventStore(db *sql.DB) EventStore {
	return &postgresEventStore{db: db}
}

// MarkProcessed inserts the event ID; a conflict means a prior delivery of
// the same event already claimed the credit.
func (s *postgresEventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return inserted == 0, nil
}

func (s *postgresEventStore) Unmark(ctx context.Context, eventID string) error {
	query := `DELETE FROM processed_events WHERE event_id = $1`

	if _, err := s.db.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("failed to unmark event: %w", err)
	}
	return nil
}

// MemoryEventStore is an in-memory EventStore for tests and database-less runs.
type MemoryEventStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{seen: make(map[string]bool)}
}

func (s *MemoryEventStore) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[eventID] {
		return true, nil
	}
	s.seen[eventID] = true
	return false, nil
}

func (s *MemoryEventStore) Unmark(_ context.Context, eventID string) error {
	s.mu.Lock()
	delete(s.seen, eventID)
	s.mu.Unlock()
	return nil
}
