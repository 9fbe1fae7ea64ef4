package quota

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory Ledger used in tests and when running without
// a database.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[uuid.UUID]int),
	}
}

func (l *MemoryLedger) Balance(_ context.Context, userID uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[userID]
	if !ok {
		return 0, ErrProfileNotFound
	}
	return balance, nil
}

func (l *MemoryLedger) Decrement(_ context.Context, userID uuid.UUID, n int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[userID]
	if !ok {
		return 0, ErrProfileNotFound
	}

	balance -= n
	if balance < 0 {
		balance = 0
	}
	l.balances[userID] = balance
	return balance, nil
}

func (l *MemoryLedger) Increment(_ context.Context, userID uuid.UUID, n int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[userID]
	if !ok {
		return 0, ErrProfileNotFound
	}

	balance += n
	l.balances[userID] = balance
	return balance, nil
}

func (l *MemoryLedger) CreateProfile(_ context.Context, userID uuid.UUID, _ string, initialMinutes int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = initialMinutes
	return nil
}
