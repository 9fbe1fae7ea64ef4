package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestBalanceMissingProfileIsNotZero(t *testing.T) {
	ledger := NewMemoryLedger()

	_, err := ledger.Balance(context.Background(), uuid.New())
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestDecrementFloorsAtZero(t *testing.T) {
	ledger := NewMemoryLedger()
	userID := uuid.New()

	if err := ledger.CreateProfile(context.Background(), userID, "u@example.com", 2); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	balance, err := ledger.Decrement(context.Background(), userID, 1)
	if err != nil {
		t.Fatalf("Decrement failed: %v", err)
	}
	if balance != 1 {
		t.Errorf("expected balance 1, got %d", balance)
	}

	balance, err = ledger.Decrement(context.Background(), userID, 5)
	if err != nil {
		t.Fatalf("Decrement failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected balance clamped at 0, got %d", balance)
	}

	balance, err = ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected persisted balance 0, got %d", balance)
	}
}

func TestIncrement(t *testing.T) {
	ledger := NewMemoryLedger()
	userID := uuid.New()

	if err := ledger.CreateProfile(context.Background(), userID, "u@example.com", 0); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	balance, err := ledger.Increment(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if balance != 10 {
		t.Errorf("expected balance 10, got %d", balance)
	}

	if _, err := ledger.Increment(context.Background(), uuid.New(), 10); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound for unknown user, got %v", err)
	}
}
