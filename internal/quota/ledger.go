package quota

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrProfileNotFound distinguishes "no profile" from a zero balance. Callers
// must block the pipeline on it rather than proceed as if minutes were zero.
var ErrProfileNotFound = errors.New("profile not found")

// Ledger tracks the per-user available-minutes balance. The balance gates
// entry into the feedback pipeline and is debited only after a usable result.
type Ledger interface {
	// Balance returns the current balance, or ErrProfileNotFound.
	Balance(ctx context.Context, userID uuid.UUID) (int, error)

	// Decrement subtracts n with a floor of zero and returns the new balance.
	Decrement(ctx context.Context, userID uuid.UUID, n int) (int, error)

	// Increment adds n and returns the new balance.
	Increment(ctx context.Context, userID uuid.UUID, n int) (int, error)

	// CreateProfile creates a profile with an initial balance.
	CreateProfile(ctx context.Context, userID uuid.UUID, email string, initialMinutes int) error
}
