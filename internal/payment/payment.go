package payment

import (
	"context"
	"errors"
)

// ErrVerification means a webhook payload failed signature verification.
// Handlers must reject it and perform no side effects.
var ErrVerification = errors.New("webhook signature verification failed")

// EventTypeCheckoutCompleted is the only event type that credits minutes.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// Event is the subset of a payment-provider webhook event the credit path
// needs. UserID comes from the checkout session's reconciliation metadata.
type Event struct {
	ID        string
	Type      string
	SessionID string
	UserID    string
}

// Checkout creates payment sessions with the external provider.
type Checkout interface {
	// CreateCheckoutSession creates a session tagged with userID and
	// returns the redirect URL. No local state is mutated.
	CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error)
}

// Verifier authenticates a raw webhook delivery against the shared secret.
type Verifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

// PriceResolver looks up which price a completed checkout session purchased.
type PriceResolver interface {
	SessionPriceID(ctx context.Context, sessionID string) (string, error)
}

// EventStore records processed webhook event IDs so repeat deliveries of the
// same event credit at most once.
type EventStore interface {
	// MarkProcessed records the event ID and reports whether it was
	// already processed.
	MarkProcessed(ctx context.Context, eventID string) (alreadyProcessed bool, err error)

	// Unmark releases a marked event ID so the provider's retry of the
	// same event can be processed. Used when crediting fails after the
	// mark; without it the retry would be skipped as a duplicate and the
	// paid top-up lost.
	Unmark(ctx context.Context, eventID string) error
}
