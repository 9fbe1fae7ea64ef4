package payment

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"germantopic/internal/quota"
)

// Processor handles verified payment webhooks: it authenticates the delivery,
// deduplicates repeat deliveries of the same event, resolves the purchased
// package and credits the quota ledger.
type Processor struct {
	Verifier     Verifier
	Prices       PriceResolver
	Events       EventStore
	Ledger       quota.Ledger
	PriceMinutes map[string]int
}

// HandleWebhook processes one raw webhook delivery. It returns the number of
// minutes credited (0 for ignored or duplicate events). A verification
// failure returns ErrVerification with zero side effects.
func (p *Processor) HandleWebhook(ctx context.Context, payload []byte, signature string) (int, error) {
	event, err := p.Verifier.Verify(payload, signature)
	if err != nil {
		return 0, err
	}

	log.Printf("[Payment] Incoming event: id=%s, type=%s", event.ID, event.Type)

	if event.Type != EventTypeCheckoutCompleted {
		return 0, nil
	}

	if event.UserID == "" {
		log.Printf("[Payment] Event %s has no user_id metadata, skipping", event.ID)
		return 0, nil
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return 0, fmt.Errorf("invalid user_id metadata %q: %w", event.UserID, err)
	}

	// Resolve the purchased package before opening the dedup window: if
	// the price lookup fails here, the event is still unmarked and the
	// provider's retry gets a clean second attempt.
	priceID, err := p.Prices.SessionPriceID(ctx, event.SessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve session price: %w", err)
	}

	minutes, ok := p.PriceMinutes[priceID]
	if !ok || minutes <= 0 {
		log.Printf("[Payment] No minute mapping for price %s, nothing to credit", priceID)
		return 0, nil
	}

	// Dedup opens only once the credit is ready to apply: a repeat
	// delivery must credit at most once.
	already, err := p.Events.MarkProcessed(ctx, event.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to record event: %w", err)
	}
	if already {
		log.Printf("[Payment] Event %s already processed, skipping credit", event.ID)
		return 0, nil
	}

	balance, err := p.Ledger.Increment(ctx, userID, minutes)
	if err != nil {
		// Release the mark so the provider's retry of this event can
		// credit; otherwise the top-up would be lost.
		if unmarkErr := p.Events.Unmark(ctx, event.ID); unmarkErr != nil {
			log.Printf("[Payment] Warning: failed to release event %s after credit failure: %v", event.ID, unmarkErr)
		}
		return 0, fmt.Errorf("failed to credit %d minute(s) to user %s: %w", minutes, userID, err)
	}

	log.Printf("[Payment] Credited %d minute(s) to user %s, balance now %d", minutes, userID, balance)
	return minutes, nil
}
