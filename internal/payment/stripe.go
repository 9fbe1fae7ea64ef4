package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeClient implements Checkout, Verifier and PriceResolver against the
// Stripe API.
type StripeClient struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeClient creates a Stripe client. The secret key and webhook secret
// are injected, never read from the environment here.
func NewStripeClient(secretKey, webhookSecret, successURL, cancelURL string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeClient{
		api:           api,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

// CreateCheckoutSession creates a one-off payment session carrying the user
// ID as reconciliation metadata and returns the redirect URL.
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	log.Printf("[Payment] Checkout session created: id=%s, user=%s, price=%s", session.ID, userID, priceID)
	return session.URL, nil
}

// Verify authenticates the raw webhook body against the shared secret and
// extracts the fields the credit path needs.
func (s *StripeClient) Verify(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	out := &Event{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if out.Type == EventTypeCheckoutCompleted {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session payload: %w", err)
		}
		out.SessionID = session.ID
		out.UserID = session.Metadata["user_id"]
	}

	return out, nil
}

// SessionPriceID fetches the session's line items and returns the first
// price ID, which determines the purchased minute package.
func (s *StripeClient) SessionPriceID(ctx context.Context, sessionID string) (string, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.Context = ctx

	iter := s.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		item := iter.LineItem()
		if item.Price != nil {
			return item.Price.ID, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("failed to list checkout line items: %w", err)
	}
	return "", fmt.Errorf("checkout session %s has no priced line items", sessionID)
}
