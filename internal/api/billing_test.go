package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"germantopic/internal/config"
	"germantopic/internal/payment"
	"germantopic/internal/quota"
)

type stubVerifier struct {
	event *payment.Event
	err   error
}

func (s *stubVerifier) Verify(_ []byte, _ string) (*payment.Event, error) {
	return s.event, s.err
}

type stubPrices struct {
	priceID string
}

func (s *stubPrices) SessionPriceID(_ context.Context, _ string) (string, error) {
	return s.priceID, nil
}

func newWebhookHandlers(t *testing.T, verifier payment.Verifier) (*Handlers, *quota.MemoryLedger, uuid.UUID) {
	t.Helper()

	ledger := quota.NewMemoryLedger()
	userID := uuid.New()
	if err := ledger.CreateProfile(context.Background(), userID, "u@example.com", 0); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	return &Handlers{
		Ledger: ledger,
		Webhooks: &payment.Processor{
			Verifier:     verifier,
			Prices:       &stubPrices{priceID: "price_10min"},
			Events:       payment.NewMemoryEventStore(),
			Ledger:       ledger,
			PriceMinutes: map[string]int{"price_10min": 10},
		},
		Cfg: &config.Config{},
	}, ledger, userID
}

func postWebhook(t *testing.T, r *gin.Engine, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe-webhook", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", signature)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookInvalidSignatureReturns400(t *testing.T) {
	h, ledger, userID := newWebhookHandlers(t, &stubVerifier{err: payment.ErrVerification})
	r := newTestRouter(h)

	w := postWebhook(t, r, "bad-sig")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d: %s", w.Code, w.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if env.Error != "invalid signature" {
		t.Errorf("expected invalid signature message, got %q", env.Error)
	}

	balance, _ := ledger.Balance(context.Background(), userID)
	if balance != 0 {
		t.Errorf("ledger mutated on rejected webhook: balance %d", balance)
	}
}

func TestWebhookCreditsMinutesOverHTTP(t *testing.T) {
	verifier := &stubVerifier{}
	h, ledger, userID := newWebhookHandlers(t, verifier)
	verifier.event = &payment.Event{
		ID:        "evt_1",
		Type:      payment.EventTypeCheckoutCompleted,
		SessionID: "cs_1",
		UserID:    userID.String(),
	}
	r := newTestRouter(h)

	w := postWebhook(t, r, "sig")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	var data struct {
		Received     bool `json:"received"`
		MinutesAdded int  `json:"minutes_added"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data payload: %v", err)
	}
	if !data.Received || data.MinutesAdded != 10 {
		t.Errorf("expected received=true, minutes_added=10, got %+v", data)
	}

	balance, _ := ledger.Balance(context.Background(), userID)
	if balance != 10 {
		t.Errorf("expected balance 10, got %d", balance)
	}
}

func TestWebhookWithoutPaymentsConfigured(t *testing.T) {
	h := &Handlers{Cfg: &config.Config{}}
	r := newTestRouter(h)

	w := postWebhook(t, r, "sig")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when payments are not configured, got %d", w.Code)
	}
}
