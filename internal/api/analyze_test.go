package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"germantopic/internal/capture"
	"germantopic/internal/config"
	"germantopic/internal/feedback"
	"germantopic/internal/quota"
	"germantopic/internal/stt"
)

type fakeCheckout struct {
	url   string
	calls int
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, _ string, _ string) (string, error) {
	f.calls++
	return f.url, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, h)
	return r
}

func newAnalyzeHandlers(t *testing.T, balance int, provider stt.Provider, generator feedback.Generator) (*Handlers, *quota.MemoryLedger, uuid.UUID) {
	t.Helper()

	ledger := quota.NewMemoryLedger()
	userID := uuid.New()
	if err := ledger.CreateProfile(context.Background(), userID, "u@example.com", balance); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	return &Handlers{
		Ledger:     ledger,
		STT:        provider,
		Feedback:   generator,
		Normalizer: feedback.NormalizerFor(feedback.VariantJSONMinimal),
		Sessions:   capture.NewStore(),
		Cfg:        &config.Config{},
	}, ledger, userID
}

func postAnalyze(t *testing.T, r *gin.Engine, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "clip.webm")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write([]byte("fake-audio-bytes")); err != nil {
		t.Fatalf("writing form file failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", userID.String())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeHappyPathDebitsOneMinute(t *testing.T) {
	provider := &stt.MockProvider{Result: &stt.Result{
		Transcript: "Ich habe gehen zum Markt",
		Provider:   "mock",
	}}
	generator := &feedback.MockGenerator{Payload: "```json\n" + `{
		"isGerman": true,
		"detectedLanguage": "German",
		"corrections": [{"wrong": "habe gehen", "correct": "bin gegangen"}]
	}` + "\n```"}

	h, ledger, userID := newAnalyzeHandlers(t, 3, provider, generator)
	r := newTestRouter(h)

	w := postAnalyze(t, r, userID)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", w.Body.String())
	}

	var data struct {
		Transcript  string          `json:"transcript"`
		Feedback    feedback.Result `json:"feedback"`
		MinutesLeft int             `json:"minutes_left"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data payload: %v", err)
	}

	if data.Transcript != "Ich habe gehen zum Markt" {
		t.Errorf("unexpected transcript %q", data.Transcript)
	}
	if len(data.Feedback.Corrections) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(data.Feedback.Corrections))
	}
	if data.Feedback.Corrections[0].Wrong != "habe gehen" {
		t.Errorf("unexpected correction %+v", data.Feedback.Corrections[0])
	}
	if data.MinutesLeft != 2 {
		t.Errorf("expected minutes_left 2, got %d", data.MinutesLeft)
	}

	balance, _ := ledger.Balance(context.Background(), userID)
	if balance != 2 {
		t.Errorf("expected balance 2 after debit, got %d", balance)
	}
	if provider.Calls != 1 || generator.Calls != 1 {
		t.Errorf("expected one provider and one generator call, got %d and %d", provider.Calls, generator.Calls)
	}
}

func TestAnalyzeExhaustedBalanceDivertsToCheckout(t *testing.T) {
	provider := &stt.MockProvider{Result: &stt.Result{Transcript: "unused"}}
	generator := &feedback.MockGenerator{Payload: "{}"}

	h, ledger, userID := newAnalyzeHandlers(t, 0, provider, generator)
	checkout := &fakeCheckout{url: "https://checkout.example/cs_test"}
	h.Checkout = checkout
	h.Cfg.DefaultPriceID = "price_10min"
	r := newTestRouter(h)

	w := postAnalyze(t, r, userID)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data payload: %v", err)
	}
	if data.CheckoutURL != "https://checkout.example/cs_test" {
		t.Errorf("unexpected checkout_url %q", data.CheckoutURL)
	}

	if provider.Calls != 0 {
		t.Errorf("pipeline ran despite exhausted balance: %d transcription call(s)", provider.Calls)
	}
	if checkout.calls != 1 {
		t.Errorf("expected one checkout session, got %d", checkout.calls)
	}

	balance, _ := ledger.Balance(context.Background(), userID)
	if balance != 0 {
		t.Errorf("expected balance to stay 0, got %d", balance)
	}
}

func TestAnalyzeMalformedFeedbackLeavesBalanceUntouched(t *testing.T) {
	provider := &stt.MockProvider{Result: &stt.Result{Transcript: "Hallo Welt"}}
	generator := &feedback.MockGenerator{Payload: "I'm sorry, I cannot produce JSON today."}

	h, ledger, userID := newAnalyzeHandlers(t, 3, provider, generator)
	r := newTestRouter(h)

	w := postAnalyze(t, r, userID)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if env.Error != genericPipelineError {
		t.Errorf("expected generic error message, got %q", env.Error)
	}

	balance, _ := ledger.Balance(context.Background(), userID)
	if balance != 3 {
		t.Errorf("expected balance unchanged at 3, got %d", balance)
	}
}

func TestAnalyzeMissingProfileIsNotZeroBalance(t *testing.T) {
	provider := &stt.MockProvider{Result: &stt.Result{Transcript: "unused"}}
	generator := &feedback.MockGenerator{Payload: "{}"}

	h, _, _ := newAnalyzeHandlers(t, 3, provider, generator)
	h.Checkout = &fakeCheckout{url: "https://checkout.example/cs_test"}
	h.Cfg.DefaultPriceID = "price_10min"
	r := newTestRouter(h)

	w := postAnalyze(t, r, uuid.New())
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown profile, got %d: %s", w.Code, w.Body.String())
	}
	if provider.Calls != 0 {
		t.Errorf("pipeline ran for unknown profile: %d transcription call(s)", provider.Calls)
	}
}

func TestAnalyzeTranscriptionFailureReturnsGenericError(t *testing.T) {
	provider := &stt.MockProvider{Err: context.DeadlineExceeded}
	generator := &feedback.MockGenerator{Payload: "{}"}

	h, ledger, userID := newAnalyzeHandlers(t, 2, provider, generator)
	r := newTestRouter(h)

	w := postAnalyze(t, r, userID)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
	if generator.Calls != 0 {
		t.Errorf("feedback ran after transcription failure: %d call(s)", generator.Calls)
	}

	balance, _ := ledger.Balance(context.Background(), userID)
	if balance != 2 {
		t.Errorf("expected balance unchanged at 2, got %d", balance)
	}
}

func TestAnalyzeRequiresClipOrSession(t *testing.T) {
	h, _, userID := newAnalyzeHandlers(t, 3,
		&stt.MockProvider{Result: &stt.Result{}},
		&feedback.MockGenerator{Payload: "{}"})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	req.Header.Set("X-User-ID", userID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file or session_id, got %d", w.Code)
	}
}

func TestAnalyzeFromCaptureSessionUsesLastClip(t *testing.T) {
	provider := &stt.MockProvider{Result: &stt.Result{Transcript: "Guten Morgen"}}
	generator := &feedback.MockGenerator{Payload: `{"isGerman": true, "detectedLanguage": "German", "corrections": []}`}

	h, _, userID := newAnalyzeHandlers(t, 1, provider, generator)
	r := newTestRouter(h)

	sessionID := h.Sessions.Create()
	session, _ := h.Sessions.Get(sessionID)
	if err := session.Start("audio/webm"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := session.Write([]byte("chunk")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := session.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze?session_id="+sessionID, nil)
	req.Header.Set("X-User-ID", userID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if provider.Calls != 1 {
		t.Errorf("expected one transcription call, got %d", provider.Calls)
	}
}

func TestAcquireUserSingleFlight(t *testing.T) {
	h := &Handlers{}
	userID := uuid.New()

	release, ok := h.acquireUser(userID)
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := h.acquireUser(userID); ok {
		t.Error("second acquire while held should fail")
	}

	otherRelease, ok := h.acquireUser(uuid.New())
	if !ok {
		t.Error("a different user must not be blocked")
	}
	otherRelease()

	release()
	again, ok := h.acquireUser(userID)
	if !ok {
		t.Error("acquire after release should succeed")
	}
	again()
}

func TestIdleUserGatesAreReaped(t *testing.T) {
	provider := &stt.MockProvider{Result: &stt.Result{Transcript: "Hallo"}}
	generator := &feedback.MockGenerator{Payload: `{"isGerman": true, "detectedLanguage": "German", "corrections": []}`}

	h, _, userID := newAnalyzeHandlers(t, 3, provider, generator)
	r := newTestRouter(h)

	for i := 0; i < 3; i++ {
		if w := postAnalyze(t, r, userID); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	h.gateMu.Lock()
	left := len(h.gates)
	h.gateMu.Unlock()
	if left != 0 {
		t.Errorf("expected gate map empty after requests finished, %d entries left", left)
	}
}

func TestGetMinutes(t *testing.T) {
	h, _, userID := newAnalyzeHandlers(t, 7,
		&stt.MockProvider{Result: &stt.Result{}},
		&feedback.MockGenerator{Payload: "{}"})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/minutes", nil)
	req.Header.Set("X-User-ID", userID.String())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	var data struct {
		AvailableMinutes int `json:"available_minutes"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data payload: %v", err)
	}
	if data.AvailableMinutes != 7 {
		t.Errorf("expected 7 available minutes, got %d", data.AvailableMinutes)
	}
}
