package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"germantopic/internal/capture"
	"germantopic/internal/feedback"
	"germantopic/internal/quota"
	"germantopic/internal/utils"
)

// genericPipelineError is the single user-facing message for every adapter
// failure; the distinct kinds only show up in logs.
const genericPipelineError = "couldn't process your recording, please try again"

// analyze runs the feedback pipeline for one clip:
// balance gate -> transcribe -> feedback -> normalize -> debit.
func (h *Handlers) analyze(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	clip, ok := h.resolveClip(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	// Quota gate strictly precedes any pipeline call. A missing profile
	// blocks; it is not a zero balance.
	balance, err := h.Ledger.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, quota.ErrProfileNotFound) {
			utils.Error(c, http.StatusUnauthorized, "profile not found, please log in first")
			return
		}
		log.Printf("[Analyze] Balance read failed for user %s: %v", userID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to check available minutes")
		return
	}

	if balance < 1 {
		h.divertToCheckout(c, userID)
		return
	}

	// One analyze run per user at a time; a second submission while one is
	// outstanding is rejected, preventing duplicate debits.
	release, ok := h.acquireUser(userID)
	if !ok {
		utils.Error(c, http.StatusConflict, "analysis already in progress")
		return
	}
	defer release()

	sttResult, err := h.STT.Transcribe(ctx, clip)
	if err != nil {
		log.Printf("[Analyze] Transcription failed for user %s: %v", userID, err)
		utils.Error(c, http.StatusBadGateway, genericPipelineError)
		return
	}

	// An empty transcript is a valid state and flows on unchanged.
	transcript := sttResult.Transcript
	log.Printf("[Analyze] Transcript (provider=%s, length=%d) for user %s",
		sttResult.Provider, len(transcript), userID)

	raw, err := h.Feedback.Feedback(ctx, transcript)
	if err != nil {
		log.Printf("[Analyze] Feedback service failed for user %s: %v", userID, err)
		utils.Error(c, http.StatusBadGateway, genericPipelineError)
		return
	}

	result, err := h.Normalizer.Normalize(raw)
	if err != nil {
		var parseErr *feedback.ParseError
		if errors.As(err, &parseErr) {
			// The raw payload must reach the logs for diagnosis.
			log.Printf("[Analyze] Feedback parse failed for user %s: %v. Raw payload: %s",
				userID, parseErr.Err, parseErr.Raw)
		} else {
			log.Printf("[Analyze] Feedback normalization failed for user %s: %v", userID, err)
		}
		utils.Error(c, http.StatusBadGateway, genericPipelineError)
		return
	}

	// Debit only now, after a usable result. Any earlier failure left the
	// balance untouched.
	remaining, err := h.Ledger.Decrement(ctx, userID, 1)
	response := gin.H{
		"transcript": transcript,
		"feedback":   result,
	}
	if err != nil {
		log.Printf("[Analyze] Warning: debit failed for user %s after successful result: %v", userID, err)
	} else {
		response["minutes_left"] = remaining
	}

	utils.Success(c, response)
}

// getMinutes handles GET /api/v1/minutes
func (h *Handlers) getMinutes(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	balance, err := h.Ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, quota.ErrProfileNotFound) {
			utils.Error(c, http.StatusUnauthorized, "profile not found, please log in first")
			return
		}
		log.Printf("[Minutes] Balance read failed for user %s: %v", userID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to read available minutes")
		return
	}

	utils.Success(c, gin.H{
		"available_minutes": balance,
	})
}

// divertToCheckout responds with a checkout URL instead of running the
// pipeline when the balance is exhausted.
func (h *Handlers) divertToCheckout(c *gin.Context, userID uuid.UUID) {
	if h.Checkout == nil || h.Cfg.DefaultPriceID == "" {
		utils.Error(c, http.StatusPaymentRequired, "no minutes available")
		return
	}

	url, err := h.Checkout.CreateCheckoutSession(c.Request.Context(), userID.String(), h.Cfg.DefaultPriceID)
	if err != nil {
		log.Printf("[Analyze] Checkout session creation failed for user %s: %v", userID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	log.Printf("[Analyze] User %s has no minutes, diverting to checkout", userID)
	utils.Success(c, gin.H{
		"checkout_url": url,
	})
}

// requireUser extracts the acting user from the X-User-ID header set by the
// identity layer in front of this service.
func (h *Handlers) requireUser(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		raw = c.Query("user_id")
	}
	if raw == "" {
		utils.Error(c, http.StatusBadRequest, "user_id is required (X-User-ID header or query parameter)")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid user_id format")
		return uuid.Nil, false
	}
	return userID, true
}

// resolveClip picks the clip to analyze: an uploaded multipart file takes
// precedence, otherwise the last clip of the given capture session.
func (h *Handlers) resolveClip(c *gin.Context) (capture.Clip, bool) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			utils.Error(c, http.StatusBadRequest, "failed to open uploaded file")
			return capture.Clip{}, false
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			utils.Error(c, http.StatusBadRequest, "failed to read uploaded file")
			return capture.Clip{}, false
		}

		mimeType := file.Header.Get("Content-Type")
		if mimeType == "" || !strings.HasPrefix(mimeType, "audio/") {
			mimeType = "audio/webm"
		}
		return capture.Clip{Data: data, MimeType: mimeType}, true
	}

	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = c.Query("session_id")
	}
	if sessionID == "" {
		utils.Error(c, http.StatusBadRequest, "file upload or session_id is required")
		return capture.Clip{}, false
	}

	session, ok := h.Sessions.Get(sessionID)
	if !ok {
		utils.Error(c, http.StatusNotFound, "capture session not found")
		return capture.Clip{}, false
	}

	clip, ok := session.LastClip()
	if !ok {
		utils.Error(c, http.StatusBadRequest, "no recording available")
		return capture.Clip{}, false
	}
	return clip, true
}

// userGate serializes analyze runs for one user. refs counts the requests
// currently holding a reference, so the gate can be reaped once idle.
type userGate struct {
	sem  *semaphore.Weighted
	refs int
}

// acquireUser claims the per-user single-flight slot. ok is false when a run
// is already outstanding for the user. The returned release must be called
// exactly once; it frees the slot and drops the gate when no request
// references it anymore.
func (h *Handlers) acquireUser(userID uuid.UUID) (release func(), ok bool) {
	h.gateMu.Lock()
	if h.gates == nil {
		h.gates = make(map[uuid.UUID]*userGate)
	}
	g, found := h.gates[userID]
	if !found {
		g = &userGate{sem: semaphore.NewWeighted(1)}
		h.gates[userID] = g
	}
	g.refs++
	h.gateMu.Unlock()

	drop := func() {
		h.gateMu.Lock()
		g.refs--
		if g.refs == 0 {
			delete(h.gates, userID)
		}
		h.gateMu.Unlock()
	}

	if !g.sem.TryAcquire(1) {
		drop()
		return nil, false
	}
	return func() {
		g.sem.Release(1)
		drop()
	}, true
}
