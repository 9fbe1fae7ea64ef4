package api

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"germantopic/internal/account"
	"germantopic/internal/capture"
	"germantopic/internal/config"
	"germantopic/internal/feedback"
	"germantopic/internal/payment"
	"germantopic/internal/quota"
	"germantopic/internal/stt"
	"germantopic/internal/utils"
)

// Handlers carries the externally constructed dependencies for every route.
// Each client is built once at process start and passed in; nothing here
// reads the environment.
type Handlers struct {
	Ledger     quota.Ledger
	STT        stt.Provider
	Feedback   feedback.Generator
	Normalizer feedback.Normalizer
	Checkout   payment.Checkout
	Webhooks   *payment.Processor
	Accounts   *account.Service
	Sessions   *capture.Store
	Cfg        *config.Config

	// gates holds one weighted-1 semaphore per user with an active
	// request, so at most one analyze run per user is outstanding.
	// Entries are reference counted and removed when the last holder
	// releases; the map never grows with users no longer in flight.
	gateMu sync.Mutex
	gates  map[uuid.UUID]*userGate
}

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	// Health check
	r.GET("/health", healthCheck)

	// API v1
	v1 := r.Group("/api/v1")
	{
		v1.POST("/capture/sessions", h.createCaptureSession)
		v1.DELETE("/capture/sessions/:session_id", h.removeCaptureSession)
		v1.POST("/capture/sessions/:session_id/start", h.startRecording)
		v1.POST("/capture/sessions/:session_id/chunk", h.appendChunk)
		v1.POST("/capture/sessions/:session_id/stop", h.stopRecording)
		v1.GET("/capture/sessions/:session_id/clips", h.listClips)
		v1.DELETE("/capture/sessions/:session_id/clips/:index", h.deleteClip)

		v1.GET("/minutes", h.getMinutes)
		v1.POST("/analyze", h.analyze)

		v1.POST("/checkout-session", h.createCheckoutSession)
		v1.POST("/stripe-webhook", h.stripeWebhook)

		v1.POST("/signup", h.signup)
		v1.POST("/verify-token", h.verifyToken)
	}
}

// healthCheck returns server health status
func healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "germantopic-backend",
	})
}
