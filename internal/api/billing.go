package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"germantopic/internal/payment"
	"germantopic/internal/utils"
)

// CheckoutRequest creates a top-up checkout session for a user.
type CheckoutRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	PriceID string `json:"price_id"`
}

// createCheckoutSession handles POST /api/v1/checkout-session
func (h *Handlers) createCheckoutSession(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "user_id is required")
		return
	}

	if _, err := uuid.Parse(req.UserID); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid user_id format")
		return
	}

	priceID := req.PriceID
	if priceID == "" {
		priceID = h.Cfg.DefaultPriceID
	}
	if priceID == "" {
		utils.Error(c, http.StatusBadRequest, "price_id is required")
		return
	}

	if h.Checkout == nil {
		utils.Error(c, http.StatusServiceUnavailable, "payments are not configured")
		return
	}

	url, err := h.Checkout.CreateCheckoutSession(c.Request.Context(), req.UserID, priceID)
	if err != nil {
		log.Printf("[Billing] Checkout session creation failed for user %s: %v", req.UserID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	utils.Success(c, gin.H{
		"url": url,
	})
}

// stripeWebhook handles POST /api/v1/stripe-webhook. The body is verified
// against the shared secret before anything is trusted; verification failure
// performs zero ledger mutations.
func (h *Handlers) stripeWebhook(c *gin.Context) {
	if h.Webhooks == nil {
		utils.Error(c, http.StatusServiceUnavailable, "payments are not configured")
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to read webhook body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")

	credited, err := h.Webhooks.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrVerification) {
			log.Printf("[Billing] Webhook signature verification failed: %v", err)
			utils.Error(c, http.StatusBadRequest, "invalid signature")
			return
		}
		log.Printf("[Billing] Webhook processing failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to process event")
		return
	}

	utils.Success(c, gin.H{
		"received":      true,
		"minutes_added": credited,
	})
}
