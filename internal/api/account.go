package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"germantopic/internal/account"
	"germantopic/internal/utils"
)

// SignupRequest bootstraps a profile for a user created by the external
// identity provider.
type SignupRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
}

// signup handles POST /api/v1/signup
func (h *Handlers) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "user_id and a valid email are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid user_id format")
		return
	}

	if err := h.Accounts.Signup(c.Request.Context(), userID, req.Email); err != nil {
		log.Printf("[Account] Signup failed for user %s: %v", userID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to create profile")
		return
	}

	utils.Success(c, gin.H{
		"user_id": userID.String(),
		"status":  "created",
	})
}

// VerifyTokenRequest carries an email verification token.
type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// verifyToken handles POST /api/v1/verify-token
func (h *Handlers) verifyToken(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := h.Accounts.Verify(c.Request.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrTokenNotFound):
			utils.Error(c, http.StatusBadRequest, "invalid token")
		case errors.Is(err, account.ErrTokenExpired):
			utils.Error(c, http.StatusBadRequest, "token expired")
		case errors.Is(err, account.ErrTokenUsed):
			utils.Error(c, http.StatusBadRequest, "token already used")
		default:
			log.Printf("[Account] Verification failed: %v", err)
			utils.Error(c, http.StatusInternalServerError, "failed to verify token")
		}
		return
	}

	utils.Success(c, gin.H{
		"user_id":  userID.String(),
		"verified": true,
	})
}
