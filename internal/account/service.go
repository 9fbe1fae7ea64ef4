package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"germantopic/internal/mail"
	"germantopic/internal/quota"
)

const tokenTTL = 24 * time.Hour

// Service bootstraps accounts for users created by the external identity
// provider: a profile with the initial free minutes, a verification token,
// and a confirmation email.
type Service struct {
	Ledger         quota.Ledger
	Tokens         TokenStore
	Mail           mail.Sender
	SiteURL        string
	InitialMinutes int
}

// Signup creates the user's profile and sends the confirmation email. The
// mail failure is logged but does not undo the profile: the user can request
// a new token later.
func (s *Service) Signup(ctx context.Context, userID uuid.UUID, email string) error {
	if err := s.Ledger.CreateProfile(ctx, userID, email, s.InitialMinutes); err != nil {
		return err
	}

	token, err := newToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(tokenTTL)
	if err := s.Tokens.Insert(ctx, token, userID, expiresAt); err != nil {
		return err
	}

	confirmLink := fmt.Sprintf("%s/verify?token=%s", s.SiteURL, token)
	html := fmt.Sprintf(`
		<p>Welcome! Please confirm your email by clicking below:</p>
		<p><a href="%s">Confirm your account</a></p>
		<p>This link expires in 24 hours.</p>
	`, confirmLink)

	if err := s.Mail.Send(ctx, email, "Confirm your email", html); err != nil {
		log.Printf("[Account] Warning: confirmation mail for %s failed: %v", userID, err)
	}

	log.Printf("[Account] Signup complete for user %s (%d initial minutes)", userID, s.InitialMinutes)
	return nil
}

// Verify consumes a verification token and returns the verified user.
func (s *Service) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := s.Tokens.Consume(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	log.Printf("[Account] Email verified for user %s", userID)
	return userID, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
