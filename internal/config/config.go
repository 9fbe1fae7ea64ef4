package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string

	// OpenAI (Whisper transcription + feedback chat)
	OpenAIKey       string
	OpenAIChatModel string

	// Speech-to-text backend selection
	STTProvider     string // "whisper" or "assemblyai"
	AssemblyAIKey   string
	AssemblyAIURL   string
	STTPollInterval time.Duration
	STTPollMaxTries int
	STTLanguageCode string

	// Feedback prompt variant: "legacy-plaintext", "structured-json-rich",
	// "structured-json-minimal"
	FeedbackVariant string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	DefaultPriceID      string
	PriceMinutes        map[string]int

	// Account bootstrap
	SignupInitialMinutes int
	ResendAPIKey         string
	MailFrom             string
	SiteURL              string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIChatModel: getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),

		STTProvider:     getEnv("STT_PROVIDER", "whisper"),
		AssemblyAIKey:   os.Getenv("ASSEMBLYAI_API_KEY"),
		AssemblyAIURL:   getEnv("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com/v2"),
		STTPollInterval: time.Duration(getEnvInt("STT_POLL_INTERVAL_SECONDS", 3)) * time.Second,
		STTPollMaxTries: getEnvInt("STT_POLL_MAX_ATTEMPTS", 40),
		STTLanguageCode: getEnv("STT_LANGUAGE_CODE", "de"),

		FeedbackVariant: getEnv("FEEDBACK_VARIANT", "structured-json-minimal"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/success"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/cancel"),
		DefaultPriceID:      os.Getenv("STRIPE_DEFAULT_PRICE_ID"),

		SignupInitialMinutes: getEnvInt("SIGNUP_INITIAL_MINUTES", 3),
		ResendAPIKey:         os.Getenv("RESEND_API_KEY"),
		MailFrom:             getEnv("MAIL_FROM", "noreply@germantopic.com"),
		SiteURL:              getEnv("SITE_URL", "http://localhost:3000"),
	}

	// Validate required environment variables
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required (Whisper transcription and feedback)")
	}

	if cfg.STTProvider == "assemblyai" && cfg.AssemblyAIKey == "" {
		return nil, fmt.Errorf("ASSEMBLYAI_API_KEY is required when STT_PROVIDER=assemblyai")
	}

	// Stripe keys are optional (only needed for checkout/webhook endpoints).
	// Their absence is surfaced when those endpoints are called.

	priceMinutes, err := parsePriceMinutes(getEnv("STRIPE_PRICE_MINUTES", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid STRIPE_PRICE_MINUTES: %w", err)
	}
	cfg.PriceMinutes = priceMinutes

	return cfg, nil
}

// parsePriceMinutes parses "price_abc=10,price_def=25" into a map.
func parsePriceMinutes(raw string) (map[string]int, error) {
	out := make(map[string]int)
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected price_id=minutes, got %q", pair)
		}
		minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minutes < 0 {
			return nil, fmt.Errorf("invalid minute count in %q", pair)
		}
		out[strings.TrimSpace(parts[0])] = minutes
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
