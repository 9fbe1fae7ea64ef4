package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"germantopic/internal/account"
	"germantopic/internal/api"
	"germantopic/internal/capture"
	"germantopic/internal/config"
	"germantopic/internal/db"
	"germantopic/internal/feedback"
	"germantopic/internal/mail"
	"germantopic/internal/payment"
	"germantopic/internal/quota"
	"germantopic/internal/stt"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Quota ledger and webhook event store: Postgres when DATABASE_URL is
	// set, in-memory otherwise. The in-memory ledger loses balances on
	// restart and is only meant for local development.
	var ledger quota.Ledger
	var eventStore payment.EventStore
	var tokenStore account.TokenStore

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer conn.Close()

		if err := db.EnsureSchema(context.Background(), conn); err != nil {
			log.Fatalf("Failed to ensure database schema: %v", err)
		}

		ledger = quota.NewPostgresLedger(conn)
		eventStore = payment.NewPostgresEventStore(conn)
		tokenStore = account.NewPostgresTokenStore(conn)
	} else {
		log.Println("Warning: DATABASE_URL not set, using in-memory storage (balances are lost on restart)")
		ledger = quota.NewMemoryLedger()
		eventStore = payment.NewMemoryEventStore()
		tokenStore = account.NewMemoryTokenStore()
	}

	// Speech-to-text backend
	provider, err := stt.CreateProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create STT provider: %v", err)
	}
	log.Printf("STT provider initialized: %s", provider.Name())

	// Feedback adapter/normalizer pair for the configured prompt variant
	variant, err := feedback.ParseVariant(cfg.FeedbackVariant)
	if err != nil {
		log.Fatalf("Failed to configure feedback: %v", err)
	}
	generator := feedback.NewAdapter(cfg.OpenAIKey, cfg.OpenAIChatModel, variant)
	normalizer := feedback.NormalizerFor(variant)
	log.Printf("Feedback variant: %s (model %s)", variant, cfg.OpenAIChatModel)

	// Payments (optional: checkout and webhook endpoints report
	// unavailability when Stripe is not configured)
	var checkout payment.Checkout
	var webhooks *payment.Processor
	if cfg.StripeSecretKey != "" {
		stripeClient := payment.NewStripeClient(
			cfg.StripeSecretKey,
			cfg.StripeWebhookSecret,
			cfg.CheckoutSuccessURL,
			cfg.CheckoutCancelURL,
		)
		checkout = stripeClient
		webhooks = &payment.Processor{
			Verifier:     stripeClient,
			Prices:       stripeClient,
			Events:       eventStore,
			Ledger:       ledger,
			PriceMinutes: cfg.PriceMinutes,
		}
		log.Printf("Stripe payments initialized (%d price mapping(s))", len(cfg.PriceMinutes))
	} else {
		log.Println("Warning: STRIPE_SECRET_KEY not set, payments disabled")
	}

	// Mail
	var sender mail.Sender
	if cfg.ResendAPIKey != "" {
		sender = mail.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom)
	} else {
		log.Println("Warning: RESEND_API_KEY not set, confirmation mail disabled")
		sender = mail.NoopSender{}
	}

	accounts := &account.Service{
		Ledger:         ledger,
		Tokens:         tokenStore,
		Mail:           sender,
		SiteURL:        cfg.SiteURL,
		InitialMinutes: cfg.SignupInitialMinutes,
	}

	r := gin.Default()

	// Add CORS middleware for the web frontend
	r.Use(corsMiddleware())

	// Register routes
	api.RegisterRoutes(r, &api.Handlers{
		Ledger:     ledger,
		STT:        provider,
		Feedback:   generator,
		Normalizer: normalizer,
		Checkout:   checkout,
		Webhooks:   webhooks,
		Accounts:   accounts,
		Sessions:   capture.NewStore(),
		Cfg:        cfg,
	})

	log.Printf("germantopic backend running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for the web frontend
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
