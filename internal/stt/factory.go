package stt

import (
	"fmt"
	"log"
	"strings"

	"germantopic/internal/config"
)

// CreateProvider creates an STT provider based on configuration
func CreateProvider(cfg *config.Config) (Provider, error) {
	providerName := strings.ToLower(cfg.STTProvider)

	// Default to the synchronous Whisper backend if not specified
	if providerName == "" {
		providerName = "whisper"
		log.Printf("[STT Factory] STT_PROVIDER not set, defaulting to 'whisper'")
	}

	switch providerName {
	case "whisper":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		log.Printf("[STT Factory] Creating Whisper STT provider")
		return NewWhisperProvider(cfg.OpenAIKey), nil
	case "assemblyai":
		if cfg.AssemblyAIKey == "" {
			return nil, fmt.Errorf("ASSEMBLYAI_API_KEY is not set")
		}
		log.Printf("[STT Factory] Creating AssemblyAI STT provider (poll interval %s, max %d attempts)",
			cfg.STTPollInterval, cfg.STTPollMaxTries)
		return NewAssemblyAIProvider(AssemblyAIConfig{
			APIKey:       cfg.AssemblyAIKey,
			BaseURL:      cfg.AssemblyAIURL,
			LanguageCode: cfg.STTLanguageCode,
			PollInterval: cfg.STTPollInterval,
			MaxAttempts:  cfg.STTPollMaxTries,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: whisper, assemblyai", providerName)
	}
}
