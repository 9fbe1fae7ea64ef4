package stt

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"germantopic/internal/capture"
)

// WhisperProvider implements the synchronous STT backend: one multipart call
// to the OpenAI transcription endpoint, text in the response.
type WhisperProvider struct {
	client *openai.Client
}

// NewWhisperProvider creates a new Whisper STT provider
func NewWhisperProvider(apiKey string) *WhisperProvider {
	return &WhisperProvider{
		client: openai.NewClient(apiKey),
	}
}

// Name returns the provider name
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// Transcribe sends the clip to the OpenAI transcription API
func (p *WhisperProvider) Transcribe(ctx context.Context, clip capture.Clip) (*Result, error) {
	startTime := time.Now()

	log.Printf("[Whisper STT] Processing clip: size=%d bytes, mime=%s", len(clip.Data), clip.MimeType)

	if len(clip.Data) == 0 {
		return nil, fmt.Errorf("clip is empty")
	}

	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(clip.Data),
		FilePath: clip.Filename(),
	}

	resp, err := p.client.CreateTranscription(ctx, req)
	if err != nil {
		log.Printf("[Whisper STT] API error: %v", err)
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text)

	duration := time.Since(startTime)
	log.Printf("[Whisper STT] Transcription successful: length=%d, duration=%v", len(transcript), duration)

	// An empty transcript is valid here: silence transcribes to nothing.
	return &Result{
		Transcript:  transcript,
		Provider:    p.Name(),
		RawResponse: resp.Text,
	}, nil
}
