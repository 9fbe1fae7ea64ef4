package stt

import (
	"context"
	"errors"

	"germantopic/internal/capture"
)

// Provider defines the interface for speech-to-text providers
type Provider interface {
	// Transcribe transcribes one audio clip and returns the result.
	// An empty transcript is a valid success: a silent recording is a
	// legitimate outcome and must propagate, not error.
	Transcribe(ctx context.Context, clip capture.Clip) (*Result, error)

	// Name returns the name of the provider (e.g., "whisper", "assemblyai")
	Name() string
}

// ErrPollTimeout is returned by asynchronous backends when a transcription
// job does not reach a terminal status within the configured attempt bound.
var ErrPollTimeout = errors.New("transcription polling timed out")
