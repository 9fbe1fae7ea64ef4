package stt

import (
	"context"

	"germantopic/internal/capture"
)

// MockProvider is a canned STT provider for tests.
type MockProvider struct {
	Result *Result
	Err    error
	Calls  int
}

func (m *MockProvider) Transcribe(_ context.Context, _ capture.Clip) (*Result, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockProvider) Name() string {
	return "mock"
}
