package feedback

import "context"

// MockGenerator is a canned feedback generator for tests.
type MockGenerator struct {
	Payload string
	Err     error
	Calls   int
}

func (m *MockGenerator) Feedback(_ context.Context, _ string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Payload, nil
}
