package feedback

import (
	"context"
	"fmt"
	"log"

	"github.com/sashabaranov/go-openai"
)

// Generator produces a raw feedback payload for a transcript. The payload is
// expected but not guaranteed to match the variant's shape; only the
// Normalizer decides whether it is usable.
type Generator interface {
	Feedback(ctx context.Context, transcript string) (string, error)
}

// Adapter calls the OpenAI chat API with the variant's instruction template.
type Adapter struct {
	client  *openai.Client
	model   string
	variant Variant
}

// NewAdapter creates a feedback adapter for the given variant.
func NewAdapter(apiKey, model string, variant Variant) *Adapter {
	return &Adapter{
		client:  openai.NewClient(apiKey),
		model:   model,
		variant: variant,
	}
}

// Feedback sends the transcript embedded under the variant's instruction
// template and returns the raw text payload.
func (a *Adapter) Feedback(ctx context.Context, transcript string) (string, error) {
	log.Printf("[Feedback] Requesting feedback: variant=%s, transcript length=%d", a.variant, len(transcript))

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(a.variant),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: transcript,
			},
		},
		Temperature: 0.3,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("[Feedback] API error: %v", err)
		return "", fmt.Errorf("feedback service error: %w", err)
	}

	if len(resp.Choices) == 0 {
		log.Printf("[Feedback] API returned no choices")
		return "", fmt.Errorf("feedback service returned no choices")
	}

	content := resp.Choices[0].Message.Content
	preview := content
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	log.Printf("[Feedback] Raw payload (%d chars): %s", len(content), preview)

	return content, nil
}
