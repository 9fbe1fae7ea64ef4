package feedback

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError means a payload was received but could not be interpreted as
// the configured variant's shape. It carries the raw payload so callers can
// log it for diagnosis. Distinct from a success with zero corrections.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feedback payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Normalizer turns a raw feedback payload into a typed Result.
type Normalizer interface {
	Normalize(raw string) (*Result, error)
}

// NormalizerFor returns the normalizer matching a prompt variant.
func NormalizerFor(v Variant) Normalizer {
	switch v {
	case VariantLegacyPlaintext:
		return plaintextNormalizer{}
	case VariantJSONRich:
		return jsonRichNormalizer{}
	default:
		return jsonMinimalNormalizer{}
	}
}

// stripCodeFence removes an incidental markdown code-fence wrapper. Only the
// known fence pattern is stripped, never arbitrary markup, and stripping an
// unwrapped payload is a no-op.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}

// jsonMinimalNormalizer parses the {isGerman, detectedLanguage, corrections}
// shape.
type jsonMinimalNormalizer struct{}

func (jsonMinimalNormalizer) Normalize(raw string) (*Result, error) {
	cleaned := stripCodeFence(raw)

	var payload struct {
		IsGerman         *bool        `json:"isGerman"`
		DetectedLanguage string       `json:"detectedLanguage"`
		Corrections      []Correction `json:"corrections"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if payload.IsGerman == nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing isGerman field")}
	}

	result := &Result{
		IsGerman:         *payload.IsGerman,
		DetectedLanguage: payload.DetectedLanguage,
		Corrections:      payload.Corrections,
	}
	if result.Corrections == nil {
		result.Corrections = []Correction{}
	}

	// The service should already force-empty corrections for non-German
	// input; ignore any it sent anyway.
	if !result.IsGerman {
		result.Corrections = []Correction{}
	}

	return result, nil
}

// jsonRichNormalizer parses the {items, grammarTopics, overallScore} shape
// and flattens highlights into corrections.
type jsonRichNormalizer struct{}

func (jsonRichNormalizer) Normalize(raw string) (*Result, error) {
	cleaned := stripCodeFence(raw)

	var payload struct {
		Items         []Item   `json:"items"`
		GrammarTopics []string `json:"grammarTopics"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if payload.Items == nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing items field")}
	}

	result := &Result{
		IsGerman:      true,
		Items:         payload.Items,
		GrammarTopics: payload.GrammarTopics,
		Corrections:   []Correction{},
	}
	for _, item := range payload.Items {
		if len(item.Highlights) > 0 {
			result.Corrections = append(result.Corrections, item.Highlights...)
			continue
		}
		if item.Original != "" && item.Corrected != "" {
			result.Corrections = append(result.Corrections, Correction{
				Wrong:   item.Original,
				Correct: item.Corrected,
			})
		}
	}

	return result, nil
}

// pairPattern matches one numbered "You said / AI Suggests" pair in the
// legacy plain-text format.
var pairPattern = regexp.MustCompile(`(?s)\d+\.\s*❌\s*You said:\s*"(.*?)"\s*✅\s*AI Suggests:\s*"(.*?)"`)

// plaintextNormalizer extracts numbered wrong/correct sentence pairs from the
// legacy free-text format.
type plaintextNormalizer struct{}

func (plaintextNormalizer) Normalize(raw string) (*Result, error) {
	cleaned := stripCodeFence(raw)
	if strings.TrimSpace(cleaned) == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("empty payload")}
	}

	result := &Result{
		IsGerman:    true,
		Corrections: []Correction{},
	}

	for _, match := range pairPattern.FindAllStringSubmatch(cleaned, -1) {
		result.Corrections = append(result.Corrections, Correction{
			Wrong:   strings.TrimSpace(match[1]),
			Correct: strings.TrimSpace(match[2]),
		})
	}

	// A payload that mentions the pair markers but yields no pairs is
	// malformed; a payload without them is a clean "no mistakes" answer.
	if len(result.Corrections) == 0 && strings.Contains(cleaned, "❌") {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("no wrong/correct pairs found")}
	}

	return result, nil
}
