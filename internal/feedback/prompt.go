package feedback

import "fmt"

// Variant selects which instruction template the adapter sends and which
// parse path the normalizer takes. The two are always configured as a pair.
type Variant string

const (
	VariantLegacyPlaintext Variant = "legacy-plaintext"
	VariantJSONRich        Variant = "structured-json-rich"
	VariantJSONMinimal     Variant = "structured-json-minimal"
)

// ParseVariant validates a configured variant name.
func ParseVariant(name string) (Variant, error) {
	switch Variant(name) {
	case VariantLegacyPlaintext, VariantJSONRich, VariantJSONMinimal:
		return Variant(name), nil
	default:
		return "", fmt.Errorf("unsupported feedback variant: %s. Supported: %s, %s, %s",
			name, VariantLegacyPlaintext, VariantJSONRich, VariantJSONMinimal)
	}
}

// commonRules are the strictness rules shared by every variant: no invented
// corrections, no proper-noun corrections, spoken-language artifacts ignored,
// non-German input short-circuited.
const commonRules = `Rules:
- The input is a transcript of spoken German practice. Ignore filler words, hesitations, repetitions and other spoken-language artifacts; they are not mistakes.
- Only report genuine grammar mistakes. Never invent a correction for a sentence that is already correct.
- Never correct proper nouns (names of people, places, brands).
- If the input is not German, do not produce corrections; report the detected language instead.`

// systemPrompt returns the instruction template for a variant.
func systemPrompt(v Variant) string {
	switch v {
	case VariantLegacyPlaintext:
		return `You are a helpful German teacher AI. When the user gives you spoken input (already transcribed), analyze it and return feedback in the following clean format:

Feedback

1. ❌ You said:
   "<wrong sentence>"

   ✅ AI Suggests:
   "<corrected version>"

---

2. ❌ You said:
   "<next wrong sentence>"

   ✅ AI Suggests:
   "<next corrected version>"

---

` + commonRules + `
- Skip any sentence that is already correct.
- Do not include accuracy, confidence, or grammar topics.
- Format the entire output as plain text (no code or JSON).`

	case VariantJSONRich:
		return `You are a helpful German teacher AI analyzing transcribed spoken input.

` + commonRules + `

Return ONLY valid JSON (no markdown, no extra text) in this shape:

{
  "items": [
    {
      "original": "<sentence as spoken>",
      "corrected": "<corrected sentence>",
      "highlights": [{"wrong": "<wrong phrase>", "correct": "<fixed phrase>"}],
      "explanation": "<one short sentence explaining the mistake>"
    }
  ],
  "grammarTopics": ["<topic>"],
  "overallScore": 0
}

Only include items for sentences with genuine mistakes. items may be empty.`

	default: // VariantJSONMinimal
		return `You are a helpful German teacher AI analyzing transcribed spoken input.

` + commonRules + `

Return ONLY valid JSON (no markdown, no extra text) in this shape:

{
  "isGerman": true,
  "detectedLanguage": "German",
  "corrections": [{"wrong": "<wrong phrase>", "correct": "<fixed phrase>"}]
}

If the input is not German, set isGerman to false, name the detected language, and return an empty corrections array. corrections may be empty for clean German input.`
	}
}
