package feedback

// Correction is one (wrong phrase, corrected phrase) pair.
type Correction struct {
	Wrong   string `json:"wrong"`
	Correct string `json:"correct"`
}

// Item is one analyzed utterance in the rich feedback shape.
type Item struct {
	Original    string       `json:"original"`
	Corrected   string       `json:"corrected"`
	Highlights  []Correction `json:"highlights"`
	Explanation string       `json:"explanation,omitempty"`
}

// Result is the normalized feedback result. Corrections is always populated
// (flattened from highlights for the rich variant); Items and GrammarTopics
// are only set by the rich variant.
//
// Invariant: if IsGerman is false, Corrections is empty and DetectedLanguage
// names the language actually spoken. An empty Corrections with IsGerman true
// means the input was grammatically clean.
type Result struct {
	IsGerman         bool         `json:"isGerman"`
	DetectedLanguage string       `json:"detectedLanguage,omitempty"`
	Corrections      []Correction `json:"corrections"`

	Items         []Item   `json:"items,omitempty"`
	GrammarTopics []string `json:"grammarTopics,omitempty"`
}
