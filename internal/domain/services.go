package domain

// Intents produced by the recognizer.
const (
	IntentGreeting = "Greeting"
	IntentCancel   = "Cancel"
	IntentHelp     = "Help"
	IntentNone     = "None"
	IntentShoes    = "Shoes"
)

// RecognizerResult is the per-turn output of the intent recognizer.
type RecognizerResult struct {
	TopIntent string
	TopScore  float64
	// Entities maps entity name to extracted values, in recognizer order.
	Entities map[string][]string
}

// HasEntities reports whether the recognizer extracted anything this turn.
func (r RecognizerResult) HasEntities() bool {
	for _, vals := range r.Entities {
		if len(vals) > 0 {
			return true
		}
	}
	return false
}

// Answer is a ranked knowledge-base answer. Score is in the 0-100 range.
type Answer struct {
	Text  string
	Score float64
}

// Product is a catalog entry.
type Product struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Categorie string  `json:"categorie"`
}
