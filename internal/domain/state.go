package domain

// GreetingState is the user-scoped record collected by the greeting dialog.
// Empty strings mean the slot is unset.
type GreetingState struct {
	Name string `json:"name,omitempty"`
	City string `json:"city,omitempty"`
}

// ShoppingState is the user-scoped record collected by the shopping dialog.
// It is also the filter payload sent to the product catalog, hence the JSON names.
type ShoppingState struct {
	Category string  `json:"categorie,omitempty"`
	PriceMin float64 `json:"priceMin"`
	PriceMax float64 `json:"priceMax"`
}

// UserState groups the user-scoped records. A nil record has never been created.
type UserState struct {
	Greeting *GreetingState
	Shopping *ShoppingState
}

// DialogFrame is one active dialog invocation. A frame with a PromptID is
// suspended waiting for user input; Prompt is kept so it can be re-sent.
type DialogFrame struct {
	DialogID string
	Step     int
	PromptID string
	Prompt   *Activity
}

// Waiting reports whether the frame is suspended on a prompt.
func (f DialogFrame) Waiting() bool {
	return f.PromptID != ""
}

// DialogState is the conversation-scoped dialog stack; the last frame is the top.
type DialogState struct {
	Stack []DialogFrame
}
