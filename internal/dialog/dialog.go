package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop-bot/internal/domain"
)

var (
	ErrDialogNotFound = errors.New("dialog: dialog not found")
	ErrCorruptStack   = errors.New("dialog: corrupt stack")
)

// TurnContext is what the engine needs from the caller's per-turn context.
type TurnContext interface {
	Activity() domain.Activity
	Send(a domain.Activity)
}

// Step is one waterfall stage. It inspects the turn and the previous step's
// result and returns an Action built from the StepContext.
type Step[C TurnContext] func(ctx context.Context, sc *StepContext[C]) (Action, error)

// Validator checks the text typed in answer to a prompt. It returns the value
// handed to the next step; ok=false re-sends the prompt.
type Validator[C TurnContext] func(ctx context.Context, turn C, value string) (normalized string, ok bool, err error)

// Dialog is a named, fixed sequence of steps. Validators are keyed by prompt id.
type Dialog[C TurnContext] struct {
	ID         string
	Steps      []Step[C]
	Validators map[string]Validator[C]
}

type actionKind int

const (
	actionNext actionKind = iota + 1
	actionPrompt
	actionEnd
	actionBegin
)

// Action is a transition requested by a step.
type Action struct {
	kind     actionKind
	value    any
	promptID string
	prompt   domain.Activity
	dialogID string
}

// StepContext is handed to each step.
type StepContext[C TurnContext] struct {
	Turn C
	// Result is the previous step's output: the validated prompt reply, the
	// value passed to Next, or a child dialog's End value.
	Result any
}

// Next advances to the following step in the same frame without waiting.
func (sc *StepContext[C]) Next(result any) Action {
	return Action{kind: actionNext, value: result}
}

// Prompt sends the activity and suspends the frame until the next turn.
func (sc *StepContext[C]) Prompt(promptID string, prompt domain.Activity) Action {
	return Action{kind: actionPrompt, promptID: promptID, prompt: prompt}
}

// End completes the frame; a parent frame resumes with result.
func (sc *StepContext[C]) End(result any) Action {
	return Action{kind: actionEnd, value: result}
}

// Begin pushes a child dialog; this frame resumes at its next step when the child ends.
func (sc *StepContext[C]) Begin(dialogID string) Action {
	return Action{kind: actionBegin, dialogID: dialogID}
}

// ResultString returns Result as a string, or "" when it is not one.
func (sc *StepContext[C]) ResultString() string {
	s, _ := sc.Result.(string)
	return s
}

// Set holds the registered dialogs.
type Set[C TurnContext] struct {
	dialogs map[string]*Dialog[C]
}

func NewSet[C TurnContext](dialogs ...*Dialog[C]) (*Set[C], error) {
	s := &Set[C]{dialogs: make(map[string]*Dialog[C], len(dialogs))}
	for _, d := range dialogs {
		if err := s.Add(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers a dialog. Ids must be unique and every dialog needs a step.
func (s *Set[C]) Add(d *Dialog[C]) error {
	if d == nil {
		return errors.New("dialog: dialog must not be nil")
	}
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("dialog: id must not be empty")
	}
	if _, ok := s.dialogs[d.ID]; ok {
		return fmt.Errorf("dialog: %q already registered", d.ID)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("dialog: %q has no steps", d.ID)
	}
	for i, step := range d.Steps {
		if step == nil {
			return fmt.Errorf("dialog: %q step %d is nil", d.ID, i)
		}
	}
	s.dialogs[d.ID] = d
	return nil
}

// Context binds the set to one turn and the conversation's stack. All stack
// mutation happens through the returned Context.
func (s *Set[C]) Context(turn C, state *domain.DialogState) *Context[C] {
	return &Context[C]{set: s, turn: turn, state: state}
}
