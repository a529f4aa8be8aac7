package dialog

import (
	"context"
	"fmt"

	"shop-bot/internal/domain"
)

// Status is the outcome of driving the stack for one turn.
type Status int

const (
	StatusEmpty Status = iota
	StatusWaiting
	StatusComplete
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusWaiting:
		return "waiting"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is returned by every stack operation. Value is set when the last
// frame completed with a value.
type Result struct {
	Status Status
	Value  any
}

// Context drives the dialog stack for a single turn.
type Context[C TurnContext] struct {
	set   *Set[C]
	turn  C
	state *domain.DialogState
}

// Active returns the top frame, or nil when no dialog is running.
func (dc *Context[C]) Active() *domain.DialogFrame {
	if len(dc.state.Stack) == 0 {
		return nil
	}
	return &dc.state.Stack[len(dc.state.Stack)-1]
}

// Begin pushes dialogID and runs it from its first step.
func (dc *Context[C]) Begin(ctx context.Context, dialogID string) (Result, error) {
	if _, ok := dc.set.dialogs[dialogID]; !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrDialogNotFound, dialogID)
	}
	dc.state.Stack = append(dc.state.Stack, domain.DialogFrame{DialogID: dialogID})
	return dc.run(ctx, 0, nil)
}

// Continue resumes the top frame with the turn's text as the prompt reply.
func (dc *Context[C]) Continue(ctx context.Context) (Result, error) {
	frame := dc.Active()
	if frame == nil {
		return Result{Status: StatusEmpty}, nil
	}
	d, err := dc.dialogFor(frame)
	if err != nil {
		return Result{}, err
	}
	if !frame.Waiting() {
		return dc.run(ctx, frame.Step, nil)
	}

	value := dc.turn.Activity().Text
	ok := value != ""
	if validate, found := d.Validators[frame.PromptID]; found && ok {
		value, ok, err = validate(ctx, dc.turn, value)
		if err != nil {
			return Result{}, fmt.Errorf("dialog: %s validate %s: %w", d.ID, frame.PromptID, err)
		}
	}
	if !ok {
		dc.Reprompt()
		return Result{Status: StatusWaiting}, nil
	}

	frame.PromptID = ""
	frame.Prompt = nil
	return dc.run(ctx, frame.Step+1, value)
}

// Reprompt re-sends the top frame's pending prompt without changing its step.
func (dc *Context[C]) Reprompt() {
	frame := dc.Active()
	if frame == nil || !frame.Waiting() || frame.Prompt == nil {
		return
	}
	dc.turn.Send(*frame.Prompt)
}

// CancelAll clears the whole stack.
func (dc *Context[C]) CancelAll() Result {
	if len(dc.state.Stack) == 0 {
		return Result{Status: StatusEmpty}
	}
	dc.state.Stack = nil
	return Result{Status: StatusCancelled}
}

// EndActive pops the top frame. A parent frame, if any, resumes at its next step.
func (dc *Context[C]) EndActive(ctx context.Context) (Result, error) {
	frame := dc.Active()
	if frame == nil {
		return Result{Status: StatusEmpty}, nil
	}
	d, err := dc.dialogFor(frame)
	if err != nil {
		return Result{}, err
	}
	return dc.run(ctx, len(d.Steps), nil)
}

// run executes steps of the top frame from index until one prompts or the
// stack drains. Completed frames hand their result to the parent frame.
func (dc *Context[C]) run(ctx context.Context, index int, result any) (Result, error) {
	for {
		frame := dc.Active()
		d, ok := dc.set.dialogs[frame.DialogID]
		if !ok {
			return Result{}, fmt.Errorf("%w: unknown dialog %q", ErrCorruptStack, frame.DialogID)
		}

		if index >= len(d.Steps) {
			dc.state.Stack = dc.state.Stack[:len(dc.state.Stack)-1]
			parent := dc.Active()
			if parent == nil {
				return Result{Status: StatusComplete, Value: result}, nil
			}
			parent.PromptID = ""
			parent.Prompt = nil
			index = parent.Step + 1
			continue
		}

		frame.Step = index
		sc := &StepContext[C]{Turn: dc.turn, Result: result}
		act, err := d.Steps[index](ctx, sc)
		if err != nil {
			return Result{}, fmt.Errorf("dialog: %s step %d: %w", d.ID, index, err)
		}

		switch act.kind {
		case actionNext:
			index++
			result = act.value
		case actionEnd:
			index = len(d.Steps)
			result = act.value
		case actionPrompt:
			prompt := act.prompt
			frame.PromptID = act.promptID
			frame.Prompt = &prompt
			dc.turn.Send(prompt)
			return Result{Status: StatusWaiting}, nil
		case actionBegin:
			if _, ok := dc.set.dialogs[act.dialogID]; !ok {
				return Result{}, fmt.Errorf("%w: %q", ErrDialogNotFound, act.dialogID)
			}
			dc.state.Stack = append(dc.state.Stack, domain.DialogFrame{DialogID: act.dialogID})
			index = 0
			result = nil
		default:
			return Result{}, fmt.Errorf("dialog: %s step %d returned no action", d.ID, index)
		}
	}
}

func (dc *Context[C]) dialogFor(frame *domain.DialogFrame) (*Dialog[C], error) {
	d, ok := dc.set.dialogs[frame.DialogID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown dialog %q", ErrCorruptStack, frame.DialogID)
	}
	if frame.Step < 0 || frame.Step >= len(d.Steps) {
		return nil, fmt.Errorf("%w: %s step %d out of range", ErrCorruptStack, d.ID, frame.Step)
	}
	return d, nil
}
