package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"shop-bot/internal/domain"
)

type fakeTurn struct {
	activity domain.Activity
	sent     []domain.Activity
}

func (f *fakeTurn) Activity() domain.Activity { return f.activity }

func (f *fakeTurn) Send(a domain.Activity) { f.sent = append(f.sent, a) }

func (f *fakeTurn) texts() []string {
	out := make([]string, 0, len(f.sent))
	for _, a := range f.sent {
		out = append(out, a.Text)
	}
	return out
}

func turnSaying(text string) *fakeTurn {
	return &fakeTurn{activity: domain.Activity{Type: domain.ActivityMessage, Text: text}}
}

type Turn = *fakeTurn

// askDialog prompts once and ends with the reply upper-cased.
func askDialog(seen *[]any) *Dialog[Turn] {
	return &Dialog[Turn]{
		ID: "ask",
		Steps: []Step[Turn]{
			func(_ context.Context, sc *StepContext[Turn]) (Action, error) {
				return sc.Next("first"), nil
			},
			func(_ context.Context, sc *StepContext[Turn]) (Action, error) {
				*seen = append(*seen, sc.Result)
				return sc.Prompt("question", domain.MessageActivity("q?")), nil
			},
			func(_ context.Context, sc *StepContext[Turn]) (Action, error) {
				*seen = append(*seen, sc.Result)
				return sc.End(strings.ToUpper(sc.ResultString())), nil
			},
		},
		Validators: map[string]Validator[Turn]{
			"question": func(_ context.Context, turn Turn, value string) (string, bool, error) {
				value = strings.TrimSpace(value)
				if len(value) < 3 {
					turn.Send(domain.MessageActivity("too short"))
					return "", false, nil
				}
				return value, true, nil
			},
		},
	}
}

func mustSet(t *testing.T, dialogs ...*Dialog[Turn]) *Set[Turn] {
	t.Helper()
	s, err := NewSet(dialogs...)
	require.NoError(t, err)
	return s
}

func TestNewSet_Validates(t *testing.T) {
	noop := func(_ context.Context, sc *StepContext[Turn]) (Action, error) { return sc.Next(nil), nil }

	_, err := NewSet[Turn](nil)
	require.Error(t, err)

	_, err = NewSet(&Dialog[Turn]{ID: " ", Steps: []Step[Turn]{noop}})
	require.ErrorContains(t, err, "id must not be empty")

	_, err = NewSet(&Dialog[Turn]{ID: "a"})
	require.ErrorContains(t, err, "no steps")

	_, err = NewSet(&Dialog[Turn]{ID: "a", Steps: []Step[Turn]{nil}})
	require.ErrorContains(t, err, "nil")

	_, err = NewSet(&Dialog[Turn]{ID: "a", Steps: []Step[Turn]{noop}}, &Dialog[Turn]{ID: "a", Steps: []Step[Turn]{noop}})
	require.ErrorContains(t, err, "already registered")
}

func TestBegin_RunsUntilPrompt(t *testing.T) {
	var seen []any
	set := mustSet(t, askDialog(&seen))
	state := &domain.DialogState{}
	turn := turnSaying("hi")

	res, err := set.Context(turn, state).Begin(context.Background(), "ask")
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, res.Status)
	require.Equal(t, []string{"q?"}, turn.texts())
	require.Equal(t, []any{"first"}, seen)
	require.Len(t, state.Stack, 1)
	require.Equal(t, 1, state.Stack[0].Step)
	require.Equal(t, "question", state.Stack[0].PromptID)
	require.Equal(t, "q?", state.Stack[0].Prompt.Text)
}

func TestContinue_ResumesWithValidatedReply(t *testing.T) {
	var seen []any
	set := mustSet(t, askDialog(&seen))
	state := &domain.DialogState{}
	_, err := set.Context(turnSaying("hi"), state).Begin(context.Background(), "ask")
	require.NoError(t, err)

	turn := turnSaying("  bob  ")
	res, err := set.Context(turn, state).Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status)
	require.Equal(t, "BOB", res.Value)
	require.Empty(t, state.Stack)
	require.Empty(t, turn.sent)
	require.Equal(t, []any{"first", "bob"}, seen)
}

func TestContinue_RejectedReplyRepromptsSameStep(t *testing.T) {
	var seen []any
	set := mustSet(t, askDialog(&seen))
	state := &domain.DialogState{}
	_, err := set.Context(turnSaying("hi"), state).Begin(context.Background(), "ask")
	require.NoError(t, err)

	turn := turnSaying("al")
	res, err := set.Context(turn, state).Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, res.Status)
	require.Equal(t, []string{"too short", "q?"}, turn.texts())
	require.Len(t, state.Stack, 1)
	require.Equal(t, 1, state.Stack[0].Step)
	require.Len(t, seen, 1)
}

func TestContinue_EmptyTextReprompts(t *testing.T) {
	var seen []any
	set := mustSet(t, askDialog(&seen))
	state := &domain.DialogState{}
	_, err := set.Context(turnSaying("hi"), state).Begin(context.Background(), "ask")
	require.NoError(t, err)

	turn := turnSaying("")
	res, err := set.Context(turn, state).Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, res.Status)
	require.Equal(t, []string{"q?"}, turn.texts())
}

func TestContinue_EmptyStack(t *testing.T) {
	set := mustSet(t, askDialog(new([]any)))
	res, err := set.Context(turnSaying("hi"), &domain.DialogState{}).Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusEmpty, res.Status)
}

func TestReprompt_ResendsPendingPrompt(t *testing.T) {
	set := mustSet(t, askDialog(new([]any)))
	state := &domain.DialogState{}
	_, err := set.Context(turnSaying("hi"), state).Begin(context.Background(), "ask")
	require.NoError(t, err)

	turn := turnSaying("help")
	set.Context(turn, state).Reprompt()
	require.Equal(t, []string{"q?"}, turn.texts())
	require.Equal(t, 1, state.Stack[0].Step)
}

func TestCancelAll(t *testing.T) {
	set := mustSet(t, askDialog(new([]any)))
	state := &domain.DialogState{}
	dc := set.Context(turnSaying("hi"), state)
	_, err := dc.Begin(context.Background(), "ask")
	require.NoError(t, err)

	require.Equal(t, StatusCancelled, dc.CancelAll().Status)
	require.Empty(t, state.Stack)
	require.Nil(t, dc.Active())
	require.Equal(t, StatusEmpty, dc.CancelAll().Status)
}

func TestEndActive_PopsFrame(t *testing.T) {
	set := mustSet(t, askDialog(new([]any)))
	state := &domain.DialogState{}
	dc := set.Context(turnSaying("hi"), state)
	_, err := dc.Begin(context.Background(), "ask")
	require.NoError(t, err)

	res, err := dc.EndActive(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status)
	require.Empty(t, state.Stack)

	res, err = dc.EndActive(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusEmpty, res.Status)
}

func TestChildDialog_ResumesParentWithResult(t *testing.T) {
	var seen []any
	var parentGot any
	parent := &Dialog[Turn]{
		ID: "parent",
		Steps: []Step[Turn]{
			func(_ context.Context, sc *StepContext[Turn]) (Action, error) {
				return sc.Begin("ask"), nil
			},
			func(_ context.Context, sc *StepContext[Turn]) (Action, error) {
				parentGot = sc.Result
				return sc.Next(nil), nil
			},
		},
	}
	set := mustSet(t, parent, askDialog(&seen))
	state := &domain.DialogState{}

	res, err := set.Context(turnSaying("hi"), state).Begin(context.Background(), "parent")
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, res.Status)
	require.Len(t, state.Stack, 2)
	require.Equal(t, "ask", state.Stack[1].DialogID)

	res, err = set.Context(turnSaying("sam"), state).Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status)
	require.Equal(t, "SAM", parentGot)
	require.Empty(t, state.Stack)
}

func TestBegin_UnknownDialog(t *testing.T) {
	set := mustSet(t, askDialog(new([]any)))
	state := &domain.DialogState{}
	_, err := set.Context(turnSaying("hi"), state).Begin(context.Background(), "missing")
	require.ErrorIs(t, err, ErrDialogNotFound)
	require.Empty(t, state.Stack)
}

func TestContinue_CorruptStack(t *testing.T) {
	set := mustSet(t, askDialog(new([]any)))

	state := &domain.DialogState{Stack: []domain.DialogFrame{{DialogID: "gone", PromptID: "x"}}}
	_, err := set.Context(turnSaying("hi"), state).Continue(context.Background())
	require.ErrorIs(t, err, ErrCorruptStack)

	state = &domain.DialogState{Stack: []domain.DialogFrame{{DialogID: "ask", Step: 9, PromptID: "question"}}}
	_, err = set.Context(turnSaying("hi"), state).Continue(context.Background())
	require.ErrorIs(t, err, ErrCorruptStack)
}

func TestStepError_Propagates(t *testing.T) {
	boom := errors.New("boom")
	d := &Dialog[Turn]{
		ID: "broken",
		Steps: []Step[Turn]{
			func(_ context.Context, _ *StepContext[Turn]) (Action, error) { return Action{}, boom },
		},
	}
	set := mustSet(t, d)
	_, err := set.Context(turnSaying("hi"), &domain.DialogState{}).Begin(context.Background(), "broken")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "broken step 0")
}

func TestStepsExhausted_Completes(t *testing.T) {
	d := &Dialog[Turn]{
		ID: "short",
		Steps: []Step[Turn]{
			func(_ context.Context, sc *StepContext[Turn]) (Action, error) { return sc.Next("v"), nil },
		},
	}
	set := mustSet(t, d)
	state := &domain.DialogState{}
	res, err := set.Context(turnSaying("hi"), state).Begin(context.Background(), "short")
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status)
	require.Equal(t, "v", res.Value)
	require.Empty(t, state.Stack)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "waiting", StatusWaiting.String())
	require.Equal(t, "status(9)", Status(9).String())
}
