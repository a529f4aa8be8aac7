package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"shop-bot/internal/dialog"
	"shop-bot/internal/domain"
)

const (
	msgCanceled        = "Ok. I've canceled our last activity."
	msgNothingToCancel = "I don't have anything to cancel."
	msgHelpIntro       = "Let me try to provide some help."
	msgHelpDetails     = "I understand greetings, being asked for help, or being asked to cancel what I am doing."
	msgNotUnderstood   = "I didn't understand what you just said to me."
	msgAskName         = "What is your name?"
	msgNameTooShort    = "Names needs to be at least `%d` characters long."
	msgHelloName       = "Hello %s, what are you looking for today?"
	msgAskShoeCategory = "Great what Kind of shoes?"
	msgAskPriceRange   = "Got it. What price range?"
	msgProducts        = "What do you think of these?"
	msgNoProducts      = "could not find anything"
	msgGoodbye         = "Good by!"
)

type KnowledgeBase interface {
	GetAnswers(ctx context.Context, question string) ([]domain.Answer, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, text string) (domain.RecognizerResult, error)
}

type Catalog interface {
	ProductsFor(ctx context.Context, filter domain.ShoppingState) ([]domain.Product, error)
}

type StateStore interface {
	LoadUserState(ctx context.Context, channelID, userID string) (domain.UserState, error)
	SaveUserState(ctx context.Context, channelID, userID string, st domain.UserState) error
	LoadDialogState(ctx context.Context, channelID, conversationID string) (domain.DialogState, error)
	SaveDialogState(ctx context.Context, channelID, conversationID string, st domain.DialogState) error
}

// TurnService processes one inbound activity per call.
type TurnService struct {
	kb         KnowledgeBase
	recognizer Recognizer
	catalog    Catalog
	state      StateStore
	dialogs    *dialog.Set[*turnContext]
	logger     *slog.Logger
}

type Option func(*TurnService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *TurnService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// TurnOutput holds the replies produced by a turn, in send order.
type TurnOutput struct {
	Activities []domain.Activity
}

func NewTurnService(kb KnowledgeBase, recognizer Recognizer, catalog Catalog, state StateStore, opts ...Option) (*TurnService, error) {
	if kb == nil {
		return nil, errors.New("usecase: knowledge base must not be nil")
	}
	if recognizer == nil {
		return nil, errors.New("usecase: recognizer must not be nil")
	}
	if catalog == nil {
		return nil, errors.New("usecase: catalog must not be nil")
	}
	if state == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	s := &TurnService{
		kb:         kb,
		recognizer: recognizer,
		catalog:    catalog,
		state:      state,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	dialogs, err := dialog.NewSet(greetingDialog(), s.shoppingDialog())
	if err != nil {
		return nil, err
	}
	s.dialogs = dialogs
	return s, nil
}

// HandleTurn runs one turn. Both state scopes are committed once before it
// returns, whatever the outcome.
func (s *TurnService) HandleTurn(ctx context.Context, in domain.Activity) (out TurnOutput, err error) {
	if err := validateActivity(in); err != nil {
		return TurnOutput{}, err
	}

	turn, err := s.loadTurn(ctx, in)
	if err != nil {
		return TurnOutput{}, err
	}
	defer func() {
		if commitErr := s.commit(ctx, turn); commitErr != nil {
			err = errors.Join(err, commitErr)
		}
		if err != nil {
			out = TurnOutput{}
		}
	}()

	switch in.Type {
	case domain.ActivityMessage:
		err = s.onMessage(ctx, turn)
	case domain.ActivityConversationUpdate:
		err = s.onConversationUpdate(turn)
	default:
		s.logger.Debug("ignoring activity", "type", in.Type, "conversation_id", in.Conversation.ID)
	}
	if err != nil {
		return TurnOutput{}, err
	}
	return TurnOutput{Activities: turn.replies}, nil
}

func validateActivity(in domain.Activity) error {
	if strings.TrimSpace(in.Type) == "" {
		return newError(ErrorInvalidInput, "missing_activity_type", nil)
	}
	if strings.TrimSpace(in.Conversation.ID) == "" {
		return newError(ErrorInvalidInput, "missing_conversation_id", nil)
	}
	if in.Type == domain.ActivityMessage && strings.TrimSpace(in.From.ID) == "" {
		return newError(ErrorInvalidInput, "missing_user_id", nil)
	}
	return nil
}

func (s *TurnService) loadTurn(ctx context.Context, in domain.Activity) (*turnContext, error) {
	turn := &turnContext{activity: in}
	if in.From.ID != "" {
		user, err := s.state.LoadUserState(ctx, in.ChannelID, in.From.ID)
		if err != nil {
			return nil, newError(ErrorInternal, "dynamodb_load_error", err)
		}
		turn.user = user
		turn.hasUser = true
	}
	dialogs, err := s.state.LoadDialogState(ctx, in.ChannelID, in.Conversation.ID)
	if err != nil {
		return nil, newError(ErrorInternal, "dynamodb_load_error", err)
	}
	turn.dialogs = dialogs
	return turn, nil
}

func (s *TurnService) commit(ctx context.Context, turn *turnContext) error {
	if turn.committed {
		return nil
	}
	turn.committed = true

	var errs []error
	if turn.hasUser {
		if err := s.state.SaveUserState(ctx, turn.activity.ChannelID, turn.activity.From.ID, turn.user); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.state.SaveDialogState(ctx, turn.activity.ChannelID, turn.activity.Conversation.ID, turn.dialogs); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return newError(ErrorInternal, "dynamodb_commit_error", errors.Join(errs...))
	}
	return nil
}

func (s *TurnService) onConversationUpdate(turn *turnContext) error {
	for _, member := range turn.activity.MembersAdded {
		if member.ID == turn.activity.Recipient.ID {
			continue
		}
		card, err := welcomeCard()
		if err != nil {
			return newError(ErrorInternal, "welcome_card_error", err)
		}
		turn.Send(domain.MessageActivity("", card))
	}
	return nil
}

// onMessage tries the knowledge base first and falls back to intents and dialogs.
func (s *TurnService) onMessage(ctx context.Context, turn *turnContext) error {
	answers, err := s.kb.GetAnswers(ctx, turn.activity.Text)
	if err != nil {
		return upstreamError("qna", err)
	}
	if len(answers) > 0 {
		turn.Send(domain.MessageActivity(answers[0].Text))
		return nil
	}
	return s.onIntent(ctx, turn)
}

func (s *TurnService) onIntent(ctx context.Context, turn *turnContext) error {
	rec, err := s.recognizer.Recognize(ctx, turn.activity.Text)
	if err != nil {
		return upstreamError("luis", err)
	}
	s.logger.Debug("recognized intent",
		"conversation_id", turn.activity.Conversation.ID,
		"intent", rec.TopIntent,
		"score", rec.TopScore,
	)
	s.applySlots(turn, rec)

	dc := s.dialogs.Context(turn, &turn.dialogs)
	if handled, err := s.interrupt(ctx, dc, turn, rec.TopIntent); err != nil || handled {
		return err
	}

	res, err := dc.Continue(ctx)
	if errors.Is(err, dialog.ErrCorruptStack) {
		s.logger.Warn("discarding corrupt dialog stack", "conversation_id", turn.activity.Conversation.ID, "err", err)
		dc.CancelAll()
		res, err = dialog.Result{Status: dialog.StatusEmpty}, nil
	}
	if err != nil {
		return dialogError(err)
	}
	if turn.responded {
		return nil
	}

	switch res.Status {
	case dialog.StatusEmpty:
		return s.beginForIntent(ctx, dc, turn, rec.TopIntent)
	case dialog.StatusWaiting:
	case dialog.StatusComplete:
		if _, err := dc.EndActive(ctx); err != nil {
			return dialogError(err)
		}
	default:
		dc.CancelAll()
	}
	return nil
}

// interrupt handles intents that pre-empt whatever dialog is running.
func (s *TurnService) interrupt(ctx context.Context, dc *dialog.Context[*turnContext], turn *turnContext, intent string) (bool, error) {
	switch intent {
	case domain.IntentCancel:
		if dc.Active() != nil {
			dc.CancelAll()
			turn.Send(domain.MessageActivity(msgCanceled))
		} else {
			turn.Send(domain.MessageActivity(msgNothingToCancel))
		}
	case domain.IntentHelp:
		turn.Send(domain.MessageActivity(msgHelpIntro))
		turn.Send(domain.MessageActivity(msgHelpDetails))
		dc.Reprompt()
	case domain.IntentGreeting, domain.IntentShoes:
		dc.CancelAll()
		if _, err := dc.Begin(ctx, dialogForIntent(intent)); err != nil {
			return true, dialogError(err)
		}
	default:
		return false, nil
	}
	return true, nil
}

func (s *TurnService) beginForIntent(ctx context.Context, dc *dialog.Context[*turnContext], turn *turnContext, intent string) error {
	id := dialogForIntent(intent)
	if id == "" {
		turn.Send(domain.MessageActivity(msgNotUnderstood))
		return nil
	}
	if _, err := dc.Begin(ctx, id); err != nil {
		return dialogError(err)
	}
	return nil
}

func dialogForIntent(intent string) string {
	switch intent {
	case domain.IntentGreeting:
		return greetingDialogID
	case domain.IntentShoes:
		return shoppingDialogID
	default:
		return ""
	}
}

// applySlots writes the turn's entities into both user records. Turns without
// entities leave the records untouched.
func (s *TurnService) applySlots(turn *turnContext, rec domain.RecognizerResult) {
	if !rec.HasEntities() {
		return
	}
	*turn.greeting() = extractGreetingSlots(rec.Entities, *turn.greeting())

	shopping, slotErrs := extractShoppingSlots(rec.Entities, *turn.shopping())
	*turn.shopping() = shopping
	for _, e := range slotErrs {
		s.logger.Warn("ignoring unparsable slot value",
			"conversation_id", turn.activity.Conversation.ID,
			"slot", e.Slot,
			"entity", e.Entity,
			"err", e.Err,
		)
	}
}

// dialogError keeps collaborator errors raised inside steps and files
// everything else under dialog_error.
func dialogError(err error) error {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr
	}
	return newError(ErrorInternal, "dialog_error", err)
}

// turnContext is the per-turn state handed to dialog steps: the inbound
// activity, the loaded records, and the replies sent so far.
type turnContext struct {
	activity  domain.Activity
	replies   []domain.Activity
	responded bool

	user      domain.UserState
	hasUser   bool
	dialogs   domain.DialogState
	committed bool
}

func (t *turnContext) Activity() domain.Activity { return t.activity }

// Send queues a reply addressed back to the sender.
func (t *turnContext) Send(a domain.Activity) {
	if a.Type == "" {
		a.Type = domain.ActivityMessage
	}
	a.ID = newActivityID()
	a.ChannelID = t.activity.ChannelID
	a.Conversation = t.activity.Conversation
	a.From = t.activity.Recipient
	a.Recipient = t.activity.From
	a.ReplyToID = t.activity.ID
	t.replies = append(t.replies, a)
	t.responded = true
}

func (t *turnContext) greeting() *domain.GreetingState {
	if t.user.Greeting == nil {
		t.user.Greeting = &domain.GreetingState{}
	}
	return t.user.Greeting
}

func (t *turnContext) shopping() *domain.ShoppingState {
	if t.user.Shopping == nil {
		t.user.Shopping = &domain.ShoppingState{}
	}
	return t.user.Shopping
}

var newActivityID = func() string {
	return uuid.NewString()
}
