package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"shop-bot/internal/dialog"
	"shop-bot/internal/domain"
)

const (
	greetingDialogID         = "GreetingDialog"
	namePromptID             = "namePrompt"
	greetingCategoryPromptID = "categoriePrompt"

	minNameLength = 3
)

// greetingDialog asks for the user's name when it is unknown, then greets them
// with the department choices.
func greetingDialog() *dialog.Dialog[*turnContext] {
	return &dialog.Dialog[*turnContext]{
		ID: greetingDialogID,
		Steps: []dialog.Step[*turnContext]{
			ensureGreetingState,
			promptForName,
			promptForDepartment,
		},
		Validators: map[string]dialog.Validator[*turnContext]{
			namePromptID: validateName,
		},
	}
}

func ensureGreetingState(_ context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	sc.Turn.greeting()
	return sc.Next(nil), nil
}

func promptForName(_ context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	if strings.TrimSpace(sc.Turn.greeting().Name) != "" {
		return sc.Next(nil), nil
	}
	return sc.Prompt(namePromptID, domain.MessageActivity(msgAskName)), nil
}

func promptForDepartment(_ context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	g := sc.Turn.greeting()
	if typed := sc.ResultString(); strings.TrimSpace(g.Name) == "" && typed != "" {
		g.Name = capitalize(typed)
	}
	return sc.Prompt(greetingCategoryPromptID, choiceCard(fmt.Sprintf(msgHelloName, g.Name), greetingCategories)), nil
}

func validateName(_ context.Context, turn *turnContext, value string) (string, bool, error) {
	name := strings.TrimSpace(value)
	if utf8.RuneCountInString(name) >= minNameLength {
		return name, true, nil
	}
	turn.Send(domain.MessageActivity(fmt.Sprintf(msgNameTooShort, minNameLength)))
	return "", false, nil
}
