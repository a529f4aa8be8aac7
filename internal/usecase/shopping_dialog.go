package usecase

import (
	"context"
	"strings"

	"shop-bot/internal/dialog"
	"shop-bot/internal/domain"
)

const (
	shoppingDialogID     = "ShoesDialog"
	shoeCategoryPromptID = "categoriePrompt"
	pricePromptID        = "pricePrompt"
	productsPromptID     = "shoesListPrompt"
)

// shoppingDialog walks the user from a shoe category to a product carousel.
// The price range answer is shown but not turned into bounds; the catalog
// filter carries whatever the slot extractor stored.
func (s *TurnService) shoppingDialog() *dialog.Dialog[*turnContext] {
	return &dialog.Dialog[*turnContext]{
		ID: shoppingDialogID,
		Steps: []dialog.Step[*turnContext]{
			ensureShoppingState,
			promptForShoeCategory,
			promptForPriceRange,
			s.suggestProducts,
			sayGoodbye,
		},
	}
}

func ensureShoppingState(_ context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	sc.Turn.shopping()
	return sc.Next(nil), nil
}

func promptForShoeCategory(_ context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	if _, ok := shoeCategory(sc.Turn.Activity().Text); ok || sc.Turn.shopping().Category != "" {
		return sc.Next(nil), nil
	}
	return sc.Prompt(shoeCategoryPromptID, choiceCard(msgAskShoeCategory, shoeCategories)), nil
}

func promptForPriceRange(_ context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	st := sc.Turn.shopping()
	// Only a vocabulary match fills an empty category; anything else leaves it
	// unset so the next shopping run asks again.
	if category, ok := shoeCategory(sc.Turn.Activity().Text); ok && st.Category == "" {
		st.Category = category
	}

	if st.PriceMin == 0 && st.PriceMax == 0 {
		return sc.Prompt(pricePromptID, choiceCard(msgAskPriceRange, priceRanges)), nil
	}
	return sc.Next(nil), nil
}

func (s *TurnService) suggestProducts(ctx context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	products, err := s.catalog.ProductsFor(ctx, *sc.Turn.shopping())
	if err != nil {
		return dialog.Action{}, upstreamError("catalog", err)
	}
	return sc.Prompt(productsPromptID, productCarousel(products)), nil
}

func sayGoodbye(_ context.Context, sc *dialog.StepContext[*turnContext]) (dialog.Action, error) {
	sc.Turn.Send(domain.MessageActivity(msgGoodbye))
	return sc.End(nil), nil
}

// shoeCategory matches text against the shoe vocabulary, ignoring case and
// surrounding space, and returns the canonical spelling.
func shoeCategory(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, c := range shoeCategories {
		if strings.EqualFold(text, c) {
			return c, true
		}
	}
	return "", false
}
