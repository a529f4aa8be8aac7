package usecase

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"shop-bot/internal/domain"
)

var (
	greetingCategories = []string{"Clothing", "Shoes", "Accessories"}
	shoeCategories     = []string{"Sneakers", "Loafers", "Boots"}
	priceRanges        = []string{"Under $75", "$75 to $250", "Over $250"}
)

//go:embed resources/welcome_card.json
var welcomeCardJSON []byte

// welcomeCard decodes the embedded adaptive card. The content is decoded on
// every call so callers never share the map.
func welcomeCard() (domain.Attachment, error) {
	var content map[string]any
	if err := json.Unmarshal(welcomeCardJSON, &content); err != nil {
		return domain.Attachment{}, fmt.Errorf("usecase: decode welcome card: %w", err)
	}
	return domain.Attachment{ContentType: domain.ContentTypeAdaptiveCard, Content: content}, nil
}

// choiceCard is a message with one hero card holding an imBack button per choice.
func choiceCard(text string, choices []string) domain.Activity {
	card := domain.HeroCard{Buttons: make([]domain.CardAction, 0, len(choices))}
	for _, c := range choices {
		card.Buttons = append(card.Buttons, domain.CardAction{Type: domain.ActionImBack, Title: c, Value: c})
	}
	return domain.MessageActivity(text, card.ToAttachment())
}

func productCard(p domain.Product) domain.HeroCard {
	card := domain.HeroCard{
		Title:    p.Name,
		Subtitle: strconv.FormatFloat(p.Price, 'f', -1, 64),
		Text:     p.Name,
		Buttons: []domain.CardAction{
			{Type: domain.ActionImBack, Title: "Buy this item", Value: "Buy"},
			{Type: domain.ActionImBack, Title: "See more like this", Value: "More"},
			{Type: domain.ActionImBack, Title: "Ask a question", Value: "Question"},
		},
	}
	if p.Image != "" {
		card.Images = []domain.CardImage{{URL: p.Image}}
	}
	return card
}

// productCarousel renders the catalog results. An empty list yields a plain
// "could not find anything" message.
func productCarousel(products []domain.Product) domain.Activity {
	if len(products) == 0 {
		return domain.MessageActivity(msgNoProducts)
	}
	attachments := make([]domain.Attachment, 0, len(products))
	for _, p := range products {
		attachments = append(attachments, productCard(p).ToAttachment())
	}
	a := domain.MessageActivity(msgProducts, attachments...)
	a.AttachmentLayout = domain.LayoutCarousel
	return a
}
