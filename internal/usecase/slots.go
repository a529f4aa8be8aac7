package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"shop-bot/internal/domain"
)

// Entity aliases per slot, exact name first.
var (
	nameEntities     = []string{"userName", "userName_patternAny"}
	cityEntities     = []string{"userLocation", "userLocation_patternAny"}
	categoryEntities = []string{"productCategorie", "productCategorie_patternAny"}
	priceMinEntities = []string{"priceMin", "priceMin_patternAny"}
	priceMaxEntities = []string{"priceMax", "priceMax_patternAny"}
)

// SlotError reports an entity value that could not be converted for its slot.
type SlotError struct {
	Slot   string
	Entity string
	Value  string
	Err    error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("usecase: slot %s from %s=%q: %v", e.Slot, e.Entity, e.Value, e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

// extractGreetingSlots overwrites name and city from the turn's entities.
// Slots without a matching entity keep their current value.
func extractGreetingSlots(entities map[string][]string, current domain.GreetingState) domain.GreetingState {
	out := current
	if _, v, ok := firstEntity(entities, nameEntities); ok {
		out.Name = capitalize(v)
	}
	if _, v, ok := firstEntity(entities, cityEntities); ok {
		out.City = capitalize(v)
	}
	return out
}

// extractShoppingSlots resets both price bounds, then fills category and
// bounds from the turn's entities. A price that does not parse stays 0 and is
// returned as a SlotError.
func extractShoppingSlots(entities map[string][]string, current domain.ShoppingState) (domain.ShoppingState, []*SlotError) {
	out := current
	out.PriceMin = 0
	out.PriceMax = 0

	if _, v, ok := firstEntity(entities, categoryEntities); ok {
		out.Category = capitalize(v)
	}

	var errs []*SlotError
	parsePrice := func(slot string, aliases []string, dst *float64) {
		name, v, ok := firstEntity(entities, aliases)
		if !ok {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, &SlotError{Slot: slot, Entity: name, Value: v, Err: err})
			return
		}
		*dst = f
	}
	parsePrice("priceMin", priceMinEntities, &out.PriceMin)
	parsePrice("priceMax", priceMaxEntities, &out.PriceMax)
	return out, errs
}

// firstEntity returns the first non-empty value of the first alias that has one.
// Empty values are skipped on purpose: an empty first match would otherwise
// blank the slot instead of falling back to the next value or alias.
func firstEntity(entities map[string][]string, aliases []string) (alias, value string, ok bool) {
	for _, name := range aliases {
		for _, v := range entities[name] {
			if v != "" {
				return name, v, true
			}
		}
	}
	return "", "", false
}

// capitalize upper-cases the first character only.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
