package shed

import (
	"fmt"
	"math/rand"
	"strings"
)

// Color is a card color. Wild is reserved for the wild-draw-four cards.
type Color string

const (
	Red    Color = "Red"
	Green  Color = "Green"
	Blue   Color = "Blue"
	Yellow Color = "Yellow"
	Wild   Color = "Wild"
)

// Special card values. Numbers are the strings "1" through "9".
const (
	ValueSkip         = "Skip"
	ValueReverse      = "Reverse"
	ValueDrawTwo      = "+2"
	ValueWildDrawFour = "+4"
)

var seatColors = []Color{Red, Green, Blue, Yellow}

// Card is one card of the fixed 52-card deck.
type Card struct {
	Color Color
	Value string
}

// String renders the wire form "Color-Value".
func (c Card) String() string {
	return string(c.Color) + "-" + c.Value
}

// IsSpecial reports whether the card carries an effect. Special cards are
// never revealed as the starting discard.
func (c Card) IsSpecial() bool {
	switch c.Value {
	case ValueSkip, ValueReverse, ValueDrawTwo, ValueWildDrawFour:
		return true
	}
	return false
}

// ParseCard decodes the wire form "Color-Value".
func ParseCard(s string) (Card, error) {
	idx := strings.Index(s, "-")
	if idx < 0 {
		return Card{}, fmt.Errorf("card %q missing separator", s)
	}
	card := Card{Color: Color(s[:idx]), Value: s[idx+1:]}

	switch card.Color {
	case Wild:
		if card.Value != ValueWildDrawFour {
			return Card{}, fmt.Errorf("invalid wild card %q", s)
		}
		return card, nil
	case Red, Green, Blue, Yellow:
	default:
		return Card{}, fmt.Errorf("unknown card color %q", card.Color)
	}

	switch card.Value {
	case ValueSkip, ValueReverse, ValueDrawTwo:
		return card, nil
	}
	if len(card.Value) == 1 && card.Value[0] >= '1' && card.Value[0] <= '9' {
		return card, nil
	}
	return Card{}, fmt.Errorf("unknown card value %q", card.Value)
}

// newDeck builds the full 52-card deck: per color the numbers 1-9 plus the
// three colored specials, and four wild-draw-four cards.
func newDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, color := range seatColors {
		for n := 1; n <= 9; n++ {
			deck = append(deck, Card{Color: color, Value: fmt.Sprintf("%d", n)})
		}
		deck = append(deck,
			Card{Color: color, Value: ValueDrawTwo},
			Card{Color: color, Value: ValueSkip},
			Card{Color: color, Value: ValueReverse},
		)
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, Card{Color: Wild, Value: ValueWildDrawFour})
	}
	return deck
}

func shuffle(rng *rand.Rand, cards []Card) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
