package shed

import "testing"

func TestNewDeckComposition(t *testing.T) {
	deck := newDeck()
	if len(deck) != 52 {
		t.Fatalf("expected 52 cards, got %d", len(deck))
	}

	counts := make(map[Card]int)
	for _, card := range deck {
		counts[card]++
	}
	if len(counts) != 49 {
		t.Fatalf("expected 49 distinct cards, got %d", len(counts))
	}
	if counts[Card{Color: Wild, Value: ValueWildDrawFour}] != 4 {
		t.Fatalf("expected 4 wild-draw-four cards, got %d", counts[Card{Color: Wild, Value: ValueWildDrawFour}])
	}
	for _, color := range seatColors {
		for _, value := range []string{"1", "9", ValueSkip, ValueReverse, ValueDrawTwo} {
			if counts[Card{Color: color, Value: value}] != 1 {
				t.Fatalf("expected exactly one %s-%s", color, value)
			}
		}
	}
}

func TestParseCardValid(t *testing.T) {
	cases := []struct {
		in   string
		want Card
	}{
		{"Red-5", Card{Color: Red, Value: "5"}},
		{"Green-Skip", Card{Color: Green, Value: ValueSkip}},
		{"Blue-Reverse", Card{Color: Blue, Value: ValueReverse}},
		{"Yellow-+2", Card{Color: Yellow, Value: ValueDrawTwo}},
		{"Wild-+4", Card{Color: Wild, Value: ValueWildDrawFour}},
	}
	for _, tc := range cases {
		got, err := ParseCard(tc.in)
		if err != nil {
			t.Fatalf("ParseCard(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseCard(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Fatalf("String() = %q, want %q", got.String(), tc.in)
		}
	}
}

func TestParseCardInvalid(t *testing.T) {
	for _, in := range []string{
		"Red5",       // missing separator
		"Purple-5",   // unknown color
		"Red-0",      // numbers start at 1
		"Red-10",     // numbers end at 9
		"Wild-5",     // wild only pairs with +4
		"Red-+4",     // +4 is wild only
		"Red-Banana", // unknown value
	} {
		if _, err := ParseCard(in); err == nil {
			t.Fatalf("ParseCard(%q) should fail", in)
		}
	}
}
