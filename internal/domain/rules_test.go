package domain

import "testing"

func TestWinsIntervalIsStrictAndOpen(t *testing.T) {
	upcards := [2]Card{{Suit: "S", Rank: 4}, {Suit: "H", Rank: 9}}

	tests := []struct {
		name   string
		reveal int
		want   bool
	}{
		{"InsideInterval", 6, true},
		{"LowBoundLoses", 4, false},
		{"HighBoundLoses", 9, false},
		{"BelowLoses", 2, false},
		{"AboveLoses", 12, false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got := WinsInterval(upcards, Card{Suit: "D", Rank: test.reveal})
			if got != test.want {
				t.Fatalf("WinsInterval(4/9, %d) = %t, want %t", test.reveal, got, test.want)
			}
		})
	}
}

func TestPairAndConsecutiveNeverWin(t *testing.T) {
	hands := map[string][2]Card{
		"Pair":        {{Suit: "S", Rank: 7}, {Suit: "H", Rank: 7}},
		"Consecutive": {{Suit: "S", Rank: 7}, {Suit: "H", Rank: 8}},
	}
	for name, upcards := range hands {
		t.Run(name, func(t *testing.T) {
			if !IsDeadHand(upcards) {
				t.Fatalf("IsDeadHand(%v) = false, want true", upcards)
			}
			if CanShistri(DefaultRules(), upcards) {
				t.Fatalf("CanShistri must be false on a dead hand")
			}
			for rank := 1; rank <= 13; rank++ {
				if WinsInterval(upcards, Card{Suit: "C", Rank: rank}) {
					t.Fatalf("reveal rank %d won against %v", rank, upcards)
				}
			}
		})
	}
}

func TestCanShistriRequiresWideGap(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name string
		low  int
		high int
		want bool
	}{
		{"GapFive", 3, 8, false},
		{"GapSix", 3, 9, true},
		{"AceToKing", 1, 13, true},
		{"Pair", 6, 6, false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			upcards := [2]Card{{Suit: "S", Rank: test.high}, {Suit: "H", Rank: test.low}}
			if got := CanShistri(rules, upcards); got != test.want {
				t.Fatalf("CanShistri(%d/%d) = %t, want %t", test.low, test.high, got, test.want)
			}
		})
	}

	rules.ShistriEnabled = false
	if CanShistri(rules, [2]Card{{Suit: "S", Rank: 1}, {Suit: "H", Rank: 13}}) {
		t.Fatalf("CanShistri must respect the table toggle")
	}
}

func TestBetLegalBoundsAndAllIn(t *testing.T) {
	rules := DefaultRules() // min bet 10

	tests := []struct {
		name     string
		pot      int64
		bankroll int64
		amount   int64
		want     bool
	}{
		{"AtMinimum", 100, 100, 10, true},
		{"BelowMinimum", 100, 100, 5, false},
		{"UpToPot", 100, 200, 100, true},
		{"OverPot", 100, 200, 120, false},
		{"OverBankroll", 100, 30, 40, false},
		{"AllInBelowMinimum", 100, 4, 4, true},
		{"SmallPotShrinksMinimum", 6, 100, 6, true},
		{"Zero", 100, 100, 0, false},
		{"Negative", 100, 100, -10, false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got := BetLegal(rules, test.pot, test.bankroll, test.amount)
			if got != test.want {
				t.Fatalf("BetLegal(pot=%d, bankroll=%d, amount=%d) = %t, want %t",
					test.pot, test.bankroll, test.amount, got, test.want)
			}
		})
	}
}

func TestShistriStake(t *testing.T) {
	rules := DefaultRules() // 25%, min chip 5

	tests := []struct {
		name     string
		pot      int64
		bankroll int64
		want     int64
	}{
		{"PercentOfPot", 100, 100, 25},
		{"MinChipFloor", 10, 100, 5},
		{"CappedByPot", 4, 100, 4},
		{"CappedByBankroll", 100, 3, 3},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := ShistriStake(rules, test.pot, test.bankroll); got != test.want {
				t.Fatalf("ShistriStake(pot=%d, bankroll=%d) = %d, want %d",
					test.pot, test.bankroll, got, test.want)
			}
		})
	}
}

func TestNewDeckHasFiftyTwoDistinctCards(t *testing.T) {
	deck := NewDeck()
	if len(deck) != 52 {
		t.Fatalf("deck size = %d, want 52", len(deck))
	}
	seen := make(map[Card]bool, 52)
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate card %v", c)
		}
		seen[c] = true
	}
}
