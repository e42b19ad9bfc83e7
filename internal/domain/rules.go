package domain

import "fmt"

// rankNames maps ranks to their display form for history lines.
var rankNames = map[int]string{1: "A", 11: "J", 12: "Q", 13: "K"}

// RankName returns the display name of a card rank.
func RankName(rank int) string {
	if name, ok := rankNames[rank]; ok {
		return name
	}
	return fmt.Sprintf("%d", rank)
}

func (c Card) String() string {
	return RankName(c.Rank) + c.Suit
}

// SortedRanks returns the two upcard ranks as (low, high).
func SortedRanks(upcards [2]Card) (int, int) {
	if upcards[0].Rank <= upcards[1].Rank {
		return upcards[0].Rank, upcards[1].Rank
	}
	return upcards[1].Rank, upcards[0].Rank
}

// WinsInterval reports whether a reveal rank wins against the upcards.
// The interval is strict and open: low < reveal < high. Equal or adjacent
// upcard ranks make the interval empty and nothing can win.
func WinsInterval(upcards [2]Card, reveal Card) bool {
	low, high := SortedRanks(upcards)
	return low < reveal.Rank && reveal.Rank < high
}

// IsDeadHand reports whether no reveal can win against the upcards
// (a pair or consecutive ranks). Betting on a dead hand stays legal;
// the engine only flags it.
func IsDeadHand(upcards [2]Card) bool {
	low, high := SortedRanks(upcards)
	return high-low <= 1
}

// CanShistri reports whether the upcards form a wide enough gap for a
// shistri under the given rules.
func CanShistri(rules TableRules, upcards [2]Card) bool {
	if !rules.ShistriEnabled {
		return false
	}
	low, high := SortedRanks(upcards)
	return high-low >= rules.ShistriMinGap
}

// BetBounds returns the legal plain-bet range [min, max] for the given pot
// and bankroll. The effective minimum shrinks to the pot when the pot is
// below the table minimum; the cap is min(bankroll, pot). An all-in bet
// exactly equal to the bankroll is legal even below the effective minimum.
func BetBounds(rules TableRules, pot, bankroll int64) (int64, int64) {
	effectiveMin := rules.MinBet
	if pot < effectiveMin {
		effectiveMin = pot
	}
	maxBet := bankroll
	if pot < maxBet {
		maxBet = pot
	}
	return effectiveMin, maxBet
}

// BetLegal reports whether a plain bet amount is acceptable.
func BetLegal(rules TableRules, pot, bankroll, amount int64) bool {
	if amount <= 0 {
		return false
	}
	minBet, maxBet := BetBounds(rules, pot, bankroll)
	if amount > maxBet {
		return false
	}
	return amount >= minBet || amount == bankroll
}

// ShistriStake computes the shistri entry cost. It ignores the table's
// normal minimum bet on purpose: min(bankroll, pot, max(minChip, percent of pot)).
func ShistriStake(rules TableRules, pot, bankroll int64) int64 {
	stake := pot * int64(rules.ShistriPercent) / 100
	if stake < rules.ShistriMinChip {
		stake = rules.ShistriMinChip
	}
	if stake > pot {
		stake = pot
	}
	if stake > bankroll {
		stake = bankroll
	}
	return stake
}
