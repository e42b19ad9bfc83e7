// Package bot seats server-side players at short tables. Agents act through
// the same use-case service as humans; they never touch wallets and their
// decisions come from the visible interval only.
package bot

import (
	"math/rand"
	"strings"

	"github.com/Nektarios-I/Kouppi-sub000/internal/domain"
)

// botIDPrefix marks synthetic user ids so they are never settled to wallets.
const botIDPrefix = "kouppi-bot-"

// IsBot reports whether the given user id represents a bot seat.
func IsBot(userID string) bool {
	return strings.HasPrefix(userID, botIDPrefix)
}

// Move is a bot's chosen action for an open turn.
type Move struct {
	Kind   domain.ResolutionKind
	Amount int64
}

// Agent decides turn actions and decision-phase choices for one bot seat.
type Agent struct {
	UserID string
	rng    *rand.Rand
}

// NewAgent constructs an agent for the given bot user id.
func NewAgent(userID string, seed int64) *Agent {
	return &Agent{UserID: userID, rng: rand.New(rand.NewSource(seed))}
}

// Decide picks an action for the agent's open turn. The heuristic weighs
// interval width against pot odds: dead and narrow hands pass, wide-gap
// hands take the shistri when the table allows it, and only near-certain
// intervals risk the whole pot.
func (a *Agent) Decide(g *domain.Game) Move {
	turn := g.Turn
	if turn == nil || turn.PlayerID != a.UserID {
		return Move{Kind: domain.ResolvePass}
	}
	p := g.PlayerByID(a.UserID)
	low, high := domain.SortedRanks(turn.Upcards)
	width := high - low - 1

	if domain.IsDeadHand(turn.Upcards) || width < 3 {
		return Move{Kind: domain.ResolvePass}
	}

	if domain.CanShistri(g.Rules, turn.Upcards) {
		return Move{Kind: domain.ResolveShistri}
	}

	if width >= 8 && p.Bankroll >= g.Round.Pot && a.rng.Intn(2) == 0 {
		return Move{Kind: domain.ResolveKouppi}
	}

	if width >= 4 {
		minBet, maxBet := domain.BetBounds(g.Rules, g.Round.Pot, p.Bankroll)
		if maxBet <= 0 {
			return Move{Kind: domain.ResolvePass}
		}
		amount := minBet
		if amount > maxBet || amount <= 0 {
			amount = maxBet
		}
		return Move{Kind: domain.ResolveBet, Amount: amount}
	}

	return Move{Kind: domain.ResolvePass}
}

// DecideStay reports whether the bot stays for another round. Bots leave
// only when broke, so short tables keep running.
func (a *Agent) DecideStay(g *domain.Game) bool {
	p := g.PlayerByID(a.UserID)
	return p != nil && p.Bankroll > 0
}
