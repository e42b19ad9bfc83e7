package domain

// Phase represents the lifecycle stage of a Kouppi table.
type Phase string

const (
	// PhaseLobby is the pre-game state where players can join.
	PhaseLobby Phase = "lobby"
	// PhaseRound is the active state with a pot in play.
	PhaseRound Phase = "round"
	// PhaseRoundEnd is the state after a pot has been emptied.
	PhaseRoundEnd Phase = "round_end"
)

// Card is a single playing card.
type Card struct {
	Suit string `json:"suit"` // "S","H","D","C"
	Rank int    `json:"rank"` // 1..13, 1=Ace, 11..13=face
}

// Player holds the engine-level state for a seat at the table.
// A bankrupt player keeps their seat and is auto-passed on their turn.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsBot    bool   `json:"is_bot"`
	Bankroll int64  `json:"bankroll"`
}

// Turn is the acting player's open hand. A Turn with no Reveal is open;
// once a reveal resolves it the Turn is cleared from the state.
type Turn struct {
	PlayerID  string  `json:"player_id"`
	Upcards   [2]Card `json:"upcards"`
	Reveal    *Card   `json:"reveal,omitempty"`
	BetAmount int64   `json:"bet_amount,omitempty"`
}

// ResolutionKind identifies how an open turn was closed.
type ResolutionKind string

const (
	ResolvePass    ResolutionKind = "pass"
	ResolveBet     ResolutionKind = "bet"
	ResolveKouppi  ResolutionKind = "kouppi"
	ResolveShistri ResolutionKind = "shistri"
)

// Resolution is the résumé of the most recent closed turn, kept for display.
type Resolution struct {
	PlayerID string         `json:"player_id"`
	Kind     ResolutionKind `json:"kind"`
	Upcards  [2]Card        `json:"upcards"`
	Reveal   *Card          `json:"reveal,omitempty"`
	Amount   int64          `json:"amount"`
	Won      bool           `json:"won"`
	AutoPass bool           `json:"auto_pass"`
}

// Round tracks the pot and the seat that opened it.
type Round struct {
	StarterIndex int   `json:"starter_index"`
	Pot          int64 `json:"pot"`
}

// TableRules is the resolved numeric configuration for one table.
// The engine has no knowledge of stake tiers; the catalog resolves them upstream.
type TableRules struct {
	Ante            int64 `json:"ante"`
	MinBet          int64 `json:"min_bet"`
	ShistriEnabled  bool  `json:"shistri_enabled"`
	ShistriMinGap   int   `json:"shistri_min_gap"`
	ShistriPercent  int   `json:"shistri_percent"`
	ShistriMinChip  int64 `json:"shistri_min_chip"`
	MaxPlayers      int   `json:"max_players"`
	TurnSeconds     int   `json:"turn_seconds"`
	DecisionSeconds int   `json:"decision_seconds"`
	ReviewSeconds   int   `json:"review_seconds"`
}

// DefaultRules returns the table rules used when no catalog is loaded.
func DefaultRules() TableRules {
	return TableRules{
		Ante:            10,
		MinBet:          10,
		ShistriEnabled:  true,
		ShistriMinGap:   6,
		ShistriPercent:  25,
		ShistriMinChip:  5,
		MaxPlayers:      8,
		TurnSeconds:     30,
		DecisionSeconds: 30,
		ReviewSeconds:   3,
	}
}
