package nakama

// stage is the coordinator's explicit sub-state for one room. Every timed
// behavior belongs to exactly one stage, and every stage transition runs
// through drive(), which cancels the previous stage's deadlines first.
type stage string

const (
	stageLobby    stage = "lobby"    // waiting for the host to start
	stageTurn     stage = "turn"     // one open turn, turn clock armed
	stageReview   stage = "review"   // resolution shown, review pause armed
	stageDecision stage = "decision" // stay/leave window armed
	stageIdle     stage = "idle"     // finished game, too few players to continue
)

const (
	// afkKickThreshold removes a player from the room on their Nth
	// consecutive turn timeout.
	afkKickThreshold = 2

	// idleGraceSeconds keeps a finished table around for late goodbyes
	// before the room is torn down.
	idleGraceSeconds = 60

	// botFillSeats is how many seats a solo-human lobby is topped up to.
	botFillSeats = 3

	// botBankroll is the fixed stake a bot brings to the table. Bots are
	// never settled against wallets.
	botBankroll = 1000

	chatRingSize = 50
	chatMaxRunes = 200
)

// roomPlayer is one seat at the table. Seat order is the engine's player
// order; membership survives disconnects until the AFK threshold hits.
type roomPlayer struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	SessionID   string `json:"session_id"`
	AFKCount    int    `json:"afk_count"`
	IsBot       bool   `json:"is_bot"`
}

// chatRing is the room's bounded chat history, replayed to rejoiners via
// the snapshot.
type chatRing struct {
	msgs []ChatMessageEvent
}

func newChatRing() *chatRing {
	return &chatRing{}
}

func (c *chatRing) Push(msg ChatMessageEvent) {
	c.msgs = append(c.msgs, msg)
	if len(c.msgs) > chatRingSize {
		c.msgs = c.msgs[len(c.msgs)-chatRingSize:]
	}
}

func (c *chatRing) Messages() []ChatMessageEvent {
	out := make([]ChatMessageEvent, len(c.msgs))
	copy(out, c.msgs)
	return out
}
