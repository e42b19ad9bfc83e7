// Package clock tracks per-room tick deadlines. The match loop runs at one
// tick per second; every timed behavior (turn deadline, post-resolution
// review pause, decision window) is a deadline registered here, so a state
// transition can cancel everything it leaves behind in one call instead of
// each call site clearing ad-hoc timer fields.
package clock

// Kind names one deadline slot. A room has at most one deadline per kind.
type Kind string

const (
	KindTurn     Kind = "turn"
	KindReview   Kind = "review"
	KindDecision Kind = "decision"
)

type deadline struct {
	expiresAt int64
	total     int64
}

// Clock is a deadline table for a single room. It is driven entirely by the
// room's tick counter and is safe for the room's single event goroutine.
type Clock struct {
	deadlines map[Kind]deadline
}

// New returns an empty clock.
func New() *Clock {
	return &Clock{deadlines: make(map[Kind]deadline)}
}

// Start arms a deadline of the given kind, replacing any previous one.
func (c *Clock) Start(kind Kind, now int64, seconds int) {
	c.deadlines[kind] = deadline{expiresAt: now + int64(seconds), total: int64(seconds)}
}

// Cancel disarms a deadline. Cancelling an unarmed kind is a no-op.
func (c *Clock) Cancel(kind Kind) {
	delete(c.deadlines, kind)
}

// CancelAll disarms every deadline. Called on every room state exit so no
// stale deadline can fire against an unrelated state.
func (c *Clock) CancelAll() {
	for kind := range c.deadlines {
		delete(c.deadlines, kind)
	}
}

// Active reports whether a deadline of the given kind is armed.
func (c *Clock) Active(kind Kind) bool {
	_, ok := c.deadlines[kind]
	return ok
}

// Expired reports whether an armed deadline has passed. An unarmed kind
// never expires.
func (c *Clock) Expired(kind Kind, now int64) bool {
	d, ok := c.deadlines[kind]
	return ok && now >= d.expiresAt
}

// Remaining returns the seconds left on an armed deadline, clamped at zero.
func (c *Clock) Remaining(kind Kind, now int64) int64 {
	d, ok := c.deadlines[kind]
	if !ok {
		return 0
	}
	remaining := d.expiresAt - now
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Total returns the full duration the deadline was armed with.
func (c *Clock) Total(kind Kind) int64 {
	return c.deadlines[kind].total
}
