package app

import "errors"

// Choice is a player's post-round decision.
type Choice string

const (
	ChoiceStay  Choice = "stay"
	ChoiceLeave Choice = "leave"
	choiceUnset Choice = ""
)

var (
	ErrNotDeciding = errors.New("player has no pending decision")
	ErrBadChoice   = errors.New("unknown decision choice")
)

// DecisionPhase collects stay/leave choices from every player still at the
// table after a round ends. It resolves the instant no choice is unset, or
// forcibly at the deadline with every unset choice treated as a leave.
type DecisionPhase struct {
	DeadlineTick int64

	choices map[string]Choice
	order   []string
}

// NewDecisionPhase opens a decision window for the given players.
func NewDecisionPhase(playerIDs []string, deadlineTick int64) *DecisionPhase {
	d := &DecisionPhase{
		DeadlineTick: deadlineTick,
		choices:      make(map[string]Choice, len(playerIDs)),
		order:        append([]string(nil), playerIDs...),
	}
	for _, id := range playerIDs {
		d.choices[id] = choiceUnset
	}
	return d
}

// Submit records a player's choice.
func (d *DecisionPhase) Submit(playerID string, choice Choice) error {
	if choice != ChoiceStay && choice != ChoiceLeave {
		return ErrBadChoice
	}
	if _, ok := d.choices[playerID]; !ok {
		return ErrNotDeciding
	}
	d.choices[playerID] = choice
	return nil
}

// Drop removes a player from the phase entirely (already left or kicked).
func (d *DecisionPhase) Drop(playerID string) {
	if _, ok := d.choices[playerID]; !ok {
		return
	}
	delete(d.choices, playerID)
	for i, id := range d.order {
		if id == playerID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Complete reports whether every remaining player has chosen.
func (d *DecisionPhase) Complete() bool {
	for _, c := range d.choices {
		if c == choiceUnset {
			return false
		}
	}
	return true
}

// Expired reports whether the deadline has passed at the given tick.
func (d *DecisionPhase) Expired(tick int64) bool {
	return tick >= d.DeadlineTick
}

// Resolve splits players into stayers and leavers, in table order. When
// forced (deadline hit), an unset choice is an implicit leave.
func (d *DecisionPhase) Resolve(forced bool) (stay, leave []string) {
	for _, id := range d.order {
		switch d.choices[id] {
		case ChoiceStay:
			stay = append(stay, id)
		case ChoiceLeave:
			leave = append(leave, id)
		default:
			if forced {
				leave = append(leave, id)
			}
		}
	}
	return stay, leave
}

// Choices returns a copy of the current choice map for snapshots.
func (d *DecisionPhase) Choices() map[string]Choice {
	out := make(map[string]Choice, len(d.choices))
	for id, c := range d.choices {
		out[id] = c
	}
	return out
}
