package events

const (
	// KindTurnStateChanged identifies turn state machine moves.
	KindTurnStateChanged Kind = "turn_state.changed"
)

// TurnStateChanged marks a turn state machine move. Reason is "transition"
// for table-driven moves, "timeout" for the degrade-to-idle fallback, and
// "reset" for disconnect-driven resets.
type TurnStateChanged struct {
	Base
	From   string
	To     string
	Reason string
}

// NewTurnStateChanged creates a turn state change event.
func NewTurnStateChanged(from, to, reason string) TurnStateChanged {
	return TurnStateChanged{Base: NewBase(KindTurnStateChanged), From: from, To: to, Reason: reason}
}
