package events

const (
	// KindConnectionStateChanged identifies connection lifecycle moves.
	KindConnectionStateChanged Kind = "connection.state_changed"
)

// ConnectionStateChanged marks a connection lifecycle state move.
type ConnectionStateChanged struct {
	Base
	From string
	To   string
}

// NewConnectionStateChanged creates a connection state change event.
func NewConnectionStateChanged(from, to string) ConnectionStateChanged {
	return ConnectionStateChanged{Base: NewBase(KindConnectionStateChanged), From: from, To: to}
}
