package events

import "time"

// Kind names one semantic session event, namespaced by its producer
// (connection.*, session.*, user_input.*, ...). doc.go lists the full
// catalogue.
type Kind string

// Event is the contract every session event satisfies. The set of
// implementations is closed to this package; consumers dispatch by
// switching over the concrete types.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and emission time shared by all session events.
// Concrete events embed it and stamp it through NewBase.
type Base struct {
	kind      Kind
	timestamp time.Time
}

// NewBase stamps a base with its kind and the current time.
func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
