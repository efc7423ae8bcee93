package events

const (
	// KindSessionCreated identifies the peer's session acknowledgement.
	KindSessionCreated Kind = "session.created"
	// KindSessionReady identifies that turn operations became valid.
	KindSessionReady Kind = "session.ready"
)

// SessionCreated marks the peer acknowledging a new session.
type SessionCreated struct {
	Base
	SessionID string
	ExpiresAt int64
}

// NewSessionCreated creates a session created event.
func NewSessionCreated(sessionID string, expiresAt int64) SessionCreated {
	return SessionCreated{Base: NewBase(KindSessionCreated), SessionID: sessionID, ExpiresAt: expiresAt}
}

// SessionReady marks the session as configured and usable. Confirmed is
// false when readiness was assumed via the timeout fallback rather than an
// explicit session.updated acknowledgement.
type SessionReady struct {
	Base
	Confirmed bool
}

// NewSessionReady creates a session ready event.
func NewSessionReady(confirmed bool) SessionReady {
	return SessionReady{Base: NewBase(KindSessionReady), Confirmed: confirmed}
}
