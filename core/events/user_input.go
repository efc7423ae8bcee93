package events

const (
	// KindUserSpeechStarted identifies start of user speech activity.
	KindUserSpeechStarted Kind = "user_input.speech_started"
	// KindUserSpeechStopped identifies end of user speech activity.
	KindUserSpeechStopped Kind = "user_input.speech_stopped"
	// KindUserAudioCommitted identifies the buffered audio being committed.
	KindUserAudioCommitted Kind = "user_input.audio_committed"
	// KindUserAudioCleared identifies the buffered audio being discarded.
	KindUserAudioCleared Kind = "user_input.audio_cleared"
	// KindUserTranscriptSegment identifies append-only transcript segments.
	KindUserTranscriptSegment Kind = "user_input.transcript_segment"
	// KindUserTranscriptFinal identifies the final transcript for the active item.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
)

// UserSpeechStarted marks when the peer detects user speech.
type UserSpeechStarted struct{ Base }

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted() UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted)}
}

// UserSpeechStopped marks when the peer detects end of user speech.
type UserSpeechStopped struct{ Base }

// NewUserSpeechStopped creates a user speech stopped event.
func NewUserSpeechStopped() UserSpeechStopped {
	return UserSpeechStopped{Base: NewBase(KindUserSpeechStopped)}
}

// UserAudioCommitted marks buffered audio being committed into an item.
type UserAudioCommitted struct {
	Base
	ItemID string
}

// NewUserAudioCommitted creates an audio committed event.
func NewUserAudioCommitted(itemID string) UserAudioCommitted {
	return UserAudioCommitted{Base: NewBase(KindUserAudioCommitted), ItemID: itemID}
}

// UserAudioCleared marks the peer audio buffer being discarded.
type UserAudioCleared struct{ Base }

// NewUserAudioCleared creates an audio cleared event.
func NewUserAudioCleared() UserAudioCleared {
	return UserAudioCleared{Base: NewBase(KindUserAudioCleared)}
}

// UserTranscriptSegment carries an append-only transcript piece.
type UserTranscriptSegment struct {
	Base
	ItemID  string
	Segment string
}

// NewUserTranscriptSegment creates a transcript segment event.
func NewUserTranscriptSegment(itemID, segment string) UserTranscriptSegment {
	return UserTranscriptSegment{Base: NewBase(KindUserTranscriptSegment), ItemID: itemID, Segment: segment}
}

// UserTranscriptFinal carries the terminal transcript for the active item.
type UserTranscriptFinal struct {
	Base
	ItemID     string
	Transcript string
}

// NewUserTranscriptFinal creates a final transcript event.
func NewUserTranscriptFinal(itemID, transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), ItemID: itemID, Transcript: transcript}
}
