package realtime

import "encoding/json"

// Kind identifies a wire event type received from the peer.
type Kind string

const (
	KindSessionCreated Kind = "session.created"
	KindSessionUpdated Kind = "session.updated"

	KindSpeechStarted  Kind = "input_audio_buffer.speech_started"
	KindSpeechStopped  Kind = "input_audio_buffer.speech_stopped"
	KindAudioCommitted Kind = "input_audio_buffer.committed"
	KindAudioCleared   Kind = "input_audio_buffer.cleared"

	KindItemCreated            Kind = "conversation.item.created"
	KindTranscriptionDelta     Kind = "conversation.item.input_audio_transcription.delta"
	KindTranscriptionCompleted Kind = "conversation.item.input_audio_transcription.completed"

	KindResponseCreated         Kind = "response.created"
	KindResponseTextDelta       Kind = "response.text.delta"
	KindResponseTextDone        Kind = "response.text.done"
	KindResponseAudioDelta      Kind = "response.audio.delta"
	KindResponseAudioDone       Kind = "response.audio.done"
	KindResponseTranscriptDelta Kind = "response.audio_transcript.delta"
	KindResponseTranscriptDone  Kind = "response.audio_transcript.done"
	KindResponseDone            Kind = "response.done"

	KindFunctionCallStart Kind = "response.function_call_arguments.start"
	KindFunctionCallDelta Kind = "response.function_call_arguments.delta"
	KindFunctionCallDone  Kind = "response.function_call_arguments.done"

	KindError             Kind = "error"
	KindRateLimitsUpdated Kind = "rate_limits.updated"

	KindOutputItemAdded  Kind = "response.output_item.added"
	KindOutputItemDone   Kind = "response.output_item.done"
	KindContentPartAdded Kind = "response.content_part.added"
	KindContentPartDone  Kind = "response.content_part.done"
)

// allowedKinds is the closed set of event kinds accepted from the wire.
// Anything else is dropped at the guard boundary.
var allowedKinds = map[Kind]struct{}{
	KindSessionCreated:          {},
	KindSessionUpdated:          {},
	KindSpeechStarted:           {},
	KindSpeechStopped:           {},
	KindAudioCommitted:          {},
	KindAudioCleared:            {},
	KindItemCreated:             {},
	KindTranscriptionDelta:      {},
	KindTranscriptionCompleted:  {},
	KindResponseCreated:         {},
	KindResponseTextDelta:       {},
	KindResponseTextDone:        {},
	KindResponseAudioDelta:      {},
	KindResponseAudioDone:       {},
	KindResponseTranscriptDelta: {},
	KindResponseTranscriptDone:  {},
	KindResponseDone:            {},
	KindFunctionCallStart:       {},
	KindFunctionCallDelta:       {},
	KindFunctionCallDone:        {},
	KindError:                   {},
	KindRateLimitsUpdated:       {},
	KindOutputItemAdded:         {},
	KindOutputItemDone:          {},
	KindContentPartAdded:        {},
	KindContentPartDone:         {},
}

// Allowed reports whether kind belongs to the wire allow-list.
func Allowed(kind Kind) bool {
	_, ok := allowedKinds[kind]
	return ok
}

// Event is a wire event that passed the guard boundary. Raw holds the full
// original payload for per-kind decoding.
type Event struct {
	Kind Kind
	ID   string
	Raw  json.RawMessage
}

// Decode unmarshals the event payload into the given kind-specific struct.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

// SessionInfo describes the peer-side session in lifecycle events.
type SessionInfo struct {
	ID        string `json:"id"`
	Model     string `json:"model,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// SessionCreated is the payload of session.created.
type SessionCreated struct {
	Session SessionInfo `json:"session"`
}

// BufferLifecycle is the shared payload shape of input_audio_buffer events.
type BufferLifecycle struct {
	ItemID         string `json:"item_id,omitempty"`
	PreviousItemID string `json:"previous_item_id,omitempty"`
	AudioStartMs   int64  `json:"audio_start_ms,omitempty"`
	AudioEndMs     int64  `json:"audio_end_ms,omitempty"`
}

// ConversationItem is the inner item object of conversation.item.created.
type ConversationItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role"`
}

// ItemCreated is the payload of conversation.item.created.
type ItemCreated struct {
	Item ConversationItem `json:"item"`
}

// TranscriptionDelta is the payload of input_audio_transcription.delta.
type TranscriptionDelta struct {
	ItemID string `json:"item_id"`
	Delta  string `json:"delta"`
}

// TranscriptionCompleted is the payload of input_audio_transcription.completed.
type TranscriptionCompleted struct {
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

// ResponseInfo describes a response in lifecycle events.
type ResponseInfo struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// ResponseCreated is the payload of response.created.
type ResponseCreated struct {
	Response ResponseInfo `json:"response"`
}

// TextDelta is the shared payload shape of response.text.delta and
// response.audio_transcript.delta.
type TextDelta struct {
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Delta      string `json:"delta"`
}

// TextDone is the shared payload shape of response.text.done and
// response.audio_transcript.done.
type TextDone struct {
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
}

// ResponseDone is the payload of response.done.
type ResponseDone struct {
	Response ResponseInfo `json:"response"`
}

// FunctionCallStart is the payload of response.function_call_arguments.start.
type FunctionCallStart struct {
	CallID string `json:"call_id"`
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

// FunctionCallDelta is the payload of response.function_call_arguments.delta.
type FunctionCallDelta struct {
	CallID string `json:"call_id"`
	Delta  string `json:"delta"`
}

// FunctionCallDone is the payload of response.function_call_arguments.done.
type FunctionCallDone struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ErrorPayload is the payload of the peer's error event.
type ErrorPayload struct {
	Error struct {
		Type    string `json:"type,omitempty"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		EventID string `json:"event_id,omitempty"`
	} `json:"error"`
}

// RateLimit is one entry of rate_limits.updated.
type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}

// RateLimitsUpdated is the payload of rate_limits.updated.
type RateLimitsUpdated struct {
	RateLimits []RateLimit `json:"rate_limits"`
}
