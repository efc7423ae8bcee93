package realtime

import (
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
)

// ClientCommand is an outbound control message destined for the peer.
type ClientCommand interface {
	CommandType() string
}

func newEventID() string {
	return "evt_" + uuid.NewString()
}

// TurnDetection holds the peer-side VAD configuration. A nil value in
// SessionConfig serializes as null, which disables server-driven turns so
// the client controls them explicitly.
type TurnDetection struct {
	Type              string  `json:"type,omitempty"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// TranscriptionConfig selects the input transcription model.
type TranscriptionConfig struct {
	Model string `json:"model"`
}

// Tool is a function tool definition advertised in the session config.
type Tool struct {
	Type        string             `json:"type"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// SessionConfig is the negotiated session configuration sent via
// session.update.
type SessionConfig struct {
	Modalities              []string             `json:"modalities,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection"`
	Tools                   []Tool               `json:"tools,omitempty"`
	ToolChoice              string               `json:"tool_choice,omitempty"`
	Temperature             float64              `json:"temperature,omitempty"`
}

// SessionUpdate carries the session configuration to the peer.
type SessionUpdate struct {
	Type    string        `json:"type"`
	EventID string        `json:"event_id"`
	Session SessionConfig `json:"session"`
}

func (SessionUpdate) CommandType() string { return "session.update" }

// NewSessionUpdate creates a session.update command.
func NewSessionUpdate(config SessionConfig) SessionUpdate {
	return SessionUpdate{Type: "session.update", EventID: newEventID(), Session: config}
}

// InputAudioBufferClear discards any audio buffered on the peer.
type InputAudioBufferClear struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
}

func (InputAudioBufferClear) CommandType() string { return "input_audio_buffer.clear" }

// NewInputAudioBufferClear creates an input_audio_buffer.clear command.
func NewInputAudioBufferClear() InputAudioBufferClear {
	return InputAudioBufferClear{Type: "input_audio_buffer.clear", EventID: newEventID()}
}

// InputAudioBufferCommit finalizes buffered audio into a conversation item.
type InputAudioBufferCommit struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
}

func (InputAudioBufferCommit) CommandType() string { return "input_audio_buffer.commit" }

// NewInputAudioBufferCommit creates an input_audio_buffer.commit command.
func NewInputAudioBufferCommit() InputAudioBufferCommit {
	return InputAudioBufferCommit{Type: "input_audio_buffer.commit", EventID: newEventID()}
}

// ResponseConfig overrides response generation for a single turn.
type ResponseConfig struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// ResponseCreate asks the peer to generate exactly one response for the
// committed turn.
type ResponseCreate struct {
	Type     string         `json:"type"`
	EventID  string         `json:"event_id"`
	Response ResponseConfig `json:"response"`
}

func (ResponseCreate) CommandType() string { return "response.create" }

// NewResponseCreate creates a response.create command.
func NewResponseCreate(config ResponseConfig) ResponseCreate {
	return ResponseCreate{Type: "response.create", EventID: newEventID(), Response: config}
}
