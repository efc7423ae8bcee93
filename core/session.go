// Package orchestration coordinates one real-time voice ordering session:
// it owns the data channel lifecycle, validates and routes peer events,
// drives the turn state machine, and exposes the
// connect/start-recording/stop-recording/disconnect facade.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voiceorder/realtime-core/core/events"
	"github.com/voiceorder/realtime-core/core/realtime"
)

// ConnectionState is the session-level connection lifecycle state. It
// supersedes the turn state: turn operations are only valid when Ready.
type ConnectionState string

const (
	ConnectionDisconnected           ConnectionState = "disconnected"
	ConnectionConnecting             ConnectionState = "connecting"
	ConnectionAwaitingSessionCreated ConnectionState = "awaiting_session_created"
	ConnectionAwaitingSessionReady   ConnectionState = "awaiting_session_ready"
	ConnectionReady                  ConnectionState = "ready"
	ConnectionFailed                 ConnectionState = "error"
	ConnectionTimedOut               ConnectionState = "timeout"
)

// ErrNotReady is returned when a turn operation is attempted before the
// session reached Ready.
var ErrNotReady = errors.New("session is not ready")

const (
	defaultEndpoint = "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview"

	defaultTranscriptTimeout = 5 * time.Second
	defaultResponseTimeout   = 10 * time.Second
	defaultReadinessTimeout  = 3 * time.Second

	defaultResponseInstructions = "Respond to the customer's most recent request, then stop and wait for their next turn."
)

// DefaultSessionConfig returns the session configuration negotiated for a
// voice ordering session. Server-side turn detection is disabled: the client
// drives turns explicitly through the recording controls.
func DefaultSessionConfig() realtime.SessionConfig {
	return realtime.SessionConfig{
		Modalities:        []string{"text", "audio"},
		Voice:             "alloy",
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		InputAudioTranscription: &realtime.TranscriptionConfig{
			Model: "whisper-1",
		},
		TurnDetection: nil,
		Instructions: "You are a friendly restaurant ordering assistant. " +
			"Help the customer build their order, answer menu questions, " +
			"and use the order tools to record their requests.",
		Tools:      intentTools(),
		ToolChoice: "auto",
	}
}

// Orchestrator coordinates one logical voice session. One instance owns one
// connection manager, one event router, and one turn state machine; nothing
// is shared across sessions.
type Orchestrator struct {
	endpoint             string
	sessionConfig        realtime.SessionConfig
	responseInstructions string
	policy               reconnectPolicy
	transcriptCapacity   int
	seenCapacity         int
	transcriptTimeout    time.Duration
	responseTimeout      time.Duration
	readinessTimeout     time.Duration
	dial                 dialFunc
	credentials          *credentialCache

	turn       *turnStateMachine
	router     *eventRouter
	connection *connectionManager
	outbound   *outboundQueue

	emitEvent          eventEmitter
	orchestrateOptions OrchestrateOptions

	mu                  sync.Mutex
	state               ConnectionState
	readinessTimer      *time.Timer
	readinessGeneration uint64
}

// NewOrchestrator creates a session orchestrator. Without options it talks
// to the default endpoint using the OPENAI_API_KEY environment credential.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		endpoint:             defaultEndpoint,
		sessionConfig:        DefaultSessionConfig(),
		responseInstructions: defaultResponseInstructions,
		policy:               defaultReconnectPolicy(),
		transcriptTimeout:    defaultTranscriptTimeout,
		responseTimeout:      defaultResponseTimeout,
		readinessTimeout:     defaultReadinessTimeout,
		credentials:          newCredentialCache(EnvCredentialProvider{Var: "OPENAI_API_KEY"}),
		state:                ConnectionDisconnected,
		emitEvent:            noopEventEmitter,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.turn = newTurnStateMachine(o.transcriptTimeout, o.responseTimeout, o.handleTurnTransition)
	o.router = newEventRouter(o.transcriptCapacity, o.seenCapacity, o.turn.State, o.handleSemanticEvent)
	o.connection = newConnectionManager(o.endpoint, o.credentials, o.dial, o.policy, connectionCallbacks{
		onMessage:      o.handleRawMessage,
		onOpen:         o.handleChannelOpen,
		onReconnecting: o.handleReconnecting,
		onFailed:       o.handleConnectionFailed,
	})
	o.outbound = newOutboundQueue(o.connection)

	return o
}

// Connect opens the session. The returned error reports the first attempt
// only; on failure the reconnect schedule keeps running in the background.
func (o *Orchestrator) Connect(ctx context.Context, opts ...OrchestrateOption) error {
	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}
	o.emitEvent = newCallbackEventEmitter(o.orchestrateOptions)

	o.setState(ConnectionConnecting)
	if err := o.connection.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect session: %w", err)
	}
	return nil
}

// StartRecording begins a user turn. Valid only when the session is Ready
// and the turn state machine is idle.
func (o *Orchestrator) StartRecording() error {
	if o.State() != ConnectionReady {
		return ErrNotReady
	}
	if o.turn.State() == TurnFailed {
		// A failed turn is recovered by starting the next one.
		if _, err := o.turn.Transition(TurnEventRetry); err != nil {
			return err
		}
	}
	if _, err := o.turn.Transition(TurnEventRecordingStarted); err != nil {
		return err
	}

	o.outbound.Send(realtime.NewInputAudioBufferClear())
	return nil
}

// StopRecording ends the user turn and commits the buffered audio. Rejected
// when no recording is in progress.
func (o *Orchestrator) StopRecording() error {
	if _, err := o.turn.Transition(TurnEventRecordingStopped); err != nil {
		return err
	}

	o.outbound.Send(realtime.NewInputAudioBufferCommit())
	return nil
}

// Disconnect tears the session down: turn state, queued commands, derived
// caches, pending timers, and the transport itself. Safe to call multiple
// times, from any state.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	o.stopReadinessTimerLocked()
	from := o.state
	o.state = ConnectionDisconnected
	o.mu.Unlock()

	// Transport goes down first so the read loop stops feeding the router
	// before derived state is cleared.
	o.connection.Close()
	o.turn.Reset()
	o.outbound.Clear()
	o.router.reset()

	if from != ConnectionDisconnected {
		o.emitEvent(events.NewConnectionStateChanged(string(from), string(ConnectionDisconnected)))
	}
}

// State returns the current connection lifecycle state.
func (o *Orchestrator) State() ConnectionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// TurnState returns the current turn state.
func (o *Orchestrator) TurnState() TurnState { return o.turn.State() }

// TurnsCompleted reports how many full turns finished this session.
func (o *Orchestrator) TurnsCompleted() int { return o.router.TurnsCompleted() }

func (o *Orchestrator) handleRawMessage(raw []byte) {
	event, err := realtime.Parse(raw)
	if err != nil {
		logger.Warn("dropping wire payload", "error", err)
		return
	}
	o.router.Handle(event)
}

func (o *Orchestrator) handleChannelOpen() {
	// A fresh channel means a fresh peer session: commands queued for the
	// old one are stale, and any in-flight turn is lost.
	o.turn.Reset()
	o.outbound.Clear()
	o.setState(ConnectionAwaitingSessionCreated)
}

func (o *Orchestrator) handleReconnecting(attempt int, delay time.Duration, cause error) {
	logger.Warn("scheduling reconnect", "attempt", attempt, "delay", delay.String(), "error", cause)
	o.setState(ConnectionConnecting)
}

func (o *Orchestrator) handleConnectionFailed(err error) {
	logger.Error("connection failed permanently", "error", err)
	o.turn.Reset()
	o.outbound.Clear()
	if errors.Is(err, context.DeadlineExceeded) {
		o.setState(ConnectionTimedOut)
		return
	}
	o.setState(ConnectionFailed)
}

// handleSemanticEvent reacts to the router's semantic events before they are
// forwarded to the consumer. This is the single bridge between wire-derived
// signals and the public state machines.
func (o *Orchestrator) handleSemanticEvent(event events.Event) {
	switch typedEvent := event.(type) {
	case events.SessionCreated:
		o.handleSessionCreated()

	case events.SessionReady:
		// The peer doesn't always send session.updated; readiness may have
		// been assumed by the timeout already, making this a late no-op.
		if !o.advanceReady() {
			return
		}

	case events.UserAudioCommitted:
		if _, err := o.turn.Transition(TurnEventAudioCommitted); err != nil {
			logger.Debug("ignoring commit acknowledgement outside a turn", "error", err)
		}

	case events.UserTranscriptFinal:
		if _, err := o.turn.Transition(TurnEventTranscriptReceived); err != nil {
			logger.Debug("ignoring transcript outside a turn", "error", err)
		} else {
			o.requestResponse()
		}

	case events.AssistantResponseFinal:
		if _, err := o.turn.Transition(TurnEventResponseComplete); err != nil {
			logger.Debug("response completed outside a turn", "error", err)
		}

	case events.ProviderRateLimited:
		// Transient; the peer recovers on its own and the connection layer
		// handles any resulting drop.
		logger.Warn("peer rate limited", "code", typedEvent.Code, "message", typedEvent.Message)

	case events.ProviderSessionExpired:
		logger.Warn("peer session expired, renegotiating", "code", typedEvent.Code)
		o.setState(ConnectionConnecting)
		o.connection.Drop()

	case events.ProviderConfigurationInvalid:
		// Retrying cannot help; surface immediately.
		logger.Error("peer rejected session configuration",
			"code", typedEvent.Code, "message", typedEvent.Message)
		o.setState(ConnectionFailed)

	case events.ProviderError:
		// The connection survives a generic peer error, but whatever the
		// turn was waiting on is not coming.
		logger.Warn("peer reported an error", "code", typedEvent.Code, "message", typedEvent.Message)
		if o.turn.State() != TurnIdle {
			o.turn.Transition(TurnEventErrorOccurred)
		}
	}

	o.emitEvent(event)
}

func (o *Orchestrator) handleSessionCreated() {
	o.outbound.Send(realtime.NewSessionUpdate(o.sessionConfig))
	o.setState(ConnectionAwaitingSessionReady)
	o.armReadinessTimer()
}

// armReadinessTimer starts the dual-confirmation fallback: if the explicit
// session.updated acknowledgement doesn't arrive in time, the session
// optimistically proceeds to Ready anyway.
func (o *Orchestrator) armReadinessTimer() {
	o.mu.Lock()
	o.stopReadinessTimerLocked()
	o.readinessGeneration++
	generation := o.readinessGeneration
	o.readinessTimer = time.AfterFunc(o.readinessTimeout, func() {
		o.mu.Lock()
		stale := o.readinessGeneration != generation
		o.mu.Unlock()
		if stale {
			return
		}

		if o.advanceReady() {
			logger.Warn("session.updated never arrived, proceeding to ready on timeout")
			o.emitEvent(events.NewSessionReady(false))
		}
	})
	o.mu.Unlock()
}

// advanceReady moves the session to Ready exactly once per negotiation,
// whether driven by the acknowledgement event or the timeout.
func (o *Orchestrator) advanceReady() bool {
	o.mu.Lock()
	if o.state != ConnectionAwaitingSessionReady {
		o.mu.Unlock()
		return false
	}
	from := o.state
	o.state = ConnectionReady
	o.stopReadinessTimerLocked()
	o.mu.Unlock()

	o.emitEvent(events.NewConnectionStateChanged(string(from), string(ConnectionReady)))
	o.turn.Reset()
	o.outbound.Flush()
	return true
}

// requestResponse forces exactly one response for the committed turn.
func (o *Orchestrator) requestResponse() {
	o.outbound.Send(realtime.NewResponseCreate(realtime.ResponseConfig{
		Modalities:   o.sessionConfig.Modalities,
		Instructions: o.responseInstructions,
	}))
}

func (o *Orchestrator) handleTurnTransition(from, to TurnState, reason string) {
	if reason == "timeout" {
		logger.Warn("turn timed out waiting on the peer, degrading to idle", "from", string(from))
	}
	o.emitEvent(events.NewTurnStateChanged(string(from), string(to), reason))
}

func (o *Orchestrator) setState(state ConnectionState) {
	o.mu.Lock()
	if o.state == state {
		o.mu.Unlock()
		return
	}
	from := o.state
	o.state = state
	o.mu.Unlock()

	o.emitEvent(events.NewConnectionStateChanged(string(from), string(state)))
}

func (o *Orchestrator) stopReadinessTimerLocked() {
	o.readinessGeneration++
	if o.readinessTimer != nil {
		o.readinessTimer.Stop()
		o.readinessTimer = nil
	}
}
