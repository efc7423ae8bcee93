package orchestration

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// TurnState is the state of one conversational turn. Exactly one is active
// per session.
type TurnState string

const (
	TurnIdle               TurnState = "idle"
	TurnRecording          TurnState = "recording"
	TurnCommitting         TurnState = "committing"
	TurnAwaitingTranscript TurnState = "awaiting_transcript"
	TurnAwaitingResponse   TurnState = "awaiting_response"
	TurnFailed             TurnState = "error"
)

// TurnEvent is an input to the turn state machine.
type TurnEvent string

const (
	TurnEventRecordingStarted   TurnEvent = "recording_started"
	TurnEventRecordingStopped   TurnEvent = "recording_stopped"
	TurnEventAudioCommitted     TurnEvent = "audio_committed"
	TurnEventTranscriptReceived TurnEvent = "transcript_received"
	TurnEventResponseComplete   TurnEvent = "response_complete"
	TurnEventErrorOccurred      TurnEvent = "error_occurred"
	TurnEventRetry              TurnEvent = "retry"
)

// ErrInvalidTransition is returned when a (state, event) pair is not in the
// transition table. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid turn transition")

// turnTransitions is the closed transition table. Pairs absent from it are
// hard rejects; this replaces ad-hoc boolean flags and timestamp debouncing
// by making invalid sequences unrepresentable.
var turnTransitions = map[TurnState]map[TurnEvent]TurnState{
	TurnIdle: {
		TurnEventRecordingStarted: TurnRecording,
	},
	TurnRecording: {
		TurnEventRecordingStopped: TurnCommitting,
	},
	TurnCommitting: {
		TurnEventAudioCommitted: TurnAwaitingTranscript,
	},
	TurnAwaitingTranscript: {
		TurnEventTranscriptReceived: TurnAwaitingResponse,
	},
	TurnAwaitingResponse: {
		TurnEventResponseComplete: TurnIdle,
	},
	TurnFailed: {
		TurnEventRetry: TurnIdle,
	},
}

type turnStateMachine struct {
	mu    sync.Mutex
	state TurnState

	transcriptTimeout time.Duration
	responseTimeout   time.Duration

	timer *time.Timer
	// generation invalidates stale timers after a transition or reset.
	generation uint64

	onTransition func(from, to TurnState, reason string)
}

func newTurnStateMachine(transcriptTimeout, responseTimeout time.Duration, onTransition func(from, to TurnState, reason string)) *turnStateMachine {
	if onTransition == nil {
		onTransition = func(TurnState, TurnState, string) {}
	}
	return &turnStateMachine{
		state:             TurnIdle,
		transcriptTimeout: transcriptTimeout,
		responseTimeout:   responseTimeout,
		onTransition:      onTransition,
	}
}

func (m *turnStateMachine) State() TurnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition applies an event to the machine. An event not valid for the
// current state returns ErrInvalidTransition and leaves the state unchanged.
func (m *turnStateMachine) Transition(event TurnEvent) (TurnState, error) {
	m.mu.Lock()

	from := m.state
	var to TurnState
	if event == TurnEventErrorOccurred {
		to = TurnFailed
	} else {
		next, ok := turnTransitions[from][event]
		if !ok {
			m.mu.Unlock()
			return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
		}
		to = next
	}

	m.state = to
	m.stopTimerLocked()
	switch to {
	case TurnAwaitingTranscript:
		m.armTimerLocked(m.transcriptTimeout)
	case TurnAwaitingResponse:
		m.armTimerLocked(m.responseTimeout)
	}
	m.mu.Unlock()

	m.onTransition(from, to, "transition")
	return to, nil
}

// Reset forces the machine back to idle and cancels any pending timeout.
// Safe to call from any state, any number of times.
func (m *turnStateMachine) Reset() {
	m.mu.Lock()
	from := m.state
	m.state = TurnIdle
	m.stopTimerLocked()
	m.mu.Unlock()

	if from != TurnIdle {
		m.onTransition(from, TurnIdle, "reset")
	}
}

// armTimerLocked schedules the degrade-to-idle fallback: losing one turn is
// preferable to a client stuck waiting on a peer that went quiet.
func (m *turnStateMachine) armTimerLocked(timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	m.generation++
	generation := m.generation
	m.timer = time.AfterFunc(timeout, func() {
		m.mu.Lock()
		if m.generation != generation {
			m.mu.Unlock()
			return
		}
		from := m.state
		m.state = TurnIdle
		m.timer = nil
		m.mu.Unlock()

		m.onTransition(from, TurnIdle, "timeout")
	})
}

func (m *turnStateMachine) stopTimerLocked() {
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
