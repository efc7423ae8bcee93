package orchestration

import (
	"time"

	"github.com/voiceorder/realtime-core/core/events"
	"github.com/voiceorder/realtime-core/core/realtime"
)

type OrchestratorOption func(*Orchestrator)

// WithEndpoint overrides the peer endpoint URL.
func WithEndpoint(endpoint string) OrchestratorOption {
	return func(o *Orchestrator) { o.endpoint = endpoint }
}

// WithCredentialProvider sets the token source used for (re)negotiation.
func WithCredentialProvider(provider CredentialProvider) OrchestratorOption {
	return func(o *Orchestrator) { o.credentials = newCredentialCache(provider) }
}

// WithSessionConfig replaces the negotiated session configuration.
func WithSessionConfig(config realtime.SessionConfig) OrchestratorOption {
	return func(o *Orchestrator) { o.sessionConfig = config }
}

// WithResponseInstructions overrides the per-turn response instructions sent
// with response.create.
func WithResponseInstructions(instructions string) OrchestratorOption {
	return func(o *Orchestrator) { o.responseInstructions = instructions }
}

// WithReconnectPolicy tunes the backoff schedule for reconnection attempts.
func WithReconnectPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.policy = reconnectPolicy{maxAttempts: maxAttempts, baseDelay: baseDelay, maxDelay: maxDelay}
	}
}

// WithTurnTimeouts tunes the degrade-to-idle timeouts for the transcript and
// response wait phases.
func WithTurnTimeouts(transcript, response time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.transcriptTimeout = transcript
		o.responseTimeout = response
	}
}

// WithReadinessTimeout tunes how long to wait for the peer's session.updated
// acknowledgement before optimistically proceeding.
func WithReadinessTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.readinessTimeout = timeout }
}

// WithTranscriptCapacity bounds the transcript store.
func WithTranscriptCapacity(capacity int) OrchestratorOption {
	return func(o *Orchestrator) { o.transcriptCapacity = capacity }
}

// WithDeduplicationCapacity bounds the seen-event-id set.
func WithDeduplicationCapacity(capacity int) OrchestratorOption {
	return func(o *Orchestrator) { o.seenCapacity = capacity }
}

// withDialFunc swaps the data channel dialer; tests use it to run against a
// scripted connection.
func withDialFunc(dial dialFunc) OrchestratorOption {
	return func(o *Orchestrator) { o.dial = dial }
}

// OrchestrateOptions carry the consumer's callbacks for one session.
type OrchestrateOptions struct {
	onEvent                  func(events.Event)
	onConnectionStateChanged func(ConnectionState)
	onSessionReady           func(confirmed bool)
	onSpeakingStateChanged   func(speaking bool)
	onTranscriptSegment      func(segment string)
	onTranscript             func(transcript string)
	onResponse               func(segment string)
	onResponseEnd            func(turn int)
	onOrderAdd               func(items []events.OrderItem)
	onOrderConfirm           func(action events.ConfirmAction)
	onOrderRemove            func(itemName string, quantity int)
	onRateLimits             func(limits []events.RateLimitEntry)
	onProviderError          func(code, message string)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventHandler receives every semantic event as the typed sum.
func WithEventHandler(handler func(events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onEvent = handler }
}

func WithConnectionStateCallback(callback func(ConnectionState)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onConnectionStateChanged = callback }
}

func WithSessionReadyCallback(callback func(confirmed bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onSessionReady = callback }
}

func WithSpeakingStateCallback(callback func(speaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onSpeakingStateChanged = callback }
}

func WithTranscriptSegmentCallback(callback func(segment string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onTranscriptSegment = callback }
}

func WithTranscriptCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onTranscript = callback }
}

func WithResponseCallback(callback func(segment string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onResponse = callback }
}

func WithResponseEndCallback(callback func(turn int)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onResponseEnd = callback }
}

func WithOrderAddCallback(callback func(items []events.OrderItem)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onOrderAdd = callback }
}

func WithOrderConfirmCallback(callback func(action events.ConfirmAction)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onOrderConfirm = callback }
}

func WithOrderRemoveCallback(callback func(itemName string, quantity int)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onOrderRemove = callback }
}

func WithRateLimitsCallback(callback func(limits []events.RateLimitEntry)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onRateLimits = callback }
}

func WithProviderErrorCallback(callback func(code, message string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onProviderError = callback }
}
