package orchestration

import "github.com/voiceorder/realtime-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.ConnectionStateChanged:
			if opts.onConnectionStateChanged != nil {
				opts.onConnectionStateChanged(ConnectionState(typedEvent.To))
			}
		case events.SessionReady:
			if opts.onSessionReady != nil {
				opts.onSessionReady(typedEvent.Confirmed)
			}
		case events.UserSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.UserSpeechStopped:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.UserTranscriptSegment:
			if opts.onTranscriptSegment != nil {
				opts.onTranscriptSegment(typedEvent.Segment)
			}
		case events.UserTranscriptFinal:
			if opts.onTranscript != nil {
				opts.onTranscript(typedEvent.Transcript)
			}
		case events.AssistantResponseSegment:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Segment)
			}
		case events.AssistantResponseFinal:
			if opts.onResponseEnd != nil {
				opts.onResponseEnd(typedEvent.Turn)
			}
		case events.OrderAddRequested:
			if opts.onOrderAdd != nil {
				opts.onOrderAdd(typedEvent.Items)
			}
		case events.OrderConfirmRequested:
			if opts.onOrderConfirm != nil {
				opts.onOrderConfirm(typedEvent.Action)
			}
		case events.OrderRemoveRequested:
			if opts.onOrderRemove != nil {
				opts.onOrderRemove(typedEvent.ItemName, typedEvent.Quantity)
			}
		case events.RateLimitsUpdated:
			if opts.onRateLimits != nil {
				opts.onRateLimits(typedEvent.Limits)
			}
		case events.ProviderRateLimited:
			if opts.onProviderError != nil {
				opts.onProviderError(typedEvent.Code, typedEvent.Message)
			}
		case events.ProviderSessionExpired:
			if opts.onProviderError != nil {
				opts.onProviderError(typedEvent.Code, typedEvent.Message)
			}
		case events.ProviderConfigurationInvalid:
			if opts.onProviderError != nil {
				opts.onProviderError(typedEvent.Code, typedEvent.Message)
			}
		case events.ProviderError:
			if opts.onProviderError != nil {
				opts.onProviderError(typedEvent.Code, typedEvent.Message)
			}
		}
	}
}
