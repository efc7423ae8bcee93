package orchestration

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/voiceorder/realtime-core/core/events"
	"github.com/voiceorder/realtime-core/core/realtime"
)

// maxTranscriptChars caps a single transcript payload; longer input is
// truncated before it reaches the store or any consumer.
const maxTranscriptChars = 10000

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// sanitizeTranscript strips markup fragments from peer-supplied text and
// bounds its length, guarding downstream render surfaces.
func sanitizeTranscript(text string) string {
	if strings.ContainsRune(text, '<') {
		text = markupPattern.ReplaceAllString(text, "")
	}
	if len(text) > maxTranscriptChars {
		cut := maxTranscriptChars
		// Back off to a rune boundary so truncation never emits invalid
		// UTF-8.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

type functionCallAccumulator struct {
	name      string
	arguments strings.Builder
}

// eventRouter dispatches validated wire events: deduplicates by event id,
// accumulates transcripts, and emits semantic events to the orchestrator.
type eventRouter struct {
	transcripts *transcriptStore
	seen        *seenEvents
	emit        func(events.Event)
	// turnState is queried to gate speech signals to the active recording.
	turnState func() TurnState

	activeUserItem string
	turnsCompleted int
	fnCalls        map[string]*functionCallAccumulator
}

func newEventRouter(transcriptCapacity, seenCapacity int, turnState func() TurnState, emit func(events.Event)) *eventRouter {
	if emit == nil {
		emit = func(events.Event) {}
	}
	if turnState == nil {
		turnState = func() TurnState { return TurnIdle }
	}
	return &eventRouter{
		transcripts: newTranscriptStore(transcriptCapacity),
		seen:        newSeenEvents(seenCapacity),
		emit:        emit,
		turnState:   turnState,
		fnCalls:     map[string]*functionCallAccumulator{},
	}
}

// Handle routes one validated wire event. Events whose id was already
// processed are skipped.
func (r *eventRouter) Handle(event *realtime.Event) {
	if r.seen.Seen(event.ID) {
		logger.Debug("skipping duplicate event", "kind", string(event.Kind), "event_id", event.ID)
		return
	}

	switch event.Kind {
	case realtime.KindSessionCreated:
		var payload realtime.SessionCreated
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode session.created", "error", err)
			return
		}
		r.emit(events.NewSessionCreated(payload.Session.ID, payload.Session.ExpiresAt))

	case realtime.KindSessionUpdated:
		r.emit(events.NewSessionReady(true))

	case realtime.KindSpeechStarted:
		// Speech signals outside an active recording are spurious peer
		// chatter, not user activity.
		if r.turnState() != TurnRecording {
			return
		}
		r.emit(events.NewUserSpeechStarted())

	case realtime.KindSpeechStopped:
		if r.turnState() != TurnRecording {
			return
		}
		r.emit(events.NewUserSpeechStopped())

	case realtime.KindAudioCommitted:
		var payload realtime.BufferLifecycle
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode input_audio_buffer.committed", "error", err)
			return
		}
		r.emit(events.NewUserAudioCommitted(payload.ItemID))

	case realtime.KindAudioCleared:
		r.emit(events.NewUserAudioCleared())

	case realtime.KindItemCreated:
		r.handleItemCreated(event)

	case realtime.KindTranscriptionDelta:
		var payload realtime.TranscriptionDelta
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode transcription delta", "error", err)
			return
		}
		delta := sanitizeTranscript(payload.Delta)
		if _, created := r.transcripts.Append(payload.ItemID, RoleUser, delta); created {
			// The seeding conversation.item.created never arrived; keep the
			// data rather than dropping it, but make the gap visible.
			logger.Warn("transcript delta for unseeded item, entry synthesized", "item_id", payload.ItemID)
			if r.activeUserItem == "" {
				r.activeUserItem = payload.ItemID
			}
		}
		r.emit(events.NewUserTranscriptSegment(payload.ItemID, delta))

	case realtime.KindTranscriptionCompleted:
		r.handleTranscriptionCompleted(event)

	case realtime.KindResponseCreated:
		var payload realtime.ResponseCreated
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode response.created", "error", err)
			return
		}
		r.emit(events.NewAssistantResponseStarted(payload.Response.ID))

	case realtime.KindResponseTextDelta, realtime.KindResponseTranscriptDelta:
		var payload realtime.TextDelta
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode response delta", "error", err)
			return
		}
		delta := sanitizeTranscript(payload.Delta)
		r.transcripts.Append(payload.ItemID, RoleAssistant, delta)
		r.emit(events.NewAssistantResponseSegment(payload.ItemID, delta))

	case realtime.KindResponseTextDone, realtime.KindResponseTranscriptDone:
		var payload realtime.TextDone
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode response done", "error", err)
			return
		}
		text := payload.Text
		if text == "" {
			text = payload.Transcript
		}
		r.transcripts.Complete(payload.ItemID, RoleAssistant, sanitizeTranscript(text))

	case realtime.KindResponseDone:
		r.handleResponseDone(event)

	case realtime.KindFunctionCallStart:
		var payload realtime.FunctionCallStart
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode function call start", "error", err)
			return
		}
		r.fnCalls[payload.CallID] = &functionCallAccumulator{name: payload.Name}

	case realtime.KindFunctionCallDelta:
		var payload realtime.FunctionCallDelta
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode function call delta", "error", err)
			return
		}
		call, ok := r.fnCalls[payload.CallID]
		if !ok {
			call = &functionCallAccumulator{}
			r.fnCalls[payload.CallID] = call
		}
		call.arguments.WriteString(payload.Delta)

	case realtime.KindFunctionCallDone:
		r.handleFunctionCallDone(event)

	case realtime.KindError:
		r.handleError(event)

	case realtime.KindRateLimitsUpdated:
		var payload realtime.RateLimitsUpdated
		if err := event.Decode(&payload); err != nil {
			logger.Warn("failed to decode rate_limits.updated", "error", err)
			return
		}
		limits := make([]events.RateLimitEntry, 0, len(payload.RateLimits))
		for _, limit := range payload.RateLimits {
			limits = append(limits, events.RateLimitEntry{
				Name:         limit.Name,
				Limit:        limit.Limit,
				Remaining:    limit.Remaining,
				ResetSeconds: limit.ResetSeconds,
			})
		}
		r.emit(events.NewRateLimitsUpdated(limits))

	default:
		// Benign allow-listed chatter (output items, content parts, raw
		// audio deltas) is accepted silently.
	}
}

func (r *eventRouter) handleItemCreated(event *realtime.Event) {
	var payload realtime.ItemCreated
	if err := event.Decode(&payload); err != nil {
		logger.Warn("failed to decode conversation.item.created", "error", err)
		return
	}
	role := RoleUser
	if payload.Item.Role == "assistant" {
		role = RoleAssistant
	}
	r.transcripts.Seed(payload.Item.ID, role)
	if role == RoleUser {
		r.activeUserItem = payload.Item.ID
	}
}

func (r *eventRouter) handleTranscriptionCompleted(event *realtime.Event) {
	var payload realtime.TranscriptionCompleted
	if err := event.Decode(&payload); err != nil {
		logger.Warn("failed to decode transcription completed", "error", err)
		return
	}

	entry := r.transcripts.Complete(payload.ItemID, RoleUser, sanitizeTranscript(payload.Transcript))
	if payload.ItemID == r.activeUserItem {
		r.emit(events.NewUserTranscriptFinal(payload.ItemID, entry.Text))
	}
}

// handleResponseDone is the single point that advances the turn counter and
// resets per-turn bookkeeping.
func (r *eventRouter) handleResponseDone(event *realtime.Event) {
	var payload realtime.ResponseDone
	if err := event.Decode(&payload); err != nil {
		logger.Warn("failed to decode response.done", "error", err)
		return
	}

	r.turnsCompleted++
	r.activeUserItem = ""
	r.fnCalls = map[string]*functionCallAccumulator{}
	r.emit(events.NewAssistantResponseFinal(payload.Response.ID, r.turnsCompleted))
}

func (r *eventRouter) handleFunctionCallDone(event *realtime.Event) {
	var payload realtime.FunctionCallDone
	if err := event.Decode(&payload); err != nil {
		logger.Warn("failed to decode function call done", "error", err)
		return
	}

	name := payload.Name
	arguments := payload.Arguments
	if call, ok := r.fnCalls[payload.CallID]; ok {
		if name == "" {
			name = call.name
		}
		if arguments == "" {
			arguments = call.arguments.String()
		}
		delete(r.fnCalls, payload.CallID)
	}

	intent, err := parseIntent(name, arguments)
	if err != nil {
		logger.Warn("ignoring unusable function call", "name", name, "error", err)
		return
	}
	r.emit(intent)
}

func (r *eventRouter) handleError(event *realtime.Event) {
	var payload realtime.ErrorPayload
	if err := event.Decode(&payload); err != nil {
		logger.Warn("failed to decode error event", "error", err)
		return
	}

	code := payload.Error.Code
	if code == "" {
		code = payload.Error.Type
	}
	message := payload.Error.Message
	r.emit(classifyProviderError(code, message, event.SanitizedPayload()))
}

// classifyProviderError maps a peer error onto the recovery taxonomy. The
// code field is trusted first, then message substrings, since the peer is
// inconsistent about which one carries the signal.
func classifyProviderError(code, message string, details map[string]any) events.Event {
	lowerCode := strings.ToLower(code)
	lowerMessage := strings.ToLower(message)

	switch {
	case strings.Contains(lowerCode, "rate_limit"),
		strings.Contains(lowerMessage, "rate limit"):
		return events.NewProviderRateLimited(code, message)
	case strings.Contains(lowerCode, "session_expired"),
		strings.Contains(lowerMessage, "session") && strings.Contains(lowerMessage, "expired"):
		return events.NewProviderSessionExpired(code, message)
	case strings.Contains(lowerCode, "invalid_request"),
		strings.Contains(lowerCode, "invalid_session"),
		strings.Contains(lowerMessage, "configuration"),
		strings.Contains(lowerMessage, "unauthorized"):
		return events.NewProviderConfigurationInvalid(code, message)
	default:
		return events.NewProviderError(code, message, details)
	}
}

// TurnsCompleted reports how many full turns finished this session.
func (r *eventRouter) TurnsCompleted() int { return r.turnsCompleted }

// reset clears all per-session derived state.
func (r *eventRouter) reset() {
	r.transcripts.Clear()
	r.seen.Clear()
	r.activeUserItem = ""
	r.turnsCompleted = 0
	r.fnCalls = map[string]*functionCallAccumulator{}
}
