// Package realtime defines the wire contract with the voice session peer:
// the allow-listed event kinds, their payload shapes, the outbound client
// commands, and the guard that turns untrusted transport payloads into typed
// events without ever panicking.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// maxPayloadBytes bounds a single wire payload; anything larger is
	// rejected before decoding.
	maxPayloadBytes = 1 << 20

	// maxSanitizeDepth bounds recursion when scrubbing nested payloads.
	maxSanitizeDepth = 10

	// DepthSentinel replaces payload content nested beyond the sanitize
	// depth ceiling.
	DepthSentinel = "[depth limit exceeded]"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrOversizedPayload = errors.New("oversized payload")
	ErrMissingKind      = errors.New("missing or non-string event type")
	ErrKindNotAllowed   = errors.New("event kind not allow-listed")
)

// dangerousKeys are stripped from payloads wherever they appear. They are
// reflection/execution-adjacent names that must never reach downstream
// consumers, regardless of nesting depth.
var dangerousKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
	"eval":        {},
	"function":    {},
	"require":     {},
	"import":      {},
	"process":     {},
	"globalThis":  {},
}

// Parse validates an untrusted transport payload and returns the typed wire
// event, or an error describing why it was dropped. It accepts UTF-8 text,
// raw bytes, or an already-structured value, and never panics.
//
// Parse is the sole ingress boundary for raw peer data.
func Parse(raw any) (*Event, error) {
	data, err := coerceBytes(raw)
	if err != nil {
		return nil, err
	}
	if len(data) > maxPayloadBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversizedPayload, len(data))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	rawKind, ok := fields["type"]
	if !ok {
		return nil, ErrMissingKind
	}
	var kind string
	if err := json.Unmarshal(rawKind, &kind); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingKind, err)
	}
	if !Allowed(Kind(kind)) {
		return nil, fmt.Errorf("%w: %q", ErrKindNotAllowed, kind)
	}

	var eventID string
	if rawID, ok := fields["event_id"]; ok {
		// A malformed id only disables deduplication, it doesn't make
		// the event undeliverable.
		_ = json.Unmarshal(rawID, &eventID)
	}

	return &Event{Kind: Kind(kind), ID: eventID, Raw: json.RawMessage(data)}, nil
}

func coerceBytes(raw any) ([]byte, error) {
	switch r := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil payload", ErrMalformedPayload)
	case string:
		return []byte(r), nil
	case []byte:
		return r, nil
	case json.RawMessage:
		return []byte(r), nil
	default:
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return data, nil
	}
}

// Sanitize recursively removes dangerous keys from a decoded payload and
// replaces content nested deeper than the depth ceiling with a sentinel.
// It is idempotent and defense-in-depth after allow-listing, not a
// substitute for it.
func Sanitize(value any) any {
	return sanitize(value, 0)
}

func sanitize(value any, depth int) any {
	switch v := value.(type) {
	case map[string]any:
		if depth >= maxSanitizeDepth {
			return DepthSentinel
		}
		cleaned := make(map[string]any, len(v))
		for key, nested := range v {
			if _, dangerous := dangerousKeys[key]; dangerous {
				continue
			}
			cleaned[key] = sanitize(nested, depth+1)
		}
		return cleaned
	case []any:
		if depth >= maxSanitizeDepth {
			return DepthSentinel
		}
		cleaned := make([]any, len(v))
		for i, nested := range v {
			cleaned[i] = sanitize(nested, depth+1)
		}
		return cleaned
	default:
		return v
	}
}

// SanitizedPayload decodes the event body and scrubs it for generic,
// consumer-facing use. Kind-specific decoding through Decode stays the
// preferred path; this is for payloads forwarded opaquely (peer errors).
func (e *Event) SanitizedPayload() map[string]any {
	var decoded map[string]any
	if err := json.Unmarshal(e.Raw, &decoded); err != nil {
		return map[string]any{}
	}
	cleaned, ok := Sanitize(decoded).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return cleaned
}
