package events

const (
	// KindAssistantResponseStarted identifies response generation start.
	KindAssistantResponseStarted Kind = "assistant_response.started"
	// KindAssistantResponseSegment identifies streamed assistant text pieces.
	KindAssistantResponseSegment Kind = "assistant_response.segment"
	// KindAssistantResponseFinal identifies response completion.
	KindAssistantResponseFinal Kind = "assistant_response.final"
)

// AssistantResponseStarted marks the start of response generation.
type AssistantResponseStarted struct {
	Base
	ResponseID string
}

// NewAssistantResponseStarted creates a response started event.
func NewAssistantResponseStarted(responseID string) AssistantResponseStarted {
	return AssistantResponseStarted{Base: NewBase(KindAssistantResponseStarted), ResponseID: responseID}
}

// AssistantResponseSegment carries a streamed assistant text piece.
type AssistantResponseSegment struct {
	Base
	ItemID  string
	Segment string
}

// NewAssistantResponseSegment creates a response segment event.
func NewAssistantResponseSegment(itemID, segment string) AssistantResponseSegment {
	return AssistantResponseSegment{Base: NewBase(KindAssistantResponseSegment), ItemID: itemID, Segment: segment}
}

// AssistantResponseFinal marks response completion. Turn is the number of
// completed turns in the session so far, including this one.
type AssistantResponseFinal struct {
	Base
	ResponseID string
	Turn       int
}

// NewAssistantResponseFinal creates a response final event.
func NewAssistantResponseFinal(responseID string, turn int) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), ResponseID: responseID, Turn: turn}
}
