package orchestration

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/voiceorder/realtime-core/core/events"
)

type sessionHarness struct {
	orchestrator *Orchestrator
	conn         *fakeConn

	mu     sync.Mutex
	ready  []bool
	states []ConnectionState
	turns  []int
	orders [][]events.OrderItem
}

func newSessionHarness(t *testing.T, opts ...OrchestratorOption) *sessionHarness {
	t.Helper()
	h := &sessionHarness{conn: newFakeConn()}

	base := []OrchestratorOption{
		WithEndpoint("wss://example.test/rt"),
		WithCredentialProvider(StaticCredentialProvider{Value: Credential{Token: "test-token"}}),
		WithReadinessTimeout(200 * time.Millisecond),
		withDialFunc(func(context.Context, string, http.Header) (wireConn, error) {
			return h.conn, nil
		}),
	}
	h.orchestrator = NewOrchestrator(append(base, opts...)...)
	return h
}

func (h *sessionHarness) connect(t *testing.T) {
	t.Helper()
	err := h.orchestrator.Connect(context.Background(),
		WithSessionReadyCallback(func(confirmed bool) {
			h.mu.Lock()
			h.ready = append(h.ready, confirmed)
			h.mu.Unlock()
		}),
		WithConnectionStateCallback(func(state ConnectionState) {
			h.mu.Lock()
			h.states = append(h.states, state)
			h.mu.Unlock()
		}),
		WithResponseEndCallback(func(turn int) {
			h.mu.Lock()
			h.turns = append(h.turns, turn)
			h.mu.Unlock()
		}),
		WithOrderAddCallback(func(items []events.OrderItem) {
			h.mu.Lock()
			h.orders = append(h.orders, items)
			h.mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}
}

func (h *sessionHarness) feed(t *testing.T, raw string) {
	t.Helper()
	select {
	case h.conn.inbound <- []byte(raw):
	case <-time.After(time.Second):
		t.Fatalf("timed out feeding %s", raw)
	}
}

func (h *sessionHarness) sentCommandTypes() []string {
	h.conn.mu.Lock()
	defer h.conn.mu.Unlock()
	types := make([]string, 0, len(h.conn.written))
	for _, cmd := range h.conn.written {
		types = append(types, cmd.CommandType())
	}
	return types
}

func (h *sessionHarness) waitForState(t *testing.T, state ConnectionState) {
	t.Helper()
	waitFor(t, "connection state "+string(state), func() bool {
		return h.orchestrator.State() == state
	})
}

func (h *sessionHarness) negotiate(t *testing.T) {
	t.Helper()
	h.connect(t)
	h.feed(t, `{"type":"session.created","event_id":"evt_created","session":{"id":"sess_1"}}`)
	h.feed(t, `{"type":"session.updated","event_id":"evt_updated"}`)
	h.waitForState(t, ConnectionReady)
}

func TestOrchestratorNegotiatesSession(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()

	h.connect(t)
	if got := h.orchestrator.State(); got != ConnectionAwaitingSessionCreated {
		t.Fatalf("expected awaiting session.created after connect, got %s", got)
	}

	h.feed(t, `{"type":"session.created","event_id":"evt_1","session":{"id":"sess_1"}}`)
	h.waitForState(t, ConnectionAwaitingSessionReady)

	waitFor(t, "session.update write", func() bool {
		types := h.sentCommandTypes()
		return len(types) == 1 && types[0] == "session.update"
	})

	h.feed(t, `{"type":"session.updated","event_id":"evt_2"}`)
	h.waitForState(t, ConnectionReady)

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ready) != 1 || !h.ready[0] {
		t.Fatalf("expected one confirmed readiness callback, got %v", h.ready)
	}
}

func TestOrchestratorProceedsReadyOnTimeout(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()

	h.connect(t)
	h.feed(t, `{"type":"session.created","event_id":"evt_1","session":{"id":"sess_1"}}`)
	h.waitForState(t, ConnectionReady)

	h.mu.Lock()
	ready := append([]bool(nil), h.ready...)
	h.mu.Unlock()
	if len(ready) != 1 || ready[0] {
		t.Fatalf("expected one unconfirmed readiness callback, got %v", ready)
	}

	// A late acknowledgement must not re-trigger readiness.
	h.feed(t, `{"type":"session.updated","event_id":"evt_2"}`)
	time.Sleep(50 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.ready) != 1 {
		t.Fatalf("expected the late acknowledgement to be a no-op, got %v", h.ready)
	}
	if h.orchestrator.State() != ConnectionReady {
		t.Fatalf("expected the session to stay ready, got %s", h.orchestrator.State())
	}
}

func TestOrchestratorRejectsRecordingBeforeReady(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()

	if err := h.orchestrator.StartRecording(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestOrchestratorFullTurnLifecycle(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()
	h.negotiate(t)

	if err := h.orchestrator.StartRecording(); err != nil {
		t.Fatalf("expected recording to start, got %v", err)
	}
	if got := h.orchestrator.TurnState(); got != TurnRecording {
		t.Fatalf("expected recording state, got %s", got)
	}

	if err := h.orchestrator.StopRecording(); err != nil {
		t.Fatalf("expected recording to stop, got %v", err)
	}
	if got := h.orchestrator.TurnState(); got != TurnCommitting {
		t.Fatalf("expected committing state, got %s", got)
	}

	h.feed(t, `{"type":"input_audio_buffer.committed","event_id":"evt_1","item_id":"item_1"}`)
	waitFor(t, "awaiting transcript", func() bool {
		return h.orchestrator.TurnState() == TurnAwaitingTranscript
	})

	h.feed(t, `{"type":"conversation.item.created","event_id":"evt_2","item":{"id":"item_1","role":"user"}}`)
	h.feed(t, `{"type":"conversation.item.input_audio_transcription.completed","event_id":"evt_3","item_id":"item_1","transcript":"a burger please"}`)
	waitFor(t, "awaiting response", func() bool {
		return h.orchestrator.TurnState() == TurnAwaitingResponse
	})

	h.feed(t, `{"type":"response.created","event_id":"evt_4","response":{"id":"resp_1"}}`)
	h.feed(t, `{"type":"response.done","event_id":"evt_5","response":{"id":"resp_1","status":"completed"}}`)
	waitFor(t, "turn completion", func() bool {
		return h.orchestrator.TurnState() == TurnIdle && h.orchestrator.TurnsCompleted() == 1
	})

	waitFor(t, "outbound command sequence", func() bool {
		return len(h.sentCommandTypes()) == 4
	})
	want := []string{"session.update", "input_audio_buffer.clear", "input_audio_buffer.commit", "response.create"}
	got := h.sentCommandTypes()
	for i, cmd := range want {
		if got[i] != cmd {
			t.Fatalf("expected command %d to be %s, got %v", i, cmd, got)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) != 1 || h.turns[0] != 1 {
		t.Fatalf("expected one completed turn, got %v", h.turns)
	}
}

func TestOrchestratorRejectsStopWithoutRecording(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()
	h.negotiate(t)

	before := len(h.sentCommandTypes())
	if err := h.orchestrator.StopRecording(); err == nil {
		t.Fatalf("expected stopping without a recording to fail")
	}
	if got := h.orchestrator.TurnState(); got != TurnIdle {
		t.Fatalf("expected the turn to stay idle, got %s", got)
	}
	if len(h.sentCommandTypes()) != before {
		t.Fatalf("expected no commit to be sent")
	}
}

func TestOrchestratorDeliversOrderIntents(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()
	h.negotiate(t)

	h.feed(t, `{"type":"response.function_call_arguments.done","event_id":"evt_1","call_id":"call_1","name":"add_to_order","arguments":"{\"items\":[{\"name\":\"burger\",\"quantity\":2}]}"}`)

	waitFor(t, "order callback", func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.orders) == 1
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.orders[0]) != 1 || h.orders[0][0].Name != "burger" || h.orders[0][0].Quantity != 2 {
		t.Fatalf("unexpected order items %+v", h.orders[0])
	}
}

func TestOrchestratorPeerErrorFailsActiveTurn(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()
	h.negotiate(t)

	if err := h.orchestrator.StartRecording(); err != nil {
		t.Fatalf("expected recording to start, got %v", err)
	}
	if err := h.orchestrator.StopRecording(); err != nil {
		t.Fatalf("expected recording to stop, got %v", err)
	}
	h.feed(t, `{"type":"input_audio_buffer.committed","event_id":"evt_1","item_id":"item_1"}`)
	waitFor(t, "awaiting transcript", func() bool {
		return h.orchestrator.TurnState() == TurnAwaitingTranscript
	})

	h.feed(t, `{"type":"error","event_id":"evt_2","error":{"code":"server_error","message":"internal failure"}}`)
	waitFor(t, "failed turn", func() bool {
		return h.orchestrator.TurnState() == TurnFailed
	})

	// The next recording retries out of the failed turn.
	if err := h.orchestrator.StartRecording(); err != nil {
		t.Fatalf("expected a new recording to recover the turn, got %v", err)
	}
	if got := h.orchestrator.TurnState(); got != TurnRecording {
		t.Fatalf("expected recording after recovery, got %s", got)
	}
}

func TestOrchestratorDropsOnSessionExpired(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()
	h.negotiate(t)

	h.feed(t, `{"type":"error","event_id":"evt_1","error":{"code":"session_expired","message":"the session has expired"}}`)

	// The expired channel closes and the manager renegotiates on a fresh one.
	waitFor(t, "old channel teardown", h.conn.isClosed)
}

func TestOrchestratorFailsOnConfigurationRejection(t *testing.T) {
	h := newSessionHarness(t)
	defer h.orchestrator.Disconnect()
	h.negotiate(t)

	h.feed(t, `{"type":"error","event_id":"evt_1","error":{"code":"invalid_request_error","message":"bad session configuration"}}`)
	h.waitForState(t, ConnectionFailed)
}

func TestOrchestratorDisconnectIsIdempotent(t *testing.T) {
	h := newSessionHarness(t)
	h.negotiate(t)

	if err := h.orchestrator.StartRecording(); err != nil {
		t.Fatalf("expected recording to start, got %v", err)
	}

	h.orchestrator.Disconnect()
	h.orchestrator.Disconnect()

	if got := h.orchestrator.State(); got != ConnectionDisconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
	if got := h.orchestrator.TurnState(); got != TurnIdle {
		t.Fatalf("expected the turn to reset, got %s", got)
	}
	if h.orchestrator.TurnsCompleted() != 0 {
		t.Fatalf("expected turn counters to reset")
	}
	if !h.conn.isClosed() {
		t.Fatalf("expected the transport to close")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	last := h.states[len(h.states)-1]
	if last != ConnectionDisconnected {
		t.Fatalf("expected a single disconnected notification last, got %v", h.states)
	}
}

func TestOrchestratorReconnectRestartsNegotiation(t *testing.T) {
	h := newSessionHarness(t,
		WithReconnectPolicy(3, 5*time.Millisecond, 20*time.Millisecond))
	defer h.orchestrator.Disconnect()

	replacement := newFakeConn()
	conns := []*fakeConn{h.conn, replacement}
	var mu sync.Mutex
	dials := 0
	h.orchestrator.connection.dial = func(context.Context, string, http.Header) (wireConn, error) {
		mu.Lock()
		defer mu.Unlock()
		conn := conns[dials]
		dials++
		return conn, nil
	}

	h.negotiate(t)

	h.conn.Close()
	waitFor(t, "renegotiation restart", func() bool {
		return h.orchestrator.State() == ConnectionAwaitingSessionCreated
	})

	// The fresh peer session negotiates from scratch.
	replacement.inbound <- []byte(`{"type":"session.created","event_id":"evt_r1","session":{"id":"sess_2"}}`)
	replacement.inbound <- []byte(`{"type":"session.updated","event_id":"evt_r2"}`)
	h.waitForState(t, ConnectionReady)
}
