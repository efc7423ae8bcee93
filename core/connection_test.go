package orchestration

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/voiceorder/realtime-core/core/realtime"
)

// fakeConn is a scriptable data channel. ReadMessage blocks on the inbound
// channel until a payload arrives or the connection closes.
type fakeConn struct {
	inbound chan []byte

	mu       sync.Mutex
	closed   bool
	written  []realtime.ClientCommand
	writeErr error
	pingErr  error

	closeOnce sync.Once
	done      chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), done: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return 1, msg, nil
	case <-f.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if cmd, ok := v.(realtime.ClientCommand); ok {
		f.written = append(f.written, cmd)
	}
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.done)
	})
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testCredentials() *credentialCache {
	return newCredentialCache(StaticCredentialProvider{Value: Credential{Token: "test-token"}})
}

func TestReconnectPolicyBackoffSchedule(t *testing.T) {
	policy := defaultReconnectPolicy()

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := policy.delay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected delay %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestConnectionManagerStartOpensChannel(t *testing.T) {
	conn := newFakeConn()
	var header http.Header
	dial := func(ctx context.Context, endpoint string, h http.Header) (wireConn, error) {
		header = h
		return conn, nil
	}

	var opened bool
	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		defaultReconnectPolicy(), connectionCallbacks{onOpen: func() { opened = true }})
	defer manager.Close()

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if !opened {
		t.Fatalf("expected the open callback to fire")
	}
	if !manager.Writable() {
		t.Fatalf("expected the channel to be writable")
	}
	if got := header.Get("Authorization"); got != "Bearer test-token" {
		t.Fatalf("expected bearer credentials on the handshake, got %q", got)
	}
}

func TestConnectionManagerDeliversInboundMessages(t *testing.T) {
	conn := newFakeConn()
	dial := func(context.Context, string, http.Header) (wireConn, error) { return conn, nil }

	var mu sync.Mutex
	var received []string
	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		defaultReconnectPolicy(), connectionCallbacks{onMessage: func(msg []byte) {
			mu.Lock()
			received = append(received, string(msg))
			mu.Unlock()
		}})
	defer manager.Close()

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	conn.inbound <- []byte(`{"type":"session.created"}`)
	waitFor(t, "inbound delivery", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})
}

func TestConnectionManagerWriteCommand(t *testing.T) {
	conn := newFakeConn()
	dial := func(context.Context, string, http.Header) (wireConn, error) { return conn, nil }

	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		defaultReconnectPolicy(), connectionCallbacks{})
	defer manager.Close()

	if err := manager.WriteCommand(realtime.NewInputAudioBufferClear()); err == nil {
		t.Fatalf("expected a write before connecting to fail")
	}

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if err := manager.WriteCommand(realtime.NewInputAudioBufferClear()); err != nil {
		t.Fatalf("expected the write to succeed, got %v", err)
	}

	conn.mu.Lock()
	sent := len(conn.written)
	conn.mu.Unlock()
	if sent != 1 {
		t.Fatalf("expected one written command, got %d", sent)
	}
}

func TestConnectionManagerReconnectsAfterDrop(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	conns := []*fakeConn{first, second}

	var mu sync.Mutex
	dials := 0
	dial := func(context.Context, string, http.Header) (wireConn, error) {
		mu.Lock()
		defer mu.Unlock()
		conn := conns[dials]
		dials++
		return conn, nil
	}

	var reconnecting int
	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		reconnectPolicy{maxAttempts: 3, baseDelay: 10 * time.Millisecond, maxDelay: 50 * time.Millisecond},
		connectionCallbacks{onReconnecting: func(attempt int, delay time.Duration, err error) {
			mu.Lock()
			reconnecting++
			mu.Unlock()
		}})
	defer manager.Close()

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	first.Close()
	waitFor(t, "redial", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials == 2
	})
	waitFor(t, "writable after reconnect", manager.Writable)

	mu.Lock()
	notified := reconnecting
	mu.Unlock()
	if notified != 1 {
		t.Fatalf("expected one reconnecting notification, got %d", notified)
	}
}

func TestConnectionManagerGivesUpAfterMaxAttempts(t *testing.T) {
	dialErr := errors.New("refused")
	var mu sync.Mutex
	dials := 0
	dial := func(context.Context, string, http.Header) (wireConn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, dialErr
	}

	failed := make(chan error, 1)
	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		reconnectPolicy{maxAttempts: 2, baseDelay: 5 * time.Millisecond, maxDelay: 20 * time.Millisecond},
		connectionCallbacks{onFailed: func(err error) { failed <- err }})
	defer manager.Close()

	if err := manager.Start(context.Background()); err == nil {
		t.Fatalf("expected the initial attempt to fail")
	}

	select {
	case err := <-failed:
		if !errors.Is(err, ErrRetriesExhausted) {
			t.Fatalf("expected retries-exhausted, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the failure callback")
	}

	mu.Lock()
	attempts := dials
	mu.Unlock()
	// The initial attempt plus maxAttempts retries.
	if attempts != 3 {
		t.Fatalf("expected 3 dial attempts, got %d", attempts)
	}
}

func TestConnectionManagerCredentialFailureIsFatal(t *testing.T) {
	dials := 0
	dial := func(context.Context, string, http.Header) (wireConn, error) {
		dials++
		return newFakeConn(), nil
	}

	failed := make(chan error, 1)
	manager := newConnectionManager("wss://example.test/rt",
		newCredentialCache(EnvCredentialProvider{Var: "REALTIME_TEST_ABSENT"}), dial,
		reconnectPolicy{maxAttempts: 5, baseDelay: 5 * time.Millisecond, maxDelay: 20 * time.Millisecond},
		connectionCallbacks{onFailed: func(err error) { failed <- err }})
	defer manager.Close()

	if err := manager.Start(context.Background()); !errors.Is(err, ErrCredentialUnavailable) {
		t.Fatalf("expected a credential error, got %v", err)
	}

	select {
	case err := <-failed:
		if !errors.Is(err, ErrCredentialUnavailable) {
			t.Fatalf("expected the failure to carry the credential error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the failure callback")
	}
	if dials != 0 {
		t.Fatalf("expected no dial without a credential, got %d", dials)
	}
}

func TestConnectionManagerAttemptsResetOnSuccess(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	dialErr := errors.New("refused")
	dial := func(context.Context, string, http.Header) (wireConn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		// Odd-numbered attempts fail, even-numbered succeed.
		if dials%2 == 1 {
			return nil, dialErr
		}
		return conns[dials/2-1], nil
	}

	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		reconnectPolicy{maxAttempts: 2, baseDelay: 5 * time.Millisecond, maxDelay: 20 * time.Millisecond},
		connectionCallbacks{})
	defer manager.Close()

	manager.Start(context.Background())
	waitFor(t, "first successful connect", manager.Writable)

	manager.mu.Lock()
	attempts := manager.attempts
	manager.mu.Unlock()
	if attempts != 0 {
		t.Fatalf("expected attempts to reset after success, got %d", attempts)
	}

	conns[0].Close()
	waitFor(t, "second successful connect", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials == 4
	})
	waitFor(t, "writable after second recovery", manager.Writable)
}

func TestConnectionManagerDropRenegotiates(t *testing.T) {
	var mu sync.Mutex
	dials := 0
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	dial := func(context.Context, string, http.Header) (wireConn, error) {
		mu.Lock()
		defer mu.Unlock()
		conn := conns[dials]
		dials++
		return conn, nil
	}

	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		reconnectPolicy{maxAttempts: 3, baseDelay: 5 * time.Millisecond, maxDelay: 20 * time.Millisecond},
		connectionCallbacks{})
	defer manager.Close()

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	manager.Drop()
	waitFor(t, "renegotiation", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials == 2
	})
	waitFor(t, "writable after renegotiation", manager.Writable)
}

func TestConnectionManagerCloseAfterDropDoesNotPanic(t *testing.T) {
	conn := newFakeConn()
	dialErr := errors.New("refused")
	var mu sync.Mutex
	dials := 0
	dial := func(context.Context, string, http.Header) (wireConn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		if dials == 1 {
			return conn, nil
		}
		return nil, dialErr
	}

	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		reconnectPolicy{maxAttempts: 2, baseDelay: 5 * time.Millisecond, maxDelay: 20 * time.Millisecond},
		connectionCallbacks{})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	conn.Close()
	waitFor(t, "drop observed", func() bool { return !manager.Writable() })

	// Closing while the redial schedule is running must not touch the
	// channel the drop already closed.
	manager.Close()
	manager.Close()

	if manager.Writable() {
		t.Fatalf("expected the channel to be gone after close")
	}
}

func TestConnectionManagerCloseWaitsForInFlightMessage(t *testing.T) {
	conn := newFakeConn()
	dial := func(context.Context, string, http.Header) (wireConn, error) { return conn, nil }

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	finished := false
	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		defaultReconnectPolicy(), connectionCallbacks{onMessage: func([]byte) {
			close(entered)
			<-release
			mu.Lock()
			finished = true
			mu.Unlock()
		}})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	conn.inbound <- []byte(`{"type":"session.created"}`)
	<-entered

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	manager.Close()

	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Fatalf("expected close to return only after the in-flight message was handled")
	}
}

func TestConnectionManagerKeepaliveFailureTriggersReconnect(t *testing.T) {
	first := newFakeConn()
	first.pingErr = errors.New("broken pipe")
	second := newFakeConn()
	conns := []*fakeConn{first, second}

	var mu sync.Mutex
	dials := 0
	dial := func(context.Context, string, http.Header) (wireConn, error) {
		mu.Lock()
		defer mu.Unlock()
		conn := conns[dials]
		dials++
		return conn, nil
	}

	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		reconnectPolicy{maxAttempts: 3, baseDelay: 5 * time.Millisecond, maxDelay: 20 * time.Millisecond},
		connectionCallbacks{})
	manager.keepaliveInterval = 10 * time.Millisecond
	defer manager.Close()

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	waitFor(t, "failed ping to close the channel", first.isClosed)
	waitFor(t, "redial after keepalive failure", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials == 2
	})
	waitFor(t, "writable after keepalive recovery", manager.Writable)
}

func TestConnectionManagerCloseIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	dial := func(context.Context, string, http.Header) (wireConn, error) { return conn, nil }

	manager := newConnectionManager("wss://example.test/rt", testCredentials(), dial,
		defaultReconnectPolicy(), connectionCallbacks{})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	manager.Close()
	manager.Close()

	if manager.Writable() {
		t.Fatalf("expected the channel to be gone after close")
	}
	if !conn.isClosed() {
		t.Fatalf("expected the underlying connection to close")
	}
}
