package orchestration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/voiceorder/realtime-core/core/realtime"
)

const (
	connectTimeout           = 15 * time.Second
	defaultKeepaliveInterval = 20 * time.Second
)

// ErrRetriesExhausted is surfaced when the reconnect attempt cap is reached.
var ErrRetriesExhausted = errors.New("reconnect attempts exhausted")

// wireConn is the subset of the websocket connection the manager uses.
// *websocket.Conn satisfies it.
type wireConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type dialFunc func(ctx context.Context, endpoint string, header http.Header) (wireConn, error)

func defaultDial(ctx context.Context, endpoint string, header http.Header) (wireConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: connectTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to open data channel: %w", err)
	}
	return conn, nil
}

// reconnectPolicy governs exponential backoff between connection attempts.
type reconnectPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func defaultReconnectPolicy() reconnectPolicy {
	return reconnectPolicy{maxAttempts: 5, baseDelay: time.Second, maxDelay: 30 * time.Second}
}

func (p reconnectPolicy) delay(attempt int) time.Duration {
	d := p.baseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.maxDelay {
			return p.maxDelay
		}
	}
	if d > p.maxDelay {
		return p.maxDelay
	}
	return d
}

type connectionCallbacks struct {
	// onMessage receives every raw inbound payload; it is the only reader
	// of the channel and feeds the guard boundary.
	onMessage      func([]byte)
	onOpen         func()
	onReconnecting func(attempt int, delay time.Duration, err error)
	onFailed       func(error)
}

// connectionManager owns the data channel lifecycle: negotiate, connect,
// detect failure, reconnect with backoff, release resources.
type connectionManager struct {
	endpoint          string
	credentials       *credentialCache
	dial              dialFunc
	policy            reconnectPolicy
	callbacks         connectionCallbacks
	keepaliveInterval time.Duration

	baseContext context.Context

	// readers joins the read loop so Close returns only after no goroutine
	// is still feeding inbound messages upward.
	readers sync.WaitGroup

	mu             sync.Mutex
	conn           wireConn
	connDone       chan struct{}
	connected      bool
	closed         bool
	attempts       int
	lastErr        error
	reconnectTimer *time.Timer
}

func newConnectionManager(endpoint string, credentials *credentialCache, dial dialFunc, policy reconnectPolicy, callbacks connectionCallbacks) *connectionManager {
	if dial == nil {
		dial = defaultDial
	}
	return &connectionManager{
		endpoint:          endpoint,
		credentials:       credentials,
		dial:              dial,
		policy:            policy,
		callbacks:         callbacks,
		keepaliveInterval: defaultKeepaliveInterval,
		baseContext:       context.Background(),
	}
}

// Start performs the first connection attempt synchronously. On failure the
// retry schedule takes over in the background and the error is returned so
// the caller knows the channel isn't up yet.
func (c *connectionManager) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseContext = ctx
	c.closed = false
	c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		c.scheduleReconnect(err)
		return err
	}
	return nil
}

func (c *connectionManager) connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect data channel")
	defer span.End()
	span.SetAttributes(attribute.String("endpoint", c.endpoint))

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	token, err := c.credentials.Token(dialCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, err := c.dial(dialCtx, c.endpoint, header)
	if err != nil {
		// A timed-out negotiation is indistinguishable from a failed one
		// as far as backoff is concerned.
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	done := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return errors.New("connection manager closed during negotiation")
	}
	c.conn = conn
	c.connDone = done
	c.connected = true
	// Attempts reset only after a successful connection.
	c.attempts = 0
	c.lastErr = nil
	c.mu.Unlock()

	c.readers.Add(1)
	go c.readLoop(conn, done)
	go c.keepalive(conn, done)

	if c.callbacks.onOpen != nil {
		c.callbacks.onOpen()
	}
	return nil
}

func (c *connectionManager) readLoop(conn wireConn, done chan struct{}) {
	defer c.readers.Done()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(conn, done, err)
			return
		}
		if c.callbacks.onMessage != nil {
			c.callbacks.onMessage(msg)
		}
	}
}

// keepalive pings the peer periodically; a failed ping closes the connection
// so the read loop observes the failure and the normal reconnect path runs.
func (c *connectionManager) keepalive(conn wireConn, done chan struct{}) {
	ticker := time.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logger.Warn("keepalive ping failed, closing data channel", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (c *connectionManager) handleDrop(conn wireConn, done chan struct{}, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		// connDone must not outlive the connection it belongs to: Close
		// would otherwise re-close the channel closed here.
		c.connDone = nil
		c.connected = false
		close(done)
	}
	closed := c.closed
	c.mu.Unlock()

	conn.Close()
	if closed {
		return
	}

	logger.Warn("data channel dropped", "error", err)
	c.scheduleReconnect(err)
}

func (c *connectionManager) scheduleReconnect(cause error) {
	c.mu.Lock()
	if c.closed || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	c.lastErr = cause
	if errors.Is(cause, ErrCredentialUnavailable) {
		// Not retryable; surface immediately instead of burning attempts.
		c.mu.Unlock()
		if c.callbacks.onFailed != nil {
			c.callbacks.onFailed(cause)
		}
		return
	}
	if c.attempts >= c.policy.maxAttempts {
		c.mu.Unlock()
		if c.callbacks.onFailed != nil {
			c.callbacks.onFailed(fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.policy.maxAttempts, cause))
		}
		return
	}

	attempt := c.attempts
	c.attempts++
	delay := c.policy.delay(attempt)
	ctx := c.baseContext
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if err := c.connect(ctx); err != nil {
			c.scheduleReconnect(err)
		}
	})
	c.mu.Unlock()

	if c.callbacks.onReconnecting != nil {
		c.callbacks.onReconnecting(attempt+1, delay, cause)
	}
}

// Writable reports whether the data channel currently accepts writes.
func (c *connectionManager) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.closed
}

// WriteCommand serializes an outbound command onto the channel. The manager
// is the channel's only writer entry point; callers go through the outbound
// queue.
func (c *connectionManager) WriteCommand(cmd realtime.ClientCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return errors.New("data channel is not writable")
	}
	if err := c.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write %s command: %w", cmd.CommandType(), err)
	}
	return nil
}

// Drop closes the current connection without marking the manager closed, so
// the normal failure path renegotiates with a fresh credential.
func (c *connectionManager) Drop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	c.credentials.Invalidate()
	if conn != nil {
		conn.Close()
	}
}

// Close releases all transport resources. Idempotent and synchronous: after
// Close returns, the channel is gone and the read loop has exited, so no
// further inbound messages are delivered.
func (c *connectionManager) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.connected = false
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	c.attempts = 0
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.readers.Wait()
}
