package orchestration

import (
	"sync"

	"github.com/voiceorder/realtime-core/core/realtime"
)

// commandWriter is the single writer onto the data channel.
type commandWriter interface {
	Writable() bool
	WriteCommand(cmd realtime.ClientCommand) error
}

// outboundQueue buffers commands destined for the peer until the channel is
// writable. FIFO order is preserved across queue/flush/re-queue cycles.
type outboundQueue struct {
	writer commandWriter

	mu      sync.Mutex
	pending []realtime.ClientCommand
	// flushing guards against two concurrent flushes double-sending.
	flushing bool
}

func newOutboundQueue(writer commandWriter) *outboundQueue {
	return &outboundQueue{writer: writer}
}

// Send transmits the command immediately when the channel is writable and
// nothing is queued ahead of it; otherwise it is appended to the queue.
func (q *outboundQueue) Send(cmd realtime.ClientCommand) {
	q.mu.Lock()
	if q.flushing || len(q.pending) > 0 || !q.writer.Writable() {
		q.pending = append(q.pending, cmd)
		q.mu.Unlock()
		return
	}

	err := q.writer.WriteCommand(cmd)
	if err != nil {
		q.pending = append(q.pending, cmd)
	}
	q.mu.Unlock()

	if err != nil {
		logger.Warn("failed to send command, queued for retry",
			"command", cmd.CommandType(), "error", err)
	}
}

// Flush drains the queue onto the channel. Writability is re-checked before
// each individual send because the channel may close mid-flush; commands not
// yet sent when writability is lost are re-queued in their original order,
// ahead of anything queued afterward.
func (q *outboundQueue) Flush() {
	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return
	}
	q.flushing = true
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for i, cmd := range batch {
		if !q.writer.Writable() {
			q.requeue(batch[i:])
			break
		}
		if err := q.writer.WriteCommand(cmd); err != nil {
			logger.Warn("flush interrupted, re-queueing remaining commands",
				"command", cmd.CommandType(), "remaining", len(batch)-i, "error", err)
			q.requeue(batch[i:])
			break
		}
	}

	q.mu.Lock()
	q.flushing = false
	q.mu.Unlock()
}

func (q *outboundQueue) requeue(rest []realtime.ClientCommand) {
	q.mu.Lock()
	q.pending = append(append([]realtime.ClientCommand{}, rest...), q.pending...)
	q.mu.Unlock()
}

func (q *outboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Clear drops all queued commands.
func (q *outboundQueue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}
