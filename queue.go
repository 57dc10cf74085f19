package wstask

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/pkg/errors"
)

// frameSender is the part of ConnectionHandle the outbound queue relies on.
type frameSender interface {
	State() ConnectionState
	Send(f Frame) error
}

// OutboundQueue buffers frames submitted while the connection is still connecting and
// flushes them in submission order once it opens. Submit and Flush share one lock, so
// frames submitted during a flush are delivered after the ones already buffered.
type OutboundQueue struct {
	mu      sync.Mutex
	sender  frameSender
	pending *queue.Queue
	max     int

	logger  logger
	metrics *Metrics
}

// NewOutboundQueue returns a queue forwarding to sender. max <= 0 means unbounded.
func NewOutboundQueue(sender frameSender, max int, logger logger, metrics *Metrics) *OutboundQueue {
	return &OutboundQueue{
		sender:  sender,
		pending: queue.New(),
		max:     max,
		logger:  logger.WithField("type", "outbound_queue"),
		metrics: metrics,
	}
}

// Submit buffers f while connecting, sends it right away when open, and fails with
// ErrClosed once closing has begun, discarding whatever was still buffered.
func (q *OutboundQueue) Submit(f Frame) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch state := q.sender.State(); state {
	case StateConnecting:
		if q.max > 0 && q.pending.Length() >= q.max {
			q.metrics.frameRejected("queue_full")
			return ErrQueueFull
		}
		q.enqueue(f)
		return nil
	case StateOpen:
		if q.pending.Length() > 0 {
			// a flush is about to run, keep order
			q.enqueue(f)
			return nil
		}
		return q.sender.Send(f)
	default:
		q.discard()
		q.metrics.frameRejected("closed")
		return ErrClosed
	}
}

// Flush drains the buffer head to tail. On the first failed send the remaining frames
// are discarded and the error is returned.
func (q *OutboundQueue) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sent := 0
	for q.pending.Length() > 0 {
		f := q.pending.Peek().(Frame)
		if err := q.sender.Send(f); err != nil {
			dropped := q.pending.Length()
			q.discard()
			return errors.Wrapf(err, "flush stopped after %d frames, %d dropped", sent, dropped)
		}
		q.pending.Remove()
		q.metrics.queued(-1)
		sent++
	}

	if sent > 0 {
		q.logger.Debugf("flushed %d buffered frames", sent)
	}
	return nil
}

// Discard drops every buffered frame.
func (q *OutboundQueue) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.discard()
}

func (q *OutboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Length()
}

func (q *OutboundQueue) enqueue(f Frame) {
	q.pending.Add(f)
	q.metrics.queued(1)
}

func (q *OutboundQueue) discard() {
	n := q.pending.Length()
	if n == 0 {
		return
	}
	q.pending = queue.New()
	q.metrics.queued(-n)
	q.logger.Debugf("discarded %d buffered frames", n)
}
