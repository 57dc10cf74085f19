package wstask

import (
	"sync"

	"github.com/eapache/queue"
)

// dispatcher delivers the events of one connection to the host handler on a single
// goroutine, in the order they were pushed. Pushing never blocks, so the handler may call
// back into the Service without re-entering the bridge. Delivery starts only once the
// dispatcher of the previous connection is done, so its terminal event always comes first.
type dispatcher struct {
	mu       sync.Mutex
	pending  *queue.Queue
	finished bool // terminal event pushed
	stopped  bool // aborted, pending events dropped

	client  Client
	handler EventHandler
	logger  logger

	after CloseChan
	wake  chan struct{}
	stop  chan struct{}
	done  CloseChan
}

// newDispatcher starts delivering once after is closed. A nil after starts right away.
func newDispatcher(client Client, handler EventHandler, after CloseChan, logger logger) *dispatcher {
	d := &dispatcher{
		pending: queue.New(),
		client:  client,
		handler: handler,
		logger:  logger.WithField("type", "dispatcher"),
		after:   after,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(CloseChan),
	}
	go d.run()
	return d
}

// push enqueues ev. Nothing is accepted after a terminal event or after abort.
func (d *dispatcher) push(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finished || d.stopped {
		return
	}
	d.pending.Add(ev)
	if ev.Kind.IsTerminal() {
		d.finished = true
	}
	d.signal()
}

// abort drops undelivered events and stops the goroutine.
func (d *dispatcher) abort() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	d.pending = queue.New()
	close(d.stop)
	d.signal()
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// next returns the following event, or exit once there is nothing left to deliver.
func (d *dispatcher) next() (ev Event, ok bool, exit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return Event{}, false, true
	}
	if d.pending.Length() == 0 {
		return Event{}, false, d.finished
	}
	return d.pending.Remove().(Event), true, false
}

func (d *dispatcher) run() {
	defer close(d.done)

	if d.after != nil {
		select {
		case <-d.after:
		case <-d.stop:
			return
		}
	}

	for range d.wake {
		for {
			ev, ok, exit := d.next()
			if exit {
				return
			}
			if !ok {
				break
			}
			d.call(ev)
		}
	}
}

func (d *dispatcher) call(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("event handler panicked on %s: %v", ev, r)
		}
	}()
	d.handler(d.client, ev)
}
