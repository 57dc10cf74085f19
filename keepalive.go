package wstask

import (
	"time"
)

type KeepAliveMessageFactory func() WireFrame

// activeKeepAlive periodically writes a keep-alive frame on an open transport.
// It stops when done is closed or as soon as a write is refused.
type activeKeepAlive struct {
	pingInterval            time.Duration
	keepAliveMessageFactory KeepAliveMessageFactory
	write                   func(WireFrame) error
	logger                  logger
}

// run sends keep-alive messages at regular intervals defined by pingInterval.
func (h *activeKeepAlive) run(done <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.write(h.keepAliveMessageFactory()); err != nil {
				h.logger.Debugf("keep-alive stopped: %s", err)
				return
			}
		}
	}
}

func newActiveKeepAlive(
	logger logger,
	interval time.Duration,
	keepAliveMessageFactory KeepAliveMessageFactory,
	write func(WireFrame) error,
) *activeKeepAlive {
	return &activeKeepAlive{
		logger:                  logger.WithField("subtype", "activeKeepAlive"),
		pingInterval:            interval,
		keepAliveMessageFactory: keepAliveMessageFactory,
		write:                   write,
	}
}

// NewKeepAliveMessageFactory returns a factory function for creating keep-alive frames.
// contentFactory may be nil for an empty payload.
func NewKeepAliveMessageFactory(
	mt MessageType,
	contentFactory func() []byte,
) KeepAliveMessageFactory {
	return func() WireFrame {
		if contentFactory == nil {
			return WireFrame{Type: mt}
		}
		return WireFrame{Type: mt, Data: contentFactory()}
	}
}
