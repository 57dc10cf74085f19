package wstask

import (
	"io"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) State() ConnectionState {
	return m.Called().Get(0).(ConnectionState)
}

func (m *mockSender) Send(f Frame) error {
	return m.Called(f).Error(0)
}

// stateSender is a frameSender with a settable state that records sent frames.
type stateSender struct {
	mu    sync.Mutex
	state ConnectionState
	sent  []string
}

func (s *stateSender) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stateSender) set(state ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *stateSender) Send(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return ErrClosed
	}
	s.sent = append(s.sent, f.Text())
	return nil
}

func (s *stateSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func newTestQueue(sender frameSender, max int) *OutboundQueue {
	return NewOutboundQueue(sender, max, newTestLogger(io.Discard), nil)
}

func TestOutboundQueue_FlushKeepsSubmissionOrder(t *testing.T) {
	sender := &stateSender{state: StateConnecting}
	q := newTestQueue(sender, 0)

	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Submit(NewTextFrame(s)))
	}
	assert.Equal(t, 4, q.Len())
	assert.Empty(t, sender.Sent())

	sender.set(StateOpen)
	require.NoError(t, q.Flush())

	assert.Equal(t, []string{"a", "b", "c", "d"}, sender.Sent())
	assert.Equal(t, 0, q.Len())
}

func TestOutboundQueue_SubmitWhileOpenSendsDirectly(t *testing.T) {
	sender := &stateSender{state: StateOpen}
	q := newTestQueue(sender, 0)

	require.NoError(t, q.Submit(NewTextFrame("now")))
	assert.Equal(t, []string{"now"}, sender.Sent())
	assert.Equal(t, 0, q.Len())
}

func TestOutboundQueue_SubmitBeforePendingFlushIsQueued(t *testing.T) {
	sender := &stateSender{state: StateConnecting}
	q := newTestQueue(sender, 0)
	require.NoError(t, q.Submit(NewTextFrame("first")))

	// opened, but the flush did not run yet
	sender.set(StateOpen)
	require.NoError(t, q.Submit(NewTextFrame("second")))
	assert.Empty(t, sender.Sent())

	require.NoError(t, q.Flush())
	assert.Equal(t, []string{"first", "second"}, sender.Sent())
}

func TestOutboundQueue_QueueFull(t *testing.T) {
	sender := &stateSender{state: StateConnecting}
	q := newTestQueue(sender, 1)

	require.NoError(t, q.Submit(NewTextFrame("one")))
	assert.ErrorIs(t, q.Submit(NewTextFrame("two")), ErrQueueFull)
	assert.Equal(t, 1, q.Len())

	sender.set(StateOpen)
	require.NoError(t, q.Flush())
	assert.Equal(t, []string{"one"}, sender.Sent())
}

func TestOutboundQueue_ClosedDiscards(t *testing.T) {
	for _, state := range []ConnectionState{StateClosing, StateClosed, StateErrored} {
		t.Run(state.String(), func(t *testing.T) {
			sender := &stateSender{state: StateConnecting}
			q := newTestQueue(sender, 0)
			require.NoError(t, q.Submit(NewTextFrame("pending")))

			sender.set(state)
			assert.ErrorIs(t, q.Submit(NewTextFrame("late")), ErrClosed)
			assert.Equal(t, 0, q.Len())
			assert.Empty(t, sender.Sent())
		})
	}
}

func TestOutboundQueue_FlushStopsOnError(t *testing.T) {
	sender := &mockSender{}
	sender.On("State").Return(StateConnecting)
	q := newTestQueue(sender, 0)

	a, b, c := NewTextFrame("a"), NewTextFrame("b"), NewTextFrame("c")
	require.NoError(t, q.Submit(a))
	require.NoError(t, q.Submit(b))
	require.NoError(t, q.Submit(c))

	sender.On("Send", a).Return(nil).Once()
	sender.On("Send", b).Return(errors.New("broken pipe")).Once()

	err := q.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Equal(t, 0, q.Len())

	sender.AssertExpectations(t)
	sender.AssertNotCalled(t, "Send", c)
}

func TestOutboundQueue_ConcurrentSubmitDuringFlush(t *testing.T) {
	sender := &stateSender{state: StateConnecting}
	q := newTestQueue(sender, 0)

	const buffered = 100
	for i := 0; i < buffered; i++ {
		require.NoError(t, q.Submit(NewTextFrame(string(rune('A'+i%26)))))
	}

	sender.set(StateOpen)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = q.Submit(NewTextFrame("late"))
		}
	}()
	require.NoError(t, q.Flush())
	wg.Wait()
	require.NoError(t, q.Flush())

	sent := sender.Sent()
	require.Len(t, sent, buffered+50)
	for i := 0; i < buffered; i++ {
		assert.Equal(t, string(rune('A'+i%26)), sent[i])
	}
	for _, s := range sent[buffered:] {
		assert.Equal(t, "late", s)
	}
}
