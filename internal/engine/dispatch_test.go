package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSender holds each command until released, so tests control the
// in-flight window precisely.
type blockingSender struct {
	mu       sync.Mutex
	commands []string
	started  chan string
	release  chan string
}

func newBlockingSender() *blockingSender {
	return &blockingSender{
		started: make(chan string, 16),
		release: make(chan string, 16),
	}
}

func (s *blockingSender) SendCommand(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()

	s.started <- cmd
	select {
	case reply := <-s.release:
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *blockingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *blockingSender, context.CancelFunc) {
	t.Helper()
	sender := newBlockingSender()
	d := NewDispatcher(sender, newMetrics(), logging.NewLogger("dispatch-test"))

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	return d, sender, cancel
}

func TestDispatcherSwitchOK(t *testing.T) {
	d, sender, cancel := newTestDispatcher(t)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Switch(context.Background(), 3) }()

	cmd := <-sender.started
	assert.Equal(t, "dispatch vdesk 3", cmd)
	sender.release <- "ok"

	assert.NoError(t, <-done)
}

func TestDispatcherSwitchRejected(t *testing.T) {
	d, sender, cancel := newTestDispatcher(t)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Switch(context.Background(), 99) }()

	<-sender.started
	sender.release <- "invalid desktop"

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCommandRejected))
}

func TestDispatcherBusyBeyondOneQueued(t *testing.T) {
	d, sender, cancel := newTestDispatcher(t)
	defer cancel()

	results := make(chan error, 2)

	// First request: picked up by the worker, held in flight.
	go func() { results <- d.Switch(context.Background(), 1) }()
	<-sender.started

	// Second request: occupies the single queue slot.
	go func() { results <- d.Switch(context.Background(), 2) }()
	require.Eventually(t, func() bool {
		return len(d.slots) == maxOutstanding
	}, time.Second, 5*time.Millisecond)

	// Capacity exceeded: fail fast instead of queueing further.
	err := d.Switch(context.Background(), 3)
	assert.True(t, errors.Is(err, errors.ErrCodeCommandBusy))

	// Both held requests still complete, in order.
	sender.release <- "ok"
	<-sender.started
	sender.release <- "ok"

	assert.NoError(t, <-results)
	assert.NoError(t, <-results)
	assert.Equal(t, []string{"dispatch vdesk 1", "dispatch vdesk 2"}, sender.sent())
}

func TestDispatcherQueryWaitsInsteadOfRejecting(t *testing.T) {
	d, sender, cancel := newTestDispatcher(t)
	defer cancel()

	// Fill the in-flight slot.
	go d.Switch(context.Background(), 1)
	<-sender.started

	// Fill the queue slot.
	go d.Switch(context.Background(), 2)
	require.Eventually(t, func() bool {
		return len(d.slots) == maxOutstanding
	}, time.Second, 5*time.Millisecond)

	// A query must block for a slot, not fail with busy.
	queryDone := make(chan error, 1)
	go func() {
		_, err := d.Query(context.Background(), "j/printstate")
		queryDone <- err
	}()

	select {
	case err := <-queryDone:
		t.Fatalf("query should still be waiting, finished with %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	sender.release <- "ok"
	<-sender.started
	sender.release <- "ok"
	<-sender.started
	sender.release <- "[]"

	assert.NoError(t, <-queryDone)
}

func TestDispatcherFailsPendingOnShutdown(t *testing.T) {
	d, sender, cancel := newTestDispatcher(t)

	go d.Switch(context.Background(), 1)
	<-sender.started

	queued := make(chan error, 1)
	go func() { queued <- d.Switch(context.Background(), 2) }()
	require.Eventually(t, func() bool {
		return len(d.slots) == maxOutstanding
	}, time.Second, 5*time.Millisecond)
	cancel()

	err := <-queued
	require.Error(t, err)
}

func TestDispatcherLateRequestAfterShutdownFailsFast(t *testing.T) {
	d, _, cancel := newTestDispatcher(t)

	// Stop the worker with nothing queued and wait for the drain to finish.
	cancel()
	<-d.stopped

	// Replay the window where a caller passed the closed check just before
	// the drain ran: such a request lands in the queue with no worker left.
	d.closed.Store(false)

	done := make(chan error, 1)
	go func() { done <- d.Switch(context.Background(), 1) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeSocketClosed))
	case <-time.After(time.Second):
		t.Fatal("switch never returned after dispatcher shutdown")
	}
	// The abandoned request must not keep its slot.
	assert.Equal(t, 0, len(d.slots))
}
