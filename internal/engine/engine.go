// Package engine implements the IPC client and state-reconciliation loop:
// it owns the transport, decodes the event stream, applies events to the
// desktop store under single-writer discipline, reconnects with bounded
// exponential backoff, and publishes coalesced snapshots to subscribers.
package engine

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/givani30/waybar-vd/internal/hyprland"
	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/sirupsen/logrus"
)

// Transport abstracts the compositor connection so the retry policy and
// reconcile loop are testable against a fake.
type Transport interface {
	Connect(ctx context.Context) error
	ReadLine() (string, error)
	SendCommand(ctx context.Context, cmd string) (string, error)
	Close() error
}

// Options carries the already-validated configuration the engine consumes.
type Options struct {
	RetryMax       int
	RetryBaseDelay time.Duration
	SortBy         vdesk.SortPolicy
}

// Update is one coalesced notification to a subscriber: the full snapshot,
// the diff that produced it, and the connection status at publish time.
// Subscribers that lag receive only the newest update; intermediate ones
// are dropped, since only the converged state matters.
type Update struct {
	Desktops []vdesk.VirtualDesktop `json:"desktops"`
	Diff     vdesk.Diff             `json:"diff"`
	Status   ConnStatus             `json:"status"`
}

// Engine supervises the connection lifecycle end-to-end. One instance per
// compositor session; construct explicitly and pass around, no globals.
type Engine struct {
	transport  Transport
	store      *vdesk.Store
	dispatcher *Dispatcher
	policy     RetryPolicy
	logger     *logrus.Entry
	metrics    *Metrics

	mu          sync.Mutex
	status      ConnStatus
	subscribers map[chan Update]struct{}

	reconnect chan struct{}
	done      chan struct{}
}

// New creates an engine over the given transport.
func New(transport Transport, opts Options, logger *logrus.Entry) *Engine {
	metrics := newMetrics()
	return &Engine{
		transport:   transport,
		store:       vdesk.NewStore(opts.SortBy),
		dispatcher:  NewDispatcher(transport, metrics, logger),
		policy:      NewRetryPolicy(opts.RetryBaseDelay, opts.RetryMax),
		logger:      logger,
		metrics:     metrics,
		status:      ConnStatus{State: StateDisconnected},
		subscribers: make(map[chan Update]struct{}),
		reconnect:   make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Run drives the connect/read/reconcile loop until the context is
// cancelled. It is the only goroutine that writes the store and the only
// place that sleeps between attempts; both the socket read and the backoff
// sleep are interrupted by cancellation, so shutdown completes within a
// bounded grace period even against a dead socket.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.teardown()

	go e.dispatcher.Run(ctx)

	attempt := 0
	connected := false
	var lastErr error

	for ctx.Err() == nil {
		e.setStatus(ConnStatus{State: StateConnecting, Attempt: attempt})

		if err := e.transport.Connect(ctx); err != nil {
			lastErr = err
			e.logger.WithError(err).Debug("Connect failed")
		} else {
			attempt = 0
			if connected {
				e.metrics.reconnects.Add(1)
			}
			connected = true
			e.setStatus(ConnStatus{State: StateConnected})

			lastErr = e.session(ctx)
			if ctx.Err() != nil {
				return nil
			}
			e.logger.WithError(lastErr).Warn("Event stream lost")
		}

		if e.policy.Exhausted(attempt) {
			reason := ""
			if lastErr != nil {
				reason = lastErr.Error()
			}
			e.setStatus(ConnStatus{State: StateFailed, Attempt: attempt, Reason: reason})
			e.publish(vdesk.Diff{})
			e.logger.WithField("attempts", attempt).Error("Retry budget exhausted; waiting for manual reconnect")

			select {
			case <-ctx.Done():
				return nil
			case <-e.reconnect:
				attempt = 0
				continue
			}
		}

		delay := e.policy.Jittered(attempt)
		e.setStatus(ConnStatus{State: StateBackoff, Attempt: attempt, NextDelay: delay})
		e.publish(vdesk.Diff{})
		e.logger.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Info("Backing off before reconnect")

		select {
		case <-ctx.Done():
			return nil
		case <-e.reconnect:
			attempt = 0
			continue
		case <-time.After(delay):
			attempt++
		}
	}
	return nil
}

// session runs one connected period: full resync, then the read loop.
// Returns the error that ended the connection.
func (e *Engine) session(ctx context.Context) error {
	// Interrupt a blocked read when the engine is shut down.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		e.transport.Close()
	}()

	// The full-state query replaces the table atomically, discarding
	// anything stale from before the gap. This is the correctness anchor
	// that makes the event-driven model safe against missed events.
	if err := e.resync(ctx); err != nil {
		return err
	}

	for {
		line, err := e.transport.ReadLine()
		if err != nil {
			if err == io.EOF {
				e.logger.Info("Event stream closed by compositor")
			}
			return err
		}

		ev := hyprland.Decode(line)
		if ev.Kind == vdesk.EventUnrecognized {
			// The event socket carries every compositor event class; lines
			// we do not interpret are expected traffic, not errors.
			e.metrics.unrecognizedLines.Add(1)
			e.logger.WithField("line", ev.Raw).Trace("Ignoring unrecognized event")
			continue
		}

		diff := e.store.Apply(ev)
		e.metrics.eventsApplied.Add(1)
		if !diff.Empty() {
			e.publish(diff)
		}
	}
}

// resync fetches the authoritative desktop table and swaps it in.
func (e *Engine) resync(ctx context.Context) error {
	reply, err := e.dispatcher.Query(ctx, hyprland.CmdPrintState)
	if err != nil {
		return err
	}
	desktops, err := hyprland.ParseState(reply)
	if err != nil {
		return err
	}
	diff := e.store.Replace(desktops)
	e.logger.WithField("desktops", len(desktops)).Debug("Full state resynced")
	e.publish(diff)
	return nil
}

func (e *Engine) teardown() {
	e.transport.Close()
	e.store.Clear()

	e.mu.Lock()
	e.status = ConnStatus{State: StateDisconnected}
	for ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = make(map[chan Update]struct{})
	e.mu.Unlock()
}

// Subscribe registers a consumer. It returns the current snapshot and a
// coalescing update channel: if the consumer has not drained the previous
// update when a new one arrives, the older one is dropped. The returned
// cancel function unregisters and closes the channel.
func (e *Engine) Subscribe() ([]vdesk.VirtualDesktop, <-chan Update, func()) {
	ch := make(chan Update, 1)
	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
	}
	return e.store.Snapshot(), ch, cancel
}

// publish fans the current snapshot out to all subscribers, coalescing per
// subscriber. Raw events are never coalesced, only rendered snapshots.
func (e *Engine) publish(diff vdesk.Diff) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Snapshot capture and fan-out share the critical section so that
	// concurrent publishers (the IO loop and a config reload) cannot
	// replace a newer buffered update with an older snapshot.
	update := Update{
		Desktops: e.store.Snapshot(),
		Diff:     diff,
		Status:   e.status,
	}

	for ch := range e.subscribers {
		select {
		case ch <- update:
		default:
			// Drop the stale update and replace it with the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// Switch requests a desktop switch. The store is never updated
// optimistically; it changes only when the focus event arrives.
func (e *Engine) Switch(ctx context.Context, id int) error {
	return e.dispatcher.Switch(ctx, id)
}

// DescribeDesktop queries the compositor for one desktop.
func (e *Engine) DescribeDesktop(ctx context.Context, id int) (vdesk.VirtualDesktop, error) {
	reply, err := e.dispatcher.Query(ctx, hyprland.CmdPrintDesk+" "+strconv.Itoa(id))
	if err != nil {
		return vdesk.VirtualDesktop{}, err
	}
	return hyprland.ParseDesk(reply)
}

// Reconnect requests an immediate retry, resetting the attempt counter.
// This is the only way out of the Failed state short of a restart.
func (e *Engine) Reconnect() {
	select {
	case e.reconnect <- struct{}{}:
	default:
	}
}

// Snapshot returns the current desktop table.
func (e *Engine) Snapshot() []vdesk.VirtualDesktop {
	return e.store.Snapshot()
}

// Status returns the current connection status.
func (e *Engine) Status() ConnStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// SetSortPolicy changes the snapshot ordering live (config reload).
func (e *Engine) SetSortPolicy(policy vdesk.SortPolicy) {
	e.store.SetSortPolicy(policy)
	e.publish(vdesk.Diff{})
}

// Done is closed once Run has fully torn down, for bounded shutdown joins.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) setStatus(status ConnStatus) {
	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
}
