package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/hyprland"
	"github.com/sirupsen/logrus"
)

// commandSender is the slice of the transport the dispatcher needs.
type commandSender interface {
	SendCommand(ctx context.Context, cmd string) (string, error)
}

// dispatcher capacity: one command in flight plus one queued. Further
// concurrent callers are rejected with COMMAND_BUSY.
const maxOutstanding = 2

type commandResult struct {
	reply string
	err   error
}

type commandRequest struct {
	cmd  string
	done chan commandResult
}

// Dispatcher serializes outgoing compositor commands. Requests are processed
// strictly in submission order by a single worker; each caller receives
// exactly one outcome matched to its own request. The dispatcher never
// mutates the desktop table: a successful switch only takes effect through
// the subsequent focus event from the compositor.
type Dispatcher struct {
	sender  commandSender
	logger  *logrus.Entry
	metrics *Metrics

	slots   chan struct{}
	reqCh   chan *commandRequest
	closed  atomic.Bool
	stopped chan struct{}
}

// NewDispatcher creates a dispatcher over the given command channel.
func NewDispatcher(sender commandSender, metrics *Metrics, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		slots:   make(chan struct{}, maxOutstanding),
		reqCh:   make(chan *commandRequest, maxOutstanding),
		stopped: make(chan struct{}),
	}
}

// Run processes queued commands until the context is cancelled. Pending
// requests are failed on shutdown rather than left hanging.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.drain()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.reqCh:
			reply, err := d.sender.SendCommand(ctx, req.cmd)
			if err != nil && d.metrics != nil {
				d.metrics.commandErrors.Add(1)
			}
			req.done <- commandResult{reply: reply, err: err}
			<-d.slots
		}
	}
}

// drain fails any requests still queued after Run exits, then closes the
// stopped channel so callers racing the shutdown see it and bail out.
func (d *Dispatcher) drain() {
	d.closed.Store(true)
	for {
		select {
		case req := <-d.reqCh:
			req.done <- commandResult{err: errors.New(errors.ErrCodeSocketClosed, "dispatcher stopped")}
			<-d.slots
		default:
			close(d.stopped)
			return
		}
	}
}

// Switch requests activation of the given desktop. At most one request may
// be in flight with one more queued; excess callers fail fast with
// COMMAND_BUSY. A rejection by the compositor surfaces as COMMAND_REJECTED
// and affects neither the connection state nor the desktop table.
func (d *Dispatcher) Switch(ctx context.Context, id int) error {
	cmd := fmt.Sprintf("%s %d", hyprland.CmdSwitch, id)
	reply, err := d.request(ctx, cmd, false)
	if err != nil {
		if errors.Is(err, errors.ErrCodeCommandBusy) {
			return errors.CommandBusy(id)
		}
		return err
	}
	if reply != hyprland.ReplyOK {
		if d.metrics != nil {
			d.metrics.commandErrors.Add(1)
		}
		return errors.CommandRejected(cmd, reply)
	}
	return nil
}

// Query issues a read-only command, waiting for a queue slot instead of
// rejecting when the dispatcher is busy. Used for full-state resyncs, which
// must not be starved out by a burst of switch requests.
func (d *Dispatcher) Query(ctx context.Context, cmd string) (string, error) {
	return d.request(ctx, cmd, true)
}

func (d *Dispatcher) request(ctx context.Context, cmd string, wait bool) (string, error) {
	if d.closed.Load() {
		return "", errors.New(errors.ErrCodeSocketClosed, "dispatcher stopped")
	}

	if wait {
		select {
		case d.slots <- struct{}{}:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	} else {
		select {
		case d.slots <- struct{}{}:
		default:
			return "", errors.New(errors.ErrCodeCommandBusy, "command queue is full")
		}
	}

	req := &commandRequest{cmd: cmd, done: make(chan commandResult, 1)}
	d.reqCh <- req

	select {
	case res := <-req.done:
		return res.reply, res.err
	case <-d.stopped:
		// The request may have slipped into the queue after the shutdown
		// drain already emptied it, in which case nobody will serve it.
		select {
		case res := <-req.done:
			return res.reply, res.err
		default:
			<-d.slots
			return "", errors.New(errors.ErrCodeSocketClosed, "dispatcher stopped")
		}
	case <-ctx.Done():
		// The worker still completes the request; the buffered done channel
		// keeps it from blocking on an abandoned caller.
		return "", ctx.Err()
	}
}
