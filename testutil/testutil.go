// Package testutil provides a scripted fake compositor for exercising the
// transport and engine against real unix sockets.
package testutil

import (
	"bufio"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakeCompositor serves the event socket and the command socket the way the
// virtual-desktops plugin does: events are newline-framed pushes, commands
// are one request per connection answered with a single reply then close.
type FakeCompositor struct {
	t *testing.T

	EventSocket   string
	CommandSocket string

	eventLn   net.Listener
	commandLn net.Listener

	mu       sync.Mutex
	eventIn  chan string
	done     chan struct{}
	conns    []net.Conn
	replies  map[string]string
	commands []string
	closed   bool
}

// NewFakeCompositor starts both sockets under dir (use t.TempDir()).
func NewFakeCompositor(t *testing.T, dir string) *FakeCompositor {
	t.Helper()

	f := &FakeCompositor{
		t:             t,
		EventSocket:   filepath.Join(dir, ".socket2.sock"),
		CommandSocket: filepath.Join(dir, ".socket.sock"),
		eventIn:       make(chan string, 64),
		done:          make(chan struct{}),
		replies:       make(map[string]string),
	}

	var err error
	f.eventLn, err = net.Listen("unix", f.EventSocket)
	require.NoError(t, err)
	f.commandLn, err = net.Listen("unix", f.CommandSocket)
	require.NoError(t, err)

	go f.serveEvents()
	go f.serveCommands()

	t.Cleanup(f.Close)
	return f
}

// Reply registers the canned reply for an exact command string.
func (f *FakeCompositor) Reply(cmd, reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[cmd] = reply
}

// Emit pushes one event line to the connected event-stream client.
func (f *FakeCompositor) Emit(line string) {
	f.eventIn <- line
}

// Commands returns the commands received so far, in arrival order.
func (f *FakeCompositor) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	copy(out, f.commands)
	return out
}

// Close shuts both listeners down. Safe to call multiple times.
func (f *FakeCompositor) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.done)
	conns := f.conns
	f.conns = nil
	f.mu.Unlock()

	f.eventLn.Close()
	f.commandLn.Close()
	for _, conn := range conns {
		conn.Close()
	}
}

func (f *FakeCompositor) serveEvents() {
	for {
		conn, err := f.eventLn.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()

		go func(conn net.Conn) {
			defer conn.Close()
			for {
				select {
				case <-f.done:
					return
				case line := <-f.eventIn:
					if _, err := conn.Write([]byte(line + "\n")); err != nil {
						return
					}
				}
			}
		}(conn)
	}
}

func (f *FakeCompositor) serveCommands() {
	for {
		conn, err := f.commandLn.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()

			reader := bufio.NewReader(conn)
			// The client half-closes after writing, so read to EOF.
			data, err := io.ReadAll(reader)
			if err != nil {
				return
			}
			cmd := string(data)

			f.mu.Lock()
			f.commands = append(f.commands, cmd)
			reply, ok := f.replies[cmd]
			f.mu.Unlock()

			if !ok {
				reply = "unknown command"
			}
			conn.Write([]byte(reply))
		}(conn)
	}
}
