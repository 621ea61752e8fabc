package hyprland

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/givani30/waybar-vd/errors"
	"github.com/sirupsen/logrus"
)

// commandTimeout bounds a single command round-trip. The compositor answers
// immediately or not at all; a stuck reply must not wedge the dispatcher.
const commandTimeout = 5 * time.Second

// Transport owns the persistent event-stream connection and the outbound
// command channel. The event connection lives for the duration of one
// Connect/Close cycle; commands dial a fresh connection per request and
// read the single reply to EOF, which is the compositor's reply framing.
type Transport struct {
	eventPath   string
	commandPath string
	logger      *logrus.Entry

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewTransport creates a transport for the given socket paths.
func NewTransport(session *Session, logger *logrus.Entry) *Transport {
	return &Transport{
		eventPath:   session.EventSocketPath(),
		commandPath: session.CommandSocketPath(),
		logger:      logger,
	}
}

// NewTransportPaths creates a transport from explicit socket paths.
func NewTransportPaths(eventPath, commandPath string, logger *logrus.Entry) *Transport {
	return &Transport{eventPath: eventPath, commandPath: commandPath, logger: logger}
}

// Connect opens the event-stream connection. A previous connection, if any,
// is closed first. The caller cancels a blocked read by calling Close.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
		t.reader = nil
	}
	t.mu.Unlock()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", t.eventPath)
	if err != nil {
		return errors.SocketConnect(t.eventPath, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.mu.Unlock()

	t.logger.WithField("socket", t.eventPath).Debug("Event stream connected")
	return nil
}

// ReadLine blocks until one newline-terminated event line is available.
// Returns io.EOF on clean peer close. Close interrupts a blocked read.
func (t *Transport) ReadLine() (string, error) {
	t.mu.Lock()
	reader := t.reader
	t.mu.Unlock()
	if reader == nil {
		return "", errors.New(errors.ErrCodeSocketClosed, "event stream is not connected")
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", io.EOF
		}
		if line != "" && err == io.EOF {
			// A final unterminated line still counts.
			return strings.TrimRight(line, "\n"), nil
		}
		return "", errors.Wrap(err, errors.ErrCodeSocketRead, "event stream read failed")
	}
	return strings.TrimRight(line, "\n"), nil
}

// SendCommand writes one command on the command socket and returns the
// reply. It uses its own connection, so it never interleaves with a read
// in progress on the event socket.
func (t *Transport) SendCommand(ctx context.Context, cmd string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", t.commandPath)
	if err != nil {
		return "", errors.SocketConnect(t.commandPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(commandTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSocketWrite, "failed to set command deadline")
	}

	if _, err := conn.Write([]byte(cmd)); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSocketWrite, "command write failed")
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		// Half-close so the compositor sees EOF on our side of the request.
		_ = uc.CloseWrite()
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSocketRead, "command reply read failed")
	}
	return strings.TrimSpace(string(reply)), nil
}

// Close tears down the event-stream connection, interrupting any blocked
// ReadLine. Safe to call multiple times.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.reader = nil
	return err
}
