package hyprland

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/givani30/waybar-vd/logging"
	"github.com/givani30/waybar-vd/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T) (*Transport, *testutil.FakeCompositor) {
	t.Helper()
	fake := testutil.NewFakeCompositor(t, t.TempDir())
	transport := NewTransportPaths(fake.EventSocket, fake.CommandSocket, logging.NewLogger("transport-test"))
	return transport, fake
}

func TestTransportReadsEventLines(t *testing.T) {
	transport, fake := newTestTransport(t)

	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	fake.Emit("vdeskfocused>>2")
	fake.Emit("vdeskcreated>>3,Work")

	line, err := transport.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "vdeskfocused>>2", line)

	line, err = transport.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "vdeskcreated>>3,Work", line)
}

func TestTransportSendCommand(t *testing.T) {
	transport, fake := newTestTransport(t)
	fake.Reply("dispatch vdesk 2", "ok")

	reply, err := transport.SendCommand(context.Background(), "dispatch vdesk 2")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, []string{"dispatch vdesk 2"}, fake.Commands())
}

func TestTransportCommandsDoNotNeedEventConnection(t *testing.T) {
	transport, fake := newTestTransport(t)
	fake.Reply("j/printstate", "[]")

	// No Connect call: the command channel dials per request.
	reply, err := transport.SendCommand(context.Background(), "j/printstate")
	require.NoError(t, err)
	assert.Equal(t, "[]", reply)
}

func TestTransportCloseInterruptsBlockedRead(t *testing.T) {
	transport, _ := newTestTransport(t)
	require.NoError(t, transport.Connect(context.Background()))

	readDone := make(chan error, 1)
	go func() {
		_, err := transport.ReadLine()
		readDone <- err
	}()

	// Let the read block, then close underneath it.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, transport.Close())

	select {
	case err := <-readDone:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked read was not interrupted by Close")
	}
}

func TestTransportReadAfterPeerClose(t *testing.T) {
	transport, fake := newTestTransport(t)
	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	fake.Close()

	_, err := transport.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestTransportConnectFailsWithoutSocket(t *testing.T) {
	transport := NewTransportPaths("/nonexistent/events.sock", "/nonexistent/cmd.sock",
		logging.NewLogger("transport-test"))

	err := transport.Connect(context.Background())
	assert.Error(t, err)

	_, err = transport.SendCommand(context.Background(), "j/printstate")
	assert.Error(t, err)
}
