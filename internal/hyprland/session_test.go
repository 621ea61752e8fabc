package hyprland

import (
	"path/filepath"
	"testing"

	"github.com/givani30/waybar-vd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverSession(t *testing.T) {
	t.Setenv(InstanceEnv, "abc123def")
	t.Setenv(RuntimeDirEnv, "/run/user/1000")

	session, err := DiscoverSession()
	require.NoError(t, err)
	assert.Equal(t, "abc123def", session.Signature)
	assert.Equal(t,
		filepath.Join("/run/user/1000", "hypr", "abc123def", ".socket.sock"),
		session.CommandSocketPath())
	assert.Equal(t,
		filepath.Join("/run/user/1000", "hypr", "abc123def", ".socket2.sock"),
		session.EventSocketPath())
}

func TestDiscoverSessionMissingSignature(t *testing.T) {
	t.Setenv(InstanceEnv, "")
	t.Setenv(RuntimeDirEnv, "/run/user/1000")

	_, err := DiscoverSession()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}

func TestDiscoverSessionMissingRuntimeDir(t *testing.T) {
	t.Setenv(InstanceEnv, "abc123def")
	t.Setenv(RuntimeDirEnv, "")

	_, err := DiscoverSession()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSessionNotFound))
}

func TestSessionCheckMissingSockets(t *testing.T) {
	session := &Session{Signature: "abc", RuntimeDir: t.TempDir()}
	err := session.Check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSocketConnect))
}

func TestDiscoverSessionRejectsTraversal(t *testing.T) {
	t.Setenv(RuntimeDirEnv, "/run/user/1000")

	for _, sig := range []string{"../escape", "a/b", "has\x00nul"} {
		t.Setenv(InstanceEnv, sig)
		_, err := DiscoverSession()
		require.Error(t, err, "signature %q", sig)
		assert.True(t, errors.Is(err, errors.ErrCodeSessionInvalid))
	}
}
