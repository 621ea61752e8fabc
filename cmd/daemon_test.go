package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/givani30/waybar-vd/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaemonStatusPrintsConfiguredSocket(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WAYBAR_VD_HOME", home)
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	// Pidfile pointing at this test process, which is alive.
	pidPath := paths.PidFilePath()
	require.NoError(t, os.MkdirAll(filepath.Dir(pidPath), 0755))
	require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644))

	sock := filepath.Join(runtimeDir, "custom.sock")
	dir := filepath.Join(home, "config", "waybar-vd")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"),
		[]byte("daemon:\n  socket_path: "+sock+"\n"), 0644))

	cmd := newDaemonStatusCmd()
	cmd.SetArgs([]string{})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "Running (PID: "+strconv.Itoa(os.Getpid())+")")
	assert.Contains(t, buf.String(), "Socket: "+sock)
}
