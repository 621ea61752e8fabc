// Package paths provides XDG-compliant path resolution for waybar-vd.
//
// Resolution order:
// 1. WAYBAR_VD_HOME (portable root) → $WAYBAR_VD_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/waybar-vd
// 3. Platform defaults → ~/.config/waybar-vd, ~/.local/state/waybar-vd, etc.
package paths

import (
	"os"
	"path/filepath"
)

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("WAYBAR_VD_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("WAYBAR_VD_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// getRuntimeDir returns the base runtime directory for sockets and pidfiles.
// Falls back to the state dir when XDG_RUNTIME_DIR is unset.
func getRuntimeDir() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir
	}
	return getStateHome()
}

// ConfigDir returns the waybar-vd configuration directory.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "waybar-vd")
}

// ConfigFilePath returns the default config file path.
func ConfigFilePath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yml")
}

// StateDir returns the waybar-vd state directory.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "waybar-vd")
}

// LogDir returns the directory for log files.
func LogDir() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "logs")
}

// SocketPath returns the daemon's unix socket path.
func SocketPath() string {
	return filepath.Join(getRuntimeDir(), "waybar-vd", "daemon.sock")
}

// PidFilePath returns the daemon's pidfile path.
func PidFilePath() string {
	return filepath.Join(getRuntimeDir(), "waybar-vd", "daemon.pid")
}
