// Package hyprland owns the compositor side of waybar-vd: socket path
// discovery, the two unix connections (event stream and command channel),
// and decoding of the line-oriented event protocol.
package hyprland

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/givani30/waybar-vd/errors"
)

const (
	// InstanceEnv identifies the running compositor session.
	InstanceEnv = "HYPRLAND_INSTANCE_SIGNATURE"
	// RuntimeDirEnv locates the socket directory root.
	RuntimeDirEnv = "XDG_RUNTIME_DIR"

	commandSocketName = ".socket.sock"
	eventSocketName   = ".socket2.sock"
)

// Session locates the compositor's runtime sockets for one instance.
type Session struct {
	Signature  string
	RuntimeDir string
}

// DiscoverSession resolves the active session from the environment.
// A missing identifier is a fatal startup condition, never defaulted.
func DiscoverSession() (*Session, error) {
	signature := os.Getenv(InstanceEnv)
	if signature == "" {
		return nil, errors.SessionNotFound(InstanceEnv)
	}
	if err := validateSignature(signature); err != nil {
		return nil, err
	}

	runtimeDir := os.Getenv(RuntimeDirEnv)
	if runtimeDir == "" {
		return nil, errors.SessionNotFound(RuntimeDirEnv)
	}

	return &Session{Signature: signature, RuntimeDir: runtimeDir}, nil
}

// validateSignature rejects signatures that could escape the socket
// directory. The value is interpolated into a filesystem path.
func validateSignature(signature string) error {
	if strings.Contains(signature, "..") {
		return errors.SessionInvalid(signature, "contains a parent-directory reference")
	}
	if strings.ContainsAny(signature, "/\x00") {
		return errors.SessionInvalid(signature, "contains a path separator")
	}
	return nil
}

// socketDir returns the directory holding both sockets.
func (s *Session) socketDir() string {
	return filepath.Join(s.RuntimeDir, "hypr", s.Signature)
}

// CommandSocketPath returns the request/reply socket path.
func (s *Session) CommandSocketPath() string {
	return filepath.Join(s.socketDir(), commandSocketName)
}

// EventSocketPath returns the asynchronous event stream socket path.
func (s *Session) EventSocketPath() string {
	return filepath.Join(s.socketDir(), eventSocketName)
}

// Check verifies both sockets exist on disk.
func (s *Session) Check() error {
	for _, path := range []string{s.CommandSocketPath(), s.EventSocketPath()} {
		if _, err := os.Stat(path); err != nil {
			return errors.SocketConnect(path, err)
		}
	}
	return nil
}
