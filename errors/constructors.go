package errors

import (
	"fmt"
)

// SessionNotFound creates an error for a missing compositor session identifier
func SessionNotFound(envVar string) *VdError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("%s is not set; is the compositor running?", envVar)).
		WithDetail("env", envVar)
}

// SessionInvalid creates an error for an unusable session signature
func SessionInvalid(signature, reason string) *VdError {
	return New(ErrCodeSessionInvalid, fmt.Sprintf("invalid instance signature: %s", reason)).
		WithDetail("signature", signature)
}

// SocketConnect wraps a connection failure to a compositor socket
func SocketConnect(path string, err error) *VdError {
	return Wrap(err, ErrCodeSocketConnect, fmt.Sprintf("failed to connect to socket %s", path)).
		WithDetail("path", path)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *VdError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *VdError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// CommandRejected creates an error for a command the compositor refused
func CommandRejected(cmd, reply string) *VdError {
	return New(ErrCodeCommandRejected, fmt.Sprintf("compositor rejected command: %s", reply)).
		WithDetail("command", cmd).
		WithDetail("reply", reply)
}

// CommandBusy creates an error for a switch request that exceeded the queue capacity
func CommandBusy(id int) *VdError {
	return New(ErrCodeCommandBusy, "a switch command is already in flight and one is queued").
		WithDetail("desktop", id)
}

// RetryExhausted creates an error for a connection that failed past the retry budget
func RetryExhausted(attempts int, lastErr error) *VdError {
	return Wrap(lastErr, ErrCodeRetryExhausted,
		fmt.Sprintf("connection failed after %d attempts", attempts)).
		WithDetail("attempts", attempts)
}

// DaemonNotRunning creates an error for client operations against a stopped daemon
func DaemonNotRunning(socketPath string) *VdError {
	return New(ErrCodeDaemonNotRunning, "daemon is not running").
		WithDetail("socket", socketPath)
}
