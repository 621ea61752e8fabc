package cli

import (
	"fmt"
	"os"

	"github.com/givani30/waybar-vd/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle prints a user-friendly message for known error codes
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeSessionNotFound:
		fmt.Fprintf(os.Stderr, "❌ No compositor session found. Is Hyprland running with the virtual-desktops plugin?\n")
		return err

	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. waybar-vd runs with defaults; create config.yml to customize.\n")
		return err

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(os.Stderr, "❌ Daemon is not running. Start it with 'waybar-vd daemon start'.\n")
		return err

	case errors.ErrCodeCommandBusy:
		fmt.Fprintf(os.Stderr, "❌ A switch is already in flight. Try again in a moment.\n")
		return err

	case errors.ErrCodeCommandRejected:
		if vderr, ok := err.(*errors.VdError); ok {
			fmt.Fprintf(os.Stderr, "❌ Compositor rejected the command: %v\n", vderr.Details["reply"])
		}
		return err

	case errors.ErrCodeRetryExhausted:
		fmt.Fprintf(os.Stderr, "❌ Lost the compositor connection and exhausted the retry budget.\n")
		fmt.Fprintf(os.Stderr, "Reconnect with 'waybar-vd daemon reconnect' once the compositor is back.\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		if h.Verbose {
			if vderr, ok := err.(*errors.VdError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", vderr.ToJSON())
			}
		}
		return err
	}
}
