package hyprland

import (
	"encoding/json"
	"strings"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/vdesk"
)

// Commands understood by the virtual-desktops plugin on the command socket.
const (
	// CmdPrintState asks for the full desktop table as JSON.
	CmdPrintState = "j/printstate"
	// CmdPrintDesk asks for one desktop; the id is appended.
	CmdPrintDesk = "printdesk"
	// CmdSwitch activates a desktop; the id is appended.
	CmdSwitch = "dispatch vdesk"

	// ReplyOK is the compositor's acknowledgement for dispatch commands.
	ReplyOK = "ok"
)

// ParseState decodes the reply to CmdPrintState into the authoritative
// desktop list. This is the full-resync payload applied after a reconnect.
func ParseState(reply string) ([]vdesk.VirtualDesktop, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, errors.New(errors.ErrCodeStateParse, "empty state reply")
	}

	var desktops []vdesk.VirtualDesktop
	if err := json.Unmarshal([]byte(reply), &desktops); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStateParse, "failed to parse state JSON")
	}

	for _, d := range desktops {
		if d.ID < 0 {
			return nil, errors.New(errors.ErrCodeStateParse, "state contains a negative desktop id").
				WithDetail("id", d.ID)
		}
	}
	return desktops, nil
}

// ParseDesk decodes the reply to CmdPrintDesk for a single desktop.
func ParseDesk(reply string) (vdesk.VirtualDesktop, error) {
	reply = strings.TrimSpace(reply)
	var desktop vdesk.VirtualDesktop
	if err := json.Unmarshal([]byte(reply), &desktop); err != nil {
		return vdesk.VirtualDesktop{}, errors.Wrap(err, errors.ErrCodeStateParse, "failed to parse desktop JSON")
	}
	return desktop, nil
}
