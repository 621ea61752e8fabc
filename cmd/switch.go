package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/hyprland"
	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/givani30/waybar-vd/logging"
	"github.com/givani30/waybar-vd/pkg/client"
	"github.com/spf13/cobra"
)

// NewSwitchCmd creates the `switch` command. It goes through the daemon
// when one is running, otherwise it talks to the compositor directly.
func NewSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id|next|prev>",
		Short: "Switch to a virtual desktop",
		Long: `Switch to a virtual desktop by id, or relative to the focused one with
"next" and "prev". Wired to Waybar scroll and click actions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			c := client.New(cfg.Daemon.SocketPath)
			if c.IsRunning() {
				defer c.Close()
				id, err := resolveTarget(args[0], func() ([]vdesk.VirtualDesktop, error) {
					state, err := c.State(ctx)
					if err != nil {
						return nil, err
					}
					return state.Desktops, nil
				})
				if err != nil {
					return err
				}
				return c.Switch(ctx, id)
			}

			return switchDirect(ctx, args[0])
		},
	}
}

// switchDirect issues the dispatch without a daemon, over a one-shot
// connection to the command socket.
func switchDirect(ctx context.Context, target string) error {
	session, err := hyprland.DiscoverSession()
	if err != nil {
		return err
	}
	transport := hyprland.NewTransport(session, logging.NewLogger("transport"))

	id, err := resolveTarget(target, func() ([]vdesk.VirtualDesktop, error) {
		reply, err := transport.SendCommand(ctx, hyprland.CmdPrintState)
		if err != nil {
			return nil, err
		}
		return hyprland.ParseState(reply)
	})
	if err != nil {
		return err
	}

	cmd := fmt.Sprintf("%s %d", hyprland.CmdSwitch, id)
	reply, err := transport.SendCommand(ctx, cmd)
	if err != nil {
		return err
	}
	if reply != hyprland.ReplyOK {
		return errors.CommandRejected(cmd, reply)
	}
	return nil
}

// resolveTarget turns "next"/"prev" into a concrete id relative to the
// focused desktop; numeric targets pass through without a state query.
func resolveTarget(target string, fetch func() ([]vdesk.VirtualDesktop, error)) (int, error) {
	if id, err := strconv.Atoi(target); err == nil {
		if id < 0 {
			return 0, errors.New(errors.ErrCodeInvalidInput, "desktop id must not be negative")
		}
		return id, nil
	}
	if target != "next" && target != "prev" {
		return 0, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("target must be a desktop id, next, or prev (got %q)", target))
	}

	desktops, err := fetch()
	if err != nil {
		return 0, err
	}
	if len(desktops) == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "no virtual desktops exist")
	}

	focusedIdx := 0
	for i, d := range desktops {
		if d.Focused {
			focusedIdx = i
			break
		}
	}

	n := len(desktops)
	if target == "next" {
		return desktops[(focusedIdx+1)%n].ID, nil
	}
	return desktops[(focusedIdx-1+n)%n].ID, nil
}
