package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/givani30/waybar-vd/cli"
	"github.com/givani30/waybar-vd/internal/engine"
	"github.com/givani30/waybar-vd/internal/hyprland"
	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/givani30/waybar-vd/logging"
	"github.com/givani30/waybar-vd/pkg/client"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the `status` command: a one-shot dump of the desktop
// table, through the daemon when available, direct otherwise.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current virtual desktop state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			id, _ := cmd.Flags().GetInt("id")
			jsonOut := cli.GetOptions(cmd).JSONOutput

			c := client.New(cfg.Daemon.SocketPath)
			if c.IsRunning() {
				defer c.Close()
				return statusFromDaemon(ctx, c, id, jsonOut)
			}
			return statusDirect(ctx, id, jsonOut)
		},
	}

	cmd.Flags().Int("id", -1, "Show a single desktop by id")
	return cmd
}

func statusFromDaemon(ctx context.Context, c *client.Client, id int, jsonOut bool) error {
	if id >= 0 {
		desktop, err := c.Desktop(ctx, id)
		if err != nil {
			return err
		}
		return printDesktops([]vdesk.VirtualDesktop{*desktop}, nil, jsonOut)
	}

	state, err := c.State(ctx)
	if err != nil {
		return err
	}
	return printDesktops(state.Desktops, &state.Status, jsonOut)
}

func statusDirect(ctx context.Context, id int, jsonOut bool) error {
	session, err := hyprland.DiscoverSession()
	if err != nil {
		return err
	}
	transport := hyprland.NewTransport(session, logging.NewLogger("transport"))

	if id >= 0 {
		reply, err := transport.SendCommand(ctx, fmt.Sprintf("%s %d", hyprland.CmdPrintDesk, id))
		if err != nil {
			return err
		}
		desktop, err := hyprland.ParseDesk(reply)
		if err != nil {
			return err
		}
		return printDesktops([]vdesk.VirtualDesktop{desktop}, nil, jsonOut)
	}

	reply, err := transport.SendCommand(ctx, hyprland.CmdPrintState)
	if err != nil {
		return err
	}
	desktops, err := hyprland.ParseState(reply)
	if err != nil {
		return err
	}
	return printDesktops(desktops, nil, jsonOut)
}

func printDesktops(desktops []vdesk.VirtualDesktop, status *engine.ConnStatus, jsonOut bool) error {
	if jsonOut {
		payload := map[string]interface{}{"desktops": desktops}
		if status != nil {
			payload["status"] = status
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if status != nil {
		fmt.Printf("Connection: %s\n", status.State)
	}
	for _, d := range desktops {
		marker := " "
		if d.Focused {
			marker = "*"
		}
		fmt.Printf("%s %d  %-20s windows=%d\n", marker, d.ID, d.Name, d.WindowCount)
	}
	return nil
}
