package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/givani30/waybar-vd/config"
	"github.com/givani30/waybar-vd/internal/daemon/pidfile"
	"github.com/givani30/waybar-vd/internal/daemon/server"
	"github.com/givani30/waybar-vd/internal/engine"
	"github.com/givani30/waybar-vd/internal/hyprland"
	"github.com/givani30/waybar-vd/logging"
	"github.com/givani30/waybar-vd/pkg/client"
	"github.com/givani30/waybar-vd/pkg/paths"
	"github.com/spf13/cobra"
)

// NewDaemonCmd returns the daemon command with subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Background daemon sharing one compositor connection",
		Long: `The daemon holds a single compositor connection and serves desktop state
to any number of clients (bars, scripts) over a unix socket.`,
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())
	cmd.AddCommand(newDaemonReconnectCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.Configure(cfg.Logging)
			logger := logging.NewLogger("daemon")

			pidPath := paths.PidFilePath()
			sockPath := cfg.Daemon.SocketPath

			// 1. Acquire Lock
			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			// 2. Setup transport and engine
			session, err := hyprland.DiscoverSession()
			if err != nil {
				return err
			}
			transport := hyprland.NewTransport(session, logging.NewLogger("transport"))
			eng := engine.New(transport, engine.Options{
				RetryMax:       cfg.RetryBudget(),
				RetryBaseDelay: cfg.RetryBaseDelay(),
				SortBy:         cfg.SortPolicy(),
			}, logging.NewLogger("engine"))

			// 3. Setup server with engine
			srv := server.New(logger)
			srv.SetEngine(eng)
			srv.SetRunningConfig(&server.RunningConfig{
				ConfigFile:     paths.ConfigFilePath(),
				SortBy:         cfg.SortBy,
				RetryMax:       cfg.RetryBudget(),
				RetryBaseDelay: cfg.RetryBaseDelay(),
				StartedAt:      time.Now(),
			})

			// 4. Handle signals
			ctx, cancel := context.WithCancel(context.Background())
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-stop
				logger.Info("Received stop signal")
				cancel()

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}

				<-eng.Done()
				_ = pidfile.Release(pidPath)
				os.Exit(0)
			}()

			// 5. Watch the config file for display-option changes
			if cfg.Daemon.WatchConfig {
				watcher, err := config.NewWatcher(200, func(next *config.Config) {
					eng.SetSortPolicy(next.SortPolicy())
				})
				if err != nil {
					logger.WithError(err).Warn("Config watcher unavailable, live reload disabled")
				} else {
					defer watcher.Close()
					go watcher.Start(ctx)
				}
			}

			// 6. Start engine in background
			go eng.Run(ctx)

			// 7. Start server (blocking)
			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			if err := srv.ListenAndServe(sockPath); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			fmt.Printf("Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pidPath := paths.PidFilePath()
			running, pid, err := pidfile.IsRunning(pidPath)

			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			if !running {
				fmt.Fprintln(out, "Stopped")
				os.Exit(1) // Non-zero for stopped state, useful in scripts
			}

			// The socket the daemon actually listens on comes from the
			// config, which may override the default path.
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Running (PID: %d)\nSocket: %s\n", pid, cfg.Daemon.SocketPath)

			c := client.New(cfg.Daemon.SocketPath)
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			if running, err := c.Config(ctx); err == nil {
				fmt.Fprintf(out, "Started: %s\nSort:    %s\n",
					running.StartedAt.Format(time.RFC3339), running.SortBy)
			}
			if metrics, err := c.Metrics(ctx); err == nil {
				fmt.Fprintf(out, "Uptime:  %ds\n", metrics.UptimeSeconds)
				fmt.Fprintf(out, "Events:  %d applied, %d unrecognized\n",
					metrics.EventsApplied, metrics.UnrecognizedLines)
				fmt.Fprintf(out, "Link:    %d reconnects, %d command errors\n",
					metrics.Reconnects, metrics.CommandErrors)
			}
			return nil
		},
	}
}

func newDaemonReconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconnect",
		Short: "Reset the retry budget and reconnect to the compositor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			c := client.New(cfg.Daemon.SocketPath)
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			if err := c.Reconnect(ctx); err != nil {
				return err
			}
			fmt.Println("Reconnect requested")
			return nil
		},
	}
}
