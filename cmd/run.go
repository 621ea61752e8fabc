package cmd

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/givani30/waybar-vd/config"
	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/engine"
	"github.com/givani30/waybar-vd/internal/hyprland"
	"github.com/givani30/waybar-vd/logging"
	"github.com/givani30/waybar-vd/pkg/client"
	"github.com/givani30/waybar-vd/pkg/waybar"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the `run` command, the Waybar module entry point. It
// connects to the compositor in-process and writes one JSON line to stdout
// per state change. All logging goes to stderr and the log file; stdout
// belongs to Waybar.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Feed virtual desktop state to Waybar on stdout",
		Long: `Connects to the compositor and emits a JSON line for Waybar's custom
module protocol whenever the virtual desktop state changes.

Waybar configuration:

  "custom/vdesk": {
    "exec": "waybar-vd run",
    "return-type": "json",
    "on-scroll-up": "waybar-vd switch next",
    "on-scroll-down": "waybar-vd switch prev"
  }

With --via-daemon the module renders the daemon's update stream instead of
opening its own compositor connection, so multiple bars share one socket.`,
		RunE: runE,
	}
	cmd.Flags().Bool("via-daemon", false, "Render updates from a running daemon")
	return cmd
}

func runE(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.Configure(cfg.Logging)
	logger := logging.NewLogger("run")

	if viaDaemon, _ := cmd.Flags().GetBool("via-daemon"); viaDaemon {
		return runViaDaemon(cmd.Context(), cfg, logger)
	}

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

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("Received stop signal")
		cancel()
	}()

	// The renderer is swapped on config reload, never mutated.
	var rendererMu sync.Mutex
	renderer := waybar.NewRenderer(rendererOptions(cfg))

	if cfg.Daemon.WatchConfig {
		watcher, err := config.NewWatcher(200, func(next *config.Config) {
			rendererMu.Lock()
			renderer = waybar.NewRenderer(rendererOptions(next))
			rendererMu.Unlock()
			eng.SetSortPolicy(next.SortPolicy())
		})
		if err != nil {
			logger.WithError(err).Warn("Config watcher unavailable, live reload disabled")
		} else {
			defer watcher.Close()
			go watcher.Start(ctx)
		}
	}

	snapshot, updates, unsubscribe := eng.Subscribe()
	defer unsubscribe()

	go eng.Run(ctx)

	out := bufio.NewWriter(os.Stdout)
	emit := func(update engine.Update) {
		rendererMu.Lock()
		r := renderer
		rendererMu.Unlock()

		line, err := r.Render(update).Encode()
		if err != nil {
			logger.WithError(err).Error("Failed to encode output")
			return
		}
		out.Write(line)
		out.Flush()
	}

	emit(engine.Update{Desktops: snapshot, Status: eng.Status()})

	for {
		select {
		case <-ctx.Done():
			<-eng.Done()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			emit(update)
		}
	}
}

// runViaDaemon renders the daemon's SSE stream. The stream's first event is
// the current snapshot, so there is no separate initial fetch.
func runViaDaemon(parent context.Context, cfg *config.Config, logger *logrus.Entry) error {
	c := client.New(cfg.Daemon.SocketPath)
	defer c.Close()
	if !c.IsRunning() {
		return errors.DaemonNotRunning(cfg.Daemon.SocketPath)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	updates, err := c.Stream(ctx)
	if err != nil {
		return err
	}

	renderer := waybar.NewRenderer(rendererOptions(cfg))
	out := bufio.NewWriter(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				logger.Warn("Daemon stream closed")
				return nil
			}
			line, err := renderer.Render(update).Encode()
			if err != nil {
				logger.WithError(err).Error("Failed to encode output")
				continue
			}
			out.Write(line)
			out.Flush()
		}
	}
}

func rendererOptions(cfg *config.Config) waybar.Options {
	return waybar.Options{
		Format:          cfg.Format,
		Separator:       cfg.Separator,
		ShowEmpty:       cfg.ShowEmpty,
		ShowWindowCount: cfg.ShowWindowCount,
		FormatIcons:     cfg.FormatIcons,
	}
}

// loadConfig loads the file given by --config, or the default location.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}
