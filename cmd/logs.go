package cmd

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/givani30/waybar-vd/pkg/paths"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display waybar-vd log output",
		Long: `Streams log files from the state directory. Each component (run, daemon,
engine, transport) writes its own dated file.

Examples:
  # Follow all current logs
  waybar-vd logs -f

  # Only the engine component
  waybar-vd logs -f --component engine`,
		RunE: runLogsE,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().String("component", "", "Only show logs from one component")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	component, _ := cmd.Flags().GetString("component")

	logDir := paths.LogDir()
	files, err := latestLogFiles(logDir, component)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No log files found in", logDir)
		return nil
	}

	lineChan := make(chan string, 100)
	for _, path := range files {
		go func(path string) {
			t, err := tail.TailFile(path, tail.Config{
				Follow:   follow,
				ReOpen:   follow,
				Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
				Logger:   stdlog.New(io.Discard, "", 0),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Cannot tail %s: %v\n", path, err)
				return
			}
			for line := range t.Lines {
				if line.Err != nil {
					continue
				}
				lineChan <- line.Text
			}
			if !follow {
				lineChan <- ""
			}
		}(path)
	}

	// Without --follow, stop after each tailer signals completion.
	remaining := len(files)
	for line := range lineChan {
		if line == "" && !follow {
			remaining--
			if remaining == 0 {
				break
			}
			continue
		}
		fmt.Println(line)
	}
	return nil
}

// latestLogFiles returns the newest dated log file per component, or the
// single newest file for the requested component.
func latestLogFiles(dir, component string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read log directory %s: %w", dir, err)
	}

	// Files are named <component>-<date>.log; the lexically greatest date
	// per component is the current one.
	latest := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".log") {
			continue
		}
		// <component>-YYYY-MM-DD.log
		base := strings.TrimSuffix(name, ".log")
		if len(base) < 12 || base[len(base)-11] != '-' {
			continue
		}
		comp := base[:len(base)-11]
		if component != "" && comp != component {
			continue
		}
		if prev, ok := latest[comp]; !ok || name > filepath.Base(prev) {
			latest[comp] = filepath.Join(dir, name)
		}
	}

	var files []string
	for _, path := range latest {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
