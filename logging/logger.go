package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/givani30/waybar-vd/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	active   Config
	activeMu sync.Mutex
)

// Configure installs the logging configuration for subsequent NewLogger calls
// and re-applies it to loggers that already exist. Called once after the
// config file is loaded; loggers created before that use defaults plus env.
func Configure(cfg Config) {
	activeMu.Lock()
	active = cfg
	activeMu.Unlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	for component, entry := range loggers {
		applyConfig(entry.Logger, component, cfg)
	}
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()

	activeMu.Lock()
	cfg := active
	activeMu.Unlock()
	applyConfig(logger, component, cfg)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// applyConfig configures level, formatter, and sinks on a logger.
func applyConfig(logger *logrus.Logger, component string, cfg Config) {
	// Configure Level
	levelStr := "info"
	if env := os.Getenv("WAYBAR_VD_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Configure Caller Reporting
	if os.Getenv("WAYBAR_VD_LOG_CALLER") == "true" || cfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	// Configure Formatter. Stdout is reserved for Waybar JSON in run mode,
	// so the console sink is always stderr.
	isTTY := isatty.IsTerminal(os.Stderr.Fd())
	switch cfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}, Color: isTTY})
	default:
		logger.SetFormatter(&TextFormatter{Config: cfg.Format, Color: isTTY})
	}

	logger.SetOutput(buildOutput(component, cfg, logger))
}

// buildOutput assembles the output sinks: stderr plus an optional file sink.
func buildOutput(component string, cfg Config, logger *logrus.Logger) io.Writer {
	writers := []io.Writer{os.Stderr}

	var logFilePath string
	if cfg.File.Enabled && cfg.File.Path != "" {
		logFilePath = cfg.File.Path
	} else if dir := paths.LogDir(); dir != "" {
		dateStr := time.Now().Format("2006-01-02")
		logFilePath = filepath.Join(dir, fmt.Sprintf("%s-%s.log", component, dateStr))
	}

	if logFilePath != "" {
		dir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			if cfg.File.Enabled {
				logger.Warnf("Failed to create log directory %s: %v", dir, err)
			}
		} else {
			file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				writers = append(writers, file)
			} else if cfg.File.Enabled {
				logger.Warnf("Failed to open log file %s: %v", logFilePath, err)
			}
		}
	}

	if len(writers) == 1 {
		return writers[0]
	}
	return io.MultiWriter(writers...)
}
