package logging

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// TextFormatter is a custom logrus formatter.
type TextFormatter struct {
	Config FormatConfig
	// Color enables ANSI-colored level tags. Set when the sink is a terminal.
	Color bool
}

var levelColors = map[logrus.Level]string{
	logrus.DebugLevel: "\x1b[36m", // cyan
	logrus.InfoLevel:  "\x1b[32m", // green
	logrus.WarnLevel:  "\x1b[33m", // yellow
	logrus.ErrorLevel: "\x1b[31m", // red
	logrus.FatalLevel: "\x1b[31m",
	logrus.PanicLevel: "\x1b[31m",
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	if !f.Config.DisableTimestamp {
		b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
		b.WriteString(" ")
	}

	// Map logrus level strings to shorter versions for consistency
	levelStr := entry.Level.String()
	if levelStr == "warning" {
		levelStr = "warn"
	}
	level := strings.ToUpper(levelStr)
	if f.Color {
		if c, ok := levelColors[entry.Level]; ok {
			level = c + level + "\x1b[0m"
		}
	}
	b.WriteString(fmt.Sprintf("[%s]", level))

	if component, ok := entry.Data["component"]; ok && !f.Config.DisableComponent {
		b.WriteString(fmt.Sprintf(" [%v]", component))
	}

	if entry.HasCaller() {
		fileName := filepath.Base(entry.Caller.File)
		funcName := filepath.Base(entry.Caller.Function)
		b.WriteString(fmt.Sprintf(" [%s:%d %s]", fileName, entry.Caller.Line, funcName))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	// Append remaining fields
	for key, value := range entry.Data {
		if key != "component" {
			b.WriteString(fmt.Sprintf(" %s=%v", key, value))
		}
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}
