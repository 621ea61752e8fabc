// Package config loads, validates, and watches the waybar-vd configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/givani30/waybar-vd/logging"
	"github.com/givani30/waybar-vd/pkg/paths"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

const defaultRetryMax = 10

// Config is the full configuration file at
// $XDG_CONFIG_HOME/waybar-vd/config.yml. Every field has a default; a
// missing file yields a fully usable configuration.
type Config struct {
	// Format is the per-desktop display template. Placeholders: {name},
	// {icon}, {id}, {window_count}.
	Format string `yaml:"format" json:"format,omitempty" jsonschema:"description=Per-desktop display template with {name} {icon} {id} {window_count} placeholders"`

	// ShowEmpty includes desktops with no windows in the output.
	ShowEmpty bool `yaml:"show_empty" json:"show_empty,omitempty" jsonschema:"description=Show desktops that have no windows"`

	// Separator joins rendered desktops in the text field.
	Separator string `yaml:"separator" json:"separator,omitempty" jsonschema:"description=String placed between rendered desktops"`

	// FormatIcons maps a desktop id, exact name, or glob pattern to an
	// icon for the {icon} placeholder. The "default" key is the fallback.
	FormatIcons map[string]string `yaml:"format_icons" json:"format_icons,omitempty" jsonschema:"description=Icon lookup table keyed by id exact name or glob pattern"`

	// ShowWindowCount appends the window count to populated desktops when
	// the format has no {window_count} placeholder.
	ShowWindowCount bool `yaml:"show_window_count" json:"show_window_count,omitempty" jsonschema:"description=Append window counts to populated desktops"`

	// SortBy orders the desktop table: "number", "name", or "focused-first".
	SortBy string `yaml:"sort_by" json:"sort_by,omitempty" jsonschema:"description=Desktop ordering: number name or focused-first"`

	// RetryMax is the reconnect attempt budget before entering the failed
	// state. A pointer so an explicit 0 (no retries) is distinguishable
	// from an absent key.
	RetryMax *int `yaml:"retry_max" json:"retry_max,omitempty" jsonschema:"description=Reconnect attempts before giving up"`

	// RetryBaseDelayMs is the base backoff delay in milliseconds.
	RetryBaseDelayMs int `yaml:"retry_base_delay_ms" json:"retry_base_delay_ms,omitempty" jsonschema:"description=Base reconnect backoff delay in milliseconds"`

	// Logging configures log level, format, and sinks.
	Logging logging.Config `yaml:"logging" json:"logging,omitempty" jsonschema:"description=Logging configuration"`

	// Daemon configures the background daemon.
	Daemon DaemonConfig `yaml:"daemon" json:"daemon,omitempty" jsonschema:"description=Daemon configuration"`
}

// DaemonConfig configures the daemon surface.
type DaemonConfig struct {
	// SocketPath overrides the default control socket location.
	SocketPath string `yaml:"socket_path" json:"socket_path,omitempty" jsonschema:"description=Control socket path override"`

	// WatchConfig reloads display options live when the config file changes.
	WatchConfig bool `yaml:"watch_config" json:"watch_config,omitempty" jsonschema:"description=Reload display options when the config file changes"`
}

// Load reads and parses the configuration file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return LoadFromBytes(data)
}

// LoadDefault loads the configuration from the XDG config path, falling
// back to defaults when no file exists.
func LoadDefault() (*Config, error) {
	path := paths.ConfigFilePath()
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			cfg = &Config{}
			cfg.SetDefaults()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from raw YAML, expanding ${ENV}
// references, then applies defaults and validates.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config YAML")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarRegex.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// SetDefaults fills in zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Format == "" {
		c.Format = "{name}"
	}
	if c.Separator == "" {
		c.Separator = " "
	}
	if c.SortBy == "" {
		c.SortBy = "number"
	}
	if c.RetryMax == nil {
		retries := defaultRetryMax
		c.RetryMax = &retries
	}
	if c.RetryBaseDelayMs == 0 {
		c.RetryBaseDelayMs = 500
	}
	if c.FormatIcons == nil {
		c.FormatIcons = map[string]string{}
	}
	if c.Daemon.SocketPath == "" {
		c.Daemon.SocketPath = paths.SocketPath()
	}
}

// Validate checks semantic constraints beyond the schema.
func (c *Config) Validate() error {
	if _, err := vdesk.ParseSortPolicy(c.SortBy); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("sort_by must be one of number, name, focused-first (got %q)", c.SortBy))
	}
	if c.RetryMax != nil && *c.RetryMax < 0 {
		return errors.ConfigInvalid("retry_max must not be negative")
	}
	if c.RetryBaseDelayMs < 1 {
		return errors.ConfigInvalid("retry_base_delay_ms must be at least 1")
	}
	return nil
}

// RetryBudget returns the reconnect attempt budget.
func (c *Config) RetryBudget() int {
	if c.RetryMax == nil {
		return defaultRetryMax
	}
	return *c.RetryMax
}

// RetryBaseDelay returns the base backoff delay as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// SortPolicy returns the parsed sort policy. Call after Validate.
func (c *Config) SortPolicy() vdesk.SortPolicy {
	policy, _ := vdesk.ParseSortPolicy(c.SortBy)
	return policy
}
