package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/givani30/waybar-vd/errors"
	"github.com/givani30/waybar-vd/internal/vdesk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "{name}", cfg.Format)
	assert.Equal(t, " ", cfg.Separator)
	assert.False(t, cfg.ShowEmpty)
	assert.False(t, cfg.ShowWindowCount)
	assert.Equal(t, "number", cfg.SortBy)
	assert.Equal(t, 10, cfg.RetryBudget())
	assert.Equal(t, 500, cfg.RetryBaseDelayMs)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay())
	assert.Equal(t, vdesk.SortNumber, cfg.SortPolicy())
}

func TestLoadFromBytesFullConfig(t *testing.T) {
	yml := `
format: "{icon} {name}"
separator: " | "
show_empty: true
show_window_count: true
sort_by: focused-first
retry_max: 3
retry_base_delay_ms: 100
format_icons:
  "1": "一"
  default: "·"
logging:
  level: debug
daemon:
  watch_config: true
`
	cfg, err := LoadFromBytes([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, "{icon} {name}", cfg.Format)
	assert.Equal(t, " | ", cfg.Separator)
	assert.True(t, cfg.ShowEmpty)
	assert.Equal(t, vdesk.SortFocusedFirst, cfg.SortPolicy())
	assert.Equal(t, 3, cfg.RetryBudget())
	assert.Equal(t, "一", cfg.FormatIcons["1"])
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Daemon.WatchConfig)
}

func TestLoadFromBytesZeroRetriesSurvives(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("retry_max: 0"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RetryBudget())
}

func TestLoadFromBytesEnvExpansion(t *testing.T) {
	t.Setenv("VD_TEST_SEP", "::")
	cfg, err := LoadFromBytes([]byte(`separator: "${VD_TEST_SEP}"`))
	require.NoError(t, err)
	assert.Equal(t, "::", cfg.Separator)
}

func TestLoadFromBytesRejectsInvalid(t *testing.T) {
	_, err := LoadFromBytes([]byte(`sort_by: alphabetical`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))

	_, err = LoadFromBytes([]byte(`retry_max: -1`))
	require.Error(t, err)

	_, err = LoadFromBytes([]byte(`retry_base_delay_ms: -5`))
	require.Error(t, err)

	_, err = LoadFromBytes([]byte("format: [not, a, string"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestLoadDefaultWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("WAYBAR_VD_HOME", t.TempDir())

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "{name}", cfg.Format)
}

func TestLoadDefaultReadsConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WAYBAR_VD_HOME", home)

	dir := filepath.Join(home, "config", "waybar-vd")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"),
		[]byte("separator: ' / '\n"), 0644))

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, " / ", cfg.Separator)
}

func TestSchemaValidatesConfig(t *testing.T) {
	validator, err := NewValidator()
	require.NoError(t, err)

	cfg, err := LoadFromBytes([]byte(`format: "{name}"`))
	require.NoError(t, err)
	assert.NoError(t, validator.Validate(cfg))
}

func TestSchemaRejectsUnknownField(t *testing.T) {
	validator, err := NewValidator()
	require.NoError(t, err)

	err = validator.Validate(map[string]interface{}{"no_such_option": true})
	assert.Error(t, err)
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(data), "format_icons")
	assert.Contains(t, string(data), "retry_base_delay_ms")
}
