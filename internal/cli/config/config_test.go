package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sorlineage/internal/layout"
	"github.com/leapstack-labs/sorlineage/internal/testutil"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "sorlineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("workbook", "", "")
	flags.String("inputs", "", "")
	flags.String("outputs", "", "")
	flags.String("source", "", "")
	flags.String("state", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Source)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, layout.DefaultConfig(), cfg.Layout)
	assert.Equal(t, DefaultPort, cfg.GetUIConfig().Port)
	assert.Len(t, cfg.GetUIConfig().Palette, 6)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, `
workbook: data/lineage.yaml
state_path: /tmp/sorlineage-state.db
layout:
  row_height: 40
ui:
  port: 9000
  palette: ["#111111", "#222222"]
`)
	sub := filepath.Join(dir, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot, "project root found by upward search")
	assert.Equal(t, filepath.Join(dir, "data", "lineage.yaml"), cfg.Workbook)
	assert.Equal(t, "/tmp/sorlineage-state.db", cfg.StatePath)
	assert.Equal(t, 40, cfg.Layout.RowHeight)
	assert.Equal(t, 60, cfg.Layout.StartY, "unset layout keys keep defaults")
	assert.Equal(t, 9000, cfg.GetUIConfig().Port)
	assert.Equal(t, []string{"#111111", "#222222"}, cfg.GetUIConfig().Palette)
	assert.Equal(t, filepath.Join(dir, "sorlineage.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_ZeroLayoutMetrics(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "layout:\n  start_y: 0\n  input_x: 0\n")
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Layout.StartY)
	assert.Equal(t, 0, cfg.Layout.InputX)
	assert.Equal(t, 35, cfg.Layout.RowHeight)
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "workbook: from_file.yaml\nui:\n  port: 9000\n")
	t.Chdir(dir)
	t.Setenv("SORLINEAGE_WORKBOOK", "from_env.yaml")
	t.Setenv("SORLINEAGE_UI_PORT", "9100")
	t.Setenv("SORLINEAGE_LAYOUT_BOX_WIDTH", "260")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "from_env.yaml"), cfg.Workbook)
	assert.Equal(t, 9100, cfg.GetUIConfig().Port)
	assert.Equal(t, 260, cfg.Layout.BoxWidth)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "workbook: from_file.yaml\noutput: markdown\n")
	t.Chdir(dir)
	t.Setenv("SORLINEAGE_WORKBOOK", "from_env.yaml")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--workbook", "from_flag.yaml", "-o", "json", "--inputs", "in", "--state", ":memory:"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "from_flag.yaml"), cfg.Workbook)
	assert.Equal(t, filepath.Join(dir, "in"), cfg.InputsDir)
	assert.Equal(t, ":memory:", cfg.StatePath)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SORLINEAGE_SOURCE", "csv")

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Source)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inputs_dir: inputs\noutputs_dir: outputs\n"), 0o600))
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inputs"), cfg.InputsDir)
	assert.Equal(t, filepath.Join(dir, "outputs"), cfg.OutputsDir)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad source", "source: xlsx\n", "source must be one of"},
		{"bad output", "output: html\n", "output must be one of"},
		{"bad layout", "layout:\n  output_x: 100\n", "layout.output_x"},
		{"bad port", "ui:\n  port: 70000\n", "ui.port"},
		{"unreadable yaml", "workbook: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			t.Chdir(dir)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateSource(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "lineage.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("inputs: {}\n"), 0o600))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "existing workbook", cfg: Config{Workbook: existing}},
		{name: "missing workbook", cfg: Config{Workbook: filepath.Join(dir, "nope.yaml")}, wantErr: "does not exist"},
		{name: "nothing configured", cfg: Config{}, wantErr: "Hint"},
		{name: "csv dirs", cfg: Config{Source: "csv", InputsDir: dir, OutputsDir: dir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateSource()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "ui.port", envKey("SORLINEAGE_UI_PORT"))
	assert.Equal(t, "layout.row_height", envKey("SORLINEAGE_LAYOUT_ROW_HEIGHT"))
	assert.Equal(t, "inputs_dir", envKey("SORLINEAGE_INPUTS_DIR"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "fallback logger")

	logger := testutil.NewTestLogger(t)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
