// Package config provides configuration management for the sorlineage CLI.
//
// Values are layered with koanf: built-in defaults, then sorlineage.yaml,
// then SORLINEAGE_ environment variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/layout"
	"github.com/leapstack-labs/sorlineage/internal/loader"
)

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port     int      `koanf:"port"`
	AutoOpen bool     `koanf:"auto_open"`
	Watch    bool     `koanf:"watch"`
	Palette  []string `koanf:"palette"`
}

// DefaultUIConfig returns a UIConfig with default values.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Port:     DefaultPort,
		AutoOpen: true,
		Watch:    true,
		Palette:  append([]string(nil), highlight.DefaultPalette...),
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return DefaultUIConfig()
	}
	ui := c.UI
	if ui.Port == 0 {
		ui.Port = DefaultPort
	}
	if len(ui.Palette) == 0 {
		ui.Palette = append([]string(nil), highlight.DefaultPalette...)
	}
	return ui
}

// Config holds all CLI configuration options.
type Config struct {
	Workbook     string        `koanf:"workbook"`
	InputsDir    string        `koanf:"inputs_dir"`
	OutputsDir   string        `koanf:"outputs_dir"`
	Source       string        `koanf:"source"`
	StatePath    string        `koanf:"state_path"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Layout       layout.Config `koanf:"layout"`
	UI           *UIConfig     `koanf:"ui"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// SourceOptions returns the loader options described by the config.
func (c *Config) SourceOptions() loader.Options {
	return loader.Options{
		Kind:       c.Source,
		Workbook:   c.Workbook,
		InputsDir:  c.InputsDir,
		OutputsDir: c.OutputsDir,
	}
}

// Default configuration values.
const (
	DefaultStateFile = ".sorlineage/state.db"
	DefaultSource    = loader.KindAuto
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPort      = 8766
	EnvPrefix        = "SORLINEAGE_"
)

// ConfigFileNames are the file names searched for, in order.
var ConfigFileNames = []string{"sorlineage.yaml", "sorlineage.yml"}
