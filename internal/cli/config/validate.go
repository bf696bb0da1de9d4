package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/sorlineage/internal/cli/output"
	"github.com/leapstack-labs/sorlineage/internal/loader"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Source) {
	case "", loader.KindAuto, loader.KindYAML, loader.KindCSV:
	default:
		return fmt.Errorf("source must be one of auto, yaml, csv; got %q", c.Source)
	}

	valid := false
	for _, m := range output.Modes() {
		if c.OutputFormat == "" || c.OutputFormat == m {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("output must be one of %s; got %q", strings.Join(output.Modes(), ", "), c.OutputFormat)
	}

	if err := c.Layout.Validate(); err != nil {
		return err
	}

	if c.UI != nil && (c.UI.Port < 0 || c.UI.Port > 65535) {
		return fmt.Errorf("ui.port out of range: %d", c.UI.Port)
	}
	return nil
}

// ValidateSource checks that the configured source files exist.
// Only commands that read the workbook call it, so help and version work
// without a project.
func (c *Config) ValidateSource() error {
	src, err := loader.Open(c.SourceOptions())
	if err != nil {
		return fmt.Errorf("%w\nHint: set workbook in sorlineage.yaml or pass --workbook", err)
	}
	for _, p := range src.Paths() {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("lineage source does not exist: %s", p)
		}
	}
	return nil
}
