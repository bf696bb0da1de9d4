// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/sorlineage/internal/cli/config"
	"github.com/leapstack-labs/sorlineage/internal/cli/output"
)

// SetupTestProject writes workbook into a temporary project, changes into
// it and points the configuration at it through SORLINEAGE_ variables.
// It returns the project directory.
func SetupTestProject(t *testing.T, workbook string, mode output.Mode) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "lineage.yaml")
	if err := os.WriteFile(path, []byte(workbook), 0o600); err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}

	t.Setenv(config.EnvPrefix+"WORKBOOK", path)
	t.Setenv(config.EnvPrefix+"STATE_PATH", filepath.Join(dir, ".sorlineage", "state.db"))
	t.Setenv(config.EnvPrefix+"OUTPUT", string(mode))

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	return dir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
