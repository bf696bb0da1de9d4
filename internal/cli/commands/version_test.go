package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{version: "0.1.0", want: "sorlineage v0.1.0\n"},
		{version: "dev", want: "sorlineage vdev\n"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			out, errOut, err := execute(t, NewVersionCommand(tt.version))
			require.NoError(t, err)
			assert.Empty(t, errOut)
			assert.Equal(t, tt.want+"Column-level lineage viewer for system-of-record tables\n", out)
		})
	}
}

func TestVersionCommand_IgnoresConfig(t *testing.T) {
	// No workbook, no state: version must still work.
	t.Chdir(t.TempDir())
	t.Setenv("SORLINEAGE_WORKBOOK", "missing.yaml")

	out, _, err := execute(t, NewVersionCommand("1.2.3"))
	require.NoError(t, err)
	assert.Contains(t, out, "sorlineage v1.2.3")
}
