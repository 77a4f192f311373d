package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidate_Valid(t *testing.T) {
	cfg := writeFile(t, "lockstep.cue", "tick_rate: 30\narena: width: 80\n")
	scenario := writeFile(t, "delete_range.yaml", deleteRangeScenario)

	out, err := execute(t, NewValidateCommand(testRootOptions("json")), cfg, scenario)
	require.NoError(t, err)

	resp := decodeResponse[ValidationResult](t, out)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 2)
	assert.Equal(t, "config", resp.Data.Files[0].Kind)
	assert.Equal(t, "scenario", resp.Data.Files[1].Kind)
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"config out of range", "bad.cue", "tick_rate: 0\n", "invalid config"},
		{"config unknown field", "typo.cue", "tick_rat: 30\n", "invalid config"},
		{"scenario unknown field", "bad.yaml", "name: n\ndescription: d\ntick_rate: 1\nframes: [{steps: 1}]\nfrobnicate: true\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			out, err := execute(t, NewValidateCommand(testRootOptions("json")), path)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decodeResponse[ValidationResult](t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
			require.Len(t, resp.Data.Files, 1)
			assert.False(t, resp.Data.Files[0].Valid)
			assert.Contains(t, resp.Data.Files[0].Error, tt.want)
		})
	}
}

func TestValidate_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "notes.txt", "hello")

	_, err := execute(t, NewValidateCommand(testRootOptions("text")), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestValidate_TextOutput(t *testing.T) {
	good := writeFile(t, "good.cue", "seed: 7\n")
	bad := writeFile(t, "bad.cue", "log_level: \"loud\"\n")

	out, err := execute(t, NewValidateCommand(testRootOptions("text")), good, bad)
	require.Error(t, err)
	assert.Contains(t, out, "✓ "+good)
	assert.Contains(t, out, "✗ "+bad)
}
