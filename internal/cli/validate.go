package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/config"
	"github.com/roach88/lockstep/internal/harness"
)

// FileValidation is the validation outcome of one file.
type FileValidation struct {
	File  string `json:"file"`
	Kind  string `json:"kind"` // "config" or "scenario"
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate config and scenario files",
		Long: `Validate CUE configuration files and YAML scenarios without running them.

.cue files are unified with the configuration schema; .yaml and .yml
files are parsed strictly as scenarios.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	out := formatterFor(cmd, opts)
	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}

	for _, file := range files {
		fv := validateFile(file)
		if fv.Kind == "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("unsupported file type: %s", file))
		}
		out.VerboseLog("validated %s as %s", file, fv.Kind)
		result.Files = append(result.Files, fv)
		if !fv.Valid {
			result.Valid = false
		}
	}

	if out.JSON() {
		var failure *CLIError
		if !result.Valid {
			failure = &CLIError{Code: ErrCodeInvalid, Message: "validation failed"}
		}
		if err := out.Respond(result, failure); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			if fv.Valid {
				out.Printf("✓ %s\n", fv.File)
				continue
			}
			out.Printf("✗ %s\n  %s\n", fv.File, fv.Error)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(file string) FileValidation {
	fv := FileValidation{File: file}

	switch filepath.Ext(file) {
	case ".cue":
		fv.Kind = "config"
		data, err := os.ReadFile(file)
		if err == nil {
			_, err = config.LoadBytes(data, file)
		}
		if err != nil {
			fv.Error = err.Error()
			return fv
		}
	case ".yaml", ".yml":
		fv.Kind = "scenario"
		if _, err := harness.LoadScenario(file); err != nil {
			fv.Error = err.Error()
			return fv
		}
	default:
		return fv
	}

	fv.Valid = true
	return fv
}
