package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
)

// ValidationResult is the JSON output of validate.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Source string   `json:"source"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:   "validate [settings-file]",
		Short: "Validate engine settings",
		Long: `Validate engine settings loaded from a YAML or JSON file.

Without a file, settings are read from EVENTFLOW_* environment variables,
after loading any --env-file given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s      config.Settings
				err    error
				source = "environment"
			)
			if len(args) == 1 {
				source = args[0]
				s, err = config.Load(source)
			} else {
				s, err = config.FromEnv(envFiles...)
			}
			if err != nil {
				return err
			}
			return outputValidation(cmd, rootOpts, source, s.Validate())
		},
	}

	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "dotenv file to load before reading the environment")
	return cmd
}

func outputValidation(cmd *cobra.Command, opts *RootOptions, source string, verr error) error {
	result := ValidationResult{Valid: verr == nil, Source: source}
	if verr != nil {
		result.Errors = splitJoined(verr)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(w, result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(w, "%s: valid\n", source)
	} else {
		fmt.Fprintf(w, "%s: invalid\n", source)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}

	if verr != nil {
		return fmt.Errorf("%s: %w", source, config.ErrInvalidSettings)
	}
	return nil
}

// splitJoined flattens an errors.Join result into its messages.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
