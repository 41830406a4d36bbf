package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/uprove/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Tables []string                 `json:"tables,omitempty"`
	Errors []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Validate a CUE schema",
		Long: `Load a CUE schema (a file or a package directory) and check its keys
and foreign keys for consistency. Every problem is reported.

Exit codes:
  0 - Schema valid
  1 - Schema loaded but inconsistent
  2 - Schema could not be loaded`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	sch, err := schema.LoadPath(path)
	if err != nil {
		code := schema.ErrCodeGeneric
		var le *schema.LoadError
		if errors.As(err, &le) {
			code = le.Code
		}
		_ = formatter.Failure(code, err.Error(), nil, nil)
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	result := ValidationResult{Valid: true}
	for _, t := range sch.Tables {
		result.Tables = append(result.Tables, t.Name)
	}
	opts.Logger.Debug("schema loaded", "path", path, "tables", len(result.Tables))

	if errs := schema.Validate(sch); len(errs) > 0 {
		result.Valid = false
		result.Errors = errs
		_ = formatter.Failure(errs[0].Code, errs[0].Message, result, func(w io.Writer) {
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
			}
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Schema valid (%d tables)\n", len(result.Tables))
	})
}
