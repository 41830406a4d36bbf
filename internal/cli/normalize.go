package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/uprove/internal/harness"
	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Schema        string   // CUE file or directory
	Level         string   // core | query | ic
	Rules         []string // IC rules to enable
	Constraint    string   // restrict IC rules to one table
	MaxIterations int
	Vars          []string // name=attr,attr tuple-variable schemas
	YAML          bool     // print the normal form as a YAML term
}

// NormalizeResult is the JSON payload of the normalize command.
type NormalizeResult struct {
	RunID      string   `json:"run_id"`
	Level      string   `json:"level"`
	Input      string   `json:"input"`
	Normalized string   `json:"normalized"`
	Fresh      []string `json:"fresh,omitempty"`
}

var levels = []string{harness.LevelCore, harness.LevelQuery, harness.LevelIC}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <term.yaml|->",
		Short: "Bring a term into normal form",
		Long: `Read a YAML term from a file (or stdin with "-") and print its normal form.

Exit codes:
  0 - Normal form printed
  1 - Normalization failed (shape violation, no convergence) or schema invalid
  2 - Command error (unreadable input, unknown level, etc.)

Examples:
  uprove normalize term.yaml
  uprove normalize term.yaml --level query
  uprove normalize term.yaml --level ic --schema schema.cue --rules self-join,one-record
  echo '{add: [1, 2]}' | uprove normalize -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "CUE schema file or directory")
	cmd.Flags().StringVarP(&opts.Level, "level", "l", harness.LevelCore, "normalization level (core|query|ic)")
	cmd.Flags().StringSliceVar(&opts.Rules, "rules", nil, "IC rules to enable (default all)")
	cmd.Flags().StringVar(&opts.Constraint, "constraint", "", "apply IC rules to this table only")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", session.DefaultMaxIterations, "pass budget of every fixed-point loop")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "tuple variable schema as name=attr,attr (repeatable)")
	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "print the normal form as a YAML term")

	return cmd
}

func runNormalize(opts *NormalizeOptions, path string, cmd *cobra.Command) error {
	if !slices.Contains(levels, opts.Level) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid level %q: must be one of %v", opts.Level, levels))
	}
	if opts.Level != harness.LevelIC && (len(opts.Rules) > 0 || opts.Constraint != "") {
		return NewExitError(ExitCommandError, "--rules and --constraint apply to level ic only")
	}
	varSchemas, err := parseVarSchemas(opts.Vars)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --var", err)
	}

	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read term", err)
	}
	in, err := uexpr.DecodeYAML(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse term", err)
	}

	var sch *schema.Schema
	if opts.Schema != "" {
		sch, err = loadValidSchema(opts.Schema)
		if err != nil {
			return err
		}
	}

	s := session.New(sch,
		session.WithLogger(opts.Logger),
		session.WithMaxIterations(opts.MaxIterations),
	)
	for name, attrs := range varSchemas {
		s.PutTupleVarSchema(uexpr.Base(name), attrs)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	out, fresh, err := harness.Pipeline(s, opts.Level, in, opts.Rules, opts.Constraint)
	if err != nil {
		code := harness.ErrorCode(err)
		if code == "" {
			// Unknown rule names are the only non-normalization failure.
			return WrapExitError(ExitCommandError, "invalid --rules", err)
		}
		_ = formatter.Failure(code, err.Error(), nil, nil)
		return WrapExitError(ExitFailure, "normalization failed", err)
	}

	result := NormalizeResult{
		RunID:      s.ID(),
		Level:      opts.Level,
		Input:      in.String(),
		Normalized: out.String(),
	}
	for _, v := range fresh {
		result.Fresh = append(result.Fresh, v.Name)
	}

	if opts.YAML && !formatter.JSON() {
		doc, err := uexpr.EncodeYAML(out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode normal form", err)
		}
		_, err = cmd.OutOrStdout().Write(doc)
		return err
	}
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintln(w, result.Normalized)
		if len(result.Fresh) > 0 {
			fmt.Fprintf(w, "fresh: %s\n", strings.Join(result.Fresh, ", "))
		}
	})
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// parseVarSchemas parses name=attr,attr flag values.
func parseVarSchemas(flags []string) (map[string][]string, error) {
	out := make(map[string][]string, len(flags))
	for _, f := range flags {
		name, attrs, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || attrs == "" {
			return nil, fmt.Errorf("%q: want name=attr,attr", f)
		}
		for _, a := range strings.Split(attrs, ",") {
			out[name] = append(out[name], strings.TrimSpace(a))
		}
	}
	return out, nil
}

// loadValidSchema loads and validates the schema at path. Load problems
// are command errors; an inconsistent schema is a failed check.
func loadValidSchema(path string) (*schema.Schema, error) {
	sch, err := schema.LoadPath(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	if errs := schema.Validate(sch); len(errs) > 0 {
		return nil, NewExitError(ExitFailure, fmt.Sprintf("invalid schema: %s", errs[0].Error()))
	}
	return sch, nil
}
