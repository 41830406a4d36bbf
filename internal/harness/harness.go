package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/uprove/internal/icrewrite"
	"github.com/roach88/uprove/internal/normalize"
	"github.com/roach88/uprove/internal/querynorm"
	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// Harness runs scenarios, each in a fresh deterministic session.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness whose sessions log to logger. A nil logger
// discards output.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with a silent harness.
func Run(sc *Scenario) (*Result, error) {
	return New(nil).Run(sc)
}

// Run executes a scenario and returns the result.
//
// An error is returned only when the scenario cannot be set up, for
// example when its schema does not load. Pipeline failures and failed
// checks are recorded in the result.
//
// Execution flow:
// 1. Load and validate the schema
// 2. Create a session with the scenario name as run ID
// 3. Register the declared tuple schemas
// 4. Run the pipeline of the scenario level
// 5. Compare against expect or expect_error and evaluate assertions
func (h *Harness) Run(sc *Scenario) (*Result, error) {
	sch, err := loadSchema(sc)
	if err != nil {
		return nil, err
	}
	if errs := schema.Validate(sch); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid schema: %s", strings.Join(msgs, "; "))
	}

	opts := []session.Option{
		session.WithLogger(h.logger),
		session.WithIDGenerator(session.NewFixedGenerator(sc.Name)),
	}
	if sc.MaxIterations > 0 {
		opts = append(opts, session.WithMaxIterations(sc.MaxIterations))
	}
	s := session.New(sch, opts...)
	for name, attrs := range sc.Vars {
		s.PutTupleVarSchema(uexpr.Base(name), attrs)
	}

	result := NewResult(sc.Name)
	out, fresh, err := Pipeline(s, sc.Level, sc.Input.Term, sc.Rules, sc.Constraint)
	if err != nil {
		result.Err = err
		checkError(result, sc, err)
		return result, nil
	}
	result.setOutput(out, fresh)
	if sc.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error %s, got normal form %s", sc.ExpectError, out))
		return result, nil
	}
	if sc.Expect != nil && !uexpr.Equal(sc.Expect.Term, out) {
		result.AddError((&AssertionError{
			Type:     "expect",
			Expected: sc.Expect.Term.String(),
			Actual:   out.String(),
			Diff:     Diff(sc.Expect.Term, out),
		}).Error())
	}
	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// Pipeline brings t into normal form with the pipeline of level. The IC
// level also returns the fresh variables it introduced; rules and
// constraint restrict the IC rewriter and are ignored at other levels.
func Pipeline(s *session.Session, level string, t uexpr.Term, rules []string, constraint string) (uexpr.Term, []*uexpr.Var, error) {
	switch level {
	case LevelCore:
		out, err := normalize.Normalize(s, t)
		return out, nil, err
	case LevelQuery:
		out, err := querynorm.Normalize(s, t)
		return out, nil, err
	case LevelIC:
		var opts []icrewrite.Option
		if len(rules) > 0 {
			opts = append(opts, icrewrite.WithRules(rules...))
		}
		if constraint != "" {
			opts = append(opts, icrewrite.WithConstraint(constraint))
		}
		return icrewrite.Rewrite(s, t, opts...)
	}
	return nil, nil, fmt.Errorf("unknown level %q", level)
}

func checkError(r *Result, sc *Scenario, err error) {
	code := ErrorCode(err)
	switch {
	case sc.ExpectError == "":
		r.AddError(fmt.Sprintf("normalization failed: %v", err))
	case code != sc.ExpectError:
		r.AddError(fmt.Sprintf("expected error %s, got %s: %v", sc.ExpectError, code, err))
	}
}

// ErrorCode returns the normalization error code of err, or "" when err
// is not a normalization error.
func ErrorCode(err error) string {
	var ne *normalize.NormalizeError
	if errors.As(err, &ne) {
		return string(ne.Code)
	}
	return ""
}

func loadSchema(sc *Scenario) (*schema.Schema, error) {
	switch {
	case sc.Schema != "":
		return schema.LoadString(sc.Schema)
	case sc.SchemaFile != "":
		return schema.LoadPath(sc.SchemaFile)
	}
	return schema.Empty(), nil
}

// Diff renders a diff between the expected and actual normal forms, one
// top-level addend per line.
func Diff(want, got uexpr.Term) string {
	return cmp.Diff(addendLines(want), addendLines(got))
}

func addendLines(t uexpr.Term) []string {
	items := uexpr.Addends(uexpr.SortCommAssoc(t))
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.String()
	}
	return out
}
