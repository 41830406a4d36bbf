package harness

import "github.com/roach88/uprove/internal/uexpr"

// Result is the outcome of a scenario run.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass is true when every check succeeded.
	Pass bool `json:"pass"`

	// Output is the normal form, nil when the pipeline failed.
	Output uexpr.Term `json:"-"`

	// Normalized renders Output.
	Normalized string `json:"normalized,omitempty"`

	// Fresh lists the fresh variables minted by the ic level.
	Fresh []string `json:"fresh,omitempty"`

	// Err is the pipeline error, if any.
	Err error `json:"-"`

	// Errors contains failed check messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(name string) *Result {
	return &Result{Scenario: name, Pass: true, Errors: []string{}}
}

// AddError records a failed check.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// setOutput records the normal form.
func (r *Result) setOutput(t uexpr.Term, fresh []*uexpr.Var) {
	r.Output = t
	r.Normalized = t.String()
	for _, v := range fresh {
		r.Fresh = append(r.Fresh, v.Name)
	}
}
