package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/uprove/internal/icrewrite"
	"github.com/roach88/uprove/internal/uexpr"
)

// Pipeline levels.
const (
	LevelCore  = "core"
	LevelQuery = "query"
	LevelIC    = "ic"
)

// Scenario is one normalization test case.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is inline CUE source for the relational schema.
	Schema string `yaml:"schema,omitempty"`

	// SchemaFile is a CUE file or directory, relative to the scenario
	// file once loaded with LoadScenarioWithBasePath.
	SchemaFile string `yaml:"schema_file,omitempty"`

	// Vars gives the tuple schemas of variables not bound by a table atom.
	Vars map[string][]string `yaml:"vars,omitempty"`

	// Level selects the pipeline. Defaults to core.
	Level string `yaml:"level,omitempty"`

	// Rules and Constraint configure the ic level.
	Rules      []string `yaml:"rules,omitempty"`
	Constraint string   `yaml:"constraint,omitempty"`

	// MaxIterations caps the passes of every loop when positive.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// Input is the term to normalize.
	Input uexpr.YAMLTerm `yaml:"input"`

	// Expect is the expected normal form, compared up to the order of
	// commutative items and the names of bound variables.
	Expect *uexpr.YAMLTerm `yaml:"expect,omitempty"`

	// ExpectError is the expected error code, such as NOT_CONVERGED.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions are further checks on the normal form.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion is an extra check on a scenario outcome.
type Assertion struct {
	// Type is one of kind, not_uses, fresh_count and max_size.
	Type string `yaml:"type"`

	// Kind is the expected term kind (used by kind).
	Kind string `yaml:"kind,omitempty"`

	// Var is a variable name (used by not_uses).
	Var string `yaml:"var,omitempty"`

	// Count is a count bound (used by fresh_count and max_size).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertKind       = "kind"
	AssertNotUses    = "not_uses"
	AssertFreshCount = "fresh_count"
	AssertMaxSize    = "max_size"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields and
// missing required fields are errors.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads a scenario YAML file, resolving
// schema_file relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if sc.SchemaFile != "" && !filepath.IsAbs(sc.SchemaFile) && basePath != "" {
		sc.SchemaFile = filepath.Join(basePath, sc.SchemaFile)
	}
	if sc.SchemaFile != "" {
		if _, err := os.Stat(sc.SchemaFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: schema file not found: %s", sc.SchemaFile)
		}
	}
	return sc, nil
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if sc.Level == "" {
		sc.Level = LevelCore
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Input.Term == nil {
		return fmt.Errorf("input is required")
	}
	if s.Expect == nil && s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("one of expect, expect_error or assertions is required")
	}
	if s.Expect != nil && s.ExpectError != "" {
		return fmt.Errorf("expect and expect_error are exclusive")
	}
	if s.Schema != "" && s.SchemaFile != "" {
		return fmt.Errorf("schema and schema_file are exclusive")
	}

	switch s.Level {
	case LevelCore, LevelQuery:
		if len(s.Rules) > 0 || s.Constraint != "" {
			return fmt.Errorf("rules and constraint apply to level %s only", LevelIC)
		}
	case LevelIC:
		known := icrewrite.RuleNames()
		for _, r := range s.Rules {
			if !slices.Contains(known, r) {
				return fmt.Errorf("unknown rule %q", r)
			}
		}
	default:
		return fmt.Errorf("unknown level %q", s.Level)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertKind:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for kind", index)
		}
	case AssertNotUses:
		if a.Var == "" {
			return fmt.Errorf("assertions[%d]: var is required for not_uses", index)
		}
	case AssertFreshCount, AssertMaxSize:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
