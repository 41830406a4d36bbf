// Package session holds the per-run state of one normalization: fresh
// variable counters, the tuple-variable schema side map, the registry of
// representatives minted by the integrity-constraint rewriter, and the
// knobs every fixed-point driver reads.
//
// A Session is created per translation run and is not safe for concurrent
// use. Independent equivalence checks use independent sessions, so no
// counter leaks between them.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/uexpr"
)

// DefaultMaxIterations bounds every fixed-point loop of a run.
const DefaultMaxIterations = 1000

// Prefixes of minted variable names. Translator names never contain '#'.
const (
	freshBasePrefix = "x#"
	freshEqPrefix   = "e#"
)

// Session is the explicit normalization context.
type Session struct {
	id     string
	schema *schema.Schema
	logger *slog.Logger
	idGen  IDGenerator

	maxIterations int

	baseCounter int
	eqCounter   int

	// varSchemas maps a base variable name to its ordered attributes.
	varSchemas map[string][]string

	// fresh maps a registry key to the representative minted for it.
	fresh      map[string]*uexpr.Var
	freshOrder []*uexpr.Var
}

// Option configures a Session.
type Option func(*Session)

// WithMaxIterations caps the passes of every fixed-point loop.
//
// Default: 1000 (DefaultMaxIterations). Non-positive values are ignored.
func WithMaxIterations(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator sets the run ID generator.
//
// Default: UUIDv7Generator. Use a FixedGenerator for golden output.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) {
		s.idGen = g
	}
}

// New creates a session over sch. A nil schema behaves as an empty one.
func New(sch *schema.Schema, opts ...Option) *Session {
	if sch == nil {
		sch = schema.Empty()
	}
	s := &Session{
		schema:        sch,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		idGen:         UUIDv7Generator{},
		maxIterations: DefaultMaxIterations,
		varSchemas:    make(map[string][]string),
		fresh:         make(map[string]*uexpr.Var),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.id = s.idGen.Generate()
	s.logger = s.logger.With("run_id", s.id)
	return s
}

// ID returns the run identifier.
func (s *Session) ID() string { return s.id }

// Schema returns the relational schema of the run.
func (s *Session) Schema() *schema.Schema { return s.schema }

// Logger returns the run logger, already tagged with the run ID.
func (s *Session) Logger() *slog.Logger { return s.logger }

// MaxIterations returns the fixed-point pass cap.
func (s *Session) MaxIterations() int { return s.maxIterations }

// FreshBaseVar mints a new tuple variable unique within the run.
func (s *Session) FreshBaseVar() *uexpr.Var {
	s.baseCounter++
	return uexpr.Base(fmt.Sprintf("%s%d", freshBasePrefix, s.baseCounter))
}

// FreshEqVar mints a variable for equality elimination. It draws from a
// counter separate from FreshBaseVar.
func (s *Session) FreshEqVar() *uexpr.Var {
	s.eqCounter++
	return uexpr.Base(fmt.Sprintf("%s%d", freshEqPrefix, s.eqCounter))
}

// Rename mints a fresh variable carrying old's schema. It satisfies
// uexpr.Renamer.
func (s *Session) Rename(old *uexpr.Var) *uexpr.Var {
	v := s.FreshBaseVar()
	if attrs := s.TupleVarSchema(old); attrs != nil {
		s.PutTupleVarSchema(v, attrs)
	}
	return v
}

// TupleVarSchema returns the ordered attributes of v. A concatenation
// yields its elements' attributes in order; projections and unknown
// variables yield nil.
func (s *Session) TupleVarSchema(v *uexpr.Var) []string {
	switch v.Kind {
	case uexpr.VarBase:
		return s.varSchemas[v.Name]
	case uexpr.VarConcat:
		var out []string
		for _, a := range v.Args {
			out = append(out, s.TupleVarSchema(a)...)
		}
		return out
	}
	return nil
}

// PutTupleVarSchema records the attributes of a base variable, replacing
// any previous entry. Non-base variables are ignored.
func (s *Session) PutTupleVarSchema(v *uexpr.Var, attrs []string) {
	if v.Kind != uexpr.VarBase {
		return
	}
	s.varSchemas[v.Name] = slices.Clone(attrs)
}

// BindTables records, for every table atom in t whose variable has no
// schema yet, the columns of that table.
func (s *Session) BindTables(t uexpr.Term) {
	uexpr.Transform(t, func(n uexpr.Term) uexpr.Term {
		ta, ok := n.(*uexpr.TableAtom)
		if !ok || ta.Var.Kind != uexpr.VarBase {
			return n
		}
		if _, known := s.varSchemas[ta.Var.Name]; known {
			return n
		}
		if tbl, ok := s.schema.Table(ta.Name); ok {
			s.PutTupleVarSchema(ta.Var, tbl.ColumnNames())
		}
		return n
	})
}

// RecordFresh registers v as the representative for key.
func (s *Session) RecordFresh(key string, v *uexpr.Var) {
	if _, ok := s.fresh[key]; !ok {
		s.freshOrder = append(s.freshOrder, v)
	}
	s.fresh[key] = v
}

// LookupFresh returns the representative registered for key.
func (s *Session) LookupFresh(key string) (*uexpr.Var, bool) {
	v, ok := s.fresh[key]
	return v, ok
}

// Fresh returns every registered representative in registration order.
func (s *Session) Fresh() []*uexpr.Var {
	return slices.Clone(s.freshOrder)
}
