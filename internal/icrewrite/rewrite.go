package icrewrite

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/uprove/internal/normalize"
	"github.com/roach88/uprove/internal/querynorm"
	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// Rule names accepted by WithRules.
const (
	RuleSelfJoin        = "self-join"
	RuleSquashInsertion = "squash-insertion"
	RuleNullRemoval     = "null-removal"
	RuleForeignKey      = "foreign-key"
	RuleOneRecord       = "one-record"
)

// rule is a constraint rewrite applied at one node.
type rule struct {
	name  string
	apply func(rw *rewriter, sc scope, t uexpr.Term) (uexpr.Term, bool)
}

var allRules = []rule{
	{name: RuleSelfJoin, apply: selfJoin},
	{name: RuleSquashInsertion, apply: insertSquash},
	{name: RuleNullRemoval, apply: removeNullTest},
	{name: RuleForeignKey, apply: eliminateForeignKey},
	{name: RuleOneRecord, apply: removeOneRecord},
}

// RuleNames returns the names of every rule in application order.
func RuleNames() []string {
	out := make([]string, len(allRules))
	for i, r := range allRules {
		out[i] = r.name
	}
	return out
}

type config struct {
	rules      []string
	constraint string
}

// Option configures Rewrite.
type Option func(*config)

// WithRules restricts the rewrite to the named rules.
func WithRules(names ...string) Option {
	return func(c *config) {
		c.rules = slices.Clone(names)
	}
}

// WithConstraint limits the constraint rules to those of one table.
func WithConstraint(table string) Option {
	return func(c *config) {
		c.constraint = table
	}
}

// Rewrite reduces t with the query normalizer and the constraint rules of
// the session's schema. It returns the rewritten term together with every
// fresh variable the session has minted to stand for a keyed row.
func Rewrite(s *session.Session, t uexpr.Term, opts ...Option) (uexpr.Term, []*uexpr.Var, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	rw, err := newRewriter(s, cfg)
	if err != nil {
		return nil, nil, err
	}
	out, err := normalize.Fixpoint(s, "ic", t, func(t uexpr.Term) (uexpr.Term, error) {
		return querynorm.Normalize(s, t)
	}, rw)
	if err != nil {
		return nil, nil, err
	}
	return out, s.Fresh(), nil
}

// rewriter applies the enabled rules bottom-up, tracking which table each
// variable ranges over.
type rewriter struct {
	s          *session.Session
	rules      []rule
	constraint string
}

func newRewriter(s *session.Session, cfg config) (*rewriter, error) {
	rw := &rewriter{s: s, rules: allRules, constraint: cfg.constraint}
	if cfg.rules == nil {
		return rw, nil
	}
	rw.rules = nil
	for _, name := range cfg.rules {
		i := slices.IndexFunc(allRules, func(r rule) bool { return r.name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		rw.rules = append(rw.rules, allRules[i])
	}
	return rw, nil
}

// scope is what a node knows about its context.
type scope struct {
	// tables maps a variable name to the table of an atom over it that
	// multiplies this node.
	tables map[string]string

	// positive is set under a squash or negation, where only whether the
	// term is non-zero matters.
	positive bool
}

// enter returns the scope of the children of t.
func (sc scope) enter(t uexpr.Term) scope {
	var factors []uexpr.Term
	switch n := t.(type) {
	case *uexpr.Summation:
		next := scope{tables: maps.Clone(sc.tables), positive: sc.positive}
		for _, v := range n.Vars {
			delete(next.tables, v.Name)
		}
		sc = next
		factors = uexpr.Factors(n.Body)
	case *uexpr.Product:
		factors = n.Items
	case *uexpr.Squashing, *uexpr.Negation:
		return scope{tables: sc.tables, positive: true}
	default:
		return sc
	}
	atoms := tableAtoms(factors)
	if len(atoms) == 0 {
		return sc
	}
	next := scope{tables: maps.Clone(sc.tables), positive: sc.positive}
	if next.tables == nil {
		next.tables = make(map[string]string, len(atoms))
	}
	for _, a := range atoms {
		next.tables[a.Var.Name] = a.Name
	}
	return next
}

// Pass implements normalize.Passer.
func (rw *rewriter) Pass(t uexpr.Term) (uexpr.Term, bool) {
	return rw.pass(t, scope{})
}

func (rw *rewriter) pass(t uexpr.Term, sc scope) (uexpr.Term, bool) {
	changed := false
	if children := uexpr.SubTerms(t); len(children) > 0 {
		inner := sc.enter(t)
		next := make([]uexpr.Term, len(children))
		for i, c := range children {
			var ch bool
			next[i], ch = rw.pass(c, inner)
			changed = changed || ch
		}
		if changed {
			t = uexpr.Rebuild(t, next)
		}
	}
	// A rewrite may change the node kind, so the scope is only valid for
	// the first rule that fires.
	for _, r := range rw.rules {
		out, ok := r.apply(rw, sc, t)
		if !ok {
			continue
		}
		rw.s.Logger().Debug("rule fired", "loop", "ic", "rule", r.name, "kind", t.Kind().String())
		return out, true
	}
	return t, changed
}

// table looks up a schema table whose constraints the rules may use.
func (rw *rewriter) table(name string) (*schema.Table, bool) {
	if rw.constraint != "" && rw.constraint != name {
		return nil, false
	}
	return rw.s.Schema().Table(name)
}

// tableAtoms returns the atoms over base variables among factors.
func tableAtoms(factors []uexpr.Term) []*uexpr.TableAtom {
	var out []*uexpr.TableAtom
	for _, f := range factors {
		if a, ok := f.(*uexpr.TableAtom); ok && a.Var.Kind == uexpr.VarBase {
			out = append(out, a)
		}
	}
	return out
}

func isBinder(sum *uexpr.Summation, v *uexpr.Var) bool {
	return slices.ContainsFunc(sum.Vars, func(b *uexpr.Var) bool { return b.Name == v.Name })
}

func without(vars []*uexpr.Var, v *uexpr.Var) []*uexpr.Var {
	return slices.DeleteFunc(slices.Clone(vars), func(o *uexpr.Var) bool { return o.Name == v.Name })
}

func col(c string, v *uexpr.Var) uexpr.Term {
	return uexpr.Ref(uexpr.Proj(c, v))
}
