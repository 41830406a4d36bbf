package uexpr

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// Renamer mints a fresh base variable standing in for old. It is used for
// alpha-renaming a binder that would otherwise capture a substituted term.
type Renamer func(old *Var) *Var

// SubTerms returns the ordered children of t. The returned slice must not
// be modified.
func SubTerms(t Term) []Term {
	switch t := t.(type) {
	case *Predicate:
		return t.Args
	case *Function:
		return t.Args
	case *Addition:
		return t.Items
	case *Product:
		return t.Items
	case *Negation:
		return []Term{t.Body}
	case *Squashing:
		return []Term{t.Body}
	case *Summation:
		return []Term{t.Body}
	}
	return nil
}

// Rebuild returns a node of the same kind as t with children replaced.
// No simplification is applied: an Addition rebuilt with one child is still
// an Addition.
func Rebuild(t Term, children []Term) Term {
	switch t := t.(type) {
	case *Predicate:
		return &Predicate{Op: t.Op, Name: t.Name, Args: slices.Clone(children)}
	case *Function:
		return &Function{Name: t.Name, Args: slices.Clone(children)}
	case *Addition:
		return &Addition{Items: slices.Clone(children)}
	case *Product:
		return &Product{Items: slices.Clone(children)}
	case *Negation:
		return &Negation{Body: only(t, children)}
	case *Squashing:
		return &Squashing{Body: only(t, children)}
	case *Summation:
		return &Summation{Vars: t.Vars, Body: only(t, children)}
	}
	if len(children) != 0 {
		panic(shapeViolation("%s has no children, got %d", t.Kind(), len(children)))
	}
	return t
}

func only(t Term, children []Term) Term {
	if len(children) != 1 {
		panic(shapeViolation("%s takes one child, got %d", t.Kind(), len(children)))
	}
	return children[0]
}

// Vars returns the variables t mentions directly (not those of its
// children).
func directVars(t Term) []*Var {
	switch t := t.(type) {
	case *TableAtom:
		return []*Var{t.Var}
	case *VarRef:
		return []*Var{t.Var}
	}
	return nil
}

// IsUsing reports whether the base variable named name occurs free in t.
func IsUsing(t Term, name string) bool {
	for _, v := range directVars(t) {
		if v.Uses(name) {
			return true
		}
	}
	if s, ok := t.(*Summation); ok && binds(s, name) {
		return false
	}
	for _, c := range SubTerms(t) {
		if IsUsing(c, name) {
			return true
		}
	}
	return false
}

// IsUsingAny reports whether any name in names occurs free in t.
func IsUsingAny(t Term, names *set.Set[string]) bool {
	for _, n := range names.Slice() {
		if IsUsing(t, n) {
			return true
		}
	}
	return false
}

// FreeVars returns the names of the base variables occurring free in t.
func FreeVars(t Term) *set.Set[string] {
	out := set.New[string](4)
	collectFree(t, nil, out)
	return out
}

func collectFree(t Term, bound map[string]int, out *set.Set[string]) {
	for _, v := range directVars(t) {
		for _, b := range v.Bases() {
			if bound[b.Name] == 0 {
				out.Insert(b.Name)
			}
		}
	}
	if s, ok := t.(*Summation); ok {
		if bound == nil {
			bound = make(map[string]int)
		}
		for _, v := range s.Vars {
			bound[v.Name]++
		}
		collectFree(s.Body, bound, out)
		for _, v := range s.Vars {
			bound[v.Name]--
		}
		return
	}
	for _, c := range SubTerms(t) {
		collectFree(c, bound, out)
	}
}

// BoundNames returns the names of the variables bound by s.
func BoundNames(s *Summation) *set.Set[string] {
	out := set.New[string](len(s.Vars))
	for _, v := range s.Vars {
		out.Insert(v.Name)
	}
	return out
}

func binds(s *Summation, name string) bool {
	for _, v := range s.Vars {
		if v.Name == name {
			return true
		}
	}
	return false
}

// ReplaceVar substitutes repl for every free occurrence of old in t,
// including inside projections, concatenations and table atoms. A
// summation that would capture repl has its binder renamed with rn first;
// rn may be nil when the caller knows no capture is possible.
func ReplaceVar(t Term, old, repl *Var, rn Renamer) Term {
	out, _ := replaceVar(t, old, repl, rn)
	return out
}

func replaceVar(t Term, old, repl *Var, rn Renamer) (Term, bool) {
	switch t := t.(type) {
	case *TableAtom:
		v := t.Var.Replace(old, repl)
		if v == t.Var {
			return t, false
		}
		return Table(t.Name, v), true
	case *VarRef:
		v := t.Var.Replace(old, repl)
		if v == t.Var {
			return t, false
		}
		return Ref(v), true
	case *Summation:
		for _, b := range old.Bases() {
			if binds(t, b.Name) {
				return t, false
			}
		}
		if !IsUsingVar(t, old) {
			return t, false
		}
		t = avoidCapture(t, repl.Bases(), rn)
		body, changed := replaceVar(t.Body, old, repl, rn)
		if !changed {
			return t, false
		}
		return &Summation{Vars: t.Vars, Body: body}, true
	}
	return mapChildren(t, func(c Term) (Term, bool) {
		return replaceVar(c, old, repl, rn)
	})
}

// ReplaceTerm substitutes repl for every free sub-term structurally
// identical to old. Bound names are not renamed during comparison, so old
// should only mention variables free in t.
func ReplaceTerm(t Term, old, repl Term, rn Renamer) Term {
	out, _ := replaceTerm(t, Key(old), FreeVars(old), repl, rn)
	return out
}

func replaceTerm(t Term, oldKey string, oldFree *set.Set[string], repl Term, rn Renamer) (Term, bool) {
	if Key(t) == oldKey {
		return repl, true
	}
	if s, ok := t.(*Summation); ok {
		for _, v := range s.Vars {
			if oldFree.Contains(v.Name) {
				return t, false
			}
		}
		var replBases []*Var
		for _, n := range FreeVars(repl).Slice() {
			replBases = append(replBases, Base(n))
		}
		if !strings.Contains(Key(s.Body), oldKey) {
			return t, false
		}
		s = avoidCapture(s, replBases, rn)
		body, changed := replaceTerm(s.Body, oldKey, oldFree, repl, rn)
		if !changed {
			return t, false
		}
		return &Summation{Vars: s.Vars, Body: body}, true
	}
	return mapChildren(t, func(c Term) (Term, bool) {
		return replaceTerm(c, oldKey, oldFree, repl, rn)
	})
}

// IsUsingVar reports whether v (of any kind) occurs free in t.
func IsUsingVar(t Term, v *Var) bool {
	for _, d := range directVars(t) {
		if d.Contains(v) {
			return true
		}
	}
	if s, ok := t.(*Summation); ok {
		for _, b := range v.Bases() {
			if binds(s, b.Name) {
				return false
			}
		}
	}
	for _, c := range SubTerms(t) {
		if IsUsingVar(c, v) {
			return true
		}
	}
	return false
}

// avoidCapture renames binders of s that collide with incoming.
func avoidCapture(s *Summation, incoming []*Var, rn Renamer) *Summation {
	var clash []*Var
	for _, in := range incoming {
		if binds(s, in.Name) {
			clash = append(clash, in)
		}
	}
	if len(clash) == 0 {
		return s
	}
	if rn == nil {
		panic(shapeViolation("substitution would capture %s under %s without a renamer", clash[0], s))
	}
	return RenameBinders(s, clash, rn)
}

// RenameBinders alpha-renames the given binders of s using rn.
func RenameBinders(s *Summation, which []*Var, rn Renamer) *Summation {
	vars := slices.Clone(s.Vars)
	body := s.Body
	for _, w := range which {
		fresh := rn(w)
		for i, v := range vars {
			if v.Name == w.Name {
				vars[i] = fresh
			}
		}
		body = ReplaceVar(body, w, fresh, rn)
	}
	return &Summation{Vars: normalizeBinders(vars), Body: body}
}

// mapChildren applies f to each child and rebuilds t when any changed.
func mapChildren(t Term, f func(Term) (Term, bool)) (Term, bool) {
	children := SubTerms(t)
	if len(children) == 0 {
		return t, false
	}
	var out []Term
	for i, c := range children {
		nc, changed := f(c)
		if changed && out == nil {
			out = slices.Clone(children[:i])
		}
		if out != nil {
			out = append(out, nc)
		}
	}
	if out == nil {
		return t, false
	}
	return Rebuild(t, out), true
}

// Transform rebuilds t bottom-up, replacing each node n with f(n).
func Transform(t Term, f func(Term) Term) Term {
	children := SubTerms(t)
	if len(children) > 0 {
		nc, changed := mapChildren(t, func(c Term) (Term, bool) {
			r := Transform(c, f)
			return r, r != c
		})
		if changed {
			t = nc
		}
	}
	return f(t)
}

// Size returns the number of nodes in t.
func Size(t Term) int {
	n := 1
	for _, c := range SubTerms(t) {
		n += Size(c)
	}
	return n
}
