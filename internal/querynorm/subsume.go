package querynorm

import (
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// subsume removes the parts of squash and negation factors that their
// sibling factors already imply.
//
// Whenever the siblings are non-zero, an implied squash is 1 and an
// implied negation is 0. The body of either is first split into
// components that share no binder, and implied components are dropped
// one by one. Inside a squash over an addition, an addend that implies
// another addend is dropped.
func subsume(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	switch n := t.(type) {
	case *uexpr.Squashing:
		if a, ok := n.Body.(*uexpr.Addition); ok {
			if items, ok := dropImplyingAddends(a.Items); ok {
				return uexpr.Squash(uexpr.Add(items...)), true
			}
		}
		return t, false
	case *uexpr.Product:
		for i, c := range n.Items {
			siblings := dropAt(n.Items, i)
			switch f := c.(type) {
			case *uexpr.Squashing:
				rest, ok := dropImplied(f.Body, siblings)
				if !ok {
					continue
				}
				if rest != nil {
					siblings = append(siblings, uexpr.Squash(rest))
				}
				return uexpr.Mul(siblings...), true
			case *uexpr.Negation:
				rest, ok := dropImplied(f.Body, siblings)
				if !ok {
					continue
				}
				if rest == nil {
					return uexpr.Const(0), true
				}
				return uexpr.Mul(append(siblings, uexpr.Neg(rest))...), true
			}
		}
	}
	return t, false
}

// component is a group of factors linked by shared binders.
type component struct {
	vars    []*uexpr.Var
	factors []uexpr.Term
}

// components splits sum{vars}(factors) into independent groups. A factor
// mentioning no binder forms a group of its own.
func components(vars []*uexpr.Var, factors []uexpr.Term) []component {
	uses := make([]*set.Set[string], len(factors))
	for i, f := range factors {
		uses[i] = set.New[string](len(vars))
		for _, v := range vars {
			if uexpr.IsUsing(f, v.Name) {
				uses[i].Insert(v.Name)
			}
		}
	}
	group := make([]int, len(factors))
	for i := range group {
		group[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for group[i] != i {
			i = group[i]
		}
		return i
	}
	for i := range factors {
		for j := i + 1; j < len(factors); j++ {
			if shares(uses[i], uses[j]) {
				group[find(j)] = find(i)
			}
		}
	}

	var out []component
	index := make(map[int]int)
	for i, f := range factors {
		root := find(i)
		k, ok := index[root]
		if !ok {
			k = len(out)
			index[root] = k
			out = append(out, component{})
		}
		out[k].factors = append(out[k].factors, f)
	}
	for k := range out {
		for _, v := range vars {
			if slices.ContainsFunc(out[k].factors, func(f uexpr.Term) bool { return uexpr.IsUsing(f, v.Name) }) {
				out[k].vars = append(out[k].vars, v)
			}
		}
	}
	return out
}

func shares(a, b *set.Set[string]) bool {
	for _, n := range a.Slice() {
		if b.Contains(n) {
			return true
		}
	}
	return false
}

// dropImplied removes from the 0/1 reading of body every component the
// facts imply. It returns nil when every component is implied, and false
// when none is.
func dropImplied(body uexpr.Term, facts []uexpr.Term) (uexpr.Term, bool) {
	var vars []*uexpr.Var
	inner := body
	if sum, ok := body.(*uexpr.Summation); ok {
		vars, inner = sum.Vars, sum.Body
	}
	if _, ok := inner.(*uexpr.Addition); ok {
		return body, false
	}

	all := components(vars, uexpr.Factors(inner))
	var kept []component
	for _, c := range all {
		if !implied(c, facts) {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return nil, true
	case len(all):
		return body, false
	}
	var keptVars []*uexpr.Var
	var keptFactors []uexpr.Term
	for _, c := range kept {
		keptVars = append(keptVars, c.vars...)
		keptFactors = append(keptFactors, c.factors...)
	}
	return uexpr.Sum(keptVars, uexpr.Mul(keptFactors...)), true
}

// implied reports whether some choice of the component's binders turns
// every one of its factors into one of facts.
func implied(c component, facts []uexpr.Term) bool {
	bindable := make(map[string]bool, len(c.vars))
	for _, v := range c.vars {
		bindable[v.Name] = true
	}
	patterns := slices.DeleteFunc(slices.Clone(c.factors), func(f uexpr.Term) bool {
		k, ok := f.(*uexpr.Constant)
		return ok && !k.Null && k.Value > 0
	})
	if len(patterns) == 0 {
		return true
	}
	_, ok := uexpr.MatchFactors(patterns, facts, bindable, nil)
	return ok
}

// dropImplyingAddends removes addends that imply another kept addend:
// ||X + Y|| = ||X|| whenever Y > 0 forces X > 0.
func dropImplyingAddends(items []uexpr.Term) ([]uexpr.Term, bool) {
	dropped := make([]bool, len(items))
	for j, y := range items {
		for i, x := range items {
			if i == j || dropped[i] {
				continue
			}
			if implies(y, x) {
				dropped[j] = true
				break
			}
		}
	}
	if !slices.Contains(dropped, true) {
		return items, false
	}
	var out []uexpr.Term
	for i, x := range items {
		if !dropped[i] {
			out = append(out, x)
		}
	}
	return out, true
}

// implies reports whether y > 0 forces x > 0.
func implies(y, x uexpr.Term) bool {
	yb := y
	var ybound *set.Set[string]
	if sum, ok := y.(*uexpr.Summation); ok {
		yb, ybound = sum.Body, uexpr.BoundNames(sum)
	}
	if _, ok := yb.(*uexpr.Addition); ok {
		return false
	}
	// x's free variables must not be captured by y's binders.
	if ybound != nil && uexpr.IsUsingAny(x, ybound) {
		return false
	}
	rest, ok := dropImplied(x, uexpr.Factors(yb))
	return ok && rest == nil
}
