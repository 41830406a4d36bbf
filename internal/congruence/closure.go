// Package congruence computes equivalence classes of terms implied by the
// equality predicates of a product.
//
// A Closure is built once from a factor list and never maintained
// incrementally: callers rebuild it whenever the host product changes.
package congruence

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/roach88/uprove/internal/uexpr"
)

// Closure stores equivalence classes of terms. Terms are identified by
// uexpr.Key, so [a = b] and [b = a] contribute the same pair.
type Closure struct {
	// ids maps a term key to its index in classes.
	ids map[string]int

	// classes holds the members of each class; merged classes are nil.
	classes [][]uexpr.Term
}

// New returns an empty closure.
func New() *Closure {
	return &Closure{ids: make(map[string]int)}
}

// Build returns the closure of the equalities among factors, including the
// equalities that Hoistable allows out of nested squash and summation
// bodies.
func Build(factors []uexpr.Term) *Closure {
	c := New()
	for _, f := range factors {
		c.collect(f, nil)
	}
	return c
}

func (c *Closure) collect(t uexpr.Term, crossed *set.Set[string]) {
	switch t := t.(type) {
	case *uexpr.Predicate:
		if Hoistable(t, crossed) {
			c.PutCongruent(t.Args[0], t.Args[1])
		}
	case *uexpr.Product:
		for _, f := range t.Items {
			c.collect(f, crossed)
		}
	case *uexpr.Squashing:
		c.collect(t.Body, crossed)
	case *uexpr.Summation:
		inner := set.New[string](len(t.Vars))
		if crossed != nil {
			for _, n := range crossed.Slice() {
				inner.Insert(n)
			}
		}
		for _, v := range t.Vars {
			inner.Insert(v.Name)
		}
		c.collect(t.Body, inner)
	}
}

// Hoistable reports whether the equality eq, found beneath binders of the
// names in crossed, holds in the enclosing product whenever that product
// is non-zero. It must be an equality mentioning none of the crossed
// names. Equalities under a negation or inside one addend of an addition
// are never collected, so they never reach this check.
func Hoistable(eq *uexpr.Predicate, crossed *set.Set[string]) bool {
	if eq.Op != uexpr.OpEq || len(eq.Args) != 2 {
		return false
	}
	if crossed == nil || crossed.Empty() {
		return true
	}
	return !uexpr.IsUsingAny(eq, crossed)
}

func (c *Closure) id(t uexpr.Term) (int, bool) {
	id, ok := c.ids[uexpr.Key(t)]
	return id, ok
}

// PutCongruent records a = b.
func (c *Closure) PutCongruent(a, b uexpr.Term) {
	aid, aok := c.id(a)
	bid, bok := c.id(b)
	switch {
	case !aok && !bok:
		id := len(c.classes)
		c.classes = append(c.classes, []uexpr.Term{a})
		c.ids[uexpr.Key(a)] = id
		if uexpr.Key(a) != uexpr.Key(b) {
			c.classes[id] = append(c.classes[id], b)
			c.ids[uexpr.Key(b)] = id
		}
	case !aok:
		c.classes[bid] = append(c.classes[bid], a)
		c.ids[uexpr.Key(a)] = bid
	case !bok:
		c.classes[aid] = append(c.classes[aid], b)
		c.ids[uexpr.Key(b)] = aid
	case aid != bid:
		small, large := aid, bid
		if len(c.classes[aid]) > len(c.classes[bid]) {
			small, large = bid, aid
		}
		for _, t := range c.classes[small] {
			c.ids[uexpr.Key(t)] = large
		}
		c.classes[large] = append(c.classes[large], c.classes[small]...)
		c.classes[small] = nil
	}
}

// EqClassOf returns the members of t's class. An unknown term forms a
// class of its own.
func (c *Closure) EqClassOf(t uexpr.Term) []uexpr.Term {
	id, ok := c.id(t)
	if !ok {
		return []uexpr.Term{t}
	}
	return c.classes[id]
}

// IsCongruent reports whether a and b are in the same class. Identical
// terms are always congruent.
func (c *Closure) IsCongruent(a, b uexpr.Term) bool {
	ka, kb := uexpr.Key(a), uexpr.Key(b)
	if ka == kb {
		return true
	}
	aid, aok := c.ids[ka]
	bid, bok := c.ids[kb]
	return aok && bok && aid == bid
}

// Classes returns every non-trivial class.
func (c *Closure) Classes() [][]uexpr.Term {
	var out [][]uexpr.Term
	for _, cl := range c.classes {
		if len(cl) > 1 {
			out = append(out, cl)
		}
	}
	return out
}

// Contradiction returns two distinct literals forced equal, if any. Two
// different string literals, or two different integers, can never be equal.
func (c *Closure) Contradiction() (a, b uexpr.Term, ok bool) {
	for _, cl := range c.classes {
		var first uexpr.Term
		for _, t := range cl {
			if !uexpr.IsLiteral(t) {
				continue
			}
			if first == nil {
				first = t
				continue
			}
			if uexpr.Key(first) != uexpr.Key(t) {
				return first, t, true
			}
		}
	}
	return nil, nil, false
}
