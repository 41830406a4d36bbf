package uexpr

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key returns the canonical encoding of t. Items of additions and products
// and the operands of = and <> are encoded in sorted order, so Key is
// insensitive to their order but not to bound variable names.
func Key(t Term) string {
	var b strings.Builder
	encode(&b, t, nil, false)
	return b.String()
}

// AnonKey is Key with every variable bound inside t, and every name in
// bound, written as "_".
func AnonKey(t Term, bound map[string]bool) string {
	var b strings.Builder
	encode(&b, t, bound, true)
	return b.String()
}

// Hash returns a bound-variable-insensitive hash of t. Alpha-equivalent
// terms hash equally; the converse does not hold.
func Hash(t Term) uint64 {
	return xxhash.Sum64String(AnonKey(t, nil))
}

func encode(b *strings.Builder, t Term, bound map[string]bool, anon bool) {
	names := bound
	if !anon {
		names = nil
	}
	switch t := t.(type) {
	case *Constant:
		if t.Null {
			b.WriteString("NULL")
			return
		}
		b.WriteString(strconv.FormatInt(t.Value, 10))
	case *StrLit:
		b.WriteString(strconv.Quote(t.Value))
	case *TableAtom:
		b.WriteString("(tbl ")
		b.WriteString(t.Name)
		b.WriteByte(' ')
		t.Var.write(b, names)
		b.WriteByte(')')
	case *VarRef:
		b.WriteByte('$')
		t.Var.write(b, names)
	case *Predicate:
		b.WriteByte('[')
		if t.Op == OpCustom {
			b.WriteString(t.Name)
		} else {
			b.WriteString(t.Op.String())
		}
		encodeList(b, t.Args, bound, anon, t.Op == OpEq || t.Op == OpNe)
		b.WriteByte(']')
	case *Function:
		b.WriteString("(fn ")
		b.WriteString(t.Name)
		encodeList(b, t.Args, bound, anon, false)
		b.WriteByte(')')
	case *Addition:
		b.WriteString("(+")
		encodeList(b, t.Items, bound, anon, true)
		b.WriteByte(')')
	case *Product:
		b.WriteString("(*")
		encodeList(b, t.Items, bound, anon, true)
		b.WriteByte(')')
	case *Negation:
		b.WriteString("(not ")
		encode(b, t.Body, bound, anon)
		b.WriteByte(')')
	case *Squashing:
		b.WriteString("(sq ")
		encode(b, t.Body, bound, anon)
		b.WriteByte(')')
	case *Summation:
		inner := bound
		if anon {
			inner = maps.Clone(bound)
			if inner == nil {
				inner = make(map[string]bool, len(t.Vars))
			}
		}
		b.WriteString("(sum [")
		for i, v := range t.Vars {
			if i > 0 {
				b.WriteByte(' ')
			}
			if anon {
				inner[v.Name] = true
				b.WriteByte('_')
				continue
			}
			b.WriteString(v.Name)
		}
		b.WriteString("] ")
		encode(b, t.Body, inner, anon)
		b.WriteByte(')')
	}
}

func encodeList(b *strings.Builder, ts []Term, bound map[string]bool, anon, sorted bool) {
	parts := make([]string, len(ts))
	for i, c := range ts {
		var cb strings.Builder
		encode(&cb, c, bound, anon)
		parts[i] = cb.String()
	}
	if sorted {
		slices.Sort(parts)
	}
	for _, p := range parts {
		b.WriteByte(' ')
		b.WriteString(p)
	}
}

// SortCommAssoc returns t with the items of every addition and product, and
// the operands of every = and <>, in canonical order. Ordering is by the
// bound-insensitive encoding first and the named encoding second.
func SortCommAssoc(t Term) Term {
	return sortTerm(t, nil)
}

func sortTerm(t Term, bound map[string]bool) Term {
	switch n := t.(type) {
	case *Summation:
		inner := maps.Clone(bound)
		if inner == nil {
			inner = make(map[string]bool, len(n.Vars))
		}
		for _, v := range n.Vars {
			inner[v.Name] = true
		}
		body := sortTerm(n.Body, inner)
		if body == n.Body {
			return n
		}
		return &Summation{Vars: n.Vars, Body: body}
	case *Addition, *Product:
		return sortChildren(t, bound, true)
	case *Predicate:
		return sortChildren(t, bound, n.Op == OpEq || n.Op == OpNe)
	}
	out, _ := mapChildren(t, func(c Term) (Term, bool) {
		r := sortTerm(c, bound)
		return r, r != c
	})
	return out
}

func sortChildren(t Term, bound map[string]bool, reorder bool) Term {
	children := SubTerms(t)
	next := make([]Term, len(children))
	changed := false
	for i, c := range children {
		next[i] = sortTerm(c, bound)
		changed = changed || next[i] != c
	}
	if reorder {
		ks := make([]sortKey, len(next))
		for i, c := range next {
			ks[i] = sortKey{AnonKey(c, bound), Key(c), c}
		}
		sorted := slices.IsSortedFunc(ks, compareKeyed)
		if !sorted {
			slices.SortStableFunc(ks, compareKeyed)
			for i := range ks {
				next[i] = ks[i].term
			}
			changed = true
		}
	}
	if !changed {
		return t
	}
	return Rebuild(t, next)
}

type sortKey struct {
	anon, named string
	term        Term
}

func compareKeyed(a, b sortKey) int {
	if c := strings.Compare(a.anon, b.anon); c != 0 {
		return c
	}
	return strings.Compare(a.named, b.named)
}
