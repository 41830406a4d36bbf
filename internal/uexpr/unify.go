package uexpr

import "maps"

// Binding maps pattern variable names to the target variables they matched.
type Binding map[string]*Var

func (b Binding) with(name string, v *Var) Binding {
	out := make(Binding, len(b)+1)
	maps.Copy(out, b)
	out[name] = v
	return out
}

// scope pairs the binders of the two sides that are currently in scope.
type scope struct {
	ab, ba map[string]string
}

func (s scope) enter(as, bs []*Var) scope {
	next := scope{ab: maps.Clone(s.ab), ba: maps.Clone(s.ba)}
	if next.ab == nil {
		next.ab = make(map[string]string, len(as))
		next.ba = make(map[string]string, len(bs))
	}
	for i := range as {
		if p, ok := next.ab[as[i].Name]; ok {
			delete(next.ba, p)
		}
		if p, ok := next.ba[bs[i].Name]; ok {
			delete(next.ab, p)
		}
		next.ab[as[i].Name] = bs[i].Name
		next.ba[bs[i].Name] = as[i].Name
	}
	return next
}

// unifier compares a pattern (left) against a target (right). Names in
// bindable are pattern variables that may stand for any target variable.
type unifier struct {
	bindable map[string]bool
}

// Equal reports whether a and b are equal up to the order of commutative
// items and a consistent renaming of bound variables.
func Equal(a, b Term) bool {
	if a == b {
		return true
	}
	if Hash(a) != Hash(b) {
		return false
	}
	_, ok := unifier{}.terms(a, b, scope{}, nil)
	return ok
}

// Match reports whether pattern equals target once every pattern variable
// named in bindable is replaced by a target variable. The binding is
// extended from binding and returned; binding itself is not modified.
func Match(pattern, target Term, bindable map[string]bool, binding Binding) (Binding, bool) {
	return unifier{bindable: bindable}.terms(pattern, target, scope{}, binding)
}

// MatchFactors finds a binding under which every pattern factor matches
// some target factor. Several pattern factors may match the same target.
func MatchFactors(patterns, targets []Term, bindable map[string]bool, binding Binding) (Binding, bool) {
	u := unifier{bindable: bindable}
	var rec func(i int, bnd Binding) (Binding, bool)
	rec = func(i int, bnd Binding) (Binding, bool) {
		if i == len(patterns) {
			return bnd, true
		}
		for _, t := range targets {
			if next, ok := u.terms(patterns[i], t, scope{}, bnd); ok {
				if out, ok := rec(i+1, next); ok {
					return out, true
				}
			}
		}
		return bnd, false
	}
	return rec(0, binding)
}

func (u unifier) terms(a, b Term, sc scope, bnd Binding) (Binding, bool) {
	if a.Kind() != b.Kind() {
		return bnd, false
	}
	switch x := a.(type) {
	case *Constant:
		y := b.(*Constant)
		return bnd, x.Null == y.Null && x.Value == y.Value
	case *StrLit:
		return bnd, x.Value == b.(*StrLit).Value
	case *TableAtom:
		y := b.(*TableAtom)
		if x.Name != y.Name {
			return bnd, false
		}
		return u.vars(x.Var, y.Var, sc, bnd)
	case *VarRef:
		return u.vars(x.Var, b.(*VarRef).Var, sc, bnd)
	case *Predicate:
		y := b.(*Predicate)
		if x.Op != y.Op || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return bnd, false
		}
		if x.Op == OpEq || x.Op == OpNe {
			return u.multiset(x.Args, y.Args, sc, bnd)
		}
		return u.list(x.Args, y.Args, sc, bnd)
	case *Function:
		y := b.(*Function)
		if x.Name != y.Name || len(x.Args) != len(y.Args) {
			return bnd, false
		}
		return u.list(x.Args, y.Args, sc, bnd)
	case *Addition:
		return u.multiset(x.Items, b.(*Addition).Items, sc, bnd)
	case *Product:
		return u.multiset(x.Items, b.(*Product).Items, sc, bnd)
	case *Negation:
		return u.terms(x.Body, b.(*Negation).Body, sc, bnd)
	case *Squashing:
		return u.terms(x.Body, b.(*Squashing).Body, sc, bnd)
	case *Summation:
		return u.sums(x, b.(*Summation), sc, bnd)
	}
	return bnd, false
}

func (u unifier) list(as, bs []Term, sc scope, bnd Binding) (Binding, bool) {
	if len(as) != len(bs) {
		return bnd, false
	}
	for i := range as {
		var ok bool
		if bnd, ok = u.terms(as[i], bs[i], sc, bnd); !ok {
			return bnd, false
		}
	}
	return bnd, true
}

// multiset matches as against a permutation of bs, backtracking over the
// choices.
func (u unifier) multiset(as, bs []Term, sc scope, bnd Binding) (Binding, bool) {
	if len(as) != len(bs) {
		return bnd, false
	}
	used := make([]bool, len(bs))
	var rec func(i int, bnd Binding) (Binding, bool)
	rec = func(i int, bnd Binding) (Binding, bool) {
		if i == len(as) {
			return bnd, true
		}
		for j := range bs {
			if used[j] || as[i].Kind() != bs[j].Kind() {
				continue
			}
			next, ok := u.terms(as[i], bs[j], sc, bnd)
			if !ok {
				continue
			}
			used[j] = true
			if out, ok := rec(i+1, next); ok {
				return out, true
			}
			used[j] = false
		}
		return bnd, false
	}
	return rec(0, bnd)
}

// sums tries every pairing of the binders of x with those of y.
func (u unifier) sums(x, y *Summation, sc scope, bnd Binding) (Binding, bool) {
	if len(x.Vars) != len(y.Vars) {
		return bnd, false
	}
	perm := make([]*Var, 0, len(y.Vars))
	used := make([]bool, len(y.Vars))
	var rec func() (Binding, bool)
	rec = func() (Binding, bool) {
		if len(perm) == len(x.Vars) {
			return u.terms(x.Body, y.Body, sc.enter(x.Vars, perm), bnd)
		}
		for j, v := range y.Vars {
			if used[j] {
				continue
			}
			used[j] = true
			perm = append(perm, v)
			out, ok := rec()
			perm = perm[:len(perm)-1]
			used[j] = false
			if ok {
				return out, true
			}
		}
		return bnd, false
	}
	return rec()
}

func (u unifier) vars(x, y *Var, sc scope, bnd Binding) (Binding, bool) {
	if x.Kind == VarBase {
		if p, ok := sc.ab[x.Name]; ok {
			return bnd, y.Kind == VarBase && y.Name == p
		}
		if u.bindable[x.Name] {
			if u.capturedIn(y, sc) {
				return bnd, false
			}
			if cur, ok := bnd[x.Name]; ok {
				return bnd, cur.Equal(y)
			}
			return bnd.with(x.Name, y), true
		}
		if y.Kind != VarBase {
			return bnd, false
		}
		if _, ok := sc.ba[y.Name]; ok {
			return bnd, false
		}
		return bnd, x.Name == y.Name
	}
	if x.Kind != y.Kind || x.Name != y.Name || len(x.Args) != len(y.Args) {
		return bnd, false
	}
	for i := range x.Args {
		var ok bool
		if bnd, ok = u.vars(x.Args[i], y.Args[i], sc, bnd); !ok {
			return bnd, false
		}
	}
	return bnd, true
}

// capturedIn reports whether y mentions a target binder in scope; such a
// variable cannot be bound to a pattern variable from outside that scope.
func (u unifier) capturedIn(y *Var, sc scope) bool {
	for _, b := range y.Bases() {
		if _, ok := sc.ba[b.Name]; ok {
			return true
		}
	}
	return false
}
