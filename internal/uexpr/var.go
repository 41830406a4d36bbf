package uexpr

import (
	"fmt"
	"strings"
)

// VarKind distinguishes the three shapes of tuple variables.
type VarKind int

const (
	// VarBase is a plain tuple variable bound by a summation or free.
	VarBase VarKind = iota
	// VarProj is an attribute access a(t) on another variable.
	VarProj
	// VarConcat is the juxtaposition t1||t2 of several variables.
	VarConcat
)

// String returns the name of the kind.
func (k VarKind) String() string {
	switch k {
	case VarBase:
		return "base"
	case VarProj:
		return "projection"
	case VarConcat:
		return "concat"
	default:
		return fmt.Sprintf("VarKind(%d)", int(k))
	}
}

// Var is a tuple variable reference. Vars are compared by Key, never by
// pointer identity.
type Var struct {
	Kind VarKind
	// Name is the variable name for VarBase and the column name for VarProj.
	Name string
	// Args holds the projected variable (exactly one) for VarProj and the
	// elements for VarConcat.
	Args []*Var
}

// Base returns a base tuple variable.
func Base(name string) *Var {
	return &Var{Kind: VarBase, Name: name}
}

// Proj returns the projection col(of).
func Proj(col string, of *Var) *Var {
	return &Var{Kind: VarProj, Name: col, Args: []*Var{of}}
}

// Concat returns the juxtaposition of vs. Nested concatenations are
// flattened and a single element is returned as is.
func Concat(vs ...*Var) *Var {
	var flat []*Var
	for _, v := range vs {
		if v.Kind == VarConcat {
			flat = append(flat, v.Args...)
			continue
		}
		flat = append(flat, v)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Var{Kind: VarConcat, Args: flat}
}

// Of returns the projected variable of a projection, or nil.
func (v *Var) Of() *Var {
	if v.Kind != VarProj || len(v.Args) == 0 {
		return nil
	}
	return v.Args[0]
}

// Key returns the identity of the variable. Two variables are the same
// variable exactly when their keys are equal.
func (v *Var) Key() string {
	return v.String()
}

// Equal reports whether v and o denote the same variable.
func (v *Var) Equal(o *Var) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.Key() == o.Key()
}

// String renders the variable: t, a(t) or t1||t2.
func (v *Var) String() string {
	var b strings.Builder
	v.write(&b, nil)
	return b.String()
}

// write renders v, replacing base names found in anon with "_".
func (v *Var) write(b *strings.Builder, anon map[string]bool) {
	switch v.Kind {
	case VarBase:
		if anon[v.Name] {
			b.WriteString("_")
			return
		}
		b.WriteString(v.Name)
	case VarProj:
		b.WriteString(v.Name)
		b.WriteByte('(')
		v.Of().write(b, anon)
		b.WriteByte(')')
	case VarConcat:
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString("||")
			}
			a.write(b, anon)
		}
	}
}

// Bases returns the base variables v is built from, in order.
func (v *Var) Bases() []*Var {
	switch v.Kind {
	case VarBase:
		return []*Var{v}
	case VarProj:
		return v.Of().Bases()
	default:
		var out []*Var
		for _, a := range v.Args {
			out = append(out, a.Bases()...)
		}
		return out
	}
}

// Uses reports whether v mentions the base variable named name.
func (v *Var) Uses(name string) bool {
	for _, b := range v.Bases() {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Contains reports whether o occurs inside v (or is v).
func (v *Var) Contains(o *Var) bool {
	if v.Equal(o) {
		return true
	}
	for _, a := range v.Args {
		if a.Contains(o) {
			return true
		}
	}
	return false
}

// Replace returns v with every occurrence of old replaced by repl.
func (v *Var) Replace(old, repl *Var) *Var {
	if v.Equal(old) {
		return repl
	}
	switch v.Kind {
	case VarProj:
		of := v.Of().Replace(old, repl)
		if of == v.Of() {
			return v
		}
		return Proj(v.Name, of)
	case VarConcat:
		changed := false
		args := make([]*Var, len(v.Args))
		for i, a := range v.Args {
			args[i] = a.Replace(old, repl)
			changed = changed || args[i] != a
		}
		if !changed {
			return v
		}
		return Concat(args...)
	}
	return v
}

// ParseVar parses the textual form produced by String: a base name, a
// projection col(v) or a concatenation v1||v2.
func ParseVar(s string) (*Var, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty variable")
	}
	if parts := splitTopLevel(s, "||"); len(parts) > 1 {
		vs := make([]*Var, len(parts))
		for i, p := range parts {
			v, err := ParseVar(p)
			if err != nil {
				return nil, fmt.Errorf("concat element %d: %w", i, err)
			}
			vs[i] = v
		}
		return Concat(vs...), nil
	}
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("unbalanced projection %q", s)
		}
		col := s[:open]
		if !validName(col) {
			return nil, fmt.Errorf("invalid column name %q", col)
		}
		of, err := ParseVar(s[open+1 : len(s)-1])
		if err != nil {
			return nil, fmt.Errorf("projection %s: %w", col, err)
		}
		return Proj(col, of), nil
	}
	if !validName(s) {
		return nil, fmt.Errorf("invalid variable name %q", s)
	}
	return Base(s), nil
}

// splitTopLevel splits s on sep occurrences outside parentheses.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(s[i:], sep) {
				parts = append(parts, s[start:i])
				start = i + len(sep)
				i += len(sep) - 1
			}
		}
	}
	return append(parts, s[start:])
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '#', r == '.':
		default:
			return false
		}
	}
	return true
}
