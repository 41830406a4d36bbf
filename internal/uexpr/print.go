package uexpr

import (
	"strconv"
	"strings"
)

func (c *Constant) String() string {
	if c.Null {
		return "NULL"
	}
	return strconv.FormatInt(c.Value, 10)
}

func (s *StrLit) String() string {
	return "'" + strings.ReplaceAll(s.Value, "'", "''") + "'"
}

func (t *TableAtom) String() string {
	return t.Name + "(" + t.Var.String() + ")"
}

func (r *VarRef) String() string {
	return r.Var.String()
}

func (p *Predicate) String() string {
	switch {
	case p.Op == OpIsNull:
		return "[isnull(" + joinTerms(p.Args, ", ") + ")]"
	case p.Op == OpCustom:
		return "[" + p.Name + "(" + joinTerms(p.Args, ", ") + ")]"
	case len(p.Args) == 2:
		return "[" + p.Args[0].String() + " " + p.Op.String() + " " + p.Args[1].String() + "]"
	}
	return "[" + p.Op.String() + "(" + joinTerms(p.Args, ", ") + ")]"
}

func (f *Function) String() string {
	return f.Name + "(" + joinTerms(f.Args, ", ") + ")"
}

func (a *Addition) String() string {
	return "(" + joinTerms(a.Items, " + ") + ")"
}

func (p *Product) String() string {
	return joinTerms(p.Items, " * ")
}

func (n *Negation) String() string {
	return "not(" + n.Body.String() + ")"
}

func (s *Squashing) String() string {
	return "||" + s.Body.String() + "||"
}

func (s *Summation) String() string {
	names := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		names[i] = v.Name
	}
	return "sum{" + strings.Join(names, ", ") + "}(" + s.Body.String() + ")"
}

func joinTerms(ts []Term, sep string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}
