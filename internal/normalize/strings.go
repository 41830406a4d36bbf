package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// stringFuncs are evaluated when every argument is a literal. Each returns
// false when the arguments do not have the expected types. Casers are
// stateful, so each call makes its own.
var stringFuncs = map[string]func(args []uexpr.Term) (uexpr.Term, bool){
	"upper": func(args []uexpr.Term) (uexpr.Term, bool) {
		return mapString(args, cases.Upper(language.Und).String)
	},
	"lower": func(args []uexpr.Term) (uexpr.Term, bool) {
		return mapString(args, cases.Lower(language.Und).String)
	},
	"trim": func(args []uexpr.Term) (uexpr.Term, bool) {
		return mapString(args, func(s string) string { return strings.TrimSpace(s) })
	},
	"length": func(args []uexpr.Term) (uexpr.Term, bool) {
		s, ok := singleString(args)
		if !ok {
			return nil, false
		}
		return uexpr.Const(int64(utf8.RuneCountInString(s))), true
	},
	"concat": func(args []uexpr.Term) (uexpr.Term, bool) {
		var b strings.Builder
		for _, a := range args {
			s, ok := a.(*uexpr.StrLit)
			if !ok {
				return nil, false
			}
			b.WriteString(s.Value)
		}
		return uexpr.Str(b.String()), true
	},
	"substring": substring,
	"substr":    substring,
}

// evalStringFunc evaluates string functions over literal arguments. A NULL
// argument makes the result NULL.
func evalStringFunc(_ *session.Session, t uexpr.Term) (uexpr.Term, bool) {
	f, ok := t.(*uexpr.Function)
	if !ok {
		return t, false
	}
	eval, known := stringFuncs[strings.ToLower(f.Name)]
	if !known || len(f.Args) == 0 {
		return t, false
	}
	for _, a := range f.Args {
		if uexpr.IsNullConst(a) {
			return uexpr.Null(), true
		}
		if !uexpr.IsLiteral(a) {
			return t, false
		}
	}
	out, ok := eval(f.Args)
	if !ok {
		return t, false
	}
	return out, true
}

func singleString(args []uexpr.Term) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	s, ok := args[0].(*uexpr.StrLit)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func mapString(args []uexpr.Term, f func(string) string) (uexpr.Term, bool) {
	s, ok := singleString(args)
	if !ok {
		return nil, false
	}
	return uexpr.Str(f(s)), true
}

// substring follows SQL: positions are 1-based, a start before the string
// shortens the taken length, and the length argument is optional.
func substring(args []uexpr.Term) (uexpr.Term, bool) {
	if len(args) < 2 || len(args) > 3 {
		return nil, false
	}
	s, ok := args[0].(*uexpr.StrLit)
	if !ok {
		return nil, false
	}
	start, ok := args[1].(*uexpr.Constant)
	if !ok {
		return nil, false
	}
	runes := []rune(s.Value)
	from := start.Value - 1
	to := int64(len(runes))
	if len(args) == 3 {
		n, ok := args[2].(*uexpr.Constant)
		if !ok || n.Value < 0 {
			return nil, false
		}
		to = from + n.Value
	}
	from = max(from, 0)
	to = min(to, int64(len(runes)))
	if to <= from {
		return uexpr.Str(""), true
	}
	return uexpr.Str(string(runes[from:to])), true
}

// exclusiveLiteralEqs reports whether t is an addition of equalities that
// compare one operand against pairwise distinct literals. At most one
// addend can hold, so the addition is already 0/1-valued.
func exclusiveLiteralEqs(t uexpr.Term) bool {
	a, ok := t.(*uexpr.Addition)
	if !ok || len(a.Items) < 2 {
		return false
	}
	subject := ""
	lits := make(map[string]bool, len(a.Items))
	for _, item := range a.Items {
		p, ok := item.(*uexpr.Predicate)
		if !ok || p.Op != uexpr.OpEq {
			return false
		}
		x, lit := p.Args[0], p.Args[1]
		if uexpr.IsLiteral(x) {
			x, lit = lit, x
		}
		if !uexpr.IsLiteral(lit) || uexpr.IsLiteral(x) {
			return false
		}
		key := uexpr.Key(x)
		if subject == "" {
			subject = key
		} else if subject != key {
			return false
		}
		if lits[uexpr.Key(lit)] {
			return false
		}
		lits[uexpr.Key(lit)] = true
	}
	return true
}
