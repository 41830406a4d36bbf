package oracle

import (
	"github.com/roach88/uprove/internal/normalize"
	"github.com/roach88/uprove/internal/session"
	"github.com/roach88/uprove/internal/uexpr"
)

// IsCriticalValue reports whether forcing sub to 0 forces within to 0.
// It is decided structurally: every occurrence of sub in within is
// replaced by 0 and the result is normalized with the core rules.
func IsCriticalValue(s *session.Session, sub, within uexpr.Term) (bool, error) {
	zeroed := uexpr.ReplaceTerm(within, sub, uexpr.Const(0), s.Rename)
	out, err := normalize.Normalize(s, zeroed)
	if err != nil {
		return false, err
	}
	critical := uexpr.IsConst(out, 0)
	s.Logger().Debug("critical value checked", "sub", sub.String(), "critical", critical)
	return critical, nil
}
