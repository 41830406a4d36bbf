package oracle

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"
)

// errDecided stops the remaining members once one has answered.
var errDecided = errors.New("decided")

// Portfolio runs several oracles at once and returns the first Sat or
// Unsat answer. It answers Unknown when no member decides.
type Portfolio []Oracle

// Satisfiable implements Oracle.
func (p Portfolio) Satisfiable(ctx context.Context, f Formula) (Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	decided := make(chan Result, 1)
	reasons := make([]string, len(p))
	for i, o := range p {
		g.Go(func() error {
			res, err := o.Satisfiable(gctx, f)
			switch {
			case err != nil:
				reasons[i] = err.Error()
				return nil
			case res.Verdict == Unknown:
				reasons[i] = res.Reason
				return nil
			}
			select {
			case decided <- res:
				return errDecided
			default:
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errDecided) {
		return Result{}, err
	}
	select {
	case res := <-decided:
		return res, nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Verdict: Unknown, Reason: strings.Join(nonEmpty(reasons), "; ")}, nil
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
