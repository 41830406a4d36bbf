package normalize

import "github.com/roach88/uprove/internal/uexpr"

// OscillationDetector remembers every intermediate term of one
// fixed-point loop, bucketed by bound-variable-insensitive hash.
//
// A loop that reports a change yet lands on a term it has already
// produced would otherwise spin until the budget runs out.
type OscillationDetector struct {
	seen map[uint64][]uexpr.Term
	size int
}

// NewOscillationDetector creates an empty detector.
func NewOscillationDetector() *OscillationDetector {
	return &OscillationDetector{seen: make(map[uint64][]uexpr.Term)}
}

// Record remembers t and reports whether an alpha-equivalent term had been
// recorded before.
func (d *OscillationDetector) Record(t uexpr.Term) bool {
	h := uexpr.Hash(t)
	for _, prev := range d.seen[h] {
		if uexpr.Equal(prev, t) {
			return true
		}
	}
	d.seen[h] = append(d.seen[h], t)
	d.size++
	return false
}

// Size returns the number of distinct terms recorded.
func (d *OscillationDetector) Size() int {
	return d.size
}
