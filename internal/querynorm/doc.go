// Package querynorm layers schema-aware rewrites over the core normalizer.
//
// Normalize alternates a full core normalization with one pass of the
// query rules until neither changes the term. The query rules are:
//
//   - concat-projection: a(t1||t2) becomes a(ti) for the first element
//     whose tuple schema carries a
//   - null-propagation: beside [isnull(x)], [x = e] becomes [isnull(e)] and
//     orderings over x become 0
//   - eliminate-bound-var: a summation binder fixed by the equalities of
//     its body is substituted away, wholesale or attribute by attribute
//   - min-max: an "equal row exists" squash paired with a "no greater row"
//     negation becomes an equality with a max (or min) aggregate
//   - count-distinct: sum{v}(||sum{W}(A * [v = e])||) becomes a count of
//     the distinct values of e
//   - hoist-unrelated: predicates and negations under a squash that use
//     none of its binders move out of it
//   - subsumption: squash and negation factors implied by their siblings,
//     and squashed addends implied by other addends, are removed
//
// Attribute reasoning reads tuple schemas from the session. Normalize
// registers the columns of every table atom before it starts.
package querynorm
