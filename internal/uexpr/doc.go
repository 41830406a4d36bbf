// Package uexpr provides the U-expression term algebra.
//
// A U-expression is a semiring-valued symbolic expression describing the
// multiplicity of a query result as a function of tuple-variable bindings.
// This package contains the closed set of term kinds, their constructors,
// and the structural primitives every rewrite is built from: sub-term
// access, variable use and substitution, bound-variable-insensitive
// hashing, canonical ordering, alpha-equivalence and pattern matching.
//
// All other internal packages import uexpr; uexpr imports nothing internal.
//
// # Immutability
//
// Terms are never mutated after construction. Constructors copy the slices
// they are handed, and every rewrite builds a new node from (possibly
// shared) children. Sharing sub-trees between an old and a rewritten term
// is therefore always safe.
//
// # Sealed interface
//
// Term is sealed with a marker method. Rules switch exhaustively over:
//
//	*Constant   integer or the NULL sentinel
//	*StrLit     string literal
//	*TableAtom  R(t): a row of R bound to t
//	*VarRef     a reference to a tuple variable or projection
//	*Predicate  [a = b], [a < b], [isnull(a)], custom predicates
//	*Function   uninterpreted function application
//	*Addition   commutative sum (disjunction)
//	*Product    commutative product (conjunction)
//	*Negation   not(E)
//	*Squashing  ||E||
//	*Summation  sum{vars}(E)
package uexpr
