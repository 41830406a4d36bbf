// Package normalize implements the schema-independent normalizer: a table
// of algebraic rewrite rules applied bottom-up and repeated until no rule
// fires.
//
// The target shape is a sum of products whose factors are predicates,
// table atoms, squashes, negations and summations over products, each
// recursively in the same shape.
//
// Every rule is a pure function of its argument. The driver (Normalizer)
// owns termination: each loop runs under a Budget and an
// OscillationDetector, and aborts with a NormalizeError instead of
// spinning.
package normalize
