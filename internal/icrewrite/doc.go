// Package icrewrite rewrites terms using the integrity constraints of the
// schema: unique keys, not-null columns and foreign keys.
//
// Rewrite alternates a full query normalization with one pass of the
// constraint rules until neither changes the term. The rules, in the order
// they are tried at each node, are:
//
//   - self-join: two atoms of one table whose unique key columns are
//     congruent denote the same row; the later variable is identified
//     with the earlier one
//   - squash-insertion: a summation in which every binder is pinned by a
//     unique key to values from outside the summation counts at most one
//     row and is wrapped in a squash
//   - null-removal: [isnull(c(t))] is 0 when t ranges over a table that
//     declares c not null
//   - foreign-key: a binder over a referenced table whose key is equated
//     to the foreign key of a row already in scope, and which is used for
//     nothing else, is replaced by a non-null test on the foreign key
//   - one-record: a binder whose unique key is equated to literals ranges
//     over at most one row and is replaced by a fresh free variable
//     standing for that row
//
// Fresh variables are registered with the session under their table and
// key values, so a later rewrite of the same row, in this term or in
// another term of the same session, reuses the same variable.
package icrewrite
