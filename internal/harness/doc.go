// Package harness runs normalization scenarios written in YAML.
//
// A scenario names a schema, a pipeline level and an input term, and
// states what the normal form must look like. Scenarios drive the package
// tests of this repository and the `uprove test` command.
//
// # Scenario Format
//
//	name: self_join
//	description: "Two rows of R agreeing on the key are one row"
//	schema: |
//	  table: R: {
//	      columns: [{name: "a", not_null: true}, {name: "b"}]
//	      primary_key: ["a"]
//	  }
//	level: ic
//	vars:
//	  w: [a, b]
//	input:
//	  sum: [t1, t2]
//	  body:
//	    mul:
//	      - {table: R, var: t1}
//	      - {table: R, var: t2}
//	      - {eq: [a(t1), a(t2)]}
//	expect:
//	  sum: [t]
//	  body: {table: R, var: t}
//	assertions:
//	  - type: kind
//	    kind: sum
//
// Instead of an inline schema, schema_file names a CUE file or directory
// relative to the scenario file. Terms use the YAML form of
// uexpr.DecodeYAML.
//
// # Levels
//
//   - core: normalize.Normalize
//   - query: querynorm.Normalize
//   - ic: icrewrite.Rewrite, restricted by rules and constraint when set
//
// # Assertion Types
//
//   - kind: the normal form has the given kind (const, sum, squash, ...)
//   - not_uses: the normal form does not mention the variable free
//   - fresh_count: the rewrite minted exactly count fresh variables
//   - max_size: the normal form has at most count nodes
//
// # Deterministic Testing
//
// Every scenario runs in its own session whose run ID is the scenario
// name, so fresh variable names and logs are reproducible and golden
// snapshots are stable.
package harness
