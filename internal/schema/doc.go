// Package schema models the relational schema consulted by the query-aware
// normalizer and the integrity-constraint rewriter: tables, their ordered
// columns, nullability, unique keys and foreign keys.
//
// Schemas are authored in CUE:
//
//	table: R: {
//	    columns: [{name: "a", not_null: true}, {name: "b"}]
//	    primary_key: ["a"]
//	    unique: [["b"]]
//	    foreign_keys: [{columns: ["b"], references: {table: "S", columns: ["x"]}}]
//	}
//
// Load and LoadString build a CUE value and hand it to Compile; Validate
// checks cross-table consistency and reports every problem found.
package schema
