// Package testutil holds helpers shared by the tests of the normalization
// packages: deterministic sessions, schema fixtures and term generators.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/uprove/internal/schema"
	"github.com/roach88/uprove/internal/session"
)

// RunID is the run identifier of every session made by this package.
const RunID = "test-run"

// Session returns a session over the schema given as CUE source. An empty
// source yields an empty schema. The schema must be valid.
func Session(t testing.TB, cueSrc string, opts ...session.Option) *session.Session {
	t.Helper()
	sch := schema.Empty()
	if cueSrc != "" {
		var err error
		sch, err = schema.LoadString(cueSrc)
		require.NoError(t, err)
		require.Empty(t, schema.Validate(sch))
	}
	opts = append([]session.Option{session.WithIDGenerator(session.NewFixedGenerator(RunID))}, opts...)
	return session.New(sch, opts...)
}

// KeyedSchema declares R(a, b) and S(x, y) keyed on a and x, and T(a, r)
// whose r references S.x.
const KeyedSchema = `
table: R: {
	columns: [{name: "a", not_null: true}, {name: "b"}]
	primary_key: ["a"]
}
table: S: {
	columns: [{name: "x", not_null: true}, {name: "y"}]
	primary_key: ["x"]
}
table: T: {
	columns: [{name: "a", not_null: true}, {name: "r"}]
	primary_key: ["a"]
	foreign_keys: [{columns: ["r"], references: {table: "S", columns: ["x"]}}]
}
`
