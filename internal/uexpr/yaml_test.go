package uexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDecodeYAMLForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Term
	}{
		{"int", "5", Const(5)},
		{"null", "null", Null()},
		{"const null", "{const: null}", Null()},
		{"var", "a(t)", Col("a", "t")},
		{"string", "{str: x}", Str("x")},
		{"table", "{table: R, var: t}", Table("R", Base("t"))},
		{"eq", "{eq: [a(t), 5]}", Eq(Col("a", "t"), Const(5))},
		{"gt", "{gt: [a(t), b(t)]}", Gt(Col("a", "t"), Col("b", "t"))},
		{"isnull", "{isnull: a(t)}", IsNull(Col("a", "t"))},
		{"pred", "{pred: like, args: [a(t), {str: 'x%'}]}", Pred("like", Col("a", "t"), Str("x%"))},
		{"func", "{func: upper, args: [{str: x}]}", Fn("upper", Str("x"))},
		{"not", "{not: {table: R, var: t}}", Neg(Table("R", Base("t")))},
		{
			name: "sum",
			src: `
sum: [t]
body:
  mul:
    - {table: R, var: t}
    - squash: {sum: [t], body: {table: R, var: t}}
`,
			want: Sum(vars("t"), Mul(Table("R", Base("t")), Squash(Sum(vars("t"), Table("R", Base("t")))))),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeYAML([]byte(tt.src))
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestDecodeYAMLKeepsRawContainers(t *testing.T) {
	got, err := DecodeYAML([]byte("{mul: [1, {add: [0, 0]}]}"))
	require.NoError(t, err)

	p, ok := got.(*Product)
	require.True(t, ok)
	assert.Len(t, p.Items, 2)
	assert.Equal(t, "1 * (0 + 0)", got.String())
}

func TestDecodeYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"sequence", "[1, 2]"},
		{"unknown", "{frob: 1}"},
		{"eq arity", "{eq: [1]}"},
		{"table without var", "{table: R}"},
		{"projection binder", "{sum: [a(t)], body: 1}"},
		{"bad var", "{var: 'a b'}"},
		{"bool", "true"},
		{"two comparisons", "{eq: [1, 2], lt: [1, 2]}"},
		{"comparison and squash", "{squash: 1, ne: [1, 2]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestDecodeYAMLRejectsSeveralKinds(t *testing.T) {
	// Either key alone is a valid term; together the term is ambiguous.
	for range 10 {
		_, err := DecodeYAML([]byte("{eq: [a(t), 1], ge: [a(t), 2]}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a term has one kind, got eq, ge")
	}

	term, err := DecodeYAML([]byte("{table: R, var: t}"))
	require.NoError(t, err)
	assert.True(t, Equal(Table("R", Base("t")), term))
}

func TestDecodeErrorCarriesLine(t *testing.T) {
	_, err := DecodeYAML([]byte("mul:\n  - 1\n  - {frob: 2}\n"))
	require.Error(t, err)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 3, de.Line)
}

func TestEncodeYAMLRoundTrip(t *testing.T) {
	term := Sum(vars("t"), Mul(
		Table("R", Base("t")),
		Eq(Col("a", "t"), Str("x")),
		Neg(IsNull(Col("b", "t"))),
		Fn("upper", Col("c", "t")),
	))

	data, err := EncodeYAML(term)
	require.NoError(t, err)

	back, err := DecodeYAML(data)
	require.NoError(t, err)
	assert.True(t, Equal(term, back), "round trip produced %s from\n%s", back, data)
}

func TestYAMLTermEmbedding(t *testing.T) {
	var doc struct {
		Input YAMLTerm `yaml:"input"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("input: {table: R, var: t}\n"), &doc))
	assert.True(t, Equal(Table("R", Base("t")), doc.Input.Term))
}
