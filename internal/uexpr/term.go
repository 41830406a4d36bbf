package uexpr

import (
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Kind identifies the concrete type of a Term.
type Kind int

const (
	KindConst Kind = iota
	KindString
	KindTable
	KindVar
	KindPred
	KindFunc
	KindAdd
	KindMul
	KindNeg
	KindSquash
	KindSum
)

var kindNames = [...]string{
	KindConst:  "const",
	KindString: "str",
	KindTable:  "table",
	KindVar:    "var",
	KindPred:   "pred",
	KindFunc:   "func",
	KindAdd:    "add",
	KindMul:    "mul",
	KindNeg:    "not",
	KindSquash: "squash",
	KindSum:    "sum",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Term is a U-expression node.
//
// This is a sealed interface: only types in this package implement it.
type Term interface {
	Kind() Kind
	String() string
	term() // sealed
}

// Constant is an integer literal or the NULL sentinel.
type Constant struct {
	Value int64
	Null  bool
}

// StrLit is a string literal.
type StrLit struct {
	Value string
}

// TableAtom is R(t): the multiplicity of the row bound to t in R.
type TableAtom struct {
	Name string
	Var  *Var
}

// VarRef is a tuple variable or attribute used as a value.
type VarRef struct {
	Var *Var
}

// PredOp is the operator of a Predicate.
type PredOp int

const (
	OpEq PredOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIsNull
	OpCustom
)

var opSymbols = [...]string{
	OpEq:     "=",
	OpNe:     "<>",
	OpLt:     "<",
	OpLe:     "<=",
	OpGt:     ">",
	OpGe:     ">=",
	OpIsNull: "isnull",
	OpCustom: "custom",
}

// String returns the operator symbol.
func (o PredOp) String() string {
	if o >= 0 && int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return fmt.Sprintf("PredOp(%d)", int(o))
}

// IsComparison reports whether o is one of the binary comparisons.
func (o PredOp) IsComparison() bool {
	return o <= OpGe
}

// IsOrdering reports whether o is <, <=, > or >=.
func (o PredOp) IsOrdering() bool {
	return o >= OpLt && o <= OpGe
}

// Predicate is a 0/1-valued test over its arguments. Name is only set for
// OpCustom.
type Predicate struct {
	Op   PredOp
	Name string
	Args []Term
}

// Function is an uninterpreted function application.
type Function struct {
	Name string
	Args []Term
}

// Addition is the commutative sum of its items.
type Addition struct {
	Items []Term
}

// Product is the commutative product of its items.
type Product struct {
	Items []Term
}

// Negation is not(Body): 1 when Body is 0, else 0.
type Negation struct {
	Body Term
}

// Squashing is ||Body||: 0 when Body is 0, else 1.
type Squashing struct {
	Body Term
}

// Summation binds Vars over Body. Vars are base variables kept sorted by
// name without duplicates.
type Summation struct {
	Vars []*Var
	Body Term
}

func (*Constant) Kind() Kind  { return KindConst }
func (*StrLit) Kind() Kind    { return KindString }
func (*TableAtom) Kind() Kind { return KindTable }
func (*VarRef) Kind() Kind    { return KindVar }
func (*Predicate) Kind() Kind { return KindPred }
func (*Function) Kind() Kind  { return KindFunc }
func (*Addition) Kind() Kind  { return KindAdd }
func (*Product) Kind() Kind   { return KindMul }
func (*Negation) Kind() Kind  { return KindNeg }
func (*Squashing) Kind() Kind { return KindSquash }
func (*Summation) Kind() Kind { return KindSum }

func (*Constant) term()  {}
func (*StrLit) term()    {}
func (*TableAtom) term() {}
func (*VarRef) term()    {}
func (*Predicate) term() {}
func (*Function) term()  {}
func (*Addition) term()  {}
func (*Product) term()   {}
func (*Negation) term()  {}
func (*Squashing) term() {}
func (*Summation) term() {}

// Const returns an integer constant.
func Const(n int64) *Constant {
	return &Constant{Value: n}
}

// Null returns the NULL sentinel.
func Null() *Constant {
	return &Constant{Null: true}
}

// Str returns a string literal. The value is stored in Unicode NFC so that
// canonically equivalent spellings compare equal.
func Str(s string) *StrLit {
	return &StrLit{Value: norm.NFC.String(s)}
}

// Table returns the table atom name(v).
func Table(name string, v *Var) *TableAtom {
	return &TableAtom{Name: name, Var: v}
}

// Ref returns a reference to v.
func Ref(v *Var) *VarRef {
	return &VarRef{Var: v}
}

// Col is shorthand for Ref(Proj(col, Base(of))).
func Col(col, of string) *VarRef {
	return Ref(Proj(col, Base(of)))
}

// Cmp returns the binary comparison [a op b].
func Cmp(op PredOp, a, b Term) *Predicate {
	if !op.IsComparison() {
		panic(shapeViolation("comparison operator expected, got %s", op))
	}
	return &Predicate{Op: op, Args: []Term{a, b}}
}

func Eq(a, b Term) *Predicate { return Cmp(OpEq, a, b) }
func Ne(a, b Term) *Predicate { return Cmp(OpNe, a, b) }
func Lt(a, b Term) *Predicate { return Cmp(OpLt, a, b) }
func Le(a, b Term) *Predicate { return Cmp(OpLe, a, b) }
func Gt(a, b Term) *Predicate { return Cmp(OpGt, a, b) }
func Ge(a, b Term) *Predicate { return Cmp(OpGe, a, b) }

// IsNull returns [isnull(a)].
func IsNull(a Term) *Predicate {
	return &Predicate{Op: OpIsNull, Args: []Term{a}}
}

// Pred returns a custom predicate.
func Pred(name string, args ...Term) *Predicate {
	return &Predicate{Op: OpCustom, Name: name, Args: slices.Clone(args)}
}

// Fn returns an uninterpreted function application.
func Fn(name string, args ...Term) *Function {
	return &Function{Name: name, Args: slices.Clone(args)}
}

// Add returns the sum of items. No items yields 0 and a single item is
// returned unwrapped.
func Add(items ...Term) Term {
	switch len(items) {
	case 0:
		return Const(0)
	case 1:
		return items[0]
	}
	return &Addition{Items: slices.Clone(items)}
}

// Mul returns the product of items. No items yields 1 and a single item is
// returned unwrapped.
func Mul(items ...Term) Term {
	switch len(items) {
	case 0:
		return Const(1)
	case 1:
		return items[0]
	}
	return &Product{Items: slices.Clone(items)}
}

// Neg returns not(body).
func Neg(body Term) *Negation {
	return &Negation{Body: body}
}

// Squash returns ||body||.
func Squash(body Term) *Squashing {
	return &Squashing{Body: body}
}

// Sum binds vars over body. Vars are deduplicated and sorted; with no vars
// the body is returned. Every var must be a base variable.
func Sum(vars []*Var, body Term) Term {
	vs := normalizeBinders(vars)
	if len(vs) == 0 {
		return body
	}
	return &Summation{Vars: vs, Body: body}
}

func normalizeBinders(vars []*Var) []*Var {
	seen := make(map[string]bool, len(vars))
	out := make([]*Var, 0, len(vars))
	for _, v := range vars {
		if v.Kind != VarBase {
			panic(shapeViolation("summation binds non-base variable %s", v))
		}
		if seen[v.Name] {
			continue
		}
		seen[v.Name] = true
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *Var) int {
		return compareStrings(a.Name, b.Name)
	})
	return out
}

// Factors returns the items of a product, or t itself as a single factor.
func Factors(t Term) []Term {
	if p, ok := t.(*Product); ok {
		return p.Items
	}
	return []Term{t}
}

// Addends returns the items of an addition, or t itself as a single addend.
func Addends(t Term) []Term {
	if a, ok := t.(*Addition); ok {
		return a.Items
	}
	return []Term{t}
}

// IsConst reports whether t is the non-null constant n.
func IsConst(t Term, n int64) bool {
	c, ok := t.(*Constant)
	return ok && !c.Null && c.Value == n
}

// IsNullConst reports whether t is the NULL sentinel.
func IsNullConst(t Term) bool {
	c, ok := t.(*Constant)
	return ok && c.Null
}

// IsLiteral reports whether t is a non-null constant or a string literal.
func IsLiteral(t Term) bool {
	switch t := t.(type) {
	case *Constant:
		return !t.Null
	case *StrLit:
		return true
	}
	return false
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
