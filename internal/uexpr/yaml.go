package uexpr

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeError reports a malformed YAML term.
type DecodeError struct {
	Line    int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func decodeErr(n *yaml.Node, format string, args ...any) *DecodeError {
	return &DecodeError{Line: n.Line, Message: fmt.Sprintf(format, args...)}
}

// DecodeYAML parses a term from its YAML form.
//
// Scalars are integers, null, or variable references such as t, a(t) or
// t1||t2. Every other kind is a mapping keyed by the kind:
//
//	{str: x}                     string literal
//	{table: R, var: t}           table atom
//	{eq: [a(t), 5]}              also ne, lt, le, gt, ge
//	{isnull: a(t)}
//	{pred: like, args: [...]}    custom predicate
//	{func: upper, args: [...]}
//	{add: [...]}, {mul: [...]}
//	{not: ...}, {squash: ...}
//	{sum: [t1, t2], body: ...}
func DecodeYAML(data []byte) (Term, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse term: %w", err)
	}
	if doc.Kind == 0 {
		return nil, &DecodeError{Message: "empty document"}
	}
	return DecodeNode(&doc)
}

// DecodeNode decodes a term from an already parsed YAML node.
func DecodeNode(n *yaml.Node) (Term, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) != 1 {
			return nil, decodeErr(n, "expected a single term")
		}
		return DecodeNode(n.Content[0])
	case yaml.AliasNode:
		return DecodeNode(n.Alias)
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.MappingNode:
		return decodeMapping(n)
	}
	return nil, decodeErr(n, "a term cannot be a sequence")
}

func decodeScalar(n *yaml.Node) (Term, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, decodeErr(n, "integer %q: %v", n.Value, err)
		}
		return Const(v), nil
	case "!!str":
		v, err := ParseVar(n.Value)
		if err != nil {
			return nil, decodeErr(n, "%v", err)
		}
		return Ref(v), nil
	}
	return nil, decodeErr(n, "unsupported scalar %q (%s)", n.Value, n.ShortTag())
}

var comparisonKeys = map[string]PredOp{
	"eq": OpEq,
	"ne": OpNe,
	"lt": OpLt,
	"le": OpLe,
	"gt": OpGt,
	"ge": OpGe,
}

// kindKeys are the mapping keys that name a term kind. var is a kind of
// its own only without table; args and body are operands.
var kindKeys = []string{"const", "str", "table", "isnull", "pred", "func", "add", "mul", "not", "squash", "sum"}

func decodeMapping(n *yaml.Node) (Term, error) {
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	var kinds []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		fields[key] = n.Content[i+1]
		if _, ok := comparisonKeys[key]; ok || slices.Contains(kindKeys, key) {
			kinds = append(kinds, key)
		}
	}
	if len(kinds) > 1 {
		return nil, decodeErr(n, "a term has one kind, got %s", strings.Join(kinds, ", "))
	}
	for key, op := range comparisonKeys {
		if v, ok := fields[key]; ok {
			args, err := decodeList(v)
			if err != nil {
				return nil, err
			}
			if len(args) != 2 {
				return nil, decodeErr(v, "%s takes two operands, got %d", key, len(args))
			}
			return Cmp(op, args[0], args[1]), nil
		}
	}
	switch {
	case fields["const"] != nil:
		return decodeScalar(fields["const"])
	case fields["str"] != nil:
		return Str(fields["str"].Value), nil
	case fields["table"] != nil:
		vn := fields["var"]
		if vn == nil {
			return nil, decodeErr(n, "table %s needs a var", fields["table"].Value)
		}
		v, err := ParseVar(vn.Value)
		if err != nil {
			return nil, decodeErr(vn, "%v", err)
		}
		return Table(fields["table"].Value, v), nil
	case fields["var"] != nil:
		v, err := ParseVar(fields["var"].Value)
		if err != nil {
			return nil, decodeErr(fields["var"], "%v", err)
		}
		return Ref(v), nil
	case fields["isnull"] != nil:
		a, err := DecodeNode(fields["isnull"])
		if err != nil {
			return nil, err
		}
		return IsNull(a), nil
	case fields["pred"] != nil:
		args, err := decodeList(fields["args"])
		if err != nil {
			return nil, err
		}
		return Pred(fields["pred"].Value, args...), nil
	case fields["func"] != nil:
		args, err := decodeList(fields["args"])
		if err != nil {
			return nil, err
		}
		return Fn(fields["func"].Value, args...), nil
	case fields["add"] != nil:
		items, err := decodeList(fields["add"])
		if err != nil {
			return nil, err
		}
		return &Addition{Items: items}, nil
	case fields["mul"] != nil:
		items, err := decodeList(fields["mul"])
		if err != nil {
			return nil, err
		}
		return &Product{Items: items}, nil
	case fields["not"] != nil:
		b, err := DecodeNode(fields["not"])
		if err != nil {
			return nil, err
		}
		return Neg(b), nil
	case fields["squash"] != nil:
		b, err := DecodeNode(fields["squash"])
		if err != nil {
			return nil, err
		}
		return Squash(b), nil
	case fields["sum"] != nil:
		return decodeSum(n, fields)
	}
	return nil, decodeErr(n, "unknown term form")
}

func decodeSum(n *yaml.Node, fields map[string]*yaml.Node) (Term, error) {
	vn := fields["sum"]
	var names []*yaml.Node
	switch vn.Kind {
	case yaml.SequenceNode:
		names = vn.Content
	case yaml.ScalarNode:
		names = []*yaml.Node{vn}
	default:
		return nil, decodeErr(vn, "sum expects a list of variable names")
	}
	vars := make([]*Var, 0, len(names))
	for _, nn := range names {
		v, err := ParseVar(nn.Value)
		if err != nil {
			return nil, decodeErr(nn, "%v", err)
		}
		if v.Kind != VarBase {
			return nil, decodeErr(nn, "sum binds base variables only, got %s", v)
		}
		vars = append(vars, v)
	}
	if fields["body"] == nil {
		return nil, decodeErr(n, "sum needs a body")
	}
	body, err := DecodeNode(fields["body"])
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return body, nil
	}
	return &Summation{Vars: normalizeBinders(vars), Body: body}, nil
}

func decodeList(n *yaml.Node) ([]Term, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, decodeErr(n, "expected a list of terms")
	}
	out := make([]Term, len(n.Content))
	for i, c := range n.Content {
		t, err := DecodeNode(c)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// EncodeYAML renders t in the form accepted by DecodeYAML.
func EncodeYAML(t Term) ([]byte, error) {
	return yaml.Marshal(EncodeNode(t))
}

// EncodeNode builds the YAML node for t.
func EncodeNode(t Term) *yaml.Node {
	switch t := t.(type) {
	case *Constant:
		if t.Null {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(t.Value, 10)}
	case *StrLit:
		return mapping("str", strNode(t.Value))
	case *TableAtom:
		return mapping("table", strNode(t.Name), "var", strNode(t.Var.String()))
	case *VarRef:
		return strNode(t.Var.String())
	case *Predicate:
		switch t.Op {
		case OpIsNull:
			return mapping("isnull", EncodeNode(t.Args[0]))
		case OpCustom:
			return mapping("pred", strNode(t.Name), "args", seq(t.Args))
		}
		for key, op := range comparisonKeys {
			if op == t.Op {
				n := seq(t.Args)
				n.Style = yaml.FlowStyle
				return mapping(key, n)
			}
		}
	case *Function:
		return mapping("func", strNode(t.Name), "args", seq(t.Args))
	case *Addition:
		return mapping("add", seq(t.Items))
	case *Product:
		return mapping("mul", seq(t.Items))
	case *Negation:
		return mapping("not", EncodeNode(t.Body))
	case *Squashing:
		return mapping("squash", EncodeNode(t.Body))
	case *Summation:
		vars := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range t.Vars {
			vars.Content = append(vars.Content, strNode(v.Name))
		}
		return mapping("sum", vars, "body", EncodeNode(t.Body))
	}
	panic(shapeViolation("cannot encode %T", t))
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func seq(ts []Term) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode}
	for _, t := range ts {
		n.Content = append(n.Content, EncodeNode(t))
	}
	return n
}

func mapping(kv ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Content = append(n.Content, strNode(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return n
}

// YAMLTerm wraps a Term so it can be embedded in YAML documents.
type YAMLTerm struct {
	Term Term
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (y *YAMLTerm) UnmarshalYAML(n *yaml.Node) error {
	t, err := DecodeNode(n)
	if err != nil {
		return err
	}
	y.Term = t
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (y YAMLTerm) MarshalYAML() (any, error) {
	if y.Term == nil {
		return nil, nil
	}
	return EncodeNode(y.Term), nil
}
