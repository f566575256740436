package ir

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// MarshalCanonical produces the canonical JSON encoding of a function.
// CRITICAL: this is the ONLY serialization used for content-addressed
// identity. Two structurally equal IR trees always encode to the same bytes.
//
// Rules (RFC 8785 subset):
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings keep their bytes: no Unicode normalization
//  4. No floats: float literals are encoded as their IEEE bit pattern
//  5. Big integers are encoded as decimal strings
func MarshalCanonical(f *Function) ([]byte, error) {
	tree, err := canonicalStmt(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type object = map[string]any

func canonicalStmt(s Stmt) (any, error) {
	if s == nil {
		return object{"op": "none"}, nil
	}
	obj := object{"op": s.Op()}

	switch s := s.(type) {
	case *Block:
		contents, err := canonicalStmts(s.Contents)
		if err != nil {
			return nil, err
		}
		obj["contents"] = contents
	case *IfThenElse:
		return withFields(obj, exprField("cond", s.Cond), stmtField("then", s.Then), stmtField("else", s.Otherwise))
	case *While:
		obj["kind"] = s.Kind.String()
		return withFields(obj, exprField("cond", s.Cond), stmtField("body", s.Contents))
	case *For:
		obj["kind"] = s.Kind.String()
		return withFields(obj,
			exprField("var", s.Var),
			exprField("start", s.Start),
			exprField("end", s.End),
			exprField("increment", s.Increment),
			stmtField("body", s.Contents))
	case *Switch:
		cases := make([]any, len(s.Cases))
		for i, c := range s.Cases {
			arm, err := withFields(object{}, exprField("value", c.Value), stmtField("body", c.Body))
			if err != nil {
				return nil, fmt.Errorf("cases[%d]: %w", i, err)
			}
			cases[i] = arm
		}
		obj["cases"] = cases
		return withFields(obj, exprField("control", s.Control))
	case *Case:
		clauses := make([]any, len(s.Clauses))
		for i, c := range s.Clauses {
			clause, err := withFields(object{}, exprField("cond", c.Cond), stmtField("body", c.Body))
			if err != nil {
				return nil, fmt.Errorf("clauses[%d]: %w", i, err)
			}
			clauses[i] = clause
		}
		obj["clauses"] = clauses
		obj["always_match"] = s.AlwaysMatch
	case *VarAssign:
		obj["decl"] = s.IsDecl
		return withFields(obj, exprField("lhs", s.LHS), exprField("rhs", s.RHS))
	case *Store:
		return withFields(obj, exprField("arr", s.Arr), exprField("loc", s.Loc), exprField("data", s.Data))
	case *Allocate:
		return withFields(obj, exprField("var", s.Var), exprField("count", s.NumElements))
	case *Scope:
		return withFields(obj, stmtField("body", s.Body))
	case *Comment:
		obj["text"] = s.Text
	case *BlankLine:
	case *Function:
		obj["name"] = s.Name
		inputs, err := canonicalExprs(s.Inputs)
		if err != nil {
			return nil, fmt.Errorf("inputs: %w", err)
		}
		outputs, err := canonicalExprs(s.Outputs)
		if err != nil {
			return nil, fmt.Errorf("outputs: %w", err)
		}
		obj["inputs"] = inputs
		obj["outputs"] = outputs
		return withFields(obj, stmtField("body", s.Body))
	default:
		return nil, fmt.Errorf("unsupported statement for canonical encoding: %T", s)
	}
	return obj, nil
}

func canonicalExpr(e Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("missing expression")
	}
	obj := object{"op": e.Op(), "type": e.Type().String()}

	switch e := e.(type) {
	case *Literal:
		switch {
		case e.Typ.IsFloat():
			if e.Typ.Bits == 32 {
				obj["bits"] = fmt.Sprintf("0x%08x", math.Float32bits(float32(e.Float)))
			} else {
				obj["bits"] = fmt.Sprintf("0x%016x", math.Float64bits(e.Float))
			}
		case e.Typ.IsBool():
			obj["value"] = e.Bool
		case e.Int != nil:
			obj["value"] = e.Int.String()
		default:
			return nil, fmt.Errorf("literal of type %s has no value", e.Typ)
		}
	case *Var:
		obj["name"] = e.Name
	case *Neg:
		return withFields(obj, exprField("a", e.A))
	case *Sqrt:
		return withFields(obj, exprField("a", e.A))
	case *Min:
		operands, err := canonicalExprs(e.Operands)
		if err != nil {
			return nil, err
		}
		obj["operands"] = operands
	case *Cast:
		return withFields(obj, exprField("a", e.A))
	case *Load:
		return withFields(obj, exprField("arr", e.Arr), exprField("loc", e.Loc))
	case *GetProperty:
		obj["property"] = e.Property.String()
		obj["mode"] = int64(e.Mode)
		return withFields(obj, exprField("tensor", e.Tensor))
	default:
		a, b, ok := BinaryOperands(e)
		if !ok {
			return nil, fmt.Errorf("unsupported expression for canonical encoding: %T", e)
		}
		return withFields(obj, exprField("a", a), exprField("b", b))
	}
	return obj, nil
}

func canonicalStmts(stmts []Stmt) ([]any, error) {
	out := make([]any, len(stmts))
	for i, s := range stmts {
		v, err := canonicalStmt(s)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func canonicalExprs(exprs []Expr) ([]any, error) {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		v, err := canonicalExpr(e)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

type field struct {
	key   string
	value func() (any, error)
}

func exprField(key string, e Expr) field {
	return field{key, func() (any, error) { return canonicalExpr(e) }}
}

func stmtField(key string, s Stmt) field {
	return field{key, func() (any, error) { return canonicalStmt(s) }}
}

func withFields(obj object, fields ...field) (any, error) {
	for _, f := range fields {
		v, err := f.value()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		obj[f.key] = v
	}
	return obj, nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		// CRITICAL: UTF-16 code unit order, not Go's UTF-8 byte order.
		slices.SortFunc(keys, compareUTF16)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only quote, backslash and control characters.
// U+2028 and U+2029 stay literal, unlike encoding/json. Names that differ in
// bytes must hash differently, so invalid UTF-8 is copied through unchanged.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteByte(s[i])
			i++
			continue
		}
		i += size
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func compareUTF16(a, b string) int {
	if c := slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b))); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
