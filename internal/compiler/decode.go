package compiler

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/roach88/tensorgen/internal/codegen"
	"github.com/roach88/tensorgen/internal/ir"
)

// CompileError is a document that does not decode into IR. Path locates the
// offending node ("functions[0].body.contents[2].rhs").
type CompileError struct {
	File    string
	Path    string
	Line    int
	Message string

	// Err is the underlying cause, such as a *codegen.RestrictionError for
	// IR the backend does not lower.
	Err error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(":")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d:", e.Line)
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// builder turns document nodes into IR. It stops at the first error.
type builder struct {
	file string
}

func (b *builder) errorf(n node, path, format string, args ...any) *CompileError {
	e := &CompileError{File: b.file, Path: path, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line = n.line()
	}
	return e
}

// document decodes the top level: ir_version and functions. Functions may
// be a list, or a mapping whose labels name functions without a name field.
func (b *builder) document(root node) (*Document, error) {
	if !root.isMap() {
		return nil, b.errorf(root, "", "document must be a mapping")
	}
	doc := &Document{Source: b.file}

	if v, ok := root.lookup("ir_version"); ok {
		s, err := v.scalar()
		if err != nil {
			return nil, b.errorf(v, "ir_version", "%v", err)
		}
		doc.IRVersion = s
	}

	fns, ok := root.lookup("functions")
	if !ok {
		return nil, b.errorf(root, "functions", "functions is required")
	}

	switch {
	case fns.isList():
		elems, _ := fns.elems()
		for i, n := range elems {
			f, err := b.function(n, fmt.Sprintf("functions[%d]", i), "")
			if err != nil {
				return nil, err
			}
			doc.Functions = append(doc.Functions, f)
			doc.Lines = append(doc.Lines, n.line())
		}
	case fns.isMap():
		fields, err := fns.fields()
		if err != nil {
			return nil, b.errorf(fns, "functions", "%v", err)
		}
		for _, fld := range fields {
			f, err := b.function(fld.value, "functions."+fld.label, fld.label)
			if err != nil {
				return nil, err
			}
			doc.Functions = append(doc.Functions, f)
			doc.Lines = append(doc.Lines, fld.value.line())
		}
	default:
		return nil, b.errorf(fns, "functions", "functions must be a list or mapping")
	}
	return doc, nil
}

func (b *builder) function(n node, path, label string) (*ir.Function, error) {
	if !n.isMap() {
		return nil, b.errorf(n, path, "function must be a mapping")
	}
	f := &ir.Function{Name: label}
	if v, ok := n.lookup("name"); ok {
		name, err := v.scalar()
		if err != nil {
			return nil, b.errorf(v, path+".name", "%v", err)
		}
		f.Name = name
	}

	var err error
	if f.Inputs, err = b.exprList(n, "inputs", path); err != nil {
		return nil, err
	}
	if f.Outputs, err = b.exprList(n, "outputs", path); err != nil {
		return nil, err
	}
	if f.Body, err = b.optionalStmt(n, "body", path); err != nil {
		return nil, err
	}
	return f, nil
}

// stmt decodes one statement. A bare list is shorthand for a block.
func (b *builder) stmt(n node, path string) (ir.Stmt, error) {
	if n.isList() {
		contents, err := b.stmts(n, path)
		if err != nil {
			return nil, err
		}
		return &ir.Block{Contents: contents}, nil
	}

	op, err := b.op(n, path)
	if err != nil {
		return nil, err
	}

	switch op {
	case "block":
		v, ok := n.lookup("contents")
		if !ok {
			return &ir.Block{}, nil
		}
		contents, err := b.stmts(v, path+".contents")
		if err != nil {
			return nil, err
		}
		return &ir.Block{Contents: contents}, nil

	case "if":
		s := &ir.IfThenElse{}
		if s.Cond, err = b.field(n, "cond", path); err != nil {
			return nil, err
		}
		if s.Then, err = b.optionalStmt(n, "then", path); err != nil {
			return nil, err
		}
		if s.Otherwise, err = b.optionalStmt(n, "else", path); err != nil {
			return nil, err
		}
		return s, nil

	case "while":
		s := &ir.While{}
		if s.Kind, err = b.loopKind(n, path); err != nil {
			return nil, err
		}
		if s.Cond, err = b.field(n, "cond", path); err != nil {
			return nil, err
		}
		if s.Contents, err = b.optionalStmt(n, "body", path); err != nil {
			return nil, err
		}
		return s, nil

	case "for":
		s := &ir.For{}
		if s.Kind, err = b.loopKind(n, path); err != nil {
			return nil, err
		}
		if s.Var, err = b.field(n, "var", path); err != nil {
			return nil, err
		}
		if s.Start, err = b.field(n, "start", path); err != nil {
			return nil, err
		}
		if s.End, err = b.field(n, "end", path); err != nil {
			return nil, err
		}
		if s.Increment, err = b.field(n, "increment", path); err != nil {
			return nil, err
		}
		if s.Contents, err = b.optionalStmt(n, "body", path); err != nil {
			return nil, err
		}
		return s, nil

	case "switch":
		s := &ir.Switch{}
		if s.Control, err = b.field(n, "control", path); err != nil {
			return nil, err
		}
		arms, err := b.list(n, "cases", path)
		if err != nil {
			return nil, err
		}
		for i, arm := range arms {
			armPath := fmt.Sprintf("%s.cases[%d]", path, i)
			var c ir.SwitchCase
			if c.Value, err = b.field(arm, "value", armPath); err != nil {
				return nil, err
			}
			if c.Body, err = b.optionalStmt(arm, "body", armPath); err != nil {
				return nil, err
			}
			s.Cases = append(s.Cases, c)
		}
		return s, nil

	case "case":
		s := &ir.Case{}
		if s.AlwaysMatch, err = b.flag(n, "always_match", path); err != nil {
			return nil, err
		}
		clauses, err := b.list(n, "clauses", path)
		if err != nil {
			return nil, err
		}
		for i, cl := range clauses {
			clPath := fmt.Sprintf("%s.clauses[%d]", path, i)
			var c ir.Clause
			if c.Cond, err = b.field(cl, "cond", clPath); err != nil {
				return nil, err
			}
			if c.Body, err = b.optionalStmt(cl, "body", clPath); err != nil {
				return nil, err
			}
			s.Clauses = append(s.Clauses, c)
		}
		return s, nil

	case "assign", "declare":
		s := &ir.VarAssign{IsDecl: op == "declare"}
		if op == "assign" {
			if s.IsDecl, err = b.flag(n, "decl", path); err != nil {
				return nil, err
			}
		}
		if s.LHS, err = b.field(n, "lhs", path); err != nil {
			return nil, err
		}
		if s.RHS, err = b.field(n, "rhs", path); err != nil {
			return nil, err
		}
		return s, nil

	case "store":
		s := &ir.Store{}
		if s.Arr, err = b.field(n, "arr", path); err != nil {
			return nil, err
		}
		if s.Loc, err = b.field(n, "loc", path); err != nil {
			return nil, err
		}
		if s.Data, err = b.field(n, "data", path); err != nil {
			return nil, err
		}
		return s, nil

	case "allocate":
		s := &ir.Allocate{}
		if s.Var, err = b.field(n, "var", path); err != nil {
			return nil, err
		}
		if s.NumElements, err = b.field(n, "count", path); err != nil {
			return nil, err
		}
		return s, nil

	case "scope":
		body, err := b.optionalStmt(n, "body", path)
		if err != nil {
			return nil, err
		}
		return &ir.Scope{Body: body}, nil

	case "comment":
		text, err := b.text(n, "text", path)
		if err != nil {
			return nil, err
		}
		return &ir.Comment{Text: text}, nil

	case "blank":
		return &ir.BlankLine{}, nil

	case "function":
		f, err := b.function(n, path, "")
		if err != nil {
			return nil, err
		}
		return f, nil

	default:
		return nil, b.errorf(n, path+".op", "unknown statement %q", op)
	}
}

func (b *builder) stmts(n node, path string) ([]ir.Stmt, error) {
	elems, err := n.elems()
	if err != nil {
		return nil, b.errorf(n, path, "%v", err)
	}
	out := make([]ir.Stmt, 0, len(elems))
	for i, e := range elems {
		s, err := b.stmt(e, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *builder) optionalStmt(n node, name, path string) (ir.Stmt, error) {
	v, ok := n.lookup(name)
	if !ok {
		return nil, nil
	}
	return b.stmt(v, path+"."+name)
}

// expr decodes one expression.
func (b *builder) expr(n node, path string) (ir.Expr, error) {
	op, err := b.op(n, path)
	if err != nil {
		return nil, err
	}

	switch op {
	case "literal":
		return b.literal(n, path)

	case "var":
		name, err := b.text(n, "name", path)
		if err != nil {
			return nil, err
		}
		typ, err := b.datatype(n, path)
		if err != nil {
			return nil, err
		}
		return &ir.Var{Name: name, Typ: typ}, nil

	case "neg", "sqrt":
		a, err := b.field(n, "a", path)
		if err != nil {
			return nil, err
		}
		if op == "neg" {
			return &ir.Neg{A: a}, nil
		}
		return &ir.Sqrt{A: a}, nil

	case "min":
		operands, err := b.exprList(n, "operands", path)
		if err != nil {
			return nil, err
		}
		return &ir.Min{Operands: operands}, nil

	case "max":
		if _, ok := n.lookup("operands"); !ok {
			break
		}
		operands, err := b.exprList(n, "operands", path)
		if err != nil {
			return nil, err
		}
		if len(operands) != 2 {
			e := b.errorf(n, path+".operands", "max takes two operands, got %d", len(operands))
			e.Err = &codegen.RestrictionError{
				Feature: "multi-operand max",
				Message: fmt.Sprintf("%d operands; only binary max is lowered", len(operands)),
			}
			return nil, e
		}
		return &ir.Max{A: operands[0], B: operands[1]}, nil

	case "cast":
		a, err := b.field(n, "a", path)
		if err != nil {
			return nil, err
		}
		typ, err := b.datatype(n, path)
		if err != nil {
			return nil, err
		}
		return &ir.Cast{A: a, Typ: typ}, nil

	case "load":
		e := &ir.Load{}
		if e.Arr, err = b.field(n, "arr", path); err != nil {
			return nil, err
		}
		if e.Loc, err = b.field(n, "loc", path); err != nil {
			return nil, err
		}
		if e.Typ, err = b.datatype(n, path); err != nil {
			return nil, err
		}
		return e, nil

	case "property":
		return b.property(n, path)

	}

	if _, ok := ir.NewBinary(op, nil, nil); !ok {
		return nil, b.errorf(n, path+".op", "unknown expression %q", op)
	}
	a, err := b.field(n, "a", path)
	if err != nil {
		return nil, err
	}
	c, err := b.field(n, "b", path)
	if err != nil {
		return nil, err
	}
	e, _ := ir.NewBinary(op, a, c)
	return e, nil
}

func (b *builder) property(n node, path string) (ir.Expr, error) {
	tensor, err := b.field(n, "tensor", path)
	if err != nil {
		return nil, err
	}
	name, err := b.text(n, "property", path)
	if err != nil {
		return nil, err
	}
	prop, err := ir.ParseTensorProperty(name)
	if err != nil {
		return nil, b.errorf(n, path+".property", "%v", err)
	}
	e := &ir.GetProperty{Tensor: tensor, Property: prop}

	if v, ok := n.lookup("mode"); ok {
		s, err := v.scalar()
		if err != nil {
			return nil, b.errorf(v, path+".mode", "%v", err)
		}
		mode, err := strconv.Atoi(s)
		if err != nil || mode < 0 {
			return nil, b.errorf(v, path+".mode", "mode must be a non-negative integer, got %q", s)
		}
		e.Mode = mode
	}
	if _, ok := n.lookup("type"); ok {
		if e.Typ, err = b.datatype(n, path); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// literal decodes {op: literal, type: T, value: V}. Integer values may use
// a 0x, 0o or 0b prefix. Float values accept nan, inf, -inf
// and -0, or a raw IEEE pattern in bits.
func (b *builder) literal(n node, path string) (ir.Expr, error) {
	typ, err := b.datatype(n, path)
	if err != nil {
		return nil, err
	}

	if typ.IsFloat() {
		if v, ok := n.lookup("bits"); ok {
			return b.floatBits(v, typ, path+".bits")
		}
	}

	v, ok := n.lookup("value")
	if !ok {
		return nil, b.errorf(n, path+".value", "literal value is required")
	}
	s, err := v.scalar()
	if err != nil {
		return nil, b.errorf(v, path+".value", "%v", err)
	}

	switch {
	case typ.IsBool():
		val, err := strconv.ParseBool(s)
		if err != nil {
			return nil, b.errorf(v, path+".value", "invalid bool %q", s)
		}
		return ir.NewBoolLiteral(val), nil
	case typ.IsInteger():
		i, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, b.errorf(v, path+".value", "invalid integer %q", s)
		}
		return ir.NewBigLiteral(typ, i), nil
	case typ.IsFloat():
		f, err := parseFloat(s)
		if err != nil {
			return nil, b.errorf(v, path+".value", "invalid float %q", s)
		}
		return ir.NewFloatLiteral(typ, f), nil
	default:
		return nil, b.errorf(n, path+".type", "literals of type %s are not supported", typ)
	}
}

// parseFloat accepts Go float syntax plus the YAML spellings of the
// special values.
func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case ".nan":
		return math.NaN(), nil
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func (b *builder) floatBits(v node, typ ir.Datatype, path string) (ir.Expr, error) {
	s, err := v.scalar()
	if err != nil {
		return nil, b.errorf(v, path, "%v", err)
	}
	bits, err := strconv.ParseUint(s, 0, typ.Bits)
	if err != nil {
		return nil, b.errorf(v, path, "invalid %d-bit pattern %q", typ.Bits, s)
	}
	if typ.Bits == 32 {
		return ir.NewFloatLiteral(typ, float64(math.Float32frombits(uint32(bits)))), nil
	}
	return ir.NewFloatLiteral(typ, math.Float64frombits(bits)), nil
}

func (b *builder) exprList(n node, name, path string) ([]ir.Expr, error) {
	v, ok := n.lookup(name)
	if !ok {
		return nil, nil
	}
	elems, err := v.elems()
	if err != nil {
		return nil, b.errorf(v, path+"."+name, "%v", err)
	}
	out := make([]ir.Expr, 0, len(elems))
	for i, e := range elems {
		x, err := b.expr(e, fmt.Sprintf("%s.%s[%d]", path, name, i))
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// field decodes a required expression field.
func (b *builder) field(n node, name, path string) (ir.Expr, error) {
	v, ok := n.lookup(name)
	if !ok {
		return nil, b.errorf(n, path+"."+name, "%s is required", name)
	}
	return b.expr(v, path+"."+name)
}

func (b *builder) list(n node, name, path string) ([]node, error) {
	v, ok := n.lookup(name)
	if !ok {
		return nil, nil
	}
	elems, err := v.elems()
	if err != nil {
		return nil, b.errorf(v, path+"."+name, "%v", err)
	}
	return elems, nil
}

func (b *builder) op(n node, path string) (string, error) {
	if !n.isMap() {
		return "", b.errorf(n, path, "node must be a mapping with an op")
	}
	return b.text(n, "op", path)
}

func (b *builder) text(n node, name, path string) (string, error) {
	v, ok := n.lookup(name)
	if !ok {
		return "", b.errorf(n, path+"."+name, "%s is required", name)
	}
	s, err := v.scalar()
	if err != nil {
		return "", b.errorf(v, path+"."+name, "%v", err)
	}
	return s, nil
}

func (b *builder) flag(n node, name, path string) (bool, error) {
	v, ok := n.lookup(name)
	if !ok {
		return false, nil
	}
	s, err := v.scalar()
	if err != nil {
		return false, b.errorf(v, path+"."+name, "%v", err)
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return false, b.errorf(v, path+"."+name, "invalid bool %q", s)
	}
	return val, nil
}

func (b *builder) datatype(n node, path string) (ir.Datatype, error) {
	s, err := b.text(n, "type", path)
	if err != nil {
		return ir.Datatype{}, err
	}
	t, err := ir.ParseDatatype(s)
	if err != nil {
		return ir.Datatype{}, b.errorf(n, path+".type", "%v", err)
	}
	return t, nil
}

func (b *builder) loopKind(n node, path string) (ir.LoopKind, error) {
	v, ok := n.lookup("kind")
	if !ok {
		return ir.Serial, nil
	}
	s, err := v.scalar()
	if err != nil {
		return ir.Serial, b.errorf(v, path+".kind", "%v", err)
	}
	k, err := ir.ParseLoopKind(s)
	if err != nil {
		return ir.Serial, b.errorf(v, path+".kind", "%v", err)
	}
	return k, nil
}
