package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies the numeric family of a Datatype.
type Kind int

const (
	KindBool Kind = iota
	KindUInt
	KindInt
	KindFloat
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindUInt:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindComplex:
		return "complex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Datatype is the semantic numeric type of an expression.
type Datatype struct {
	Kind Kind
	Bits int
}

// Predeclared datatypes.
var (
	Bool = Datatype{KindBool, 1}

	Int8   = Datatype{KindInt, 8}
	Int16  = Datatype{KindInt, 16}
	Int32  = Datatype{KindInt, 32}
	Int64  = Datatype{KindInt, 64}
	Int128 = Datatype{KindInt, 128}

	UInt8   = Datatype{KindUInt, 8}
	UInt16  = Datatype{KindUInt, 16}
	UInt32  = Datatype{KindUInt, 32}
	UInt64  = Datatype{KindUInt, 64}
	UInt128 = Datatype{KindUInt, 128}

	Float32 = Datatype{KindFloat, 32}
	Float64 = Datatype{KindFloat, 64}

	Complex64  = Datatype{KindComplex, 64}
	Complex128 = Datatype{KindComplex, 128}
)

func (t Datatype) IsBool() bool    { return t.Kind == KindBool }
func (t Datatype) IsInt() bool     { return t.Kind == KindInt }
func (t Datatype) IsUInt() bool    { return t.Kind == KindUInt }
func (t Datatype) IsFloat() bool   { return t.Kind == KindFloat }
func (t Datatype) IsComplex() bool { return t.Kind == KindComplex }

// IsInteger reports whether t is a signed or unsigned integer.
func (t Datatype) IsInteger() bool { return t.Kind == KindInt || t.Kind == KindUInt }

// NumBytes returns the storage size of one value of t.
// Bool occupies one byte.
func (t Datatype) NumBytes() int {
	if t.Bits < 8 {
		return 1
	}
	return t.Bits / 8
}

// String returns the canonical spelling used in IR documents ("int32", "float64").
func (t Datatype) String() string {
	if t.Kind == KindBool {
		return "bool"
	}
	return t.Kind.String() + strconv.Itoa(t.Bits)
}

// ParseDatatype is the inverse of Datatype.String.
func ParseDatatype(s string) (Datatype, error) {
	if s == "bool" {
		return Bool, nil
	}

	for _, k := range []Kind{KindUInt, KindInt, KindFloat, KindComplex} {
		prefix := k.String()
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		bits, err := strconv.Atoi(strings.TrimPrefix(s, prefix))
		if err != nil || bits <= 0 {
			return Datatype{}, fmt.Errorf("invalid datatype %q", s)
		}
		return Datatype{Kind: k, Bits: bits}, nil
	}

	return Datatype{}, fmt.Errorf("unknown datatype %q", s)
}

// LoopKind selects how a loop is to be executed.
type LoopKind int

const (
	Serial LoopKind = iota
	Parallel
	Vectorized
)

func (k LoopKind) String() string {
	switch k {
	case Serial:
		return "serial"
	case Parallel:
		return "parallel"
	case Vectorized:
		return "vectorized"
	default:
		return fmt.Sprintf("loopkind(%d)", int(k))
	}
}

// ParseLoopKind parses a loop kind; the empty string means Serial.
func ParseLoopKind(s string) (LoopKind, error) {
	switch s {
	case "", "serial":
		return Serial, nil
	case "parallel":
		return Parallel, nil
	case "vectorized":
		return Vectorized, nil
	default:
		return Serial, fmt.Errorf("unknown loop kind %q", s)
	}
}
