package codegen

import (
	"fmt"
	"math"
	"testing"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/stretchr/testify/require"
)

// A small interpreter for the subset of LLVM IR the generator emits. Memory
// is cell-addressed: every pointer is an object plus an element offset, and
// bitcasts do not change addresses.

type object struct {
	cells []cell
}

type pointer struct {
	obj *object
	off int
}

type cell struct {
	i int64
	f float64
	p pointer
}

const maxSteps = 1_000_000

type machine struct {
	fn     *llvm.Func
	vals   map[value.Value]cell
	locals map[string]*object
	calls  map[string]int
	steps  int
}

// tensor is a descriptor handed to a generated function.
type tensor struct {
	dims []int64
	vals []cell
}

func (t *tensor) object() *object {
	dims := &object{}
	for _, d := range t.dims {
		dims.cells = append(dims.cells, cell{i: d})
	}
	vals := &object{cells: t.vals}
	desc := &object{cells: make([]cell, len(tensorFields))}
	desc.cells[0] = cell{i: int64(len(t.dims))}
	desc.cells[1] = cell{p: pointer{obj: dims}}
	desc.cells[6] = cell{p: pointer{obj: vals}}
	desc.cells[7] = cell{i: int64(len(t.vals))}
	return desc
}

func floats(vs ...float64) []cell {
	out := make([]cell, len(vs))
	for i, v := range vs {
		out[i] = cell{f: v}
	}
	return out
}

// run executes fn with the given tensors and returns the machine for
// inspecting locals.
func run(t *testing.T, fn *llvm.Func, args ...*tensor) (*machine, int64) {
	t.Helper()
	require.Len(t, fn.Params, len(args), "argument count")

	m := &machine{
		fn:     fn,
		vals:   make(map[value.Value]cell),
		locals: make(map[string]*object),
		calls:  make(map[string]int),
	}
	for i, p := range fn.Params {
		m.vals[p] = cell{p: pointer{obj: args[i].object()}}
	}
	ret, err := m.exec()
	require.NoError(t, err)
	return m, ret
}

// local reads the current value of a declared variable by slot name.
func (m *machine) local(name string) cell {
	obj, ok := m.locals[name]
	if !ok {
		panic(fmt.Sprintf("no local %q", name))
	}
	return obj.cells[0]
}

func (m *machine) exec() (int64, error) {
	var prev *llvm.Block
	cur := m.fn.Blocks[0]
	for {
		// Phis read their incoming values simultaneously on block entry.
		pending := map[value.Value]cell{}
		for _, inst := range cur.Insts {
			phi, ok := inst.(*llvm.InstPhi)
			if !ok {
				break
			}
			found := false
			for _, inc := range phi.Incs {
				if prev != nil && value.Value(prev) == inc.Pred {
					pending[phi] = m.get(inc.X)
					found = true
				}
			}
			if !found {
				return 0, fmt.Errorf("phi %s has no value for %v", phi.Ident(), prev)
			}
		}
		for k, v := range pending {
			m.vals[k] = v
		}

		for _, inst := range cur.Insts {
			if _, ok := inst.(*llvm.InstPhi); ok {
				continue
			}
			m.steps++
			if m.steps > maxSteps {
				return 0, fmt.Errorf("step limit exceeded")
			}
			if err := m.step(inst); err != nil {
				return 0, err
			}
		}

		next, ret, done, err := m.branch(cur.Term)
		if err != nil {
			return 0, err
		}
		if done {
			return ret, nil
		}
		prev, cur = cur, next
	}
}

func (m *machine) blockOf(v value.Value) (*llvm.Block, error) {
	for _, b := range m.fn.Blocks {
		if value.Value(b) == v {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown block %v", v)
}

func (m *machine) branch(term llvm.Terminator) (*llvm.Block, int64, bool, error) {
	switch term := term.(type) {
	case *llvm.TermRet:
		if term.X == nil {
			return nil, 0, true, nil
		}
		return nil, m.get(term.X).i, true, nil
	case *llvm.TermBr:
		b, err := m.blockOf(term.Target)
		return b, 0, false, err
	case *llvm.TermCondBr:
		target := term.TargetFalse
		if m.get(term.Cond).i != 0 {
			target = term.TargetTrue
		}
		b, err := m.blockOf(target)
		return b, 0, false, err
	case *llvm.TermSwitch:
		x := m.get(term.X).i
		bits := bitsOf(term.X.Type())
		for _, c := range term.Cases {
			if wrap(m.get(c.X).i, bits) == wrap(x, bits) {
				b, err := m.blockOf(c.Target)
				return b, 0, false, err
			}
		}
		b, err := m.blockOf(term.TargetDefault)
		return b, 0, false, err
	default:
		return nil, 0, false, fmt.Errorf("unsupported terminator %T", term)
	}
}

func (m *machine) get(v value.Value) cell {
	switch v := v.(type) {
	case *constant.Int:
		return cell{i: v.X.Int64()}
	case *constant.Float:
		if v.NaN {
			return cell{f: math.NaN()}
		}
		f, _ := v.X.Float64()
		return cell{f: f}
	}
	c, ok := m.vals[v]
	if !ok {
		panic(fmt.Sprintf("use of undefined value %s", v.Ident()))
	}
	return c
}

func bitsOf(t types.Type) uint64 {
	if it, ok := t.(*types.IntType); ok {
		return it.BitSize
	}
	return 64
}

// wrap sign-extends the low bits of v.
func wrap(v int64, bits uint64) int64 {
	if bits >= 64 {
		return v
	}
	shift := 64 - bits
	return v << shift >> shift
}

func unsigned(v int64, bits uint64) uint64 {
	if bits >= 64 {
		return uint64(v)
	}
	return uint64(v) & (1<<bits - 1)
}

func (m *machine) step(inst llvm.Instruction) error {
	switch inst := inst.(type) {
	case *llvm.InstAlloca:
		obj := &object{cells: make([]cell, 1)}
		if name := inst.Name(); name != "" {
			m.locals[name] = obj
		}
		m.vals[inst] = cell{p: pointer{obj: obj}}
	case *llvm.InstLoad:
		p := m.get(inst.Src).p
		if p.obj == nil || p.off < 0 || p.off >= len(p.obj.cells) {
			return fmt.Errorf("load out of bounds at %d", p.off)
		}
		m.vals[inst] = p.obj.cells[p.off]
	case *llvm.InstStore:
		p := m.get(inst.Dst).p
		if p.obj == nil || p.off < 0 || p.off >= len(p.obj.cells) {
			return fmt.Errorf("store out of bounds at %d", p.off)
		}
		p.obj.cells[p.off] = m.get(inst.Src)
	case *llvm.InstGetElementPtr:
		p := m.get(inst.Src).p
		idx := inst.Indices
		if st, ok := inst.ElemType.(*types.StructType); ok && len(idx) == 2 {
			p.off += int(m.get(idx[0]).i)*len(st.Fields) + int(m.get(idx[1]).i)
		} else {
			p.off += int(m.get(idx[0]).i)
		}
		m.vals[inst] = cell{p: p}
	case *llvm.InstBitCast:
		m.vals[inst] = m.get(inst.From)
	case *llvm.InstAdd:
		m.vals[inst] = cell{i: wrap(m.get(inst.X).i+m.get(inst.Y).i, bitsOf(inst.Type()))}
	case *llvm.InstSub:
		m.vals[inst] = cell{i: wrap(m.get(inst.X).i-m.get(inst.Y).i, bitsOf(inst.Type()))}
	case *llvm.InstMul:
		m.vals[inst] = cell{i: wrap(m.get(inst.X).i*m.get(inst.Y).i, bitsOf(inst.Type()))}
	case *llvm.InstSDiv:
		m.vals[inst] = cell{i: m.get(inst.X).i / m.get(inst.Y).i}
	case *llvm.InstUDiv:
		bits := bitsOf(inst.Type())
		m.vals[inst] = cell{i: wrap(int64(unsigned(m.get(inst.X).i, bits)/unsigned(m.get(inst.Y).i, bits)), bits)}
	case *llvm.InstFAdd:
		m.vals[inst] = cell{f: m.get(inst.X).f + m.get(inst.Y).f}
	case *llvm.InstFSub:
		m.vals[inst] = cell{f: m.get(inst.X).f - m.get(inst.Y).f}
	case *llvm.InstFMul:
		m.vals[inst] = cell{f: m.get(inst.X).f * m.get(inst.Y).f}
	case *llvm.InstFDiv:
		m.vals[inst] = cell{f: m.get(inst.X).f / m.get(inst.Y).f}
	case *llvm.InstAnd:
		m.vals[inst] = cell{i: m.get(inst.X).i & m.get(inst.Y).i}
	case *llvm.InstOr:
		m.vals[inst] = cell{i: m.get(inst.X).i | m.get(inst.Y).i}
	case *llvm.InstICmp:
		m.vals[inst] = boolCell(icmp(inst.Pred, m.get(inst.X).i, m.get(inst.Y).i, bitsOf(inst.X.Type())))
	case *llvm.InstFCmp:
		m.vals[inst] = boolCell(fcmp(inst.Pred, m.get(inst.X).f, m.get(inst.Y).f))
	case *llvm.InstTrunc:
		m.vals[inst] = cell{i: wrap(m.get(inst.From).i, bitsOf(inst.To))}
	case *llvm.InstSExt:
		m.vals[inst] = cell{i: wrap(m.get(inst.From).i, bitsOf(inst.From.Type()))}
	case *llvm.InstZExt:
		m.vals[inst] = cell{i: int64(unsigned(m.get(inst.From).i, bitsOf(inst.From.Type())))}
	case *llvm.InstFPExt:
		m.vals[inst] = m.get(inst.From)
	case *llvm.InstFPTrunc:
		m.vals[inst] = cell{f: float64(float32(m.get(inst.From).f))}
	case *llvm.InstSIToFP:
		m.vals[inst] = cell{f: float64(m.get(inst.From).i)}
	case *llvm.InstUIToFP:
		m.vals[inst] = cell{f: float64(unsigned(m.get(inst.From).i, bitsOf(inst.From.Type())))}
	case *llvm.InstFPToSI:
		m.vals[inst] = cell{i: wrap(int64(m.get(inst.From).f), bitsOf(inst.To))}
	case *llvm.InstFPToUI:
		m.vals[inst] = cell{i: wrap(int64(uint64(m.get(inst.From).f)), bitsOf(inst.To))}
	case *llvm.InstCall:
		return m.call(inst)
	default:
		return fmt.Errorf("unsupported instruction %T", inst)
	}
	return nil
}

func (m *machine) call(inst *llvm.InstCall) error {
	callee, ok := inst.Callee.(*llvm.Func)
	if !ok {
		return fmt.Errorf("indirect call")
	}
	name := callee.Name()
	m.calls[name]++

	args := make([]cell, len(inst.Args))
	for i, a := range inst.Args {
		args[i] = m.get(a)
	}
	bits := bitsOf(inst.Type())

	switch {
	case name == "malloc":
		m.vals[inst] = cell{p: pointer{obj: &object{cells: make([]cell, args[0].i)}}}
	case name == "llvm.sqrt.f32" || name == "llvm.sqrt.f64":
		m.vals[inst] = cell{f: math.Sqrt(args[0].f)}
	case name == "llvm.minimum.f32" || name == "llvm.minimum.f64":
		m.vals[inst] = cell{f: nanMin(args[0].f, args[1].f)}
	case name == "llvm.maximum.f32" || name == "llvm.maximum.f64":
		m.vals[inst] = cell{f: -nanMin(-args[0].f, -args[1].f)}
	case len(name) > 9 && name[:9] == "llvm.smin":
		m.vals[inst] = cell{i: min(args[0].i, args[1].i)}
	case len(name) > 9 && name[:9] == "llvm.smax":
		m.vals[inst] = cell{i: max(args[0].i, args[1].i)}
	case len(name) > 9 && name[:9] == "llvm.umin":
		m.vals[inst] = cell{i: wrap(int64(min(unsigned(args[0].i, bits), unsigned(args[1].i, bits))), bits)}
	case len(name) > 9 && name[:9] == "llvm.umax":
		m.vals[inst] = cell{i: wrap(int64(max(unsigned(args[0].i, bits), unsigned(args[1].i, bits))), bits)}
	default:
		return fmt.Errorf("call to unknown function %s", name)
	}
	return nil
}

// nanMin is the IEEE 754-2019 minimum: NaN if either operand is NaN, and
// -0 below +0.
func nanMin(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return math.Min(a, b)
}

func boolCell(b bool) cell {
	if b {
		return cell{i: 1}
	}
	return cell{}
}

func icmp(pred enum.IPred, x, y int64, bits uint64) bool {
	ux, uy := unsigned(x, bits), unsigned(y, bits)
	sx, sy := wrap(x, bits), wrap(y, bits)
	switch pred {
	case enum.IPredEQ:
		return ux == uy
	case enum.IPredNE:
		return ux != uy
	case enum.IPredSGT:
		return sx > sy
	case enum.IPredSGE:
		return sx >= sy
	case enum.IPredSLT:
		return sx < sy
	case enum.IPredSLE:
		return sx <= sy
	case enum.IPredUGT:
		return ux > uy
	case enum.IPredUGE:
		return ux >= uy
	case enum.IPredULT:
		return ux < uy
	case enum.IPredULE:
		return ux <= uy
	}
	panic(fmt.Sprintf("unsupported icmp predicate %v", pred))
}

func fcmp(pred enum.FPred, x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	switch pred {
	case enum.FPredOEQ:
		return x == y
	case enum.FPredONE:
		return x != y
	case enum.FPredOGT:
		return x > y
	case enum.FPredOGE:
		return x >= y
	case enum.FPredOLT:
		return x < y
	case enum.FPredOLE:
		return x <= y
	}
	panic(fmt.Sprintf("unsupported fcmp predicate %v", pred))
}
