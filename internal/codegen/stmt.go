package codegen

import (
	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/roach88/tensorgen/internal/ir"
)

// stmt lowers s at the current insertion point. On return the insertion
// point is an open block that falls through to whatever follows s.
func (g *generator) stmt(s ir.Stmt) error {
	switch s := s.(type) {
	case nil:
		return nil
	case *ir.Block:
		for _, child := range s.Contents {
			if err := g.stmt(child); err != nil {
				return err
			}
		}
		return nil
	case *ir.Scope:
		g.syms.PushScope()
		if err := g.stmt(s.Body); err != nil {
			return err
		}
		return g.syms.PopScope()
	case *ir.IfThenElse:
		return g.ifThenElse(s)
	case *ir.While:
		return g.while(s)
	case *ir.For:
		return g.forLoop(s)
	case *ir.Switch:
		return g.switchStmt(s)
	case *ir.Case:
		lowered, err := ir.DesugarCase(s)
		if err != nil {
			return internalf(ErrCodeMalformedIR, "%v", err)
		}
		return g.stmt(lowered)
	case *ir.VarAssign:
		return g.assign(s)
	case *ir.Store:
		return g.store(s)
	case *ir.Allocate:
		return g.allocate(s)
	case *ir.Comment, *ir.BlankLine:
		return nil
	case *ir.Function:
		return internalf(ErrCodeMalformedIR, "nested function %q", s.Name)
	default:
		return internalf(ErrCodeMalformedIR, "no lowering for statement %T", s)
	}
}

func (g *generator) assign(s *ir.VarAssign) error {
	rhs, err := g.expr(s.RHS)
	if err != nil {
		return err
	}

	if p, ok := s.LHS.(*ir.GetProperty); ok {
		if s.IsDecl {
			return internalf(ErrCodeMalformedIR, "cannot declare tensor property %s", p.Property)
		}
		return g.storeProperty(p, rhs)
	}

	v, ok := s.LHS.(*ir.Var)
	if !ok {
		return internalf(ErrCodeMalformedIR, "cannot assign to %s", s.LHS.Op())
	}

	if s.IsDecl {
		t, err := LLVMType(v.Typ)
		if err != nil {
			return err
		}
		if !rhs.Type().Equal(t) {
			return internalf(ErrCodeTypeMismatch, "declare %q of type %s from %s", v.Name, t, rhs.Type())
		}
		slot := g.slot(v.Name, t)
		if err := g.syms.Bind(v.Name, slot); err != nil {
			return err
		}
		g.block.NewStore(rhs, slot)
		return nil
	}

	slot, err := g.slotOf(v.Name)
	if err != nil {
		return err
	}
	if !rhs.Type().Equal(slot.ElemType) {
		return internalf(ErrCodeTypeMismatch, "assign %s to %q of type %s", rhs.Type(), v.Name, slot.ElemType)
	}
	g.block.NewStore(rhs, slot)
	return nil
}

// slotOf returns the stack slot name is bound to. Parameters and loop
// variables have no slot and cannot be assigned.
func (g *generator) slotOf(name string) (*llvm.InstAlloca, error) {
	bound, err := g.syms.Lookup(name)
	if err != nil {
		return nil, err
	}
	slot, ok := bound.(*llvm.InstAlloca)
	if !ok {
		return nil, internalf(ErrCodeMalformedIR, "%q is not assignable", name)
	}
	return slot, nil
}

func (g *generator) store(s *ir.Store) error {
	data, err := g.expr(s.Data)
	if err != nil {
		return err
	}
	addr, err := g.elementAddress(s.Arr, s.Loc, data.Type())
	if err != nil {
		return err
	}
	g.block.NewStore(data, addr)
	return nil
}

// allocate lowers malloc(count * sizeof(elem)) and stores the typed buffer
// into the variable, declaring its slot if this is the first allocation.
func (g *generator) allocate(s *ir.Allocate) error {
	v, ok := s.Var.(*ir.Var)
	if !ok {
		return internalf(ErrCodeMalformedIR, "allocate into %s, want var", s.Var.Op())
	}
	elem, err := LLVMType(v.Typ)
	if err != nil {
		return err
	}
	ptrType := types.NewPointer(elem)

	count, err := g.expr(s.NumElements)
	if err != nil {
		return err
	}
	count, err = g.convert(count, s.NumElements.Type(), types.I64, ir.Int64)
	if err != nil {
		return err
	}
	if _, ok := intBits(count.Type()); !ok {
		return internalf(ErrCodeTypeMismatch, "element count of type %s", count.Type())
	}

	size := g.block.NewMul(count, constant.NewInt(types.I64, int64(v.Typ.NumBytes())))
	raw := g.block.NewCall(g.unit.malloc(), size)
	buf := g.block.NewBitCast(raw, ptrType)

	slot, err := g.bufferSlot(v.Name, ptrType)
	if err != nil {
		return err
	}
	g.block.NewStore(buf, slot)
	return nil
}

func (g *generator) bufferSlot(name string, ptrType *types.PointerType) (*llvm.InstAlloca, error) {
	if !g.syms.Contains(name) {
		slot := g.slot(name, ptrType)
		if err := g.syms.Bind(name, slot); err != nil {
			return nil, err
		}
		return slot, nil
	}
	slot, err := g.slotOf(name)
	if err != nil {
		return nil, err
	}
	if !slot.ElemType.Equal(ptrType) {
		return nil, internalf(ErrCodeTypeMismatch, "allocate %s into %q of type %s", ptrType, name, slot.ElemType)
	}
	return slot, nil
}

// condition lowers a branch condition, which must be i1.
func (g *generator) condition(e ir.Expr) (value.Value, error) {
	c, err := g.expr(e)
	if err != nil {
		return nil, err
	}
	if !c.Type().Equal(types.I1) {
		return nil, internalf(ErrCodeTypeMismatch, "condition of type %s", c.Type())
	}
	return c, nil
}
