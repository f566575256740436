package codegen

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/roach88/tensorgen/internal/ir"
)

// ifThenElse lowers to a diamond. The else block exists even when the IR has
// no else arm.
func (g *generator) ifThenElse(s *ir.IfThenElse) error {
	cond, err := g.condition(s.Cond)
	if err != nil {
		return err
	}

	n := g.next("if")
	thenBlock := g.newBlock(fmt.Sprintf("if_true_%d", n))
	elseBlock := g.newBlock(fmt.Sprintf("if_false_%d", n))
	after := g.newBlock(fmt.Sprintf("if_after_%d", n))

	g.block.NewCondBr(cond, thenBlock, elseBlock)

	for _, arm := range []struct {
		block *llvm.Block
		body  ir.Stmt
	}{{thenBlock, s.Then}, {elseBlock, s.Otherwise}} {
		g.setBlock(arm.block)
		g.props.enter()
		err := g.stmt(arm.body)
		g.props.leave()
		if err != nil {
			return err
		}
		g.block.NewBr(after)
	}

	g.setBlock(after)
	return nil
}

// while lowers a test-first loop:
//
//	pre:          %c0 = cond; br %c0, while_N, end_while_N
//	while_N:      %c = phi [%c0, pre], [%c1, exit]; body
//	exit:         %c1 = cond; br %c1, while_N, end_while_N
//	end_while_N:
func (g *generator) while(s *ir.While) error {
	if s.Kind != ir.Serial {
		return restrictionf(s.Kind.String()+" loop", "only serial while loops are lowered")
	}

	c0, err := g.condition(s.Cond)
	if err != nil {
		return err
	}

	n := g.next("while")
	header := g.newBlock(fmt.Sprintf("while_%d", n))
	end := g.newBlock(fmt.Sprintf("end_while_%d", n))

	pre := g.block
	pre.NewCondBr(c0, header, end)

	g.setBlock(header)
	phi := header.NewPhi(llvm.NewIncoming(c0, pre))
	phi.SetName(g.uniqueName(fmt.Sprintf("while_cond_%d", n)))

	g.props.enter()
	defer g.props.leave()
	if err := g.stmt(s.Contents); err != nil {
		return err
	}

	exit := g.block
	c1, err := g.condition(s.Cond)
	if err != nil {
		return err
	}
	phi.Incs = append(phi.Incs, llvm.NewIncoming(c1, exit))
	exit.NewCondBr(c1, header, end)

	g.setBlock(end)
	return nil
}

// forLoop lowers a counted loop over [start, end) with a phi for the
// induction variable. Start and end are evaluated once.
func (g *generator) forLoop(s *ir.For) error {
	if s.Kind != ir.Serial {
		return restrictionf(s.Kind.String()+" loop", "only serial for loops are lowered")
	}
	v, ok := s.Var.(*ir.Var)
	if !ok {
		return internalf(ErrCodeBadLoopVariable, "loop variable is %s, want var", opOf(s.Var))
	}

	start, end, err := g.operands(s.Start, s.End)
	if err != nil {
		return err
	}
	if _, ok := intBits(start.Type()); !ok {
		return internalf(ErrCodeTypeMismatch, "loop bounds of type %s", start.Type())
	}

	n := g.next("for")
	header := g.newBlock(fmt.Sprintf("for_%d", n))
	done := g.newBlock(fmt.Sprintf("end_for_%d", n))

	pre := g.block
	pre.NewCondBr(pre.NewICmp(enum.IPredSLT, start, end), header, done)

	g.setBlock(header)
	phi := header.NewPhi(llvm.NewIncoming(start, pre))
	phi.SetName(g.uniqueName(v.Name))

	g.props.enter()
	defer g.props.leave()
	g.syms.PushScope()
	if err := g.syms.Bind(v.Name, phi); err != nil {
		return err
	}
	if err := g.stmt(s.Contents); err != nil {
		return err
	}

	exit := g.block
	inc, err := g.expr(s.Increment)
	if err != nil {
		return err
	}
	if !sameType(inc, start) {
		return internalf(ErrCodeTypeMismatch, "increment of type %s for loop over %s", inc.Type(), start.Type())
	}
	next := exit.NewAdd(phi, inc)
	next.OverflowFlags = []enum.OverflowFlag{enum.OverflowFlagNSW}
	phi.Incs = append(phi.Incs, llvm.NewIncoming(next, exit))
	exit.NewCondBr(exit.NewICmp(enum.IPredSLT, next, end), header, done)

	if err := g.syms.PopScope(); err != nil {
		return err
	}
	g.setBlock(done)
	return nil
}

// switchStmt lowers to an LLVM switch whose default is the join block.
func (g *generator) switchStmt(s *ir.Switch) error {
	control, err := g.expr(s.Control)
	if err != nil {
		return err
	}
	ct, ok := control.Type().(*types.IntType)
	if !ok {
		return internalf(ErrCodeTypeMismatch, "switch on %s", control.Type())
	}

	n := g.next("switch")
	after := g.newBlock(fmt.Sprintf("switch_after_%d", n))

	seen := make(map[string]bool)
	blocks := make([]*llvm.Block, len(s.Cases))
	cases := make([]*llvm.Case, len(s.Cases))
	for i, c := range s.Cases {
		lit, ok := c.Value.(*ir.Literal)
		if !ok || !lit.Typ.IsUInt() || lit.Int == nil {
			return internalf(ErrCodeBadCaseLiteral, "case %d is %s, want unsigned literal", i, opOf(c.Value))
		}
		if lit.Int.Sign() < 0 || uint64(lit.Int.BitLen()) > ct.BitSize {
			return internalf(ErrCodeBadCaseLiteral, "case %d value %s does not fit %s", i, lit.Int, ct)
		}
		key := lit.Int.String()
		if seen[key] {
			return internalf(ErrCodeBadCaseLiteral, "duplicate case value %s", key)
		}
		seen[key] = true

		blocks[i] = g.newBlock(fmt.Sprintf("switch_case_%d_%d", n, i))
		cases[i] = llvm.NewCase(intConstant(ct, lit.Int), blocks[i])
	}

	g.block.NewSwitch(control, after, cases...)

	for i, c := range s.Cases {
		g.setBlock(blocks[i])
		g.props.enter()
		err := g.stmt(c.Body)
		g.props.leave()
		if err != nil {
			return err
		}
		g.block.NewBr(after)
	}

	g.setBlock(after)
	return nil
}

func opOf(e ir.Expr) string {
	if e == nil {
		return "nothing"
	}
	return e.Op()
}
