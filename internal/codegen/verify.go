package codegen

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Verification error codes (V001-V010).
const (
	ErrNoBlocks           = "V001" // function has no blocks
	ErrNoTerminator       = "V002" // block does not end in a terminator
	ErrPhiNotLeading      = "V003" // phi after a non-phi instruction
	ErrPhiPredecessors    = "V004" // phi incoming blocks differ from predecessors
	ErrForeignTarget      = "V005" // branch to a block of another function
	ErrEntryPredecessor   = "V006" // entry block is a branch target
	ErrReturnType         = "V007" // ret value differs from the signature
	ErrPhiIncomingType    = "V008" // phi incoming value of the wrong type
	ErrDuplicateFunction  = "V009" // two functions with one name
	ErrDuplicateBlockName = "V010" // two blocks with one name
)

// VerifyError is one structural defect in emitted LLVM IR.
type VerifyError struct {
	Code    string `json:"code"`
	Func    string `json:"func"`
	Block   string `json:"block,omitempty"`
	Message string `json:"message"`
}

func (e VerifyError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("[%s] %s/%s: %s", e.Code, e.Func, e.Block, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Func, e.Message)
}

// Verify checks every function defined in m and the module's name table.
// Functions without blocks are external declarations and are skipped.
// Returns all errors found (does not fail-fast).
func Verify(m *llvm.Module) []VerifyError {
	var errs []VerifyError
	for _, fn := range m.Funcs {
		if len(fn.Blocks) == 0 {
			continue
		}
		errs = append(errs, VerifyFunction(fn)...)
	}
	return append(errs, verifyNames(m)...)
}

// VerifyFunction checks the control-flow structure of one defined function.
func VerifyFunction(fn *llvm.Func) []VerifyError {
	name := fn.Name()
	if len(fn.Blocks) == 0 {
		return []VerifyError{{Code: ErrNoBlocks, Func: name, Message: "function has no blocks"}}
	}

	var errs []VerifyError
	report := func(code string, b *llvm.Block, format string, args ...any) {
		e := VerifyError{Code: code, Func: name, Message: fmt.Sprintf(format, args...)}
		if b != nil {
			e.Block = blockName(b)
		}
		errs = append(errs, e)
	}

	owned := make(map[*llvm.Block]bool, len(fn.Blocks))
	names := make(map[string]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		owned[b] = true
		if n := b.Name(); n != "" {
			if names[n] {
				report(ErrDuplicateBlockName, b, "block name %q used twice", n)
			}
			names[n] = true
		}
	}

	preds := make(map[*llvm.Block][]*llvm.Block)
	for _, b := range fn.Blocks {
		if b.Term == nil {
			report(ErrNoTerminator, b, "block has no terminator")
			continue
		}
		for _, succ := range b.Term.Succs() {
			if !owned[succ] {
				report(ErrForeignTarget, b, "branch to block %s outside the function", blockName(succ))
				continue
			}
			preds[succ] = append(preds[succ], b)
		}
		if ret, ok := b.Term.(*llvm.TermRet); ok {
			checkReturn(fn, b, ret, report)
		}
	}

	if len(preds[fn.Blocks[0]]) > 0 {
		report(ErrEntryPredecessor, fn.Blocks[0], "entry block has %d predecessors", len(preds[fn.Blocks[0]]))
	}

	for _, b := range fn.Blocks {
		leading := true
		for _, inst := range b.Insts {
			phi, ok := inst.(*llvm.InstPhi)
			if !ok {
				leading = false
				continue
			}
			if !leading {
				report(ErrPhiNotLeading, b, "phi %s follows a non-phi instruction", phi.Ident())
			}
			checkPhi(b, phi, preds[b], report)
		}
	}

	return errs
}

type reporter func(code string, b *llvm.Block, format string, args ...any)

func checkReturn(fn *llvm.Func, b *llvm.Block, ret *llvm.TermRet, report reporter) {
	want := fn.Sig.RetType
	switch {
	case ret.X == nil && !want.Equal(types.Void):
		report(ErrReturnType, b, "ret void in function returning %s", want)
	case ret.X != nil && !ret.X.Type().Equal(want):
		report(ErrReturnType, b, "ret %s in function returning %s", ret.X.Type(), want)
	}
}

func checkPhi(b *llvm.Block, phi *llvm.InstPhi, preds []*llvm.Block, report reporter) {
	if len(phi.Incs) == 0 {
		report(ErrPhiPredecessors, b, "phi %s has no incoming values", phi.Ident())
		return
	}

	want := phi.Incs[0].X.Type()
	incoming := make(map[value.Value]bool, len(phi.Incs))
	for _, inc := range phi.Incs {
		incoming[inc.Pred] = true
		if !inc.X.Type().Equal(want) {
			report(ErrPhiIncomingType, b, "phi %s incoming %s, want %s", phi.Ident(), inc.X.Type(), want)
		}
		if !containsBlock(preds, inc.Pred) {
			report(ErrPhiPredecessors, b, "phi %s names %s, which is not a predecessor", phi.Ident(), inc.Pred.Ident())
		}
	}
	for _, p := range preds {
		if !incoming[value.Value(p)] {
			report(ErrPhiPredecessors, b, "phi %s has no value for predecessor %s", phi.Ident(), blockName(p))
		}
	}
}

func containsBlock(blocks []*llvm.Block, v value.Value) bool {
	for _, b := range blocks {
		if value.Value(b) == v {
			return true
		}
	}
	return false
}

// verifyNames reports functions that share a name.
func verifyNames(m *llvm.Module) []VerifyError {
	var errs []VerifyError
	seen := make(map[string]bool, len(m.Funcs))
	for _, fn := range m.Funcs {
		name := fn.Name()
		if seen[name] {
			errs = append(errs, VerifyError{Code: ErrDuplicateFunction, Func: name, Message: "function defined more than once"})
		}
		seen[name] = true
	}
	return errs
}

func blockName(b *llvm.Block) string {
	if n := b.Name(); n != "" {
		return n
	}
	return b.Ident()
}
