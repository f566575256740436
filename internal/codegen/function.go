package codegen

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/roach88/tensorgen/internal/ir"
)

// SuccessCode is the value every generated function returns.
const SuccessCode = 0

// Unit is one LLVM module under construction. Construct with NewUnit; the
// zero value is not usable.
type Unit struct {
	mu sync.Mutex

	module     *llvm.Module
	tensorType types.Type
	tensorPtr  *types.PointerType
	decls      map[string]*llvm.Func
	artifacts  []*Artifact
	logger     *slog.Logger
}

// Artifact is one compiled function inside a unit.
type Artifact struct {
	Name   string
	Func   *llvm.Func
	Params []string
}

// UnitOption configures a Unit.
type UnitOption func(*Unit)

// WithTargetTriple sets the module's target triple.
func WithTargetTriple(triple string) UnitOption {
	return func(u *Unit) {
		u.module.TargetTriple = triple
	}
}

// WithDataLayout sets the module's data layout string.
func WithDataLayout(layout string) UnitOption {
	return func(u *Unit) {
		u.module.DataLayout = layout
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) UnitOption {
	return func(u *Unit) {
		u.logger = logger
	}
}

// NewUnit creates an empty module named name with the tensor descriptor
// type already defined.
func NewUnit(name string, opts ...UnitOption) *Unit {
	m := llvm.NewModule()
	m.SourceFilename = name

	u := &Unit{
		module: m,
		decls:  make(map[string]*llvm.Func),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	u.tensorType = m.NewTypeDef(TensorTypeName, newTensorStruct())
	u.tensorPtr = types.NewPointer(u.tensorType)

	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Module returns the underlying LLVM module.
func (u *Unit) Module() *llvm.Module {
	return u.module
}

// Artifacts returns the successfully compiled functions in compile order.
func (u *Unit) Artifacts() []*Artifact {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*Artifact(nil), u.artifacts...)
}

// String prints the module as LLVM assembly.
func (u *Unit) String() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.module.String()
}

// Compile lowers f into the unit. On error nothing of f remains in the module.
func (u *Unit) Compile(f *ir.Function) (*Artifact, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if f == nil || f.Name == "" {
		return nil, internalf(ErrCodeMalformedIR, "function has no name")
	}
	if reservedName(f.Name) {
		return nil, withFunc(internalf(ErrCodeReservedName, "function name %q is reserved for declarations", f.Name), f.Name)
	}
	if u.lookupFunc(f.Name) != nil {
		return nil, withFunc(internalf(ErrCodeMalformedIR, "function %q already defined in unit", f.Name), f.Name)
	}

	g := newGenerator(u, f)
	if err := g.emit(); err != nil {
		u.removeFunc(g.fn)
		return nil, withFunc(err, f.Name)
	}

	if errs := VerifyFunction(g.fn); len(errs) > 0 {
		u.removeFunc(g.fn)
		return nil, verifyFailure(f.Name, errs)
	}
	if errs := verifyNames(u.module); len(errs) > 0 {
		u.removeFunc(g.fn)
		return nil, verifyFailure(f.Name, errs)
	}

	art := &Artifact{Name: f.Name, Func: g.fn, Params: g.paramNames}
	u.artifacts = append(u.artifacts, art)

	u.logger.Debug("compiled function",
		"func", f.Name,
		"params", len(g.paramNames),
		"blocks", len(g.fn.Blocks),
	)
	return art, nil
}

func (u *Unit) lookupFunc(name string) *llvm.Func {
	for _, fn := range u.module.Funcs {
		if fn.Name() == name {
			return fn
		}
	}
	return nil
}

func (u *Unit) removeFunc(fn *llvm.Func) {
	if fn == nil {
		return
	}
	funcs := u.module.Funcs[:0]
	for _, other := range u.module.Funcs {
		if other != fn {
			funcs = append(funcs, other)
		}
	}
	u.module.Funcs = funcs
}

func withFunc(err error, name string) error {
	var ie *InternalError
	if errors.As(err, &ie) && ie.Func == "" {
		ie.Func = name
	}
	return err
}

func verifyFailure(name string, errs []VerifyError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return &InternalError{
		Code:    ErrCodeVerifyFailed,
		Message: strings.Join(msgs, "; "),
		Func:    name,
	}
}

// generator lowers one function. It is created per Compile call and is not
// reentrant.
type generator struct {
	unit *Unit
	src  *ir.Function

	fn         *llvm.Func
	entry      *llvm.Block
	block      *llvm.Block
	paramNames []string

	syms  *SymbolTable
	props *propertyCache

	names    map[string]bool
	counters map[string]int
}

func newGenerator(u *Unit, f *ir.Function) *generator {
	return &generator{
		unit:     u,
		src:      f,
		syms:     NewSymbolTable(),
		props:    newPropertyCache(),
		names:    make(map[string]bool),
		counters: make(map[string]int),
	}
}

func (g *generator) emit() error {
	if err := g.begin(); err != nil {
		return err
	}
	if g.src.Body != nil {
		g.props.markWritten(g.src.Body)
		if err := g.stmt(g.src.Body); err != nil {
			return err
		}
	}
	g.block.NewRet(constant.NewInt(types.I32, SuccessCode))
	return g.syms.PopScope()
}

// begin declares the function, opens the entry block and binds parameters
// in the function scope.
func (g *generator) begin() error {
	var (
		vars   []*ir.Var
		params []*llvm.Param
	)
	for i, p := range g.src.Params() {
		v, ok := p.(*ir.Var)
		if !ok {
			return internalf(ErrCodeMalformedIR, "parameter %d is %s, want var", i, opOf(p))
		}
		if slices.Contains(g.paramNames, v.Name) {
			return internalf(ErrCodeMalformedIR, "parameter %q appears twice", v.Name)
		}
		param := llvm.NewParam(g.uniqueName(v.Name), g.unit.tensorPtr)
		param.Attrs = append(param.Attrs, enum.ParamAttrNoAlias)
		vars = append(vars, v)
		params = append(params, param)
		g.paramNames = append(g.paramNames, v.Name)
	}

	g.fn = g.unit.module.NewFunc(g.src.Name, types.I32, params...)
	g.entry = g.newBlock("entry")
	g.setBlock(g.entry)

	g.syms.PushScope()
	for i, v := range vars {
		if err := g.syms.Bind(v.Name, params[i]); err != nil {
			return err
		}
	}
	return nil
}

// newBlock creates a detached block. It joins the function when setBlock
// first positions the generator in it, so blocks appear in emission order.
func (g *generator) newBlock(name string) *llvm.Block {
	b := llvm.NewBlock(g.uniqueName(name))
	b.Parent = g.fn
	return b
}

func (g *generator) setBlock(b *llvm.Block) {
	attached := false
	for _, existing := range g.fn.Blocks {
		if existing == b {
			attached = true
			break
		}
	}
	if !attached {
		g.fn.Blocks = append(g.fn.Blocks, b)
	}
	g.block = b
}

// uniqueName returns base, or base with a numeric suffix if base is taken.
// Blocks and values share one namespace per function.
func (g *generator) uniqueName(base string) string {
	name := base
	for i := 1; g.names[name]; i++ {
		name = fmt.Sprintf("%s.%d", base, i)
	}
	g.names[name] = true
	return name
}

// next returns the per-function sequence number for a construct kind.
func (g *generator) next(kind string) int {
	n := g.counters[kind]
	g.counters[kind] = n + 1
	return n
}

// slot declares a stack slot in the entry block.
func (g *generator) slot(name string, t types.Type) *llvm.InstAlloca {
	a := g.entry.NewAlloca(t)
	a.SetName(g.uniqueName(name))
	return a
}

func i32(v int64) *constant.Int {
	return constant.NewInt(types.I32, v)
}

func sameType(a, b value.Value) bool {
	return a.Type().Equal(b.Type())
}
