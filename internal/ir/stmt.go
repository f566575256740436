package ir

// Stmt is a closed set of statement nodes.
type Stmt interface {
	// Op is the node's tag in IR documents and canonical encoding.
	Op() string
	stmtNode()
}

// Block is a sequence of statements executed in order.
type Block struct {
	Contents []Stmt
}

// IfThenElse executes Then when Cond holds and Otherwise (which may be nil)
// when it does not.
type IfThenElse struct {
	Cond      Expr
	Then      Stmt
	Otherwise Stmt
}

// While executes Contents while Cond holds, testing before every iteration.
type While struct {
	Cond     Expr
	Contents Stmt
	Kind     LoopKind
}

// For iterates Var from Start while Var < End, adding Increment after each
// iteration. Var must be a *Var.
type For struct {
	Var       Expr
	Start     Expr
	End       Expr
	Increment Expr
	Contents  Stmt
	Kind      LoopKind
}

// SwitchCase is one arm of a Switch. Value must be an unsigned integer literal.
type SwitchCase struct {
	Value Expr
	Body  Stmt
}

// Switch executes the body of the case whose value equals Control.
// No case matching is not an error; nothing executes.
type Switch struct {
	Control Expr
	Cases   []SwitchCase
}

// Clause is one condition/body pair of a Case.
type Clause struct {
	Cond Expr
	Body Stmt
}

// Case executes the body of the first clause whose condition holds.
// AlwaysMatch promises that some clause always holds.
type Case struct {
	Clauses     []Clause
	AlwaysMatch bool
}

// VarAssign stores RHS into LHS. With IsDecl the variable named by LHS is
// declared first. LHS is a *Var or a *GetProperty.
type VarAssign struct {
	LHS    Expr
	RHS    Expr
	IsDecl bool
}

// Store writes Data to element Loc of the buffer Arr.
type Store struct {
	Arr  Expr
	Loc  Expr
	Data Expr
}

// Allocate reserves NumElements elements of Var's type and stores the
// buffer into Var. Var must be a *Var.
type Allocate struct {
	Var         Expr
	NumElements Expr
}

// Scope introduces a lexical scope around Body.
type Scope struct {
	Body Stmt
}

// Comment and BlankLine carry no semantics; they exist for the source backend.
type Comment struct {
	Text string
}

type BlankLine struct{}

// Function is the unit of compilation. Inputs and Outputs are tensor
// variables (*Var) in parameter order.
type Function struct {
	Name    string
	Inputs  []Expr
	Outputs []Expr
	Body    Stmt
}

// Params returns inputs followed by outputs.
func (f *Function) Params() []Expr {
	params := make([]Expr, 0, len(f.Inputs)+len(f.Outputs))
	params = append(params, f.Inputs...)
	params = append(params, f.Outputs...)
	return params
}

func (*Block) Op() string      { return "block" }
func (*IfThenElse) Op() string { return "if" }
func (*While) Op() string      { return "while" }
func (*For) Op() string        { return "for" }
func (*Switch) Op() string     { return "switch" }
func (*Case) Op() string       { return "case" }
func (*VarAssign) Op() string  { return "assign" }
func (*Store) Op() string      { return "store" }
func (*Allocate) Op() string   { return "allocate" }
func (*Scope) Op() string      { return "scope" }
func (*Comment) Op() string    { return "comment" }
func (*BlankLine) Op() string  { return "blank" }
func (*Function) Op() string   { return "function" }

func (*Block) stmtNode()      {}
func (*IfThenElse) stmtNode() {}
func (*While) stmtNode()      {}
func (*For) stmtNode()        {}
func (*Switch) stmtNode()     {}
func (*Case) stmtNode()       {}
func (*VarAssign) stmtNode()  {}
func (*Store) stmtNode()      {}
func (*Allocate) stmtNode()   {}
func (*Scope) stmtNode()      {}
func (*Comment) stmtNode()    {}
func (*BlankLine) stmtNode()  {}
func (*Function) stmtNode()   {}

// NewBlock returns a block of the given statements.
func NewBlock(stmts ...Stmt) *Block {
	return &Block{Contents: stmts}
}
