package scc

// Expr is any typed expression node. Besides its Type, every node
// carries two codegen-only fields the Generator mutates as it runs:
// the Register currently holding its value (if any) and a stack
// spill offset (if it was evicted from a register). The Checker never
// touches either.
type Expr interface {
	Type() Type
	SetType(Type)
	Reg() *Register
	SetReg(*Register)
	SpillOffset() int
	SetSpillOffset(int)
	IsLValue() bool
}

// exprBase is embedded by every concrete expression node except
// ParenExpr, which proxies these fields to its inner expression instead.
type exprBase struct {
	typ   Type
	reg   *Register
	spill int
}

func (e *exprBase) Type() Type             { return e.typ }
func (e *exprBase) SetType(t Type)         { e.typ = t }
func (e *exprBase) Reg() *Register         { return e.reg }
func (e *exprBase) SetReg(r *Register)     { e.reg = r }
func (e *exprBase) SpillOffset() int       { return e.spill }
func (e *exprBase) SetSpillOffset(o int)   { e.spill = o }
func (e *exprBase) IsLValue() bool         { return false }

type NumberExpr struct {
	exprBase
	Value int64
}

type StringExpr struct {
	exprBase
	// Bytes holds the decoded literal content, NOT including the C
	// string's trailing NUL terminator: the generator's .asciz
	// emission appends that terminator on its own, and Type.Length
	// (= len(Bytes)+1) accounts for it.
	Bytes []byte
}

type IdentExpr struct {
	exprBase
	Sym *Symbol
}

func (e *IdentExpr) IsLValue() bool { return e.typ.Tag == TypeScalar }

type CallExpr struct {
	exprBase
	Sym  *Symbol
	Args []Expr
}

type NotExpr struct {
	exprBase
	X Expr
}

type NegExpr struct {
	exprBase
	X Expr
}

type AddressExpr struct {
	exprBase
	X Expr
}

type DerefExpr struct {
	exprBase
	X Expr
}

func (e *DerefExpr) IsLValue() bool { return true }

type CastExpr struct {
	exprBase
	X      Expr
	Target Type
}

// ParenExpr wraps a parenthesized expression solely to strip its
// lvalue-ness ("(x) = 1" is not an assignment target even though "x = 1"
// is). It proxies everything else — type, register, spill slot — to the
// inner expression, so the generator never has to special-case it.
type ParenExpr struct {
	X Expr
}

func (e *ParenExpr) Type() Type           { return e.X.Type() }
func (e *ParenExpr) SetType(t Type)       { e.X.SetType(t) }
func (e *ParenExpr) Reg() *Register       { return e.X.Reg() }
func (e *ParenExpr) SetReg(r *Register)   { e.X.SetReg(r) }
func (e *ParenExpr) SpillOffset() int     { return e.X.SpillOffset() }
func (e *ParenExpr) SetSpillOffset(o int) { e.X.SetSpillOffset(o) }
func (e *ParenExpr) IsLValue() bool       { return false }

// BinOp enumerates every binary operator the Tree can carry.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpRemainder
	OpLessThan
	OpGreaterThan
	OpLessOrEqual
	OpGreaterOrEqual
	OpEqual
	OpNotEqual
	OpLogicalAnd
	OpLogicalOr
)

type BinaryExpr struct {
	exprBase
	Op   BinOp
	L, R Expr
}

// Stmt is any statement node.
type Stmt interface {
	isStmt()
}

type SimpleStmt struct{ Expr Expr }
type AssignStmt struct{ Left, Right Expr }
type ReturnStmt struct{ Expr Expr }

type WhileStmt struct {
	Cond Expr
	Body Stmt
}

type ForStmt struct {
	Init Stmt
	Cond Expr
	Incr Stmt
	Body Stmt
}

type IfStmt struct {
	Cond       Expr
	Then, Else Stmt
}

type BlockStmt struct {
	Scope *Scope
	Stmts []Stmt
}

func (*SimpleStmt) isStmt() {}
func (*AssignStmt) isStmt() {}
func (*ReturnStmt) isStmt() {}
func (*WhileStmt) isStmt()  {}
func (*ForStmt) isStmt()    {}
func (*IfStmt) isStmt()     {}
func (*BlockStmt) isStmt()  {}

// FunctionDecl is a defined function: one with a body, and therefore one
// the Allocator and Generator must process. Declared-only functions
// ("f();") never reach this far; they live only as Symbols in the
// outermost scope.
type FunctionDecl struct {
	Sym    *Symbol
	Params []*Symbol
	Body   *BlockStmt

	// LocalsOffset is the most negative stack offset consumed by the
	// Allocator's static pass over params/locals, before any codegen
	// spill slot is carved out. FrameSize is the final, 16-byte
	// aligned total, known only once the Generator finishes emitting
	// the body (spills can grow the frame further).
	LocalsOffset int
	FrameSize    int
}

// TranslationUnit is the parsed program: every defined function, plus
// the outermost scope holding every global, declared-only function and
// defined function's Symbol.
type TranslationUnit struct {
	Functions []*FunctionDecl
	Outermost *Scope
}
