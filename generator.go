package scc

import "fmt"

// Register is one slot of the generator's fixed scratch register file.
// Owner is the expression currently holding its value there, or nil if
// the register is free.
type Register struct {
	Name  string
	Owner Expr
}

// regFamily maps a 64-bit register's base name to its 1/4/8-byte AT&T
// names, since each operand width needs a different register name, not
// just a different mnemonic suffix.
var regFamily = map[string][3]string{
	"rax": {"al", "eax", "rax"},
	"rbx": {"bl", "ebx", "rbx"},
	"rcx": {"cl", "ecx", "rcx"},
	"rdx": {"dl", "edx", "rdx"},
	"rsi": {"sil", "esi", "rsi"},
	"rdi": {"dil", "edi", "rdi"},
	"r8":  {"r8b", "r8d", "r8"},
	"r9":  {"r9b", "r9d", "r9"},
	"r10": {"r10b", "r10d", "r10"},
	"r11": {"r11b", "r11d", "r11"},
}

func regNameSized(base string, size int) string {
	fam := regFamily[base]
	switch size {
	case SizeofChar:
		return "%" + fam[0]
	case SizeofInt:
		return "%" + fam[1]
	default:
		return "%" + fam[2]
	}
}

func suffixFor(size int) string {
	switch size {
	case SizeofChar:
		return "b"
	case SizeofInt:
		return "l"
	default:
		return "q"
	}
}

var jumpTable = map[BinOp][2]string{
	OpLessThan:       {"jl", "jge"},
	OpGreaterThan:    {"jg", "jle"},
	OpLessOrEqual:    {"jle", "jg"},
	OpGreaterOrEqual: {"jge", "jl"},
	OpEqual:          {"je", "jne"},
	OpNotEqual:       {"jne", "je"},
}

// jumpMnemonic returns the conditional jump testing op, for the "jump
// when the test is false" sense if jumpOnZero, or "jump when true"
// otherwise.
func jumpMnemonic(op BinOp, jumpOnZero bool) string {
	pair := jumpTable[op]
	if jumpOnZero {
		return pair[1]
	}
	return pair[0]
}

// Generator walks a checked, allocated TranslationUnit and emits AT&T
// syntax x86-64 assembly. It owns the scratch register pool and the
// current function's spill-offset cursor; both reset at the start of
// each function.
type Generator struct {
	out          *outputWriter
	pool         []*Register
	labelCounter int
	strings      map[string]string // content -> label
	stringOrder  []string
	stringBytes  map[string][]byte
	frameOffset  int
	minOffset    int
	currentFn    *FunctionDecl
}

func NewGenerator() *Generator {
	g := &Generator{
		out:         newOutputWriter("    "),
		strings:     map[string]string{},
		stringBytes: map[string][]byte{},
	}
	g.pool = make([]*Register, len(scratchOrder))
	for i, name := range scratchOrder {
		g.pool[i] = &Register{Name: name}
	}
	return g
}

func (g *Generator) regByName(name string) *Register {
	for _, r := range g.pool {
		if r.Name == name {
			return r
		}
	}
	panic("no such register: " + name)
}

func (g *Generator) newLabel() int {
	g.labelCounter++
	return g.labelCounter
}

func (g *Generator) emitLabel(label int) {
	g.out.writel(fmt.Sprintf(".L%d:", label))
}

// --- Register file discipline ---------------------------------------------

func (g *Generator) assign(e Expr, r *Register) {
	if old := e.Reg(); old != nil {
		old.Owner = nil
	}
	if r.Owner != nil {
		r.Owner.SetReg(nil)
	}
	r.Owner = e
	e.SetReg(r)
}

// getreg returns a free register, spilling the oldest scratch register
// (the first in pool order) to the stack if none are free.
func (g *Generator) getreg() *Register {
	for _, r := range g.pool {
		if r.Owner == nil {
			return r
		}
	}
	r := g.pool[0]
	g.spillReg(r)
	return r
}

// spillReg evicts r's current owner to a freshly carved stack slot.
func (g *Generator) spillReg(r *Register) {
	if r.Owner == nil {
		return
	}
	e := r.Owner
	g.frameOffset -= SizeofReg
	if g.frameOffset < g.minOffset {
		g.minOffset = g.frameOffset
	}
	off := g.frameOffset
	sz := e.Type().Size()
	g.out.writei(fmt.Sprintf("mov%s %s, %d(%%rbp)\n", suffixFor(sz), regNameSized(r.Name, sz), off))
	e.SetSpillOffset(off)
	r.Owner = nil
	e.SetReg(nil)
}

// load ensures e's value is resident in r, spilling r's current owner
// first if it holds something else.
func (g *Generator) load(e Expr, r *Register) {
	if e.Reg() == r {
		return
	}
	if r.Owner != nil {
		g.spillReg(r)
	}
	sz := e.Type().Size()
	g.out.writei(fmt.Sprintf("mov%s %s, %s\n", suffixFor(sz), g.operand(e), regNameSized(r.Name, sz)))
	g.assign(e, r)
}

// loadToAnyReg returns e's current register if it has one, else
// allocates one and loads e into it.
func (g *Generator) loadToAnyReg(e Expr) *Register {
	if r := e.Reg(); r != nil {
		return r
	}
	r := g.getreg()
	g.load(e, r)
	return r
}

func (g *Generator) freeExpr(e Expr) {
	if r := e.Reg(); r != nil {
		r.Owner = nil
		e.SetReg(nil)
	}
}

// operand renders e's current location: its register if resident, its
// spill slot if evicted, or its natural memory/immediate form.
func (g *Generator) operand(e Expr) string {
	if r := e.Reg(); r != nil {
		return regNameSized(r.Name, e.Type().Size())
	}
	if off := e.SpillOffset(); off != 0 {
		return fmt.Sprintf("%d(%%rbp)", off)
	}
	switch n := e.(type) {
	case *NumberExpr:
		return fmt.Sprintf("$%d", n.Value)
	case *IdentExpr:
		if n.Sym.Offset == 0 {
			return fmt.Sprintf("%s(%%rip)", n.Sym.Name)
		}
		return fmt.Sprintf("%d(%%rbp)", n.Sym.Offset)
	case *StringExpr:
		return fmt.Sprintf("%s(%%rip)", g.internString(n.Bytes))
	case *ParenExpr:
		return g.operand(n.X)
	default:
		panic(fmt.Sprintf("operand: %T has no memory form", e))
	}
}

func isSimpleOperand(e Expr) bool {
	switch e.(type) {
	case *NumberExpr, *IdentExpr, *StringExpr:
		return true
	default:
		return false
	}
}

func isMemoryOperand(e Expr) bool {
	switch e.(type) {
	case *IdentExpr, *StringExpr:
		return true
	default:
		return false
	}
}

func (g *Generator) internString(b []byte) string {
	key := string(b)
	if label, ok := g.strings[key]; ok {
		return label
	}
	label := fmt.Sprintf(".L.str%d", len(g.stringOrder))
	g.strings[key] = label
	g.stringOrder = append(g.stringOrder, label)
	g.stringBytes[label] = b
	return label
}

// --- Expressions ------------------------------------------------------

func (g *Generator) generate(e Expr) {
	switch n := e.(type) {
	case *NumberExpr, *IdentExpr, *StringExpr:
		// No code: materialized on demand via operand().
	case *ParenExpr:
		g.generate(n.X)
	case *BinaryExpr:
		g.generateBinary(n)
	case *NotExpr:
		g.generateNot(n)
	case *NegExpr:
		g.generateNegate(n)
	case *AddressExpr:
		g.generateAddress(n)
	case *DerefExpr:
		g.generateDeref(n)
	case *CastExpr:
		g.generateCast(n)
	case *CallExpr:
		g.generateCall(n)
	default:
		panic(fmt.Sprintf("generate: unhandled expression %T", e))
	}
}

func (g *Generator) generateBinary(e *BinaryExpr) {
	switch e.Op {
	case OpAdd:
		g.generateArith(e, "add")
	case OpSubtract:
		g.generateArith(e, "sub")
	case OpMultiply:
		g.generateArith(e, "imul")
	case OpDivide, OpRemainder:
		g.generateDivRem(e)
	case OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual, OpEqual, OpNotEqual:
		g.generateCompare(e)
	case OpLogicalAnd, OpLogicalOr:
		g.generateLogical(e)
	default:
		panic("generateBinary: unknown operator")
	}
}

func (g *Generator) generateArith(e *BinaryExpr, mnemonic string) {
	g.generate(e.L)
	g.generate(e.R)
	reg := g.loadToAnyReg(e.L)
	sz := e.Type().Size()
	rhs := g.operand(e.R)
	g.out.writei(fmt.Sprintf("%s%s %s, %s\n", mnemonic, suffixFor(sz), rhs, regNameSized(reg.Name, sz)))
	g.freeExpr(e.R)
	g.assign(e, reg)
}

func (g *Generator) generateDivRem(e *BinaryExpr) {
	g.generate(e.L)
	g.generate(e.R)
	raxReg := g.regByName("rax")
	rdxReg := g.regByName("rdx")
	rcxReg := g.regByName("rcx")
	g.load(e.L, raxReg)
	g.spillReg(rdxReg)
	g.load(e.R, rcxReg)
	sz := e.Type().Size()
	if sz == SizeofLong {
		g.out.writei("cqto\n")
	} else {
		g.out.writei("cltd\n")
	}
	g.out.writei(fmt.Sprintf("idiv%s %s\n", suffixFor(sz), regNameSized("rcx", sz)))
	g.freeExpr(e.R)
	if e.Op == OpDivide {
		g.assign(e, raxReg)
	} else {
		g.freeExpr(e.L)
		g.assign(e, rdxReg)
	}
}

func (g *Generator) generateNot(e *NotExpr) {
	g.generate(e.X)
	reg := g.loadToAnyReg(e.X)
	sz := e.X.Type().Size()
	g.out.writei(fmt.Sprintf("cmp%s $0, %s\n", suffixFor(sz), regNameSized(reg.Name, sz)))
	g.out.writei(fmt.Sprintf("sete %s\n", regNameSized(reg.Name, SizeofChar)))
	g.out.writei(fmt.Sprintf("movzbl %s, %s\n", regNameSized(reg.Name, SizeofChar), regNameSized(reg.Name, SizeofInt)))
	g.assign(e, reg)
}

func (g *Generator) generateNegate(e *NegExpr) {
	g.generate(e.X)
	reg := g.loadToAnyReg(e.X)
	sz := e.Type().Size()
	g.out.writei(fmt.Sprintf("neg%s %s\n", suffixFor(sz), regNameSized(reg.Name, sz)))
	g.assign(e, reg)
}

func (g *Generator) generateAddress(e *AddressExpr) {
	if d, ok := e.X.(*DerefExpr); ok {
		g.generate(d.X)
		reg := g.loadToAnyReg(d.X)
		g.assign(e, reg)
		return
	}
	g.generate(e.X)
	reg := g.getreg()
	g.out.writei(fmt.Sprintf("leaq %s, %s\n", g.operand(e.X), regNameSized(reg.Name, SizeofPtr)))
	g.assign(e, reg)
}

func (g *Generator) generateDeref(e *DerefExpr) {
	g.generate(e.X)
	reg := g.loadToAnyReg(e.X)
	sz := e.Type().Size()
	g.out.writei(fmt.Sprintf("mov%s (%s), %s\n", suffixFor(sz), regNameSized(reg.Name, SizeofPtr), regNameSized(reg.Name, sz)))
	g.assign(e, reg)
}

func (g *Generator) generateCast(e *CastExpr) {
	g.generate(e.X)
	srcSize := e.X.Type().Size()
	dstSize := e.Target.Size()
	reg := g.loadToAnyReg(e.X)
	if dstSize > srcSize {
		var mnemonic string
		switch {
		case srcSize == SizeofChar && dstSize == SizeofInt:
			mnemonic = "movsbl"
		case srcSize == SizeofChar && dstSize == SizeofLong:
			mnemonic = "movsbq"
		case srcSize == SizeofInt && dstSize == SizeofLong:
			mnemonic = "movslq"
		}
		g.out.writei(fmt.Sprintf("%s %s, %s\n", mnemonic, regNameSized(reg.Name, srcSize), regNameSized(reg.Name, dstSize)))
	}
	g.assign(e, reg)
}

func (g *Generator) generateCall(e *CallExpr) {
	for i := len(e.Args) - 1; i >= 0; i-- {
		g.generate(e.Args[i])
	}
	extra := 0
	if len(e.Args) > NumParamRegs {
		extra = len(e.Args) - NumParamRegs
	}
	pushBytes := extra * SizeofParam
	padded := pushBytes%StackAlignment != 0
	if padded {
		g.out.writei("subq $8, %rsp\n")
	}
	for i := len(e.Args) - 1; i >= NumParamRegs; i-- {
		g.out.writei(fmt.Sprintf("pushq %s\n", g.operand(e.Args[i])))
	}
	for _, r := range g.pool {
		if r.Owner != nil {
			g.spillReg(r)
		}
	}
	regArgCount := len(e.Args)
	if regArgCount > NumParamRegs {
		regArgCount = NumParamRegs
	}
	for i := 0; i < regArgCount; i++ {
		sz := e.Args[i].Type().Size()
		dst := g.regByName(paramRegOrder[i])
		g.out.writei(fmt.Sprintf("mov%s %s, %s\n", suffixFor(sz), g.operand(e.Args[i]), regNameSized(dst.Name, sz)))
	}
	if !e.Sym.Type.HasParams {
		g.out.writei("movl $0, %eax\n")
	}
	g.out.writei(fmt.Sprintf("call %s\n", e.Sym.Name))
	total := pushBytes
	if padded {
		total += 8
	}
	if total > 0 {
		g.out.writei(fmt.Sprintf("addq $%d, %%rsp\n", total))
	}
	g.assign(e, g.regByName("rax"))
}

// --- Conditions: test() materializes a boolean cond into a jump without
// leaving it resident in a register -----------------------------------

func (g *Generator) test(cond Expr, label int, jumpOnZero bool) {
	if b, ok := cond.(*BinaryExpr); ok {
		switch b.Op {
		case OpLogicalAnd:
			if jumpOnZero {
				g.test(b.L, label, true)
				g.test(b.R, label, true)
			} else {
				skip := g.newLabel()
				g.test(b.L, skip, true)
				g.test(b.R, label, false)
				g.emitLabel(skip)
			}
			return
		case OpLogicalOr:
			if !jumpOnZero {
				g.test(b.L, label, false)
				g.test(b.R, label, false)
			} else {
				skip := g.newLabel()
				g.test(b.L, skip, false)
				g.test(b.R, label, true)
				g.emitLabel(skip)
			}
			return
		case OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual:
			// Only the orderings branch directly on the comparison.
			// Equality conditions materialize their 0/1 value first and
			// fall through to the compare-against-zero below.
			g.testRelational(b, label, jumpOnZero)
			return
		}
	}
	g.generate(cond)
	reg := g.loadToAnyReg(cond)
	sz := cond.Type().Size()
	g.out.writei(fmt.Sprintf("cmp%s $0, %s\n", suffixFor(sz), regNameSized(reg.Name, sz)))
	g.freeExpr(cond)
	if jumpOnZero {
		g.out.writei(fmt.Sprintf("je .L%d\n", label))
	} else {
		g.out.writei(fmt.Sprintf("jne .L%d\n", label))
	}
}

// testRelational compares the two operands directly from their natural
// operand form where possible, only pulling a simple identifier/literal
// into a register when both sides are memory operands (cmp can't take
// two memory operands).
func (g *Generator) testRelational(b *BinaryExpr, label int, jumpOnZero bool) {
	var lhsReg *Register
	var lhsText string
	if isSimpleOperand(b.L) {
		lhsText = g.operand(b.L)
	} else {
		g.generate(b.L)
		lhsReg = g.loadToAnyReg(b.L)
		lhsText = regNameSized(lhsReg.Name, b.L.Type().Size())
	}

	if lhsReg == nil && isMemoryOperand(b.L) && isSimpleOperand(b.R) && isMemoryOperand(b.R) {
		g.generate(b.L)
		lhsReg = g.loadToAnyReg(b.L)
		lhsText = regNameSized(lhsReg.Name, b.L.Type().Size())
	}

	var rhsText string
	if isSimpleOperand(b.R) {
		rhsText = g.operand(b.R)
	} else {
		g.generate(b.R)
		rreg := g.loadToAnyReg(b.R)
		rhsText = regNameSized(rreg.Name, b.R.Type().Size())
		defer g.freeExpr(b.R)
	}

	sz := b.L.Type().Size()
	g.out.writei(fmt.Sprintf("cmp%s %s, %s\n", suffixFor(sz), rhsText, lhsText))
	if lhsReg != nil {
		g.freeExpr(b.L)
	}
	g.out.writei(fmt.Sprintf("%s .L%d\n", jumpMnemonic(b.Op, jumpOnZero), label))
}

func (g *Generator) generateCompare(e *BinaryExpr) {
	g.generate(e.L)
	g.generate(e.R)
	lreg := g.loadToAnyReg(e.L)
	sz := e.L.Type().Size()
	rhs := g.operand(e.R)
	g.out.writei(fmt.Sprintf("cmp%s %s, %s\n", suffixFor(sz), rhs, regNameSized(lreg.Name, sz)))
	g.freeExpr(e.R)
	g.freeExpr(e.L)
	reg := g.getreg()
	setcc := jumpMnemonic(e.Op, false)
	setcc = "set" + setcc[1:]
	g.out.writei(fmt.Sprintf("%s %s\n", setcc, regNameSized(reg.Name, SizeofChar)))
	g.out.writei(fmt.Sprintf("movzbl %s, %s\n", regNameSized(reg.Name, SizeofChar), regNameSized(reg.Name, SizeofInt)))
	g.assign(e, reg)
}

func (g *Generator) generateLogical(e *BinaryExpr) {
	reg := g.getreg()
	other := g.newLabel()
	end := g.newLabel()
	if e.Op == OpLogicalAnd {
		g.test(e.L, other, true)
		g.test(e.R, other, true)
		g.out.writei(fmt.Sprintf("movl $1, %s\n", regNameSized(reg.Name, SizeofInt)))
		g.out.writei(fmt.Sprintf("jmp .L%d\n", end))
		g.emitLabel(other)
		g.out.writei(fmt.Sprintf("movl $0, %s\n", regNameSized(reg.Name, SizeofInt)))
	} else {
		g.test(e.L, other, false)
		g.test(e.R, other, false)
		g.out.writei(fmt.Sprintf("movl $0, %s\n", regNameSized(reg.Name, SizeofInt)))
		g.out.writei(fmt.Sprintf("jmp .L%d\n", end))
		g.emitLabel(other)
		g.out.writei(fmt.Sprintf("movl $1, %s\n", regNameSized(reg.Name, SizeofInt)))
	}
	g.emitLabel(end)
	g.assign(e, reg)
}

// --- Statements ------------------------------------------------------------

func (g *Generator) generateStmt(s Stmt) {
	switch st := s.(type) {
	case *BlockStmt:
		g.generateBlock(st)
	case *SimpleStmt:
		g.generate(st.Expr)
		g.freeExpr(st.Expr)
	case *AssignStmt:
		g.generateAssignment(st)
	case *ReturnStmt:
		g.generateReturn(st)
	case *WhileStmt:
		g.generateWhile(st)
	case *ForStmt:
		g.generateFor(st)
	case *IfStmt:
		g.generateIf(st)
	default:
		panic(fmt.Sprintf("generateStmt: unhandled statement %T", s))
	}
}

func (g *Generator) generateBlock(b *BlockStmt) {
	for _, st := range b.Stmts {
		g.generateStmt(st)
		g.assertPoolEmpty()
	}
}

// assertPoolEmpty catches register leaks: every statement must release
// everything it pinned before the next one starts.
func (g *Generator) assertPoolEmpty() {
	for _, r := range g.pool {
		if r.Owner != nil {
			panic("register " + r.Name + " still bound between statements")
		}
	}
}

func (g *Generator) generateAssignment(s *AssignStmt) {
	if d, ok := s.Left.(*DerefExpr); ok {
		g.generate(d.X)
		g.generate(s.Right)
		preg := g.loadToAnyReg(d.X)
		rreg := g.loadToAnyReg(s.Right)
		sz := s.Left.Type().Size()
		g.out.writei(fmt.Sprintf("mov%s %s, (%s)\n", suffixFor(sz), regNameSized(rreg.Name, sz), regNameSized(preg.Name, SizeofPtr)))
		g.freeExpr(d.X)
		g.freeExpr(s.Right)
		return
	}
	g.generate(s.Right)
	rreg := g.loadToAnyReg(s.Right)
	sz := s.Left.Type().Size()
	g.out.writei(fmt.Sprintf("mov%s %s, %s\n", suffixFor(sz), regNameSized(rreg.Name, sz), g.operand(s.Left)))
	g.freeExpr(s.Right)
}

func (g *Generator) generateReturn(s *ReturnStmt) {
	g.generate(s.Expr)
	rax := g.regByName("rax")
	g.load(s.Expr, rax)
	g.freeExpr(s.Expr)
	g.out.writei(fmt.Sprintf("jmp %s.exit\n", g.currentFn.Sym.Name))
}

func (g *Generator) generateWhile(s *WhileStmt) {
	start := g.newLabel()
	end := g.newLabel()
	g.emitLabel(start)
	g.test(s.Cond, end, true)
	g.generateStmt(s.Body)
	g.out.writei(fmt.Sprintf("jmp .L%d\n", start))
	g.emitLabel(end)
}

func (g *Generator) generateFor(s *ForStmt) {
	g.generateStmt(s.Init)
	start := g.newLabel()
	end := g.newLabel()
	g.emitLabel(start)
	g.test(s.Cond, end, true)
	g.generateStmt(s.Body)
	g.generateStmt(s.Incr)
	g.out.writei(fmt.Sprintf("jmp .L%d\n", start))
	g.emitLabel(end)
}

func (g *Generator) generateIf(s *IfStmt) {
	if s.Else == nil {
		end := g.newLabel()
		g.test(s.Cond, end, true)
		g.generateStmt(s.Then)
		g.emitLabel(end)
		return
	}
	elseLabel := g.newLabel()
	end := g.newLabel()
	g.test(s.Cond, elseLabel, true)
	g.generateStmt(s.Then)
	g.out.writei(fmt.Sprintf("jmp .L%d\n", end))
	g.emitLabel(elseLabel)
	g.generateStmt(s.Else)
	g.emitLabel(end)
}

// --- Functions and translation unit -----------------------------------

func (g *Generator) generateFunction(fn *FunctionDecl) {
	g.currentFn = fn
	for _, r := range g.pool {
		r.Owner = nil
	}
	g.frameOffset = fn.LocalsOffset
	g.minOffset = fn.LocalsOffset

	name := fn.Sym.Name
	g.out.writel(name + ":")
	g.out.writei("pushq %rbp\n")
	g.out.writei("movq %rsp, %rbp\n")
	g.out.writei(fmt.Sprintf("movl $%s.size, %%eax\n", name))
	g.out.writei("subq %rax, %rsp\n")
	for i, p := range fn.Params {
		if i >= NumParamRegs {
			continue
		}
		g.out.writei(fmt.Sprintf("mov%s %s, %d(%%rbp)\n", suffixFor(p.Type.Size()), regNameSized(paramRegOrder[i], p.Type.Size()), p.Offset))
	}

	g.generateStmt(fn.Body)

	g.out.writel(name + ".exit:")
	g.out.writei("movq %rbp, %rsp\n")
	g.out.writei("popq %rbp\n")
	g.out.writei("ret\n")

	total := alignTo(-g.minOffset, StackAlignment)
	fn.FrameSize = total
	g.out.writel(fmt.Sprintf(".set %s.size, %d", name, total))
	g.out.writel(".globl " + name)
	g.currentFn = nil
}

func (g *Generator) emitGlobalsAndStrings(outermost *Scope) {
	for _, sym := range outermost.Symbols() {
		if sym.Type.Tag == TypeFunction {
			continue
		}
		g.out.writel(fmt.Sprintf(".comm %s, %d", sym.Name, sym.Type.Size()))
	}
	if len(g.stringOrder) == 0 {
		return
	}
	g.out.writel(".data")
	for _, label := range g.stringOrder {
		g.out.writel(label + ":")
		g.out.writel(fmt.Sprintf(".asciz \"%s\"", escapeForAsm(g.stringBytes[label])))
	}
}

// Generate lowers an entire checked, allocated translation unit to
// assembly text.
func (g *Generator) Generate(tu *TranslationUnit) string {
	for _, fn := range tu.Functions {
		g.generateFunction(fn)
	}
	g.emitGlobalsAndStrings(tu.Outermost)
	return g.out.String()
}
