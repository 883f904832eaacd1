package scc

// Checker owns the scope chain and implements every semantic rule the
// Parser invokes production-by-production: declaring symbols, looking
// identifiers up, and type-checking each operator as its operands
// become available. Every Check* method returns a fully typed Tree
// node even on error, so the Parser never has to special-case failure —
// it just keeps building the tree around an Error-typed node.
type Checker struct {
	Outermost *Scope
	Toplevel  *Scope
	Diags     *Diagnostics

	definedFunctions map[string]bool
}

func NewChecker(diags *Diagnostics) *Checker {
	outer := NewScope(nil)
	return &Checker{
		Outermost:        outer,
		Toplevel:         outer,
		Diags:            diags,
		definedFunctions: map[string]bool{},
	}
}

func (c *Checker) OpenScope() *Scope {
	c.Toplevel = NewScope(c.Toplevel)
	return c.Toplevel
}

func (c *Checker) CloseScope() *Scope {
	s := c.Toplevel
	c.Toplevel = s.Enclosing()
	return s
}

func anyError(exprs ...Expr) bool {
	for _, e := range exprs {
		if e.Type().IsError() {
			return true
		}
	}
	return false
}

// --- Declarations -----------------------------------------------------

// Declare binds name to t in scope. A void-typed, non-pointer variable
// is rejected ("'%s' has type void"); redeclaring the same name in the
// same scope with the same type is reported but the original binding is
// kept, and a conflicting redeclaration is reported and also keeps the
// original, per the "redeclarations are discarded" invariant.
func (c *Checker) Declare(scope *Scope, name string, t Type) *Symbol {
	if t.Tag == TypeScalar && t.Indirection == 0 && t.Spec == SpecVoid {
		c.Diags.Report("'%s' has type void", name)
		t = ErrorType
	}
	if existing, ok := scope.Find(name); ok {
		if existing.Type.Equals(t) {
			c.Diags.Report("redeclaration of '%s'", name)
		} else {
			c.Diags.Report("conflicting types for '%s'", name)
		}
		return existing
	}
	sym := &Symbol{Name: name, Type: t}
	scope.Insert(sym)
	return sym
}

// DeclareFunction records a function declaration with no body ("f();").
func (c *Checker) DeclareFunction(name string, t Type) *Symbol {
	if existing, ok := c.Outermost.Find(name); ok {
		if !existing.Type.Equals(t) {
			c.Diags.Report("conflicting types for '%s'", name)
		}
		return existing
	}
	sym := &Symbol{Name: name, Type: t}
	c.Outermost.Insert(sym)
	return sym
}

// DefineFunction records (or replaces) the Symbol for a function about
// to be given a body. Giving a second body to an already-defined
// function is a redefinition (reported as such, whatever its signature);
// defining a previously declared function with a mismatched signature is
// a conflicting-types error. Either way, the new signature replaces the
// old one, per "function redefinition replaces any earlier
// definition/declaration."
func (c *Checker) DefineFunction(name string, t Type) *Symbol {
	existing, ok := c.Outermost.Find(name)
	if !ok {
		sym := &Symbol{Name: name, Type: t}
		c.Outermost.Insert(sym)
		c.definedFunctions[name] = true
		return sym
	}
	if c.definedFunctions[name] {
		c.Diags.Report("redefinition of '%s'", name)
	} else if !existing.Type.Equals(t) {
		c.Diags.Report("conflicting types for '%s'", name)
	}
	existing.Type = t
	c.definedFunctions[name] = true
	return existing
}

// LookupIdentifier resolves name through the scope chain. An undeclared
// identifier is reported once and then inserted with Error type into the
// current scope, so later uses in the same scope don't cascade.
func (c *Checker) LookupIdentifier(name string) *Symbol {
	if sym, ok := c.Toplevel.Lookup(name); ok {
		return sym
	}
	c.Diags.Report("'%s' undeclared", name)
	sym := &Symbol{Name: name, Type: ErrorType}
	c.Toplevel.Insert(sym)
	return sym
}

// --- Conversions used by several rules ---------------------------------

// promoteExpr applies Type.Promote, wrapping the node in the Tree
// construct that performs the conversion at codegen time: an array
// decaying to a pointer is wrapped in Address; a char widening to int is
// wrapped in a Cast.
func (c *Checker) promoteExpr(e Expr) Expr {
	t := e.Type()
	pt := t.Promote()
	if pt.Equals(t) {
		return e
	}
	if t.Tag == TypeArray {
		return &AddressExpr{exprBase: exprBase{typ: pt}, X: e}
	}
	return &CastExpr{exprBase: exprBase{typ: pt}, X: e, Target: pt}
}

// extendTo widens e (already promoted) to target, folding the
// conversion into the literal when e is a compile-time Number instead
// of emitting a Cast.
func (c *Checker) extendTo(e Expr, target Type) Expr {
	if e.Type().Equals(target) {
		return e
	}
	if num, ok := e.(*NumberExpr); ok {
		return &NumberExpr{exprBase: exprBase{typ: target}, Value: num.Value}
	}
	return &CastExpr{exprBase: exprBase{typ: target}, X: e, Target: target}
}

// convert implements assignment conversion: an array source promotes to
// a pointer only when the target is itself a pointer, then a numeric
// source narrows or widens to a numeric target via Cast (folded when the
// source is a literal). Unlike extendTo, convert narrows freely.
func (c *Checker) convert(e Expr, target Type) Expr {
	result := e
	if e.Type().Tag == TypeArray && target.IsPointer() {
		addrType := e.Type().AddressOf()
		result = &AddressExpr{exprBase: exprBase{typ: addrType}, X: e}
	}
	if result.Type().IsNumeric() && target.IsNumeric() && !result.Type().Equals(target) {
		if num, ok := result.(*NumberExpr); ok {
			return &NumberExpr{exprBase: exprBase{typ: target}, Value: truncate(num.Value, target.Size())}
		}
		return &CastExpr{exprBase: exprBase{typ: target}, X: result, Target: target}
	}
	return result
}

// scalePointerArithmetic extends e to long and multiplies it by
// elemSize, folding the multiplication into a literal when e is a
// compile-time Number.
func (c *Checker) scalePointerArithmetic(e Expr, elemSize int) Expr {
	longType := scalarType(SpecLong, 0)
	ext := c.extendTo(e, longType)
	if num, ok := ext.(*NumberExpr); ok {
		return &NumberExpr{exprBase: exprBase{typ: longType}, Value: num.Value * int64(elemSize)}
	}
	return &BinaryExpr{
		exprBase: exprBase{typ: longType},
		Op:       OpMultiply,
		L:        ext,
		R:        &NumberExpr{exprBase: exprBase{typ: longType}, Value: int64(elemSize)},
	}
}

// --- Primary expressions -----------------------------------------------

func (c *Checker) CheckNumber(value int64) Expr {
	spec := SpecInt
	if value > 0x7fffffff {
		spec = SpecLong
	}
	return &NumberExpr{exprBase: exprBase{typ: scalarType(spec, 0)}, Value: value}
}

func (c *Checker) CheckString(raw string) Expr {
	bytes := unescapeString(raw)
	t := Type{Tag: TypeArray, Spec: SpecChar, Length: uint64(len(bytes) + 1)}
	return &StringExpr{exprBase: exprBase{typ: t}, Bytes: bytes}
}

func (c *Checker) CheckIdentifier(name string) Expr {
	sym := c.LookupIdentifier(name)
	return &IdentExpr{exprBase: exprBase{typ: sym.Type}, Sym: sym}
}

func (c *Checker) CheckParen(e Expr) Expr {
	return &ParenExpr{X: e}
}

// --- Unary operators -----------------------------------------------------

func (c *Checker) CheckNot(x Expr) Expr {
	if anyError(x) {
		return &NotExpr{exprBase: exprBase{typ: ErrorType}, X: x}
	}
	if !x.Type().IsPredicate() {
		c.Diags.Report("invalid operand to unary %s", "!")
		return &NotExpr{exprBase: exprBase{typ: ErrorType}, X: x}
	}
	return &NotExpr{exprBase: exprBase{typ: scalarType(SpecInt, 0)}, X: x}
}

func (c *Checker) CheckNegate(x Expr) Expr {
	if anyError(x) {
		return &NegExpr{exprBase: exprBase{typ: ErrorType}, X: x}
	}
	if !x.Type().IsNumeric() {
		c.Diags.Report("invalid operand to unary %s", "-")
		return &NegExpr{exprBase: exprBase{typ: ErrorType}, X: x}
	}
	px := c.promoteExpr(x)
	return &NegExpr{exprBase: exprBase{typ: px.Type()}, X: px}
}

func (c *Checker) CheckDeref(x Expr) Expr {
	if anyError(x) {
		return &DerefExpr{exprBase: exprBase{typ: ErrorType}, X: x}
	}
	px := c.promoteExpr(x)
	if !px.Type().IsPointer() || px.Type().IsVoidPointer() {
		c.Diags.Report("invalid operand to unary %s", "*")
		return &DerefExpr{exprBase: exprBase{typ: ErrorType}, X: px}
	}
	return &DerefExpr{exprBase: exprBase{typ: px.Type().Deref()}, X: px}
}

func (c *Checker) CheckAddress(x Expr) Expr {
	if anyError(x) {
		return &AddressExpr{exprBase: exprBase{typ: ErrorType}, X: x}
	}
	if !x.IsLValue() {
		c.Diags.Report("lvalue required in expression")
		return &AddressExpr{exprBase: exprBase{typ: ErrorType}, X: x}
	}
	return &AddressExpr{exprBase: exprBase{typ: x.Type().AddressOf()}, X: x}
}

func (c *Checker) CheckSizeof(x Expr) Expr {
	if anyError(x) {
		return &NumberExpr{exprBase: exprBase{typ: ErrorType}}
	}
	if !x.Type().IsPredicate() {
		c.Diags.Report("invalid operand to unary %s", "sizeof")
		return &NumberExpr{exprBase: exprBase{typ: ErrorType}}
	}
	return &NumberExpr{exprBase: exprBase{typ: scalarType(SpecLong, 0)}, Value: int64(x.Type().Size())}
}

// --- Postfix -------------------------------------------------------------

func (c *Checker) CheckIndex(e1, e2 Expr) Expr {
	if anyError(e1, e2) {
		return &DerefExpr{exprBase: exprBase{typ: ErrorType}, X: e1}
	}
	pe1 := c.promoteExpr(e1)
	if !pe1.Type().IsPointer() || pe1.Type().IsVoidPointer() || !e2.Type().IsNumeric() {
		c.Diags.Report("invalid operands to binary %s", "[]")
		return &DerefExpr{exprBase: exprBase{typ: ErrorType}, X: pe1}
	}
	elem := pe1.Type().Deref()
	scaled := c.scalePointerArithmetic(e2, elem.Size())
	add := &BinaryExpr{exprBase: exprBase{typ: pe1.Type()}, Op: OpAdd, L: pe1, R: scaled}
	return &DerefExpr{exprBase: exprBase{typ: elem}, X: add}
}

func (c *Checker) CheckCall(sym *Symbol, args []Expr) Expr {
	if sym.Type.IsError() {
		return &CallExpr{exprBase: exprBase{typ: ErrorType}, Sym: sym, Args: args}
	}
	if sym.Type.Tag != TypeFunction {
		c.Diags.Report("called object is not a function")
		return &CallExpr{exprBase: exprBase{typ: ErrorType}, Sym: sym, Args: args}
	}
	if !sym.Type.HasParams {
		for i, a := range args {
			if a.Type().IsError() {
				return &CallExpr{exprBase: exprBase{typ: ErrorType}, Sym: sym, Args: args}
			}
			pa := c.promoteExpr(a)
			if !pa.Type().IsPredicate() {
				c.Diags.Report("invalid arguments to called function")
				return &CallExpr{exprBase: exprBase{typ: ErrorType}, Sym: sym, Args: args}
			}
			args[i] = pa
		}
		return &CallExpr{exprBase: exprBase{typ: sym.Type.ReturnType()}, Sym: sym, Args: args}
	}
	if len(args) != len(sym.Type.Params) {
		c.Diags.Report("invalid arguments to called function")
		return &CallExpr{exprBase: exprBase{typ: ErrorType}, Sym: sym, Args: args}
	}
	for i, a := range args {
		if a.Type().IsError() {
			return &CallExpr{exprBase: exprBase{typ: ErrorType}, Sym: sym, Args: args}
		}
		converted := c.convert(a, sym.Type.Params[i])
		if !converted.Type().IsCompatibleWith(sym.Type.Params[i]) {
			c.Diags.Report("invalid arguments to called function")
			return &CallExpr{exprBase: exprBase{typ: ErrorType}, Sym: sym, Args: args}
		}
		args[i] = converted
	}
	return &CallExpr{exprBase: exprBase{typ: sym.Type.ReturnType()}, Sym: sym, Args: args}
}

// --- Multiplicative / additive --------------------------------------------

func (c *Checker) checkMulDivRem(op BinOp, sym string, l, r Expr) Expr {
	if anyError(l, r) {
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: l, R: r}
	}
	pl, pr := c.promoteExpr(l), c.promoteExpr(r)
	if !pl.Type().IsNumeric() || !pr.Type().IsNumeric() {
		c.Diags.Report("invalid operands to binary %s", sym)
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: pl, R: pr}
	}
	target := numericCrossTarget(pl.Type(), pr.Type())
	return &BinaryExpr{exprBase: exprBase{typ: target}, Op: op, L: c.extendTo(pl, target), R: c.extendTo(pr, target)}
}

func (c *Checker) CheckMultiply(l, r Expr) Expr  { return c.checkMulDivRem(OpMultiply, "*", l, r) }
func (c *Checker) CheckDivide(l, r Expr) Expr    { return c.checkMulDivRem(OpDivide, "/", l, r) }
func (c *Checker) CheckRemainder(l, r Expr) Expr { return c.checkMulDivRem(OpRemainder, "%", l, r) }

func (c *Checker) CheckAdd(l, r Expr) Expr {
	if anyError(l, r) {
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: OpAdd, L: l, R: r}
	}
	pl, pr := c.promoteExpr(l), c.promoteExpr(r)
	switch {
	case pl.Type().IsNumeric() && pr.Type().IsNumeric():
		target := numericCrossTarget(pl.Type(), pr.Type())
		return &BinaryExpr{exprBase: exprBase{typ: target}, Op: OpAdd, L: c.extendTo(pl, target), R: c.extendTo(pr, target)}
	case pl.Type().IsPointer() && !pl.Type().IsVoidPointer() && pr.Type().IsNumeric():
		scaled := c.scalePointerArithmetic(pr, pl.Type().Deref().Size())
		return &BinaryExpr{exprBase: exprBase{typ: pl.Type()}, Op: OpAdd, L: pl, R: scaled}
	case pr.Type().IsPointer() && !pr.Type().IsVoidPointer() && pl.Type().IsNumeric():
		scaled := c.scalePointerArithmetic(pl, pr.Type().Deref().Size())
		return &BinaryExpr{exprBase: exprBase{typ: pr.Type()}, Op: OpAdd, L: scaled, R: pr}
	default:
		c.Diags.Report("invalid operands to binary %s", "+")
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: OpAdd, L: pl, R: pr}
	}
}

func (c *Checker) CheckSubtract(l, r Expr) Expr {
	if anyError(l, r) {
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: OpSubtract, L: l, R: r}
	}
	pl, pr := c.promoteExpr(l), c.promoteExpr(r)
	switch {
	case pl.Type().IsNumeric() && pr.Type().IsNumeric():
		target := numericCrossTarget(pl.Type(), pr.Type())
		return &BinaryExpr{exprBase: exprBase{typ: target}, Op: OpSubtract, L: c.extendTo(pl, target), R: c.extendTo(pr, target)}
	case pl.Type().IsPointer() && pr.Type().IsPointer() && !pl.Type().IsVoidPointer() && pl.Type().Equals(pr.Type()):
		elemSize := pl.Type().Deref().Size()
		longType := scalarType(SpecLong, 0)
		diff := &BinaryExpr{exprBase: exprBase{typ: longType}, Op: OpSubtract, L: pl, R: pr}
		return &BinaryExpr{
			exprBase: exprBase{typ: longType},
			Op:       OpDivide,
			L:        diff,
			R:        &NumberExpr{exprBase: exprBase{typ: longType}, Value: int64(elemSize)},
		}
	case pl.Type().IsPointer() && !pl.Type().IsVoidPointer() && pr.Type().IsNumeric():
		scaled := c.scalePointerArithmetic(pr, pl.Type().Deref().Size())
		return &BinaryExpr{exprBase: exprBase{typ: pl.Type()}, Op: OpSubtract, L: pl, R: scaled}
	default:
		c.Diags.Report("invalid operands to binary %s", "-")
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: OpSubtract, L: pl, R: pr}
	}
}

// --- Relational / equality / logical --------------------------------------

func (c *Checker) checkRelational(op BinOp, sym string, l, r Expr) Expr {
	if anyError(l, r) {
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: l, R: r}
	}
	pl, pr := c.promoteExpr(l), c.promoteExpr(r)
	if pl.Type().IsNumeric() && pr.Type().IsNumeric() {
		target := numericCrossTarget(pl.Type(), pr.Type())
		return &BinaryExpr{exprBase: exprBase{typ: scalarType(SpecInt, 0)}, Op: op, L: c.extendTo(pl, target), R: c.extendTo(pr, target)}
	}
	if pl.Type().IsPredicate() && pr.Type().IsPredicate() && pl.Type().Equals(pr.Type()) {
		return &BinaryExpr{exprBase: exprBase{typ: scalarType(SpecInt, 0)}, Op: op, L: pl, R: pr}
	}
	c.Diags.Report("invalid operands to binary %s", sym)
	return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: pl, R: pr}
}

func (c *Checker) CheckLessThan(l, r Expr) Expr  { return c.checkRelational(OpLessThan, "<", l, r) }
func (c *Checker) CheckGreaterThan(l, r Expr) Expr {
	return c.checkRelational(OpGreaterThan, ">", l, r)
}
func (c *Checker) CheckLessOrEqual(l, r Expr) Expr {
	return c.checkRelational(OpLessOrEqual, "<=", l, r)
}
func (c *Checker) CheckGreaterOrEqual(l, r Expr) Expr {
	return c.checkRelational(OpGreaterOrEqual, ">=", l, r)
}

func (c *Checker) checkEquality(op BinOp, sym string, l, r Expr) Expr {
	if anyError(l, r) {
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: l, R: r}
	}
	pl, pr := c.promoteExpr(l), c.promoteExpr(r)
	if !pl.Type().IsCompatibleWith(pr.Type()) {
		c.Diags.Report("invalid operands to binary %s", sym)
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: pl, R: pr}
	}
	if pl.Type().IsNumeric() && pr.Type().IsNumeric() {
		target := numericCrossTarget(pl.Type(), pr.Type())
		pl, pr = c.extendTo(pl, target), c.extendTo(pr, target)
	}
	return &BinaryExpr{exprBase: exprBase{typ: scalarType(SpecInt, 0)}, Op: op, L: pl, R: pr}
}

func (c *Checker) CheckEqual(l, r Expr) Expr    { return c.checkEquality(OpEqual, "==", l, r) }
func (c *Checker) CheckNotEqual(l, r Expr) Expr { return c.checkEquality(OpNotEqual, "!=", l, r) }

func (c *Checker) checkLogical(op BinOp, sym string, l, r Expr) Expr {
	if anyError(l, r) {
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: l, R: r}
	}
	pl, pr := c.promoteExpr(l), c.promoteExpr(r)
	if !pl.Type().IsPredicate() || !pr.Type().IsPredicate() {
		c.Diags.Report("invalid operands to binary %s", sym)
		return &BinaryExpr{exprBase: exprBase{typ: ErrorType}, Op: op, L: pl, R: pr}
	}
	return &BinaryExpr{exprBase: exprBase{typ: scalarType(SpecInt, 0)}, Op: op, L: pl, R: pr}
}

func (c *Checker) CheckLogicalAnd(l, r Expr) Expr { return c.checkLogical(OpLogicalAnd, "&&", l, r) }
func (c *Checker) CheckLogicalOr(l, r Expr) Expr  { return c.checkLogical(OpLogicalOr, "||", l, r) }

// --- Statements ------------------------------------------------------------

func (c *Checker) CheckAssignment(l, r Expr) Stmt {
	if anyError(l, r) {
		return &AssignStmt{Left: l, Right: r}
	}
	if !l.IsLValue() {
		c.Diags.Report("lvalue required in expression")
		return &AssignStmt{Left: l, Right: r}
	}
	converted := c.convert(r, l.Type())
	if !converted.Type().IsCompatibleWith(l.Type()) {
		c.Diags.Report("invalid operands to binary %s", "=")
		return &AssignStmt{Left: l, Right: r}
	}
	return &AssignStmt{Left: l, Right: converted}
}

func (c *Checker) CheckTest(e Expr) Expr {
	if anyError(e) {
		return e
	}
	pe := c.promoteExpr(e)
	if !pe.Type().IsPredicate() {
		c.Diags.Report("invalid type for test expression")
	}
	return pe
}

func (c *Checker) CheckReturn(e Expr, returnType Type) Stmt {
	if anyError(e) {
		return &ReturnStmt{Expr: e}
	}
	converted := c.convert(e, returnType)
	if !converted.Type().IsCompatibleWith(returnType) {
		c.Diags.Report("invalid return type")
		return &ReturnStmt{Expr: e}
	}
	return &ReturnStmt{Expr: converted}
}
