package scc

// AllocateFunction assigns stack offsets to every parameter and local of
// fn. Stack-passed parameters (the 7th onward) get fixed positive
// offsets first, since those slots are dictated by the caller and never
// move. Everything else — register-passed parameters and declared
// locals, uniformly — is then walked in declaration order as a single
// negative-offset sequence, so a register parameter is simply the first
// few "locals" spilled on entry.
func AllocateFunction(fn *FunctionDecl) {
	assignStackParams(fn)
	fn.LocalsOffset = allocateBlock(fn.Body, 0)
}

func assignStackParams(fn *FunctionDecl) {
	for i, p := range fn.Params {
		if i >= NumParamRegs {
			p.Offset = 2*SizeofReg + (i-NumParamRegs)*SizeofParam
		}
	}
}

// allocateBlock assigns offsets to b's own locals (skipping any symbol
// that already has a nonzero offset, i.e. a stack-passed parameter), then
// recurses into each statement with that same resulting offset. Sibling
// statements each get their own fresh copy of the offset rather than a
// running total, so sibling blocks that are never live at the same time
// can reuse the same stack slots; the offset returned is the minimum
// (most negative) reached by any of them.
func allocateBlock(b *BlockStmt, offset int) int {
	for _, sym := range b.Scope.Symbols() {
		if sym.Offset != 0 {
			continue
		}
		offset -= sym.Type.Size()
		sym.Offset = offset
	}
	minOffset := offset
	for _, stmt := range b.Stmts {
		if o := allocateStmt(stmt, offset); o < minOffset {
			minOffset = o
		}
	}
	return minOffset
}

func allocateStmt(s Stmt, offset int) int {
	switch st := s.(type) {
	case *BlockStmt:
		return allocateBlock(st, offset)
	case *IfStmt:
		minOffset := allocateStmt(st.Then, offset)
		if st.Else != nil {
			if o := allocateStmt(st.Else, offset); o < minOffset {
				minOffset = o
			}
		}
		return minOffset
	case *WhileStmt:
		return allocateStmt(st.Body, offset)
	case *ForStmt:
		return allocateStmt(st.Body, offset)
	default:
		return offset
	}
}

func alignTo(n, align int) int {
	if n <= 0 {
		return 0
	}
	return (n + align - 1) / align * align
}
