package scc

// Compile runs the whole pipeline over one translation unit: parse and
// check the source, assign stack offsets, and lower to assembly text.
//
// A syntax error comes back as the error; semantic errors only bump the
// Diagnostics count, in which case the returned assembly is empty —
// nothing is emitted for a program that didn't check.
func Compile(src []byte, diags *Diagnostics) (string, error) {
	checker := NewChecker(diags)
	parser := NewParser(src, checker)
	tu, err := parser.Parse()
	if err != nil {
		return "", err
	}
	if diags.ErrorCount() > 0 {
		return "", nil
	}
	for _, fn := range tu.Functions {
		AllocateFunction(fn)
	}
	return NewGenerator().Generate(tu), nil
}
