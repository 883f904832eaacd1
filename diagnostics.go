package scc

import (
	"fmt"
	"io"
)

// Diagnostics accumulates non-fatal semantic errors found by the Checker.
// Every call to Report writes one line to the underlying writer (stderr in
// the CLI) and bumps the error count; a nonzero count means no assembly is
// emitted, while the process exit code stays unaffected.
type Diagnostics struct {
	w          io.Writer
	errorCount int
}

func NewDiagnostics(w io.Writer) *Diagnostics {
	return &Diagnostics{w: w}
}

// Report writes one diagnostic line, formatted like fmt.Sprintf, and
// increments the error count.
func (d *Diagnostics) Report(format string, args ...interface{}) {
	fmt.Fprintf(d.w, format+"\n", args...)
	d.errorCount++
}

func (d *Diagnostics) ErrorCount() int { return d.errorCount }
