package scc

// syntaxError is the parser's fatal error: unlike a diagnostic, it
// aborts parsing immediately instead of being accumulated.
type syntaxError struct {
	Message string
}

func (e *syntaxError) Error() string { return e.Message }
