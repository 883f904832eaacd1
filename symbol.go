package scc

// Symbol binds a name to a Type and, for anything that lives on the
// stack or in a register, a stack-frame offset assigned later by the
// Allocator. A zero Offset means "not yet assigned a stack slot" for
// locals/parameters, or "a global, addressed by name" for file-scope
// symbols, which the Allocator never touches.
type Symbol struct {
	Name   string
	Type   Type
	Offset int
}
