package scc

// Target ABI constants for the System V AMD64 calling convention,
// consumed throughout the allocator and generator rather than inlined
// as magic numbers at each use site.
const (
	SizeofChar = 1
	SizeofInt  = 4
	SizeofLong = 8
	SizeofPtr  = 8
	SizeofReg  = 8

	// SizeofParam is the slot width used for a stack-passed argument.
	SizeofParam = 8

	// NumParamRegs is K, the number of integer/pointer arguments passed
	// in registers before the rest spill to the stack.
	NumParamRegs = 6

	// StackAlignment is the required alignment of %rsp at a call site.
	StackAlignment = 16
)

// paramRegOrder lists the SysV integer argument registers in the order
// parameters are assigned to them.
var paramRegOrder = [NumParamRegs]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// scratchOrder is the generator's register pool, in spill-preference
// order: getreg() hands out the first free register in this list, and
// falls back to evicting the first (oldest) one when none are free.
var scratchOrder = []string{"r11", "r10", "r9", "r8", "rcx", "rdx", "rsi", "rdi", "rax"}
