package scc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) string {
	var buf bytes.Buffer
	asm, err := Compile([]byte(src), NewDiagnostics(&buf))
	require.NoError(t, err)
	require.Empty(t, buf.String())
	return asm
}

func TestGenerateGlobal(t *testing.T) {
	assert.Equal(t, ".comm x, 4\n", compile(t, "int x;"))
	assert.Equal(t, ".comm p, 8\n", compile(t, "long *p;"))
	assert.Equal(t, ".comm buf, 10\n", compile(t, "char buf[10];"))
}

func TestGenerateFunction(t *testing.T) {
	expected := `f:
    pushq %rbp
    movq %rsp, %rbp
    movl $f.size, %eax
    subq %rax, %rsp
    movl %edi, -4(%rbp)
    movl %esi, -8(%rbp)
    movl -4(%rbp), %r11d
    addl -8(%rbp), %r11d
    movl %r11d, %eax
    jmp f.exit
f.exit:
    movq %rbp, %rsp
    popq %rbp
    ret
.set f.size, 16
.globl f
`
	assert.Equal(t, expected, compile(t, "int f(int a, int b) { return a + b; }"))
}

func TestGeneratePointerArithmetic(t *testing.T) {
	asm := compile(t, `
		int main(void) {
			int *p;
			int i;
			i = *(p + 2);
			return i;
		}
	`)
	// The literal index is scaled at check time: 2 * sizeof(int) = 8.
	assert.Contains(t, asm, "addq $8, %r11")
	assert.Contains(t, asm, "movl (%r11), %r11d")
	assert.Contains(t, asm, "movl %r11d, -12(%rbp)")
}

func TestGenerateRuntimeScaling(t *testing.T) {
	asm := compile(t, `
		long *p;
		long v;
		long i;
		int main(void) {
			v = p[i];
			return 0;
		}
	`)
	assert.Contains(t, asm, "imulq $8, %r11")
}

func TestGeneratePointerDifference(t *testing.T) {
	asm := compile(t, `
		int *p;
		int *q;
		long d;
		int main(void) {
			d = p - q;
			return 0;
		}
	`)
	assert.Contains(t, asm, "cqto")
	assert.Contains(t, asm, "idivq %rcx")
	assert.Contains(t, asm, "movq $4, %rcx")
}

func TestGenerateCharLoadsAndStores(t *testing.T) {
	asm := compile(t, `
		char s[4];
		char c;
		int main(void) {
			int i;
			c = s[0];
			i = s[0] + 1;
			return i;
		}
	`)
	assert.Contains(t, asm, "leaq s(%rip)")
	assert.Contains(t, asm, "movb (%r11), %r11b")
	// A char store stays a byte move...
	assert.Contains(t, asm, "movb %r11b, c(%rip)")
	// ...but widening into an int expression sign-extends.
	assert.Contains(t, asm, "movsbl %r11b, %r11d")
}

func TestGenerateIfElse(t *testing.T) {
	asm := compile(t, `
		int x;
		int f();
		int g();
		int main(void) {
			if (x == 0) f(); else g();
			return 0;
		}
	`)
	assert.Contains(t, asm, "cmpl $0, %r11d")
	assert.Contains(t, asm, "je .L1")
	assert.Contains(t, asm, "call f")
	assert.Contains(t, asm, "jmp .L2")
	assert.Contains(t, asm, ".L1:")
	assert.Contains(t, asm, "call g")
	assert.Contains(t, asm, ".L2:")
}

func TestGenerateForLoop(t *testing.T) {
	asm := compile(t, `
		int main(void) {
			int i;
			for (i = 0; i < 10; i = i + 1) { }
			return 0;
		}
	`)
	assert.Contains(t, asm, ".L1:")
	assert.Contains(t, asm, "cmpl $10, -4(%rbp)")
	assert.Contains(t, asm, "jge .L2")
	assert.Contains(t, asm, "addl $1, %r11d")
	assert.Contains(t, asm, "jmp .L1")
	assert.Contains(t, asm, ".L2:")
}

func TestGenerateWhileLoop(t *testing.T) {
	asm := compile(t, `
		int main(void) {
			int i;
			i = 3;
			while (i > 0) i = i - 1;
			return i;
		}
	`)
	assert.Contains(t, asm, "cmpl $0, -4(%rbp)")
	assert.Contains(t, asm, "jle .L2")
	assert.Contains(t, asm, "jmp .L1")
}

func TestGenerateDivideAndRemainder(t *testing.T) {
	asm := compile(t, `
		int main(void) {
			int a;
			a = 7;
			a = a / 2;
			a = a % 3;
			return a;
		}
	`)
	assert.Contains(t, asm, "cltd")
	assert.Contains(t, asm, "idivl %ecx")
	// Quotient lands in %eax, remainder in %edx.
	assert.Contains(t, asm, "movl %eax, -4(%rbp)")
	assert.Contains(t, asm, "movl %edx, -4(%rbp)")
}

func TestGenerateUnaryOperators(t *testing.T) {
	asm := compile(t, `
		int main(void) {
			int x;
			int y;
			x = 5;
			y = -x;
			y = !x;
			return y;
		}
	`)
	assert.Contains(t, asm, "negl %r11d")
	assert.Contains(t, asm, "sete %r11b")
	assert.Contains(t, asm, "movzbl %r11b, %r11d")
}

func TestGenerateAddressAndStore(t *testing.T) {
	asm := compile(t, `
		int main(void) {
			int i;
			int *p;
			p = &i;
			*p = 5;
			return i;
		}
	`)
	assert.Contains(t, asm, "leaq -4(%rbp), %r11")
	assert.Contains(t, asm, "movl %r10d, (%r11)")
}

func TestGenerateLogicalOperators(t *testing.T) {
	asm := compile(t, `
		int main(void) {
			int x;
			x = 1 || 0;
			x = x && 2;
			return x;
		}
	`)
	assert.Contains(t, asm, "jne .L1")
	assert.Contains(t, asm, "movl $1, %r11d")
	assert.Contains(t, asm, "movl $0, %r11d")
}

func TestGenerateVariadicConvention(t *testing.T) {
	// A callee declared with "()" gets the variadic %eax-clearing mov.
	asm := compile(t, `int printf(); int main(void) { printf("x"); return 1; }`)
	assert.Contains(t, asm, "movl $0, %eax")

	// One declared "(void)" does not.
	asm = compile(t, "int f(void); int main(void) { f(); return 1; }")
	assert.NotContains(t, asm, "movl $0, %eax")
	assert.Contains(t, asm, "call f")
}

func TestGenerateStackArguments(t *testing.T) {
	asm := compile(t, `
		int f(int a, int b, int c, int d, int e, int g, int h);
		int main(void) { return f(1, 2, 3, 4, 5, 6, 7); }
	`)
	// One stack argument means an odd push count, so the call site pads
	// to keep %rsp 16-byte aligned, then reclaims everything at once.
	assert.Contains(t, asm, "subq $8, %rsp")
	assert.Contains(t, asm, "pushq $7")
	assert.Contains(t, asm, "movl $6, %r9d")
	assert.Contains(t, asm, "movl $1, %edi")
	assert.Contains(t, asm, "addq $16, %rsp")
}

func TestGenerateStringPool(t *testing.T) {
	asm := compile(t, `
		int puts();
		int main(void) {
			puts("hello");
			puts("hello");
			puts("bye");
			return 0;
		}
	`)
	assert.Contains(t, asm, ".data")
	assert.Contains(t, asm, ".L.str0:")
	assert.Contains(t, asm, ".L.str1:")
	// Identical literals share one pooled entry.
	assert.Equal(t, 1, strings.Count(asm, `.asciz "hello"`))
	assert.Equal(t, 1, strings.Count(asm, `.asciz "bye"`))
}

func TestGenerateStringEscapes(t *testing.T) {
	asm := compile(t, `int puts(); int main(void) { puts("a\nb\"c"); return 0; }`)
	assert.Contains(t, asm, `.asciz "a\nb\"c"`)
}

func TestGenerateNarrowingCastEmitsNothing(t *testing.T) {
	asm := compile(t, `
		char c;
		long l;
		int main(void) { c = l; return 0; }
	`)
	assert.Contains(t, asm, "movq l(%rip), %r11")
	assert.Contains(t, asm, "movb %r11b, c(%rip)")
	assert.NotContains(t, asm, "movsbq")
}

func TestGenerateSizeofFolded(t *testing.T) {
	asm := compile(t, `
		long n;
		int a[10];
		int main(void) { n = sizeof a; return 0; }
	`)
	assert.Contains(t, asm, "movq $40, %r11")
}

func TestGenerateGlobalsAfterFunctions(t *testing.T) {
	asm := compile(t, "int x; int main(void) { return x; }")
	assert.Less(t, strings.Index(asm, "main:"), strings.Index(asm, ".comm x, 4"))
	assert.Contains(t, asm, ".globl main")
	assert.Contains(t, asm, "movl $main.size, %eax")
}
