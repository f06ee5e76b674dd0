package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/lexer"
	"github.com/xplshn/nlc/pkg/parser"
	"github.com/xplshn/nlc/pkg/semantic"
)

// analyzed runs the front end and semantic analysis, the state backends
// expect as input.
func analyzed(t *testing.T, src string) *ast.Node {
	t.Helper()
	tokens, err := lexer.New([]rune(src), 0).Tokenize()
	be.Err(t, err, nil)
	program, err := parser.New(tokens).ParseProgram()
	be.Err(t, err, nil)
	be.Err(t, semantic.New(semantic.NewModuleCache()).Analyze(program), nil)
	return program
}

func genC(t *testing.T, src string) string {
	t.Helper()
	out, err := NewCBackend().Generate(analyzed(t, src), "test")
	be.Err(t, err, nil)
	return out
}

func TestCHelloProgram(t *testing.T) {
	got := genC(t, `def main() { println(42); }`)
	want := `#include <stdio.h>
#include <string.h>
#include <stdlib.h>
#include <math.h>

int main(void);

int main(void) {
    printf("%d\n", 42);
    return 0;
}

`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCFunctionsAndPrototypes(t *testing.T) {
	got := genC(t, `
def add(a: int, b: int): int { return a + b; }
def main() {
    store r = add(1, 2);
    println(r);
}
`)
	want := `#include <stdio.h>
#include <string.h>
#include <stdlib.h>
#include <math.h>

int add(int a, int b);
int main(void);

int add(int a, int b) {
    return (a + b);
}

int main(void) {
    int r = add(1, 2);
    printf("%d\n", r);
    return 0;
}

`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCStringConstantsDeduplicated(t *testing.T) {
	got := genC(t, `def main() { println("hi"); print("hi"); }`)
	be.True(t, strings.Contains(got, `static const char str_const_0[] = "hi";`))
	be.True(t, !strings.Contains(got, "str_const_1"))
	be.True(t, strings.Contains(got, `printf("%s\n", str_const_0);`))
	be.True(t, strings.Contains(got, `printf("%s", str_const_0);`))
}

func TestCStringEscapes(t *testing.T) {
	got := genC(t, `def main() { println("a\nb"); }`)
	// The lexer passes escapes through raw; the backend re-escapes the
	// backslash for C source.
	be.True(t, strings.Contains(got, `static const char str_const_0[] = "a\\nb";`))
}

func TestCWhileLoop(t *testing.T) {
	got := genC(t, `
def main() {
    store x = 0;
    while (x < 3) {
        x = x + 1;
    }
}
`)
	want := `int main(void) {
    int x = 0;
    while ((x < 3)) {
        (x = (x + 1));
    }
    return 0;
}
`
	be.True(t, strings.Contains(got, want))
}

func TestCIfElse(t *testing.T) {
	got := genC(t, `
def main() {
    if (true) {
        println(1);
    } else {
        println(2);
    }
}
`)
	want := `    if (1) {
        printf("%d\n", 1);
    } else {
        printf("%d\n", 2);
    }
`
	be.True(t, strings.Contains(got, want))
}

func TestCBreakOutsideLoopIsLegal(t *testing.T) {
	// break maps straight to the C keyword, so placement is left to the
	// C compiler.
	got := genC(t, `def main() { break; }`)
	be.True(t, strings.Contains(got, "    break;\n"))
}

func TestCPrintFormats(t *testing.T) {
	got := genC(t, `
def main() {
    println(1.5);
    println(true);
    println(false);
}
`)
	be.True(t, strings.Contains(got, `printf("%f\n", 1.5);`))
	be.True(t, strings.Contains(got, `printf("%s\n", "true");`))
	be.True(t, strings.Contains(got, `printf("%s\n", "false");`))
}

func TestCPrintFormatPerFunction(t *testing.T) {
	// The same name carries a different type in each function; format
	// selection must follow the current function's type, not a stale one.
	got := genC(t, `
def show(x: float) { println(x); }
def main() {
    store x = 1;
    println(x);
    show(1.5);
}
`)
	be.True(t, strings.Contains(got, `printf("%f\n", x);`))
	be.True(t, strings.Contains(got, `printf("%d\n", x);`))
}

func TestCMainReturnPreserved(t *testing.T) {
	got := genC(t, `
def status(): int { return 3; }
ASSIGN_MAIN -> "status";
def main() { return; }
`)
	// An explicit top-level return suppresses the synthesized one.
	be.True(t, strings.Contains(got, "int main(void) {\n    return;\n}\n"))
	be.True(t, strings.Contains(got, "int status(void) {\n    return 3;\n}\n"))
}
