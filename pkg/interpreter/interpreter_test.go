package interpreter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/lexer"
	"github.com/xplshn/nlc/pkg/parser"
	"github.com/xplshn/nlc/pkg/semantic"
)

func analyzed(t *testing.T, filePath, src string) *ast.Node {
	t.Helper()
	tokens, err := lexer.New([]rune(src), 0).Tokenize()
	be.Err(t, err, nil)
	program, err := parser.New(tokens).ParseProgram()
	be.Err(t, err, nil)
	be.Err(t, semantic.NewWithFile(filePath, semantic.NewModuleCache()).Analyze(program), nil)
	return program
}

// run executes src through the full pipeline and returns stdout and the
// exit code.
func run(t *testing.T, src, stdin string) (string, int) {
	t.Helper()
	var out strings.Builder
	program := analyzed(t, "main.nlang", src)
	code, err := New(strings.NewReader(stdin), &out).Run(program, "main.nlang")
	be.Err(t, err, nil)
	return out.String(), code
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	var out strings.Builder
	program := analyzed(t, "main.nlang", src)
	_, err := New(strings.NewReader(""), &out).Run(program, "main.nlang")
	be.True(t, err != nil)
	return err
}

func TestRecursion(t *testing.T) {
	out, code := run(t, `
def fact(n: int): int {
    if (n <= 1) { return 1; }
    return n * fact(n - 1);
}
def main() { println(fact(5)); }
`, "")
	be.Equal(t, out, "120\n")
	be.Equal(t, code, 0)
}

func TestWhileBreakContinue(t *testing.T) {
	out, _ := run(t, `
def main() {
    store i = 0;
    store total = 0;
    while (true) {
        i = i + 1;
        if (i > 5) { break; }
        if (i % 2 == 0) { continue; }
        total = total + i;
    }
    println(total);
}
`, "")
	be.Equal(t, out, "9\n")
}

func TestDivisionYieldsFloat(t *testing.T) {
	out, _ := run(t, `def main() { println(10 / 4); }`, "")
	be.Equal(t, out, "2.5\n")

	out, _ = run(t, `def main() { println(10 / 5); }`, "")
	be.Equal(t, out, "2\n")
}

func TestDivisionByZero(t *testing.T) {
	err := runErr(t, `
def main() {
    store x = 1;
    println(10 / (x - 1));
}
`)
	be.Equal(t, err.Error(), "Division by zero")
}

func TestExitCodeFromEntry(t *testing.T) {
	out, code := run(t, `
def status(): int { return 7; }
ASSIGN_MAIN -> "status";
def main() { }
`, "")
	be.Equal(t, out, "")
	be.Equal(t, code, 7)
}

func TestEntryWithParamsIsAnError(t *testing.T) {
	// Analysis only checks that the ASSIGN_MAIN target is a function, so an
	// entry that declares parameters must fail at run time, not panic.
	err := runErr(t, `
def f(x: int): int { return x; }
ASSIGN_MAIN -> "f";
def main() { }
`)
	be.Equal(t, err.Error(), "Function 'f' expects 1 arguments, but 0 were provided")
}

func TestExitCodeTruncatesFloat(t *testing.T) {
	_, code := run(t, `
def status(): float { return 3.9; }
ASSIGN_MAIN -> "status";
def main() { }
`, "")
	be.Equal(t, code, 3)
}

func TestGlobalsCopiedPerCall(t *testing.T) {
	// Function calls see a copy of the globals; writes do not leak back.
	out, _ := run(t, `
store x = 1;
def bump() { x = 2; }
def main() {
    bump();
    println(x);
}
`, "")
	be.Equal(t, out, "1\n")
}

func TestInputBuiltin(t *testing.T) {
	out, _ := run(t, `
def main() {
    store name = input();
    println("hi " + name);
}
`, "bob\n")
	be.Equal(t, out, "hi bob\n")
}

func TestStructuralEquality(t *testing.T) {
	// An int and a float are never equal, matching == on the stored kind.
	out, _ := run(t, `
def main() {
    println(1 == 1);
    store f = 1.0;
    store n = 1;
    println(f == n);
}
`, "")
	be.Equal(t, out, "true\nfalse\n")
}

func TestMixedArithmeticPromotes(t *testing.T) {
	out, _ := run(t, `def main() { println(2 * 1.5); }`, "")
	be.Equal(t, out, "3\n")
}

func TestBuiltinsThroughRuntime(t *testing.T) {
	out, _ := run(t, `
def main() {
    println(pow(2, 8));
    println(max(3, abs(-9)));
    println(str(42) + "!");
}
`, "")
	be.Equal(t, out, "256\n9\n42!\n")
}

func TestModuleImports(t *testing.T) {
	dir := t.TempDir()
	be.Err(t, os.WriteFile(filepath.Join(dir, "mod.nlang"), []byte(`
export store greeting = "yo";
export def shout(s: string): string { return s + "!"; }
`), 0o644), nil)

	mainPath := filepath.Join(dir, "main.nlang")
	program := analyzed(t, mainPath, `
import mod as m;
def main() { println(m.shout(m.greeting)); }
`)
	var out strings.Builder
	code, err := New(strings.NewReader(""), &out).Run(program, mainPath)
	be.Err(t, err, nil)
	be.Equal(t, code, 0)
	be.Equal(t, out.String(), "yo!\n")
}

func TestFromImportRename(t *testing.T) {
	dir := t.TempDir()
	be.Err(t, os.WriteFile(filepath.Join(dir, "mod.nlang"), []byte(`
export def double(n: int): int { return n * 2; }
`), 0o644), nil)

	mainPath := filepath.Join(dir, "main.nlang")
	program := analyzed(t, mainPath, `
from mod import double as twice;
def main() { println(twice(21)); }
`)
	var out strings.Builder
	_, err := New(strings.NewReader(""), &out).Run(program, mainPath)
	be.Err(t, err, nil)
	be.Equal(t, out.String(), "42\n")
}

func TestMissingModule(t *testing.T) {
	// Module resolution is deferred to run time here, so analysis has to be
	// skipped for this case.
	tokens, err := lexer.New([]rune(`import nosuch; def main() { }`), 0).Tokenize()
	be.Err(t, err, nil)
	program, err := parser.New(tokens).ParseProgram()
	be.Err(t, err, nil)

	var out strings.Builder
	_, err = New(strings.NewReader(""), &out).Run(program, filepath.Join(t.TempDir(), "main.nlang"))
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "Failed to read module file"))
}
