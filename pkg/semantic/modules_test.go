package semantic

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/xplshn/nlc/pkg/ast"
)

const mathModSrc = `
export store pi = 3.14;
export def square(x: int): int { return x * x; }
store hidden = 1;
`

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	path := filepath.Join(dir, name)
	be.Err(t, os.MkdirAll(filepath.Dir(path), 0o755), nil)
	be.Err(t, os.WriteFile(path, []byte(src), 0o644), nil)
}

func analyzeIn(t *testing.T, dir, src string) (*ast.Node, *ModuleCache, error) {
	t.Helper()
	program := parseSrc(t, src)
	cache := NewModuleCache()
	analyzer := NewWithFile(filepath.Join(dir, "main.nlang"), cache)
	return program, cache, analyzer.Analyze(program)
}

func TestAliasImport(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathmod.nlang", mathModSrc)

	program, cache, err := analyzeIn(t, dir, `
import mathmod as m;
def main() {
    store a: float = m.pi;
    store b: int = m.square(3);
}
`)
	be.Err(t, err, nil)
	be.Equal(t, cache.Len(), 1)

	// Namespace accesses collapse to qualified variable references.
	body := program.Data.(*ast.ProgramData).Stmts[1].Data.(*ast.FuncDeclData).Body
	stmts := body.Data.(*ast.BlockData).Stmts
	init := stmts[0].Data.(*ast.StoreData).Init
	be.Equal(t, init.Type, ast.Variable)
	be.Equal(t, init.Data.(*ast.VariableData).Name, "m.pi")

	callee := stmts[1].Data.(*ast.StoreData).Init.Data.(*ast.CallData).Callee
	be.Equal(t, callee.Type, ast.Variable)
	be.Equal(t, callee.Data.(*ast.VariableData).Name, "m.square")
}

func TestPlainImportBindsDirectNames(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathmod.nlang", mathModSrc)

	_, _, err := analyzeIn(t, dir, `
import mathmod;
def main() {
    store a: float = pi;
    store b = square(4);
}
`)
	be.Err(t, err, nil)
}

func TestFromImportWithRename(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathmod.nlang", mathModSrc)

	_, _, err := analyzeIn(t, dir, `
from mathmod import square as sq, pi;
def main() {
    store x = sq(2);
    store y: float = pi;
}
`)
	be.Err(t, err, nil)
}

func TestUnexportedSymbolsStayHidden(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathmod.nlang", mathModSrc)

	_, _, err := analyzeIn(t, dir, `
from mathmod import hidden;
def main() { }
`)
	be.True(t, err != nil)
	be.Equal(t, err.Error(), "Symbol 'hidden' not found in module 'mathmod'")
}

func TestNamespaceMemberNotFound(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathmod.nlang", mathModSrc)

	_, _, err := analyzeIn(t, dir, `
import mathmod as m;
def main() { store x = m.tau; }
`)
	be.True(t, err != nil)
	be.Equal(t, err.Error(), "Symbol 'tau' not found in namespace 'm'")
}

func TestModuleLoadedOnce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathmod.nlang", mathModSrc)

	_, cache, err := analyzeIn(t, dir, `
import mathmod;
import mathmod as m;
def main() {
    store a: float = pi;
    store b: float = m.pi;
}
`)
	be.Err(t, err, nil)
	be.Equal(t, cache.Len(), 1)
}

func TestDottedModulePath(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, filepath.Join("utils", "text.nlang"),
		`export def twice(s: string): string { return s + s; }`)

	_, _, err := analyzeIn(t, dir, `
import utils.text as tx;
def main() { store s = tx.twice("ab"); }
`)
	be.Err(t, err, nil)
}

func TestMissingModule(t *testing.T) {
	dir := t.TempDir()
	_, _, err := analyzeIn(t, dir, `import nosuch; def main() { }`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "Failed to read module file"))
}

func TestBrokenModuleSurfacesParserError(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "broken.nlang", `export store x = ;`)

	_, _, err := analyzeIn(t, dir, `import broken; def main() { }`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "Parser error in module 'broken'"))
}
