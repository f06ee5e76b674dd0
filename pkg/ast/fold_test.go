package ast_test

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/lexer"
	"github.com/xplshn/nlc/pkg/parser"
)

// foldInit parses `store x = <expr>;`, folds the program and returns the
// initializer node.
func foldInit(t *testing.T, expr string) *ast.Node {
	t.Helper()
	tokens, err := lexer.New([]rune("store x = "+expr+";"), 0).Tokenize()
	be.Err(t, err, nil)
	program, err := parser.New(tokens).ParseProgram()
	be.Err(t, err, nil)
	ast.FoldConstants(program)
	stmts := program.Data.(*ast.ProgramData).Stmts
	return stmts[0].Data.(*ast.StoreData).Init
}

func TestFoldIntArithmetic(t *testing.T) {
	n := foldInit(t, "1 + 2 * 3")
	be.Equal(t, n.Type, ast.Number)
	be.Equal(t, n.Data.(*ast.NumberData).Value, int64(7))
}

func TestFoldDivisionYieldsFloat(t *testing.T) {
	n := foldInit(t, "10 / 2")
	be.Equal(t, n.Type, ast.Float)
	be.Equal(t, n.Data.(*ast.FloatData).Value, 5.0)
}

func TestFoldDivisionByZeroLeftAlone(t *testing.T) {
	n := foldInit(t, "1 / 0")
	be.Equal(t, n.Type, ast.Binary)
}

func TestFoldModulo(t *testing.T) {
	n := foldInit(t, "17 % 5")
	be.Equal(t, n.Type, ast.Number)
	be.Equal(t, n.Data.(*ast.NumberData).Value, int64(2))

	be.Equal(t, foldInit(t, "17 % 0").Type, ast.Binary)
}

func TestFoldMixedPromotesToFloat(t *testing.T) {
	n := foldInit(t, "1 + 2.5")
	be.Equal(t, n.Type, ast.Float)
	be.Equal(t, n.Data.(*ast.FloatData).Value, 3.5)
}

func TestFoldStringConcat(t *testing.T) {
	n := foldInit(t, `"a" + "b"`)
	be.Equal(t, n.Type, ast.String)
	be.Equal(t, n.Data.(*ast.StringData).Value, "ab")
}

func TestFoldComparisons(t *testing.T) {
	n := foldInit(t, "3 < 4")
	be.Equal(t, n.Type, ast.Boolean)
	be.Equal(t, n.Data.(*ast.BoolData).Value, true)

	n = foldInit(t, "2 == 2.0")
	be.Equal(t, n.Data.(*ast.BoolData).Value, true)
}

func TestFoldBooleanLogic(t *testing.T) {
	n := foldInit(t, "true && false")
	be.Equal(t, n.Type, ast.Boolean)
	be.Equal(t, n.Data.(*ast.BoolData).Value, false)

	n = foldInit(t, "true || false")
	be.Equal(t, n.Data.(*ast.BoolData).Value, true)
}

func TestFoldUnary(t *testing.T) {
	n := foldInit(t, "-5")
	be.Equal(t, n.Type, ast.Number)
	be.Equal(t, n.Data.(*ast.NumberData).Value, int64(-5))

	n = foldInit(t, "!true")
	be.Equal(t, n.Type, ast.Boolean)
	be.Equal(t, n.Data.(*ast.BoolData).Value, false)
}

func TestFoldNestedSubexpression(t *testing.T) {
	// Only the constant half collapses.
	n := foldInit(t, "y + (2 * 3)")
	be.Equal(t, n.Type, ast.Binary)
	right := n.Data.(*ast.BinaryData).Right
	be.Equal(t, right.Type, ast.Number)
	be.Equal(t, right.Data.(*ast.NumberData).Value, int64(6))
}

func TestFoldVariableLeftAlone(t *testing.T) {
	be.Equal(t, foldInit(t, "y + 1").Type, ast.Binary)
}
