package parser

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/lexer"
	"github.com/xplshn/nlc/pkg/token"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	tokens, err := lexer.New([]rune(src), 0).Tokenize()
	be.Err(t, err, nil)
	program, err := New(tokens).ParseProgram()
	be.Err(t, err, nil)
	return program
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	tokens, err := lexer.New([]rune(src), 0).Tokenize()
	be.Err(t, err, nil)
	_, err = New(tokens).ParseProgram()
	be.True(t, err != nil)
	return err
}

func stmts(program *ast.Node) []*ast.Node {
	return program.Data.(*ast.ProgramData).Stmts
}

func TestStoreForms(t *testing.T) {
	program := parse(t, `
store a;
store b = 1;
store c: float;
store d: string = "hi";
`)
	decls := stmts(program)
	be.Equal(t, len(decls), 4)

	a := decls[0].Data.(*ast.StoreData)
	be.Equal(t, a.Name, "a")
	be.True(t, a.TypeAnn == nil)
	be.True(t, a.Init == nil)

	c := decls[2].Data.(*ast.StoreData)
	be.Equal(t, c.TypeAnn.Kind, ast.TypeFloat)

	d := decls[3].Data.(*ast.StoreData)
	be.Equal(t, d.TypeAnn.Kind, ast.TypeString)
	be.Equal(t, d.Init.Type, ast.String)
}

func TestFuncDeclaration(t *testing.T) {
	program := parse(t, `def add(a: int, b) : int { return a + b; }`)
	fn := stmts(program)[0].Data.(*ast.FuncDeclData)
	be.Equal(t, fn.Name, "add")
	be.Equal(t, len(fn.Params), 2)
	be.Equal(t, fn.Params[0].Type.Kind, ast.TypeInteger)
	// Unannotated parameters default to int.
	be.Equal(t, fn.Params[1].Type.Kind, ast.TypeInteger)
	be.Equal(t, fn.ReturnType.Kind, ast.TypeInteger)
}

func TestFuncWithoutReturnType(t *testing.T) {
	program := parse(t, `def greet() { println("hi"); }`)
	fn := stmts(program)[0].Data.(*ast.FuncDeclData)
	be.True(t, fn.ReturnType == nil)
}

func TestExportDeclaration(t *testing.T) {
	program := parse(t, `export def f() { } export store x = 1;`)
	decls := stmts(program)
	be.Equal(t, decls[0].Type, ast.Export)
	be.Equal(t, decls[0].Data.(*ast.ExportData).Decl.Type, ast.FuncDecl)
	be.Equal(t, decls[1].Data.(*ast.ExportData).Decl.Type, ast.Store)
}

func TestImportForms(t *testing.T) {
	program := parse(t, `
import math;
import math as m;
import math from pi, square;
from utils.strings import join as j, split;
`)
	decls := stmts(program)

	plain := decls[0].Data.(*ast.ImportData)
	be.Equal(t, plain.Path, []string{"math"})
	be.Equal(t, plain.Alias, "")

	aliased := decls[1].Data.(*ast.ImportData)
	be.Equal(t, aliased.Alias, "m")

	fromTail := decls[2].Data.(*ast.FromImportData)
	be.Equal(t, len(fromTail.Items), 2)
	be.Equal(t, fromTail.Items[0].Name, "pi")

	fromHead := decls[3].Data.(*ast.FromImportData)
	be.Equal(t, fromHead.Path, []string{"utils", "strings"})
	be.Equal(t, fromHead.Items[0].Name, "join")
	be.Equal(t, fromHead.Items[0].Alias, "j")
	be.Equal(t, fromHead.Items[1].Alias, "")
}

func TestImportListBraces(t *testing.T) {
	program := parse(t, `from math import { pi, square };`)
	d := stmts(program)[0].Data.(*ast.FromImportData)
	be.Equal(t, len(d.Items), 2)
}

func TestAssignMain(t *testing.T) {
	program := parse(t, `ASSIGN_MAIN -> "start";`)
	d := stmts(program)[0].Data.(*ast.AssignMainData)
	be.Equal(t, d.Name, "start")
}

func TestPrecedence(t *testing.T) {
	program := parse(t, `store x = 1 + 2 * 3;`)
	init := stmts(program)[0].Data.(*ast.StoreData).Init
	root := init.Data.(*ast.BinaryData)
	be.Equal(t, root.Op, token.Plus)
	be.Equal(t, root.Right.Data.(*ast.BinaryData).Op, token.Star)
}

func TestComparisonBindsTighterThanLogic(t *testing.T) {
	program := parse(t, `store x = a < b && c > d;`)
	root := stmts(program)[0].Data.(*ast.StoreData).Init.Data.(*ast.BinaryData)
	be.Equal(t, root.Op, token.AndAnd)
	be.Equal(t, root.Left.Data.(*ast.BinaryData).Op, token.Lt)
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	program := parse(t, `def f() { a = b = 1; }`)
	body := stmts(program)[0].Data.(*ast.FuncDeclData).Body
	expr := body.Data.(*ast.BlockData).Stmts[0].Data.(*ast.ExprStmtData).Expr
	outer := expr.Data.(*ast.AssignData)
	be.Equal(t, outer.Name, "a")
	be.Equal(t, outer.Value.Data.(*ast.AssignData).Name, "b")
}

func TestInvalidAssignmentTarget(t *testing.T) {
	err := parseErr(t, `def f() { 1 = 2; }`)
	be.True(t, strings.Contains(err.Error(), "invalid assignment target"))
}

func TestCallAndMemberAccess(t *testing.T) {
	program := parse(t, `def f() { m.sqrt(x); }`)
	body := stmts(program)[0].Data.(*ast.FuncDeclData).Body
	expr := body.Data.(*ast.BlockData).Stmts[0].Data.(*ast.ExprStmtData).Expr
	call := expr.Data.(*ast.CallData)
	be.Equal(t, call.Callee.Type, ast.Get)
	get := call.Callee.Data.(*ast.GetData)
	be.Equal(t, get.Name, "sqrt")
	be.Equal(t, get.Object.Data.(*ast.VariableData).Name, "m")
	be.Equal(t, len(call.Args), 1)
}

func TestControlFlow(t *testing.T) {
	program := parse(t, `
def f() {
    while (x < 10) {
        if (x == 5) { break; } else { continue; }
    }
    return x;
}
`)
	body := stmts(program)[0].Data.(*ast.FuncDeclData).Body.Data.(*ast.BlockData).Stmts
	be.Equal(t, body[0].Type, ast.While)
	loop := body[0].Data.(*ast.WhileData)
	ifStmt := loop.Body.Data.(*ast.BlockData).Stmts[0].Data.(*ast.IfData)
	be.Equal(t, ifStmt.Then.Data.(*ast.BlockData).Stmts[0].Type, ast.Break)
	be.Equal(t, ifStmt.Else.Data.(*ast.BlockData).Stmts[0].Type, ast.Continue)
	be.Equal(t, body[1].Type, ast.Return)
}

func TestMissingSemicolon(t *testing.T) {
	err := parseErr(t, `store x = 1`)
	be.True(t, strings.Contains(err.Error(), "expected ';'"))
}

func TestUnknownType(t *testing.T) {
	err := parseErr(t, `store x: quux = 1;`)
	be.True(t, strings.Contains(err.Error(), `unknown type "quux"`))
}

func TestIfRequiresParens(t *testing.T) {
	err := parseErr(t, `def f() { if x { } }`)
	be.True(t, strings.Contains(err.Error(), "expected '(' after 'if'"))
}
