// Package codegen lowers analyzed programs to target text. Two backends
// share one contract: emit C source or LLVM-style IR for the top-level
// function declarations of a program.
package codegen

import (
	"fmt"

	"github.com/xplshn/nlc/pkg/ast"
)

// Backend turns an analyzed program into target text.
type Backend interface {
	Generate(program *ast.Node, moduleName string) (string, error)
}

type CodeGenError struct {
	Message string
}

func (e *CodeGenError) Error() string { return e.Message }

func genErrf(format string, args ...interface{}) error {
	return &CodeGenError{Message: fmt.Sprintf(format, args...)}
}

func unsupportedf(format string, args ...interface{}) error {
	return genErrf("Unsupported feature: "+format, args...)
}

// stringPool interns the distinct string literals of a program. Constants
// are emitted in first-appearance order; nameFor fixes the backend's
// naming scheme.
type stringPool struct {
	names   map[string]string
	order   []string
	nameFor func(i int) string
}

func newStringPool(nameFor func(i int) string) *stringPool {
	return &stringPool{names: make(map[string]string), nameFor: nameFor}
}

func (p *stringPool) lookup(literal string) (string, bool) {
	name, ok := p.names[literal]
	return name, ok
}

func (p *stringPool) intern(literal string) {
	if _, ok := p.names[literal]; ok {
		return
	}
	p.names[literal] = p.nameFor(len(p.order))
	p.order = append(p.order, literal)
}

// collect walks the program and interns every string literal reachable from
// its statements.
func (p *stringPool) collect(program *ast.Node) {
	for _, stmt := range program.Data.(*ast.ProgramData).Stmts {
		p.collectStmt(stmt)
	}
}

func (p *stringPool) collectStmt(stmt *ast.Node) {
	switch stmt.Type {
	case ast.ExprStmt:
		p.collectExpr(stmt.Data.(*ast.ExprStmtData).Expr)
	case ast.Store:
		if init := stmt.Data.(*ast.StoreData).Init; init != nil {
			p.collectExpr(init)
		}
	case ast.FuncDecl:
		p.collectStmt(stmt.Data.(*ast.FuncDeclData).Body)
	case ast.If:
		d := stmt.Data.(*ast.IfData)
		p.collectExpr(d.Cond)
		p.collectStmt(d.Then)
		if d.Else != nil {
			p.collectStmt(d.Else)
		}
	case ast.While:
		d := stmt.Data.(*ast.WhileData)
		p.collectExpr(d.Cond)
		p.collectStmt(d.Body)
	case ast.Return:
		if v := stmt.Data.(*ast.ReturnData).Value; v != nil {
			p.collectExpr(v)
		}
	case ast.Block:
		for _, s := range stmt.Data.(*ast.BlockData).Stmts {
			p.collectStmt(s)
		}
	case ast.Export:
		p.collectStmt(stmt.Data.(*ast.ExportData).Decl)
	}
}

func (p *stringPool) collectExpr(expr *ast.Node) {
	switch expr.Type {
	case ast.String:
		p.intern(expr.Data.(*ast.StringData).Value)
	case ast.Binary:
		d := expr.Data.(*ast.BinaryData)
		p.collectExpr(d.Left)
		p.collectExpr(d.Right)
	case ast.Unary:
		p.collectExpr(expr.Data.(*ast.UnaryData).Operand)
	case ast.Call:
		for _, arg := range expr.Data.(*ast.CallData).Args {
			p.collectExpr(arg)
		}
	case ast.Assign:
		p.collectExpr(expr.Data.(*ast.AssignData).Value)
	}
}

// topLevelFuncs yields the function declarations of a program in source
// order, looking through export wrappers. Other top-level statements have
// no lowering.
func topLevelFuncs(program *ast.Node) []*ast.FuncDeclData {
	var funcs []*ast.FuncDeclData
	for _, stmt := range program.Data.(*ast.ProgramData).Stmts {
		decl := stmt
		if decl.Type == ast.Export {
			decl = decl.Data.(*ast.ExportData).Decl
		}
		if decl.Type == ast.FuncDecl {
			funcs = append(funcs, decl.Data.(*ast.FuncDeclData))
		}
	}
	return funcs
}

// hasTopLevelReturn reports whether the statement list directly contains a
// return statement. Nested returns inside ifs and loops do not count; the
// backends append their default return in that case.
func hasTopLevelReturn(stmts []*ast.Node) bool {
	for _, s := range stmts {
		if s.Type == ast.Return {
			return true
		}
	}
	return false
}
