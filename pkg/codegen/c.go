package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/token"
)

// CBackend emits portable C89-flavored source. Locals are declared int
// regardless of language type; control flow maps to native C constructs, so
// break and continue need no validation here.
type CBackend struct {
	variables map[string]string // variable name -> C type
	pool      *stringPool
}

func NewCBackend() *CBackend {
	return &CBackend{}
}

func (g *CBackend) Generate(program *ast.Node, moduleName string) (string, error) {
	g.variables = make(map[string]string)
	g.pool = newStringPool(func(i int) string {
		return fmt.Sprintf("str_const_%d", i)
	})

	var b strings.Builder
	b.WriteString("#include <stdio.h>\n")
	b.WriteString("#include <string.h>\n")
	b.WriteString("#include <stdlib.h>\n")
	b.WriteString("#include <math.h>\n\n")

	g.pool.collect(program)
	for _, literal := range g.pool.order {
		fmt.Fprintf(&b, "static const char %s[] = \"%s\";\n", g.pool.names[literal], escapeC(literal))
	}
	if len(g.pool.order) > 0 {
		b.WriteString("\n")
	}

	funcs := topLevelFuncs(program)
	for _, fn := range funcs {
		b.WriteString(g.prototype(fn))
		b.WriteString("\n")
	}
	if len(funcs) > 0 {
		b.WriteString("\n")
	}

	for _, fn := range funcs {
		body, err := g.genFunction(fn)
		if err != nil {
			return "", err
		}
		b.WriteString(body)
		b.WriteString("\n")
	}

	return b.String(), nil
}

func (g *CBackend) returnTypeC(fn *ast.FuncDeclData) string {
	// main always compiles to the C int entry point.
	if fn.Name == "main" {
		return "int"
	}
	if fn.ReturnType == nil {
		return "void"
	}
	return typeToC(fn.ReturnType)
}

func (g *CBackend) prototype(fn *ast.FuncDeclData) string {
	var params strings.Builder
	for i, p := range fn.Params {
		if i > 0 {
			params.WriteString(", ")
		}
		fmt.Fprintf(&params, "%s %s", typeToC(p.Type), p.Name)
	}
	paramsStr := params.String()
	if paramsStr == "" {
		paramsStr = "void"
	}
	return fmt.Sprintf("%s %s(%s);", g.returnTypeC(fn), fn.Name, paramsStr)
}

func (g *CBackend) genFunction(fn *ast.FuncDeclData) (string, error) {
	// Tracked variable types are per function, so a param type from one
	// function cannot steer print formatting in another.
	g.variables = make(map[string]string)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(", g.returnTypeC(fn), fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		cType := typeToC(p.Type)
		fmt.Fprintf(&b, "%s %s", cType, p.Name)
		g.variables[p.Name] = cType
	}
	if len(fn.Params) == 0 {
		b.WriteString("void")
	}
	b.WriteString(") {\n")

	stmts := fn.Body.Data.(*ast.BlockData).Stmts
	for _, stmt := range stmts {
		code, err := g.genStatement(stmt)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}

	if fn.Name == "main" && !hasTopLevelReturn(stmts) {
		b.WriteString("    return 0;\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func (g *CBackend) genStatement(stmt *ast.Node) (string, error) {
	switch stmt.Type {
	case ast.ExprStmt:
		code, err := g.genExpression(stmt.Data.(*ast.ExprStmtData).Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("    %s;\n", code), nil

	case ast.Store:
		d := stmt.Data.(*ast.StoreData)
		// Locals are int in the C lowering regardless of language type.
		g.variables[d.Name] = "int"
		if d.Init != nil {
			init, err := g.genExpression(d.Init)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("    int %s = %s;\n", d.Name, init), nil
		}
		return fmt.Sprintf("    int %s;\n", d.Name), nil

	case ast.If:
		d := stmt.Data.(*ast.IfData)
		var b strings.Builder
		cond, err := g.genExpression(d.Cond)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    if (%s) {\n", cond)
		then, err := g.genStatement(d.Then)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    %s", then)
		if d.Else != nil {
			b.WriteString("    } else {\n")
			els, err := g.genStatement(d.Else)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "    %s", els)
		}
		b.WriteString("    }\n")
		return b.String(), nil

	case ast.While:
		d := stmt.Data.(*ast.WhileData)
		var b strings.Builder
		cond, err := g.genExpression(d.Cond)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    while (%s) {\n", cond)
		body, err := g.genStatement(d.Body)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    %s", body)
		b.WriteString("    }\n")
		return b.String(), nil

	case ast.Return:
		d := stmt.Data.(*ast.ReturnData)
		if d.Value != nil {
			code, err := g.genExpression(d.Value)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("    return %s;\n", code), nil
		}
		return "    return;\n", nil

	case ast.Block:
		var b strings.Builder
		for _, s := range stmt.Data.(*ast.BlockData).Stmts {
			code, err := g.genStatement(s)
			if err != nil {
				return "", err
			}
			b.WriteString(code)
		}
		return b.String(), nil

	case ast.Break:
		return "    break;\n", nil
	case ast.Continue:
		return "    continue;\n", nil
	}
	return "", unsupportedf("statement type not supported")
}

func (g *CBackend) genExpression(expr *ast.Node) (string, error) {
	switch expr.Type {
	case ast.Number:
		return strconv.FormatInt(expr.Data.(*ast.NumberData).Value, 10), nil
	case ast.Float:
		return formatFloat(expr.Data.(*ast.FloatData).Value), nil
	case ast.Boolean:
		if expr.Data.(*ast.BoolData).Value {
			return "1", nil
		}
		return "0", nil
	case ast.Null:
		return "NULL", nil
	case ast.String:
		s := expr.Data.(*ast.StringData).Value
		if name, ok := g.pool.lookup(s); ok {
			return name, nil
		}
		return "", unsupportedf("string constant not found: %s", s)

	case ast.Variable:
		name := expr.Data.(*ast.VariableData).Name
		if _, ok := g.variables[name]; ok {
			return name, nil
		}
		return "", genErrf("Variable not found: %s", name)

	case ast.Binary:
		d := expr.Data.(*ast.BinaryData)
		left, err := g.genExpression(d.Left)
		if err != nil {
			return "", err
		}
		right, err := g.genExpression(d.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, binaryOpC(d.Op), right), nil

	case ast.Unary:
		d := expr.Data.(*ast.UnaryData)
		operand, err := g.genExpression(d.Operand)
		if err != nil {
			return "", err
		}
		op := "-"
		if d.Op == token.Not {
			op = "!"
		}
		return fmt.Sprintf("(%s%s)", op, operand), nil

	case ast.Call:
		return g.genCall(expr.Data.(*ast.CallData))

	case ast.Get:
		d := expr.Data.(*ast.GetData)
		if d.Object.Type != ast.Variable {
			return "", unsupportedf("complex object access not supported")
		}
		qualified := d.Object.Data.(*ast.VariableData).Name + "." + d.Name
		if _, ok := g.variables[qualified]; ok {
			return qualified, nil
		}
		return "", unsupportedf("undefined variable: %s", qualified)

	case ast.Assign:
		d := expr.Data.(*ast.AssignData)
		value, err := g.genExpression(d.Value)
		if err != nil {
			return "", err
		}
		g.variables[d.Name] = "int"
		return fmt.Sprintf("(%s = %s)", d.Name, value), nil
	}
	return "", unsupportedf("expression type not supported")
}

func (g *CBackend) genCall(d *ast.CallData) (string, error) {
	if d.Callee.Type != ast.Variable {
		return "", unsupportedf("complex function calls not supported")
	}
	funcName := d.Callee.Data.(*ast.VariableData).Name

	if (funcName == "print" || funcName == "println") && len(d.Args) == 1 {
		argCode, err := g.genExpression(d.Args[0])
		if err != nil {
			return "", err
		}
		format, arg := g.printFormatAndArg(d.Args[0], argCode)
		if funcName == "println" {
			return fmt.Sprintf("printf(\"%s\\n\", %s)", format, arg), nil
		}
		return fmt.Sprintf("printf(\"%s\", %s)", format, arg), nil
	}

	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		code, err := g.genExpression(a)
		if err != nil {
			return "", err
		}
		args[i] = code
	}
	return fmt.Sprintf("%s(%s)", funcName, strings.Join(args, ", ")), nil
}

// printFormatAndArg picks the printf conversion from the static shape of
// the argument. Variables fall back to the tracked C type; everything else
// defaults to a string.
func (g *CBackend) printFormatAndArg(arg *ast.Node, argCode string) (format, code string) {
	switch arg.Type {
	case ast.Number:
		return "%d", argCode
	case ast.Float:
		return "%f", argCode
	case ast.Boolean:
		if arg.Data.(*ast.BoolData).Value {
			return "%s", `"true"`
		}
		return "%s", `"false"`
	case ast.String:
		return "%s", argCode
	case ast.Null:
		return "%s", `"null"`
	case ast.Variable:
		switch g.variables[arg.Data.(*ast.VariableData).Name] {
		case "int":
			return "%d", argCode
		case "float", "double":
			return "%f", argCode
		default:
			return "%s", argCode
		}
	case ast.Binary:
		return "%d", argCode
	}
	return "%s", argCode
}

func typeToC(t *ast.Type) string {
	switch t.Kind {
	case ast.TypeInteger:
		return "int"
	case ast.TypeFloat:
		return "double"
	case ast.TypeString:
		return "const char*"
	case ast.TypeBoolean:
		return "int"
	case ast.TypeVoid:
		return "void"
	}
	return "void*"
}

func binaryOpC(op token.Type) string {
	switch op {
	case token.Plus:
		return "+"
	case token.Minus:
		return "-"
	case token.Star:
		return "*"
	case token.Slash:
		return "/"
	case token.Percent:
		return "%"
	case token.EqEq:
		return "=="
	case token.Neq:
		return "!="
	case token.Lt:
		return "<"
	case token.Lte:
		return "<="
	case token.Gt:
		return ">"
	case token.Gte:
		return ">="
	case token.AndAnd:
		return "&&"
	case token.OrOr:
		return "||"
	}
	return "?"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escapeC(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
