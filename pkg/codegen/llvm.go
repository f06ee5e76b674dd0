package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/token"
)

const (
	// DefaultDataLayout and DefaultTriple describe the default IR target.
	DefaultDataLayout = "e-m:w-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"
	DefaultTriple     = "x86_64-pc-windows-msvc"
)

// Format string constants occupy @.str through @.str.5 plus the two boolean
// strings; user literals are numbered from here up.
const userStringBase = 6

type loopContext struct {
	continueLabel string
	breakLabel    string
}

// LLVMBackend emits LLVM-style textual IR. All scalar slots are modeled as
// i64 stack allocations; temporaries and labels are numbered per function.
// Unlike the C lowering, break and continue outside a loop are errors here
// because they need a branch target.
type LLVMBackend struct {
	DataLayout string
	Triple     string

	variables    map[string]string // variable name -> IR reference
	pool         *stringPool
	tempCounter  int
	labelCounter int
	loopStack    []loopContext
}

func NewLLVMBackend() *LLVMBackend {
	return &LLVMBackend{DataLayout: DefaultDataLayout, Triple: DefaultTriple}
}

func (g *LLVMBackend) Generate(program *ast.Node, moduleName string) (string, error) {
	g.pool = newStringPool(func(i int) string {
		return fmt.Sprintf("@.str.%d", i+userStringBase)
	})
	g.loopStack = nil

	var b strings.Builder
	fmt.Fprintf(&b, "; ModuleID = '%s'\n", moduleName)
	fmt.Fprintf(&b, "target datalayout = \"%s\"\n", g.DataLayout)
	fmt.Fprintf(&b, "target triple = \"%s\"\n\n", g.Triple)

	g.pool.collect(program)

	b.WriteString("; External function declarations\n")
	b.WriteString("declare i32 @printf(i8*, ...)\n")
	b.WriteString("declare i32 @puts(i8*)\n")
	b.WriteString("declare void @llvm.memcpy.p0i8.p0i8.i64(i8*, i8*, i64, i1)\n\n")

	b.WriteString("; String constants\n")
	b.WriteString("@.str = private unnamed_addr constant [4 x i8] c\"%s\\0A\\00\", align 1\n")
	b.WriteString("@.str.1 = private unnamed_addr constant [3 x i8] c\"%s\\00\", align 1\n")
	b.WriteString("@.str.2 = private unnamed_addr constant [4 x i8] c\"%d\\0A\\00\", align 1\n")
	b.WriteString("@.str.3 = private unnamed_addr constant [3 x i8] c\"%d\\00\", align 1\n")
	b.WriteString("@.str.4 = private unnamed_addr constant [4 x i8] c\"%f\\0A\\00\", align 1\n")
	b.WriteString("@.str.5 = private unnamed_addr constant [3 x i8] c\"%f\\00\", align 1\n")
	b.WriteString("@.str.bool_true = private unnamed_addr constant [5 x i8] c\"true\\00\", align 1\n")
	b.WriteString("@.str.bool_false = private unnamed_addr constant [6 x i8] c\"false\\00\", align 1\n")

	for _, literal := range g.pool.order {
		fmt.Fprintf(&b, "%s = private unnamed_addr constant [%d x i8] c\"%s\\00\", align 1\n",
			g.pool.names[literal], len(literal)+1, escapeIR(literal))
	}
	b.WriteString("\n")

	for _, fn := range topLevelFuncs(program) {
		code, err := g.genFunction(fn)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
		b.WriteString("\n")
	}

	return b.String(), nil
}

func (g *LLVMBackend) genFunction(fn *ast.FuncDeclData) (string, error) {
	// Per-function state: slots, temporaries and labels start fresh.
	g.variables = make(map[string]string)
	g.tempCounter = 0
	g.labelCounter = 0

	var b strings.Builder
	fmt.Fprintf(&b, "define %s @%s(", typeToIR(fn.ReturnType), fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %%%s", typeToIR(p.Type), p.Name)
		g.variables[p.Name] = "%" + p.Name
	}
	b.WriteString(") {\n")
	b.WriteString("entry:\n")

	stmts := fn.Body.Data.(*ast.BlockData).Stmts
	for _, stmt := range stmts {
		code, err := g.genStatement(stmt)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}

	if !hasTopLevelReturn(stmts) {
		b.WriteString(defaultReturn(fn.ReturnType))
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func typeToIR(t *ast.Type) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case ast.TypeInteger:
		return "i64"
	case ast.TypeFloat:
		return "double"
	case ast.TypeBoolean:
		return "i1"
	case ast.TypeString:
		return "i8*"
	case ast.TypeVoid:
		return "void"
	}
	return "i64"
}

func defaultReturn(t *ast.Type) string {
	if t == nil {
		return "  ret void\n"
	}
	switch t.Kind {
	case ast.TypeVoid:
		return "  ret void\n"
	case ast.TypeInteger:
		return "  ret i64 0\n"
	case ast.TypeFloat:
		return "  ret double 0.0\n"
	case ast.TypeBoolean:
		return "  ret i1 false\n"
	case ast.TypeString:
		return "  ret i8* null\n"
	}
	return "  ret i64 0\n"
}

func (g *LLVMBackend) genStatement(stmt *ast.Node) (string, error) {
	switch stmt.Type {
	case ast.Store:
		d := stmt.Data.(*ast.StoreData)
		var b strings.Builder
		varRef := "%" + d.Name
		if d.Init != nil {
			ir, result, err := g.genExpression(d.Init)
			if err != nil {
				return "", err
			}
			b.WriteString(ir)
			fmt.Fprintf(&b, "  %s = alloca i64, align 8\n", varRef)
			fmt.Fprintf(&b, "  store i64 %s, i64* %s, align 8\n", result, varRef)
		} else {
			fmt.Fprintf(&b, "  %s = alloca i64, align 8\n", varRef)
			fmt.Fprintf(&b, "  store i64 0, i64* %s, align 8\n", varRef)
		}
		g.variables[d.Name] = varRef
		return b.String(), nil

	case ast.ExprStmt:
		ir, _, err := g.genExpression(stmt.Data.(*ast.ExprStmtData).Expr)
		return ir, err

	case ast.Return:
		d := stmt.Data.(*ast.ReturnData)
		if d.Value == nil {
			return "  ret void\n", nil
		}
		ir, result, err := g.genExpression(d.Value)
		if err != nil {
			return "", err
		}
		return ir + fmt.Sprintf("  ret i64 %s\n", result), nil

	case ast.While:
		return g.genWhile(stmt.Data.(*ast.WhileData))

	case ast.If:
		return g.genIf(stmt.Data.(*ast.IfData))

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
		if len(g.loopStack) == 0 {
			return "", genErrf("Break statement outside of loop")
		}
		return fmt.Sprintf("  br label %%%s\n", g.loopStack[len(g.loopStack)-1].breakLabel), nil

	case ast.Continue:
		if len(g.loopStack) == 0 {
			return "", genErrf("Continue statement outside of loop")
		}
		return fmt.Sprintf("  br label %%%s\n", g.loopStack[len(g.loopStack)-1].continueLabel), nil
	}
	// Imports and entry point assignments have no lowering.
	return "", nil
}

func (g *LLVMBackend) genWhile(d *ast.WhileData) (string, error) {
	var b strings.Builder

	loopStart := g.nextLabel()
	loopBody := g.nextLabel()
	loopEnd := g.nextLabel()

	// continue re-tests the condition, break jumps past the loop
	g.loopStack = append(g.loopStack, loopContext{continueLabel: loopStart, breakLabel: loopEnd})

	fmt.Fprintf(&b, "  br label %%%s\n", loopStart)

	fmt.Fprintf(&b, "%s:\n", loopStart)
	condIR, condResult, err := g.genExpression(d.Cond)
	if err != nil {
		return "", err
	}
	b.WriteString(condIR)
	fmt.Fprintf(&b, "  br i1 %s, label %%%s, label %%%s\n", condResult, loopBody, loopEnd)

	fmt.Fprintf(&b, "%s:\n", loopBody)
	bodyIR, err := g.genStatement(d.Body)
	if err != nil {
		return "", err
	}
	b.WriteString(bodyIR)
	fmt.Fprintf(&b, "  br label %%%s\n", loopStart)

	fmt.Fprintf(&b, "%s:\n", loopEnd)

	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	return b.String(), nil
}

func (g *LLVMBackend) genIf(d *ast.IfData) (string, error) {
	var b strings.Builder

	thenLabel := g.nextLabel()
	elseLabel := g.nextLabel()
	endLabel := g.nextLabel()

	condIR, condResult, err := g.genExpression(d.Cond)
	if err != nil {
		return "", err
	}
	b.WriteString(condIR)

	if d.Else != nil {
		fmt.Fprintf(&b, "  br i1 %s, label %%%s, label %%%s\n", condResult, thenLabel, elseLabel)
	} else {
		fmt.Fprintf(&b, "  br i1 %s, label %%%s, label %%%s\n", condResult, thenLabel, endLabel)
	}

	fmt.Fprintf(&b, "%s:\n", thenLabel)
	thenIR, err := g.genStatement(d.Then)
	if err != nil {
		return "", err
	}
	b.WriteString(thenIR)
	fmt.Fprintf(&b, "  br label %%%s\n", endLabel)

	if d.Else != nil {
		fmt.Fprintf(&b, "%s:\n", elseLabel)
		elseIR, err := g.genStatement(d.Else)
		if err != nil {
			return "", err
		}
		b.WriteString(elseIR)
		fmt.Fprintf(&b, "  br label %%%s\n", endLabel)
	}

	fmt.Fprintf(&b, "%s:\n", endLabel)
	return b.String(), nil
}

// genExpression returns the instructions computing the expression and the
// IR operand holding its result.
func (g *LLVMBackend) genExpression(expr *ast.Node) (string, string, error) {
	switch expr.Type {
	case ast.Number:
		return "", strconv.FormatInt(expr.Data.(*ast.NumberData).Value, 10), nil
	case ast.Float:
		return "", formatFloat(expr.Data.(*ast.FloatData).Value), nil
	case ast.Boolean:
		if expr.Data.(*ast.BoolData).Value {
			return "", "1", nil
		}
		return "", "0", nil
	case ast.Null:
		return "", "null", nil
	case ast.String:
		s := expr.Data.(*ast.StringData).Value
		if name, ok := g.pool.lookup(s); ok {
			return "", name, nil
		}
		return "", "", genErrf("String constant not found: %s", s)

	case ast.Variable:
		name := expr.Data.(*ast.VariableData).Name
		varRef, ok := g.variables[name]
		if !ok {
			return "", "", genErrf("Undefined variable: %s", name)
		}
		temp := g.nextTemp()
		return fmt.Sprintf("  %s = load i64, i64* %s, align 8\n", temp, varRef), temp, nil

	case ast.Binary:
		d := expr.Data.(*ast.BinaryData)
		leftIR, leftResult, err := g.genExpression(d.Left)
		if err != nil {
			return "", "", err
		}
		rightIR, rightResult, err := g.genExpression(d.Right)
		if err != nil {
			return "", "", err
		}
		temp := g.nextTemp()
		ir := leftIR + rightIR +
			fmt.Sprintf("  %s = %s i64 %s, %s\n", temp, binaryOpIR(d.Op), leftResult, rightResult)
		return ir, temp, nil

	case ast.Unary:
		d := expr.Data.(*ast.UnaryData)
		operandIR, operandResult, err := g.genExpression(d.Operand)
		if err != nil {
			return "", "", err
		}
		temp := g.nextTemp()
		var instr string
		if d.Op == token.Not {
			instr = fmt.Sprintf("  %s = xor i1 %s, true\n", temp, operandResult)
		} else {
			instr = fmt.Sprintf("  %s = sub i64 0, %s\n", temp, operandResult)
		}
		return operandIR + instr, temp, nil

	case ast.Call:
		return g.genCall(expr.Data.(*ast.CallData))

	case ast.Assign:
		d := expr.Data.(*ast.AssignData)
		valueIR, valueResult, err := g.genExpression(d.Value)
		if err != nil {
			return "", "", err
		}
		varRef, ok := g.variables[d.Name]
		if !ok {
			varRef = "%" + d.Name
			g.variables[d.Name] = varRef
		}
		ir := valueIR + fmt.Sprintf("  store i64 %s, i64* %s, align 8\n", valueResult, varRef)
		return ir, valueResult, nil

	case ast.Get:
		d := expr.Data.(*ast.GetData)
		if d.Object.Type != ast.Variable {
			return "", "", genErrf("Complex object access not yet supported")
		}
		qualified := d.Object.Data.(*ast.VariableData).Name + "." + d.Name
		varRef, ok := g.variables[qualified]
		if !ok {
			return "", "", genErrf("Undefined variable: %s", qualified)
		}
		temp := g.nextTemp()
		return fmt.Sprintf("  %s = load i64, i64* %s, align 8\n", temp, varRef), temp, nil
	}
	return "", "", genErrf("Expression type not implemented")
}

func (g *LLVMBackend) genCall(d *ast.CallData) (string, string, error) {
	if d.Callee.Type != ast.Variable {
		return "", "", genErrf("Complex function calls not supported yet")
	}
	funcName := d.Callee.Data.(*ast.VariableData).Name

	if funcName == "print" || funcName == "println" {
		return g.genPrint(funcName, d.Args)
	}

	var b strings.Builder
	results := make([]string, len(d.Args))
	for i, arg := range d.Args {
		ir, result, err := g.genExpression(arg)
		if err != nil {
			return "", "", err
		}
		b.WriteString(ir)
		results[i] = result
	}

	temp := g.nextTemp()
	fmt.Fprintf(&b, "  %s = call i64 @%s(", temp, funcName)
	for i, result := range results {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "i64 %s", result)
	}
	b.WriteString(")\n")
	return b.String(), temp, nil
}

// genPrint lowers print and println to printf calls, choosing the format
// constant from the argument's static shape.
func (g *LLVMBackend) genPrint(funcName string, args []*ast.Node) (string, string, error) {
	if len(args) != 1 {
		return "", "", genErrf("%s expects exactly 1 argument", funcName)
	}
	newline := funcName == "println"

	argIR, argResult, err := g.genExpression(args[0])
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString(argIR)

	switch args[0].Type {
	case ast.String:
		s := args[0].Data.(*ast.StringData).Value
		strName, ok := g.pool.lookup(s)
		if !ok {
			return "", "", genErrf("String constant not found: %s", s)
		}
		format := pick(newline, "@.str", "@.str.1")
		fmt.Fprintf(&b, "  call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* %s, i32 0, i32 0), i8* getelementptr inbounds ([%d x i8], [%d x i8]* %s, i32 0, i32 0))\n",
			format, len(s)+1, len(s)+1, strName)

	case ast.Float:
		format := pick(newline, "@.str.4", "@.str.5")
		fmt.Fprintf(&b, "  call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* %s, i32 0, i32 0), double %s)\n",
			format, argResult)

	case ast.Boolean:
		boolStr, boolLen := "@.str.bool_false", 6
		if args[0].Data.(*ast.BoolData).Value {
			boolStr, boolLen = "@.str.bool_true", 5
		}
		format := pick(newline, "@.str", "@.str.1")
		fmt.Fprintf(&b, "  call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* %s, i32 0, i32 0), i8* getelementptr inbounds ([%d x i8], [%d x i8]* %s, i32 0, i32 0))\n",
			format, boolLen, boolLen, boolStr)

	default:
		// Integer literals, variables and expressions print as i64.
		format := pick(newline, "@.str.2", "@.str.3")
		fmt.Fprintf(&b, "  call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* %s, i32 0, i32 0), i64 %s)\n",
			format, argResult)
	}

	return b.String(), "0", nil
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func binaryOpIR(op token.Type) string {
	switch op {
	case token.Plus:
		return "add"
	case token.Minus:
		return "sub"
	case token.Star:
		return "mul"
	case token.Slash:
		return "sdiv"
	case token.Percent:
		return "srem"
	case token.EqEq:
		return "icmp eq"
	case token.Neq:
		return "icmp ne"
	case token.Lt:
		return "icmp slt"
	case token.Lte:
		return "icmp sle"
	case token.Gt:
		return "icmp sgt"
	case token.Gte:
		return "icmp sge"
	case token.AndAnd:
		return "and"
	case token.OrOr:
		return "or"
	}
	return "add"
}

func (g *LLVMBackend) nextTemp() string {
	temp := fmt.Sprintf("%%%d", g.tempCounter)
	g.tempCounter++
	return temp
}

func (g *LLVMBackend) nextLabel() string {
	label := fmt.Sprintf("label%d", g.labelCounter)
	g.labelCounter++
	return label
}

func escapeIR(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\22`)
}
