// Package interpreter evaluates analyzed programs directly. It exists for
// the -run path of the driver and as the reference semantics for the
// compiled backends.
package interpreter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/lexer"
	"github.com/xplshn/nlc/pkg/parser"
	"github.com/xplshn/nlc/pkg/stdlib"
	"github.com/xplshn/nlc/pkg/token"
	"github.com/xplshn/nlc/pkg/util"
)

type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

func rterrf(format string, args ...interface{}) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// Control flow inside function bodies travels as sentinel errors. Return
// carries a value; break and continue are bare markers consumed by the
// innermost loop.
type returnSignal struct {
	value stdlib.Value
}

func (returnSignal) Error() string { return "return outside of function" }

var (
	errBreak    = errors.New("Break statement outside of loop")
	errContinue = errors.New("Continue statement outside of loop")
)

type function struct {
	name   string
	params []ast.Param
	body   []*ast.Node
}

type environment map[string]stdlib.Value

func (env environment) clone() environment {
	out := make(environment, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Interpreter runs a program against concrete IO streams. Builtin calls go
// through the stdlib runtime; user functions get a copy of the global
// environment, so mutations inside a call never leak out.
type Interpreter struct {
	rt        *stdlib.Runtime
	globals   environment
	functions map[string]*function
	baseDir   string
	loaded    map[string]bool
}

func New(in io.Reader, out io.Writer) *Interpreter {
	return &Interpreter{
		rt:        stdlib.NewRuntime(in, out),
		globals:   make(environment),
		functions: make(map[string]*function),
		baseDir:   ".",
		loaded:    make(map[string]bool),
	}
}

// Run executes the program and returns its exit code: the integer value of
// the entry function's return, or 0 when the result has no integer form.
// filePath anchors module resolution for imports.
func (i *Interpreter) Run(program *ast.Node, filePath string) (int, error) {
	if filePath != "" {
		i.baseDir = filepath.Dir(filePath)
	}

	stmts := program.Data.(*ast.ProgramData).Stmts
	entry := "main"
	for _, stmt := range stmts {
		decl := stmt
		if decl.Type == ast.Export {
			decl = decl.Data.(*ast.ExportData).Decl
		}
		switch decl.Type {
		case ast.FuncDecl:
			d := decl.Data.(*ast.FuncDeclData)
			i.functions[d.Name] = &function{
				name:   d.Name,
				params: d.Params,
				body:   d.Body.Data.(*ast.BlockData).Stmts,
			}
		case ast.AssignMain:
			entry = decl.Data.(*ast.AssignMainData).Name
		}
	}

	for _, stmt := range stmts {
		decl := stmt
		if decl.Type == ast.Export {
			decl = decl.Data.(*ast.ExportData).Decl
		}
		switch decl.Type {
		case ast.Store:
			if err := i.execStatement(decl, i.globals); err != nil {
				return 1, err
			}
		case ast.Import:
			d := decl.Data.(*ast.ImportData)
			if err := i.loadModule(d.Path, d.Alias, nil); err != nil {
				return 1, err
			}
		case ast.FromImport:
			d := decl.Data.(*ast.FromImportData)
			if err := i.loadModule(d.Path, "", d.Items); err != nil {
				return 1, err
			}
		}
	}

	fn, ok := i.functions[entry]
	if !ok {
		return 1, rterrf("Undefined function: %s", entry)
	}
	result, err := i.callFunction(fn, nil)
	if err != nil {
		return 1, err
	}
	return int(toIntOrZero(result)), nil
}

func (i *Interpreter) callFunction(fn *function, args []stdlib.Value) (stdlib.Value, error) {
	// Call sites are arity-checked during analysis, but an ASSIGN_MAIN entry
	// is invoked directly with no arguments and may declare parameters.
	if len(args) != len(fn.params) {
		return stdlib.Value{}, rterrf("Function '%s' expects %d arguments, but %d were provided", fn.name, len(fn.params), len(args))
	}
	env := i.globals.clone()
	for idx, p := range fn.params {
		env[p.Name] = args[idx]
	}
	for _, stmt := range fn.body {
		if err := i.execStatement(stmt, env); err != nil {
			var ret returnSignal
			if errors.As(err, &ret) {
				return ret.value, nil
			}
			return stdlib.Value{}, err
		}
	}
	return stdlib.IntVal(0), nil
}

func (i *Interpreter) execStatement(stmt *ast.Node, env environment) error {
	switch stmt.Type {
	case ast.ExprStmt:
		_, err := i.evalExpression(stmt.Data.(*ast.ExprStmtData).Expr, env)
		return err

	case ast.Store:
		d := stmt.Data.(*ast.StoreData)
		value := stdlib.IntVal(0)
		if d.Init != nil {
			v, err := i.evalExpression(d.Init, env)
			if err != nil {
				return err
			}
			value = v
		}
		env[d.Name] = value
		return nil

	case ast.Return:
		d := stmt.Data.(*ast.ReturnData)
		value := stdlib.IntVal(0)
		if d.Value != nil {
			v, err := i.evalExpression(d.Value, env)
			if err != nil {
				return err
			}
			value = v
		}
		return returnSignal{value: value}

	case ast.If:
		d := stmt.Data.(*ast.IfData)
		cond, err := i.evalExpression(d.Cond, env)
		if err != nil {
			return err
		}
		truth, err := toBool(cond)
		if err != nil {
			return err
		}
		if truth {
			return i.execStatement(d.Then, env)
		}
		if d.Else != nil {
			return i.execStatement(d.Else, env)
		}
		return nil

	case ast.While:
		d := stmt.Data.(*ast.WhileData)
		for {
			cond, err := i.evalExpression(d.Cond, env)
			if err != nil {
				return err
			}
			truth, err := toBool(cond)
			if err != nil {
				return err
			}
			if !truth {
				return nil
			}
			if err := i.execStatement(d.Body, env); err != nil {
				if errors.Is(err, errBreak) {
					return nil
				}
				if errors.Is(err, errContinue) {
					continue
				}
				return err
			}
		}

	case ast.Block:
		for _, s := range stmt.Data.(*ast.BlockData).Stmts {
			if err := i.execStatement(s, env); err != nil {
				return err
			}
		}
		return nil

	case ast.Break:
		return errBreak
	case ast.Continue:
		return errContinue

	case ast.Export:
		return i.execStatement(stmt.Data.(*ast.ExportData).Decl, env)

	case ast.FuncDecl, ast.Import, ast.FromImport, ast.AssignMain:
		// Handled during program setup.
		return nil
	}
	return rterrf("statement type not supported")
}

func (i *Interpreter) evalExpression(expr *ast.Node, env environment) (stdlib.Value, error) {
	switch expr.Type {
	case ast.Number:
		return stdlib.IntVal(expr.Data.(*ast.NumberData).Value), nil
	case ast.Float:
		return stdlib.FloatVal(expr.Data.(*ast.FloatData).Value), nil
	case ast.Boolean:
		return stdlib.BoolVal(expr.Data.(*ast.BoolData).Value), nil
	case ast.String:
		return stdlib.StrVal(expr.Data.(*ast.StringData).Value), nil
	case ast.Null:
		return stdlib.IntVal(0), nil

	case ast.Variable:
		name := expr.Data.(*ast.VariableData).Name
		if v, ok := env[name]; ok {
			return v, nil
		}
		return stdlib.Value{}, rterrf("Undefined variable: %s", name)

	case ast.Binary:
		d := expr.Data.(*ast.BinaryData)
		left, err := i.evalExpression(d.Left, env)
		if err != nil {
			return stdlib.Value{}, err
		}
		right, err := i.evalExpression(d.Right, env)
		if err != nil {
			return stdlib.Value{}, err
		}
		return evalBinary(d.Op, left, right)

	case ast.Unary:
		d := expr.Data.(*ast.UnaryData)
		operand, err := i.evalExpression(d.Operand, env)
		if err != nil {
			return stdlib.Value{}, err
		}
		return evalUnary(d.Op, operand)

	case ast.Call:
		return i.evalCall(expr.Data.(*ast.CallData), env)

	case ast.Get:
		d := expr.Data.(*ast.GetData)
		if d.Object.Type != ast.Variable {
			return stdlib.Value{}, rterrf("Complex field access expressions not yet supported")
		}
		qualified := d.Object.Data.(*ast.VariableData).Name + "." + d.Name
		if v, ok := env[qualified]; ok {
			return v, nil
		}
		return stdlib.Value{}, rterrf("Undefined variable: %s", qualified)

	case ast.Assign:
		d := expr.Data.(*ast.AssignData)
		value, err := i.evalExpression(d.Value, env)
		if err != nil {
			return stdlib.Value{}, err
		}
		if _, ok := env[d.Name]; !ok {
			return stdlib.Value{}, rterrf("Cannot assign to undeclared variable: %s", d.Name)
		}
		env[d.Name] = value
		return value, nil
	}
	return stdlib.Value{}, rterrf("expression type not supported")
}

func (i *Interpreter) evalCall(d *ast.CallData, env environment) (stdlib.Value, error) {
	var funcName string
	switch d.Callee.Type {
	case ast.Variable:
		funcName = d.Callee.Data.(*ast.VariableData).Name
	case ast.Get:
		get := d.Callee.Data.(*ast.GetData)
		if get.Object.Type != ast.Variable {
			return stdlib.Value{}, rterrf("Complex function call expressions not yet supported")
		}
		funcName = get.Object.Data.(*ast.VariableData).Name + "." + get.Name
	default:
		return stdlib.Value{}, rterrf("Complex function calls not yet supported")
	}

	args := make([]stdlib.Value, len(d.Args))
	for idx, arg := range d.Args {
		v, err := i.evalExpression(arg, env)
		if err != nil {
			return stdlib.Value{}, err
		}
		args[idx] = v
	}

	if stdlib.IsBuiltin(funcName) {
		return i.rt.Call(funcName, args)
	}
	fn, ok := i.functions[funcName]
	if !ok {
		return stdlib.Value{}, rterrf("Undefined function: %s", funcName)
	}
	if len(args) != len(fn.params) {
		return stdlib.Value{}, rterrf("Function '%s' expects %d arguments, but %d were provided",
			funcName, len(fn.params), len(args))
	}
	return i.callFunction(fn, args)
}

// loadModule reads a module file and registers its exported declarations.
// With an alias the exports land under "alias.name"; a plain import binds
// them directly; a from-import binds only the listed items, honoring
// renames. Each file is loaded once per run.
func (i *Interpreter) loadModule(path []string, alias string, items []ast.ImportItem) error {
	elems := append([]string{i.baseDir}, path[:len(path)-1]...)
	elems = append(elems, path[len(path)-1]+".nlang")
	filePath := filepath.Join(elems...)
	moduleName := path[len(path)-1]

	key := filePath
	if abs, err := filepath.Abs(filePath); err == nil {
		key = abs
	}
	if i.loaded[key] {
		return nil
	}
	i.loaded[key] = true

	src, err := os.ReadFile(filePath)
	if err != nil {
		return rterrf("Failed to read module file '%s': %v", filePath, err)
	}
	runes := []rune(string(src))
	fileIndex := util.AddSourceFile(filePath, runes)

	tokens, err := lexer.New(runes, fileIndex).Tokenize()
	if err != nil {
		return rterrf("Lexer error in module '%s': %v", moduleName, err)
	}
	program, err := parser.New(tokens).ParseProgram()
	if err != nil {
		return rterrf("Parser error in module '%s': %v", moduleName, err)
	}

	rename := make(map[string]string)
	for _, item := range items {
		local := item.Name
		if item.Alias != "" {
			local = item.Alias
		}
		rename[item.Name] = local
	}
	bind := func(name string) (string, bool) {
		if items != nil {
			local, ok := rename[name]
			return local, ok
		}
		if alias != "" {
			return alias + "." + name, true
		}
		return name, true
	}

	for _, stmt := range program.Data.(*ast.ProgramData).Stmts {
		if stmt.Type != ast.Export {
			continue
		}
		decl := stmt.Data.(*ast.ExportData).Decl
		switch decl.Type {
		case ast.FuncDecl:
			fd := decl.Data.(*ast.FuncDeclData)
			local, ok := bind(fd.Name)
			if !ok {
				continue
			}
			i.functions[local] = &function{
				name:   local,
				params: fd.Params,
				body:   fd.Body.Data.(*ast.BlockData).Stmts,
			}
		case ast.Store:
			sd := decl.Data.(*ast.StoreData)
			local, ok := bind(sd.Name)
			if !ok {
				continue
			}
			value := stdlib.IntVal(0)
			if sd.Init != nil {
				v, err := i.evalExpression(sd.Init, i.globals)
				if err != nil {
					return err
				}
				value = v
			}
			i.globals[local] = value
		}
	}
	return nil
}

func evalBinary(op token.Type, left, right stdlib.Value) (stdlib.Value, error) {
	switch op {
	case token.Plus:
		if left.Kind == ast.TypeString && right.Kind == ast.TypeString {
			return stdlib.StrVal(left.Str + right.Str), nil
		}
		return numericOp(op, left, right)
	case token.Minus, token.Star:
		return numericOp(op, left, right)

	case token.Slash:
		// Division always yields a float; a zero divisor of either
		// numeric type is an error.
		lf, err := toFloat(left)
		if err != nil {
			return stdlib.Value{}, err
		}
		rf, err := toFloat(right)
		if err != nil {
			return stdlib.Value{}, err
		}
		if rf == 0 {
			return stdlib.Value{}, rterrf("Division by zero")
		}
		return stdlib.FloatVal(lf / rf), nil

	case token.Percent:
		if left.Kind != ast.TypeInteger || right.Kind != ast.TypeInteger {
			return stdlib.Value{}, rterrf("Modulo operator requires integer operands")
		}
		if right.Int == 0 {
			return stdlib.Value{}, rterrf("Division by zero")
		}
		return stdlib.IntVal(left.Int % right.Int), nil

	case token.EqEq:
		return stdlib.BoolVal(valuesEqual(left, right)), nil
	case token.Neq:
		return stdlib.BoolVal(!valuesEqual(left, right)), nil

	case token.Lt, token.Lte, token.Gt, token.Gte:
		lf, err := toFloat(left)
		if err != nil {
			return stdlib.Value{}, err
		}
		rf, err := toFloat(right)
		if err != nil {
			return stdlib.Value{}, err
		}
		switch op {
		case token.Lt:
			return stdlib.BoolVal(lf < rf), nil
		case token.Lte:
			return stdlib.BoolVal(lf <= rf), nil
		case token.Gt:
			return stdlib.BoolVal(lf > rf), nil
		default:
			return stdlib.BoolVal(lf >= rf), nil
		}

	case token.AndAnd, token.OrOr:
		lb, err := toBool(left)
		if err != nil {
			return stdlib.Value{}, err
		}
		rb, err := toBool(right)
		if err != nil {
			return stdlib.Value{}, err
		}
		if op == token.AndAnd {
			return stdlib.BoolVal(lb && rb), nil
		}
		return stdlib.BoolVal(lb || rb), nil
	}
	return stdlib.Value{}, rterrf("unknown binary operator %s", op)
}

// numericOp handles + - * with int/float promotion: two integers stay
// integer, any float operand promotes the result to float.
func numericOp(op token.Type, left, right stdlib.Value) (stdlib.Value, error) {
	if left.Kind == ast.TypeInteger && right.Kind == ast.TypeInteger {
		switch op {
		case token.Plus:
			return stdlib.IntVal(left.Int + right.Int), nil
		case token.Minus:
			return stdlib.IntVal(left.Int - right.Int), nil
		default:
			return stdlib.IntVal(left.Int * right.Int), nil
		}
	}
	if !isNumeric(left) || !isNumeric(right) {
		return stdlib.Value{}, rterrf("Cannot perform arithmetic on %s and %s",
			typeName(left), typeName(right))
	}
	lf, _ := toFloat(left)
	rf, _ := toFloat(right)
	switch op {
	case token.Plus:
		return stdlib.FloatVal(lf + rf), nil
	case token.Minus:
		return stdlib.FloatVal(lf - rf), nil
	default:
		return stdlib.FloatVal(lf * rf), nil
	}
}

func evalUnary(op token.Type, operand stdlib.Value) (stdlib.Value, error) {
	if op == token.Not {
		b, err := toBool(operand)
		if err != nil {
			return stdlib.Value{}, err
		}
		return stdlib.BoolVal(!b), nil
	}
	switch operand.Kind {
	case ast.TypeInteger:
		return stdlib.IntVal(-operand.Int), nil
	case ast.TypeFloat:
		return stdlib.FloatVal(-operand.Flt), nil
	}
	return stdlib.Value{}, rterrf("Negation requires numeric operand")
}

// valuesEqual is structural: values of different kinds are never equal,
// including an integer and the float with the same magnitude.
func valuesEqual(left, right stdlib.Value) bool {
	if left.Kind != right.Kind {
		return false
	}
	switch left.Kind {
	case ast.TypeInteger:
		return left.Int == right.Int
	case ast.TypeFloat:
		return left.Flt == right.Flt
	case ast.TypeBoolean:
		return left.Bool == right.Bool
	case ast.TypeString:
		return left.Str == right.Str
	}
	return true
}

func typeName(v stdlib.Value) string {
	switch v.Kind {
	case ast.TypeInteger:
		return "int"
	case ast.TypeFloat:
		return "float"
	case ast.TypeBoolean:
		return "bool"
	case ast.TypeString:
		return "string"
	case ast.TypeVoid:
		return "void"
	}
	return "unknown"
}

func isNumeric(v stdlib.Value) bool {
	return v.Kind == ast.TypeInteger || v.Kind == ast.TypeFloat
}

func toFloat(v stdlib.Value) (float64, error) {
	switch v.Kind {
	case ast.TypeInteger:
		return float64(v.Int), nil
	case ast.TypeFloat:
		return v.Flt, nil
	case ast.TypeBoolean:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	}
	return 0, rterrf("Cannot convert %s to float", typeName(v))
}

func toBool(v stdlib.Value) (bool, error) {
	switch v.Kind {
	case ast.TypeBoolean:
		return v.Bool, nil
	case ast.TypeInteger:
		return v.Int != 0, nil
	case ast.TypeFloat:
		return v.Flt != 0, nil
	}
	return false, rterrf("Cannot convert %s to boolean", typeName(v))
}

// toIntOrZero is the exit code conversion: truncate floats, map booleans to
// 0/1, and fall back to 0 for everything else.
func toIntOrZero(v stdlib.Value) int64 {
	switch v.Kind {
	case ast.TypeInteger:
		return v.Int
	case ast.TypeFloat:
		return int64(math.Trunc(v.Flt))
	case ast.TypeBoolean:
		if v.Bool {
			return 1
		}
		return 0
	case ast.TypeString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
