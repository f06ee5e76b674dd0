// Package stdlib defines the language's builtin functions: their type
// signatures for semantic analysis and their runtime behavior for the
// interpreter.
package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xplshn/nlc/pkg/ast"
)

// Signature describes one builtin overload.
type Signature struct {
	Name   string
	Params []*ast.Type
	Ret    *ast.Type
}

var builtins = []Signature{
	{"print", []*ast.Type{ast.TypeStr}, ast.TypeNone},
	{"println", []*ast.Type{ast.TypeStr}, ast.TypeNone},
	{"input", nil, ast.TypeStr},
	{"len", []*ast.Type{ast.TypeStr}, ast.TypeInt},
	{"int", []*ast.Type{ast.TypeStr}, ast.TypeInt},
	{"str", []*ast.Type{ast.TypeInt}, ast.TypeStr},
	{"float", []*ast.Type{ast.TypeStr}, ast.TypeFlt},
	{"abs", []*ast.Type{ast.TypeInt}, ast.TypeInt},
	{"max", []*ast.Type{ast.TypeInt, ast.TypeInt}, ast.TypeInt},
	{"min", []*ast.Type{ast.TypeInt, ast.TypeInt}, ast.TypeInt},
	{"pow", []*ast.Type{ast.TypeInt, ast.TypeInt}, ast.TypeInt},
	{"bool", []*ast.Type{ast.TypeInt}, ast.TypeBool},
}

var byName = func() map[string]Signature {
	m := make(map[string]Signature, len(builtins))
	for _, sig := range builtins {
		m[sig.Name] = sig
	}
	return m
}()

// IsBuiltin reports whether name is a builtin function.
func IsBuiltin(name string) bool {
	_, ok := byName[name]
	return ok
}

// Lookup returns the (single) signature registered for name.
func Lookup(name string) (Signature, bool) {
	sig, ok := byName[name]
	return sig, ok
}

// LookupBySignature returns the builtin whose parameter types match args
// exactly. This is tried before the arity/type fallback in the analyzer.
func LookupBySignature(name string, args []*ast.Type) (Signature, bool) {
	sig, ok := byName[name]
	if !ok || len(sig.Params) != len(args) {
		return Signature{}, false
	}
	for i, p := range sig.Params {
		if !p.Equal(args[i]) {
			return Signature{}, false
		}
	}
	return sig, true
}

// Value is a runtime value of the interpreted language.
type Value struct {
	Kind ast.TypeKind
	Int  int64
	Flt  float64
	Bool bool
	Str  string
}

func IntVal(v int64) Value     { return Value{Kind: ast.TypeInteger, Int: v} }
func FloatVal(v float64) Value { return Value{Kind: ast.TypeFloat, Flt: v} }
func BoolVal(v bool) Value     { return Value{Kind: ast.TypeBoolean, Bool: v} }
func StrVal(v string) Value    { return Value{Kind: ast.TypeString, Str: v} }
func VoidVal() Value           { return Value{Kind: ast.TypeVoid} }

// Display renders a value the way print would.
func (v Value) Display() string {
	switch v.Kind {
	case ast.TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case ast.TypeFloat:
		return strconv.FormatFloat(v.Flt, 'f', -1, 64)
	case ast.TypeBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case ast.TypeString:
		return v.Str
	case ast.TypeVoid:
		return "null"
	}
	return "?"
}

// Runtime executes builtin calls against concrete IO streams.
type Runtime struct {
	In  *bufio.Reader
	Out io.Writer
}

func NewRuntime(in io.Reader, out io.Writer) *Runtime {
	return &Runtime{In: bufio.NewReader(in), Out: out}
}

// Call runs the named builtin. Arity and types were checked during
// analysis; value conversions may still fail at runtime.
func (rt *Runtime) Call(name string, args []Value) (Value, error) {
	switch name {
	case "print":
		fmt.Fprint(rt.Out, args[0].Display())
		return VoidVal(), nil
	case "println":
		fmt.Fprintln(rt.Out, args[0].Display())
		return VoidVal(), nil
	case "input":
		line, err := rt.In.ReadString('\n')
		if err != nil && line == "" {
			return Value{}, fmt.Errorf("input: %w", err)
		}
		return StrVal(strings.TrimRight(line, "\r\n")), nil
	case "len":
		return IntVal(int64(len(args[0].Str))), nil
	case "int":
		n, err := strconv.ParseInt(strings.TrimSpace(args[0].Str), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("int: cannot convert %q to an integer", args[0].Str)
		}
		return IntVal(n), nil
	case "str":
		return StrVal(strconv.FormatInt(args[0].Int, 10)), nil
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(args[0].Str), 64)
		if err != nil {
			return Value{}, fmt.Errorf("float: cannot convert %q to a float", args[0].Str)
		}
		return FloatVal(f), nil
	case "abs":
		n := args[0].Int
		if n < 0 {
			n = -n
		}
		return IntVal(n), nil
	case "max":
		if args[0].Int >= args[1].Int {
			return args[0], nil
		}
		return args[1], nil
	case "min":
		if args[0].Int <= args[1].Int {
			return args[0], nil
		}
		return args[1], nil
	case "pow":
		return intPow(args[0].Int, args[1].Int)
	case "bool":
		return BoolVal(args[0].Int != 0), nil
	}
	return Value{}, fmt.Errorf("unknown builtin function '%s'", name)
}

func intPow(base, exp int64) (Value, error) {
	if exp < 0 {
		return Value{}, fmt.Errorf("pow: negative exponent %d", exp)
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return IntVal(result), nil
}
