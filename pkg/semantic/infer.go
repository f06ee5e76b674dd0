package semantic

import (
	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/token"
)

// inferType computes the static type of an analyzed expression. The result
// is also recorded on the node for later phases.
func (a *Analyzer) inferType(expr *ast.Node) (*ast.Type, error) {
	t, err := a.inferTypeInner(expr)
	if err != nil {
		return nil, err
	}
	expr.Typ = t
	return t, nil
}

func (a *Analyzer) inferTypeInner(expr *ast.Node) (*ast.Type, error) {
	switch expr.Type {
	case ast.Number:
		return ast.TypeInt, nil
	case ast.Float:
		return ast.TypeFlt, nil
	case ast.Boolean:
		return ast.TypeBool, nil
	case ast.String:
		return ast.TypeStr, nil
	case ast.Null:
		// Null carries the void type.
		return ast.TypeNone, nil

	case ast.Variable:
		name := expr.Data.(*ast.VariableData).Name
		sym := a.findSymbol(name)
		if sym == nil {
			return nil, errf("Symbol '%s' not found", name)
		}
		switch sym.Kind {
		case SymVariable:
			return sym.Type, nil
		case SymFunction:
			return nil, errf("Expected variable, found function: %s", name)
		default:
			return nil, errf("Cannot use namespace '%s' as a value", name)
		}

	case ast.Binary:
		return a.inferBinaryType(expr.Data.(*ast.BinaryData))

	case ast.Unary:
		d := expr.Data.(*ast.UnaryData)
		operandType, err := a.inferType(d.Operand)
		if err != nil {
			return nil, err
		}
		switch d.Op {
		case token.Not:
			if operandType.Kind != ast.TypeBoolean {
				return nil, errf("Logical NOT requires boolean operand")
			}
			return ast.TypeBool, nil
		case token.Minus:
			if !operandType.IsNumeric() {
				return nil, errf("Negation requires numeric operand")
			}
			return operandType, nil
		}
		return nil, errf("unknown unary operator")

	case ast.Call:
		return a.inferCallType(expr.Data.(*ast.CallData))

	case ast.Get:
		return a.inferGetType(expr.Data.(*ast.GetData))
	}
	return nil, errf("Type inference not implemented for this expression type")
}

func (a *Analyzer) inferBinaryType(d *ast.BinaryData) (*ast.Type, error) {
	leftType, err := a.inferType(d.Left)
	if err != nil {
		return nil, err
	}
	rightType, err := a.inferType(d.Right)
	if err != nil {
		return nil, err
	}

	bothNumeric := leftType.IsNumeric() && rightType.IsNumeric()
	anyFloat := leftType.Kind == ast.TypeFloat || rightType.Kind == ast.TypeFloat

	switch d.Op {
	case token.Plus:
		if leftType.Kind == ast.TypeString && rightType.Kind == ast.TypeString {
			return ast.TypeStr, nil
		}
		fallthrough
	case token.Minus, token.Star:
		if bothNumeric {
			if anyFloat {
				return ast.TypeFlt, nil
			}
			return ast.TypeInt, nil
		}
		return nil, errf("Cannot perform arithmetic on %s and %s", leftType, rightType)

	case token.Slash:
		// Division always yields a float, even for integer operands.
		if bothNumeric {
			return ast.TypeFlt, nil
		}
		return nil, errf("Cannot perform division on %s and %s", leftType, rightType)

	case token.Percent:
		if leftType.Kind == ast.TypeInteger && rightType.Kind == ast.TypeInteger {
			return ast.TypeInt, nil
		}
		return nil, errf("Modulo operator requires integer operands")

	case token.EqEq, token.Neq:
		if leftType.Equal(rightType) || bothNumeric {
			return ast.TypeBool, nil
		}
		return nil, errf("Cannot compare %s and %s", leftType, rightType)

	case token.Lt, token.Lte, token.Gt, token.Gte:
		if bothNumeric {
			return ast.TypeBool, nil
		}
		return nil, errf("Cannot compare %s and %s", leftType, rightType)

	case token.AndAnd, token.OrOr:
		if leftType.Kind == ast.TypeBoolean && rightType.Kind == ast.TypeBoolean {
			return ast.TypeBool, nil
		}
		return nil, errf("Logical operators require boolean operands")
	}
	return nil, errf("unknown binary operator")
}

func (a *Analyzer) inferCallType(d *ast.CallData) (*ast.Type, error) {
	switch d.Callee.Type {
	case ast.Variable:
		funcName := d.Callee.Data.(*ast.VariableData).Name
		if sig, ok := stdlibLookup(funcName); ok {
			return sig, nil
		}
		sym := a.findSymbol(funcName)
		if sym == nil {
			return nil, errf("Undefined function: %s", funcName)
		}
		switch sym.Kind {
		case SymFunction:
			return sym.Ret, nil
		case SymVariable:
			return nil, errf("Expected function, found variable: %s", funcName)
		default:
			return nil, errf("Expected function, found namespace: %s", funcName)
		}

	case ast.Get:
		g := d.Callee.Data.(*ast.GetData)
		if g.Object.Type != ast.Variable {
			return nil, errf("Complex function call expressions not yet supported")
		}
		qualified := g.Object.Data.(*ast.VariableData).Name + "." + g.Name
		sym := a.findSymbol(qualified)
		if sym == nil {
			return nil, errf("Undefined function: %s", qualified)
		}
		if sym.Kind != SymFunction {
			return nil, errf("'%s' is not a function", qualified)
		}
		return sym.Ret, nil
	}
	return nil, errf("Complex function call expressions not yet supported")
}

func (a *Analyzer) inferGetType(d *ast.GetData) (*ast.Type, error) {
	if d.Object.Type != ast.Variable {
		return nil, errf("Complex field access expressions not yet supported")
	}
	namespaceName := d.Object.Data.(*ast.VariableData).Name
	qualified := namespaceName + "." + d.Name
	sym := a.findSymbol(qualified)
	if sym == nil {
		return nil, errf("Symbol '%s' not found in namespace '%s'", d.Name, namespaceName)
	}
	switch sym.Kind {
	case SymVariable:
		return sym.Type, nil
	case SymFunction:
		return nil, errf("'%s' is a function, not a variable", qualified)
	default:
		return nil, errf("'%s' is a namespace, not a variable", qualified)
	}
}
