package ast

import "strings"

type TypeKind int

const (
	TypeInteger TypeKind = iota
	TypeFloat
	TypeBoolean
	TypeString
	TypeArray
	TypeFunction
	TypeVoid
)

// Type is the closed type union of the language. Values are immutable;
// helpers below build the composite kinds.
type Type struct {
	Kind   TypeKind
	Elem   *Type   // element type for TypeArray
	Params []*Type // parameter types for TypeFunction
	Ret    *Type   // return type for TypeFunction
}

var (
	TypeInt  = &Type{Kind: TypeInteger}
	TypeFlt  = &Type{Kind: TypeFloat}
	TypeBool = &Type{Kind: TypeBoolean}
	TypeStr  = &Type{Kind: TypeString}
	TypeNone = &Type{Kind: TypeVoid}
)

func ArrayOf(elem *Type) *Type { return &Type{Kind: TypeArray, Elem: elem} }

func FuncOf(params []*Type, ret *Type) *Type {
	return &Type{Kind: TypeFunction, Params: params, Ret: ret}
}

// Equal reports structural equality.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeArray:
		return t.Elem.Equal(o.Elem)
	case TypeFunction:
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return t.Ret.Equal(o.Ret)
	default:
		return true
	}
}

func (t *Type) String() string {
	switch t.Kind {
	case TypeInteger:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "bool"
	case TypeString:
		return "string"
	case TypeArray:
		return "array[" + t.Elem.String() + "]"
	case TypeFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + t.Ret.String()
	case TypeVoid:
		return "void"
	}
	return "unknown"
}

// IsNumeric reports whether t is Integer or Float.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == TypeInteger || t.Kind == TypeFloat)
}
