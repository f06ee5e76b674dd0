package semantic

import "github.com/xplshn/nlc/pkg/ast"

type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
	SymNamespace
)

// Symbol is one entry in a scope's linked list. Variables carry Type,
// functions carry Params and Ret, namespaces carry ModuleName.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Type       *ast.Type
	Params     []ast.Param
	Ret        *ast.Type
	ModuleName string
	Next       *Symbol
}

// Clone copies a symbol without its list linkage, for re-binding imported
// symbols into a new scope.
func (s *Symbol) Clone() *Symbol {
	c := *s
	c.Next = nil
	return &c
}

type Scope struct {
	Symbols *Symbol
	Parent  *Scope
}

func (a *Analyzer) enterScope() { a.scope = &Scope{Parent: a.scope} }
func (a *Analyzer) exitScope()  { a.scope = a.scope.Parent }

// findSymbol walks scopes innermost-first.
func (a *Analyzer) findSymbol(name string) *Symbol {
	for s := a.scope; s != nil; s = s.Parent {
		for sym := s.Symbols; sym != nil; sym = sym.Next {
			if sym.Name == name {
				return sym
			}
		}
	}
	return nil
}

func (a *Analyzer) findSymbolInCurrentScope(name string) *Symbol {
	for sym := a.scope.Symbols; sym != nil; sym = sym.Next {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}
