package ast

import "github.com/xplshn/nlc/pkg/token"

type NodeType int

const (
	Program NodeType = iota

	// Expressions
	Number
	Float
	String
	Boolean
	Null
	Variable
	Binary
	Unary
	Assign
	Call
	Get

	// Statements
	ExprStmt
	Store
	FuncDecl
	Block
	If
	While
	Return
	Break
	Continue
	Import
	FromImport
	Export
	AssignMain
)

// Node is a tagged AST node. Data holds the kind-specific payload; Typ is
// filled in by semantic analysis for expression nodes.
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
	Typ    *Type
}

type ProgramData struct{ Stmts []*Node }

type NumberData struct{ Value int64 }
type FloatData struct{ Value float64 }
type StringData struct{ Value string }
type BoolData struct{ Value bool }
type VariableData struct{ Name string }

type BinaryData struct {
	Op          token.Type
	Left, Right *Node
}

type UnaryData struct {
	Op      token.Type
	Operand *Node
}

type AssignData struct {
	Name  string
	Value *Node
}

type CallData struct {
	Callee *Node
	Args   []*Node
}

type GetData struct {
	Object *Node
	Name   string
}

type ExprStmtData struct{ Expr *Node }

// StoreData is a variable declaration. TypeAnn and Init may each be nil.
type StoreData struct {
	Name    string
	TypeAnn *Type
	Init    *Node
}

type Param struct {
	Name string
	Type *Type
	Tok  token.Token
}

// FuncDeclData is a function definition. ReturnType is nil when the source
// carried no annotation; analysis infers it.
type FuncDeclData struct {
	Name       string
	Params     []Param
	ReturnType *Type
	Body       *Node
}

type BlockData struct{ Stmts []*Node }

type IfData struct {
	Cond, Then, Else *Node
}

type WhileData struct {
	Cond, Body *Node
}

type ReturnData struct{ Value *Node }

// ImportData covers `import a.b.c` and `import a.b.c as alias`.
type ImportData struct {
	Path  []string
	Alias string
}

type ImportItem struct {
	Name  string
	Alias string
	Tok   token.Token
}

type FromImportData struct {
	Path  []string
	Items []ImportItem
}

type ExportData struct{ Decl *Node }

type AssignMainData struct{ Name string }

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	n := &Node{Type: nodeType, Tok: tok, Data: data}
	for _, c := range children {
		if c != nil {
			c.Parent = n
		}
	}
	return n
}

func NewProgram(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Program, &ProgramData{Stmts: stmts}, stmts...)
}

func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, Number, &NumberData{Value: value})
}

func NewFloat(tok token.Token, value float64) *Node {
	return newNode(tok, Float, &FloatData{Value: value})
}

func NewString(tok token.Token, value string) *Node {
	return newNode(tok, String, &StringData{Value: value})
}

func NewBoolean(tok token.Token, value bool) *Node {
	return newNode(tok, Boolean, &BoolData{Value: value})
}

func NewNull(tok token.Token) *Node { return newNode(tok, Null, nil) }

func NewVariable(tok token.Token, name string) *Node {
	return newNode(tok, Variable, &VariableData{Name: name})
}

func NewBinary(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, Binary, &BinaryData{Op: op, Left: left, Right: right}, left, right)
}

func NewUnary(tok token.Token, op token.Type, operand *Node) *Node {
	return newNode(tok, Unary, &UnaryData{Op: op, Operand: operand}, operand)
}

func NewAssign(tok token.Token, name string, value *Node) *Node {
	return newNode(tok, Assign, &AssignData{Name: name, Value: value}, value)
}

func NewCall(tok token.Token, callee *Node, args []*Node) *Node {
	n := newNode(tok, Call, &CallData{Callee: callee, Args: args}, callee)
	for _, a := range args {
		a.Parent = n
	}
	return n
}

func NewGet(tok token.Token, object *Node, name string) *Node {
	return newNode(tok, Get, &GetData{Object: object, Name: name}, object)
}

func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, &ExprStmtData{Expr: expr}, expr)
}

func NewStore(tok token.Token, name string, typeAnn *Type, init *Node) *Node {
	return newNode(tok, Store, &StoreData{Name: name, TypeAnn: typeAnn, Init: init}, init)
}

func NewFuncDecl(tok token.Token, name string, params []Param, returnType *Type, body *Node) *Node {
	return newNode(tok, FuncDecl, &FuncDeclData{Name: name, Params: params, ReturnType: returnType, Body: body}, body)
}

func NewBlock(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Block, &BlockData{Stmts: stmts}, stmts...)
}

func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, If, &IfData{Cond: cond, Then: then, Else: els}, cond, then, els)
}

func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, &WhileData{Cond: cond, Body: body}, cond, body)
}

func NewReturn(tok token.Token, value *Node) *Node {
	return newNode(tok, Return, &ReturnData{Value: value}, value)
}

func NewBreak(tok token.Token) *Node    { return newNode(tok, Break, nil) }
func NewContinue(tok token.Token) *Node { return newNode(tok, Continue, nil) }

func NewImport(tok token.Token, path []string, alias string) *Node {
	return newNode(tok, Import, &ImportData{Path: path, Alias: alias})
}

func NewFromImport(tok token.Token, path []string, items []ImportItem) *Node {
	return newNode(tok, FromImport, &FromImportData{Path: path, Items: items})
}

func NewExport(tok token.Token, decl *Node) *Node {
	return newNode(tok, Export, &ExportData{Decl: decl}, decl)
}

func NewAssignMain(tok token.Token, name string) *Node {
	return newNode(tok, AssignMain, &AssignMainData{Name: name})
}
