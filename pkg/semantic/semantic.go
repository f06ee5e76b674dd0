// Package semantic implements symbol resolution and type checking. Analysis
// is fail-fast: the first violation aborts with a SemanticError. The AST is
// rewritten in place; namespace accesses collapse to qualified variable
// references and call callees to plain function names, so later phases only
// see resolved names.
package semantic

import (
	"fmt"
	"strings"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/config"
	"github.com/xplshn/nlc/pkg/stdlib"
	"github.com/xplshn/nlc/pkg/token"
)

type SemanticError struct {
	Message string
}

func (e *SemanticError) Error() string { return e.Message }

func errf(format string, args ...interface{}) error {
	return &SemanticError{Message: fmt.Sprintf(format, args...)}
}

type Analyzer struct {
	scope      *Scope
	currentRet *ast.Type // return type of the enclosing function, nil at top level
	currentDir string
	cache      *ModuleCache

	// Cfg gates optional language features; nil means all enabled.
	Cfg *config.Config
}

func (a *Analyzer) featureEnabled(ft config.Feature) bool {
	return a.Cfg == nil || a.Cfg.IsFeatureEnabled(ft)
}

// New returns an analyzer resolving imports relative to the current
// directory. The cache is shared across root and module analyzers.
func New(cache *ModuleCache) *Analyzer {
	return &Analyzer{scope: &Scope{}, currentDir: ".", cache: cache}
}

// NewWithFile resolves imports relative to the directory of filePath.
func NewWithFile(filePath string, cache *ModuleCache) *Analyzer {
	a := New(cache)
	a.currentDir = dirOf(filePath)
	return a
}

// Analyze checks a root program, including entry point validation.
func (a *Analyzer) Analyze(program *ast.Node) error {
	return a.analyzeProgram(program, true)
}

func (a *Analyzer) analyzeProgram(program *ast.Node, isRoot bool) error {
	stmts := program.Data.(*ast.ProgramData).Stmts

	// First pass: register top-level function signatures so bodies can call
	// forward and mutually recursive functions.
	for _, stmt := range stmts {
		decl := stmt
		if decl.Type == ast.Export {
			decl = decl.Data.(*ast.ExportData).Decl
		}
		if decl.Type == ast.FuncDecl {
			d := decl.Data.(*ast.FuncDeclData)
			ret := d.ReturnType
			if ret == nil {
				ret = ast.TypeNone
			}
			if err := a.defineSymbol(&Symbol{Name: d.Name, Kind: SymFunction, Params: d.Params, Ret: ret}); err != nil {
				return err
			}
		}
	}

	// Second pass: analyze statements in order.
	for _, stmt := range stmts {
		if err := a.analyzeStatement(stmt); err != nil {
			return err
		}
	}

	if isRoot {
		return a.validateMain()
	}
	return nil
}

func (a *Analyzer) defineSymbol(sym *Symbol) error {
	if stdlib.IsBuiltin(sym.Name) {
		return errf("Cannot redefine built-in function '%s'", sym.Name)
	}
	if a.findSymbolInCurrentScope(sym.Name) != nil {
		return errf("Symbol '%s' already defined in current scope", sym.Name)
	}
	sym.Next = a.scope.Symbols
	a.scope.Symbols = sym
	return nil
}

func (a *Analyzer) analyzeStatement(stmt *ast.Node) error {
	switch stmt.Type {
	case ast.ExprStmt:
		return a.analyzeExpr(stmt.Data.(*ast.ExprStmtData).Expr)

	case ast.Store:
		return a.analyzeStore(stmt.Data.(*ast.StoreData))

	case ast.FuncDecl:
		return a.analyzeFuncDecl(stmt.Data.(*ast.FuncDeclData))

	case ast.Block:
		a.enterScope()
		defer a.exitScope()
		for _, s := range stmt.Data.(*ast.BlockData).Stmts {
			if err := a.analyzeStatement(s); err != nil {
				return err
			}
		}
		return nil

	case ast.If:
		d := stmt.Data.(*ast.IfData)
		if err := a.analyzeExpr(d.Cond); err != nil {
			return err
		}
		condType, err := a.inferType(d.Cond)
		if err != nil {
			return err
		}
		if condType.Kind != ast.TypeBoolean {
			return errf("If condition must be of boolean type")
		}
		if err := a.analyzeStatement(d.Then); err != nil {
			return err
		}
		if d.Else != nil {
			return a.analyzeStatement(d.Else)
		}
		return nil

	case ast.While:
		d := stmt.Data.(*ast.WhileData)
		if err := a.analyzeExpr(d.Cond); err != nil {
			return err
		}
		condType, err := a.inferType(d.Cond)
		if err != nil {
			return err
		}
		if condType.Kind != ast.TypeBoolean {
			return errf("While condition must be of boolean type")
		}
		return a.analyzeStatement(d.Body)

	case ast.Return:
		return a.analyzeReturn(stmt.Data.(*ast.ReturnData))

	case ast.Import:
		return a.analyzeImport(stmt.Data.(*ast.ImportData))

	case ast.FromImport:
		return a.analyzeFromImport(stmt.Data.(*ast.FromImportData))

	case ast.AssignMain:
		if !a.featureEnabled(config.FeatAssignMain) {
			return errf("ASSIGN_MAIN directive is disabled")
		}
		name := stmt.Data.(*ast.AssignMainData).Name
		sym := a.findSymbol(name)
		if sym == nil {
			return errf("Function '%s' not found for ASSIGN_MAIN", name)
		}
		if sym.Kind != SymFunction {
			return errf("'%s' is not a function and cannot be assigned as main", name)
		}
		return nil

	case ast.Break, ast.Continue:
		// Validity inside loops is a backend concern.
		return nil

	case ast.Export:
		return a.analyzeStatement(stmt.Data.(*ast.ExportData).Decl)
	}
	return errf("unexpected statement in analysis")
}

func (a *Analyzer) analyzeStore(d *ast.StoreData) error {
	if d.Init == nil && !a.featureEnabled(config.FeatAllowUninitialized) {
		return errf("Variable '%s' declared without an initializer", d.Name)
	}
	if d.Init != nil {
		if err := a.analyzeExpr(d.Init); err != nil {
			return err
		}
	}

	varType := ast.TypeInt // default for bare declarations
	if d.Init != nil {
		t, err := a.inferType(d.Init)
		if err != nil {
			return err
		}
		varType = t
	}
	if d.TypeAnn != nil {
		if d.Init != nil && !varType.Equal(d.TypeAnn) {
			return errf("Type mismatch in declaration of '%s': expected %s, got %s", d.Name, d.TypeAnn, varType)
		}
		varType = d.TypeAnn
	}

	return a.defineSymbol(&Symbol{Name: d.Name, Kind: SymVariable, Type: varType})
}

func (a *Analyzer) analyzeFuncDecl(d *ast.FuncDeclData) error {
	declared := d.ReturnType
	inferred := declared
	if inferred == nil {
		inferred = ast.TypeNone
	}

	body := d.Body.Data.(*ast.BlockData).Stmts

	if declared == nil {
		// Infer the return type from the first return statement found. The
		// search runs in a throwaway scope holding just the parameters.
		a.enterScope()
		for i := range d.Params {
			if err := a.defineSymbol(&Symbol{Name: d.Params[i].Name, Kind: SymVariable, Type: d.Params[i].Type}); err != nil {
				a.exitScope()
				return err
			}
		}
		if t := a.findReturnType(body); t != nil {
			inferred = t
		}
		a.exitScope()

		if inferred.Kind != ast.TypeVoid {
			if sym := a.findSymbolInCurrentScope(d.Name); sym != nil {
				sym.Params = d.Params
				sym.Ret = inferred
			} else if err := a.defineSymbol(&Symbol{Name: d.Name, Kind: SymFunction, Params: d.Params, Ret: inferred}); err != nil {
				return err
			}
		}
	}

	prevRet := a.currentRet
	a.currentRet = inferred
	a.enterScope()
	defer func() {
		a.exitScope()
		a.currentRet = prevRet
	}()

	for i := range d.Params {
		if err := a.defineSymbol(&Symbol{Name: d.Params[i].Name, Kind: SymVariable, Type: d.Params[i].Type}); err != nil {
			return err
		}
	}
	for _, s := range body {
		if err := a.analyzeStatement(s); err != nil {
			return err
		}
	}

	if inferred.Kind != ast.TypeVoid && !hasReturn(body) {
		return errf("Function '%s' with return type %s must have a return statement", d.Name, inferred)
	}

	// Later phases read the settled signature off the declaration.
	d.ReturnType = inferred
	return nil
}

func (a *Analyzer) analyzeReturn(d *ast.ReturnData) error {
	if d.Value != nil {
		if err := a.analyzeExpr(d.Value); err != nil {
			return err
		}
	}
	if a.currentRet == nil {
		return nil
	}
	if d.Value == nil {
		if a.currentRet.Kind != ast.TypeVoid {
			return errf("Function expects return type %s, but no value returned", a.currentRet)
		}
		return nil
	}
	actual, err := a.inferType(d.Value)
	if err != nil {
		return err
	}
	if !actual.Equal(a.currentRet) {
		return errf("Return type mismatch: expected %s, got %s", a.currentRet, actual)
	}
	return nil
}

func (a *Analyzer) analyzeExpr(expr *ast.Node) error {
	switch expr.Type {
	case ast.Number, ast.Float, ast.String, ast.Boolean, ast.Null:
		return nil

	case ast.Variable:
		name := expr.Data.(*ast.VariableData).Name
		if a.findSymbol(name) == nil {
			return errf("Undefined variable: %s", name)
		}
		return nil

	case ast.Binary:
		d := expr.Data.(*ast.BinaryData)
		if err := a.analyzeExpr(d.Left); err != nil {
			return err
		}
		if err := a.analyzeExpr(d.Right); err != nil {
			return err
		}
		_, err := a.inferType(expr)
		return err

	case ast.Unary:
		d := expr.Data.(*ast.UnaryData)
		if err := a.analyzeExpr(d.Operand); err != nil {
			return err
		}
		operandType, err := a.inferType(d.Operand)
		if err != nil {
			return err
		}
		switch d.Op {
		case token.Not:
			if operandType.Kind != ast.TypeBoolean {
				return errf("Operand of 'not' must be of boolean type")
			}
		case token.Minus:
			if !operandType.IsNumeric() {
				return errf("Operand of unary minus must be of numeric type")
			}
		}
		return nil

	case ast.Call:
		return a.analyzeCall(expr)

	case ast.Get:
		return a.analyzeGet(expr)

	case ast.Assign:
		d := expr.Data.(*ast.AssignData)
		sym := a.findSymbol(d.Name)
		if sym == nil {
			return errf("Cannot assign to undeclared variable: %s", d.Name)
		}
		if err := a.analyzeExpr(d.Value); err != nil {
			return err
		}
		if sym.Kind == SymVariable {
			valueType, err := a.inferType(d.Value)
			if err != nil {
				return err
			}
			if !sym.Type.Equal(valueType) {
				return errf("Type mismatch in assignment: expected %s, got %s", sym.Type, valueType)
			}
		}
		return nil
	}
	return errf("unexpected expression in analysis")
}

// analyzeCall checks a call and rewrites the callee to a plain variable
// holding the resolved function name.
func (a *Analyzer) analyzeCall(expr *ast.Node) error {
	d := expr.Data.(*ast.CallData)

	var funcName string
	switch d.Callee.Type {
	case ast.Variable:
		funcName = d.Callee.Data.(*ast.VariableData).Name
	case ast.Get:
		g := d.Callee.Data.(*ast.GetData)
		if g.Object.Type != ast.Variable {
			return errf("Complex function calls not yet supported")
		}
		funcName = g.Object.Data.(*ast.VariableData).Name + "." + g.Name
	default:
		return errf("Complex function calls not yet supported")
	}

	for _, arg := range d.Args {
		if err := a.analyzeExpr(arg); err != nil {
			return err
		}
	}

	if stdlib.IsBuiltin(funcName) {
		if err := a.checkBuiltinCall(funcName, d.Args); err != nil {
			return err
		}
	} else {
		sym := a.findSymbol(funcName)
		if sym == nil || sym.Kind != SymFunction {
			return errf("Undefined function '%s'", funcName)
		}
		if len(d.Args) != len(sym.Params) {
			return errf("Function '%s' expects %d arguments, but %d were provided", funcName, len(sym.Params), len(d.Args))
		}
		for i, arg := range d.Args {
			argType, err := a.inferType(arg)
			if err != nil {
				return err
			}
			if !argType.Equal(sym.Params[i].Type) {
				return errf("Type mismatch in argument %d of function '%s': expected %s, got %s",
					i+1, funcName, sym.Params[i].Type, argType)
			}
		}
	}

	d.Callee.Type = ast.Variable
	d.Callee.Data = &ast.VariableData{Name: funcName}
	return nil
}

func (a *Analyzer) checkBuiltinCall(funcName string, args []*ast.Node) error {
	argTypes := make([]*ast.Type, len(args))
	for i, arg := range args {
		t, err := a.inferType(arg)
		if err != nil {
			return err
		}
		argTypes[i] = t
	}

	// An exact signature match needs no further checks.
	if _, ok := stdlib.LookupBySignature(funcName, argTypes); ok {
		return nil
	}

	sig, ok := stdlib.Lookup(funcName)
	if !ok {
		return errf("No matching overload found for built-in function '%s'", funcName)
	}
	if len(args) != len(sig.Params) {
		return errf("Built-in function '%s' expects %d arguments, but %d were provided",
			funcName, len(sig.Params), len(args))
	}
	for i := range args {
		// print and println format any argument themselves.
		if funcName == "println" || funcName == "print" {
			continue
		}
		if !argTypes[i].Equal(sig.Params[i]) {
			return errf("Type mismatch in argument %d of built-in function '%s': expected %s, got %s",
				i+1, funcName, sig.Params[i], argTypes[i])
		}
	}
	return nil
}

// analyzeGet resolves namespace member access, rewriting `ns.x` to a
// variable reference named "ns.x".
func (a *Analyzer) analyzeGet(expr *ast.Node) error {
	d := expr.Data.(*ast.GetData)
	if d.Object.Type == ast.Variable {
		objName := d.Object.Data.(*ast.VariableData).Name
		if sym := a.findSymbol(objName); sym != nil && sym.Kind == SymNamespace {
			qualified := objName + "." + d.Name
			if a.findSymbol(qualified) == nil {
				return errf("Symbol '%s' not found in namespace '%s'", d.Name, objName)
			}
			expr.Type = ast.Variable
			expr.Data = &ast.VariableData{Name: qualified}
			return nil
		}
	}
	return a.analyzeExpr(d.Object)
}

func (a *Analyzer) analyzeImport(d *ast.ImportData) error {
	if !a.featureEnabled(config.FeatModules) {
		return errf("Module imports are disabled")
	}
	moduleName := strings.Join(d.Path, ".")
	info, err := a.loadModule(a.resolveModulePath(d.Path), moduleName)
	if err != nil {
		return err
	}

	if d.Alias != "" {
		if err := a.defineSymbol(&Symbol{Name: d.Alias, Kind: SymNamespace, ModuleName: moduleName}); err != nil {
			return err
		}
		for _, name := range info.exportOrder {
			sym := info.Exports[name].Clone()
			sym.Name = d.Alias + "." + name
			if err := a.defineSymbol(sym); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range info.exportOrder {
		if err := a.defineSymbol(info.Exports[name].Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeFromImport(d *ast.FromImportData) error {
	if !a.featureEnabled(config.FeatModules) {
		return errf("Module imports are disabled")
	}
	moduleName := strings.Join(d.Path, ".")
	info, err := a.loadModule(a.resolveModulePath(d.Path), moduleName)
	if err != nil {
		return err
	}

	for _, item := range d.Items {
		sym, ok := info.Exports[item.Name]
		if !ok {
			return errf("Symbol '%s' not found in module '%s'", item.Name, moduleName)
		}
		bound := sym.Clone()
		if item.Alias != "" {
			bound.Name = item.Alias
		}
		if err := a.defineSymbol(bound); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) validateMain() error {
	sym := a.findSymbol("main")
	if sym == nil {
		return errf("No main function found. Programs must have a main function as entry point")
	}
	if sym.Kind != SymFunction {
		return errf("Symbol 'main' exists but is not a function")
	}
	if len(sym.Params) != 0 {
		return errf("Main function should not have parameters")
	}
	if sym.Ret.Kind != ast.TypeVoid {
		return errf("Main function should return void or have no return type")
	}
	return nil
}

// hasReturn reports whether any statement in the list is or contains a
// return statement.
func hasReturn(stmts []*ast.Node) bool {
	for _, s := range stmts {
		if stmtHasReturn(s) {
			return true
		}
	}
	return false
}

func stmtHasReturn(stmt *ast.Node) bool {
	switch stmt.Type {
	case ast.Return:
		return true
	case ast.If:
		d := stmt.Data.(*ast.IfData)
		if stmtHasReturn(d.Then) {
			return true
		}
		return d.Else != nil && stmtHasReturn(d.Else)
	case ast.While:
		return stmtHasReturn(stmt.Data.(*ast.WhileData).Body)
	case ast.Block:
		return hasReturn(stmt.Data.(*ast.BlockData).Stmts)
	}
	return false
}

// findReturnType locates the first return statement carrying a value and
// yields its type. The search is depth-first in source order; later returns
// of other types are not reconciled here, they fail the per-return check.
func (a *Analyzer) findReturnType(stmts []*ast.Node) *ast.Type {
	for _, s := range stmts {
		if t := a.findReturnTypeInStmt(s); t != nil {
			return t
		}
	}
	return nil
}

func (a *Analyzer) findReturnTypeInStmt(stmt *ast.Node) *ast.Type {
	switch stmt.Type {
	case ast.Return:
		d := stmt.Data.(*ast.ReturnData)
		if d.Value == nil {
			return nil
		}
		if t, err := a.inferType(d.Value); err == nil {
			return t
		}
		return nil
	case ast.If:
		d := stmt.Data.(*ast.IfData)
		if t := a.findReturnTypeInStmt(d.Then); t != nil {
			return t
		}
		if d.Else != nil {
			return a.findReturnTypeInStmt(d.Else)
		}
		return nil
	case ast.While:
		return a.findReturnTypeInStmt(stmt.Data.(*ast.WhileData).Body)
	case ast.Block:
		return a.findReturnType(stmt.Data.(*ast.BlockData).Stmts)
	}
	return nil
}
