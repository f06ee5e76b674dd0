package semantic

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/lexer"
	"github.com/xplshn/nlc/pkg/parser"
	"github.com/xplshn/nlc/pkg/stdlib"
	"github.com/xplshn/nlc/pkg/util"
)

// ModuleInfo holds a loaded module's exported symbols. Hash is the xxhash
// of the module source, recorded for cache diagnostics and test tooling.
type ModuleInfo struct {
	Exports     map[string]*Symbol
	Hash        uint64
	exportOrder []string
}

// ModuleCache deduplicates module loads across an analysis run. It is keyed
// by resolved absolute path and shared between the root analyzer and the
// analyzers spawned for imported modules.
type ModuleCache struct {
	modules map[string]*ModuleInfo
}

func NewModuleCache() *ModuleCache {
	return &ModuleCache{modules: make(map[string]*ModuleInfo)}
}

// Len reports the number of cached modules.
func (c *ModuleCache) Len() int { return len(c.modules) }

func dirOf(filePath string) string {
	if d := filepath.Dir(filePath); d != "" {
		return d
	}
	return "."
}

// resolveModulePath maps a dotted module path to a file path below the
// importing file's directory: a.b.c becomes a/b/c.nlang.
func (a *Analyzer) resolveModulePath(parts []string) string {
	elems := append([]string{a.currentDir}, parts[:len(parts)-1]...)
	elems = append(elems, parts[len(parts)-1]+".nlang")
	return filepath.Join(elems...)
}

func (a *Analyzer) loadModule(path, moduleName string) (*ModuleInfo, error) {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	if cached, ok := a.cache.modules[key]; ok {
		return cached, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errf("Failed to read module file '%s': %v", path, err)
	}
	runes := []rune(string(src))
	fileIndex := util.AddSourceFile(path, runes)

	tokens, err := lexer.New(runes, fileIndex).Tokenize()
	if err != nil {
		return nil, errf("Lexer error in module '%s': %v", moduleName, err)
	}
	program, err := parser.New(tokens).ParseProgram()
	if err != nil {
		return nil, errf("Parser error in module '%s': %v", moduleName, err)
	}

	// Modules get a fresh analyzer sharing the cache; entry point
	// validation is skipped for them.
	sub := New(a.cache)
	sub.Cfg = a.Cfg
	if err := sub.analyzeProgram(program, false); err != nil {
		return nil, err
	}

	info := &ModuleInfo{
		Exports: make(map[string]*Symbol),
		Hash:    xxhash.Sum64(src),
	}
	if err := a.extractExports(program.Data.(*ast.ProgramData).Stmts, info); err != nil {
		return nil, err
	}

	a.cache.modules[key] = info
	return info, nil
}

// extractExports collects export-marked declarations, descending into
// blocks. Function signatures come from the analyzed declarations; variable
// types are re-inferred from their initializers.
func (a *Analyzer) extractExports(stmts []*ast.Node, info *ModuleInfo) error {
	for _, stmt := range stmts {
		switch stmt.Type {
		case ast.Export:
			decl := stmt.Data.(*ast.ExportData).Decl
			switch decl.Type {
			case ast.FuncDecl:
				d := decl.Data.(*ast.FuncDeclData)
				ret := d.ReturnType
				if ret == nil {
					ret = ast.TypeNone
				}
				info.put(&Symbol{Name: d.Name, Kind: SymFunction, Params: d.Params, Ret: ret})
			case ast.Store:
				d := decl.Data.(*ast.StoreData)
				varType := ast.TypeInt
				if d.TypeAnn != nil {
					varType = d.TypeAnn
				} else if d.Init != nil {
					t, err := a.inferType(d.Init)
					if err != nil {
						return err
					}
					varType = t
				}
				info.put(&Symbol{Name: d.Name, Kind: SymVariable, Type: varType})
			}
		case ast.Block:
			if err := a.extractExports(stmt.Data.(*ast.BlockData).Stmts, info); err != nil {
				return err
			}
		}
	}
	return nil
}

func (info *ModuleInfo) put(sym *Symbol) {
	if _, exists := info.Exports[sym.Name]; !exists {
		info.exportOrder = append(info.exportOrder, sym.Name)
	}
	info.Exports[sym.Name] = sym
}

func stdlibLookup(name string) (*ast.Type, bool) {
	if sig, ok := stdlib.Lookup(name); ok {
		return sig.Ret, true
	}
	return nil, false
}
