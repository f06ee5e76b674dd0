package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/cli"
	"github.com/xplshn/nlc/pkg/codegen"
	"github.com/xplshn/nlc/pkg/config"
	"github.com/xplshn/nlc/pkg/interpreter"
	"github.com/xplshn/nlc/pkg/lexer"
	"github.com/xplshn/nlc/pkg/parser"
	"github.com/xplshn/nlc/pkg/semantic"
	"github.com/xplshn/nlc/pkg/util"
)

func main() {
	app := cli.NewApp("nlc")
	app.Synopsis = "[options] <input.nlang>"
	app.Description = "A compiler and interpreter for the nlang programming language."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/nlc>"

	var (
		outFile    string
		emit       string
		run        bool
		triple     string
		dataLayout string
		linkerArgs []string
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&emit, "emit", "e", "", "Emit 'c' or 'ir' instead of a native binary.", "c|ir")
	fs.Bool(&run, "run", "r", false, "Interpret the program instead of compiling it.")
	fs.String(&triple, "triple", "t", "", "Override the IR target triple.", "triple")
	fs.String(&dataLayout, "data-layout", "", "", "Override the IR data layout.", "layout")
	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the C compiler link step.", "arg")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		cfg.Triple = triple
		cfg.DataLayout = dataLayout

		if len(inputFiles) != 1 {
			return fmt.Errorf("nlc: expected exactly one input file, got %d", len(inputFiles))
		}
		inputFile := inputFiles[0]

		program, err := compile(inputFile, cfg)
		if err != nil {
			util.PrintDiag(err)
			os.Exit(1)
		}
		emitWarnings(program, cfg)

		if run {
			code, err := interpreter.New(os.Stdin, os.Stdout).Run(program, inputFile)
			if err != nil {
				util.PrintDiag(err)
				os.Exit(1)
			}
			os.Exit(code)
		}

		moduleName := baseName(inputFile)
		switch emit {
		case "c":
			backend := codegen.NewCBackend()
			return emitOutput(backend, program, moduleName, pick(outFile, moduleName+".c"))
		case "ir":
			backend := codegen.NewLLVMBackend()
			if cfg.Triple != "" {
				backend.Triple = cfg.Triple
			}
			if cfg.DataLayout != "" {
				backend.DataLayout = cfg.DataLayout
			}
			return emitOutput(backend, program, moduleName, pick(outFile, moduleName+".ll"))
		case "":
			return compileNative(program, moduleName, pick(outFile, "a.out"), linkerArgs)
		}
		return fmt.Errorf("nlc: unknown emit target '%s' (expected 'c' or 'ir')", emit)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// compile runs the front end and semantic analysis, returning the analyzed
// program.
func compile(inputFile string, cfg *config.Config) (*ast.Node, error) {
	src, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, fmt.Errorf("nlc: could not read file '%s': %v", inputFile, err)
	}
	runes := []rune(string(src))
	util.SetSourceFiles([]util.SourceFileRecord{{Name: inputFile, Content: runes}})

	tokens, err := lexer.New(runes, 0).Tokenize()
	if err != nil {
		return nil, err
	}
	program, err := parser.New(tokens).ParseProgram()
	if err != nil {
		return nil, err
	}
	if cfg.IsFeatureEnabled(config.FeatConstFold) {
		ast.FoldConstants(program)
	}

	analyzer := semantic.NewWithFile(inputFile, semantic.NewModuleCache())
	analyzer.Cfg = cfg
	if err := analyzer.Analyze(program); err != nil {
		return nil, err
	}
	return program, nil
}

func emitWarnings(program *ast.Node, cfg *config.Config) {
	entry := "main"
	stmts := program.Data.(*ast.ProgramData).Stmts
	for _, stmt := range stmts {
		if stmt.Type == ast.AssignMain {
			entry = stmt.Data.(*ast.AssignMainData).Name
		}
	}
	for _, stmt := range stmts {
		decl := stmt
		if decl.Type == ast.Export {
			decl = decl.Data.(*ast.ExportData).Decl
		}
		if decl.Type != ast.FuncDecl {
			continue
		}
		d := decl.Data.(*ast.FuncDeclData)
		if cfg.IsWarningEnabled(config.WarnEmptyBody) && len(d.Body.Data.(*ast.BlockData).Stmts) == 0 {
			util.Warn(cfg.WarningName(config.WarnEmptyBody), decl.Tok, "function '%s' has an empty body", d.Name)
		}
		if cfg.IsWarningEnabled(config.WarnFloatTrunc) && d.Name == entry &&
			d.ReturnType != nil && d.ReturnType.Kind == ast.TypeFloat {
			util.Warn(cfg.WarningName(config.WarnFloatTrunc), decl.Tok, "float return of entry function '%s' is truncated to an exit code", d.Name)
		}
	}
}

func emitOutput(backend codegen.Backend, program *ast.Node, moduleName, outFile string) error {
	text, err := backend.Generate(program, moduleName)
	if err != nil {
		util.PrintDiag(err)
		os.Exit(1)
	}
	if outFile == "-" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(outFile, []byte(text), 0o644)
}

// compileNative lowers through the C backend and hands the result to a
// system C compiler, preferring clang.
func compileNative(program *ast.Node, moduleName, outFile string, linkerArgs []string) error {
	backend := codegen.NewCBackend()
	cSource, err := backend.Generate(program, moduleName)
	if err != nil {
		util.PrintDiag(err)
		os.Exit(1)
	}

	tmp, err := os.CreateTemp("", "nlc-*.c")
	if err != nil {
		return fmt.Errorf("nlc: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(cSource); err != nil {
		return fmt.Errorf("nlc: failed to write temp file: %w", err)
	}
	tmp.Close()

	cc := "cc"
	if path, err := exec.LookPath("clang"); err == nil {
		cc = path
	}
	ccArgs := append([]string{"-o", outFile, tmp.Name(), "-lm"}, linkerArgs...)
	cmd := exec.Command(cc, ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("nlc: C compiler failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
