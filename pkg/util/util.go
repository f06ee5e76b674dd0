package util

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/xplshn/nlc/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceMu    sync.Mutex
	sourceFiles []SourceFileRecord
)

// SetSourceFiles replaces the source registry used for rich diagnostics.
func SetSourceFiles(files []SourceFileRecord) {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	sourceFiles = files
}

// AddSourceFile registers an additional file (e.g. an imported module) and
// returns its index for use in token positions.
func AddSourceFile(name string, content []rune) int {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	sourceFiles = append(sourceFiles, SourceFileRecord{Name: name, Content: content})
	return len(sourceFiles) - 1
}

func lookupFile(idx int) (SourceFileRecord, bool) {
	sourceMu.Lock()
	defer sourceMu.Unlock()
	if idx < 0 || idx >= len(sourceFiles) {
		return SourceFileRecord{}, false
	}
	return sourceFiles[idx], true
}

// findFileAndLine converts a token to a file-specific location.
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	rec, ok := lookupFile(tok.FileIndex)
	if !ok {
		return "unknown", tok.Line, tok.Column
	}
	return rec.Name, tok.Line, tok.Column
}

var stderrIsTTY = sync.OnceValue(func() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
})

func color(code string) string {
	if !stderrIsTTY() {
		return ""
	}
	return code
}

// Diag is a positioned diagnostic. Error() renders the conventional
// "file:line:col: message" form; PrintDiag adds the source line and caret.
type Diag struct {
	Tok token.Token
	Msg string
}

func (d *Diag) Error() string {
	filename, line, col := findFileAndLine(d.Tok)
	return fmt.Sprintf("%s:%d:%d: %s", filename, line, col, d.Msg)
}

// Errorf builds a positioned error without printing or exiting.
func Errorf(tok token.Token, format string, args ...interface{}) error {
	return &Diag{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// printSourceLine prints the offending line and a caret under the token.
func printSourceLine(stream *os.File, tok token.Token) {
	rec, ok := lookupFile(tok.FileIndex)
	if !ok || tok.Line == 0 {
		return
	}

	content := rec.Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(stream, "  %s\n", string(content[lineStart:lineEnd]))

	pad := tok.Column - 1
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(stream, "  %s%s^", strings.Repeat(" ", pad), color("\033[32m"))
	if tok.Len > 1 {
		fmt.Fprint(stream, strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintf(stream, "%s\n", color("\033[0m"))
}

// PrintDiag renders err to stderr. Positioned diagnostics get the source
// line and caret; anything else is printed plainly.
func PrintDiag(err error) {
	var d *Diag
	if !errors.As(err, &d) {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", color("\033[31m"), color("\033[0m"), err)
		return
	}
	filename, line, col := findFileAndLine(d.Tok)
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %serror:%s %s\n", filename, line, col, color("\033[31m"), color("\033[0m"), d.Msg)
	printSourceLine(os.Stderr, d.Tok)
}

// Warn prints a positioned warning tagged with its flag name. Enablement is
// the caller's concern (see config.IsWarningEnabled).
func Warn(name string, tok token.Token, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %swarning:%s ", filename, line, col, color("\033[33m"), color("\033[0m"))
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintf(os.Stderr, " [-W%s]\n", name)
	printSourceLine(os.Stderr, tok)
}
