package lexer

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/xplshn/nlc/pkg/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	tokens, err := New([]rune(src), 0).Tokenize()
	be.Err(t, err, nil)
	return tokens
}

func types(tokens []token.Token) []token.Type {
	out := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestStoreDeclaration(t *testing.T) {
	tokens := tokenize(t, "store x = 42;")
	be.Equal(t, types(tokens), []token.Type{
		token.Store, token.Ident, token.Eq, token.IntLiteral, token.Semi, token.EOF,
	})
	be.Equal(t, tokens[1].Value, "x")
	be.Equal(t, tokens[3].Value, "42")
}

func TestTwoCharOperators(t *testing.T) {
	tokens := tokenize(t, "== != <= >= && || = < > !")
	be.Equal(t, types(tokens), []token.Type{
		token.EqEq, token.Neq, token.Lte, token.Gte, token.AndAnd, token.OrOr,
		token.Eq, token.Lt, token.Gt, token.Not, token.EOF,
	})
}

func TestKeywords(t *testing.T) {
	tokens := tokenize(t, "store def if else while for return break continue import as from export ASSIGN_MAIN true false null")
	be.Equal(t, types(tokens), []token.Type{
		token.Store, token.Def, token.If, token.Else, token.While, token.For,
		token.Return, token.Break, token.Continue, token.Import, token.As,
		token.From, token.Export, token.AssignMain, token.True, token.False,
		token.Null, token.EOF,
	})
}

func TestFloatLiterals(t *testing.T) {
	tokens := tokenize(t, "3.14 1e3 2.5e-1")
	be.Equal(t, types(tokens), []token.Type{
		token.FloatLiteral, token.FloatLiteral, token.FloatLiteral, token.EOF,
	})
	be.Equal(t, tokens[0].Value, "3.14")
	be.Equal(t, tokens[1].Value, "1e3")
	be.Equal(t, tokens[2].Value, "2.5e-1")
}

func TestDotAfterNumberIsMemberAccess(t *testing.T) {
	// A dot not followed by a digit belongs to the next token.
	tokens := tokenize(t, "10.foo")
	be.Equal(t, types(tokens), []token.Type{
		token.IntLiteral, token.Dot, token.Ident, token.EOF,
	})
	be.Equal(t, tokens[0].Value, "10")
}

func TestExponentBacktrack(t *testing.T) {
	// 'e' with no digits after it is an identifier, not an exponent.
	tokens := tokenize(t, "2e")
	be.Equal(t, types(tokens), []token.Type{
		token.IntLiteral, token.Ident, token.EOF,
	})
	be.Equal(t, tokens[0].Value, "2")
	be.Equal(t, tokens[1].Value, "e")
}

func TestStringLiteral(t *testing.T) {
	tokens := tokenize(t, `println("hello\nworld");`)
	be.Equal(t, tokens[2].Type, token.StringLiteral)
	// Escapes pass through untouched; backends interpret them.
	be.Equal(t, tokens[2].Value, `hello\nworld`)
}

func TestUnterminatedString(t *testing.T) {
	_, err := New([]rune(`"oops`), 0).Tokenize()
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unterminated string literal"))
}

func TestIntegerOutOfRange(t *testing.T) {
	_, err := New([]rune("99999999999999999999"), 0).Tokenize()
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "out of range"))
}

func TestUnexpectedCharacter(t *testing.T) {
	_, err := New([]rune("store x = @;"), 0).Tokenize()
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unexpected character"))
}

func TestLineComments(t *testing.T) {
	tokens := tokenize(t, "// a comment\nstore x = 1; // trailing\n")
	be.Equal(t, types(tokens), []token.Type{
		token.Store, token.Ident, token.Eq, token.IntLiteral, token.Semi, token.EOF,
	})
	be.Equal(t, tokens[0].Line, 2)
}

func TestPositions(t *testing.T) {
	tokens := tokenize(t, "store x = 1;\nstore y = 2;")
	be.Equal(t, tokens[5].Line, 2)
	be.Equal(t, tokens[5].Column, 1)
	be.Equal(t, tokens[6].Value, "y")
	be.Equal(t, tokens[6].Column, 7)
}
