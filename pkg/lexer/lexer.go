package lexer

import (
	"strconv"

	"github.com/xplshn/nlc/pkg/token"
	"github.com/xplshn/nlc/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
}

func New(source []rune, fileIndex int) *Lexer {
	return &Lexer{source: source, fileIndex: fileIndex, line: 1, column: 1}
}

// Tokenize scans the whole input, appending an EOF token on success.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	r := l.source[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) makeToken(t token.Type, value string, startPos, startLine, startCol int) token.Token {
	return token.Token{
		Type:      t,
		Value:     value,
		FileIndex: l.fileIndex,
		Line:      startLine,
		Column:    startCol,
		Len:       l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '/':
			if l.peekNext() == '/' {
				for !l.isAtEnd() && l.peek() != '\n' {
					l.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) next() (token.Token, error) {
	l.skipWhitespaceAndComments()

	startPos, startLine, startCol := l.pos, l.line, l.column
	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startLine, startCol), nil
	}

	r := l.advance()

	switch {
	case isAlpha(r):
		return l.identifier(startPos, startLine, startCol), nil
	case isDigit(r):
		return l.number(startPos, startLine, startCol)
	}

	simple := func(t token.Type) (token.Token, error) {
		return l.makeToken(t, string(l.source[startPos:l.pos]), startPos, startLine, startCol), nil
	}

	switch r {
	case '+':
		return simple(token.Plus)
	case '-':
		return simple(token.Minus)
	case '*':
		return simple(token.Star)
	case '/':
		return simple(token.Slash)
	case '%':
		return simple(token.Percent)
	case '(':
		return simple(token.LParen)
	case ')':
		return simple(token.RParen)
	case '{':
		return simple(token.LBrace)
	case '}':
		return simple(token.RBrace)
	case '[':
		return simple(token.LBracket)
	case ']':
		return simple(token.RBracket)
	case ':':
		return simple(token.Colon)
	case ';':
		return simple(token.Semi)
	case ',':
		return simple(token.Comma)
	case '.':
		return simple(token.Dot)
	case '=':
		if l.match('=') {
			return simple(token.EqEq)
		}
		return simple(token.Eq)
	case '!':
		if l.match('=') {
			return simple(token.Neq)
		}
		return simple(token.Not)
	case '<':
		if l.match('=') {
			return simple(token.Lte)
		}
		return simple(token.Lt)
	case '>':
		if l.match('=') {
			return simple(token.Gte)
		}
		return simple(token.Gt)
	case '&':
		if l.match('&') {
			return simple(token.AndAnd)
		}
	case '|':
		if l.match('|') {
			return simple(token.OrOr)
		}
	case '"':
		return l.stringLiteral(startPos, startLine, startCol)
	}

	bad := l.makeToken(token.EOF, string(r), startPos, startLine, startCol)
	return token.Token{}, util.Errorf(bad, "unexpected character %q", r)
}

func (l *Lexer) identifier(startPos, startLine, startCol int) token.Token {
	for !l.isAtEnd() && isAlphaNumeric(l.peek()) {
		l.advance()
	}
	text := string(l.source[startPos:l.pos])
	if kw, ok := token.KeywordMap[text]; ok {
		return l.makeToken(kw, text, startPos, startLine, startCol)
	}
	return l.makeToken(token.Ident, text, startPos, startLine, startCol)
}

// number scans an integer or float literal. A '.' or exponent only counts
// when followed by digits; otherwise scanning backtracks so the dot can
// serve member access.
func (l *Lexer) number(startPos, startLine, startCol int) (token.Token, error) {
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}

	isFloat := false
	if l.peek() == '.' && isDigit(l.peekNext()) {
		isFloat = true
		l.advance()
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}

	if l.peek() == 'e' || l.peek() == 'E' {
		save, saveLine, saveCol := l.pos, l.line, l.column
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			isFloat = true
			for !l.isAtEnd() && isDigit(l.peek()) {
				l.advance()
			}
		} else {
			l.pos, l.line, l.column = save, saveLine, saveCol
		}
	}

	text := string(l.source[startPos:l.pos])
	if isFloat {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			tok := l.makeToken(token.FloatLiteral, text, startPos, startLine, startCol)
			return token.Token{}, util.Errorf(tok, "invalid float literal %q", text)
		}
		return l.makeToken(token.FloatLiteral, text, startPos, startLine, startCol), nil
	}
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		tok := l.makeToken(token.IntLiteral, text, startPos, startLine, startCol)
		return token.Token{}, util.Errorf(tok, "integer literal %q out of range", text)
	}
	return l.makeToken(token.IntLiteral, text, startPos, startLine, startCol), nil
}

// stringLiteral scans to the closing quote. Escapes are not processed here;
// backends interpret them when emitting. Newlines are allowed inside.
func (l *Lexer) stringLiteral(startPos, startLine, startCol int) (token.Token, error) {
	for !l.isAtEnd() && l.peek() != '"' {
		l.advance()
	}
	if l.isAtEnd() {
		tok := l.makeToken(token.StringLiteral, "", startPos, startLine, startCol)
		return token.Token{}, util.Errorf(tok, "unterminated string literal")
	}
	l.advance() // closing quote
	value := string(l.source[startPos+1 : l.pos-1])
	return l.makeToken(token.StringLiteral, value, startPos, startLine, startCol), nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isAlphaNumeric(r rune) bool { return isAlpha(r) || isDigit(r) }
