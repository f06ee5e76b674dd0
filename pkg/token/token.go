package token

type Type int

const (
	EOF Type = iota

	// Literals
	Ident
	IntLiteral
	FloatLiteral
	StringLiteral

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	Eq
	EqEq
	Neq
	Lt
	Lte
	Gt
	Gte
	AndAnd
	OrOr
	Not

	// Delimiters
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Colon
	Semi
	Comma
	Dot

	// Keywords
	Store
	Def
	If
	Else
	While
	For
	Return
	Break
	Continue
	Import
	As
	From
	Export
	AssignMain
	True
	False
	Null

	TypeCount
)

// KeywordMap maps source spellings to keyword token types.
var KeywordMap = map[string]Type{
	"store":       Store,
	"def":         Def,
	"if":          If,
	"else":        Else,
	"while":       While,
	"for":         For,
	"return":      Return,
	"break":       Break,
	"continue":    Continue,
	"import":      Import,
	"as":          As,
	"from":        From,
	"export":      Export,
	"ASSIGN_MAIN": AssignMain,
	"true":        True,
	"false":       False,
	"null":        Null,
}

var TypeStrings = map[Type]string{
	EOF:           "end of file",
	Ident:         "identifier",
	IntLiteral:    "integer literal",
	FloatLiteral:  "float literal",
	StringLiteral: "string literal",
	Plus:          "'+'",
	Minus:         "'-'",
	Star:          "'*'",
	Slash:         "'/'",
	Percent:       "'%'",
	Eq:            "'='",
	EqEq:          "'=='",
	Neq:           "'!='",
	Lt:            "'<'",
	Lte:           "'<='",
	Gt:            "'>'",
	Gte:           "'>='",
	AndAnd:        "'&&'",
	OrOr:          "'||'",
	Not:           "'!'",
	LParen:        "'('",
	RParen:        "')'",
	LBrace:        "'{'",
	RBrace:        "'}'",
	LBracket:      "'['",
	RBracket:      "']'",
	Colon:         "':'",
	Semi:          "';'",
	Comma:         "','",
	Dot:           "'.'",
	Store:         "'store'",
	Def:           "'def'",
	If:            "'if'",
	Else:          "'else'",
	While:         "'while'",
	For:           "'for'",
	Return:        "'return'",
	Break:         "'break'",
	Continue:      "'continue'",
	Import:        "'import'",
	As:            "'as'",
	From:          "'from'",
	Export:        "'export'",
	AssignMain:    "'ASSIGN_MAIN'",
	True:          "'true'",
	False:         "'false'",
	Null:          "'null'",
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "unknown token"
}

// Token is a single lexeme with its source position. FileIndex refers into
// the source registry kept by pkg/util.
type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
