package parser

import (
	"strconv"

	"github.com/xplshn/nlc/pkg/ast"
	"github.com/xplshn/nlc/pkg/token"
	"github.com/xplshn/nlc/pkg/util"
)

type Parser struct {
	tokens []token.Token
	pos    int
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseProgram parses declarations until EOF.
func (p *Parser) ParseProgram() (*ast.Node, error) {
	var start token.Token
	if len(p.tokens) > 0 {
		start = p.tokens[0]
	}
	var stmts []*ast.Node
	for !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return ast.NewProgram(start, stmts), nil
}

func (p *Parser) isAtEnd() bool { return p.peek().Type == token.EOF }

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) previous() token.Token { return p.tokens[p.pos-1] }

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) check(t token.Type) bool { return p.peek().Type == t }

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t token.Type, msg string) (token.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return token.Token{}, util.Errorf(p.peek(), "%s, found %s", msg, p.peek().Type)
}

func (p *Parser) consumeIdent(msg string) (token.Token, error) {
	return p.consume(token.Ident, msg)
}

func (p *Parser) declaration() (*ast.Node, error) {
	switch {
	case p.match(token.Export):
		return p.exportDeclaration(p.previous())
	case p.match(token.Store):
		return p.storeDeclaration(p.previous())
	case p.match(token.Def):
		return p.funcDeclaration(p.previous())
	case p.check(token.Import):
		return p.importDeclaration()
	case p.check(token.From):
		return p.fromImportDeclaration()
	case p.match(token.AssignMain):
		return p.assignMainDeclaration(p.previous())
	}
	return p.statement()
}

func (p *Parser) exportDeclaration(tok token.Token) (*ast.Node, error) {
	var decl *ast.Node
	var err error
	switch {
	case p.match(token.Store):
		decl, err = p.storeDeclaration(p.previous())
	case p.match(token.Def):
		decl, err = p.funcDeclaration(p.previous())
	default:
		return nil, util.Errorf(p.peek(), "expected 'store' or 'def' after 'export'")
	}
	if err != nil {
		return nil, err
	}
	return ast.NewExport(tok, decl), nil
}

// storeDeclaration parses `store name (: type)? (= expr)? ;`.
func (p *Parser) storeDeclaration(tok token.Token) (*ast.Node, error) {
	name, err := p.consumeIdent("expected variable name")
	if err != nil {
		return nil, err
	}

	var typeAnn *ast.Type
	if p.match(token.Colon) {
		typeAnn, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}

	var init *ast.Node
	if p.match(token.Eq) {
		init, err = p.expression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(token.Semi, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}
	return ast.NewStore(tok, name.Value, typeAnn, init), nil
}

func (p *Parser) funcDeclaration(tok token.Token) (*ast.Node, error) {
	name, err := p.consumeIdent("expected function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LParen, "expected '(' after function name"); err != nil {
		return nil, err
	}

	var params []ast.Param
	if !p.check(token.RParen) {
		for {
			pname, err := p.consumeIdent("expected parameter name")
			if err != nil {
				return nil, err
			}
			ptype := ast.TypeInt
			if p.match(token.Colon) {
				ptype, err = p.parseType()
				if err != nil {
					return nil, err
				}
			}
			params = append(params, ast.Param{Name: pname.Value, Type: ptype, Tok: pname})
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if _, err := p.consume(token.RParen, "expected ')' after parameters"); err != nil {
		return nil, err
	}

	var retType *ast.Type
	if p.match(token.Colon) {
		retType, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}

	if !p.check(token.LBrace) {
		return nil, util.Errorf(p.peek(), "expected function body")
	}
	body, err := p.blockStatement()
	if err != nil {
		return nil, err
	}
	return ast.NewFuncDecl(tok, name.Value, params, retType, body), nil
}

func (p *Parser) parseType() (*ast.Type, error) {
	tok := p.peek()
	if tok.Type != token.Ident {
		return nil, util.Errorf(tok, "expected type name")
	}
	p.advance()
	switch tok.Value {
	case "int":
		return ast.TypeInt, nil
	case "float":
		return ast.TypeFlt, nil
	case "bool":
		return ast.TypeBool, nil
	case "string":
		return ast.TypeStr, nil
	}
	return nil, util.Errorf(tok, "unknown type %q", tok.Value)
}

// modulePath parses a dotted module path like `a.b.c`.
func (p *Parser) modulePath() ([]string, error) {
	first, err := p.consumeIdent("expected module name")
	if err != nil {
		return nil, err
	}
	path := []string{first.Value}
	for p.match(token.Dot) {
		part, err := p.consumeIdent("expected module path segment after '.'")
		if err != nil {
			return nil, err
		}
		path = append(path, part.Value)
	}
	return path, nil
}

// importDeclaration parses the three import forms rooted at 'import':
// `import m;`, `import m as alias;` and `import m from a, b;`.
func (p *Parser) importDeclaration() (*ast.Node, error) {
	tok, err := p.consume(token.Import, "expected 'import'")
	if err != nil {
		return nil, err
	}
	path, err := p.modulePath()
	if err != nil {
		return nil, err
	}

	switch {
	case p.match(token.As):
		alias, err := p.consumeIdent("expected alias name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Semi, "expected ';' after import statement"); err != nil {
			return nil, err
		}
		return ast.NewImport(tok, path, alias.Value), nil
	case p.match(token.From):
		items, err := p.importList()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.Semi, "expected ';' after import statement"); err != nil {
			return nil, err
		}
		return ast.NewFromImport(tok, path, items), nil
	}

	if _, err := p.consume(token.Semi, "expected ';' after import statement"); err != nil {
		return nil, err
	}
	return ast.NewImport(tok, path, ""), nil
}

// fromImportDeclaration parses `from m import a, b as c;`.
func (p *Parser) fromImportDeclaration() (*ast.Node, error) {
	tok, err := p.consume(token.From, "expected 'from'")
	if err != nil {
		return nil, err
	}
	path, err := p.modulePath()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Import, "expected 'import' after module name"); err != nil {
		return nil, err
	}
	items, err := p.importList()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Semi, "expected ';' after import statement"); err != nil {
		return nil, err
	}
	return ast.NewFromImport(tok, path, items), nil
}

// importList parses `a, b as c` with optional surrounding braces.
func (p *Parser) importList() ([]ast.ImportItem, error) {
	hasBraces := p.match(token.LBrace)

	var items []ast.ImportItem
	for {
		name, err := p.consumeIdent("expected import item")
		if err != nil {
			return nil, err
		}
		item := ast.ImportItem{Name: name.Value, Tok: name}
		if p.match(token.As) {
			alias, err := p.consumeIdent("expected alias name")
			if err != nil {
				return nil, err
			}
			item.Alias = alias.Value
		}
		items = append(items, item)
		if !p.match(token.Comma) {
			break
		}
	}

	if hasBraces {
		if _, err := p.consume(token.RBrace, "expected '}' after import list"); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// assignMainDeclaration parses `ASSIGN_MAIN -> "name";`.
func (p *Parser) assignMainDeclaration(tok token.Token) (*ast.Node, error) {
	if _, err := p.consume(token.Minus, "expected '->' after 'ASSIGN_MAIN'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Gt, "expected '->' after 'ASSIGN_MAIN'"); err != nil {
		return nil, err
	}
	name, err := p.consume(token.StringLiteral, "expected string literal for function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Semi, "expected ';' after ASSIGN_MAIN declaration"); err != nil {
		return nil, err
	}
	return ast.NewAssignMain(tok, name.Value), nil
}

func (p *Parser) statement() (*ast.Node, error) {
	switch {
	case p.check(token.LBrace):
		return p.blockStatement()
	case p.match(token.If):
		return p.ifStatement(p.previous())
	case p.match(token.While):
		return p.whileStatement(p.previous())
	case p.match(token.Return):
		return p.returnStatement(p.previous())
	case p.match(token.Break):
		tok := p.previous()
		if _, err := p.consume(token.Semi, "expected ';' after 'break'"); err != nil {
			return nil, err
		}
		return ast.NewBreak(tok), nil
	case p.match(token.Continue):
		tok := p.previous()
		if _, err := p.consume(token.Semi, "expected ';' after 'continue'"); err != nil {
			return nil, err
		}
		return ast.NewContinue(tok), nil
	}
	return p.expressionStatement()
}

func (p *Parser) blockStatement() (*ast.Node, error) {
	tok, err := p.consume(token.LBrace, "expected '{' before block")
	if err != nil {
		return nil, err
	}
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.consume(token.RBrace, "expected '}' after block"); err != nil {
		return nil, err
	}
	return ast.NewBlock(tok, stmts), nil
}

func (p *Parser) ifStatement(tok token.Token) (*ast.Node, error) {
	if _, err := p.consume(token.LParen, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RParen, "expected ')' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var els *ast.Node
	if p.match(token.Else) {
		els, err = p.statement()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewIf(tok, cond, then, els), nil
}

func (p *Parser) whileStatement(tok token.Token) (*ast.Node, error) {
	if _, err := p.consume(token.LParen, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RParen, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return ast.NewWhile(tok, cond, body), nil
}

func (p *Parser) returnStatement(tok token.Token) (*ast.Node, error) {
	var value *ast.Node
	var err error
	if !p.check(token.Semi) {
		value, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.Semi, "expected ';' after return value"); err != nil {
		return nil, err
	}
	return ast.NewReturn(tok, value), nil
}

func (p *Parser) expressionStatement() (*ast.Node, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.Semi, "expected ';' after expression"); err != nil {
		return nil, err
	}
	return ast.NewExprStmt(expr.Tok, expr), nil
}

func (p *Parser) expression() (*ast.Node, error) { return p.assignment() }

func (p *Parser) assignment() (*ast.Node, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.match(token.Eq) {
		eq := p.previous()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		if expr.Type == ast.Variable {
			return ast.NewAssign(eq, expr.Data.(*ast.VariableData).Name, value), nil
		}
		return nil, util.Errorf(eq, "invalid assignment target")
	}
	return expr, nil
}

func (p *Parser) binaryLoop(next func() (*ast.Node, error), ops ...token.Type) (*ast.Node, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.match(op) {
				opTok := p.previous()
				right, err := next()
				if err != nil {
					return nil, err
				}
				expr = ast.NewBinary(opTok, opTok.Type, expr, right)
				matched = true
				break
			}
		}
		if !matched {
			return expr, nil
		}
	}
}

func (p *Parser) or() (*ast.Node, error) {
	return p.binaryLoop(p.and, token.OrOr)
}

func (p *Parser) and() (*ast.Node, error) {
	return p.binaryLoop(p.equality, token.AndAnd)
}

func (p *Parser) equality() (*ast.Node, error) {
	return p.binaryLoop(p.comparison, token.EqEq, token.Neq)
}

func (p *Parser) comparison() (*ast.Node, error) {
	return p.binaryLoop(p.term, token.Gt, token.Gte, token.Lt, token.Lte)
}

func (p *Parser) term() (*ast.Node, error) {
	return p.binaryLoop(p.factor, token.Plus, token.Minus)
}

func (p *Parser) factor() (*ast.Node, error) {
	return p.binaryLoop(p.unary, token.Star, token.Slash, token.Percent)
}

func (p *Parser) unary() (*ast.Node, error) {
	if p.match(token.Not) || p.match(token.Minus) {
		opTok := p.previous()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(opTok, opTok.Type, operand), nil
	}
	return p.call()
}

func (p *Parser) call() (*ast.Node, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(token.LParen):
			expr, err = p.finishCall(expr, p.previous())
			if err != nil {
				return nil, err
			}
		case p.match(token.Dot):
			name, err := p.consumeIdent("expected property name after '.'")
			if err != nil {
				return nil, err
			}
			expr = ast.NewGet(name, expr, name.Value)
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee *ast.Node, tok token.Token) (*ast.Node, error) {
	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	if _, err := p.consume(token.RParen, "expected ')' after arguments"); err != nil {
		return nil, err
	}
	return ast.NewCall(tok, callee, args), nil
}

func (p *Parser) primary() (*ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case token.IntLiteral:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, util.Errorf(tok, "invalid integer literal %q", tok.Value)
		}
		return ast.NewNumber(tok, v), nil
	case token.FloatLiteral:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, util.Errorf(tok, "invalid float literal %q", tok.Value)
		}
		return ast.NewFloat(tok, v), nil
	case token.StringLiteral:
		p.advance()
		return ast.NewString(tok, tok.Value), nil
	case token.True:
		p.advance()
		return ast.NewBoolean(tok, true), nil
	case token.False:
		p.advance()
		return ast.NewBoolean(tok, false), nil
	case token.Null:
		p.advance()
		return ast.NewNull(tok), nil
	case token.Ident:
		p.advance()
		return ast.NewVariable(tok, tok.Value), nil
	case token.LParen:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RParen, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, util.Errorf(tok, "expected expression, found %s", tok.Type)
}
