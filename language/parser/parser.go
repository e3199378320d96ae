// Package parser builds the syntax tree by recursive descent over the token
// stream.
//
// Grammar (sketch):
//
//	program     := statement*
//	statement   := speaker_decl | world_decl | as_block | let | speak
//	             | when | if | while | fn | return | request | respond
//	             | inspect | history | ledger | verify | seal
//	             | pass | fail | expr_stmt
//	as_block    := "as" IDENT "{" statement* "}"
//	let         := "let" dotted_name "=" expr
//	when        := "when" expr "{" stmts "}" ["otherwise" "{" stmts "}"] ["broken" "{" stmts "}"]
//	while       := "while" expr [ "," "max" expr ] "{" stmts "}"
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logica-lang/logica/language/ast"
	"github.com/logica-lang/logica/language/token"
)

// Error is a parse failure carrying the offending token's position.
type Error struct {
	Message string
	Token   token.Token
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at line %d, col %d: %s", e.Token.Line, e.Token.Col, e.Message)
}

// Parser consumes tokens and produces a tree.
type Parser struct {
	tokens []token.Token
	pos    int
}

// New creates a parser over a token stream.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the entire program.
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}
	p.skipNewlines()
	for !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.skipNewlines()
	}
	return program, nil
}

// ── Utilities ─────────────────────────────────────────────────────────

func (p *Parser) current() token.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return token.Token{Type: token.EOF}
}

func (p *Parser) advance() token.Token {
	t := p.current()
	p.pos++
	return t
}

func (p *Parser) expect(tt token.Type) (token.Token, error) {
	t := p.current()
	if t.Type != tt {
		return t, &Error{
			Message: fmt.Sprintf("expected %s, got %s (%q)", tt, t.Type, t.Value),
			Token:   t,
		}
	}
	return p.advance(), nil
}

func (p *Parser) match(types ...token.Type) bool {
	current := p.current().Type
	for _, tt := range types {
		if current == tt {
			return true
		}
	}
	return false
}

func (p *Parser) skipNewlines() {
	for p.match(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) atEnd() bool {
	return p.current().Type == token.EOF
}

// consumeTerminator accepts a newline run or lets the enclosing block see
// its } or EOF.
func (p *Parser) consumeTerminator() {
	for p.match(token.NEWLINE) {
		p.advance()
	}
}

// ── Statements ────────────────────────────────────────────────────────

func (p *Parser) parseStatement() (ast.Statement, error) {
	p.skipNewlines()
	if p.atEnd() {
		return nil, nil
	}

	switch p.current().Type {
	case token.SPEAKER:
		return p.parseSpeakerDecl()
	case token.WORLD:
		return p.parseWorldDecl()
	case token.AS:
		return p.parseAsBlock()
	case token.LET:
		return p.parseLet()
	case token.SPEAK:
		return p.parseSpeak()
	case token.WHEN:
		return p.parseWhen()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FN:
		return p.parseFn()
	case token.RETURN:
		return p.parseReturn()
	case token.REQUEST:
		return p.parseRequest()
	case token.RESPOND:
		return p.parseRespond()
	case token.INSPECT:
		return p.parseInspect()
	case token.HISTORY:
		return p.parseHistory()
	case token.LEDGER:
		return p.parseLedger()
	case token.VERIFY:
		return p.parseVerify()
	case token.SEAL:
		return p.parseSeal()
	case token.PASS:
		return p.parsePass()
	case token.FAIL:
		return p.parseFail()
	default:
		return p.parseExprStatement()
	}
}

func (p *Parser) parseSpeakerDecl() (ast.Statement, error) {
	kw, _ := p.expect(token.SPEAKER)
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	return &ast.SpeakerDecl{Position: ast.At(kw.Line, kw.Col), Name: name.Value}, nil
}

func (p *Parser) parseWorldDecl() (ast.Statement, error) {
	kw, _ := p.expect(token.WORLD)
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var args []ast.Expression
	if p.match(token.LPAREN) {
		p.advance()
		for !p.match(token.RPAREN) {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.match(token.COMMA) {
				p.advance()
			}
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	p.consumeTerminator()
	return &ast.WorldDecl{Position: ast.At(kw.Line, kw.Col), Name: name.Value, Args: args}, nil
}

func (p *Parser) parseAsBlock() (ast.Statement, error) {
	kw, _ := p.expect(token.AS)
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBracedBody()
	if err != nil {
		return nil, err
	}
	return &ast.AsBlock{Position: ast.At(kw.Line, kw.Col), SpeakerName: name.Value, Body: body}, nil
}

func (p *Parser) parseLet() (ast.Statement, error) {
	kw, _ := p.expect(token.LET)

	first, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	parts := []string{first.Value}
	for p.match(token.DOT) {
		p.advance()
		seg, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		parts = append(parts, seg.Value)
	}
	name := strings.Join(parts, ".")

	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	return &ast.LetStatement{Position: ast.At(kw.Line, kw.Col), Name: name, Value: value}, nil
}

func (p *Parser) parseSpeak() (ast.Statement, error) {
	kw, _ := p.expect(token.SPEAK)
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	return &ast.SpeakStatement{Position: ast.At(kw.Line, kw.Col), Value: value}, nil
}

func (p *Parser) parseWhen() (ast.Statement, error) {
	kw, _ := p.expect(token.WHEN)
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBracedBody()
	if err != nil {
		return nil, err
	}

	var otherwiseBody, brokenBody []ast.Statement
	p.skipNewlines()
	if p.match(token.OTHERWISE) {
		p.advance()
		otherwiseBody, err = p.parseBracedBody()
		if err != nil {
			return nil, err
		}
	}
	p.skipNewlines()
	if p.match(token.BROKEN) {
		p.advance()
		brokenBody, err = p.parseBracedBody()
		if err != nil {
			return nil, err
		}
	}

	return &ast.WhenBlock{
		Position:      ast.At(kw.Line, kw.Col),
		Condition:     condition,
		Body:          body,
		OtherwiseBody: otherwiseBody,
		BrokenBody:    brokenBody,
	}, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	kw, _ := p.expect(token.IF)
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBracedBody()
	if err != nil {
		return nil, err
	}

	var elifClauses []ast.ElifClause
	var elseBody []ast.Statement

	for {
		p.skipNewlines()
		if !p.match(token.ELIF) {
			break
		}
		elifKw := p.advance()
		elifCond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elifBody, err := p.parseBracedBody()
		if err != nil {
			return nil, err
		}
		elifClauses = append(elifClauses, ast.ElifClause{
			Position:  ast.At(elifKw.Line, elifKw.Col),
			Condition: elifCond,
			Body:      elifBody,
		})
	}

	p.skipNewlines()
	if p.match(token.ELSE) {
		p.advance()
		elseBody, err = p.parseBracedBody()
		if err != nil {
			return nil, err
		}
	}

	return &ast.IfStatement{
		Position:    ast.At(kw.Line, kw.Col),
		Condition:   condition,
		Body:        body,
		ElifClauses: elifClauses,
		ElseBody:    elseBody,
	}, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	kw, _ := p.expect(token.WHILE)
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var maxIterations ast.Expression
	if p.match(token.COMMA) {
		p.advance()
		if _, err := p.expect(token.MAX); err != nil {
			return nil, err
		}
		maxIterations, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.parseBracedBody()
	if err != nil {
		return nil, err
	}

	return &ast.WhileLoop{
		Position:      ast.At(kw.Line, kw.Col),
		Condition:     condition,
		MaxIterations: maxIterations,
		Body:          body,
	}, nil
}

func (p *Parser) parseFn() (ast.Statement, error) {
	kw, _ := p.expect(token.FN)
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	var params []string
	for !p.match(token.RPAREN) {
		param, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		params = append(params, param.Value)
		if p.match(token.COMMA) {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBracedBody()
	if err != nil {
		return nil, err
	}

	return &ast.FnDecl{Position: ast.At(kw.Line, kw.Col), Name: name.Value, Params: params, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	kw, _ := p.expect(token.RETURN)
	var value ast.Expression
	if !p.match(token.NEWLINE, token.RBRACE, token.EOF) {
		var err error
		value, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	p.consumeTerminator()
	return &ast.ReturnStatement{Position: ast.At(kw.Line, kw.Col), Value: value}, nil
}

func (p *Parser) parseRequest() (ast.Statement, error) {
	kw, _ := p.expect(token.REQUEST)
	target, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	action, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	return &ast.RequestStatement{Position: ast.At(kw.Line, kw.Col), Target: target.Value, Action: action}, nil
}

func (p *Parser) parseRespond() (ast.Statement, error) {
	kw, _ := p.expect(token.RESPOND)
	accept := true
	if p.match(token.ACCEPT) {
		p.advance()
	} else if p.match(token.REFUSE) {
		p.advance()
		accept = false
	}
	p.consumeTerminator()
	return &ast.RespondStatement{Position: ast.At(kw.Line, kw.Col), Accept: accept}, nil
}

func (p *Parser) parseInspect() (ast.Statement, error) {
	kw, _ := p.expect(token.INSPECT)
	target, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	return &ast.InspectStatement{Position: ast.At(kw.Line, kw.Col), Target: target}, nil
}

func (p *Parser) parseHistory() (ast.Statement, error) {
	kw, _ := p.expect(token.HISTORY)
	target, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	return &ast.HistoryStatement{Position: ast.At(kw.Line, kw.Col), Target: target}, nil
}

func (p *Parser) parseLedger() (ast.Statement, error) {
	kw, _ := p.expect(token.LEDGER)
	var count ast.Expression
	var err error
	if p.match(token.IDENTIFIER) && p.current().Value == "last" {
		p.advance()
		count, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	} else if p.match(token.INTEGER) {
		count, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	p.consumeTerminator()
	return &ast.LedgerStatement{Position: ast.At(kw.Line, kw.Col), Count: count}, nil
}

func (p *Parser) parseVerify() (ast.Statement, error) {
	kw, _ := p.expect(token.VERIFY)
	if p.match(token.LEDGER) {
		p.advance()
	}
	p.consumeTerminator()
	return &ast.VerifyStatement{Position: ast.At(kw.Line, kw.Col)}, nil
}

func (p *Parser) parseSeal() (ast.Statement, error) {
	kw, _ := p.expect(token.SEAL)
	name, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	return &ast.SealStatement{Position: ast.At(kw.Line, kw.Col), Target: name.Value}, nil
}

func (p *Parser) parsePass() (ast.Statement, error) {
	kw, _ := p.expect(token.PASS)
	p.consumeTerminator()
	return &ast.PassStatement{Position: ast.At(kw.Line, kw.Col)}, nil
}

func (p *Parser) parseFail() (ast.Statement, error) {
	kw, _ := p.expect(token.FAIL)
	var reason ast.Expression
	if !p.match(token.NEWLINE, token.RBRACE, token.EOF) {
		var err error
		reason, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	p.consumeTerminator()
	return &ast.FailStatement{Position: ast.At(kw.Line, kw.Col), Reason: reason}, nil
}

func (p *Parser) parseExprStatement() (ast.Statement, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.consumeTerminator()
	line, col := expr.Pos()
	return &ast.ExpressionStatement{Position: ast.At(line, col), Expr: expr}, nil
}

// parseBracedBody parses "{ statement* }" with leading newlines allowed.
func (p *Parser) parseBracedBody() ([]ast.Statement, error) {
	p.skipNewlines()
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}

	var statements []ast.Statement
	p.skipNewlines()
	for !p.match(token.RBRACE) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			statements = append(statements, stmt)
		}
		p.skipNewlines()
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return statements, nil
}

// ── Expressions ───────────────────────────────────────────────────────
// Precedence, low to high: or, and, not, comparison, additive,
// multiplicative, unary minus, postfix, primary.

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.match(token.OR) {
		op := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Position: ast.At(op.Line, op.Col), Left: left, Op: "or", Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.match(token.AND) {
		op := p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Position: ast.At(op.Line, op.Col), Left: left, Op: "and", Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expression, error) {
	if p.match(token.NOT) {
		op := p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Position: ast.At(op.Line, op.Col), Op: "not", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}
	for p.match(token.EQ, token.NEQ, token.LT, token.GT, token.LTE, token.GTE) {
		op := p.advance()
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Position: ast.At(op.Line, op.Col), Left: left, Op: op.Value, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAddition() (ast.Expression, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}
	for p.match(token.PLUS, token.MINUS) {
		op := p.advance()
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Position: ast.At(op.Line, op.Col), Left: left, Op: op.Value, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplication() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.match(token.STAR, token.SLASH, token.PERCENT) {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Position: ast.At(op.Line, op.Col), Left: left, Op: op.Value, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.match(token.MINUS) {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Position: ast.At(op.Line, op.Col), Op: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.match(token.DOT):
			p.advance()
			member, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberAccess{Position: ast.At(member.Line, member.Col), Object: expr, Member: member.Value}
		case p.match(token.LPAREN):
			p.advance()
			var args []ast.Expression
			for !p.match(token.RPAREN) {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.match(token.COMMA) {
					p.advance()
				}
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			line, col := expr.Pos()
			expr = &ast.FnCall{Position: ast.At(line, col), Function: expr, Args: args}
		case p.match(token.LBRACKET):
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			line, col := expr.Pos()
			expr = &ast.IndexAccess{Position: ast.At(line, col), Object: expr, Index: index}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	t := p.current()

	switch t.Type {
	case token.INTEGER:
		p.advance()
		n, err := strconv.Atoi(t.Value)
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("bad integer literal %q", t.Value), Token: t}
		}
		return &ast.IntegerLiteral{Position: ast.At(t.Line, t.Col), Value: n}, nil

	case token.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("bad float literal %q", t.Value), Token: t}
		}
		return &ast.FloatLiteral{Position: ast.At(t.Line, t.Col), Value: f}, nil

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Position: ast.At(t.Line, t.Col), Value: t.Value}, nil

	case token.TRUE, token.FALSE:
		p.advance()
		return &ast.BooleanLiteral{Position: ast.At(t.Line, t.Col), Value: t.Type == token.TRUE}, nil

	case token.NONE:
		p.advance()
		return &ast.NoneLiteral{Position: ast.At(t.Line, t.Col)}, nil

	case token.ACTIVE:
		p.advance()
		return &ast.StatusLiteral{Position: ast.At(t.Line, t.Col), Value: "active"}, nil
	case token.INACTIVE:
		p.advance()
		return &ast.StatusLiteral{Position: ast.At(t.Line, t.Col), Value: "inactive"}, nil
	case token.BROKEN:
		p.advance()
		return &ast.StatusLiteral{Position: ast.At(t.Line, t.Col), Value: "broken"}, nil

	case token.READ:
		p.advance()
		target, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &ast.ReadExpr{Position: ast.At(t.Line, t.Col), Target: target}, nil

	case token.IDENTIFIER:
		p.advance()
		return &ast.Identifier{Position: ast.At(t.Line, t.Col), Name: t.Value}, nil

	case token.LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}

	return nil, &Error{Message: fmt.Sprintf("unexpected token: %q", t.Value), Token: t}
}
