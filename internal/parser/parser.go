// internal/parser/parser.go
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/lexer"
)

var precedence = map[lexer.TokenType]int{
	// Logical operators (lowest precedence)
	lexer.TokenOr:  1, // ||
	lexer.TokenAnd: 2, // &&
	// Equality
	lexer.TokenDoubleEqual: 3, // ==
	lexer.TokenNotEqual:    3, // !=
	// Comparison operators
	lexer.TokenLT: 4, // <
	lexer.TokenGT: 4, // >
	lexer.TokenLE: 4, // <=
	lexer.TokenGE: 4, // >=
	// Arithmetic operators
	lexer.TokenPlus:    5, // +
	lexer.TokenMinus:   5, // -
	lexer.TokenStar:    6, // *
	lexer.TokenSlash:   6, // /
	lexer.TokenPercent: 6, // %
}

var typeTokens = map[lexer.TokenType]Type{
	lexer.TokenInt:     TypeInt,
	lexer.TokenBool:    TypeBool,
	lexer.TokenStringT: TypeString,
	lexer.TokenVoid:    TypeVoid,
}

type Parser struct {
	tokens      []lexer.Token
	current     int
	Errors      errors.List
	file        string
	sourceLines []string // Source lines for error reporting
}

func NewParser(tokens []lexer.Token) *Parser {
	return &Parser{
		tokens: tokens,
	}
}

func NewParserWithSource(tokens []lexer.Token, source string, file string) *Parser {
	return &Parser{
		tokens:      tokens,
		file:        file,
		sourceLines: strings.Split(source, "\n"),
	}
}

// ParseSource scans and parses one compilation unit.
func ParseSource(file, source string) (*Program, error) {
	scanner := lexer.NewScanner(source)
	tokens := scanner.ScanTokens()
	p := NewParserWithSource(tokens, source, file)
	for _, e := range scanner.Errors() {
		p.Errors = append(p.Errors, p.errorAt(e.Line, e.Column, e.Message))
	}
	prog := p.Parse()
	return prog, p.Errors.Err()
}

// Parse parses statements until end of input. Syntax errors are
// collected in p.Errors and parsing resumes at the next statement.
func (p *Parser) Parse() *Program {
	prog := &Program{File: p.file}
	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	return prog
}

func (p *Parser) declaration() (stmt Stmt) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(*errors.CompileError)
			if !ok {
				panic(r)
			}
			p.Errors = append(p.Errors, err)
			p.synchronize()
			stmt = nil
		}
	}()
	return p.statement()
}

func (p *Parser) statement() Stmt {
	tok := p.peek()
	pos := Pos{Line: tok.Line, Column: tok.Column}

	switch {
	case p.match(lexer.TokenFn):
		return p.function(pos)
	case p.match(lexer.TokenIf):
		return p.ifStatement(pos)
	case p.match(lexer.TokenWhile):
		cond := p.expression()
		return &WhileStmt{Pos: pos, Cond: cond, Body: p.block()}
	case p.match(lexer.TokenLet):
		return p.letStatement(pos)
	case p.match(lexer.TokenBreak):
		p.terminator()
		return &BreakStmt{Pos: pos}
	case p.match(lexer.TokenContinue):
		p.terminator()
		return &ContinueStmt{Pos: pos}
	case p.check(lexer.TokenLBrace):
		return p.block()
	}

	if p.check(lexer.TokenIdent) {
		switch {
		case p.checkNext(lexer.TokenColonEqual):
			name := p.advance().Lexeme
			p.advance()
			init := p.expression()
			p.terminator()
			return &DeclStmt{Pos: pos, Name: name, Init: init, Form: DeclInferred}
		case p.checkNext(lexer.TokenEqual):
			name := p.advance().Lexeme
			p.advance()
			value := p.expression()
			p.terminator()
			return &AssignStmt{Pos: pos, Name: name, Value: value}
		}
	}

	expr := p.expression()
	p.terminator()
	return &ExpressionStmt{Pos: pos, Expr: expr}
}

func (p *Parser) letStatement(pos Pos) Stmt {
	name := p.consume(lexer.TokenIdent, "Expect variable name").Lexeme
	decl := &DeclStmt{Pos: pos, Name: name}

	if p.match(lexer.TokenColon) {
		decl.DeclType = p.typeName()
		if p.match(lexer.TokenEqual) {
			decl.Form = DeclTyped
			decl.Init = p.expression()
		} else {
			decl.Form = DeclNoInit
		}
	} else {
		p.consume(lexer.TokenEqual, "Expect ':' or '=' after variable name")
		decl.Form = DeclInferred
		decl.Init = p.expression()
	}
	p.terminator()
	return decl
}

func (p *Parser) ifStatement(pos Pos) Stmt {
	stmt := &IfStmt{Pos: pos}
	for {
		cond := p.expression()
		stmt.Branches = append(stmt.Branches, CondBranch{Cond: cond, Body: p.block()})
		if !p.match(lexer.TokenElse) {
			return stmt
		}
		if !p.match(lexer.TokenIf) {
			stmt.Else = p.block()
			return stmt
		}
	}
}

func (p *Parser) block() *Block {
	tok := p.consume(lexer.TokenLBrace, "Expect '{' to start block")
	b := &Block{Pos: Pos{Line: tok.Line, Column: tok.Column}}
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		b.Stmts = append(b.Stmts, p.statement())
	}
	p.consume(lexer.TokenRBrace, "Expect '}' after block")
	return b
}

func (p *Parser) function(pos Pos) Stmt {
	fn := &FunctionStmt{Pos: pos, ReturnType: TypeVoid}
	fn.Name = p.consume(lexer.TokenIdent, "Expect function name").Lexeme
	p.consume(lexer.TokenLParen, "Expect '(' after function name")
	if !p.check(lexer.TokenRParen) {
		for {
			name := p.consume(lexer.TokenIdent, "Expect parameter name").Lexeme
			p.consume(lexer.TokenColon, "Expect ':' after parameter name")
			fn.Params = append(fn.Params, Param{Name: name, Type: p.typeName()})
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRParen, "Expect ')' after parameters")
	if p.match(lexer.TokenArrow) {
		fn.ReturnType = p.typeName()
	}
	fn.Body = p.block()
	return fn
}

func (p *Parser) typeName() Type {
	if t, ok := typeTokens[p.peek().Type]; ok {
		p.advance()
		return t
	}
	p.fail(p.peek(), "Expect type name")
	return TypeInvalid
}

// terminator consumes a ';', which may be omitted before '}' and at
// end of input.
func (p *Parser) terminator() {
	if p.match(lexer.TokenSemicolon) || p.check(lexer.TokenRBrace) || p.isAtEnd() {
		return
	}
	p.fail(p.peek(), "Expect ';' after statement")
}

// --- Expression Parsing with Precedence ---
func (p *Parser) expression() Expr {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.unary()
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &Binary{
			Pos:      left.Position(),
			Left:     left,
			Operator: tok.Lexeme,
			Right:    right,
		}
	}
	return left
}

func (p *Parser) unary() Expr {
	if p.check(lexer.TokenNot) || p.check(lexer.TokenMinus) {
		tok := p.advance()
		operand := p.unary()
		return &Unary{Pos: Pos{Line: tok.Line, Column: tok.Column}, Operator: tok.Lexeme, Operand: operand}
	}
	return p.primary()
}

func (p *Parser) primary() Expr {
	tok := p.advance()
	pos := Pos{Line: tok.Line, Column: tok.Column}
	switch tok.Type {
	case lexer.TokenNumber:
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.fail(tok, fmt.Sprintf("Integer literal %s out of range", tok.Lexeme))
		}
		return &Literal{Pos: pos, Value: n}
	case lexer.TokenString:
		return &Literal{Pos: pos, Value: tok.Lexeme}
	case lexer.TokenTrue:
		return &Literal{Pos: pos, Value: true}
	case lexer.TokenFalse:
		return &Literal{Pos: pos, Value: false}
	case lexer.TokenIdent:
		if p.match(lexer.TokenLParen) {
			return p.finishCall(pos, tok.Lexeme)
		}
		return &Variable{Pos: pos, Name: tok.Lexeme}
	case lexer.TokenLParen:
		expr := p.expression()
		p.consume(lexer.TokenRParen, "Expect ')' after expression")
		return expr
	}
	p.fail(tok, "Expect expression")
	return nil
}

func (p *Parser) finishCall(pos Pos, callee string) Expr {
	args := []Expr{}
	if !p.check(lexer.TokenRParen) {
		for {
			args = append(args, p.expression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRParen, "Expect ')' after arguments")
	return &CallExpr{Pos: pos, Callee: callee, Args: args}
}

// --- Utility methods ---

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), msg)
	return lexer.Token{}
}

func (p *Parser) fail(tok lexer.Token, msg string) {
	got := tok.Lexeme
	if tok.Type == lexer.TokenEOF {
		got = "end of input"
	}
	panic(p.errorAt(tok.Line, tok.Column, fmt.Sprintf("%s (got '%s')", msg, got)))
}

func (p *Parser) errorAt(line, column int, msg string) *errors.CompileError {
	err := errors.NewSyntaxError(msg, p.file, line, column)
	if p.sourceLines != nil && line > 0 && line <= len(p.sourceLines) {
		err = err.WithSource(p.sourceLines[line-1])
	}
	return err
}

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.advance().Type == lexer.TokenSemicolon {
			return
		}
		switch p.peek().Type {
		case lexer.TokenFn, lexer.TokenLet, lexer.TokenIf, lexer.TokenWhile,
			lexer.TokenBreak, lexer.TokenContinue:
			return
		}
	}
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return t == lexer.TokenEOF
	}
	return p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
		return p.tokens[p.current-1]
	}
	return p.peek()
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}
