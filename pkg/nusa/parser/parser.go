// Package parser is the statement and declaration parser for NusaLang.
//
// It produces a concrete tree (package cst) and recovers from syntax errors
// at statement boundaries so that one run reports every broken statement.
// Expressions are only recognized by shape here; their precedence and
// associativity are decided later by package pratt.
package parser

import (
	"github.com/sambeau/nusa/pkg/nusa/cst"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
)

// Parser represents the parser. A Parser is single-use: build a new one for
// every token stream.
type Parser struct {
	tokens     []lexer.Token
	pos        int
	braceDepth int

	errors []*perrors.NusaError
}

// New creates a new parser over tokens (without a trailing EOF).
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseProgram parses tokens into a program tree, returning every
// diagnostic found along the way.
func ParseProgram(tokens []lexer.Token) (*cst.Node, []*perrors.NusaError) {
	p := New(tokens)
	program := p.ParseProgram()
	return program, p.Errors()
}

// Errors returns the diagnostics collected so far.
func (p *Parser) Errors() []*perrors.NusaError {
	return p.errors
}

// ParseProgram parses statements until the end of input.
func (p *Parser) ParseProgram() *cst.Node {
	program := p.begin(cst.Program)
	for !p.curIs(lexer.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			program.AddNode(stmt)
		}
	}
	return p.finish(program)
}

// ---------------------------------------------------------------------------
// Token cursor
// ---------------------------------------------------------------------------

func (p *Parser) at(i int) lexer.Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	eof := lexer.Token{Type: lexer.EOF, Line: 1, Column: 1, EndLine: 1, EndColumn: 1}
	if n := len(p.tokens); n > 0 {
		last := p.tokens[n-1]
		eof.Offset, eof.End = last.End, last.End
		eof.Line, eof.Column = last.EndLine, last.EndColumn
		eof.EndLine, eof.EndColumn = last.EndLine, last.EndColumn
	}
	return eof
}

func (p *Parser) cur() lexer.Token  { return p.at(p.pos) }
func (p *Parser) peek() lexer.Token { return p.at(p.pos + 1) }

func (p *Parser) curIs(t lexer.TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if tok.Type == lexer.EOF {
		return tok
	}
	p.pos++
	switch tok.Type {
	case lexer.LBRACE:
		p.braceDepth++
	case lexer.RBRACE:
		if p.braceDepth > 0 {
			p.braceDepth--
		}
	}
	return tok
}

// consume files the current token under n if it has type t, or records an
// error naming t.
func (p *Parser) consume(n *cst.Node, t lexer.TokenType) bool {
	if !p.curIs(t) {
		p.expectError(t.Describe())
		return false
	}
	n.AddToken(p.advance())
	return true
}

// consumeName accepts an identifier or a keyword used as a name.
func (p *Parser) consumeName(n *cst.Node) bool {
	if !isName(p.cur().Type) {
		p.expectError("a name")
		return false
	}
	n.AddToken(p.advance())
	return true
}

func (p *Parser) begin(rule cst.Rule) *cst.Node {
	n := cst.NewNode(rule)
	n.Start = p.cur()
	return n
}

func (p *Parser) finish(n *cst.Node) *cst.Node {
	if p.pos > 0 {
		n.End = p.at(p.pos - 1)
	} else {
		n.End = n.Start
	}
	return n
}

// ---------------------------------------------------------------------------
// Errors and recovery
// ---------------------------------------------------------------------------

func (p *Parser) addError(code string, tok lexer.Token, data map[string]any) {
	p.errors = append(p.errors, perrors.NewWithPosition(code, tok.Line, tok.Column, tok.Offset, data))
}

func (p *Parser) expectError(expected string) {
	tok := p.cur()
	if tok.Type == lexer.EOF {
		p.addError("PARSE-0003", tok, map[string]any{"Expected": expected})
		return
	}
	p.addError("PARSE-0001", tok, map[string]any{"Expected": expected, "Got": tok.Literal})
}

func (p *Parser) unexpected() {
	tok := p.cur()
	if tok.Type == lexer.EOF {
		p.addError("PARSE-0003", tok, map[string]any{"Expected": "an expression"})
		return
	}
	p.addError("PARSE-0002", tok, map[string]any{"Token": tok.Literal})
}

// synchronize skips tokens after a failed statement. It stops after a ';'
// at the statement's brace depth, before the '}' closing the enclosing
// block, or before a keyword that starts a statement.
func (p *Parser) synchronize(start, depth int) {
	if p.pos == start {
		p.advance()
	}
	for {
		tok := p.cur()
		switch {
		case tok.Type == lexer.EOF:
			return
		case startsStatement(tok.Type) && !p.afterDot():
			p.braceDepth = depth
			return
		case tok.Type == lexer.SEMICOLON && p.braceDepth <= depth:
			p.advance()
			p.braceDepth = depth
			return
		case tok.Type == lexer.RBRACE && p.braceDepth <= depth:
			p.braceDepth = depth
			return
		}
		p.advance()
	}
}

func (p *Parser) afterDot() bool {
	if p.pos == 0 {
		return false
	}
	prev := p.at(p.pos - 1).Type
	return prev == lexer.DOT || prev == lexer.OPTIONAL_DOT
}

func startsStatement(t lexer.TokenType) bool {
	switch t {
	case lexer.IMPORT, lexer.PAGE, lexer.DATA, lexer.FN, lexer.ASYNC,
		lexer.AT, lexer.LET, lexer.CONST, lexer.RETURN:
		return true
	}
	return false
}

func isName(t lexer.TokenType) bool {
	return t == lexer.IDENT || t.IsKeyword()
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() *cst.Node {
	start, depth := p.pos, p.braceDepth
	stmt := p.begin(cst.Statement)

	var inner *cst.Node
	switch p.cur().Type {
	case lexer.IMPORT:
		inner = p.parseImportDeclaration()
	case lexer.PAGE:
		inner = p.parsePageDeclaration()
	case lexer.DATA:
		inner = p.parseDataDeclaration()
	case lexer.AT, lexer.ASYNC, lexer.FN:
		inner = p.parseFunctionDeclaration()
	case lexer.LET, lexer.CONST:
		inner = p.parseVariableDeclaration()
	case lexer.RETURN:
		inner = p.parseReturnStatement()
	default:
		inner = p.parseExpressionStatement()
	}

	if inner == nil {
		p.synchronize(start, depth)
		return nil
	}
	stmt.AddNode(inner)
	return p.finish(stmt)
}

// import { a, b } from "module";
func (p *Parser) parseImportDeclaration() *cst.Node {
	n := p.begin(cst.ImportDeclaration)
	n.AddToken(p.advance())

	if !p.consume(n, lexer.LBRACE) {
		return nil
	}
	for {
		spec := p.begin(cst.ImportSpecifier)
		if !p.consume(spec, lexer.IDENT) {
			return nil
		}
		n.AddNode(p.finish(spec))
		if !p.curIs(lexer.COMMA) {
			break
		}
		n.AddToken(p.advance())
	}
	if !p.consume(n, lexer.RBRACE) || !p.consume(n, lexer.FROM) || !p.consume(n, lexer.STRING) {
		return nil
	}
	p.optionalSemicolon(n)
	return p.finish(n)
}

// page "/path" { ... }
func (p *Parser) parsePageDeclaration() *cst.Node {
	n := p.begin(cst.PageDeclaration)
	n.AddToken(p.advance())

	if !p.consume(n, lexer.STRING) {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	n.AddNode(body)
	return p.finish(n)
}

// data name = expression;
func (p *Parser) parseDataDeclaration() *cst.Node {
	n := p.begin(cst.DataDeclaration)
	n.AddToken(p.advance())

	if !p.consume(n, lexer.IDENT) || !p.consume(n, lexer.ASSIGN) {
		return nil
	}
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	n.AddNode(expr)
	p.optionalSemicolon(n)
	return p.finish(n)
}

// @annotation* async? fn name(params) { ... }
func (p *Parser) parseFunctionDeclaration() *cst.Node {
	n := p.begin(cst.FunctionDeclaration)

	var firstAnnotation string
	for p.curIs(lexer.AT) {
		ann := p.parseAnnotation()
		if ann == nil {
			return nil
		}
		if firstAnnotation == "" {
			name, _ := ann.Token(lexer.IDENT)
			firstAnnotation = name.Literal
		}
		n.AddNode(ann)
	}

	if p.curIs(lexer.ASYNC) {
		n.AddToken(p.advance())
	}

	if !p.curIs(lexer.FN) {
		if firstAnnotation != "" && !p.curIs(lexer.EOF) {
			p.addError("PARSE-0005", p.cur(), map[string]any{"Got": p.cur().Literal, "Name": firstAnnotation})
		} else {
			p.expectError(lexer.FN.Describe())
		}
		return nil
	}
	n.AddToken(p.advance())

	if !p.consume(n, lexer.IDENT) || !p.consume(n, lexer.LPAREN) {
		return nil
	}
	if !p.curIs(lexer.RPAREN) {
		for {
			param := p.parseParameter()
			if param == nil {
				return nil
			}
			n.AddNode(param)
			if !p.curIs(lexer.COMMA) {
				break
			}
			n.AddToken(p.advance())
		}
	}
	if !p.consume(n, lexer.RPAREN) {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	n.AddNode(body)
	return p.finish(n)
}

// name or name: Type
func (p *Parser) parseParameter() *cst.Node {
	n := p.begin(cst.Parameter)
	if !p.consume(n, lexer.IDENT) {
		return nil
	}
	if p.curIs(lexer.COLON) {
		n.AddToken(p.advance())
		if !p.consume(n, lexer.IDENT) {
			return nil
		}
	}
	return p.finish(n)
}

// @name or @name(arg, ...)
func (p *Parser) parseAnnotation() *cst.Node {
	n := p.begin(cst.Annotation)
	n.AddToken(p.advance())

	if !p.consume(n, lexer.IDENT) {
		return nil
	}
	if !p.curIs(lexer.LPAREN) {
		return p.finish(n)
	}
	n.AddToken(p.advance())

	if !p.curIs(lexer.RPAREN) {
		for {
			arg := p.begin(cst.AnnotationArgument)
			switch p.cur().Type {
			case lexer.STRING, lexer.NUMBER, lexer.IDENT:
				arg.AddToken(p.advance())
			default:
				if p.curIs(lexer.EOF) {
					p.expectError("an annotation argument")
				} else {
					p.addError("PARSE-0004", p.cur(), map[string]any{"Got": p.cur().Literal})
				}
				return nil
			}
			n.AddNode(p.finish(arg))
			if !p.curIs(lexer.COMMA) {
				break
			}
			n.AddToken(p.advance())
		}
	}
	if !p.consume(n, lexer.RPAREN) {
		return nil
	}
	return p.finish(n)
}

// let name = expression; / const name = expression;
func (p *Parser) parseVariableDeclaration() *cst.Node {
	n := p.begin(cst.VariableDeclaration)
	n.AddToken(p.advance())

	if !p.consume(n, lexer.IDENT) || !p.consume(n, lexer.ASSIGN) {
		return nil
	}
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	n.AddNode(expr)
	p.optionalSemicolon(n)
	return p.finish(n)
}

// return; / return expression;
func (p *Parser) parseReturnStatement() *cst.Node {
	n := p.begin(cst.ReturnStatement)
	n.AddToken(p.advance())

	if startsExpression(p.cur().Type) {
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		n.AddNode(expr)
	}
	p.optionalSemicolon(n)
	return p.finish(n)
}

func (p *Parser) parseBlock() *cst.Node {
	n := p.begin(cst.BlockStatement)
	if !p.consume(n, lexer.LBRACE) {
		return nil
	}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			n.AddNode(stmt)
		}
	}
	if !p.consume(n, lexer.RBRACE) {
		return nil
	}
	return p.finish(n)
}

func (p *Parser) parseExpressionStatement() *cst.Node {
	n := p.begin(cst.ExpressionStatement)
	first, start := p.cur(), p.pos

	expr := p.parseExpression()
	if expr == nil {
		return nil
	}

	// A bare word followed by another word on the same line is almost
	// always a mistyped keyword: `fun add(x) {}` or `cosnt x = 1`.
	next := p.cur()
	if first.Type == lexer.IDENT && p.pos == start+1 &&
		next.Type == lexer.IDENT && next.Line == first.EndLine {
		data := map[string]any{"Word": first.Literal, "Got": next.Literal}
		if suggestion := perrors.FindClosestMatch(first.Literal, lexer.Keywords()); suggestion != "" {
			data["Suggestion"] = suggestion
			p.addError("PARSE-0006", next, data)
		} else {
			p.addError("PARSE-0007", next, data)
		}
		return nil
	}

	n.AddNode(expr)
	p.optionalSemicolon(n)
	return p.finish(n)
}

func (p *Parser) optionalSemicolon(n *cst.Node) {
	if p.curIs(lexer.SEMICOLON) {
		n.AddToken(p.advance())
	}
}
