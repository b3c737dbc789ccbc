package parser

import (
	"github.com/sambeau/nusa/pkg/nusa/cst"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
)

// Expression rules only check that the tokens form a well-shaped expression
// and group them into nodes. They make no precedence decisions: binary
// operators are collected flat under one binaryExpression node.

func (p *Parser) parseExpression() *cst.Node {
	n := p.begin(cst.Expression)
	pipeline := p.parsePipeline()
	if pipeline == nil {
		return nil
	}
	n.AddNode(pipeline)
	return p.finish(n)
}

// binary ('|>' binary)*
func (p *Parser) parsePipeline() *cst.Node {
	n := p.begin(cst.PipelineExpression)
	for {
		operand := p.parseBinary()
		if operand == nil {
			return nil
		}
		n.AddNode(operand)
		if !p.curIs(lexer.PIPELINE) {
			break
		}
		n.AddToken(p.advance())
	}
	return p.finish(n)
}

// primary (op primary)*
func (p *Parser) parseBinary() *cst.Node {
	n := p.begin(cst.BinaryExpression)
	for {
		operand := p.parsePrimary()
		if operand == nil {
			return nil
		}
		n.AddNode(operand)
		if !isBinaryOperator(p.cur().Type) {
			break
		}
		n.AddToken(p.advance())
	}
	return p.finish(n)
}

func isBinaryOperator(t lexer.TokenType) bool {
	switch t {
	case lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.GT, lexer.LT:
		return true
	}
	return false
}

func startsExpression(t lexer.TokenType) bool {
	switch t {
	case lexer.AWAIT, lexer.LBRACKET, lexer.LBRACE, lexer.IDENT, lexer.STRING,
		lexer.TEMPLATE, lexer.NUMBER, lexer.BOOLEAN, lexer.LPAREN:
		return true
	}
	return false
}

func (p *Parser) parsePrimary() *cst.Node {
	n := p.begin(cst.PrimaryExpression)

	var alt *cst.Node
	switch p.cur().Type {
	case lexer.AWAIT:
		alt = p.parseAwait()
	case lexer.LBRACKET:
		alt = p.parseArray()
	case lexer.LBRACE:
		alt = p.parseObject()
	case lexer.IDENT:
		if p.peek().Type == lexer.LPAREN {
			alt = p.parseCall()
		} else {
			alt = p.begin(cst.Identifier)
			alt.AddToken(p.advance())
			p.finish(alt)
		}
	case lexer.STRING, lexer.TEMPLATE, lexer.NUMBER, lexer.BOOLEAN:
		alt = p.begin(cst.Literal)
		alt.AddToken(p.advance())
		p.finish(alt)
	case lexer.LPAREN:
		alt = p.parseParenthesized()
	default:
		p.unexpected()
		return nil
	}
	if alt == nil {
		return nil
	}
	n.AddNode(alt)

	for {
		var suffix *cst.Node
		switch p.cur().Type {
		case lexer.DOT, lexer.OPTIONAL_DOT:
			suffix = p.begin(cst.MemberSuffix)
			suffix.AddToken(p.advance())
			if !p.consumeName(suffix) {
				return nil
			}
		case lexer.LBRACKET, lexer.OPTIONAL_BRACKET:
			suffix = p.begin(cst.MemberSuffix)
			suffix.AddToken(p.advance())
			index := p.parseExpression()
			if index == nil {
				return nil
			}
			suffix.AddNode(index)
			if !p.consume(suffix, lexer.RBRACKET) {
				return nil
			}
		case lexer.LPAREN:
			suffix = p.begin(cst.CallSuffix)
			if !p.parseArguments(suffix) {
				return nil
			}
		default:
			return p.finish(n)
		}
		n.AddNode(p.finish(suffix))
	}
}

// await primary
func (p *Parser) parseAwait() *cst.Node {
	n := p.begin(cst.AwaitExpression)
	n.AddToken(p.advance())
	operand := p.parsePrimary()
	if operand == nil {
		return nil
	}
	n.AddNode(operand)
	return p.finish(n)
}

// [a, b, c] with an optional trailing comma
func (p *Parser) parseArray() *cst.Node {
	n := p.begin(cst.ArrayLiteral)
	n.AddToken(p.advance())

	for !p.curIs(lexer.RBRACKET) {
		elem := p.parseExpression()
		if elem == nil {
			return nil
		}
		n.AddNode(elem)
		if !p.curIs(lexer.COMMA) {
			break
		}
		n.AddToken(p.advance())
	}
	if !p.consume(n, lexer.RBRACKET) {
		return nil
	}
	return p.finish(n)
}

// { key: value, ... } with an optional trailing comma
func (p *Parser) parseObject() *cst.Node {
	n := p.begin(cst.ObjectLiteral)
	n.AddToken(p.advance())

	for !p.curIs(lexer.RBRACE) {
		prop := p.begin(cst.ObjectProperty)
		if !p.consumeName(prop) || !p.consume(prop, lexer.COLON) {
			return nil
		}
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		prop.AddNode(value)
		n.AddNode(p.finish(prop))
		if !p.curIs(lexer.COMMA) {
			break
		}
		n.AddToken(p.advance())
	}
	if !p.consume(n, lexer.RBRACE) {
		return nil
	}
	return p.finish(n)
}

// name(args)
func (p *Parser) parseCall() *cst.Node {
	n := p.begin(cst.CallExpression)
	n.AddToken(p.advance())
	if !p.parseArguments(n) {
		return nil
	}
	return p.finish(n)
}

// ( expression (, expression)* )
func (p *Parser) parseArguments(n *cst.Node) bool {
	if !p.consume(n, lexer.LPAREN) {
		return false
	}
	if !p.curIs(lexer.RPAREN) {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return false
			}
			n.AddNode(arg)
			if !p.curIs(lexer.COMMA) {
				break
			}
			n.AddToken(p.advance())
		}
	}
	return p.consume(n, lexer.RPAREN)
}

// ( expression )
func (p *Parser) parseParenthesized() *cst.Node {
	n := p.begin(cst.ParenthesizedExpression)
	n.AddToken(p.advance())
	inner := p.parseExpression()
	if inner == nil {
		return nil
	}
	n.AddNode(inner)
	if !p.consume(n, lexer.RPAREN) {
		return nil
	}
	return p.finish(n)
}
