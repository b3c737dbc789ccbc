// Package pratt is the precedence-climbing expression parser.
//
// It works on an already-ordered slice of tokens (see package bridge) and
// builds ast expressions. All operator precedence and associativity in the
// compiler is decided here.
package pratt

import (
	"github.com/sambeau/nusa/pkg/nusa/ast"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
)

// Parser walks a fixed token slice. Create one per expression.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// New creates a parser over tokens.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses tokens as exactly one expression. Leftover tokens are an
// error. Errors carry the token images of the whole expression.
func Parse(tokens []lexer.Token) (ast.Expression, error) {
	p := New(tokens)
	expr, err := p.ParseExpression(LOWEST)
	if err == nil && !p.atEnd() {
		tok := p.cur()
		err = p.errorAt("EXPR-0004", tok, map[string]any{"Kind": tok.Type.String(), "Literal": tok.Literal})
	}
	if err != nil {
		if nerr, ok := err.(*perrors.NusaError); ok {
			return nil, nerr.WithTokens(images(tokens))
		}
		return nil, err
	}
	return expr, nil
}

func images(tokens []lexer.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Literal
	}
	return out
}

func (p *Parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *Parser) cur() lexer.Token {
	if p.atEnd() {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekIs(t lexer.TokenType) bool {
	return p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == t
}

// last returns the most recently consumed token.
func (p *Parser) last() lexer.Token {
	if p.pos == 0 {
		return p.cur()
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) errorAt(code string, tok lexer.Token, data map[string]any) error {
	if tok.Type == lexer.EOF {
		end := p.last()
		return perrors.NewWithPosition(code, end.EndLine, end.EndColumn, end.End, data)
	}
	return perrors.NewWithPosition(code, tok.Line, tok.Column, tok.Offset, data)
}

func (p *Parser) unexpected(expected string) error {
	tok := p.cur()
	if tok.Type == lexer.EOF {
		return p.errorAt("EXPR-0002", tok, map[string]any{"Expected": expected})
	}
	return p.errorAt("EXPR-0001", tok, map[string]any{"Kind": tok.Type.String(), "Literal": tok.Literal})
}

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	tok := p.cur()
	if tok.Type == t {
		return p.advance(), nil
	}
	if tok.Type == lexer.EOF {
		return tok, p.errorAt("EXPR-0002", tok, map[string]any{"Expected": t.Describe()})
	}
	return tok, p.errorAt("EXPR-0005", tok, map[string]any{
		"Expected": t.Describe(),
		"Kind":     tok.Type.String(),
		"Literal":  tok.Literal,
	})
}

// ParseExpression parses a prefix expression, then keeps absorbing infix and
// postfix operators while they bind tighter than min.
func (p *Parser) ParseExpression(min Precedence) (ast.Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for !p.atEnd() {
		tok := p.cur()
		prec, ok := precedences[tok.Type]
		if !ok || prec <= min {
			break
		}

		if isPostfix(tok.Type) {
			left, err = p.parsePostfixChain(left)
		} else {
			p.advance()
			var right ast.Expression
			right, err = p.ParseExpression(prec)
			if err == nil {
				left, err = Infix(tok, left, right)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *Parser) parsePrefix() (ast.Expression, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.AWAIT:
		p.advance()
		arg, err := p.ParseExpression(UNARY)
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpression{Base: ast.Base{Loc: span(tok, arg)}, Argument: arg}, nil

	case lexer.LPAREN:
		p.advance()
		inner, err := p.ParseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil

	case lexer.LBRACKET:
		return p.parseArray()

	case lexer.LBRACE:
		return p.parseObject()

	case lexer.STRING, lexer.TEMPLATE, lexer.NUMBER, lexer.BOOLEAN:
		p.advance()
		return NewLiteral(tok), nil

	case lexer.IDENT:
		p.advance()
		ident := NewIdentifier(tok)
		if p.cur().Type == lexer.LPAREN {
			return p.parsePostfixChain(ident)
		}
		return ident, nil
	}

	return nil, p.unexpected("an expression")
}

// parsePostfixChain applies member accesses and calls left to right, so
// `a.b[0].c()` folds into one chain no matter what precedence the caller
// is parsing at.
func (p *Parser) parsePostfixChain(left ast.Expression) (ast.Expression, error) {
	for isPostfix(p.cur().Type) {
		var err error
		left, err = p.parsePostfix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePostfix(left ast.Expression) (ast.Expression, error) {
	tok := p.advance()
	switch tok.Type {
	case lexer.DOT, lexer.OPTIONAL_DOT:
		name := p.cur()
		if name.Type != lexer.IDENT && !name.Type.IsKeyword() {
			return nil, p.unexpected("a property name")
		}
		p.advance()
		return &ast.MemberExpression{
			Base:     ast.Base{Loc: join(left.Location(), Location(name, name))},
			Object:   left,
			Property: NewIdentifier(name),
			Optional: tok.Type == lexer.OPTIONAL_DOT,
		}, nil

	case lexer.LBRACKET, lexer.OPTIONAL_BRACKET:
		index, err := p.ParseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		closing, err := p.expect(lexer.RBRACKET)
		if err != nil {
			return nil, err
		}
		return &ast.MemberExpression{
			Base:     ast.Base{Loc: join(left.Location(), Location(closing, closing))},
			Object:   left,
			Property: index,
			Computed: true,
			Optional: tok.Type == lexer.OPTIONAL_BRACKET,
		}, nil
	}

	// LPAREN
	args, err := p.parseList(lexer.RPAREN, false)
	if err != nil {
		return nil, err
	}
	return &ast.CallExpression{
		Base:      ast.Base{Loc: join(left.Location(), Location(p.last(), p.last()))},
		Callee:    left,
		Arguments: args,
	}, nil
}

// parseList parses comma-separated expressions up to and including the
// closing token. The opening token has already been consumed.
func (p *Parser) parseList(closing lexer.TokenType, trailingComma bool) ([]ast.Expression, error) {
	list := []ast.Expression{}
	if p.cur().Type == closing {
		p.advance()
		return list, nil
	}

	for {
		item, err := p.ParseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		list = append(list, item)

		if p.cur().Type != lexer.COMMA {
			break
		}
		p.advance()
		if trailingComma && p.cur().Type == closing {
			break
		}
	}

	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseArray() (ast.Expression, error) {
	open := p.advance()
	elems, err := p.parseList(lexer.RBRACKET, true)
	if err != nil {
		return nil, err
	}
	return &ast.ArrayExpression{Base: ast.Base{Loc: Location(open, p.last())}, Elements: elems}, nil
}

func (p *Parser) parseObject() (ast.Expression, error) {
	open := p.advance()
	obj := &ast.ObjectExpression{Properties: []*ast.Property{}}

	for p.cur().Type != lexer.RBRACE {
		key := p.cur()
		if key.Type != lexer.IDENT && !key.Type.IsKeyword() {
			return nil, p.unexpected("a property name")
		}
		p.advance()
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		value, err := p.ParseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		obj.Properties = append(obj.Properties, &ast.Property{
			Base:  ast.Base{Loc: join(Location(key, key), value.Location())},
			Key:   key.Literal,
			Value: value,
		})

		if p.cur().Type != lexer.COMMA {
			break
		}
		p.advance()
	}

	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	obj.Loc = Location(open, p.last())
	return obj, nil
}

// Infix builds the node for `left op right`. It is shared by the parser and
// by Fold so both construct identical trees.
func Infix(op lexer.Token, left, right ast.Expression) (ast.Expression, error) {
	loc := join(left.Location(), right.Location())

	if op.Type == lexer.PIPELINE {
		switch right.(type) {
		case *ast.Identifier, *ast.CallExpression:
		default:
			return nil, perrors.NewWithPosition("EXPR-0003", op.Line, op.Column, op.Offset,
				map[string]any{"Kind": string(right.Type())})
		}
		return &ast.PipelineExpression{Base: ast.Base{Loc: loc}, Left: left, Right: right}, nil
	}

	return &ast.BinaryExpression{
		Base:     ast.Base{Loc: loc},
		Operator: op.Literal,
		Left:     left,
		Right:    right,
	}, nil
}

// NewIdentifier builds an identifier node from a name token.
func NewIdentifier(tok lexer.Token) *ast.Identifier {
	return &ast.Identifier{Base: ast.Base{Loc: Location(tok, tok)}, Name: tok.Literal}
}

// NewLiteral builds a literal node from a STRING, TEMPLATE, NUMBER or
// BOOLEAN token.
func NewLiteral(tok lexer.Token) *ast.Literal {
	lit := &ast.Literal{Base: ast.Base{Loc: Location(tok, tok)}, Raw: tok.Literal}
	switch tok.Type {
	case lexer.STRING:
		lit.Kind = ast.StringLiteral
		lit.Value = lexer.Unquote(tok.Literal)
	case lexer.TEMPLATE:
		lit.Kind = ast.TemplateLiteral
		lit.Value = tok.Literal
	case lexer.NUMBER:
		lit.Kind = ast.NumberLiteral
		lit.Value = parseNumber(tok.Literal)
	case lexer.BOOLEAN:
		lit.Kind = ast.BooleanLiteral
		lit.Value = tok.Literal == "true"
	}
	return lit
}

// Location spans from the start of first to the end of last.
func Location(first, last lexer.Token) *ast.SourceLocation {
	return &ast.SourceLocation{
		Start: ast.Position{Line: first.Line, Column: first.Column},
		End:   ast.Position{Line: last.EndLine, Column: last.EndColumn},
	}
}

func span(first lexer.Token, last ast.Node) *ast.SourceLocation {
	return join(Location(first, first), last.Location())
}

func join(a, b *ast.SourceLocation) *ast.SourceLocation {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &ast.SourceLocation{Start: a.Start, End: b.End}
}
