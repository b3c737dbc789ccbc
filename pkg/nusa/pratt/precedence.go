package pratt

import "github.com/sambeau/nusa/pkg/nusa/lexer"

// Precedence levels for operators, lowest first.
type Precedence int

const (
	_ Precedence = iota
	LOWEST
	PIPELINE    // |>
	LOGICAL_OR  // reserved
	LOGICAL_AND // reserved
	EQUALITY    // reserved
	COMPARISON  // > <
	SUM         // + -
	PRODUCT     // * /
	UNARY       // await
	CALL        // f(x)
	MEMBER      // a.b a?.b a[i] a?[i]
)

// precedences maps tokens to their precedence
var precedences = map[lexer.TokenType]Precedence{
	lexer.PIPELINE:         PIPELINE,
	lexer.GT:               COMPARISON,
	lexer.LT:               COMPARISON,
	lexer.PLUS:             SUM,
	lexer.MINUS:            SUM,
	lexer.ASTERISK:         PRODUCT,
	lexer.SLASH:            PRODUCT,
	lexer.LPAREN:           CALL,
	lexer.DOT:              MEMBER,
	lexer.OPTIONAL_DOT:     MEMBER,
	lexer.LBRACKET:         MEMBER,
	lexer.OPTIONAL_BRACKET: MEMBER,
}

// Of returns the binding power of a token in infix position, or LOWEST for
// tokens that never continue an expression.
func Of(t lexer.TokenType) Precedence {
	if p, ok := precedences[t]; ok {
		return p
	}
	return LOWEST
}

// OfOperator returns the binding power of a binary operator as written in
// the AST ("+", "|>", ...). Unknown operators bind like LOWEST.
func OfOperator(op string) Precedence {
	switch op {
	case "|>":
		return PIPELINE
	case ">", "<":
		return COMPARISON
	case "+", "-":
		return SUM
	case "*", "/":
		return PRODUCT
	}
	return LOWEST
}

func isBinary(t lexer.TokenType) bool {
	switch Of(t) {
	case PIPELINE, COMPARISON, SUM, PRODUCT:
		return true
	}
	return false
}

func isPostfix(t lexer.TokenType) bool {
	switch t {
	case lexer.DOT, lexer.OPTIONAL_DOT, lexer.LBRACKET, lexer.OPTIONAL_BRACKET, lexer.LPAREN:
		return true
	}
	return false
}
