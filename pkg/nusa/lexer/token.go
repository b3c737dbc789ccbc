package lexer

import (
	"fmt"
	"sort"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT    // add, foobar, x, y, ...
	NUMBER   // 42, 3.14
	STRING   // "foo" or 'foo'
	TEMPLATE // `hello ${name}`
	BOOLEAN  // true, false

	// Operators
	PIPELINE         // |>
	ARROW            // =>
	OPTIONAL_DOT     // ?.
	OPTIONAL_BRACKET // ?[
	ASSIGN           // =
	PLUS             // +
	MINUS            // -
	ASTERISK         // *
	SLASH            // /
	GT               // >
	LT               // <

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	DOT       // .
	AT        // @

	// Keywords
	FN     // "fn"
	LET    // "let"
	CONST  // "const"
	IMPORT // "import"
	FROM   // "from"
	RETURN // "return"
	ASYNC  // "async"
	AWAIT  // "await"
	PAGE   // "page"
	UI     // "ui"
	DATA   // "data"
)

var tokenNames = map[TokenType]string{
	ILLEGAL:          "ILLEGAL",
	EOF:              "EOF",
	IDENT:            "IDENT",
	NUMBER:           "NUMBER",
	STRING:           "STRING",
	TEMPLATE:         "TEMPLATE",
	BOOLEAN:          "BOOLEAN",
	PIPELINE:         "PIPELINE",
	ARROW:            "ARROW",
	OPTIONAL_DOT:     "OPTIONAL_DOT",
	OPTIONAL_BRACKET: "OPTIONAL_BRACKET",
	ASSIGN:           "ASSIGN",
	PLUS:             "PLUS",
	MINUS:            "MINUS",
	ASTERISK:         "ASTERISK",
	SLASH:            "SLASH",
	GT:               "GT",
	LT:               "LT",
	LPAREN:           "LPAREN",
	RPAREN:           "RPAREN",
	LBRACE:           "LBRACE",
	RBRACE:           "RBRACE",
	LBRACKET:         "LBRACKET",
	RBRACKET:         "RBRACKET",
	COMMA:            "COMMA",
	SEMICOLON:        "SEMICOLON",
	COLON:            "COLON",
	DOT:              "DOT",
	AT:               "AT",
	FN:               "FN",
	LET:              "LET",
	CONST:            "CONST",
	IMPORT:           "IMPORT",
	FROM:             "FROM",
	RETURN:           "RETURN",
	ASYNC:            "ASYNC",
	AWAIT:            "AWAIT",
	PAGE:             "PAGE",
	UI:               "UI",
	DATA:             "DATA",
}

// symbols holds the fixed source text of operator and delimiter tokens.
var symbols = map[TokenType]string{
	PIPELINE:         "|>",
	ARROW:            "=>",
	OPTIONAL_DOT:     "?.",
	OPTIONAL_BRACKET: "?[",
	ASSIGN:           "=",
	PLUS:             "+",
	MINUS:            "-",
	ASTERISK:         "*",
	SLASH:            "/",
	GT:               ">",
	LT:               "<",
	LPAREN:           "(",
	RPAREN:           ")",
	LBRACE:           "{",
	RBRACE:           "}",
	LBRACKET:         "[",
	RBRACKET:         "]",
	COMMA:            ",",
	SEMICOLON:        ";",
	COLON:            ":",
	DOT:              ".",
	AT:               "@",
}

// String returns the name of the token type. The name doubles as the role
// under which the statement parser files tokens of this type.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return "UNKNOWN"
}

// Describe returns a human-readable rendering for error messages.
func (tt TokenType) Describe() string {
	switch tt {
	case EOF:
		return "end of input"
	case IDENT:
		return "identifier"
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case TEMPLATE:
		return "template literal"
	case BOOLEAN:
		return "boolean"
	}
	if sym, ok := symbols[tt]; ok {
		return "'" + sym + "'"
	}
	for word, kw := range keywords {
		if kw == tt {
			return "'" + word + "'"
		}
	}
	return tt.String()
}

// IsKeyword reports whether the token type is a reserved word.
func (tt TokenType) IsKeyword() bool {
	return tt >= FN && tt <= DATA
}

// Token is a single lexical unit. Literal is the exact source image; Offset
// and End are byte offsets (End is exclusive). Lines and columns are 1-based.
type Token struct {
	Type      TokenType
	Literal   string
	Offset    int
	End       int
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// Keywords map for identifying language keywords
var keywords = map[string]TokenType{
	"fn":     FN,
	"let":    LET,
	"const":  CONST,
	"import": IMPORT,
	"from":   FROM,
	"return": RETURN,
	"async":  ASYNC,
	"await":  AWAIT,
	"page":   PAGE,
	"ui":     UI,
	"data":   DATA,
	"true":   BOOLEAN,
	"false":  BOOLEAN,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Keywords returns the reserved words in sorted order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for word, tt := range keywords {
		if tt != BOOLEAN {
			words = append(words, word)
		}
	}
	sort.Strings(words)
	return words
}
