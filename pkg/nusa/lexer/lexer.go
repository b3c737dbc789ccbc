// Package lexer turns NusaLang source text into tokens.
package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
)

// Lexer represents the lexical analyzer
type Lexer struct {
	input    string
	position int  // current position in input (points to current char)
	ch       byte // current char under examination
	line     int  // line of the current char
	column   int  // column of the current char (counted in runes)
	errors   []*perrors.NusaError
}

// mark records where a token starts.
type mark struct {
	offset, line, column int
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 1}
	if len(input) > 0 {
		l.ch = input[0]
	}
	return l
}

// Tokenize scans the whole source. Tokens come back in source order without
// a trailing EOF. Scanning continues past bad input so that every lexical
// error is reported; a non-empty error slice means the source is invalid.
func Tokenize(source string) ([]Token, []*perrors.NusaError) {
	l := New(source)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		if tok.Type == ILLEGAL {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, l.Errors()
}

// Errors returns the lexical errors collected so far.
func (l *Lexer) Errors() []*perrors.NusaError {
	return l.errors
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) readChar() {
	if l.atEnd() {
		return
	}
	prev := l.ch
	l.position++
	if l.atEnd() {
		l.ch = 0
	} else {
		l.ch = l.input[l.position]
	}

	switch {
	case prev == '\n':
		l.line++
		l.column = 1
	case l.atEnd() || !isContinuation(l.ch):
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.position+1 >= len(l.input) {
		return 0
	}
	return l.input[l.position+1]
}

func (l *Lexer) mark() mark {
	return mark{offset: l.position, line: l.line, column: l.column}
}

// token builds a token spanning from m to the current position.
func (l *Lexer) token(tokenType TokenType, m mark) Token {
	return Token{
		Type:      tokenType,
		Literal:   l.input[m.offset:l.position],
		Offset:    m.offset,
		End:       l.position,
		Line:      m.line,
		Column:    m.column,
		EndLine:   l.line,
		EndColumn: l.column,
	}
}

func (l *Lexer) errorAt(code string, m mark, data map[string]any) {
	l.errors = append(l.errors, perrors.NewWithPosition(code, m.line, m.column, m.offset, data))
}

// NextToken returns the next token. At the end of input it keeps returning
// EOF. Unusable input is reported and returned as ILLEGAL.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	m := l.mark()
	if l.atEnd() {
		return l.token(EOF, m)
	}

	switch l.ch {
	case '|':
		if l.peekChar() == '>' {
			return l.fixed(PIPELINE, 2, m)
		}
	case '=':
		if l.peekChar() == '>' {
			return l.fixed(ARROW, 2, m)
		}
		return l.fixed(ASSIGN, 1, m)
	case '?':
		switch l.peekChar() {
		case '.':
			return l.fixed(OPTIONAL_DOT, 2, m)
		case '[':
			return l.fixed(OPTIONAL_BRACKET, 2, m)
		}
	case '+':
		return l.fixed(PLUS, 1, m)
	case '-':
		return l.fixed(MINUS, 1, m)
	case '*':
		return l.fixed(ASTERISK, 1, m)
	case '/':
		return l.fixed(SLASH, 1, m)
	case '>':
		return l.fixed(GT, 1, m)
	case '<':
		return l.fixed(LT, 1, m)
	case '(':
		return l.fixed(LPAREN, 1, m)
	case ')':
		return l.fixed(RPAREN, 1, m)
	case '{':
		return l.fixed(LBRACE, 1, m)
	case '}':
		return l.fixed(RBRACE, 1, m)
	case '[':
		return l.fixed(LBRACKET, 1, m)
	case ']':
		return l.fixed(RBRACKET, 1, m)
	case ',':
		return l.fixed(COMMA, 1, m)
	case ';':
		return l.fixed(SEMICOLON, 1, m)
	case ':':
		return l.fixed(COLON, 1, m)
	case '.':
		return l.fixed(DOT, 1, m)
	case '@':
		return l.fixed(AT, 1, m)
	case '"', '\'':
		return l.readString(m)
	case '`':
		return l.readTemplate(m)
	default:
		if isLetter(l.ch) {
			l.readIdentifier()
			tok := l.token(IDENT, m)
			tok.Type = LookupIdent(tok.Literal)
			return tok
		}
		if isDigit(l.ch) {
			l.readNumber()
			return l.token(NUMBER, m)
		}
	}

	return l.readIllegal(m)
}

func (l *Lexer) fixed(tokenType TokenType, width int, m mark) Token {
	for range width {
		l.readChar()
	}
	return l.token(tokenType, m)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch {
		case isWhitespace(l.ch):
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			m := l.mark()
			l.readChar()
			l.readChar()
			for !l.atEnd() && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.atEnd() {
				l.errorAt("LEX-0004", m, nil)
				return
			}
			l.readChar()
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() {
	for !l.atEnd() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
}

// readNumber reads digits with an optional fractional part. A dot not
// followed by a digit is left for the DOT token.
func (l *Lexer) readNumber() {
	for !l.atEnd() && isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for !l.atEnd() && isDigit(l.ch) {
			l.readChar()
		}
	}
}

// readString reads a single or double quoted string. Strings end at the
// matching quote and may not span lines.
func (l *Lexer) readString(m mark) Token {
	quote := l.ch
	l.readChar()
	for !l.atEnd() && l.ch != quote && l.ch != '\n' {
		if l.ch == '\\' {
			l.readChar()
			if l.atEnd() {
				break
			}
		}
		l.readChar()
	}

	if l.atEnd() || l.ch != quote {
		l.errorAt("LEX-0002", m, map[string]any{"Quote": string(quote)})
		return l.token(ILLEGAL, m)
	}
	l.readChar()
	return l.token(STRING, m)
}

// readTemplate reads a backtick template literal, which may span lines.
func (l *Lexer) readTemplate(m mark) Token {
	l.readChar()
	for !l.atEnd() && l.ch != '`' {
		if l.ch == '\\' {
			l.readChar()
			if l.atEnd() {
				break
			}
		}
		l.readChar()
	}

	if l.atEnd() {
		l.errorAt("LEX-0003", m, nil)
		return l.token(ILLEGAL, m)
	}
	l.readChar()
	return l.token(TEMPLATE, m)
}

// readIllegal consumes a run of characters that cannot start any token and
// reports them as one error.
func (l *Lexer) readIllegal(m mark) Token {
	l.readChar()
	for !l.atEnd() && !l.canStartToken() {
		l.readChar()
	}
	tok := l.token(ILLEGAL, m)
	l.errorAt("LEX-0001", m, map[string]any{"Text": tok.Literal})
	return tok
}

func (l *Lexer) canStartToken() bool {
	switch {
	case isWhitespace(l.ch), isLetter(l.ch), isDigit(l.ch):
		return true
	case l.ch == '|':
		return l.peekChar() == '>'
	case l.ch == '?':
		return l.peekChar() == '.' || l.peekChar() == '['
	}
	return strings.IndexByte("=+-*/><(){}[],;:.@\"'`", l.ch) >= 0
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isContinuation(ch byte) bool {
	return ch&0xC0 == 0x80
}

// Unquote decodes a quoted string literal image (including its quotes) into
// its value. Unknown escapes yield the escaped character.
func Unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if strings.IndexByte(body, '\\') < 0 {
		return body
	}

	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'u':
			if i+4 < len(body) {
				if code, err := strconv.ParseUint(body[i+1:i+5], 16, 32); err == nil {
					sb.WriteRune(rune(code))
					i += 4
					continue
				}
			}
			sb.WriteByte('u')
		default:
			r, size := utf8.DecodeRuneInString(body[i:])
			sb.WriteRune(r)
			i += size - 1
		}
	}
	return sb.String()
}
