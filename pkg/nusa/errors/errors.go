// Package errors provides structured error types for the NusaLang compiler.
//
// Every phase of the compiler (tokenizing, statement parsing, bridging,
// expression parsing, code generation) reports problems as NusaError values
// built from a catalog of templated messages. A List aggregates the errors of
// one compile and is what the compiler façade hands back to callers.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors by compiler phase.
type ErrorClass string

const (
	ClassLex        ErrorClass = "lex"        // Tokenizer errors
	ClassParse      ErrorClass = "parse"      // Statement/declaration parser errors
	ClassBridge     ErrorClass = "bridge"     // Tree-to-token reconstruction errors
	ClassExpression ErrorClass = "expression" // Pratt parser errors
	ClassCodegen    ErrorClass = "codegen"    // Code generation errors
	ClassFormat     ErrorClass = "format"     // Formatter errors (never fatal)
)

// NusaError represents any error produced while compiling a NusaLang source.
type NusaError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Line    int            `json:"line"`   // 1-based line (0 if unknown)
	Column  int            `json:"column"` // 1-based column (0 if unknown)
	Offset  int            `json:"offset"` // byte offset into the source (-1 if unknown)
	File    string         `json:"file,omitempty"`
	Tokens  []string       `json:"tokens,omitempty"` // token images of the expression being parsed
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *NusaError) Error() string {
	return e.String()
}

// String returns a single-line location prefix, the message and any hints.
func (e *NusaError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	if len(e.Tokens) > 0 {
		sb.WriteString(" [tokens: ")
		sb.WriteString(strings.Join(e.Tokens, " "))
		sb.WriteString("]")
	}

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *NusaError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassLex:
		sb.WriteString("Syntax error")
	case ClassParse, ClassBridge, ClassExpression:
		sb.WriteString("Parser error")
	case ClassCodegen:
		sb.WriteString("Code generation error")
	default:
		sb.WriteString("Error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	if len(e.Tokens) > 0 {
		sb.WriteString("\n  while parsing: ")
		sb.WriteString(strings.Join(e.Tokens, " "))
	}

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *NusaError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *NusaError) WithFile(file string) *NusaError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line, column and offset set.
func (e *NusaError) WithPosition(line, column, offset int) *NusaError {
	copy := *e
	copy.Line = line
	copy.Column = column
	copy.Offset = offset
	return &copy
}

// WithTokens returns a copy of the error carrying the token images of the
// expression that was being parsed.
func (e *NusaError) WithTokens(images []string) *NusaError {
	copy := *e
	copy.Tokens = images
	return &copy
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string   // Message template with {{.placeholders}}
	Hints    []string // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Tokenizer (LEX-0xxx)
	"LEX-0001": {
		Class:    ClassLex,
		Template: "unexpected character(s) '{{.Text}}'",
	},
	"LEX-0002": {
		Class:    ClassLex,
		Template: "unterminated string literal",
		Hints:    []string{"close the string with {{.Quote}} before the end of the line"},
	},
	"LEX-0003": {
		Class:    ClassLex,
		Template: "unterminated template literal",
		Hints:    []string{"close the template with a backtick"},
	},
	"LEX-0004": {
		Class:    ClassLex,
		Template: "unterminated block comment",
		Hints:    []string{"close the comment with */"},
	},

	// Statement/declaration parser (PARSE-0xxx)
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected '{{.Token}}', expected an expression",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unexpected end of input, expected {{.Expected}}",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "annotation arguments must be strings, numbers or identifiers, got '{{.Got}}'",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "annotations can only precede a function declaration, got '{{.Got}}'",
		Hints:    []string{"@{{.Name}} fn handler() { ... }"},
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "unexpected identifier '{{.Got}}' after '{{.Word}}'",
		Hints:    []string{"did you mean '{{.Suggestion}}'?"},
	},
	"PARSE-0007": {
		Class:    ClassParse,
		Template: "unexpected identifier '{{.Got}}' after '{{.Word}}'",
		Hints:    []string{"separate statements with ';' or a new line"},
	},

	// Token-order bridge (BRIDGE-0xxx)
	"BRIDGE-0001": {
		Class:    ClassBridge,
		Template: "no tokens found in {{.Rule}} node",
	},
	"BRIDGE-0002": {
		Class:    ClassBridge,
		Template: "unrecognized element in {{.Rule}} node under role '{{.Role}}'",
	},

	// Expression parser (EXPR-0xxx)
	"EXPR-0001": {
		Class:    ClassExpression,
		Template: "unexpected token {{.Kind}} '{{.Literal}}'",
	},
	"EXPR-0002": {
		Class:    ClassExpression,
		Template: "unexpected end of input, expected {{.Expected}}",
	},
	"EXPR-0003": {
		Class:    ClassExpression,
		Template: "pipeline target must be an identifier or a call, got {{.Kind}}",
		Hints:    []string{"value |> transform", "value |> transform(arg)"},
	},
	"EXPR-0004": {
		Class:    ClassExpression,
		Template: "unexpected {{.Kind}} '{{.Literal}}' after expression",
	},
	"EXPR-0005": {
		Class:    ClassExpression,
		Template: "expected {{.Expected}}, got {{.Kind}} '{{.Literal}}'",
	},
	"EXPR-0006": {
		Class:    ClassExpression,
		Template: "cannot combine {{.Operands}} operands with {{.Operators}} operators",
	},

	// Code generation (CODEGEN-0xxx)
	"CODEGEN-0001": {
		Class:    ClassCodegen,
		Template: "unknown node kind {{.Kind}}",
	},
	"CODEGEN-0002": {
		Class:    ClassCodegen,
		Template: "invalid pipeline target {{.Kind}}",
		Hints:    []string{"the right side of |> must be an identifier or a call"},
	},

	// Formatter (FORMAT-0xxx)
	"FORMAT-0001": {
		Class:    ClassFormat,
		Template: "formatter failed: {{.Reason}}",
	},
}

// New creates a NusaError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *NusaError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &NusaError{
			Class:   ClassParse,
			Code:    code,
			Message: msg,
			Offset:  -1,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &NusaError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Offset:  -1,
		Data:    data,
	}
}

// NewWithPosition creates a NusaError with position information.
func NewWithPosition(code string, line, column, offset int, data map[string]any) *NusaError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	err.Offset = offset
	return err
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return strings.ReplaceAll(buf.String(), "<no value>", "")
}

// List is the ordered set of errors reported by one compile.
type List []*NusaError

// Error joins every error on its own line.
func (l List) Error() string {
	return strings.Join(l.Messages(), "\n")
}

// Messages returns the human-readable message of every error.
func (l List) Messages() []string {
	msgs := make([]string, 0, len(l))
	for _, e := range l {
		msgs = append(msgs, e.String())
	}
	return msgs
}

// WithFile returns a copy of the list with the file path set on every error.
func (l List) WithFile(file string) List {
	out := make(List, len(l))
	for i, e := range l {
		out[i] = e.WithFile(file)
	}
	return out
}

// Err returns the list as an error, or nil when it is empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// FindClosestMatch finds the closest candidate to input.
// Returns "" on an exact match or when nothing is close enough.
// Short words (1-3) allow 1 edit, medium words (4-6) 2, longer words 3.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}
	return bestMatch
}
