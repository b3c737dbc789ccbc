// Package codegen renders the AST as JavaScript.
//
// Rendering is a pure function of the tree: every helper takes the current
// indentation depth as a parameter and nothing is kept between calls, so a
// Generator can be shared by concurrent compilations.
package codegen

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/sambeau/nusa/pkg/nusa/ast"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/format"
	"github.com/sambeau/nusa/pkg/nusa/logger"
	"github.com/sambeau/nusa/pkg/nusa/pratt"
)

const indentUnit = "  "

// Generator renders programs and passes the result through a formatter.
type Generator struct {
	formatter format.Formatter
	options   format.Options
	logger    *logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithFormatter sets the formatter and its options. A nil formatter leaves
// the rendered code as is.
func WithFormatter(f format.Formatter, opts format.Options) Option {
	return func(g *Generator) {
		g.formatter = f
		g.options = opts
	}
}

// WithLogger sets where formatter warnings go.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New creates a generator using the builtin formatter with default options.
func New(opts ...Option) *Generator {
	g := &Generator{formatter: format.Builtin{}, options: format.DefaultOptions()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders program and formats it. A formatter failure is not
// fatal: it is logged and the unformatted code is returned.
func (g *Generator) Generate(program *ast.Program) (string, error) {
	code, err := Render(program)
	if err != nil {
		return "", err
	}
	if g.formatter == nil {
		return code, nil
	}

	formatted, err := g.formatter.Format(code, g.options)
	if err != nil {
		g.logger.Warnf("formatting failed, using unformatted output: %v", err)
		return code, nil
	}
	return formatted, nil
}

// Render returns the unformatted JavaScript for program.
func Render(program *ast.Program) (string, error) {
	if program == nil {
		return "", unknown(nil)
	}
	lines := make([]string, 0, len(program.Body))
	for _, stmt := range program.Body {
		s, err := statement(stmt, 0)
		if err != nil {
			return "", err
		}
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n"), nil
}

// Expression returns the JavaScript for a single expression.
func Expression(expr ast.Expression) (string, error) {
	return expression(expr)
}

func unknown(n any) error {
	data := map[string]any{"Kind": fmt.Sprintf("%T", n)}
	if isNil(n) {
		return perrors.New("CODEGEN-0001", data)
	}
	if node, ok := n.(ast.Node); ok {
		if loc := node.Location(); loc != nil {
			return perrors.NewWithPosition("CODEGEN-0001", loc.Start.Line, loc.Start.Column, -1, data)
		}
	}
	return perrors.New("CODEGEN-0001", data)
}

// isNil reports whether n is nil or a nil pointer held in an interface.
func isNil(n any) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func indent(depth int) string {
	return strings.Repeat(indentUnit, depth)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// statement renders s. The first line carries no indentation; later lines
// are indented for depth.
func statement(s ast.Statement, depth int) (string, error) {
	if isNil(s) {
		return "", unknown(s)
	}
	switch s := s.(type) {
	case *ast.ImportDeclaration:
		return importDeclaration(s)
	case *ast.FunctionDeclaration:
		return functionDeclaration(s, depth)
	case *ast.VariableDeclaration:
		return variableDeclaration(s)
	case *ast.DataDeclaration:
		if s.ID == nil {
			return "", unknown(s)
		}
		init, err := operand(s.Init, pratt.UNARY, false)
		if err != nil {
			return "", err
		}
		return "const " + s.ID.Name + " = await " + init + ";", nil
	case *ast.PageDeclaration:
		body, err := block(s.Body, depth)
		if err != nil {
			return "", err
		}
		return "page(" + quote(s.Path) + ", async () => " + body + ");", nil
	case *ast.ExpressionStatement:
		expr, err := expression(s.Expression)
		if err != nil {
			return "", err
		}
		// A statement starting with '{' would be read as a block.
		if strings.HasPrefix(expr, "{") {
			expr = "(" + expr + ")"
		}
		return expr + ";", nil
	case *ast.ReturnStatement:
		if s.Argument == nil {
			return "return;", nil
		}
		arg, err := expression(s.Argument)
		if err != nil {
			return "", err
		}
		return "return " + arg + ";", nil
	case *ast.BlockStatement:
		return block(s, depth)
	}
	return "", unknown(s)
}

func importDeclaration(d *ast.ImportDeclaration) (string, error) {
	names := make([]string, len(d.Specifiers))
	for i, spec := range d.Specifiers {
		if spec == nil {
			return "", unknown(d)
		}
		names[i] = spec.Local
	}
	return "import { " + strings.Join(names, ", ") + " } from " + quote(d.Source) + ";", nil
}

func functionDeclaration(f *ast.FunctionDeclaration, depth int) (string, error) {
	var out strings.Builder
	pad := indent(depth)

	for _, ann := range f.Annotations {
		if ann == nil {
			return "", unknown(f)
		}
		out.WriteString("// " + ann.String() + "\n" + pad)
	}
	if f.Async {
		out.WriteString("async ")
	}

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		if p == nil {
			return "", unknown(f)
		}
		params[i] = p.Name
	}
	out.WriteString("function " + f.Name + "(" + strings.Join(params, ", ") + ") ")

	body, err := block(f.Body, depth)
	if err != nil {
		return "", err
	}
	out.WriteString(body)

	if path, ok := routePath(f); ok {
		out.WriteString("\n\n" + pad + "// Auto-register route\n")
		out.WriteString(pad + "if (typeof router !== 'undefined') {\n")
		out.WriteString(pad + indentUnit + "router.registerPage(" + quote(path) + ", " + f.Name + ");\n")
		out.WriteString(pad + "}")
	}
	return out.String(), nil
}

// routePath returns the path of the first @route annotation whose first
// argument is a string.
func routePath(f *ast.FunctionDeclaration) (string, bool) {
	for _, ann := range f.Annotations {
		if ann.Name == "route" && len(ann.Args) > 0 && ann.Args[0].Kind == ast.StringArg {
			return ann.Args[0].Value, true
		}
	}
	return "", false
}

func variableDeclaration(v *ast.VariableDeclaration) (string, error) {
	decls := make([]string, len(v.Declarations))
	for i, d := range v.Declarations {
		if d == nil || d.ID == nil {
			return "", unknown(v)
		}
		init, err := expression(d.Init)
		if err != nil {
			return "", err
		}
		decls[i] = d.ID.Name + " = " + init
	}
	return v.Kind + " " + strings.Join(decls, ", ") + ";", nil
}

func block(b *ast.BlockStatement, depth int) (string, error) {
	if b == nil || len(b.Body) == 0 {
		return "{}", nil
	}

	var out strings.Builder
	out.WriteString("{\n")
	inner := indent(depth + 1)
	for _, stmt := range b.Body {
		s, err := statement(stmt, depth+1)
		if err != nil {
			return "", err
		}
		out.WriteString(inner + s + "\n")
	}
	out.WriteString(indent(depth) + "}")
	return out.String(), nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func expression(e ast.Expression) (string, error) {
	if isNil(e) {
		return "", unknown(e)
	}
	switch e := e.(type) {
	case *ast.Identifier:
		return e.Name, nil
	case *ast.Literal:
		return literal(e), nil
	case *ast.CallExpression:
		return call(e.Callee, nil, e.Arguments)
	case *ast.MemberExpression:
		return member(e)
	case *ast.ArrayExpression:
		elems, err := list(e.Elements)
		if err != nil {
			return "", err
		}
		return "[" + elems + "]", nil
	case *ast.ObjectExpression:
		return object(e)
	case *ast.BinaryExpression:
		return binary(e)
	case *ast.PipelineExpression:
		return pipeline(e)
	case *ast.AwaitExpression:
		arg, err := operand(e.Argument, pratt.UNARY, false)
		if err != nil {
			return "", err
		}
		return "await " + arg, nil
	}
	return "", unknown(e)
}

// precedence is how tightly the rendered form of e binds. Pipelines render
// as calls.
func precedence(e ast.Expression) pratt.Precedence {
	switch e := e.(type) {
	case *ast.BinaryExpression:
		return pratt.OfOperator(e.Operator)
	case *ast.AwaitExpression:
		return pratt.UNARY
	}
	return pratt.MEMBER
}

// operand renders e as an operand of an operator at parent, adding
// parentheses when e binds more loosely. Right operands of left-associative
// operators also need them at equal precedence.
func operand(e ast.Expression, parent pratt.Precedence, right bool) (string, error) {
	s, err := expression(e)
	if err != nil {
		return "", err
	}
	prec := precedence(e)
	if prec < parent || (right && prec == parent) {
		return "(" + s + ")", nil
	}
	return s, nil
}

func binary(b *ast.BinaryExpression) (string, error) {
	prec := pratt.OfOperator(b.Operator)
	left, err := operand(b.Left, prec, false)
	if err != nil {
		return "", err
	}
	right, err := operand(b.Right, prec, true)
	if err != nil {
		return "", err
	}
	return left + " " + b.Operator + " " + right, nil
}

// pipeline desugars `x |> f` to `f(x)` and `x |> f(a)` to `f(x, a)`.
func pipeline(p *ast.PipelineExpression) (string, error) {
	switch right := p.Right.(type) {
	case *ast.Identifier:
		return call(right, p.Left, nil)
	case *ast.CallExpression:
		if right == nil {
			return "", unknown(right)
		}
		return call(right.Callee, p.Left, right.Arguments)
	}

	kind := "<nil>"
	if !isNil(p.Right) {
		kind = string(p.Right.Type())
	}
	if loc := p.Location(); loc != nil {
		return "", perrors.NewWithPosition("CODEGEN-0002", loc.Start.Line, loc.Start.Column, -1, map[string]any{"Kind": kind})
	}
	return "", perrors.New("CODEGEN-0002", map[string]any{"Kind": kind})
}

// call renders callee(first, args...). first may be nil.
func call(callee ast.Expression, first ast.Expression, args []ast.Expression) (string, error) {
	fn, err := operand(callee, pratt.MEMBER, false)
	if err != nil {
		return "", err
	}
	all := args
	if first != nil {
		all = append([]ast.Expression{first}, args...)
	}
	rendered, err := list(all)
	if err != nil {
		return "", err
	}
	return fn + "(" + rendered + ")", nil
}

func member(m *ast.MemberExpression) (string, error) {
	obj, err := operand(m.Object, pratt.MEMBER, false)
	if err != nil {
		return "", err
	}

	if m.Computed {
		prop, err := expression(m.Property)
		if err != nil {
			return "", err
		}
		if m.Optional {
			return obj + "?.[" + prop + "]", nil
		}
		return obj + "[" + prop + "]", nil
	}

	name, ok := m.Property.(*ast.Identifier)
	if !ok || name == nil {
		return "", unknown(m.Property)
	}
	if m.Optional {
		return obj + "?." + name.Name, nil
	}
	// The dot after an integer would be read as a decimal point.
	if isInteger(m.Object) {
		obj = "(" + obj + ")"
	}
	return obj + "." + name.Name, nil
}

func isInteger(e ast.Expression) bool {
	l, ok := e.(*ast.Literal)
	if !ok || l.Kind != ast.NumberLiteral {
		return false
	}
	s := literal(l)
	return s != "" && strings.Trim(s, "0123456789_") == ""
}

func object(o *ast.ObjectExpression) (string, error) {
	if len(o.Properties) == 0 {
		return "{}", nil
	}
	props := make([]string, len(o.Properties))
	for i, p := range o.Properties {
		if p == nil {
			return "", unknown(o)
		}
		value, err := expression(p.Value)
		if err != nil {
			return "", err
		}
		props[i] = p.Key + ": " + value
	}
	return "{ " + strings.Join(props, ", ") + " }", nil
}

func list(exprs []ast.Expression) (string, error) {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		s, err := expression(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func literal(l *ast.Literal) string {
	switch l.Kind {
	case ast.StringLiteral:
		if s, ok := l.Value.(string); ok {
			return quote(s)
		}
		return l.Raw
	case ast.TemplateLiteral:
		if l.Raw != "" {
			return l.Raw
		}
		s, _ := l.Value.(string)
		return s
	case ast.NumberLiteral:
		if l.Raw != "" {
			return l.Raw
		}
		if f, ok := l.Value.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return "0"
	case ast.BooleanLiteral:
		if b, ok := l.Value.(bool); ok {
			return strconv.FormatBool(b)
		}
		return l.Raw
	}
	return "null"
}

// quote renders s as a single-quoted JavaScript string.
func quote(s string) string {
	var out strings.Builder
	out.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			out.WriteString(`\'`)
		case '\\':
			out.WriteString(`\\`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		case '\u2028':
			out.WriteString(`\u2028`)
		case '\u2029':
			out.WriteString(`\u2029`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&out, `\x%02x`, r)
			} else {
				out.WriteRune(r)
			}
		}
	}
	out.WriteByte('\'')
	return out.String()
}
