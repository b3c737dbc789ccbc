// Package ast defines the abstract syntax tree of NusaLang.
//
// The node set is closed: Node, Statement and Expression carry unexported
// marker methods, so only the types in this package implement them and a
// type switch over them can be exhaustive.
package ast

import (
	"bytes"
	"strconv"
	"strings"
)

// NodeType is the tag of a node, matching ESTree naming where one exists.
type NodeType string

const (
	ProgramNode             NodeType = "Program"
	ImportDeclarationNode   NodeType = "ImportDeclaration"
	ImportSpecifierNode     NodeType = "ImportSpecifier"
	FunctionDeclarationNode NodeType = "FunctionDeclaration"
	ParameterNode           NodeType = "Parameter"
	AnnotationNode          NodeType = "Annotation"
	VariableDeclarationNode NodeType = "VariableDeclaration"
	VariableDeclaratorNode  NodeType = "VariableDeclarator"
	ExpressionStatementNode NodeType = "ExpressionStatement"
	ReturnStatementNode     NodeType = "ReturnStatement"
	BlockStatementNode      NodeType = "BlockStatement"
	PageDeclarationNode     NodeType = "PageDeclaration"
	DataDeclarationNode     NodeType = "DataDeclaration"
	CallExpressionNode      NodeType = "CallExpression"
	MemberExpressionNode    NodeType = "MemberExpression"
	ArrayExpressionNode     NodeType = "ArrayExpression"
	ObjectExpressionNode    NodeType = "ObjectExpression"
	PropertyNode            NodeType = "Property"
	IdentifierNode          NodeType = "Identifier"
	LiteralNode             NodeType = "Literal"
	BinaryExpressionNode    NodeType = "BinaryExpression"
	PipelineExpressionNode  NodeType = "PipelineExpression"
	AwaitExpressionNode     NodeType = "AwaitExpression"
)

// Position is a 1-based line and column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// SourceLocation spans from the start of a node's first token to the end of
// its last token.
type SourceLocation struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Node represents any node in the AST
type Node interface {
	Type() NodeType
	Location() *SourceLocation
	String() string
	node()
}

// Statement represents statement and declaration nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Base is embedded in every node to carry its optional source location.
type Base struct {
	Loc *SourceLocation
}

// Location returns the node's source location, or nil.
func (b Base) Location() *SourceLocation { return b.Loc }

func str(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// Program represents the root node of every AST
type Program struct {
	Base
	Body []Statement
}

func (p *Program) node()          {}
func (p *Program) Type() NodeType { return ProgramNode }
func (p *Program) String() string {
	parts := make([]string, len(p.Body))
	for i, s := range p.Body {
		parts[i] = str(s)
	}
	return strings.Join(parts, "\n")
}

// ImportDeclaration represents `import { a, b } from "source"`
type ImportDeclaration struct {
	Base
	Specifiers []*ImportSpecifier
	Source     string
}

func (d *ImportDeclaration) node()          {}
func (d *ImportDeclaration) statementNode() {}
func (d *ImportDeclaration) Type() NodeType { return ImportDeclarationNode }
func (d *ImportDeclaration) String() string {
	names := make([]string, len(d.Specifiers))
	for i, s := range d.Specifiers {
		names[i] = s.String()
	}
	return "import { " + strings.Join(names, ", ") + " } from " + strconv.Quote(d.Source) + ";"
}

// ImportSpecifier is one imported name. Local equals Imported: aliasing is
// not part of the language.
type ImportSpecifier struct {
	Base
	Imported string
	Local    string
}

func (s *ImportSpecifier) node()          {}
func (s *ImportSpecifier) Type() NodeType { return ImportSpecifierNode }
func (s *ImportSpecifier) String() string { return s.Local }

// FunctionDeclaration represents `@ann async fn name(params) { ... }`
type FunctionDeclaration struct {
	Base
	Name        string
	Params      []*Parameter
	Body        *BlockStatement
	Async       bool
	Annotations []*Annotation
}

func (f *FunctionDeclaration) node()          {}
func (f *FunctionDeclaration) statementNode() {}
func (f *FunctionDeclaration) Type() NodeType { return FunctionDeclarationNode }
func (f *FunctionDeclaration) String() string {
	var out bytes.Buffer

	for _, a := range f.Annotations {
		out.WriteString(a.String())
		out.WriteString(" ")
	}
	if f.Async {
		out.WriteString("async ")
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	out.WriteString("fn " + f.Name + "(" + strings.Join(params, ", ") + ") ")
	if f.Body != nil {
		out.WriteString(f.Body.String())
	} else {
		out.WriteString("<nil>")
	}
	return out.String()
}

// Parameter is a function parameter with an optional type annotation. The
// annotation is kept for tooling; it has no effect on generated code.
type Parameter struct {
	Base
	Name           string
	TypeAnnotation string
}

func (p *Parameter) node()          {}
func (p *Parameter) Type() NodeType { return ParameterNode }
func (p *Parameter) String() string {
	if p.TypeAnnotation != "" {
		return p.Name + ": " + p.TypeAnnotation
	}
	return p.Name
}

// ArgKind is the kind of an annotation argument.
type ArgKind int

const (
	StringArg ArgKind = iota
	NumberArg
	IdentifierArg
)

// AnnotationArg is one literal argument of an annotation. Value is the
// decoded text; Raw is the source image.
type AnnotationArg struct {
	Kind  ArgKind
	Value string
	Raw   string
}

// Annotation represents `@name` or `@name("arg", 1, ident)`
type Annotation struct {
	Base
	Name string
	Args []AnnotationArg
}

func (a *Annotation) node()          {}
func (a *Annotation) Type() NodeType { return AnnotationNode }
func (a *Annotation) String() string {
	if len(a.Args) == 0 {
		return "@" + a.Name
	}
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.Text()
	}
	return "@" + a.Name + "(" + strings.Join(args, ", ") + ")"
}

// Text renders the argument as it appears in generated annotation comments:
// strings double-quoted, numbers and identifiers bare.
func (a AnnotationArg) Text() string {
	if a.Kind == StringArg {
		return strconv.Quote(a.Value)
	}
	return a.Value
}

// VariableDeclaration represents `let x = 1;` and `const y = 2;`
type VariableDeclaration struct {
	Base
	Kind         string // "let" or "const"
	Declarations []*VariableDeclarator
}

func (v *VariableDeclaration) node()          {}
func (v *VariableDeclaration) statementNode() {}
func (v *VariableDeclaration) Type() NodeType { return VariableDeclarationNode }
func (v *VariableDeclaration) String() string {
	decls := make([]string, len(v.Declarations))
	for i, d := range v.Declarations {
		decls[i] = d.String()
	}
	return v.Kind + " " + strings.Join(decls, ", ") + ";"
}

// VariableDeclarator is one `name = init` pair.
type VariableDeclarator struct {
	Base
	ID   *Identifier
	Init Expression
}

func (d *VariableDeclarator) node()          {}
func (d *VariableDeclarator) Type() NodeType { return VariableDeclaratorNode }
func (d *VariableDeclarator) String() string {
	name := "<nil>"
	if d.ID != nil {
		name = d.ID.Name
	}
	return name + " = " + str(d.Init)
}

// ExpressionStatement wraps an expression used as a statement.
type ExpressionStatement struct {
	Base
	Expression Expression
}

func (s *ExpressionStatement) node()          {}
func (s *ExpressionStatement) statementNode() {}
func (s *ExpressionStatement) Type() NodeType { return ExpressionStatementNode }
func (s *ExpressionStatement) String() string { return str(s.Expression) + ";" }

// ReturnStatement represents `return` with an optional argument.
type ReturnStatement struct {
	Base
	Argument Expression
}

func (r *ReturnStatement) node()          {}
func (r *ReturnStatement) statementNode() {}
func (r *ReturnStatement) Type() NodeType { return ReturnStatementNode }
func (r *ReturnStatement) String() string {
	if r.Argument == nil {
		return "return;"
	}
	return "return " + r.Argument.String() + ";"
}

// BlockStatement is a braced statement list.
type BlockStatement struct {
	Base
	Body []Statement
}

func (b *BlockStatement) node()          {}
func (b *BlockStatement) statementNode() {}
func (b *BlockStatement) Type() NodeType { return BlockStatementNode }
func (b *BlockStatement) String() string {
	if len(b.Body) == 0 {
		return "{}"
	}
	parts := make([]string, len(b.Body))
	for i, s := range b.Body {
		parts[i] = str(s)
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// PageDeclaration represents `page "/path" { ... }`
type PageDeclaration struct {
	Base
	Path string
	Body *BlockStatement
}

func (p *PageDeclaration) node()          {}
func (p *PageDeclaration) statementNode() {}
func (p *PageDeclaration) Type() NodeType { return PageDeclarationNode }
func (p *PageDeclaration) String() string {
	body := "<nil>"
	if p.Body != nil {
		body = p.Body.String()
	}
	return "page " + strconv.Quote(p.Path) + " " + body
}

// DataDeclaration represents `data name = init;`
type DataDeclaration struct {
	Base
	ID   *Identifier
	Init Expression
}

func (d *DataDeclaration) node()          {}
func (d *DataDeclaration) statementNode() {}
func (d *DataDeclaration) Type() NodeType { return DataDeclarationNode }
func (d *DataDeclaration) String() string {
	name := "<nil>"
	if d.ID != nil {
		name = d.ID.Name
	}
	return "data " + name + " = " + str(d.Init) + ";"
}

// CallExpression represents `callee(args)`
type CallExpression struct {
	Base
	Callee    Expression
	Arguments []Expression
}

func (c *CallExpression) node()           {}
func (c *CallExpression) expressionNode() {}
func (c *CallExpression) Type() NodeType  { return CallExpressionNode }
func (c *CallExpression) String() string {
	args := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		args[i] = str(a)
	}
	return str(c.Callee) + "(" + strings.Join(args, ", ") + ")"
}

// MemberExpression represents `obj.prop`, `obj[expr]` and their optional
// forms `obj?.prop`, `obj?[expr]`. Property is an Identifier unless Computed.
type MemberExpression struct {
	Base
	Object   Expression
	Property Expression
	Computed bool
	Optional bool
}

func (m *MemberExpression) node()           {}
func (m *MemberExpression) expressionNode() {}
func (m *MemberExpression) Type() NodeType  { return MemberExpressionNode }
func (m *MemberExpression) String() string {
	switch {
	case m.Computed && m.Optional:
		return str(m.Object) + "?[" + str(m.Property) + "]"
	case m.Computed:
		return str(m.Object) + "[" + str(m.Property) + "]"
	case m.Optional:
		return str(m.Object) + "?." + str(m.Property)
	}
	return str(m.Object) + "." + str(m.Property)
}

// ArrayExpression represents `[a, b]`
type ArrayExpression struct {
	Base
	Elements []Expression
}

func (a *ArrayExpression) node()           {}
func (a *ArrayExpression) expressionNode() {}
func (a *ArrayExpression) Type() NodeType  { return ArrayExpressionNode }
func (a *ArrayExpression) String() string {
	elems := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elems[i] = str(e)
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// ObjectExpression represents `{ key: value }`. Properties keep source order.
type ObjectExpression struct {
	Base
	Properties []*Property
}

func (o *ObjectExpression) node()           {}
func (o *ObjectExpression) expressionNode() {}
func (o *ObjectExpression) Type() NodeType  { return ObjectExpressionNode }
func (o *ObjectExpression) String() string {
	if len(o.Properties) == 0 {
		return "{}"
	}
	props := make([]string, len(o.Properties))
	for i, p := range o.Properties {
		props[i] = p.String()
	}
	return "{ " + strings.Join(props, ", ") + " }"
}

// Property is one `key: value` pair of an object literal.
type Property struct {
	Base
	Key   string
	Value Expression
}

func (p *Property) node()          {}
func (p *Property) Type() NodeType { return PropertyNode }
func (p *Property) String() string { return p.Key + ": " + str(p.Value) }

// Identifier is a bare name.
type Identifier struct {
	Base
	Name string
}

func (i *Identifier) node()           {}
func (i *Identifier) expressionNode() {}
func (i *Identifier) Type() NodeType  { return IdentifierNode }
func (i *Identifier) String() string  { return i.Name }

// LiteralKind distinguishes literal values.
type LiteralKind int

const (
	StringLiteral LiteralKind = iota
	NumberLiteral
	BooleanLiteral
	NullLiteral
	TemplateLiteral
)

// Literal is a constant. Value holds a string (decoded for StringLiteral, raw
// source for TemplateLiteral), a float64, a bool, or nil. Raw is the source
// image and is what numbers and templates are emitted as.
type Literal struct {
	Base
	Kind  LiteralKind
	Value any
	Raw   string
}

func (l *Literal) node()           {}
func (l *Literal) expressionNode() {}
func (l *Literal) Type() NodeType  { return LiteralNode }
func (l *Literal) String() string {
	if l.Raw != "" {
		return l.Raw
	}
	switch v := l.Value.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return "null"
}

// BinaryExpression represents `left op right` for + - * / > <
type BinaryExpression struct {
	Base
	Operator string
	Left     Expression
	Right    Expression
}

func (b *BinaryExpression) node()           {}
func (b *BinaryExpression) expressionNode() {}
func (b *BinaryExpression) Type() NodeType  { return BinaryExpressionNode }
func (b *BinaryExpression) String() string {
	return "(" + str(b.Left) + " " + b.Operator + " " + str(b.Right) + ")"
}

// PipelineExpression represents `left |> right`; Right is an Identifier or a
// CallExpression.
type PipelineExpression struct {
	Base
	Left  Expression
	Right Expression
}

func (p *PipelineExpression) node()           {}
func (p *PipelineExpression) expressionNode() {}
func (p *PipelineExpression) Type() NodeType  { return PipelineExpressionNode }
func (p *PipelineExpression) String() string {
	return "(" + str(p.Left) + " |> " + str(p.Right) + ")"
}

// AwaitExpression represents `await argument`
type AwaitExpression struct {
	Base
	Argument Expression
}

func (a *AwaitExpression) node()           {}
func (a *AwaitExpression) expressionNode() {}
func (a *AwaitExpression) Type() NodeType  { return AwaitExpressionNode }
func (a *AwaitExpression) String() string {
	return "(await " + str(a.Argument) + ")"
}
