// Package cst holds the concrete syntax tree produced by the statement parser.
//
// A Node groups its children by role: sub-rules are filed under the rule
// name, tokens under their token type name. Roles live in a map, so the
// order in which roles are visited is unspecified. Only the elements inside a
// single role are guaranteed to be in source order; anything that needs the
// original token order must sort by offset (see package bridge).
package cst

import (
	"github.com/sambeau/nusa/pkg/nusa/lexer"
)

// Rule identifies the grammar rule that produced a node.
type Rule int

const (
	Program Rule = iota
	Statement
	ImportDeclaration
	ImportSpecifier
	PageDeclaration
	DataDeclaration
	FunctionDeclaration
	Parameter
	Annotation
	AnnotationArgument
	VariableDeclaration
	ReturnStatement
	BlockStatement
	ExpressionStatement
	Expression
	PipelineExpression
	BinaryExpression
	PrimaryExpression
	AwaitExpression
	ArrayLiteral
	ObjectLiteral
	ObjectProperty
	CallExpression
	Literal
	Identifier
	ParenthesizedExpression
	MemberSuffix
	CallSuffix
)

var ruleNames = [...]string{
	Program:                 "program",
	Statement:               "statement",
	ImportDeclaration:       "importDeclaration",
	ImportSpecifier:         "importSpecifier",
	PageDeclaration:         "pageDeclaration",
	DataDeclaration:         "dataDeclaration",
	FunctionDeclaration:     "functionDeclaration",
	Parameter:               "parameter",
	Annotation:              "annotation",
	AnnotationArgument:      "annotationArgument",
	VariableDeclaration:     "variableDeclaration",
	ReturnStatement:         "returnStatement",
	BlockStatement:          "blockStatement",
	ExpressionStatement:     "expressionStatement",
	Expression:              "expression",
	PipelineExpression:      "pipelineExpression",
	BinaryExpression:        "binaryExpression",
	PrimaryExpression:       "primaryExpression",
	AwaitExpression:         "awaitExpression",
	ArrayLiteral:            "arrayLiteral",
	ObjectLiteral:           "objectLiteral",
	ObjectProperty:          "objectProperty",
	CallExpression:          "callExpression",
	Literal:                 "literal",
	Identifier:              "identifier",
	ParenthesizedExpression: "parenthesizedExpression",
	MemberSuffix:            "memberSuffix",
	CallSuffix:              "callSuffix",
}

// String returns the rule name, which is also the role a node of this rule
// is filed under in its parent.
func (r Rule) String() string {
	if int(r) >= 0 && int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "unknown"
}

// Element is a child of a Node: either a *Node or a *Leaf.
type Element interface {
	element()
}

// Leaf wraps a single token.
type Leaf struct {
	Token lexer.Token
}

func (*Leaf) element() {}

// Node is an interior tree node. Start and End are the first and last tokens
// the rule consumed.
type Node struct {
	Rule     Rule
	Children map[string][]Element
	Start    lexer.Token
	End      lexer.Token
}

func (*Node) element() {}

// NewNode creates an empty node for rule.
func NewNode(rule Rule) *Node {
	return &Node{Rule: rule, Children: make(map[string][]Element)}
}

// AddToken files tok under its token type name.
func (n *Node) AddToken(tok lexer.Token) {
	role := tok.Type.String()
	n.Children[role] = append(n.Children[role], &Leaf{Token: tok})
}

// AddNode files child under its rule name.
func (n *Node) AddNode(child *Node) {
	role := child.Rule.String()
	n.Children[role] = append(n.Children[role], child)
}

// Tokens returns the tokens filed under role, in source order.
func (n *Node) Tokens(role lexer.TokenType) []lexer.Token {
	var out []lexer.Token
	for _, el := range n.Children[role.String()] {
		if leaf, ok := el.(*Leaf); ok {
			out = append(out, leaf.Token)
		}
	}
	return out
}

// Token returns the first token filed under role.
func (n *Node) Token(role lexer.TokenType) (lexer.Token, bool) {
	toks := n.Tokens(role)
	if len(toks) == 0 {
		return lexer.Token{}, false
	}
	return toks[0], true
}

// Has reports whether any token of the given type was filed.
func (n *Node) Has(role lexer.TokenType) bool {
	return len(n.Children[role.String()]) > 0
}

// Nodes returns the child nodes filed under the rule's role, in source order.
func (n *Node) Nodes(rule Rule) []*Node {
	var out []*Node
	for _, el := range n.Children[rule.String()] {
		if child, ok := el.(*Node); ok {
			out = append(out, child)
		}
	}
	return out
}

// Node returns the first child node of the given rule, or nil.
func (n *Node) Node(rule Rule) *Node {
	nodes := n.Nodes(rule)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Only returns the single child node when exactly one role holds exactly one
// node. Used for alternation rules such as statement and primaryExpression.
func (n *Node) Only() *Node {
	var found *Node
	for _, els := range n.Children {
		for _, el := range els {
			child, ok := el.(*Node)
			if !ok {
				continue
			}
			if found != nil {
				return nil
			}
			found = child
		}
	}
	return found
}
