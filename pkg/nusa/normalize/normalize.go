// Package normalize converts the concrete tree from package parser into the
// AST. Names, paths and specifiers are copied straight off tokens; every
// expression goes through the token-order bridge and the Pratt parser.
package normalize

import (
	"errors"
	"sort"

	"github.com/sambeau/nusa/pkg/nusa/ast"
	"github.com/sambeau/nusa/pkg/nusa/bridge"
	"github.com/sambeau/nusa/pkg/nusa/cst"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
	"github.com/sambeau/nusa/pkg/nusa/pratt"
)

type normalizer struct {
	errors []*perrors.NusaError
}

// Program converts a program tree. Expressions that fail to parse are
// reported and their statements dropped, so every error in the tree is
// collected in one pass.
func Program(tree *cst.Node) (*ast.Program, []*perrors.NusaError) {
	n := &normalizer{}
	program := &ast.Program{Body: []ast.Statement{}}
	if tree == nil {
		return program, nil
	}
	program.Loc = location(tree)
	program.Body = n.statements(tree.Nodes(cst.Statement))
	return program, n.errors
}

func (n *normalizer) fail(err error) {
	var nerr *perrors.NusaError
	if errors.As(err, &nerr) {
		n.errors = append(n.errors, nerr)
		return
	}
	n.errors = append(n.errors, perrors.New("EXPR-0000", map[string]any{"message": err.Error()}))
}

func (n *normalizer) statements(nodes []*cst.Node) []ast.Statement {
	out := []ast.Statement{}
	for _, node := range nodes {
		if stmt := n.statement(node); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (n *normalizer) statement(node *cst.Node) ast.Statement {
	inner := node.Only()
	if inner == nil {
		return nil
	}

	switch inner.Rule {
	case cst.ImportDeclaration:
		return n.importDeclaration(inner)
	case cst.PageDeclaration:
		return n.pageDeclaration(inner)
	case cst.DataDeclaration:
		return n.dataDeclaration(inner)
	case cst.FunctionDeclaration:
		return n.functionDeclaration(inner)
	case cst.VariableDeclaration:
		return n.variableDeclaration(inner)
	case cst.ReturnStatement:
		return n.returnStatement(inner)
	case cst.ExpressionStatement:
		expr := n.expression(inner.Node(cst.Expression))
		if expr == nil {
			return nil
		}
		return &ast.ExpressionStatement{Base: ast.Base{Loc: location(inner)}, Expression: expr}
	}
	return nil
}

func (n *normalizer) importDeclaration(node *cst.Node) ast.Statement {
	decl := &ast.ImportDeclaration{Base: ast.Base{Loc: location(node)}}
	for _, spec := range node.Nodes(cst.ImportSpecifier) {
		name, _ := spec.Token(lexer.IDENT)
		decl.Specifiers = append(decl.Specifiers, &ast.ImportSpecifier{
			Base:     ast.Base{Loc: location(spec)},
			Imported: name.Literal,
			Local:    name.Literal,
		})
	}
	if source, ok := node.Token(lexer.STRING); ok {
		decl.Source = lexer.Unquote(source.Literal)
	}
	return decl
}

func (n *normalizer) pageDeclaration(node *cst.Node) ast.Statement {
	page := &ast.PageDeclaration{Base: ast.Base{Loc: location(node)}}
	if path, ok := node.Token(lexer.STRING); ok {
		page.Path = lexer.Unquote(path.Literal)
	}
	page.Body = n.block(node.Node(cst.BlockStatement))
	return page
}

func (n *normalizer) dataDeclaration(node *cst.Node) ast.Statement {
	init := n.expression(node.Node(cst.Expression))
	if init == nil {
		return nil
	}
	name, _ := node.Token(lexer.IDENT)
	return &ast.DataDeclaration{
		Base: ast.Base{Loc: location(node)},
		ID:   pratt.NewIdentifier(name),
		Init: init,
	}
}

func (n *normalizer) functionDeclaration(node *cst.Node) ast.Statement {
	name, _ := node.Token(lexer.IDENT)
	fn := &ast.FunctionDeclaration{
		Base:        ast.Base{Loc: location(node)},
		Name:        name.Literal,
		Params:      []*ast.Parameter{},
		Async:       node.Has(lexer.ASYNC),
		Annotations: []*ast.Annotation{},
	}

	for _, ann := range node.Nodes(cst.Annotation) {
		fn.Annotations = append(fn.Annotations, annotation(ann))
	}

	for _, param := range node.Nodes(cst.Parameter) {
		idents := param.Tokens(lexer.IDENT)
		p := &ast.Parameter{Base: ast.Base{Loc: location(param)}}
		if len(idents) > 0 {
			p.Name = idents[0].Literal
		}
		if len(idents) > 1 {
			p.TypeAnnotation = idents[1].Literal
		}
		fn.Params = append(fn.Params, p)
	}

	fn.Body = n.block(node.Node(cst.BlockStatement))
	return fn
}

func annotation(node *cst.Node) *ast.Annotation {
	name, _ := node.Token(lexer.IDENT)
	ann := &ast.Annotation{Base: ast.Base{Loc: location(node)}, Name: name.Literal}

	for _, argNode := range node.Nodes(cst.AnnotationArgument) {
		switch {
		case argNode.Has(lexer.STRING):
			tok, _ := argNode.Token(lexer.STRING)
			ann.Args = append(ann.Args, ast.AnnotationArg{Kind: ast.StringArg, Value: lexer.Unquote(tok.Literal), Raw: tok.Literal})
		case argNode.Has(lexer.NUMBER):
			tok, _ := argNode.Token(lexer.NUMBER)
			ann.Args = append(ann.Args, ast.AnnotationArg{Kind: ast.NumberArg, Value: tok.Literal, Raw: tok.Literal})
		case argNode.Has(lexer.IDENT):
			tok, _ := argNode.Token(lexer.IDENT)
			ann.Args = append(ann.Args, ast.AnnotationArg{Kind: ast.IdentifierArg, Value: tok.Literal, Raw: tok.Literal})
		}
	}
	return ann
}

func (n *normalizer) variableDeclaration(node *cst.Node) ast.Statement {
	init := n.expression(node.Node(cst.Expression))
	if init == nil {
		return nil
	}

	kind := "let"
	if node.Has(lexer.CONST) {
		kind = "const"
	}
	name, _ := node.Token(lexer.IDENT)
	id := pratt.NewIdentifier(name)

	return &ast.VariableDeclaration{
		Base: ast.Base{Loc: location(node)},
		Kind: kind,
		Declarations: []*ast.VariableDeclarator{{
			Base: ast.Base{Loc: &ast.SourceLocation{Start: id.Loc.Start, End: locEnd(init, id)}},
			ID:   id,
			Init: init,
		}},
	}
}

func (n *normalizer) returnStatement(node *cst.Node) ast.Statement {
	ret := &ast.ReturnStatement{Base: ast.Base{Loc: location(node)}}
	if exprNode := node.Node(cst.Expression); exprNode != nil {
		ret.Argument = n.expression(exprNode)
		if ret.Argument == nil {
			return nil
		}
	}
	return ret
}

func (n *normalizer) block(node *cst.Node) *ast.BlockStatement {
	block := &ast.BlockStatement{Body: []ast.Statement{}}
	if node == nil {
		return block
	}
	block.Loc = location(node)
	block.Body = n.statements(node.Nodes(cst.Statement))
	return block
}

func (n *normalizer) expression(node *cst.Node) ast.Expression {
	if node == nil {
		return nil
	}
	expr, err := Expression(node)
	if err != nil {
		n.fail(err)
		return nil
	}
	return expr
}

// Expression converts one expression-level node. The node's tokens are
// re-ordered by the bridge and parsed by pratt. If the bridge cannot
// recover the tokens, the pipeline/binary shape of the node is folded
// instead, with each primary parsed on its own.
func Expression(node *cst.Node) (ast.Expression, error) {
	tokens, err := bridge.ExtractOrderedTokens(node)
	if err != nil {
		return fold(node, err)
	}
	return pratt.Parse(tokens)
}

var binaryOperators = []lexer.TokenType{
	lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.GT, lexer.LT,
}

type operand struct {
	offset int
	expr   ast.Expression
}

func fold(node *cst.Node, cause error) (ast.Expression, error) {
	if node == nil {
		return nil, cause
	}
	pipeline := node
	if node.Rule == cst.Expression {
		pipeline = node.Node(cst.PipelineExpression)
	}
	if pipeline == nil || pipeline.Rule != cst.PipelineExpression {
		return nil, cause
	}

	operators := pipeline.Tokens(lexer.PIPELINE)
	var operands []operand
	for _, bin := range pipeline.Nodes(cst.BinaryExpression) {
		for _, tt := range binaryOperators {
			operators = append(operators, bin.Tokens(tt)...)
		}
		for _, prim := range bin.Nodes(cst.PrimaryExpression) {
			tokens, err := bridge.ExtractOrderedTokens(prim)
			if err != nil {
				return nil, err
			}
			expr, err := pratt.Parse(tokens)
			if err != nil {
				return nil, err
			}
			operands = append(operands, operand{offset: tokens[0].Offset, expr: expr})
		}
	}

	sort.Slice(operators, func(i, j int) bool { return operators[i].Offset < operators[j].Offset })
	sort.Slice(operands, func(i, j int) bool { return operands[i].offset < operands[j].offset })

	exprs := make([]ast.Expression, len(operands))
	for i, o := range operands {
		exprs[i] = o.expr
	}
	return pratt.Fold(exprs, operators)
}

func location(node *cst.Node) *ast.SourceLocation {
	if node.Start.Line == 0 {
		return nil
	}
	return pratt.Location(node.Start, node.End)
}

func locEnd(expr ast.Expression, fallback *ast.Identifier) ast.Position {
	if loc := expr.Location(); loc != nil {
		return loc.End
	}
	return fallback.Loc.End
}
