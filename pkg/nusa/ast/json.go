package ast

import "fmt"

// ToMap renders a node as an ESTree-like map with a "type" key, suitable for
// encoding/json. Nil nodes become nil.
func ToMap(n Node) map[string]any {
	if n == nil {
		return nil
	}

	m := map[string]any{"type": string(n.Type())}
	if loc := n.Location(); loc != nil {
		m["loc"] = loc
	}

	switch n := n.(type) {
	case *Program:
		m["body"] = statements(n.Body)
	case *ImportDeclaration:
		specs := make([]any, len(n.Specifiers))
		for i, s := range n.Specifiers {
			specs[i] = ToMap(s)
		}
		m["specifiers"] = specs
		m["source"] = n.Source
	case *ImportSpecifier:
		m["imported"] = n.Imported
		m["local"] = n.Local
	case *FunctionDeclaration:
		m["name"] = n.Name
		m["async"] = n.Async
		params := make([]any, len(n.Params))
		for i, p := range n.Params {
			params[i] = ToMap(p)
		}
		m["params"] = params
		anns := make([]any, len(n.Annotations))
		for i, a := range n.Annotations {
			anns[i] = ToMap(a)
		}
		m["annotations"] = anns
		m["body"] = blockMap(n.Body)
	case *Parameter:
		m["name"] = n.Name
		if n.TypeAnnotation != "" {
			m["typeAnnotation"] = n.TypeAnnotation
		}
	case *Annotation:
		m["name"] = n.Name
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			args[i] = a.Value
		}
		m["args"] = args
	case *VariableDeclaration:
		m["kind"] = n.Kind
		decls := make([]any, len(n.Declarations))
		for i, d := range n.Declarations {
			decls[i] = ToMap(d)
		}
		m["declarations"] = decls
	case *VariableDeclarator:
		m["id"] = identMap(n.ID)
		m["init"] = ToMap(n.Init)
	case *ExpressionStatement:
		m["expression"] = ToMap(n.Expression)
	case *ReturnStatement:
		m["argument"] = ToMap(n.Argument)
	case *BlockStatement:
		m["body"] = statements(n.Body)
	case *PageDeclaration:
		m["path"] = n.Path
		m["body"] = blockMap(n.Body)
	case *DataDeclaration:
		m["id"] = identMap(n.ID)
		m["init"] = ToMap(n.Init)
	case *CallExpression:
		m["callee"] = ToMap(n.Callee)
		m["arguments"] = expressions(n.Arguments)
	case *MemberExpression:
		m["object"] = ToMap(n.Object)
		m["property"] = ToMap(n.Property)
		m["computed"] = n.Computed
		m["optional"] = n.Optional
	case *ArrayExpression:
		m["elements"] = expressions(n.Elements)
	case *ObjectExpression:
		props := make([]any, len(n.Properties))
		for i, p := range n.Properties {
			props[i] = ToMap(p)
		}
		m["properties"] = props
	case *Property:
		m["key"] = n.Key
		m["value"] = ToMap(n.Value)
	case *Identifier:
		m["name"] = n.Name
	case *Literal:
		m["value"] = n.Value
		m["raw"] = n.Raw
	case *BinaryExpression:
		m["operator"] = n.Operator
		m["left"] = ToMap(n.Left)
		m["right"] = ToMap(n.Right)
	case *PipelineExpression:
		m["left"] = ToMap(n.Left)
		m["right"] = ToMap(n.Right)
	case *AwaitExpression:
		m["argument"] = ToMap(n.Argument)
	default:
		panic(fmt.Sprintf("ast.ToMap: unhandled node %T", n))
	}
	return m
}

func statements(list []Statement) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = ToMap(s)
	}
	return out
}

func expressions(list []Expression) []any {
	out := make([]any, len(list))
	for i, e := range list {
		out[i] = ToMap(e)
	}
	return out
}

// blockMap and identMap avoid wrapping a typed nil pointer in a non-nil Node.
func blockMap(b *BlockStatement) map[string]any {
	if b == nil {
		return nil
	}
	return ToMap(b)
}

func identMap(id *Identifier) map[string]any {
	if id == nil {
		return nil
	}
	return ToMap(id)
}
