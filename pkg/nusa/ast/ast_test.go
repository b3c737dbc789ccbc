package ast

import (
	"encoding/json"
	"strings"
	"testing"
)

func ident(name string) *Identifier { return &Identifier{Name: name} }

func num(raw string) *Literal { return &Literal{Kind: NumberLiteral, Raw: raw} }

func TestString(t *testing.T) {
	tests := []struct {
		node     Node
		expected string
	}{
		{
			&ImportDeclaration{Specifiers: []*ImportSpecifier{{Imported: "a", Local: "a"}, {Imported: "b", Local: "b"}}, Source: "./m"},
			`import { a, b } from "./m";`,
		},
		{
			&FunctionDeclaration{
				Name:        "list",
				Async:       true,
				Params:      []*Parameter{{Name: "req", TypeAnnotation: "Request"}},
				Annotations: []*Annotation{{Name: "route", Args: []AnnotationArg{{Kind: StringArg, Value: "/users"}, {Kind: NumberArg, Value: "2"}}}},
				Body:        &BlockStatement{},
			},
			`@route("/users", 2) async fn list(req: Request) {}`,
		},
		{
			&VariableDeclaration{Kind: "const", Declarations: []*VariableDeclarator{{ID: ident("x"), Init: num("1")}}},
			"const x = 1;",
		},
		{&ReturnStatement{}, "return;"},
		{&ReturnStatement{Argument: ident("x")}, "return x;"},
		{&PageDeclaration{Path: "/", Body: &BlockStatement{Body: []Statement{&ExpressionStatement{Expression: ident("go")}}}}, "page \"/\" { go; }"},
		{&DataDeclaration{ID: ident("users"), Init: ident("all")}, "data users = all;"},
		{&MemberExpression{Object: ident("a"), Property: ident("b"), Optional: true}, "a?.b"},
		{&MemberExpression{Object: ident("a"), Property: num("0"), Computed: true, Optional: true}, "a?[0]"},
		{&CallExpression{Callee: ident("f"), Arguments: []Expression{ident("x"), num("2")}}, "f(x, 2)"},
		{&ArrayExpression{}, "[]"},
		{&ObjectExpression{Properties: []*Property{{Key: "a", Value: num("1")}}}, "{ a: 1 }"},
		{&BinaryExpression{Operator: "+", Left: ident("a"), Right: &BinaryExpression{Operator: "*", Left: ident("b"), Right: ident("c")}}, "(a + (b * c))"},
		{&PipelineExpression{Left: ident("x"), Right: ident("f")}, "(x |> f)"},
		{&AwaitExpression{Argument: ident("p")}, "(await p)"},
		{&Literal{Kind: StringLiteral, Value: "hi"}, `"hi"`},
		{&Literal{Kind: NullLiteral}, "null"},
		{&AwaitExpression{}, "(await <nil>)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.node.String(); got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestProgramString(t *testing.T) {
	program := &Program{Body: []Statement{
		&VariableDeclaration{Kind: "let", Declarations: []*VariableDeclarator{{ID: ident("x"), Init: num("10")}}},
		&VariableDeclaration{Kind: "const", Declarations: []*VariableDeclarator{{ID: ident("y"), Init: num("20")}}},
	}}
	if got := program.String(); got != "let x = 10;\nconst y = 20;" {
		t.Errorf("got %q", got)
	}
}

func TestToMap(t *testing.T) {
	loc := &SourceLocation{Start: Position{Line: 1, Column: 1}, End: Position{Line: 1, Column: 11}}
	program := &Program{Base: Base{Loc: loc}, Body: []Statement{
		&FunctionDeclaration{
			Name:        "add",
			Params:      []*Parameter{{Name: "x"}, {Name: "y"}},
			Annotations: []*Annotation{},
			Body: &BlockStatement{Body: []Statement{
				&ReturnStatement{Argument: &BinaryExpression{Operator: "+", Left: ident("x"), Right: ident("y")}},
			}},
		},
	}}

	m := ToMap(program)
	if m["type"] != "Program" || m["loc"] != loc {
		t.Fatalf("root = %v", m)
	}

	fn := m["body"].([]any)[0].(map[string]any)
	if fn["type"] != "FunctionDeclaration" || fn["name"] != "add" || fn["async"] != false {
		t.Errorf("function = %v", fn)
	}
	if _, ok := fn["loc"]; ok {
		t.Error("nodes without a location should not carry a loc key")
	}

	ret := fn["body"].(map[string]any)["body"].([]any)[0].(map[string]any)
	bin := ret["argument"].(map[string]any)
	if bin["operator"] != "+" || bin["left"].(map[string]any)["name"] != "x" {
		t.Errorf("binary = %v", bin)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}
	for _, want := range []string{`"type":"Program"`, `"start":{"line":1,"column":1}`, `"operator":"+"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("json %s missing %s", data, want)
		}
	}
}

func TestToMapNil(t *testing.T) {
	if ToMap(nil) != nil {
		t.Error("nil node should map to nil")
	}
	m := ToMap(&ReturnStatement{})
	if arg, ok := m["argument"].(map[string]any); !ok || arg != nil {
		t.Errorf("argument = %#v", m["argument"])
	}
}
