package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/sambeau/nusa/pkg/nusa/ast"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/format"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
	"github.com/sambeau/nusa/pkg/nusa/logger"
	"github.com/sambeau/nusa/pkg/nusa/normalize"
	"github.com/sambeau/nusa/pkg/nusa/parser"
)

func program(t *testing.T, input string) *ast.Program {
	t.Helper()
	tokens, lexErrs := lexer.Tokenize(input)
	if len(lexErrs) != 0 {
		t.Fatalf("lex errors: %v", lexErrs)
	}
	tree, errs := parser.ParseProgram(tokens)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	prog, errs := normalize.Program(tree)
	if len(errs) != 0 {
		t.Fatalf("normalize errors: %v", errs)
	}
	return prog
}

func render(t *testing.T, input string) string {
	t.Helper()
	code, err := Render(program(t, input))
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	return code
}

func TestStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`import { a, b } from "./lib";`, `import { a, b } from './lib';`},
		{`let x = 10; const y = 20;`, "let x = 10;\nconst y = 20;"},
		{`data users = db.users.all();`, `const users = await db.users.all();`},
		{`data total = a + b;`, `const total = await (a + b);`},
		{`page "/" {}`, `page('/', async () => {});`},
		{`page "/home" { render(); }`, "page('/home', async () => {\n  render();\n});"},
		{`fn add(x, y) { return x + y; }`, "function add(x, y) {\n  return x + y;\n}"},
		{`async fn load() { return; }`, "async function load() {\n  return;\n}"},
		{`fn typed(a: Number, b: String) {}`, `function typed(a, b) {}`},
		{`{ a: 1 };`, `({ a: 1 });`},
		{`{ a: 1 }.a;`, `({ a: 1 }.a);`},
		{`{ a: 1 }.f() + 1;`, `({ a: 1 }.f() + 1);`},
		{`[{ a: 1 }][0];`, `[{ a: 1 }][0];`},
		{`log("hi")`, `log('hi');`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := render(t, tt.input); got != tt.expected {
				t.Errorf("expected:\n%s\ngot:\n%s", tt.expected, got)
			}
		})
	}
}

func TestNestedIndentation(t *testing.T) {
	input := `page "/users" {
  fn load() {
    return db.users.all();
  }
  render(load());
}`
	expected := "page('/users', async () => {\n" +
		"  function load() {\n" +
		"    return db.users.all();\n" +
		"  }\n" +
		"  render(load());\n" +
		"});"
	if got := render(t, input); got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestAnnotations(t *testing.T) {
	got := render(t, `@api fn handler() {}`)
	if got != "// @api\nfunction handler() {}" {
		t.Errorf("got %q", got)
	}

	got = render(t, `@cache(60, fast) @auth("admin") fn f() {}`)
	if got != "// @cache(60, fast)\n// @auth(\"admin\")\nfunction f() {}" {
		t.Errorf("got %q", got)
	}
}

func TestRouteRegistration(t *testing.T) {
	got := render(t, `@route("/users") fn list() { return db.users.all(); }`)
	expected := `// @route("/users")
function list() {
  return db.users.all();
}

// Auto-register route
if (typeof router !== 'undefined') {
  router.registerPage('/users', list);
}`
	if got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}

	// Nested route functions keep the registration at their own depth.
	got = render(t, `page "/" { @route("/x") fn x() {} }`)
	if !strings.Contains(got, "\n  if (typeof router !== 'undefined') {\n    router.registerPage('/x', x);\n  }\n});") {
		t.Errorf("nested registration misindented:\n%s", got)
	}

	// Non-string first arguments do not register.
	got = render(t, `@route(users) fn list() {}`)
	if strings.Contains(got, "registerPage") {
		t.Errorf("unexpected registration:\n%s", got)
	}
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"5 + 3 * 2", "5 + 3 * 2"},
		{"(5 + 3) * 2", "(5 + 3) * 2"},
		{"a - (b - c)", "a - (b - c)"},
		{"(a - b) - c", "a - b - c"},
		{"a * b > c + 1", "a * b > c + 1"},
		{"x |> f", "f(x)"},
		{"x |> f(y)", "f(x, y)"},
		{"x |> f(y, z)", "f(x, y, z)"},
		{"x |> f |> g(1)", "g(f(x), 1)"},
		{"a + b |> f", "f(a + b)"},
		{"x |> obj.method(1)", "obj.method(x, 1)"},
		{"obj.items[0].name", "obj.items[0].name"},
		{"user?.profile?.email", "user?.profile?.email"},
		{"list?[0]", "list?.[0]"},
		{"await load()", "await load()"},
		{"(await a).b", "(await a).b"},
		{"(a + b).c", "(a + b).c"},
		{"(x |> f).y", "f(x).y"},
		{"[]", "[]"},
		{"{}", "{}"},
		{"[1, [2], {}]", "[1, [2], {}]"},
		{"{ a: 1, b: [x] }", "{ a: 1, b: [x] }"},
		{"{ fn: 1, data: 2 }", "{ fn: 1, data: 2 }"},
		{`"double"`, `'double'`},
		{`'it\'s'`, `'it\'s'`},
		{`"a\nb\\c"`, `'a\nb\\c'`},
		{"`hi ${name}`", "`hi ${name}`"},
		{"3.14", "3.14"},
		{"5 .toFixed(2)", "(5).toFixed(2)"},
		{"1.5 .toFixed(1)", "1.5.toFixed(1)"},
		{"[5][0]", "[5][0]"},
		{"true", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog := program(t, "let v = "+tt.input+";")
			decl := prog.Body[0].(*ast.VariableDeclaration)
			got, err := Expression(decl.Declarations[0].Init)
			if err != nil {
				t.Fatalf("Expression error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected=%q, got=%q", tt.expected, got)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", `'plain'`},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
		{"tab\there", `'tab\there'`},
		{"cr\r", `'cr\r'`},
		{"\x00\x1b", `'\x00\x1b'`},
		{"a\u2028b", `'a\u2028b'`},
		{"héllo", `'héllo'`},
		{`"dq"`, `'"dq"'`},
	}
	for _, tt := range tests {
		if got := quote(tt.input); got != tt.expected {
			t.Errorf("quote(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestUnknownNodes(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"nil program", func() error {
			_, err := Render(nil)
			return err
		}},
		{"nil statement", func() error {
			_, err := Render(&ast.Program{Body: []ast.Statement{nil}})
			return err
		}},
		{"nil expression", func() error {
			_, err := Expression(nil)
			return err
		}},
		{"nil call argument", func() error {
			_, err := Expression(&ast.CallExpression{Callee: &ast.Identifier{Name: "f"}, Arguments: []ast.Expression{nil}})
			return err
		}},
		{"nil return argument inside block", func() error {
			_, err := Render(&ast.Program{Body: []ast.Statement{
				&ast.FunctionDeclaration{Name: "f", Body: &ast.BlockStatement{Body: []ast.Statement{
					&ast.ExpressionStatement{},
				}}},
			}})
			return err
		}},
		{"typed nil identifier", func() error {
			_, err := Expression((*ast.Identifier)(nil))
			return err
		}},
		{"typed nil import", func() error {
			_, err := Render(&ast.Program{Body: []ast.Statement{(*ast.ImportDeclaration)(nil)}})
			return err
		}},
		{"nil import specifier", func() error {
			_, err := Render(&ast.Program{Body: []ast.Statement{
				&ast.ImportDeclaration{Specifiers: []*ast.ImportSpecifier{nil}, Source: "x"},
			}})
			return err
		}},
		{"nil parameter", func() error {
			_, err := Render(&ast.Program{Body: []ast.Statement{
				&ast.FunctionDeclaration{Name: "f", Params: []*ast.Parameter{nil}},
			}})
			return err
		}},
		{"nil annotation", func() error {
			_, err := Render(&ast.Program{Body: []ast.Statement{
				&ast.FunctionDeclaration{Name: "f", Annotations: []*ast.Annotation{nil}},
			}})
			return err
		}},
		{"typed nil member property", func() error {
			_, err := Expression(&ast.MemberExpression{Object: &ast.Identifier{Name: "a"}, Property: (*ast.Identifier)(nil)})
			return err
		}},
		{"typed nil pipeline call", func() error {
			_, err := Expression(&ast.PipelineExpression{Left: &ast.Identifier{Name: "x"}, Right: (*ast.CallExpression)(nil)})
			return err
		}},
		{"computed flag missing on literal property", func() error {
			_, err := Expression(&ast.MemberExpression{Object: &ast.Identifier{Name: "a"}, Property: &ast.Literal{Kind: ast.NumberLiteral, Raw: "0"}})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var nerr *perrors.NusaError
			if !errors.As(err, &nerr) {
				t.Fatalf("expected *NusaError, got %T (%v)", err, err)
			}
			if nerr.Code != "CODEGEN-0001" || nerr.Class != perrors.ClassCodegen {
				t.Errorf("got %s %s", nerr.Code, nerr.Class)
			}
		})
	}
}

func TestInvalidPipelineTarget(t *testing.T) {
	expr := &ast.PipelineExpression{
		Base:  ast.Base{Loc: &ast.SourceLocation{Start: ast.Position{Line: 3, Column: 5}}},
		Left:  &ast.Identifier{Name: "x"},
		Right: &ast.Literal{Kind: ast.NumberLiteral, Raw: "5"},
	}
	_, err := Expression(expr)
	nerr, ok := err.(*perrors.NusaError)
	if !ok {
		t.Fatalf("expected *NusaError, got %T", err)
	}
	if nerr.Code != "CODEGEN-0002" || nerr.Line != 3 || nerr.Column != 5 {
		t.Errorf("got %s at %d:%d", nerr.Code, nerr.Line, nerr.Column)
	}
	if !strings.Contains(nerr.Message, "Literal") {
		t.Errorf("message = %q", nerr.Message)
	}
}

type failingFormatter struct{}

func (failingFormatter) Format(string, format.Options) (string, error) {
	return "", errors.New("backend unavailable")
}

func TestGenerate(t *testing.T) {
	prog := program(t, "fn f() {\nreturn 1;\n}")

	code, err := New().Generate(prog)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if code != "function f() {\n  return 1;\n}\n" {
		t.Errorf("builtin formatted output = %q", code)
	}

	code, err = New(WithFormatter(nil, format.Options{})).Generate(prog)
	if err != nil || code != "function f() {\n  return 1;\n}" {
		t.Errorf("unformatted output = %q, %v", code, err)
	}

	code, err = New(WithFormatter(format.Builtin{}, format.Options{UseTabs: true})).Generate(prog)
	if err != nil || code != "function f() {\n\treturn 1;\n}\n" {
		t.Errorf("tab output = %q, %v", code, err)
	}
}

func TestFormatterFailureIsNotFatal(t *testing.T) {
	log, buf := logger.NewBuffered(logger.LevelWarn)
	g := New(WithFormatter(failingFormatter{}, format.DefaultOptions()), WithLogger(log))

	code, err := g.Generate(program(t, "let x = 1;"))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if code != "let x = 1;" {
		t.Errorf("code = %q", code)
	}
	if !strings.Contains(buf.String(), "[WARN] formatting failed") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

func TestGeneratorIsReusable(t *testing.T) {
	g := New()
	first, _ := g.Generate(program(t, "fn a() { return 1; }"))
	second, _ := g.Generate(program(t, "let b = 2;"))
	if strings.Contains(second, "function") || second != "let b = 2;\n" {
		t.Errorf("state leaked between calls: %q then %q", first, second)
	}
}
