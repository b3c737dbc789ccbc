package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nalgeon/be"

	"github.com/sambeau/nusa/pkg/nusa/ast"
	"github.com/sambeau/nusa/pkg/nusa/codegen"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/format"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
	"github.com/sambeau/nusa/pkg/nusa/logger"
	"github.com/sambeau/nusa/pkg/nusa/markdown"
	"github.com/sambeau/nusa/pkg/nusa/pratt"
)

// TestMarkdownCorpus runs every test case in testdata/*_test.md.
func TestMarkdownCorpus(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		testName := strings.TrimSuffix(filepath.Base(testFile), ".md")

		t.Run(testName, func(t *testing.T) {
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)

			testCases, err := markdown.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					switch tc.InputType {
					case markdown.InputTypeExpression:
						runExpressionCase(t, tc)
					case markdown.InputTypeProgram:
						runProgramCase(t, tc)
					default:
						t.Fatalf("unknown input type: %s", tc.InputType)
					}
				})
			}
		})
	}
}

func runExpressionCase(t *testing.T, tc markdown.TestCase) {
	t.Helper()
	var expr ast.Expression
	tokens, err := Tokenize(tc.Input)
	if err == nil {
		expr, err = pratt.Parse(tokens)
	}

	for _, a := range tc.Assertions {
		switch a.Type {
		case markdown.AssertionTypeCompileError:
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), a.Content))
		case markdown.AssertionTypeAST:
			be.Err(t, err, nil)
			be.Equal(t, expr.String(), a.Content)
		case markdown.AssertionTypeJS:
			be.Err(t, err, nil)
			code, err := codegen.Expression(expr)
			be.Err(t, err, nil)
			be.Equal(t, code, a.Content)
		}
	}
}

func runProgramCase(t *testing.T, tc markdown.TestCase) {
	t.Helper()
	result := Compile(tc.Input, Options{SourceFile: "corpus.nusa"})

	for _, a := range tc.Assertions {
		switch a.Type {
		case markdown.AssertionTypeCompileError:
			be.Equal(t, result.Success, false)
			be.True(t, len(result.Errors) > 0)
			be.True(t, strings.Contains(result.Errors[0], a.Content))
		case markdown.AssertionTypeAST:
			program, err := Parse(tc.Input)
			be.Err(t, err, nil)
			be.Equal(t, program.String(), a.Content)
		case markdown.AssertionTypeJS:
			be.Equal(t, result.Errors, []string(nil))
			be.Equal(t, strings.TrimRight(result.Code, "\n"), a.Content)
		}
	}
}

func TestCompileSimpleProgram(t *testing.T) {
	result := Compile(`
      fn greet(name) {
        return "Hello";
      }
    `, Options{})
	if !result.Success {
		t.Fatalf("compile failed: %v", result.Errors)
	}
	if !strings.Contains(result.Code, "function greet(name) {\n  return 'Hello';\n}") {
		t.Errorf("unexpected code:\n%s", result.Code)
	}
	if result.AST != nil {
		t.Error("AST should only be returned in debug mode")
	}
}

func TestCompileDebug(t *testing.T) {
	log, buf := logger.NewBuffered(logger.LevelDebug)
	result := Compile("let x = 1;", Options{Debug: true, Logger: log})
	if !result.Success {
		t.Fatalf("compile failed: %v", result.Errors)
	}
	if result.AST == nil || len(result.AST.Body) != 1 {
		t.Fatalf("expected the AST in debug mode, got %v", result.AST)
	}

	expected := []string{
		"[DEBUG] [Compiler] Tokenizing...",
		"[DEBUG] [Compiler] Parsing...",
		"[DEBUG] [Compiler] Generating code...",
	}
	lines := buf.Lines()
	if strings.Join(lines, "\n") != strings.Join(expected, "\n") {
		t.Errorf("debug log = %v", lines)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
		count  int
	}{
		{"lexer", "let x = 1 # 2;", "LEX-0001", 1},
		{"parser", "let = 1;\nconst = 2;", "PARSE-0001", 2},
		{"expression", "let a = x |> 5;\nlet b = y |> [1];", "EXPR-0003", 2},
		{"parser and expression together", "let = 1;\nlet b = y |> 2;", "PARSE-0001", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compile(tt.source, Options{SourceFile: "app.nusa"})
			if result.Success {
				t.Fatal("expected failure")
			}
			if result.Code != "" {
				t.Errorf("code should be empty, got %q", result.Code)
			}
			if len(result.Errors) != tt.count || len(result.Diagnostics) != tt.count {
				t.Fatalf("expected %d errors, got %v", tt.count, result.Errors)
			}
			if result.Diagnostics[0].Code != tt.code {
				t.Errorf("first code = %s, want %s", result.Diagnostics[0].Code, tt.code)
			}
			if !strings.HasPrefix(result.Errors[0], "app.nusa: line ") {
				t.Errorf("message should carry file and position: %q", result.Errors[0])
			}
		})
	}
}

func TestCompileToleratesFormatterFailure(t *testing.T) {
	log, buf := logger.NewBuffered(logger.LevelWarn)
	result := Compile("let s = `unterminated\n`;", Options{Formatter: brokenFormatter{}, Logger: log})
	if !result.Success {
		t.Fatalf("formatter failure should not fail the compile: %v", result.Errors)
	}
	if result.Code != "let s = `unterminated\n`;" {
		t.Errorf("expected unformatted code, got %q", result.Code)
	}
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Error("expected a warning")
	}
}

type brokenFormatter struct{}

func (brokenFormatter) Format(string, format.Options) (string, error) {
	return "", perrors.New("FORMAT-0001", map[string]any{"Reason": "broken"})
}

type panickingFormatter struct{}

func (panickingFormatter) Format(string, format.Options) (string, error) {
	panic("formatter exploded")
}

func TestCompileNeverPanics(t *testing.T) {
	result := Compile("let x = 1;", Options{Formatter: panickingFormatter{}})
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "internal compiler error: formatter exploded") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestCompileWithFormatOptions(t *testing.T) {
	result := Compile("fn f() { return 1; }", Options{FormatOptions: format.Options{UseTabs: true}})
	if result.Code != "function f() {\n\treturn 1;\n}\n" {
		t.Errorf("got %q", result.Code)
	}

	result = Compile("fn f() { return 1; }", Options{Formatter: format.None{}})
	if result.Code != "function f() {\n  return 1;\n}" {
		t.Errorf("got %q", result.Code)
	}
}

func TestCompileString(t *testing.T) {
	code, err := CompileString("const name = \"Nusa\";", Options{})
	if err != nil {
		t.Fatalf("CompileString error: %v", err)
	}
	if code != "const name = 'Nusa';\n" {
		t.Errorf("code = %q", code)
	}

	_, err = CompileString("invalid @#$%", Options{})
	var list perrors.List
	if !errors.As(err, &list) || len(list) == 0 {
		t.Fatalf("expected an errors.List, got %T (%v)", err, err)
	}
}

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize("fn add(x)")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	if len(tokens) != 5 || tokens[0].Type != lexer.FN {
		t.Errorf("tokens = %v", tokens)
	}

	if _, err := Tokenize(`"open`); err == nil {
		t.Error("expected an error for an unterminated string")
	}
}

func TestParse(t *testing.T) {
	program, err := Parse("fn add(x, y) { return x + y; }")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	fn, ok := program.Body[0].(*ast.FunctionDeclaration)
	if !ok || fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("unexpected program %s", program)
	}

	if _, err := Parse("fn ("); err == nil {
		t.Error("expected an error")
	}
}

func TestGenerateCodeMalformedAST(t *testing.T) {
	tests := []struct {
		name string
		body []ast.Statement
	}{
		{"missing expression", []ast.Statement{&ast.ExpressionStatement{}}},
		{"typed nil identifier", []ast.Statement{&ast.ExpressionStatement{Expression: (*ast.Identifier)(nil)}}},
		{"typed nil import", []ast.Statement{(*ast.ImportDeclaration)(nil)}},
		{"nil parameter", []ast.Statement{&ast.FunctionDeclaration{Name: "f", Params: []*ast.Parameter{nil}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateCode(&ast.Program{Body: tt.body}, Options{})
			var nerr *perrors.NusaError
			if !errors.As(err, &nerr) || nerr.Code != "CODEGEN-0001" {
				t.Errorf("expected CODEGEN-0001, got %v", err)
			}
		})
	}
}

func TestConcurrentCompiles(t *testing.T) {
	sources := []string{
		"fn add(x, y) { return x + y; }",
		"let x = 10; const y = 20;",
		`@route("/a") fn a() { return 1 |> f; }`,
		"let broken = ;",
	}

	var wg sync.WaitGroup
	results := make([]Result, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Compile(sources[i%len(sources)], Options{})
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		want := Compile(sources[i%len(sources)], Options{})
		if r.Success != want.Success || r.Code != want.Code {
			t.Errorf("result %d differs from a sequential compile", i)
		}
	}
}
