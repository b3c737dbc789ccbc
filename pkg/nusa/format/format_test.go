package format

import (
	"strings"
	"testing"

	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
)

func TestBuiltinIndentation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single line",
			input:    "let x = 10;",
			expected: "let x = 10;\n",
		},
		{
			name:     "nested blocks",
			input:    "function f() {\nif (a) {\nreturn 1;\n}\n}",
			expected: "function f() {\n  if (a) {\n    return 1;\n  }\n}\n",
		},
		{
			name:     "existing indentation replaced",
			input:    "function f() {\n        return 1;\n    }",
			expected: "function f() {\n  return 1;\n}\n",
		},
		{
			name:     "brackets opened on one line count once",
			input:    "page('/a', async () => {\nrender();\n});",
			expected: "page('/a', async () => {\n  render();\n});\n",
		},
		{
			name:     "multi-line array",
			input:    "const a = [\n1,\n[2,\n3],\n];",
			expected: "const a = [\n  1,\n  [2,\n    3],\n];\n",
		},
		{
			name:     "brackets in strings and comments ignored",
			input:    "function f() {\nlog('}', \"{\"); // )\n/* { */\n}",
			expected: "function f() {\n  log('}', \"{\"); // )\n  /* { */\n}\n",
		},
		{
			name:     "escaped quote in string",
			input:    "function f() {\nlog('it\\'s {');\n}",
			expected: "function f() {\n  log('it\\'s {');\n}\n",
		},
		{
			name:     "blank lines collapsed and trimmed",
			input:    "\n\nlet a = 1;\n\n\n\nlet b = 2;\n\n",
			expected: "let a = 1;\n\nlet b = 2;\n",
		},
		{
			name:     "template continuation kept verbatim",
			input:    "function f() {\nreturn `a {\n   b\n}`;\n}",
			expected: "function f() {\n  return `a {\n   b\n}`;\n}\n",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Builtin{}.Format(tt.input, DefaultOptions())
			if err != nil {
				t.Fatalf("Format error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected:\n%q\ngot:\n%q", tt.expected, got)
			}
		})
	}
}

func TestBuiltinOptions(t *testing.T) {
	input := "function f() {\nreturn 1;\n}\n\n\nf();"

	got, err := Builtin{}.Format(input, Options{UseTabs: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != "function f() {\n\treturn 1;\n}\nf();\n" {
		t.Errorf("tabs, no blank lines: got %q", got)
	}

	got, err = Builtin{}.Format(input, Options{IndentWidth: 4, MaxBlankLines: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got != "function f() {\n    return 1;\n}\n\n\nf();\n" {
		t.Errorf("four spaces, two blank lines: got %q", got)
	}
}

func TestBuiltinIsIdempotent(t *testing.T) {
	input := "import { a } from './a';\nasync function load(x) {\nconst r = await fetch(x, {\nmode: 'cors',\n});\n\nreturn r;\n}"
	once, err := Builtin{}.Format(input, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Builtin{}.Format(once, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Errorf("second pass changed output:\n%s\n---\n%s", once, twice)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		input  string
		reason string
	}{
		{"function f() {", "unclosed '{'"},
		{"f());", "unexpected ')'"},
		{"f(]", "does not match"},
		{"let s = `abc", "unterminated template"},
		{"/* abc", "unterminated block comment"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Builtin{}.Format(tt.input, DefaultOptions())
			nerr, ok := err.(*perrors.NusaError)
			if !ok {
				t.Fatalf("expected *NusaError, got %T (%v)", err, err)
			}
			if nerr.Code != "FORMAT-0001" || nerr.Class != perrors.ClassFormat {
				t.Errorf("got %s %s", nerr.Code, nerr.Class)
			}
			if !strings.Contains(nerr.Message, tt.reason) {
				t.Errorf("message %q does not contain %q", nerr.Message, tt.reason)
			}
		})
	}
}

func TestNone(t *testing.T) {
	code := "function f(){\nreturn 1;}"
	got, err := None{}.Format(code, DefaultOptions())
	if err != nil || got != code {
		t.Errorf("None changed code: %q, %v", got, err)
	}
}

func TestESBuild(t *testing.T) {
	code := "async function load(x) {\nreturn await fetch(x);\n}\nconst users = await load('/u');"
	got, err := ESBuild{}.Format(code, DefaultOptions())
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	for _, want := range []string{"async function load(x) {\n  return await fetch(x);\n}", "const users = await load("} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestESBuildSyntaxError(t *testing.T) {
	_, err := ESBuild{}.Format("function (", DefaultOptions())
	nerr, ok := err.(*perrors.NusaError)
	if !ok {
		t.Fatalf("expected *NusaError, got %T", err)
	}
	if nerr.Code != "FORMAT-0001" {
		t.Errorf("code = %s", nerr.Code)
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name     string
		expected Formatter
	}{
		{"", Builtin{}},
		{"builtin", Builtin{}},
		{"ESBUILD", ESBuild{}},
		{"none", None{}},
	}
	for _, tt := range tests {
		f, err := ByName(tt.name)
		if err != nil {
			t.Fatalf("ByName(%q) error: %v", tt.name, err)
		}
		if f != tt.expected {
			t.Errorf("ByName(%q) = %T", tt.name, f)
		}
	}
	if _, err := ByName("prettier"); err == nil {
		t.Error("expected error for unknown formatter")
	}
}
