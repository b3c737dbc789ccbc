// Package markdown reads NusaLang embedded in Markdown: literate .nusa.md
// sources and the compiler's Markdown test corpora.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SourceLanguage is the fence language of NusaLang code blocks.
const SourceLanguage = "nusa"

// ExtractSource returns the contents of every fenced block tagged lang.
// Everything else in the document becomes blank lines, so line numbers in
// diagnostics point into the Markdown file.
func ExtractSource(markdownContent []byte, lang string) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdownContent))

	var out strings.Builder
	line := 1
	ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := node.(*ast.FencedCodeBlock)
		if !ok || string(block.Language(markdownContent)) != lang || block.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}

		start := lineNumber(block, markdownContent)
		for ; line < start; line++ {
			out.WriteByte('\n')
		}
		content := codeBlockContent(block, markdownContent)
		out.WriteString(content)
		line += strings.Count(content, "\n")
		return ast.WalkSkipChildren, nil
	})
	return out.String()
}

// InputType is the fence language of a test input.
type InputType string

const (
	InputTypeProgram    InputType = "nusa"
	InputTypeExpression InputType = "nusa-expr"
)

// AssertionType is the fence language of a test assertion.
type AssertionType string

const (
	AssertionTypeJS           AssertionType = "js"            // exact generated JavaScript
	AssertionTypeAST          AssertionType = "ast"           // the AST's String() form
	AssertionTypeCompileError AssertionType = "compile-error" // substring of the first error
)

// Assertion is one expectation attached to a test case.
type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

// TestCase is a test extracted from a "Test: name" heading and the fences
// that follow it.
type TestCase struct {
	Name       string
	Input      string
	InputType  InputType
	Line       int
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown test corpus.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	source := []byte(markdownContent)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var current *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := textContent(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if current != nil {
				if err := validate(current); err != nil {
					return ast.WalkStop, err
				}
				testCases = append(testCases, *current)
			}
			current = &TestCase{Name: strings.TrimPrefix(heading, "Test: ")}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := strings.TrimRight(codeBlockContent(n, source), "\n")
			line := lineNumber(n, source)

			if current == nil {
				if isInputFence(language) || isAssertionFence(language) {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, language)
				}
				return ast.WalkContinue, nil
			}

			switch {
			case isInputFence(language):
				if current.Input != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences found in test '%s'", line, current.Name)
				}
				current.Input = content
				current.InputType = InputType(language)
				current.Line = line
			case isAssertionFence(language):
				current.Assertions = append(current.Assertions, Assertion{
					Type:    AssertionType(language),
					Content: content,
					Line:    line,
				})
			case language != "":
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, language, current.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if current != nil {
		if err := validate(current); err != nil {
			return nil, err
		}
		testCases = append(testCases, *current)
	}
	return testCases, nil
}

func isInputFence(language string) bool {
	return language == string(InputTypeProgram) || language == string(InputTypeExpression)
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeJS, AssertionTypeAST, AssertionTypeCompileError:
		return true
	}
	return false
}

func validate(tc *TestCase) error {
	if tc.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	return nil
}

func textContent(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func codeBlockContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineNumber is the 1-based line of the block's first content line.
func lineNumber(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	if start > len(source) {
		start = len(source)
	}
	return bytes.Count(source[:start], []byte("\n")) + 1
}
