// Package compiler is the entry point to the NusaLang compiler: it runs the
// lexer, the statement parser, the normalizer and the code generator, and
// reports every diagnostic as a structured error.
package compiler

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sambeau/nusa/pkg/nusa/ast"
	"github.com/sambeau/nusa/pkg/nusa/codegen"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/format"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
	"github.com/sambeau/nusa/pkg/nusa/logger"
	"github.com/sambeau/nusa/pkg/nusa/normalize"
	"github.com/sambeau/nusa/pkg/nusa/parser"
)

// Options controls a compile.
type Options struct {
	SourceFile string // used in diagnostics
	Debug      bool   // keep the AST in the result

	// Formatter post-processes generated code; nil means format.Builtin.
	// A zero FormatOptions means format.DefaultOptions().
	Formatter     format.Formatter
	FormatOptions format.Options

	Logger *logger.Logger
}

// Result is the outcome of Compile. Errors holds one human-readable line
// per diagnostic; Diagnostics holds the same errors in structured form.
type Result struct {
	Success     bool
	Code        string
	AST         *ast.Program
	Errors      []string
	Diagnostics perrors.List
}

// Tokenize lexes source. On failure the error is an errors.List.
func Tokenize(source string) ([]lexer.Token, error) {
	tokens, errs := lexer.Tokenize(source)
	if len(errs) > 0 {
		return nil, perrors.List(errs)
	}
	return tokens, nil
}

// Parse lexes, parses and normalizes source. Parse errors do not stop
// normalization of the statements that did parse, so expression errors are
// reported in the same run. On failure the error is an errors.List.
func Parse(source string) (*ast.Program, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}

	tree, parseErrs := parser.ParseProgram(tokens)
	program, exprErrs := normalize.Program(tree)

	all := append(perrors.List(parseErrs), exprErrs...)
	if len(all) > 0 {
		return nil, all
	}
	return program, nil
}

// GenerateCode renders and formats program.
func GenerateCode(program *ast.Program, opts Options) (string, error) {
	return generator(opts).Generate(program)
}

func generator(opts Options) *codegen.Generator {
	f := opts.Formatter
	if f == nil {
		f = format.Builtin{}
	}
	fo := opts.FormatOptions
	if fo == (format.Options{}) {
		fo = format.DefaultOptions()
	}
	return codegen.New(codegen.WithFormatter(f, fo), codegen.WithLogger(opts.Logger))
}

// Compile compiles source to JavaScript. It never panics: an internal
// failure is reported as an unsuccessful Result.
func Compile(source string, opts Options) (result Result) {
	log := opts.Logger

	defer func() {
		if r := recover(); r != nil {
			log.Debugf("[Compiler] panic: %v\n%s", r, debug.Stack())
			result = failure(perrors.List{internalError(r)}, opts)
		}
	}()

	log.Debugf("[Compiler] Tokenizing...")
	tokens, err := Tokenize(source)
	if err != nil {
		return failure(asList(err), opts)
	}

	log.Debugf("[Compiler] Parsing...")
	tree, parseErrs := parser.ParseProgram(tokens)
	program, exprErrs := normalize.Program(tree)
	if errs := append(perrors.List(parseErrs), exprErrs...); len(errs) > 0 {
		return failure(errs, opts)
	}

	log.Debugf("[Compiler] Generating code...")
	code, err := GenerateCode(program, opts)
	if err != nil {
		return failure(asList(err), opts)
	}

	result = Result{Success: true, Code: code}
	if opts.Debug {
		result.AST = program
	}
	return result
}

// CompileString compiles source and returns the code, or an error listing
// every diagnostic.
func CompileString(source string, opts Options) (string, error) {
	result := Compile(source, opts)
	if !result.Success {
		return "", result.Diagnostics
	}
	return result.Code, nil
}

func failure(errs perrors.List, opts Options) Result {
	if opts.SourceFile != "" {
		errs = errs.WithFile(opts.SourceFile)
	}
	return Result{Errors: errs.Messages(), Diagnostics: errs}
}

func asList(err error) perrors.List {
	var list perrors.List
	if errors.As(err, &list) {
		return list
	}
	var nerr *perrors.NusaError
	if errors.As(err, &nerr) {
		return perrors.List{nerr}
	}
	return perrors.List{perrors.New("INTERNAL", map[string]any{"message": err.Error()})}
}

func internalError(r any) *perrors.NusaError {
	return perrors.New("INTERNAL", map[string]any{"message": fmt.Sprintf("internal compiler error: %v", r)})
}
