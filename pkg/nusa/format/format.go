package format

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
)

// Options controls the printers that honour layout settings.
type Options struct {
	IndentWidth   int
	UseTabs       bool
	MaxBlankLines int
}

// DefaultOptions returns two-space indentation with at most one blank line.
func DefaultOptions() Options {
	return Options{IndentWidth: DefaultIndentWidth, MaxBlankLines: DefaultMaxBlankLines}
}

func (o Options) indentString() string {
	if o.UseTabs {
		return TabString
	}
	width := o.IndentWidth
	if width <= 0 {
		width = DefaultIndentWidth
	}
	return strings.Repeat(" ", width)
}

// Formatter rewrites generated code. Implementations must be safe for
// concurrent use.
type Formatter interface {
	Format(code string, opts Options) (string, error)
}

// ByName returns the formatter registered under name ("" means builtin).
func ByName(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", BuiltinName:
		return Builtin{}, nil
	case ESBuildName:
		return ESBuild{}, nil
	case NoneName:
		return None{}, nil
	}
	return nil, fmt.Errorf("unknown formatter %q (expected %s, %s or %s)", name, BuiltinName, ESBuildName, NoneName)
}

// None returns code unchanged.
type None struct{}

func (None) Format(code string, _ Options) (string, error) {
	return code, nil
}

// Builtin re-indents code by bracket depth. It never reorders or rewrites
// tokens, so its output is the input with normalized whitespace.
type Builtin struct{}

func (Builtin) Format(code string, opts Options) (string, error) {
	p := NewPrinter(opts)
	if err := p.Print(code); err != nil {
		return "", err
	}
	return p.String(), nil
}

// ESBuild reprints code through esbuild's JavaScript printer. Layout
// options are ignored: esbuild always indents with two spaces. Ordinary
// comments, including annotation comments, are not preserved.
type ESBuild struct{}

func (ESBuild) Format(code string, _ Options) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:        api.LoaderJS,
		Format:        api.FormatESModule,
		Target:        api.ESNext,
		LegalComments: api.LegalCommentsInline,
	})
	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		reason := msg.Text
		if msg.Location != nil {
			reason = fmt.Sprintf("%d:%d: %s", msg.Location.Line, msg.Location.Column, msg.Text)
		}
		return "", perrors.New("FORMAT-0001", map[string]any{"Reason": reason})
	}
	return string(result.Code), nil
}
