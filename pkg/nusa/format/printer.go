package format

import (
	"fmt"
	"strings"

	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
)

// bracket is an unclosed opening bracket and the line it was opened on.
type bracket struct {
	ch   byte
	line int
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

// Printer re-indents code one line at a time. The indent of a line is the
// number of distinct source lines that hold a still-open bracket, so
// `f({` opens a single level.
type Printer struct {
	output strings.Builder
	opts   Options
	unit   string

	stack   []bracket
	line    int  // current source line, 1-based
	blank   int  // blank lines waiting to be written
	started bool // something has been written

	inTemplate bool
	inComment  bool
}

// NewPrinter creates a new Printer instance
func NewPrinter(opts Options) *Printer {
	return &Printer{opts: opts, unit: opts.indentString()}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.stack = p.stack[:0]
	p.line, p.blank, p.started = 0, 0, false
	p.inTemplate, p.inComment = false, false
}

// Print formats code and appends it to the output. Every printed line ends
// with a newline; leading and trailing blank lines are dropped.
func (p *Printer) Print(code string) error {
	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	for i, line := range lines {
		p.line = i + 1

		// Continuation lines of a template literal are content, and block
		// comment bodies keep their own alignment.
		if p.inTemplate || p.inComment {
			p.flushBlank()
			if p.inTemplate {
				p.write(line)
			} else {
				p.write(strings.TrimRight(line, " \t"))
			}
			if err := p.scan(line, 0); err != nil {
				return err
			}
			p.newline()
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if p.started {
				p.blank++
			}
			continue
		}

		skip, err := p.closeLeading(trimmed)
		if err != nil {
			return err
		}
		p.flushBlank()
		p.writeIndent(p.depth())
		p.write(trimmed)
		if err := p.scan(trimmed, skip); err != nil {
			return err
		}
		p.newline()
	}

	switch {
	case p.inTemplate:
		return p.fail("unterminated template literal")
	case p.inComment:
		return p.fail("unterminated block comment")
	case len(p.stack) > 0:
		open := p.stack[len(p.stack)-1]
		return p.fail(fmt.Sprintf("unclosed '%c' opened on line %d", open.ch, open.line))
	}
	return nil
}

// closeLeading pops the closing brackets a line starts with, so the line
// is indented at the level of its opener. It returns how many bytes it used.
func (p *Printer) closeLeading(s string) (int, error) {
	i := 0
	for i < len(s) {
		ch := s[i]
		if ch == ' ' || ch == '\t' {
			i++
			continue
		}
		if _, ok := closers[ch]; !ok {
			break
		}
		if err := p.pop(ch); err != nil {
			return 0, err
		}
		i++
	}
	return i, nil
}

// scan tracks brackets, strings, templates and comments in s[from:].
func (p *Printer) scan(s string, from int) error {
	var quote byte
	for i := from; i < len(s); i++ {
		ch := s[i]

		switch {
		case p.inComment:
			if ch == '*' && i+1 < len(s) && s[i+1] == '/' {
				p.inComment = false
				i++
			}
			continue
		case p.inTemplate:
			if ch == '\\' {
				i++
			} else if ch == '`' {
				p.inTemplate = false
			}
			continue
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '\'', '"':
			quote = ch
		case '`':
			p.inTemplate = true
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				return nil
			}
			if i+1 < len(s) && s[i+1] == '*' {
				p.inComment = true
				i++
			}
		case '(', '[', '{':
			p.stack = append(p.stack, bracket{ch: ch, line: p.line})
		case ')', ']', '}':
			if err := p.pop(ch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Printer) pop(ch byte) error {
	if len(p.stack) == 0 {
		return p.fail(fmt.Sprintf("unexpected '%c' on line %d", ch, p.line))
	}
	top := p.stack[len(p.stack)-1]
	if top.ch != closers[ch] {
		return p.fail(fmt.Sprintf("'%c' on line %d does not match '%c' opened on line %d", ch, p.line, top.ch, top.line))
	}
	p.stack = p.stack[:len(p.stack)-1]
	return nil
}

// depth counts the distinct lines holding an open bracket.
func (p *Printer) depth() int {
	n, last := 0, -1
	for _, b := range p.stack {
		if b.line != last {
			n++
			last = b.line
		}
	}
	return n
}

func (p *Printer) fail(reason string) error {
	return perrors.New("FORMAT-0001", map[string]any{"Reason": reason})
}

// flushBlank writes the pending blank lines, at most MaxBlankLines of them.
func (p *Printer) flushBlank() {
	n := p.blank
	if n > p.opts.MaxBlankLines {
		n = p.opts.MaxBlankLines
	}
	for ; n > 0; n-- {
		p.newline()
	}
	p.blank = 0
}

// write appends a string to the output
func (p *Printer) write(s string) {
	p.output.WriteString(s)
	p.started = true
}

// newline writes a newline character
func (p *Printer) newline() {
	p.output.WriteString("\n")
}

// writeIndent writes level indentation units
func (p *Printer) writeIndent(level int) {
	p.write(strings.Repeat(p.unit, level))
}
