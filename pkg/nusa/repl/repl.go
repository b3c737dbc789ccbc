// Package repl is an interactive loop that compiles NusaLang input and prints
// the generated JavaScript.
package repl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/nusa/pkg/nusa/ast"
	"github.com/sambeau/nusa/pkg/nusa/compiler"
	perrors "github.com/sambeau/nusa/pkg/nusa/errors"
	"github.com/sambeau/nusa/pkg/nusa/format"
	"github.com/sambeau/nusa/pkg/nusa/lexer"
)

const PROMPT = "nusa> "
const CONTINUATION_PROMPT = "  ... "

// Words offered by tab completion besides the keywords.
var runtimeWords = []string{"true", "false", "router", "db", "render", "exit", "quit"}

// LineReader supplies input lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Session holds the REPL's toggles. The zero value is not usable; call
// NewSession.
type Session struct {
	Options    compiler.Options
	ShowAST    bool
	ShowTokens bool
	Format     bool
}

// NewSession returns a session that formats output with opts' formatter.
func NewSession(opts compiler.Options) *Session {
	return &Session{Options: opts, Format: true}
}

// Start runs the REPL on the terminal with line editing, history and tab
// completion.
func Start(out io.Writer, version string, opts compiler.Options) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(filterCompletions)

	historyFile := filepath.Join(os.TempDir(), ".nusa_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, "NusaLang", version)
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit, ':help' for commands")
	fmt.Fprintln(out, "")

	Run(line, out, NewSession(opts))
}

// Run reads input from r until EOF or exit. Multi-line input continues while
// brackets are unbalanced.
func Run(r LineReader, out io.Writer, s *Session) {
	var inputBuffer strings.Builder

	for {
		prompt := PROMPT
		if inputBuffer.Len() > 0 {
			prompt = CONTINUATION_PROMPT
		}
		input, err := r.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			return
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 {
			if trimmed == "exit" || trimmed == "quit" {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			if strings.HasPrefix(trimmed, ":") {
				s.Command(trimmed, out)
				continue
			}
			if trimmed == "" {
				continue
			}
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		full := inputBuffer.String()
		if needsMoreInput(full) {
			continue
		}
		r.AppendHistory(full)
		s.Eval(full, out)
		inputBuffer.Reset()
	}
}

// Command handles a REPL meta-command starting with ':'.
func (s *Session) Command(cmd string, out io.Writer) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :ast            Toggle printing the AST as JSON")
		fmt.Fprintln(out, "  :tokens         Toggle printing the token stream")
		fmt.Fprintln(out, "  :format         Toggle formatting of generated code")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")
	case ":ast":
		s.ShowAST = !s.ShowAST
		fmt.Fprintf(out, "AST output %s\n", onOff(s.ShowAST))
	case ":tokens":
		s.ShowTokens = !s.ShowTokens
		fmt.Fprintf(out, "Token output %s\n", onOff(s.ShowTokens))
	case ":format":
		s.Format = !s.Format
		fmt.Fprintf(out, "Formatting %s\n", onOff(s.Format))
	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// Eval compiles input and prints the result or the diagnostics.
func (s *Session) Eval(input string, out io.Writer) {
	if s.ShowTokens {
		if tokens, err := compiler.Tokenize(input); err == nil {
			for _, tok := range tokens {
				fmt.Fprintf(out, "  %-10s %s\n", tok.Type, tok.Literal)
			}
		}
	}

	opts := s.Options
	opts.Debug = s.ShowAST
	if !s.Format {
		opts.Formatter = format.None{}
	}

	result := compiler.Compile(input, opts)
	if !result.Success {
		printStructuredErrors(out, result.Diagnostics)
		return
	}

	if s.ShowAST && result.AST != nil {
		data, err := json.MarshalIndent(ast.ToMap(result.AST), "", "  ")
		if err == nil {
			out.Write(data)
			io.WriteString(out, "\n")
		}
	}

	code := strings.TrimRight(result.Code, "\n")
	if code == "" {
		io.WriteString(out, "OK\n")
		return
	}
	io.WriteString(out, code+"\n")
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func printStructuredErrors(out io.Writer, errs []*perrors.NusaError) {
	for _, err := range errs {
		io.WriteString(out, err.PrettyString())
		io.WriteString(out, "\n")
	}
}

// filterCompletions returns completions for the last word of line.
func filterCompletions(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if last := line[len(line)-1]; last == ' ' || last == '\t' {
		return nil
	}

	words := strings.Fields(line)
	lastWord := words[len(words)-1]
	prefix := strings.TrimSuffix(line, lastWord)

	var matches []string
	for _, word := range append(lexer.Keywords(), runtimeWords...) {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, prefix+word)
		}
	}
	return matches
}

// needsMoreInput reports whether input has unclosed brackets, strings or
// block comments.
func needsMoreInput(input string) bool {
	depth := 0
	for i := 0; i < len(input); i++ {
		switch ch := input[i]; ch {
		case '"', '\'':
			// Strings end at the line; an unterminated one is a lex error.
			i++
			for i < len(input) && input[i] != ch && input[i] != '\n' {
				if input[i] == '\\' {
					i++
				}
				i++
			}
		case '`':
			i++
			for i < len(input) && input[i] != '`' {
				if input[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(input) {
				return true
			}
		case '/':
			if i+1 < len(input) && input[i+1] == '/' {
				for i < len(input) && input[i] != '\n' {
					i++
				}
			} else if i+1 < len(input) && input[i+1] == '*' {
				end := strings.Index(input[i+2:], "*/")
				if end < 0 {
					return true
				}
				i += end + 3
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}
	return depth > 0
}
