// Package logger is the leveled logger shared by the compiler, the build
// driver, the watcher and the CLI.
//
// Text output looks like "[INFO] compiled 3 files"; info and debug go to
// stdout, warnings and errors to stderr. JSON output writes one object per
// line to the same streams.
package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level is a log severity. Messages below the logger's level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

var levelNames = map[Level]string{
	LevelDebug:  "debug",
	LevelInfo:   "info",
	LevelWarn:   "warn",
	LevelError:  "error",
	LevelSilent: "silent",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel parses a level name as written in config files and flags.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "silent", "quiet", "off":
		return LevelSilent, nil
	}
	return LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error or silent)", s)
}

// Logger writes leveled messages. A nil *Logger discards everything, so
// packages can hold one without checking.
type Logger struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	level  Level
	json   bool
	now    func() time.Time
}

// New creates a text logger.
func New(stdout, stderr io.Writer, level Level) *Logger {
	return &Logger{stdout: stdout, stderr: stderr, level: level, now: time.Now}
}

// NewJSON creates a logger that writes one JSON object per message.
func NewJSON(stdout, stderr io.Writer, level Level) *Logger {
	l := New(stdout, stderr, level)
	l.json = true
	return l
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return New(io.Discard, io.Discard, LevelSilent)
}

// Level returns the logger's minimum level.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelSilent
	}
	return l.level
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level && level < LevelSilent
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

type entry struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
}

func (l *Logger) log(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	w := l.stdout
	if level >= LevelWarn {
		w = l.stderr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.json {
		line, err := json.Marshal(entry{
			Time:    l.now().UTC().Format(time.RFC3339),
			Level:   level.String(),
			Message: msg,
		})
		if err != nil {
			return
		}
		w.Write(append(line, '\n'))
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(level.String()), msg)
}

// Buffer captures log output for tests and for callers that want to show
// diagnostics after the fact.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the captured output split into lines, without the trailing
// empty line.
func (b *Buffer) Lines() []string {
	s := strings.TrimSuffix(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// NewBuffered creates a logger whose stdout and stderr both go to one
// Buffer.
func NewBuffered(level Level) (*Logger, *Buffer) {
	buf := &Buffer{}
	return New(buf, buf, level), buf
}
