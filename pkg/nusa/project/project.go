// Package project compiles trees of NusaLang sources into JavaScript output
// directories.
package project

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sambeau/nusa/pkg/nusa/compiler"
	"github.com/sambeau/nusa/pkg/nusa/logger"
	"github.com/sambeau/nusa/pkg/nusa/markdown"
)

// Source file extensions.
const (
	SourceExt   = ".nusa"
	LiterateExt = ".nusa.md"
	OutputExt   = ".js"
)

// Precompression encodings accepted by WriteOutput.
const (
	Gzip = "gzip"
	Zstd = "zstd"
)

// IsSource reports whether path names a NusaLang source file.
func IsSource(path string) bool {
	return strings.HasSuffix(path, SourceExt) || strings.HasSuffix(path, LiterateExt)
}

// FindSources returns every source file under root in lexical order.
// Hidden directories are skipped.
func FindSources(root string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSource(path) {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(sources)
	return sources, nil
}

// ReadSource reads a source file. A literate .nusa.md file yields only its
// nusa code blocks, with line numbers preserved.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}
	if strings.HasSuffix(path, LiterateExt) {
		return markdown.ExtractSource(data, markdown.SourceLanguage), nil
	}
	return string(data), nil
}

// OutputPath maps src, which lives under srcRoot, to its .js path under outDir.
func OutputPath(src, srcRoot, outDir string) (string, error) {
	rel, err := filepath.Rel(srcRoot, src)
	if err != nil {
		return "", fmt.Errorf("resolving output path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", src, srcRoot)
	}
	return filepath.Join(outDir, TrimSourceExt(rel)+OutputExt), nil
}

// TrimSourceExt strips .nusa.md or .nusa from path.
func TrimSourceExt(path string) string {
	if strings.HasSuffix(path, LiterateExt) {
		return strings.TrimSuffix(path, LiterateExt)
	}
	return strings.TrimSuffix(path, SourceExt)
}

// WriteOutput writes code to dst, creating parent directories, plus one
// precompressed sibling per requested encoding (dst.gz, dst.zst).
func WriteOutput(dst, code string, precompress []string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(dst, []byte(code), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	for _, enc := range precompress {
		var (
			data []byte
			ext  string
			err  error
		)
		switch enc {
		case Gzip:
			data, err = gzipBytes([]byte(code))
			ext = ".gz"
		case Zstd:
			data, err = zstdBytes([]byte(code))
			ext = ".zst"
		default:
			return fmt.Errorf("unknown precompression %q (want %s or %s)", enc, Gzip, Zstd)
		}
		if err != nil {
			return fmt.Errorf("compressing %s: %w", dst, err)
		}
		if err := os.WriteFile(dst+ext, data, 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zstdBytes(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// FileError records a source that failed to build.
type FileError struct {
	Path   string
	Errors []string
}

func (e FileError) Error() string {
	return strings.Join(e.Errors, "\n")
}

// Summary is the outcome of Build.
type Summary struct {
	Compiled []string // output paths written
	Failed   []FileError
}

// OK reports whether every source compiled.
func (s Summary) OK() bool {
	return len(s.Failed) == 0
}

// Builder compiles sources to disk.
type Builder struct {
	Options     compiler.Options
	Precompress []string
	Logger      *logger.Logger
}

// BuildFile compiles src and writes the result to dst. Compile errors come
// back as a FileError.
func (b *Builder) BuildFile(src, dst string) error {
	source, err := ReadSource(src)
	if err != nil {
		return err
	}

	opts := b.Options
	opts.SourceFile = src
	if opts.Logger == nil {
		opts.Logger = b.Logger
	}

	result := compiler.Compile(source, opts)
	if !result.Success {
		return FileError{Path: src, Errors: result.Errors}
	}
	if err := WriteOutput(dst, result.Code, b.Precompress); err != nil {
		return err
	}
	b.Logger.Infof("compiled %s -> %s", src, dst)
	return nil
}

// Build compiles every source under srcRoot into outDir. A failing file is
// recorded in the summary and does not stop the build; the error return is
// reserved for problems scanning srcRoot.
func (b *Builder) Build(srcRoot, outDir string) (Summary, error) {
	var summary Summary

	sources, err := FindSources(srcRoot)
	if err != nil {
		return summary, err
	}
	if len(sources) == 0 {
		b.Logger.Warnf("no %s sources found in %s", SourceExt, srcRoot)
	}

	for _, src := range sources {
		dst, err := OutputPath(src, srcRoot, outDir)
		if err == nil {
			err = b.BuildFile(src, dst)
		}
		if err != nil {
			fe, ok := err.(FileError)
			if !ok {
				fe = FileError{Path: src, Errors: []string{err.Error()}}
			}
			summary.Failed = append(summary.Failed, fe)
			b.Logger.Errorf("%s", fe.Error())
			continue
		}
		summary.Compiled = append(summary.Compiled, dst)
	}

	b.Logger.Infof("built %d file(s), %d failed", len(summary.Compiled), len(summary.Failed))
	return summary, nil
}
