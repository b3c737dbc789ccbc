package config

import (
	"time"

	"github.com/sambeau/nusa/pkg/nusa/format"
	"github.com/sambeau/nusa/pkg/nusa/logger"
)

// Config represents the complete project configuration
type Config struct {
	BaseDir     string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Path        string        `yaml:"-"` // Resolved config file, empty when running on defaults
	SourceDir   string        `yaml:"source_dir"`
	OutDir      string        `yaml:"out_dir"`
	Entry       string        `yaml:"entry"`     // Main source file, relative to source_dir
	Formatter   string        `yaml:"formatter"` // builtin, esbuild, or none
	Format      FormatConfig  `yaml:"format"`
	Precompress []string      `yaml:"precompress"` // gzip and/or zstd siblings for each output
	Watch       WatchConfig   `yaml:"watch"`
	Logging     LoggingConfig `yaml:"logging"`
}

// FormatConfig holds generated code layout settings
type FormatConfig struct {
	IndentWidth   int  `yaml:"indent_width"`
	UseTabs       bool `yaml:"use_tabs"`
	MaxBlankLines int  `yaml:"max_blank_lines"`
}

// WatchConfig holds file watcher settings
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // silent, error, warn, info, or debug
	Format string `yaml:"format"` // text or json
}

// legacyConfig is the JSON .nusarc layout.
type legacyConfig struct {
	SourceDir string `yaml:"sourceDir"`
	OutDir    string `yaml:"outDir"`
	Entry     string `yaml:"entry"`
	LogLevel  string `yaml:"logLevel"`
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		SourceDir: "./src",
		OutDir:    "./dist",
		Formatter: format.BuiltinName,
		Format: FormatConfig{
			IndentWidth:   format.DefaultIndentWidth,
			MaxBlankLines: format.DefaultMaxBlankLines,
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// FormatOptions converts the format section for the formatter.
func (c *Config) FormatOptions() format.Options {
	return format.Options{
		IndentWidth:   c.Format.IndentWidth,
		UseTabs:       c.Format.UseTabs,
		MaxBlankLines: c.Format.MaxBlankLines,
	}
}

// NewFormatter returns the configured formatter backend.
func (c *Config) NewFormatter() (format.Formatter, error) {
	return format.ByName(c.Formatter)
}

// LogLevel returns the configured logging level.
func (c *Config) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(c.Logging.Level)
}
