package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/nusa/pkg/nusa/format"
	"github.com/sambeau/nusa/pkg/nusa/logger"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults() when none exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the
// resolved path. The path is empty when no config file was found.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	cfg := Defaults()
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.BaseDir = wd
		resolvePaths(cfg)
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	if filepath.Base(path) == LegacyFile {
		err = applyLegacy(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.BaseDir = filepath.Dir(absPath)
	cfg.Path = absPath
	resolvePaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

// Config file names searched in the working directory.
const (
	DefaultFile = "nusa.yaml"
	LegacyFile  = ".nusarc"
)

// resolveConfigPath finds the config file to use.
// Search order: explicit path > NUSA_CONFIG env > ./nusa.yaml > ./.nusarc
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("NUSA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("NUSA_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	for _, name := range []string{DefaultFile, LegacyFile} {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// applyLegacy reads the camelCase JSON keys of a .nusarc file. JSON is
// valid YAML, so the YAML decoder handles it.
func applyLegacy(data []byte, cfg *Config) error {
	var legacy legacyConfig
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return err
	}
	if legacy.SourceDir != "" {
		cfg.SourceDir = legacy.SourceDir
	}
	if legacy.OutDir != "" {
		cfg.OutDir = legacy.OutDir
	}
	if legacy.Entry != "" {
		cfg.Entry = legacy.Entry
	}
	if legacy.LogLevel != "" {
		cfg.Logging.Level = legacy.LogLevel
	}
	return nil
}

func resolvePaths(cfg *Config) {
	if cfg.SourceDir != "" && !filepath.IsAbs(cfg.SourceDir) {
		cfg.SourceDir = filepath.Join(cfg.BaseDir, cfg.SourceDir)
	}
	if cfg.OutDir != "" && !filepath.IsAbs(cfg.OutDir) {
		cfg.OutDir = filepath.Join(cfg.BaseDir, cfg.OutDir)
	}
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the configuration, reporting every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SourceDir == "" {
		errs = append(errs, "source_dir is required")
	}
	if cfg.OutDir == "" {
		errs = append(errs, "out_dir is required")
	}
	if cfg.SourceDir != "" && filepath.Clean(cfg.SourceDir) == filepath.Clean(cfg.OutDir) {
		errs = append(errs, "source_dir and out_dir must be different directories")
	}

	if _, err := cfg.NewFormatter(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid formatter: %s (must be %s, %s, or %s)",
			cfg.Formatter, format.BuiltinName, format.ESBuildName, format.NoneName))
	}
	if !cfg.Format.UseTabs && (cfg.Format.IndentWidth < 1 || cfg.Format.IndentWidth > 8) {
		errs = append(errs, fmt.Sprintf("invalid format.indent_width: %d (must be 1-8)", cfg.Format.IndentWidth))
	}
	if cfg.Format.MaxBlankLines < 0 {
		errs = append(errs, fmt.Sprintf("invalid format.max_blank_lines: %d (must not be negative)", cfg.Format.MaxBlankLines))
	}

	for i, enc := range cfg.Precompress {
		if enc != "gzip" && enc != "zstd" {
			errs = append(errs, fmt.Sprintf("precompress[%d]: unknown encoding %q (must be gzip or zstd)", i, enc))
		}
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("invalid watch.debounce: %s (must not be negative)", cfg.Watch.Debounce))
	}

	if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be silent, error, warn, info, or debug)", cfg.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Warnings returns non-fatal configuration issues that likely indicate a
// misconfiguration.
func Warnings(cfg *Config) []string {
	var warnings []string

	if info, err := os.Stat(cfg.SourceDir); err != nil || !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("source_dir %s does not exist", cfg.SourceDir))
	} else if cfg.Entry != "" {
		if _, err := os.Stat(filepath.Join(cfg.SourceDir, cfg.Entry)); err != nil {
			warnings = append(warnings, fmt.Sprintf("entry %s not found in %s", cfg.Entry, cfg.SourceDir))
		}
	}

	if cfg.Formatter == format.ESBuildName {
		warnings = append(warnings, "the esbuild formatter drops comments, including // @api and // @route annotation comments")
	}
	if cfg.Formatter == format.ESBuildName && (cfg.Format.UseTabs || cfg.Format.IndentWidth != format.DefaultIndentWidth) {
		warnings = append(warnings, "format settings are ignored by the esbuild formatter")
	}

	return warnings
}
