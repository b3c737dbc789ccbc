// Package format pretty-prints generated JavaScript.
// Defaults for the builtin printer live here.
package format

// Indentation
const (
	DefaultIndentWidth = 2
	TabString          = "\t"
)

// Structure
const (
	DefaultMaxBlankLines = 1 // Blank lines kept in a row; extra ones are dropped
)

// Backend names accepted by ByName and the config file.
const (
	BuiltinName = "builtin"
	ESBuildName = "esbuild"
	NoneName    = "none"
)
