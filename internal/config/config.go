// Package config loads resource-limit overrides from a TOML file, the
// teacher's own util.Configuration struct extended with the §4.5
// limit table instead of the teacher's build-metadata-only fields.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/daios-rlm/pyrepl/internal/object"
)

// Configuration is the process-wide config the CLI binary reads once
// at startup.
type Configuration struct {
	MaxCodeChars       int `toml:"max_code_chars"`
	MaxOutputChars     int `toml:"max_output_chars"`
	MaxASTNodes        int `toml:"max_ast_nodes"`
	MaxSteps           int `toml:"max_steps"`
	MaxStringSize      int `toml:"max_string_size"`
	MaxZlibOutputBytes int `toml:"max_zlib_output_bytes"`
	MaxListSize        int `toml:"max_list_size"`
}

// Default returns the §4.5 defaults, unconditionally.
func Default() Configuration {
	d := object.DefaultLimits()
	return Configuration{
		MaxCodeChars:       d.MaxCodeChars,
		MaxOutputChars:     d.MaxOutputChars,
		MaxASTNodes:        d.MaxASTNodes,
		MaxSteps:           d.MaxSteps,
		MaxStringSize:      d.MaxStringSize,
		MaxZlibOutputBytes: d.MaxZlibOutputBytes,
		MaxListSize:        d.MaxListSize,
	}
}

// Load reads path as TOML, overlaying any present field on top of
// Default(). An empty path returns Default() with no error; a file that
// cannot be read or decoded (a missing file included) returns the
// error, and the caller decides whether that is fatal.
func Load(path string) (Configuration, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Limits converts a Configuration into the object.Limits the evaluator
// and session actually consume.
func (c Configuration) Limits() object.Limits {
	return object.Limits{
		MaxCodeChars:       c.MaxCodeChars,
		MaxOutputChars:     c.MaxOutputChars,
		MaxASTNodes:        c.MaxASTNodes,
		MaxSteps:           c.MaxSteps,
		MaxStringSize:      c.MaxStringSize,
		MaxZlibOutputBytes: c.MaxZlibOutputBytes,
		MaxListSize:        c.MaxListSize,
	}
}
