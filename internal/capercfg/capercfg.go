// Package capercfg reads the project-wide caper.toml config file
// (SPEC_FULL.md §10.3), grounded on the teacher's own TOML-based config
// format (internal/tqw, internal/game/marshaling.go both use
// toml.Unmarshal against a plain struct). caper.toml only ever supplies
// *defaults*: a grammar file's own declarations (%token, %namespace, etc.,
// spec.md §4.1/§6) always win.
package capercfg

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dekarrin/caper/internal/collect"
)

// Config is the decoded shape of caper.toml.
type Config struct {
	Target      string `toml:"target"`
	Out         string `toml:"out"`
	CacheDir    string `toml:"cache_dir"`
	DebugParser bool   `toml:"debug_parser"`
}

// Default returns the built-in defaults used when no caper.toml is present
// and no flag overrides a field.
func Default() Config {
	return Config{
		Target:   "go",
		Out:      "",
		CacheDir: "",
	}
}

// Load reads and parses the caper.toml at path. A missing file is not an
// error; it returns Default() unchanged, since caper.toml is itself
// optional (SPEC_FULL.md §10.3).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyDefaults fills any collect.Options field the grammar file's own
// declarations left at its zero value, using cfg as the lower-priority
// source. It never overwrites a field the grammar already set; the
// precedence is grammar declarations > caper.toml > built-in defaults
// (SPEC_FULL.md §10.3).
func ApplyDefaults(opts collect.Options, cfg Config) collect.Options {
	if !opts.DebugParser {
		opts.DebugParser = cfg.DebugParser
	}
	return opts
}
