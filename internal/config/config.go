package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EnvPrefix is the prefix for override environment variables.
const EnvPrefix = "LUAPROV_"

// Config holds the session configuration.
type Config struct {
	// Enabled controls whether provenance tracking starts enabled.
	Enabled bool

	// ReentryException controls whether nested tracked calls fail or are
	// silently dropped.
	ReentryException bool

	// MaxEntries caps the undo/redo history (0 means unlimited).
	MaxEntries int

	// Scripts are Lua files executed at startup, in order.
	Scripts []string
}

// Default returns the default configuration: tracking enabled, reentry
// exception on, unlimited history.
func Default() Config {
	return Config{
		Enabled:          true,
		ReentryException: true,
	}
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing config %s: %s", e.Path, e.Message)
}

// Load reads configuration from a JSON file and applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ApplyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if !gjson.ValidBytes(data) {
		return cfg, &ParseError{Path: path, Message: "invalid JSON"}
	}

	if v := gjson.GetBytes(data, "provenance.enabled"); v.Exists() {
		cfg.Enabled = v.Bool()
	}
	if v := gjson.GetBytes(data, "provenance.reentry_exception"); v.Exists() {
		cfg.ReentryException = v.Bool()
	}
	if v := gjson.GetBytes(data, "provenance.max_entries"); v.Exists() {
		cfg.MaxEntries = int(v.Int())
	}
	for _, v := range gjson.GetBytes(data, "scripts").Array() {
		cfg.Scripts = append(cfg.Scripts, v.String())
	}

	return ApplyEnv(cfg), nil
}

// ApplyEnv applies LUAPROV_* environment overrides to a configuration.
// Malformed values are ignored; empty values count as set.
func ApplyEnv(cfg Config) Config {
	if v, ok := os.LookupEnv(EnvPrefix + "ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "REENTRY_EXCEPTION"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ReentryException = b
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MAX_ENTRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxEntries = n
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "SCRIPTS"); ok {
		cfg.Scripts = nil
		for _, s := range strings.Split(v, ":") {
			if s != "" {
				cfg.Scripts = append(cfg.Scripts, s)
			}
		}
	}
	return cfg
}

// Save writes the configuration to a JSON file.
func Save(path string, cfg Config) error {
	doc := []byte("{}")
	var err error

	set := func(jsonPath string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.SetBytes(doc, jsonPath, value)
	}

	set("provenance.enabled", cfg.Enabled)
	set("provenance.reentry_exception", cfg.ReentryException)
	set("provenance.max_entries", cfg.MaxEntries)
	scripts := cfg.Scripts
	if scripts == nil {
		scripts = []string{}
	}
	set("scripts", scripts)
	if err != nil {
		return fmt.Errorf("building config document: %w", err)
	}

	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}
