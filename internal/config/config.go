// Package config holds ecucedit's typed settings.
//
// Settings come from three layers, later ones winning: built-in defaults,
// a TOML file and ECUCEDIT_* environment variables. The file and the
// environment are read as maps by the loader package, merged, and decoded
// over Default().
//
//	[sync]
//	enabled = true
//	debounce = "1s"
//
//	[format]
//	indent = 4
//	use_tabs = false
//	declaration = true
//
//	[files]
//	backup = true
//	backup_suffix = ".backup"
//	watch = true
//
//	[logging]
//	level = "info"
//
//	[rules]
//	paths = ["rules/dio.lua"]
//	timeout = "5s"
//
//	[ui]
//	tree_width = 40
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/ecucedit/internal/arxml"
	"github.com/dshills/ecucedit/internal/config/loader"
	"github.com/dshills/ecucedit/internal/logging"
)

// FileName is the config file name inside the user config directory.
const FileName = "config.toml"

// Duration is a time.Duration read from strings such as "750ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete settings tree.
type Config struct {
	Sync    SyncConfig    `toml:"sync"`
	Format  FormatConfig  `toml:"format"`
	Files   FilesConfig   `toml:"files"`
	Logging LoggingConfig `toml:"logging"`
	Rules   RulesConfig   `toml:"rules"`
	UI      UIConfig      `toml:"ui"`
}

// SyncConfig controls text to tree synchronization.
type SyncConfig struct {
	// Enabled turns on automatic rebuilds after typing pauses.
	Enabled bool `toml:"enabled"`
	// Debounce is the quiet period before a rebuild.
	Debounce Duration `toml:"debounce"`
}

// FormatConfig controls serialization.
type FormatConfig struct {
	Indent      int  `toml:"indent"`
	UseTabs     bool `toml:"use_tabs"`
	Declaration bool `toml:"declaration"`
}

// Options converts the settings to arxml.FormatOptions.
func (f FormatConfig) Options() arxml.FormatOptions {
	indent := strings.Repeat(" ", f.Indent)
	if f.UseTabs {
		indent = "\t"
	}
	return arxml.FormatOptions{Indent: indent, Declaration: f.Declaration}
}

// FilesConfig controls persistence.
type FilesConfig struct {
	Backup       bool   `toml:"backup"`
	BackupSuffix string `toml:"backup_suffix"`
	Watch        bool   `toml:"watch"`
}

// LoggingConfig controls the log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// RulesConfig lists Lua rule scripts.
type RulesConfig struct {
	Paths   []string `toml:"paths"`
	Timeout Duration `toml:"timeout"`
}

// UIConfig controls the terminal front-end.
type UIConfig struct {
	// TreeWidth is the width of the tree pane in columns.
	TreeWidth int `toml:"tree_width"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Sync:    SyncConfig{Enabled: true, Debounce: Duration{time.Second}},
		Format:  FormatConfig{Indent: 4, Declaration: true},
		Files:   FilesConfig{Backup: true, BackupSuffix: ".backup", Watch: true},
		Logging: LoggingConfig{Level: "info"},
		Rules:   RulesConfig{Timeout: Duration{5 * time.Second}},
		UI:      UIConfig{TreeWidth: 40},
	}
}

// DefaultPath returns the config file in the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ecucedit", FileName)
}

type loadOptions struct {
	fs      loader.FileSystem
	environ []string
	useEnv  bool
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithFS reads the config file from fsys.
func WithFS(fsys loader.FileSystem) LoadOption {
	return func(o *loadOptions) { o.fs = fsys }
}

// WithEnviron replaces the process environment with environ.
func WithEnviron(environ []string) LoadOption {
	return func(o *loadOptions) { o.environ = environ }
}

// WithoutEnv ignores environment overrides.
func WithoutEnv() LoadOption {
	return func(o *loadOptions) { o.useEnv = false }
}

// Load builds the configuration from defaults, the file at path (which may
// be missing or empty) and the environment, then validates it.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{fs: loader.DefaultFS(), useEnv: true}
	for _, opt := range opts {
		opt(&o)
	}

	merged, err := loader.NewTOMLLoaderWithFS(o.fs, path).Load()
	if err != nil {
		return nil, err
	}
	if o.useEnv {
		env := loader.NewEnvLoader(loader.DefaultEnvPrefix)
		if o.environ != nil {
			env = loader.NewEnvLoaderFrom(loader.DefaultEnvPrefix, o.environ)
		}
		overrides, err := env.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, overrides)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode lays the merged map over Default.
func decode(m map[string]any) (*Config, error) {
	cfg := Default()
	if len(m) == 0 {
		return cfg, nil
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding merged config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Path    string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}

// Validate checks ranges and names. All problems are returned joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	if d := c.Sync.Debounce.Duration; d < 0 || d > time.Minute {
		add("sync.debounce", "must be between 0 and 1m", d)
	}
	if c.Format.Indent < 0 || c.Format.Indent > 16 {
		add("format.indent", "must be between 0 and 16", c.Format.Indent)
	}
	if c.Files.Backup && c.Files.BackupSuffix == "" {
		add("files.backup_suffix", "must not be empty when backups are on", c.Files.BackupSuffix)
	}
	if strings.ContainsAny(c.Files.BackupSuffix, `/\`) {
		add("files.backup_suffix", "must not contain path separators", c.Files.BackupSuffix)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	if c.Rules.Timeout.Duration <= 0 {
		add("rules.timeout", "must be positive", c.Rules.Timeout.Duration)
	}
	if c.UI.TreeWidth < 10 || c.UI.TreeWidth > 200 {
		add("ui.tree_width", "must be between 10 and 200", c.UI.TreeWidth)
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}

// RulePaths returns the rule paths, relative ones resolved against base.
func (c *Config) RulePaths(base string) []string {
	out := make([]string, len(c.Rules.Paths))
	for i, p := range c.Rules.Paths {
		if !filepath.IsAbs(p) && base != "" {
			p = filepath.Join(base, p)
		}
		out[i] = p
	}
	return out
}
