package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/robert-at-pretension-io/sim-build/internal/validator"
)

// Vendor presets understood by the testbench template.
const (
	VendorCadence  = "cadence"
	VendorSynopsys = "synopsys"
	VendorIcarus   = "icarus"
)

// DefaultOutputDirectory is used when no configuration names one.
const DefaultOutputDirectory = "output"

// FileNames are the configuration file names searched in a directory, in
// order.
var FileNames = []string{"sim_build.json", "sim_build.toml", ".sim_build.json"}

// Config is the top-level configuration for sim-build
type Config struct {
	// OutputDirectory receives the build artifacts (relative to the project
	// root if not absolute)
	OutputDirectory string `json:"outputDirectory,omitempty" toml:"outputDirectory,omitempty"`

	// Vendor selects the testbench preset: "cadence", "synopsys", "icarus"
	Vendor string `json:"vendor,omitempty" toml:"vendor,omitempty"`

	// Testbench contains testbench rendering options
	Testbench TestbenchConfig `json:"testbench,omitempty" toml:"testbench,omitempty"`

	// Templates overrides the embedded template sources
	Templates TemplatesConfig `json:"templates,omitempty" toml:"templates,omitempty"`

	// Checks configures the pin checks run before export
	Checks ChecksConfig `json:"checks,omitempty" toml:"checks,omitempty"`

	// Root is the project root the configuration was resolved against.
	Root string `json:"-" toml:"-"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `json:"-" toml:"-"`
}

// TestbenchConfig contains testbench rendering options
type TestbenchConfig struct {
	// Includes are files `include'd by the testbench, glob patterns allowed
	Includes []string `json:"includes,omitempty" toml:"includes,omitempty"`
}

// TemplatesConfig overrides the embedded template sources
type TemplatesConfig struct {
	// Testbench is a template file rendered instead of the embedded wrapper
	Testbench string `json:"testbench,omitempty" toml:"testbench,omitempty"`

	// Extension is a directory rendered instead of the embedded VPI sources
	Extension string `json:"extension,omitempty" toml:"extension,omitempty"`
}

// ChecksConfig configures the pin checks
type ChecksConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning"
	Rules map[string]string `json:"rules,omitempty" toml:"rules,omitempty"`

	// PolicyDir holds additional .rego files
	PolicyDir string `json:"policyDir,omitempty" toml:"policyDir,omitempty"`
}

// BuildOptions is the immutable input of one build, assembled once from the
// command line and the configuration.
type BuildOptions struct {
	RTLPath    string
	OutputDir  string
	TopName    string
	SourceDirs []string
	Debugger   bool
	Vendor     string
	Includes   []string
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		OutputDirectory: DefaultOutputDirectory,
		Vendor:          VendorCadence,
		Testbench: TestbenchConfig{
			Includes: []string{},
		},
		Checks: ChecksConfig{
			Rules: map[string]string{},
		},
	}
}

// Load finds and loads the configuration file for a build of rtlPath.
// Search order:
//  1. ./sim_build.json, ./sim_build.toml, ./.sim_build.json
//  2. the same names in the project root: the nearest ancestor of rtlPath
//     holding one of them
//  3. ~/.config/sim_build/config.json
//
// Returns DefaultConfig if no config file is found. The project root is the
// directory of a config found in steps 1 or 2, otherwise the working
// directory.
func Load(rtlPath string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}

	if path := findIn(cwd); path != "" {
		return loadWithRoot(path, cwd)
	}

	if root := ProjectRoot(rtlPath); root != "" && root != cwd {
		return loadWithRoot(findIn(root), root)
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "sim_build", "config.json")
		if _, err := os.Stat(path); err == nil {
			return loadWithRoot(path, cwd)
		}
	}

	cfg := DefaultConfig()
	cfg.Root = cwd
	return cfg, nil
}

// ProjectRoot returns the nearest ancestor directory of path that holds a
// configuration file, or "" when there is none.
func ProjectRoot(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	dir := filepath.Dir(abs)
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		dir = abs
	}
	for {
		if findIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func findIn(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func loadWithRoot(path, root string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	return cfg, nil
}

// LoadFile loads configuration from a specific file. Files ending in .toml
// are read as TOML, everything else as JSON. The project root defaults to
// the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw map[string]interface{}
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if raw == nil {
		raw = map[string]interface{}{}
	}

	v, err := validator.New()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateConfig(raw); err != nil {
		return nil, fmt.Errorf("invalid config file %s:\n  %w", path, err)
	}

	var cfg Config
	if isTOML(path) {
		_, err = toml.Decode(string(data), &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing fields
	cfg.applyDefaults()
	cfg.Path = path
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		cfg.Root = abs
	}

	return &cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.OutputDirectory == "" {
		c.OutputDirectory = DefaultOutputDirectory
	}
	if c.Vendor == "" {
		c.Vendor = VendorCadence
	}
	if c.Testbench.Includes == nil {
		c.Testbench.Includes = []string{}
	}
	if c.Checks.Rules == nil {
		c.Checks.Rules = make(map[string]string)
	}
}

// ErrExists is returned by Save when the target exists and overwrite is off.
var ErrExists = errors.New("config file already exists")

// Save writes the configuration to a file, as TOML when the name ends in
// .toml and JSON otherwise.
func (c *Config) Save(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	var data []byte
	if isTOML(path) {
		var buf strings.Builder
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		data = []byte(buf.String())
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		data = append(data, '\n')
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// OutputDir resolves the configured output directory against the project
// root.
func (c *Config) OutputDir() string {
	return c.resolve(c.OutputDirectory)
}

// PolicyDir resolves checks.policyDir, "" when unset.
func (c *Config) PolicyDir() string {
	if c.Checks.PolicyDir == "" {
		return ""
	}
	return c.resolve(c.Checks.PolicyDir)
}

// TestbenchTemplate resolves templates.testbench, "" when unset.
func (c *Config) TestbenchTemplate() string {
	if c.Templates.Testbench == "" {
		return ""
	}
	return c.resolve(c.Templates.Testbench)
}

// ExtensionDir resolves templates.extension, "" when unset.
func (c *Config) ExtensionDir() string {
	if c.Templates.Extension == "" {
		return ""
	}
	return c.resolve(c.Templates.Extension)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.Root == "" {
		return path
	}
	return filepath.Join(c.Root, path)
}

// GetRuleSeverity returns the configured severity of a pin check rule, or
// defaultSeverity when checks.rules does not mention it.
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Checks.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled reports whether a pin check rule runs. Rules are on unless
// set to "off".
func (c *Config) IsRuleEnabled(rule string) bool {
	return c.GetRuleSeverity(rule, "") != "off"
}
