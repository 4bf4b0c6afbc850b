package config

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/recera/rapier/pkg/component"
	"github.com/recera/rapier/pkg/textstream"
)

// FileName is the configuration file looked up in a project directory
const FileName = "rapier.yaml"

// Config represents the rapier.yaml configuration
type Config struct {
	// Template delimiters
	Delimiters *DelimiterConfig `yaml:"delimiters,omitempty"`

	// Whether variables are HTML escaped. Nil means the default (true).
	Escape *bool `yaml:"escape,omitempty"`

	// Attribute names used when gathering components
	Attributes *AttributeConfig `yaml:"attributes,omitempty"`

	// Development server configuration
	Dev *DevConfig `yaml:"dev,omitempty"`
}

// DelimiterConfig holds the single characters doubled to open and close a
// directive
type DelimiterConfig struct {
	Open  string `yaml:"open,omitempty"`
	Close string `yaml:"close,omitempty"`
}

// AttributeConfig overrides the data-hr-* attribute names
type AttributeConfig struct {
	Component      string `yaml:"component,omitempty"`
	Variant        string `yaml:"variant,omitempty"`
	Ignored        string `yaml:"ignored,omitempty"`
	Insert         string `yaml:"insert,omitempty"`
	ModelComponent string `yaml:"modelComponent,omitempty"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	// Server port
	Port int `yaml:"port,omitempty"`

	// Server host
	Host string `yaml:"host,omitempty"`

	// Data file rendered into the page on every reload
	Data string `yaml:"data,omitempty"`
}

// Load loads configuration from rapier.yaml in projectPath
func Load(projectPath string) (*Config, error) {
	return LoadFile(filepath.Join(projectPath, FileName))
}

// LoadFile loads configuration from a specific file. A missing file yields
// the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &config, nil
}

// Save saves configuration to rapier.yaml in projectPath
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, FileName), data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	escape := true
	attrs := component.DefaultAttributes()
	return &Config{
		Delimiters: &DelimiterConfig{Open: "{", Close: "}"},
		Escape:     &escape,
		Attributes: &AttributeConfig{
			Component:      attrs.Component,
			Variant:        attrs.Variant,
			Ignored:        attrs.Ignored,
			Insert:         attrs.Insert,
			ModelComponent: attrs.ModelComponent,
		},
		Dev: &DevConfig{
			Port: 8080,
			Host: "localhost",
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Delimiters == nil {
		config.Delimiters = defaults.Delimiters
	} else {
		if config.Delimiters.Open == "" {
			config.Delimiters.Open = defaults.Delimiters.Open
		}
		if config.Delimiters.Close == "" {
			config.Delimiters.Close = defaults.Delimiters.Close
		}
	}

	if config.Escape == nil {
		config.Escape = defaults.Escape
	}

	if config.Attributes == nil {
		config.Attributes = defaults.Attributes
	} else {
		a, d := config.Attributes, defaults.Attributes
		if a.Component == "" {
			a.Component = d.Component
		}
		if a.Variant == "" {
			a.Variant = d.Variant
		}
		if a.Ignored == "" {
			a.Ignored = d.Ignored
		}
		if a.Insert == "" {
			a.Insert = d.Insert
		}
		if a.ModelComponent == "" {
			a.ModelComponent = d.ModelComponent
		}
	}

	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Delimiters != nil {
		for _, d := range []string{c.Delimiters.Open, c.Delimiters.Close} {
			if utf8.RuneCountInString(d) != 1 {
				return fmt.Errorf("delimiter %q must be a single character", d)
			}
		}
		if c.Delimiters.Open == c.Delimiters.Close {
			return fmt.Errorf("open and close delimiters must differ")
		}
	}
	if c.Dev != nil && (c.Dev.Port < 0 || c.Dev.Port > 65535) {
		return fmt.Errorf("dev port %d out of range", c.Dev.Port)
	}
	return nil
}

// StreamOptions returns the template options described by the config
func (c *Config) StreamOptions() textstream.Options {
	opts := textstream.DefaultOptions()
	if c.Delimiters != nil {
		if r, _ := utf8.DecodeRuneInString(c.Delimiters.Open); r != utf8.RuneError {
			opts.Open = r
		}
		if r, _ := utf8.DecodeRuneInString(c.Delimiters.Close); r != utf8.RuneError {
			opts.Close = r
		}
	}
	if c.Escape != nil {
		opts.Escape = *c.Escape
	}
	return opts
}

// ComponentOptions returns gathering options for the config
func (c *Config) ComponentOptions() component.Options {
	opts := component.DefaultOptions()
	opts.Stream = c.StreamOptions()
	if a := c.Attributes; a != nil {
		opts.Attributes = component.Attributes{
			Component:      a.Component,
			Variant:        a.Variant,
			Ignored:        a.Ignored,
			Insert:         a.Insert,
			ModelComponent: a.ModelComponent,
		}
	}
	return opts
}

// Addr returns the dev server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Dev.Host, c.Dev.Port)
}
