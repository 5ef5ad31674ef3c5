package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".droidplan.yml"

// Output formats understood by the resolve command.
var Formats = []string{"text", "yaml", "toml", "json"}

// Config is the top-level droidplan configuration.
type Config struct {
	// Descriptor is the build descriptor path. Default: android/app/build.gradle.kts.
	Descriptor string `yaml:"descriptor"`

	// BuildType is the variant to resolve. Default: release.
	BuildType string `yaml:"build_type"`

	// Outputs lists packaging outputs to plan: apk, bundle. Default: [apk].
	Outputs []string `yaml:"outputs"`

	// Format is the resolve output format. Default: text.
	Format string `yaml:"format"`

	// Audit enables the inline-credential scan of the descriptor.
	Audit bool `yaml:"audit"`

	Provider ProviderConfig `yaml:"provider"`
}

// Load reads configuration from a YAML file.
// If path is empty, it tries the default file.
// Returns sensible defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values that yaml decoding cannot.
func (c *Config) Validate() error {
	var errs []string

	if c.Descriptor == "" {
		errs = append(errs, "descriptor: must not be empty")
	}
	if c.BuildType == "" {
		errs = append(errs, "build_type: must not be empty")
	}
	if !slices.Contains(Formats, c.Format) {
		errs = append(errs, fmt.Sprintf("format: unknown format %q (supported: %s)", c.Format, strings.Join(Formats, ", ")))
	}
	for i, o := range c.Outputs {
		if o != "apk" && o != "bundle" {
			errs = append(errs, fmt.Sprintf("outputs[%d]: unknown output %q (supported: apk, bundle)", i, o))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Descriptor: "android/app/build.gradle.kts",
		BuildType:  "release",
		Outputs:    []string{"apk"},
		Format:     "text",
		Audit:      true,
		Provider:   DefaultProviderConfig(),
	}
}
