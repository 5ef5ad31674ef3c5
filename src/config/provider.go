package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/sofmeright/droidplan/src/provider"
)

// ProviderConfig lists where flutter.* values come from. Sources are
// consulted in this order: values, files, pubspec, git, flutter defaults.
type ProviderConfig struct {
	// Values are inline overrides, e.g. {minSdkVersion: "23"}.
	Values map[string]string `yaml:"values,omitempty"`

	// Files are provider files (.yaml, .toml, .properties). Missing files
	// are skipped. Default: [android/local.properties].
	Files []string `yaml:"files,omitempty"`

	// Pubspec is the Flutter pubspec supplying versionName/versionCode.
	// Skipped when absent. Default: pubspec.yaml.
	Pubspec string `yaml:"pubspec,omitempty"`

	// Git derives the version from repository tags when true.
	Git bool `yaml:"git,omitempty"`

	// FlutterDefaults appends the stock Flutter SDK values. Default: true.
	FlutterDefaults bool `yaml:"flutter_defaults"`
}

// DefaultProviderConfig returns the provider sources a Flutter project
// has out of the box.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Files:           []string{"android/local.properties"},
		Pubspec:         "pubspec.yaml",
		FlutterDefaults: true,
	}
}

// Build assembles the provider chain. Relative paths are resolved against
// baseDir. Sources that do not exist are skipped; sources that exist but do
// not parse are errors.
func (pc ProviderConfig) Build(baseDir string, log *slog.Logger) (provider.Chain, error) {
	if log == nil {
		log = slog.Default()
	}
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	var chain provider.Chain
	if len(pc.Values) > 0 {
		chain = append(chain, provider.Map(pc.Values))
	}

	for _, f := range pc.Files {
		m, err := provider.LoadFile(abs(f))
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("provider file not found, skipping", "path", f)
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Debug("loaded provider file", "path", f, "keys", m.Keys())
		chain = append(chain, m)
	}

	if pc.Pubspec != "" {
		m, err := provider.Pubspec(abs(pc.Pubspec))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug("pubspec not found, skipping", "path", pc.Pubspec)
		case errors.Is(err, provider.ErrNoVersion):
			log.Debug("pubspec has no version, skipping", "path", pc.Pubspec)
		case err != nil:
			return nil, err
		default:
			chain = append(chain, m)
		}
	}

	if pc.Git {
		m, err := provider.Git(baseDir)
		if err != nil {
			return nil, fmt.Errorf("git version provider: %w", err)
		}
		chain = append(chain, m)
	}

	if pc.FlutterDefaults {
		chain = append(chain, provider.FlutterDefaults())
	}
	return chain, nil
}
