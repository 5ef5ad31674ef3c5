package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magiconair/properties"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// flutterPrefix is stripped from keys so that both
// `flutter.minSdkVersion=23` and `minSdkVersion: 23` resolve the same way.
const flutterPrefix = "flutter."

// LoadFile reads a provider file. The format is picked by extension:
// .yml/.yaml, .toml, or .properties (local.properties style).
func LoadFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Map
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		m, err = parseYAML(data)
	case ".toml":
		m, err = parseTOML(data)
	case ".properties":
		m, err = parseProperties(data)
	default:
		return nil, fmt.Errorf("provider: unsupported file type %q (want .yaml, .toml or .properties)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("provider: parse %s: %w", path, err)
	}
	return m, nil
}

func parseYAML(data []byte) (Map, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return normalize(raw), nil
}

func parseTOML(data []byte) (Map, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return normalize(raw), nil
}

func normalize(raw map[string]any) Map {
	flat := Map{}
	flatten("", raw, flat)
	out := make(Map, len(flat))
	for k, v := range flat {
		out[strings.TrimPrefix(k, flutterPrefix)] = v
	}
	return out
}

// parseProperties reads a Java properties file such as local.properties.
// ${key} references are kept verbatim; Gradle does not expand them either.
func parseProperties(data []byte) (Map, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	out := Map{}
	for k, v := range p.Map() {
		out[strings.TrimPrefix(k, flutterPrefix)] = v
	}
	return out, nil
}
