// Package provider supplies the shared platform configuration that a build
// descriptor refers to through flutter.* properties: SDK levels, NDK version
// and the application version.
//
// Providers are passed explicitly into the loader. Nothing here is global.
package provider

import (
	"sort"
	"strconv"
)

// Well-known keys.
const (
	KeyCompileSdkVersion = "compileSdkVersion"
	KeyMinSdkVersion     = "minSdkVersion"
	KeyTargetSdkVersion  = "targetSdkVersion"
	KeyVersionCode       = "versionCode"
	KeyVersionName       = "versionName"
	KeyNdkVersion        = "ndkVersion"
)

// Provider resolves a shared configuration value by key.
type Provider interface {
	Lookup(key string) (string, bool)
}

// Map is a static provider.
type Map map[string]string

// Lookup implements Provider.
func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the sorted keys.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Chain consults each provider in order and returns the first hit.
type Chain []Provider

// Lookup implements Provider.
func (c Chain) Lookup(key string) (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if v, ok := p.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// FlutterDefaults returns the values the Flutter Gradle plugin ships with
// when a project does not override them.
func FlutterDefaults() Map {
	return Map{
		KeyCompileSdkVersion: "35",
		KeyMinSdkVersion:     "21",
		KeyTargetSdkVersion:  "35",
		KeyNdkVersion:        "27.0.12077973",
		KeyVersionCode:       "1",
		KeyVersionName:       "1.0.0",
	}
}

// flatten converts decoded YAML/TOML values into provider strings.
// Nested maps are joined with dots.
func flatten(prefix string, in map[string]any, out Map) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case int:
			out[key] = strconv.Itoa(val)
		case int64:
			out[key] = strconv.FormatInt(val, 10)
		case uint64:
			out[key] = strconv.FormatUint(val, 10)
		case float64:
			out[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(val)
		case nil:
		}
	}
}
