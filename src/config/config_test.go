package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/droidplan/src/provider"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ".droidplan.yml"))
	require.NoError(t, err)
	assert.Equal(t, defaults(), cfg)
}

func TestLoadMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".droidplan.yml", `build_type: staging
outputs: [apk, bundle]
provider:
  values:
    minSdkVersion: "24"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "android/app/build.gradle.kts", cfg.Descriptor)
	assert.Equal(t, "staging", cfg.BuildType)
	assert.Equal(t, []string{"apk", "bundle"}, cfg.Outputs)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, map[string]string{"minSdkVersion": "24"}, cfg.Provider.Values)
	assert.True(t, cfg.Provider.FlutterDefaults)
	assert.Equal(t, "pubspec.yaml", cfg.Provider.Pubspec)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".droidplan.yml", "format: xml\noutputs: [ipa]\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `format: unknown format "xml"`)
	assert.Contains(t, err.Error(), `outputs[0]: unknown output "ipa"`)
}

func TestProviderBuildOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "android/local.properties", "flutter.minSdkVersion=22\nflutter.versionCode=3\n")
	writeFile(t, dir, "pubspec.yaml", "name: app\nversion: 2.0.0+9\n")

	pc := DefaultProviderConfig()
	pc.Values = map[string]string{provider.KeyMinSdkVersion: "26"}

	chain, err := pc.Build(dir, nil)
	require.NoError(t, err)

	lookup := func(k string) string {
		v, ok := chain.Lookup(k)
		require.True(t, ok, k)
		return v
	}
	assert.Equal(t, "26", lookup(provider.KeyMinSdkVersion))
	assert.Equal(t, "3", lookup(provider.KeyVersionCode))
	assert.Equal(t, "2.0.0", lookup(provider.KeyVersionName))
	assert.Equal(t, "35", lookup(provider.KeyCompileSdkVersion))
}

func TestProviderBuildSkipsMissingSources(t *testing.T) {
	pc := DefaultProviderConfig()
	pc.FlutterDefaults = false

	chain, err := pc.Build(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestProviderBuildFailsOnBrokenSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pubspec.yaml", "version: not-a-version\n")

	_, err := DefaultProviderConfig().Build(dir, nil)
	assert.ErrorContains(t, err, "invalid version")
}

func TestProviderBuildLogsFileKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "android/local.properties", "flutter.versionCode=3\nflutter.minSdkVersion=22\n")

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	pc := DefaultProviderConfig()
	pc.Pubspec = ""
	_, err := pc.Build(dir, log)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `keys="[minSdkVersion versionCode]"`)
}
