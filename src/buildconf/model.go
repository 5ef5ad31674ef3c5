// Package buildconf resolves an Android build descriptor into an immutable
// BuildConfiguration for one build invocation.
package buildconf

import (
	"fmt"
	"sort"
	"strings"
)

// LanguageLevel constrains the Java source/target version of compiled code.
type LanguageLevel string

const (
	Java8  LanguageLevel = "1.8"
	Java11 LanguageLevel = "11"
	Java17 LanguageLevel = "17"
	Java21 LanguageLevel = "21"
)

// DefaultLanguageLevel is what the Android Gradle plugin assumes when
// compileOptions is absent.
const DefaultLanguageLevel = Java8

var languageLevels = map[string]LanguageLevel{
	"1.8": Java8, "8": Java8, "VERSION_1_8": Java8,
	"11": Java11, "VERSION_11": Java11,
	"17": Java17, "VERSION_17": Java17,
	"21": Java21, "VERSION_21": Java21,
}

// ParseLanguageLevel accepts "17", "1.8", "VERSION_17" or
// "JavaVersion.VERSION_17".
func ParseLanguageLevel(s string) (LanguageLevel, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "JavaVersion.")
	if l, ok := languageLevels[s]; ok {
		return l, nil
	}
	return "", fmt.Errorf("unknown Java language level %q (supported: 1.8, 11, 17, 21)", s)
}

// PlatformVersions binds the minimum, target and compile SDK API levels.
type PlatformVersions struct {
	Min     int `yaml:"min" toml:"min" json:"min"`
	Target  int `yaml:"target" toml:"target" json:"target"`
	Compile int `yaml:"compile" toml:"compile" json:"compile"`
}

// RuleFile is an obfuscation rule file handed to the packaging tool.
// Default marks files bundled with the Android Gradle plugin
// (getDefaultProguardFile) as opposed to project files.
type RuleFile struct {
	Path    string `yaml:"path" toml:"path" json:"path"`
	Default bool   `yaml:"default,omitempty" toml:"default,omitempty" json:"default,omitempty"`
}

func (r RuleFile) String() string {
	if r.Default {
		return "default:" + r.Path
	}
	return r.Path
}

// SigningConfig is a named signing credential set. Secrets are never
// retained; HasPasswords only records that the descriptor sets them.
type SigningConfig struct {
	Name         string `yaml:"name" toml:"name" json:"name"`
	StoreFile    string `yaml:"store_file,omitempty" toml:"store_file,omitempty" json:"store_file,omitempty"`
	KeyAlias     string `yaml:"key_alias,omitempty" toml:"key_alias,omitempty" json:"key_alias,omitempty"`
	HasPasswords bool   `yaml:"has_passwords,omitempty" toml:"has_passwords,omitempty" json:"has_passwords,omitempty"`
	// Implicit is true for the debug set the Android Gradle plugin always creates.
	Implicit bool `yaml:"implicit,omitempty" toml:"implicit,omitempty" json:"implicit,omitempty"`
	// LiteralPasswords is true when a password is written inline in the descriptor.
	LiteralPasswords bool `yaml:"literal_passwords,omitempty" toml:"literal_passwords,omitempty" json:"literal_passwords,omitempty"`
}

// BuildType holds the per-variant packaging settings.
type BuildType struct {
	Name                 string     `yaml:"name" toml:"name" json:"name"`
	Debuggable           bool       `yaml:"debuggable" toml:"debuggable" json:"debuggable"`
	Minify               bool       `yaml:"minify" toml:"minify" json:"minify"`
	ShrinkResources      bool       `yaml:"shrink_resources" toml:"shrink_resources" json:"shrink_resources"`
	ObfuscationRuleFiles []RuleFile `yaml:"obfuscation_rule_files,omitempty" toml:"obfuscation_rule_files,omitempty" json:"obfuscation_rule_files,omitempty"`
	// SigningRef names a SigningConfig. SigningRefSet is true only when the
	// descriptor assigns signingConfig explicitly.
	SigningRef    string `yaml:"signing_ref,omitempty" toml:"signing_ref,omitempty" json:"signing_ref,omitempty"`
	SigningRefSet bool   `yaml:"signing_ref_set,omitempty" toml:"signing_ref_set,omitempty" json:"signing_ref_set,omitempty"`
}

// IsRelease reports whether the build type produces a release-type artifact.
func (b BuildType) IsRelease() bool { return !b.Debuggable }

// PackagingOptions are the shrinking and obfuscation flags for one build type.
type PackagingOptions struct {
	Minify               bool       `yaml:"minify" toml:"minify" json:"minify"`
	ShrinkResources      bool       `yaml:"shrink_resources" toml:"shrink_resources" json:"shrink_resources"`
	ObfuscationRuleFiles []RuleFile `yaml:"obfuscation_rule_files" toml:"obfuscation_rule_files" json:"obfuscation_rule_files"`
}

// Packaging returns the packaging options of the build type.
func (b BuildType) Packaging() PackagingOptions {
	return PackagingOptions{
		Minify:               b.Minify,
		ShrinkResources:      b.ShrinkResources,
		ObfuscationRuleFiles: append([]RuleFile(nil), b.ObfuscationRuleFiles...),
	}
}

// BuildConfiguration is the resolved descriptor for one build invocation.
// It is built once by Load and never mutated afterwards.
type BuildConfiguration struct {
	ApplicationID string           `yaml:"application_id" toml:"application_id" json:"application_id"`
	Namespace     string           `yaml:"namespace" toml:"namespace" json:"namespace"`
	SDK           PlatformVersions `yaml:"sdk" toml:"sdk" json:"sdk"`
	NDKVersion    string           `yaml:"ndk_version" toml:"ndk_version" json:"ndk_version"`
	VersionCode   int              `yaml:"version_code" toml:"version_code" json:"version_code"`
	VersionName   string           `yaml:"version_name" toml:"version_name" json:"version_name"`

	// LanguageLevel is the targetCompatibility; SourceLevel the sourceCompatibility.
	LanguageLevel LanguageLevel `yaml:"language_level" toml:"language_level" json:"language_level"`
	SourceLevel   LanguageLevel `yaml:"source_level" toml:"source_level" json:"source_level"`
	JVMTarget     string        `yaml:"jvm_target,omitempty" toml:"jvm_target,omitempty" json:"jvm_target,omitempty"`

	MultiDexEnabled bool     `yaml:"multidex_enabled" toml:"multidex_enabled" json:"multidex_enabled"`
	Plugins         []string `yaml:"plugins,omitempty" toml:"plugins,omitempty" json:"plugins,omitempty"`
	FlutterSource   string   `yaml:"flutter_source,omitempty" toml:"flutter_source,omitempty" json:"flutter_source,omitempty"`

	SigningConfigs map[string]SigningConfig `yaml:"signing_configs" toml:"signing_configs" json:"signing_configs"`
	BuildTypes     map[string]BuildType     `yaml:"build_types" toml:"build_types" json:"build_types"`

	// BuildType is the variant requested for this invocation and Signing the
	// signing set it resolves to ("" means unsigned).
	BuildType string `yaml:"build_type" toml:"build_type" json:"build_type"`
	Signing   string `yaml:"signing,omitempty" toml:"signing,omitempty" json:"signing,omitempty"`

	// ReleasePackaging mirrors the release build type's packaging options.
	ReleasePackaging PackagingOptions `yaml:"release_packaging" toml:"release_packaging" json:"release_packaging"`
}

// Selected returns the build type requested for this invocation.
func (c *BuildConfiguration) Selected() BuildType {
	return c.BuildTypes[c.BuildType]
}

// BuildTypeNames returns the declared build types in sorted order.
func (c *BuildConfiguration) BuildTypeNames() []string {
	names := make([]string, 0, len(c.BuildTypes))
	for n := range c.BuildTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
