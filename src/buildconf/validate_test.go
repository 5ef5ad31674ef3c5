package buildconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *BuildConfiguration {
	return &BuildConfiguration{
		ApplicationID: "com.example.app",
		Namespace:     "com.example.app",
		SDK:           PlatformVersions{Min: 23, Target: 35, Compile: 35},
		VersionCode:   1,
		LanguageLevel: Java17,
		SourceLevel:   Java17,
		Plugins:       []string{PluginAndroidApplication, "kotlin-android", PluginFlutter},
		SigningConfigs: map[string]SigningConfig{
			SigningDebug: {Name: SigningDebug, Implicit: true},
			"upload":     {Name: "upload", StoreFile: "upload.jks"},
		},
		BuildTypes: map[string]BuildType{
			BuildTypeDebug: {Name: BuildTypeDebug, Debuggable: true, SigningRef: SigningDebug},
			BuildTypeRelease: {
				Name:                 BuildTypeRelease,
				Minify:               true,
				ShrinkResources:      true,
				ObfuscationRuleFiles: []RuleFile{{Path: "proguard-rules.pro"}},
				SigningRef:           "upload",
				SigningRefSet:        true,
			},
		},
		BuildType: BuildTypeRelease,
		Signing:   "upload",
	}
}

func TestValidateClean(t *testing.T) {
	warnings, err := Validate(validConfig())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateFlutterDescriptor(t *testing.T) {
	cfg, err := Load(flutterDescriptor, flutterProvider())
	require.NoError(t, err)

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	assert.Contains(t, warnings, "buildTypes.release: signed with the debug credential; configure a release signing config before publishing")
	assert.Contains(t, warnings, "multiDexEnabled: redundant with minSdk 23 (native multidex from API 21)")
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BuildConfiguration)
		want   string
	}{
		{
			name:   "min above target",
			mutate: func(c *BuildConfiguration) { c.SDK.Min = 36 },
			want:   "minSdk 36 is above targetSdk 35",
		},
		{
			name:   "target above compile",
			mutate: func(c *BuildConfiguration) { c.SDK.Compile = 34 },
			want:   "targetSdk 35 is above compileSdk 34",
		},
		{
			name:   "single segment application id",
			mutate: func(c *BuildConfiguration) { c.ApplicationID = "app" },
			want:   "not a reverse-domain package name",
		},
		{
			name:   "segment starting with digit",
			mutate: func(c *BuildConfiguration) { c.ApplicationID = "com.1example" },
			want:   "not a reverse-domain package name",
		},
		{
			name: "flutter plugin before android",
			mutate: func(c *BuildConfiguration) {
				c.Plugins = []string{PluginFlutter, PluginAndroidApplication}
			},
			want: "must be applied after com.android.application",
		},
		{
			name: "shrink without minify",
			mutate: func(c *BuildConfiguration) {
				bt := c.BuildTypes[BuildTypeRelease]
				bt.Minify = false
				c.BuildTypes[BuildTypeRelease] = bt
			},
			want: "isShrinkResources requires isMinifyEnabled",
		},
		{
			name:   "zero version code",
			mutate: func(c *BuildConfiguration) { c.VersionCode = 0 },
			want:   "versionCode: must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := validConfig()
	cfg.SourceLevel = Java11
	cfg.JVMTarget = "11"
	cfg.SigningConfigs["upload"] = SigningConfig{Name: "upload", LiteralPasswords: true}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"compileOptions: sourceCompatibility 11 differs from targetCompatibility 17",
		"kotlinOptions: jvmTarget 11 differs from targetCompatibility 17",
		"signingConfigs.upload: password written inline; load it from a properties file",
	}, warnings)
}
