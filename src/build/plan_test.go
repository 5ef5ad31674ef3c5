package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofmeright/droidplan/src/buildconf"
	"github.com/sofmeright/droidplan/src/provider"
)

func TestNewPlanFromDescriptor(t *testing.T) {
	cfg, err := buildconf.Load("../buildconf/testdata/build.gradle.kts", provider.FlutterDefaults())
	require.NoError(t, err)

	p := NewPlan(cfg, OutputAPK, OutputBundle)
	assert.Equal(t, []string{"assembleRelease", "bundleRelease"}, p.Tasks())
	assert.Equal(t, "com.truebargain.true_bargain", p.ApplicationID)
	assert.Equal(t, buildconf.PlatformVersions{Min: 21, Target: 35, Compile: 35}, p.SDK)

	step := p.Steps[1]
	assert.Equal(t, OutputBundle, step.Output)
	assert.True(t, step.MultiDex)
	assert.Equal(t, "debug", step.Signing)
	assert.False(t, step.Debuggable)
	assert.Equal(t, []buildconf.RuleFile{
		{Path: "proguard-android-optimize.txt", Default: true},
		{Path: "proguard-rules.pro"},
	}, step.Packaging.ObfuscationRuleFiles)
}

func TestNewPlanDefaultsToAPK(t *testing.T) {
	cfg := &buildconf.BuildConfiguration{
		ApplicationID: "com.example.app",
		BuildType:     "debug",
		BuildTypes: map[string]buildconf.BuildType{
			"debug": {Name: "debug", Debuggable: true},
		},
	}
	p := NewPlan(cfg)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, "assembleDebug", p.Steps[0].Task)
	assert.True(t, p.Steps[0].Debuggable)
}

func TestParseOutputMode(t *testing.T) {
	for in, want := range map[string]OutputMode{"apk": OutputAPK, "APK": OutputAPK, "aab": OutputBundle, "bundle": OutputBundle} {
		got, err := ParseOutputMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOutputMode("ipa")
	assert.ErrorContains(t, err, `unknown output mode "ipa"`)

	_, err = ParseOutputMode("")
	assert.ErrorContains(t, err, "must not be empty")
}

func TestTaskName(t *testing.T) {
	assert.Equal(t, "assembleStaging", TaskName(OutputAPK, "staging"))
	assert.Equal(t, "bundle", TaskName(OutputBundle, ""))
}
