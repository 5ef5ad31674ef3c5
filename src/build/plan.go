package build

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sofmeright/droidplan/src/buildconf"
)

// OutputMode describes what the packaging tool produces.
type OutputMode string

const (
	OutputAPK    OutputMode = "apk"    // installable package (assemble task)
	OutputBundle OutputMode = "bundle" // Android App Bundle (bundle task)
)

// ParseOutputMode validates an output mode name.
func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(strings.ToLower(s)) {
	case "":
		return "", errors.New("build: output mode must not be empty (supported: apk, bundle)")
	case OutputAPK:
		return OutputAPK, nil
	case OutputBundle, "aab":
		return OutputBundle, nil
	}
	return "", fmt.Errorf("build: unknown output mode %q (supported: apk, bundle)", s)
}

// BuildPlan is the resolved handoff to the packaging tool. Everything the
// tool needs is copied out of the BuildConfiguration so the plan can be
// serialised on its own.
type BuildPlan struct {
	ApplicationID string                     `yaml:"application_id" toml:"application_id" json:"application_id"`
	Namespace     string                     `yaml:"namespace" toml:"namespace" json:"namespace"`
	VersionCode   int                        `yaml:"version_code" toml:"version_code" json:"version_code"`
	VersionName   string                     `yaml:"version_name" toml:"version_name" json:"version_name"`
	SDK           buildconf.PlatformVersions `yaml:"sdk" toml:"sdk" json:"sdk"`
	NDKVersion    string                     `yaml:"ndk_version" toml:"ndk_version" json:"ndk_version"`
	LanguageLevel buildconf.LanguageLevel    `yaml:"language_level" toml:"language_level" json:"language_level"`
	Steps         []BuildStep                `yaml:"steps" toml:"steps" json:"steps"`
}

// BuildStep is a single packaging tool invocation.
type BuildStep struct {
	Task       string                     `yaml:"task" toml:"task" json:"task"`
	BuildType  string                     `yaml:"build_type" toml:"build_type" json:"build_type"`
	Output     OutputMode                 `yaml:"output" toml:"output" json:"output"`
	MultiDex   bool                       `yaml:"multidex" toml:"multidex" json:"multidex"`
	Packaging  buildconf.PackagingOptions `yaml:"packaging" toml:"packaging" json:"packaging"`
	Signing    string                     `yaml:"signing,omitempty" toml:"signing,omitempty" json:"signing,omitempty"`
	Debuggable bool                       `yaml:"debuggable" toml:"debuggable" json:"debuggable"`
}

// NewPlan builds one step per requested output for the configuration's
// selected build type. With no outputs an APK step is planned.
func NewPlan(cfg *buildconf.BuildConfiguration, outputs ...OutputMode) *BuildPlan {
	if len(outputs) == 0 {
		outputs = []OutputMode{OutputAPK}
	}

	bt := cfg.Selected()
	p := &BuildPlan{
		ApplicationID: cfg.ApplicationID,
		Namespace:     cfg.Namespace,
		VersionCode:   cfg.VersionCode,
		VersionName:   cfg.VersionName,
		SDK:           cfg.SDK,
		NDKVersion:    cfg.NDKVersion,
		LanguageLevel: cfg.LanguageLevel,
	}
	for _, out := range outputs {
		p.Steps = append(p.Steps, BuildStep{
			Task:       TaskName(out, cfg.BuildType),
			BuildType:  cfg.BuildType,
			Output:     out,
			MultiDex:   cfg.MultiDexEnabled,
			Packaging:  bt.Packaging(),
			Signing:    cfg.Signing,
			Debuggable: bt.Debuggable,
		})
	}
	return p
}

// TaskName returns the Gradle task for an output and build type,
// e.g. assembleRelease or bundleStaging.
func TaskName(out OutputMode, buildType string) string {
	verb := "assemble"
	if out == OutputBundle {
		verb = "bundle"
	}
	if buildType == "" {
		return verb
	}
	r := []rune(buildType)
	r[0] = unicode.ToUpper(r[0])
	return verb + string(r)
}

// Tasks lists the Gradle tasks of all steps in order.
func (p *BuildPlan) Tasks() []string {
	tasks := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		tasks[i] = s.Task
	}
	return tasks
}
