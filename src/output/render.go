package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sofmeright/droidplan/src/build"
	"github.com/sofmeright/droidplan/src/buildconf"
)

// Encode writes v in a machine-readable format: yaml, toml or json.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Resolved is the document written by the resolve command.
type Resolved struct {
	Configuration *buildconf.BuildConfiguration `yaml:"configuration" toml:"configuration" json:"configuration"`
	Plan          *build.BuildPlan              `yaml:"plan" toml:"plan" json:"plan"`
	Warnings      []string                      `yaml:"warnings,omitempty" toml:"warnings,omitempty" json:"warnings,omitempty"`
}

// SectionConfig renders the resolved configuration.
func SectionConfig(sec *Section, cfg *buildconf.BuildConfiguration) {
	sec.Field("application id", cfg.ApplicationID)
	sec.Field("namespace", cfg.Namespace)
	sec.Field("version", fmt.Sprintf("%s (%d)", cfg.VersionName, cfg.VersionCode))
	sec.Field("sdk", fmt.Sprintf("min %d, target %d, compile %d", cfg.SDK.Min, cfg.SDK.Target, cfg.SDK.Compile))
	sec.Field("ndk", cfg.NDKVersion)
	sec.Field("java", fmt.Sprintf("source %s, target %s", cfg.SourceLevel, cfg.LanguageLevel))
	if cfg.JVMTarget != "" {
		sec.Field("jvm target", cfg.JVMTarget)
	}
	sec.Field("multidex", cfg.MultiDexEnabled)
	sec.Field("plugins", strings.Join(cfg.Plugins, ", "))
	if cfg.FlutterSource != "" {
		sec.Field("flutter source", cfg.FlutterSource)
	}

	sec.Separator()
	for _, name := range cfg.BuildTypeNames() {
		bt := cfg.BuildTypes[name]
		label := name
		if name == cfg.BuildType {
			label += " *"
		}
		sec.Field(label, describeBuildType(bt))
	}
}

func describeBuildType(bt buildconf.BuildType) string {
	var parts []string
	if bt.Debuggable {
		parts = append(parts, "debuggable")
	}
	if bt.Minify {
		parts = append(parts, "minify")
	}
	if bt.ShrinkResources {
		parts = append(parts, "shrink")
	}
	if bt.SigningRef != "" {
		parts = append(parts, "signed by "+bt.SigningRef)
	} else {
		parts = append(parts, "unsigned")
	}
	for _, r := range bt.ObfuscationRuleFiles {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

// SectionPlan renders the packaging steps of a plan.
func SectionPlan(sec *Section, p *build.BuildPlan, color bool) {
	for _, step := range p.Steps {
		signing := step.Signing
		if signing == "" {
			signing = "unsigned"
		}
		sec.Row("%-22s%-8s%s", step.Task, step.Output, Dimmed("signing: "+signing, color))
	}
}
