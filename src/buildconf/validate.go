package buildconf

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Plugin IDs whose order matters: the Flutter plugin must come after the
// Android and Kotlin plugins.
const (
	PluginAndroidApplication = "com.android.application"
	PluginFlutter            = "dev.flutter.flutter-gradle-plugin"
)

var kotlinPluginIDs = []string{"kotlin-android", "org.jetbrains.kotlin.android"}

// applicationIDRe is the Android package name grammar: two or more
// dot-separated segments, each starting with a letter.
var applicationIDRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)+$`)

// Validate checks structural invariants of a loaded BuildConfiguration.
// Returns warnings (soft issues) and a hard error if the configuration can
// not be packaged. SDK ordering is normally guaranteed by the provider; it is
// re-checked here because descriptors may override individual levels.
func Validate(cfg *BuildConfiguration) (warnings []string, err error) {
	var errs []string

	// ── Identity ──────────────────────────────────────────────────────────

	if !applicationIDRe.MatchString(cfg.ApplicationID) {
		errs = append(errs, fmt.Sprintf("applicationId: %q is not a reverse-domain package name", cfg.ApplicationID))
	}
	if cfg.Namespace != "" && !applicationIDRe.MatchString(cfg.Namespace) {
		errs = append(errs, fmt.Sprintf("namespace: %q is not a valid package name", cfg.Namespace))
	}
	if cfg.VersionCode <= 0 {
		errs = append(errs, fmt.Sprintf("versionCode: must be positive, got %d", cfg.VersionCode))
	}

	// ── SDK levels ────────────────────────────────────────────────────────

	sdk := cfg.SDK
	if sdk.Min <= 0 || sdk.Target <= 0 || sdk.Compile <= 0 {
		errs = append(errs, fmt.Sprintf("sdk: levels must be positive (min %d, target %d, compile %d)", sdk.Min, sdk.Target, sdk.Compile))
	} else {
		if sdk.Min > sdk.Target {
			errs = append(errs, fmt.Sprintf("sdk: minSdk %d is above targetSdk %d", sdk.Min, sdk.Target))
		}
		if sdk.Target > sdk.Compile {
			errs = append(errs, fmt.Sprintf("sdk: targetSdk %d is above compileSdk %d", sdk.Target, sdk.Compile))
		}
	}
	if cfg.MultiDexEnabled && sdk.Min >= 21 {
		warnings = append(warnings, fmt.Sprintf("multiDexEnabled: redundant with minSdk %d (native multidex from API 21)", sdk.Min))
	}

	// ── Java ──────────────────────────────────────────────────────────────

	if cfg.SourceLevel != cfg.LanguageLevel {
		warnings = append(warnings, fmt.Sprintf("compileOptions: sourceCompatibility %s differs from targetCompatibility %s", cfg.SourceLevel, cfg.LanguageLevel))
	}
	if cfg.JVMTarget != "" && cfg.JVMTarget != string(cfg.LanguageLevel) {
		warnings = append(warnings, fmt.Sprintf("kotlinOptions: jvmTarget %s differs from targetCompatibility %s", cfg.JVMTarget, cfg.LanguageLevel))
	}

	// ── Plugins ───────────────────────────────────────────────────────────

	if flutterIdx := slices.Index(cfg.Plugins, PluginFlutter); flutterIdx >= 0 {
		androidIdx := slices.Index(cfg.Plugins, PluginAndroidApplication)
		if androidIdx < 0 {
			errs = append(errs, fmt.Sprintf("plugins: %s requires %s", PluginFlutter, PluginAndroidApplication))
		} else if androidIdx > flutterIdx {
			errs = append(errs, fmt.Sprintf("plugins: %s must be applied after %s", PluginFlutter, PluginAndroidApplication))
		}
		for _, k := range kotlinPluginIDs {
			if i := slices.Index(cfg.Plugins, k); i > flutterIdx {
				errs = append(errs, fmt.Sprintf("plugins: %s must be applied after %s", PluginFlutter, k))
			}
		}
	}

	// ── Build types ───────────────────────────────────────────────────────

	for _, name := range cfg.BuildTypeNames() {
		bt := cfg.BuildTypes[name]
		path := "buildTypes." + name

		if bt.ShrinkResources && !bt.Minify {
			errs = append(errs, fmt.Sprintf("%s: isShrinkResources requires isMinifyEnabled", path))
		}
		if bt.Minify && len(bt.ObfuscationRuleFiles) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: minify enabled without proguard rule files", path))
		}
		if bt.IsRelease() && bt.SigningRef == SigningDebug {
			warnings = append(warnings, fmt.Sprintf("%s: signed with the debug credential; configure a release signing config before publishing", path))
		}
		if bt.SigningRefSet && bt.SigningRef != "" {
			if _, ok := cfg.SigningConfigs[bt.SigningRef]; !ok && name != cfg.BuildType {
				warnings = append(warnings, fmt.Sprintf("%s: signingConfig %q is not declared", path, bt.SigningRef))
			}
		}
	}

	for _, name := range sortedKeys(cfg.SigningConfigs) {
		if cfg.SigningConfigs[name].LiteralPasswords {
			warnings = append(warnings, fmt.Sprintf("signingConfigs.%s: password written inline; load it from a properties file", name))
		}
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return warnings, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
