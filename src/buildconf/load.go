package buildconf

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/sofmeright/droidplan/src/descriptor"
	"github.com/sofmeright/droidplan/src/provider"
)

// Build type and signing set names the Android Gradle plugin always defines.
const (
	BuildTypeDebug   = "debug"
	BuildTypeRelease = "release"
	SigningDebug     = "debug"
)

// Option configures a Load.
type Option func(*options)

type options struct {
	buildType string
	logger    *slog.Logger
}

// WithBuildType selects the variant to resolve. Default: release.
func WithBuildType(name string) Option {
	return func(o *options) { o.buildType = name }
}

// WithLogger sets the logger for debug output about ignored statements.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Load reads the descriptor at path and resolves it against p.
func Load(path string, p provider.Provider, opts ...Option) (*BuildConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	return Parse(path, data, p, opts...)
}

// Parse resolves descriptor source against p. It has no side effects;
// calling it twice with the same input yields equal configurations.
func Parse(name string, src []byte, p provider.Provider, opts ...Option) (*BuildConfiguration, error) {
	o := options{buildType: BuildTypeRelease}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p == nil {
		p = provider.Map{}
	}

	f, err := descriptor.Parse(name, src)
	if err != nil {
		le := &LoadError{Kind: ErrMalformedDescriptor, Pos: descriptor.Pos{File: name}, Err: err}
		var se *descriptor.SyntaxError
		if errors.As(err, &se) {
			le.Pos = se.Pos
			le.Msg = se.Msg
		}
		return nil, le
	}

	ev := newEvaluator(name, p, o.logger)
	if err := ev.file(f); err != nil {
		return nil, err
	}
	return ev.finish(o.buildType)
}

// fallbacks maps descriptor properties to the provider keys consulted when
// the descriptor leaves them unset.
var fallbacks = []struct {
	field string
	key   string
}{
	{"android.compileSdk", provider.KeyCompileSdkVersion},
	{"android.defaultConfig.minSdk", provider.KeyMinSdkVersion},
	{"android.defaultConfig.targetSdk", provider.KeyTargetSdkVersion},
	{"android.ndkVersion", provider.KeyNdkVersion},
	{"android.defaultConfig.versionCode", provider.KeyVersionCode},
	{"android.defaultConfig.versionName", provider.KeyVersionName},
}

func (ev *evaluator) finish(buildType string) (*BuildConfiguration, error) {
	cfg := ev.cfg
	filePos := descriptor.Pos{File: ev.name}

	if cfg.ApplicationID == "" {
		return nil, &LoadError{
			Kind:  ErrMissingRequiredField,
			Pos:   filePos,
			Field: "android.defaultConfig.applicationId",
			Msg:   "applicationId must be set",
		}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = cfg.ApplicationID
	}

	for _, fb := range fallbacks {
		if ev.set[fb.field] {
			continue
		}
		raw, ok := ev.p.Lookup(fb.key)
		if !ok {
			return nil, &LoadError{
				Kind:  ErrUnresolvedReference,
				Pos:   filePos,
				Field: fb.field,
				Msg:   fmt.Sprintf("not set and provider has no %s", fb.key),
			}
		}
		v := value{kind: kindString, text: raw, from: "flutter." + fb.key, pos: filePos}
		if err := ev.assignFallback(fb.field, v); err != nil {
			return nil, err
		}
	}

	if cfg.LanguageLevel == "" {
		cfg.LanguageLevel = DefaultLanguageLevel
	}
	if cfg.SourceLevel == "" {
		cfg.SourceLevel = DefaultLanguageLevel
	}

	bt, ok := cfg.BuildTypes[buildType]
	if !ok {
		return nil, &LoadError{
			Kind:  ErrUnknownBuildType,
			Pos:   filePos,
			Field: "android.buildTypes",
			Msg:   fmt.Sprintf("%q is not declared (have: %v)", buildType, cfg.BuildTypeNames()),
		}
	}
	cfg.BuildType = buildType

	// A debug-type build only consults its signing reference when the
	// descriptor sets one; otherwise it uses the implicit debug set.
	if bt.SigningRefSet && bt.SigningRef != "" {
		if _, ok := cfg.SigningConfigs[bt.SigningRef]; !ok {
			return nil, &LoadError{
				Kind:  ErrSigningConfigNotFound,
				Pos:   ev.signingPos[buildType],
				Field: "android.buildTypes." + buildType + ".signingConfig",
				Msg:   fmt.Sprintf("no signing config named %q", bt.SigningRef),
			}
		}
	}
	cfg.Signing = bt.SigningRef

	cfg.ReleasePackaging = cfg.BuildTypes[BuildTypeRelease].Packaging()
	return cfg, nil
}

func (ev *evaluator) assignFallback(field string, v value) error {
	cfg := ev.cfg
	var err error
	switch field {
	case "android.compileSdk":
		cfg.SDK.Compile, err = ev.asInt(field, v)
	case "android.defaultConfig.minSdk":
		cfg.SDK.Min, err = ev.asInt(field, v)
	case "android.defaultConfig.targetSdk":
		cfg.SDK.Target, err = ev.asInt(field, v)
	case "android.defaultConfig.versionCode":
		cfg.VersionCode, err = ev.asInt(field, v)
	case "android.ndkVersion":
		cfg.NDKVersion, err = ev.asString(field, v)
	case "android.defaultConfig.versionName":
		cfg.VersionName, err = ev.asString(field, v)
	}
	return err
}

// parseInt is strconv.Atoi with the error text trimmed to the value.
func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}
