package buildconf

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sofmeright/droidplan/src/descriptor"
	"github.com/sofmeright/droidplan/src/provider"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindNull
	kindJava        // JavaVersion.VERSION_17
	kindSigning     // signingConfigs.getByName("x")
	kindDefaultRule // getDefaultProguardFile("x")
	kindDynamic     // computed at Gradle configuration time, e.g. props["x"]
)

var kindNames = map[valueKind]string{
	kindString:      "string",
	kindInt:         "integer",
	kindBool:        "boolean",
	kindNull:        "null",
	kindJava:        "JavaVersion",
	kindSigning:     "signing config",
	kindDefaultRule: "default proguard file",
	kindDynamic:     "dynamic expression",
}

type value struct {
	kind valueKind
	text string
	from string // provider reference the value came from, if any
	pos  descriptor.Pos
}

type evaluator struct {
	name string
	p    provider.Provider
	log  *slog.Logger
	cfg  *BuildConfiguration

	set        map[string]bool
	vars       map[string]descriptor.Expr
	signingPos map[string]descriptor.Pos
	depth      int
}

func newEvaluator(name string, p provider.Provider, log *slog.Logger) *evaluator {
	return &evaluator{
		name: name,
		p:    p,
		log:  log,
		cfg: &BuildConfiguration{
			SigningConfigs: map[string]SigningConfig{
				SigningDebug: {Name: SigningDebug, Implicit: true},
			},
			BuildTypes: map[string]BuildType{
				BuildTypeDebug:   {Name: BuildTypeDebug, Debuggable: true, SigningRef: SigningDebug},
				BuildTypeRelease: {Name: BuildTypeRelease},
			},
		},
		set:        map[string]bool{},
		vars:       map[string]descriptor.Expr{},
		signingPos: map[string]descriptor.Pos{},
	}
}

func (ev *evaluator) malformed(pos descriptor.Pos, field, format string, args ...any) error {
	return &LoadError{Kind: ErrMalformedDescriptor, Pos: pos, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (ev *evaluator) unresolved(pos descriptor.Pos, field, format string, args ...any) error {
	return &LoadError{Kind: ErrUnresolvedReference, Pos: pos, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (ev *evaluator) ignore(s *descriptor.Stmt, scope string) {
	name := s.Name()
	if s.Kind == descriptor.StmtExpr {
		name = s.Value.String()
	}
	ev.log.Debug("ignoring statement", "scope", scope, "statement", name, "pos", s.Pos.String())
}

// ── top level ─────────────────────────────────────────────────────────────

func (ev *evaluator) file(f *descriptor.File) error {
	for _, s := range f.Stmts {
		var err error
		switch {
		case s.Kind == descriptor.StmtDecl:
			ev.vars[s.Path[0]] = s.Value
		case s.Name() == "plugins" && s.HasBody:
			err = ev.plugins(s.Body)
		case s.Name() == "android" && s.HasBody:
			err = ev.android(s.Body)
		case s.Name() == "flutter" && s.HasBody:
			err = ev.flutter(s.Body)
		default:
			ev.ignore(s, "")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) plugins(body []*descriptor.Stmt) error {
	for _, s := range body {
		if s.Kind != descriptor.StmtInvoke || len(s.Args) != 1 || (s.Name() != "id" && s.Name() != "kotlin") {
			ev.ignore(s, "plugins")
			continue
		}
		v, err := ev.eval("plugins."+s.Name(), s.Args[0])
		if err != nil {
			return err
		}
		id, err := ev.asString("plugins."+s.Name(), v)
		if err != nil {
			return err
		}
		if s.Name() == "kotlin" {
			id = "org.jetbrains.kotlin." + id
		}
		ev.cfg.Plugins = append(ev.cfg.Plugins, id)
	}
	return nil
}

func (ev *evaluator) flutter(body []*descriptor.Stmt) error {
	for _, s := range body {
		if s.Name() != "source" {
			ev.ignore(s, "flutter")
			continue
		}
		v, err := ev.property("flutter.source", s)
		if err != nil {
			return err
		}
		if ev.cfg.FlutterSource, err = ev.asString("flutter.source", v); err != nil {
			return err
		}
	}
	return nil
}

// ── android ───────────────────────────────────────────────────────────────

func (ev *evaluator) android(body []*descriptor.Stmt) error {
	cfg := ev.cfg
	for _, s := range body {
		var err error
		switch s.Name() {
		case "namespace":
			err = ev.setString("android.namespace", s, &cfg.Namespace)
		case "compileSdk", "compileSdkVersion":
			err = ev.setInt("android.compileSdk", s, &cfg.SDK.Compile)
		case "ndkVersion":
			err = ev.setString("android.ndkVersion", s, &cfg.NDKVersion)
		case "compileOptions":
			err = ev.compileOptions(s)
		case "kotlinOptions":
			err = ev.kotlinOptions(s)
		case "defaultConfig":
			err = ev.defaultConfig(s)
		case "signingConfigs":
			err = ev.signingConfigs(s)
		case "buildTypes":
			err = ev.buildTypes(s)
		default:
			ev.ignore(s, "android")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) compileOptions(s *descriptor.Stmt) error {
	for _, st := range s.Body {
		var (
			dst   *LanguageLevel
			field = "android.compileOptions." + st.Name()
		)
		switch st.Name() {
		case "sourceCompatibility":
			dst = &ev.cfg.SourceLevel
		case "targetCompatibility":
			dst = &ev.cfg.LanguageLevel
		default:
			ev.ignore(st, "compileOptions")
			continue
		}
		v, err := ev.property(field, st)
		if err != nil {
			return err
		}
		if *dst, err = ev.asJava(field, v); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) kotlinOptions(s *descriptor.Stmt) error {
	for _, st := range s.Body {
		if st.Name() != "jvmTarget" {
			ev.ignore(st, "kotlinOptions")
			continue
		}
		field := "android.kotlinOptions.jvmTarget"
		v, err := ev.property(field, st)
		if err != nil {
			return err
		}
		if v.kind == kindJava {
			l, err := ev.asJava(field, v)
			if err != nil {
				return err
			}
			ev.cfg.JVMTarget = string(l)
			continue
		}
		if ev.cfg.JVMTarget, err = ev.asString(field, v); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) defaultConfig(s *descriptor.Stmt) error {
	cfg := ev.cfg
	for _, st := range s.Body {
		var err error
		switch st.Name() {
		case "applicationId":
			err = ev.setString("android.defaultConfig.applicationId", st, &cfg.ApplicationID)
		case "minSdk", "minSdkVersion":
			err = ev.setInt("android.defaultConfig.minSdk", st, &cfg.SDK.Min)
		case "targetSdk", "targetSdkVersion":
			err = ev.setInt("android.defaultConfig.targetSdk", st, &cfg.SDK.Target)
		case "versionCode":
			err = ev.setInt("android.defaultConfig.versionCode", st, &cfg.VersionCode)
		case "versionName":
			err = ev.setString("android.defaultConfig.versionName", st, &cfg.VersionName)
		case "multiDexEnabled":
			err = ev.setBool("android.defaultConfig.multiDexEnabled", st, &cfg.MultiDexEnabled)
		default:
			ev.ignore(st, "defaultConfig")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// namedBlock returns the name of a `release { }`, `create("x") { }` or
// `getByName("x") { }` container entry.
func (ev *evaluator) namedBlock(scope string, s *descriptor.Stmt) (string, bool, error) {
	if !s.HasBody || len(s.Path) != 1 {
		return "", false, nil
	}
	switch s.Path[0] {
	case "create", "getByName", "register", "maybeCreate", "named":
		if len(s.Args) != 1 {
			return "", false, ev.malformed(s.Pos, scope, "%s expects one name argument", s.Path[0])
		}
		v, err := ev.eval(scope, s.Args[0])
		if err != nil {
			return "", false, err
		}
		name, err := ev.asString(scope, v)
		return name, err == nil, err
	}
	if len(s.Args) > 0 {
		return "", false, nil
	}
	return s.Path[0], true, nil
}

func (ev *evaluator) signingConfigs(s *descriptor.Stmt) error {
	for _, st := range s.Body {
		name, ok, err := ev.namedBlock("android.signingConfigs", st)
		if err != nil {
			return err
		}
		if !ok {
			ev.ignore(st, "signingConfigs")
			continue
		}

		sc := ev.cfg.SigningConfigs[name]
		sc.Name = name
		sc.Implicit = false
		field := "android.signingConfigs." + name
		for _, prop := range st.Body {
			switch prop.Name() {
			case "storeFile", "keyAlias":
				v, err := ev.property(field+"."+prop.Name(), prop)
				if err != nil {
					return err
				}
				text := v.text
				if v.kind != kindDynamic && v.kind != kindString {
					return ev.malformed(v.pos, field+"."+prop.Name(), "expected string, found %s", kindNames[v.kind])
				}
				if prop.Name() == "storeFile" {
					sc.StoreFile = text
				} else {
					sc.KeyAlias = text
				}
			case "storePassword", "keyPassword":
				v, err := ev.property(field+"."+prop.Name(), prop)
				if err != nil {
					return err
				}
				sc.HasPasswords = true
				if v.kind == kindString && v.from == "" {
					sc.LiteralPasswords = true
				}
			default:
				ev.ignore(prop, field)
			}
		}
		ev.cfg.SigningConfigs[name] = sc
	}
	return nil
}

func (ev *evaluator) buildTypes(s *descriptor.Stmt) error {
	for _, st := range s.Body {
		name, ok, err := ev.namedBlock("android.buildTypes", st)
		if err != nil {
			return err
		}
		if !ok {
			ev.ignore(st, "buildTypes")
			continue
		}

		bt, exists := ev.cfg.BuildTypes[name]
		if !exists {
			bt = BuildType{Name: name}
		}
		field := "android.buildTypes." + name
		for _, prop := range st.Body {
			var err error
			switch prop.Name() {
			case "isMinifyEnabled", "minifyEnabled":
				err = ev.setBool(field+".isMinifyEnabled", prop, &bt.Minify)
			case "isShrinkResources", "shrinkResources":
				err = ev.setBool(field+".isShrinkResources", prop, &bt.ShrinkResources)
			case "isDebuggable", "debuggable":
				err = ev.setBool(field+".isDebuggable", prop, &bt.Debuggable)
			case "signingConfig":
				err = ev.signingRef(field+".signingConfig", prop, &bt)
				ev.signingPos[name] = prop.Pos
			case "proguardFiles", "proguardFile":
				err = ev.ruleFiles(field+".proguardFiles", prop, &bt)
			default:
				ev.ignore(prop, field)
			}
			if err != nil {
				return err
			}
		}
		ev.cfg.BuildTypes[name] = bt
	}
	return nil
}

func (ev *evaluator) signingRef(field string, s *descriptor.Stmt, bt *BuildType) error {
	v, err := ev.property(field, s)
	if err != nil {
		return err
	}
	switch v.kind {
	case kindSigning:
		bt.SigningRef = v.text
	case kindNull:
		bt.SigningRef = ""
	default:
		return ev.malformed(v.pos, field, "expected signingConfigs reference, found %s", kindNames[v.kind])
	}
	bt.SigningRefSet = true
	return nil
}

func (ev *evaluator) ruleFiles(field string, s *descriptor.Stmt, bt *BuildType) error {
	if s.Kind != descriptor.StmtInvoke || s.HasBody {
		return ev.malformed(s.Pos, field, "expected a call with file arguments")
	}
	for _, a := range s.Args {
		v, err := ev.eval(field, a)
		if err != nil {
			return err
		}
		switch v.kind {
		case kindDefaultRule:
			bt.ObfuscationRuleFiles = append(bt.ObfuscationRuleFiles, RuleFile{Path: v.text, Default: true})
		case kindString:
			bt.ObfuscationRuleFiles = append(bt.ObfuscationRuleFiles, RuleFile{Path: v.text})
		default:
			return ev.malformed(v.pos, field, "expected file path, found %s", kindNames[v.kind])
		}
	}
	return nil
}

// ── properties ────────────────────────────────────────────────────────────

// property returns the value of `x = v` or Groovy/Kotlin setter style `x v`, `x(v)`.
func (ev *evaluator) property(field string, s *descriptor.Stmt) (value, error) {
	switch {
	case s.Kind == descriptor.StmtAssign && s.Op != "=":
		return value{}, ev.malformed(s.Pos, field, "compound assignment %s is not supported", s.Op)
	case s.Kind == descriptor.StmtAssign:
		return ev.eval(field, s.Value)
	case s.Kind == descriptor.StmtInvoke && !s.HasBody && len(s.Args) == 1:
		return ev.eval(field, s.Args[0])
	}
	return value{}, ev.malformed(s.Pos, field, "expected a single value")
}

func (ev *evaluator) setString(field string, s *descriptor.Stmt, dst *string) error {
	v, err := ev.property(field, s)
	if err != nil {
		return err
	}
	if *dst, err = ev.asString(field, v); err != nil {
		return err
	}
	ev.set[field] = true
	return nil
}

func (ev *evaluator) setInt(field string, s *descriptor.Stmt, dst *int) error {
	v, err := ev.property(field, s)
	if err != nil {
		return err
	}
	if *dst, err = ev.asInt(field, v); err != nil {
		return err
	}
	ev.set[field] = true
	return nil
}

func (ev *evaluator) setBool(field string, s *descriptor.Stmt, dst *bool) error {
	v, err := ev.property(field, s)
	if err != nil {
		return err
	}
	if v.kind != kindBool {
		return ev.malformed(v.pos, field, "expected boolean, found %s", kindNames[v.kind])
	}
	*dst = v.text == "true"
	ev.set[field] = true
	return nil
}

// ── conversions ───────────────────────────────────────────────────────────

func (ev *evaluator) asString(field string, v value) (string, error) {
	switch v.kind {
	case kindString, kindInt:
		return v.text, nil
	}
	return "", ev.malformed(v.pos, field, "expected string, found %s", kindNames[v.kind])
}

// asInt converts v. A provider value that is not an integer counts as an
// unresolved reference; a descriptor literal of the wrong type is malformed.
func (ev *evaluator) asInt(field string, v value) (int, error) {
	switch v.kind {
	case kindInt, kindString:
		n, err := parseInt(v.text)
		if err == nil {
			return n, nil
		}
		if v.from != "" {
			return 0, ev.unresolved(v.pos, field, "%s: %v", v.from, err)
		}
		if v.kind == kindString {
			return 0, ev.malformed(v.pos, field, "expected integer, found string %q", v.text)
		}
		return 0, ev.malformed(v.pos, field, "%v", err)
	case kindDynamic:
		return 0, ev.unresolved(v.pos, field, "%s cannot be evaluated statically", v.text)
	}
	return 0, ev.malformed(v.pos, field, "expected integer, found %s", kindNames[v.kind])
}

func (ev *evaluator) asJava(field string, v value) (LanguageLevel, error) {
	switch v.kind {
	case kindJava, kindString, kindInt:
		l, err := ParseLanguageLevel(v.text)
		if err != nil {
			return "", ev.malformed(v.pos, field, "%v", err)
		}
		return l, nil
	}
	return "", ev.malformed(v.pos, field, "expected JavaVersion, found %s", kindNames[v.kind])
}

// ── expressions ───────────────────────────────────────────────────────────

const maxVarDepth = 16

func (ev *evaluator) eval(field string, e descriptor.Expr) (value, error) {
	pos := e.Position()
	switch x := e.(type) {
	case *descriptor.Literal:
		switch x.Kind {
		case descriptor.LitInt:
			return value{kind: kindInt, text: x.Value, pos: pos}, nil
		case descriptor.LitBool:
			return value{kind: kindBool, text: x.Value, pos: pos}, nil
		}
		return value{kind: kindString, text: x.Value, pos: pos}, nil

	case *descriptor.Ref:
		return ev.evalRef(field, x)

	case *descriptor.Call:
		return ev.evalCall(field, x)

	case *descriptor.Cast:
		return ev.eval(field, x.X)

	case *descriptor.Unary:
		if x.Op == "!!" {
			return ev.eval(field, x.X)
		}
		return value{kind: kindDynamic, text: x.String(), pos: pos}, nil

	case *descriptor.Binary:
		if x.Op == "?:" {
			return ev.elvis(field, x)
		}
		return value{kind: kindDynamic, text: x.String(), pos: pos}, nil

	case *descriptor.Index, *descriptor.Selector, *descriptor.Cond,
		*descriptor.Lambda, *descriptor.New, *descriptor.List:
		return value{kind: kindDynamic, text: x.String(), pos: pos}, nil
	}
	return value{}, ev.malformed(pos, field, "unsupported expression %s", e)
}

// elvis evaluates `a ?: b`. b is used when a is null or cannot be resolved.
func (ev *evaluator) elvis(field string, b *descriptor.Binary) (value, error) {
	v, err := ev.eval(field, b.X)
	switch {
	case err == nil && v.kind != kindNull:
		return v, nil
	case err != nil && !errors.Is(err, ErrUnresolvedReference):
		return value{}, err
	}
	return ev.eval(field, b.Y)
}

func (ev *evaluator) evalRef(field string, r *descriptor.Ref) (value, error) {
	pos := r.Position()
	parts := r.Parts

	switch {
	case len(parts) == 1 && parts[0] == "null":
		return value{kind: kindNull, pos: pos}, nil

	case len(parts) == 2 && parts[0] == "flutter":
		raw, ok := ev.p.Lookup(parts[1])
		if !ok {
			return value{}, ev.unresolved(pos, field, "%s is not provided", r)
		}
		return value{kind: kindString, text: raw, from: r.String(), pos: pos}, nil

	case len(parts) == 2 && parts[0] == "JavaVersion":
		return value{kind: kindJava, text: parts[1], pos: pos}, nil

	case len(parts) == 2 && parts[0] == "signingConfigs":
		return value{kind: kindSigning, text: parts[1], pos: pos}, nil

	case len(parts) == 1:
		if e, ok := ev.vars[parts[0]]; ok {
			if ev.depth >= maxVarDepth {
				return value{}, ev.unresolved(pos, field, "%s: declarations nested too deeply", r)
			}
			ev.depth++
			defer func() { ev.depth-- }()
			return ev.eval(field, e)
		}
	}
	return value{}, ev.unresolved(pos, field, "unknown reference %s", r)
}

func (ev *evaluator) evalCall(field string, c *descriptor.Call) (value, error) {
	pos := c.Position()
	fn, ok := c.Fun.(*descriptor.Ref)
	if !ok {
		return value{kind: kindDynamic, text: c.String(), pos: pos}, nil
	}
	name := fn.Parts[len(fn.Parts)-1]
	recv := fn.Parts[:len(fn.Parts)-1]

	stringArg := func() (string, error) {
		if len(c.Args) != 1 {
			return "", ev.malformed(pos, field, "%s expects one argument", fn)
		}
		v, err := ev.eval(field, c.Args[0])
		if err != nil {
			return "", err
		}
		if v.kind != kindString {
			return "", ev.malformed(v.pos, field, "%s expects a string, found %s", fn, kindNames[v.kind])
		}
		return v.text, nil
	}

	switch {
	case len(recv) > 0 && len(c.Args) == 0 && (name == "toString" || name == "toInt" || name == "toInteger"):
		v, err := ev.evalRef(field, &descriptor.Ref{Pos: fn.Pos, Parts: recv})
		if err != nil {
			return value{}, err
		}
		switch {
		case name == "toString" && v.kind == kindJava:
			l, err := ev.asJava(field, v)
			if err != nil {
				return value{}, err
			}
			return value{kind: kindString, text: string(l), from: v.from, pos: pos}, nil
		case name == "toString":
			v.kind = kindString
			return v, nil
		default:
			n, err := ev.asInt(field, v)
			if err != nil {
				return value{}, err
			}
			return value{kind: kindInt, text: fmt.Sprint(n), from: v.from, pos: pos}, nil
		}

	// localProperties.getProperty("flutter.versionCode")
	case len(recv) > 0 && name == "getProperty" && len(c.Args) == 1:
		lit, ok := c.Args[0].(*descriptor.Literal)
		if !ok || lit.Kind != descriptor.LitString || !strings.HasPrefix(lit.Value, "flutter.") {
			break
		}
		raw, found := ev.p.Lookup(strings.TrimPrefix(lit.Value, "flutter."))
		if !found {
			return value{}, ev.unresolved(pos, field, "%s is not provided", lit.Value)
		}
		return value{kind: kindString, text: raw, from: lit.Value, pos: pos}, nil

	case strings.Join(recv, ".") == "signingConfigs" && name == "getByName":
		ref, err := stringArg()
		if err != nil {
			return value{}, err
		}
		return value{kind: kindSigning, text: ref, pos: pos}, nil

	case len(recv) == 0 && name == "getDefaultProguardFile":
		path, err := stringArg()
		if err != nil {
			return value{}, err
		}
		return value{kind: kindDefaultRule, text: path, pos: pos}, nil

	case name == "file" && (len(recv) == 0 || strings.Join(recv, ".") == "rootProject" || strings.Join(recv, ".") == "project"):
		if len(c.Args) != 1 {
			return value{}, ev.malformed(pos, field, "%s expects one argument", fn)
		}
		v, err := ev.eval(field, c.Args[0])
		if err != nil {
			return value{}, err
		}
		switch v.kind {
		case kindString:
			return value{kind: kindString, text: v.text, pos: pos}, nil
		case kindDynamic:
			return value{kind: kindDynamic, text: c.String(), pos: pos}, nil
		}
		return value{}, ev.malformed(v.pos, field, "%s expects a path, found %s", fn, kindNames[v.kind])
	}

	return value{kind: kindDynamic, text: c.String(), pos: pos}, nil
}
