package output

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sofmeright/droidplan/src/audit"
	"github.com/sofmeright/droidplan/src/build"
	"github.com/sofmeright/droidplan/src/buildconf"
)

func sampleConfig() *buildconf.BuildConfiguration {
	return &buildconf.BuildConfiguration{
		ApplicationID: "com.example.app",
		Namespace:     "com.example.app",
		SDK:           buildconf.PlatformVersions{Min: 21, Target: 35, Compile: 35},
		VersionCode:   4,
		VersionName:   "1.2.3",
		LanguageLevel: buildconf.Java17,
		SourceLevel:   buildconf.Java17,
		BuildType:     "release",
		Signing:       "upload",
		BuildTypes: map[string]buildconf.BuildType{
			"debug":   {Name: "debug", Debuggable: true, SigningRef: "debug"},
			"release": {Name: "release", Minify: true, SigningRef: "upload"},
		},
		SigningConfigs: map[string]buildconf.SigningConfig{
			"upload": {Name: "upload", StoreFile: "upload.jks"},
		},
	}
}

func TestSectionConfig(t *testing.T) {
	var buf bytes.Buffer
	sec := NewSection(&buf, "Resolve", 0, false)
	SectionConfig(sec, sampleConfig())
	sec.Close()

	out := buf.String()
	assert.Contains(t, out, "── Resolve ")
	assert.Contains(t, out, "application id    com.example.app")
	assert.Contains(t, out, "1.2.3 (4)")
	assert.Contains(t, out, "min 21, target 35, compile 35")
	assert.Contains(t, out, "release *         minify, signed by upload")
	assert.Contains(t, out, "debug             debuggable, signed by debug")
	assert.Contains(t, out, "ndk               -")
	assert.NotContains(t, out, "\033[")
}

func TestSectionPlan(t *testing.T) {
	var buf bytes.Buffer
	sec := NewSection(&buf, "Plan", 1500*time.Millisecond, false)
	SectionPlan(sec, build.NewPlan(sampleConfig(), build.OutputBundle), false)
	sec.Close()

	assert.Contains(t, buf.String(), "1.5s ──")
	assert.Contains(t, buf.String(), "bundleRelease")
	assert.Contains(t, buf.String(), "signing: upload")
}

func TestEncodeFormats(t *testing.T) {
	doc := Resolved{
		Configuration: sampleConfig(),
		Plan:          build.NewPlan(sampleConfig()),
		Warnings:      []string{"multiDexEnabled is redundant"},
	}

	var y bytes.Buffer
	require.NoError(t, Encode(&y, "yaml", doc))
	var fromYAML Resolved
	require.NoError(t, yaml.Unmarshal(y.Bytes(), &fromYAML))
	assert.Equal(t, "com.example.app", fromYAML.Configuration.ApplicationID)
	assert.Equal(t, []string{"assembleRelease"}, fromYAML.Plan.Tasks())

	var tm bytes.Buffer
	require.NoError(t, Encode(&tm, "toml", doc))
	var fromTOML Resolved
	require.NoError(t, toml.Unmarshal(tm.Bytes(), &fromTOML))
	assert.Equal(t, 35, fromTOML.Configuration.SDK.Compile)

	var js bytes.Buffer
	require.NoError(t, Encode(&js, "json", doc))
	assert.True(t, strings.HasPrefix(js.String(), "{\n  \"configuration\""))

	assert.Error(t, Encode(&bytes.Buffer{}, "xml", doc))
}

func TestSectionFindingsSorted(t *testing.T) {
	findings := []audit.Finding{
		{File: "b.gradle.kts", Line: 9, Rule: "github-pat", Severity: audit.SeverityCritical, Message: "secret"},
		{File: "a.gradle.kts", Line: 3, Rule: "generic-api-key", Severity: audit.SeverityCritical, Message: "secret"},
		{File: "a.gradle.kts", Line: 1, Rule: "generic-api-key", Severity: audit.SeverityWarning, Message: "maybe"},
	}

	var buf bytes.Buffer
	sec := NewSection(&buf, "Audit", 0, false)
	SectionFindings(sec, findings, false)
	sec.Close()

	out := buf.String()
	a := strings.Index(out, "a.gradle.kts")
	b := strings.Index(out, "b.gradle.kts")
	require.True(t, a >= 0 && b > a)
	assert.Less(t, strings.Index(out, "1        WARN"), strings.Index(out, "3        CRIT"))

	assert.Equal(t, "3 findings in 2 files: 2 critical, 1 warning", FindingsSummaryLine(findings, 2, false))
	assert.Equal(t, "0 findings in 1 files: no findings", FindingsSummaryLine(nil, 1, false))
}

func TestSectionSummary(t *testing.T) {
	var buf bytes.Buffer
	sec := NewSection(&buf, "Summary", 0, false)
	sec.SummaryRow("build.gradle.kts", 250*time.Millisecond, "success")
	sec.SummaryRow("legacy.gradle", 1500*time.Millisecond, "failed")
	sec.SummaryTotal(1700*time.Millisecond, "failed")
	sec.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "build.gradle.kts")
	assert.Contains(t, lines[1], "✓")
	assert.Contains(t, lines[2], "legacy.gradle")
	assert.Contains(t, lines[2], "1.5s")
	assert.Contains(t, lines[2], "✗")
	assert.Contains(t, lines[3], "├")
	assert.Contains(t, lines[4], "total")
	assert.Contains(t, lines[4], "1.7s")
}

func TestResultFailed(t *testing.T) {
	assert.False(t, Result{File: "ok", Warnings: []string{"w"}}.Failed())
	assert.True(t, Result{File: "bad", Err: errors.New("boom")}.Failed())
}

func TestWriteJUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validate.xml")
	results := []Result{
		{File: "ok.gradle.kts", Warnings: []string{"w1"}},
		{File: "bad.gradle.kts", Err: errors.New("missing required field: applicationId")},
	}
	require.NoError(t, WriteJUnit(path, results, 2*time.Second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &report))
	assert.Equal(t, 2, report.Tests)
	assert.Equal(t, 1, report.Failures)
	require.Len(t, report.Suites, 1)
	assert.Nil(t, report.Suites[0].Cases[0].Failure)
	assert.Equal(t, "w1", report.Suites[0].Cases[0].SystemOut)
	assert.Contains(t, report.Suites[0].Cases[1].Failure.Body, "applicationId")
}
