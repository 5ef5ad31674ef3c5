package output

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/muesli/termenv"

	"github.com/sofmeright/droidplan/src/audit"
)

// FindingsSummaryLine returns a one-line findings summary, optionally colored.
func FindingsSummaryLine(findings []audit.Finding, filesScanned int, color bool) string {
	var critical, warning, info int
	for _, f := range findings {
		switch f.Severity {
		case audit.SeverityCritical:
			critical++
		case audit.SeverityWarning:
			warning++
		default:
			info++
		}
	}

	var parts []string
	if critical > 0 {
		parts = append(parts, paint(fmt.Sprintf("%d critical", critical), color, red))
	}
	if warning > 0 {
		parts = append(parts, paint(fmt.Sprintf("%d warning", warning), color, yellow))
	}
	if info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", info))
	}

	summary := "no findings"
	if len(parts) > 0 {
		summary = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%s findings in %d files: %s", Bold(fmt.Sprint(len(findings)), color), filesScanned, summary)
}

// SectionFindings renders findings grouped by file inside a section.
// Files are sorted lexicographically; findings within each file by line, rule, message.
func SectionFindings(sec *Section, findings []audit.Finding, color bool) {
	if len(findings) == 0 {
		return
	}

	sec.Row("")
	for _, file := range groupByFile(findings) {
		sec.Row("%s", Bold(file.name, color))
		for _, f := range file.findings {
			sec.Row("  %-8s %-4s  %-24s %s", location(f), severityTag(f.Severity, color), f.Rule, f.Message)
		}
		sec.Row("")
	}
}

// SectionWarnings renders validation warnings as numbered rows.
func SectionWarnings(sec *Section, warnings []string, color bool) {
	for _, w := range warnings {
		sec.Row("%s  %s", severityTag(audit.SeverityWarning, color), w)
	}
}

// RowStatus writes a row with label, detail, and a status icon.
func RowStatus(sec *Section, label, detail, status string, color bool) {
	icon := StatusIcon(status, color)
	if detail != "" {
		sec.Row("%s: %s %s", label, detail, icon)
	} else {
		sec.Row("%s %s", label, icon)
	}
}

type fileFindings struct {
	name     string
	findings []audit.Finding
}

func groupByFile(findings []audit.Finding) []fileFindings {
	byFile := map[string][]audit.Finding{}
	for _, f := range findings {
		byFile[f.File] = append(byFile[f.File], f)
	}

	out := make([]fileFindings, 0, len(byFile))
	for name, ff := range byFile {
		sort.Slice(ff, func(i, j int) bool {
			a, b := ff[i], ff[j]
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			if a.Rule != b.Rule {
				return a.Rule < b.Rule
			}
			return a.Message < b.Message
		})
		out = append(out, fileFindings{name: name, findings: ff})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func location(f audit.Finding) string {
	if f.Line == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", f.Line)
}

func green(st termenv.Style) termenv.Style  { return st.Foreground(termenv.ANSIGreen) }
func red(st termenv.Style) termenv.Style    { return st.Foreground(termenv.ANSIRed) }
func yellow(st termenv.Style) termenv.Style { return st.Foreground(termenv.ANSIYellow) }
func gray(st termenv.Style) termenv.Style   { return st.Foreground(termenv.ANSIBrightBlack) }

// severityTag returns a short severity label, optionally colored.
func severityTag(s audit.Severity, color bool) string {
	switch s {
	case audit.SeverityCritical:
		return paint("CRIT", color, red)
	case audit.SeverityWarning:
		return paint("WARN", color, yellow)
	case audit.SeverityInfo:
		return paint("INFO", color, gray)
	default:
		return s.String()
	}
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}
