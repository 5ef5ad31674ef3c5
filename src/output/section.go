package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

const sectionWidth = 61 // inner width between │ and line end

// Section renders a box-drawing framed output section.
type Section struct {
	w     io.Writer
	name  string
	color bool
}

// NewSection creates a section and writes its header.
// If elapsed is non-zero, it appears right-aligned in the header.
func NewSection(w io.Writer, name string, elapsed time.Duration, color bool) *Section {
	s := &Section{w: w, name: name, color: color}
	s.writeHeader(elapsed)
	return s
}

// Row writes a content line inside the section frame.
func (s *Section) Row(format string, args ...any) {
	fmt.Fprintf(s.w, "    │ %s\n", fmt.Sprintf(format, args...))
}

// Field writes an aligned key/value row. Empty values are shown as "-".
func (s *Section) Field(key string, value any) {
	v := fmt.Sprint(value)
	if v == "" {
		v = "-"
	}
	s.Row("%-18s%s", key, v)
}

// Separator writes a mid-section divider.
func (s *Section) Separator() {
	fmt.Fprintf(s.w, "    ├%s\n", strings.Repeat("─", sectionWidth))
}

// Close writes the section footer.
func (s *Section) Close() {
	fmt.Fprintf(s.w, "    └%s\n", strings.Repeat("─", sectionWidth))
}

// writeHeader renders: ── Name ──────────────────── elapsed ──
func (s *Section) writeHeader(elapsed time.Duration) {
	label := fmt.Sprintf("── %s ", s.name)

	suffix := "──"
	if elapsed > 0 {
		suffix = fmt.Sprintf(" %s ──", formatElapsed(elapsed))
	}

	fill := max(sectionWidth+4-len(label)-len(suffix), 1)
	header := label + strings.Repeat("─", fill) + suffix
	fmt.Fprintf(s.w, "\n    %s\n", paint(header, s.color, func(st termenv.Style) termenv.Style {
		return st.Foreground(termenv.ANSICyan).Faint()
	}))
}

// paint applies a termenv style when color is enabled.
func paint(text string, color bool, style func(termenv.Style) termenv.Style) string {
	if !color {
		return text
	}
	return style(termenv.ANSI.String(text)).String()
}

// StatusIcon returns a status icon, colored when color is set.
func StatusIcon(status string, color bool) string {
	switch status {
	case "success":
		return paint("✓", color, green)
	case "failed":
		return paint("✗", color, red)
	default:
		return paint("⊘", color, yellow)
	}
}

// Dimmed returns dimmed text if color is enabled.
func Dimmed(text string, color bool) string {
	return paint(text, color, gray)
}

// Bold returns bold text if color is enabled.
func Bold(text string, color bool) string {
	return paint(text, color, termenv.Style.Bold)
}

// formatElapsed formats a duration for display in section headers.
func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := d.Seconds() - float64(mins*60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}

// SummaryRow writes one timed line with a status icon.
func (s *Section) SummaryRow(name string, elapsed time.Duration, status string) {
	s.Row("%-28s%24s   %s", name, formatElapsed(elapsed), StatusIcon(status, s.color))
}

// SummaryTotal writes the closing total line.
func (s *Section) SummaryTotal(elapsed time.Duration, status string) {
	s.Separator()
	s.SummaryRow("total", elapsed, status)
}
