package compare

import (
	"regexp"
	"strconv"
	"strings"
)

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// Finding is one incompatibility of an upgrade: a summary line and its detail lines.
type Finding struct {
	Summary string   `json:"summary"`
	Details []string `json:"details,omitempty"`
}

// Report is the parsed outcome of a compatibility check.
type Report struct {
	Text     string    `json:"compatibilityReport"`
	Findings []Finding `json:"findings"`
}

// OK reports that the upgrade has no compatibility issues.
func (r *Report) OK() bool {
	return r == nil || len(r.Findings) == 0
}

// ParseReport splits an analyzer explanation into findings. Paragraphs are separated by
// blank lines; within a paragraph every '>' starts a detail line.
func ParseReport(text string) *Report {
	report := &Report{
		Text:     text,
		Findings: []Finding{},
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return report
	}

	for _, paragraph := range paragraphSep.Split(text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		parts := strings.Split(paragraph, ">")

		finding := Finding{Summary: strings.TrimSpace(parts[0])}
		for _, part := range parts[1:] {
			if line := strings.TrimSpace(part); line != "" {
				finding.Details = append(finding.Details, line)
			}
		}

		report.Findings = append(report.Findings, finding)
	}

	return report
}

// String renders the findings the way they are listed to users, numbered from zero.
func (r *Report) String() string {
	if r.OK() {
		return "No compatibility issues found."
	}

	var b strings.Builder
	b.WriteString("Following compatibility issues have been found:\n")

	for i, f := range r.Findings {
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" : ")
		b.WriteString(f.Summary)
		b.WriteByte('\n')

		for _, d := range f.Details {
			b.WriteString("   - ")
			b.WriteString(d)
			b.WriteByte('\n')
		}
	}

	return b.String()
}
