// Package tui renders doctor reports and the live provisioning view.
package tui

import (
	"fmt"
	"strings"
)

// CheckStatus is the outcome of one diagnostic check.
type CheckStatus string

// Check outcomes.
const (
	StatusOK      CheckStatus = "ok"
	StatusFailed  CheckStatus = "failed"
	StatusWarning CheckStatus = "warning"
	StatusSkipped CheckStatus = "skipped"
)

// Check is one line of a report.
type Check struct {
	Section string      `json:"section"`
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Detail  string      `json:"detail,omitempty"`
}

// Report is a titled list of checks, grouped by section in insertion order.
type Report struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Checks   []Check `json:"checks"`
}

// Add appends a check.
func (r *Report) Add(section, name string, status CheckStatus, detail string) {
	r.Checks = append(r.Checks, Check{Section: section, Name: name, Status: status, Detail: detail})
}

// Failures returns the number of failed checks.
func (r *Report) Failures() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == StatusFailed {
			n++
		}
	}
	return n
}

// sections returns section names in first-seen order.
func (r *Report) sections() []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range r.Checks {
		if !seen[c.Section] {
			seen[c.Section] = true
			out = append(out, c.Section)
		}
	}
	return out
}

// Render returns the styled report.
func Render(r *Report) string {
	var b strings.Builder

	b.WriteString(headingStyle.Render(r.Title))
	if r.Subtitle != "" {
		b.WriteString(" " + captionStyle.Render(r.Subtitle))
	}
	b.WriteString("\n")

	for _, section := range r.sections() {
		b.WriteString(groupStyle.Render(section) + "\n")
		for _, c := range r.Checks {
			if c.Section != section {
				continue
			}
			b.WriteString("  " + statusIcon(c.Status) + " " + c.Name)
			if c.Detail != "" {
				b.WriteString("  " + mutedStyle.Render(c.Detail))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(summaryStyle.Render(summary(r)) + "\n")
	return b.String()
}

// RenderPlain returns the report without styles, for pipes and CI logs.
func RenderPlain(r *Report) string {
	var b strings.Builder

	title := r.Title
	if r.Subtitle != "" {
		title += " " + r.Subtitle
	}
	fmt.Fprintf(&b, "%s\n%s\n", title, strings.Repeat("=", len(title)))

	for _, section := range r.sections() {
		fmt.Fprintf(&b, "\n%s\n%s\n", section, strings.Repeat("-", 35))
		for _, c := range r.Checks {
			if c.Section != section {
				continue
			}
			if c.Detail != "" {
				fmt.Fprintf(&b, "  %s %-24s %s\n", plainIcon(c.Status), c.Name, c.Detail)
			} else {
				fmt.Fprintf(&b, "  %s %s\n", plainIcon(c.Status), c.Name)
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", summary(r))
	return b.String()
}

func summary(r *Report) string {
	if n := r.Failures(); n > 0 {
		return fmt.Sprintf("%d of %d checks failed", n, len(r.Checks))
	}
	return fmt.Sprintf("all %d checks passed", len(r.Checks))
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusOK:
		return passStyle.Render(markPass)
	case StatusFailed:
		return failStyle.Render(markFail)
	case StatusWarning:
		return cautionStyle.Render(markWarn)
	default:
		return mutedStyle.Render(markSkip)
	}
}

func plainIcon(s CheckStatus) string {
	switch s {
	case StatusOK:
		return markPass
	case StatusFailed:
		return markFail
	case StatusWarning:
		return markWarn
	default:
		return markSkip
	}
}
