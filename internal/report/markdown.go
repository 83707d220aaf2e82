package report

import (
	"fmt"
	"strings"
)

// Markdown renders a Summary as a human-readable report. The narrative
// paragraph, when present, leads the executive summary; the numbers are
// taken verbatim from the Summary.
func Markdown(s Summary, narrative string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Business Health Report\n\n")
	fmt.Fprintf(&b, "- Company: %s\n", s.Company)
	fmt.Fprintf(&b, "- Assessed: %s\n\n", s.AssessedAt)

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	if strings.TrimSpace(narrative) != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(narrative))
	}
	fmt.Fprintf(&b, "Overall score: **%.0f of %d** (%.0f%%).\n", s.Overall.Score, s.Overall.Max, percent(s.Overall))
	fmt.Fprintf(&b, "Question spread: %d red, %d amber, %d green.\n\n",
		s.Distribution.Red, s.Distribution.Amber, s.Distribution.Green)

	fmt.Fprintf(&b, "## Category Scores\n\n")
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "- **%s**: %.2f / %d", c.Name, c.Avg, c.Max)
		if c.TopIssue != "" {
			fmt.Fprintf(&b, " (top issue: %s)", sanitizeLine(c.TopIssue))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Projected Annual Savings\n\n")
	var totalSavings int64
	for _, sv := range s.Savings {
		fmt.Fprintf(&b, "- %s: %s (gap %.0f%%)\n", sv.Name, formatAmount(sv.Value), sv.Gap*100)
		totalSavings += sv.Value
	}
	fmt.Fprintf(&b, "\nEstimated total: %s per year. These figures are heuristic projections, not measured values.\n", formatAmount(totalSavings))

	return b.String()
}

func percent(o Overall) float64 {
	if o.Max == 0 {
		return 0
	}
	return o.Score / float64(o.Max) * 100
}

func sanitizeLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// formatAmount groups digits in thousands for readability.
func formatAmount(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%d", v)
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
