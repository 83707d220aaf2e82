package mailer

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/navvicorp/datrix/internal/report"
)

// ReportSubject is the subject line for report delivery emails.
func ReportSubject(company string) string {
	if strings.TrimSpace(company) == "" {
		return "Your Datrix Business Health Report is Ready"
	}
	return fmt.Sprintf("Your Datrix Business Health Report for %s is Ready", company)
}

// ReportHTML renders the report markdown into the branded email body.
func ReportHTML(recipientName, markdown string, s report.Summary) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}

	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "there"
	}
	pct := 0.0
	if s.Overall.Max > 0 {
		pct = 100 * s.Overall.Score / float64(s.Overall.Max)
	}
	var savingsTotal int64
	for _, sv := range s.Savings {
		savingsTotal += sv.Value
	}

	var b strings.Builder
	b.WriteString("<!doctype html><html><head><meta charset='utf-8'>" +
		"<meta name='viewport' content='width=device-width, initial-scale=1.0'>" +
		"<title>Your Report is Ready</title></head>" +
		"<body style='font-family:Arial,sans-serif;line-height:1.6;color:#333;max-width:600px;margin:0 auto;padding:20px;'>")
	b.WriteString("<div style='background:#667eea;padding:30px;text-align:center;border-radius:10px 10px 0 0;'>" +
		"<h1 style='color:white;margin:0;font-size:28px;'>Datrix</h1>" +
		"<p style='color:white;margin:10px 0 0 0;font-size:14px;'>Business Intelligence Scanner</p></div>")
	b.WriteString("<div style='background:#f9f9f9;padding:30px;border-radius:0 0 10px 10px;'>")
	fmt.Fprintf(&b, "<h2 style='margin-top:0;'>Dear %s,</h2>", html.EscapeString(name))
	b.WriteString("<p>Your business health assessment is complete. The summary below covers the key numbers; the full report follows.</p>")

	b.WriteString("<table style='width:100%;border-collapse:collapse;background:white;border-radius:8px;'>")
	fmt.Fprintf(&b, summaryRow, "Overall Score", fmt.Sprintf("%.0f / %d (%.0f%%)", s.Overall.Score, s.Overall.Max, pct))
	fmt.Fprintf(&b, summaryRow, "Answer Distribution",
		fmt.Sprintf("%d red, %d amber, %d green", s.Distribution.Red, s.Distribution.Amber, s.Distribution.Green))
	fmt.Fprintf(&b, summaryRow, "Categories Assessed", fmt.Sprintf("%d", len(s.Categories)))
	if savingsTotal > 0 {
		fmt.Fprintf(&b, summaryRow, "Projected Annual Savings", formatThousands(savingsTotal))
	}
	b.WriteString("</table>")

	b.WriteString("<div style='background:white;padding:20px;border-radius:8px;margin:20px 0;'>")
	b.WriteString(content.String())
	b.WriteString("</div>")

	b.WriteString("<p style='color:#666;font-size:14px;'>Questions about your results? Reply to this email to book a consultation.</p>")
	b.WriteString("<hr style='border:none;border-top:1px solid #ddd;margin:30px 0;'>")
	b.WriteString("<p style='color:#333;font-weight:bold;margin:0;'>Datrix Business Intelligence Scanner</p>" +
		"<p style='color:#666;font-size:14px;margin:5px 0;'>Navvi Corporation</p>")
	b.WriteString("</div></body></html>")
	return b.String(), nil
}

const summaryRow = "<tr style='border-bottom:1px solid #eee;'>" +
	"<td style='padding:10px;color:#666;'>%s</td>" +
	"<td style='padding:10px;font-weight:bold;text-align:right;'>%s</td></tr>"

func formatThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}
	if neg {
		return "-" + out.String()
	}
	return out.String()
}
