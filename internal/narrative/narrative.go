// Package narrative produces the executive-summary prose that accompanies
// an assessment report. The primary generator calls Anthropic; a templated
// fallback covers the unconfigured and failure paths so report delivery
// never blocks on the model.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/navvicorp/datrix/internal/report"
)

const systemPrompt = "You are an operations consultant writing the executive summary of a factory improvement assessment for apparel manufacturers. Write plain, direct prose for a managing director. No markdown headings, no bullet lists, at most three short paragraphs."

// Generator turns an aggregated summary into executive-summary prose.
type Generator interface {
	Generate(ctx context.Context, s report.Summary) (string, error)
}

type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic generates the narrative with a single model call.
type Anthropic struct {
	messages Messager
}

func NewAnthropic(m Messager) *Anthropic {
	return &Anthropic{messages: m}
}

func NewAnthropicFromEnv() (*Anthropic, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{messages: &c.Messages}, nil
}

func (a *Anthropic) Generate(ctx context.Context, s report.Summary) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   1024,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(s)))},
		Temperature: anthropic.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation: %w", err)
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("narrative generation: empty response")
	}
	return text, nil
}

func buildPrompt(s report.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n", s.Company)
	fmt.Fprintf(&sb, "Overall score: %.0f of %d\n", s.Overall.Score, s.Overall.Max)
	fmt.Fprintf(&sb, "Answers: %d red, %d amber, %d green\n", s.Distribution.Red, s.Distribution.Amber, s.Distribution.Green)
	sb.WriteString("Category averages (0-4 scale):\n")
	for _, c := range s.Categories {
		fmt.Fprintf(&sb, "- %s: %.2f", c.Name, c.Avg)
		if c.TopIssue != "" {
			fmt.Fprintf(&sb, " (weakest area: %s)", c.TopIssue)
		}
		sb.WriteString("\n")
	}
	var total int64
	for _, sv := range s.Savings {
		total += sv.Value
	}
	fmt.Fprintf(&sb, "Projected annual savings if weak areas are fixed: %d\n", total)
	sb.WriteString("\nWrite the executive summary.")
	return sb.String()
}

// Fallback produces a deterministic templated summary. It is used when no
// model is configured or the model call fails.
type Fallback struct{}

func (Fallback) Generate(_ context.Context, s report.Summary) (string, error) {
	company := s.Company
	if company == "" {
		company = "The business"
	}
	pct := 0.0
	if s.Overall.Max > 0 {
		pct = 100 * s.Overall.Score / float64(s.Overall.Max)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s scored %.0f out of %d (%.0f%%) across %d assessed areas.",
		company, s.Overall.Score, s.Overall.Max, pct, len(s.Categories))
	if s.Distribution.Red > 0 {
		fmt.Fprintf(&sb, " %d answers indicate critical gaps that need immediate attention.", s.Distribution.Red)
	}

	weak := weakestCategories(s.Categories, 3)
	if len(weak) > 0 {
		names := make([]string, len(weak))
		for i, c := range weak {
			names[i] = c.Name
		}
		fmt.Fprintf(&sb, " The biggest improvement opportunities are in %s.", joinNatural(names))
	}

	var total int64
	for _, sv := range s.Savings {
		total += sv.Value
	}
	if total > 0 {
		fmt.Fprintf(&sb, " Closing these gaps projects annual savings of %d.", total)
	}
	return sb.String(), nil
}

func weakestCategories(cats []report.CategoryScore, n int) []report.CategoryScore {
	below := make([]report.CategoryScore, 0, len(cats))
	for _, c := range cats {
		if c.Avg < float64(report.MaxPerQuestion) {
			below = append(below, c)
		}
	}
	sort.SliceStable(below, func(i, j int) bool { return below[i].Avg < below[j].Avg })
	if len(below) > n {
		below = below[:n]
	}
	return below
}

func joinNatural(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
