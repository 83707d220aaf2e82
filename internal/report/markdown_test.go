package report

import (
	"strings"
	"testing"
)

func TestMarkdownCarriesNumbersAndNarrative(t *testing.T) {
	sum := Summary{
		Company:      "Acme Apparel",
		AssessedAt:   "2026-01-02T00:00:00Z",
		Overall:      Overall{Score: 9, Max: 16},
		Distribution: Distribution{Red: 1, Amber: 1, Green: 2},
		Categories: []CategoryScore{
			{Key: "quality", Name: "Quality", Avg: 1, Max: 4, TopIssue: "Do you track rework daily?"},
		},
		Savings: []Saving{
			{Key: "quality", Name: "Quality", Value: 22_500_000, Gap: 0.75},
		},
	}
	md := Markdown(sum, "Steady base, quality needs work.")

	for _, want := range []string{
		"Acme Apparel",
		"9 of 16",
		"1 red, 1 amber, 2 green",
		"Quality",
		"22,500,000",
		"gap 75%",
		"Steady base, quality needs work.",
		"top issue: Do you track rework daily?",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownWithoutNarrative(t *testing.T) {
	md := Markdown(Summary{Company: "X"}, "")
	if !strings.Contains(md, "Overall score") {
		t.Fatal("expected overall line even without narrative")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		25_000_000: "25,000,000",
		-1234:      "-1,234",
	}
	for in, want := range cases {
		if got := formatAmount(in); got != want {
			t.Fatalf("formatAmount(%d) = %q, want %q", in, got, want)
		}
	}
}
