// Package demo provides a canned assessment summary used when no data
// store is configured or the upstream store is unreachable. The report
// surface stays usable either way.
package demo

import (
	"time"

	"github.com/navvicorp/datrix/internal/report"
)

const (
	Company        = "Demo Garments Ltd"
	AnnualCostBase = 120_000_000
)

var questions = []report.Question{
	{ID: "demo-q1", Text: "Is rework tracked daily by line?", CategoryKey: "quality"},
	{ID: "demo-q2", Text: "Are final inspection defect rates reviewed weekly?", CategoryKey: "quality"},
	{ID: "demo-q3", Text: "Is hourly output posted at each line?", CategoryKey: "production"},
	{ID: "demo-q4", Text: "Are changeover times measured and targeted?", CategoryKey: "production"},
	{ID: "demo-q5", Text: "Are standard minute values maintained per style?", CategoryKey: "ie"},
	{ID: "demo-q6", Text: "Is capacity planned against confirmed orders?", CategoryKey: "planning"},
	{ID: "demo-q7", Text: "Is absenteeism tracked and reviewed monthly?", CategoryKey: "hr"},
	{ID: "demo-q8", Text: "Are social compliance audits current?", CategoryKey: "compliance"},
	{ID: "demo-q9", Text: "Is cost per minute known for each line?", CategoryKey: "costing"},
}

var categories = []report.Category{
	{Key: "quality", Name: "Quality"},
	{Key: "production", Name: "Production"},
	{Key: "ie", Name: "Industrial Engineering"},
	{Key: "planning", Name: "Planning"},
	{Key: "hr", Name: "HR"},
	{Key: "compliance", Name: "Compliance"},
	{Key: "costing", Name: "Costing"},
}

var answers = []report.Answer{
	{QuestionID: "demo-q1", Value: 1},
	{QuestionID: "demo-q2", Value: 2},
	{QuestionID: "demo-q3", Value: 3},
	{QuestionID: "demo-q4", Value: 2},
	{QuestionID: "demo-q5", Value: 1},
	{QuestionID: "demo-q6", Value: 3},
	{QuestionID: "demo-q7", Value: 4},
	{QuestionID: "demo-q8", Value: 4},
	{QuestionID: "demo-q9", Value: 2},
}

// Catalog returns copies of the placeholder question and category
// catalogs, suitable for seeding an empty local store.
func Catalog() ([]report.Question, []report.Category) {
	qs := make([]report.Question, len(questions))
	copy(qs, questions)
	cs := make([]report.Category, len(categories))
	copy(cs, categories)
	return qs, cs
}

// Summary builds the placeholder report. The same input always produces
// the same output apart from the assessment timestamp.
func Summary(now time.Time) report.Summary {
	return report.Aggregate(report.Input{
		Company:        Company,
		AssessedAt:     now.UTC().Format(time.RFC3339),
		Answers:        answers,
		Questions:      questions,
		Categories:     categories,
		AnnualCostBase: AnnualCostBase,
	})
}
