// Package reportdata assembles a report.Summary for one assessment by
// reading the backing row store. All error judgment lives here; the
// aggregation itself never fails.
package reportdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/navvicorp/datrix/internal/report"
	"github.com/navvicorp/datrix/internal/rowstore"
)

// ErrNotFound means no assessment row matched the requested id.
var ErrNotFound = errors.New("assessment not found")

// DefaultAnnualCostBase applies when no cost base is configured.
const DefaultAnnualCostBase = 120_000_000

type Options struct {
	AnnualCostBase float64
	Clock          func() time.Time
	Log            *logrus.Entry
}

// Build fetches the assessment meta row, its answers and the question
// and category catalogs, then aggregates them.
//
// The answers read is the authoritative existence check: it must
// succeed (and is inspected for emptiness) before the catalog reads
// are attempted. A failed category-catalog read degrades to name
// fallbacks instead of failing the build; a failed question read is an
// error, since without the catalog every answer would be dropped.
func Build(ctx context.Context, store rowstore.Selector, assessmentID string, opts Options) (report.Summary, error) {
	ctx, span := otel.Tracer("reportdata").Start(ctx, "reportdata.build")
	span.SetAttributes(attribute.String("assessment.id", assessmentID))
	defer span.End()

	if store == nil {
		return report.Summary{}, rowstore.ErrNotConfigured
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	base := opts.AnnualCostBase
	if base == 0 {
		base = DefaultAnnualCostBase
	}

	meta, err := store.Select(ctx, rowstore.TableAssessments, url.Values{
		"select": {"*"},
		"id":     {rowstore.Eq(assessmentID)},
		"limit":  {"1"},
	})
	if err != nil {
		return report.Summary{}, fmt.Errorf("assessment lookup: %w", err)
	}
	if len(meta) == 0 {
		return report.Summary{}, ErrNotFound
	}
	assess := meta[0]
	company := assess.String("Unknown", "company", "org_name", "business")
	assessedAt := assess.String("", "assessed_at", "completed_at", "created_at")
	if assessedAt == "" {
		assessedAt = clock().UTC().Format(time.RFC3339)
	}

	answerRows, err := store.Select(ctx, rowstore.TableAnswers, url.Values{
		"select":        {"question_id,score,answer_value"},
		"assessment_id": {rowstore.Eq(assessmentID)},
	})
	if err != nil {
		return report.Summary{}, fmt.Errorf("answers lookup: %w", err)
	}
	if len(answerRows) == 0 {
		// the assessment exists but carries no data; report zeros
		return report.Aggregate(report.Input{
			Company:        company,
			AssessedAt:     assessedAt,
			AnnualCostBase: base,
		}), nil
	}

	questionRows, err := store.Select(ctx, rowstore.TableQuestions, url.Values{
		"select": {"id,text,question,category_key,category"},
	})
	if err != nil {
		return report.Summary{}, fmt.Errorf("questions lookup: %w", err)
	}

	categoryRows, err := store.Select(ctx, rowstore.TableCategories, url.Values{
		"select": {"key,name"},
	})
	if err != nil {
		// partial data: display names fall back to raw keys
		if opts.Log != nil {
			opts.Log.WithError(err).Warn("category catalog unavailable, using key fallbacks")
		}
		categoryRows = nil
	}

	in := report.Input{
		Company:        company,
		AssessedAt:     assessedAt,
		Answers:        make([]report.Answer, 0, len(answerRows)),
		Questions:      make([]report.Question, 0, len(questionRows)),
		Categories:     make([]report.Category, 0, len(categoryRows)),
		AnnualCostBase: base,
	}
	for _, row := range answerRows {
		in.Answers = append(in.Answers, report.Answer{
			QuestionID: row.Key("question_id"),
			Value:      row.Value("score", "answer_value"),
		})
	}
	for _, row := range questionRows {
		in.Questions = append(in.Questions, report.Question{
			ID:          row.Key("id"),
			Text:        row.String("", "text", "question"),
			CategoryKey: row.String("", "category_key", "category"),
		})
	}
	for _, row := range categoryRows {
		in.Categories = append(in.Categories, report.Category{
			Key:  row.Key("key"),
			Name: row.String("", "name"),
		})
	}

	return report.Aggregate(in), nil
}
