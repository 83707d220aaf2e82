package localstore

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/navvicorp/datrix/internal/report"
	"github.com/navvicorp/datrix/internal/rowstore"
)

func openForTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "datrix.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndSelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openForTest(t)

	if err := s.SeedCatalog(ctx,
		[]report.Question{
			{ID: "q1", Text: "Daily rework tracking?", CategoryKey: "quality"},
			{ID: "q2", Text: "Hourly line review?", CategoryKey: "production"},
		},
		[]report.Category{
			{Key: "quality", Name: "Quality"},
			{Key: "production", Name: "Production"},
		}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	assessed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.InsertAssessment(ctx, Submission{
		AssessmentID: "a1",
		Company:      "Acme Apparel",
		Email:        "md@acme.example",
		AssessedAt:   assessed,
		Scores:       map[string]float64{"q1": 1, "q2": 3},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	meta, err := s.Select(ctx, rowstore.TableAssessments, url.Values{
		"id":    {rowstore.Eq("a1")},
		"limit": {"1"},
	})
	if err != nil {
		t.Fatalf("select assessments: %v", err)
	}
	if len(meta) != 1 {
		t.Fatalf("meta rows = %d, want 1", len(meta))
	}
	if got := meta[0].String("", "company"); got != "Acme Apparel" {
		t.Fatalf("company = %q", got)
	}
	if got := meta[0].String("", "assessed_at"); got != "2026-03-01T10:00:00Z" {
		t.Fatalf("assessed_at = %q", got)
	}

	answers, err := s.Select(ctx, rowstore.TableAnswers, url.Values{
		"assessment_id": {rowstore.Eq("a1")},
	})
	if err != nil {
		t.Fatalf("select answers: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("answer rows = %d, want 2", len(answers))
	}
	for _, a := range answers {
		score := report.ParseScore(a.Value("score", "answer_value"))
		if score != 1 && score != 3 {
			t.Fatalf("unexpected score %v in %v", score, a)
		}
	}
}

func TestInsertReplacesPreviousAnswers(t *testing.T) {
	ctx := context.Background()
	s := openForTest(t)

	first := Submission{AssessmentID: "a1", Company: "C", AssessedAt: time.Now(), Scores: map[string]float64{"q1": 0, "q2": 0}}
	if err := s.InsertAssessment(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := Submission{AssessmentID: "a1", Company: "C", AssessedAt: time.Now(), Scores: map[string]float64{"q1": 4}}
	if err := s.InsertAssessment(ctx, second); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	answers, err := s.Select(ctx, rowstore.TableAnswers, url.Values{"assessment_id": {rowstore.Eq("a1")}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("answer rows = %d, resubmission should replace", len(answers))
	}
}

func TestInsertRequiresAssessmentID(t *testing.T) {
	s := openForTest(t)
	if err := s.InsertAssessment(context.Background(), Submission{}); err == nil {
		t.Fatal("expected error for empty assessment id")
	}
}

func TestSelectRejectsUnknownTableAndFilters(t *testing.T) {
	ctx := context.Background()
	s := openForTest(t)

	if _, err := s.Select(ctx, "users; DROP TABLE assessments", nil); err == nil {
		t.Fatal("expected unknown-table error")
	}
	if _, err := s.Select(ctx, rowstore.TableAnswers, url.Values{"bad column": {"eq.x"}}); err == nil {
		t.Fatal("expected bad-column error")
	}
	if _, err := s.Select(ctx, rowstore.TableAnswers, url.Values{"score": {"gt.1"}}); err == nil {
		t.Fatal("expected unsupported-filter error")
	}
}

func TestSelectEmptyResultIsNotError(t *testing.T) {
	s := openForTest(t)
	rows, err := s.Select(context.Background(), rowstore.TableCategories, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %v", rows)
	}
}
