package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/navvicorp/datrix/internal/localstore"
	"github.com/navvicorp/datrix/internal/mailer"
	"github.com/navvicorp/datrix/internal/report"
	"github.com/navvicorp/datrix/internal/rowstore"
)

type fakeStore struct {
	rows map[string][]rowstore.Row
	fail map[string]error

	inserted []localstore.Submission
	writable bool
}

func (f *fakeStore) Select(_ context.Context, table string, _ url.Values) ([]rowstore.Row, error) {
	if err := f.fail[table]; err != nil {
		return nil, err
	}
	return f.rows[table], nil
}

// writableStore layers InsertAssessment on the fake selector.
type writableStore struct {
	*fakeStore
}

func (f *writableStore) InsertAssessment(_ context.Context, sub localstore.Submission) error {
	if !f.writable {
		return errors.New("disk full")
	}
	f.inserted = append(f.inserted, sub)
	return nil
}

func storeFixture() *fakeStore {
	return &fakeStore{
		rows: map[string][]rowstore.Row{
			rowstore.TableAssessments: {
				{"id": "a1", "company": "Acme Apparel", "assessed_at": "2026-03-01T10:00:00Z"},
			},
			rowstore.TableAnswers: {
				{"question_id": "q1", "score": 2.0},
				{"question_id": "q2", "score": 4.0},
			},
			rowstore.TableQuestions: {
				{"id": "q1", "text": "Is rework tracked daily?", "category_key": "quality"},
				{"id": "q2", "text": "Is output posted hourly?", "category_key": "production"},
			},
			rowstore.TableCategories: {
				{"key": "quality", "name": "Quality"},
				{"key": "production", "name": "Production"},
			},
		},
		fail: map[string]error{},
	}
}

type fakeNarrator struct {
	text string
	err  error
}

func (f *fakeNarrator) Generate(_ context.Context, _ report.Summary) (string, error) {
	return f.text, f.err
}

type fakeSender struct {
	got mailer.Message
	id  string
	err error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) (string, error) {
	f.got = msg
	return f.id, f.err
}

func fixedClock() time.Time {
	return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
}

func newTestServer(cfg Config) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = fixedClock
	}
	return NewServer(cfg)
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestReportDataRequiresID(t *testing.T) {
	h := newTestServer(Config{Store: storeFixture()})
	rec, out := doJSON(t, h, http.MethodGet, "/v1/report-data", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["ok"] != false {
		t.Errorf("body = %v", out)
	}
}

func TestReportDataHappyPath(t *testing.T) {
	h := newTestServer(Config{Store: storeFixture()})
	rec, out := doJSON(t, h, http.MethodGet, "/v1/report-data?assessment_id=a1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", rec.Code, out)
	}
	if out["company"] != "Acme Apparel" {
		t.Errorf("company = %v", out["company"])
	}
	if _, flagged := out["demo"]; flagged {
		t.Error("live summary should not carry the demo flag")
	}
	overall := out["overall"].(map[string]any)
	if overall["score"].(float64) != 6 || overall["max"].(float64) != 8 {
		t.Errorf("overall = %v", overall)
	}
}

func TestReportDataNotFound(t *testing.T) {
	store := storeFixture()
	store.rows[rowstore.TableAssessments] = nil
	h := newTestServer(Config{Store: store})
	rec, _ := doJSON(t, h, http.MethodGet, "/v1/report-data?assessment_id=missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReportDataNoStoreServesDemo(t *testing.T) {
	h := newTestServer(Config{})
	rec, out := doJSON(t, h, http.MethodGet, "/v1/report-data?assessment_id=a1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["demo"] != true {
		t.Errorf("demo flag missing: %v", out)
	}
	if out["company"] == "" {
		t.Error("demo payload has no company")
	}
}

func TestReportDataStoreFailureServesDemo(t *testing.T) {
	store := storeFixture()
	store.fail[rowstore.TableAssessments] = errors.New("connection refused")
	h := newTestServer(Config{Store: store})
	rec, out := doJSON(t, h, http.MethodGet, "/v1/report-data?assessment_id=a1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["demo"] != true || out["reason"] == "" {
		t.Errorf("expected flagged demo payload, got %v", out)
	}
}

func TestReportDataMethodNotAllowed(t *testing.T) {
	h := newTestServer(Config{Store: storeFixture()})
	rec, _ := doJSON(t, h, http.MethodPost, "/v1/report-data?assessment_id=a1", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNarrativeUsesGenerator(t *testing.T) {
	h := newTestServer(Config{Narrator: &fakeNarrator{text: "All looks good."}})
	rec, out := doJSON(t, h, http.MethodPost, "/v1/narrative",
		`{"company":"Acme","overall":{"score":9,"max":16},"categories":[{"key":"quality","name":"Quality","avg":2.25,"max":4}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["text"] != "All looks good." || out["fallback"] != false {
		t.Errorf("body = %v", out)
	}
}

func TestNarrativeFallsBackOnGeneratorError(t *testing.T) {
	h := newTestServer(Config{Narrator: &fakeNarrator{err: errors.New("model unavailable")}})
	rec, out := doJSON(t, h, http.MethodPost, "/v1/narrative",
		`{"company":"Acme","overall":{"score":9,"max":16}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["fallback"] != true {
		t.Errorf("body = %v", out)
	}
	if !strings.Contains(out["text"].(string), "Acme") {
		t.Errorf("fallback text = %v", out["text"])
	}
}

func TestNarrativeFallsBackWithoutGenerator(t *testing.T) {
	h := newTestServer(Config{})
	rec, out := doJSON(t, h, http.MethodPost, "/v1/narrative", `{"company":"Acme"}`)
	if rec.Code != http.StatusOK || out["fallback"] != true {
		t.Fatalf("status = %d body = %v", rec.Code, out)
	}
}

func TestSendReportHappyPath(t *testing.T) {
	sender := &fakeSender{id: "msg-1"}
	h := newTestServer(Config{
		Store:    storeFixture(),
		Narrator: &fakeNarrator{text: "Narrative here."},
		Mailer:   sender,
	})
	rec, out := doJSON(t, h, http.MethodPost, "/v1/report/send",
		`{"assessment_id":"a1","email":"owner@acme.example","name":"Jo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", rec.Code, out)
	}
	if out["email_id"] != "msg-1" {
		t.Errorf("body = %v", out)
	}
	if sender.got.To != "owner@acme.example" {
		t.Errorf("sent to %q", sender.got.To)
	}
	if !strings.Contains(sender.got.Subject, "Acme Apparel") {
		t.Errorf("subject = %q", sender.got.Subject)
	}
	if !strings.Contains(sender.got.HTML, "Narrative here.") {
		t.Error("narrative missing from email body")
	}
}

func TestSendReportValidation(t *testing.T) {
	h := newTestServer(Config{Store: storeFixture(), Mailer: &fakeSender{}})
	rec, _ := doJSON(t, h, http.MethodPost, "/v1/report/send", `{"email":"owner@acme.example"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSendReportMailerUnconfigured(t *testing.T) {
	h := newTestServer(Config{Store: storeFixture()})
	rec, _ := doJSON(t, h, http.MethodPost, "/v1/report/send",
		`{"assessment_id":"a1","email":"owner@acme.example"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSendReportDeliveryFailure(t *testing.T) {
	h := newTestServer(Config{
		Store:  storeFixture(),
		Mailer: &fakeSender{err: errors.New("provider down")},
	})
	rec, out := doJSON(t, h, http.MethodPost, "/v1/report/send",
		`{"assessment_id":"a1","email":"owner@acme.example"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["ok"] != false {
		t.Errorf("body = %v", out)
	}
}

func TestSendReportNotFound(t *testing.T) {
	store := storeFixture()
	store.rows[rowstore.TableAssessments] = nil
	h := newTestServer(Config{Store: store, Mailer: &fakeSender{}})
	rec, _ := doJSON(t, h, http.MethodPost, "/v1/report/send",
		`{"assessment_id":"missing","email":"owner@acme.example"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitAssessmentReadOnlyStore(t *testing.T) {
	h := newTestServer(Config{Store: storeFixture()})
	rec, _ := doJSON(t, h, http.MethodPost, "/v1/assessments",
		`{"company":"Acme","answers":[{"question_id":"q1","score":3}]}`)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitAssessment(t *testing.T) {
	store := &writableStore{fakeStore: storeFixture()}
	store.writable = true
	h := newTestServer(Config{Store: store})
	rec, out := doJSON(t, h, http.MethodPost, "/v1/assessments",
		`{"company":"Acme","email":"owner@acme.example","answers":[{"question_id":"q1","score":"3"},{"question_id":"q2","score":null}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", rec.Code, out)
	}
	if out["assessment_id"] == "" {
		t.Error("no assessment id returned")
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted = %d submissions", len(store.inserted))
	}
	sub := store.inserted[0]
	if sub.Scores["q1"] != 3 || sub.Scores["q2"] != 0 {
		t.Errorf("scores = %v", sub.Scores)
	}
	if !sub.AssessedAt.Equal(fixedClock()) {
		t.Errorf("assessed_at = %v", sub.AssessedAt)
	}
}

func TestSubmitAssessmentRequiresAnswers(t *testing.T) {
	store := &writableStore{fakeStore: storeFixture()}
	store.writable = true
	h := newTestServer(Config{Store: store})
	rec, _ := doJSON(t, h, http.MethodPost, "/v1/assessments", `{"company":"Acme"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	store := &writableStore{fakeStore: storeFixture()}
	h := newTestServer(Config{Store: store, Mailer: &fakeSender{}})
	rec, out := doJSON(t, h, http.MethodGet, "/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["ok"] != true || out["store"] != true || out["writable"] != true || out["mailer"] != true || out["narrator"] != false {
		t.Errorf("body = %v", out)
	}
}
