// Package httpapi exposes the assessment report pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/navvicorp/datrix/internal/demo"
	"github.com/navvicorp/datrix/internal/localstore"
	"github.com/navvicorp/datrix/internal/logger"
	"github.com/navvicorp/datrix/internal/mailer"
	"github.com/navvicorp/datrix/internal/narrative"
	"github.com/navvicorp/datrix/internal/report"
	"github.com/navvicorp/datrix/internal/reportdata"
	"github.com/navvicorp/datrix/internal/rowstore"
)

// Config wires the server's collaborators. Store, Narrator and Mailer
// may be nil; the affected endpoints degrade instead of failing startup.
type Config struct {
	Store          rowstore.Selector
	Narrator       narrative.Generator
	Mailer         mailer.Sender
	AnnualCostBase float64
	Log            *logger.Logger
	Clock          func() time.Time
}

type Server struct {
	store    rowstore.Selector
	narrator narrative.Generator
	mailer   mailer.Sender
	costBase float64
	log      *logger.Logger
	clock    func() time.Time
}

// assessmentWriter is satisfied by stores that accept submissions.
// The REST store is read-only; the local store implements this.
type assessmentWriter interface {
	InsertAssessment(ctx context.Context, sub localstore.Submission) error
}

func NewServer(cfg Config) http.Handler {
	s := &Server{
		store:    cfg.Store,
		narrator: cfg.Narrator,
		mailer:   cfg.Mailer,
		costBase: cfg.AnnualCostBase,
		log:      cfg.Log,
		clock:    cfg.Clock,
	}
	if s.costBase <= 0 {
		s.costBase = reportdata.DefaultAnnualCostBase
	}
	if s.log == nil {
		s.log = logger.New()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/report-data", s.handleReportData)
	mux.HandleFunc("/v1/narrative", s.handleNarrative)
	mux.HandleFunc("/v1/report/send", s.handleSendReport)
	mux.HandleFunc("/v1/assessments", s.handleSubmitAssessment)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// demoPayload is a summary flagged as placeholder data so the frontend
// can label it. Served whenever live data cannot be reached.
type demoPayload struct {
	report.Summary
	Demo   bool   `json:"demo"`
	Reason string `json:"reason"`
}

func (s *Server) writeDemo(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusOK, demoPayload{
		Summary: demo.Summary(s.clock()),
		Demo:    true,
		Reason:  reason,
	})
}

func (s *Server) handleReportData(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("assessment_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "assessment_id is required")
		return
	}
	log := s.log.WithRequest(r).WithField("assessment_id", id)

	if s.store == nil {
		s.writeDemo(w, "no data store configured")
		return
	}

	sum, err := reportdata.Build(r.Context(), s.store, id, reportdata.Options{
		AnnualCostBase: s.costBase,
		Clock:          s.clock,
		Log:            log,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sum)
	case errors.Is(err, reportdata.ErrNotFound):
		writeError(w, http.StatusNotFound, "assessment not found")
	default:
		log.WithError(err).Warn("report build failed, serving demo data")
		s.writeDemo(w, "live data unavailable")
	}
}

type narrativeRequest struct {
	Company    string                 `json:"company"`
	Overall    report.Overall         `json:"overall"`
	Categories []report.CategoryScore `json:"categories"`
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var req narrativeRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	sum := report.Summary{
		Company:    req.Company,
		Overall:    req.Overall,
		Categories: req.Categories,
	}
	text, usedFallback := s.generateNarrative(r.Context(), sum)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"text":     text,
		"fallback": usedFallback,
	})
}

// generateNarrative never fails; any generator problem falls back to the
// templated summary.
func (s *Server) generateNarrative(ctx context.Context, sum report.Summary) (string, bool) {
	if s.narrator != nil {
		text, err := s.narrator.Generate(ctx, sum)
		if err == nil {
			return text, false
		}
		s.log.WithError(err).Warn("narrative generation failed, using template")
	}
	text, _ := narrative.Fallback{}.Generate(ctx, sum)
	return text, true
}

type sendReportRequest struct {
	AssessmentID string `json:"assessment_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
}

func (s *Server) handleSendReport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var req sendReportRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.AssessmentID = strings.TrimSpace(req.AssessmentID)
	req.Email = strings.TrimSpace(req.Email)
	if req.AssessmentID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "assessment_id and email are required")
		return
	}
	if s.mailer == nil {
		writeError(w, http.StatusServiceUnavailable, "email delivery is not configured")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no data store configured")
		return
	}
	log := s.log.WithRequest(r).WithField("assessment_id", req.AssessmentID)

	sum, err := reportdata.Build(r.Context(), s.store, req.AssessmentID, reportdata.Options{
		AnnualCostBase: s.costBase,
		Clock:          s.clock,
		Log:            log,
	})
	switch {
	case errors.Is(err, reportdata.ErrNotFound):
		writeError(w, http.StatusNotFound, "assessment not found")
		return
	case err != nil:
		log.WithError(err).Error("report build failed")
		writeError(w, http.StatusBadGateway, "could not assemble report data")
		return
	}

	text, _ := s.generateNarrative(r.Context(), sum)
	htmlBody, err := mailer.ReportHTML(req.Name, report.Markdown(sum, text), sum)
	if err != nil {
		log.WithError(err).Error("report render failed")
		writeError(w, http.StatusInternalServerError, "could not render report")
		return
	}

	emailID, err := s.mailer.Send(r.Context(), mailer.Message{
		To:      req.Email,
		ToName:  req.Name,
		Subject: mailer.ReportSubject(sum.Company),
		HTML:    htmlBody,
	})
	if err != nil {
		log.WithError(err).Error("report email failed")
		writeError(w, http.StatusBadGateway, "failed to send report email")
		return
	}
	log.WithField("email_id", emailID).Info("report email sent")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "email_id": emailID})
}

type submitAssessmentRequest struct {
	AssessmentID string `json:"assessment_id"`
	Company      string `json:"company"`
	Email        string `json:"email"`
	Answers      []struct {
		QuestionID string `json:"question_id"`
		Score      any    `json:"score"`
	} `json:"answers"`
}

func (s *Server) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	writer, ok := s.store.(assessmentWriter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "configured store does not accept submissions")
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var req submitAssessmentRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "answers are required")
		return
	}
	id := strings.TrimSpace(req.AssessmentID)
	if id == "" {
		id = uuid.New().String()
	}

	scores := make(map[string]float64, len(req.Answers))
	for _, a := range req.Answers {
		qid := strings.TrimSpace(a.QuestionID)
		if qid == "" {
			writeError(w, http.StatusBadRequest, "answers require a question_id")
			return
		}
		scores[qid] = report.ParseScore(a.Score)
	}

	if err := writer.InsertAssessment(r.Context(), localstore.Submission{
		AssessmentID: id,
		Company:      strings.TrimSpace(req.Company),
		Email:        strings.TrimSpace(req.Email),
		AssessedAt:   s.clock(),
		Scores:       scores,
	}); err != nil {
		s.log.WithRequest(r).WithError(err).Error("assessment insert failed")
		writeError(w, http.StatusInternalServerError, "could not store assessment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "assessment_id": id})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	_, writable := s.store.(assessmentWriter)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"store":      s.store != nil,
		"writable":   writable,
		"narrator":   s.narrator != nil,
		"mailer":     s.mailer != nil,
		"checked_at": s.clock().UTC().Format(time.RFC3339),
	})
}
