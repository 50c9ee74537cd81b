package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nirvana-analytics/healthreport/report"
)

type fakeGenerator struct {
	got report.Request
	err error
}

func (f *fakeGenerator) Generate(_ context.Context, req report.Request) (*report.Report, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &report.Report{PDF: []byte("%PDF-1.7 fake")}, nil
}

const validBody = `{
  "healthData": {"patientId": "P-001", "age": 35, "height": 175, "weight": 70},
  "analysis": {
    "overallHealthScore": {"score": 8, "explanation": "Good."},
    "cholesterolLevels": {"score": 7, "explanation": "Fine."},
    "diabetesRisk": {"score": 3, "explanation": "Low."},
    "fattyLiverRisk": {"score": 2, "explanation": "Low."},
    "hypertensionRisk": {"score": 4, "explanation": "Moderate."}
  }
}`

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/generate-report", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return payload["error"]
}

func TestGenerateReportReturnsPDF(t *testing.T) {
	gen := &fakeGenerator{}
	rec := post(New(gen), validBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=health-report.pdf" {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not the generated PDF")
	}
	if gen.got.HealthData.PatientID != "P-001" || gen.got.Analysis.DiabetesRisk.Score != 3 {
		t.Fatalf("request not decoded: %+v", gen.got)
	}
}

func TestGenerateReportBadJSON(t *testing.T) {
	rec := post(New(&fakeGenerator{}), `{"healthData": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Invalid request body" {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestGenerateReportValidationError(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: healthData.patientId is required", report.ErrInvalidInput)}
	rec := post(New(gen), validBody)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "patientId") {
		t.Fatalf("validation message should be returned, got %q", msg)
	}
}

func TestGenerateReportInternalError(t *testing.T) {
	rec := post(New(&fakeGenerator{err: errors.New("font not loadable")}), validBody)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Failed to generate report" {
		t.Fatalf("internal details must not leak, got %q", msg)
	}
}

func TestMethodNotAllowedAndHealthz(t *testing.T) {
	h := New(&fakeGenerator{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generate-report", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rec.Code)
	}
}

func TestGenerateReportEndToEnd(t *testing.T) {
	tmpl, err := report.DefaultTemplate()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	gen := report.NewGenerator(tmpl, report.StaticNarrative("All values are within the normal range."))
	rec := post(New(gen), validBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a PDF")
	}
}
