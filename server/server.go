package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/nirvana-analytics/healthreport/report"
)

const maxRequestBytes = 10 << 20

// Generator is the report pipeline behind the HTTP surface.
type Generator interface {
	Generate(ctx context.Context, req report.Request) (*report.Report, error)
}

type handler struct {
	gen Generator
}

// New returns the HTTP handler exposing POST /api/generate-report and GET /healthz.
// Other methods on these paths get 405 from the mux.
func New(gen Generator) http.Handler {
	h := &handler{gen: gen}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-report", h.generateReport)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (h *handler) generateReport(w http.ResponseWriter, r *http.Request) {
	var req report.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rep, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, report.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Report generation error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=health-report.pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rep.PDF); err != nil {
		log.Printf("write report response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
