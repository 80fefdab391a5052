package server

import (
	"bytes"
	"net/http"
	"time"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
)

// defaultSeriesDays is the window used by series endpoints when no range is given.
const defaultSeriesDays = 30

// seriesRange fills an open range with the last defaultSeriesDays days up to and including today (UTC).
func seriesRange(rng interfaces.DateRange, now time.Time) interfaces.DateRange {
	if rng.To.IsZero() {
		y, m, d := now.UTC().Date()
		rng.To = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
	if rng.From.IsZero() {
		rng.From = rng.To.AddDate(0, 0, -defaultSeriesDays)
	}
	return rng
}

// handleReportSummary handles GET /api/reports/summary. An open range covers all time.
func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	summary, err := s.app.ReportService.Summary(r.Context(), rng)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// handleReportDailySales handles GET /api/reports/daily-sales.
func (s *Server) handleReportDailySales(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	series, err := s.app.ReportService.DailySales(r.Context(), seriesRange(rng, time.Now()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, series)
}

// handleReportSalesChart handles GET /api/reports/sales-chart.png.
func (s *Server) handleReportSalesChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	rng, err := parseRange(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// Render into a buffer so a failed render still yields a JSON error.
	var buf bytes.Buffer
	if err := s.app.ReportService.SalesChart(r.Context(), seriesRange(rng, time.Now()), &buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
