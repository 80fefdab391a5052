package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/partsdesk/internal/common"
)

// registerRoutes sets up all HTTP routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Auth and operators
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/users", s.handleUsers)
	mux.HandleFunc("/api/users/", s.routeUsers)

	// Catalogue
	mux.HandleFunc("/api/products", s.handleProducts)
	mux.HandleFunc("/api/products/", s.routeProducts)

	// Parties
	mux.HandleFunc("/api/customers", s.handleParties)
	mux.HandleFunc("/api/customers/", s.routeParties)
	mux.HandleFunc("/api/dealers", s.handleParties)
	mux.HandleFunc("/api/dealers/", s.routeParties)

	// Documents
	mux.HandleFunc("/api/sales", s.handleSales)
	mux.HandleFunc("/api/sales/", s.routeSales)
	mux.HandleFunc("/api/purchases", s.handlePurchases)
	mux.HandleFunc("/api/purchases/", s.routePurchases)
	mux.HandleFunc("/api/claims", s.handleClaims)
	mux.HandleFunc("/api/claims/", s.routeClaims)
	mux.HandleFunc("/api/repairs", s.handleRepairs)
	mux.HandleFunc("/api/repairs/", s.routeRepairs)
	mux.HandleFunc("/api/expenses", s.handleExpenses)
	mux.HandleFunc("/api/expenses/", s.routeExpenses)

	// Reports
	mux.HandleFunc("/api/reports/summary", s.handleReportSummary)
	mux.HandleFunc("/api/reports/daily-sales", s.handleReportDailySales)
	mux.HandleFunc("/api/reports/sales-chart.png", s.handleReportSalesChart)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.app.Storage.Backend(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}
