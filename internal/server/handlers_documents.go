package server

import (
	"net/http"

	"github.com/bobmcallan/partsdesk/internal/models"
)

// handleSales handles GET/POST /api/sales. GET accepts from, to and
// customer_id, or serial to look up the invoice a battery was sold on.
func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		if serial := r.URL.Query().Get("serial"); serial != "" {
			sale, err := s.app.SaleService.FindBySerial(ctx, serial)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, []*models.Sale{sale})
			return
		}
		rng, err := parseRange(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		sales, err := s.app.SaleService.List(ctx, rng, r.URL.Query().Get("customer_id"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, sales)
	case http.MethodPost:
		var in models.SaleInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		sale, err := s.app.SaleService.Create(ctx, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, sale)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) routeSales(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r, "/api/sales/")
	if id == "" || sub != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		sale, err := s.app.SaleService.Get(ctx, id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, sale)
	case http.MethodPut:
		var in models.SaleInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		sale, err := s.app.SaleService.Update(ctx, id, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, sale)
	case http.MethodDelete:
		if err := s.app.SaleService.Delete(ctx, id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handlePurchases handles GET/POST /api/purchases.
func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		rng, err := parseRange(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		purchases, err := s.app.PurchaseService.List(ctx, rng, r.URL.Query().Get("dealer_id"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, purchases)
	case http.MethodPost:
		var in models.PurchaseInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		p, err := s.app.PurchaseService.Create(ctx, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, p)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) routePurchases(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r, "/api/purchases/")
	if id == "" || sub != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		p, err := s.app.PurchaseService.Get(ctx, id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var in models.PurchaseInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		p, err := s.app.PurchaseService.Update(ctx, id, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.app.PurchaseService.Delete(ctx, id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handleClaims handles GET/POST /api/claims. Claims are processed, never edited.
func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		rng, err := parseRange(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		claims, err := s.app.ClaimService.List(ctx, rng)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, claims)
	case http.MethodPost:
		var in models.ClaimInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		c, err := s.app.ClaimService.Process(ctx, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, c)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) routeClaims(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r, "/api/claims/")
	if id == "" || sub != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		c, err := s.app.ClaimService.Get(ctx, id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := s.app.ClaimService.Delete(ctx, id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleRepairs handles GET/POST /api/repairs. GET filters by ?status=.
func (s *Server) handleRepairs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		jobs, err := s.app.RepairService.List(ctx, models.RepairStatus(r.URL.Query().Get("status")))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, jobs)
	case http.MethodPost:
		var in models.RepairInput
		if !DecodeJSON(w, r, &in) {
			return
		}
		job, err := s.app.RepairService.Create(ctx, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, job)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeRepairs dispatches /api/repairs/{id}[/complete|/deliver|/cancel].
func (s *Server) routeRepairs(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r, "/api/repairs/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	ctx := r.Context()

	var (
		job *models.RepairJob
		err error
	)
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			job, err = s.app.RepairService.Get(ctx, id)
		case http.MethodPut:
			var in models.RepairInput
			if !DecodeJSON(w, r, &in) {
				return
			}
			job, err = s.app.RepairService.Update(ctx, id, in)
		case http.MethodDelete:
			if err := s.app.RepairService.Delete(ctx, id); err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
			return
		}
	case "complete":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		var c models.RepairCompletion
		if !DecodeJSON(w, r, &c) {
			return
		}
		job, err = s.app.RepairService.Complete(ctx, id, c)
	case "deliver":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		job, err = s.app.RepairService.Deliver(ctx, id)
	case "cancel":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		job, err = s.app.RepairService.Cancel(ctx, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// handleExpenses handles GET/POST /api/expenses.
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		rng, err := parseRange(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		expenses, err := s.app.ExpenseService.List(ctx, rng, r.URL.Query().Get("category"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, expenses)
	case http.MethodPost:
		var e models.Expense
		if !DecodeJSON(w, r, &e) {
			return
		}
		created, err := s.app.ExpenseService.Create(ctx, e)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) routeExpenses(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r, "/api/expenses/")
	if id == "" || sub != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		e, err := s.app.ExpenseService.Get(ctx, id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, e)
	case http.MethodPut:
		var in models.Expense
		if !DecodeJSON(w, r, &in) {
			return
		}
		e, err := s.app.ExpenseService.Update(ctx, id, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, e)
	case http.MethodDelete:
		if err := s.app.ExpenseService.Delete(ctx, id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
