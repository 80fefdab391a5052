package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/shopspring/decimal"
)

type partyRequest struct {
	models.Party
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Note   string          `json:"note"`
}

type balanceAdjustRequest struct {
	Delta decimal.Decimal `json:"delta"`
	Note  string          `json:"note"`
}

// partyKind derives the party kind from /api/customers or /api/dealers.
func partyKind(r *http.Request) (models.PartyKind, string) {
	if strings.HasPrefix(r.URL.Path, "/api/dealers") {
		return models.PartyDealer, "/api/dealers/"
	}
	return models.PartyCustomer, "/api/customers/"
}

// handleParties handles GET/POST on the customer and dealer collections.
func (s *Server) handleParties(w http.ResponseWriter, r *http.Request) {
	kind, _ := partyKind(r)
	switch r.Method {
	case http.MethodGet:
		parties, err := s.app.PartyService.List(r.Context(), kind, r.URL.Query().Get("q"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, parties)
	case http.MethodPost:
		var req partyRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		req.Party.Kind = kind
		p, err := s.app.PartyService.Create(r.Context(), req.Party, req.OpeningBalance)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, p)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeParties dispatches {id}[/ledger|/payments|/adjust] for either kind.
func (s *Server) routeParties(w http.ResponseWriter, r *http.Request) {
	kind, prefix := partyKind(r)
	id, sub := splitPath(r, prefix)
	if id == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	ctx := r.Context()

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			p, err := s.app.PartyService.Get(ctx, kind, id)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, p)
		case http.MethodPut:
			var in models.Party
			if !DecodeJSON(w, r, &in) {
				return
			}
			p, err := s.app.PartyService.Update(ctx, kind, id, in)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, p)
		case http.MethodDelete:
			if err := s.app.PartyService.Delete(ctx, kind, id); err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case "ledger":
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		limit, err := queryInt(r, "limit", 0)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		ledger, err := s.app.PartyService.Ledger(ctx, kind, id, limit)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, ledger)
	case "payments":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		var req paymentRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		p, err := s.app.PartyService.RecordPayment(ctx, kind, id, req.Amount, req.Date, req.Note)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	case "adjust":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		var req balanceAdjustRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		p, err := s.app.PartyService.Adjust(ctx, kind, id, req.Delta, req.Note)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}
