package server

import (
	"net/http"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
)

type adjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// handleProducts handles GET/POST /api/products.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		products, err := s.app.InventoryService.ListProducts(r.Context(), interfaces.ProductFilter{
			Kind:     models.ProductKind(q.Get("kind")),
			Search:   q.Get("q"),
			LowStock: queryBool(r, "low_stock"),
		})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var p models.Product
		if !DecodeJSON(w, r, &p) {
			return
		}
		created, err := s.app.InventoryService.CreateProduct(r.Context(), p)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeProducts dispatches /api/products/{id}[/adjust|/movements].
func (s *Server) routeProducts(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r, "/api/products/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Product not found")
		return
	}

	switch sub {
	case "":
		s.handleProduct(w, r, id)
	case "adjust":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		var req adjustStockRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		p, err := s.app.InventoryService.AdjustStock(r.Context(), id, req.Delta, req.Reason)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	case "movements":
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		limit, err := queryInt(r, "limit", 50)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		moves, err := s.app.InventoryService.Movements(r.Context(), id, limit)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, moves)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		p, err := s.app.InventoryService.GetProduct(ctx, id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var in models.Product
		if !DecodeJSON(w, r, &in) {
			return
		}
		p, err := s.app.InventoryService.UpdateProduct(ctx, id, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.app.InventoryService.DeleteProduct(ctx, id, queryBool(r, "force")); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
