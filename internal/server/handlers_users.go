package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/partsdesk/internal/models"
)

// userResponse is the public view of an operator; the password hash never leaves the server.
type userResponse struct {
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		Username:  u.UserID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

// handleUsers handles GET/POST /api/users (admin only, enforced by the service).
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		users, err := s.app.UserService.List(ctx)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out := make([]userResponse, 0, len(users))
		for _, u := range users {
			out = append(out, toUserResponse(u))
		}
		WriteJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req createUserRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		u, err := s.app.UserService.Create(ctx, req.Username, req.Email, req.Password, req.Role)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, toUserResponse(u))
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeUsers dispatches /api/users/{id} and /api/users/{id}/password.
func (s *Server) routeUsers(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r, "/api/users/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	ctx := r.Context()

	switch sub {
	case "":
		if !RequireMethod(w, r, http.MethodDelete) {
			return
		}
		if err := s.app.UserService.Delete(ctx, id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "password":
		if !RequireMethod(w, r, http.MethodPut) {
			return
		}
		var req setPasswordRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if err := s.app.UserService.SetPassword(ctx, id, req.Password); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}
