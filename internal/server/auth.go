package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

// signJWT issues an HS256 token for user.
func signJWT(user *models.User, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.UserID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// validateJWT verifies the signature and expiry of tokenString.
func validateJWT(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// loginLimiter throttles login attempts per client address. A client idle
// long enough to refill its burst is forgotten, since a fresh limiter would
// behave the same.
type loginLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastPrune time.Time
	clients   map[string]*loginClient
}

type loginClient struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	if perSecond <= 0 {
		perSecond = 0.2
	}
	if burst <= 0 {
		burst = 5
	}
	return &loginLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    time.Duration(float64(burst) / perSecond * float64(time.Second)),
		now:     time.Now,
		clients: make(map[string]*loginClient),
	}
}

func (l *loginLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	c, ok := l.clients[client]
	if !ok {
		l.prune(now)
		c = &loginClient{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.lim.AllowN(now, 1)
}

// prune drops idle clients, at most once per idle window.
func (l *loginLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.idle {
		return
	}
	l.lastPrune = now
	for addr, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.idle {
			delete(l.clients, addr)
		}
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// handleAuthLogin handles POST /api/auth/login.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.login.allow(clientAddr(r)) {
		w.Header().Set("Retry-After", "5")
		WriteErrorWithCode(w, http.StatusTooManyRequests, "Too many login attempts", "rate_limited")
		return
	}

	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := s.app.UserService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Info().Str("username", req.Username).Str("client", clientAddr(r)).Msg("Login failed")
		s.writeServiceError(w, r, err)
		return
	}

	expiry := s.app.Config.Auth.GetTokenExpiry()
	token, err := signJWT(user, []byte(s.app.Config.Auth.JWTSecret), expiry)
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("sign token: %w", err))
		return
	}

	s.logger.Info().Str("user_id", user.UserID).Msg("Login succeeded")
	WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(expiry).UTC(),
		User:      toUserResponse(user),
	})
}
