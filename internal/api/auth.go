package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/lightshow-core/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleLogin exchanges operator credentials for a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.operator.Authenticate(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.logger.Warn("failed login", "username", req.Username, "remote", r.RemoteAddr)
			writeUnauthorized(w, "invalid credentials")
		case errors.Is(err, auth.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no operator account configured")
		default:
			s.logger.Error("operator password hash unusable", "error", err)
			writeInternalError(w, "authentication unavailable")
		}
		return
	}

	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	token, expires, err := auth.IssueToken(req.Username, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	s.logger.Info("operator logged in", "username", req.Username)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expires).Round(time.Second).Seconds()),
		ExpiresAt:   expires.UTC(),
	})
}
