package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/comdesk/sessiond/internal/server/services"
)

type userPayload struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
}

type pairPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

func toPairPayload(pair *services.TokenPair) pairPayload {
	return pairPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.Format(time.RFC3339),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.Username == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Username and password are required")
		return
	}

	user, pair, err := s.tokens.Register(r.Context(), in.Username, in.Password, in.DisplayName, in.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		User userPayload `json:"user"`
		pairPayload
	}{
		User:        userPayload{Username: user.Username, DisplayName: user.DisplayName, Role: user.Role},
		pairPayload: toPairPayload(pair),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.Username == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Username and password are required")
		return
	}

	user, pair, err := s.tokens.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		User userPayload `json:"user"`
		pairPayload
	}{
		User:        userPayload{Username: user.Username, DisplayName: user.DisplayName, Role: user.Role},
		pairPayload: toPairPayload(pair),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.AccessToken == "" || in.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Access and refresh tokens are required")
		return
	}

	pair, err := s.tokens.Refresh(r.Context(), in.AccessToken, in.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPairPayload(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Access token is required")
		return
	}

	if err := s.tokens.Logout(r.Context(), in.AccessToken); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// handleSession reports the identity carried by the bearer token; the auth
// middleware has already validated it.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", reauthMessage)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		userPayload
		ExpiresAt string `json:"expiresAt"`
	}{
		userPayload: userPayload{
			Username:    claims.Subject,
			DisplayName: claims.DisplayName,
			Role:        claims.Role,
		},
		ExpiresAt: claims.ExpiresAt.Format(time.RFC3339),
	})
}
