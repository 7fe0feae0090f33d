package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	accountservice "medportal/backend/internal/account/service"
	"medportal/backend/internal/governor"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	AccountID   string    `json:"accountId"`
	SessionID   string    `json:"sessionId"`
	DeviceClass string    `json:"deviceClass"`
}

type sessionInfo struct {
	ID             string    `json:"id"`
	DeviceClass    string    `json:"deviceClass"`
	IPAddress      string    `json:"ipAddress"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	Current        bool      `json:"current"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	res, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, accountservice.ErrEmailAlreadyRegistered) {
			writeServiceError(w, err)
			return
		}
		// validation errors from Register are user-facing
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"accountId": res.AccountID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	ip := ClientIPFromContext(r.Context())
	res, err := s.auth.Login(r.Context(), req.Email, req.Password,
		ip, r.UserAgent(), r.Header.Get("Accept"))
	if err != nil {
		if errors.Is(err, accountservice.ErrInvalidCredentials) || errors.Is(err, governor.ErrAccountNotFound) {
			s.reportSuspicious(r, ip)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
		AccountID:   res.AccountID,
		SessionID:   res.SessionID,
		DeviceClass: string(res.DeviceClass),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "no session")
		return
	}
	if err := s.auth.Logout(r.Context(), sessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "no session")
		return
	}
	current, _ := SessionIDFromContext(r.Context())
	sessions, err := s.auth.ActiveSessions(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]sessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInfo{
			ID:             sess.ID,
			DeviceClass:    string(sess.DeviceClass),
			IPAddress:      sess.IPAddress,
			CreatedAt:      sess.CreatedAt,
			LastActivityAt: sess.LastActivityAt,
			Current:        sess.ID == current,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// reportSuspicious feeds a failed login into the IP blocklist counters.
// Best-effort; a counter failure must not change the auth response.
func (s *Server) reportSuspicious(r *http.Request, ip string) {
	if s.blocklist == nil || ip == "" {
		return
	}
	if err := s.blocklist.ReportSuspicious(r.Context(), ip); err != nil {
		log.Printf("server: report suspicious ip %s: %v", ip, err)
	}
}
