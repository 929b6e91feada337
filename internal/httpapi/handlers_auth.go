package httpapi

import (
	"net/http"
	"strings"

	"GreenCampusServer/internal/auth"
	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/service"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	StudentID   string `json:"student_id" validate:"required"`
	DisplayName string `json:"display_name" validate:"max=80"`
	Department  string `json:"department" validate:"required"`
	Batch       string `json:"batch"`
	Phone       string `json:"phone"`
	Password    string `json:"password" validate:"required,max=256"`
}

func (a *api) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	u, sessID, err := a.authSvc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		StudentID:   req.StudentID,
		DisplayName: req.DisplayName,
		Department:  req.Department,
		Batch:       req.Batch,
		Phone:       req.Phone,
		Password:    req.Password,
	}, clientIP(r), r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.startSession(w, sessID)
	writeUser(w, http.StatusCreated, u, true)
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Login = strings.TrimSpace(req.Login)

	now := a.now()
	ip := clientIP(r)
	if !a.loginLimiter.Allow("ip:"+ip, now) || !a.loginLimiter.Allow("login:"+strings.ToLower(req.Login), now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	u, sessID, err := a.authSvc.Login(r.Context(), req.Login, req.Password, ip, r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.startSession(w, sessID)
	writeUser(w, http.StatusOK, u, true)
}

type googleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

func (a *api) handleAuthLoginGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ip := clientIP(r)
	if !a.loginLimiter.Allow("ip:"+ip, a.now()) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	u, sessID, err := a.authSvc.LoginWithGoogle(r.Context(), req.IDToken, ip, r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.startSession(w, sessID)
	writeUser(w, http.StatusOK, u, true)
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	sessID, ok := CurrentSessionID(r.Context())
	if !ok || sessID == "" {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	_ = a.authSvc.Logout(r.Context(), sessID)
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

// startSession sets the session cookie and mirrors the signed value in a
// header for mobile clients that send it back as a bearer token.
func (a *api) startSession(w http.ResponseWriter, sessID string) {
	cookieValue := a.cookieCodec.EncodeSessionID(sessID)
	auth.SetSessionCookie(w, cookieValue, a.sessionTTL, a.cookieSecure)
	w.Header().Set("X-Session-Token", cookieValue)
}
