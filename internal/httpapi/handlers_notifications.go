package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"GreenCampusServer/internal/domain"
)

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

func (a *api) handleNotificationsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"limit": "must be an integer"}))
			return
		}
		limit = n
	}

	out, err := a.notificationsSvc.List(r.Context(), u.ID, limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: out})
}

type unreadCountResponse struct {
	Unread int `json:"unread"`
}

func (a *api) handleNotificationsUnreadCount(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	n, err := a.notificationsSvc.UnreadCount(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, unreadCountResponse{Unread: n})
}

type markReadResponse struct {
	Updated int `json:"updated"`
}

func (a *api) handleNotificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	n, err := a.notificationsSvc.MarkAllRead(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, markReadResponse{Updated: n})
}

type notificationTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=android ios"`
}

type notificationTokenResponse struct {
	Token     string `json:"token"`
	Platform  string `json:"platform"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (a *api) handleNotificationsTokenUpsert(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req notificationTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	if err := validateRequest(&req); err != nil {
		WriteDomainError(w, err)
		return
	}

	out, err := a.notificationsSvc.RegisterToken(r.Context(), u.ID, req.Token, req.Platform)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, notificationTokenResponse{
		Token:     out.Token,
		Platform:  out.Platform,
		CreatedAt: formatMillis(out.CreatedAt),
		UpdatedAt: formatMillis(out.UpdatedAt),
	})
}

func (a *api) handleNotificationsTokenDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"token": "required"}))
		return
	}

	if err := a.notificationsSvc.DeleteToken(r.Context(), u.ID, token); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
