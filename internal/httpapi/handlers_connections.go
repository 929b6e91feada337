package httpapi

import (
	"net/http"

	"GreenCampusServer/internal/domain"
)

func (a *api) handleConnectionsCreateRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createRequestRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	out, err := a.relationsSvc.SendConnectionRequest(r.Context(), u.ID, req.ReceiverID, req.Message)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, out)
}

type connectionStatusResponse struct {
	UserID string                  `json:"user_id"`
	Status domain.ConnectionStatus `json:"status"`
}

func (a *api) handleConnectionsStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	status, err := a.relationsSvc.ConnectionStatus(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, connectionStatusResponse{UserID: id, Status: status})
}

func (a *api) handleConnectionsAccept(w http.ResponseWriter, r *http.Request) {
	a.respondConnectionRequest(w, r, domain.DecisionAccept)
}

func (a *api) handleConnectionsDecline(w http.ResponseWriter, r *http.Request) {
	a.respondConnectionRequest(w, r, domain.DecisionDecline)
}

func (a *api) respondConnectionRequest(w http.ResponseWriter, r *http.Request, decision domain.Decision) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	out, err := a.relationsSvc.RespondConnectionRequest(r.Context(), u.ID, id, decision)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}
