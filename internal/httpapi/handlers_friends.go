package httpapi

import (
	"net/http"

	"GreenCampusServer/internal/domain"
)

func (a *api) handleFriendsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.relationsSvc.FriendsOverview(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

type createRequestRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Message    string `json:"message" validate:"max=500"`
}

func (a *api) handleFriendsCreateRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createRequestRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	out, err := a.relationsSvc.SendFriendRequest(r.Context(), u.ID, req.ReceiverID, req.Message)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, out)
}

func (a *api) handleFriendsAccept(w http.ResponseWriter, r *http.Request) {
	a.respondFriendRequest(w, r, domain.DecisionAccept)
}

func (a *api) handleFriendsDecline(w http.ResponseWriter, r *http.Request) {
	a.respondFriendRequest(w, r, domain.DecisionDecline)
}

func (a *api) respondFriendRequest(w http.ResponseWriter, r *http.Request, decision domain.Decision) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	out, err := a.relationsSvc.RespondFriendRequest(r.Context(), u.ID, id, decision)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleFriendsRemove(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := a.relationsSvc.Unfriend(r.Context(), u.ID, id); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
