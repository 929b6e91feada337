package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"GreenCampusServer/internal/domain"
)

type createPostRequest struct {
	Content  string `json:"content" validate:"max=5000"`
	PostType string `json:"post_type"`
	IsPublic *bool  `json:"is_public"`
}

func (a *api) handlePostsCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req createPostRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	public := req.IsPublic == nil || *req.IsPublic
	post, err := a.engagementSvc.CreatePostWithVisibility(r.Context(), u.ID, req.Content, req.PostType, public)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, post)
}

// handleFeed serves ?page=N. A missing or malformed page reads as 1.
func (a *api) handleFeed(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	page, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	if err != nil {
		page = 1
	}
	out, err := a.engagementSvc.Feed(r.Context(), u.ID, page)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handlePostsGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	post, err := a.engagementSvc.GetPost(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, post)
}

type reactRequest struct {
	ReactionType string `json:"reaction_type" validate:"required"`
}

func (a *api) handlePostsReact(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req reactRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	out, err := a.engagementSvc.React(r.Context(), u.ID, id, req.ReactionType)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handlePostsLike(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	out, err := a.engagementSvc.ToggleLike(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

type commentRequest struct {
	Content string `json:"content" validate:"max=5000"`
}

func (a *api) handlePostsComment(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	out, err := a.engagementSvc.Comment(r.Context(), u.ID, id, req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, out)
}
