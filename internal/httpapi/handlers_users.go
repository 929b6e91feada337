package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"GreenCampusServer/internal/domain"
)

type userResponse struct {
	ID             string            `json:"id"`
	Email          string            `json:"email,omitempty"`
	Username       string            `json:"username"`
	StudentID      string            `json:"student_id"`
	DisplayName    string            `json:"display_name"`
	Department     string            `json:"department"`
	Batch          string            `json:"batch"`
	Phone          string            `json:"phone,omitempty"`
	Status         domain.UserStatus `json:"status"`
	FollowersCount int               `json:"followers_count"`
	FollowingCount int               `json:"following_count"`
	PostsCount     int               `json:"posts_count"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
}

// writeUser renders u. Contact details are only included for the owner.
func writeUser(w http.ResponseWriter, status int, u domain.User, self bool) {
	w.Header().Set("ETag", userETag(u))
	resp := userResponse{
		ID:             u.ID,
		Username:       u.Username,
		StudentID:      u.StudentID,
		DisplayName:    u.Name(),
		Department:     u.Department,
		Batch:          u.Batch,
		Status:         u.Status,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		PostsCount:     u.PostsCount,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      formatMillis(u.UpdatedAt),
	}
	if self {
		resp.Email = u.Email
		resp.Phone = u.Phone
	}
	WriteJSON(w, status, resp)
}

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=0")
	etag := userETag(u)
	if match := strings.TrimSpace(r.Header.Get("If-None-Match")); match != "" && match == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeUser(w, http.StatusOK, u, true)
}

func (a *api) handleUsersGet(w http.ResponseWriter, r *http.Request) {
	me, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	u, err := a.authSvc.GetUser(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeUser(w, http.StatusOK, u, u.ID == me.ID)
}

func (a *api) handleUsersFollow(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	out, err := a.relationsSvc.Follow(r.Context(), u.ID, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

type suggestedUsersResponse struct {
	Users []domain.UserSummary `json:"users"`
}

func (a *api) handleUsersSuggested(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.relationsSvc.SuggestedUsers(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, suggestedUsersResponse{Users: out})
}

type academicBatchesResponse struct {
	Departments     []string `json:"departments"`
	Semesters       []string `json:"semesters"`
	Batches         []string `json:"batches"`
	DefaultBatch    string   `json:"default_batch"`
	DefaultSemester string   `json:"default_semester"`
}

func (a *api) handleAcademicBatches(w http.ResponseWriter, _ *http.Request) {
	now := a.now()
	w.Header().Set("Cache-Control", "public, max-age=3600")
	WriteJSON(w, http.StatusOK, academicBatchesResponse{
		Departments:     domain.Departments,
		Semesters:       domain.Semesters,
		Batches:         domain.BatchChoices(now),
		DefaultBatch:    domain.DefaultBatch(now),
		DefaultSemester: domain.DefaultSemester(now),
	})
}

func userETag(u domain.User) string {
	return fmt.Sprintf("W/\"user:%s:%d\"", u.ID, u.UpdatedAt.UnixNano())
}

func formatMillis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
