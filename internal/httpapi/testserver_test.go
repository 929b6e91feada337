package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GreenCampusServer/internal/auth"
	"GreenCampusServer/internal/service"
	"GreenCampusServer/internal/store/memory"

	"github.com/stretchr/testify/require"
)

type testServer struct {
	t     *testing.T
	h     http.Handler
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	notes := &service.NotificationService{Store: store, Tokens: store}
	h := NewRouter(RouterOpts{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Auth:          &service.AuthService{Users: store, Sessions: store, SessionTTL: time.Hour},
		Relationships: &service.RelationshipService{Ledger: store, Reader: store, Notifier: notes},
		Engagement:    &service.EngagementService{Ledger: store, Posts: store, Notifier: notes},
		Notifications: notes,
		CookieCodec:   auth.NewCookieCodec([]byte("0123456789abcdef0123456789abcdef")),
		SessionTTL:    time.Hour,
	})
	return &testServer{t: t, h: h, store: store}
}

// do sends body as JSON (unless nil) with token as a bearer credential.
func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

type registered struct {
	ID    string
	Token string
}

func (s *testServer) register(studentID, name string) registered {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":        studentID + "@student.green.edu.bd",
		"student_id":   studentID,
		"display_name": name,
		"department":   "CSE",
		"password":     "correct-horse-battery",
	})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())
	var u userResponse
	decodeBody(s.t, rr, &u)
	token := rr.Header().Get("X-Session-Token")
	require.NotEmpty(s.t, token)
	return registered{ID: u.ID, Token: token}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	decodeBody(t, rr, &env)
	return env.Error.Code
}
