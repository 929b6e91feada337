package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"GreenCampusServer/internal/auth"
	"GreenCampusServer/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth          *service.AuthService
	Relationships *service.RelationshipService
	Engagement    *service.EngagementService
	Notifications *service.NotificationService
	CookieCodec   auth.CookieCodec
	CookieSecure  bool
	SessionTTL    time.Duration
	Now           func() time.Time
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	api := &api{
		logger:           logger,
		isProd:           opts.IsProd,
		dbPing:           opts.DBPing,
		authSvc:          opts.Auth,
		relationsSvc:     opts.Relationships,
		engagementSvc:    opts.Engagement,
		notificationsSvc: opts.Notifications,
		cookieCodec:      opts.CookieCodec,
		cookieSecure:     opts.CookieSecure,
		sessionTTL:       opts.SessionTTL,
		now:              now,
		loginLimiter:     newAttemptLimiter(5*time.Minute, 10),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	publicMux.Handle("GET /metrics", promhttp.Handler())

	apiMux.HandleFunc("GET /v1/academic/batches", api.handleAcademicBatches)

	if api.authSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/register", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/google", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/logout", handleNotImplemented)
		apiMux.HandleFunc("GET /v1/users/me", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/register", api.handleAuthRegister)
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthLoginGoogle)
		apiMux.HandleFunc("POST /v1/auth/logout", api.requireAuth(api.handleAuthLogout))
		apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
		apiMux.HandleFunc("GET /v1/users/{id}", api.requireAuth(api.handleUsersGet))

		if api.relationsSvc != nil {
			apiMux.HandleFunc("POST /v1/users/{id}/follow", api.requireAuth(api.handleUsersFollow))
			apiMux.HandleFunc("GET /v1/users/suggested", api.requireAuth(api.handleUsersSuggested))
			apiMux.HandleFunc("GET /v1/friends", api.requireAuth(api.handleFriendsList))
			apiMux.HandleFunc("POST /v1/friends/requests", api.requireAuth(api.handleFriendsCreateRequest))
			apiMux.HandleFunc("POST /v1/friends/requests/{id}/accept", api.requireAuth(api.handleFriendsAccept))
			apiMux.HandleFunc("POST /v1/friends/requests/{id}/decline", api.requireAuth(api.handleFriendsDecline))
			apiMux.HandleFunc("DELETE /v1/friends/{id}", api.requireAuth(api.handleFriendsRemove))
			apiMux.HandleFunc("POST /v1/connections/requests", api.requireAuth(api.handleConnectionsCreateRequest))
			apiMux.HandleFunc("GET /v1/connections/{id}", api.requireAuth(api.handleConnectionsStatus))
			apiMux.HandleFunc("POST /v1/connections/requests/{id}/accept", api.requireAuth(api.handleConnectionsAccept))
			apiMux.HandleFunc("POST /v1/connections/requests/{id}/decline", api.requireAuth(api.handleConnectionsDecline))
		}

		if api.engagementSvc != nil {
			apiMux.HandleFunc("GET /v1/feed", api.requireAuth(api.handleFeed))
			apiMux.HandleFunc("POST /v1/posts", api.requireAuth(api.handlePostsCreate))
			apiMux.HandleFunc("GET /v1/posts/{id}", api.requireAuth(api.handlePostsGet))
			apiMux.HandleFunc("POST /v1/posts/{id}/reactions", api.requireAuth(api.handlePostsReact))
			apiMux.HandleFunc("POST /v1/posts/{id}/like", api.requireAuth(api.handlePostsLike))
			apiMux.HandleFunc("POST /v1/posts/{id}/comments", api.requireAuth(api.handlePostsComment))
		}

		if api.notificationsSvc != nil {
			apiMux.HandleFunc("GET /v1/notifications", api.requireAuth(api.handleNotificationsList))
			apiMux.HandleFunc("GET /v1/notifications/unread-count", api.requireAuth(api.handleNotificationsUnreadCount))
			apiMux.HandleFunc("POST /v1/notifications/read", api.requireAuth(api.handleNotificationsMarkRead))
			apiMux.HandleFunc("POST /v1/notifications/tokens", api.requireAuth(api.handleNotificationsTokenUpsert))
			apiMux.HandleFunc("DELETE /v1/notifications/tokens", api.requireAuth(api.handleNotificationsTokenDelete))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger, routePattern(publicMux, apiMux))(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

// routePattern resolves the mux pattern a request will be served by, for
// use as a bounded metrics label.
func routePattern(publicMux, apiMux *http.ServeMux) func(*http.Request) string {
	return func(r *http.Request) string {
		mux := publicMux
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			mux = apiMux
		}
		_, pattern := mux.Handler(r)
		return pattern
	}
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc          *service.AuthService
	relationsSvc     *service.RelationshipService
	engagementSvc    *service.EngagementService
	notificationsSvc *service.NotificationService
	cookieCodec      auth.CookieCodec
	cookieSecure     bool
	sessionTTL       time.Duration
	now              func() time.Time

	loginLimiter *attemptLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
