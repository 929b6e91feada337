package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"GreenCampusServer/internal/auth"
	"GreenCampusServer/internal/cache"
	"GreenCampusServer/internal/config"
	"GreenCampusServer/internal/events"
	"GreenCampusServer/internal/httpapi"
	"GreenCampusServer/internal/logging"
	"GreenCampusServer/internal/notifications"
	"GreenCampusServer/internal/service"
	"GreenCampusServer/internal/store/memory"
	"GreenCampusServer/internal/store/postgres"

	"github.com/spf13/cobra"
)

// backends is the set of stores the services run against.
type backends struct {
	ledger   service.Ledger
	reader   service.RelationshipReader
	posts    service.PostsReader
	notes    service.NotificationsStore
	tokens   service.NotificationTokensStore
	users    service.UsersStore
	sessions service.SessionsStore
	ping     func(context.Context) error
	close    func()
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (backends, error) {
	if cfg.DBDSN == "" {
		logger.Warn("APP_DB_DSN not set, using in-memory store")
		st := memory.New()
		return backends{
			ledger: st, reader: st, posts: st, notes: st, tokens: st, users: st, sessions: st,
			ping:  st.Ping,
			close: func() {},
		}, nil
	}

	pool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		return backends{}, err
	}
	return backends{
		ledger:   postgres.NewLedger(pool),
		reader:   postgres.NewRelationshipsStore(pool),
		posts:    postgres.NewPostsStore(pool),
		notes:    postgres.NewNotificationsStore(pool),
		tokens:   postgres.NewNotificationTokensStore(pool),
		users:    postgres.NewUsersStore(pool),
		sessions: postgres.NewSessionsStore(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

// newNotificationService attaches whichever delivery sinks are configured.
// Sinks that fail to start are logged and skipped.
func newNotificationService(ctx context.Context, cfg config.Config, logger *slog.Logger, b backends) (*service.NotificationService, func()) {
	svc := &service.NotificationService{Store: b.notes, Tokens: b.tokens, Logger: logger}
	var closers []func()

	if cfg.RedisAddr != "" {
		client, err := cache.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, unread counts are uncached", "err", err)
		} else {
			svc.Cache = cache.NewUnreadCache(client, cfg.UnreadCacheTTL)
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	if cfg.NatsURL != "" {
		pub, err := events.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			logger.Warn("nats unavailable, notification events disabled", "err", err)
		} else {
			svc.Publisher = pub
			closers = append(closers, pub.Close)
		}
	}

	if cfg.FCMCredentials != "" {
		sender, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentials)
		if err != nil {
			logger.Warn("fcm unavailable, push disabled", "err", err)
		} else {
			svc.Sender = sender
		}
	}

	return svc, func() {
		for _, c := range closers {
			c()
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, flush := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		JSON:       cfg.IsProd(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer func() { _ = flush() }()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("db open failed", "err", err)
		return err
	}
	defer b.close()

	notes, closeSinks := newNotificationService(ctx, cfg, logger, b)
	defer closeSinks()

	authSvc := &service.AuthService{
		Users:       b.users,
		Sessions:    b.sessions,
		SessionTTL:  cfg.SessionTTL,
		EmailDomain: cfg.EmailDomain,
		Passwords:   cfg.PasswordParams(),
	}
	if cfg.GoogleClientID != "" {
		authSvc.Google = auth.NewGoogleVerifier(cfg.GoogleClientID)
	}

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger: logger,
		IsProd: cfg.IsProd(),
		DBPing: b.ping,
		Auth:   authSvc,
		Relationships: &service.RelationshipService{
			Ledger:        b.ledger,
			Reader:        b.reader,
			Notifier:      notes,
			ReversePolicy: cfg.ReversePolicy,
			Logger:        logger,
		},
		Engagement: &service.EngagementService{
			Ledger:          b.ledger,
			Posts:           b.posts,
			Notifier:        notes,
			NotifyReactions: cfg.NotifyReactions,
			NotifyComments:  cfg.NotifyComments,
		},
		Notifications: notes,
		CookieCodec:   auth.NewCookieCodec([]byte(cfg.CookieSecret)),
		CookieSecure:  cfg.CookieSecure(),
		SessionTTL:    cfg.SessionTTL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "reverse_policy", cfg.ReversePolicy)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}
