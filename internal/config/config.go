package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"GreenCampusServer/internal/auth"
	"GreenCampusServer/internal/domain"
)

type Config struct {
	Env          string
	Addr         string
	PublicURL    *url.URL
	DBDSN        string
	CookieSecret string
	SessionTTL   time.Duration

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	EmailDomain    string
	GoogleClientID string

	Argon2MemoryKiB   int
	Argon2Iterations  int
	Argon2Parallelism int

	ReversePolicy   domain.ReversePolicy
	NotifyReactions bool
	NotifyComments  bool

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	UnreadCacheTTL time.Duration

	NatsURL string

	FCMProjectID   string
	FCMCredentials string
}

// Load reads .env (without overriding the process environment), then the
// YAML file named by APP_CONFIG_FILE as defaults, then APP_* variables.
func Load() (Config, error) {
	if err := loadDotEnvFile(".env", os.Setenv, os.Getenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	getenv := os.Getenv
	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		fileValues, err := loadYAMLFile(path)
		if err != nil {
			return Config{}, err
		}
		getenv = layered(os.Getenv, fileValues)
	}
	return LoadFromEnv(getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:            getenv("APP_ENV"),
		Addr:           getenv("APP_ADDR"),
		DBDSN:          getenv("APP_DB_DSN"),
		LogLevel:       getenv("APP_LOG_LEVEL"),
		LogFile:        strings.TrimSpace(getenv("APP_LOG_FILE")),
		CookieSecret:   getenv("APP_COOKIE_SECRET"),
		EmailDomain:    strings.TrimSpace(strings.ToLower(getenv("APP_EMAIL_DOMAIN"))),
		GoogleClientID: strings.TrimSpace(getenv("APP_GOOGLE_CLIENT_ID")),
		RedisAddr:      strings.TrimSpace(getenv("APP_REDIS_ADDR")),
		RedisPassword:  getenv("APP_REDIS_PASSWORD"),
		NatsURL:        strings.TrimSpace(getenv("APP_NATS_URL")),
		FCMProjectID:   strings.TrimSpace(getenv("APP_FCM_PROJECT_ID")),
		FCMCredentials: strings.TrimSpace(getenv("APP_FCM_CREDENTIALS")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = domain.DefaultEmailDomain
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	if cfg.SessionTTL, err = parseDuration(getenv, "APP_SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.UnreadCacheTTL, err = parseDuration(getenv, "APP_UNREAD_CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.LogMaxSizeMB, err = parseInt(getenv, "APP_LOG_MAX_SIZE_MB", 100); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxBackups, err = parseInt(getenv, "APP_LOG_MAX_BACKUPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxAgeDays, err = parseInt(getenv, "APP_LOG_MAX_AGE_DAYS", 30); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = parseInt(getenv, "APP_REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.Argon2MemoryKiB, err = parseInt(getenv, "APP_ARGON2_MEMORY_KIB", 64*1024); err != nil {
		return Config{}, err
	}
	if cfg.Argon2Iterations, err = parseInt(getenv, "APP_ARGON2_ITERATIONS", 3); err != nil {
		return Config{}, err
	}
	if cfg.Argon2Parallelism, err = parseInt(getenv, "APP_ARGON2_PARALLELISM", 2); err != nil {
		return Config{}, err
	}
	if cfg.Argon2MemoryKiB > math.MaxUint32 || cfg.Argon2Iterations > math.MaxUint32 || cfg.Argon2Parallelism > math.MaxUint8 {
		return Config{}, errors.New("APP_ARGON2_*: value out of range")
	}
	if err := cfg.PasswordParams().Validate(); err != nil {
		return Config{}, fmt.Errorf("APP_ARGON2_*: %w", err)
	}

	if cfg.NotifyReactions, err = parseBool(getenv, "APP_NOTIFY_REACTIONS", false); err != nil {
		return Config{}, err
	}
	if cfg.NotifyComments, err = parseBool(getenv, "APP_NOTIFY_COMMENTS", false); err != nil {
		return Config{}, err
	}

	cfg.ReversePolicy, err = domain.ParseReversePolicy(strings.TrimSpace(getenv("APP_REVERSE_REQUEST_POLICY")))
	if err != nil {
		return Config{}, fmt.Errorf("APP_REVERSE_REQUEST_POLICY: %w", err)
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	if cfg.FCMProjectID != "" && cfg.FCMCredentials == "" {
		return Config{}, errors.New("APP_FCM_CREDENTIALS: required when APP_FCM_PROJECT_ID is set")
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) PasswordParams() auth.PasswordParams {
	return auth.PasswordParams{
		MemoryKiB:   uint32(c.Argon2MemoryKiB),
		Iterations:  uint32(c.Argon2Iterations),
		Parallelism: uint8(c.Argon2Parallelism),
	}
}

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

func parseDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}

func parseInt(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must be >= 0", key)
	}
	return n, nil
}

func parseBool(getenv func(string) string, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
