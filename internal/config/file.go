package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config file. Every value maps onto the
// APP_* variable of the same meaning and loses to it when both are set.
type fileConfig struct {
	Env        string `yaml:"env"`
	Addr       string `yaml:"addr"`
	PublicURL  string `yaml:"public_url"`
	DBDSN      string `yaml:"db_dsn"`
	SessionTTL string `yaml:"session_ttl"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  *int   `yaml:"max_size_mb"`
		MaxBackups *int   `yaml:"max_backups"`
		MaxAgeDays *int   `yaml:"max_age_days"`
	} `yaml:"log"`

	Auth struct {
		EmailDomain    string `yaml:"email_domain"`
		GoogleClientID string `yaml:"google_client_id"`

		Argon2 struct {
			MemoryKiB   *int `yaml:"memory_kib"`
			Iterations  *int `yaml:"iterations"`
			Parallelism *int `yaml:"parallelism"`
		} `yaml:"argon2"`
	} `yaml:"auth"`

	Ledger struct {
		ReverseRequestPolicy string `yaml:"reverse_request_policy"`
		NotifyReactions      *bool  `yaml:"notify_reactions"`
		NotifyComments       *bool  `yaml:"notify_comments"`
	} `yaml:"ledger"`

	Redis struct {
		Addr           string `yaml:"addr"`
		DB             *int   `yaml:"db"`
		UnreadCacheTTL string `yaml:"unread_cache_ttl"`
	} `yaml:"redis"`

	Nats struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	FCM struct {
		ProjectID   string `yaml:"project_id"`
		Credentials string `yaml:"credentials"`
	} `yaml:"fcm"`
}

func loadYAMLFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.values(), nil
}

func (fc fileConfig) values() map[string]string {
	out := map[string]string{
		"APP_ENV":                    fc.Env,
		"APP_ADDR":                   fc.Addr,
		"APP_PUBLIC_URL":             fc.PublicURL,
		"APP_DB_DSN":                 fc.DBDSN,
		"APP_SESSION_TTL":            fc.SessionTTL,
		"APP_LOG_LEVEL":              fc.Log.Level,
		"APP_LOG_FILE":               fc.Log.File,
		"APP_EMAIL_DOMAIN":           fc.Auth.EmailDomain,
		"APP_GOOGLE_CLIENT_ID":       fc.Auth.GoogleClientID,
		"APP_REVERSE_REQUEST_POLICY": fc.Ledger.ReverseRequestPolicy,
		"APP_REDIS_ADDR":             fc.Redis.Addr,
		"APP_UNREAD_CACHE_TTL":       fc.Redis.UnreadCacheTTL,
		"APP_NATS_URL":               fc.Nats.URL,
		"APP_FCM_PROJECT_ID":         fc.FCM.ProjectID,
		"APP_FCM_CREDENTIALS":        fc.FCM.Credentials,
	}
	putInt(out, "APP_LOG_MAX_SIZE_MB", fc.Log.MaxSizeMB)
	putInt(out, "APP_LOG_MAX_BACKUPS", fc.Log.MaxBackups)
	putInt(out, "APP_LOG_MAX_AGE_DAYS", fc.Log.MaxAgeDays)
	putInt(out, "APP_REDIS_DB", fc.Redis.DB)
	putInt(out, "APP_ARGON2_MEMORY_KIB", fc.Auth.Argon2.MemoryKiB)
	putInt(out, "APP_ARGON2_ITERATIONS", fc.Auth.Argon2.Iterations)
	putInt(out, "APP_ARGON2_PARALLELISM", fc.Auth.Argon2.Parallelism)
	putBool(out, "APP_NOTIFY_REACTIONS", fc.Ledger.NotifyReactions)
	putBool(out, "APP_NOTIFY_COMMENTS", fc.Ledger.NotifyComments)
	return out
}

func putInt(m map[string]string, key string, v *int) {
	if v != nil {
		m[key] = strconv.Itoa(*v)
	}
}

func putBool(m map[string]string, key string, v *bool) {
	if v != nil {
		m[key] = strconv.FormatBool(*v)
	}
}

// layered prefers the environment and falls back to file values.
func layered(getenv func(string) string, file map[string]string) func(string) string {
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return file[key]
	}
}
