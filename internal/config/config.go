// Package config resolves engine settings from flags, the environment and an
// optional .env file, in that order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Media storage backends.
const (
	MediaBackendLocal = "local"
	MediaBackendS3    = "s3"
)

// DefaultMaxUploadBytes is the upload ceiling when none is configured (100 MiB).
const DefaultMaxUploadBytes int64 = 100 << 20

// Config is the resolved engine configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Server      ServerConfig
	Auth        AuthConfig
	Media       MediaConfig
	Leaderboard LeaderboardConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Metrics     MetricsConfig
	RateLimit   RateLimitConfig
}

// AppConfig names the deployment.
type AppConfig struct {
	Environment string
}

// LoggerConfig sets the minimum log level.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk locations.
type DataConfig struct {
	BasePath     string // root for badger, sqlite, blobs and the auth key
	CatalogPath  string // JSON or YAML event catalog (default: {base}/events.yaml)
	WatchCatalog bool   // reload the catalog when the file changes (default: true)
}

// ServerConfig shapes the HTTP listener.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 60s, uploads are slow)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string
}

// AuthConfig carries the bearer token settings. An empty key makes the
// engine generate and persist one under the data path.
type AuthConfig struct {
	AccessTokenKey      []byte // v4.local symmetric key, 32 bytes
	AccessTokenDuration time.Duration
}

// MediaConfig holds upload limits and byte storage settings.
type MediaConfig struct {
	MaxUploadBytes int64
	Backend        string // local or s3
	S3Endpoint     string // optional, for R2/MinIO
	S3Bucket       string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	PublicBaseURL  string // optional prefix for rendering s3 refs as URLs
}

// LeaderboardConfig controls ranking and background jobs.
type LeaderboardConfig struct {
	VerifiedOnly     bool
	RefreshInterval  time.Duration
	FinalizeInterval time.Duration
}

// RedisConfig configures the optional snapshot cache. Empty Addr disables it.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	SnapshotTTL time.Duration
}

// KafkaConfig configures the optional reward publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers     []string
	RewardTopic string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// RateLimitConfig bounds mutating requests per user. Zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoadConfig parses args and resolves every setting. A flag beats an
// environment variable, which beats the .env file, which beats the default.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("eventengine", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for engine data")
	catalogPath := fs.String("catalog", "", "Path to the event catalog (json or yaml)")
	watchCatalog := fs.String("watch-catalog", "", "Reload the catalog on change (default: true)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 15m)")

	mediaBackend := fs.String("media-backend", "", "Byte storage backend (local, s3)")
	maxUpload := fs.String("max-upload-bytes", "", "Maximum upload size in bytes")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine. godotenv never overrides variables already set.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: value(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: value(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath:     value(*dataPath, "DATA_PATH", ""),
			CatalogPath:  value(*catalogPath, "CATALOG_PATH", ""),
			WatchCatalog: boolValue(*watchCatalog, "WATCH_CATALOG", true),
		},
		Server: ServerConfig{
			Port:        value(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: listValue("", "CORS_ORIGINS", []string{"*"}),
		},
		Media: MediaConfig{
			MaxUploadBytes: int64Value(*maxUpload, "MEDIA_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
			Backend:        strings.ToLower(value(*mediaBackend, "MEDIA_BACKEND", MediaBackendLocal)),
			S3Endpoint:     value("", "S3_ENDPOINT", ""),
			S3Bucket:       value("", "S3_BUCKET", ""),
			S3Region:       value("", "S3_REGION", "auto"),
			S3AccessKey:    value("", "S3_ACCESS_KEY_ID", ""),
			S3SecretKey:    value("", "S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:  value("", "MEDIA_PUBLIC_BASE_URL", ""),
		},
		Leaderboard: LeaderboardConfig{
			VerifiedOnly: boolValue("", "LEADERBOARD_VERIFIED_ONLY", false),
		},
		Redis: RedisConfig{
			Addr:     value("", "REDIS_ADDR", ""),
			Password: value("", "REDIS_PASSWORD", ""),
			DB:       intValue("", "REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:     listValue("", "KAFKA_BROKERS", nil),
			RewardTopic: value("", "KAFKA_REWARD_TOPIC", "event-rewards"),
		},
		Metrics: MetricsConfig{
			Enabled: boolValue("", "METRICS_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			RPS:   floatValue("", "RATE_LIMIT_RPS", 5),
			Burst: intValue("", "RATE_LIMIT_BURST", 20),
		},
	}

	if keyHex := value("", "ACCESS_TOKEN_KEY", ""); keyHex != "" {
		var err error
		if cfg.Auth.AccessTokenKey, err = hex.DecodeString(keyHex); err != nil {
			return nil, fmt.Errorf("invalid access_token_key: %w", err)
		}
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", &cfg.Auth.AccessTokenDuration},
		{"", "LEADERBOARD_REFRESH_INTERVAL", "30s", &cfg.Leaderboard.RefreshInterval},
		{"", "LEADERBOARD_FINALIZE_INTERVAL", "5m", &cfg.Leaderboard.FinalizeInterval},
		{"", "REDIS_SNAPSHOT_TTL", "168h", &cfg.Redis.SnapshotTTL},
	}
	for _, d := range durations {
		raw := value(d.flagValue, d.envKey, d.def)
		dur, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = dur
	}

	if err := cfg.expandDataPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var (
	environments = []string{"development", "staging", "production"}
	logLevels    = []string{"debug", "info", "warn", "warning", "error"}
)

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	switch {
	case !slices.Contains(environments, c.App.Environment):
		return fmt.Errorf("environment %q is not one of %s", c.App.Environment, strings.Join(environments, ", "))
	case !slices.Contains(logLevels, strings.ToLower(c.Logger.Level)):
		return fmt.Errorf("log level %q is not one of %s", c.Logger.Level, strings.Join(logLevels, ", "))
	case c.Data.BasePath == "":
		return errors.New("data base path cannot be empty after expansion")
	case c.Media.MaxUploadBytes <= 0:
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Media.MaxUploadBytes)
	case c.Media.Backend == MediaBackendS3 && c.Media.S3Bucket == "":
		return errors.New("S3_BUCKET is required when MEDIA_BACKEND=s3")
	case c.Media.Backend != MediaBackendLocal && c.Media.Backend != MediaBackendS3:
		return fmt.Errorf("media backend %q is not one of local, s3", c.Media.Backend)
	case len(c.Auth.AccessTokenKey) != 0 && len(c.Auth.AccessTokenKey) != 32:
		return fmt.Errorf("access token key must be 32 bytes, got %d", len(c.Auth.AccessTokenKey))
	case c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0:
		return errors.New("rate limit settings cannot be negative")
	case c.Leaderboard.RefreshInterval <= 0 || c.Leaderboard.FinalizeInterval <= 0:
		return errors.New("leaderboard intervals must be positive")
	}
	return nil
}

// absPath expands a leading ~/ and makes path absolute. An empty path
// resolves to fallback unchanged.
func absPath(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve ~: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// expandDataPaths resolves the base path (default ~/RetroArena/data) and the
// catalog path relative to it.
func (c *Config) expandDataPaths() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home: %w", err)
	}

	base, err := absPath(c.Data.BasePath, filepath.Join(home, "RetroArena", "data"))
	if err != nil {
		return err
	}
	c.Data.BasePath = base

	catalog, err := absPath(c.Data.CatalogPath, filepath.Join(base, "events.yaml"))
	if err != nil {
		return err
	}
	c.Data.CatalogPath = catalog
	return nil
}

// BadgerPath is where participation and team state live.
func (c *Config) BadgerPath() string {
	return filepath.Join(c.Data.BasePath, "db")
}

// SQLitePath is the media moderation database.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Data.BasePath, "media.db")
}

// BlobPath is the root of the local byte storage backend.
func (c *Config) BlobPath() string {
	return filepath.Join(c.Data.BasePath, "blobs")
}

// value picks the flag, then the environment variable, then def.
func value(flagValue, envKey, def string) string {
	if flagValue != "" {
		return flagValue
	}
	if v, ok := os.LookupEnv(envKey); ok && v != "" {
		return v
	}
	return def
}

// parsed resolves like value and converts the result. Unparseable input
// falls back to def.
func parsed[T any](flagValue, envKey string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(value(flagValue, envKey, ""))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

// boolValue treats true, 1 and yes as set, in any case.
func boolValue(flagValue, envKey string, def bool) bool {
	return parsed(flagValue, envKey, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		}
		return false, nil
	})
}

func intValue(flagValue, envKey string, def int) int {
	return parsed(flagValue, envKey, def, strconv.Atoi)
}

func int64Value(flagValue, envKey string, def int64) int64 {
	return parsed(flagValue, envKey, def, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

func floatValue(flagValue, envKey string, def float64) float64 {
	return parsed(flagValue, envKey, def, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// listValue splits a comma separated value, dropping blanks.
func listValue(flagValue, envKey string, def []string) []string {
	return parsed(flagValue, envKey, def, func(s string) ([]string, error) {
		var out []string
		for part := range strings.SplitSeq(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	})
}
