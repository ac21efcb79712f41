package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Media: MediaConfig{
			MaxUploadBytes: DefaultMaxUploadBytes,
			Backend:        MediaBackendLocal,
		},
		Leaderboard: LeaderboardConfig{
			RefreshInterval:  30 * time.Second,
			FinalizeInterval: 5 * time.Minute,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"INFO", true},
		{"verbose", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_MediaBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Media.Backend = MediaBackendS3
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")

	cfg.Media.S3Bucket = "captures"
	assert.NoError(t, cfg.Validate())

	cfg.Media.Backend = "ftp"
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data base path cannot be empty")
}

func TestExpandDataPaths(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, cfg.expandDataPaths())

		assert.Equal(t, filepath.Join(homeDir, "RetroArena", "data"), cfg.Data.BasePath)
		assert.Equal(t, filepath.Join(homeDir, "RetroArena", "data", "events.yaml"), cfg.Data.CatalogPath)
	})

	t.Run("tilde", func(t *testing.T) {
		cfg := &Config{Data: DataConfig{BasePath: "~/arena"}}
		require.NoError(t, cfg.expandDataPaths())

		assert.Equal(t, filepath.Join(homeDir, "arena"), cfg.Data.BasePath)
	})

	t.Run("relative", func(t *testing.T) {
		cfg := &Config{Data: DataConfig{BasePath: "relative/path"}}
		require.NoError(t, cfg.expandDataPaths())

		assert.True(t, filepath.IsAbs(cfg.Data.BasePath))
		assert.Contains(t, cfg.Data.BasePath, "relative/path")
	})
}

func TestValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", value("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", value("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", value("", "NONEXISTENT_KEY", "default-value"))
}

func TestListValue(t *testing.T) {
	t.Setenv("TEST_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, listValue("", "TEST_BROKERS", nil))
	assert.Nil(t, listValue("", "TEST_MISSING_BROKERS", nil))
}

func TestLoadConfig_EnvFileAndFlags(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# engine settings
ENV=staging
LOG_LEVEL=debug
LEADERBOARD_VERIFIED_ONLY=true
KAFKA_BROKERS=kafka-1:9092,kafka-2:9092
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// Set explicitly so godotenv leaves it alone and the test cleans up after itself.
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LEADERBOARD_VERIFIED_ONLY", "")
	t.Setenv("KAFKA_BROKERS", "")
	require.NoError(t, os.Unsetenv("ENV"))
	require.NoError(t, os.Unsetenv("LEADERBOARD_VERIFIED_ONLY"))
	require.NoError(t, os.Unsetenv("KAFKA_BROKERS"))

	cfg, err := LoadConfig([]string{
		"-env-file", envFile,
		"-data-path", tmpDir,
		"-port", "9090",
	})
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "warn", cfg.Logger.Level, "existing env wins over .env")
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, tmpDir, cfg.Data.BasePath)
	assert.Equal(t, filepath.Join(tmpDir, "events.yaml"), cfg.Data.CatalogPath)
	assert.True(t, cfg.Leaderboard.VerifiedOnly)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultMaxUploadBytes, cfg.Media.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.Leaderboard.RefreshInterval)
	assert.Equal(t, filepath.Join(tmpDir, "db"), cfg.BadgerPath())
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Setenv("LEADERBOARD_REFRESH_INTERVAL", "soon")

	_, err := LoadConfig([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env"), "-data-path", t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaderboard_refresh_interval")
}

func TestLoadConfig_AccessTokenKey(t *testing.T) {
	args := []string{"-env-file", filepath.Join(t.TempDir(), "missing.env"), "-data-path", t.TempDir()}

	t.Setenv("ACCESS_TOKEN_KEY", "0102030405060708091011121314151617181920212223242526272829303132")
	cfg, err := LoadConfig(args)
	require.NoError(t, err)
	assert.Len(t, cfg.Auth.AccessTokenKey, 32)

	t.Setenv("ACCESS_TOKEN_KEY", "abcd")
	_, err = LoadConfig(args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit = RateLimitConfig{RPS: -1}
	assert.Error(t, cfg.Validate())

	cfg.RateLimit = RateLimitConfig{RPS: 2.5, Burst: 10}
	assert.NoError(t, cfg.Validate())
}

func TestFloatValue(t *testing.T) {
	t.Setenv("TEST_RPS", "2.5")
	assert.InDelta(t, 2.5, floatValue("", "TEST_RPS", 1), 1e-9)

	t.Setenv("TEST_RPS", "fast")
	assert.InDelta(t, 1.0, floatValue("", "TEST_RPS", 1), 1e-9)
}

func TestBoolValue(t *testing.T) {
	for _, raw := range []string{"true", "YES", "1"} {
		t.Setenv("TEST_FLAG", raw)
		assert.True(t, boolValue("", "TEST_FLAG", false), raw)
	}

	t.Setenv("TEST_FLAG", "off")
	assert.False(t, boolValue("", "TEST_FLAG", true))

	t.Setenv("TEST_FLAG", "")
	assert.True(t, boolValue("", "TEST_FLAG", true))
}
