package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Duration is a time.Duration that decodes from TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
	CORS       CORSConfig       `toml:"cors"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Provider   ProviderConfig   `toml:"provider"`
	Transcript TranscriptConfig `toml:"transcript"`
	Database   DatabaseConfig   `toml:"database"`
}

type ServerConfig struct {
	Port            string   `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	Version         string   `toml:"version"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Dir        string `toml:"dir"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
}

type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	AllowedOrigins   []string `toml:"allowed_origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	BurstSize         int  `toml:"burst_size"`
}

type ProviderConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
	HL      string   `toml:"hl"`
	GL      string   `toml:"gl"`
}

type TranscriptConfig struct {
	DefaultLanguages []string `toml:"default_languages"`
}

// DatabaseConfig configures the lookup journal. An empty Path disables it.
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8000",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{60 * time.Second},
			IdleTimeout:     Duration{60 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
			Version:         "1.0.0",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		CORS: CORSConfig{
			Enabled:          true,
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"*"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           600,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 120,
			BurstSize:         20,
		},
		Provider: ProviderConfig{
			BaseURL: "https://www.youtube.com",
			Timeout: Duration{30 * time.Second},
			HL:      "en",
			GL:      "US",
		},
		Transcript: TranscriptConfig{
			DefaultLanguages: []string{"ko", "en"},
		},
		Database: DatabaseConfig{
			MaxConnections: 4,
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (when path is non-empty), then environment variables, and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout.Duration = getEnvAsDuration("READ_TIMEOUT", c.Server.ReadTimeout.Duration)
	c.Server.WriteTimeout.Duration = getEnvAsDuration("WRITE_TIMEOUT", c.Server.WriteTimeout.Duration)
	c.Server.IdleTimeout.Duration = getEnvAsDuration("IDLE_TIMEOUT", c.Server.IdleTimeout.Duration)
	c.Server.ShutdownTimeout.Duration = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout.Duration)
	c.Server.Version = getEnv("VERSION", c.Server.Version)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)

	c.CORS.Enabled = getEnvAsBool("CORS_ENABLED", c.CORS.Enabled)
	c.CORS.AllowedOrigins = getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.CORS.AllowedMethods = getEnvAsStringSlice("CORS_ALLOWED_METHODS", c.CORS.AllowedMethods)
	c.CORS.AllowedHeaders = getEnvAsStringSlice("CORS_ALLOWED_HEADERS", c.CORS.AllowedHeaders)
	c.CORS.AllowCredentials = getEnvAsBool("CORS_ALLOW_CREDENTIALS", c.CORS.AllowCredentials)
	c.CORS.MaxAge = getEnvAsInt("CORS_MAX_AGE", c.CORS.MaxAge)

	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerMinute = getEnvAsInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.BurstSize = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.BurstSize)

	c.Provider.BaseURL = getEnv("YOUTUBE_BASE_URL", c.Provider.BaseURL)
	c.Provider.Timeout.Duration = getEnvAsDuration("YOUTUBE_TIMEOUT", c.Provider.Timeout.Duration)
	c.Provider.HL = getEnv("YOUTUBE_HL", c.Provider.HL)
	c.Provider.GL = getEnv("YOUTUBE_GL", c.Provider.GL)

	c.Transcript.DefaultLanguages = getEnvAsStringSlice("DEFAULT_LANGUAGES", c.Transcript.DefaultLanguages)

	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.MaxConnections = getEnvAsInt("DB_MAX_CONNECTIONS", c.Database.MaxConnections)
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return errors.Wrapf(err, "server port %q is not a number", c.Server.Port)
	}
	if c.Server.ReadTimeout.Duration <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if c.Server.WriteTimeout.Duration <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if c.Server.IdleTimeout.Duration <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		return errors.New("shutdown timeout must be greater than 0")
	}
	if c.Provider.Timeout.Duration <= 0 {
		return errors.New("youtube timeout must be greater than 0")
	}
	if len(c.Transcript.DefaultLanguages) == 0 {
		return errors.New("at least one default language is required")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.BurstSize <= 0) {
		return errors.New("rate limit requests per minute and burst must be greater than 0")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

// getEnvAsStringSlice splits a comma-separated value, dropping blank items.
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
