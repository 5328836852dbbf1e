package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PlaceholderClientID is the value shipped in the sample .env file. It is treated as unset.
const PlaceholderClientID = "your-google-client-id.apps.googleusercontent.com"

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	PublicURL            string
	APIBaseURL           string
	GoogleClientID       string
	ProbeTimeout         time.Duration
	BackendTimeout       time.Duration
	ArtifactStore        string
	ArtifactTTL          time.Duration
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	NodeID               int64
	ServiceName          string
	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
	CookieSecure         bool
	UIDistDir            string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "3000"),
		PublicURL:            strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
		APIBaseURL:           strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api"), "/"),
		GoogleClientID:       strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		ProbeTimeout:         getDuration("PROBE_TIMEOUT", 2*time.Second),
		BackendTimeout:       getDuration("BACKEND_TIMEOUT", 10*time.Second),
		ArtifactStore:        strings.ToLower(getEnv("ARTIFACT_STORE", "memory")),
		ArtifactTTL:          getDuration("ARTIFACT_TTL", 30*time.Minute),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		NodeID:               int64(getInt("NODE_ID", 1)),
		ServiceName:          getEnv("SERVICE_NAME", "subtrack-web"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Origin", "Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
		CookieSecure:         getBool("COOKIE_SECURE", false),
		UIDistDir:            getEnv("UI_DIST_DIR", "ui/dist"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		return fmt.Errorf("API_BASE_URL must be an absolute url: %w", err)
	}
	if _, err := url.ParseRequestURI(c.PublicURL); err != nil {
		return fmt.Errorf("PUBLIC_URL must be an absolute url: %w", err)
	}
	switch c.ArtifactStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("ARTIFACT_STORE must be memory or redis, got %q", c.ArtifactStore)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive")
	}
	return nil
}

// GoogleClientConfigured reports whether the direct provider flow can be used.
// An empty client id or the sample placeholder both count as missing.
func (c Config) GoogleClientConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientID != PlaceholderClientID
}

// CallbackURL is the redirect target registered with the provider for the direct flow.
func (c Config) CallbackURL() string {
	return c.PublicURL + "/gmail-callback"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
