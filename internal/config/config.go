package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment    string
	Port           string
	Host           string   // Raw HOST env (e.g. https://api.solace.app)
	AllowedHost    string   // Hostname only for strict host check (production only)
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	TrustProxy     bool     // read the client IP from X-Forwarded-For

	DatabaseDriver string // postgres | sqlite
	DatabaseURL    string
	RedisURI       string // empty disables cache, rate limit and community fan-out
	MongoURI       string // empty disables the moderation audit log

	AuthJWTSecret string
	AuthIssuer    string

	LLMAPIKey       string
	LLMBaseURL      string
	LLMModel        string
	ModerationModel string
	LLMTimeout      time.Duration

	EncryptionKey string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	LogLevel string
	LogFile  string

	StatsCacheTTL            time.Duration
	ModerationRetentionHours int
}

// Load reads configuration from the environment. .env files are loaded by
// the caller before Load runs.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("HOST", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "postgres://localhost:5432/solace?sslmode=disable")
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("MODERATION_MODEL", "omni-moderation-latest")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATS_CACHE_TTL", "5m")
	v.SetDefault("MODERATION_RETENTION_HOURS", 720)

	env := strings.ToLower(strings.TrimSpace(v.GetString("ENV")))
	host := v.GetString("HOST")

	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(v.GetString("ALLOWED_ORIGINS"))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{v.GetString("FRONTEND_URL"), v.GetString("FRONTEND_URL_2"), v.GetString("FRONTEND_URL_3")} {
			if u = strings.TrimSpace(u); u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// A backend on api.example.com serves the frontend on example.com and www.example.com.
	if h := hostname(host); h != "" && h != "localhost" {
		if parts := strings.Split(h, "."); len(parts) >= 2 {
			domain := strings.Join(parts[1:], ".")
			for _, origin := range []string{"https://" + domain, "https://www." + domain} {
				if !containsOrigin(allowedOrigins, origin) {
					allowedOrigins = append(allowedOrigins, origin)
				}
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		Environment:    env,
		Port:           v.GetString("PORT"),
		Host:           host,
		AllowedHost:    allowedHost,
		FrontendURL:    v.GetString("FRONTEND_URL"),
		AllowedOrigins: allowedOrigins,
		TrustProxy:     v.GetBool("TRUST_PROXY"),

		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisURI:       v.GetString("REDIS_URI"),
		MongoURI:       firstNonEmpty(v.GetString("MONGODB_URI"), v.GetString("MONGO_URI")),

		AuthJWTSecret: v.GetString("AUTH_JWT_SECRET"),
		AuthIssuer:    v.GetString("AUTH_ISSUER"),

		LLMAPIKey:       v.GetString("LLM_API_KEY"),
		LLMBaseURL:      v.GetString("LLM_BASE_URL"),
		LLMModel:        v.GetString("LLM_MODEL"),
		ModerationModel: v.GetString("MODERATION_MODEL"),
		LLMTimeout:      v.GetDuration("LLM_TIMEOUT"),

		EncryptionKey: v.GetString("ENCRYPTION_KEY"),

		CloudinaryName:      v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),

		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),

		StatsCacheTTL:            v.GetDuration("STATS_CACHE_TTL"),
		ModerationRetentionHours: v.GetInt("MODERATION_RETENTION_HOURS"),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// hostname strips scheme, path and port from a URL-ish string.
func hostname(raw string) string {
	h := raw
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
