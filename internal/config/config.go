package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     int

	// STORE=memory runs the API without postgres (demo/dev only)
	Store         string
	DBURL         string
	DBAutoMigrate bool

	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	ResetURL      string
	RevealUnknown bool

	PasswordMinLength int
	AdminInviteToken  string

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitPerMinute int
	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	OTELEnabled     bool
	OTELEndpoint    string
	OTELSampleRatio float64

	// Notifier picks the transport (log|smtp); EmailDelivery picks sync sends or the job queue.
	Notifier      string
	EmailDelivery string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	MailFrom      string

	WorkerConcurrency int
	WorkerPollEvery   time.Duration
	WorkerLockTTL     time.Duration
	WorkerHealthPort  int
}

func Load() Config {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	return Config{
		Env:      getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		Port:     getEnvInt("PORT", 8080),

		Store:         strings.ToLower(getEnv("STORE", "postgres")),
		DBURL:         getEnv("DATABASE_URL", buildDBURL()),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTTL:     time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 15)) * time.Minute,
		RefreshTTL:    time.Duration(getEnvInt("JWT_REFRESH_TTL_DAYS", 7)) * 24 * time.Hour,
		ResetTTL:      time.Duration(getEnvInt("PASSWORD_RESET_TTL_MINUTES", 60)) * time.Minute,
		ResetURL:      getEnv("PASSWORD_RESET_URL", "http://localhost:3000/reset-password"),
		RevealUnknown: getEnvBool("PASSWORD_RESET_REVEAL_UNKNOWN", false),

		PasswordMinLength: getEnvInt("PASSWORD_MIN_LENGTH", 8),
		AdminInviteToken:  getEnv("ADMIN_INVITE_TOKEN", ""),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		OTELSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),

		Notifier:      strings.ToLower(getEnv("NOTIFIER", "log")),
		EmailDelivery: strings.ToLower(getEnv("EMAIL_DELIVERY", "sync")),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		MailFrom:      getEnv("MAIL_FROM", "no-reply@workerhub.local"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerPollEvery:   time.Duration(getEnvInt("WORKER_POLL_MS", 250)) * time.Millisecond,
		WorkerLockTTL:     getEnvDuration("WORKER_LOCK_TTL", 2*time.Minute),
		WorkerHealthPort:  getEnvInt("WORKER_HEALTH_PORT", 8081),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "workerhub")
	pass := getEnv("DB_PASSWORD", "workerhub")
	name := getEnv("DB_NAME", "workerhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer in env, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid bool in env, using default", "key", key, "value", v)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid number in env, using default", "key", key, "value", v)
			return fallback
		}
		return f
	}
	return fallback
}

// accepts Go durations ("90s", "2m")
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration in env, using default", "key", key, "value", v)
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
