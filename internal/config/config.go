package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
)

// Config holds application configuration. It is built once at process start
// by Load and checked by Validate before anything else is wired.
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	LogFormat     string

	Backend     string
	DatabaseURL string
	SupabaseURL string
	SupabaseKey string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DraftTTL      time.Duration

	AdminPassphrase     string
	AdminPassphraseHash string
	AdminJWTSecret      string
	AdminSessionTTL     time.Duration
	LoginRatePerMinute  int
	CORSAllowedOrigins  []string
	TrustProxyHeaders   bool

	AdminWhatsAppNumber  string
	ClinicContactNumber  string
	ClinicTimezone       string
	BoardRefreshInterval time.Duration
	NotificationCapacity int

	// Email notifications (SendGrid takes precedence over SES)
	SendGridAPIKey        string
	SendGridFromEmail     string
	SendGridFromName      string
	SESFromEmail          string
	NotifyEmailRecipients []string

	// AWS wiring for SES, S3 export archive and the SQS alert queue
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ExportArchiveBucket string
	NotifyQueueURL      string

	// parse problems found by Load, reported by Validate
	loadErrs []error
}

// LoadDotEnv reads .env files into the process environment when present.
// Variables that are already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables. Values that fail to
// parse keep their default and are reported by Validate.
func Load() *Config {
	env := &envReader{}
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),

		Backend:     strings.ToLower(strings.TrimSpace(getEnv("BACKEND", BackendMemory))),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SupabaseURL: strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey: getEnv("SUPABASE_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      env.Bool("REDIS_TLS", false),
		DraftTTL:      env.Duration("BOOKING_DRAFT_TTL", 2*time.Hour),

		AdminPassphrase:     getEnv("ADMIN_PASSPHRASE", ""),
		AdminPassphraseHash: getEnv("ADMIN_PASSPHRASE_HASH", ""),
		AdminJWTSecret:      getEnv("ADMIN_JWT_SECRET", ""),
		AdminSessionTTL:     env.Duration("ADMIN_SESSION_TTL", 8*time.Hour),
		LoginRatePerMinute:  env.Int("LOGIN_RATE_LIMIT", 10),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		TrustProxyHeaders:   env.Bool("TRUST_PROXY_HEADERS", false),

		AdminWhatsAppNumber:  getEnv("ADMIN_WHATSAPP_NUMBER", ""),
		ClinicContactNumber:  getEnv("CLINIC_CONTACT_NUMBER", ""),
		ClinicTimezone:       getEnv("CLINIC_TIMEZONE", "Asia/Kolkata"),
		BoardRefreshInterval: env.Duration("BOARD_REFRESH_INTERVAL", 30*time.Second),
		NotificationCapacity: env.Int("NOTIFICATION_CAPACITY", 10),

		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:     getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:      getEnv("SENDGRID_FROM_NAME", "Eye Clinic"),
		SESFromEmail:          getEnv("SES_FROM_EMAIL", ""),
		NotifyEmailRecipients: getEnvAsList("NOTIFY_EMAIL_RECIPIENTS", nil),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ExportArchiveBucket: getEnv("EXPORT_ARCHIVE_BUCKET", ""),
		NotifyQueueURL:      getEnv("NOTIFY_QUEUE_URL", ""),
	}
	cfg.loadErrs = env.errs
	return cfg
}

// Location resolves ClinicTimezone; booking dates and CSV exports are
// rendered in it. An empty value means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.ClinicTimezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.ClinicTimezone)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and remembers every value it had to
// reject.
type envReader struct {
	errs []error
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q is invalid: %w", key, value, err))
}

// Int retrieves an environment variable as an integer or returns a default value
func (e *envReader) Int(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		e.fail(key, valueStr, err)
		return defaultValue
	}
	return value
}

// Bool retrieves an environment variable as a boolean or returns a default value
func (e *envReader) Bool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		e.fail(key, valueStr, err)
		return defaultValue
	}
	return value
}

func (e *envReader) Duration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(valueStr))
	if err != nil {
		e.fail(key, valueStr, err)
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
