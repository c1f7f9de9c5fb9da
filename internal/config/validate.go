package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the loaded configuration and returns every problem found,
// joined. The server refuses to start on a non-nil result.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)

	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when BACKEND=postgres"))
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required when BACKEND=supabase"))
		}
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when BACKEND=supabase (change feed)"))
		}
	default:
		errs = append(errs, fmt.Errorf("BACKEND must be one of memory, postgres, supabase (got %q)", c.Backend))
	}

	if c.AdminPassphrase == "" && c.AdminPassphraseHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSPHRASE or ADMIN_PASSPHRASE_HASH is required"))
	}
	if len(c.AdminJWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("ADMIN_JWT_SECRET must be at least 32 characters (got %d)", len(c.AdminJWTSecret)))
	}
	if c.AdminSessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("ADMIN_SESSION_TTL must be > 0 (got %s)", c.AdminSessionTTL))
	}
	if c.BoardRefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("BOARD_REFRESH_INTERVAL must be > 0 (got %s)", c.BoardRefreshInterval))
	}
	if c.NotificationCapacity <= 0 {
		errs = append(errs, fmt.Errorf("NOTIFICATION_CAPACITY must be > 0 (got %d)", c.NotificationCapacity))
	}
	if c.DraftTTL <= 0 {
		errs = append(errs, fmt.Errorf("BOOKING_DRAFT_TTL must be > 0 (got %s)", c.DraftTTL))
	}
	if c.LoginRatePerMinute <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_LIMIT must be > 0 (got %d)", c.LoginRatePerMinute))
	}
	if digits(c.AdminWhatsAppNumber) == "" {
		errs = append(errs, errors.New("ADMIN_WHATSAPP_NUMBER is required for appointment alerts"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("CLINIC_TIMEZONE is not a known zone: %w", err))
	}
	if c.SendGridAPIKey != "" && c.SendGridFromEmail == "" {
		errs = append(errs, errors.New("SENDGRID_FROM_EMAIL is required when SENDGRID_API_KEY is set"))
	}

	return errors.Join(errs...)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
