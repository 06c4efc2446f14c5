package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	AdminUser     string `validate:"required"`
	AdminPassword string `validate:"required"`

	DatabaseURL string `validate:"required,startswith=postgres"`

	ListenAddr string `validate:"required"`

	// GlobalAPIKey is the site-wide check-in key the platform validates
	// first. If empty, only per-event keys can authorize check-in.
	GlobalAPIKey string

	// TicketPostTypes lists the post types tickets can be attached to.
	// Only these get the API key meta box.
	TicketPostTypes []string `validate:"required,dive,required"`

	// APIKeyLength is the length, in hex characters, of generated event keys.
	// Out-of-range or unparsable values fail Validate.
	APIKeyLength int `validate:"min=8,max=64"`

	// SessionTTL is how long a dashboard login lasts.
	SessionTTL time.Duration `validate:"min=1m"`

	Locale        string `validate:"required"`
	LangDir       string
	LangSystemDir string

	// TicketsPlusVersion is the installed version of the host ticketing add-on.
	TicketsPlusVersion string

	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AdminUser:          getenv("APP_ADMIN_USER", "admin"),
		AdminPassword:      getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("APP_DATABASE_URL")),
		ListenAddr:         getenv("APP_LISTEN_ADDR", ":8080"),
		GlobalAPIKey:       os.Getenv("APP_GLOBAL_API_KEY"),
		TicketPostTypes:    splitList(getenv("APP_TICKET_POST_TYPES", "tribe_events")),
		APIKeyLength:       16,
		SessionTTL:         12 * time.Hour,
		Locale:             getenv("APP_LOCALE", "en_US"),
		LangDir:            getenv("APP_LANG_DIR", "lang"),
		LangSystemDir:      os.Getenv("APP_LANG_SYSTEM_DIR"),
		TicketsPlusVersion: getenv("APP_TICKETS_PLUS_VERSION", "5.7.1"),
		LogLevel:           strings.ToLower(getenv("APP_LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getenv("APP_LOG_FORMAT", "json")),
	}

	if v := strings.TrimSpace(os.Getenv("APP_API_KEY_LENGTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = 0
		}
		cfg.APIKeyLength = n
	}
	if v := strings.TrimSpace(os.Getenv("APP_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			d = 0
		}
		cfg.SessionTTL = d
	}

	return cfg
}

// Validate checks the loaded values against their constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// TicketEnabled reports whether tickets can be attached to postType.
func (c *Config) TicketEnabled(postType string) bool {
	for _, t := range c.TicketPostTypes {
		if t == postType {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
