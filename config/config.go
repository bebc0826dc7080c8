// Package config loads and validates the checker configuration from the
// environment. Every component receives its settings from the Config struct
// built here; nothing else reads environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ecas-notifier/pkg/ecas"

	"github.com/joho/godotenv"
)

// Defaults applied when the optional variables are unset.
const (
	DefaultSMTPServer     = "smtp.gmail.com"
	DefaultSMTPPort       = 465
	DefaultIdentifierType = "1"
	DefaultCountry        = "207"
)

// Mail holds the outbound mail settings.
type Mail struct {
	Sender   string // Sender address, also the SMTP username
	Password string // App password
	To       string // Single recipient
	Server   string
	Port     int
}

// Config is the full, validated run configuration.
type Config struct {
	Mail        Mail
	Credentials ecas.Credentials

	StateDir      string // Directory for the state file and debug dumps
	StorageBucket string // When set, state lives in this GCS bucket instead

	GoogleCredentialsJSON string // When set, mail goes out via the Gmail API
	MockEmail             bool   // Log the email instead of sending it
}

// Load reads the environment (a .env file is honored when present) and
// returns a validated Config. Every missing required variable is reported in
// a single error so the operator can fix them all at once.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Mail: Mail{
			Sender:   os.Getenv("EMAIL_SENDER"),
			Password: os.Getenv("EMAIL_PASSWORD"),
			To:       os.Getenv("EMAIL_TO"),
			Server:   envOr("SMTP_SERVER", DefaultSMTPServer),
		},
		Credentials: ecas.Credentials{
			Identifier:     os.Getenv("ECAS_IDENTIFIER"),
			IdentifierType: envOr("ECAS_IDENTIFIER_TYPE", DefaultIdentifierType),
			Surname:        os.Getenv("ECAS_SURNAME"),
			DateOfBirth:    os.Getenv("ECAS_DOB"),
			CountryOfBirth: envOr("ECAS_COUNTRY", DefaultCountry),
		},
		StateDir:              envOr("STATE_DIR", "."),
		StorageBucket:         os.Getenv("STORAGE_BUCKET"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		MockEmail:             isTruthy(os.Getenv("MOCK_EMAIL")),
	}

	port := envOr("SMTP_PORT", strconv.Itoa(DefaultSMTPPort))
	n, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT must be numeric, got %q", port)
	}
	cfg.Mail.Port = n

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	// Mail credentials are only needed for the SMTP provider. The recipient
	// is always needed: even mock mode logs who the mail was for.
	if c.Mail.To == "" {
		missing = append(missing, "EMAIL_TO")
	}
	if !c.MockEmail && c.GoogleCredentialsJSON == "" {
		if c.Mail.Sender == "" {
			missing = append(missing, "EMAIL_SENDER")
		}
		if c.Mail.Password == "" {
			missing = append(missing, "EMAIL_PASSWORD")
		}
	}

	if c.Credentials.Identifier == "" {
		missing = append(missing, "ECAS_IDENTIFIER")
	}
	if c.Credentials.Surname == "" {
		missing = append(missing, "ECAS_SURNAME")
	}
	if c.Credentials.DateOfBirth == "" {
		missing = append(missing, "ECAS_DOB")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if _, err := time.Parse("2006-01-02", c.Credentials.DateOfBirth); err != nil {
		return fmt.Errorf("ECAS_DOB must be YYYY-MM-DD, got %q", c.Credentials.DateOfBirth)
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return errors.New("SMTP_PORT out of range")
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
