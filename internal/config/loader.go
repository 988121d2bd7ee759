package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/credential"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/logging"
)

// Config captures environment driven configuration values for the tracker service.
type Config struct {
	HTTPPort      int
	DBDriver      string
	DBDSN         string
	SessionSecret string
	SessionTTL    time.Duration
	BcryptCost    int
	LogLevel      slog.Level

	RedisURL          string
	AccessMaxAttempts int
	AccessWindow      time.Duration

	RegistrationUniqueEmail bool

	MailFrom string
	Gmail    GmailCredentials
}

// GmailCredentials are the OAuth2 offline credentials of the minutes mailer.
type GmailCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Complete reports whether every credential is set.
func (g GmailCredentials) Complete() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

// Defaults returns the configuration used when no variable is set.
func Defaults() Config {
	return Config{
		HTTPPort:          8080,
		DBDriver:          "sqlite",
		DBDSN:             "file:tracker.db",
		SessionTTL:        24 * time.Hour,
		BcryptCost:        credential.MinCost,
		LogLevel:          slog.LevelInfo,
		AccessMaxAttempts: 5,
		AccessWindow:      15 * time.Minute,
	}
}

// Load parses configuration values from the current process environment.
//
// Each envFile is read with godotenv first; variables already present in the
// environment win and missing files are skipped. Every missing or invalid
// variable is reported in a single error.
func Load(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	cfg := Defaults()
	p := parser{}

	p.positiveInt("TRACKER_HTTP_PORT", &cfg.HTTPPort)
	if driver := p.value("TRACKER_DB_DRIVER"); driver != "" {
		switch driver = strings.ToLower(driver); driver {
		case "sqlite", "postgres":
			cfg.DBDriver = driver
		default:
			p.invalid = append(p.invalid, "TRACKER_DB_DRIVER")
		}
	}
	if dsn := p.value("TRACKER_DB_DSN"); dsn != "" {
		cfg.DBDSN = dsn
	}

	if secret := p.value("TRACKER_SESSION_SECRET"); secret == "" {
		p.missing = append(p.missing, "TRACKER_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}
	p.duration("TRACKER_SESSION_TTL", &cfg.SessionTTL)

	if costValue := p.value("TRACKER_BCRYPT_COST"); costValue != "" {
		cost, err := strconv.Atoi(costValue)
		if err != nil || cost < credential.MinCost {
			p.invalid = append(p.invalid, "TRACKER_BCRYPT_COST")
		} else {
			cfg.BcryptCost = cost
		}
	}

	if levelValue := p.value("TRACKER_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			p.invalid = append(p.invalid, "TRACKER_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	cfg.RedisURL = p.value("TRACKER_REDIS_URL")
	p.positiveInt("TRACKER_ACCESS_MAX_ATTEMPTS", &cfg.AccessMaxAttempts)
	p.duration("TRACKER_ACCESS_WINDOW", &cfg.AccessWindow)

	if uniqueValue := p.value("TRACKER_REGISTRATION_UNIQUE_EMAIL"); uniqueValue != "" {
		unique, err := strconv.ParseBool(uniqueValue)
		if err != nil {
			p.invalid = append(p.invalid, "TRACKER_REGISTRATION_UNIQUE_EMAIL")
		} else {
			cfg.RegistrationUniqueEmail = unique
		}
	}

	cfg.MailFrom = p.value("TRACKER_MAIL_FROM")
	cfg.Gmail = GmailCredentials{
		ClientID:     p.value("GMAIL_CLIENT_ID"),
		ClientSecret: p.value("GMAIL_CLIENT_SECRET"),
		RefreshToken: p.value("GMAIL_REFRESH_TOKEN"),
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server binds to.
func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

type parser struct {
	missing []string
	invalid []string
}

func (p *parser) value(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (p *parser) positiveInt(key string, dst *int) {
	raw := p.value(key)
	if raw == "" {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	raw := p.value(key)
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = d
}

func (p *parser) err() error {
	var errs []error
	if len(p.missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(p.missing, ", ")))
	}
	if len(p.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variable values: %s", strings.Join(p.invalid, ", ")))
	}
	return errors.Join(errs...)
}
