package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL    string
	MigrationsURL  string
	DBMaxOpenConns int
	DBMaxIdleConns int
	LogLevel       string
	Environment    string

	// Email (single provider)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool
	SMTPTimeout  time.Duration

	// SMS - mTarget (primary for Cameroon numbers)
	MTargetUsername  string
	MTargetPassword  string
	MTargetServiceID string
	MTargetSender    string
	MTargetAPIURL    string

	// SMS - Twilio (fallback)
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// OTP lifecycle
	OTPLength      int
	OTPExpiry      time.Duration
	OTPMaxAttempts int

	// Dispatch resilience
	SendMaxRetries   int
	SendRetryDelay   time.Duration
	SendTimeout      time.Duration
	CircuitThreshold int
	CircuitCooldown  time.Duration
	RateLimitMax     int
	RateLimitWindow  time.Duration

	// Ops
	HealthCronSpec  string
	TelegramToken   string // optional: enables Telegram ops alerts
	AdminTelegramID int64  // optional: alert recipient chat
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.MigrationsURL = envOrDefault("MIGRATIONS_URL", "file://migrations")
	if cfg.DBMaxOpenConns, err = positiveInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = positiveInt("DB_MAX_IDLE_CONNS", 25); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOrDefault("ENVIRONMENT", "development"))

	// Email
	if cfg.SMTPHost, err = requireString("SMTP_HOST"); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = positiveInt("SMTP_PORT", 465); err != nil {
		return nil, err
	}
	if cfg.SMTPUser, err = requireString("SMTP_USER"); err != nil {
		return nil, err
	}
	if cfg.SMTPPassword, err = requireString("SMTP_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.SMTPFrom, err = requireString("SMTP_FROM"); err != nil {
		return nil, err
	}
	cfg.SMTPUseTLS = boolOrDefault("SMTP_USE_TLS", true)
	smtpTimeoutSec, err := positiveInt("SMTP_TIMEOUT_SECONDS", 20)
	if err != nil {
		return nil, err
	}
	cfg.SMTPTimeout = time.Duration(smtpTimeoutSec) * time.Second

	// mTarget
	if cfg.MTargetUsername, err = requireString("MTARGET_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.MTargetPassword, err = requireString("MTARGET_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.MTargetServiceID, err = requireString("MTARGET_SERVICE_ID"); err != nil {
		return nil, err
	}
	cfg.MTargetSender = envOrDefault("MTARGET_SENDER", "FM OTP")
	cfg.MTargetAPIURL = envOrDefault("MTARGET_API_URL", "https://api-public-2.mtarget.fr/messages")

	// Twilio
	if cfg.TwilioAccountSID, err = requireString("TWILIO_ACCOUNT_SID"); err != nil {
		return nil, err
	}
	if cfg.TwilioAuthToken, err = requireString("TWILIO_AUTH_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.TwilioPhoneNumber, err = requireString("TWILIO_PHONE_NUMBER"); err != nil {
		return nil, err
	}

	// OTP
	if cfg.OTPLength, err = positiveInt("OTP_LENGTH", 6); err != nil {
		return nil, err
	}
	expiryMinutes, err := positiveInt("OTP_EXPIRY_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.OTPExpiry = time.Duration(expiryMinutes) * time.Minute
	if cfg.OTPMaxAttempts, err = positiveInt("OTP_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	// Dispatch resilience
	if cfg.SendMaxRetries, err = positiveInt("SEND_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	retryDelaySec, err := positiveInt("SEND_RETRY_DELAY_SECONDS", 2)
	if err != nil {
		return nil, err
	}
	cfg.SendRetryDelay = time.Duration(retryDelaySec) * time.Second
	sendTimeoutSec, err := positiveInt("SEND_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.SendTimeout = time.Duration(sendTimeoutSec) * time.Second
	if cfg.CircuitThreshold, err = positiveInt("CIRCUIT_THRESHOLD", 5); err != nil {
		return nil, err
	}
	cooldownSec, err := positiveInt("CIRCUIT_COOLDOWN_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.CircuitCooldown = time.Duration(cooldownSec) * time.Second
	if cfg.RateLimitMax, err = positiveInt("RATE_LIMIT_REQUESTS", 100); err != nil {
		return nil, err
	}
	windowSec, err := positiveInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitWindow = time.Duration(windowSec) * time.Second

	// Ops
	cfg.HealthCronSpec = envOrDefault("HEALTH_CRON_SPEC", "*/5 * * * *")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func requireString(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("%s is not set", name)
	}
	return v, nil
}

func positiveInt(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %d", name, v)
	}
	return v, nil
}

func boolOrDefault(name string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
