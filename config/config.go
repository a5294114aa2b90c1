package config

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the buyer.
type Config struct {
	// Marketplace
	HomeURL        string
	AccountCreated bool
	Email          string
	GivenName      string
	FamilyName     string
	ConnectionLink string

	// Purchase targets
	MaxPrice    float64
	TicketCount int

	// Timing
	RetryDelayMin time.Duration
	RetryDelayMax time.Duration
	WaitTimeout   time.Duration
	NavTimeout    time.Duration

	// Browser
	Headless  bool
	UserAgent string

	// Diagnostics
	LogDir       string
	EventLogPath string

	// PostgreSQL (receipt audit trail)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// Load reads configuration from a .env file (if present) and the
// environment, falling back to sensible defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	return Config{
		HomeURL:        getEnv("URL", ""),
		AccountCreated: getEnvBool("ACCOUNT_CREATED", false),
		Email:          getEnv("EMAIL", ""),
		GivenName:      getEnv("GIVEN_NAME", ""),
		FamilyName:     getEnv("FAMILY_NAME", ""),
		ConnectionLink: getEnv("CONNECTION_LINK", ""),

		MaxPrice:    getEnvFloat("MAX_PRICE", 0),
		TicketCount: getEnvInt("TICKETS_COUNT", 0),

		RetryDelayMin: time.Duration(getEnvInt("RETRY_DELAY_MS_MIN", 400)) * time.Millisecond,
		RetryDelayMax: time.Duration(getEnvInt("RETRY_DELAY_MS_MAX", 4000)) * time.Millisecond,
		WaitTimeout:   time.Duration(getEnvInt("WAIT_TIMEOUT_MS", 30000)) * time.Millisecond,
		NavTimeout:    time.Duration(getEnvInt("NAV_TIMEOUT_MS", 30000)) * time.Millisecond,

		Headless: getEnvBool("HEADLESS", true),
		UserAgent: getEnv("USER_AGENT",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) "+
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),

		LogDir:       getEnv("LOG_DIR", "logs"),
		EventLogPath: getEnv("EVENT_LOG", ""),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "tickets"),
		DBPassword: getEnv("DB_PASSWORD", "tickets"),
		DBName:     getEnv("DB_NAME", "ticket_buyer"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}, nil
}

// Validate checks required values before any browser is launched.
func (c Config) Validate() error {
	if c.HomeURL == "" {
		return fmt.Errorf("URL must be filled")
	}
	if !c.AccountCreated {
		if c.Email == "" || c.GivenName == "" || c.FamilyName == "" {
			return fmt.Errorf("EMAIL, GIVEN_NAME and FAMILY_NAME have to be filled if the account doesn't exist")
		}
	} else if c.ConnectionLink == "" {
		return fmt.Errorf("CONNECTION_LINK has to be filled if the account exists")
	}
	if c.MaxPrice <= 0 {
		return fmt.Errorf("MAX_PRICE must be filled")
	}
	if c.TicketCount <= 0 {
		return fmt.Errorf("TICKETS_COUNT must be filled")
	}
	if c.RetryDelayMin < 0 || c.RetryDelayMax < c.RetryDelayMin {
		return fmt.Errorf("retry delay range is invalid: min=%s max=%s", c.RetryDelayMin, c.RetryDelayMax)
	}
	return nil
}

// RandomDelay returns a uniformly random duration in
// [RetryDelayMin, RetryDelayMax).
func (c Config) RandomDelay() time.Duration {
	span := c.RetryDelayMax - c.RetryDelayMin
	if span <= 0 {
		return c.RetryDelayMin
	}
	return c.RetryDelayMin + time.Duration(rand.Int63n(int64(span)))
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
