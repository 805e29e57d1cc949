package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Security SecurityConfig
	Email    EmailConfig
	Events   EventsConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	TimingDelayBaseMs  int
	TimingDelayRandMs  int
}

// SecurityConfig carries every lockout, OTP, and anomaly policy constant.
// There is no process-global security state; components receive this struct
// through their constructors.
type SecurityConfig struct {
	// Failure counting and lockout
	MaxFailedAttempts int
	FailureWindow     time.Duration
	LockDuration      time.Duration

	// OTP recovery
	OTPCodeLength int
	OTPExpiry     time.Duration

	// Anomaly heuristics
	AutomationWindow      time.Duration
	AutomationMinAttempts int
	AutomationMaxMeanGap  time.Duration
	StuffingWindow        time.Duration
	StuffingMinIdentifiers int

	// Best-effort budget for the origin advisory on the success path
	OriginCheckBudget time.Duration

	// Retention for attempt records, enforced by the background cleanup
	AttemptRetention time.Duration
	CleanupInterval  time.Duration
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

type EventsConfig struct {
	KafkaBrokers string
	KafkaTopic   string
	Enabled      bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatehouse"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: splitAndTrim(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			TimingDelayBaseMs:  getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandMs:  getEnvAsInt("TIMING_DELAY_RANDOM_MS", 50),
		},
		Security: SecurityConfig{
			MaxFailedAttempts:      getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
			FailureWindow:          getEnvAsDuration("FAILURE_WINDOW", 15*time.Minute),
			LockDuration:           getEnvAsDuration("LOCK_DURATION", 15*time.Minute),
			OTPCodeLength:          getEnvAsInt("OTP_CODE_LENGTH", 6),
			OTPExpiry:              getEnvAsDuration("OTP_EXPIRY", 10*time.Minute),
			AutomationWindow:       getEnvAsDuration("AUTOMATION_WINDOW", 60*time.Second),
			AutomationMinAttempts:  getEnvAsInt("AUTOMATION_MIN_ATTEMPTS", 3),
			AutomationMaxMeanGap:   getEnvAsDuration("AUTOMATION_MAX_MEAN_GAP", 2*time.Second),
			StuffingWindow:         getEnvAsDuration("STUFFING_WINDOW", 4*time.Hour),
			StuffingMinIdentifiers: getEnvAsInt("STUFFING_MIN_IDENTIFIERS", 5),
			OriginCheckBudget:      getEnvAsDuration("ORIGIN_CHECK_BUDGET", 500*time.Millisecond),
			AttemptRetention:       getEnvAsDuration("ATTEMPT_RETENTION", 30*24*time.Hour),
			CleanupInterval:        getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "security@gatehouse.local"),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
			KafkaTopic:   getEnv("KAFKA_SECURITY_TOPIC", "security.events"),
			Enabled:      getEnvAsBool("KAFKA_ENABLED", false),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.Security.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *SecurityConfig) validate() error {
	if c.MaxFailedAttempts < 1 {
		return fmt.Errorf("MAX_FAILED_ATTEMPTS must be at least 1")
	}
	if c.FailureWindow <= 0 || c.LockDuration <= 0 {
		return fmt.Errorf("FAILURE_WINDOW and LOCK_DURATION must be positive")
	}
	if c.OTPCodeLength < 4 || c.OTPCodeLength > 10 {
		return fmt.Errorf("OTP_CODE_LENGTH must be between 4 and 10")
	}
	if c.OTPExpiry <= 0 {
		return fmt.Errorf("OTP_EXPIRY must be positive")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for the JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
