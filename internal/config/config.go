package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside of ENV=prod.
const DefaultJWTSecret = "your-secret-key-change-this"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// bcryptMaxPasswordBytes is the longest input bcrypt will hash.
const bcryptMaxPasswordBytes = 72

type Config struct {
	Port string

	// Env is "dev" (default) or "prod". When "prod", JWT_SECRET must be set and not the default.
	Env string

	// DBDriver selects the store: "sqlite" (default) or "postgres".
	DBDriver string
	// DBPath is the SQLite database file.
	DBPath string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int
	// DBMigrate applies the embedded migrations on startup.
	DBMigrate bool

	JWTSecret string
	// JWTTTL is the token validity window (default 24h). Set via JWT_TTL, e.g. "12h".
	JWTTTL time.Duration

	// PasswordHash is the digest the user store is populated with: "sha256" or "bcrypt".
	PasswordHash string

	// AdminUsername and AdminPassword seed an admin account when both are set.
	AdminUsername string
	AdminPassword string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string
	LogLevel  string

	// CORSAllowedOrigins is set via CORS_ALLOWED_ORIGINS (comma-separated).
	// When empty, no CORS headers are sent (same-origin only).
	CORSAllowedOrigins []string

	// TrustedProxies lists the proxy IPs or CIDRs (TRUSTED_PROXIES, comma-separated)
	// whose X-Forwarded-For and X-Real-IP headers are believed. When empty the
	// client IP is always the connection's remote address.
	TrustedProxies []string

	LoginRatePerMinute int
	LoginBurst         int

	// StoreProbeSchedule is a cron expression for the background store ping.
	StoreProbeSchedule string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	return Config{
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "dev"),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:   getEnv("DB_PATH", "tools.db"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "toolsdb"),
		DBUser: getEnv("DB_USER", "toolsuser"),
		DBPass: getEnv("DB_PASS", "toolspass"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBMigrate:      getEnvBool("DB_MIGRATE", true),

		JWTSecret: getEnv("JWT_SECRET", getEnv("SECRET_KEY", DefaultJWTSecret)),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		PasswordHash: strings.ToLower(getEnv("PASSWORD_HASH", "sha256")),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: parseList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		TrustedProxies:     parseList(getEnv("TRUSTED_PROXIES", "")),

		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MIN", 10),
		LoginBurst:         getEnvInt("LOGIN_BURST", 5),

		StoreProbeSchedule: getEnv("STORE_PROBE_SCHEDULE", "@every 30s"),
	}
}

// Validate reports configuration that the server must refuse to start with.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.Env == "prod" && c.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set when ENV=prod"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	switch c.PasswordHash {
	case "sha256", "bcrypt":
	default:
		errs = append(errs, fmt.Errorf("unsupported PASSWORD_HASH %q", c.PasswordHash))
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together"))
	}
	if c.PasswordHash == "bcrypt" && len(c.AdminPassword) > bcryptMaxPasswordBytes {
		errs = append(errs, fmt.Errorf("ADMIN_PASSWORD must be at most %d bytes with PASSWORD_HASH=bcrypt", bcryptMaxPasswordBytes))
	}
	for _, p := range c.TrustedProxies {
		if _, err := ParseProxy(p); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PostgresURL is the URL form of the postgres settings, as used by migrations.
func (c Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// ParseProxy parses a TRUSTED_PROXIES entry. A bare address becomes a
// single-host prefix.
func ParseProxy(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// parseList splits a comma-separated list and trims spaces. Empty strings are omitted.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
