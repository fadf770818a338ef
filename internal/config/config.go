package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/secrets"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Keycloak
	KeycloakURL             string
	KeycloakRealm           string
	KeycloakClientID        string
	KeycloakClientSecret    string
	KeycloakProfileCacheTTL time.Duration
	KeycloakTimeout         time.Duration

	// Cache (Redis)
	CacheEnabled bool
	RedisHost    string
	RedisPort    string
	RedisDB      int
	UserTTL      time.Duration
	RoleTTL      time.Duration
	ListTTL      time.Duration

	// JWT (service-to-service admin surface)
	JWTSecret string

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Root user bootstrap
	RootUserEmail     string
	RootUserFirstName string
	RootUserLastName  string
	RootUserPassword  string

	// Server
	Port        string
	CORSOrigins string
	Env         string
	SentryDSN   string
}

// Load reads configuration from the environment. Secrets (DB password,
// Keycloak client secret, JWT secret) resolve through the secrets chain so
// additional providers can be layered in front of the environment.
func Load() *Config {
	return LoadWith(secrets.Default())
}

func LoadWith(sec *secrets.Chain) *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: sec.GetOr("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "identity_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		KeycloakURL:             getEnv("KEYCLOAK_URL", "http://localhost:18080"),
		KeycloakRealm:           getEnv("KEYCLOAK_REALM", "master"),
		KeycloakClientID:        getEnv("KEYCLOAK_CLIENT_ID", "identity-api-service"),
		KeycloakClientSecret:    sec.GetOr("KEYCLOAK_CLIENT_SECRET", ""),
		KeycloakProfileCacheTTL: parseDurationSecs(getEnv("KEYCLOAK_PROFILE_CACHE_TTL_SECS", "300")),
		KeycloakTimeout:         parseDurationSecs(getEnv("KEYCLOAK_TIMEOUT_SECS", "30")),

		CacheEnabled: getEnv("CACHE_ENABLED", "false") == "true",
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisDB:      parseInt(getEnv("REDIS_DB", "0"), 0),
		UserTTL:      parseDurationSecs(getEnv("CACHE_USER_TTL_SECS", "300")),
		RoleTTL:      parseDurationSecs(getEnv("CACHE_ROLE_TTL_SECS", "600")),
		ListTTL:      parseDurationSecs(getEnv("CACHE_LIST_TTL_SECS", "60")),

		JWTSecret: sec.GetOr("JWT_SECRET", ""),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		RootUserEmail:     getEnv("ROOT_USER_EMAIL", ""),
		RootUserFirstName: getEnv("ROOT_USER_FIRST_NAME", "Root"),
		RootUserLastName:  getEnv("ROOT_USER_LAST_NAME", "User"),
		RootUserPassword:  sec.GetOr("ROOT_USER_PASSWORD", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		Env:         getEnv("ENV", "local"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProdLike reports whether the environment name is production-like
// (prod, prod01, prod02, ...). Internal error details are redacted from
// API responses in these environments.
func (c *Config) IsProdLike() bool {
	return strings.HasPrefix(strings.ToLower(c.Env), "prod")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseDurationSecs(s string) time.Duration {
	secs, err := strconv.Atoi(s)
	if err != nil || secs < 0 {
		return 5 * time.Minute
	}
	return time.Duration(secs) * time.Second
}
