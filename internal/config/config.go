package config // package config loads application configuration from environment variables

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/booksphere/internal/database"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string           // application environment (e.g. "dev", "prod")
	Port        string           // HTTP port to listen on
	DB          database.Options // database driver and connection settings
	AutoMigrate bool             // apply pending migrations at startup
	JWTSecret   string           // secret used to sign bearer tokens
	TokenTTL    time.Duration    // lifetime of an issued token
	AdminSecret string           // shared key for admin registration; empty disables it
	BcryptCost  int              // bcrypt cost for password hashing

	AMQPURL       string // broker URL; empty disables booking events
	BookingLogDir string // directory the booking consumer appends to

	Logging   LoggingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// Load reads a .env file when present and then the environment.  Required
// variables are enforced by must(); missing values terminate the process.
func Load() Config {
	_ = godotenv.Load() // a missing .env is fine

	cfg := Config{
		Env:         envStr("APP_ENV", "dev"),
		Port:        envStr("APP_PORT", "8080"),
		AutoMigrate: envBool("AUTO_MIGRATE", false),
		JWTSecret:   must("JWT_SECRET"),
		TokenTTL:    envDur("TOKEN_TTL", 72*time.Hour),
		AdminSecret: os.Getenv("ADMIN_SECRET"),
		BcryptCost:  envInt("BCRYPT_COST", 12),

		AMQPURL:       amqpURL(),
		BookingLogDir: envStr("BOOKING_LOG_DIR", "logs"),

		Logging:   LoadLoggingConfig(),
		Cache:     LoadCacheConfig(),
		RateLimit: LoadRateLimitConfig(),
	}
	cfg.DB = LoadDatabase()
	if cfg.TokenTTL <= 0 {
		log.Fatal().Str("key", "TOKEN_TTL").Msg("token ttl must be positive")
	}
	return cfg
}

// LoadDatabase reads DB_DRIVER and the matching connection settings.  It
// also loads .env so commands that only need the database can call it
// on its own.
func LoadDatabase() database.Options {
	_ = godotenv.Load()

	driver := strings.ToLower(envStr("DB_DRIVER", database.DriverMySQL))
	switch driver {
	case database.DriverSQLite:
		return database.Options{Driver: driver, Path: envStr("SQLITE_PATH", "booksphere.db")}
	case database.DriverMySQL:
		return database.Options{
			Driver: driver,
			User:   must("DB_USER"),
			Pass:   os.Getenv("DB_PASS"), // empty allowed
			Host:   must("DB_HOST"),
			Port:   must("DB_PORT"),
			Name:   must("DB_NAME"),
		}
	}
	log.Fatal().Str("key", "DB_DRIVER").Str("value", driver).Msg("unsupported database driver")
	return database.Options{}
}

// amqpURL honours both RABBITMQ_URL and AMQP_URL.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}
