package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreDriver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string

	VocabularyPath        string
	VocabularyOverlayPath string

	CorrelationWindow int
	MinCardYear       int
	MaxCardYear       int

	AllowMissingYear bool

	Workers     int
	Partitions  int
	RateLimitMs int
	MaxRetries  int

	CSVOutputPath string
	ChromeBin     string
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "none")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "cardprice"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "cardprice"),
		PostgresDB:       getEnv("POSTGRES_DB", "card_prices"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath: getEnv("SQLITE_PATH", "./cardprice.db"),

		VocabularyPath:        getEnv("VOCABULARY_PATH", ""),
		VocabularyOverlayPath: getEnv("VOCABULARY_OVERLAY_PATH", ""),

		CorrelationWindow: getEnvInt("CORRELATION_WINDOW", 400),
		MinCardYear:       getEnvInt("MIN_CARD_YEAR", 1869),
		MaxCardYear:       getEnvInt("MAX_CARD_YEAR", 2030),
		AllowMissingYear:  getEnvBool("ALLOW_MISSING_YEAR", false),

		Workers:     getEnvInt("WORKERS", 4),
		Partitions:  getEnvInt("PARTITIONS", 4),
		RateLimitMs: getEnvInt("RATE_LIMIT_MS", 1500),
		MaxRetries:  getEnvInt("MAX_RETRIES", 3),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
