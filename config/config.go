package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AllSources lists every source adapter the job knows about, in run order.
var AllSources = []string{"agmarknet", "mandiprices", "commoditymarketlive", "commodityonline"}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	RetentionDays    int

	CatalogFile         string
	DistrictsFile       string
	SimilarityThreshold float64
	PriceCeiling        float64

	Sources        []string
	SourceTimeout  time.Duration
	PageTimeout    time.Duration
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	FixtureDir     string

	OutputDir       string
	CSVOutputPath   string
	MetricsTextfile string
	KafkaBrokers    []string
	KafkaTopic      string
	HTTPAddr        string

	ChromeBin string
	Headless  bool
	LogLevel  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "prices"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "prices123"),
		PostgresDB:       getEnv("POSTGRES_DB", "potato_prices"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		RetentionDays:    getEnvInt("RETENTION_DAYS", 30),

		CatalogFile:         getEnv("STATE_CATALOG_FILE", ""),
		DistrictsFile:       getEnv("DISTRICTS_FILE", ""),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.8),
		PriceCeiling:        getEnvFloat("PRICE_CEILING", 5500),

		Sources:        getEnvList("SOURCES", AllSources),
		SourceTimeout:  getEnvDuration("SOURCE_TIMEOUT", 5*time.Minute),
		PageTimeout:    getEnvDuration("PAGE_TIMEOUT", 30*time.Second),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		FixtureDir:     getEnv("FIXTURE_DIR", ""),

		OutputDir:       getEnv("OUTPUT_DIR", "./docs"),
		CSVOutputPath:   getEnv("CSV_OUTPUT_PATH", "./docs/combined_prices.csv"),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		KafkaBrokers:    getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "potato-prices"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),

		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
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

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
