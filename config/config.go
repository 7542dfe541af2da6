package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	// Postgres. Leaving DBHost empty runs the service on the in-memory
	// stores (useful for local development and tests).
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	// Kafka (comma-separated brokers; empty disables publishing)
	KafkaBrokers string
	KafkaTopic   string

	// Exchange rates
	RateFeedURL     string
	RateRefreshCron string

	// Crypto webhook
	WebhookSecret     string
	ConfirmationsBTC  int
	ConfirmationsETH  int
	ConfirmationsUSDT int

	// Dispatch rejects a second pending payment for the same user+course
	// within this many minutes.
	DuplicateWindowMinutes int
}

var AppConfig Config

func LoadConfig() {
	// Try loading .env from different locations
	envLocations := []string{
		".env",
		"config/.env",
		"../config/.env",
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = Config{
		ServerPort: getEnvWithDefault("PORT", "8080"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: getEnvWithDefault("DB_PASSWORD", "postgres"),
		DBName:     getEnvWithDefault("DB_NAME", "intellicourse"),

		SMTPHost:  getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getEnvWithDefault("SMTP_PORT", "587"),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		EmailFrom: os.Getenv("EMAIL_FROM"),

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getEnvWithDefault("KAFKA_TOPIC", "payments.events"),

		RateFeedURL:     getEnvWithDefault("RATE_FEED_URL", "https://api.exchangerate.host/latest?base=ZAR"),
		RateRefreshCron: getEnvWithDefault("RATE_REFRESH_CRON", "0 */10 * * * *"),

		WebhookSecret:     os.Getenv("CRYPTO_WEBHOOK_SECRET"),
		ConfirmationsBTC:  getEnvIntWithDefault("CONFIRMATIONS_BTC", 2),
		ConfirmationsETH:  getEnvIntWithDefault("CONFIRMATIONS_ETH", 1),
		ConfirmationsUSDT: getEnvIntWithDefault("CONFIRMATIONS_USDT", 1),

		DuplicateWindowMinutes: getEnvIntWithDefault("DUPLICATE_WINDOW_MINUTES", 15),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// RequiredConfirmations returns the confirmation threshold for a crypto
// ticker, defaulting to 1 for anything unrecognized.
func (c Config) RequiredConfirmations(currency string) int {
	switch currency {
	case "BTC":
		return c.ConfirmationsBTC
	case "ETH":
		return c.ConfirmationsETH
	case "USDT":
		return c.ConfirmationsUSDT
	}
	return 1
}

func GetDBConnString() string {
	return "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=disable"
}
