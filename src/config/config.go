package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// External balance provider
	ProviderAPIKey          string
	ProviderBalanceURLs     []string
	ProviderSubscriptionURL string
	ProviderTimeout         time.Duration

	// Alerting
	EmailServiceProvider string

	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	MailgunDomain        string
	MailgunPrivateAPIKey string

	SenderEmail    string
	SenderName     string
	AlertRecipient string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	providerAPIKey := getEnv("PROVIDER_API_KEY", "")
	if providerAPIKey == "" {
		log.Println("WARNING: PROVIDER_API_KEY is not set. Balance syncs will report ConfigurationMissing until it is configured.")
	}

	// The provider has moved its balances endpoint between versions; the sync
	// tries each URL in order until one answers.
	balanceURLsStr := getEnv("PROVIDER_BALANCE_URLS",
		"https://api.pst.net/integration/members/accounts,https://api.pst.net/account/get-all-accounts")
	balanceURLs := []string{}
	for _, u := range strings.Split(balanceURLsStr, ",") {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			balanceURLs = append(balanceURLs, trimmed)
		}
	}
	if len(balanceURLs) == 0 {
		log.Println("WARNING: PROVIDER_BALANCE_URLS resolved to an empty list.")
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./blackledger.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		ProviderAPIKey:          providerAPIKey,
		ProviderBalanceURLs:     balanceURLs,
		ProviderSubscriptionURL: getEnv("PROVIDER_SUBSCRIPTION_URL", "https://api.pst.net/api/v1/subscriptions/info"),
		ProviderTimeout:         getEnvAsDuration("PROVIDER_TIMEOUT", 20*time.Second),

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),

		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),

		SenderEmail:    getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:     getEnv("SENDER_NAME", "Blackledger Sync"),
		AlertRecipient: getEnv("ALERT_RECIPIENT", ""),
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_PRIVATE_API_KEY is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, BalanceURLs=%d, EmailProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, len(Cfg.ProviderBalanceURLs), Cfg.EmailServiceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
