package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	JWTSecret         string
	APIKeyHash        string // bcrypt hash of the ingest API key
	AccessTokenExpiry time.Duration

	// Linking tolerances for the roll-up engine.
	MatchAbsTolerance float64
	MatchPctTolerance float64

	MaxIngestBytes int64

	// Mismatch alerting.
	AlertProvider        string // "mailgun" or "log"
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string
	AlertRecipient       string
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found. Relying on OS environment variables and defaults.")
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Println("WARNING: JWT_SECRET not set. Token endpoints will be unusable until it is configured.")
	}

	accessTokenExpiryStr := getEnv("ACCESS_TOKEN_EXPIRY", "60m")
	accessTokenExpiry, err := time.ParseDuration(accessTokenExpiryStr)
	if err != nil {
		log.Printf("WARNING: Invalid ACCESS_TOKEN_EXPIRY format '%s'. Using default 60m. Error: %v", accessTokenExpiryStr, err)
		accessTokenExpiry = 60 * time.Minute
	}

	maxIngestBytesStr := getEnv("MAX_INGEST_BYTES", "10485760")
	maxIngestBytes, err := strconv.ParseInt(maxIngestBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_INGEST_BYTES format '%s'. Using default 10MB. Error: %v", maxIngestBytesStr, err)
		maxIngestBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./insiderfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:         jwtSecret,
		APIKeyHash:        getEnv("API_KEY_HASH", ""),
		AccessTokenExpiry: accessTokenExpiry,

		MatchAbsTolerance: getEnvFloat("MATCH_ABS_TOLERANCE", 5),
		MatchPctTolerance: getEnvFloat("MATCH_PCT_TOLERANCE", 0.005),

		MaxIngestBytes: maxIngestBytes,

		AlertProvider:        getEnv("ALERT_PROVIDER", "log"),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", ""),
		SenderName:           getEnv("SENDER_NAME", "Insiderfolio Alerts"),
		AlertRecipient:       getEnv("ALERT_RECIPIENT", ""),
	}

	log.Printf("Configuration loaded. Port: %s, LogLevel: %s, DB: %s", Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("WARNING: Invalid %s value '%s'. Using default %v. Error: %v", key, value, fallback, err)
		return fallback
	}
	return f
}
