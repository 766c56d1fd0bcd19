package config

import (
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort        string
	DatabaseURL     string
	JWTSecret       string
	TokenExpiration time.Duration
	EncryptionKey   []byte // Raw key bytes (32 for AES-256), used for library file content at rest

	// External collaborators
	GeminiAPIKey string
	GroqAPIKey   string
	LLMProvider  string // "gemini" or "groq"
	SerperAPIKey string

	// Admin / plan limits
	AdminEmail       string
	FreeMessageLimit int // messages per day for non-premium users
	FreeSearchLimit  int // web searches per day for non-premium users

	// Mail (verification emails)
	MailHost    string
	MailPort    int
	MailUser    string
	MailPass    string
	MailSender  string
	PublicURL   string // base URL used to build confirmation links
	MailEnabled bool
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	port := getEnv("HTTP_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "default-super-secret-key") // CHANGE THIS IN PRODUCTION!
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set.")
	}

	tokenExpHours := getEnvInt("JWT_EXPIRATION_HOURS", 24)

	// Load and decode the Encryption Key (MUST be 64 hex characters for 32 bytes)
	encryptionKeyHex := getEnv("ENCRYPTION_KEY", "")
	if encryptionKeyHex == "" {
		log.Fatal("FATAL: ENCRYPTION_KEY environment variable is not set.")
	}
	encryptionKeyBytes, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		log.Fatalf("FATAL: Failed to decode ENCRYPTION_KEY from hex: %v", err)
	}
	if len(encryptionKeyBytes) != 32 {
		log.Fatalf("FATAL: ENCRYPTION_KEY must be 32 bytes (64 hex characters) long, got %d bytes", len(encryptionKeyBytes))
	}

	mailUser := getEnv("MAIL_USERNAME", "")
	mailPass := getEnv("MAIL_PASSWORD", "")

	cfg := &Config{
		HTTPPort:        port,
		DatabaseURL:     dbURL,
		JWTSecret:       jwtSecret,
		TokenExpiration: time.Hour * time.Duration(tokenExpHours),
		EncryptionKey:   encryptionKeyBytes,

		GeminiAPIKey: getEnv("GOOGLE_API_KEY", ""),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		LLMProvider:  getEnv("LLM_PROVIDER", "gemini"),
		SerperAPIKey: getEnv("SERPER_API_KEY", ""),

		AdminEmail:       getEnv("ADMIN_EMAIL", ""),
		FreeMessageLimit: getEnvInt("FREE_MESSAGE_LIMIT", 15),
		FreeSearchLimit:  getEnvInt("FREE_SEARCH_LIMIT", 3),

		MailHost:    getEnv("MAIL_SERVER", "smtp.gmail.com"),
		MailPort:    getEnvInt("MAIL_PORT", 587),
		MailUser:    mailUser,
		MailPass:    mailPass,
		MailSender:  getEnv("MAIL_DEFAULT_SENDER", mailUser),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:"+port),
		MailEnabled: mailUser != "" && mailPass != "",
	}

	log.Printf("Loaded config: Port=%s, DB_URL=***, TokenExp=%s, Provider=%s, MailEnabled=%t",
		cfg.HTTPPort, cfg.TokenExpiration, cfg.LLMProvider, cfg.MailEnabled)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable or returns a default value.
func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return val
}
