package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	MongoURI      string
	MongoDB       string
	ListenAddr    string
	APIBaseURL    string
	APIToken      string
	AdminToken    string
	UserID        string
	TelegramToken string
	ChatID        int64

	RequestTimeout   time.Duration
	RolloverSchedule string
	ProbeSchedule    string
	SummarySchedule  string
	QueueDir         string
	Location         *time.Location
}

// Load loads configuration from environment variables. Values are checked
// per process by ValidateAPI and ValidateBot.
func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it.")
	}

	cfg := &Config{
		MongoURI:         os.Getenv("MONGODB_URI"),
		MongoDB:          os.Getenv("MONGODB_DB"),
		ListenAddr:       getenv("API_LISTEN_ADDR", ":8000"),
		APIBaseURL:       getenv("API_BASE_URL", "http://localhost:8000"),
		APIToken:         os.Getenv("API_TOKEN"),
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		UserID:           os.Getenv("DIETI_USER_ID"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		RolloverSchedule: getenv("ROLLOVER_SCHEDULE", "5 0 * * *"),
		ProbeSchedule:    getenv("PROBE_SCHEDULE", "@every 15s"),
		SummarySchedule:  getenv("SUMMARY_SCHEDULE", "0 21 * * *"),
		QueueDir:         getenv("QUEUE_DIR", "./data/queue"),
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		cfg.ChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	cfg.RequestTimeout, err = time.ParseDuration(getenv("REQUEST_TIMEOUT", "8s"))
	if err != nil || cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q", os.Getenv("REQUEST_TIMEOUT"))
	}

	cfg.Location, err = time.LoadLocation(getenv("TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return cfg, nil
}

// ValidateAPI checks the settings the HTTP service needs.
func (c *Config) ValidateAPI() error {
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI not set")
	}
	if c.MongoDB == "" {
		return errors.New("MONGODB_DB not set")
	}
	return nil
}

// ValidateBot checks the settings the Telegram session needs.
func (c *Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN not set")
	}
	if c.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID not set")
	}
	if c.APIToken == "" {
		return errors.New("API_TOKEN not set")
	}
	if c.UserID == "" {
		return errors.New("DIETI_USER_ID not set")
	}
	return nil
}

// IsAuthorizedChat reports whether updates from chatID may drive the session.
func (c *Config) IsAuthorizedChat(chatID int64) bool {
	return chatID == c.ChatID
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
