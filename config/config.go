package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	RedisURL       string
	SessionTTL     time.Duration
	CORSOrigins    []string
	LogLevel       string
	LogFormat      string
	LogFile        string
	SendGridAPIKey string
	MailFrom       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("port", "8000")
	v.SetDefault("database_url", "sqlite://todo.db")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("cors_origins", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("mail_from", "donotreply@todo.local")
}

// Load reads the environment into a Config. Outside production the .env file at
// envFile (or ./.env when empty) is loaded first; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		files := []string{}
		if envFile != "" {
			files = append(files, envFile)
		}
		if err := godotenv.Load(files...); err != nil {
			if envFile != "" {
				return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
			}
			log.Println("No .env file found, continuing with environment")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	ttl, err := time.ParseDuration(v.GetString("session_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", v.GetString("session_ttl"), err)
	}

	cfg := &Config{
		AppEnv:         v.GetString("app_env"),
		Port:           v.GetString("port"),
		DatabaseURL:    v.GetString("database_url"),
		RedisURL:       v.GetString("redis_url"),
		SessionTTL:     ttl,
		CORSOrigins:    splitList(v.GetString("cors_origins")),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		LogFormat:      strings.ToLower(v.GetString("log_format")),
		LogFile:        v.GetString("log_file"),
		SendGridAPIKey: v.GetString("sendgrid_api_key"),
		MailFrom:       v.GetString("mail_from"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
