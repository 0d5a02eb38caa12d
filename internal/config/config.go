package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Провайдеры ссылок на встречи
const (
	MeetProviderStub     = "stub"
	MeetProviderDisabled = "disabled"
)

type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string
	HTTPAddr      string

	// Location - часовой пояс, в котором вводится и показывается время занятий
	Location *time.Location

	MeetProvider  string
	WhiteboardURL string

	SendgridAPIKey string
	MailFrom       string

	// AutoCompleteInterval - как часто закрывать занятия, время которых давно прошло
	AutoCompleteInterval time.Duration
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из переданного источника переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		TelegramToken:  getenv("TELEGRAM_TOKEN"),
		DBDSN:          getenv("DB_DSN"),
		Environment:    getenv("ENV"),
		HTTPAddr:       getenv("HTTP_ADDR"),
		MeetProvider:   getenv("MEET_PROVIDER"),
		WhiteboardURL:  getenv("WHITEBOARD_URL"),
		SendgridAPIKey: getenv("SENDGRID_API_KEY"),
		MailFrom:       getenv("MAIL_FROM"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MeetProvider == "" {
		cfg.MeetProvider = MeetProviderStub
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = "team@olyaesl.com"
	}

	tz := getenv("TIMEZONE")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	cfg.AutoCompleteInterval = 15 * time.Minute
	if raw := getenv("AUTO_COMPLETE_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("AUTO_COMPLETE_INTERVAL must be a positive duration, got %q", raw)
		}
		cfg.AutoCompleteInterval = d
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}

	switch cfg.MeetProvider {
	case MeetProviderStub, MeetProviderDisabled:
	default:
		return nil, fmt.Errorf("unknown MEET_PROVIDER %q", cfg.MeetProvider)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
