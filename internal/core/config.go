package core

import (
	"time"
)

type Config struct {
	Telegram TelegramConfig
	Catalog  CatalogConfig
	LLM      LLMConfig
	Store    StoreConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type TelegramConfig struct {
	BotToken      string
	AllowedUserID int64
}

type CatalogConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	TokenPath      string
	LyricsBaseURL  string
	RequestsPerSec float64
}

type LLMConfig struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	SearchRounds int
}

type StoreConfig struct {
	Path       string
	RecentDays int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	DefaultTargetSongs int
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			AllowedUserID: 0,
		},
		Catalog: CatalogConfig{
			RedirectURL:    "http://localhost:8080/callback",
			TokenPath:      "./catalog_token.json",
			LyricsBaseURL:  "https://api.lyrics.ovh/v1",
			RequestsPerSec: 5,
		},
		LLM: LLMConfig{
			Provider:     "none",
			Model:        "",
			SearchRounds: 10,
		},
		Store: StoreConfig{
			Path:       "./tunesmith.db",
			RecentDays: 30,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			DefaultTargetSongs: 15,
		},
	}
}
