package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rss_aggregator/internal/i18n"

	"github.com/BurntSushi/toml"
)

// Config хранит настройки агрегатора: стартовые ленты, интервал опроса,
// прокси, параметры HTTP-клиента и внешних хранилищ.
type Config struct {
	RSSFeeds     []string `json:"rss_feeds" toml:"rss_feeds"`
	PollInterval int      `json:"poll_interval" toml:"poll_interval"` // секунды
	ProxyURL     string   `json:"proxy_url" toml:"proxy_url"`
	HTTPTimeout  int      `json:"http_timeout" toml:"http_timeout"` // секунды
	MaxRetries   int      `json:"max_retries" toml:"max_retries"`
	Workers      int      `json:"workers" toml:"workers"`
	RateLimit    float64  `json:"rate_limit" toml:"rate_limit"` // запросов в секунду, 0 - без ограничения
	Language     string   `json:"language" toml:"language"`
	ListenAddr   string   `json:"listen_addr" toml:"listen_addr"`
	DatabaseURL  string   `json:"database_url" toml:"database_url"`
	AMQPURL      string   `json:"amqp_url" toml:"amqp_url"`
	AMQPQueue    string   `json:"amqp_queue" toml:"amqp_queue"`
	IDScheme     string   `json:"id_scheme" toml:"id_scheme"`
	NodeID       int64    `json:"node_id" toml:"node_id"`
	LogLevel     string   `json:"log_level" toml:"log_level"`
	LogFormat    string   `json:"log_format" toml:"log_format"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		PollInterval: 5,
		ProxyURL:     "https://allorigins.hexlet.app",
		HTTPTimeout:  10,
		MaxRetries:   2,
		Language:     "ru",
		ListenAddr:   ":8080",
		AMQPQueue:    "new_posts",
		IDScheme:     "uuid",
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// Interval возвращает интервал опроса лент.
func (cfg *Config) Interval() time.Duration {
	return time.Duration(cfg.PollInterval) * time.Second
}

// Timeout возвращает таймаут одного HTTP-запроса.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.HTTPTimeout) * time.Second
}

// Validate проверяет интервал опроса, адрес прокси, язык, схему id и адреса RSSFeeds.
func (cfg *Config) Validate() error {
	if cfg.PollInterval < 1 {
		return errors.New("poll interval must be ≥ 1 second")
	}
	if cfg.HTTPTimeout < 1 {
		return errors.New("http timeout must be ≥ 1 second")
	}
	if cfg.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	if cfg.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	if cfg.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if _, err := url.ParseRequestURI(cfg.ProxyURL); err != nil {
		return fmt.Errorf("invalid proxy URL: %s", cfg.ProxyURL)
	}
	if !i18n.Supported(cfg.Language) {
		return fmt.Errorf("unsupported language: %s", cfg.Language)
	}
	switch cfg.IDScheme {
	case "uuid", "snowflake", "sequence":
	default:
		return fmt.Errorf("unknown id scheme: %s", cfg.IDScheme)
	}
	for _, u := range cfg.RSSFeeds {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("invalid RSS URL: %s", u)
		}
	}
	return nil
}

// LoadConfig читает файл по пути path поверх значений по умолчанию.
// Формат выбирается по расширению: .toml - TOML, остальные - JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}
