package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"MarketDash/internal/analysis"
	"MarketDash/internal/model"
)

// Provider names accepted in the sources section.
const (
	ProviderMock          = "mock"
	ProviderCoinGecko     = "coingecko"
	ProviderYahoo         = "yahoo"
	ProviderCryptoCompare = "cryptocompare"
	ProviderSynthetic     = "synthetic"
	ProviderGemini        = "gemini"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "MARKETDASH"

// DefaultRetry is used when polling.retry is not set. An explicit 0 disables retries.
const DefaultRetry = 3

// Config holds all application configuration.
//
// Values come from the YAML file first; environment variables (and a .env file,
// if present) override them. Env names are EnvPrefix, the section and the field
// joined with underscores, e.g. MARKETDASH_POLLING_MARKET_INTERVAL or
// MARKETDASH_TELEGRAM_BOT_TOKEN. HTTPS_PROXY is also read unprefixed.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sources  SourcesConfig  `yaml:"sources"`
	Polling  PollingConfig  `yaml:"polling"`
	Prefs    PrefsConfig    `yaml:"prefs"`
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Proxy    string         `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins" split_words:"true"`
}

type SourcesConfig struct {
	Crypto          string        `yaml:"crypto"`
	Stocks          string        `yaml:"stocks"`
	News            string        `yaml:"news"`
	Analysis        string        `yaml:"analysis"`
	CoinGeckoKey    string        `yaml:"coingecko_api_key" split_words:"true"`
	NewsKey         string        `yaml:"news_api_key" split_words:"true"`
	GeminiKey       string        `yaml:"gemini_api_key" split_words:"true"`
	GeminiModel     string        `yaml:"gemini_model" split_words:"true"`
	StockTickers    []string      `yaml:"stock_tickers" split_words:"true"`
	CryptoPerPage   int           `yaml:"crypto_per_page" split_words:"true"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout" split_words:"true"`
}

type PollingConfig struct {
	MarketInterval  time.Duration `yaml:"market_interval" split_words:"true"`
	HistoryInterval time.Duration `yaml:"history_interval" split_words:"true"`
	NewsInterval    time.Duration `yaml:"news_interval" split_words:"true"`
	Retry           *int          `yaml:"retry"` // nil means DefaultRetry
	RetryBase       time.Duration `yaml:"retry_base" split_words:"true"`
	RetryMax        time.Duration `yaml:"retry_max" split_words:"true"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl" split_words:"true"`
}

// Retries returns the configured extra attempts per fetch.
func (p PollingConfig) Retries() int {
	if p.Retry == nil {
		return DefaultRetry
	}
	return *p.Retry
}

type PrefsConfig struct {
	Currency  string   `yaml:"currency"`
	Favorites []string `yaml:"favorites"`
	StateFile string   `yaml:"state_file" split_words:"true"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" split_words:"true"`
	ChatID   string `yaml:"chat_id" split_words:"true"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool { return t.BotToken != "" && t.ChatID != "" }

type DatabaseConfig struct {
	Path string `yaml:"sqlite_path"` // SQLite file, empty disables recording
}

type ScheduleConfig struct {
	DigestCron string `yaml:"digest_cron" split_words:"true"`
}

// Load reads config from a YAML file, then applies .env and environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Sources.Crypto == "" {
		c.Sources.Crypto = ProviderMock
	}
	if c.Sources.Stocks == "" {
		c.Sources.Stocks = ProviderMock
	}
	if c.Sources.News == "" {
		c.Sources.News = ProviderMock
	}
	if c.Sources.Analysis == "" {
		c.Sources.Analysis = ProviderSynthetic
	}
	if c.Sources.GeminiModel == "" {
		c.Sources.GeminiModel = analysis.DefaultGeminiModel
	}
	if len(c.Sources.StockTickers) == 0 {
		c.Sources.StockTickers = []string{"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS", "ICICIBANK.NS"}
	}
	if c.Sources.AnalysisTimeout == 0 {
		c.Sources.AnalysisTimeout = time.Minute
	}
	if c.Sources.CryptoPerPage == 0 {
		c.Sources.CryptoPerPage = 50
	}

	p := &c.Polling
	if p.MarketInterval == 0 {
		p.MarketInterval = 60 * time.Second
	}
	if p.HistoryInterval == 0 {
		p.HistoryInterval = 5 * time.Minute
	}
	if p.NewsInterval == 0 {
		p.NewsInterval = 5 * time.Minute
	}
	if p.RetryBase == 0 {
		p.RetryBase = time.Second
	}
	if p.RetryMax == 0 {
		p.RetryMax = 30 * time.Second
	}
	if p.Timeout == 0 {
		p.Timeout = 15 * time.Second
	}
	if p.CacheTTL == 0 {
		p.CacheTTL = 10 * time.Minute
	}

	if c.Prefs.Currency == "" {
		c.Prefs.Currency = string(model.DefaultCurrency)
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 0 9 * * *"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := model.ParseCurrency(c.Prefs.Currency); err != nil {
		return fmt.Errorf("prefs.currency: %w", err)
	}
	if err := oneOf("sources.crypto", c.Sources.Crypto, ProviderMock, ProviderCoinGecko); err != nil {
		return err
	}
	if err := oneOf("sources.stocks", c.Sources.Stocks, ProviderMock, ProviderYahoo); err != nil {
		return err
	}
	if err := oneOf("sources.news", c.Sources.News, ProviderMock, ProviderCryptoCompare); err != nil {
		return err
	}
	if err := oneOf("sources.analysis", c.Sources.Analysis, ProviderSynthetic, ProviderGemini); err != nil {
		return err
	}
	if c.Sources.Analysis == ProviderGemini && c.Sources.GeminiKey == "" {
		return fmt.Errorf("sources.gemini_api_key is required for the gemini analyst")
	}
	if c.Polling.Retries() < 0 {
		return fmt.Errorf("polling.retry must not be negative")
	}
	if c.Polling.RetryMax < c.Polling.RetryBase {
		return fmt.Errorf("polling.retry_max must be at least polling.retry_base")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.DigestCron); err != nil {
		return fmt.Errorf("schedule.digest_cron: %w", err)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}
