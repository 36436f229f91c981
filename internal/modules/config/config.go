package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	redisURLENV       = "REDIS_URL"
)

// Config ...
type Config struct {
	LogLevel string `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`

	Telegram struct {
		Token         string `yaml:"token"`
		DefaultChatID int64  `yaml:"default_chat_id"`
		SummaryChatID int64  `yaml:"summary_chat_id"`
		// группы по стратегиям: "RSI": -100123...
		StrategyChats map[string]int64 `yaml:"strategy_chats"`
		Disclaimer    bool             `yaml:"disclaimer" default:"true"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Service struct {
		Host       string `yaml:"host" default:"0.0.0.0"`
		PublicPort int    `yaml:"public_port" default:"8000" validate:"gt=0,lt=65536"`
		AdminPort  int    `yaml:"admin_port" default:"8080" validate:"gt=0,lt=65536"`
	} `yaml:"service"`

	Tracing struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port" default:"6831"`
	} `yaml:"tracing"`

	Engine Engine `yaml:"engine"`

	StrategyParams models.StrategyParams `yaml:"strategy_params"`

	Dedup struct {
		Backend   string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		Retention time.Duration `yaml:"retention" default:"336h" validate:"gt=0"`
		RedisURL  string        `yaml:"redis_url"`
		KeyPrefix string        `yaml:"key_prefix" default:"signal_bot:dedup"`
	} `yaml:"dedup"`

	Market struct {
		BaseURLs []string      `yaml:"base_urls" default:"[\"https://api.binance.com\",\"https://api1.binance.com\",\"https://api2.binance.com\",\"https://api3.binance.com\",\"https://data-api.binance.vision\"]" validate:"min=1,dive,url"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"market"`

	Bubbles struct {
		URLs     []string      `yaml:"urls" default:"[\"https://cryptobubbles.net/backend/data/bubbles1000.usd.json\"]" validate:"min=1,dive,url"`
		HostIPs  []string      `yaml:"host_ips" default:"[\"104.20.25.124\",\"172.66.167.210\"]"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"bubbles"`

	Settings struct {
		Dir string `yaml:"dir" default:"data"`
	} `yaml:"settings"`

	WebSocket struct {
		Heartbeat time.Duration `yaml:"heartbeat" default:"30s"`
	} `yaml:"websocket"`
}

// Engine - параметры планировщика сигналов.
type Engine struct {
	Interval     time.Duration `yaml:"interval" default:"60s" validate:"gt=0"`
	ErrorDelay   time.Duration `yaml:"error_delay" default:"10s" validate:"gt=0"`
	SummaryEvery time.Duration `yaml:"summary_every" default:"15m"`
	StartOnBoot  bool          `yaml:"start_on_boot" default:"true"`

	Symbols    []string `yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\",\"SOLUSDT\",\"BNBUSDT\",\"XRPUSDT\"]" validate:"min=1"`
	Timeframes []string `yaml:"timeframes"`
	Strategies []string `yaml:"strategies" default:"[\"GCM\",\"RSI\",\"MACD\",\"RSI_EMA50\",\"SCALPING\",\"SWING_TRADE\",\"DAY_TRADE\"]" validate:"min=1"`
	// переопределения поверх models.DefaultStrategyTimeframes
	StrategyTimeframes map[string][]string `yaml:"strategy_timeframes"`

	UseRanking    bool    `yaml:"use_ranking"`
	RankingLimit  int     `yaml:"ranking_limit" default:"30" validate:"gte=1"`
	ExcludeStable bool    `yaml:"exclude_stable" default:"true"`
	MinVolume     float64 `yaml:"min_volume" default:"1000000"`

	CandleLimit  int           `yaml:"candle_limit" default:"200" validate:"gte=50,lte=1000"`
	Concurrency  int           `yaml:"concurrency" default:"5" validate:"gte=1"`
	RequestDelay time.Duration `yaml:"request_delay" default:"100ms"`
}

var validate = validator.New()

func NewConfig() (*Config, error) {
	// .env опционален
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	return Load("configs/" + configFileName)
}

// Load читает yaml поверх default-тегов, применяет env и проверяет результат.
func Load(path string) (*Config, error) {
	var config Config
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "config defaults")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config file %s", path)
	}
	defer func() {
		_ = file.Close()
	}()

	if err = yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}

	config.applyEnv()

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
	}
	if url := os.Getenv(redisURLENV); url != "" {
		c.Dedup.RedisURL = url
	}

	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)
	c.Telegram.DefaultChatID = int64FromEnv("TELEGRAM_CHAT_ID", c.Telegram.DefaultChatID)
	c.Telegram.SummaryChatID = int64FromEnv("TELEGRAM_SUMMARY_CHAT_ID", c.Telegram.SummaryChatID)
	c.Tracing.Host = getenvDefault("JAEGER_AGENT_HOST", c.Tracing.Host)
	c.Tracing.Port = intFromEnv("JAEGER_AGENT_PORT", c.Tracing.Port)

	c.Engine.Interval = durationFromEnv("WORKER_INTERVAL", c.Engine.Interval.String())
	c.Engine.UseRanking = boolFromEnv("USE_RANKING", c.Engine.UseRanking)
	c.Engine.RankingLimit = intFromEnv("RANKING_LIMIT", c.Engine.RankingLimit)
	c.Engine.MinVolume = floatFromEnv("RANKING_MIN_VOLUME", c.Engine.MinVolume)
	c.Engine.StartOnBoot = boolFromEnv("ENGINE_START_ON_BOOT", c.Engine.StartOnBoot)
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Engine.Symbols = splitList(v)
	}
	if v := os.Getenv("STRATEGIES"); v != "" {
		c.Engine.Strategies = splitList(v)
	}
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if _, err := c.ActiveStrategies(); err != nil {
		return err
	}
	for _, tf := range c.Engine.Timeframes {
		if !helper.ValidTF(tf) {
			return errors.Wrapf(helper.ErrInvalidTimeframe, "engine.timeframes: %q", tf)
		}
	}
	if _, err := c.StrategyTimeframes(); err != nil {
		return err
	}
	if c.Dedup.Backend == "redis" && c.Dedup.RedisURL == "" {
		return errors.New("invalid config: dedup.backend=redis requires dedup.redis_url")
	}
	return nil
}

// ActiveStrategies - engine.strategies в виде StrategyKind.
func (c *Config) ActiveStrategies() ([]models.StrategyKind, error) {
	out := make([]models.StrategyKind, 0, len(c.Engine.Strategies))
	for _, raw := range c.Engine.Strategies {
		k, ok := models.ParseStrategyKind(strings.ToUpper(strings.TrimSpace(raw)))
		if !ok {
			return nil, errors.Errorf("invalid config: unknown strategy %q", raw)
		}
		out = append(out, k)
	}
	return out, nil
}

// StrategyTimeframes - дефолтные таймфреймы стратегий с переопределениями из конфига.
func (c *Config) StrategyTimeframes() (map[models.StrategyKind][]string, error) {
	out := models.DefaultStrategyTimeframes()
	for raw, tfs := range c.Engine.StrategyTimeframes {
		k, ok := models.ParseStrategyKind(strings.ToUpper(raw))
		if !ok {
			return nil, errors.Errorf("invalid config: strategy_timeframes: unknown strategy %q", raw)
		}
		norm := make([]string, 0, len(tfs))
		for _, tf := range tfs {
			if !helper.ValidTF(tf) {
				return nil, errors.Wrapf(helper.ErrInvalidTimeframe, "strategy_timeframes.%s: %q", raw, tf)
			}
			norm = append(norm, helper.NormTF(tf))
		}
		out[k] = helper.SortTimeframes(norm)
	}
	return out, nil
}

func (c *Config) PublicAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.PublicPort)
}

func (c *Config) AdminAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.AdminPort)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func int64FromEnv(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
