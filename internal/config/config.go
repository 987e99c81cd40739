// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Market    MarketConfig    `mapstructure:"market"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Router    RouterConfig    `mapstructure:"router"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// MarketConfig describes the traded pair and the perp market it maps to.
type MarketConfig struct {
	PerpMarket    string `mapstructure:"perp_market"`
	Symbol        string `mapstructure:"symbol"`
	BaseMint      string `mapstructure:"base_mint"`
	QuoteMint     string `mapstructure:"quote_mint"`
	BaseDecimals  int32  `mapstructure:"base_decimals"`
	QuoteDecimals int32  `mapstructure:"quote_decimals"`
	BaseLotSize   int64  `mapstructure:"base_lot_size"`
	QuoteLotSize  int64  `mapstructure:"quote_lot_size"`
}

// FeedConfig holds order book stream settings.
type FeedConfig struct {
	WebSocketURL     string        `mapstructure:"websocket_url"`
	SubscribeTimeout time.Duration `mapstructure:"subscribe_timeout"`
	StaleTimeout     time.Duration `mapstructure:"stale_timeout"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	Reconnect        bool          `mapstructure:"reconnect"`
	MaxReconnects    int           `mapstructure:"max_reconnects"`
}

// RouterConfig holds swap router settings.
type RouterConfig struct {
	URL               string        `mapstructure:"url"`
	Mode              string        `mapstructure:"mode"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Timeout           time.Duration `mapstructure:"timeout"`
	SlippageBps       int           `mapstructure:"slippage_bps"`
	QuoteAmountNative uint64        `mapstructure:"quote_amount_native"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Wallet            string        `mapstructure:"wallet"`
}

// ArbitrageConfig holds evaluation and trading parameters.
//
// Amounts are kept as decimal strings so they reach the lot conversions
// exactly as written. Numeric YAML values are decoded into their shortest
// decimal form.
type ArbitrageConfig struct {
	Threshold          string        `mapstructure:"threshold"`
	BaseQty            string        `mapstructure:"base_qty"`
	AllowanceThreshold string        `mapstructure:"allowance_threshold"`
	MaxQuoteAmount     string        `mapstructure:"max_quote_amount"`
	ScanInterval       time.Duration `mapstructure:"scan_interval"`
	Cooldown           time.Duration `mapstructure:"cooldown"`
	StartupDelay       time.Duration `mapstructure:"startup_delay"`
	DryRun             bool          `mapstructure:"dry_run"`
	JournalPath        string        `mapstructure:"journal_path"`
	SummarySchedule    string        `mapstructure:"summary_schedule"`
	TUIMode            bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// ThresholdDecimal returns the spread threshold as decimal.Decimal.
func (c *ArbitrageConfig) ThresholdDecimal() decimal.Decimal {
	return parseDecimal(c.Threshold)
}

// BaseQtyDecimal returns the per-trade base quantity as decimal.Decimal.
func (c *ArbitrageConfig) BaseQtyDecimal() decimal.Decimal {
	return parseDecimal(c.BaseQty)
}

// AllowanceThresholdDecimal returns the absolute position limit as decimal.Decimal.
func (c *ArbitrageConfig) AllowanceThresholdDecimal() decimal.Decimal {
	return parseDecimal(c.AllowanceThreshold)
}

// MaxQuoteAmountDecimal returns the perp order quote cap as decimal.Decimal.
func (c *ArbitrageConfig) MaxQuoteAmountDecimal() decimal.Decimal {
	return parseDecimal(c.MaxQuoteAmount)
}

// parseDecimal returns zero for input Validate would have rejected.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// validate checks that every amount parses and is in range.
func (c *ArbitrageConfig) validate() error {
	amounts := []struct {
		key      string
		value    string
		positive bool
	}{
		{"arbitrage.threshold", c.Threshold, false},
		{"arbitrage.base_qty", c.BaseQty, true},
		{"arbitrage.allowance_threshold", c.AllowanceThreshold, false},
		{"arbitrage.max_quote_amount", c.MaxQuoteAmount, true},
	}
	for _, a := range amounts {
		d, err := decimal.NewFromString(strings.TrimSpace(a.value))
		if err != nil {
			return fmt.Errorf("%s: invalid decimal %q: %w", a.key, a.value, err)
		}
		if a.positive && !d.IsPositive() {
			return fmt.Errorf("%s must be positive", a.key)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", a.key)
		}
	}
	return nil
}

// ExecutionConfig selects and configures the trade executor.
type ExecutionConfig struct {
	Mode        string        `mapstructure:"mode"` // paper | gateway
	GatewayURL  string        `mapstructure:"gateway_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SlippageBps int           `mapstructure:"slippage_bps"`
	// PaperFillLatency simulates swap confirmation time in paper mode.
	PaperFillLatency time.Duration `mapstructure:"paper_fill_latency"`
}

// RedisConfig holds the optional snapshot mirror connection.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NotifyConfig holds operator alert settings.
type NotifyConfig struct {
	TelegramEnabled bool   `mapstructure:"telegram_enabled"`
	TelegramToken   string `mapstructure:"telegram_token"`
	TelegramChatID  string `mapstructure:"telegram_chat_id"`
	TelegramAPIURL  string `mapstructure:"telegram_api_url"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Market
	v.BindEnv("market.perp_market", "ARB_PERP_MARKET", "PERP_MARKET")
	v.BindEnv("market.base_mint", "ARB_BASE_MINT", "BASE_MINT")
	v.BindEnv("market.quote_mint", "ARB_QUOTE_MINT", "QUOTE_MINT")
	v.BindEnv("market.base_decimals", "ARB_BASE_DECIMALS")

	// Feed
	v.BindEnv("feed.websocket_url", "ARB_FEED_WS_URL", "ORDERBOOK_WS_URL")

	// Router
	v.BindEnv("router.url", "ARB_ROUTER_URL", "ROUTER_URL")
	v.BindEnv("router.wallet", "ARB_WALLET", "WALLET_ADDRESS")

	// Arbitrage
	v.BindEnv("arbitrage.threshold", "ARB_THRESHOLD")
	v.BindEnv("arbitrage.base_qty", "ARB_BASE_QTY")
	v.BindEnv("arbitrage.allowance_threshold", "ARB_ALLOWANCE_THRESHOLD")
	v.BindEnv("arbitrage.dry_run", "ARB_DRY_RUN", "DRY_RUN")

	// Execution
	v.BindEnv("execution.mode", "ARB_EXECUTION_MODE")
	v.BindEnv("execution.gateway_url", "ARB_GATEWAY_URL", "EXECUTION_GATEWAY_URL")
	v.BindEnv("execution.api_key", "ARB_GATEWAY_API_KEY", "EXECUTION_GATEWAY_API_KEY")

	// Redis
	v.BindEnv("redis.enabled", "ARB_REDIS_ENABLED")
	v.BindEnv("redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Notify
	v.BindEnv("notify.telegram_enabled", "ARB_TELEGRAM_ENABLED")
	v.BindEnv("notify.telegram_token", "ARB_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notify.telegram_chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.trace_provider", "ARB_OTEL_PROVIDER")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "perp-arbitrage-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// SOL-PERP against the SOL/USDC swap route
	v.SetDefault("market.perp_market", "ESdnpnNLgTkBCZRuTJkZLi5wKEZ2z47SG3PJrhundSQ2")
	v.SetDefault("market.symbol", "SOL-PERP")
	v.SetDefault("market.base_mint", "So11111111111111111111111111111111111111112")
	v.SetDefault("market.quote_mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	v.SetDefault("market.base_decimals", 9)
	v.SetDefault("market.quote_decimals", 6)
	v.SetDefault("market.base_lot_size", 10_000_000)
	v.SetDefault("market.quote_lot_size", 10)

	// Feed defaults
	v.SetDefault("feed.websocket_url", "wss://api.mngo.cloud/orderbook/v1/")
	v.SetDefault("feed.subscribe_timeout", "10s")
	v.SetDefault("feed.stale_timeout", "5s")
	v.SetDefault("feed.max_message_size", 1<<20)
	v.SetDefault("feed.ping_interval", "30s")
	v.SetDefault("feed.reconnect", true)
	v.SetDefault("feed.max_reconnects", 10)

	// Router defaults
	v.SetDefault("router.url", "https://api.mngo.cloud/router/v1")
	v.SetDefault("router.mode", "ExactIn")
	v.SetDefault("router.poll_interval", "2s")
	v.SetDefault("router.timeout", "5s")
	v.SetDefault("router.slippage_bps", 5)
	v.SetDefault("router.quote_amount_native", 100_000)
	v.SetDefault("router.requests_per_minute", 120)

	// Arbitrage defaults
	v.SetDefault("arbitrage.threshold", "0.002")
	v.SetDefault("arbitrage.base_qty", "0.1")
	v.SetDefault("arbitrage.allowance_threshold", "1.1")
	v.SetDefault("arbitrage.max_quote_amount", "100")
	v.SetDefault("arbitrage.scan_interval", "500ms")
	v.SetDefault("arbitrage.cooldown", "5s")
	v.SetDefault("arbitrage.startup_delay", "2s")
	v.SetDefault("arbitrage.dry_run", true)
	v.SetDefault("arbitrage.journal_path", "trades.jsonl")
	v.SetDefault("arbitrage.summary_schedule", "@every 1m")

	// Execution defaults
	v.SetDefault("execution.mode", "paper")
	v.SetDefault("execution.timeout", "30s")
	v.SetDefault("execution.slippage_bps", 5)
	v.SetDefault("execution.paper_fill_latency", "0s")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.ttl", "1m")

	// Notify defaults
	v.SetDefault("notify.telegram_enabled", false)
	v.SetDefault("notify.telegram_api_url", "https://api.telegram.org")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "perp-arbitrage-bot")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Market.PerpMarket == "" {
		return fmt.Errorf("market.perp_market is required")
	}
	if c.Market.BaseMint == "" || c.Market.QuoteMint == "" {
		return fmt.Errorf("market.base_mint and market.quote_mint are required")
	}
	if c.Market.BaseDecimals <= 0 || c.Market.QuoteDecimals <= 0 {
		return fmt.Errorf("market decimals must be positive")
	}
	if c.Market.BaseLotSize <= 0 || c.Market.QuoteLotSize <= 0 {
		return fmt.Errorf("market lot sizes must be positive")
	}
	if c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required")
	}
	if c.Router.URL == "" {
		return fmt.Errorf("router.url is required")
	}
	if c.Router.PollInterval <= 0 || c.Arbitrage.ScanInterval <= 0 {
		return fmt.Errorf("router.poll_interval and arbitrage.scan_interval must be positive")
	}
	if err := c.Arbitrage.validate(); err != nil {
		return err
	}
	switch c.Execution.Mode {
	case "paper":
	case "gateway":
		if c.Execution.GatewayURL == "" {
			return fmt.Errorf("execution.gateway_url is required in gateway mode")
		}
	default:
		return fmt.Errorf("invalid execution.mode: %s", c.Execution.Mode)
	}
	if c.Notify.TelegramEnabled && (c.Notify.TelegramToken == "" || c.Notify.TelegramChatID == "") {
		return fmt.Errorf("notify.telegram_token and notify.telegram_chat_id are required when telegram is enabled")
	}
	return nil
}
