package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Chain     Chain     `mapstructure:"chain"`
	Market    Market    `mapstructure:"market"`
	Pricing   Pricing   `mapstructure:"pricing"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Trading   Trading   `mapstructure:"trading"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// Chain holds the RPC endpoint and router contracts used for swaps.
type Chain struct {
	RPCURL               string `mapstructure:"rpc_url" validate:"required,url"`
	RouterAddress        string `mapstructure:"router_address" validate:"required,eth_addr"`
	WrappedNativeAddress string `mapstructure:"wrapped_native_address" validate:"required,eth_addr"`
	GasLimit             uint64 `mapstructure:"gas_limit" validate:"gt=0"`
	ApproveGasLimit      uint64 `mapstructure:"approve_gas_limit" validate:"gt=0"`
}

// Market holds the configuration for the off-chain market data APIs.
type Market struct {
	DexScreenerURL string  `mapstructure:"dexscreener_url" validate:"required,url"`
	ChainSlug      string  `mapstructure:"chain_slug" validate:"required"`
	CoinGeckoURL   string  `mapstructure:"coingecko_url" validate:"required,url"`
	NativeCoinID   string  `mapstructure:"native_coin_id" validate:"required"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"gt=0"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// Pricing holds the price fallback policy.
type Pricing struct {
	SecondaryAttempts      int `mapstructure:"secondary_attempts" validate:"gte=1"`
	BackoffBaseMs          int `mapstructure:"backoff_base_ms" validate:"gte=0"`
	FreshnessWindowSeconds int `mapstructure:"freshness_window_seconds" validate:"gt=0"`
}

// Scheduler holds the per-wallet scheduling limits.
type Scheduler struct {
	MinIntervalMs        int64 `mapstructure:"min_interval_ms" validate:"gte=10000"`
	DefaultIntervalMs    int64 `mapstructure:"default_interval_ms" validate:"gtefield=MinIntervalMs"`
	ShutdownGraceSeconds int   `mapstructure:"shutdown_grace_seconds" validate:"gte=0"`
}

// Trading holds the swap execution settings.
type Trading struct {
	SwapDeadlineMinutes int `mapstructure:"swap_deadline_minutes" validate:"gt=0"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Server holds the configuration for the web servers.
type Server struct {
	Port   int `mapstructure:"port" validate:"gt=0,lt=65536"`
	UIPort int `mapstructure:"ui_port" validate:"gt=0,lt=65536"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

func (p Pricing) BackoffBase() time.Duration {
	return time.Duration(p.BackoffBaseMs) * time.Millisecond
}

func (p Pricing) FreshnessWindow() time.Duration {
	return time.Duration(p.FreshnessWindowSeconds) * time.Second
}

func (s Scheduler) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalMs) * time.Millisecond
}

func (s Scheduler) DefaultInterval() time.Duration {
	return time.Duration(s.DefaultIntervalMs) * time.Millisecond
}

func (s Scheduler) ShutdownGrace() time.Duration {
	return time.Duration(s.ShutdownGraceSeconds) * time.Second
}

func (t Trading) SwapDeadline() time.Duration {
	return time.Duration(t.SwapDeadlineMinutes) * time.Minute
}

func (m Market) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	// BSC mainnet PancakeSwap v2
	v.SetDefault("chain.rpc_url", "https://bsc-dataseed1.binance.org/")
	v.SetDefault("chain.router_address", "0x10ED43C718714eb63d5aA57B78B54704E256024E")
	v.SetDefault("chain.wrapped_native_address", "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")
	v.SetDefault("chain.gas_limit", 500000)
	v.SetDefault("chain.approve_gas_limit", 300000)

	v.SetDefault("market.dexscreener_url", "https://api.dexscreener.com")
	v.SetDefault("market.chain_slug", "bsc")
	v.SetDefault("market.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.native_coin_id", "binancecoin")
	v.SetDefault("market.rate_limit", 5)       // requests per second
	v.SetDefault("market.rate_limit_burst", 2) // burst size
	v.SetDefault("market.timeout_seconds", 10)

	v.SetDefault("pricing.secondary_attempts", 3)
	v.SetDefault("pricing.backoff_base_ms", 500)
	v.SetDefault("pricing.freshness_window_seconds", 300)

	v.SetDefault("scheduler.min_interval_ms", 10000)
	v.SetDefault("scheduler.default_interval_ms", 60000)
	v.SetDefault("scheduler.shutdown_grace_seconds", 30)

	v.SetDefault("trading.swap_deadline_minutes", 20)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.ui_port", 3001)

	v.SetDefault("database.dsn", "hotswap.db")
}

// Validate checks the loaded values against their constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
