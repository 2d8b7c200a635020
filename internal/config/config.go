// Package config handles application configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raykavin/pairwatch/pkg/exchange"
	"github.com/raykavin/pairwatch/pkg/indicator"
	"github.com/raykavin/pairwatch/pkg/market"
	"github.com/raykavin/pairwatch/pkg/signal"
	"github.com/raykavin/pairwatch/pkg/storage"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

const (
	EnvPrefix         = "PAIRWATCH"
	DefaultConfigName = "pairwatch"
	DefaultEnvFile    = ".env"
)

// DefaultPairs is the watch list used when none is configured
var DefaultPairs = []string{
	"BTC/USDT", "ETH/USDT", "BNB/USDT", "DOGE/USDT", "SHIB/USDT",
	"SOL/USDT", "XRP/USDT", "LTC/USDT", "ADA/USDT",
}

// Config holds the application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Exchange   ExchangeConfig   `mapstructure:"exchange"`
	Pairs      []string         `mapstructure:"pairs"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Indicators IndicatorsConfig `mapstructure:"indicators"`
	Signal     SignalConfig     `mapstructure:"signal"`
	Alert      AlertConfig      `mapstructure:"alert"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
}

type LogConfig struct {
	Driver     string `mapstructure:"driver"`
	Level      string `mapstructure:"level"`
	TimeFormat string `mapstructure:"time_format"`
	Colored    bool   `mapstructure:"colored"`
	JSON       bool   `mapstructure:"json"`
}

// ExchangeConfig selects the market data source
type ExchangeConfig struct {
	Name         string        `mapstructure:"name"`
	Market       string        `mapstructure:"market"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	APISecret    string        `mapstructure:"api_secret"`
	Testnet      bool          `mapstructure:"testnet"`
	Timeframe    string        `mapstructure:"timeframe"`
	CandleLimit  int           `mapstructure:"candle_limit"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
}

type ScheduleConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ErrorBackoff    time.Duration `mapstructure:"error_backoff"`
	MaxErrorBackoff time.Duration `mapstructure:"max_error_backoff"`
}

type IndicatorsConfig struct {
	RSIPeriod          int     `mapstructure:"rsi_period"`
	EMAPeriod          int     `mapstructure:"ema_period"`
	BollingerPeriod    int     `mapstructure:"bollinger_period"`
	BollingerDeviation float64 `mapstructure:"bollinger_deviation"`
}

type SignalConfig struct {
	Oversold     float64 `mapstructure:"oversold"`
	Overbought   float64 `mapstructure:"overbought"`
	BuyStopLoss  float64 `mapstructure:"buy_stop_loss"`
	BuyTarget    float64 `mapstructure:"buy_target"`
	SellStopLoss float64 `mapstructure:"sell_stop_loss"`
	SellTarget   float64 `mapstructure:"sell_target"`
	TimeFormat   string  `mapstructure:"time_format"`
}

// AlertConfig selects and configures the alert sinks
type AlertConfig struct {
	Driver     string         `mapstructure:"driver"`
	Webhook    WebhookConfig  `mapstructure:"webhook"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
	Mail       MailConfig     `mapstructure:"mail"`
	PairErrors bool           `mapstructure:"pair_errors"`
}

type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	ChatID  string        `mapstructure:"chat_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Token   string  `mapstructure:"token"`
	ChatIDs []int64 `mapstructure:"chat_ids"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Password string `mapstructure:"password"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Alert drivers
const (
	AlertWebhook  = "webhook"
	AlertTelegram = "telegram"
	AlertLog      = "log"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.driver", "zerolog")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.time_format", "2006-01-02 15:04:05")
	v.SetDefault("log.colored", true)
	v.SetDefault("log.json", false)

	v.SetDefault("exchange.name", "binance")
	v.SetDefault("exchange.market", "spot")
	v.SetDefault("exchange.base_url", "")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.testnet", false)
	v.SetDefault("exchange.timeframe", "1h")
	v.SetDefault("exchange.candle_limit", 100)
	v.SetDefault("exchange.request_delay", time.Second)

	v.SetDefault("pairs", DefaultPairs)

	v.SetDefault("schedule.poll_interval", 10*time.Minute)
	v.SetDefault("schedule.error_backoff", time.Minute)
	v.SetDefault("schedule.max_error_backoff", time.Minute)

	v.SetDefault("indicators.rsi_period", 14)
	v.SetDefault("indicators.ema_period", 20)
	v.SetDefault("indicators.bollinger_period", 20)
	v.SetDefault("indicators.bollinger_deviation", 2.0)

	v.SetDefault("signal.oversold", 30.0)
	v.SetDefault("signal.overbought", 70.0)
	v.SetDefault("signal.buy_stop_loss", 0.97)
	v.SetDefault("signal.buy_target", 1.05)
	v.SetDefault("signal.sell_stop_loss", 1.03)
	v.SetDefault("signal.sell_target", 0.95)
	v.SetDefault("signal.time_format", "2006-01-02 15:04:05")

	v.SetDefault("alert.driver", AlertWebhook)
	v.SetDefault("alert.webhook.url", "")
	v.SetDefault("alert.webhook.chat_id", "")
	v.SetDefault("alert.webhook.timeout", 10*time.Second)
	v.SetDefault("alert.telegram.token", "")
	v.SetDefault("alert.telegram.chat_ids", []int64{})
	v.SetDefault("alert.mail.enabled", false)
	v.SetDefault("alert.mail.host", "")
	v.SetDefault("alert.mail.port", 587)
	v.SetDefault("alert.mail.from", "")
	v.SetDefault("alert.mail.to", "")
	v.SetDefault("alert.mail.password", "")
	v.SetDefault("alert.pair_errors", true)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.path", ":memory:")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.address", ":5000")
}

// Load builds the configuration from defaults, the optional config file,
// the optional .env file and PAIRWATCH_ environment variables, in
// increasing order of precedence. An empty path looks for pairwatch.yaml
// in the working directory and ignores it when missing.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Normalize(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile loads a dotenv file without overriding variables already set
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Normalize upper-cases the pairs and drops duplicates, keeping order
func (c *Config) Normalize() error {
	pairs := make([]string, 0, len(c.Pairs))
	for _, raw := range c.Pairs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pair, err := exchange.NormalizePair(raw)
		if err != nil {
			return fmt.Errorf("invalid pair %q: %w", raw, err)
		}
		pairs = append(pairs, pair)
	}
	c.Pairs = lo.Uniq(pairs)

	c.Alert.Driver = strings.ToLower(strings.TrimSpace(c.Alert.Driver))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	return nil
}

// TimeframeDuration returns the length of one candle
func (c *Config) TimeframeDuration() (time.Duration, error) {
	// binance uses M for months, which str2duration does not know
	if months, ok := strings.CutSuffix(c.Exchange.Timeframe, "M"); ok {
		n, err := strconv.Atoi(months)
		if err != nil {
			return 0, fmt.Errorf("invalid timeframe %q: %w", c.Exchange.Timeframe, err)
		}
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	}
	return str2duration.ParseDuration(c.Exchange.Timeframe)
}

// Validate checks the configuration for values the monitor cannot run with
func (c *Config) Validate() error {
	var errs []error

	if len(c.Pairs) == 0 {
		errs = append(errs, errors.New("at least one pair is required"))
	}

	if d, err := c.TimeframeDuration(); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("invalid timeframe %q", c.Exchange.Timeframe))
	}

	if c.Exchange.CandleLimit <= 0 {
		errs = append(errs, fmt.Errorf("candle limit must be positive, got %d", c.Exchange.CandleLimit))
	}
	if c.Exchange.RequestDelay < market.MinRequestDelay {
		errs = append(errs, fmt.Errorf("request delay must be at least %s, got %s",
			market.MinRequestDelay, c.Exchange.RequestDelay))
	}
	if c.Exchange.Market != "spot" {
		errs = append(errs, fmt.Errorf("unsupported market %q", c.Exchange.Market))
	}

	if c.Schedule.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Schedule.ErrorBackoff <= 0 {
		errs = append(errs, errors.New("error backoff must be positive"))
	}

	engine := c.Engine()
	if err := engine.Validate(); err != nil {
		errs = append(errs, err)
	} else if c.Exchange.CandleLimit > 0 && c.Exchange.CandleLimit < engine.MinCandles() {
		errs = append(errs, fmt.Errorf("candle limit %d is below the %d candles the indicators need",
			c.Exchange.CandleLimit, engine.MinCandles()))
	}

	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.Driver {
	case storage.DriverMemory, storage.DriverBuntDB:
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.Storage.Driver))
	}

	switch c.Alert.Driver {
	case AlertWebhook:
		if c.Alert.Webhook.URL == "" || c.Alert.Webhook.ChatID == "" {
			errs = append(errs, errors.New("alert.webhook.url and alert.webhook.chat_id are required by the webhook driver"))
		}
	case AlertTelegram:
		if c.Alert.Telegram.Token == "" || len(c.Alert.Telegram.ChatIDs) == 0 {
			errs = append(errs, errors.New("alert.telegram.token and alert.telegram.chat_ids are required by the telegram driver"))
		}
	case AlertLog:
	default:
		errs = append(errs, fmt.Errorf("unsupported alert driver %q", c.Alert.Driver))
	}

	if c.Alert.Mail.Enabled && (c.Alert.Mail.Host == "" || c.Alert.Mail.To == "" || c.Alert.Mail.From == "") {
		errs = append(errs, errors.New("alert.mail host, from and to are required when mail is enabled"))
	}

	if c.Server.Enabled && c.Server.Address == "" {
		errs = append(errs, errors.New("server address is required when the server is enabled"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Engine returns the indicator engine described by the configuration
func (c *Config) Engine() indicator.Engine {
	return indicator.Engine{
		RSIPeriod:   c.Indicators.RSIPeriod,
		EMAPeriod:   c.Indicators.EMAPeriod,
		BBPeriod:    c.Indicators.BollingerPeriod,
		BBDeviation: c.Indicators.BollingerDeviation,
	}
}

// Thresholds returns the signal levels described by the configuration
func (c *Config) Thresholds() signal.Thresholds {
	return signal.Thresholds{
		Oversold:     c.Signal.Oversold,
		Overbought:   c.Signal.Overbought,
		BuyStopLoss:  c.Signal.BuyStopLoss,
		BuyTarget:    c.Signal.BuyTarget,
		SellStopLoss: c.Signal.SellStopLoss,
		SellTarget:   c.Signal.SellTarget,
	}
}
