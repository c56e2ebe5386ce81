package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/risk"
	"github.com/newthinker/fxsim/internal/storage/archive"
	"github.com/newthinker/fxsim/internal/strategy"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FXSIM_RISK_RISK_PER_TRADE.
const EnvPrefix = "FXSIM"

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Data      DataConfig      `mapstructure:"data"`
	Report    ReportConfig    `mapstructure:"report"`
	Notifiers NotifiersConfig `mapstructure:"notifiers"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type BacktestConfig struct {
	InitialBalance float64  `mapstructure:"initial_balance"`
	Symbols        []string `mapstructure:"symbols"`
	Timeframe      string   `mapstructure:"timeframe"`
	Lookback       int      `mapstructure:"lookback"`
	Workers        int      `mapstructure:"workers"`
}

type RiskConfig struct {
	RiskPerTrade      float64 `mapstructure:"risk_per_trade"`
	ATRStopMultiplier float64 `mapstructure:"atr_sl_multiplier"`
	RewardRiskRatio   float64 `mapstructure:"reward_risk_ratio"`
	UseFixedLotSize   bool    `mapstructure:"use_fixed_lot_size"`
	FixedLotSize      float64 `mapstructure:"fixed_lot_size"`
	MinLot            float64 `mapstructure:"min_lot"`
	PipSize           float64 `mapstructure:"pip_size"`
	PipValuePerLot    float64 `mapstructure:"pip_value_per_lot"`
}

type StrategyConfig struct {
	Name          string  `mapstructure:"name"` // "trend_rsi" or "ma_crossover"
	Mode          string  `mapstructure:"mode"` // "level" or "crossover"
	RSIPeriod     int     `mapstructure:"rsi_period"`
	MAShort       int     `mapstructure:"ma_short"`
	MALong        int     `mapstructure:"ma_long"`
	ATRPeriod     int     `mapstructure:"atr_period"`
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// DataConfig locates historical bar files inside the store.
type DataConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// ReportConfig locates the results CSV inside the store.
type ReportConfig struct {
	Path string `mapstructure:"path"`
}

type NotifiersConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// BrokerConfig holds live trading settings.
type BrokerConfig struct {
	Provider    string  `mapstructure:"provider"`
	Balance     float64 `mapstructure:"balance"`
	JournalPath string  `mapstructure:"journal_path"`
	Bars        int     `mapstructure:"bars"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables export
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	rc := risk.DefaultConfig()
	sc := strategy.DefaultConfig()
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Backtest: BacktestConfig{
			InitialBalance: 10000,
			Symbols:        []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD"},
			Timeframe:      "M15",
			Lookback:       51,
			Workers:        1,
		},
		Risk: RiskConfig{
			RiskPerTrade:      rc.RiskPerTrade,
			ATRStopMultiplier: rc.ATRStopMultiplier,
			RewardRiskRatio:   rc.RewardRiskRatio,
			UseFixedLotSize:   rc.UseFixedLotSize,
			FixedLotSize:      rc.FixedLotSize,
			MinLot:            rc.MinLot,
			PipSize:           rc.PipSize,
			PipValuePerLot:    rc.PipValuePerLot,
		},
		Strategy: StrategyConfig{
			Name:          "trend_rsi",
			Mode:          string(sc.Mode),
			RSIPeriod:     sc.RSIPeriod,
			MAShort:       sc.MAShort,
			MALong:        sc.MALong,
			ATRPeriod:     sc.ATRPeriod,
			RSIOversold:   sc.RSIOversold,
			RSIOverbought: sc.RSIOverbought,
		},
		Storage: StorageConfig{
			Type: archive.TypeLocalFS,
			Path: ".",
		},
		Data: DataConfig{
			Prefix: "data",
		},
		Report: ReportConfig{
			Path: "logs/backtest_results.csv",
		},
		Broker: BrokerConfig{
			Provider:    "paper",
			Balance:     10000,
			JournalPath: "logs/trades.jsonl",
			Bars:        100,
		},
	}
}

// setDefaults registers every default with viper so that environment
// overrides apply to keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("backtest.initial_balance", d.Backtest.InitialBalance)
	v.SetDefault("backtest.symbols", d.Backtest.Symbols)
	v.SetDefault("backtest.timeframe", d.Backtest.Timeframe)
	v.SetDefault("backtest.lookback", d.Backtest.Lookback)
	v.SetDefault("backtest.workers", d.Backtest.Workers)

	v.SetDefault("risk.risk_per_trade", d.Risk.RiskPerTrade)
	v.SetDefault("risk.atr_sl_multiplier", d.Risk.ATRStopMultiplier)
	v.SetDefault("risk.reward_risk_ratio", d.Risk.RewardRiskRatio)
	v.SetDefault("risk.use_fixed_lot_size", d.Risk.UseFixedLotSize)
	v.SetDefault("risk.fixed_lot_size", d.Risk.FixedLotSize)
	v.SetDefault("risk.min_lot", d.Risk.MinLot)
	v.SetDefault("risk.pip_size", d.Risk.PipSize)
	v.SetDefault("risk.pip_value_per_lot", d.Risk.PipValuePerLot)

	v.SetDefault("strategy.name", d.Strategy.Name)
	v.SetDefault("strategy.mode", d.Strategy.Mode)
	v.SetDefault("strategy.rsi_period", d.Strategy.RSIPeriod)
	v.SetDefault("strategy.ma_short", d.Strategy.MAShort)
	v.SetDefault("strategy.ma_long", d.Strategy.MALong)
	v.SetDefault("strategy.atr_period", d.Strategy.ATRPeriod)
	v.SetDefault("strategy.rsi_oversold", d.Strategy.RSIOversold)
	v.SetDefault("strategy.rsi_overbought", d.Strategy.RSIOverbought)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.prefix", "")

	v.SetDefault("data.prefix", d.Data.Prefix)
	v.SetDefault("report.path", d.Report.Path)

	v.SetDefault("notifiers.telegram.enabled", false)
	v.SetDefault("notifiers.telegram.bot_token", "")
	v.SetDefault("notifiers.telegram.chat_id", "")
	v.SetDefault("notifiers.webhook.enabled", false)
	v.SetDefault("notifiers.webhook.url", "")

	v.SetDefault("broker.provider", d.Broker.Provider)
	v.SetDefault("broker.balance", d.Broker.Balance)
	v.SetDefault("broker.journal_path", d.Broker.JournalPath)
	v.SetDefault("broker.bars", d.Broker.Bars)

	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Load reads configuration from file. An empty path yields the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// RiskParams converts the risk section for the risk manager.
func (c *Config) RiskParams() risk.Config {
	return risk.Config{
		RiskPerTrade:      c.Risk.RiskPerTrade,
		ATRStopMultiplier: c.Risk.ATRStopMultiplier,
		RewardRiskRatio:   c.Risk.RewardRiskRatio,
		UseFixedLotSize:   c.Risk.UseFixedLotSize,
		FixedLotSize:      c.Risk.FixedLotSize,
		MinLot:            c.Risk.MinLot,
		PipSize:           c.Risk.PipSize,
		PipValuePerLot:    c.Risk.PipValuePerLot,
	}
}

// StrategyParams converts the strategy section for the signal generator.
func (c *Config) StrategyParams() strategy.Config {
	return strategy.Config{
		Mode:          strategy.Mode(c.Strategy.Mode),
		RSIPeriod:     c.Strategy.RSIPeriod,
		MAShort:       c.Strategy.MAShort,
		MALong:        c.Strategy.MALong,
		ATRPeriod:     c.Strategy.ATRPeriod,
		RSIOversold:   c.Strategy.RSIOversold,
		RSIOverbought: c.Strategy.RSIOverbought,
	}
}

// ArchiveParams converts the storage section for the archive factory.
func (c *Config) ArchiveParams() archive.Config {
	return archive.Config{
		Type: c.Storage.Type,
		Path: c.Storage.Path,
		S3: archive.S3Config{
			Bucket:    c.Storage.S3.Bucket,
			Endpoint:  c.Storage.S3.Endpoint,
			Region:    c.Storage.S3.Region,
			AccessKey: c.Storage.S3.AccessKey,
			SecretKey: c.Storage.S3.SecretKey,
			Prefix:    c.Storage.S3.Prefix,
		},
	}
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Backtest validation
	if len(c.Backtest.Symbols) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("backtest.symbols is empty"))
	}
	if c.Backtest.Timeframe == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("backtest.timeframe is empty"))
	}
	if c.Backtest.InitialBalance <= 0 {
		return invalid("initial_balance must be positive, got %v", c.Backtest.InitialBalance)
	}
	if c.Backtest.Lookback < 0 {
		return invalid("lookback cannot be negative, got %d", c.Backtest.Lookback)
	}
	if c.Backtest.Workers < 1 {
		return invalid("workers must be at least 1, got %d", c.Backtest.Workers)
	}

	// Risk validation
	r := c.Risk
	if r.RiskPerTrade <= 0 || r.RiskPerTrade > 1 {
		return invalid("risk_per_trade must be in (0, 1], got %v", r.RiskPerTrade)
	}
	if r.ATRStopMultiplier <= 0 {
		return invalid("atr_sl_multiplier must be positive, got %v", r.ATRStopMultiplier)
	}
	if r.RewardRiskRatio <= 0 {
		return invalid("reward_risk_ratio must be positive, got %v", r.RewardRiskRatio)
	}
	if r.MinLot <= 0 {
		return invalid("min_lot must be positive, got %v", r.MinLot)
	}
	if r.UseFixedLotSize && r.FixedLotSize <= 0 {
		return invalid("fixed_lot_size must be positive, got %v", r.FixedLotSize)
	}
	if r.PipSize <= 0 {
		return invalid("pip_size must be positive, got %v", r.PipSize)
	}
	if r.PipValuePerLot <= 0 {
		return invalid("pip_value_per_lot must be positive, got %v", r.PipValuePerLot)
	}

	// Strategy validation
	s := c.Strategy
	if s.Name == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("strategy.name is empty"))
	}
	switch strategy.Mode(s.Mode) {
	case strategy.ModeLevel, strategy.ModeCrossover:
	default:
		return invalid("strategy mode must be %q or %q, got %q", strategy.ModeLevel, strategy.ModeCrossover, s.Mode)
	}
	if s.RSIPeriod <= 0 || s.MAShort <= 0 || s.MALong <= 0 || s.ATRPeriod <= 0 {
		return invalid("strategy periods must be positive")
	}
	if s.MAShort >= s.MALong {
		return invalid("ma_short (%d) must be below ma_long (%d)", s.MAShort, s.MALong)
	}
	if s.RSIOversold <= 0 || s.RSIOverbought >= 100 || s.RSIOversold >= s.RSIOverbought {
		return invalid("rsi thresholds must satisfy 0 < oversold < overbought < 100, got %v/%v", s.RSIOversold, s.RSIOverbought)
	}

	// Storage validation
	switch c.Storage.Type {
	case archive.TypeLocalFS:
	case archive.TypeS3:
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.s3.bucket required when type is s3"))
		}
	default:
		return invalid("storage type must be localfs or s3, got %q", c.Storage.Type)
	}

	// Notifier validation
	if tg := c.Notifiers.Telegram; tg.Enabled && (tg.BotToken == "" || tg.ChatID == "") {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("telegram bot_token and chat_id required when enabled"))
	}
	if wh := c.Notifiers.Webhook; wh.Enabled && wh.URL == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook url required when enabled"))
	}

	// Broker validation
	if c.Broker.Provider != "paper" {
		return invalid("unsupported broker provider %q", c.Broker.Provider)
	}
	if c.Broker.Bars < 0 {
		return invalid("broker bars cannot be negative, got %d", c.Broker.Bars)
	}

	return nil
}
