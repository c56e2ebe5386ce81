package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/strategy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
backtest:
  initial_balance: 5000
  symbols: [EURUSD, GBPUSD]
  timeframe: H1

risk:
  risk_per_trade: 0.02

strategy:
  mode: crossover

storage:
  type: s3
  s3:
    bucket: fx-history
    endpoint: "http://localhost:9000"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backtest.InitialBalance != 5000 {
		t.Errorf("expected initial_balance 5000, got %v", cfg.Backtest.InitialBalance)
	}
	if len(cfg.Backtest.Symbols) != 2 || cfg.Backtest.Symbols[1] != "GBPUSD" {
		t.Errorf("unexpected symbols %v", cfg.Backtest.Symbols)
	}
	if cfg.Backtest.Timeframe != "H1" {
		t.Errorf("expected H1, got %s", cfg.Backtest.Timeframe)
	}
	if cfg.Risk.RiskPerTrade != 0.02 {
		t.Errorf("expected risk 0.02, got %v", cfg.Risk.RiskPerTrade)
	}
	if cfg.Storage.S3.Bucket != "fx-history" {
		t.Errorf("expected bucket fx-history, got %s", cfg.Storage.S3.Bucket)
	}

	// Keys absent from the file keep their defaults
	if cfg.Risk.ATRStopMultiplier != 2.0 {
		t.Errorf("expected default atr_sl_multiplier 2.0, got %v", cfg.Risk.ATRStopMultiplier)
	}
	if cfg.Strategy.ATRPeriod != 14 {
		t.Errorf("expected default atr_period 14, got %d", cfg.Strategy.ATRPeriod)
	}
	if cfg.Backtest.Lookback != 51 {
		t.Errorf("expected default lookback 51, got %d", cfg.Backtest.Lookback)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backtest.InitialBalance != 10000 {
		t.Errorf("expected default balance, got %v", cfg.Backtest.InitialBalance)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FXSIM_RISK_RISK_PER_TRADE", "0.005")
	t.Setenv("FXSIM_BACKTEST_WORKERS", "4")

	cfg, err := Load(writeConfig(t, "backtest:\n  timeframe: M5\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Risk.RiskPerTrade != 0.005 {
		t.Errorf("expected env risk 0.005, got %v", cfg.Risk.RiskPerTrade)
	}
	if cfg.Backtest.Workers != 4 {
		t.Errorf("expected env workers 4, got %d", cfg.Backtest.Workers)
	}
}

func TestLoad_ExpandsVariables(t *testing.T) {
	t.Setenv("TG_TOKEN", "123:abc")

	cfg, err := Load(writeConfig(t, `
notifiers:
  telegram:
    enabled: true
    bot_token: "${TG_TOKEN}"
    chat_id: "42"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifiers.Telegram.BotToken != "123:abc" {
		t.Errorf("expected expanded token, got %q", cfg.Notifiers.Telegram.BotToken)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("FXSIM_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FXSIM_TEST_DOTENV") })

	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if os.Getenv("FXSIM_TEST_DOTENV") != "loaded" {
		t.Error("expected variable from .env file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Backtest.InitialBalance != 10000 {
		t.Errorf("expected default balance 10000, got %v", cfg.Backtest.InitialBalance)
	}
	if len(cfg.Backtest.Symbols) != 5 {
		t.Errorf("expected 5 default symbols, got %d", len(cfg.Backtest.Symbols))
	}
	if cfg.Risk.RiskPerTrade != 0.01 {
		t.Errorf("expected default risk 0.01, got %v", cfg.Risk.RiskPerTrade)
	}
	if cfg.Strategy.Mode != string(strategy.ModeLevel) {
		t.Errorf("expected level mode, got %s", cfg.Strategy.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfig_Params(t *testing.T) {
	cfg := Defaults()

	rp := cfg.RiskParams()
	if rp.PipValuePerLot != 10 || rp.ATRStopMultiplier != 2.0 {
		t.Errorf("unexpected risk params %+v", rp)
	}
	sp := cfg.StrategyParams()
	if sp.MALong != 50 || sp.Mode != strategy.ModeLevel {
		t.Errorf("unexpected strategy params %+v", sp)
	}
	ap := cfg.ArchiveParams()
	if ap.Type != "localfs" {
		t.Errorf("unexpected archive params %+v", ap)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"no symbols", func(c *Config) { c.Backtest.Symbols = nil }, core.ErrConfigMissing},
		{"zero balance", func(c *Config) { c.Backtest.InitialBalance = 0 }, core.ErrConfigInvalid},
		{"zero workers", func(c *Config) { c.Backtest.Workers = 0 }, core.ErrConfigInvalid},
		{"risk zero", func(c *Config) { c.Risk.RiskPerTrade = 0 }, core.ErrConfigInvalid},
		{"risk above one", func(c *Config) { c.Risk.RiskPerTrade = 1.5 }, core.ErrConfigInvalid},
		{"risk exactly one", func(c *Config) { c.Risk.RiskPerTrade = 1 }, nil},
		{"negative multiplier", func(c *Config) { c.Risk.ATRStopMultiplier = -1 }, core.ErrConfigInvalid},
		{"zero reward risk", func(c *Config) { c.Risk.RewardRiskRatio = 0 }, core.ErrConfigInvalid},
		{"fixed lot zero", func(c *Config) {
			c.Risk.UseFixedLotSize = true
			c.Risk.FixedLotSize = 0
		}, core.ErrConfigInvalid},
		{"missing strategy name", func(c *Config) { c.Strategy.Name = "" }, core.ErrConfigMissing},
		{"unknown mode", func(c *Config) { c.Strategy.Mode = "breakout" }, core.ErrConfigInvalid},
		{"short ma above long", func(c *Config) { c.Strategy.MAShort = 60 }, core.ErrConfigInvalid},
		{"inverted rsi thresholds", func(c *Config) { c.Strategy.RSIOversold = 80 }, core.ErrConfigInvalid},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, core.ErrConfigMissing},
		{"unknown storage", func(c *Config) { c.Storage.Type = "ftp" }, core.ErrConfigInvalid},
		{"telegram without token", func(c *Config) { c.Notifiers.Telegram.Enabled = true }, core.ErrConfigMissing},
		{"webhook without url", func(c *Config) { c.Notifiers.Webhook.Enabled = true }, core.ErrConfigMissing},
		{"unknown broker", func(c *Config) { c.Broker.Provider = "mt5" }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
