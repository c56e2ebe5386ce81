package main

import (
	"context"
	"fmt"

	"github.com/newthinker/fxsim/internal/config"
	"github.com/newthinker/fxsim/internal/logger"
	"github.com/newthinker/fxsim/internal/metrics"
	"github.com/newthinker/fxsim/internal/notifier"
	"github.com/newthinker/fxsim/internal/notifier/telegram"
	"github.com/newthinker/fxsim/internal/notifier/webhook"
	"github.com/newthinker/fxsim/internal/strategy"
	"github.com/newthinker/fxsim/internal/strategy/ma_crossover"
	"github.com/newthinker/fxsim/internal/strategy/trend_rsi"
	"go.uber.org/zap"
)

// loadConfig reads .env, the optional config file and environment overrides,
// applies the command's flag overrides and validates the result.
func loadConfig(overrides func(*config.Config)) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if overrides != nil {
		overrides(cfg)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	return logger.New(debug || cfg.Log.Development, level)
}

// strategyEngine registers the built-in strategies with the configured parameters.
func strategyEngine(cfg *config.Config, log *zap.Logger) *strategy.Engine {
	params := cfg.StrategyParams()

	engine := strategy.NewEngine(log)
	engine.Register(trend_rsi.New(params))
	engine.Register(ma_crossover.New(params))
	return engine
}

// selectStrategy returns the strategy named by strategy.name.
func selectStrategy(cfg *config.Config, log *zap.Logger) (strategy.Strategy, error) {
	return strategyEngine(cfg, log).Select(cfg.Strategy.Name)
}

// buildNotifiers registers every enabled notifier.
func buildNotifiers(cfg *config.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()

	if tg := cfg.Notifiers.Telegram; tg.Enabled {
		if err := reg.Register(telegram.New(tg.BotToken, tg.ChatID)); err != nil {
			return nil, err
		}
	}
	if wh := cfg.Notifiers.Webhook; wh.Enabled {
		if err := reg.Register(webhook.New(wh.URL, wh.Headers)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// notifyAll sends msg, logging and counting failures per notifier.
func notifyAll(ctx context.Context, reg *notifier.Registry, m *metrics.Registry, log *zap.Logger, msg notifier.Message) {
	if reg == nil || reg.Len() == 0 {
		return
	}
	errs := reg.NotifyAll(ctx, msg)
	for _, n := range reg.GetAll() {
		status := "ok"
		if err, failed := errs[n.Name()]; failed {
			status = "error"
			log.Warn("notification failed", zap.String("notifier", n.Name()), zap.Error(err))
		}
		if m != nil {
			m.RecordNotification(n.Name(), status)
		}
	}
}

// writeMetrics exports the registry when a textfile path is configured.
func writeMetrics(cfg *config.Config, m *metrics.Registry, log *zap.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("metrics export failed", zap.Error(err))
		return
	}
	log.Debug("metrics written", zap.String("path", cfg.Metrics.Textfile))
}
