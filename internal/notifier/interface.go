package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Kind classifies a message
type Kind string

const (
	KindOrderExecuted   Kind = "order_executed"
	KindOrderFailed     Kind = "order_failed"
	KindBacktestSummary Kind = "backtest_summary"
	KindError           Kind = "error"
)

// Message is a human-readable event with optional structured fields
type Message struct {
	Kind   Kind
	Title  string
	Text   string
	Fields map[string]any
	Time   time.Time
}

// Notifier defines the interface for event delivery channels
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single message
	Send(ctx context.Context, msg Message) error
}
