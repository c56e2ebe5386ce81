package strategy

import (
	"github.com/newthinker/fxsim/internal/core"
)

// Mode selects how the moving-average condition is evaluated
type Mode string

const (
	// ModeLevel requires the short MA to be above/below the long MA on the last bar
	ModeLevel Mode = "level"
	// ModeCrossover requires the short MA to cross the long MA between the last two bars
	ModeCrossover Mode = "crossover"
)

// Config holds strategy parameters
type Config struct {
	Mode          Mode
	RSIPeriod     int
	MAShort       int
	MALong        int
	ATRPeriod     int
	RSIOversold   float64
	RSIOverbought float64
}

// DefaultConfig returns the reference parameters: RSI(14), MA(20/50), ATR(14), 30/70 bands.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeLevel,
		RSIPeriod:     14,
		MAShort:       20,
		MALong:        50,
		ATRPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
	}
}

// Strategy turns a window of bars into a directional signal.
// Implementations must be pure functions of the window.
type Strategy interface {
	Name() string
	Description() string
	// RequiredBars is the minimum window length that can produce a signal
	RequiredBars() int
	// Generate evaluates the window. When the window is too short or an
	// indicator is undefined on the last bar it returns core.NoSignal()
	// and core.ErrInsufficientHistory.
	Generate(window []core.Bar) (core.Signal, error)
}
