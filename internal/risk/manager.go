package risk

import (
	"fmt"

	"github.com/newthinker/fxsim/internal/core"
)

// Plan is a fully sized trade ready to be filled.
type Plan struct {
	Direction core.Direction
	Entry     float64
	Levels    core.RiskLevels
	StopPips  float64
	Lots      float64
}

// Manager applies a risk Config to signals.
type Manager struct {
	config Config
}

// NewManager creates a new Manager with the given configuration.
func NewManager(config Config) *Manager {
	return &Manager{config: config}
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.config
}

// LotSize sizes a position for the current balance. Fixed-lot mode ignores
// balance and stop distance entirely.
func (m *Manager) LotSize(balance, stopLossPips float64) float64 {
	if m.config.UseFixedLotSize {
		return m.config.FixedLotSize
	}
	return PositionSize(balance, stopLossPips, m.config.RiskPerTrade, m.config.PipValuePerLot, m.config.MinLot)
}

// Levels computes stop-loss and take-profit for an entry.
func (m *Manager) Levels(entry float64, direction core.Direction, atr float64) (core.RiskLevels, error) {
	return Levels(entry, direction, atr, m.config.ATRStopMultiplier, m.config.RewardRiskRatio)
}

// Plan turns an actionable signal into a sized trade at entry. It returns
// core.ErrInvalidRiskInputs when no trade should be opened.
func (m *Manager) Plan(balance, entry float64, signal core.Signal) (Plan, error) {
	levels, err := m.Levels(entry, signal.Direction, signal.ATR)
	if err != nil {
		return Plan{}, err
	}

	stopPips := StopLossPips(entry, levels.StopLoss, m.config.PipSize)
	lots := m.LotSize(balance, stopPips)
	if lots <= 0 {
		return Plan{}, core.WrapError(core.ErrInvalidRiskInputs, fmt.Errorf("lot size %v", lots))
	}

	return Plan{
		Direction: signal.Direction,
		Entry:     entry,
		Levels:    levels,
		StopPips:  stopPips,
		Lots:      lots,
	}, nil
}

// PnL converts a price move into pips and account currency for a plan.
func (m *Manager) PnL(plan Plan, exit float64) (pips, amount float64) {
	switch plan.Direction {
	case core.DirectionLong:
		pips = (exit - plan.Entry) / m.config.PipSize
	case core.DirectionShort:
		pips = (plan.Entry - exit) / m.config.PipSize
	}
	amount = pips * plan.Lots * m.config.PipValuePerLot
	return pips, amount
}
