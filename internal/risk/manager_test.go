package risk_test

import (
	"errors"
	"math"
	"testing"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/newthinker/fxsim/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Plan_ReferenceScenario(t *testing.T) {
	m := risk.NewManager(risk.DefaultConfig())

	plan, err := m.Plan(10000, 1.10000, core.Signal{Direction: core.DirectionLong, ATR: 0.00100})
	require.NoError(t, err)

	assert.Equal(t, core.DirectionLong, plan.Direction)
	assert.InDelta(t, 1.09800, plan.Levels.StopLoss, 1e-9)
	assert.InDelta(t, 1.10300, plan.Levels.TakeProfit, 1e-9)
	assert.InDelta(t, 20, plan.StopPips, 1e-6)
	assert.InDelta(t, 0.5, plan.Lots, 1e-9)

	pips, amount := m.PnL(plan, plan.Levels.StopLoss)
	assert.InDelta(t, -20, pips, 1e-6)
	assert.InDelta(t, -100, amount, 1e-6)
}

func TestManager_Plan_NoATR(t *testing.T) {
	m := risk.NewManager(risk.DefaultConfig())

	_, err := m.Plan(10000, 1.1, core.Signal{Direction: core.DirectionLong, ATR: math.NaN()})
	assert.True(t, errors.Is(err, core.ErrInvalidRiskInputs))
}

func TestManager_FixedLotSize(t *testing.T) {
	cfg := risk.DefaultConfig()
	cfg.UseFixedLotSize = true
	cfg.FixedLotSize = 0.25
	m := risk.NewManager(cfg)

	assert.Equal(t, 0.25, m.LotSize(10000, 20))
	assert.Equal(t, 0.25, m.LotSize(1, 0))
	assert.Equal(t, 0.25, m.LotSize(1e9, 1))
}

func TestManager_Plan_RejectsZeroFixedLot(t *testing.T) {
	cfg := risk.DefaultConfig()
	cfg.UseFixedLotSize = true
	cfg.FixedLotSize = 0
	m := risk.NewManager(cfg)

	_, err := m.Plan(10000, 1.1, core.Signal{Direction: core.DirectionShort, ATR: 0.001})
	assert.True(t, errors.Is(err, core.ErrInvalidRiskInputs))
}

func TestManager_PnL_Short(t *testing.T) {
	m := risk.NewManager(risk.DefaultConfig())
	plan := risk.Plan{Direction: core.DirectionShort, Entry: 1.1000, Lots: 1}

	pips, amount := m.PnL(plan, 1.0990)
	assert.InDelta(t, 10, pips, 1e-6)
	assert.InDelta(t, 100, amount, 1e-4)
}
