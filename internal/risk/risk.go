// Package risk converts signals into position sizes and protective levels.
package risk

import (
	"fmt"
	"math"
	"math/big"

	"github.com/newthinker/fxsim/internal/core"
	"github.com/shopspring/decimal"
)

// Config defines risk management parameters.
type Config struct {
	// RiskPerTrade is the fraction of balance risked on one trade, in (0,1].
	RiskPerTrade float64
	// ATRStopMultiplier scales ATR into the stop-loss distance.
	ATRStopMultiplier float64
	// RewardRiskRatio scales the stop distance into the take-profit distance.
	RewardRiskRatio float64
	// UseFixedLotSize bypasses risk-based sizing.
	UseFixedLotSize bool
	// FixedLotSize is the lot size used when UseFixedLotSize is set.
	FixedLotSize float64
	// MinLot is the floor of risk-based sizing.
	MinLot float64
	// PipSize is the price increment of one pip.
	PipSize float64
	// PipValuePerLot is the account-currency value of one pip for one lot.
	PipValuePerLot float64
}

// DefaultConfig returns the reference parameters for 5-digit major pairs.
func DefaultConfig() Config {
	return Config{
		RiskPerTrade:      0.01,
		ATRStopMultiplier: 2.0,
		RewardRiskRatio:   1.5,
		UseFixedLotSize:   false,
		FixedLotSize:      0.01,
		MinLot:            0.01,
		PipSize:           0.0001,
		PipValuePerLot:    10,
	}
}

// PositionSize returns the lot size that risks riskFraction of balance over
// a stop of stopLossPips. A non-positive stop distance falls back to minLot.
// The result is rounded to 2 decimals, half to even on the exact binary value
// of the float, and floored at minLot.
func PositionSize(balance, stopLossPips, riskFraction, pipValuePerLot, minLot float64) float64 {
	if stopLossPips <= 0 || math.IsNaN(stopLossPips) || pipValuePerLot <= 0 {
		return minLot
	}

	lots := (balance * riskFraction) / (stopLossPips * pipValuePerLot)
	rounded := exactDecimal(lots).RoundBank(2).InexactFloat64()
	return math.Max(minLot, rounded)
}

// exactDecimal converts f to the decimal equal to its binary value.
// decimal.NewFromFloat uses the shortest round-trip form instead, which turns
// values such as 0.155 (really 0.15499999...) into exact ties.
func exactDecimal(f float64) decimal.Decimal {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	frac, exp := math.Frexp(f)
	mant := big.NewInt(int64(math.Ldexp(frac, 53)))

	// f = mant * 2^(exp-53)
	shift := exp - 53
	if shift >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(shift)), 0)
	}
	// mant * 2^-k == mant * 5^k * 10^-k
	k := int64(-shift)
	coef := new(big.Int).Exp(big.NewInt(5), big.NewInt(k), nil)
	return decimal.NewFromBigInt(coef.Mul(coef, mant), int32(-k))
}

// Levels computes stop-loss and take-profit prices from an ATR distance.
// It fails with core.ErrInvalidRiskInputs when atr is zero, negative or NaN,
// or when the direction does not open a position.
func Levels(entry float64, direction core.Direction, atr, slMultiplier, rewardRisk float64) (core.RiskLevels, error) {
	if math.IsNaN(atr) || atr <= 0 {
		return core.RiskLevels{}, core.WrapError(core.ErrInvalidRiskInputs, fmt.Errorf("atr %v", atr))
	}

	slDistance := atr * slMultiplier
	tpDistance := slDistance * rewardRisk
	if slDistance <= 0 || tpDistance <= 0 {
		return core.RiskLevels{}, core.WrapError(core.ErrInvalidRiskInputs,
			fmt.Errorf("non-positive distances: sl %v, tp %v", slDistance, tpDistance))
	}

	switch direction {
	case core.DirectionLong:
		return core.RiskLevels{StopLoss: entry - slDistance, TakeProfit: entry + tpDistance}, nil
	case core.DirectionShort:
		return core.RiskLevels{StopLoss: entry + slDistance, TakeProfit: entry - tpDistance}, nil
	default:
		return core.RiskLevels{}, core.WrapError(core.ErrInvalidRiskInputs,
			fmt.Errorf("direction %s", direction))
	}
}

// StopLossPips converts the distance between entry and stop into pips.
func StopLossPips(entry, stopLoss, pipSize float64) float64 {
	if pipSize <= 0 {
		return 0
	}
	return math.Abs(entry-stopLoss) / pipSize
}
