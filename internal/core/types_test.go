package core

import (
	"math"
	"testing"
)

func TestDirection_Constants(t *testing.T) {
	directions := []Direction{DirectionLong, DirectionShort}
	expected := []string{"buy", "sell"}

	for i, d := range directions {
		if string(d) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], d)
		}
	}

	if DirectionNone.String() != "none" {
		t.Errorf("expected none, got %s", DirectionNone.String())
	}
}

func TestDirection_IsTradable(t *testing.T) {
	if !DirectionLong.IsTradable() || !DirectionShort.IsTradable() {
		t.Error("long and short should be tradable")
	}
	if DirectionNone.IsTradable() {
		t.Error("none should not be tradable")
	}
}

func TestSignal_Actionable(t *testing.T) {
	tests := []struct {
		name string
		sig  Signal
		want bool
	}{
		{"no signal", NoSignal(), false},
		{"long with atr", Signal{Direction: DirectionLong, ATR: 0.001}, true},
		{"short with atr", Signal{Direction: DirectionShort, ATR: 0.001}, true},
		{"long without atr", Signal{Direction: DirectionLong, ATR: math.NaN()}, false},
		{"long with zero atr", Signal{Direction: DirectionLong, ATR: 0}, false},
		{"none with atr", Signal{Direction: DirectionNone, ATR: 0.001}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.Actionable(); got != tt.want {
				t.Errorf("Actionable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNoSignal_HasNoATR(t *testing.T) {
	if NoSignal().HasATR() {
		t.Error("NoSignal should not carry an ATR")
	}
}

func TestTrade_IsWin(t *testing.T) {
	if !(Trade{PnL: 10}).IsWin() {
		t.Error("positive pnl should be a win")
	}
	if (Trade{PnL: -10}).IsWin() {
		t.Error("negative pnl should not be a win")
	}
	if (Trade{PnL: 0}).IsWin() {
		t.Error("flat trade should not be a win")
	}
}
