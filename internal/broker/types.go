// Package broker provides types and interfaces for order execution venues.
package broker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/newthinker/fxsim/internal/core"
)

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	// OrderStatusFilled indicates order has been completely filled.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusRejected indicates order was rejected by broker.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderRequest represents a market order with protective levels.
type OrderRequest struct {
	// Symbol is the instrument (e.g., "EURUSD").
	Symbol string `json:"symbol"`
	// Side is buy or sell.
	Side core.Direction `json:"side"`
	// Lots is the position size.
	Lots float64 `json:"lots"`
	// Price is the reference entry price.
	Price float64 `json:"price"`
	// StopLoss is the protective stop price.
	StopLoss float64 `json:"stop_loss"`
	// TakeProfit is the target price.
	TakeProfit float64 `json:"take_profit"`
	// Comment is passed through to the venue.
	Comment string `json:"comment,omitempty"`
}

// Validate checks that the request can be sent to a venue.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("broker: empty symbol")
	}
	if !r.Side.IsTradable() {
		return fmt.Errorf("broker: invalid side %q", r.Side)
	}
	if r.Lots <= 0 || math.IsNaN(r.Lots) {
		return fmt.Errorf("broker: invalid lots %v", r.Lots)
	}
	if r.Price <= 0 {
		return fmt.Errorf("broker: invalid price %v", r.Price)
	}
	switch r.Side {
	case core.DirectionLong:
		if r.StopLoss >= r.Price || r.TakeProfit <= r.Price {
			return fmt.Errorf("broker: levels sl %v / tp %v do not bracket buy at %v", r.StopLoss, r.TakeProfit, r.Price)
		}
	case core.DirectionShort:
		if r.StopLoss <= r.Price || r.TakeProfit >= r.Price {
			return fmt.Errorf("broker: levels sl %v / tp %v do not bracket sell at %v", r.StopLoss, r.TakeProfit, r.Price)
		}
	}
	return nil
}

// Order represents an order in the broker system.
type Order struct {
	// OrderID is the broker-assigned unique identifier.
	OrderID string `json:"order_id"`
	OrderRequest
	// Status is the current order status.
	Status OrderStatus `json:"status"`
	// FillPrice is the execution price.
	FillPrice float64 `json:"fill_price"`
	// CreatedAt is when the order was created.
	CreatedAt time.Time `json:"created_at"`
	// FilledAt is when the order was filled (nil if not filled).
	FilledAt *time.Time `json:"filled_at,omitempty"`
}

// IsFilled returns true if the order is completely filled.
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// Broker defines the interface for broker integrations.
type Broker interface {
	// Name returns the broker identifier (e.g., "paper").
	Name() string

	// Connection management
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	// Balance returns the account balance in account currency.
	Balance(ctx context.Context) (float64, error)

	// PlaceOrder sends a market order. A rejected order returns an error
	// wrapping core.ErrOrderFailed.
	PlaceOrder(ctx context.Context, request OrderRequest) (*Order, error)
}
