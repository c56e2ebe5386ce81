// Package paper provides a broker that fills market orders immediately
// without touching a real venue.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/fxsim/internal/broker"
	"github.com/newthinker/fxsim/internal/core"
)

// Broker implements broker.Broker in memory.
type Broker struct {
	mu sync.RWMutex

	// Connection state
	connected bool

	// Order management
	orders      []broker.Order
	shouldFail  bool
	failMessage string

	balance float64
	now     func() time.Time
}

// New creates a paper broker holding balance.
func New(balance float64) *Broker {
	return &Broker{
		balance: balance,
		now:     time.Now,
	}
}

// Name returns the broker identifier.
func (b *Broker) Name() string {
	return "paper"
}

// Connect establishes the session.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return fmt.Errorf("paper broker: already connected")
	}
	b.connected = true
	return nil
}

// Disconnect closes the session.
func (b *Broker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return core.ErrBrokerDisconnected
	}
	b.connected = false
	return nil
}

// IsConnected returns the connection status.
func (b *Broker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Balance returns the account balance.
func (b *Broker) Balance(ctx context.Context) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return 0, core.ErrBrokerDisconnected
	}
	return b.balance, nil
}

// PlaceOrder fills req at its reference price.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil, core.ErrBrokerDisconnected
	}
	if err := req.Validate(); err != nil {
		return nil, core.WrapError(core.ErrOrderFailed, err)
	}

	// Check for configured failure
	if b.shouldFail {
		return nil, core.WrapError(core.ErrOrderFailed, errors.New(b.failMessage))
	}

	now := b.now()
	order := broker.Order{
		OrderID:      uuid.NewString(),
		OrderRequest: req,
		Status:       broker.OrderStatusFilled,
		FillPrice:    req.Price,
		CreatedAt:    now,
		FilledAt:     &now,
	}
	b.orders = append(b.orders, order)

	// Return a copy
	orderCopy := order
	return &orderCopy, nil
}

// SetFailure makes subsequent orders fail with message until cleared with "".
func (b *Broker) SetFailure(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shouldFail = message != ""
	b.failMessage = message
}

// Orders returns the filled orders in placement order.
func (b *Broker) Orders() []broker.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]broker.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

var _ broker.Broker = (*Broker)(nil)
