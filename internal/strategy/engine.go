package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/fxsim/internal/core"
	"go.uber.org/zap"
)

// Engine holds the available strategies by name
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the engine, replacing one with the same name
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
	e.logger.Debug("strategy registered",
		zap.String("strategy", s.Name()),
		zap.String("description", s.Description()),
	)
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// Select returns the named strategy or ErrConfigInvalid listing the known names
func (e *Engine) Select(name string) (Strategy, error) {
	if s, ok := e.Get(name); ok {
		return s, nil
	}
	return nil, core.WrapError(core.ErrConfigInvalid,
		fmt.Errorf("unknown strategy %q, available: %v", name, e.Names()))
}

// Names returns the registered strategy names in sorted order
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns all registered strategies sorted by name
func (e *Engine) GetAll() []Strategy {
	names := e.Names()

	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]Strategy, 0, len(names))
	for _, name := range names {
		result = append(result, e.strategies[name])
	}
	return result
}
