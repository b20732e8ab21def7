package commands

import (
	"context"
	"sync"
)

// Observer sees every command the bus executes, including ones rejected by
// validation. err is nil on success.
type Observer func(ctx context.Context, commandType string, err error)

type Bus struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	observers []Observer
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string]Handler)}
}

func (b *Bus) Register(commandType string, handler Handler) {
	b.mu.Lock()
	b.handlers[commandType] = handler
	b.mu.Unlock()
}

func (b *Bus) Observe(o Observer) {
	b.mu.Lock()
	b.observers = append(b.observers, o)
	b.mu.Unlock()
}

// Execute validates cmd and runs the handler registered for its type.
func (b *Bus) Execute(ctx context.Context, cmd Command) (Result, error) {
	res, err := b.execute(ctx, cmd)

	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()
	for _, o := range observers {
		o(ctx, cmd.CommandType(), err)
	}
	return res, err
}

func (b *Bus) execute(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.Validate(); err != nil {
		return Result{}, err
	}
	b.mu.RLock()
	h, ok := b.handlers[cmd.CommandType()]
	b.mu.RUnlock()
	if !ok {
		return Result{}, ErrHandlerNotFound
	}
	return h.Handle(ctx, cmd)
}
