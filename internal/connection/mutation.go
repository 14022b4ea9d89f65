package connection

import (
	"context"

	"github.com/bassista/go_connsync/internal/analytics"
	"github.com/bassista/go_connsync/internal/cache"
	"github.com/bassista/go_connsync/internal/logger"
)

// Callbacks observe a single Mutate call. They run after the cache patch and the analytics event.
type Callbacks[Out any] struct {
	OnSuccess func(out Out)
	OnError   func(err error)
}

// event describes the analytics emitted after a successful mutation.
type event[In, Out any] func(in In, out Out) (analytics.Action, analytics.Properties)

// Mutation is an invocable mutation handle: one gateway call, then on success
// one cache patch followed by one best-effort analytics event.
type Mutation[In, Out any] struct {
	name    string
	service *Service
	call    func(ctx context.Context, in In) (Out, error)
	patch   func(in In, out Out)
	event   event[In, Out]
}

// Mutate runs the mutation and waits for it. On error nothing is patched or tracked.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In, callbacks ...Callbacks[Out]) (Out, error) {
	out, err := m.call(ctx, in)
	if err != nil {
		logger.WithComponent("connections").Warnf("%s failed: %v", m.name, err)
		for _, cb := range callbacks {
			if cb.OnError != nil {
				cb.OnError(err)
			}
		}
		var zero Out
		return zero, err
	}

	if m.patch != nil {
		m.patch(in, out)
	}
	if m.event != nil {
		action, props := m.event(in, out)
		m.service.emit(action, props)
	}
	logger.WithComponent("connections").Debugf("%s succeeded", m.name)

	for _, cb := range callbacks {
		if cb.OnSuccess != nil {
			cb.OnSuccess(out)
		}
	}
	return out, nil
}

// MutateAsync starts the mutation in the background.
func (m *Mutation[In, Out]) MutateAsync(ctx context.Context, in In, callbacks ...Callbacks[Out]) *cache.Future[Out] {
	return cache.Go(ctx, func(ctx context.Context) (Out, error) {
		return m.Mutate(ctx, in, callbacks...)
	})
}
