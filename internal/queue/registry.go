package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Handler executes named document operations. Façades route method names
// explicitly and return ErrUnknownMethod for anything they do not expose,
// so a missing method surfaces as a failed operation, never a crash.
type Handler interface {
	Invoke(ctx context.Context, method string, args map[string]any) (any, error)
}

// Registry maps logical handler names to their Handler implementations.
// Each queue owns its own Registry; there is no process-wide instance.
// The mapping is append-only: entries are never removed while the queue
// that owns them is live.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger.With("component", "handler-registry"),
	}
}

// Register adds a Handler under the given name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
	r.logger.Info("handler registered", "name", name)
}

// Get returns the Handler for the given name or ErrHandlerNotRegistered.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotRegistered, name)
	}
	return h, nil
}

// Names returns the sorted list of registered handler names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
