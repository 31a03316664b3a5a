// Package command exposes the core operations as named commands that take
// and return JSON, the call boundary used by front ends.
package command

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/logging"
)

// Handler runs one command. args is the raw JSON argument bundle; the
// returned value is encoded as the JSON result.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Registry maps command names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register adds a handler, replacing any previous one with the same name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get returns a handler by name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered command names, sorted.
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

// Invoke runs the named command and returns its JSON-encoded result.
func (r *Registry) Invoke(ctx context.Context, name string, args []byte) ([]byte, error) {
	h, ok := r.Get(name)
	if !ok {
		return nil, errdef.New(errdef.CodeUnknown, "unknown command: %s", name)
	}

	id := uuid.NewString()
	log := r.logger.With("command", name, "invocation", id)
	log.Debug("invoking command", "args_bytes", len(args))
	start := time.Now()

	result, err := h(ctx, json.RawMessage(args))
	if err != nil {
		log.Warn("command failed", "code", string(errdef.CodeOf(err)), "error", err)
		return nil, err
	}

	out, err := json.Marshal(result)
	if err != nil {
		log.Error("encoding command result", "error", err)
		return nil, errdef.Wrap(errdef.CodeSerialization, err, "encoding %s result", name)
	}
	log.Debug("command finished", "elapsed", time.Since(start))
	return out, nil
}

// decodeArgs unmarshals a handler's argument bundle.
func decodeArgs(name string, args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return errdef.Wrap(errdef.CodeSerialization, err, "decoding %s arguments", name)
	}
	return nil
}
