package router

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/protocol"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/telemetry"
)

// Factory builds a domain event from a decoded payload.
type Factory func(payload any) (telemetry.Event, error)

// Registry maps message tags to factories.
//
// Thread Safety: all methods are safe for concurrent use. After Freeze the
// map is only read.
type Registry struct {
	mu        sync.RWMutex
	factories map[uint16]Factory
	frozen    bool
}

// New creates an empty, writable registry.
func New() *Registry {
	return &Registry{factories: make(map[uint16]Factory)}
}

// NewDefault returns a frozen registry with the real-data tags and the
// app-info tag registered.
func NewDefault() (*Registry, error) {
	r := New()
	for _, tag := range protocol.RealDataTags {
		if err := r.Register(tag, RealDataFactory(tag)); err != nil {
			return nil, err
		}
	}
	if err := r.Register(protocol.TagAppInfo, AppInfoFactory(protocol.TagAppInfo)); err != nil {
		return nil, err
	}
	r.Freeze()
	return r, nil
}

// Register associates tag with f. Several tags may share one factory.
func (r *Registry) Register(tag uint16, f Factory) error {
	if f == nil {
		return fmt.Errorf("%w: tag %d", ErrNilFactory, tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: tag %d", ErrRegistryFrozen, tag)
	}
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateTag, tag)
	}
	r.factories[tag] = f
	return nil
}

// Freeze makes the registry read-only. Calling it twice is harmless.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Tags returns the registered tags in ascending order.
func (r *Registry) Tags() []uint16 {
	r.mu.RLock()
	tags := make([]uint16, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	r.mu.RUnlock()

	slices.Sort(tags)
	return tags
}

// Dispatch builds the event for tag from payload.
//
// Unknown tags return *UnhandledError. A factory error or panic is returned
// wrapped in ErrInvalidPayload.
func (r *Registry) Dispatch(tag uint16, payload any) (ev telemetry.Event, err error) {
	r.mu.RLock()
	f, ok := r.factories[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnhandledError{Tag: tag}
	}

	defer func() {
		if rec := recover(); rec != nil {
			ev = nil
			err = fmt.Errorf("%w: tag %d: factory panic: %v", ErrInvalidPayload, tag, rec)
		}
	}()

	ev, err = f(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: tag %d: %w", ErrInvalidPayload, tag, err)
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: tag %d: factory returned no event", ErrInvalidPayload, tag)
	}
	return ev, nil
}
