// Package registry implements the thread-safe handler container shared by
// every capability family, together with the three selection algorithms the
// families choose from.
//
// A Registry only guards its list: handler ids and ranks are captured when a
// handler is registered, and every query copies the list under the lock and
// runs user predicates on the copy after the lock is released.
package registry

import (
	"cmp"
	"reflect"
	"slices"
	"sync"

	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
)

// Handler is the minimal contract of every capability handler.
type Handler interface {
	ID() string
}

// Prioritized handlers take part in priority-based selection. Higher wins.
type Prioritized interface {
	Handler
	Priority() int
}

// Settings are shared by all registries of one extensions container.
type Settings struct {
	Logger   loggingpkg.ServiceLogger
	Observer Observer
	// StrictIDs rejects a second handler with an id that is already
	// registered. When false the duplicate is kept as an independent entry.
	StrictIDs bool
}

type entry[H Handler] struct {
	handler H
	id      string
	rank    int
}

// Registry is an ordered, mutex-guarded list of handlers of one family.
type Registry[H Handler] struct {
	family   string
	strict   bool
	rank     func(H) int
	logger   loggingpkg.ServiceLogger
	observer Observer

	mu      sync.Mutex
	entries []entry[H]
}

// New creates a registry that keeps handlers in registration order.
func New[H Handler](family string, settings Settings) *Registry[H] {
	return &Registry[H]{
		family:   family,
		strict:   settings.StrictIDs,
		logger:   loggingpkg.OrNop(settings.Logger).With(loggingpkg.LogFields{"family": family}),
		observer: orNopObserver(settings.Observer),
	}
}

// NewRanked creates a registry that re-sorts its list on every registration
// by rank descending. Equal ranks keep registration order.
func NewRanked[H Handler](family string, settings Settings, rank func(H) int) *Registry[H] {
	r := New[H](family, settings)
	r.rank = rank
	return r
}

// Family returns the capability family name the registry was created with.
func (r *Registry[H]) Family() string {
	return r.family
}

// isNil catches untyped nils and typed nil pointers stored in the interface.
func isNil(h any) bool {
	if h == nil {
		return true
	}
	switch v := reflect.ValueOf(h); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Register appends h. It fails only for a nil handler, an empty id, or a
// duplicate id when strict ids are enabled.
func (r *Registry[H]) Register(h H) error {
	if isNil(h) {
		return errspkg.ErrHandlerRequired
	}
	id := h.ID()
	if id == "" {
		return errspkg.ErrHandlerIDRequired
	}
	e := entry[H]{handler: h, id: id}
	if r.rank != nil {
		e.rank = r.rank(h)
	}

	r.mu.Lock()
	duplicate := r.containsLocked(id)
	if duplicate && r.strict {
		r.mu.Unlock()
		r.observer.ObserveRegistration(r.family, id, RegistrationRejected)
		return &errspkg.DuplicateHandlerError{Family: r.family, ID: id}
	}
	r.entries = append(r.entries, e)
	if r.rank != nil {
		slices.SortStableFunc(r.entries, func(a, b entry[H]) int {
			return cmp.Compare(b.rank, a.rank)
		})
	}
	total := len(r.entries)
	r.mu.Unlock()

	if duplicate {
		r.observer.ObserveRegistration(r.family, id, RegistrationDuplicate)
		r.logger.Info("Duplicate handler id registered; both entries are kept", loggingpkg.LogFields{
			"handler_id": id,
		})
	} else {
		r.observer.ObserveRegistration(r.family, id, RegistrationAccepted)
	}
	r.logger.Debug("Registered handler", loggingpkg.LogFields{
		"handler_id": id,
		"total":      total,
	})
	return nil
}

func (r *Registry[H]) containsLocked(id string) bool {
	for _, e := range r.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

// All returns a copy of the current list.
func (r *Registry[H]) All() []H {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]H, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.handler
	}
	return out
}

// IDs returns the registered ids in list order.
func (r *Registry[H]) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.id
	}
	return out
}

// Len returns the number of registered entries.
func (r *Registry[H]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset drops every handler. Meant for tests and container teardown.
func (r *Registry[H]) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// Record reports the outcome of a selection made on this registry's snapshot.
func (r *Registry[H]) Record(outcome Outcome) {
	r.observer.ObserveSelection(r.family, outcome)
}
