// Package optimistic applies a local value immediately and reconciles it
// with the backend afterwards. A failed mutation restores the value that
// was shown before it.
package optimistic

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/ciphersafe/internal/client/pending"
)

// ErrPending rejects a second mutation while one is in flight.
var ErrPending = pending.ErrPending

// Mutation persists v on the backend.
type Mutation[T any] func(ctx context.Context, v T) error

// Field is a locally displayed value with at most one backend mutation in
// flight.
type Field[T comparable] struct {
	mu        sync.Mutex
	value     T
	disposed  bool
	observers []func(T)

	inflight pending.Guard
}

func NewField[T comparable](initial T) *Field[T] {
	return &Field[T]{value: initial}
}

func (f *Field[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *Field[T]) Pending() bool { return f.inflight.Busy() }

// OnChange registers fn for every displayed value change.
func (f *Field[T]) OnChange(fn func(T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// Set shows v at once and persists it with mutate. On failure the previous
// value is restored and the error returned.
func (f *Field[T]) Set(ctx context.Context, v T, mutate Mutation[T]) error {
	return f.Update(ctx, func(T) T { return v }, mutate)
}

// Update derives the new value from the current one under the field lock,
// then behaves like Set.
func (f *Field[T]) Update(ctx context.Context, next func(cur T) T, mutate Mutation[T]) error {
	done, ok := f.inflight.TryStart()
	if !ok {
		return ErrPending
	}
	defer done()

	f.mu.Lock()
	prev := f.value
	target := next(prev)
	f.value = target
	f.mu.Unlock()
	f.changed(target)

	err := mutate(ctx, target)
	if err == nil {
		return nil
	}

	f.mu.Lock()
	if f.disposed || f.value != target {
		f.mu.Unlock()
		return err
	}
	f.value = prev
	f.mu.Unlock()
	f.changed(prev)
	return err
}

// Sync replaces the value with the authoritative one, e.g. after the list
// was refetched. Ignored while a mutation is in flight.
func (f *Field[T]) Sync(v T) {
	if f.inflight.Busy() {
		return
	}
	f.mu.Lock()
	if f.disposed || f.value == v {
		f.mu.Unlock()
		return
	}
	f.value = v
	f.mu.Unlock()
	f.changed(v)
}

// Dispose detaches observers; a mutation that completes afterwards no
// longer touches the value.
func (f *Field[T]) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disposed = true
	f.observers = nil
}

func (f *Field[T]) changed(v T) {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return
	}
	observers := slices.Clone(f.observers)
	f.mu.Unlock()

	for _, fn := range observers {
		fn(v)
	}
}

// Toggle is a boolean Field, used for favorites.
type Toggle struct {
	*Field[bool]
}

func NewToggle(initial bool) *Toggle {
	return &Toggle{Field: NewField(initial)}
}

// Flip inverts the shown value and persists the new target.
func (t *Toggle) Flip(ctx context.Context, mutate Mutation[bool]) error {
	return t.Update(ctx, func(cur bool) bool { return !cur }, mutate)
}
