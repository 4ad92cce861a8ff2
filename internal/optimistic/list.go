// Package optimistic keeps a local list in sync with a remote store by
// applying changes locally first and restoring the previous items when the
// remote call fails.
package optimistic

import (
	"context"
	"sync"
)

// List is a mutex-guarded slice with optimistic mutations.
type List[T any] struct {
	mu    sync.Mutex
	items []T
}

func NewList[T any](items []T) *List[T] {
	return &List[T]{items: append([]T(nil), items...)}
}

// Items returns a copy of the current items.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Replace swaps in a fresh list, typically after a reload.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	l.items = append([]T(nil), items...)
	l.mu.Unlock()
}

// Apply runs local against the items, then remote. If remote fails the items
// are restored to what they were before local ran and the error is returned.
func (l *List[T]) Apply(ctx context.Context, local func([]T) []T, remote func(context.Context) error) error {
	l.mu.Lock()
	snapshot := append([]T(nil), l.items...)
	l.items = local(append([]T(nil), l.items...))
	l.mu.Unlock()

	if err := remote(ctx); err != nil {
		l.mu.Lock()
		l.items = snapshot
		l.mu.Unlock()
		return err
	}
	return nil
}

// Remove optimistically drops every item matching match.
func (l *List[T]) Remove(ctx context.Context, match func(T) bool, remote func(context.Context) error) error {
	return l.Apply(ctx, func(items []T) []T {
		out := items[:0]
		for _, it := range items {
			if !match(it) {
				out = append(out, it)
			}
		}
		return out
	}, remote)
}

// Update optimistically rewrites every item matching match.
func (l *List[T]) Update(ctx context.Context, match func(T) bool, update func(T) T, remote func(context.Context) error) error {
	return l.Apply(ctx, func(items []T) []T {
		for i, it := range items {
			if match(it) {
				items[i] = update(it)
			}
		}
		return items
	}, remote)
}
