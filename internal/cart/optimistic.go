package cart

import "context"

// Transactional applies a change to a cached value before the remote commit and puts the
// snapshot back when the commit fails. Mutate must return a new value and leave its argument intact.
type Transactional[T any] struct {
	Load  func(ctx context.Context) (T, bool, error)
	Store func(ctx context.Context, value T) error
}

// Do runs mutate against the cached value, then commit. It returns commit's error unchanged.
// Cache failures never block the commit.
func (t Transactional[T]) Do(ctx context.Context, mutate func(T) T, commit func(ctx context.Context) error) error {
	snapshot, cached, err := t.Load(ctx)
	if err != nil {
		cached = false
	}
	if cached {
		if err := t.Store(ctx, mutate(snapshot)); err != nil {
			cached = false
		}
	}
	if err := commit(ctx); err != nil {
		if cached {
			_ = t.Store(ctx, snapshot)
		}
		return err
	}
	return nil
}
