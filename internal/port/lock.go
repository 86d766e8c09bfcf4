package port

import "context"

// Lock is a held mutual-exclusion lease.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes work on one key across processes.
type Locker interface {
	Obtain(ctx context.Context, key string) (Lock, error)
}
