// Package locking provides keyed mutual exclusion with bounded waits.
package locking

import "context"

// Unlocker releases an acquired lock.
type Unlocker interface {
	Unlock(ctx context.Context) error
}

// Locker acquires exclusive access to a key.
//
// Lock blocks until the key is free or ctx is done; a wait that ends without the
// lock returns a *domain.ContentionError.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlocker, error)
}
