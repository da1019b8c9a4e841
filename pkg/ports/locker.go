package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one participant across replicas sharing a store.
// The in-process session.Manager already orders events within a process; this
// extends the guarantee to every process talking to the same backend.
type DistributedLocker interface {
	// Lock blocks until the key is held or ctx is done. The lock expires after ttl
	// even if the holder crashes before calling the returned UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
