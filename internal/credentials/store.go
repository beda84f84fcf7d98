package credentials

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable marks a store failure caused by the backing storage being
// unreachable. A missing record is not an error: Get reports it via ok=false.
var ErrUnavailable = errors.New("credentials: store unavailable")

// Store maps a Telegram user to their encrypted API key. At most one record
// exists per user; Put replaces any prior record atomically.
type Store interface {
	// Get returns the decrypted secret for the user. ok is false when no
	// record exists. Errors wrap ErrUnavailable on I/O failure.
	Get(ctx context.Context, userID int64) (secret string, ok bool, err error)
	// Put encrypts and stores the secret, overwriting any existing record.
	Put(ctx context.Context, userID int64, secret string) error
}

// userLocks serializes store access per user id without blocking unrelated
// users. Striped to keep the structure fixed-size.
type userLocks [64]sync.Mutex

func (l *userLocks) lock(userID int64) *sync.Mutex {
	idx := userID % int64(len(l))
	if idx < 0 {
		idx = -idx
	}
	return &l[idx]
}
