package privacy

import (
	"context"
	"time"
)

// AwaitConfirmed polls lock until the backend confirms that privacy mode is in
// effect for connID. The lock never blocks on asynchronous backends itself, so
// callers use this with a context carrying their own timeout.
//
// It returns ErrNotOwner if connID stops holding the lock while waiting and
// ctx.Err() if the context ends first.
func AwaitConfirmed(ctx context.Context, lock IPrivacyLock, connID ConnID, interval time.Duration) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if lock.CurrentOwner() != connID {
			return ErrNotOwner
		}

		ok, err := lock.Confirmed(connID)
		if err != nil {
			Logger.Debugf("confirmation for connection %d failed: %v", connID, err)
		} else if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
