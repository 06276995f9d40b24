package privacy

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestAwaitConfirmed tests waiting for an asynchronous backend
func TestAwaitConfirmed(t *testing.T) {
	b := &asyncFakeBackend{}
	lock := NewPrivacyLock(b, "async")

	if _, err := lock.Acquire(7); err != nil {
		t.Fatalf("Acquire(7) failed: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		b.confirmed.Store(true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := AwaitConfirmed(ctx, lock, 7, 5*time.Millisecond); err != nil {
		t.Fatalf("AwaitConfirmed() failed: %v", err)
	}
}

// TestAwaitConfirmedTimeout tests that the caller's deadline is honored
func TestAwaitConfirmedTimeout(t *testing.T) {
	lock := NewPrivacyLock(&asyncFakeBackend{}, "async")
	lock.Acquire(7) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err := AwaitConfirmed(ctx, lock, 7, 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AwaitConfirmed() error = %v, want context.DeadlineExceeded", err)
	}
}

// TestAwaitConfirmedNotOwner tests waiting for a connection that does not hold the lock
func TestAwaitConfirmedNotOwner(t *testing.T) {
	lock := NewPrivacyLock(&asyncFakeBackend{}, "async")
	lock.Acquire(7) //nolint:errcheck

	err := AwaitConfirmed(context.Background(), lock, 8, time.Millisecond)
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("AwaitConfirmed() error = %v, want ErrNotOwner", err)
	}
}
