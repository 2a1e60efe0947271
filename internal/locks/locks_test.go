package locks

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLockerSerialisesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, ReservationKey(1))
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	if maxActive.Load() != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxActive.Load())
	}
	if len(locker.entries) != 0 {
		t.Fatalf("expected entries to be cleaned up, found %d", len(locker.entries))
	}
}

func TestLocalLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, CourtDateKey(1, "2030-01-01"))
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, CourtDateKey(1, "2030-01-02"))
	if err != nil {
		t.Fatalf("lock b should not block: %v", err)
	}
	unlockB()
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), ReservationKey(7))
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, ReservationKey(7)); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
}

func TestLocalLockerUnlockIsIdempotent(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), ReservationKey(3))
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	again, err := locker.Lock(ctx, ReservationKey(3))
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("PADEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PADEL_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	locker := NewRedisLocker(client, time.Second)
	unlock, err := locker.Lock(ctx, "test:redis-locker")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(waitCtx, "test:redis-locker"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected second lock to fail, got %v", err)
	}

	unlock()
	again, err := locker.Lock(ctx, "test:redis-locker")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	again()
}
