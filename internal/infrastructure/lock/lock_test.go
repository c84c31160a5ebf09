package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDistributedLockMutualExclusion(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	a := NewDistributedLock(client, "k", "owner-a", time.Minute)
	b := NewDistributedLock(client, "k", "owner-b", time.Minute)

	if ok, err := a.TryLock(ctx); !ok || err != nil {
		t.Fatalf("a.TryLock = %v, %v", ok, err)
	}
	if ok, _ := b.TryLock(ctx); ok {
		t.Fatal("b acquired a held lock")
	}
	if err := b.Lock(ctx, time.Millisecond, 3); !errors.Is(err, ErrLockFailed) {
		t.Fatalf("b.Lock err = %v, want ErrLockFailed", err)
	}
}

func TestDistributedLockUnlockChecksOwner(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewDistributedLock(client, "k", "owner-a", time.Minute)
	b := NewDistributedLock(client, "k", "owner-b", time.Minute)
	if _, err := a.TryLock(ctx); err != nil {
		t.Fatal(err)
	}

	if err := b.Unlock(ctx); err != nil {
		t.Fatalf("b.Unlock: %v", err)
	}
	if got, _ := mr.Get("k"); got != "owner-a" {
		t.Fatalf("foreign unlock removed the key, value=%q", got)
	}

	if err := a.Unlock(ctx); err != nil {
		t.Fatalf("a.Unlock: %v", err)
	}
	if mr.Exists("k") {
		t.Fatal("owner unlock left the key behind")
	}
}

func TestDistributedLockExpires(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	a := NewDistributedLock(client, "k", "a", time.Second)
	if _, err := a.TryLock(ctx); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)

	b := NewDistributedLock(client, "k", "b", time.Second)
	if ok, _ := b.TryLock(ctx); !ok {
		t.Fatal("expired lock was not released")
	}
}

func exerciseLocker(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, AccountKey(1), AccountKey(2))
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
}

func TestRedisLockerSerializes(t *testing.T) {
	_, client := newRedis(t)
	exerciseLocker(t, NewRedisLocker(client, time.Minute, time.Millisecond, 5000, zerolog.Nop()))
}

func TestLocalLockerSerializes(t *testing.T) {
	exerciseLocker(t, NewLocalLocker())
}

func TestLocalLockerOppositeOrderDoesNotDeadlock(t *testing.T) {
	l := NewLocalLocker()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, AccountKey(1), AccountKey(2))
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			release()
		}()
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, AccountKey(2), AccountKey(1))
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			release()
		}()
	}
	wg.Wait()

	if len(l.slots) != 0 {
		t.Errorf("slots leaked: %d", len(l.slots))
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRedisLockerReleasesPartialOnFailure(t *testing.T) {
	mr, client := newRedis(t)
	if err := mr.Set(AccountKey(2), "someone-else"); err != nil {
		t.Fatal(err)
	}
	l := NewRedisLocker(client, time.Minute, time.Millisecond, 2, zerolog.Nop())

	if _, err := l.Acquire(context.Background(), AccountKey(2), AccountKey(1)); err == nil {
		t.Fatal("expected failure while key 2 is held elsewhere")
	}
	if mr.Exists(AccountKey(1)) {
		t.Error("key 1 should have been released after the failed acquire")
	}
}
