package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockAcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "drip:campaign-1", time.Minute)

	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	// A second instance for the same key must not acquire while held
	other := NewRedisLock(client, "drip:campaign-1", time.Minute)
	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to fail while lock is held")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if !ok {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestRedisLockReleaseOnlyIfOwned(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	held := NewRedisLock(client, "drip:campaign-2", time.Minute)
	if ok, _ := held.Acquire(ctx); !ok {
		t.Fatal("setup: acquire failed")
	}

	// A stranger releasing the same key must be a no-op
	stranger := NewRedisLock(client, "drip:campaign-2", time.Minute)
	if err := stranger.Release(ctx); err != nil {
		t.Fatalf("stranger release: %v", err)
	}

	other := NewRedisLock(client, "drip:campaign-2", time.Minute)
	if ok, _ := other.Acquire(ctx); ok {
		t.Fatal("lock was released by a non-owner")
	}
}

func TestRedisLockDifferentKeysIndependent(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "drip:campaign-a", time.Minute)
	b := NewRedisLock(client, "drip:campaign-b", time.Minute)

	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("acquire a failed")
	}
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("acquire b failed; keys should be independent")
	}
}
