package cron

import (
	"context"
	"testing"
	"time"
)

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockMutualExclusion(t *testing.T) {
	store := newFakeRedisStore()
	first, err := NewRedisLock(store, "cron:billing", time.Hour)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, err := NewRedisLock(store, "cron:billing", time.Hour)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := first.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("first acquire: %v %v", ok, err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatalf("second instance must not acquire a held lock")
	}

	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("acquire after release: %v %v", ok, err)
	}
}

func TestRedisLockReleaseIgnoresForeignOwner(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "cron:billing", time.Hour)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	if _, err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// Simulate expiry plus takeover by another worker.
	store.values["cron:billing"] = "someone-else"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["cron:billing"] != "someone-else" {
		t.Fatalf("release must not delete a lock it no longer owns")
	}
}
