package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test when none is running.
// The integration suite covers the same paths against a testcontainers Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func testKey(cursor string) CacheKey {
	return CacheKey{
		Host:        "users.roblox.com",
		Path:        "/v1/users/search",
		QueryParams: map[string][]string{"keyword": {"abc"}, "cursor": {cursor}},
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetGetDelete(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := testKey("c1")

	entry := &CacheEntry{
		Data:       []byte(`{"nextPageCursor":"c2","data":[]}`),
		ETag:       `"p1"`,
		Expires:    time.Now().Add(5 * time.Minute),
		StatusCode: 200,
	}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != string(entry.Data) || got.ETag != entry.ETag {
		t.Errorf("Get() = %+v, want %+v", got, entry)
	}

	if _, err := manager.Get(ctx, testKey("c2")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("other cursor: err = %v, want ErrCacheMiss", err)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("after Delete: err = %v, want ErrCacheMiss", err)
	}
}

func TestManager_SkipsExpiredEntries(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := testKey("c1")

	entry := &CacheEntry{Data: []byte("{}"), Expires: time.Now().Add(-time.Minute)}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v, want ErrCacheMiss", err)
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := testKey("c1")

	if err := manager.Set(ctx, key, &CacheEntry{Data: []byte("{}"), Expires: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(20 * time.Minute)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := got.Expires.Sub(newExpires); diff < -time.Second || diff > time.Second {
		t.Errorf("Expires = %v, want %v", got.Expires, newExpires)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	if err := manager.Set(context.Background(), testKey("c1"), nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}
