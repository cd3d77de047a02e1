package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T) *CacheHelper {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, "test:")
}

func TestCacheHelper_SetGet(t *testing.T) {
	ctx := context.Background()
	helper := newTestHelper(t)

	type payload struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	want := payload{ID: 7, Name: "golang"}
	if err := helper.Set(ctx, "subject:7", want, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got payload
	if err := helper.Get(ctx, "subject:7", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestCacheHelper_GetMissing(t *testing.T) {
	ctx := context.Background()
	helper := newTestHelper(t)

	var dest uint
	err := helper.Get(ctx, "absent", &dest)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("Get of absent key = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_Delete(t *testing.T) {
	ctx := context.Background()
	helper := newTestHelper(t)

	for _, key := range []string{"a", "b", "c"} {
		if err := helper.Set(ctx, key, key, time.Minute); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	if err := helper.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var dest string
	if err := helper.Get(ctx, "a", &dest); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("deleted key still present, err = %v", err)
	}
	if err := helper.Get(ctx, "c", &dest); err != nil {
		t.Errorf("untouched key missing, err = %v", err)
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	helper := newTestHelper(t)

	keys := []string{"correct:1", "correct:2", "other:1"}
	for _, key := range keys {
		if err := helper.Set(ctx, key, 1, time.Minute); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "correct:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	var dest int
	for _, key := range []string{"correct:1", "correct:2"} {
		if err := helper.Get(ctx, key, &dest); !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("key %s survived pattern invalidation, err = %v", key, err)
		}
	}
	if err := helper.Get(ctx, "other:1", &dest); err != nil {
		t.Errorf("unrelated key was invalidated, err = %v", err)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	ctx := context.Background()
	helper := NewCacheHelper(nil, "test:")

	if err := helper.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Errorf("Set with nil client should degrade gracefully, got %v", err)
	}

	var dest int
	if err := helper.Get(ctx, "k", &dest); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get with nil client = %v, want ErrCacheNotAvailable", err)
	}
}
