package settings

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("SLOTKEEPER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SLOTKEEPER_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	calls := 0
	src := &fakeSource{getFn: func(ctx context.Context, providerID string) (Payload, error) {
		calls++
		return validPayload(), nil
	}}
	cache := NewRedisCache(rdb, src, time.Minute, nil)
	cache.prefix = "slotkeeper:test:settings"

	providerID := "provider-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _ = cache.Invalidate(context.Background(), providerID) })

	for i := 0; i < 3; i++ {
		p, err := cache.Get(ctx, providerID)
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if p.Timezone != "UTC" || len(p.AppointmentTypes) != 1 {
			t.Fatalf("payload = %+v", p)
		}
	}
	if calls != 1 {
		t.Fatalf("source calls = %d, want 1", calls)
	}

	if err := cache.Invalidate(ctx, providerID); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	if _, err := cache.Get(ctx, providerID); err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("source calls after invalidate = %d, want 2", calls)
	}
}
