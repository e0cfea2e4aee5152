package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisDedup(t *testing.T) *RedisDedup {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewRedisDedup(client, time.Hour)
}

func TestFirstDeliveryAppliesOnce(t *testing.T) {
	dedup := newRedisDedup(t)
	ctx := context.Background()

	first, err := dedup.FirstDelivery(ctx, "delivery-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first {
		t.Fatal("expected first delivery to be accepted")
	}

	again, err := dedup.FirstDelivery(ctx, "delivery-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again {
		t.Fatal("expected redelivery to be filtered")
	}
}

func TestDistinctDeliveriesAreIndependent(t *testing.T) {
	dedup := newRedisDedup(t)
	ctx := context.Background()

	if first, _ := dedup.FirstDelivery(ctx, "delivery-1"); !first {
		t.Fatal("expected delivery-1 to be accepted")
	}
	if first, _ := dedup.FirstDelivery(ctx, "delivery-2"); !first {
		t.Fatal("expected delivery-2 to be accepted")
	}
}

func TestEmptyDeliveryIDAlwaysFirst(t *testing.T) {
	dedup := newRedisDedup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		first, err := dedup.FirstDelivery(ctx, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !first {
			t.Fatal("empty delivery id must always be treated as first")
		}
	}
}

func TestNoopDedupAppliesEverything(t *testing.T) {
	var dedup NoopDedup
	first, err := dedup.FirstDelivery(context.Background(), "delivery-1")
	if err != nil || !first {
		t.Fatalf("expected noop dedup to accept everything, got (%v, %v)", first, err)
	}
	first, err = dedup.FirstDelivery(context.Background(), "delivery-1")
	if err != nil || !first {
		t.Fatalf("expected noop dedup to accept redelivery, got (%v, %v)", first, err)
	}
}
