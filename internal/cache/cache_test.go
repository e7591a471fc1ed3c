package cache

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	intermediary := "06789"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, intermediary, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, intermediary, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, intermediary, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, intermediary, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, intermediary, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, intermediary, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, intermediary, "expiring", []byte("temp"), 10*time.Millisecond)

		val, _ := cache.Get(ctx, intermediary, "expiring")
		if string(val) != "temp" {
			t.Error("expected value before expiry")
		}

		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, intermediary, "expiring")
		if val != nil {
			t.Error("expected nil after expiry")
		}
	})

	t.Run("IntermediaryIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "11111", "shared", []byte("mine"), time.Minute)

		val, _ := cache.Get(ctx, "22222", "shared")
		if val != nil {
			t.Error("expected no cross-intermediary reads")
		}
	})

	t.Run("RequiresIntermediary", func(t *testing.T) {
		if _, err := cache.Get(ctx, "", "key"); err == nil {
			t.Error("expected error for missing intermediary code")
		}
		if err := cache.Set(ctx, "", "key", []byte("v"), time.Minute); err == nil {
			t.Error("expected error for missing intermediary code")
		}
	})
}

func TestLRUEviction(t *testing.T) {
	cache := NewLRUCache(2)
	ctx := context.Background()
	intermediary := "06789"

	_ = cache.Set(ctx, intermediary, "a", []byte("1"), time.Minute)
	_ = cache.Set(ctx, intermediary, "b", []byte("2"), time.Minute)

	// touch a so b becomes the oldest
	_, _ = cache.Get(ctx, intermediary, "a")

	_ = cache.Set(ctx, intermediary, "c", []byte("3"), time.Minute)

	if val, _ := cache.Get(ctx, intermediary, "b"); val != nil {
		t.Error("expected b evicted")
	}
	if val, _ := cache.Get(ctx, intermediary, "a"); val == nil {
		t.Error("expected a retained")
	}

	size, capacity := cache.Stats()
	if size != 2 || capacity != 2 {
		t.Errorf("stats = %d/%d, want 2/2", size, capacity)
	}
}

func TestLatestPredictionsRoundTrip(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	intermediary := "06789"

	rows := []*domain.RegistryEntry{
		{
			RegistryScope: domain.RegistryScope{SystemID: "KESTREL", ControlCode: "SCORING", IntermediaryCode: intermediary},
			CustomerID:    "0000000000000001",
			ReportDate:    time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
			Prediction:    0.87,
			ModelName:     "kestrel-20240101",
		},
	}

	if err := cache.SetLatestPredictions(ctx, intermediary, "latest_predictions", rows, time.Minute); err != nil {
		t.Fatalf("SetLatestPredictions failed: %v", err)
	}

	got, err := cache.GetLatestPredictions(ctx, intermediary, "latest_predictions")
	if err != nil {
		t.Fatalf("GetLatestPredictions failed: %v", err)
	}
	if len(got) != 1 || got[0].CustomerID != "0000000000000001" || got[0].Prediction != 0.87 {
		t.Errorf("rows = %+v", got)
	}

	// miss
	got, err = cache.GetLatestPredictions(ctx, intermediary, "other")
	if err != nil || got != nil {
		t.Errorf("expected miss, got %v, %v", got, err)
	}
}

func TestFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if _, err := New(domain.CacheConfig{Type: "bogus"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
