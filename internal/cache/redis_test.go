package cache

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/weather-monitoring/internal/weather"
)

func TestSummaryKey(t *testing.T) {
	if got := summaryKey("Testville"); got != "weather:summary:latest:Testville" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestUnreachableRedisReportsErrors(t *testing.T) {
	// Grab a free port and release it so nothing is listening there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	c := NewRedisSummaryCache(client, time.Minute)
	defer c.Close()

	ctx := context.Background()
	if _, ok, err := c.GetSummary(ctx, "Testville"); err == nil || ok {
		t.Fatalf("expected a miss with an error, got ok=%v err=%v", ok, err)
	}
	if err := c.SetSummary(ctx, weather.Summary{City: "Testville"}); err == nil {
		t.Fatal("expected an error from SetSummary")
	}
}

// TestRoundTrip needs a live Redis; set TEST_REDIS_ADDR to run it.
func TestRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	c := NewRedisSummaryCache(client, time.Minute)
	defer c.Close()

	ctx := context.Background()
	city := "cache-test-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, summaryKey(city))

	if _, ok, err := c.GetSummary(ctx, city); err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}

	newer := weather.Summary{ID: 2, City: city, AvgTemperature: 21.5, ComputedAt: time.Now().UTC()}
	older := weather.Summary{ID: 1, City: city, AvgTemperature: 10, ComputedAt: newer.ComputedAt.Add(-time.Hour)}

	if err := c.SetSummary(ctx, newer); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.SetSummary(ctx, older); err != nil {
		t.Fatalf("set older: %v", err)
	}

	got, ok, err := c.GetSummary(ctx, city)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if got.ID != newer.ID || got.AvgTemperature != 21.5 {
		t.Fatalf("older summary overwrote the newer one: %+v", got)
	}
}

// TestConcurrentWritersKeepNewest needs a live Redis; set TEST_REDIS_ADDR to run it.
func TestConcurrentWritersKeepNewest(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	c := NewRedisSummaryCache(client, time.Minute)
	defer c.Close()

	ctx := context.Background()
	city := "cache-race-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, summaryKey(city))

	base := time.Now().UTC()
	const writers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		newest int64
	)
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := weather.Summary{ID: int64(i), City: city, ComputedAt: base.Add(time.Duration(i) * time.Second)}
			// A writer may give up after losing every retry; a successful one
			// must never be overwritten by an older summary.
			if c.SetSummary(ctx, s) == nil {
				mu.Lock()
				if s.ID > newest {
					newest = s.ID
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if err := c.SetSummary(ctx, weather.Summary{ID: 0, City: city, ComputedAt: base}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.GetSummary(ctx, city)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if got.ID < newest {
		t.Fatalf("summary %d overwrote the newer summary %d", got.ID, newest)
	}
}
