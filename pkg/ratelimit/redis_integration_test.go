//go:build integration

package ratelimit

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisWindow_Integration_SharedCeiling(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	window := 500 * time.Millisecond

	// Two budgets on the same key behave like two processes.
	a := NewRedisWindow(redisClient, "test:window", 3, window, logger)
	b := NewRedisWindow(redisClient, "test:window", 3, window, logger)

	ctx := context.Background()
	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup

	for i := 0; i < 9; i++ {
		budget := a
		if i%2 == 1 {
			budget = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := budget.Acquire(ctx); err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(stamps) != 9 {
		t.Fatalf("got %d acquisitions, want 9", len(stamps))
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	if total := stamps[8].Sub(stamps[0]); total < 2*window-50*time.Millisecond {
		t.Errorf("9 acquisitions at 3 per %v completed in %v", window, total)
	}

	count, err := redisClient.ZCard(ctx, "test:window").Result()
	if err != nil {
		t.Fatalf("ZCard() error = %v", err)
	}
	if count > 3 {
		t.Errorf("window holds %d members, want <= 3", count)
	}
}

func TestRedisWindow_Integration_Cancellation(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	w := NewRedisWindow(redisClient, "test:cancel", 1, time.Minute, logger)

	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := w.Acquire(ctx); err == nil {
		t.Error("Acquire() on full window should fail when context expires")
	}
}
