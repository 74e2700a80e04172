package server_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newRedisClient(t *testing.T, addr string) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Protocol:        2,
		DisableIdentity: true,
		MaxRetries:      -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestServer_RedisClient(t *testing.T) {
	// go-redis sends HELLO on connect and needs an error reply to fall back
	srv := startServer(t, true)
	client := newRedisClient(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %s", pong)
	}

	if err := client.Set(ctx, "foo", "bar", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, err := client.Get(ctx, "foo").Result()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "bar" {
		t.Errorf("expected bar, got %s", val)
	}

	if _, err := client.Get(ctx, "missing").Result(); !errors.Is(err, redis.Nil) {
		t.Errorf("Get(missing) error = %v, want redis.Nil", err)
	}

	echo, err := client.Echo(ctx, "hello").Result()
	if err != nil || echo != "hello" {
		t.Errorf("Echo() = %q, %v", echo, err)
	}

	info, err := client.Info(ctx, "replication").Result()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if !strings.HasPrefix(info, "role:master\n") || !strings.Contains(info, "master_repl_offset:0") {
		t.Errorf("Info(replication) = %q", info)
	}
}

func TestServer_RedisClientExpiry(t *testing.T) {
	srv := startServer(t, true)
	client := newRedisClient(t, srv.Addr())
	ctx := context.Background()

	// Sub-second expirations are sent as PX
	if err := client.Set(ctx, "session", "token", 100*time.Millisecond).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if val, err := client.Get(ctx, "session").Result(); err != nil || val != "token" {
		t.Fatalf("Get() = %q, %v", val, err)
	}

	time.Sleep(150 * time.Millisecond)
	if _, err := client.Get(ctx, "session").Result(); !errors.Is(err, redis.Nil) {
		t.Errorf("Get() after expiry error = %v, want redis.Nil", err)
	}
}

func TestServer_RedisClientEval(t *testing.T) {
	srv := startServer(t, true)
	client := newRedisClient(t, srv.Addr())
	ctx := context.Background()

	script := "redis.call('SET', KEYS[1], ARGV[1]); return redis.call('GET', KEYS[1])"
	result, err := client.Eval(ctx, script, []string{"lua:key"}, "lua:value").Result()
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if result != "lua:value" {
		t.Errorf("Eval() = %v, want lua:value", result)
	}

	n, err := client.Eval(ctx, "return #KEYS + #ARGV", []string{"a", "b"}, "c").Int64()
	if err != nil || n != 3 {
		t.Errorf("Eval() = %d, %v, want 3", n, err)
	}
}

func TestServer_RedisClientConcurrent(t *testing.T) {
	srv := startServer(t, true)
	client := newRedisClient(t, srv.Addr())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := client.Incr(ctx, "unsupported").Err(); err == nil {
					t.Error("INCR should be rejected")
					return
				}
				if err := client.Ping(ctx).Err(); err != nil {
					t.Errorf("Ping() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
