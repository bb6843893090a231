package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c := NewMemory(4)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "ibge:states", []byte(`["SP"]`), time.Minute); err != nil {
		t.Fatal(err)
	}

	if val, ok, _ := c.Get(ctx, "ibge:states"); !ok || string(val) != `["SP"]` {
		t.Fatalf("got %q, %v", val, ok)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "ibge:states"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)

	_ = c.Set(ctx, "a", []byte("1"), time.Hour)
	_ = c.Set(ctx, "b", []byte("2"), time.Hour)
	_, _, _ = c.Get(ctx, "a")
	_ = c.Set(ctx, "c", []byte("3"), time.Hour)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Error("a should be kept")
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Error("c should be kept")
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(1)

	val := []byte("abc")
	_ = c.Set(ctx, "k", val, time.Hour)
	val[0] = 'x'

	got, _, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("cache shares caller buffer: %q", got)
	}
}

func TestRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	c := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")
	defer func() { _ = c.Close() }()

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "ibge:cities:SP", []byte(`["Santos"]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("test:ibge:cities:SP") {
		t.Fatal("key not namespaced")
	}

	val, ok, err := c.Get(ctx, "ibge:cities:SP")
	if err != nil || !ok || string(val) != `["Santos"]` {
		t.Fatalf("got %q ok=%v err=%v", val, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "ibge:cities:SP"); ok {
		t.Fatal("key should have expired")
	}
}

func TestOpenRedisFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := OpenRedis(ctx, addr, "", 0); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	c, closeFn, err := Open(ctx, "", "", 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	closeFn()
	if _, ok := c.(*Memory); !ok {
		t.Fatalf("empty addr: got %T", c)
	}

	mr := miniredis.RunT(t)
	c, closeFn, err = Open(ctx, mr.Addr(), "", 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if _, ok := c.(*Redis); !ok {
		t.Fatalf("redis addr: got %T", c)
	}
}
