package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedReport struct {
	Kind       string   `json:"kind"`
	DaysLogged int      `json:"days_logged"`
	Insights   []string `json:"insights"`
}

func newMiniCache(t *testing.T, ttl time.Duration) (*RedisReportCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisReportCache(client, ttl), srv
}

func TestKeys(t *testing.T) {
	t.Parallel()

	if got := versionKey(42); got != "report:ver:42" {
		t.Fatalf("versionKey = %q", got)
	}
	got := reportKey(42, 3, "monthly", "2026-03-01", "2026-03-31")
	if got != "report:42:v3:monthly:2026-03-01:2026-03-31" {
		t.Fatalf("reportKey = %q", got)
	}
}

func TestUnreachableRedisSurfacesErrors(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewRedisReportCache(client, time.Minute)
	ctx := context.Background()

	var dst map[string]any
	if hit, err := c.Load(ctx, 1, "weekly", "a", "b", &dst); err == nil || hit {
		t.Fatalf("Load = %v, %v; want error", hit, err)
	}
	if err := c.Invalidate(ctx, 1); err == nil {
		t.Fatalf("Invalidate should fail without a server")
	}
}

func TestConnectRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := Connect(context.Background(), "not-a-url"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRedisReportCacheRoundTrip(t *testing.T) {
	t.Parallel()

	c, srv := newMiniCache(t, 10*time.Minute)
	ctx := context.Background()
	want := cachedReport{Kind: "weekly", DaysLogged: 4, Insights: []string{"keep going"}}

	var miss cachedReport
	if hit, err := c.Load(ctx, 7, "weekly", "2026-04-04", "2026-04-10", &miss); err != nil || hit {
		t.Fatalf("Load before Store = %v, %v; want miss", hit, err)
	}
	if err := c.Store(ctx, 7, "weekly", "2026-04-04", "2026-04-10", want); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var got cachedReport
	hit, err := c.Load(ctx, 7, "weekly", "2026-04-04", "2026-04-10", &got)
	if err != nil || !hit {
		t.Fatalf("Load = %v, %v; want hit", hit, err)
	}
	if got.Kind != want.Kind || got.DaysLogged != want.DaysLogged || len(got.Insights) != 1 || got.Insights[0] != "keep going" {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	key := reportKey(7, 0, "weekly", "2026-04-04", "2026-04-10")
	if !srv.Exists(key) {
		t.Fatalf("expected key %q in redis; keys = %v", key, srv.Keys())
	}
	if ttl := srv.TTL(key); ttl <= 0 || ttl > 10*time.Minute {
		t.Fatalf("ttl = %s, want (0, 10m]", ttl)
	}

	// Other users and other windows stay misses.
	if hit, _ := c.Load(ctx, 8, "weekly", "2026-04-04", "2026-04-10", &miss); hit {
		t.Fatalf("report leaked across users")
	}
	if hit, _ := c.Load(ctx, 7, "monthly", "2026-04-01", "2026-04-30", &miss); hit {
		t.Fatalf("report leaked across kinds")
	}
}

func TestRedisReportCacheInvalidateBumpsVersion(t *testing.T) {
	t.Parallel()

	c, srv := newMiniCache(t, time.Minute)
	ctx := context.Background()

	if err := c.Store(ctx, 3, "monthly", "2026-04-01", "2026-04-30", cachedReport{Kind: "monthly", DaysLogged: 2}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Store(ctx, 4, "monthly", "2026-04-01", "2026-04-30", cachedReport{Kind: "monthly", DaysLogged: 9}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Invalidate(ctx, 3); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if v, err := srv.Get(versionKey(3)); err != nil || v != "1" {
		t.Fatalf("version = %q, %v; want 1", v, err)
	}

	var got cachedReport
	if hit, err := c.Load(ctx, 3, "monthly", "2026-04-01", "2026-04-30", &got); err != nil || hit {
		t.Fatalf("Load after Invalidate = %v, %v; want miss", hit, err)
	}
	if hit, err := c.Load(ctx, 4, "monthly", "2026-04-01", "2026-04-30", &got); err != nil || !hit || got.DaysLogged != 9 {
		t.Fatalf("other user's report = %+v (hit %v, err %v)", got, hit, err)
	}

	// A fresh Store lands under the new version and is readable again.
	if err := c.Store(ctx, 3, "monthly", "2026-04-01", "2026-04-30", cachedReport{Kind: "monthly", DaysLogged: 5}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !srv.Exists(reportKey(3, 1, "monthly", "2026-04-01", "2026-04-30")) {
		t.Fatalf("expected versioned key; keys = %v", srv.Keys())
	}
	if hit, err := c.Load(ctx, 3, "monthly", "2026-04-01", "2026-04-30", &got); err != nil || !hit || got.DaysLogged != 5 {
		t.Fatalf("Load after re-Store = %+v (hit %v, err %v)", got, hit, err)
	}

	// Expired entries are misses, not errors.
	srv.FastForward(2 * time.Minute)
	if hit, err := c.Load(ctx, 3, "monthly", "2026-04-01", "2026-04-30", &got); err != nil || hit {
		t.Fatalf("Load after expiry = %v, %v; want miss", hit, err)
	}
}
