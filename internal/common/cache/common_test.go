package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c, err := NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func intCodec() (func(int) bool, func(int) string, func(string) (int, error)) {
	isEmpty := func(v int) bool { return v == 0 }
	marshal := func(v int) string { return strconv.Itoa(v) }
	unmarshal := func(s string) (int, error) { return strconv.Atoi(s) }
	return isEmpty, marshal, unmarshal
}

func TestGetWithCachedFetchesOnceAndCaches(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	isEmpty, marshal, unmarshal := intCodec()

	fetches := 0
	fetch := func(ctx context.Context) (int, error) {
		fetches++
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		v, found, err := GetWithCached(context.Background(), c, "k", time.Minute, time.Minute, isEmpty, marshal, unmarshal, fetch)
		if err != nil {
			t.Fatalf("GetWithCached: %v", err)
		}
		if !found || v != 7 {
			t.Fatalf("unexpected result %d found=%v", v, found)
		}
	}
	if fetches != 1 {
		t.Fatalf("expected a single fetch, got %d", fetches)
	}
}

func TestGetWithCachedCachesEmptyResults(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	isEmpty, marshal, unmarshal := intCodec()

	fetches := 0
	fetch := func(ctx context.Context) (int, error) {
		fetches++
		return 0, nil
	}

	for i := 0; i < 2; i++ {
		_, found, err := GetWithCached(context.Background(), c, "missing", time.Minute, time.Minute, isEmpty, marshal, unmarshal, fetch)
		if err != nil {
			t.Fatalf("GetWithCached: %v", err)
		}
		if found {
			t.Fatal("expected not found")
		}
	}
	if fetches != 1 {
		t.Fatalf("absence should be cached, got %d fetches", fetches)
	}
}

func TestGetWithCachedPropagatesFetchError(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	isEmpty, marshal, unmarshal := intCodec()
	want := errors.New("backing store down")

	_, _, err := GetWithCached(context.Background(), c, "err", time.Minute, time.Minute, isEmpty, marshal, unmarshal,
		func(ctx context.Context) (int, error) { return 0, want })
	if !errors.Is(err, want) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestRedisCacheGetMissing(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	val, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "" {
		t.Fatalf("expected empty value, got %q", val)
	}
}
