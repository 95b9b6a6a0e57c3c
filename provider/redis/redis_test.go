package redis

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestNilClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("want ErrNilClient, got %v", err)
	}
}

func TestRedisProviderRoundTripAndDefaultTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	p, err := New(Config{
		Client:      goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
		TTL:         time.Hour,
		CloseClient: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []byte{0, 1, 2, 0xFF}
	if ok, err := p.Set(ctx, "bean:cart:1", want, 0, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL("bean:cart:1"); ttl != time.Hour {
		t.Fatalf("default TTL not applied: %v", ttl)
	}
	got, ok, err := p.Get(ctx, "bean:cart:1")
	if err != nil || !ok || !bytes.Equal(got, want) {
		t.Fatalf("Get: ok=%v err=%v got=%x", ok, err, got)
	}
	if err := p.Del(ctx, "bean:cart:1"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, err := p.Get(ctx, "bean:cart:1"); err != nil || ok {
		t.Fatalf("Get after Del: ok=%v err=%v", ok, err)
	}

	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRedisProviderTransportError(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	p, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mr.Close()
	if _, _, err := p.Get(ctx, "k"); err == nil {
		t.Fatalf("expected transport error after server shutdown")
	}
}
