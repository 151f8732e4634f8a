package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	return NewWithClient(client), srv
}

func TestSetGetJSON(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}

	if err := c.SetJSON(ctx, "signup:a@example.com", payload{Email: "a@example.com", Code: "123456"}, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var out payload
	if err := c.GetJSON(ctx, "signup:a@example.com", &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out.Code != "123456" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestCache(t)

	var out map[string]any
	err := c.GetJSON(context.Background(), "absent", &out)
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	if err := c.SetJSON(ctx, "k", map[string]string{"v": "1"}, time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	srv.FastForward(2 * time.Second)

	var out map[string]string
	if err := c.GetJSON(ctx, "k", &out); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after expiry, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetJSON(ctx, "k", 1, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
}
