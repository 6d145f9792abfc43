package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/wrale/oauth2-home-broker/internal/provider"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisBackendRoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	b := NewRedisBackend(client)
	ctx := context.Background()

	rec := &Record{
		UserID:       "user1",
		Provider:     "smartthings",
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    baseTime.Add(time.Hour),
		CreatedAt:    baseTime,
	}
	if err := b.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !mr.Exists("oauthtoken:smartthings:user1") {
		t.Fatal("expected key oauthtoken:smartthings:user1")
	}
	if ttl := mr.TTL("oauthtoken:smartthings:user1"); ttl != 0 {
		t.Errorf("key TTL = %v, want none", ttl)
	}

	got, err := b.Get(ctx, "user1", "smartthings")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	missing, err := b.Get(ctx, "user2", "smartthings")
	if err != nil || missing != nil {
		t.Errorf("Get() missing = %+v, %v; want nil, nil", missing, err)
	}
}

func TestRedisBackedStore(t *testing.T) {
	_, client := setupTestRedis(t)
	clock := &testClock{now: baseTime}
	s := New(NewRedisBackend(client), WithClock(clock.Now))
	ctx := context.Background()

	if _, err := s.Save(ctx, "user1", "smartthings", &provider.TokenResponse{AccessToken: "at", ExpiresIn: 3600}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got, err := s.Get(ctx, "user1", "smartthings"); err != nil || got != "at" {
		t.Fatalf("Get() = %q, %v; want at, nil", got, err)
	}

	clock.Advance(2 * time.Hour)
	st, err := s.Status(ctx, "user1", "smartthings")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Exists || st.Connected || !st.NeedsRefresh {
		t.Errorf("Status() after expiry = %+v", st)
	}

	existed, err := s.Delete(ctx, "user1", "smartthings")
	if err != nil || !existed {
		t.Fatalf("Delete() = %v, %v; want true, nil", existed, err)
	}
	if _, err := s.Get(ctx, "user1", "smartthings"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Get() after delete error = %v, want %v", err, ErrUnauthenticated)
	}
	if err := s.CheckHealth(ctx); err != nil {
		t.Errorf("CheckHealth() error = %v", err)
	}
}

func TestRedisBackendKeepsMissingExpiry(t *testing.T) {
	_, client := setupTestRedis(t)
	clock := &testClock{now: baseTime}
	s := New(NewRedisBackend(client), WithClock(clock.Now))
	ctx := context.Background()

	if _, err := s.Save(ctx, "user1", "smartthings", &provider.TokenResponse{AccessToken: "at"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	clock.Advance(30 * 24 * time.Hour)

	st, err := s.Status(ctx, "user1", "smartthings")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Connected || st.NeedsRefresh || st.ExpiresAt != nil {
		t.Errorf("Status() = %+v, want connected without expiry", st)
	}
}
