package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

// Runs against a real server when REDIS_TEST_URL is set.
func TestRevisionGuard(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	s, err := Dial(ctx, url, "tarot-test:"+uuid.NewString()+":")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	recs := []json.RawMessage{json.RawMessage(`{"id":"a"}`)}
	if err := s.WriteCollection(ctx, "slots", recs, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteCollection(ctx, "slots", recs, ""); !errors.Is(err, store.ErrStaleRevision) {
		t.Fatalf("expected stale revision, got %v", err)
	}

	snap, err := s.ReadCollection(ctx, "slots")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Revision != "1" || len(snap.Records) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := s.WriteCollection(ctx, "slots", nil, snap.Revision); err != nil {
		t.Fatal(err)
	}
	s.client.Del(ctx, s.key("slots"))
}

func TestDialRejectsBadURL(t *testing.T) {
	if _, err := Dial(context.Background(), "not a url", ""); err == nil {
		t.Fatal("expected error")
	}
}
