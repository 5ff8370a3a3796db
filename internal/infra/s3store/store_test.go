package s3store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/store"
)

// fakeBucket is a path-style S3 stand-in that honours If-Match and If-None-Match.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	etags   map[string]string
	seq     int
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, etags: map[string]string{}}
}

func s3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")

	switch r.Method {
	case http.MethodGet:
		body, ok := b.objects[key]
		if !ok {
			s3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("ETag", b.etags[key])
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(http.StatusOK)
		w.Write(body)

	case http.MethodPut:
		etag, exists := b.etags[key]
		if r.Header.Get("If-None-Match") == "*" && exists {
			s3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		if m := r.Header.Get("If-Match"); m != "" && (!exists || m != etag) {
			s3Error(w, http.StatusPreconditionFailed, "PreconditionFailed")
			return
		}
		body, _ := io.ReadAll(r.Body)
		b.seq++
		b.objects[key] = body
		b.etags[key] = fmt.Sprintf(`"etag-%d"`, b.seq)
		w.Header().Set("ETag", b.etags[key])
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	srv := httptest.NewServer(newFakeBucket())
	t.Cleanup(srv.Close)

	s, err := New(config.StoreConfig{
		S3Bucket:    "tarot",
		S3Region:    "us-east-1",
		S3Endpoint:  srv.URL,
		S3AccessKey: "test",
		S3SecretKey: "test",
		S3Prefix:    "collections/",
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRequiresBucket(t *testing.T) {
	if _, err := New(config.StoreConfig{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestConditionalWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snap, err := s.ReadCollection(ctx, "slots")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Revision != "" {
		t.Fatalf("expected missing object, got %q", snap.Revision)
	}

	recs := []json.RawMessage{json.RawMessage(`{"id":"a"}`)}
	if err := s.WriteCollection(ctx, "slots", recs, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteCollection(ctx, "slots", recs, ""); !errors.Is(err, store.ErrStaleRevision) {
		t.Fatalf("create over existing: expected stale revision, got %v", err)
	}

	snap, err = s.ReadCollection(ctx, "slots")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Records) != 1 || snap.Revision == "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := s.WriteCollection(ctx, "slots", nil, snap.Revision); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteCollection(ctx, "slots", nil, snap.Revision); !errors.Is(err, store.ErrStaleRevision) {
		t.Fatalf("stale etag: expected stale revision, got %v", err)
	}
}

func TestMutateThroughS3(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type item struct {
		N int `json:"n"`
	}
	for i := 1; i <= 3; i++ {
		if _, err := store.Mutate(ctx, s, "items", func(items []item) ([]item, error) {
			return append(items, item{N: i}), nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	items, _, err := store.Load[item](ctx, s, "items")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[2].N != 3 {
		t.Errorf("unexpected items %+v", items)
	}
}
