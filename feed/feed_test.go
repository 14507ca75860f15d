package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestLatest_BareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"title":"a","description":"d","author":"x","source":"s"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	items := c.Latest(context.Background())
	if len(items) != 1 || items[0].Title != "a" {
		t.Fatalf("items: %+v", items)
	}
}

func TestLatest_ArticlesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"articles":[{"title":"a"},{"title":"b"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	items := c.Latest(context.Background())
	if len(items) != 2 || items[1].Title != "b" {
		t.Fatalf("items: %+v", items)
	}
}

func TestLatest_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})
	if items := c.Latest(context.Background()); len(items) != 0 {
		t.Fatalf("expected empty list, got %+v", items)
	}

	// Unreachable host degrades the same way.
	c = New("http://127.0.0.1:0", Options{})
	if items := c.Latest(context.Background()); len(items) != 0 {
		t.Fatalf("expected empty list, got %+v", items)
	}
}

func TestLatest_ServesFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"title":"cached"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, Options{CacheTTL: time.Minute})
	for i := 0; i < 5; i++ {
		if items := c.Latest(context.Background()); len(items) != 1 {
			t.Fatalf("items: %+v", items)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", got)
	}
}
