// Package index is the slug-keyed read path consumed by the UI.
//
// It mirrors verification outcomes into a TTL cache. The ledger populates it
// on successful transitions; it is never authoritative and readers must treat
// entries as possibly stale.
package index

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/LJ-Solana/solana-news-app-sub000/model"
)

const DefaultTTL = 15 * time.Minute

type Mirror struct {
	c *gocache.Cache
}

// NewMirror builds a mirror whose entries expire after ttl (DefaultTTL when
// ttl <= 0).
func NewMirror(ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Mirror{c: gocache.New(ttl, 2*ttl)}
}

func (m *Mirror) Put(status model.StatusResponse) {
	if m == nil || status.Slug == "" {
		return
	}
	m.c.SetDefault(status.Slug, status)
}

// Get returns the cached status for slug, if present and unexpired.
func (m *Mirror) Get(slug string) (model.StatusResponse, bool) {
	if m == nil {
		return model.StatusResponse{}, false
	}
	v, ok := m.c.Get(slug)
	if !ok {
		return model.StatusResponse{}, false
	}
	st, ok := v.(model.StatusResponse)
	return st, ok
}

// Invalidate drops the cached entry for slug.
func (m *Mirror) Invalidate(slug string) {
	if m == nil {
		return
	}
	m.c.Delete(slug)
}
