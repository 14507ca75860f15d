package archive

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// Tiered provides deterministic, ordered fallback across multiple archive
// backends.
//
// Read order is the slice order in Backends; callers MUST supply a fixed
// order. This avoids map-iteration nondeterminism and makes the retrieval
// strategy explicit.
//
// Put is defined to write only to the first backend.
type Tiered struct {
	Backends []Store
}

var _ Store = Tiered{}

func (t Tiered) Put(b []byte) (cid.Cid, error) {
	if len(t.Backends) == 0 {
		return cid.Undef, errors.New("archive: Tiered has no backends")
	}
	return t.Backends[0].Put(b)
}

func (t Tiered) Get(id cid.Cid) ([]byte, error) {
	for _, s := range t.Backends {
		b, err := s.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (t Tiered) Has(id cid.Cid) bool {
	for _, s := range t.Backends {
		if s.Has(id) {
			return true
		}
	}
	return false
}
