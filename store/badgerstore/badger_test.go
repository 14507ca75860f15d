package badgerstore

import (
	"testing"

	"github.com/LJ-Solana/solana-news-app-sub000/store"
	"github.com/LJ-Solana/solana-news-app-sub000/store/storetest"
)

func TestBadger_Conformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) store.Store {
		st, err := Open(t.TempDir())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}
