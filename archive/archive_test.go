package archive_test

import (
	"testing"

	"github.com/LJ-Solana/solana-news-app-sub000/archive"
	"github.com/LJ-Solana/solana-news-app-sub000/archive/archivetest"
)

func TestMemory_Conformance(t *testing.T) {
	archivetest.RunConformance(t, func(t *testing.T) archive.Store {
		return archive.NewMemory()
	})
}

func TestFS_Conformance(t *testing.T) {
	archivetest.RunConformance(t, func(t *testing.T) archive.Store {
		fs, err := archive.NewFS(t.TempDir())
		if err != nil {
			t.Fatalf("NewFS: %v", err)
		}
		return fs
	})
}

func TestTiered_Conformance(t *testing.T) {
	archivetest.RunConformance(t, func(t *testing.T) archive.Store {
		return archive.Tiered{Backends: []archive.Store{archive.NewMemory(), archive.NewMemory()}}
	})
}

func TestTiered_FallsBackInOrder(t *testing.T) {
	primary := archive.NewMemory()
	secondary := archive.NewMemory()
	tiered := archive.Tiered{Backends: []archive.Store{primary, secondary}}

	// A document only present in the second backend is still readable.
	b := []byte("cold document")
	id, err := secondary.Put(b)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := tiered.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(b) {
		t.Fatalf("bytes mismatch")
	}

	// Writes land in the first backend only.
	id2, err := tiered.Put([]byte("hot document"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !primary.Has(id2) || secondary.Has(id2) {
		t.Fatalf("Put must write only the first backend")
	}
}
