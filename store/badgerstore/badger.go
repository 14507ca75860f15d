// Package badgerstore persists the ledger store in BadgerDB.
//
// Badger transactions are serializable: the claim-uniqueness check and the
// quota increment commit together or not at all. A transaction that loses a
// commit race is re-run, at which point it observes the winner's write and
// fails with the store's sentinel error.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"

	badger "github.com/dgraph-io/badger/v2"

	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
	"github.com/LJ-Solana/solana-news-app-sub000/store"
)

const (
	recordPrefix   = "rec/"
	attesterPrefix = "att/"

	// conflictRetries bounds re-runs of a transaction that lost a commit race.
	conflictRetries = 3
)

type Store struct {
	db *badger.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) a Badger-backed store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) SubmitClaim(ctx context.Context, rec store.Record, dailyLimit int) error {
	rec.ContentHex = rec.ContentHash.Hex()
	return s.update(ctx, func(txn *badger.Txn) error {
		recKey := []byte(recordPrefix + rec.ContentHex)
		if _, err := txn.Get(recKey); err == nil {
			return store.ErrExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		var stats store.AttesterStats
		attKey := []byte(attesterPrefix + rec.VerifiedBy)
		if err := getJSON(txn, attKey, &stats); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		stats.PublicKey = rec.VerifiedBy
		day := store.DayOf(rec.SubmittedAt)
		if stats.Day != day {
			stats.Day = day
			stats.VerificationsToday = 0
		}
		if dailyLimit > 0 && stats.VerificationsToday >= uint64(dailyLimit) {
			return store.ErrDailyLimit
		}
		stats.VerificationsToday++
		stats.VerifiedCount++

		if err := setJSON(txn, attKey, stats); err != nil {
			return err
		}
		return setJSON(txn, recKey, rec)
	})
}

func (s *Store) GetRecord(ctx context.Context, hash contentid.Hash) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}
	var rec store.Record
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(recordPrefix+hash.Hex()), &rec)
	})
	if err != nil {
		return store.Record{}, err
	}
	rec.ContentHash = hash
	return rec, nil
}

func (s *Store) UpdateRecord(ctx context.Context, hash contentid.Hash, fn func(*store.Record) error) (store.Record, error) {
	var out store.Record
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := []byte(recordPrefix + hash.Hex())
		var rec store.Record
		if err := getJSON(txn, key, &rec); err != nil {
			return err
		}
		rec.ContentHash = hash
		if err := fn(&rec); err != nil {
			return err
		}
		out = rec.Clone()
		return setJSON(txn, key, rec)
	})
	if err != nil {
		return store.Record{}, err
	}
	return out, nil
}

func (s *Store) GetAttester(ctx context.Context, publicKey string) (store.AttesterStats, error) {
	if err := ctx.Err(); err != nil {
		return store.AttesterStats{}, err
	}
	var stats store.AttesterStats
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(attesterPrefix+publicKey), &stats)
	})
	if err != nil {
		return store.AttesterStats{}, err
	}
	return stats, nil
}

func (s *Store) Close() error { return s.db.Close() }

// update runs fn in a read-write transaction, re-running it when the commit
// loses a serializability race so the caller always observes a settled state.
func (s *Store) update(ctx context.Context, fn func(*badger.Txn) error) error {
	var err error
	for i := 0; i <= conflictRetries; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}
