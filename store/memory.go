package store

import (
	"context"
	"sync"

	"github.com/LJ-Solana/solana-news-app-sub000/contentid"
)

// Memory is an in-process Store used by tests and single-node deployments.
//
// A single mutex serializes every mutation, which trivially satisfies the
// atomicity contract: the uniqueness check and the write are one critical
// section.
type Memory struct {
	mu        sync.RWMutex
	records   map[contentid.Hash]Record
	attesters map[string]AttesterStats
	closed    bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		records:   make(map[contentid.Hash]Record),
		attesters: make(map[string]AttesterStats),
	}
}

func (m *Memory) SubmitClaim(ctx context.Context, rec Record, dailyLimit int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.records[rec.ContentHash]; ok {
		return ErrExists
	}

	stats := m.attesters[rec.VerifiedBy]
	stats.PublicKey = rec.VerifiedBy
	day := DayOf(rec.SubmittedAt)
	if stats.Day != day {
		stats.Day = day
		stats.VerificationsToday = 0
	}
	if dailyLimit > 0 && stats.VerificationsToday >= uint64(dailyLimit) {
		return ErrDailyLimit
	}
	stats.VerificationsToday++
	stats.VerifiedCount++

	m.records[rec.ContentHash] = rec.Clone()
	m.attesters[rec.VerifiedBy] = stats
	return nil
}

func (m *Memory) GetRecord(ctx context.Context, hash contentid.Hash) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, ErrClosed
	}
	rec, ok := m.records[hash]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) UpdateRecord(ctx context.Context, hash contentid.Hash, fn func(*Record) error) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Record{}, ErrClosed
	}
	rec, ok := m.records[hash]
	if !ok {
		return Record{}, ErrNotFound
	}
	work := rec.Clone()
	if err := fn(&work); err != nil {
		return Record{}, err
	}
	m.records[hash] = work.Clone()
	return work, nil
}

func (m *Memory) GetAttester(ctx context.Context, publicKey string) (AttesterStats, error) {
	if err := ctx.Err(); err != nil {
		return AttesterStats{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return AttesterStats{}, ErrClosed
	}
	stats, ok := m.attesters[publicKey]
	if !ok {
		return AttesterStats{}, ErrNotFound
	}
	return stats, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
