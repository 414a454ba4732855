package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tjfontaine/nextware/internal/storage"
)

// DefaultMaxRecords bounds a store created with a non-positive limit.
const DefaultMaxRecords = 10000

// Store is an in-memory Recorder holding at most a fixed number of records.
// Once full, each Save evicts the oldest record.
type Store struct {
	mu sync.RWMutex
	// ring holds records in save order starting at head.
	ring  []*storage.Record
	head  int
	count int
	byID  map[string]*storage.Record
}

var _ storage.Recorder = (*Store)(nil)

// New creates a new in-memory store keeping the newest maxRecords records.
func New(maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &Store{
		ring: make([]*storage.Record, maxRecords),
		byID: make(map[string]*storage.Record),
	}
}

func (s *Store) Save(ctx context.Context, rec *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rec.ID]; exists {
		return fmt.Errorf("record %s already exists", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	cp := *rec
	if s.count == len(s.ring) {
		delete(s.byID, s.ring[s.head].ID)
		s.ring[s.head] = &cp
		s.head = (s.head + 1) % len(s.ring)
	} else {
		s.ring[(s.head+s.count)%len(s.ring)] = &cp
		s.count++
	}
	s.byID[rec.ID] = &cp
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, storage.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.Record
	for i := s.count - 1; i >= 0; i-- {
		rec := s.ring[(s.head+i)%len(s.ring)]
		if opts.App != "" && rec.App != opts.App {
			continue
		}
		if opts.Outcome != "" && rec.Outcome != opts.Outcome {
			continue
		}
		cp := *rec
		result = append(result, &cp)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Store) Close() error { return nil }
