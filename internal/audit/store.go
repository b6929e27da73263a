package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// #region store
// Store is the append-only entry log. Implementations chain entries per
// plan run and must isolate runs from each other: appends to one run never
// block on or interleave with another run's chain.
type Store interface {
	// Append assigns Sequence, PreviousHash and EntryHash and stores e. An
	// entry id already stored under any run is rejected.
	Append(ctx context.Context, e Entry) (Entry, error)
	// Entries returns a run's entries in sequence order.
	Entries(ctx context.Context, planRunID string) ([]Entry, error)
	// Runs lists the known plan run ids, sorted.
	Runs(ctx context.Context) ([]string, error)
}

// #endregion store

// #region memory-store
// MemoryStore keeps entries in process memory. The outer lock guards the
// partition map and the id index; each partition has its own lock.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	ids        map[string]struct{}
}

type partition struct {
	mu      sync.Mutex
	entries []Entry
	head    string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string]*partition),
		ids:        make(map[string]struct{}),
	}
}

func (s *MemoryStore) partition(planRunID string) *partition {
	s.mu.RLock()
	p, ok := s.partitions[planRunID]
	s.mu.RUnlock()
	if ok {
		return p
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.partitions[planRunID]; !ok {
		p = &partition{head: genesisHash}
		s.partitions[planRunID] = p
	}
	return p
}

func (s *MemoryStore) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := s.reserve(e.EntryID); err != nil {
		return Entry{}, err
	}
	p := s.partition(e.PlanRunID)
	p.mu.Lock()
	defer p.mu.Unlock()

	sealed, err := seal(e, uint64(len(p.entries)+1), p.head)
	if err != nil {
		s.release(e.EntryID)
		return Entry{}, err
	}
	p.entries = append(p.entries, sealed)
	p.head = sealed.EntryHash
	return sealed, nil
}

// reserve claims id for one entry, like the primary key of the SQLite store.
func (s *MemoryStore) reserve(id string) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[id]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, id)
	}
	s.ids[id] = struct{}{}
	return nil
}

func (s *MemoryStore) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

func (s *MemoryStore) Entries(ctx context.Context, planRunID string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	p, ok := s.partitions[planRunID]
	s.mu.RUnlock()
	if !ok {
		return []Entry{}, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.entries...), nil
}

func (s *MemoryStore) Runs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]string, 0, len(s.partitions))
	for id := range s.partitions {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}

// #endregion memory-store
