package counter

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory. It is not durable and is meant
// for tests and single-process development runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]*Record
	now     func() time.Time
}

var _ Backend = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]*Record), now: time.Now}
}

func (s *MemoryStore) IncrementAndGet(ctx context.Context, key Key) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rec, ok := s.records[key]
	if !ok {
		rec = &Record{ModuleType: key.ModuleType, Year: key.Year, CreatedAt: now}
		s.records[key] = rec
	}
	rec.Value++
	rec.UpdatedAt = now
	return rec.Value, nil
}

func (s *MemoryStore) Get(_ context.Context, key Key) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

func (s *MemoryStore) List(_ context.Context, year int) ([]Record, error) {
	s.mu.Lock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if year != 0 && rec.Year != year {
			continue
		}
		out = append(out, *rec)
	}
	s.mu.Unlock()

	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Year != recs[j].Year {
			return recs[i].Year < recs[j].Year
		}
		return recs[i].ModuleType < recs[j].ModuleType
	})
}
