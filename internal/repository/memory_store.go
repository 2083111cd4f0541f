package repository

import (
	"context"
	"fmt"
	"sync"
)

type memoryRecord struct {
	body    []byte
	version int64
}

// MemoryStore — RecordStore в памяти процесса для локального запуска и тестов.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[string]*memoryRecord
	order   map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]*memoryRecord),
		order:   make(map[string][]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, kind, id string, body []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.records[kind]
	if !ok {
		byID = make(map[string]*memoryRecord)
		s.records[kind] = byID
	}
	if _, exists := byID[id]; exists {
		return 0, fmt.Errorf("%s %s: %w", kind, id, ErrAlreadyExists)
	}

	byID[id] = &memoryRecord{body: clone(body), version: 1}
	s.order[kind] = append(s.order[kind], id)
	return 1, nil
}

func (s *MemoryStore) Read(ctx context.Context, kind, id string) ([]byte, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[kind][id]
	if !ok {
		return nil, 0, fmt.Errorf("%s %s: %w", kind, id, ErrRecordNotFound)
	}
	return clone(rec.body), rec.version, nil
}

func (s *MemoryStore) ConditionalReplace(ctx context.Context, kind, id string, body []byte, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[kind][id]
	if !ok {
		return 0, fmt.Errorf("%s %s: %w", kind, id, ErrRecordNotFound)
	}
	if rec.version != expected {
		return 0, fmt.Errorf("%s %s at version %d: %w", kind, id, expected, ErrVersionConflict)
	}

	rec.body = clone(body)
	rec.version++
	return rec.version, nil
}

func (s *MemoryStore) ListIDs(ctx context.Context, kind string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.order[kind]))
	copy(ids, s.order[kind])
	return ids, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
