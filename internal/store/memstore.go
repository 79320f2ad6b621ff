package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore implements Store in memory. It is used by the MCP server when
// no database is configured, and by tests.
type MemStore struct {
	mu      sync.Mutex
	exports map[string]*Export
}

func NewMemStore() *MemStore {
	return &MemStore{exports: make(map[string]*Export)}
}

func (s *MemStore) SaveExport(_ context.Context, jobID string, payload, result []byte) error {
	if jobID == "" || jobID == LatestKey {
		return fmt.Errorf("invalid export key %q", jobID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowUTC()
	for _, key := range []string{jobID, LatestKey} {
		s.exports[key] = &Export{
			Key:       key,
			JobID:     jobID,
			Payload:   append([]byte(nil), payload...),
			Result:    append([]byte(nil), result...),
			CreatedAt: now,
		}
	}
	return nil
}

func (s *MemStore) GetExport(_ context.Context, key string) (*Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exports[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *MemStore) ListExports(_ context.Context) ([]*Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Export
	for key, e := range s.exports {
		if key == LatestKey {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *MemStore) Close() error { return nil }
