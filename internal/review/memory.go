package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/trial-match-engine/internal/domain"
)

// MemoryStore implements the Store interface in memory. It is the default
// when no persistence is configured and the store of choice in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory review store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Record stores a new payload in pending state; an existing ID keeps its
// resolution.
func (s *MemoryStore) Record(ctx context.Context, payload *domain.ReviewPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[payload.ID]; ok {
		existing.Payload = *payload
		return nil
	}
	s.entries[payload.ID] = &Entry{
		Payload:    *payload,
		Resolution: ResolutionPending,
	}
	return nil
}

// Get retrieves one entry by payload ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

// List returns entries filtered by resolution, newest first.
func (s *MemoryStore) List(ctx context.Context, resolution Resolution, limit, offset int) ([]*Entry, error) {
	s.mu.RLock()
	var all []*Entry
	for _, entry := range s.entries {
		if resolution != "" && entry.Resolution != resolution {
			continue
		}
		copied := *entry
		all = append(all, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Payload.CreatedAt.After(all[j].Payload.CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Resolve records an administrator's verdict.
func (s *MemoryStore) Resolve(ctx context.Context, id string, resolution Resolution, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("review %s not found", id)
	}
	now := time.Now()
	entry.Resolution = resolution
	entry.Notes = notes
	entry.ResolvedAt = &now
	return nil
}

// Count returns the number of entries with the given resolution.
func (s *MemoryStore) Count(ctx context.Context, resolution Resolution) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if resolution == "" {
		return int64(len(s.entries)), nil
	}
	var count int64
	for _, entry := range s.entries {
		if entry.Resolution == resolution {
			count++
		}
	}
	return count, nil
}

// ExportJSON writes all entries to a JSON writer.
func (s *MemoryStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
	if err != nil {
		return err
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Entries:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close releases nothing; it exists to satisfy the Store interface.
func (s *MemoryStore) Close() error {
	return nil
}
