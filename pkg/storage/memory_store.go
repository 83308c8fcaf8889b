package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// MemoryStore implements Store in process memory. Drafts are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]memoryDraft
}

type memoryDraft struct {
	data    []byte
	savedAt time.Time
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]memoryDraft)}
}

// Load implements DraftStore
func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[utils.SanitizeKey(key)]
	if !ok {
		return nil, fmt.Errorf("%w: draft %q", utils.ErrNotFound, key)
	}
	return append([]byte(nil), d.data...), nil
}

// Save implements DraftStore. data must be a JSON document.
func (m *MemoryStore) Save(key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("%w: draft %q is not valid JSON", utils.ErrParsing, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[utils.SanitizeKey(key)] = memoryDraft{
		data:    append([]byte(nil), data...),
		savedAt: time.Now().UTC(),
	}
	return nil
}

// Delete implements DraftStore
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, utils.SanitizeKey(key))
	return nil
}

// List implements StoreAdmin
func (m *MemoryStore) List(ctx context.Context) ([]DraftInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DraftInfo, 0, len(m.drafts))
	for key, d := range m.drafts {
		out = append(out, DraftInfo{
			Key:         key,
			SavedAt:     d.savedAt,
			Size:        len(d.data),
			Fingerprint: utils.ShortFingerprint(d.data),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// RunGC implements StoreAdmin; there is nothing to collect, so it only waits for ctx.
func (m *MemoryStore) RunGC(ctx context.Context, _ time.Duration) {
	<-ctx.Done()
}

// Close implements StoreAdmin
func (m *MemoryStore) Close() error { return nil }
