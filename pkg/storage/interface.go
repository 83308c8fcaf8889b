package storage

import (
	"context"
	"time"
)

// DraftStore persists serialized wizard drafts under a key
type DraftStore interface {
	// Load returns the bytes last saved under key.
	// A missing key returns an error wrapping utils.ErrNotFound
	Load(key string) ([]byte, error)

	// Save replaces the draft stored under key (last write wins)
	Save(key string, data []byte) error

	// Delete removes the draft under key. Deleting a missing key is not an error
	Delete(key string) error
}

// DraftInfo describes a stored draft without its payload
type DraftInfo struct {
	Key         string    `json:"key"`
	SavedAt     time.Time `json:"savedAt"`
	Size        int       `json:"size"`
	Fingerprint string    `json:"fingerprint"`
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// List returns every stored draft ordered by key
	List(ctx context.Context) ([]DraftInfo, error)

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close releases the store. Calling Close twice is safe
	Close() error
}

// Store combines draft access and administration
type Store interface {
	DraftStore
	StoreAdmin
}
