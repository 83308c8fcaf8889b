package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/source-wizard/pkg/log"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

const (
	draftKeyPrefix = "draft:"    // Prefix for draft keys in DB
	draftsDBDir    = "drafts_db" // Subdirectory name within stateDir for Badger DB files
)

// draftEntry is the value stored for each draft key
type draftEntry struct {
	SavedAt     time.Time       `json:"saved_at"`
	Fingerprint string          `json:"fingerprint"`
	Config      json.RawMessage `json:"config"`
}

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
	now func() time.Time
}

// NewBadgerStore opens (or creates) the draft database under stateDir
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	dbPath := filepath.Join(stateDir, draftsDBDir)
	logger.Infof("Opening draft database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Drafts are last-write-wins

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}
	return &BadgerStore{db: db, log: logger, now: time.Now}, nil
}

func draftKey(key string) []byte {
	return []byte(draftKeyPrefix + utils.SanitizeKey(key))
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

func (s *BadgerStore) ready() error {
	if s.db == nil || s.db.IsClosed() {
		return fmt.Errorf("%w: draft database is closed", utils.ErrDatabase)
	}
	return nil
}

// Load implements DraftStore
func (s *BadgerStore) Load(key string) ([]byte, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	dbKey := draftKey(key)
	var out []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(dbKey)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: draft %q", utils.ErrNotFound, key)
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting draft key '%s': %w", utils.ErrDatabase, string(dbKey), errGet)
		}
		return item.Value(func(val []byte) error {
			var entry draftEntry
			if errJSON := json.Unmarshal(val, &entry); errJSON != nil {
				return fmt.Errorf("%w: draft %q: %w", utils.ErrParsing, key, errJSON)
			}
			out = append([]byte(nil), entry.Config...)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			s.log.WithField("key", string(dbKey)).Warnf("Load failed: %v", err)
		}
		return nil, err
	}
	return out, nil
}

// Save implements DraftStore. data must be a JSON document.
func (s *BadgerStore) Save(key string, data []byte) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: draft %q is not valid JSON", utils.ErrParsing, key)
	}
	entry := draftEntry{
		SavedAt:     s.now().UTC(),
		Fingerprint: utils.ShortFingerprint(data),
		Config:      data,
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encoding draft %q: %w", utils.ErrParsing, key, err)
	}

	dbKey := draftKey(key)
	err = s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(dbKey, val))
	})
	if err != nil {
		s.log.WithField("key", string(dbKey)).Errorf("DB Update error in Save: %v", err)
		return fmt.Errorf("%w: saving draft key '%s': %w", utils.ErrDatabase, string(dbKey), err)
	}
	s.log.Debugf("Saved draft '%s' (%d bytes, %s)", key, len(data), entry.Fingerprint)
	return nil
}

// Delete implements DraftStore
func (s *BadgerStore) Delete(key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	dbKey := draftKey(key)
	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.Delete(dbKey)
	})
	if err != nil {
		return fmt.Errorf("%w: deleting draft key '%s': %w", utils.ErrDatabase, string(dbKey), err)
	}
	return nil
}

// List implements StoreAdmin. Entries that fail to decode are skipped with a warning.
func (s *BadgerStore) List(ctx context.Context) ([]DraftInfo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var drafts []DraftInfo
	prefix := []byte(draftKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			key := string(bytes.TrimPrefix(item.KeyCopy(nil), prefix))
			errVal := item.Value(func(val []byte) error {
				var entry draftEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				drafts = append(drafts, DraftInfo{
					Key:         key,
					SavedAt:     entry.SavedAt,
					Size:        len(entry.Config),
					Fingerprint: entry.Fingerprint,
				})
				return nil
			})
			if errVal != nil {
				s.log.Warnf("Skipping unreadable draft '%s': %v", key, errVal)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return drafts, err
		}
		return nil, fmt.Errorf("%w: listing drafts: %w", utils.ErrDatabase, err)
	}
	return drafts, nil
}

// RunGC implements StoreAdmin
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Debug("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Debug("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}
			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				if err = s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements StoreAdmin
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Closing draft DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing draft DB: %v", err)
			return err
		}
		return nil
	}
	s.log.Debug("Draft DB already closed or was not initialized.")
	return nil
}
