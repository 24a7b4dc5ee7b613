// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache provides content-addressed, TTL-bounded JSON file caches.
// Records are keyed by a sha256 digest of the logical lookup string so
// storage names stay fixed-length regardless of the key. A missing,
// corrupt, or expired record reads as a miss; a save always replaces the
// whole record.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// fileStore is the shared record store underneath both caches.
type fileStore struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func newFileStore(dir string, ttl time.Duration, logger *zap.Logger) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fileStore{dir: dir, ttl: ttl, now: time.Now, logger: logger}, nil
}

func (s *fileStore) path(key string) string {
	digest := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(digest[:])+".json")
}

// load reads the record for key into out. Missing and corrupt records
// both read as a miss; corrupt records log a warning and are left alone.
func (s *fileStore) load(key string, out any) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// fresh reports whether a stored timestamp is within the TTL.
func (s *fileStore) fresh(storedAt time.Time) bool {
	if storedAt.IsZero() {
		return false
	}
	return s.now().Sub(storedAt) <= s.ttl
}

// save writes the record for key, replacing any previous one.
func (s *fileStore) save(key string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}
