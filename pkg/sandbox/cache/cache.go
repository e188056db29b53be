package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/bastion/pkg/sandbox/ast"
)

// Entry is a cached validation result.
type Entry struct {
	Tree *ast.Node `json:"ast"`
	Code string    `json:"code"`
}

// Store is a validation cache tier. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the entry for key. A missing or expired entry is a miss.
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Set stores entry under key, replacing any previous value.
	Set(ctx context.Context, key string, entry *Entry) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Close releases the resources held by the store.
	Close() error
}

// Recorder receives cache events. metrics.CacheMetrics satisfies it.
type Recorder interface {
	RecordHit(cacheName string)
	RecordMiss(cacheName string)
	RecordEviction(cacheName string)
	UpdateSize(cacheName string, size int)
}

type nopRecorder struct{}

func (nopRecorder) RecordHit(string)       {}
func (nopRecorder) RecordMiss(string)      {}
func (nopRecorder) RecordEviction(string)  {}
func (nopRecorder) UpdateSize(string, int) {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// Key builds the cache key of source validated under a policy identity.
func Key(identity, source string) string {
	return identity + ":" + source
}

// Identity returns the policy identity part of a key.
func Identity(key string) string {
	identity, _, _ := strings.Cut(key, ":")
	return identity
}

// Digest returns the hex SHA-256 of key, used to address remote rows.
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func encodeEntry(entry *Entry) ([]byte, error) {
	if entry == nil {
		return nil, fmt.Errorf("entry cannot be nil")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

// copyEntry returns an entry whose tree is not shared with the cache.
func copyEntry(entry *Entry) *Entry {
	return &Entry{Tree: ast.Clone(entry.Tree), Code: entry.Code}
}
