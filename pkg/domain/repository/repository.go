package repository

import (
	"context"
	"errors"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
)

// ErrNotFound is returned by KVStore.Get for missing keys
var ErrNotFound = errors.New("key not found")

// KVStore is the durable key-value backend behind the result cache
type KVStore interface {
	// Get returns the value stored for key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// ForEachKey calls fn for every stored key
	ForEachKey(ctx context.Context, fn func(key string) error) error
	// Close releases the backend
	Close() error
}

// ResultCache maps domains to their last known classification
type ResultCache interface {
	// Get returns the cached result, or false when absent or expired
	Get(ctx context.Context, domain entity.Domain) (entity.ClassificationResult, bool, error)
	// Put stores a result; non-cacheable results are ignored
	Put(ctx context.Context, domain entity.Domain, result entity.ClassificationResult) error
}

// KeyFilter answers "definitely absent" questions about cache keys
type KeyFilter interface {
	// Contains reports whether key may have been added
	Contains(key string) bool
	// Add records key
	Add(key string)
}

// MessageQueue buffers messages for a destination that is not ready yet
type MessageQueue interface {
	// Push appends a message at the tail
	Push(msg entity.Message)
	// Drain removes and returns all messages in enqueue order
	Drain() []entity.Message
	// Len returns the current queue length
	Len() int
}

// ResultWriter writes delivered messages
type ResultWriter interface {
	// Write writes a single delivery
	Write(delivery *entity.Delivery) error
	// Flush ensures all buffered data is written
	Flush() error
	// Close closes the writer
	Close() error
}
