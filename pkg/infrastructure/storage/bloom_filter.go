package storage

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter implements repository.KeyFilter using a Bloom filter.
// Keys are never removed; an expired cache key only costs one extra store read.
type BloomFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// FilterConfig holds Bloom filter configuration
type FilterConfig struct {
	Size              uint
	FalsePositiveRate float64
}

// NewBloomFilter creates a new Bloom filter
func NewBloomFilter(config FilterConfig) *BloomFilter {
	return &BloomFilter{
		filter: bloom.NewWithEstimates(config.Size, config.FalsePositiveRate),
	}
}

// Contains checks if a key may have been added
func (bf *BloomFilter) Contains(key string) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.TestString(key)
}

// Add adds a key to the filter
func (bf *BloomFilter) Add(key string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.filter.AddString(key)
}

// ApproximatedSize estimates how many distinct keys were added
func (bf *BloomFilter) ApproximatedSize() uint32 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.ApproximatedSize()
}
