// Package bloom provides a probabilistic set of captured URLs. A negative
// answer is definite, which lets capture skip the store lookup for URLs
// that were never seen.
package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Filter wraps a Bloom filter for URL deduplication. Safe for concurrent use.
type Filter struct {
	mu sync.RWMutex
	f  *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected items
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add adds a URL to the filter.
func (f *Filter) Add(url string) {
	f.mu.Lock()
	f.f.AddString(url)
	f.mu.Unlock()
}

// Test returns true if the URL might be in the filter.
// False positives are possible; false negatives are not.
func (f *Filter) Test(url string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.f.TestString(url)
}

// EstimatedCount returns the approximate number of items in the filter.
func (f *Filter) EstimatedCount() uint {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint(f.f.ApproximatedSize())
}
