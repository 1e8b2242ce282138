// Package memory implements the short-term similarity memory store: an
// in-memory list of saved items with per-item term-frequency vectors,
// searched by cosine similarity against the query. It is an ancillary
// collaborator of the control plane, consumed by the orchestrator
// through Save and Search.
package memory

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Defaults mirror the runtime's memory configuration.
const (
	DefaultScoreThreshold = 0.35
	DefaultMaxItems       = 10000

	// MaxValueSize bounds a single saved value at 1 MiB.
	MaxValueSize = 1 << 20
)

// ErrValueTooLarge indicates a value over the per-item size bound.
var ErrValueTooLarge = errors.New("value exceeds maximum allowed size")

// Item is a stored memory entry.
type Item struct {
	ID        uint64            `json:"id"`
	Value     string            `json:"value"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`

	freqs map[string]float64
}

// Result pairs an item with its similarity score for a query.
type Result struct {
	Item  Item
	Score float64
}

// Store holds memory items and answers ranked similarity searches.
type Store struct {
	mu        sync.Mutex
	items     []Item
	nextID    uint64
	maxItems  int
	threshold float64
}

// Option configures a Store.
type Option func(*Store)

// WithMaxItems bounds the number of retained items; the oldest item is
// dropped when the bound is hit. Zero or negative keeps the default.
func WithMaxItems(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// WithScoreThreshold sets the minimum similarity score for search
// results. Values are clamped to [0, 1].
func WithScoreThreshold(t float64) Option {
	return func(s *Store) {
		s.threshold = clamp01(t)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		maxItems:  DefaultMaxItems,
		threshold: DefaultScoreThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save appends a value with optional metadata. Values over MaxValueSize
// are rejected. When the store is full the oldest item is evicted.
func (s *Store) Save(value string, metadata map[string]string) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("%w (%d bytes)", ErrValueTooLarge, MaxValueSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := Item{
		ID:        s.nextID,
		Value:     value,
		Metadata:  metadata,
		Timestamp: time.Now(),
		freqs:     termFrequencies(value),
	}
	s.nextID++

	if len(s.items) >= s.maxItems {
		s.items = s.items[1:]
	}
	s.items = append(s.items, item)
	return nil
}

// Search returns up to limit items ranked by cosine similarity against
// the query, most similar first. Items scoring below the store's
// threshold are dropped. A limit below 1 is treated as 1.
func (s *Store) Search(query string, limit int) []Result {
	if limit < 1 {
		limit = 1
	}
	queryFreqs := termFrequencies(query)

	s.mu.Lock()
	scored := make([]Result, 0, len(s.items))
	for _, item := range s.items {
		score := cosineSimilarity(queryFreqs, item.freqs)
		if score < s.threshold {
			continue
		}
		scored = append(scored, Result{Item: item, Score: score})
	}
	s.mu.Unlock()

	// Descending by score; insertion order breaks ties.
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Score > scored[j-1].Score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// All returns copies of every stored item in insertion order.
func (s *Store) All() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Reset discards all items.
func (s *Store) Reset() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
