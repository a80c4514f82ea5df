// Package cache holds the engine's bounded in-memory sets.
//
// Every cache evicts in strict insertion order: entries are added once and only
// ever read with Contains/Peek, so the underlying LRU list never reorders and
// the oldest insertion is always the next to go.
package cache

import (
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/alejandrodnm/autobid/internal/domain"
)

const (
	DefaultMessageIDs      = 1200
	DefaultProcessedBids   = 500
	DefaultNotifications   = 500
	DefaultAuctionContexts = 200
)

// KeySet is a bounded, concurrency-safe set of dedup keys.
type KeySet struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, struct{}]
}

// NewKeySet creates a set holding at most size keys.
func NewKeySet(size int) (*KeySet, error) {
	lru, err := simplelru.NewLRU[string, struct{}](size, nil)
	if err != nil {
		return nil, fmt.Errorf("cache.NewKeySet: size %d: %w", size, err)
	}
	return &KeySet{lru: lru}, nil
}

// MustKeySet is NewKeySet for sizes known to be valid.
func MustKeySet(size int) *KeySet {
	s, err := NewKeySet(size)
	if err != nil {
		panic(err)
	}
	return s
}

// Seen reports whether key is present.
func (s *KeySet) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Contains(key)
}

// Mark records key. Marking an existing key does not refresh its position.
func (s *KeySet) Mark(key string) {
	s.MarkIfNew(key)
}

// MarkIfNew records key and returns true, or returns false if it was already present.
func (s *KeySet) MarkIfNew(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lru.Contains(key) {
		return false
	}
	s.lru.Add(key, struct{}{})
	return true
}

// Len returns the number of keys held.
func (s *KeySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Keys returns the keys from oldest to newest.
func (s *KeySet) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Keys()
}

// AuctionContexts maps auction id to the parameters captured at auction start.
type AuctionContexts struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, domain.AuctionContext]
}

// NewAuctionContexts creates a context cache holding at most size auctions.
func NewAuctionContexts(size int) (*AuctionContexts, error) {
	lru, err := simplelru.NewLRU[string, domain.AuctionContext](size, nil)
	if err != nil {
		return nil, fmt.Errorf("cache.NewAuctionContexts: size %d: %w", size, err)
	}
	return &AuctionContexts{lru: lru}, nil
}

// Put stores ac unless its auction is already cached; contexts are immutable
// once captured. Returns whether ac was stored.
func (c *AuctionContexts) Put(ac domain.AuctionContext) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Contains(ac.AuctionID) {
		return false
	}
	c.lru.Add(ac.AuctionID, ac)
	return true
}

// Get returns the cached context for auctionID.
func (c *AuctionContexts) Get(auctionID string) (domain.AuctionContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Peek(auctionID)
}

// Len returns the number of cached auctions.
func (c *AuctionContexts) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
