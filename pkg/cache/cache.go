// Package cache keeps encoded solver reports in an LRU cache persisted to
// disk with msgpack, so unchanged problems are not solved twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Entry represents a cache entry with metadata.
type Entry struct {
	Key       string    `msgpack:"key"`
	Value     []byte    `msgpack:"value"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// LRUCache is an in-memory LRU cache of encoded reports. It is safe for
// concurrent use.
type LRUCache struct {
	mu           sync.Mutex
	items        map[string]*listItem
	lru          *list // most recent at front
	maxSize      int
	maxBytes     int64
	maxAge       time.Duration
	now          func() time.Time
	currentBytes int64
	hits         int
	misses       int
}

// listItem is an item in the doubly-linked list.
type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

// list is a doubly-linked list; head is the most recently used item.
type list struct {
	head *listItem
	tail *listItem
	len  int
}

func (l *list) unlink(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	item.prev, item.next = nil, nil
	l.len--
}

func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	l.unlink(item)
	l.pushFront(item)
}

// Options configures the LRU cache.
type Options struct {
	// MaxSize is the maximum number of entries.
	// 0 means unlimited.
	MaxSize int

	// MaxBytes is the maximum total size of the values.
	// 0 means unlimited.
	MaxBytes int64

	// MaxAge is how long an entry stays valid after it was stored.
	// 0 means entries never expire.
	MaxAge time.Duration
}

// New creates a new LRU cache with the given options.
func New(opts Options) *LRUCache {
	return &LRUCache{
		items:    make(map[string]*listItem),
		lru:      &list{},
		maxSize:  opts.MaxSize,
		maxBytes: opts.MaxBytes,
		maxAge:   opts.MaxAge,
		now:      time.Now,
	}
}

// Key derives a cache key from a problem's content and the parameters of
// the analysis run on it.
func Key(content []byte, params ...string) string {
	h := sha256.New()
	h.Write(content)
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a value from the cache.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if found && c.expired(item.Entry) {
		c.remove(item)
		found = false
	}
	if !found {
		c.misses++
		return nil, false
	}
	c.hits++
	c.lru.moveToFront(item)
	return item.Value, true
}

// Set stores a value in the cache, evicting the least recently used
// entries when a limit is exceeded.
func (c *LRUCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		c.currentBytes += int64(len(value) - len(item.Value))
		item.Value = value
		item.CreatedAt = c.now()
		c.lru.moveToFront(item)
		c.evictIfNeeded()
		return
	}

	item := &listItem{Entry: Entry{Key: key, Value: value, CreatedAt: c.now()}}
	c.items[key] = item
	c.lru.pushFront(item)
	c.currentBytes += int64(len(value))
	c.evictIfNeeded()
}

// Len returns the number of entries in the cache.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the number of hits and misses since the cache was created.
func (c *LRUCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// evictIfNeeded evicts entries while the cache exceeds its limits. The most
// recent entry is never evicted.
func (c *LRUCache) evictIfNeeded() {
	for c.lru.len > 1 && c.overLimit() {
		c.remove(c.lru.tail)
	}
}

func (c *LRUCache) remove(item *listItem) {
	c.lru.unlink(item)
	delete(c.items, item.Key)
	c.currentBytes -= int64(len(item.Value))
}

// expired reports whether e is older than the cache's MaxAge.
func (c *LRUCache) expired(e Entry) bool {
	return c.maxAge > 0 && c.now().Sub(e.CreatedAt) > c.maxAge
}

func (c *LRUCache) overLimit() bool {
	if c.maxSize > 0 && c.lru.len > c.maxSize {
		return true
	}
	return c.maxBytes > 0 && c.currentBytes > c.maxBytes
}

// Save persists the cache to a writer using msgpack, most recent first.
func (c *LRUCache) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]Entry, 0, len(c.items))
	for item := c.lru.head; item != nil; item = item.next {
		entries = append(entries, item.Entry)
	}
	return msgpack.NewEncoder(w).Encode(entries)
}

// Load restores the cache from a reader using msgpack, replacing its
// contents. Expired entries are dropped and limits are applied to the rest.
func (c *LRUCache) Load(r io.Reader) error {
	var entries []Entry
	if err := msgpack.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*listItem, len(entries))
	c.lru = &list{}
	c.currentBytes = 0
	for i := len(entries) - 1; i >= 0; i-- {
		item := &listItem{Entry: entries[i]}
		if _, dup := c.items[item.Key]; dup || c.expired(item.Entry) {
			continue
		}
		c.items[item.Key] = item
		c.lru.pushFront(item)
		c.currentBytes += int64(len(item.Value))
	}
	c.evictIfNeeded()
	return nil
}

// PersistToFile saves the cache to a file, creating parent directories.
func PersistToFile(c *LRUCache, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := c.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return f.Close()
}

// LoadFromFile loads the cache from a file. A missing file leaves the cache
// empty.
func LoadFromFile(c *LRUCache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}
