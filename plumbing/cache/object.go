// Package cache implements a bounded, size-aware LRU cache for decoded
// loose objects, so repeated tree/commit walks do not re-inflate the same
// zlib stream on every traversal.
package cache

import (
	"container/list"
	"sync"

	"github.com/sourcevc/source/plumbing/hash"
	"github.com/sourcevc/source/plumbing/object"
)

// Byte-size units for sizing a cache.
const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// DefaultMaxSize is the cache budget the repository facade passes to the
// filesystem object storage.
const DefaultMaxSize = 96 * MiByte

// Entry is a cached decoded object body.
type Entry struct {
	Type    object.Type
	Content []byte
}

func (e Entry) size() int64 { return int64(len(e.Content)) + 16 }

// Object caches decoded object bodies by hash.
type Object interface {
	Add(h hash.Hash, e Entry)
	Get(h hash.Hash) (Entry, bool)
	Clear()
}

// lru is a size-bounded, least-recently-used Object cache safe for
// concurrent use.
type lru struct {
	mu       sync.Mutex
	maxSize  int64
	curSize  int64
	ll       *list.List
	elements map[hash.Hash]*list.Element
}

type lruEntry struct {
	h hash.Hash
	e Entry
}

// NewObjectLRU returns a cache that evicts the least recently used entry
// once the total cached content size exceeds maxSize bytes.
func NewObjectLRU(maxSize int64) Object {
	return &lru{
		maxSize:  maxSize,
		ll:       list.New(),
		elements: make(map[hash.Hash]*list.Element),
	}
}

func (c *lru) Add(h hash.Hash, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[h]; ok {
		c.ll.MoveToFront(el)
		old := el.Value.(*lruEntry)
		c.curSize += e.size() - old.e.size()
		el.Value = &lruEntry{h: h, e: e}
		c.evict()
		return
	}

	el := c.ll.PushFront(&lruEntry{h: h, e: e})
	c.elements[h] = el
	c.curSize += e.size()
	c.evict()
}

func (c *lru) evict() {
	for c.curSize > c.maxSize && c.ll.Len() > 0 {
		back := c.ll.Back()
		if back == nil {
			return
		}
		entry := back.Value.(*lruEntry)
		c.ll.Remove(back)
		delete(c.elements, entry.h)
		c.curSize -= entry.e.size()
	}
}

func (c *lru) Get(h hash.Hash) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[h]
	if !ok {
		return Entry{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).e, true
}

func (c *lru) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.elements = make(map[hash.Hash]*list.Element)
	c.curSize = 0
}
