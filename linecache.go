package main

import lru "github.com/hashicorp/golang-lru/v2"

// lineCacheBuckets/lineCacheNodeSize mirror the original engine's
// line_cache: 8192 buckets of 15-entry chained nodes
// (original_source/src/cache/LineCache.h).
const (
	lineCacheBuckets  = 8192
	lineCacheNodeSize = 15
)

// spriteSize is the row-memory bit count per sprite (original's
// sprite_data[4][8] — 4 sprites, 8 bits of shift-register state each).
// It is quantized coverage: each bit represents 4 pixel columns of the
// wider spriteCoverageWidth (sprite.go) a sprite actually shifts out
// over, via the >>2 in SpriteState.Covers.
const spriteSize = 8

// lineCacheEntry is the per-line memoized result: the rendered error,
// the exit register state, and the pixel/target rows plus sprite memory
// needed to replay this line without re-executing it.
type lineCacheEntry struct {
	LineError  uint64
	ExitState  RegisterState
	ColorRow   []uint8 // len W, palette index per pixel
	TargetRow  []Target
	SpriteData [4][spriteSize]uint8
}

// lineCacheEntrySize is used by Arena to size its line-entry blocks; kept
// as a rough constant rather than unsafe.Sizeof since the row slices are
// heap-allocated separately from the struct itself.
const lineCacheEntrySize = 256

// LineCacheKey identifies a memoized scanline render: the entry register
// state plus the interned instruction sequence's identity. Identity is
// the SeqID (see spec §9's pointer-equality substitute); two keys with
// the same SeqID but different registers are different cache entries.
type LineCacheKey struct {
	Entry RegisterState
	Seq   SeqID
}

// Hash folds all fields, matching the avalanche mix of the original's
// line_cache_key::hash() (register bytes folded in, then an xorshift
// finalizer), adapted to use the SeqID int32 pair instead of a raw
// pointer value.
func (k LineCacheKey) Hash() uint32 {
	h := uint32(k.Entry.A)
	h += uint32(k.Entry.X) << 8
	h += uint32(k.Entry.Y) << 16
	for i, m := range k.Entry.Mem {
		h += uint32(m) << (8 * uint(i&3))
	}
	if k.Seq.Valid() {
		lo := uint32(k.Seq.idx)
		hi := uint32(k.Seq.gen)
		h ^= (lo * 2654435761) ^ (hi * 2246822519)
	}
	h ^= h >> 17
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

func (k LineCacheKey) equal(o LineCacheKey) bool {
	if k.Seq.Valid() != o.Seq.Valid() {
		return false
	}
	if k.Seq.Valid() && k.Seq != o.Seq {
		return false
	}
	return k.Entry == o.Entry
}

type lineCacheNode struct {
	hashes [lineCacheNodeSize]uint32
	keys   [lineCacheNodeSize]LineCacheKey
	values [lineCacheNodeSize]*lineCacheEntry
	used   int
	next   *lineCacheNode
}

// LineCache memoizes per-scanline execution results keyed by
// (entry register state, instruction-sequence identity). Every worker
// owns its own LineCache backed by its own Arena; dual-frame mode keeps
// a second, independent LineCache for pair-aware renders (spec §4.4's
// "dual-cache role separation").
type LineCache struct {
	buckets [lineCacheBuckets]*lineCacheNode
	lru     *lru.Cache[int, []*lineCacheEntry]
}

// NewLineCache returns an empty cache. lruLines bounds the soft
// least-recently-used eviction queue keyed by scanline y (spec §4.4);
// 0 disables soft eviction (only full Clear applies).
func NewLineCache(lruLines int) *LineCache {
	c := &LineCache{}
	if lruLines > 0 {
		c.lru, _ = lru.New[int, []*lineCacheEntry](lruLines)
	}
	return c
}

// Clear drops every bucket. Called when the worker's arena is reset.
func (c *LineCache) Clear() {
	for i := range c.buckets {
		c.buckets[i] = nil
	}
	if c.lru != nil {
		c.lru.Purge()
	}
}

// Find looks up a memoized result for key, given its precomputed hash.
func (c *LineCache) Find(key LineCacheKey, hash uint32) (*lineCacheEntry, bool) {
	bucket := hash % lineCacheBuckets
	for n := c.buckets[bucket]; n != nil; n = n.next {
		for i := n.used - 1; i >= 0; i-- {
			if n.hashes[i] == hash && n.keys[i].equal(key) && n.values[i] != nil {
				return n.values[i], true
			}
		}
	}
	return nil, false
}

// Insert allocates a fresh entry slot for key from arena and links it
// into the hash table, returning it for the caller to fill in. y is the
// scanline index, tracked only for the soft LRU eviction queue.
func (c *LineCache) Insert(key LineCacheKey, hash uint32, y int, arena *Arena) *lineCacheEntry {
	bucket := hash % lineCacheBuckets
	node := c.buckets[bucket]
	if node == nil || node.used >= lineCacheNodeSize {
		nn := &lineCacheNode{next: node}
		c.buckets[bucket] = nn
		node = nn
	}

	entry := arena.AllocLineEntry()
	node.hashes[node.used] = hash
	node.keys[node.used] = key
	node.values[node.used] = entry
	node.used++

	if c.lru != nil {
		lines, _ := c.lru.Get(y)
		lines = append(lines, entry)
		c.lru.Add(y, lines)
	}

	return entry
}

// EvictLRU drops the n least-recently-used scanlines' cache entries from
// the hash table (spec §4.4's soft eviction), returning how many
// scanlines were actually evicted. Their Arena storage is not reclaimed until a
// full Clear — only the hash-table links are removed so Find no longer
// returns them.
func (c *LineCache) EvictLRU(n int) int {
	if c.lru == nil {
		return 0
	}
	evicted := 0
	for i := 0; i < n && c.lru.Len() > 0; i++ {
		_, lines, ok := c.lru.RemoveOldest()
		if !ok {
			break
		}
		c.tombstone(lines)
		evicted++
	}
	return evicted
}

func (c *LineCache) tombstone(lines []*lineCacheEntry) {
	dead := make(map[*lineCacheEntry]bool, len(lines))
	for _, e := range lines {
		dead[e] = true
	}
	for i := range c.buckets {
		for n := c.buckets[i]; n != nil; n = n.next {
			for j := 0; j < n.used; j++ {
				if dead[n.values[j]] {
					n.values[j] = nil
				}
			}
		}
	}
}
