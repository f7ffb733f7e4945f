package main

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// insnCacheBuckets and insnCacheNodeSize mirror the original engine's
// insn_sequence_cache: 1024 buckets, each a chain of fixed-capacity
// 63-entry nodes (original_source/src/cache/InsnSequenceCache.h).
const (
	insnCacheBuckets  = 1024
	insnCacheNodeSize = 63
)

type insnCacheNode struct {
	hashes [insnCacheNodeSize]uint64
	seqs   [insnCacheNodeSize][]Instruction
	ids    [insnCacheNodeSize]SeqID
	used   int
	next   *insnCacheNode
}

// InsnCache interns instruction sequences so mutation-local scanlines can
// be compared by stable identity (SeqID) instead of content. Entries are
// append-only; Clear drops everything along with the arena that backs
// the instruction copies.
type InsnCache struct {
	buckets [insnCacheBuckets]*insnCacheNode
	gen     int32 // bumped on Clear so stale SeqIDs from a prior generation are detectable
	entries []insnCacheEntry
}

type insnCacheEntry struct {
	hash uint64
	seq  []Instruction
}

// NewInsnCache returns an empty cache at generation 1 (generation 0 is
// reserved as the "not interned" sentinel, see SeqID.Valid).
func NewInsnCache() *InsnCache {
	return &InsnCache{gen: 1}
}

// Clear drops every bucket and bumps the generation counter so any SeqID
// issued before the clear reads as invalid if looked up again.
func (c *InsnCache) Clear() {
	for i := range c.buckets {
		c.buckets[i] = nil
	}
	c.entries = c.entries[:0]
	c.gen++
}

// hashInsns folds the packed instruction words into one 64-bit fingerprint.
func hashInsns(insns []Instruction) uint64 {
	var buf [8]byte
	var h xxhash.Digest
	h.Reset()
	for _, ins := range insns {
		binary.LittleEndian.PutUint32(buf[:4], uint32(ins))
		h.Write(buf[:4])
	}
	return h.Sum64()
}

// Intern returns the stable identity for insns, copying it into arena on
// first sight. Equal content (by packed value, in order) always yields
// an equal SeqID within this cache's current generation.
func (c *InsnCache) Intern(insns []Instruction, arena *Arena) SeqID {
	h := hashInsns(insns)
	bucket := h & (insnCacheBuckets - 1)
	node := c.buckets[bucket]

	for n := node; n != nil; n = n.next {
		for i := n.used - 1; i >= 0; i-- {
			if n.hashes[i] == h && seqEqual(n.seqs[i], insns) {
				return n.ids[i]
			}
		}
	}

	if node == nil || node.used >= insnCacheNodeSize {
		nn := &insnCacheNode{next: node}
		c.buckets[bucket] = nn
		node = nn
	}

	var stored []Instruction
	if len(insns) > 0 {
		stored = arena.AllocInstructions(len(insns))
		copy(stored, insns)
	}
	id := c.idFor(stored)
	node.hashes[node.used] = h
	node.seqs[node.used] = stored
	node.ids[node.used] = id
	node.used++

	return id
}

func seqEqual(a, b []Instruction) bool {
	if len(a) != len(b) {
		return false
	}
	var diff Instruction
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}

// idFor assigns (or reuses) a stable index for a seq's backing array and
// returns the SeqID pair (generation, index). A flat append-only slice of
// entries gives us the "stable index into an append-only arena" identity
// scheme spec §9 calls out as the pointer-free substitute.
func (c *InsnCache) idFor(seq []Instruction) SeqID {
	c.entries = append(c.entries, insnCacheEntry{seq: seq})
	return SeqID{gen: c.gen, idx: int32(len(c.entries) - 1)}
}

// Resolve returns the instruction sequence for a SeqID, or (nil, false)
// if it belongs to a prior, already-cleared generation.
func (c *InsnCache) Resolve(id SeqID) ([]Instruction, bool) {
	if id.gen != c.gen || id.idx < 0 || int(id.idx) >= len(c.entries) {
		return nil, false
	}
	return c.entries[id.idx].seq, true
}
