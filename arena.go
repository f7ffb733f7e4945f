package main

// Arena is a bump allocator with block-chained backing storage (default
// block size 8MiB worth of entries), grounded directly on the original
// engine's linear_allocator (original_source/src/utils/LinearAllocator.h):
// allocate-until-a-block-is-full, chain a new block, never free a single
// object, drop everything at once via Clear. Two concrete consumers are
// served — instruction arrays for InsnCache and line-result entries for
// LineCache — rather than a fully generic typed allocator, since those
// are the only two shapes this engine ever interns.
//
// Unlike the C++ original's raw pointers, Arena hands out Go slice/
// pointer values backed by pre-sized blocks that are never reallocated
// once created, so identity (see SeqID) stays valid for the arena's
// lifetime without resorting to unsafe.
const arenaBlockBytes = 8 << 20 // 8MiB, matches linear_allocator::BLOCK_SIZE

type insnBlock struct {
	buf []Instruction
	off int
}

type lineBlock struct {
	buf []lineCacheEntry
	off int
}

type Arena struct {
	insnBlocks []*insnBlock
	lineBlocks []*lineBlock
	total      int // bytes, mirrors linear_allocator::size()
}

// NewArena returns an empty arena; the first block is created lazily on
// first allocation, matching the original's lazy chunk_list.
func NewArena() *Arena { return &Arena{} }

// Size reports total bytes allocated across all blocks.
func (a *Arena) Size() int { return a.total }

// Clear drops every block. All identities (SeqID, *lineCacheEntry) handed
// out by this arena become invalid; callers must re-intern after Clear.
func (a *Arena) Clear() {
	a.insnBlocks = nil
	a.lineBlocks = nil
	a.total = 0
}

const insnsPerBlock = arenaBlockBytes / 4 // sizeof(Instruction) == 4 bytes

// AllocInstructions returns a slice of n zeroed instructions from a
// stable backing block. The returned slice's backing array is never
// reallocated, so its address is stable for the arena's lifetime.
func (a *Arena) AllocInstructions(n int) []Instruction {
	if n == 0 {
		return nil
	}
	cur := a.curInsnBlock()
	if len(cur.buf)-cur.off < n {
		cap := insnsPerBlock
		if n > cap {
			cap = n
		}
		cur = &insnBlock{buf: make([]Instruction, cap)}
		a.insnBlocks = append(a.insnBlocks, cur)
		a.total += cap * 4
	}
	out := cur.buf[cur.off : cur.off+n : cur.off+n]
	cur.off += n
	return out
}

func (a *Arena) curInsnBlock() *insnBlock {
	if len(a.insnBlocks) == 0 {
		return &insnBlock{}
	}
	return a.insnBlocks[len(a.insnBlocks)-1]
}

const linesPerBlock = 4096 // entries per block; lineCacheEntry is much larger than an Instruction

// AllocLineEntry returns a pointer to one freshly zeroed lineCacheEntry
// from a stable block. The pointer is stable for the arena's lifetime.
func (a *Arena) AllocLineEntry() *lineCacheEntry {
	cur := a.curLineBlock()
	if len(cur.buf)-cur.off < 1 {
		cur = &lineBlock{buf: make([]lineCacheEntry, linesPerBlock)}
		a.lineBlocks = append(a.lineBlocks, cur)
		a.total += linesPerBlock * lineCacheEntrySize
	}
	e := &cur.buf[cur.off]
	cur.off++
	return e
}

func (a *Arena) curLineBlock() *lineBlock {
	if len(a.lineBlocks) == 0 {
		return &lineBlock{}
	}
	return a.lineBlocks[len(a.lineBlocks)-1]
}
