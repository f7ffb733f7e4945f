package main

// Executor plays one scanline's instruction stream cycle-by-cycle over a
// virtual raster, ported from Executor::ExecuteRasterProgram
// (original_source/src/execution/Executor.cpp). One Executor belongs to
// exactly one worker; it owns that worker's Arena, InsnCache and the two
// LineCaches required by dual-cache role separation (spec §4.4/§9).
type Executor struct {
	Width, Height int
	FreeCycles    int

	Arena     *Arena
	Insns     *InsnCache
	Lines     *LineCache // single-frame / fixed-role cache
	LinesPair *LineCache // pair-aware cache, dual mode only

	onoff *OnOffMap
}

// NewExecutor wires a fresh per-worker Arena/InsnCache/LineCache set.
func NewExecutor(width, height, freeCycles int, onoff *OnOffMap, lruLines int) *Executor {
	return &Executor{
		Width: width, Height: height, FreeCycles: freeCycles,
		Arena:     NewArena(),
		Insns:     NewInsnCache(),
		Lines:     NewLineCache(lruLines),
		LinesPair: NewLineCache(lruLines),
		onoff:     onoff,
	}
}

// CostFunc scores a candidate color register's palette index at a global
// pixel index. Single-frame mode supplies a closure over the precomputed
// error map; dual-frame mode supplies the pair-cost closure from §4.7.
// Decoupling the cost function lets one Executor serve both modes
// without knowing about YUV tables itself.
type CostFunc func(colorIndex uint8, pixelIdx int) uint64

// LineResult is the per-scanline output of a completed (possibly cached)
// execution, returned to the Evaluator.
type LineResult struct {
	Error      uint64
	ExitState  RegisterState
	ColorRow   []uint8
	TargetRow  []Target
	SpriteData [4][spriteSize]uint8
}

// offsetForCycle maps a cycle count to the x-offset at which an
// instruction issued at that cycle becomes observable. The original
// engine drives this through a precomputed per-scanline timing table
// that was not part of the retrieved source (cache/cycle-layout fidelity
// is an explicit spec non-goal); this is a simple monotone stand-in: one
// x-column per cycle, biased so cycle 0 lands before the scanned range
// opens, matching spec §8 scenario 2 (instructions at cycle 0 apply
// before pixel 0 is scanned).
func offsetForCycle(cycle int) int {
	return cycle - spritePrelude - 1
}

// Execute runs pic through the virtual raster and returns the total
// error plus per-line results. costFn is invoked once per visible pixel.
// Execute returns no error: malformed instructions are rejected at
// Mutator/assembler boundaries. Arena allocation is not checked here and
// no ResourceError is produced; the worker loop has no recover.
func (e *Executor) Execute(pic *Program, costFn CostFunc, pair bool) (uint64, []LineResult) {
	lineCache := e.Lines
	if pair {
		lineCache = e.LinesPair
	}

	e.ensureInterned(pic)
	pic = e.applyOnOff(pic)

	results := make([]LineResult, e.Height)
	var totalError uint64

	reg := RegisterState{Mem: pic.InitReg.Mem}
	sprites := &SpriteState{}

	for y := 0; y < e.Height; y++ {
		entry := reg
		line := pic.Lines[y]

		key := LineCacheKey{Entry: entry, Seq: line.Seq}
		h := key.Hash()

		if cached, ok := lineCache.Find(key, h); ok {
			reg = cached.ExitState
			results[y] = LineResult{
				Error: cached.LineError, ExitState: cached.ExitState,
				ColorRow: cached.ColorRow, TargetRow: cached.TargetRow,
				SpriteData: cached.SpriteData,
			}
			totalError += cached.LineError
			sprites.Reset()
			continue
		}

		lineErr, exitState, colorRow, targetRow, spriteData := e.executeLine(line, entry, sprites, costFn, y)

		stored := lineCache.Insert(key, h, y, e.Arena)
		stored.LineError = lineErr
		stored.ExitState = exitState
		stored.ColorRow = append([]uint8(nil), colorRow...)
		stored.TargetRow = append([]Target(nil), targetRow...)
		stored.SpriteData = spriteData

		results[y] = LineResult{Error: lineErr, ExitState: exitState, ColorRow: stored.ColorRow, TargetRow: stored.TargetRow, SpriteData: spriteData}
		totalError += lineErr
		reg = exitState
	}

	return totalError, results
}

// evictBatch is how many least-recently-used scanlines' cache entries
// EnforceBudget tries to drop via soft LRU eviction before resorting to a
// full clear (spec §4.4 "Soft LRU eviction of per-line caches").
const evictBatch = 64

// EnforceBudget implements spec §4.8's worker-loop arena check: "if
// arena.size > budget: evict_or_clear(); re-intern local_current". It
// first tries soft LRU eviction on both line caches; if the arena is
// still over budget afterwards, it performs the coarse invalidation spec
// §4.1/§4.4/§9 require — arena, InsnCache and both LineCaches cleared in
// one step — and forces every line of the given programs to be
// re-interned on next use by nulling their (now stale) SeqIDs, matching
// §4.2's "re-intern the worker's current best" after a clear. Programs
// that are nil (e.g. a dual-mode B program when dual mode is off) are
// skipped.
func (e *Executor) EnforceBudget(budgetBytes int, progs ...*Program) {
	if e.Arena.Size() <= budgetBytes {
		return
	}
	e.Lines.EvictLRU(evictBatch)
	e.LinesPair.EvictLRU(evictBatch)
	if e.Arena.Size() <= budgetBytes {
		return
	}

	e.Arena.Clear()
	e.Insns.Clear()
	e.Lines.Clear()
	e.LinesPair.Clear()
	for _, p := range progs {
		if p == nil {
			continue
		}
		for _, l := range p.Lines {
			l.Seq = SeqID{}
		}
	}
}

// ensureInterned re-interns any line left with a null SeqID by a prior
// mutation (spec §4.2's "Caching discipline": lazy recache on first use).
func (e *Executor) ensureInterned(pic *Program) {
	for _, l := range pic.Lines {
		if !l.Seq.Valid() {
			l.Seq = e.Insns.Intern(l.Insns, e.Arena)
		}
	}
}

// applyOnOff rewrites disabled stores to the no-target sentinel and
// zeroes disabled init registers, per spec §4.2 "OnOff disabling". It
// returns pic unmodified when no OnOffMap is configured.
func (e *Executor) applyOnOff(pic *Program) *Program {
	if e.onoff == nil {
		return pic
	}
	cp := &Program{Lines: make([]*Line, len(pic.Lines)), InitReg: pic.InitReg}
	for t := Target(0); t < TargetMax; t++ {
		if !e.onoff.Allowed(0, t) {
			cp.InitReg.Mem[t] = 0
		}
	}
	for y, l := range pic.Lines {
		insns := make([]Instruction, len(l.Insns))
		changed := false
		for i, ins := range l.Insns {
			if ins.Op().IsStore() && !e.onoff.Allowed(y, ins.Target()) {
				insns[i] = ins.WithTarget(TargetNone)
				changed = true
			} else {
				insns[i] = ins
			}
		}
		if changed {
			// Carry over l's pre-suppression sequence identity rather than
			// leaving it zero. The OnOff map is fixed for the whole run, so
			// suppression is a deterministic function of l.Seq; reusing it as
			// the LineCache key avoids every OnOff-suppressed line looking
			// identical (distinct scanlines colliding on Entry alone once Seq
			// reads as invalid, since LineCache is keyed by (Entry, Seq) and is
			// not itself partitioned per-y).
			cp.Lines[y] = &Line{Insns: insns, Seq: l.Seq}
		} else {
			cp.Lines[y] = l
		}
	}
	return cp
}

// executeLine runs the restart loop for one scanline (spec §4.2's
// "restart-on-late-coverage" state machine, modeled as an explicit outer
// loop per spec §9's design note).
func (e *Executor) executeLine(line *Line, entry RegisterState, sprites *SpriteState, costFn CostFunc, y int) (uint64, RegisterState, []uint8, []Target, [4][spriteSize]uint8) {
	colorRow := make([]uint8, e.Width)
	targetRow := make([]Target, e.Width)

	// Sprite row memory persists across restart attempts for this line
	// (it is only zeroed once per line, not per attempt): a bit set by an
	// aborted attempt stays set on the redo, which is what lets the
	// restarted pass see the sprite as already-opaque and proceed without
	// restarting again (spec §4.2 "Restart-on-coverage").
	var sprMem [4][spriteSize]uint8

	for restarts := 0; ; restarts++ {
		sprites.Reset()
		sprites.ResetShiftStartArray(entry.Mem)

		reg := entry
		var lineErr uint64
		restart := false

		ip := 0
		cycle := 0
		next := offsetForCycle(cycle)
		if len(line.Insns) == 0 {
			next = 1 << 20
		}

		for x := -spritePrelude; x < e.Width+spritePostlude; x++ {
			checkX := x + spritePrelude
			if checkX >= 0 && checkX < len(sprites.startArray) {
				mask := sprites.startArray[checkX]
				for i := 0; i < 4; i++ {
					if mask&(1<<uint(i)) != 0 {
						sprites.StartShift(i, reg.Mem[SpriteHPosTarget(i)])
					}
				}
			}

			for next < x && ip < len(line.Insns) {
				ins := line.Insns[ip]
				ip++
				e.executeInstruction(ins, checkX, &reg, sprites, &sprMem, &lineErr)
				cycle += ins.Cycles()
				next = offsetForCycle(cycle)
				if ip >= len(line.Insns) {
					next = 1 << 20
				}
			}

			if x >= 0 && x < e.Width {
				target, palIdx, cost := e.findClosestRegister(&reg, &sprMem, sprites, x, y*e.Width+x, costFn, &restart)
				lineErr += cost
				colorRow[x] = palIdx
				targetRow[x] = target
			}
		}

		if !restart {
			return lineErr, reg, colorRow, targetRow, sprMem
		}
		if restarts >= 4*spriteSize {
			return lineErr, reg, colorRow, targetRow, sprMem
		}
	}
}

// executeInstruction applies one LD/ST, including the sprite hazard
// penalty and shift-start bookkeeping for HPOSPi stores (spec §4.2).
func (e *Executor) executeInstruction(ins Instruction, checkX int, reg *RegisterState, sprites *SpriteState, sprMem *[4][spriteSize]uint8, lineErr *uint64) {
	switch ins.Op() {
	case OpLDA:
		reg.A = ins.Value()
		return
	case OpLDX:
		reg.X = ins.Value()
		return
	case OpLDY:
		reg.Y = ins.Value()
		return
	}

	if ins.Disabled() {
		return
	}

	var value uint8
	switch ins.Op() {
	case OpSTA:
		value = reg.A
	case OpSTX:
		value = reg.X
	case OpSTY:
		value = reg.Y
	default:
		return
	}

	target := ins.Target()
	if target.IsSpriteHPos() {
		i := target.SpriteIndex()
		oldX := reg.Mem[target]
		newX := value
		if oldX != newX {
			hasBits := false
			for b := 0; b < spriteSize; b++ {
				if sprMem[i][b] != 0 {
					hasBits = true
					break
				}
			}
			if hasBits {
				if d := int(oldX) - checkX; d > 0 && d <= 6 {
					*lineErr += 100000
				}
				if d := int(newX) - checkX; d > 0 && d <= 6 {
					*lineErr += 100000
				}
			}
		}
		sprites.UpdateShiftStartArray(oldX, newX, i)
		reg.Mem[target] = newX
		return
	}

	reg.Mem[target] = value
}

// findClosestRegister selects the winning color register for one visible
// pixel and applies the restart-on-coverage rule, per spec §4.2
// "Per-pixel color selection" and "Restart-on-coverage".
func (e *Executor) findClosestRegister(reg *RegisterState, sprMem *[4][spriteSize]uint8, sprites *SpriteState, x, idx int, costFn CostFunc, restart *bool) (Target, uint8, uint64) {
	best := TargetCOLBAK
	bestCost := ^uint64(0)
	spriteCovers := false
	bestSpriteBit := -1

	for i := 0; i < 4; i++ {
		bit, leftoverBit, hasLeftover, ok := sprites.Covers(i, x)
		if !ok {
			continue
		}
		spriteCovers = true
		t := SpriteColorTarget(i)
		palIdx := reg.Mem[t] >> 1
		cost := costFn(palIdx, idx)

		leftoverLit := hasLeftover && sprMem[i][leftoverBit] != 0
		opaque := sprMem[i][bit] != 0 || leftoverLit
		if opaque {
			// An opaque sprite bit wins outright here, independent of cost
			// (spec §4.2 per-pixel selection): it already owns this pixel.
			e.markRestart(sprMem, i, bit, restart)
			return t, reg.Mem[t] >> 1, cost
		}
		if cost < bestCost {
			best = t
			bestCost = cost
			bestSpriteBit = bit
		}
	}

	lastColor := TargetCOLBAK
	if spriteCovers {
		lastColor = TargetCOLOR2
	}
	for t := TargetCOLOR0; t <= lastColor; t++ {
		palIdx := reg.Mem[t] >> 1
		cost := costFn(palIdx, idx)
		if cost < bestCost {
			best = t
			bestCost = cost
			bestSpriteBit = -1
		}
	}

	if best >= TargetCOLPM0 && best <= TargetCOLPM3 && bestSpriteBit >= 0 {
		i := int(best - TargetCOLPM0)
		e.markRestart(sprMem, i, bestSpriteBit, restart)
	}

	return best, reg.Mem[best] >> 1, bestCost
}

// markRestart sets sprite i's row bit and flags a restart if this is the
// first time this pixel position is realized by that sprite (spec §4.2
// "Restart-on-coverage").
func (e *Executor) markRestart(sprMem *[4][spriteSize]uint8, i, bit int, restart *bool) {
	if sprMem[i][bit] == 0 {
		sprMem[i][bit] = 1
		*restart = true
	}
}
