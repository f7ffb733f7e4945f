package main

// MutationKind enumerates the nine typed scanline edits of spec §4.3,
// ported from RasterMutator's E_MUTATION_* switch
// (original_source/src/mutation/RasterMutator.cpp).
type MutationKind int

const (
	MutCopyLineToNext MutationKind = iota
	MutPushBackToPrev
	MutSwapLineWithPrev
	MutAddInstruction
	MutRemoveInstruction
	MutSwapInstruction
	MutChangeTarget
	MutChangeValueToColor
	MutChangeValue
	mutationKindCount
)

// Mutator applies one typed edit per call to a candidate program,
// weighted by a running per-kind success/attempt ratio (spec §4.3).
// One Mutator belongs to exactly one worker (region-based line
// selection is keyed off ThreadID/ThreadCount, matching
// RasterMutator's thread_id constructor argument).
type Mutator struct {
	Width, Height int
	FreeCycles    int

	ThreadID    int
	ThreadCount int

	// PossibleColors[y] lists register values (palette index × 2) the
	// caller has declared plausible for scanline y (spec §4.3 bullet 4b).
	PossibleColors [][]uint8

	// SourceIndexAt returns the quantized source-image palette index
	// at pixel (x, y) — FindPaletteIndex(source_pixel_at(x,y)) in the
	// original's terms.
	SourceIndexAt func(x, y int) uint8

	currentY int

	attempt [mutationKindCount]int
	success [mutationKindCount]int
}

// NewMutator wires a per-worker Mutator. threadID/threadCount partition
// [0,height) into equal slabs for region-biased line selection.
func NewMutator(width, height, freeCycles, threadID, threadCount int, possibleColors [][]uint8, sourceIndexAt func(x, y int) uint8) *Mutator {
	return &Mutator{
		Width: width, Height: height, FreeCycles: freeCycles,
		ThreadID: threadID, ThreadCount: threadCount,
		PossibleColors: possibleColors,
		SourceIndexAt:  sourceIndexAt,
	}
}

func (m *Mutator) region() (start, end int) {
	perThread := m.Height / m.ThreadCount
	start = m.ThreadID * perThread
	if m.ThreadID == m.ThreadCount-1 {
		end = m.Height
	} else {
		end = start + perThread
	}
	if end <= start {
		end = start + 1
	}
	return start, end
}

// selectMutation picks a kind weighted by success/attempt (minimum
// weight 0.1), matching RasterMutator::SelectMutation.
func (m *Mutator) selectMutation(rng *RNG) MutationKind {
	var weights [mutationKindCount]float64
	total := 0.0
	for i := 0; i < int(mutationKindCount); i++ {
		rate := 0.1
		if m.attempt[i] > 10 {
			rate = float64(m.success[i]) / float64(m.attempt[i])
		}
		weights[i] = 0.1 + 0.9*rate
		total += weights[i]
	}
	r := rng.Float64() * total
	sum := 0.0
	for i := 0; i < int(mutationKindCount); i++ {
		sum += weights[i]
		if r <= sum {
			return MutationKind(i)
		}
	}
	return MutationKind(rng.Intn(int(mutationKindCount)))
}

func (m *Mutator) pickLine(rng *RNG) int {
	start, end := m.region()
	if rng.Intn(100) < 80 {
		return start + rng.Intn(end-start)
	}
	return rng.Intn(m.Height)
}

// Mutate applies exactly one top-level edit to pic, per spec §4.3's
// full pipeline: an occasional init-register nudge, a line-level edit,
// and an occasional burst of extra edits on nearby lines.
func (m *Mutator) Mutate(pic *Program, rng *RNG) {
	if rng.Intn(10) == 0 {
		m.nudgeInitReg(pic, rng)
	}

	if m.currentY < 0 || m.currentY >= pic.Height() {
		m.currentY = 0
	}
	m.currentY = m.pickLine(rng)
	m.mutateLine(pic.Lines[m.currentY], pic, rng)

	if rng.Intn(20) == 0 {
		start, end := m.region()
		for t := 0; t < 10; t++ {
			if rng.Intn(2) == 1 && m.currentY > start {
				m.currentY--
			} else if m.currentY < end-1 {
				m.currentY++
			} else {
				m.currentY = start + rng.Intn(end-start)
			}
			m.mutateLine(pic.Lines[m.currentY], pic, rng)
		}
	}
}

// MutateDual applies the dual-mode extras of spec §4.3: with
// probability crossShareProb, a line-level cross op (copy or swap one
// line between A and B) replaces the ordinary per-frame edit;
// otherwise whichever frame targetsB selects is mutated normally.
func (m *Mutator) MutateDual(picA, picB *Program, targetsB bool, crossShareProb float64, rng *RNG) {
	if crossShareProb > 0 && rng.Float64() < crossShareProb {
		y := m.pickLine(rng)
		if rng.Intn(2) == 0 {
			picB.Lines[y] = picA.Lines[y].Clone()
		} else {
			picA.Lines[y], picB.Lines[y] = picB.Lines[y], picA.Lines[y]
		}
		return
	}
	if targetsB {
		m.Mutate(picB, rng)
	} else {
		m.Mutate(picA, rng)
	}
}

func (m *Mutator) nudgeInitReg(pic *Program, rng *RNG) {
	delta := int8(1)
	if rng.Intn(2) == 1 {
		delta = -delta
	}
	if rng.Intn(2) == 1 {
		delta *= 16
	}
	var t Target
	for {
		t = Target(rng.Intn(int(TargetMax)))
		if t != TargetCOLBAK {
			break
		}
	}
	pic.InitReg.Mem[t] += uint8(delta)
}

// mutateLine applies a batch of edits whose size scales with the
// line's current length (RasterMutator::MutateLine), then nulls the
// identity so the Executor re-interns it lazily (spec §4.3 "Recache").
func (m *Mutator) mutateLine(line *Line, pic *Program, rng *RNG) {
	count := 3 + len(line.Insns)/5
	if count > 8 {
		count = 8
	}
	for i := 0; i < count; i++ {
		m.mutateOnce(line, pic, rng)
	}
	line.Seq = SeqID{}
}

// mutateOnce picks a weighted mutation kind and applies it, falling
// through the same precondition chain as RasterMutator::MutateOnce:
// COPY_LINE_TO_NEXT -> PUSH_BACK_TO_PREV -> SWAP_LINE_WITH_PREV ->
// ADD_INSTRUCTION -> REMOVE_INSTRUCTION -> SWAP_INSTRUCTION ->
// CHANGE_TARGET (always succeeds). CHANGE_VALUE_TO_COLOR and
// CHANGE_VALUE stand outside that chain and only run when selected
// directly.
func (m *Mutator) mutateOnce(line *Line, pic *Program, rng *RNG) {
	kind := m.selectMutation(rng)
	m.attempt[kind]++

	if len(line.Insns) == 0 {
		m.applyAddInstruction(line, pic, rng)
		m.success[kind]++
		return
	}
	i1 := rng.Intn(len(line.Insns))

	switch kind {
	case MutChangeValueToColor:
		m.applyChangeValueToColor(line, pic, i1, rng)
		m.success[kind]++
		return
	case MutChangeValue:
		m.applyChangeValue(line, i1, rng)
		m.success[kind]++
		return
	}

	if kind <= MutCopyLineToNext {
		if m.currentY < pic.Height()-1 {
			*line = *pic.Lines[m.currentY+1].Clone()
			m.success[kind]++
			return
		}
	}
	if kind <= MutPushBackToPrev {
		if m.currentY > 0 {
			prev := pic.Lines[m.currentY-1]
			ins := line.Insns[i1]
			if prev.CycleTotal()+ins.Cycles() < m.FreeCycles {
				prev.Insns = append(prev.Insns, ins)
				prev.Seq = SeqID{}
				m.success[kind]++
				return
			}
		}
	}
	if kind <= MutSwapLineWithPrev {
		if m.currentY > 0 {
			pic.Lines[m.currentY], pic.Lines[m.currentY-1] = pic.Lines[m.currentY-1], pic.Lines[m.currentY]
			line = pic.Lines[m.currentY]
			m.success[kind]++
			return
		}
	}
	if kind <= MutAddInstruction {
		if m.applyAddInstruction(line, pic, rng) {
			m.success[kind]++
			return
		}
	}
	if kind <= MutRemoveInstruction {
		if len(line.Insns) > 1 {
			line.Insns[i1] = line.Insns[len(line.Insns)-1]
			line.Insns = line.Insns[:len(line.Insns)-1]
			m.success[kind]++
			return
		}
	}
	if kind <= MutSwapInstruction {
		if len(line.Insns) > 2 {
			i2 := i1
			for i2 == i1 {
				i2 = rng.Intn(len(line.Insns))
			}
			line.Insns[i1], line.Insns[i2] = line.Insns[i2], line.Insns[i1]
			m.success[kind]++
			return
		}
	}

	// CHANGE_TARGET: guaranteed terminal fallback.
	line.Insns[i1] = line.Insns[i1].WithTarget(Target(rng.Intn(int(TargetMax))))
	m.success[kind]++
}

func (m *Mutator) applyAddInstruction(line *Line, pic *Program, rng *RNG) bool {
	total := line.CycleTotal()
	if total+2 >= m.FreeCycles {
		return false
	}

	var ins Instruction
	if total+4 < m.FreeCycles && rng.Intn(2) == 1 {
		op := Op(int(OpSTA) + rng.Intn(3))
		value := uint8(rng.Intn(128) * 2)
		target := Target(rng.Intn(int(TargetMax)))
		ins = NewInstruction(op, target, value)
	} else {
		op := Op(int(OpLDA) + rng.Intn(3))
		value := m.pickAddValue(pic, rng)
		target := Target(rng.Intn(int(TargetMax)))
		ins = NewInstruction(op, target, value)
	}

	pos := rng.Intn(len(line.Insns) + 1)
	line.Insns = append(line.Insns, Instruction(0))
	copy(line.Insns[pos+1:], line.Insns[pos:])
	line.Insns[pos] = ins
	return true
}

// pickAddValue implements spec §4.3 bullet 4's three-way value choice
// for ADD_INSTRUCTION: a uniform doubled palette index, a line-declared
// possible color, or the quantized source pixel at a random column.
func (m *Mutator) pickAddValue(pic *Program, rng *RNG) uint8 {
	switch rng.Intn(3) {
	case 0:
		return uint8(rng.Intn(128) * 2)
	case 1:
		colors := m.PossibleColors[m.currentY]
		if len(colors) == 0 {
			return uint8(rng.Intn(128) * 2)
		}
		return colors[rng.Intn(len(colors))]
	default:
		x := rng.Intn(m.Width)
		return m.SourceIndexAt(x, m.currentY) * 2
	}
}

// applyChangeValueToColor implements spec §4.3 bullet 8: set value to
// the quantized source color at a raster column sampled from the
// cumulative cycle cost of instructions preceding i1, biased forward
// by a geometric jitter (RasterMutator::MutateOnce's E_MUTATION_CHANGE_VALUE_TO_COLOR
// case, adapted to offsetForCycle since the cycle->column timing table
// is not part of the retrieved source).
func (m *Mutator) applyChangeValueToColor(line *Line, pic *Program, i1 int, rng *RNG) {
	target := line.Insns[i1].Target()
	var x int
	if target.IsSpriteHPos() {
		x = int(pic.InitReg.Mem[target]) + rng.Intn(spriteSize)
	} else {
		c := 0
		for j := 0; j < i1; j++ {
			c += line.Insns[j].Cycles()
		}
		for rng.Intn(5) == 0 {
			c++
		}
		if c >= m.FreeCycles {
			c = m.FreeCycles - 1
		}
		x = offsetForCycle(c)
	}
	if x < 0 || x >= m.Width {
		x = rng.Intn(m.Width)
	}

	y := m.currentY
	for rng.Intn(5) == 0 && y+1 < m.Height {
		y++
	}

	value := m.SourceIndexAt(x, y) * 2
	line.Insns[i1] = line.Insns[i1].withValue(value)
}

// applyChangeValue implements spec §4.3 bullet 9: usually perturb the
// value by +-1 or +-16; 1-in-10 replace it outright with a fresh
// palette pick.
func (m *Mutator) applyChangeValue(line *Line, i1 int, rng *RNG) {
	if rng.Intn(10) == 0 {
		var value uint8
		if rng.Intn(2) == 1 {
			value = uint8(rng.Intn(128) * 2)
		} else {
			colors := m.PossibleColors[m.currentY]
			if len(colors) == 0 {
				value = uint8(rng.Intn(128) * 2)
			} else {
				value = colors[rng.Intn(len(colors))]
			}
		}
		line.Insns[i1] = line.Insns[i1].withValue(value)
		return
	}

	delta := int8(1)
	if rng.Intn(2) == 1 {
		delta = -delta
	}
	if rng.Intn(2) == 1 {
		delta *= 16
	}
	cur := line.Insns[i1].Value()
	line.Insns[i1] = line.Insns[i1].withValue(cur + uint8(delta))
}
