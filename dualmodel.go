package main

import "math"

// Fixed pair-objective constants from spec §4.7. These are not
// configurable: only the weights w_L/w_C and the ramp are.
const (
	flickerLumaThresh   = 3.0
	flickerChromaThresh = 8.0
	flickerExp          = 2
)

// PaletteYUV holds the absolute Y/U/V value of each of the 128 palette
// colors, matching the YUVMetric channel weights already used for
// single-frame color distance (colormetric.go) so both cost domains
// agree on what "YUV" means for this engine.
type PaletteYUV struct {
	Y, U, V [128]float32
}

func rgbToYUV(c RGB) (y, u, v float32) {
	fy := 0.299*float32(c.R) + 0.587*float32(c.G) + 0.114*float32(c.B)
	fu := (float32(c.B) - fy) * 0.565
	fv := (float32(c.R) - fy) * 0.713
	return fy, fu, fv
}

// DualModel implements the dual-frame pair objective of spec §4.7: a
// precomputed 128x128 pair table over palette index pairs, a per-pixel
// source YUV target, and the luma-ramp schedule, grounded on
// CoreEvaluator::evaluateDual's pair-cost loop
// (original_source/src/optimization/CoreEvaluator.cpp).
type DualModel struct {
	Width, Height int

	Palette PaletteYUV

	// TargetY/U/V are the precomputed source-image YUV values, one
	// entry per pixel, length Width*Height.
	TargetY, TargetU, TargetV []float32

	pairYsum, pairUsum, pairVsum [128 * 128]float32
	pairDY, pairDC               [128 * 128]float32

	WeightL        float64
	WeightC        float64
	WeightLInitial float64
	BlinkRampEvals uint64
}

// NewDualModel builds the palette YUV table, the per-pair precomputed
// tables, and stores the immutable per-pixel target (spec §4.7
// "Inputs"/"Precomputed tables"). palette must have at most 128
// entries; targetY/U/V must each have Width*Height entries.
func NewDualModel(width, height int, palette []RGB, targetY, targetU, targetV []float32, cfg *Config) *DualModel {
	m := &DualModel{
		Width: width, Height: height,
		TargetY: targetY, TargetU: targetU, TargetV: targetV,
		WeightL:        cfg.WeightL,
		WeightC:        cfg.WeightC,
		WeightLInitial: cfg.WeightLInitial,
		BlinkRampEvals: cfg.BlinkRampEvals,
	}
	for i, c := range palette {
		if i >= 128 {
			break
		}
		m.Palette.Y[i], m.Palette.U[i], m.Palette.V[i] = rgbToYUV(c)
	}
	m.buildPairTables()
	return m
}

func (m *DualModel) buildPairTables() {
	for a := 0; a < 128; a++ {
		ya, ua, va := m.Palette.Y[a], m.Palette.U[a], m.Palette.V[a]
		for b := 0; b < 128; b++ {
			yb, ub, vb := m.Palette.Y[b], m.Palette.U[b], m.Palette.V[b]
			idx := a*128 + b
			m.pairYsum[idx] = ya + yb
			m.pairUsum[idx] = ua + ub
			m.pairVsum[idx] = va + vb
			m.pairDY[idx] = float32(math.Abs(float64(ya - yb)))
			du := ua - ub
			dv := va - vb
			m.pairDC[idx] = float32(math.Sqrt(float64(du*du + dv*dv)))
		}
	}
}

// effectiveWeightL linearly interpolates from WeightLInitial to
// WeightL over BlinkRampEvals evaluations (spec §4.7 "Ramp").
func (m *DualModel) effectiveWeightL(evaluations uint64) float64 {
	if m.BlinkRampEvals == 0 {
		return m.WeightL
	}
	t := float64(evaluations) / float64(m.BlinkRampEvals)
	if t > 1 {
		t = 1
	}
	return (1-t)*m.WeightLInitial + t*m.WeightL
}

// PairCostFn returns a CostFunc scoring a candidate palette index at
// idx against the fixed frame's already-rendered color at that same
// pixel (fixedRow), implementing spec §4.7's per-pixel pair cost. The
// returned value is a float64 cost truncated to uint64 like the
// single-frame error map's 32-bit distances; the two domains are never
// compared directly so no shared scale is required.
func (m *DualModel) PairCostFn(fixedRow []uint8, evaluations uint64) CostFunc {
	wl := m.effectiveWeightL(evaluations)
	wc := m.WeightC
	return func(colorIndex uint8, pixelIdx int) uint64 {
		b := fixedRow[pixelIdx]
		ab := int(colorIndex)*128 + int(b)

		ybar := float64(m.pairYsum[ab]) * 0.5
		ubar := float64(m.pairUsum[ab]) * 0.5
		vbar := float64(m.pairVsum[ab]) * 0.5

		dy := ybar - float64(m.TargetY[pixelIdx])
		du := ubar - float64(m.TargetU[pixelIdx])
		dv := vbar - float64(m.TargetV[pixelIdx])
		base := dy*dy + du*du + dv*dv

		flick := 0.0
		if yl := float64(m.pairDY[ab]) - flickerLumaThresh; yl > 0 {
			flick += wl * math.Pow(yl, flickerExp)
		}
		if yc := float64(m.pairDC[ab]) - flickerChromaThresh; yc > 0 {
			flick += wc * math.Pow(yc, flickerExp)
		}

		cost := base + flick
		if cost < 0 {
			cost = 0
		}
		return uint64(cost)
	}
}

// DualInitMode selects how frame B is seeded from frame A (spec §4.7
// "Initialization").
type DualInitMode int

const (
	DualInitDup DualInitMode = iota
	DualInitRandom
	DualInitAnti
)

func ParseDualInitMode(name string) (DualInitMode, bool) {
	switch name {
	case "dup":
		return DualInitDup, true
	case "random":
		return DualInitRandom, true
	case "anti":
		return DualInitAnti, true
	default:
		return DualInitDup, false
	}
}

// SeedDualProgram builds frame B from frame A per mode: DUP leaves B
// identical to A; RANDOM applies about H/2 mutations; ANTI applies
// about 2H mutations for heavier divergence (spec §4.7). rng drives
// every mutation so results are reproducible from a fixed seed.
func SeedDualProgram(a *Program, mode DualInitMode, mut *Mutator, rng *RNG) *Program {
	b := a.Clone()
	var n int
	switch mode {
	case DualInitDup:
		return b
	case DualInitRandom:
		n = b.Height() / 2
	case DualInitAnti:
		n = b.Height() * 2
	}
	for i := 0; i < n; i++ {
		mut.Mutate(b, rng)
	}
	return b
}

// DualStrategy selects the scheduler that decides, per iteration,
// whether frame A or frame B is the mutated/focus frame (spec §4.7
// "Stage scheduler").
type DualStrategy int

const (
	DualAlternate DualStrategy = iota
	DualStaged
)

func ParseDualStrategy(name string) (DualStrategy, bool) {
	switch name {
	case "alternate":
		return DualAlternate, true
	case "staged":
		return DualStaged, true
	default:
		return DualAlternate, false
	}
}

// StageScheduler decides which frame a worker mutates next. ALTERNATE
// picks B with probability mutateRatio every call; STAGED holds focus
// on one frame for stageEvals iterations before flipping, invoking
// onFlip (wired to the policy's OnStageSwitch) on every flip.
type StageScheduler struct {
	strategy    DualStrategy
	mutateRatio float64
	stageEvals  uint64

	focusB   bool
	sinceFlip uint64
}

func NewStageScheduler(strategy DualStrategy, mutateRatio float64, stageEvals uint64) *StageScheduler {
	return &StageScheduler{strategy: strategy, mutateRatio: mutateRatio, stageEvals: stageEvals}
}

// Next reports whether this iteration should mutate B, flipping the
// STAGED scheduler's focus and invoking onFlip exactly on the
// iteration the flip occurs.
func (s *StageScheduler) Next(rng *RNG, currentCost float64, onFlip func(currentCost float64, focusB bool)) bool {
	switch s.strategy {
	case DualAlternate:
		return rng.Bool(s.mutateRatio)
	default:
		s.sinceFlip++
		if s.stageEvals > 0 && s.sinceFlip >= s.stageEvals {
			s.focusB = !s.focusB
			s.sinceFlip = 0
			if onFlip != nil {
				onFlip(currentCost, s.focusB)
			}
		}
		return s.focusB
	}
}
