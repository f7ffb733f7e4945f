package main

// AcceptancePolicy is the shared interface LAHC and DLAS both implement
// (spec §4.5). Policy state is protected by the same mutex that guards
// the Runner's shared best/counters; callers serialize access to it.
type AcceptancePolicy interface {
	Init(initialCost float64)
	Accept(candCost float64) bool
	PostIteration(currentCost float64)
	OnStageSwitch(currentCost float64, focusB bool)
}

// LAHC implements Late Acceptance Hill Climbing: a fixed-length ring of
// past costs; a candidate is accepted if it beats the entry L iterations
// back or beats the running current cost (original_source/src/optimization/LAHC.{h,cpp}).
type LAHC struct {
	history []float64
	idx     int
	current float64
}

// NewLAHC returns a policy with history length l (l >= 1).
func NewLAHC(l int) *LAHC {
	if l < 1 {
		l = 1
	}
	return &LAHC{history: make([]float64, l)}
}

func (p *LAHC) Init(initialCost float64) {
	p.current = initialCost
	for i := range p.history {
		p.history[i] = initialCost
	}
	p.idx = 0
}

// Accept implements "cand ≤ H[i mod L] ∨ cand < current" (spec §4.5).
func (p *LAHC) Accept(cand float64) bool {
	slot := p.history[p.idx%len(p.history)]
	return cand <= slot || cand < p.current
}

// PostIteration rotates the history ring: H[i mod L] <- current; i++.
// Callers pass the accepted current cost (the candidate if accepted,
// otherwise the unchanged current), matching the spec's "After each
// iteration" step.
func (p *LAHC) PostIteration(currentCost float64) {
	p.history[p.idx%len(p.history)] = currentCost
	p.current = currentCost
	p.idx++
}

// OnStageSwitch reseeds the ring around the new focus cost (dual mode
// staged scheduler flip, spec §4.7).
func (p *LAHC) OnStageSwitch(currentCost float64, focusB bool) {
	p.current = currentCost
	for i := range p.history {
		p.history[i] = currentCost
	}
	p.idx = 0
}

// DLAS implements Diversified/Delayed Late Acceptance (spec §4.5):
// tracks the ring's maximum cost and its multiplicity so acceptance
// compares against a slowly-relaxing ceiling rather than a single past
// entry (original_source/src/optimization/DLAS.{h,cpp}).
type DLAS struct {
	history     []float64
	idx         int
	current     float64
	costMax     float64
	multiplicity int
}

// NewDLAS returns a policy with initial ring length l (l >= 1).
func NewDLAS(l int) *DLAS {
	if l < 1 {
		l = 1
	}
	return &DLAS{history: make([]float64, l)}
}

// Init seeds current=initialScore, cost_max=initialScore*1.1, and fills
// H with cost_max (spec §4.5 "On first evaluation").
func (p *DLAS) Init(initialCost float64) {
	p.current = initialCost
	p.costMax = initialCost * 1.1
	for i := range p.history {
		p.history[i] = p.costMax
	}
	p.multiplicity = len(p.history)
	p.idx = 0
}

// Accept implements "cand == current ∨ cand < cost_max".
func (p *DLAS) Accept(cand float64) bool {
	return cand == p.current || cand < p.costMax
}

// PostIteration implements the full DLAS refresh rule from spec §4.5.
func (p *DLAS) PostIteration(currentCost float64) {
	l := p.idx % len(p.history)
	switch {
	case currentCost > p.history[l]:
		p.history[l] = currentCost
	case currentCost < p.history[l]:
		if p.history[l] == p.costMax {
			p.multiplicity--
		}
		p.history[l] = currentCost
		if p.multiplicity <= 0 {
			p.costMax, p.multiplicity = maxWithMultiplicity(p.history)
		}
	}
	p.current = currentCost
	p.idx++
}

// OnStageSwitch raises cost_max by max(5, current*0.02) and refills H
// with it, per spec §4.7's stage-flip policy refresh.
func (p *DLAS) OnStageSwitch(currentCost float64, focusB bool) {
	bump := currentCost * 0.02
	if bump < 5 {
		bump = 5
	}
	p.costMax = currentCost + bump
	for i := range p.history {
		p.history[i] = p.costMax
	}
	p.multiplicity = len(p.history)
	p.current = currentCost
	p.idx = 0
}

func maxWithMultiplicity(h []float64) (float64, int) {
	max := h[0]
	for _, v := range h[1:] {
		if v > max {
			max = v
		}
	}
	count := 0
	for _, v := range h {
		if v == max {
			count++
		}
	}
	return max, count
}
