package main

// Target identifies a memory-mapped, writable register on the virtual
// raster coprocessor. Names follow the GTIA/ANTIC register vocabulary
// (see video_antic.go in the teacher engine for the IE32 equivalents of
// COLPM0-3/COLBAK/HPOSP0-3) rather than a generic numbered register file,
// since the spec's instruction set targets exactly these registers.
type Target uint8

const (
	TargetCOLOR0 Target = iota
	TargetCOLOR1
	TargetCOLOR2
	TargetCOLBAK
	TargetCOLPM0
	TargetCOLPM1
	TargetCOLPM2
	TargetCOLPM3
	TargetHPOSP0
	TargetHPOSP1
	TargetHPOSP2
	TargetHPOSP3
	TargetGRAFP0
	TargetGRAFP1
	TargetGRAFP2
	TargetGRAFP3
	TargetMax // number of real writable targets; also T in mem_regs[T]
	TargetNone = Target(0xFF)
)

var targetNames = [TargetMax]string{
	TargetCOLOR0: "COLOR0",
	TargetCOLOR1: "COLOR1",
	TargetCOLOR2: "COLOR2",
	TargetCOLBAK: "COLBAK",
	TargetCOLPM0: "COLPM0",
	TargetCOLPM1: "COLPM1",
	TargetCOLPM2: "COLPM2",
	TargetCOLPM3: "COLPM3",
	TargetHPOSP0: "HPOSP0",
	TargetHPOSP1: "HPOSP1",
	TargetHPOSP2: "HPOSP2",
	TargetHPOSP3: "HPOSP3",
	TargetGRAFP0: "GRAFP0",
	TargetGRAFP1: "GRAFP1",
	TargetGRAFP2: "GRAFP2",
	TargetGRAFP3: "GRAFP3",
}

// String renders a target the way the .rp text format expects it.
func (t Target) String() string {
	if t == TargetNone {
		return "NONE"
	}
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return "?"
}

// ParseTarget resolves a register name from .rp text or an OnOff file
// against the target vocabulary. Returns (target, true) on success.
func ParseTarget(name string) (Target, bool) {
	for t, n := range targetNames {
		if n == name {
			return Target(t), true
		}
	}
	return TargetNone, false
}

// IsSpriteHPos reports whether t is one of the four sprite horizontal
// position registers.
func (t Target) IsSpriteHPos() bool {
	return t >= TargetHPOSP0 && t <= TargetHPOSP3
}

// SpriteIndex returns the sprite index (0-3) for an HPOSPi/COLPMi/GRAFPi
// target. Only valid when the target is one of those families.
func (t Target) SpriteIndex() int {
	switch {
	case t >= TargetCOLPM0 && t <= TargetCOLPM3:
		return int(t - TargetCOLPM0)
	case t >= TargetHPOSP0 && t <= TargetHPOSP3:
		return int(t - TargetHPOSP0)
	case t >= TargetGRAFP0 && t <= TargetGRAFP3:
		return int(t - TargetGRAFP0)
	default:
		return -1
	}
}

// SpriteColorTarget returns the COLPMi register for sprite index i.
func SpriteColorTarget(i int) Target { return TargetCOLPM0 + Target(i) }

// SpriteHPosTarget returns the HPOSPi register for sprite index i.
func SpriteHPosTarget(i int) Target { return TargetHPOSP0 + Target(i) }
