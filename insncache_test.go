package main

import "testing"

func TestInsnCacheInternSameContentSameID(t *testing.T) {
	c := NewInsnCache()
	arena := NewArena()
	seq := []Instruction{NewInstruction(OpLDA, TargetNone, 1), NewInstruction(OpSTA, TargetCOLOR0, 0)}

	a := c.Intern(seq, arena)
	b := c.Intern(append([]Instruction(nil), seq...), arena)
	if a != b {
		t.Fatalf("expected identical content to intern to the same SeqID, got %+v vs %+v", a, b)
	}
}

func TestInsnCacheInternDifferentContentDifferentID(t *testing.T) {
	c := NewInsnCache()
	arena := NewArena()
	a := c.Intern([]Instruction{NewInstruction(OpLDA, TargetNone, 1)}, arena)
	b := c.Intern([]Instruction{NewInstruction(OpLDA, TargetNone, 2)}, arena)
	if a == b {
		t.Fatal("expected different content to intern to different SeqIDs")
	}
}

func TestInsnCacheInternEmptySequence(t *testing.T) {
	c := NewInsnCache()
	arena := NewArena()
	id := c.Intern(nil, arena)
	if !id.Valid() {
		t.Fatal("expected interning an empty sequence to still produce a valid SeqID")
	}
	seq, ok := c.Resolve(id)
	if !ok {
		t.Fatal("expected Resolve to find the interned empty sequence")
	}
	if len(seq) != 0 {
		t.Errorf("expected empty resolved sequence, got %d entries", len(seq))
	}
}

func TestInsnCacheResolveRoundTrip(t *testing.T) {
	c := NewInsnCache()
	arena := NewArena()
	seq := []Instruction{NewInstruction(OpLDX, TargetNone, 9), NewInstruction(OpSTX, TargetCOLBAK, 0)}
	id := c.Intern(seq, arena)

	got, ok := c.Resolve(id)
	if !ok {
		t.Fatal("expected Resolve to find a freshly interned sequence")
	}
	if len(got) != len(seq) {
		t.Fatalf("resolved length = %d, want %d", len(got), len(seq))
	}
	for i := range seq {
		if got[i] != seq[i] {
			t.Errorf("entry %d: got %v, want %v", i, got[i], seq[i])
		}
	}
}

func TestInsnCacheClearInvalidatesOldSeqIDs(t *testing.T) {
	c := NewInsnCache()
	arena := NewArena()
	id := c.Intern([]Instruction{NewInstruction(OpLDA, TargetNone, 1)}, arena)
	c.Clear()
	if _, ok := c.Resolve(id); ok {
		t.Fatal("expected a SeqID from before Clear to no longer resolve")
	}
}

func TestInsnCacheResolveUnknownID(t *testing.T) {
	c := NewInsnCache()
	if _, ok := c.Resolve(SeqID{gen: 1, idx: 99}); ok {
		t.Fatal("expected Resolve to fail for an out-of-range index")
	}
	if _, ok := c.Resolve(SeqID{gen: 999, idx: 0}); ok {
		t.Fatal("expected Resolve to fail for a mismatched generation")
	}
}
