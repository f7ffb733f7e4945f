// checkpoint.go - Runner state persistence: <base>.lahc/.dlas policy
// state plus <base>.rp/<base>.rp.ini program dumps (spec §6).
//
// Adapted from debug_snapshot.go's save/load idiom (explicit framing,
// error-wrapped reads, os.ReadFile/os.WriteFile) but the on-disk format
// here is plain text, not gzip-framed binary, since spec §6 requires a
// checkpoint that is itself a readable, editable document.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SaveLAHC writes L, index, then the fixed float triple cost_max=0,
// N=0, current_cost, then the L history entries. cost_max/N are LAHC-
// inert placeholders kept only so .lahc and .dlas share one reader.
func SaveLAHC(path string, p *LAHC) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%d\n", len(p.history), p.idx)
	fmt.Fprintf(&b, "%g\n%g\n%g\n", 0.0, 0.0, p.current)
	for _, h := range p.history {
		fmt.Fprintf(&b, "%g\n", h)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// LoadLAHC reads a checkpoint written by SaveLAHC. cost_max/N fields are
// discarded.
func LoadLAHC(path string) (*LAHC, error) {
	fields, err := readCheckpointFields(path)
	if err != nil {
		return nil, err
	}
	p := &LAHC{history: make([]float64, fields.l), idx: fields.index, current: fields.currentCost}
	copy(p.history, fields.history)
	return p, nil
}

// SaveDLAS writes L, index, cost_max, N, current_cost, then the L
// history entries (spec §6).
func SaveDLAS(path string, p *DLAS) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%d\n", len(p.history), p.idx)
	fmt.Fprintf(&b, "%g\n%d\n%g\n", p.costMax, p.multiplicity, p.current)
	for _, h := range p.history {
		fmt.Fprintf(&b, "%g\n", h)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

// LoadDLAS reads a checkpoint written by SaveDLAS.
func LoadDLAS(path string) (*DLAS, error) {
	fields, err := readCheckpointFields(path)
	if err != nil {
		return nil, err
	}
	p := &DLAS{
		history:      make([]float64, fields.l),
		idx:          fields.index,
		current:      fields.currentCost,
		costMax:      fields.costMax,
		multiplicity: fields.multiplicity,
	}
	copy(p.history, fields.history)
	return p, nil
}

type checkpointFields struct {
	l, index, multiplicity int
	costMax, currentCost   float64
	history                []float64
}

// readCheckpointFields parses the shared .lahc/.dlas layout: two
// integers, three scalars, then L history lines. Any structural defect
// is a ProtocolError (spec §7: corrupt checkpoint is fatal during
// resume unless the caller opts into starting over).
func readCheckpointFields(path string) (checkpointFields, error) {
	f, err := os.Open(path)
	if err != nil {
		return checkpointFields{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	next := func(label string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", &ProtocolError{Msg: "reading " + label, Err: err, Path: path}
			}
			return "", &ProtocolError{Msg: "truncated checkpoint at " + label, Err: errUnexpectedEOF, Path: path}
		}
		return strings.TrimSpace(sc.Text()), nil
	}

	var fl checkpointFields
	raw, err := next("L")
	if err != nil {
		return fl, err
	}
	l, err := strconv.Atoi(raw)
	if err != nil || l < 1 {
		return fl, &ProtocolError{Msg: "bad L", Err: err, Path: path}
	}
	fl.l = l

	raw, err = next("index")
	if err != nil {
		return fl, err
	}
	if fl.index, err = strconv.Atoi(raw); err != nil {
		return fl, &ProtocolError{Msg: "bad index", Err: err, Path: path}
	}

	raw, err = next("cost_max")
	if err != nil {
		return fl, err
	}
	if fl.costMax, err = strconv.ParseFloat(raw, 64); err != nil {
		return fl, &ProtocolError{Msg: "bad cost_max", Err: err, Path: path}
	}

	raw, err = next("N")
	if err != nil {
		return fl, err
	}
	multF, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fl, &ProtocolError{Msg: "bad N", Err: err, Path: path}
	}
	fl.multiplicity = int(multF)

	raw, err = next("current_cost")
	if err != nil {
		return fl, err
	}
	if fl.currentCost, err = strconv.ParseFloat(raw, 64); err != nil {
		return fl, &ProtocolError{Msg: "bad current_cost", Err: err, Path: path}
	}

	fl.history = make([]float64, l)
	for i := 0; i < l; i++ {
		raw, err = next(fmt.Sprintf("history[%d]", i))
		if err != nil {
			return fl, err
		}
		if fl.history[i], err = strconv.ParseFloat(raw, 64); err != nil {
			return fl, &ProtocolError{Msg: fmt.Sprintf("bad history[%d]", i), Err: err, Path: path}
		}
	}
	return fl, nil
}

var errUnexpectedEOF = fmt.Errorf("unexpected end of file")

// SavePolicyCheckpoint dispatches to SaveLAHC or SaveDLAS based on the
// policy's concrete type, writing to base+".lahc" or base+".dlas".
func SavePolicyCheckpoint(base string, policy AcceptancePolicy) error {
	switch p := policy.(type) {
	case *LAHC:
		return SaveLAHC(base+".lahc", p)
	case *DLAS:
		return SaveDLAS(base+".dlas", p)
	default:
		return fmt.Errorf("unknown acceptance policy type %T", policy)
	}
}

// SaveRunnerCheckpoint writes the full checkpoint artifact set for ctx:
// the policy ring (<base>.lahc/.dlas), the best program(s) as <base>.rp
// (and <base>_b.rp in dual mode), and <base>.rp.ini for the shared
// initial register state. Must be called with ctx.Mu held.
func SaveRunnerCheckpoint(base string, ctx *RunnerContext, hdr RPHeader) error {
	if err := SavePolicyCheckpoint(base, ctx.Policy); err != nil {
		return err
	}
	hdr.Evaluations = ctx.Evaluations
	if err := saveRP(base+".rp", ctx.BestA, hdr); err != nil {
		return err
	}
	if err := saveRPInit(base+".rp.ini", ctx.BestA.InitReg); err != nil {
		return err
	}
	if ctx.BestB != nil {
		if err := saveRP(base+"_b.rp", ctx.BestB, hdr); err != nil {
			return err
		}
	}
	return nil
}

func saveRP(path string, pic *Program, hdr RPHeader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteRP(f, pic, hdr)
}

func saveRPInit(path string, reg RegisterState) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteRPInit(f, reg)
}
