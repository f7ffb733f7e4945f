package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RPHeader carries the ".rp" file's comment-block metadata (spec §6).
type RPHeader struct {
	Evaluations uint64
	InputName   string
	CmdLine     string
	Seed        *uint64
}

// WriteRP serializes pic as the ".rp" text raster program: a header of
// "; Key: value" comment lines followed by H labeled blocks, one per
// scanline, each instruction in source order and a terminating
// "cmp byt2" line (spec §6). Stores never carry an explicit value —
// the engine always takes it from the register written by the last
// matching LD, so only the target is printed (mirrors
// Executor::ExecuteInstruction reading reg.A/X/Y rather than the
// packed instruction's value field for ST*).
func WriteRP(w io.Writer, pic *Program, hdr RPHeader) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "; Evaluations: %d\n", hdr.Evaluations)
	fmt.Fprintf(bw, "; InputName: %s\n", hdr.InputName)
	fmt.Fprintf(bw, "; CmdLine: %s\n", hdr.CmdLine)
	if hdr.Seed != nil {
		fmt.Fprintf(bw, "; Seed: %d\n", *hdr.Seed)
	}
	for y, line := range pic.Lines {
		fmt.Fprintf(bw, "line%d:\n", y)
		for _, ins := range line.Insns {
			writeRPInsn(bw, ins)
		}
		fmt.Fprintln(bw, "\tcmp byt2")
	}
	return bw.Flush()
}

func writeRPInsn(w *bufio.Writer, ins Instruction) {
	op := ins.Op()
	switch {
	case op.IsLoad():
		fmt.Fprintf(w, "\t%s $%02X\n", op.String(), ins.Value())
	case op.IsStore():
		if ins.Disabled() {
			fmt.Fprintln(w, "\tnop")
			return
		}
		fmt.Fprintf(w, "\t%s %s\n", op.String(), ins.Target().String())
	default:
		fmt.Fprintln(w, "\tnop")
	}
}

var rpLoadOps = map[string]Op{"lda": OpLDA, "ldx": OpLDX, "ldy": OpLDY}
var rpStoreOps = map[string]Op{"sta": OpSTA, "stx": OpSTX, "sty": OpSTY}

// ParseRP reads the ".rp" text format back into a Program plus its
// header. "nop" filler lines between blocks are ignored and the
// "cmp byt2" terminator is consumed without effect; any other unknown
// mnemonic is an InputError.
func ParseRP(r io.Reader) (*Program, RPHeader, error) {
	var hdr RPHeader
	var lines []*Line
	var cur *Line

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(sc.Text())
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ";") {
			parseRPHeaderLine(&hdr, trimmed)
			continue
		}
		if strings.HasSuffix(trimmed, ":") {
			cur = &Line{}
			lines = append(lines, cur)
			continue
		}

		fields := strings.Fields(trimmed)
		mnemonic := strings.ToLower(fields[0])
		if mnemonic == "nop" || mnemonic == "cmp" {
			continue
		}
		if cur == nil {
			return nil, hdr, &InputError{Msg: "instruction outside any line block", Line: lineNo}
		}

		if op, ok := rpLoadOps[mnemonic]; ok {
			if len(fields) != 2 || !strings.HasPrefix(fields[1], "$") {
				return nil, hdr, &InputError{Msg: fmt.Sprintf("malformed load %q", trimmed), Line: lineNo}
			}
			v, err := strconv.ParseUint(fields[1][1:], 16, 8)
			if err != nil {
				return nil, hdr, &InputError{Msg: fmt.Sprintf("bad load operand %q", fields[1]), Line: lineNo}
			}
			cur.Insns = append(cur.Insns, NewInstruction(op, TargetNone, uint8(v)))
			continue
		}
		if op, ok := rpStoreOps[mnemonic]; ok {
			if len(fields) != 2 {
				return nil, hdr, &InputError{Msg: fmt.Sprintf("malformed store %q", trimmed), Line: lineNo}
			}
			target, ok := ParseTarget(strings.ToUpper(fields[1]))
			if !ok {
				return nil, hdr, &InputError{Msg: fmt.Sprintf("unknown register %q", fields[1]), Line: lineNo}
			}
			cur.Insns = append(cur.Insns, NewInstruction(op, target, 0))
			continue
		}
		return nil, hdr, &InputError{Msg: fmt.Sprintf("unknown mnemonic %q", mnemonic), Line: lineNo}
	}
	if err := sc.Err(); err != nil {
		return nil, hdr, fmt.Errorf("reading rp file: %w", err)
	}
	return &Program{Lines: lines}, hdr, nil
}

func parseRPHeaderLine(hdr *RPHeader, trimmed string) {
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, ";"))
	switch {
	case strings.HasPrefix(body, "Evaluations:"):
		if n, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(body, "Evaluations:")), 10, 64); err == nil {
			hdr.Evaluations = n
		}
	case strings.HasPrefix(body, "InputName:"):
		hdr.InputName = strings.TrimSpace(strings.TrimPrefix(body, "InputName:"))
	case strings.HasPrefix(body, "CmdLine:"):
		hdr.CmdLine = strings.TrimSpace(strings.TrimPrefix(body, "CmdLine:"))
	case strings.HasPrefix(body, "Seed:"):
		if n, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(body, "Seed:")), 10, 64); err == nil {
			hdr.Seed = &n
		}
	}
}

// WriteRPInit serializes reg as the ".rp.ini" flat LD/ST pair sequence
// that establishes mem_regs_init (spec §6). One LDA/STA pair is
// emitted per target in enumeration order.
func WriteRPInit(w io.Writer, reg RegisterState) error {
	bw := bufio.NewWriter(w)
	for t := Target(0); t < TargetMax; t++ {
		fmt.Fprintf(bw, "\tlda $%02X\n", reg.Mem[t])
		fmt.Fprintf(bw, "\tsta %s\n", t.String())
	}
	return bw.Flush()
}

// ParseRPInit reads the ".rp.ini" format back into a RegisterState.
// Each ST* takes its value from the immediately preceding LD, matching
// the ".rp" format's own value convention.
func ParseRPInit(r io.Reader) (*RegisterState, error) {
	var reg RegisterState
	var pending uint8
	havePending := false

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(sc.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		fields := strings.Fields(trimmed)
		mnemonic := strings.ToLower(fields[0])

		if _, ok := rpLoadOps[mnemonic]; ok {
			if len(fields) != 2 || !strings.HasPrefix(fields[1], "$") {
				return nil, &InputError{Msg: "malformed load", Line: lineNo}
			}
			v, err := strconv.ParseUint(fields[1][1:], 16, 8)
			if err != nil {
				return nil, &InputError{Msg: "bad load operand", Line: lineNo}
			}
			pending, havePending = uint8(v), true
			continue
		}
		if _, ok := rpStoreOps[mnemonic]; ok {
			if !havePending {
				return nil, &InputError{Msg: "store without preceding load", Line: lineNo}
			}
			if len(fields) != 2 {
				return nil, &InputError{Msg: "malformed store", Line: lineNo}
			}
			target, ok := ParseTarget(strings.ToUpper(fields[1]))
			if !ok {
				return nil, &InputError{Msg: fmt.Sprintf("unknown register %q", fields[1]), Line: lineNo}
			}
			reg.Mem[target] = pending
			continue
		}
		if mnemonic == "nop" {
			continue
		}
		return nil, &InputError{Msg: fmt.Sprintf("unknown mnemonic %q", mnemonic), Line: lineNo}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading rp.ini file: %w", err)
	}
	return &reg, nil
}
