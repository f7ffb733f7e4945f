// rprogram.go - standalone ".rp" raster program inspector.
//
// A companion command to the optimizer, not a library it imports (Go
// can't import a sibling "package main" directory, and the teacher's
// own assembler/ie32asm.go was exactly that: its own separate binary).
// It parses the same text grammar the optimizer's in-process codec
// (rprogram.go at the module root) reads and writes, and reports a
// per-line cycle-budget listing plus any grammar violations — the
// .rp analogue of running the teacher's assembler with no output file,
// just diagnostics. Adapted from ie32asm.go's two-pass, comment-
// stripping, label-detecting parse loop.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	cyclesLoad  = 2
	cyclesStore = 4
)

var loadMnemonics = map[string]bool{"lda": true, "ldx": true, "ldy": true}
var storeMnemonics = map[string]bool{"sta": true, "stx": true, "sty": true}

type rpLine struct {
	label   string
	insns   []string
	cycles  int
	lineNum int
}

func main() {
	freeCycles := flag.Int("free-cycles", 0, "scanline cycle budget; 0 disables the over-budget check")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rprogram [-free-cycles N] <file.rp>")
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	lines, headerLines, err := parseRP(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	for _, h := range headerLines {
		fmt.Println(h)
	}

	overBudget := 0
	for _, l := range lines {
		status := ""
		if *freeCycles > 0 && l.cycles > *freeCycles {
			status = fmt.Sprintf("  OVER BUDGET (%d > %d)", l.cycles, *freeCycles)
			overBudget++
		}
		fmt.Printf("%-10s %3d instructions, %3d cycles%s\n", l.label+":", len(l.insns), l.cycles, status)
	}

	fmt.Printf("\n%d scanlines, %d over budget\n", len(lines), overBudget)
	if overBudget > 0 {
		os.Exit(1)
	}
}

// parseRP performs the same two passes ie32asm.go's assemble() does:
// a first pass over raw lines that strips comments and recognizes
// labels/directives, and a second that walks each label's body
// collecting instructions and totaling cycles. Here the two passes
// collapse into one scan since nothing needs a label's final address
// before the body is known — .rp has no forward references.
func parseRP(f *os.File) ([]*rpLine, []string, error) {
	var lines []*rpLine
	var header []string
	var cur *rpLine

	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		raw := strings.Split(sc.Text(), ";")
		trimmed := strings.TrimSpace(raw[0])

		if trimmed == "" {
			if len(raw) > 1 && strings.TrimSpace(sc.Text())[0] == ';' {
				header = append(header, strings.TrimSpace(sc.Text()))
			}
			continue
		}

		if strings.HasSuffix(trimmed, ":") {
			cur = &rpLine{label: strings.TrimSuffix(trimmed, ":"), lineNum: lineNum}
			lines = append(lines, cur)
			continue
		}

		fields := strings.Fields(trimmed)
		mnemonic := strings.ToLower(fields[0])
		if mnemonic == "nop" || mnemonic == "cmp" {
			continue
		}
		if cur == nil {
			return nil, nil, fmt.Errorf("line %d: instruction %q outside any label block", lineNum, trimmed)
		}

		switch {
		case loadMnemonics[mnemonic]:
			if len(fields) != 2 || !strings.HasPrefix(fields[1], "$") {
				return nil, nil, fmt.Errorf("line %d: malformed load %q", lineNum, trimmed)
			}
			if _, err := strconv.ParseUint(fields[1][1:], 16, 8); err != nil {
				return nil, nil, fmt.Errorf("line %d: bad load operand %q", lineNum, fields[1])
			}
			cur.insns = append(cur.insns, trimmed)
			cur.cycles += cyclesLoad
		case storeMnemonics[mnemonic]:
			if len(fields) != 2 {
				return nil, nil, fmt.Errorf("line %d: malformed store %q", lineNum, trimmed)
			}
			cur.insns = append(cur.insns, trimmed)
			cur.cycles += cyclesStore
		default:
			return nil, nil, fmt.Errorf("line %d: unknown mnemonic %q", lineNum, mnemonic)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return lines, header, nil
}
