package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// onOffMaxHeight bounds the map's scanline axis, matching the original
// engine's fixed-size OnOffMap (original_source/src/OnOffMap.h: bool
// on_off[240][E_TARGET_MAX]).
const onOffMaxHeight = 240

// OnOffMap selects, per scanline and target register, whether that
// register may be written. Defaults to allowed everywhere; a parsed
// OnOff file only narrows the set.
type OnOffMap struct {
	allowed [onOffMaxHeight][TargetMax]bool
}

// NewOnOffMap returns a map with every target enabled on every line.
func NewOnOffMap() *OnOffMap {
	m := &OnOffMap{}
	for y := 0; y < onOffMaxHeight; y++ {
		for t := Target(0); t < TargetMax; t++ {
			m.allowed[y][t] = true
		}
	}
	return m
}

// Allowed reports whether target may be written on scanline y.
func (m *OnOffMap) Allowed(y int, t Target) bool {
	if y < 0 || y >= onOffMaxHeight || t >= TargetMax {
		return true
	}
	return m.allowed[y][t]
}

// Set records whether target may be written on scanline y. Applying the
// same line twice is idempotent (spec §8): Set always overwrites rather
// than toggling.
func (m *OnOffMap) Set(y int, t Target, on bool) {
	if y < 0 || y >= onOffMaxHeight || t >= TargetMax {
		return
	}
	m.allowed[y][t] = on
}

// ParseOnOff reads the line-oriented ASCII OnOff format (spec §6):
//
//	REGNAME ON|OFF FROM TO
//
// Blank lines and lines starting with ';' or '#' are comments and
// ignored. Parse failure is reported with the offending line number as
// an *InputError, matching spec §7's InputError taxonomy.
func ParseOnOff(r io.Reader) (*OnOffMap, error) {
	m := NewOnOffMap()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, &InputError{Msg: fmt.Sprintf("expected 4 fields, got %d", len(fields)), Line: lineNo}
		}

		target, ok := ParseTarget(strings.ToUpper(fields[0]))
		if !ok {
			return nil, &InputError{Msg: fmt.Sprintf("unknown register %q", fields[0]), Line: lineNo}
		}

		var on bool
		switch strings.ToUpper(fields[1]) {
		case "ON":
			on = true
		case "OFF":
			on = false
		default:
			return nil, &InputError{Msg: fmt.Sprintf("expected ON|OFF, got %q", fields[1]), Line: lineNo}
		}

		from, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, &InputError{Msg: fmt.Sprintf("bad FROM %q", fields[2]), Line: lineNo}
		}
		to, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, &InputError{Msg: fmt.Sprintf("bad TO %q", fields[3]), Line: lineNo}
		}
		if from < 0 || to >= onOffMaxHeight || from > to {
			return nil, &InputError{Msg: fmt.Sprintf("FROM,TO out of range [%d,%d]", from, to), Line: lineNo}
		}

		for y := from; y <= to; y++ {
			m.Set(y, target, on)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading onoff file: %w", err)
	}
	return m, nil
}
