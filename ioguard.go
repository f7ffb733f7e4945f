package main

import (
	"path/filepath"
	"strings"
)

// PathGuard confines file paths supplied on the command line (palette,
// onoff map, checkpoint base, .rp output) to a base directory, rejecting
// absolute paths and ".." traversal attempts before any os.Open/os.Create
// call reaches them. Adapted from FileIODevice.sanitizePath
// (file_io.go): same absolute/".."/filepath.Rel containment check, with
// the MMIO register plumbing it was wired to dropped entirely — nothing
// here runs machine code, so there's no bus to read a filename off of.
type PathGuard struct {
	baseDir string
}

// NewPathGuard resolves baseDir to an absolute path. If resolution
// fails, baseDir is used as given (matching FileIODevice's own
// fallback).
func NewPathGuard(baseDir string) *PathGuard {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		abs = baseDir
	}
	return &PathGuard{baseDir: abs}
}

// Resolve returns the absolute path for a user-supplied relative path,
// or false if it escapes the guard's base directory.
func (g *PathGuard) Resolve(path string) (string, bool) {
	if filepath.IsAbs(path) || strings.Contains(path, "..") {
		return "", false
	}
	full := filepath.Join(g.baseDir, path)
	rel, err := filepath.Rel(g.baseDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return full, true
}
