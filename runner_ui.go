// runner_ui.go - progress reporting and interactive cancel for the CLI
// driver. The interactive 'q'-to-cancel listener is platform-split
// (runner_ui_unix.go / runner_ui_windows.go) the same way
// terminal_host.go / terminal_host_windows.go are: raw stdin reading
// needs a non-blocking syscall.Read loop on unix and a plain blocking
// os.Stdin.Read loop on windows. This file holds the cross-platform
// progress ticker, grounded on debug_monitor.go's distinction between
// interactive in-place redraw and append-only scrolling output, reduced
// to the one line of state this module has: evaluations, best cost,
// evals/sec.

package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

// ProgressReporter prints periodic one-line status snapshots read from
// a RunnerContext under its mutex.
type ProgressReporter struct {
	ctx         *RunnerContext
	interval    time.Duration
	interactive bool
	startTime   time.Time
	stopCh      chan struct{}
	done        chan struct{}
}

// NewProgressReporter returns a reporter that polls ctx every interval.
func NewProgressReporter(ctx *RunnerContext, interval time.Duration) *ProgressReporter {
	return &ProgressReporter{
		ctx:         ctx,
		interval:    interval,
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
		startTime:   time.Now(),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins ticking in a goroutine.
func (p *ProgressReporter) Start() {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()
}

func (p *ProgressReporter) tick() {
	p.ctx.Mu.Lock()
	evals := p.ctx.Evaluations
	best := p.ctx.BestCost
	p.ctx.Mu.Unlock()

	elapsed := time.Since(p.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(evals) / elapsed
	}
	line := fmt.Sprintf("evaluations=%d best_cost=%.1f evals/sec=%.0f", evals, best, rate)
	if p.interactive {
		fmt.Printf("\r\033[K%s", line)
	} else {
		fmt.Println(line)
	}
}

// Stop terminates the ticker goroutine, printing a trailing newline if
// the last update redrew in place.
func (p *ProgressReporter) Stop() {
	close(p.stopCh)
	<-p.done
	if p.interactive {
		fmt.Println()
	}
}
