//go:build !windows

package main

import (
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// CancelListener puts stdin into raw, non-blocking mode and watches for
// a 'q' keystroke, calling cancel exactly once when seen. Adapted from
// terminal_host.go's non-blocking syscall.Read loop, with the
// TerminalMMIO device coupling dropped — there's no virtual bus here,
// just a cancel signal.
type CancelListener struct {
	cancel  func()
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// NewCancelListener returns a listener that calls cancel on 'q', or nil
// if stdin isn't an interactive terminal.
func NewCancelListener(cancel func()) *CancelListener {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return &CancelListener{cancel: cancel, fd: fd, stopCh: make(chan struct{}), done: make(chan struct{})}
}

// Start begins the read loop in a goroutine.
func (l *CancelListener) Start() {
	oldState, err := term.MakeRaw(l.fd)
	if err != nil {
		close(l.done)
		return
	}
	l.oldTermState = oldState

	if err := syscall.SetNonblock(l.fd, true); err != nil {
		_ = term.Restore(l.fd, l.oldTermState)
		l.oldTermState = nil
		close(l.done)
		return
	}
	l.nonblockSet = true

	go func() {
		defer close(l.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-l.stopCh:
				return
			default:
			}
			n, err := syscall.Read(l.fd, buf)
			if n > 0 && (buf[0] == 'q' || buf[0] == 'Q') {
				l.cancel()
				return
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
		}
	}()
}

// Stop terminates the read loop and restores stdin to its prior state.
func (l *CancelListener) Stop() {
	l.stopped.Do(func() { close(l.stopCh) })
	<-l.done
	if l.nonblockSet {
		_ = syscall.SetNonblock(l.fd, false)
		l.nonblockSet = false
	}
	if l.oldTermState != nil {
		_ = term.Restore(l.fd, l.oldTermState)
		l.oldTermState = nil
	}
}
