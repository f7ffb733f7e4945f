//go:build windows

package main

import (
	"os"
	"sync"

	"golang.org/x/term"
)

// CancelListener is the windows variant: no non-blocking syscall.Read,
// so the read loop blocks on os.Stdin.Read directly, matching
// terminal_host_windows.go's own approach.
type CancelListener struct {
	cancel  func()
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
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

	go func() {
		defer close(l.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-l.stopCh:
				return
			default:
			}
			n, err := os.Stdin.Read(buf)
			if n > 0 && (buf[0] == 'q' || buf[0] == 'Q') {
				l.cancel()
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

// Stop terminates the read loop and restores terminal state.
func (l *CancelListener) Stop() {
	l.stopped.Do(func() { close(l.stopCh) })
	<-l.done
	if l.oldTermState != nil {
		_ = term.Restore(l.fd, l.oldTermState)
		l.oldTermState = nil
	}
}
