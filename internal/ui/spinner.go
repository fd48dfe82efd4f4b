// Package ui holds small terminal presentation helpers for the CLI.
package ui

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner renders a single-line wait indicator on stderr for operations
// with no measurable progress, like a model round trip. When stderr is
// not a terminal, or NO_COLOR is set, it prints the message once instead.
type Spinner struct {
	message string
	mu      sync.Mutex
	active  bool
	done    chan struct{}
}

func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, done: make(chan struct{})}
}

// Start begins animating. A second call is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()

	if !stderrIsTerminal() || os.Getenv("NO_COLOR") != "" {
		fmt.Fprintf(os.Stderr, "%s...\n", s.message)
		return
	}

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				// Painting under the lock keeps Stop's clear strictly
				// after the last frame.
				s.mu.Lock()
				if s.active {
					fmt.Fprintf(os.Stderr, "\r%s %s", frames[i], s.message)
					i = (i + 1) % len(frames)
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop clears the spinner line. Safe on a spinner that never started.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	close(s.done)
	if stderrIsTerminal() && os.Getenv("NO_COLOR") == "" {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
