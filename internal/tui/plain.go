package tui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

// PlainPrinter writes coordinator snapshots to a line-oriented terminal.
// New log output and status changes are printed as they arrive.
type PlainPrinter struct {
	out io.Writer

	mu      sync.Mutex
	printed int
	status  progress.Status
	percent int
	done    chan progress.Status
}

// NewPlainPrinter creates a printer writing to out
func NewPlainPrinter(out io.Writer) *PlainPrinter {
	return &PlainPrinter{
		out:  out,
		done: make(chan progress.Status, 1),
	}
}

// Update prints what changed since the last snapshot
func (p *PlainPrinter) Update(state upgrade.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A shorter output means the session was reset
	if len(state.Output) < p.printed {
		p.printed = 0
	}
	if len(state.Output) > p.printed {
		fmt.Fprint(p.out, state.Output[p.printed:])
		p.printed = len(state.Output)
	}

	if state.Percent != p.percent && state.Percent > 0 {
		fmt.Fprintf(p.out, "[%3d%%]\n", state.Percent)
	}
	p.percent = state.Percent

	if state.Status == p.status {
		return
	}
	p.status = state.Status
	if state.Status != progress.StatusNone {
		fmt.Fprintln(p.out, StatusText(state.Status))
	}
	if state.Status.Terminal() {
		select {
		case p.done <- state.Status:
		default:
		}
	}
}

// Wait blocks until a terminal status has been printed
func (p *PlainPrinter) Wait(ctx context.Context) (progress.Status, error) {
	select {
	case status := <-p.done:
		return status, nil
	case <-ctx.Done():
		return progress.StatusNone, ctx.Err()
	}
}

// Spinner characters
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner represents a terminal spinner
type Spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
}

// NewSpinner creates a new spinner with a message
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start starts the spinner animation
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r  %s %s ", spinnerFrames[i%len(spinnerFrames)], s.message)
			s.mu.Unlock()
			select {
			case <-s.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner and shows the result
func (s *Spinner) Stop(success bool) {
	close(s.stop)
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		fmt.Fprintf(s.out, "\r  ✓ %s\n", s.message)
	} else {
		fmt.Fprintf(s.out, "\r  ✗ %s\n", s.message)
	}
}
