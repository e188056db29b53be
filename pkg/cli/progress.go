package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports how many of a known number of items are done.
// "bastion check --progress" uses it with one item per program file.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// SimpleProgress redraws a single status line such as
//
//	Checking [██████░░░░░░░░░░░░░░] 3/10 programs 30% 1.2s
//
// It writes carriage returns, so it belongs on stderr, away from the report
// that goes to stdout.
type SimpleProgress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	unit    string
	total   int64
	current int64
	started time.Time
}

const progressWidth = 20

// NewProgressReporter returns a reporter writing to w, or os.Stderr when w is
// nil. label starts the line and defaults to "Checking".
func NewProgressReporter(w io.Writer, label string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if label == "" {
		label = "Checking"
	}
	return &SimpleProgress{w: w, label: label, unit: "programs"}
}

// Start resets the counter. A zero total draws nothing.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.current, p.started = total, 0, time.Now()
	p.draw()
}

// Update sets the number of finished items. Values past the total are
// clamped.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = min(max(current, 0), p.total)
	p.draw()
}

// Finish draws the completed line and ends it.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 {
		return
	}
	p.current = p.total
	p.draw()
	fmt.Fprintln(p.w)
}

// Error ends the line with err.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\n✗ %s stopped: %v\n", p.label, err)
}

func (p *SimpleProgress) draw() {
	if p.total <= 0 {
		return
	}
	filled := int(p.current * progressWidth / p.total)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
	elapsed := time.Since(p.started).Round(100 * time.Millisecond)
	fmt.Fprintf(p.w, "\r%s [%s] %d/%d %s %d%% %s",
		p.label, bar, p.current, p.total, p.unit, p.current*100/p.total, elapsed)
}
