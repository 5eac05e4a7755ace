// stage_console.go renders step progress for the staging pipeline.
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	stepArrow = color.New(color.FgCyan).Sprint("→")
	stepCheck = color.New(color.FgGreen).Sprint("✔")
	stepCross = color.New(color.FgRed).Sprint("✘")
)

// StageConsole prints one line per pipeline step. A quiet console drops
// everything except failures.
type StageConsole struct {
	out   io.Writer
	quiet bool

	mu      sync.Mutex
	started map[string]time.Time
}

func NewStageConsole(out io.Writer, quiet bool) *StageConsole {
	return &StageConsole{out: out, quiet: quiet, started: make(map[string]time.Time)}
}

// Step announces a step start.
func (c *StageConsole) Step(name string) {
	if c == nil || c.out == nil {
		return
	}
	c.mu.Lock()
	c.started[name] = time.Now()
	c.mu.Unlock()
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", stepArrow, name)
}

// StepOK announces completion with the elapsed time since Step.
func (c *StageConsole) StepOK(name string) {
	if c == nil || c.out == nil || c.quiet {
		return
	}
	c.mu.Lock()
	start, ok := c.started[name]
	c.mu.Unlock()
	if ok {
		fmt.Fprintf(c.out, "%s %s (%s)\n", stepCheck, name, time.Since(start).Round(time.Millisecond))
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", stepCheck, name)
}

// Failf reports a failure; printed even in quiet mode.
func (c *StageConsole) Failf(format string, args ...interface{}) {
	if c == nil || c.out == nil {
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", stepCross, fmt.Sprintf(format, args...))
}

// Successf reports a final summary line.
func (c *StageConsole) Successf(format string, args ...interface{}) {
	if c == nil || c.out == nil || c.quiet {
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", stepCheck, fmt.Sprintf(format, args...))
}
