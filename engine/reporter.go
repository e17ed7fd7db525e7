package engine

import (
	"fmt"
	"io"
)

// Reporter is the output sink for operator-facing progress lines. Structured
// output modes plug in the silent reporter and render the final Result
// instead; diagnostics always go through the logger regardless.
type Reporter interface {
	Printf(format string, args ...any)
	Errorf(format string, args ...any)
}

type humanReporter struct {
	out io.Writer
	err io.Writer
}

// NewHumanReporter writes progress lines to out and error lines to err.
func NewHumanReporter(out, err io.Writer) Reporter {
	return &humanReporter{out: out, err: err}
}

func (r *humanReporter) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *humanReporter) Errorf(format string, args ...any) {
	fmt.Fprintf(r.err, format+"\n", args...)
}

type silentReporter struct{}

// NewSilentReporter discards all progress output.
func NewSilentReporter() Reporter {
	return silentReporter{}
}

func (silentReporter) Printf(format string, args ...any) {}

func (silentReporter) Errorf(format string, args ...any) {}
