package cli

import (
	"fmt"
	"io"
)

// IO is where commands write. Warnings are collected and printed to stderr
// both before the first line of output and again at the end, so they stay
// visible when output is piped through head or tail.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool
}

func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records a problem that did not stop the command. Warnings do not
// change the exit code.
func (o *IO) Warn(issue string, detail string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, detail))
}

// Warnings returns the recorded warnings.
func (o *IO) Warnings() []string {
	return o.warnings
}

func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// Out returns the stdout writer for renderers that write directly, such as
// tables. Pending warnings are flushed first.
func (o *IO) Out() io.Writer {
	o.flushWarningsStart()

	return o.out
}

func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish prints the warnings a final time and returns exit code 0.
func (o *IO) Finish() int {
	if !o.started {
		o.flushWarningsStart()

		return 0
	}

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if o.started || len(o.warnings) == 0 {
		return
	}

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	o.started = true
}
