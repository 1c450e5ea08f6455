package cli

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/repopix/internal/client/pipeline"
	"github.com/dustin/go-humanize"
)

// terminalReporter prints one line per finished file. Retries and
// directory failures are always shown; every other transition only when
// verbose.
type terminalReporter struct {
	out     io.Writer
	verbose bool
}

func newTerminalReporter(w io.Writer, verbose bool) *terminalReporter {
	return &terminalReporter{out: w, verbose: verbose}
}

func (r *terminalReporter) Transition(in *pipeline.Intent, from, to pipeline.State) {
	switch {
	case to == pipeline.Retrying:
		fmt.Fprintf(r.out, "  retrying %s %s\n", in.Action, in.Path)
	case to == pipeline.DirectoryFailed:
		fmt.Fprintf(r.out, "  could not prepare the folder of %s\n", in.Path)
	case r.verbose:
		fmt.Fprintf(r.out, "  %s %s: %s -> %s\n", in.Action, in.Path, from, to)
	}
}

func (r *terminalReporter) FileDone(res pipeline.FileResult, done, total int) {
	if res.Err != nil {
		fmt.Fprintf(r.out, "[%d/%d] %s failed: %v\n", done, total, res.Name, res.Err)
		return
	}
	line := fmt.Sprintf("[%d/%d] %s -> %s", done, total, res.Name, res.Path)
	if c := res.Compression; c != nil {
		line += fmt.Sprintf(" (compressed %s -> %s, saved %.1f%%)",
			humanize.Bytes(uint64(c.OriginalSize)), humanize.Bytes(uint64(c.CompressedSize)), c.SavedPercent)
	}
	fmt.Fprintln(r.out, line)
}
