// Package ui renders the advisory progress trace of each sweep. Everything
// here writes to the error stream: machine-checkable outcomes live in the
// event logs and the process exit code, never in this output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

const ruleWidth = 46

// Sweep prints the structured progress trace of one sequential pass.
type Sweep struct {
	w io.Writer
}

// NewSweep creates a trace writer on stderr.
func NewSweep() *Sweep {
	return &Sweep{w: os.Stderr}
}

// NewSweepWriter creates a trace writer on w. Test hook.
func NewSweepWriter(w io.Writer) *Sweep {
	return &Sweep{w: w}
}

// Banner prints the sweep header with aligned key/value fields.
func (s *Sweep) Banner(title string, fields [][2]string) {
	fmt.Fprintln(s.w, strings.Repeat("=", ruleWidth))
	fmt.Fprintf(s.w, " %s\n", ColorBold(title))

	width := 0
	for _, f := range fields {
		if len(f[0]) > width {
			width = len(f[0])
		}
	}
	for _, f := range fields {
		fmt.Fprintf(s.w, " %-*s : %s\n", width, f[0], f[1])
	}
	fmt.Fprintln(s.w, strings.Repeat("=", ruleWidth))
}

// Rule prints the separator between per-run sections.
func (s *Sweep) Rule() {
	fmt.Fprintln(s.w, strings.Repeat("-", ruleWidth))
}

// Item prints one per-item outcome line with a colored marker.
func (s *Sweep) Item(marker, format string, args ...interface{}) {
	fmt.Fprintf(s.w, "[%s] %s\n", markerColor(marker)(marker), fmt.Sprintf(format, args...))
}

// Printf prints a plain trace line.
func (s *Sweep) Printf(format string, args ...interface{}) {
	fmt.Fprintf(s.w, format+"\n", args...)
}

// Done prints the final banner.
func (s *Sweep) Done(note string) {
	fmt.Fprintln(s.w, strings.Repeat("=", ruleWidth))
	if note == "" {
		note = "DONE"
	}
	fmt.Fprintf(s.w, " %s\n", ColorSuccess(note))
	fmt.Fprintln(s.w, strings.Repeat("=", ruleWidth))
}

// Summary renders a closing table of per-item outcomes.
func (s *Sweep) Summary(title string, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	bold := color.New(color.Bold)
	bold.Fprintf(s.w, "%s\n", title)

	table := tablewriter.NewWriter(s.w)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}
