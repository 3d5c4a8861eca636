// Package debug renders nested structures as indented text for reports.
package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines. Nesting is tracked by Enter and
// Leave so recursive dumpers do not have to pass depth around.
type TreeWriter struct {
	sb     strings.Builder
	depth  int
	indent string
}

// NewTreeWriter returns writer indenting by two spaces per level.
func NewTreeWriter() *TreeWriter {
	return &TreeWriter{indent: "  "}
}

func (tw *TreeWriter) String() string {
	return tw.sb.String()
}

// WriteTo implements io.WriterTo.
func (tw *TreeWriter) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, tw.sb.String())
	return int64(n), err
}

// Depth returns current nesting level.
func (tw *TreeWriter) Depth() int {
	return tw.depth
}

// Line writes formatted line at current level.
func (tw *TreeWriter) Line(format string, args ...any) {
	tw.pad()
	fmt.Fprintf(&tw.sb, format, args...)
	tw.sb.WriteByte('\n')
}

// Enter writes formatted line and nests following lines under it.
func (tw *TreeWriter) Enter(format string, args ...any) {
	tw.Line(format, args...)
	tw.depth++
}

// Leave closes the level opened by Enter.
func (tw *TreeWriter) Leave() {
	if tw.depth == 0 {
		panic("debug: Leave without Enter")
	}
	tw.depth--
}

// Text writes labeled value, non empty values are quoted so invisible
// characters stay visible.
func (tw *TreeWriter) Text(label, value string) {
	tw.pad()
	tw.sb.WriteString(label)
	tw.sb.WriteString(": ")
	if value != "" {
		tw.sb.WriteString(strconv.Quote(value))
	}
	tw.sb.WriteByte('\n')
}

func (tw *TreeWriter) pad() {
	for range tw.depth {
		tw.sb.WriteString(tw.indent)
	}
}
