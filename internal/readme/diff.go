package readme

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op classifies a diff line.
type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

// Line is one line of a line-oriented diff.
type Line struct {
	Op   Op
	Text string
}

// Diff compares two documents line by line.
func Diff(before, after string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Line
	for _, d := range diffs {
		op := Equal
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = Insert
		case diffmatchpatch.DiffDelete:
			op = Delete
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			out = append(out, Line{Op: op, Text: strings.TrimSuffix(l, "\n")})
		}
	}
	return out
}

// Changed reports whether the diff holds any insertion or deletion.
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Op != Equal {
			return true
		}
	}
	return false
}

var (
	insertColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
)

// WriteDiff prints changed lines prefixed with "+" or "-", plus up to context
// unchanged lines around each change.
func WriteDiff(w io.Writer, lines []Line, context int) error {
	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.Op == Equal {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}

	skipped := false
	for i, l := range lines {
		if !keep[i] {
			skipped = true
			continue
		}
		if skipped {
			if _, err := fmt.Fprintln(w, "..."); err != nil {
				return err
			}
			skipped = false
		}
		var err error
		switch l.Op {
		case Insert:
			_, err = insertColor.Fprintln(w, "+"+l.Text)
		case Delete:
			_, err = deleteColor.Fprintln(w, "-"+l.Text)
		default:
			_, err = fmt.Fprintln(w, " "+l.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
