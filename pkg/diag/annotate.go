package diag

import (
	"fmt"
	"io"
	"strings"
)

const (
	// lineNumberWidth is the width of the right-aligned line number column.
	lineNumberWidth = 5

	// listingGutter is the number of columns before the source text.
	listingGutter = lineNumberWidth + 2
)

// Annotate writes a numbered listing of src with a caret line and the
// messages of each diagnostic under the line it points into. Diagnostics
// without a location are written first. records must be in source-scan
// order, as returned by Handler.Records.
func Annotate(w io.Writer, src *Source, records []Record, indent int) error {
	aw := &annotateWriter{w: w}
	pad := strings.Repeat(" ", max(indent, 0))
	next := 0

	for next < len(records) && records[next].Location < 0 {
		aw.message(records[next])
		next++
	}

	if next > 0 {
		aw.printf("\n")
	}

	text := src.Text()
	lineStart := 0
	lineNumber := 1

	for aw.err == nil && (lineStart < len(text) || next < len(records)) {
		lineEnd := lineStart
		for lineEnd < len(text) && text[lineEnd] != '\r' && text[lineEnd] != '\n' {
			lineEnd++
		}

		aw.printf("%s%*d  %s\n", pad, lineNumberWidth, lineNumber, text[lineStart:lineEnd])
		lineNumber++

		if lineEnd < len(text) && text[lineEnd] == '\r' {
			lineEnd++
		}

		if lineEnd < len(text) && text[lineEnd] == '\n' {
			lineEnd++
		}

		last := lineEnd >= len(text)
		stop := next

		for stop < len(records) && (last || records[stop].Location < int64(lineEnd)) {
			stop++
		}

		aw.carets(pad, records[next:stop])

		for _, rec := range records[next:stop] {
			aw.message(rec)
		}

		next = stop
		lineStart = lineEnd
	}

	return aw.err
}

// annotateWriter keeps the first write error so the listing loop stays flat.
type annotateWriter struct {
	w   io.Writer
	err error
}

func (aw *annotateWriter) printf(format string, args ...any) {
	if aw.err != nil {
		return
	}

	_, err := fmt.Fprintf(aw.w, format, args...)
	if err != nil {
		aw.err = fmt.Errorf("annotate source: %w", err)
	}
}

func (aw *annotateWriter) message(rec Record) {
	aw.printf("%s: %s\n", rec.Prefix(), rec.Long)
}

func (aw *annotateWriter) carets(pad string, records []Record) {
	var sb strings.Builder

	width := 0

	for _, rec := range records {
		if rec.Column < 1 || rec.Column <= width {
			continue
		}

		sb.WriteString(strings.Repeat(" ", rec.Column-1-width))
		sb.WriteByte('^')
		width = rec.Column
	}

	if width > 0 {
		aw.printf("%s%s%s\n", pad, strings.Repeat(" ", listingGutter), sb.String())
	}
}

// AnnotatedString returns the Annotate listing as a string.
func AnnotatedString(src *Source, records []Record, indent int) string {
	var sb strings.Builder

	_ = Annotate(&sb, src, records, indent)

	return sb.String()
}
