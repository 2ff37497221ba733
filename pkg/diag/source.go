package diag

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Source is text that diagnostics point into. Locations are byte offsets.
type Source struct {
	text       string
	lineStarts []int
}

// NewSource indexes text by line.
func NewSource(text string) *Source {
	starts := []int{0}

	for idx := range len(text) {
		if text[idx] == '\n' {
			starts = append(starts, idx+1)
		}
	}

	return &Source{text: text, lineStarts: starts}
}

// Text returns the indexed text.
func (src *Source) Text() string {
	return src.text
}

// Len returns the text length in bytes.
func (src *Source) Len() int {
	return len(src.text)
}

// Position maps a byte offset to a 1-based line, a 1-based rune column and
// the text of the line without its terminator. The end of the text is a
// valid position. Negative or out-of-range offsets give -1, -1 and "".
func (src *Source) Position(location int64) (int, int, string) {
	if src == nil || location < 0 || location > int64(len(src.text)) {
		return -1, -1, ""
	}

	offset := int(location)

	// Index of the last line start at or before offset.
	lineIdx := sort.Search(len(src.lineStarts), func(idx int) bool {
		return src.lineStarts[idx] > offset
	}) - 1

	start := src.lineStarts[lineIdx]
	column := utf8.RuneCountInString(src.text[start:offset]) + 1

	return lineIdx + 1, column, src.lineText(start)
}

func (src *Source) lineText(start int) string {
	rest := src.text[start:]

	if end := strings.IndexAny(rest, "\r\n"); end >= 0 {
		return rest[:end]
	}

	return rest
}

// Offset maps a 1-based line and rune column back to a byte offset.
// Columns past the end of the line clamp to the line end.
func (src *Source) Offset(line, column int) int64 {
	if src == nil || line < 1 || line > len(src.lineStarts) {
		return NoLocation
	}

	offset := src.lineStarts[line-1]
	lineLen := len(src.lineText(offset))
	end := offset + lineLen

	for step := 1; step < column && offset < end; step++ {
		_, size := utf8.DecodeRuneInString(src.text[offset:])
		offset += size
	}

	return int64(offset)
}
