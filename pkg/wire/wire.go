// Package wire implements the primitive unit codec shared by every payload
// crossing the engine boundary: delimiter-terminated integers and strings
// carried in a single byte stream.
package wire

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// Delimiter terminates every encoded unit.
	Delimiter byte = '|'

	// Escape makes the following byte literal, so it is never read as a delimiter.
	Escape byte = '`'
)

// ErrCorruptStream is returned when a buffer does not hold a well-formed unit.
var ErrCorruptStream = errors.New("wire: corrupt stream")

var (
	errUnterminated = errors.New("missing delimiter")
	errDanglingEsc  = errors.New("escape at end of buffer")
	errEmptyInt     = errors.New("empty integer field")
	errBadCount     = errors.New("count out of range")
	errTrailing     = errors.New("trailing bytes")
)

// AppendInt appends the decimal text of n followed by the delimiter.
func AppendInt(dst []byte, n int64) []byte {
	dst = strconv.AppendInt(dst, n, 10)

	return append(dst, Delimiter)
}

// AppendString appends s with every delimiter and escape byte prefixed by
// the escape byte, followed by the delimiter.
func AppendString(dst []byte, s string) []byte {
	for idx := range len(s) {
		ch := s[idx]
		if ch == Delimiter || ch == Escape {
			dst = append(dst, Escape)
		}

		dst = append(dst, ch)
	}

	return append(dst, Delimiter)
}

// DecodeString reads one string unit starting at pos. It returns the
// unescaped value and the position just past the terminating delimiter.
func DecodeString(buf []byte, pos int) (string, int, error) {
	if pos < 0 || pos > len(buf) {
		return "", pos, corrupt(pos, errUnterminated)
	}

	// Fast path: no escapes in the field.
	for idx := pos; idx < len(buf); idx++ {
		switch buf[idx] {
		case Delimiter:
			return string(buf[pos:idx]), idx + 1, nil
		case Escape:
			return decodeEscaped(buf, pos)
		}
	}

	return "", pos, corrupt(pos, errUnterminated)
}

func decodeEscaped(buf []byte, pos int) (string, int, error) {
	out := make([]byte, 0, len(buf)-pos)

	for idx := pos; idx < len(buf); idx++ {
		ch := buf[idx]

		switch ch {
		case Delimiter:
			return string(out), idx + 1, nil
		case Escape:
			idx++
			if idx >= len(buf) {
				return "", pos, corrupt(idx-1, errDanglingEsc)
			}

			out = append(out, buf[idx])
		default:
			out = append(out, ch)
		}
	}

	return "", pos, corrupt(pos, errUnterminated)
}

// DecodeInt reads one integer unit starting at pos. Escaped bytes inside the
// field are taken literally, exactly as for strings.
func DecodeInt(buf []byte, pos int) (int64, int, error) {
	text, next, err := DecodeString(buf, pos)
	if err != nil {
		return 0, pos, err
	}

	if text == "" {
		return 0, pos, corrupt(pos, errEmptyInt)
	}

	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, pos, corrupt(pos, err)
	}

	return value, next, nil
}

func corrupt(pos int, cause error) error {
	return fmt.Errorf("%w at offset %d: %w", ErrCorruptStream, pos, cause)
}
