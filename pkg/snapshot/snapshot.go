// Package snapshot stores exported engine state in lz4-compressed files.
//
// A snapshot is a short header followed by the state buffer produced by
// export_state, compressed as a single lz4 block when that saves space:
//
//	magic "HSNP" | format (1 byte) | flags (1 byte) | raw length (uint32 LE) | payload
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
)

const (
	// Magic opens every snapshot file.
	Magic = "HSNP"

	// FormatVersion is the header format written by Encode.
	FormatVersion = 1

	// Extension is the conventional file extension for snapshots.
	Extension = ".hsnp"

	// DefaultMaxSize bounds the decoded state accepted by Load.
	DefaultMaxSize = 256 * humanize.MiByte
)

const (
	headerSize = len(Magic) + 2 + 4

	flagCompressed byte = 1 << 0

	filePerm = 0o600
)

var (
	// ErrNotSnapshot is returned when the data does not start with Magic.
	ErrNotSnapshot = errors.New("snapshot: not a snapshot")
	// ErrUnsupportedFormat is returned for a header format newer than FormatVersion.
	ErrUnsupportedFormat = errors.New("snapshot: unsupported format")
	// ErrCorrupt is returned when the payload does not match the header.
	ErrCorrupt = errors.New("snapshot: corrupt payload")
	// ErrTooLarge is returned when the declared state size exceeds the limit.
	ErrTooLarge = errors.New("snapshot: state too large")
)

// Info describes an encoded snapshot.
type Info struct {
	RawSize    int
	StoredSize int
	Compressed bool
}

// String renders the sizes for humans.
func (i Info) String() string {
	if !i.Compressed {
		return fmt.Sprintf("%s (stored)", humanize.Bytes(uint64(i.StoredSize))) //nolint:gosec // sizes are non-negative.
	}

	return fmt.Sprintf("%s (lz4, %s raw)",
		humanize.Bytes(uint64(i.StoredSize)), //nolint:gosec // sizes are non-negative.
		humanize.Bytes(uint64(i.RawSize)))    //nolint:gosec // sizes are non-negative.
}

// Encode wraps state in a snapshot. The payload is stored uncompressed when
// lz4 cannot shrink it.
func Encode(state []byte) ([]byte, Info, error) {
	if uint64(len(state)) > DefaultMaxSize {
		return nil, Info{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(state))
	}

	out := make([]byte, headerSize, headerSize+lz4.CompressBlockBound(len(state)))
	copy(out, Magic)
	out[len(Magic)] = FormatVersion
	binary.LittleEndian.PutUint32(out[len(Magic)+2:], uint32(len(state))) //nolint:gosec // bounded by DefaultMaxSize.

	compressed := out[headerSize : headerSize+lz4.CompressBlockBound(len(state))]

	written, err := lz4.CompressBlock(state, compressed, nil)
	if err != nil {
		return nil, Info{}, fmt.Errorf("compress state: %w", err)
	}

	info := Info{RawSize: len(state)}

	if written > 0 && written < len(state) {
		out[len(Magic)+1] = flagCompressed
		out = out[:headerSize+written]
		info.Compressed = true
	} else {
		out = append(out[:headerSize], state...)
	}

	info.StoredSize = len(out)

	return out, info, nil
}

// Decode extracts the state buffer, refusing states larger than maxSize bytes.
func Decode(data []byte, maxSize uint64) ([]byte, error) {
	if len(data) < headerSize || string(data[:len(Magic)]) != Magic {
		return nil, ErrNotSnapshot
	}

	format := data[len(Magic)]
	if format == 0 || format > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
	}

	flags := data[len(Magic)+1]
	rawSize := binary.LittleEndian.Uint32(data[len(Magic)+2:])
	payload := data[headerSize:]

	if uint64(rawSize) > maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, rawSize)
	}

	if flags&flagCompressed == 0 {
		if len(payload) != int(rawSize) {
			return nil, fmt.Errorf("%w: stored %d bytes, header says %d", ErrCorrupt, len(payload), rawSize)
		}

		return append([]byte(nil), payload...), nil
	}

	state := make([]byte, rawSize)

	n, err := lz4.UncompressBlock(payload, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if n != int(rawSize) {
		return nil, fmt.Errorf("%w: decoded %d bytes, header says %d", ErrCorrupt, n, rawSize)
	}

	return state, nil
}

// Save writes state to path and reports what was stored.
func Save(path string, state []byte) (Info, error) {
	data, info, err := Encode(state)
	if err != nil {
		return Info{}, err
	}

	err = os.WriteFile(filepath.Clean(path), data, filePerm)
	if err != nil {
		return Info{}, fmt.Errorf("write snapshot: %w", err)
	}

	return info, nil
}

// Load reads a snapshot written by Save.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	state, err := Decode(data, DefaultMaxSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return state, nil
}
