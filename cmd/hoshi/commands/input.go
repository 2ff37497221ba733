package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// stdinName is the argument that selects standard input.
const stdinName = "-"

// maxInputSize bounds a single grammar or source file.
const maxInputSize = 64 * humanize.MiByte

var (
	// ErrDirectoryPath indicates a file operation was attempted on a directory.
	ErrDirectoryPath = errors.New("path points to a directory")
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
	// ErrInputTooLarge indicates a file exceeds maxInputSize.
	ErrInputTooLarge = errors.New("input too large")
)

// input is one named text handed to the engine.
type input struct {
	name    string
	content string
}

// readInputs loads every path in order. No paths, or "-", reads stdin.
func readInputs(paths []string, stdin io.Reader) ([]input, error) {
	if len(paths) == 0 {
		paths = []string{stdinName}
	}

	inputs := make([]input, 0, len(paths))

	for _, path := range paths {
		if path == stdinName {
			content, err := readLimited(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}

			inputs = append(inputs, input{name: "<stdin>", content: content})

			continue
		}

		content, err := safeReadFile(path)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, input{name: path, content: content})
	}

	return inputs, nil
}

func readLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	if uint64(len(data)) > maxInputSize {
		return "", fmt.Errorf("%w: limit is %s", ErrInputTooLarge, humanize.IBytes(maxInputSize))
	}

	return string(data), nil
}

func safeReadFile(path string) (string, error) {
	resolvedPath, err := resolveUserFilePath(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	//nolint:gosec // resolvedPath is normalized and existence/type checked in resolveUserFilePath.
	file, err := os.Open(resolvedPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", resolvedPath, err)
	}
	defer file.Close()

	content, err := readLimited(file)
	if err != nil {
		return "", fmt.Errorf("%s: %w", resolvedPath, err)
	}

	return content, nil
}

func resolveUserFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", absPath, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectoryPath, absPath)
	}

	return absPath, nil
}

// sanitizeForTerminal drops control characters from names echoed to the terminal.
func sanitizeForTerminal(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, text)
}
