// Package feed supplies bar input sources and parsers: the out-of-core
// collaborators SPEC_FULL.md §6 names (CSV/Yahoo parsing) implemented
// concretely so the repo is runnable end to end.
package feed

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"backtest-engine/pkg/types"
)

// LineSource yields one raw record per call to ReadLine, already
// stripped of trailing whitespace. An empty string signals end of
// stream (there is no separate EOF sentinel — this mirrors readline()
// returning "" at end of file).
type LineSource interface {
	ReadLine() (string, error)
}

// ParseFunc turns one raw record plus the symbol it belongs to into a
// Bar. It is a first-class, swappable parameter (SPEC_FULL.md §9's
// "polymorphic bar parsing" note): no parser class hierarchy, just a
// function value.
type ParseFunc func(symbol, line string) (types.Bar, error)

// FileSource reads lines from a local file.
type FileSource struct {
	f       *os.File
	scanner *bufio.Scanner
}

// OpenFile opens path for line-by-line reading.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	return &FileSource{f: f, scanner: bufio.NewScanner(f)}, nil
}

// ReadLine returns the next line, or "" at end of file.
func (s *FileSource) ReadLine() (string, error) {
	if s.scanner.Scan() {
		return strings.TrimRight(s.scanner.Text(), " \t\r\n"), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("feed: read %s: %w", s.f.Name(), err)
	}
	return "", nil
}

// Close releases the underlying file handle.
func (s *FileSource) Close() error {
	return s.f.Close()
}
