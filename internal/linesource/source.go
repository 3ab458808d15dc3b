// Copyright (C) 2026 Michael Robbins
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package linesource opens delimited text files as line streams, decompressing
// by file extension.
package linesource

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxLineBytes bounds a single line unless overridden in config.
const DefaultMaxLineBytes = 1024 * 1024

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type zstdReaderCloser struct {
	*zstd.Decoder
}

func (z *zstdReaderCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// Source is a forward-only line stream over one file. Lines come back without
// their trailing newline; an empty line is still a line. Not safe for
// concurrent use.
type Source struct {
	path     string
	scanner  *bufio.Scanner
	closer   io.Closer
	maxBytes int
	line     int64
	closed   bool
}

// Open opens path with the default line length limit.
// Supported compression, chosen by extension:
//   - .gz: gzip
//   - .bz2: bzip2
//   - .zst: zstd
//
// Any other extension is read as plain text.
func Open(path string) (*Source, error) {
	return OpenWithLimit(path, DefaultMaxLineBytes)
}

// OpenWithLimit opens path with an explicit per-line byte limit.
func OpenWithLimit(path string, maxLineBytes int) (*Source, error) {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var rc io.ReadCloser
	switch {
	case strings.HasSuffix(path, ".gz"):
		gzipReader, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		rc = &multiReadCloser{
			Reader:  gzipReader,
			closers: []io.Closer{gzipReader, file},
		}
	case strings.HasSuffix(path, ".bz2"):
		// bzip2 reports a bad stream on first read, not here.
		rc = &multiReadCloser{
			Reader:  bzip2.NewReader(file),
			closers: []io.Closer{file},
		}
	case strings.HasSuffix(path, ".zst"):
		decoder, err := zstd.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		rc = &multiReadCloser{
			Reader:  decoder,
			closers: []io.Closer{&zstdReaderCloser{decoder}, file},
		}
	default:
		rc = file
	}

	// The scanner's limit is the larger of the max and the initial capacity,
	// so the initial buffer must not exceed the configured bound.
	initial := 64 * 1024
	if initial > maxLineBytes {
		initial = maxLineBytes
	}
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, initial), maxLineBytes)

	return &Source{
		path:     path,
		scanner:  scanner,
		closer:   rc,
		maxBytes: maxLineBytes,
	}, nil
}

// Path returns the path the source was opened with.
func (s *Source) Path() string {
	return s.path
}

// Line returns the 1-based number of the line most recently returned by
// Next, or 0 before the first line.
func (s *Source) Line() int64 {
	return s.line
}

// Next returns the next line. io.EOF signals a clean end of the stream; any
// other error means the file could not be fully read.
func (s *Source) Next() (string, error) {
	if s.closed {
		return "", io.EOF
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return "", fmt.Errorf("%s: line %d exceeds %d bytes", s.path, s.line+1, s.maxBytes)
			}
			return "", fmt.Errorf("reading %s: %w", s.path, err)
		}
		return "", io.EOF
	}
	s.line++
	return s.scanner.Text(), nil
}

// Close releases the file handle and any decompressor. Safe to call twice.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}
