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

// Package merge implements the k-way streaming merge of individually sorted
// delimited files.
package merge

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/michael-robbins/filemerger/internal/linesource"
	"github.com/michael-robbins/filemerger/internal/mergekey"
)

// Record is one line paired with its extracted merge key.
type Record struct {
	Line string
	Key  mergekey.Key
}

// LinePolicy decides what happens to lines the extractor rejects.
type LinePolicy int

const (
	// StrictLines aborts on the first malformed or unparseable line.
	StrictLines LinePolicy = iota
	// SkipMalformedLines logs each bad line at warn and keeps going.
	SkipMalformedLines
)

// Cursor streams one sorted file as Records. It holds at most one record at a
// time so merge memory stays proportional to the number of files, never their
// size.
type Cursor struct {
	source     *linesource.Source
	extractor  mergekey.Extractor
	policy     LinePolicy
	current    Record
	hasCurrent bool
	skipped    int64
}

// NewCursor wraps source and primes the first record. The cursor owns the
// source and closes it on Close.
func NewCursor(source *linesource.Source, extractor mergekey.Extractor, policy LinePolicy) (*Cursor, error) {
	c := &Cursor{
		source:    source,
		extractor: extractor,
		policy:    policy,
	}
	if err := c.Advance(); err != nil {
		_ = source.Close()
		return nil, err
	}
	return c, nil
}

// Peek returns the current record, or nil once the cursor is exhausted. The
// returned record is only valid until the next Advance.
func (c *Cursor) Peek() *Record {
	if !c.hasCurrent {
		return nil
	}
	return &c.current
}

// Advance reads lines until one yields a record or the file ends. Under
// StrictLines any bad line is returned as an error naming the file and line;
// under SkipMalformedLines bad lines are logged and counted. I/O errors are
// always fatal.
func (c *Cursor) Advance() error {
	for {
		line, err := c.source.Next()
		if err == io.EOF {
			c.hasCurrent = false
			c.current = Record{}
			return nil
		}
		if err != nil {
			c.hasCurrent = false
			return err
		}

		key, err := c.extractor.Extract(line)
		if err != nil {
			if c.policy == SkipMalformedLines && mergekey.IsLineError(err) {
				c.skipped++
				slog.Warn("Skipping malformed line",
					slog.String("file", c.source.Path()),
					slog.Int64("line", c.source.Line()),
					slog.Any("error", err))
				continue
			}
			c.hasCurrent = false
			return fmt.Errorf("%s:%d: %w", c.source.Path(), c.source.Line(), err)
		}

		c.current = Record{Line: line, Key: key}
		c.hasCurrent = true
		return nil
	}
}

// SeekTo advances past every record whose key sorts before key. With sorted
// input this leaves the cursor on the first record >= key.
func (c *Cursor) SeekTo(key mergekey.Key) error {
	for c.hasCurrent && c.current.Key.Compare(key) < 0 {
		if err := c.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// KeyType returns the key type this cursor extracts.
func (c *Cursor) KeyType() mergekey.Type {
	return c.extractor.Type
}

// Path returns the path of the underlying file.
func (c *Cursor) Path() string {
	return c.source.Path()
}

// Skipped returns how many malformed lines this cursor has skipped.
func (c *Cursor) Skipped() int64 {
	return c.skipped
}

// Close closes the underlying source.
func (c *Cursor) Close() error {
	c.hasCurrent = false
	return c.source.Close()
}
