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

package merge

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/michael-robbins/filemerger/internal/mergekey"
)

// KeyTypeMismatchError reports a key whose type differs from the type the
// merge was configured with. Always fatal; keys of different types have no
// meaningful order.
type KeyTypeMismatchError struct {
	Want mergekey.Type
	Got  mergekey.Type
	Path string // file that produced the key, when known
}

func (e *KeyTypeMismatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: key type %s does not match configured type %s", e.Path, e.Got, e.Want)
	}
	return fmt.Sprintf("key type %s does not match configured type %s", e.Got, e.Want)
}

// Options bound the merged key range.
type Options struct {
	Start *mergekey.Key // inclusive lower bound; nil means from the beginning
	End   *mergekey.Key // exclusive upper bound; nil means to the end
}

// heapItem is one active cursor plus its input position, which breaks ties so
// equal keys come out in input order.
type heapItem struct {
	cursor *Cursor
	order  int
}

type cursorHeap []heapItem

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	cmp := h[i].cursor.Peek().Key.Compare(h[j].cursor.Peek().Key)
	if cmp != 0 {
		return cmp < 0
	}
	return h[i].order < h[j].order
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(heapItem)) }

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Engine merges records from pre-sorted cursors into one non-decreasing
// stream. It assumes every cursor's file is sorted by the merge key; a file
// violating that yields locally ordered output with no detection.
type Engine struct {
	cursors []*Cursor
	active  cursorHeap
	keyType mergekey.Type
	end     *mergekey.Key
	err     error
	emitted int64
	closed  bool
}

// NewEngine builds an Engine over already-primed cursors. Every cursor must
// extract keyType keys, as must opts.Start and opts.End. Cursors are seeked
// to opts.Start before the first record is served. Zero cursors is valid and
// yields an immediately empty stream. The engine owns the cursors and closes
// them on Close.
func NewEngine(cursors []*Cursor, keyType mergekey.Type, opts Options) (*Engine, error) {
	if opts.Start != nil && opts.Start.Type() != keyType {
		return nil, &KeyTypeMismatchError{Want: keyType, Got: opts.Start.Type()}
	}
	if opts.End != nil && opts.End.Type() != keyType {
		return nil, &KeyTypeMismatchError{Want: keyType, Got: opts.End.Type()}
	}

	e := &Engine{
		cursors: cursors,
		keyType: keyType,
		end:     opts.End,
	}

	for i, c := range cursors {
		if c.KeyType() != keyType {
			return nil, &KeyTypeMismatchError{Want: keyType, Got: c.KeyType(), Path: c.Path()}
		}
		if opts.Start != nil {
			if err := c.SeekTo(*opts.Start); err != nil {
				return nil, fmt.Errorf("seeking %s to range start: %w", c.Path(), err)
			}
		}
		if c.Peek() != nil {
			e.active = append(e.active, heapItem{cursor: c, order: i})
		}
	}
	heap.Init(&e.active)

	return e, nil
}

// Next returns the smallest remaining record. io.EOF means the merge is
// complete: every cursor is drained, or the smallest key has reached the end
// bound and sorted input guarantees nothing earlier remains.
func (e *Engine) Next() (Record, error) {
	if e.closed {
		return Record{}, errors.New("engine is closed")
	}
	if e.err != nil {
		return Record{}, e.err
	}
	if len(e.active) == 0 {
		return Record{}, io.EOF
	}

	top := e.active[0]
	rec := *top.cursor.Peek()

	if rec.Key.Type() != e.keyType {
		e.err = &KeyTypeMismatchError{Want: e.keyType, Got: rec.Key.Type(), Path: top.cursor.Path()}
		return Record{}, e.err
	}
	if e.end != nil && rec.Key.Compare(*e.end) >= 0 {
		return Record{}, io.EOF
	}

	// Advance the winning cursor, then restore the heap. An advance failure
	// is remembered and surfaced on the following call so the record already
	// in hand still reaches the caller.
	if err := top.cursor.Advance(); err != nil {
		e.err = err
		heap.Pop(&e.active)
	} else if top.cursor.Peek() == nil {
		heap.Pop(&e.active)
		cursorsExhaustedCounter.Add(context.Background(), 1)
	} else {
		heap.Fix(&e.active, 0)
	}

	e.emitted++
	return rec, nil
}

// ActiveCursors returns how many cursors still hold records.
func (e *Engine) ActiveCursors() int {
	if e.closed {
		return 0
	}
	return len(e.active)
}

// Emitted returns how many records Next has returned.
func (e *Engine) Emitted() int64 {
	return e.emitted
}

// Skipped returns the total malformed lines skipped across all cursors.
func (e *Engine) Skipped() int64 {
	var total int64
	for _, c := range e.cursors {
		total += c.Skipped()
	}
	return total
}

// Close closes every cursor and records merge totals. Safe to call twice.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()
	linesOutCounter.Add(ctx, e.emitted)
	if skipped := e.Skipped(); skipped > 0 {
		linesSkippedCounter.Add(ctx, skipped)
	}

	var errs []error
	for i, c := range e.cursors {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cursor %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
