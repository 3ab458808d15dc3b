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

// Package rangecache persists the observed min/max merge key of each file so
// later bounded merges can skip files whose range cannot intersect the
// requested one.
package rangecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/michael-robbins/filemerger/internal/mergekey"
)

// Entry records what one build pass observed about one file. Immutable once
// built.
type Entry struct {
	Path      string
	KeyType   mergekey.Type
	MinKey    mergekey.Key
	MaxKey    mergekey.Key
	SizeBytes int64 // on-disk size at build time
	Lines     int64 // lines that yielded a valid key
	HasRange  bool  // false when no line yielded a valid key
}

// Cache is an ordered set of entries, one per scanned file. A loaded cache is
// read-only.
type Cache struct {
	BuiltAt time.Time
	Entries []Entry
}

// Query returns the entries whose key range could contain a key in
// [start, end). A nil start or end leaves that side unbounded. Entries with
// no range never match; entries built with a different key type are skipped
// with a warning, since their ranges are not comparable to the bounds.
// Results keep build input order.
func (c *Cache) Query(ctx context.Context, start, end *mergekey.Key, keyType mergekey.Type) []Entry {
	var matched []Entry
	for _, e := range c.Entries {
		if !e.HasRange {
			continue
		}
		if e.KeyType != keyType {
			slog.Warn("Skipping cache entry with different key type",
				slog.String("file", e.Path),
				slog.String("entryKeyType", e.KeyType.String()),
				slog.String("queryKeyType", keyType.String()))
			continue
		}
		// A file overlaps [start, end) when min < end and max >= start.
		if end != nil && e.MinKey.Compare(*end) >= 0 {
			entriesPrunedCounter.Add(ctx, 1)
			continue
		}
		if start != nil && e.MaxKey.Compare(*start) < 0 {
			entriesPrunedCounter.Add(ctx, 1)
			continue
		}
		matched = append(matched, e)
	}
	entriesSelectedCounter.Add(ctx, int64(len(matched)))
	return matched
}

// VerifySizes compares every entry's recorded size against the file on disk.
// A mismatch or a missing file means the cache no longer describes the data;
// the caller should rebuild before trusting any range.
func (c *Cache) VerifySizes() error {
	var errs []error
	for _, e := range c.Entries {
		info, err := os.Stat(e.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Path, err))
			continue
		}
		if info.Size() != e.SizeBytes {
			errs = append(errs, fmt.Errorf("%s: size changed from %d to %d bytes since the cache was built", e.Path, e.SizeBytes, info.Size()))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
