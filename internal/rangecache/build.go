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

package rangecache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/michael-robbins/filemerger/internal/linesource"
	"github.com/michael-robbins/filemerger/internal/merge"
	"github.com/michael-robbins/filemerger/internal/mergekey"
)

// BuildError reports the file that made a cache build fail. Nothing is
// persisted when a build fails.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building range cache entry for %s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// BuildOptions configures a cache build.
type BuildOptions struct {
	LinePolicy   merge.LinePolicy
	MaxLineBytes int // 0 means the linesource default
}

// Build scans every file fully and records its observed key range, size and
// valid line count. All-or-nothing: the first failing file aborts the build.
// ctx is checked between files so cancellation stops a long build cleanly.
func Build(ctx context.Context, paths []string, extractor mergekey.Extractor, opts BuildOptions) (*Cache, error) {
	cache := &Cache{
		BuiltAt: time.Now().UTC(),
		Entries: make([]Entry, 0, len(paths)),
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := buildEntry(path, extractor, opts)
		if err != nil {
			return nil, &BuildError{Path: path, Err: err}
		}
		filesScannedCounter.Add(ctx, 1)
		cache.Entries = append(cache.Entries, entry)
	}

	return cache, nil
}

// buildEntry scans one file, tracking min and max independently so the range
// is the one actually observed, sorted input or not.
func buildEntry(path string, extractor mergekey.Extractor, opts BuildOptions) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}

	source, err := linesource.OpenWithLimit(path, opts.MaxLineBytes)
	if err != nil {
		return Entry{}, err
	}

	cursor, err := merge.NewCursor(source, extractor, opts.LinePolicy)
	if err != nil {
		return Entry{}, err
	}
	defer func() {
		if closeErr := cursor.Close(); closeErr != nil {
			slog.Warn("Failed to close file after scan", slog.String("file", path), slog.Any("error", closeErr))
		}
	}()

	entry := Entry{
		Path:      path,
		KeyType:   extractor.Type,
		SizeBytes: info.Size(),
	}

	for cursor.Peek() != nil {
		key := cursor.Peek().Key
		if !entry.HasRange {
			entry.MinKey = key
			entry.MaxKey = key
			entry.HasRange = true
		} else {
			if key.Compare(entry.MinKey) < 0 {
				entry.MinKey = key
			}
			if key.Compare(entry.MaxKey) > 0 {
				entry.MaxKey = key
			}
		}
		entry.Lines++
		if err := cursor.Advance(); err != nil {
			return Entry{}, err
		}
	}

	if skipped := cursor.Skipped(); skipped > 0 {
		slog.Warn("Skipped malformed lines while building cache entry",
			slog.String("file", path),
			slog.Int64("skipped", skipped))
	}

	return entry, nil
}
