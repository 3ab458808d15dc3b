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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/michael-robbins/filemerger/internal/mergekey"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FormatVersion is the cache document version this build reads and writes.
const FormatVersion = 2

// LoadError reports a cache file that could not be parsed or is of an
// unsupported version.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading range cache %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type cacheDocument struct {
	Version int          `json:"version"`
	BuiltAt time.Time    `json:"built_at"`
	Entries []cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Path    string `json:"path"`
	KeyType string `json:"key_type"`
	// Key bytes ride as base64: string keys may hold bytes a JSON string
	// cannot represent, and the range must round-trip byte for byte.
	MinKey    []byte `json:"min_key,omitempty"`
	MaxKey    []byte `json:"max_key,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Lines     int64  `json:"lines"`
	HasRange  bool   `json:"has_range"`
}

// WriteFile persists the cache at path. The document is written to a
// uniquely named temp file in the same directory, synced, then renamed into
// place, so a crash or failed build never corrupts an existing cache.
func (c *Cache) WriteFile(path string) error {
	doc := cacheDocument{
		Version: FormatVersion,
		BuiltAt: c.BuiltAt,
		Entries: make([]cacheEntry, 0, len(c.Entries)),
	}
	for _, e := range c.Entries {
		we := cacheEntry{
			Path:      e.Path,
			KeyType:   e.KeyType.String(),
			SizeBytes: e.SizeBytes,
			Lines:     e.Lines,
			HasRange:  e.HasRange,
		}
		if e.HasRange {
			we.MinKey = []byte(e.MinKey.String())
			we.MaxKey = []byte(e.MaxKey.String())
		}
		doc.Entries = append(doc.Entries, we)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding range cache: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("syncing temp cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Load reads and validates a cache file written by WriteFile.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if doc.Version != FormatVersion {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported version %d (want %d)", doc.Version, FormatVersion)}
	}

	cache := &Cache{
		BuiltAt: doc.BuiltAt,
		Entries: make([]Entry, 0, len(doc.Entries)),
	}
	for i, we := range doc.Entries {
		typ, err := mergekey.ParseType(we.KeyType)
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		entry := Entry{
			Path:      we.Path,
			KeyType:   typ,
			SizeBytes: we.SizeBytes,
			Lines:     we.Lines,
			HasRange:  we.HasRange,
		}
		if we.HasRange {
			if entry.MinKey, err = mergekey.Parse(string(we.MinKey), typ); err != nil {
				return nil, &LoadError{Path: path, Err: fmt.Errorf("entry %d min key: %w", i, err)}
			}
			if entry.MaxKey, err = mergekey.Parse(string(we.MaxKey), typ); err != nil {
				return nil, &LoadError{Path: path, Err: fmt.Errorf("entry %d max key: %w", i, err)}
			}
		}
		cache.Entries = append(cache.Entries, entry)
	}

	return cache, nil
}
