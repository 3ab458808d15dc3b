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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael-robbins/filemerger/internal/mergekey"
)

func uint32Entry(path string, min, max uint32) Entry {
	return Entry{
		Path:     path,
		KeyType:  mergekey.TypeUint32,
		MinKey:   mergekey.Uint32Key(min),
		MaxKey:   mergekey.Uint32Key(max),
		HasRange: true,
	}
}

func queryPaths(c *Cache, start, end *mergekey.Key, typ mergekey.Type) []string {
	var paths []string
	for _, e := range c.Query(context.Background(), start, end, typ) {
		paths = append(paths, e.Path)
	}
	return paths
}

func u32ptr(v uint32) *mergekey.Key {
	k := mergekey.Uint32Key(v)
	return &k
}

func TestCache_QueryIntersection(t *testing.T) {
	cache := &Cache{Entries: []Entry{
		uint32Entry("one.csv", 1, 10),
		uint32Entry("two.csv", 20, 30),
	}}

	// [5, 25) overlaps both ranges.
	assert.Equal(t, []string{"one.csv", "two.csv"},
		queryPaths(cache, u32ptr(5), u32ptr(25), mergekey.TypeUint32))

	// [11, 19) falls in the gap between them.
	assert.Empty(t, queryPaths(cache, u32ptr(11), u32ptr(19), mergekey.TypeUint32))
}

func TestCache_QueryBoundaries(t *testing.T) {
	cache := &Cache{Entries: []Entry{
		uint32Entry("one.csv", 10, 20),
	}}

	// End is exclusive: a file starting exactly at end cannot contribute.
	assert.Empty(t, queryPaths(cache, nil, u32ptr(10), mergekey.TypeUint32))
	assert.Equal(t, []string{"one.csv"}, queryPaths(cache, nil, u32ptr(11), mergekey.TypeUint32))

	// Start is inclusive: a file whose max equals start can contribute.
	assert.Equal(t, []string{"one.csv"}, queryPaths(cache, u32ptr(20), nil, mergekey.TypeUint32))
	assert.Empty(t, queryPaths(cache, u32ptr(21), nil, mergekey.TypeUint32))
}

func TestCache_QueryOpenBounds(t *testing.T) {
	cache := &Cache{Entries: []Entry{
		uint32Entry("one.csv", 1, 10),
		uint32Entry("two.csv", 20, 30),
	}}

	// No bounds selects everything.
	assert.Equal(t, []string{"one.csv", "two.csv"},
		queryPaths(cache, nil, nil, mergekey.TypeUint32))

	// Only a start bound.
	assert.Equal(t, []string{"two.csv"},
		queryPaths(cache, u32ptr(15), nil, mergekey.TypeUint32))

	// Only an end bound.
	assert.Equal(t, []string{"one.csv"},
		queryPaths(cache, nil, u32ptr(15), mergekey.TypeUint32))
}

func TestCache_QueryKeepsInputOrder(t *testing.T) {
	cache := &Cache{Entries: []Entry{
		uint32Entry("z.csv", 1, 100),
		uint32Entry("a.csv", 1, 100),
		uint32Entry("m.csv", 1, 100),
	}}

	assert.Equal(t, []string{"z.csv", "a.csv", "m.csv"},
		queryPaths(cache, nil, nil, mergekey.TypeUint32))
}

func TestCache_QuerySkipsEmptyRanges(t *testing.T) {
	cache := &Cache{Entries: []Entry{
		uint32Entry("full.csv", 1, 10),
		{Path: "empty.csv", KeyType: mergekey.TypeUint32},
	}}

	assert.Equal(t, []string{"full.csv"},
		queryPaths(cache, nil, nil, mergekey.TypeUint32))
}

func TestCache_QuerySkipsOtherKeyTypes(t *testing.T) {
	cache := &Cache{Entries: []Entry{
		uint32Entry("numbers.csv", 1, 10),
		{
			Path:     "words.csv",
			KeyType:  mergekey.TypeString,
			MinKey:   mergekey.StringKey("a"),
			MaxKey:   mergekey.StringKey("z"),
			HasRange: true,
		},
	}}

	// The string-typed entry is never considered for a uint32 query.
	assert.Equal(t, []string{"numbers.csv"},
		queryPaths(cache, u32ptr(1), nil, mergekey.TypeUint32))

	// And vice versa.
	start := mergekey.StringKey("a")
	assert.Equal(t, []string{"words.csv"},
		queryPaths(cache, &start, nil, mergekey.TypeString))
}

func TestCache_QueryStringRanges(t *testing.T) {
	cache := &Cache{Entries: []Entry{
		{
			Path:     "ab.csv",
			KeyType:  mergekey.TypeString,
			MinKey:   mergekey.StringKey("apple"),
			MaxKey:   mergekey.StringKey("banana"),
			HasRange: true,
		},
	}}

	start := mergekey.StringKey("avocado")
	end := mergekey.StringKey("cherry")
	assert.Equal(t, []string{"ab.csv"},
		queryPaths(cache, &start, &end, mergekey.TypeString))

	afterAll := mergekey.StringKey("cucumber")
	assert.Empty(t, queryPaths(cache, &afterAll, nil, mergekey.TypeString))
}

func TestCache_VerifySizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,a\n2,b\n"), 0o644))

	entry := uint32Entry(path, 1, 2)
	entry.SizeBytes = 8
	cache := &Cache{Entries: []Entry{entry}}

	require.NoError(t, cache.VerifySizes())

	// Grow the file behind the cache's back.
	require.NoError(t, os.WriteFile(path, []byte("1,a\n2,b\n3,c\n"), 0o644))
	err := cache.VerifySizes()
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "size changed")

	// A missing file is just as stale.
	require.NoError(t, os.Remove(path))
	require.Error(t, cache.VerifySizes())
}
