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

package linesource

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlainFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeGzipFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
	return path
}

func writeZstdFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func readAllLines(t *testing.T, s *Source) []string {
	t.Helper()
	var lines []string
	for {
		line, err := s.Next()
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestSource_PlainFile(t *testing.T) {
	path := writePlainFile(t, "data.txt", "1,a\n2,b\n3,c\n")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, path, s.Path())
	assert.Equal(t, int64(0), s.Line())

	lines := readAllLines(t, s)
	assert.Equal(t, []string{"1,a", "2,b", "3,c"}, lines)
	assert.Equal(t, int64(3), s.Line())

	// EOF is sticky.
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSource_NoTrailingNewline(t *testing.T) {
	path := writePlainFile(t, "data.txt", "1,a\n2,b")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	lines := readAllLines(t, s)
	assert.Equal(t, []string{"1,a", "2,b"}, lines)
}

func TestSource_CRLF(t *testing.T) {
	path := writePlainFile(t, "data.txt", "1,a\r\n2,b\r\n")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	lines := readAllLines(t, s)
	assert.Equal(t, []string{"1,a", "2,b"}, lines)
}

func TestSource_EmptyFile(t *testing.T) {
	path := writePlainFile(t, "empty.txt", "")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, int64(0), s.Line())
}

func TestSource_EmptyLinesAreLines(t *testing.T) {
	path := writePlainFile(t, "data.txt", "a\n\nb\n")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	lines := readAllLines(t, s)
	assert.Equal(t, []string{"a", "", "b"}, lines)
}

func TestSource_Gzip(t *testing.T) {
	path := writeGzipFile(t, "data.txt.gz", "10,x\n20,y\n")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	lines := readAllLines(t, s)
	assert.Equal(t, []string{"10,x", "20,y"}, lines)
}

func TestSource_GzipBadMagic(t *testing.T) {
	path := writePlainFile(t, "notreally.gz", "this is not gzip\n")
	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestSource_Bzip2(t *testing.T) {
	s, err := Open(filepath.Join("testdata", "lines.txt.bz2"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	lines := readAllLines(t, s)
	assert.Equal(t, []string{"1,alpha", "2,beta", "3,gamma"}, lines)
}

func TestSource_Zstd(t *testing.T) {
	path := writeZstdFile(t, "data.txt.zst", "5,e\n6,f\n7,g\n")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	lines := readAllLines(t, s)
	assert.Equal(t, []string{"5,e", "6,f", "7,g"}, lines)
}

func TestSource_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestSource_LineTooLong(t *testing.T) {
	long := strings.Repeat("x", 300)
	path := writePlainFile(t, "data.txt", "short\n"+long+"\n")
	s, err := OpenWithLimit(path, 128)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	line, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "short", line)

	_, err = s.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "128")
}

func TestSource_CloseTwice(t *testing.T) {
	path := writePlainFile(t, "data.txt", "1\n")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}
