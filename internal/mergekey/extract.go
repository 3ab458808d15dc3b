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

package mergekey

import (
	"errors"
	"fmt"
	"strings"
)

// Extractor pulls the merge key out of a delimited line. It is pure
// configuration; the same Extractor is shared by every file in a run.
type Extractor struct {
	Delimiter byte
	Index     int // zero-based key column
	Type      Type
}

// Extract locates column Index and parses it as a Type key. The line is
// scanned with IndexByte only as far as the key column; no column slice is
// allocated. Returns *MalformedLineError when the line has too few columns
// and *KeyParseError when the column text does not parse.
func (e Extractor) Extract(line string) (Key, error) {
	start := 0
	for col := 0; col < e.Index; col++ {
		i := strings.IndexByte(line[start:], e.Delimiter)
		if i < 0 {
			return Key{}, &MalformedLineError{Column: e.Index, Columns: col + 1}
		}
		start += i + 1
	}
	field := line[start:]
	if end := strings.IndexByte(field, e.Delimiter); end >= 0 {
		field = field[:end]
	}
	return Parse(field, e.Type)
}

// ParseDelimiter resolves a delimiter argument: the names tsv, csv and psv
// map to their conventional characters, anything else must be a single byte
// taken literally.
func ParseDelimiter(s string) (byte, error) {
	switch strings.ToLower(s) {
	case "tsv":
		return '\t', nil
	case "csv":
		return ',', nil
	case "psv":
		return '|', nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single byte or one of tsv, csv, psv (got %q)", s)
	}
	return s[0], nil
}

// MalformedLineError reports a line with too few columns to contain the key.
type MalformedLineError struct {
	Column  int // zero-based column that was requested
	Columns int // columns the line actually has
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("key column %d missing, line has %d column(s)", e.Column, e.Columns)
}

// KeyParseError reports a key column whose text does not parse as the
// configured key type.
type KeyParseError struct {
	Type  Type
	Value string
	Err   error
}

func (e *KeyParseError) Error() string {
	return fmt.Sprintf("key %q is not a valid %s", e.Value, e.Type)
}

func (e *KeyParseError) Unwrap() error {
	return e.Err
}

// IsLineError reports whether err is a per-line data error, the kind the
// skip-malformed policy may skip, as opposed to an I/O or setup failure.
func IsLineError(err error) bool {
	var malformed *MalformedLineError
	var parse *KeyParseError
	return errors.As(err, &malformed) || errors.As(err, &parse)
}
