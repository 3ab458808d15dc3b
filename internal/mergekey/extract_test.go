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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		index   int
		typ     Type
		want    string
		wantErr bool
	}{
		{name: "first column", line: "42,alpha,beta", index: 0, typ: TypeUint32, want: "42"},
		{name: "middle column", line: "alpha,42,beta", index: 1, typ: TypeUint32, want: "42"},
		{name: "last column", line: "alpha,beta,42", index: 2, typ: TypeUint32, want: "42"},
		{name: "single column line", line: "42", index: 0, typ: TypeUint32, want: "42"},
		{name: "string key with spaces", line: "hello world,x", index: 0, typ: TypeString, want: "hello world"},
		{name: "empty first column", line: ",x,y", index: 0, typ: TypeString, want: ""},
		{name: "empty last column", line: "x,y,", index: 2, typ: TypeString, want: ""},
		{name: "missing column", line: "a,b", index: 5, wantErr: true},
		{name: "empty line", line: "", index: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Extractor{Delimiter: ',', Index: tt.index, Type: tt.typ}
			key, err := e.Extract(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				var malformed *MalformedLineError
				require.ErrorAs(t, err, &malformed)
				assert.Equal(t, tt.index, malformed.Column)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key.String())
		})
	}
}

func TestExtract_ColumnCountInError(t *testing.T) {
	e := Extractor{Delimiter: '|', Index: 3, Type: TypeString}
	_, err := e.Extract("a|b")
	require.Error(t, err)
	var malformed *MalformedLineError
	require.ErrorAs(t, err, &malformed)
	if malformed.Columns != 2 {
		t.Errorf("expected 2 columns reported, got %d", malformed.Columns)
	}
}

func TestExtract_TabDelimiter(t *testing.T) {
	e := Extractor{Delimiter: '\t', Index: 1, Type: TypeInt32}
	key, err := e.Extract("name\t-12\trest")
	require.NoError(t, err)
	assert.Equal(t, "-12", key.String())

	// The other delimiter characters are plain data.
	key, err = e.Extract("a,b\t7")
	require.NoError(t, err)
	assert.Equal(t, "7", key.String())
}

func TestExtract_ParseFailure(t *testing.T) {
	e := Extractor{Delimiter: ',', Index: 1, Type: TypeUint32}
	_, err := e.Extract("row,notanumber,rest")
	require.Error(t, err)
	var parseErr *KeyParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "notanumber", parseErr.Value)
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		input     string
		want      byte
		expectErr bool
	}{
		{input: "tsv", want: '\t'},
		{input: "TSV", want: '\t'},
		{input: "csv", want: ','},
		{input: "psv", want: '|'},
		{input: ",", want: ','},
		{input: "|", want: '|'},
		{input: ";", want: ';'},
		{input: "", expectErr: true},
		{input: "||", expectErr: true},
		{input: "comma", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			got, err := ParseDelimiter(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsLineError(t *testing.T) {
	assert.True(t, IsLineError(&MalformedLineError{Column: 1, Columns: 1}))
	assert.True(t, IsLineError(&KeyParseError{Type: TypeInt32, Value: "x"}))
	assert.True(t, IsLineError(fmt.Errorf("file:12: %w", &KeyParseError{Type: TypeInt32, Value: "x"})))
	assert.False(t, IsLineError(fmt.Errorf("disk on fire")))
	assert.False(t, IsLineError(nil))
}
