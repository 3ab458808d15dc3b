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

// Package mergekey defines the typed merge keys lines are ordered by and the
// extraction of those keys from delimited lines.
package mergekey

import (
	"fmt"
	"strconv"
	"strings"
)

// Type identifies which kind of value a merge key holds. The set is closed;
// every switch over it is exhaustive.
type Type int

const (
	// TypeString compares keys bytewise-lexicographically. The default.
	TypeString Type = iota
	// TypeInt32 parses keys as signed 32-bit integers and compares numerically.
	TypeInt32
	// TypeUint32 parses keys as unsigned 32-bit integers and compares numerically.
	TypeUint32
)

// String returns the canonical name used in flags, logs and cache files.
func (t Type) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeUint32:
		return "uint32"
	default:
		return "string"
	}
}

// ParseType resolves a key type name. Both the short names and the legacy
// long names are accepted, case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "string":
		return TypeString, nil
	case "int32", "signed32integer":
		return TypeInt32, nil
	case "uint32", "unsigned32integer":
		return TypeUint32, nil
	}
	return TypeString, fmt.Errorf("unknown key type %q (want string, int32 or uint32)", s)
}

// Key is one merge key value: a string, an int32 or a uint32, tagged with its
// Type. Keys of the same type have a total order; callers that must not mix
// types check Type() before comparing.
type Key struct {
	typ Type
	s   string
	i   int32
	u   uint32
}

// StringKey returns a string-typed key.
func StringKey(s string) Key {
	return Key{typ: TypeString, s: s}
}

// Int32Key returns a signed-integer-typed key.
func Int32Key(v int32) Key {
	return Key{typ: TypeInt32, i: v}
}

// Uint32Key returns an unsigned-integer-typed key.
func Uint32Key(v uint32) Key {
	return Key{typ: TypeUint32, u: v}
}

// Parse converts key text to a Key of the given type. String keys never fail;
// integer keys fail with a *KeyParseError when the text is not a base-10
// value in range.
func Parse(text string, typ Type) (Key, error) {
	switch typ {
	case TypeInt32:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Key{}, &KeyParseError{Type: typ, Value: text, Err: err}
		}
		return Int32Key(int32(v)), nil
	case TypeUint32:
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return Key{}, &KeyParseError{Type: typ, Value: text, Err: err}
		}
		return Uint32Key(uint32(v)), nil
	default:
		return StringKey(text), nil
	}
}

// Type returns the key's type tag.
func (k Key) Type() Type {
	return k.typ
}

// Compare returns:
// -1 if k sorts before other
//  0 if k equals other
//  1 if k sorts after other
// Keys of different types order by type tag so Compare stays total.
func (k Key) Compare(other Key) int {
	if k.typ != other.typ {
		if k.typ < other.typ {
			return -1
		}
		return 1
	}
	switch k.typ {
	case TypeInt32:
		if k.i < other.i {
			return -1
		}
		if k.i > other.i {
			return 1
		}
		return 0
	case TypeUint32:
		if k.u < other.u {
			return -1
		}
		if k.u > other.u {
			return 1
		}
		return 0
	default:
		return strings.Compare(k.s, other.s)
	}
}

// String returns the key's text form. Parsing it back with the same Type
// yields an equal Key.
func (k Key) String() string {
	switch k.typ {
	case TypeInt32:
		return strconv.FormatInt(int64(k.i), 10)
	case TypeUint32:
		return strconv.FormatUint(uint64(k.u), 10)
	default:
		return k.s
	}
}
