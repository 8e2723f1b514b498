/*
 * MinIO Cloud Storage, (C) 2020 MinIO, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package turbojson

// JSONVALUEMASK masks the 56-bit payload out of a tape word.
const JSONVALUEMASK = 0xffffffffffffff

// JSONTAGMASK masks the 8-bit tag out of a tape word.
const JSONTAGMASK = 0xff << 56

// JSONTAGOFFSET is the bit offset of the tag within a tape word.
const JSONTAGOFFSET = 56

// STRINGBUFBIT, set in a string's payload, means the string was copied
// into the Strings buffer rather than referencing Message directly.
const STRINGBUFBIT = 0x80000000000000

// STRINGBUFMASK masks the offset out of a string payload once STRINGBUFBIT
// has been checked.
const STRINGBUFMASK = 0x7fffffffffffff

// maxDepthDefault is the default nesting bound for objects and arrays,
// matching simdjson's default depthcapacity.
const maxDepthDefault = 1024

// Tag indicates the data type of a tape entry.
type Tag uint8

const (
	TagString      = Tag('"')
	TagInteger     = Tag('l')
	TagUint        = Tag('u')
	TagFloat       = Tag('d')
	TagNull        = Tag('n')
	TagBoolTrue    = Tag('t')
	TagBoolFalse   = Tag('f')
	TagObjectStart = Tag('{')
	TagObjectEnd   = Tag('}')
	TagArrayStart  = Tag('[')
	TagArrayEnd    = Tag(']')
	TagRoot        = Tag('r')
	// TagNop marks a tape slot that has been tombstoned by Object.DeleteElems;
	// its payload is the number of slots to skip to reach the next live entry.
	TagNop = Tag(0xff)
	TagEnd = Tag(0)
)

var tagOpenToClose = [256]Tag{
	TagObjectStart: TagObjectEnd,
	TagArrayStart:  TagArrayEnd,
	TagRoot:        TagRoot,
}

func (t Tag) String() string {
	if t == TagEnd {
		return "(end)"
	}
	return string([]byte{byte(t)})
}

// Type is a JSON value type.
type Type uint8

const (
	TypeNone Type = iota
	TypeNull
	TypeString
	TypeInt
	TypeUint
	TypeFloat
	TypeBool
	TypeObject
	TypeArray
	TypeRoot
)

// String returns the type as a string.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "(no type)"
	case TypeNull:
		return "null"
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeUint:
		return "uint"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeRoot:
		return "root"
	}
	return "(invalid)"
}

// TagToType converts a tag to type.
// For arrays and objects only the start tag will return types.
// All non-existing tags return TypeNone.
var TagToType = [256]Type{
	TagString:      TypeString,
	TagInteger:     TypeInt,
	TagUint:        TypeUint,
	TagFloat:       TypeFloat,
	TagNull:        TypeNull,
	TagBoolTrue:    TypeBool,
	TagBoolFalse:   TypeBool,
	TagObjectStart: TypeObject,
	TagArrayStart:  TypeArray,
	TagRoot:        TypeRoot,
}

// Type converts a tag to a type.
func (t Tag) Type() Type {
	return TagToType[t]
}
