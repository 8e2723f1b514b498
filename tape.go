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

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
)

// FloatFlags are flags recorded when converting floats.
type FloatFlags uint64

// FloatFlag is a flag recorded when parsing floats.
type FloatFlag uint64

const (
	// FloatOverflowedInteger is set when a number in the JSON was written
	// in integer notation, but under/overflowed both int64 and uint64 and
	// was therefore parsed as float.
	FloatOverflowedInteger FloatFlag = 1 << iota
)

// Contains returns whether f contains the specified flag.
func (f FloatFlags) Contains(flag FloatFlag) bool {
	return FloatFlag(f)&flag == flag
}

// Flags converts the flag to FloatFlags and optionally merges more flags.
func (f FloatFlag) Flags(more ...FloatFlag) FloatFlags {
	for _, v := range more {
		f |= v
	}
	return FloatFlags(f)
}

// ParsedJson holds the result of a parse: the tape of tagged 64-bit words,
// the buffer of copied/unescaped strings, and (a reference to) the original
// message. A ParsedJson may be handed back to Parse as the reuse argument
// to recycle its backing arrays.
type ParsedJson struct {
	Message []byte
	Tape    []uint64
	Strings []byte

	// internal allows reusing backing structures without exposing them.
	internal *internalParsedJson
}

// Iter returns a new Iter positioned before the first (root) tape entry.
func (pj *ParsedJson) Iter() Iter {
	return Iter{tape: *pj}
}

// Navigator returns a random-access cursor over the tape, positioned at
// the root scope. See Navigator for movement primitives.
func (pj *ParsedJson) Navigator() *Navigator {
	return newNavigator(pj)
}

// Reset clears the parsed result so its backing arrays can be reused by a
// subsequent Parse call without reallocating.
func (pj *ParsedJson) Reset() {
	pj.Tape = pj.Tape[:0]
	pj.Strings = pj.Strings[:0]
	pj.Message = pj.Message[:0]
}

// stringAt returns a string at a specific offset in the message or string buffer.
func (pj *ParsedJson) stringAt(offset, length uint64) (string, error) {
	b, err := pj.stringByteAt(offset, length)
	return string(b), err
}

// stringByteAt returns the bytes of a string at a specific offset.
// STRINGBUFBIT in offset selects between Message (unset) and Strings (set).
func (pj *ParsedJson) stringByteAt(offset, length uint64) ([]byte, error) {
	if offset&STRINGBUFBIT == 0 {
		if offset+length > uint64(len(pj.Message)) {
			return nil, newErrorf(CodeStringError, "string message offset (%v) outside valid area (%v)", offset+length, len(pj.Message))
		}
		return pj.Message[offset : offset+length], nil
	}

	offset = offset & STRINGBUFMASK
	if offset+length > uint64(len(pj.Strings)) {
		return nil, newErrorf(CodeStringError, "string buffer offset (%v) outside valid area (%v)", offset+length, len(pj.Strings))
	}
	return pj.Strings[offset : offset+length], nil
}

// loadTape reconstructs a ParsedJson's tape and string buffer from raw
// readers: tape yields the tape as consecutive little-endian 64-bit words,
// strings yields the bytes of the Strings buffer. It does not read the
// Serializer's format.
func loadTape(tape, strings io.Reader) (*ParsedJson, error) {
	b, err := io.ReadAll(tape)
	if err != nil {
		return nil, err
	}
	if len(b)&7 != 0 {
		return nil, newError(CodeTapeError)
	}
	dst := ParsedJson{
		Tape:    make([]uint64, len(b)/8),
		Strings: nil,
	}
	for i := range dst.Tape {
		dst.Tape[i] = binary.LittleEndian.Uint64(b[i*8 : i*8+8])
	}
	b, err = io.ReadAll(strings)
	if err != nil {
		return nil, err
	}
	dst.Strings = b
	return &dst, nil
}

// Iter represents a position within a tape. To start iterating, call
// Advance() or AdvanceIter(), which queue the first element.
// Copying an Iter produces an independent cursor over the same tape.
type Iter struct {
	// tape is the tape this iterator walks.
	tape ParsedJson

	// off is the offset of the next entry to be decoded.
	off int

	// addNext is the number of entries to skip to reach the following entry.
	addNext int

	// cur is the current value, with the tag bits in the top byte excluded.
	cur uint64

	// t is the current tag.
	t Tag
}

func (pj *ParsedJson) getCurrentLoc() uint64 {
	return uint64(len(pj.Tape))
}

func (pj *ParsedJson) writeTape(val uint64, c Tag) {
	pj.Tape = append(pj.Tape, val|(uint64(c)<<JSONTAGOFFSET))
}

// writeTapeTagVal writes a tag with no embedded value, followed by val.
func (pj *ParsedJson) writeTapeTagVal(tag Tag, val uint64) {
	pj.Tape = append(pj.Tape, uint64(tag)<<JSONTAGOFFSET, val)
}

func (pj *ParsedJson) writeTapeTagValFlags(tag Tag, val, flags uint64) {
	pj.Tape = append(pj.Tape, uint64(tag)<<JSONTAGOFFSET|flags, val)
}

func (pj *ParsedJson) writeTapeS64(val int64) {
	pj.writeTapeTagVal(TagInteger, uint64(val))
}

func (pj *ParsedJson) writeTapeU64(val uint64, flags uint64) {
	pj.writeTapeTagValFlags(TagUint, val, flags)
}

func (pj *ParsedJson) writeTapeDouble(d float64) {
	pj.writeTapeTagVal(TagFloat, math.Float64bits(d))
}

func (pj *ParsedJson) annotatePreviousLoc(savedLoc uint64, val uint64) {
	pj.Tape[savedLoc] |= val
}

// Advance reads the type of the next element and queues up the value on
// the same level (it does not descend into objects/arrays).
func (i *Iter) Advance() Type {
	i.off += i.addNext
	if i.off >= len(i.tape.Tape) {
		i.addNext = 0
		i.t = TagEnd
		return TypeNone
	}

	v := i.tape.Tape[i.off]
	i.cur = v & JSONVALUEMASK
	i.t = Tag(v >> JSONTAGOFFSET)
	i.off++
	i.calcNext(false)
	if i.addNext < 0 {
		i.moveToEnd()
		return TypeNone
	}
	return TagToType[i.t]
}

// AdvanceInto reads the tag of the next element and moves into and out of
// arrays, objects and root elements. Intended for manual tape walks only.
func (i *Iter) AdvanceInto() Tag {
	i.off += i.addNext
	if i.off >= len(i.tape.Tape) {
		i.addNext = 0
		i.t = TagEnd
		return TagEnd
	}

	v := i.tape.Tape[i.off]
	i.cur = v & JSONVALUEMASK
	i.t = Tag(v >> JSONTAGOFFSET)
	i.off++
	i.calcNext(true)
	if i.addNext < 0 {
		i.moveToEnd()
		return TagEnd
	}
	return i.t
}

func (i *Iter) moveToEnd() {
	i.off = len(i.tape.Tape)
	i.addNext = 0
	i.t = TagEnd
}

// calcNext populates addNext with the number of tape slots to skip to
// reach the next sibling. into controls whether container starts move
// past their own header (true) or jump straight to their matching end
// (false).
func (i *Iter) calcNext(into bool) {
	i.addNext = 0
	switch i.t {
	case TagInteger, TagUint, TagFloat, TagString:
		i.addNext = 1
	case TagRoot, TagObjectStart, TagArrayStart:
		if !into {
			i.addNext = int(i.cur) - i.off
		}
	}
}

// Type returns the queued value type from the previous call to Advance.
func (i *Iter) Type() Type {
	if i.off+i.addNext > len(i.tape.Tape) {
		return TypeNone
	}
	return TagToType[i.t]
}

// AdvanceIter reads the type of the next element and returns an iterator
// scoped to just that element. If dst and i are the same pointer, i will
// be left positioned inside the value.
func (i *Iter) AdvanceIter(dst *Iter) (Type, error) {
	i.off += i.addNext
	if i.off == len(i.tape.Tape) {
		i.addNext = 0
		i.t = TagEnd
		return TypeNone, nil
	}
	if i.off > len(i.tape.Tape) {
		return TypeNone, newError(CodeTapeError)
	}

	v := i.tape.Tape[i.off]
	i.cur = v & JSONVALUEMASK
	i.t = Tag(v >> JSONTAGOFFSET)
	i.off++
	i.calcNext(false)
	if i.addNext < 0 {
		i.moveToEnd()
		return TypeNone, newError(CodeTapeError)
	}

	iEnd := i.off + i.addNext
	typ := TagToType[i.t]

	if i != dst {
		*dst = *i
	}
	dst.calcNext(true)
	if dst.addNext < 0 {
		i.moveToEnd()
		return TypeNone, newError(CodeTapeError)
	}

	if iEnd > len(dst.tape.Tape) {
		return TypeNone, newError(CodeTapeError)
	}

	dst.tape.Tape = dst.tape.Tape[:iEnd]
	return typ, nil
}

// PeekNext returns the next value's type without consuming it.
// Returns TypeNone if the next Advance would end the iterator.
func (i *Iter) PeekNext() Type {
	if i.off+i.addNext >= len(i.tape.Tape) {
		return TypeNone
	}
	return TagToType[Tag(i.tape.Tape[i.off+i.addNext]>>JSONTAGOFFSET)]
}

// PeekNextTag returns the tag at the current offset, or TagEnd if at the
// end of the iterator.
func (i *Iter) PeekNextTag() Tag {
	if i.off+i.addNext >= len(i.tape.Tape) {
		return TagEnd
	}
	return Tag(i.tape.Tape[i.off+i.addNext] >> JSONTAGOFFSET)
}

// Float returns the float value of the next element.
// Integers are automatically converted to float.
func (i *Iter) Float() (float64, error) {
	switch i.t {
	case TagFloat:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected float, but no more values on tape")
		}
		return math.Float64frombits(i.tape.Tape[i.off]), nil
	case TagInteger:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		return float64(int64(i.tape.Tape[i.off])), nil
	case TagUint:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		return float64(i.tape.Tape[i.off]), nil
	default:
		return 0, newErrorf(CodeIncorrectType, "unable to convert type %v to float", i.t)
	}
}

// FloatFlags returns the float value of the next element, including any
// flags recorded while parsing. Integers are automatically converted.
func (i *Iter) FloatFlags() (float64, FloatFlags, error) {
	switch i.t {
	case TagFloat:
		if i.off >= len(i.tape.Tape) {
			return 0, 0, newErrorf(CodeTapeError, "expected float, but no more values on tape")
		}
		return math.Float64frombits(i.tape.Tape[i.off]), FloatFlags(i.cur), nil
	case TagInteger:
		if i.off >= len(i.tape.Tape) {
			return 0, 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		return float64(int64(i.tape.Tape[i.off])), 0, nil
	case TagUint:
		if i.off >= len(i.tape.Tape) {
			return 0, 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		return float64(i.tape.Tape[i.off]), 0, nil
	default:
		return 0, 0, newErrorf(CodeIncorrectType, "unable to convert type %v to float", i.t)
	}
}

// Int returns the integer value of the next element.
// Floats within int64 range are automatically converted.
func (i *Iter) Int() (int64, error) {
	switch i.t {
	case TagFloat:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected float, but no more values on tape")
		}
		v := math.Float64frombits(i.tape.Tape[i.off])
		if v > math.MaxInt64 {
			return 0, newErrorf(CodeNumberOutOfRange, "float value overflows int64")
		}
		if v < math.MinInt64 {
			return 0, newErrorf(CodeNumberOutOfRange, "float value underflows int64")
		}
		return int64(v), nil
	case TagInteger:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		return int64(i.tape.Tape[i.off]), nil
	case TagUint:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		v := i.tape.Tape[i.off]
		if v > math.MaxInt64 {
			return 0, newErrorf(CodeNumberOutOfRange, "unsigned integer value overflows int64")
		}
		return int64(v), nil
	default:
		return 0, newErrorf(CodeIncorrectType, "unable to convert type %v to int", i.t)
	}
}

// Uint returns the unsigned integer value of the next element.
// Non-negative integers and floats within range are automatically converted.
func (i *Iter) Uint() (uint64, error) {
	switch i.t {
	case TagFloat:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected float, but no more values on tape")
		}
		v := math.Float64frombits(i.tape.Tape[i.off])
		if v < 0 {
			return 0, newErrorf(CodeNumberOutOfRange, "float value is negative, cannot convert to uint")
		}
		if v > math.MaxUint64 {
			return 0, newErrorf(CodeNumberOutOfRange, "float value overflows uint64")
		}
		return uint64(v), nil
	case TagInteger:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		v := int64(i.tape.Tape[i.off])
		if v < 0 {
			return 0, newErrorf(CodeNumberOutOfRange, "integer value is negative, cannot convert to uint")
		}
		return uint64(v), nil
	case TagUint:
		if i.off >= len(i.tape.Tape) {
			return 0, newErrorf(CodeTapeError, "expected integer, but no more values on tape")
		}
		return i.tape.Tape[i.off], nil
	default:
		return 0, newErrorf(CodeIncorrectType, "unable to convert type %v to uint", i.t)
	}
}

// String returns a string value.
func (i *Iter) String() (string, error) {
	if i.t != TagString {
		return "", newErrorf(CodeIncorrectType, "value is not string")
	}
	if i.off >= len(i.tape.Tape) {
		return "", newError(CodeTapeError)
	}
	return i.tape.stringAt(i.cur, i.tape.Tape[i.off])
}

// StringBytes returns the bytes of a string value, without copying if the
// string still references the original message.
func (i *Iter) StringBytes() ([]byte, error) {
	if i.t != TagString {
		return nil, newErrorf(CodeIncorrectType, "value is not string")
	}
	if i.off >= len(i.tape.Tape) {
		return nil, newError(CodeTapeError)
	}
	return i.tape.stringByteAt(i.cur, i.tape.Tape[i.off])
}

// StringCvt returns a string representation of the value.
// Root, Object and Array are not supported.
func (i *Iter) StringCvt() (string, error) {
	switch i.t {
	case TagString:
		return i.String()
	case TagInteger:
		v, err := i.Int()
		return strconv.FormatInt(v, 10), err
	case TagUint:
		v, err := i.Uint()
		return strconv.FormatUint(v, 10), err
	case TagFloat:
		v, err := i.Float()
		if err != nil {
			return "", err
		}
		return floatToString(v)
	case TagBoolFalse:
		return "false", nil
	case TagBoolTrue:
		return "true", nil
	case TagNull:
		return "null", nil
	}
	return "", newErrorf(CodeIncorrectType, "cannot convert type %s to string", TagToType[i.t])
}

// Root returns the value embedded in a root tag as an iterator, along
// with the type of its first element. An optional destination avoids
// an allocation.
func (i *Iter) Root(dst *Iter) (Type, *Iter, error) {
	if i.t != TagRoot {
		return TypeNone, dst, newErrorf(CodeIncorrectType, "value is not root")
	}
	if i.cur > uint64(len(i.tape.Tape)) {
		return TypeNone, dst, newError(CodeTapeError)
	}
	if dst == nil {
		c := *i
		dst = &c
	} else {
		dst.cur = i.cur
		dst.off = i.off
		dst.t = i.t
		dst.tape.Strings = i.tape.Strings
		dst.tape.Message = i.tape.Message
	}
	dst.addNext = 0
	dst.tape.Tape = i.tape.Tape[:i.cur-1]
	return dst.AdvanceInto().Type(), dst, nil
}

// Bool returns the bool value.
func (i *Iter) Bool() (bool, error) {
	switch i.t {
	case TagBoolTrue:
		return true, nil
	case TagBoolFalse:
		return false, nil
	}
	return false, newErrorf(CodeIncorrectType, "value is not bool, but %v", i.t)
}

// Interface returns the value as a generic Go value: objects become
// map[string]interface{}, arrays become []interface{}, numbers become
// int64/uint64/float64, strings become string, booleans become bool,
// null becomes nil, and a root becomes []interface{} of its elements.
func (i *Iter) Interface() (interface{}, error) {
	switch i.t.Type() {
	case TypeUint:
		return i.Uint()
	case TypeInt:
		return i.Int()
	case TypeFloat:
		return i.Float()
	case TypeNull:
		return nil, nil
	case TypeArray:
		arr, err := i.Array(nil)
		if err != nil {
			return nil, err
		}
		return arr.Interface()
	case TypeString:
		return i.String()
	case TypeObject:
		obj, err := i.Object(nil)
		if err != nil {
			return nil, err
		}
		return obj.Map(nil)
	case TypeBool:
		return i.t == TagBoolTrue, nil
	case TypeRoot:
		var dst []interface{}
		var tmp Iter
		for {
			typ, obj, err := i.Root(&tmp)
			if err != nil {
				return nil, err
			}
			if typ == TypeNone {
				break
			}
			elem, err := obj.Interface()
			if err != nil {
				return nil, err
			}
			dst = append(dst, elem)
			typ = i.Advance()
			if typ != TypeRoot {
				break
			}
		}
		return dst, nil
	case TypeNone:
		if i.PeekNextTag() == TagEnd {
			return nil, newError(CodeEmpty)
		}
		i.Advance()
		return i.Interface()
	default:
	}
	return nil, newErrorf(CodeUnexpectedError, "unknown tag type: %v", i.t)
}

// Object returns the next element as an object. An optional destination
// can be given.
func (i *Iter) Object(dst *Object) (*Object, error) {
	if i.t != TagObjectStart {
		return nil, newErrorf(CodeIncorrectType, "next item is not object")
	}
	end := i.cur
	if end < uint64(i.off) {
		return nil, newError(CodeTapeError)
	}
	if uint64(len(i.tape.Tape)) < end {
		return nil, newError(CodeTapeError)
	}
	if dst == nil {
		dst = &Object{}
	}
	dst.tape.Tape = i.tape.Tape[:end]
	dst.tape.Strings = i.tape.Strings
	dst.tape.Message = i.tape.Message
	dst.off = i.off
	return dst, nil
}

// Array returns the next element as an array. An optional destination
// can be given.
func (i *Iter) Array(dst *Array) (*Array, error) {
	if i.t != TagArrayStart {
		return nil, newErrorf(CodeIncorrectType, "next item is not array")
	}
	end := i.cur
	if uint64(len(i.tape.Tape)) < end {
		return nil, newError(CodeTapeError)
	}
	if dst == nil {
		dst = &Array{}
	}
	dst.tape.Tape = i.tape.Tape[:end]
	dst.tape.Strings = i.tape.Strings
	dst.tape.Message = i.tape.Message
	dst.off = i.off
	return dst, nil
}
