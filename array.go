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

// Array represents a JSON array.
type Array struct {
	// tape is the complete tape this array is scoped to.
	tape ParsedJson

	// off is the offset of the first element.
	off int
}

// Iter returns the array as an Iter.
func (a *Array) Iter() Iter {
	i := Iter{tape: a.tape, off: a.off}
	i.addNext = 0
	return i
}

// FirstType returns the type of the first element in the array, if any.
func (a *Array) FirstType() (Type, error) {
	if a.off >= len(a.tape.Tape) {
		return TypeNone, nil
	}
	v := a.tape.Tape[a.off]
	return TagToType[Tag(v>>JSONTAGOFFSET)], nil
}

// Interface returns the array as a []interface{}.
// See Iter.Interface for details on returned value types.
func (a *Array) Interface() ([]interface{}, error) {
	i := a.Iter()
	dst := make([]interface{}, 0)
	for {
		typ := i.Advance()
		if typ == TypeNone {
			return dst, nil
		}
		elem, err := i.Interface()
		if err != nil {
			return nil, newErrorf(CodeTapeError, "parsing array element: %v", err)
		}
		dst = append(dst, elem)
	}
}

// AsFloat returns all elements as float64.
// All elements must be numeric. Null values are returned as 0.
func (a *Array) AsFloat() ([]float64, error) {
	i := a.Iter()
	dst := make([]float64, 0)
	for {
		typ := i.Advance()
		switch typ {
		case TypeNone:
			return dst, nil
		case TypeNull:
			dst = append(dst, 0)
			continue
		}
		v, err := i.Float()
		if err != nil {
			return nil, newErrorf(CodeIncorrectType, "array element: %v", err)
		}
		dst = append(dst, v)
	}
}

// AsInteger returns all elements as int64.
// All elements must be numeric. Null values are returned as 0.
func (a *Array) AsInteger() ([]int64, error) {
	i := a.Iter()
	dst := make([]int64, 0)
	for {
		typ := i.Advance()
		switch typ {
		case TypeNone:
			return dst, nil
		case TypeNull:
			dst = append(dst, 0)
			continue
		}
		v, err := i.Int()
		if err != nil {
			return nil, newErrorf(CodeIncorrectType, "array element: %v", err)
		}
		dst = append(dst, v)
	}
}

// AsUint64 returns all elements as uint64.
// All elements must be numeric. Null values are returned as 0.
func (a *Array) AsUint64() ([]uint64, error) {
	i := a.Iter()
	dst := make([]uint64, 0)
	for {
		typ := i.Advance()
		switch typ {
		case TypeNone:
			return dst, nil
		case TypeNull:
			dst = append(dst, 0)
			continue
		}
		v, err := i.Uint()
		if err != nil {
			return nil, newErrorf(CodeIncorrectType, "array element: %v", err)
		}
		dst = append(dst, v)
	}
}

// AsString returns all elements as string.
// All elements must be strings. Null values are returned as "".
func (a *Array) AsString() ([]string, error) {
	i := a.Iter()
	dst := make([]string, 0)
	for {
		typ := i.Advance()
		switch typ {
		case TypeNone:
			return dst, nil
		case TypeNull:
			dst = append(dst, "")
			continue
		}
		v, err := i.String()
		if err != nil {
			return nil, newErrorf(CodeIncorrectType, "array element: %v", err)
		}
		dst = append(dst, v)
	}
}

// AsStringCvt returns all elements converted to string via StringCvt.
func (a *Array) AsStringCvt() ([]string, error) {
	i := a.Iter()
	dst := make([]string, 0)
	for {
		typ := i.Advance()
		if typ == TypeNone {
			return dst, nil
		}
		v, err := i.StringCvt()
		if err != nil {
			return nil, newErrorf(CodeIncorrectType, "array element: %v", err)
		}
		dst = append(dst, v)
	}
}
