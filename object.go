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

// Object represents a JSON object.
type Object struct {
	// tape is the complete tape this object is scoped to.
	tape ParsedJson

	// off is the offset of the next entry to be decoded.
	off int
}

// Map unmarshals the object into a map[string]interface{}.
// See Iter.Interface for a reference on returned value types.
func (o *Object) Map(dst map[string]interface{}) (map[string]interface{}, error) {
	if dst == nil {
		dst = make(map[string]interface{})
	}
	var tmp Iter
	for {
		name, t, err := o.NextElement(&tmp)
		if err != nil {
			return nil, err
		}
		if t == TypeNone {
			break
		}
		dst[name], err = tmp.Interface()
		if err != nil {
			return nil, newErrorf(CodeTapeError, "parsing element %q: %v", name, err)
		}
	}
	return dst, nil
}

// Parse returns all elements and their iterators in original order.
// An optional destination can be given. The Object will be consumed.
func (o *Object) Parse(dst *Elements) (*Elements, error) {
	if dst == nil {
		dst = &Elements{
			Elements: make([]Element, 0, 5),
			Index:    make(map[string]int, 5),
		}
	} else {
		dst.Elements = dst.Elements[:0]
		for k := range dst.Index {
			delete(dst.Index, k)
		}
	}
	var tmp Iter
	for {
		name, t, err := o.NextElement(&tmp)
		if err != nil {
			return dst, err
		}
		if t == TypeNone {
			break
		}
		dst.Index[name] = len(dst.Elements)
		dst.Elements = append(dst.Elements, Element{
			Name: name,
			Type: t,
			Iter: tmp,
		})
	}
	return dst, nil
}

// FindKey returns a single named element. An optional destination can be
// given. Returns nil if the key cannot be found. The object is not
// advanced, so this can be called repeatedly for different keys.
func (o *Object) FindKey(key string, dst *Element) *Element {
	tmp := o.tape.Iter()
	tmp.off = o.off
	for {
		typ := tmp.Advance()
		if typ != TypeString || tmp.off+1 >= len(tmp.tape.Tape) {
			return nil
		}
		offset := tmp.cur
		length := tmp.tape.Tape[tmp.off]
		if int(length) != len(key) {
			if t := tmp.Advance(); t == TypeNone {
				return nil
			}
			continue
		}
		name, err := tmp.tape.stringByteAt(offset, length)
		if err != nil {
			return nil
		}
		if string(name) != key {
			tmp.Advance()
			continue
		}
		if dst == nil {
			dst = &Element{}
		}
		dst.Name = key
		dst.Type, err = tmp.AdvanceIter(&dst.Iter)
		if err != nil {
			return nil
		}
		return dst
	}
}

// ForEach calls fn for each key in the object.
// An optional key filter can be provided.
func (o *Object) ForEach(fn func(key []byte, i Iter), onlyKeys map[string]struct{}) error {
	tmp := o.tape.Iter()
	tmp.off = o.off
	n := 0
	for {
		typ := tmp.Advance()
		if typ != TypeString || tmp.off+1 >= len(tmp.tape.Tape) {
			if typ == TypeNone {
				return nil
			}
			return newErrorf(CodeTapeError, "object: unexpected name tag %v", tmp.t)
		}
		offset := tmp.cur
		length := tmp.tape.Tape[tmp.off]
		name, err := tmp.tape.stringByteAt(offset, length)
		if err != nil {
			return newErrorf(CodeTapeError, "getting object name: %v", err)
		}

		if len(onlyKeys) > 0 {
			if _, ok := onlyKeys[string(name)]; !ok {
				if t := tmp.Advance(); t == TypeNone {
					return nil
				}
				continue
			}
		}

		t := tmp.Advance()
		if t == TypeNone {
			return nil
		}
		fn(name, tmp)
		n++
		if n == len(onlyKeys) {
			return nil
		}
	}
}

// DeleteElems calls fn for each key. If fn returns true the key+value are
// tombstoned in place (overwritten with TagNop skip markers) rather than
// physically removed, so the tape stays contiguous. If fn is nil, all
// elements in onlyKeys are deleted; if both are nil, every element is
// deleted.
func (o *Object) DeleteElems(fn func(key []byte, i Iter) bool, onlyKeys map[string]struct{}) error {
	tmp := o.tape.Iter()
	tmp.off = o.off
	n := 0
	for {
		typ := tmp.Advance()
		if typ != TypeString || tmp.off+1 >= len(tmp.tape.Tape) {
			if typ == TypeNone {
				return nil
			}
			return newErrorf(CodeTapeError, "object: unexpected name tag %v", tmp.t)
		}
		startO := tmp.off - 1
		offset := tmp.cur
		length := tmp.tape.Tape[tmp.off]
		name, err := tmp.tape.stringByteAt(offset, length)
		if err != nil {
			return newErrorf(CodeTapeError, "getting object name: %v", err)
		}

		if len(onlyKeys) > 0 {
			if _, ok := onlyKeys[string(name)]; !ok {
				if t := tmp.Advance(); t == TypeNone {
					return nil
				}
				continue
			}
		}

		t := tmp.Advance()
		if t == TypeNone {
			return nil
		}
		if fn == nil || fn(name, tmp) {
			end := tmp.off + tmp.addNext
			skip := uint64(end - startO)
			for i := startO; i < end; i++ {
				tmp.tape.Tape[i] = (uint64(TagNop) << JSONTAGOFFSET) | skip
				skip--
			}
		}
		n++
		if n == len(onlyKeys) {
			return nil
		}
	}
}

// ErrPathNotFound is returned by FindPath when a segment of the path
// cannot be resolved.
var ErrPathNotFound = newError(CodeNoSuchField)

// FindPath searches for fields and objects by path, one name per argument.
// For example FindPath(dst, "Image", "Url") looks for an "Image" object
// in the current object and returns the value of its "Url" element.
// ErrPathNotFound is returned if any segment cannot be found.
// The object is not advanced.
func (o *Object) FindPath(dst *Element, path ...string) (*Element, error) {
	if len(path) == 0 {
		return dst, ErrPathNotFound
	}
	tmp := o.tape.Iter()
	tmp.off = o.off
	key := path[0]
	path = path[1:]
	for {
		typ := tmp.Advance()
		if typ != TypeString || tmp.off+1 >= len(tmp.tape.Tape) {
			return dst, ErrPathNotFound
		}
		offset := tmp.cur
		length := tmp.tape.Tape[tmp.off]
		if int(length) != len(key) {
			if t := tmp.Advance(); t == TypeNone {
				return dst, ErrPathNotFound
			}
			continue
		}
		name, err := tmp.tape.stringByteAt(offset, length)
		if err != nil {
			return dst, err
		}
		if string(name) != key {
			tmp.Advance()
			continue
		}
		if len(path) == 0 {
			if dst == nil {
				dst = &Element{}
			}
			dst.Name = key
			dst.Type, err = tmp.AdvanceIter(&dst.Iter)
			if err != nil {
				return dst, err
			}
			return dst, nil
		}

		t, err := tmp.AdvanceIter(&tmp)
		if err != nil {
			return dst, err
		}
		if t != TypeObject {
			return dst, newErrorf(CodeIncorrectType, "value of key %v is not an object", key)
		}
		key = path[0]
		path = path[1:]
	}
}

// NextElement sets dst to the next element and returns its name.
// TypeNone with a nil error means there are no more elements.
func (o *Object) NextElement(dst *Iter) (name string, t Type, err error) {
	n, t, err := o.NextElementBytes(dst)
	return string(n), t, err
}

// NextElementBytes sets dst to the next element and returns its name.
// Unlike NextElement this does not allocate a string.
func (o *Object) NextElementBytes(dst *Iter) (name []byte, t Type, err error) {
	if o.off >= len(o.tape.Tape) {
		return nil, TypeNone, nil
	}
	v := o.tape.Tape[o.off]
	switch Tag(v >> JSONTAGOFFSET) {
	case TagString:
		if o.off+2 >= len(o.tape.Tape) {
			return nil, TypeNone, newErrorf(CodeTapeError, "parsing object element name: unexpected end of tape")
		}
		length := o.tape.Tape[o.off+1]
		offset := v & JSONVALUEMASK
		name, err = o.tape.stringByteAt(offset, length)
		if err != nil {
			return nil, TypeNone, newErrorf(CodeTapeError, "parsing object element name: %v", err)
		}
		o.off += 2
	case TagObjectEnd:
		return nil, TypeNone, nil
	case TagNop:
		o.off += int(v & JSONVALUEMASK)
		return o.NextElementBytes(dst)
	default:
		return nil, TypeNone, newErrorf(CodeTapeError, "object: unexpected tag %c", byte(v>>JSONTAGOFFSET))
	}

	v = o.tape.Tape[o.off]
	o.off++

	dst.cur = v & JSONVALUEMASK
	dst.t = Tag(v >> JSONTAGOFFSET)
	dst.off = o.off
	dst.tape = o.tape
	dst.calcNext(false)
	elemSize := dst.addNext
	dst.calcNext(true)
	if dst.off+elemSize > len(dst.tape.Tape) {
		return nil, TypeNone, newError(CodeTapeError)
	}
	dst.tape.Tape = dst.tape.Tape[:dst.off+elemSize]

	o.off += elemSize
	return name, TagToType[dst.t], nil
}

// Element represents a single named entry in an object.
type Element struct {
	// Name of the element.
	Name string
	// Type of the element.
	Type Type
	// Iter scoped to the element's value.
	Iter Iter
}

// Elements contains every element of an object, kept in original order,
// plus a name-to-index lookup.
type Elements struct {
	Elements []Element
	Index    map[string]int
}

// Lookup finds a key in elements and returns its Element.
// Returns nil if the key doesn't exist. Keys are case sensitive.
func (e Elements) Lookup(key string) *Element {
	idx, ok := e.Index[key]
	if !ok {
		return nil
	}
	return &e.Elements[idx]
}
