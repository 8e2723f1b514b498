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
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

// tapeTags walks the tape and returns one Tag per entry, skipping the
// raw value/length word that follows numbers and strings.
func tapeTags(pj *ParsedJson) []Tag {
	var tags []Tag
	for off := 0; off < len(pj.Tape); off++ {
		tag := Tag(pj.Tape[off] >> JSONTAGOFFSET)
		tags = append(tags, tag)
		switch tag {
		case TagInteger, TagUint, TagFloat, TagString:
			off++
		}
	}
	return tags
}

func TestTapeLayoutArray(t *testing.T) {
	pj := mustParse(t, `[1,2,3]`)

	want := []Tag{TagRoot, TagArrayStart, TagInteger, TagInteger, TagInteger, TagArrayEnd, TagRoot}
	got := tapeTags(pj)
	if len(got) != len(want) {
		t.Fatalf("got tags %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tag %d: got %v, want %v", i, got[i], want[i])
		}
	}

	// The array start at tape index 1 must point one past its end tag,
	// and the end tag back at the start.
	openPayload := pj.Tape[1] & JSONVALUEMASK
	closeIdx := openPayload - 1
	if Tag(pj.Tape[closeIdx]>>JSONTAGOFFSET) != TagArrayEnd {
		t.Fatalf("array start does not point at the end tag")
	}
	if pj.Tape[closeIdx]&JSONVALUEMASK != 1 {
		t.Fatalf("array end does not point back at the start")
	}

	// Raw values follow the integer tags in document order.
	for i, wantVal := range []uint64{1, 2, 3} {
		off := 2 + i*2
		if Tag(pj.Tape[off]>>JSONTAGOFFSET) != TagInteger {
			t.Fatalf("expected integer tag at %d", off)
		}
		if pj.Tape[off+1] != wantVal {
			t.Fatalf("raw value at %d: got %d, want %d", off+1, pj.Tape[off+1], wantVal)
		}
	}
}

func TestTapeLayoutObject(t *testing.T) {
	pj := mustParse(t, `{"a":1,"b":[true,null]}`)

	want := []Tag{
		TagRoot, TagObjectStart,
		TagString, TagInteger,
		TagString, TagArrayStart, TagBoolTrue, TagNull, TagArrayEnd,
		TagObjectEnd, TagRoot,
	}
	got := tapeTags(pj)
	if len(got) != len(want) {
		t.Fatalf("got tags %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tag %d: got %v, want %v", i, got[i], want[i])
		}
	}

	// The first string entry must decode to "a".
	off := 2 // root, object start, then first key
	if Tag(pj.Tape[off]>>JSONTAGOFFSET) != TagString {
		t.Fatalf("expected string tag at %d", off)
	}
	name, err := pj.stringByteAt(pj.Tape[off]&JSONVALUEMASK, pj.Tape[off+1])
	if err != nil {
		t.Fatal(err)
	}
	if string(name) != "a" {
		t.Fatalf("first key: got %q, want \"a\"", name)
	}
}

// TestTapeScopesMatched checks the matched-pair invariant over a mix of
// documents: every container start points one past a matching end whose
// payload points back at the start.
func TestTapeScopesMatched(t *testing.T) {
	docs := []string{
		`{}`,
		`[]`,
		`[[[[]]]]`,
		`{"a":{"b":{"c":[1,[2,[3]]]}}}`,
		`[{"x":[]},{"y":{}},[],[[{"z":null}]]]`,
	}
	for _, doc := range docs {
		pj := mustParse(t, doc)
		for off := 0; off < len(pj.Tape); off++ {
			tag := Tag(pj.Tape[off] >> JSONTAGOFFSET)
			switch tag {
			case TagObjectStart, TagArrayStart:
				onePastClose := pj.Tape[off] & JSONVALUEMASK
				closeIdx := int(onePastClose) - 1
				if closeIdx <= off || closeIdx >= len(pj.Tape) {
					t.Fatalf("%s: scope at %d points outside the tape (%d)", doc, off, closeIdx)
				}
				closeTag := Tag(pj.Tape[closeIdx] >> JSONTAGOFFSET)
				if closeTag != tagOpenToClose[tag] {
					t.Fatalf("%s: scope at %d closed by %v", doc, off, closeTag)
				}
				if back := pj.Tape[closeIdx] & JSONVALUEMASK; back != uint64(off) {
					t.Fatalf("%s: close at %d points back at %d, want %d", doc, closeIdx, back, off)
				}
			case TagInteger, TagUint, TagFloat, TagString:
				off++
			}
		}
	}
}

func TestTapeRootFloat(t *testing.T) {
	pj := mustParse(t, `-2402844368454405395.2`)
	got := tapeTags(pj)
	want := []Tag{TagRoot, TagFloat, TagRoot}
	if len(got) != len(want) {
		t.Fatalf("got tags %v, want %v", got, want)
	}
	raw := pj.Tape[2]
	if bits := math.Float64bits(-0x1.0ac4f1c7422e7p+61); raw != bits {
		t.Fatalf("raw float word: got %x, want %x", raw, bits)
	}
}

func TestTapeDeepNesting(t *testing.T) {
	// Default limit allows 1024 nested scopes; one more must fail.
	ok := strings.Repeat("[", 1024) + strings.Repeat("]", 1024)
	if _, err := Parse([]byte(ok), nil); err != nil {
		t.Fatalf("depth 1024: %v", err)
	}

	tooDeep := strings.Repeat("[", 1025) + strings.Repeat("]", 1025)
	_, err := Parse([]byte(tooDeep), nil)
	if err == nil {
		t.Fatal("depth 1025: expected error")
	}
	if code, _ := AsCode(err); code != CodeDepthError {
		t.Fatalf("depth 1025: got code %v, want CodeDepthError", code)
	}
}

func TestIterAdvance(t *testing.T) {
	pj := mustParse(t, `[1,"two",3.5,true,null]`)
	i := pj.Iter()
	if i.Advance() != TypeRoot {
		t.Fatal("expected root")
	}
	_, root, err := i.Root(nil)
	if err != nil {
		t.Fatal(err)
	}
	arr, err := root.Array(nil)
	if err != nil {
		t.Fatal(err)
	}
	it := arr.Iter()

	if it.Advance() != TypeInt {
		t.Fatal("expected int")
	}
	if v, _ := it.Int(); v != 1 {
		t.Fatalf("got %d", v)
	}
	if it.Advance() != TypeString {
		t.Fatal("expected string")
	}
	if s, _ := it.String(); s != "two" {
		t.Fatalf("got %q", s)
	}
	if it.Advance() != TypeFloat {
		t.Fatal("expected float")
	}
	if f, _ := it.Float(); f != 3.5 {
		t.Fatalf("got %v", f)
	}
	if it.Advance() != TypeBool {
		t.Fatal("expected bool")
	}
	if b, _ := it.Bool(); !b {
		t.Fatal("expected true")
	}
	if it.Advance() != TypeNull {
		t.Fatal("expected null")
	}
	if it.Advance() != TypeNone {
		t.Fatal("expected end of array")
	}
}

func TestIterStringCvt(t *testing.T) {
	pj := mustParse(t, `[1,-2,18446744073709551615,3.25,"x",true,false,null]`)
	i := pj.Iter()
	if i.Advance() != TypeRoot {
		t.Fatal("expected root")
	}
	_, root, err := i.Root(nil)
	if err != nil {
		t.Fatal(err)
	}
	arr, err := root.Array(nil)
	if err != nil {
		t.Fatal(err)
	}
	it := arr.Iter()
	want := []string{"1", "-2", "18446744073709551615", "3.25", "x", "true", "false", "null"}
	for n, w := range want {
		if it.Advance() == TypeNone {
			t.Fatalf("iterator ended early at %d", n)
		}
		got, err := it.StringCvt()
		if err != nil {
			t.Fatalf("element %d: %v", n, err)
		}
		if got != w {
			t.Fatalf("element %d: got %q, want %q", n, got, w)
		}
	}
}

// TestLoadTape round-trips a tape through its raw uncompressed form.
func TestLoadTape(t *testing.T) {
	pj := mustParse(t, `{"k":"v","n":[1,2.5,null]}`)
	it := pj.Iter()
	want, err := it.Interface()
	if err != nil {
		t.Fatal(err)
	}

	var tap bytes.Buffer
	for _, w := range pj.Tape {
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], w)
		tap.Write(tmp[:])
	}

	got, err := loadTape(&tap, bytes.NewReader(pj.Strings))
	if err != nil {
		t.Fatal(err)
	}
	gotIt := got.Iter()
	gotVal, err := gotIt.Interface()
	if err != nil {
		t.Fatal(err)
	}
	if !deepEqualJSON(want, gotVal) {
		t.Fatalf("want %#v, got %#v", want, gotVal)
	}
}
