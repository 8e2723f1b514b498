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
	"testing"
)

func testObject(t *testing.T, json string) *Object {
	t.Helper()
	pj := mustParse(t, json)
	i := pj.Iter()
	if i.Advance() != TypeRoot {
		t.Fatal("expected root")
	}
	_, root, err := i.Root(nil)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := root.Object(nil)
	if err != nil {
		t.Fatal(err)
	}
	return obj
}

func TestObjectFindKey(t *testing.T) {
	obj := testObject(t, `{"alpha":1,"beta":"two","gamma":[1,2],"delta":null}`)

	elem := obj.FindKey("beta", nil)
	if elem == nil {
		t.Fatal("beta not found")
	}
	if elem.Type != TypeString {
		t.Fatalf("beta: got type %v", elem.Type)
	}
	if s, _ := elem.Iter.String(); s != "two" {
		t.Fatalf("beta: got %q", s)
	}

	// FindKey does not consume the object, so a second lookup works.
	elem = obj.FindKey("alpha", elem)
	if elem == nil {
		t.Fatal("alpha not found")
	}
	if v, _ := elem.Iter.Int(); v != 1 {
		t.Fatalf("alpha: got %d", v)
	}

	if obj.FindKey("epsilon", nil) != nil {
		t.Fatal("epsilon should not be found")
	}
}

func TestObjectFindPath(t *testing.T) {
	obj := testObject(t, `{"Image":{"Width":800,"Thumbnail":{"Url":"http://x/y.jpg"}}}`)

	elem, err := obj.FindPath(nil, "Image", "Thumbnail", "Url")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := elem.Iter.String(); s != "http://x/y.jpg" {
		t.Fatalf("got %q", s)
	}

	if _, err := obj.FindPath(nil, "Image", "Missing"); err == nil {
		t.Fatal("expected error for missing path")
	}

	_, err = obj.FindPath(nil, "Image", "Width", "Deeper")
	if err == nil {
		t.Fatal("expected error when traversing through a non-object")
	}
}

func TestObjectParseAndLookup(t *testing.T) {
	obj := testObject(t, `{"a":1,"b":2,"c":3}`)
	elems, err := obj.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(elems.Elements) != 3 {
		t.Fatalf("got %d elements", len(elems.Elements))
	}
	for i, name := range []string{"a", "b", "c"} {
		if elems.Elements[i].Name != name {
			t.Fatalf("element %d: got %q, want %q", i, elems.Elements[i].Name, name)
		}
	}
	b := elems.Lookup("b")
	if b == nil {
		t.Fatal("b not found")
	}
	if v, _ := b.Iter.Int(); v != 2 {
		t.Fatalf("b: got %d", v)
	}
	if elems.Lookup("nope") != nil {
		t.Fatal("nope should not resolve")
	}
}

func TestObjectForEachFiltered(t *testing.T) {
	obj := testObject(t, `{"a":1,"b":2,"c":3}`)

	type kv struct {
		key string
		val int64
	}
	var seen []kv
	err := obj.ForEach(func(key []byte, i Iter) {
		v, err := i.Int()
		if err != nil {
			t.Fatalf("%s: %v", key, err)
		}
		seen = append(seen, kv{string(key), v})
	}, map[string]struct{}{"c": {}})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0].key != "c" || seen[0].val != 3 {
		t.Fatalf("got %v, want [{c 3}]", seen)
	}
}

func TestObjectForEachAll(t *testing.T) {
	obj := testObject(t, `{"a":1,"b":{"x":true},"c":3}`)
	var keys []string
	err := obj.ForEach(func(key []byte, i Iter) {
		keys = append(keys, string(key))
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("got %v", keys)
	}
}

func TestObjectDeleteElems(t *testing.T) {
	obj := testObject(t, `{"a":1,"b":2,"c":3}`)
	err := obj.DeleteElems(nil, map[string]struct{}{"b": {}})
	if err != nil {
		t.Fatal(err)
	}

	// DeleteElems tombstones entries in the shared tape and leaves the view
	// where it was; read the object back through a fresh view of the tape.
	got, err := testObjectMapAfterDelete(obj)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["a"] != int64(1) || got["c"] != int64(3) {
		t.Fatalf("got %v", got)
	}
	if _, ok := got["b"]; ok {
		t.Fatal("b should have been deleted")
	}
}

func testObjectMapAfterDelete(o *Object) (map[string]interface{}, error) {
	fresh := &Object{tape: o.tape, off: 2} // skip root and object start
	return fresh.Map(nil)
}

func TestArrayAs(t *testing.T) {
	pj := mustParse(t, `[1,2,null,4]`)
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

	ints, err := arr.AsInteger()
	if err != nil {
		t.Fatal(err)
	}
	if len(ints) != 4 || ints[0] != 1 || ints[2] != 0 || ints[3] != 4 {
		t.Fatalf("got %v", ints)
	}

	floats, err := arr.AsFloat()
	if err != nil {
		t.Fatal(err)
	}
	if len(floats) != 4 || floats[1] != 2 {
		t.Fatalf("got %v", floats)
	}

	cvt, err := arr.AsStringCvt()
	if err != nil {
		t.Fatal(err)
	}
	if len(cvt) != 4 || cvt[0] != "1" || cvt[2] != "null" {
		t.Fatalf("got %v", cvt)
	}
}

func TestArrayAsString(t *testing.T) {
	pj := mustParse(t, `["x","y",null]`)
	i := pj.Iter()
	i.Advance()
	_, root, err := i.Root(nil)
	if err != nil {
		t.Fatal(err)
	}
	arr, err := root.Array(nil)
	if err != nil {
		t.Fatal(err)
	}
	ss, err := arr.AsString()
	if err != nil {
		t.Fatal(err)
	}
	if len(ss) != 3 || ss[0] != "x" || ss[1] != "y" || ss[2] != "" {
		t.Fatalf("got %v", ss)
	}
}
