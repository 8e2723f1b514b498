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
	"strings"
	"testing"
)

func mustParse(t *testing.T, json string) *ParsedJson {
	t.Helper()
	pj, err := Parse([]byte(json), nil)
	if err != nil {
		t.Fatalf("Parse(%q): %v", json, err)
	}
	return pj
}

// rootElem unwraps the single root element of a parsed document.
func rootElem(t *testing.T, pj *ParsedJson) interface{} {
	t.Helper()
	i := pj.Iter()
	if typ := i.Advance(); typ != TypeRoot {
		t.Fatalf("expected root element, got %v", typ)
	}
	_, root, err := i.Root(nil)
	if err != nil {
		t.Fatal(err)
	}
	elem, err := root.Interface()
	if err != nil {
		t.Fatal(err)
	}
	return elem
}

func TestParseScalarsAndContainers(t *testing.T) {
	cases := []struct {
		name string
		json string
		want interface{}
	}{
		{"null", `null`, nil},
		{"true", `true`, true},
		{"false", `false`, false},
		{"int", `1234`, int64(1234)},
		{"negative-int", `-1234`, int64(-1234)},
		{"uint-overflow-int64", `18446744073709551615`, uint64(18446744073709551615)},
		{"float", `1.5`, float64(1.5)},
		{"exponent", `-2.5e10`, float64(-2.5e10)},
		{"string", `"hello"`, "hello"},
		{"escaped-string", `"a\nb\tc\"d"`, "a\nb\tc\"d"},
		{"unicode-escape", `"\u2603"`, "☃"},
		{"surrogate-pair", `"\ud83d\ude00"`, "😀"},
		{"empty-object", `{}`, map[string]interface{}{}},
		{"empty-array", `[]`, []interface{}{}},
		{
			"nested",
			`{"a": [1, 2, 3], "b": {"c": null}}`,
			map[string]interface{}{
				"a": []interface{}{int64(1), int64(2), int64(3)},
				"b": map[string]interface{}{"c": nil},
			},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			pj := mustParse(t, tt.json)
			got := rootElem(t, pj)
			if !deepEqualJSON(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func deepEqualJSON(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !deepEqualJSON(v, bv[k]) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqualJSON(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// TestParseStripsLeadingBOM checks that a leading UTF-8 byte-order mark is
// skipped and the document after it parses normally.
func TestParseStripsLeadingBOM(t *testing.T) {
	b := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"a":1}`)...)
	pj, err := Parse(b, nil)
	if err != nil {
		t.Fatalf("Parse with BOM: %v", err)
	}
	got := rootElem(t, pj)
	want := map[string]interface{}{"a": int64(1)}
	m := got.(map[string]interface{})
	if len(m) != len(want) || m["a"] != want["a"] {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

// TestParseBlockBoundaries exercises stage 1's 64-byte block carry logic
// right around each boundary: 63, 64, 65, 127, 128 and 129 byte strings.
func TestParseBlockBoundaries(t *testing.T) {
	for _, n := range []int{63, 64, 65, 127, 128, 129} {
		n := n
		t.Run(string(rune('0'+n%10)), func(t *testing.T) {
			s := strings.Repeat("a", n)
			json := `"` + s + `"`
			pj := mustParse(t, json)
			got := rootElem(t, pj)
			if got != s {
				t.Fatalf("length %d: got %d bytes back, want %d", n, len(got.(string)), n)
			}
		})
	}
}

// TestParseBlockBoundaryEscapes places a backslash escape right at a
// 64-byte block boundary to exercise findEscaped's carry.
func TestParseBlockBoundaryEscapes(t *testing.T) {
	for _, pad := range []int{61, 62, 63, 64, 65} {
		pad := pad
		t.Run("", func(t *testing.T) {
			s := strings.Repeat("a", pad) + `\n` + "b"
			json := `"` + s + `"`
			pj, err := Parse([]byte(json), nil)
			if err != nil {
				t.Fatalf("pad=%d: %v", pad, err)
			}
			got := rootElem(t, pj)
			want := strings.Repeat("a", pad) + "\nb"
			if got != want {
				t.Fatalf("pad=%d: got %q, want %q", pad, got, want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		json string
		code Code
	}{
		{"empty", ``, CodeEmpty},
		{"whitespace-only", "   \t\n ", CodeEmpty},
		{"trailing-content", `1 2`, CodeTapeError},
		{"unclosed-object", `{"a":1`, CodeTapeError},
		{"unclosed-string", `"abc`, CodeUnclosedString},
		{"bad-true-atom", `tru`, CodeTAtomError},
		{"bad-false-atom", `fal`, CodeFAtomError},
		{"bad-null-atom", `nul`, CodeNAtomError},
		{"unescaped-control", "\"a\tb\"", CodeUnescapedChars},
		{"float-overflow", `1e400`, CodeNumberError},
		{"number-trailing-garbage-array", `[1a]`, CodeNumberError},
		{"number-trailing-garbage-object", `{"k":1x}`, CodeNumberError},
		{"number-trailing-nul", "123\x00", CodeNumberError},
		{"atom-trailing-nul", "null\x00", CodeNAtomError},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json), nil)
			if err == nil {
				t.Fatalf("expected error for %q", tt.json)
			}
			code, ok := AsCode(err)
			if !ok || code != tt.code {
				t.Fatalf("got code %v (ok=%v), want %v", code, ok, tt.code)
			}
		})
	}
}

func TestParseMaxDepth(t *testing.T) {
	deep := strings.Repeat("[", 5) + strings.Repeat("]", 5)
	if _, err := Parse([]byte(deep), nil, WithMaxDepth(3)); err == nil {
		t.Fatal("expected depth error")
	} else if code, _ := AsCode(err); code != CodeDepthError {
		t.Fatalf("got code %v, want CodeDepthError", code)
	}

	if _, err := Parse([]byte(deep), nil, WithMaxDepth(10)); err != nil {
		t.Fatalf("unexpected error with sufficient depth: %v", err)
	}
}

func TestParseCopyStrings(t *testing.T) {
	// With copying disabled, a clean (no-escape) string should reference
	// Message directly rather than Strings.
	pj, err := Parse([]byte(`"hello"`), nil, WithCopyStrings(false))
	if err != nil {
		t.Fatal(err)
	}
	if len(pj.Strings) != 0 {
		t.Fatalf("expected no bytes copied into Strings, got %d", len(pj.Strings))
	}
	got := rootElem(t, pj)
	if got != "hello" {
		t.Fatalf("got %q", got)
	}

	// An escaped string still has to be copied even with copying "disabled",
	// since Message can't represent the unescaped form in place.
	pj2, err := Parse([]byte(`"a\nb"`), nil, WithCopyStrings(false))
	if err != nil {
		t.Fatal(err)
	}
	got2 := rootElem(t, pj2)
	if got2 != "a\nb" {
		t.Fatalf("got %q", got2)
	}
}

func TestParseOptionValidation(t *testing.T) {
	if _, err := Parse([]byte(`1`), nil, WithMaxDepth(0)); err == nil {
		t.Fatal("expected error for non-positive max depth")
	}
	if _, err := Parse([]byte(`1`), nil, WithCapacity(-1)); err == nil {
		t.Fatal("expected error for negative capacity")
	}
}

func TestParseReuse(t *testing.T) {
	pj, err := Parse([]byte(`{"a":1}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	pj2, err := Parse([]byte(`{"b":2}`), pj)
	if err != nil {
		t.Fatal(err)
	}
	got := rootElem(t, pj2)
	want := map[string]interface{}{"b": int64(2)}
	if !deepEqualJSON(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestParseND(t *testing.T) {
	pj, err := ParseND([]byte("{\"a\":1}\n{\"a\":2}\n[1,2,3]\n"), nil)
	if err != nil {
		t.Fatal(err)
	}
	it := pj.Iter()
	got, err := it.Interface()
	if err != nil {
		t.Fatal(err)
	}
	want := []interface{}{
		map[string]interface{}{"a": int64(1)},
		map[string]interface{}{"a": int64(2)},
		[]interface{}{int64(1), int64(2), int64(3)},
	}
	if !deepEqualJSON(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestParseNumberEdgeCases(t *testing.T) {
	cases := []struct {
		json string
		want interface{}
	}{
		{"0", int64(0)},
		{"-0", int64(0)},
		{"9223372036854775807", int64(9223372036854775807)},
		{"-9223372036854775808", int64(-9223372036854775808)},
		{"9223372036854775808", uint64(9223372036854775808)},
		{"18446744073709551615", uint64(18446744073709551615)},
		{"18446744073709551616", float64(18446744073709551616)},
		{"1e308", 1e308},
		{"1.0", float64(1.0)},
		{"0.1", float64(0.1)},
		{"2.2250738585072014e-308", 2.2250738585072014e-308},
		{"1.7976931348623157e308", 1.7976931348623157e308},
		{"1e-400", float64(0)},
	}
	for _, tt := range cases {
		t.Run(tt.json, func(t *testing.T) {
			pj := mustParse(t, tt.json)
			got := rootElem(t, pj)
			if got != tt.want {
				t.Fatalf("got %#v (%T), want %#v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}
