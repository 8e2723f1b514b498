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

// digitToVal maps an ASCII hex digit to its value, or 0xff if the byte is
// not a hex digit. Mirrors jsoncharutils.h's digittoval table.
var digitToVal = buildDigitToVal()

func buildDigitToVal() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 0xff
	}
	for c := byte('0'); c <= '9'; c++ {
		t[c] = c - '0'
	}
	for c := byte('a'); c <= 'f'; c++ {
		t[c] = c - 'a' + 10
	}
	for c := byte('A'); c <= 'F'; c++ {
		t[c] = c - 'A' + 10
	}
	return t
}

// hexToU32 packs 4 consecutive hex digits into a uint32, returning
// 0xffffffff if any of the 4 bytes is not a valid hex digit. Valid hex
// values never exceed 0xf, so any set bit in the high nibbles marks an
// invalid digit.
func hexToU32(src []byte) uint32 {
	v0 := uint32(digitToVal[src[0]])
	v1 := uint32(digitToVal[src[1]])
	v2 := uint32(digitToVal[src[2]])
	v3 := uint32(digitToVal[src[3]])
	if (v0|v1|v2|v3)&0xf0 != 0 {
		return 0xffffffff
	}
	return v0<<12 | v1<<8 | v2<<4 | v3
}

// codepointToUTF8 appends the UTF-8 encoding of cp to dst.
func codepointToUTF8(cp uint32, dst []byte) []byte {
	switch {
	case cp <= 0x7F:
		return append(dst, byte(cp))
	case cp <= 0x7FF:
		return append(dst, byte((cp>>6)+192), byte((cp&63)+128))
	case cp <= 0xFFFF:
		return append(dst, byte((cp>>12)+224), byte(((cp>>6)&63)+128), byte((cp&63)+128))
	default:
		return append(dst, byte((cp>>18)+240), byte(((cp>>12)&63)+128), byte(((cp>>6)&63)+128), byte((cp&63)+128))
	}
}

// parseStringInto unescapes the JSON string whose content starts at
// buf[start] (just past the opening quote) and appends the decoded bytes
// to dst. It returns the updated dst slice and the index of the closing
// quote in buf (so the caller can resume scanning right after it).
func parseStringInto(buf []byte, start int, dst []byte) ([]byte, int, error) {
	i := start
	for {
		if i >= len(buf) {
			return dst, 0, newError(CodeUnclosedString)
		}
		c := buf[i]
		switch {
		case c == '"':
			return dst, i, nil
		case c == '\\':
			if i+1 >= len(buf) {
				return dst, 0, newError(CodeUnclosedString)
			}
			esc := buf[i+1]
			switch esc {
			case '"', '\\', '/':
				dst = append(dst, esc)
				i += 2
			case 'b':
				dst = append(dst, '\b')
				i += 2
			case 'f':
				dst = append(dst, '\f')
				i += 2
			case 'n':
				dst = append(dst, '\n')
				i += 2
			case 'r':
				dst = append(dst, '\r')
				i += 2
			case 't':
				dst = append(dst, '\t')
				i += 2
			case 'u':
				if i+6 > len(buf) {
					return dst, 0, newError(CodeStringError)
				}
				cp := hexToU32(buf[i+2 : i+6])
				if cp&0xff000000 != 0 {
					return dst, 0, newErrorf(CodeStringError, "invalid hex digit in \\u escape at offset %d", i)
				}
				i += 6
				if cp >= 0xd800 && cp < 0xdc00 {
					// high surrogate: must be followed by a low surrogate
					if i+6 > len(buf) || buf[i] != '\\' || buf[i+1] != 'u' {
						return dst, 0, newErrorf(CodeStringError, "unpaired UTF-16 surrogate at offset %d", i)
					}
					low := hexToU32(buf[i+2 : i+6])
					if low&0xff000000 != 0 || low < 0xdc00 || low >= 0xe000 {
						return dst, 0, newErrorf(CodeStringError, "invalid low surrogate at offset %d", i)
					}
					i += 6
					cp = 0x10000 + (cp-0xd800)<<10 + (low - 0xdc00)
				} else if cp >= 0xdc00 && cp < 0xe000 {
					return dst, 0, newErrorf(CodeStringError, "unpaired low surrogate at offset %d", i)
				}
				dst = codepointToUTF8(cp, dst)
			default:
				return dst, 0, newErrorf(CodeStringError, "invalid escape character '%c' at offset %d", esc, i+1)
			}
		case c < 0x20:
			return dst, 0, newErrorf(CodeUnescapedChars, "unescaped control character 0x%02x at offset %d", c, i)
		default:
			dst = append(dst, c)
			i++
		}
	}
}

// scanCleanString looks for the closing quote of the string starting at
// buf[start], without unescaping. It reports clean=true and the index of
// the closing quote if the string contains no backslash escapes (so it
// can be referenced directly from Message); clean=false as soon as a
// backslash is seen, leaving the real scan to parseStringInto.
func scanCleanString(buf []byte, start int) (end int, clean bool, err error) {
	i := start
	for {
		if i >= len(buf) {
			return 0, false, newError(CodeUnclosedString)
		}
		switch c := buf[i]; {
		case c == '"':
			return i, true, nil
		case c == '\\':
			return 0, false, nil
		case c < 0x20:
			return 0, false, newErrorf(CodeUnescapedChars, "unescaped control character 0x%02x at offset %d", c, i)
		default:
			i++
		}
	}
}

// parseString decodes the JSON string whose opening quote is buf[off] and
// appends its tape entry: one word holding TagString and the payload
// (STRINGBUFBIT set when the bytes live in pj.Strings, clear when they
// reference pj.Message directly), followed by a plain word holding the
// byte length. It mirrors parse_string in stage2_build_tape_amd64.go,
// including its need_copy/zero-copy split, done here via copyStrings
// instead of a SIMD validate-only prepass.
func (pj *internalParsedJson) parseString(buf []byte, off int) error {
	start := off + 1
	if !pj.copyStrings {
		end, clean, err := scanCleanString(buf, start)
		if err != nil {
			return err
		}
		if clean {
			pj.writeTape(uint64(start), TagString)
			pj.Tape = append(pj.Tape, uint64(end-start))
			return nil
		}
	}

	before := len(pj.Strings)
	dst, _, err := parseStringInto(buf, start, pj.Strings)
	if err != nil {
		return err
	}
	pj.Strings = dst
	length := uint64(len(pj.Strings) - before)
	pj.writeTape(uint64(before)|STRINGBUFBIT, TagString)
	pj.Tape = append(pj.Tape, length)
	return nil
}
