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

import "math"

// Stage 2 walks the structural index built by stage1 and threads a
// goto-based state machine over it, exactly mirroring the shape of the
// reference unified_machine: one label per grammar state, and a
// return-continuation stack (containingScopeOffset) recording where to
// resume once the current object/array scope closes. Go's labeled goto
// lets this port keep that control-flow shape verbatim instead of
// synthesizing a sum type or recursive-descent call stack.
//
// Strings contribute exactly one index slot: their opening quote. The
// interior is masked out by stage 1's quote mask and the closing quote
// bit is stripped when the structurals are finalized, so after a string
// has been scanned the next index slot already belongs to the following
// structural character.

const (
	retAddressShift  = 2
	retAddressStart  = 1
	retAddressObject = 2
	retAddressArray  = 3
)

// isValidTrueAtom reports whether buf[i:] starts with "true" followed by
// a structural-or-whitespace byte (or end of input).
func isValidTrueAtom(buf []byte, i int) bool {
	if i+4 > len(buf) {
		return false
	}
	if buf[i+1] != 'r' || buf[i+2] != 'u' || buf[i+3] != 'e' {
		return false
	}
	return i+4 == len(buf) || isNotStructuralOrWhitespace(buf[i+4]) == 0
}

func isValidFalseAtom(buf []byte, i int) bool {
	if i+5 > len(buf) {
		return false
	}
	if buf[i+1] != 'a' || buf[i+2] != 'l' || buf[i+3] != 's' || buf[i+4] != 'e' {
		return false
	}
	return i+5 == len(buf) || isNotStructuralOrWhitespace(buf[i+5]) == 0
}

func isValidNullAtom(buf []byte, i int) bool {
	if i+4 > len(buf) {
		return false
	}
	if buf[i+1] != 'u' || buf[i+2] != 'l' || buf[i+3] != 'l' {
		return false
	}
	return i+4 == len(buf) || isNotStructuralOrWhitespace(buf[i+4]) == 0
}

var structuralOrWhitespaceNegated = buildStructuralOrWhitespaceNegated()

func buildStructuralOrWhitespaceNegated() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 1
	}
	for _, c := range []byte{'{', '}', '[', ']', ',', ':', ' ', '\t', '\n', '\r'} {
		t[c] = 0
	}
	return t
}

// isNotStructuralOrWhitespace returns 0 if c is a structural character
// or whitespace; 1 otherwise.
func isNotStructuralOrWhitespace(c byte) byte {
	return structuralOrWhitespaceNegated[c]
}

// stage2 runs the tape builder over buf using the structural offsets in
// idxs. ndjson controls whether, after a complete top-level value, the
// machine loops back to parse another root value instead of treating
// leftover structurals as a trailing-content error.
func (pj *internalParsedJson) stage2(buf []byte, idxs []uint32, ndjson bool) error {
	n := len(idxs)
	pos := 0
	depth := 0
	maxDepth := pj.maxDepth
	if maxDepth <= 0 {
		maxDepth = maxDepthDefault
	}

	pj.containingScopeOffset = pj.containingScopeOffset[:0]

	pushScope := func(ret uint64) error {
		depth++
		if depth > maxDepth {
			return newError(CodeDepthError)
		}
		pj.containingScopeOffset = append(pj.containingScopeOffset, pj.getCurrentLoc()<<retAddressShift|ret)
		return nil
	}
	popScope := func() (savedLoc uint64, ret uint64) {
		last := len(pj.containingScopeOffset) - 1
		v := pj.containingScopeOffset[last]
		pj.containingScopeOffset = pj.containingScopeOffset[:last]
		depth--
		return v >> retAddressShift, v & ((1 << retAddressShift) - 1)
	}
	var rootSavedLoc uint64

start:
	if pos >= n {
		if depth == 0 && len(pj.Tape) > 0 {
			return nil
		}
		return newError(CodeEmpty)
	}
	pj.writeTape(0, TagRoot)
	rootSavedLoc = pj.getCurrentLoc() - 1

	{
		off := int(idxs[pos])
		pos++
		c := buf[off]
		switch c {
		case '{':
			if err := pushScope(retAddressStart); err != nil {
				return err
			}
			pj.writeTape(0, TagObjectStart)
			goto objectBegin
		case '[':
			if err := pushScope(retAddressStart); err != nil {
				return err
			}
			pj.writeTape(0, TagArrayStart)
			goto arrayBegin
		default:
			if err := pj.parseScalar(buf, off, c); err != nil {
				return err
			}
		}
	}
	goto scopeEnd

objectBegin:
	{
		if pos >= n {
			return newError(CodeTapeError)
		}
		off := int(idxs[pos])
		c := buf[off]
		if c == '}' {
			pos++
			goto scopeEnd
		}
		if c != '"' {
			return newErrorf(CodeTapeError, "expected string key at offset %d", off)
		}
		pos++
		if err := pj.parseString(buf, off); err != nil {
			return err
		}
		if pos >= n || buf[idxs[pos]] != ':' {
			return newError(CodeTapeError)
		}
		pos++
		goto objectValue
	}

objectValue:
	{
		if pos >= n {
			return newError(CodeTapeError)
		}
		off := int(idxs[pos])
		pos++
		c := buf[off]
		switch c {
		case '{':
			if err := pushScope(retAddressObject); err != nil {
				return err
			}
			pj.writeTape(0, TagObjectStart)
			goto objectBegin
		case '[':
			if err := pushScope(retAddressObject); err != nil {
				return err
			}
			pj.writeTape(0, TagArrayStart)
			goto arrayBegin
		default:
			if err := pj.parseScalar(buf, off, c); err != nil {
				return err
			}
		}
	}
	goto objectContinue

objectContinue:
	{
		if pos >= n {
			return newError(CodeTapeError)
		}
		c := buf[idxs[pos]]
		switch c {
		case ',':
			pos++
			if pos >= n || buf[idxs[pos]] != '"' {
				return newError(CodeTapeError)
			}
			off := int(idxs[pos])
			pos++
			if err := pj.parseString(buf, off); err != nil {
				return err
			}
			if pos >= n || buf[idxs[pos]] != ':' {
				return newError(CodeTapeError)
			}
			pos++
			goto objectValue
		case '}':
			pos++
			goto scopeEnd
		default:
			return newErrorf(CodeTapeError, "expected ',' or '}' at offset %d", idxs[pos])
		}
	}

arrayBegin:
	{
		if pos >= n {
			return newError(CodeTapeError)
		}
		if buf[idxs[pos]] == ']' {
			pos++
			goto scopeEnd
		}
		goto mainArraySwitch
	}

mainArraySwitch:
	{
		if pos >= n {
			return newError(CodeTapeError)
		}
		off := int(idxs[pos])
		pos++
		c := buf[off]
		switch c {
		case '{':
			if err := pushScope(retAddressArray); err != nil {
				return err
			}
			pj.writeTape(0, TagObjectStart)
			goto objectBegin
		case '[':
			if err := pushScope(retAddressArray); err != nil {
				return err
			}
			pj.writeTape(0, TagArrayStart)
			goto arrayBegin
		default:
			if err := pj.parseScalar(buf, off, c); err != nil {
				return err
			}
		}
	}
	goto arrayContinue

arrayContinue:
	{
		if pos >= n {
			return newError(CodeTapeError)
		}
		c := buf[idxs[pos]]
		switch c {
		case ',':
			pos++
			goto mainArraySwitch
		case ']':
			pos++
			goto scopeEnd
		default:
			return newErrorf(CodeTapeError, "expected ',' or ']' at offset %d", idxs[pos])
		}
	}

scopeEnd:
	if depth == 0 {
		goto final
	}
	{
		savedLoc, ret := popScope()
		closeTag := tagOpenToClose[Tag(pj.Tape[savedLoc]>>JSONTAGOFFSET)]
		pj.writeTape(savedLoc, closeTag)
		pj.annotatePreviousLoc(savedLoc, pj.getCurrentLoc())
		switch ret {
		case retAddressObject:
			goto objectContinue
		case retAddressArray:
			goto arrayContinue
		default:
			goto final
		}
	}

final:
	pj.writeTape(rootSavedLoc, TagRoot)
	pj.annotatePreviousLoc(rootSavedLoc, pj.getCurrentLoc())
	if pos < n {
		if !ndjson {
			return newErrorf(CodeTapeError, "trailing content after top-level value at offset %d", idxs[pos])
		}
		goto start
	}
	return nil
}

// parseScalar parses a non-container value (string, number, atom) whose
// first structural/pseudo-structural byte is buf[off]==c, and appends its
// tape entry.
func (pj *internalParsedJson) parseScalar(buf []byte, off int, c byte) error {
	switch {
	case c == '"':
		return pj.parseString(buf, off)
	case c == 't':
		if !isValidTrueAtom(buf, off) {
			return newError(CodeTAtomError)
		}
		pj.writeTape(0, TagBoolTrue)
		return nil
	case c == 'f':
		if !isValidFalseAtom(buf, off) {
			return newError(CodeFAtomError)
		}
		pj.writeTape(0, TagBoolFalse)
		return nil
	case c == 'n':
		if !isValidNullAtom(buf, off) {
			return newError(CodeNAtomError)
		}
		pj.writeTape(0, TagNull)
		return nil
	case c == '-' || isDigit(c):
		num, err := parseNumber(buf, off)
		if err != nil {
			return err
		}
		switch {
		case num.isFloat:
			pj.writeTapeTagValFlags(TagFloat, math.Float64bits(num.f), num.flags)
		case num.isUint:
			pj.writeTapeU64(num.u, 0)
		default:
			pj.writeTapeS64(num.i)
		}
		return nil
	default:
		return newErrorf(CodeTapeError, "unexpected character '%c' at offset %d", c, off)
	}
}
