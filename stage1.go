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
	"math/bits"
	"unicode/utf8"
)

const (
	evenBits = uint64(0x5555555555555555)
	oddBits  = ^evenBits
)

// stage1State carries the bits that must cross a 64-byte block boundary:
// whether the previous block ended mid-escape, mid-string, or with a
// pseudo-structural predicate pending.
type stage1State struct {
	prevIterEndsOddBackslash uint64 // 0 or 1
	prevInsideString         uint64 // 0 or all-ones
	prevIterEndsPseudoPred   uint64 // 0 or 1
}

// findEscaped returns the mask of bytes that are escaped (preceded by an
// odd-length run of backslashes, possibly crossing the block boundary via
// s.prevIterEndsOddBackslash) and updates that carry for the next block.
//
// This is the even/odd-run-start technique: a run of backslashes flips
// parity once per element, so adding a 1-bit at each run's start to the
// backslash mask propagates a carry through the whole run (integer
// addition treats a run of 1s like a ripple-carry adder) and the carry
// lands exactly one past the run's end; splitting runs into those that
// start on an even bit vs an odd bit lets a single add-and-mask recover
// which runs have odd length, without looping over bits.
func findEscaped(backslash uint64, s *stage1State) uint64 {
	if backslash == 0 {
		result := s.prevIterEndsOddBackslash
		s.prevIterEndsOddBackslash = 0
		return result
	}

	startEdges := backslash &^ (backslash << 1)
	evenStartMask := evenBits ^ s.prevIterEndsOddBackslash
	evenStarts := startEdges & evenStartMask
	oddStarts := startEdges &^ evenStartMask

	evenCarries := backslash + evenStarts

	oddCarries, carry := bits.Add64(backslash, oddStarts, 0)
	oddCarries |= s.prevIterEndsOddBackslash
	s.prevIterEndsOddBackslash = carry

	evenCarryEnds := evenCarries &^ backslash
	oddCarryEnds := oddCarries &^ backslash

	evenStartOddEnd := evenCarryEnds & oddBits
	oddStartEvenEnd := oddCarryEnds & evenBits

	return evenStartOddEnd | oddStartEvenEnd
}

// prefixXor computes the inclusive bitwise parallel-prefix XOR of bits:
// result bit i = XOR of bits[0..i]. This is the portable substitute for
// the carry-less multiply by all-ones that the reference implementation
// uses to turn a set of quote positions into an "inside string" mask:
// each real quote toggles whether subsequent bytes are inside a string.
func prefixXor(mask uint64) uint64 {
	mask ^= mask << 1
	mask ^= mask << 2
	mask ^= mask << 4
	mask ^= mask << 8
	mask ^= mask << 16
	mask ^= mask << 32
	return mask
}

// findQuoteMaskAndBits computes the real (non-escaped) quote bits and the
// mask of bytes lying inside a string (including the opening quote but
// not the closing one),
// carrying the "currently inside a string" state across the block
// boundary via s.prevInsideString (0 or all-ones).
func findQuoteMaskAndBits(quote, escaped uint64, s *stage1State) (quoteBits, quoteMask uint64) {
	quoteBits = quote &^ escaped
	quoteMask = prefixXor(quoteBits) ^ s.prevInsideString
	if quoteMask&(1<<63) != 0 {
		s.prevInsideString = ^uint64(0)
	} else {
		s.prevInsideString = 0
	}
	return quoteBits, quoteMask
}

// finalizeStructurals combines the structural-punctuation mask with the
// real quote bits, strips anything found to be inside a string, and adds
// "pseudo structural" positions: the first non-whitespace byte, outside
// a string, following a structural character, a quote or whitespace,
// which marks the start of every atom, number and bare value the
// flattener needs an index for. Closing quotes are then dropped, so each
// string is indexed by its opening quote only.
func finalizeStructurals(structurals, whitespace, quoteMask, quoteBits uint64, s *stage1State) uint64 {
	structurals &^= quoteMask
	structurals |= quoteBits

	pseudoPred := structurals | whitespace
	shiftedPseudoPred := (pseudoPred << 1) | s.prevIterEndsPseudoPred
	s.prevIterEndsPseudoPred = pseudoPred >> 63

	pseudoStructurals := shiftedPseudoPred &^ whitespace &^ quoteMask
	structurals |= pseudoStructurals

	// Drop closing quotes: the opening quote alone indexes a string, and
	// stage 2 finds the closing quote itself while scanning the content.
	structurals &^= quoteBits &^ quoteMask

	return structurals
}

// flattenBits appends the absolute byte offset of every set bit in mask
// (which belongs to the 64-byte block starting at blockBase) to dst.
func flattenBits(dst []uint32, blockBase uint32, mask uint64) []uint32 {
	for ; mask != 0; mask &= mask - 1 {
		dst = append(dst, blockBase+uint32(bits.TrailingZeros64(mask)))
	}
	return dst
}

// stage1 scans the whole message and returns the sorted list of
// structural byte offsets stage 2 will walk. offsets is reused/grown as
// needed. UTF-8 is validated once over the whole buffer up front; with
// the complete message always resident there is nothing to gain from a
// streaming block-by-block validator.
func stage1(buf []byte, offsets []uint32) ([]uint32, error) {
	if !utf8.Valid(buf) {
		return offsets, newError(CodeUTF8Error)
	}

	offsets = offsets[:0]
	// The first byte of the document is treated as following whitespace,
	// so a bare scalar at offset 0 (no leading whitespace/quote/structural
	// byte) still gets a pseudo-structural entry.
	st := stage1State{prevIterEndsPseudoPred: 1}
	for base := 0; base < len(buf); base += blockSize {
		end := base + blockSize
		if end > len(buf) {
			end = len(buf)
		}
		block := buf[base:end]
		masks := classifyBlock(block)

		escaped := findEscaped(masks.backslash, &st)
		quoteBits, quoteMask := findQuoteMaskAndBits(masks.quote, escaped, &st)
		structurals := finalizeStructurals(masks.structural, masks.whitespace, quoteMask, quoteBits, &st)

		offsets = flattenBits(offsets, uint32(base), structurals)
	}
	if st.prevInsideString != 0 {
		return offsets, newError(CodeUnclosedString)
	}
	return offsets, nil
}
