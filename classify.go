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

// Stage 1 works over fixed 64-byte blocks, building four uint64 bitmasks
// (one bit per byte of the block): backslash, quote, whitespace and
// structural-punctuation. The original implementation fills these with
// AVX2/AVX512 PSHUFB table lookups. This port has no assembly backend, so
// it fills them with a 64-iteration, branch-on-position-only loop (8
// lanes of 8 bytes) driven by a 256-entry classification table — the
// portable analogue of a PSHUFB lookup. No branch inspects what a byte
// *means*; every byte takes the same lookup-and-OR path.

const blockSize = 64

const (
	classBackslash = 1 << iota
	classQuote
	classWhitespace
	classStructural
)

// classifyTable maps every byte value to the set of classification bits
// it belongs to.
var classifyTable = buildClassifyTable()

func buildClassifyTable() [256]byte {
	var t [256]byte
	t['\\'] |= classBackslash
	t['"'] |= classQuote
	for _, c := range []byte{' ', '\t', '\n', '\r'} {
		t[c] |= classWhitespace
	}
	for _, c := range []byte{'{', '}', '[', ']', ',', ':'} {
		t[c] |= classStructural
	}
	return t
}

// blockMasks holds the four classification bitmasks for one 64-byte block.
// Bit i of each mask corresponds to block byte i.
type blockMasks struct {
	backslash  uint64
	quote      uint64
	whitespace uint64
	structural uint64
}

// classifyBlock fills masks for the 64 bytes of block (which must have
// len(block) <= 64). Bytes past the end of a partial tail block are
// treated as spaces, the same padding the reference writes into its
// scratch block, so the slack never produces structural or
// pseudo-structural positions past the end of the input.
func classifyBlock(block []byte) blockMasks {
	var m blockMasks
	for lane := 0; lane < 8; lane++ {
		base := lane * 8
		var bs, qt, ws, st uint64
		for j := 0; j < 8; j++ {
			idx := base + j
			c := byte(' ')
			if idx < len(block) {
				c = block[idx]
			}
			cls := uint64(classifyTable[c])
			bs |= (cls & classBackslash) << uint(idx)
			qt |= ((cls & classQuote) >> 1) << uint(idx)
			ws |= ((cls & classWhitespace) >> 2) << uint(idx)
			st |= ((cls & classStructural) >> 3) << uint(idx)
		}
		m.backslash |= bs
		m.quote |= qt
		m.whitespace |= ws
		m.structural |= st
	}
	return m
}
