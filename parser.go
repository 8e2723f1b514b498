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

// internalParsedJson carries the mutable working state of a single Parse
// call in addition to the public ParsedJson result, so that a caller who
// threads a ParsedJson back in as `reuse` recycles its backing arrays
// instead of reallocating. The reference implementation scatters this
// same state across a channel of index buffers and a depth-indexed
// ret_address/containing_scope_offset array sized to a fixed maxdepth;
// this port collects stage 1's output into one reusable []uint32 and grows
// containingScopeOffset as a plain stack, so depth is bounded by
// maxDepth rather than by a fixed array size.
type internalParsedJson struct {
	ParsedJson

	containingScopeOffset []uint64
	indices               []uint32

	copyStrings  bool
	maxDepth     int
	capacityHint int
}

func newInternalParsedJson() *internalParsedJson {
	return &internalParsedJson{
		copyStrings: true,
		maxDepth:    maxDepthDefault,
	}
}

// initialize resets pj's result buffers for a new parse of a message of
// roughly msgSize bytes, reusing backing arrays where their capacity
// allows it.
func (pj *internalParsedJson) initialize(msgSize int) {
	pj.Tape = pj.Tape[:0]
	pj.Strings = pj.Strings[:0]
	pj.Message = nil
	pj.containingScopeOffset = pj.containingScopeOffset[:0]
	pj.indices = pj.indices[:0]

	hint := pj.capacityHint
	if hint <= 0 {
		hint = msgSize
	}
	if cap(pj.indices) < hint {
		pj.indices = make([]uint32, 0, hint)
	}
	if cap(pj.Tape) < hint {
		pj.Tape = make([]uint64, 0, hint)
	}
	if cap(pj.Strings) < msgSize {
		pj.Strings = make([]byte, 0, msgSize)
	}
}

// stripBOM skips a leading UTF-8 byte-order-mark, which RFC 8259 requires
// parsers to tolerate even though producers should not emit one.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

// parseMessage runs both stages over a single JSON document.
func (pj *internalParsedJson) parseMessage(b []byte) error {
	b = stripBOM(b)
	pj.Message = b
	idxs, err := stage1(b, pj.indices)
	if err != nil {
		return err
	}
	pj.indices = idxs
	return pj.stage2(b, pj.indices, false)
}

// parseMessageNdjson runs both stages over a buffer containing one or
// more newline (or otherwise whitespace) delimited JSON documents, each
// ending up as its own TagRoot-wrapped run of tape entries.
func (pj *internalParsedJson) parseMessageNdjson(b []byte) error {
	b = stripBOM(b)
	pj.Message = b
	idxs, err := stage1(b, pj.indices)
	if err != nil {
		return err
	}
	pj.indices = idxs
	return pj.stage2(b, pj.indices, true)
}

// Parse parses a single JSON document and returns the result. An optional
// previously parsed result can be supplied via reuse to recycle its
// backing arrays and reduce allocations.
func Parse(b []byte, reuse *ParsedJson, opts ...ParserOption) (*ParsedJson, error) {
	var pj *internalParsedJson
	if reuse != nil && reuse.internal != nil {
		pj = reuse.internal
		pj.ParsedJson = *reuse
		pj.ParsedJson.internal = nil
		*reuse = ParsedJson{}
	}
	if pj == nil {
		pj = newInternalParsedJson()
	}
	for _, opt := range opts {
		if err := opt(pj); err != nil {
			return nil, err
		}
	}
	pj.initialize(len(b))
	if err := pj.parseMessage(b); err != nil {
		return nil, err
	}
	parsed := pj.ParsedJson
	pj.ParsedJson = ParsedJson{}
	parsed.internal = pj
	return &parsed, nil
}

// ParseND parses newline delimited JSON, returning one TagRoot-wrapped
// tape entry per document. An optional previously parsed result can be
// supplied via reuse to recycle its backing arrays.
func ParseND(b []byte, reuse *ParsedJson, opts ...ParserOption) (*ParsedJson, error) {
	var pj *internalParsedJson
	if reuse != nil && reuse.internal != nil {
		pj = reuse.internal
		pj.ParsedJson = *reuse
		pj.ParsedJson.internal = nil
		*reuse = ParsedJson{}
	}
	if pj == nil {
		pj = newInternalParsedJson()
	}
	for _, opt := range opts {
		if err := opt(pj); err != nil {
			return nil, err
		}
	}
	pj.initialize(len(b))
	if err := pj.parseMessageNdjson(b); err != nil {
		return nil, err
	}
	parsed := pj.ParsedJson
	pj.ParsedJson = ParsedJson{}
	parsed.internal = pj
	return &parsed, nil
}
