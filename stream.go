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
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Stream carries one chunk of streamed parse results, or the terminal
// error that ended the stream.
type Stream struct {
	Value *ParsedJson
	Error error
}

// Result is one parsed chunk produced by ParseMany: one or more
// documents, each wrapped in its own TagRoot run. Index is the chunk's
// position among the chunks of the input.
type Result struct {
	Index int
	Value *ParsedJson
	Error error
}

// ParseNDStream parses a stream of newline delimited JSON and sends
// parsed chunks to res. Each chunk contains an unspecified number of
// full top-level documents, each wrapped in its own TagRoot run, so a
// chunk always starts and ends on a root boundary. Each send on res
// blocks until it is received. Parsing continues until the input is
// exhausted or errors, at which point a final Stream with a non-nil Error is sent
// (io.EOF on clean completion) and res is closed. An optional channel
// for returning consumed results can be supplied; there's no guarantee
// that any given value will be recycled, so reuse writes must be
// non-blocking.
func ParseNDStream(r io.Reader, res chan<- Stream, reuse <-chan *ParsedJson) {
	const tmpSize = 10 << 20
	buf := bufio.NewReaderSize(r, tmpSize)
	tmp := make([]byte, tmpSize+1024)
	go func() {
		defer close(res)
		// Strings must be copied out of tmp, since tmp is overwritten by
		// the next read while the receiver may still hold the result.
		pj := internalParsedJson{copyStrings: true, maxDepth: maxDepthDefault}
		for {
			tmp = tmp[:tmpSize]
			n, err := buf.Read(tmp)
			if err != nil && err != io.EOF {
				res <- Stream{Error: fmt.Errorf("reading input: %w", err)}
				return
			}
			tmp = tmp[:n]
			if err != io.EOF {
				rest, rerr := buf.ReadBytes('\n')
				if rerr != nil && rerr != io.EOF {
					res <- Stream{Error: fmt.Errorf("reading input: %w", rerr)}
					return
				}
				tmp = append(tmp, rest...)
			}
			if len(tmp) > 0 {
				var reused *ParsedJson
				select {
				case reused = <-reuse:
				default:
				}
				if reused != nil {
					pj.ParsedJson = *reused
				} else {
					pj.ParsedJson = ParsedJson{}
				}
				pj.initialize(len(tmp))
				if parseErr := pj.parseMessageNdjson(tmp); parseErr != nil {
					res <- Stream{Error: fmt.Errorf("parsing input: %w", parseErr)}
					return
				}
				out := pj.ParsedJson
				res <- Stream{Value: &out}
			}
			if err != nil {
				res <- Stream{Error: err}
				return
			}
		}
	}()
}

// ParseMany splits b into batchSize-byte chunks, rounding each chunk
// forward to the next newline so no document is split across chunks,
// and parses the chunks one after another with ParseND on a single
// background goroutine. Results are delivered
// on the returned channel in the same order the chunks appear in b; the
// channel is closed once every chunk has been parsed.
func ParseMany(b []byte, batchSize int) (<-chan Result, error) {
	if batchSize <= 0 {
		return nil, newErrorf(CodeCapacity, "batch size must be positive, got %d", batchSize)
	}

	var chunks [][]byte
	for start := 0; start < len(b); {
		end := start + batchSize
		if end >= len(b) {
			chunks = append(chunks, b[start:])
			break
		}
		if nl := bytes.IndexByte(b[end:], '\n'); nl >= 0 {
			end += nl + 1
		} else {
			end = len(b)
		}
		chunks = append(chunks, b[start:end])
		start = end
	}

	out := make(chan Result, len(chunks))
	go func() {
		defer close(out)
		for idx, chunk := range chunks {
			if len(chunk) == 0 {
				continue
			}
			parsed, err := ParseND(chunk, nil)
			out <- Result{Index: idx, Value: parsed, Error: err}
		}
	}()
	return out, nil
}
