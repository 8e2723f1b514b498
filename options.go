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

// ParserOption configures a parser run.
type ParserOption func(pj *internalParsedJson) error

// WithCopyStrings controls whether strings are copied into a dedicated
// Strings buffer rather than referencing the input message directly.
// For enhanced performance the parser can point back into the original
// JSON buffer for strings, but this can cause issues if the underlying
// buffer is reused or mutated after parsing. Default: true.
func WithCopyStrings(b bool) ParserOption {
	return func(pj *internalParsedJson) error {
		pj.copyStrings = b
		return nil
	}
}

// WithMaxDepth sets the maximum nesting depth of objects and arrays.
// Parsing input nested deeper than this returns a *ParseError with
// CodeDepthError. Default: maxDepthDefault.
func WithMaxDepth(depth int) ParserOption {
	return func(pj *internalParsedJson) error {
		if depth <= 0 {
			return newErrorf(CodeCapacity, "max depth must be positive, got %d", depth)
		}
		pj.maxDepth = depth
		return nil
	}
}

// WithCapacity hints the expected number of structural indices (roughly
// one per meaningful byte of input) so the stage 1 index buffer and tape
// can be preallocated to the right size up front, avoiding growth
// reallocations for repeated Parse calls of similar-sized input.
func WithCapacity(n int) ParserOption {
	return func(pj *internalParsedJson) error {
		if n < 0 {
			return newErrorf(CodeCapacity, "capacity must not be negative, got %d", n)
		}
		pj.capacityHint = n
		return nil
	}
}
