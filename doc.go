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

// Package turbojson is a tape-based JSON parser.
//
// Parsing happens in two stages. Stage 1 scans the input in 64-byte
// blocks and produces a sorted index of "structural" byte offsets
// (opening quotes, braces, brackets, commas, colons and the first byte of every
// atom/number). Stage 2 walks that index with a small state machine and
// emits a flat array of 64-bit words (the "tape"): one word per value,
// tagged in its top byte, plus auxiliary words for integers, floats and
// string lengths.
//
// The original simdjson design leans on AVX2/AVX512 assembly for stage
// 1. This port has no assembly backend; stage 1 is implemented with
// portable SWAR (SIMD-within-a-register) bit tricks over uint64 words,
// so it runs unmodified on every architecture Go supports.
//
// Once a message has been parsed into a *ParsedJson, its tape can be
// walked in three ways: the low-level Iter for manual traversal,
// Object/Array for scoped access with Go-shaped results (maps, slices,
// interface{}), and Navigator for general random-access movement
// (including RFC 6901 JSON Pointer lookups) modeled on simdjson's
// ParsedJsonIterator.
package turbojson
