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
	"math"
	"strconv"
)

// parsedNumber is the result of scanning one JSON number token.
type parsedNumber struct {
	isFloat bool
	isUint  bool // only meaningful when !isFloat
	i       int64
	u       uint64
	f       float64
	flags   uint64 // FloatFlags bits to attach to the tape entry
	// end is the offset in buf one past the last byte of the number.
	end int
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseNumber scans the JSON number starting at buf[start] (which may be
// '-') and returns its parsed value. The fast path accumulates up to 20
// digits as an int64/uint64 directly (mirroring numberparsing.h's
// digit-by-digit `i = i*10 + digit` loop, including the INT64_MIN special
// case for exactly "-9223372036854775808"; 20 digits covers all of
// uint64, and the accumulation's own overflow check rejects the rest).
// Anything wider, anything that overflows, any decimal point, or any
// exponent falls back to strconv.ParseFloat over the full token, which is
// itself a correctly-rounded, locale-independent decimal-to-binary64
// converter and so satisfies the same round-to-nearest-even guarantee as
// the reference's Clinger fast path plus big-decimal fallback.
func parseNumber(buf []byte, start int) (parsedNumber, error) {
	p := start
	neg := false
	if p < len(buf) && buf[p] == '-' {
		neg = true
		p++
	}
	if p >= len(buf) || !isDigit(buf[p]) {
		return parsedNumber{}, newError(CodeNumberError)
	}

	digitsStart := p
	if buf[p] == '0' {
		p++
		if p < len(buf) && isDigit(buf[p]) {
			return parsedNumber{}, newErrorf(CodeNumberError, "leading zero in number at offset %d", start)
		}
	} else {
		for p < len(buf) && isDigit(buf[p]) {
			p++
		}
	}
	intDigits := p - digitsStart

	isFloat := false
	if p < len(buf) && buf[p] == '.' {
		isFloat = true
		p++
		fracStart := p
		for p < len(buf) && isDigit(buf[p]) {
			p++
		}
		if p == fracStart {
			return parsedNumber{}, newErrorf(CodeNumberError, "missing digits after decimal point at offset %d", start)
		}
	}
	if p < len(buf) && (buf[p] == 'e' || buf[p] == 'E') {
		isFloat = true
		p++
		if p < len(buf) && (buf[p] == '+' || buf[p] == '-') {
			p++
		}
		expStart := p
		for p < len(buf) && isDigit(buf[p]) {
			p++
		}
		if p == expStart {
			return parsedNumber{}, newErrorf(CodeNumberError, "missing digits in exponent at offset %d", start)
		}
	}

	if p != len(buf) && isNotStructuralOrWhitespace(buf[p]) != 0 {
		return parsedNumber{}, newErrorf(CodeNumberError, "unexpected character '%c' after number at offset %d", buf[p], p)
	}

	tok := buf[start:p]

	if !isFloat && intDigits <= 20 {
		if neg && intDigits == 19 && string(buf[digitsStart:p]) == "9223372036854775808" {
			return parsedNumber{isFloat: false, isUint: false, i: math.MinInt64, end: p}, nil
		}
		var acc uint64
		overflow := false
		for _, c := range buf[digitsStart:p] {
			d := uint64(c - '0')
			if acc > (math.MaxUint64-d)/10 {
				overflow = true
				break
			}
			acc = acc*10 + d
		}
		if !overflow {
			if !neg {
				if acc > math.MaxInt64 {
					return parsedNumber{isFloat: false, isUint: true, u: acc, end: p}, nil
				}
				return parsedNumber{isFloat: false, i: int64(acc), end: p}, nil
			}
			if acc <= math.MaxInt64 {
				return parsedNumber{isFloat: false, i: -int64(acc), end: p}, nil
			}
			// negative and magnitude doesn't fit int64 (other than the
			// INT64_MIN case handled above): falls through to float below.
		}
	}

	f, err := strconv.ParseFloat(string(tok), 64)
	if err != nil {
		// ParseFloat reports ErrRange both for magnitudes that overflow to
		// ±Inf and for magnitudes that underflow to 0; only the former is a
		// parse failure; an underflowing literal like "1e-400" is valid
		// JSON that simply rounds to 0.
		numErr, isRange := err.(*strconv.NumError)
		if !isRange || numErr.Err != strconv.ErrRange || f != 0 {
			return parsedNumber{}, newErrorf(CodeNumberError, "invalid number %q at offset %d: %v", tok, start, err)
		}
	}
	if math.IsInf(f, 0) {
		return parsedNumber{}, newErrorf(CodeNumberError, "number %q out of float64 range", tok)
	}
	var flags uint64
	if !isFloat {
		flags = uint64(FloatOverflowedInteger)
	}
	return parsedNumber{isFloat: true, f: f, flags: flags, end: p}, nil
}
