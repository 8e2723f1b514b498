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

// floatToString converts a float to a string the way StringCvt needs it.
func floatToString(f float64) (string, error) {
	var tmp [32]byte
	v, err := appendFloat(tmp[:0], f)
	return string(v), err
}

// appendFloat converts a float to string similar to the Go stdlib and
// appends it to dst.
func appendFloat(dst []byte, f float64) ([]byte, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, newError(CodeNumberError)
	}

	// Convert as if by ES6 number-to-string conversion, matching most
	// other JSON generators. Like fmt %g, but with different exponent
	// cutoffs and unpadded exponents. See golang.org/issue/6384 and
	// golang.org/issue/14135.
	abs := math.Abs(f)
	mode := byte('f')
	if abs != 0 {
		if abs < 1e-6 || abs >= 1e21 {
			mode = 'e'
		}
	}
	dst = strconv.AppendFloat(dst, f, mode, -1, 64)
	if mode == 'e' {
		// clean up e-09 to e-9
		n := len(dst)
		if n >= 4 && dst[n-4] == 'e' && dst[n-3] == '-' && dst[n-2] == '0' {
			dst[n-2] = dst[n-1]
			dst = dst[:n-1]
		}
	}
	return dst, nil
}
