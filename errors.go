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
	"errors"
	"fmt"
)

// Code is a stable error identifier, mirroring simdjson's error_code enum.
// Values are safe to switch on and will not be renumbered across releases.
type Code int

const (
	CodeSuccess Code = iota
	CodeCapacity
	CodeMemAlloc
	CodeTapeError
	CodeDepthError
	CodeStringError
	CodeTAtomError
	CodeFAtomError
	CodeNAtomError
	CodeNumberError
	CodeUTF8Error
	CodeUninitialized
	CodeEmpty
	CodeUnescapedChars
	CodeUnclosedString
	// CodeUnsupportedArchitecture is never returned by the parser itself,
	// since this package has no architecture-specific backend to fail on.
	// It is kept so the Code taxonomy stays complete and the numbering of
	// the codes after it is unchanged.
	CodeUnsupportedArchitecture
	CodeIncorrectType
	CodeNumberOutOfRange
	CodeIndexOutOfBounds
	CodeNoSuchField
	CodeIOError
	CodeInvalidJSONPointer
	CodeInvalidURIFragment
	CodeUnexpectedError
)

var codeStrings = [...]string{
	CodeSuccess:                 "no error",
	CodeCapacity:                "input exceeds parser capacity",
	CodeMemAlloc:                "memory allocation failed",
	CodeTapeError:               "tape error: internal bug",
	CodeDepthError:              "exceeded maximum depth",
	CodeStringError:             "problem parsing a string",
	CodeTAtomError:              "problem parsing an atom starting with 't'",
	CodeFAtomError:              "problem parsing an atom starting with 'f'",
	CodeNAtomError:              "problem parsing an atom starting with 'n'",
	CodeNumberError:             "problem parsing a number",
	CodeUTF8Error:               "invalid UTF-8 in input",
	CodeUninitialized:           "parser not initialized",
	CodeEmpty:                   "input is empty",
	CodeUnescapedChars:          "unescaped control character in string",
	CodeUnclosedString:          "unclosed string in input",
	CodeUnsupportedArchitecture: "unsupported architecture",
	CodeIncorrectType:           "value does not have the requested type",
	CodeNumberOutOfRange:        "number out of range",
	CodeIndexOutOfBounds:        "index out of bounds",
	CodeNoSuchField:             "no such field",
	CodeIOError:                 "error reading file",
	CodeInvalidJSONPointer:      "invalid JSON pointer syntax",
	CodeInvalidURIFragment:      "invalid URI fragment syntax",
	CodeUnexpectedError:         "unexpected error",
}

// String returns the human-readable description of the code.
func (c Code) String() string {
	if int(c) < 0 || int(c) >= len(codeStrings) {
		return "unknown error code"
	}
	s := codeStrings[c]
	if s == "" {
		return "unknown error code"
	}
	return s
}

// ParseError is returned for any error encountered while parsing or
// navigating a JSON document. Callers that care about the failure class
// rather than the message should switch on Code.
type ParseError struct {
	Code Code
	msg  string
}

// newError creates a *ParseError with a fixed message derived from Code.
func newError(code Code) *ParseError {
	return &ParseError{Code: code, msg: code.String()}
}

// newErrorf creates a *ParseError with a custom, more specific message.
func newErrorf(code Code, format string, a ...interface{}) *ParseError {
	return &ParseError{Code: code, msg: fmt.Sprintf(format, a...)}
}

func (e *ParseError) Error() string {
	return e.msg
}

// AsCode extracts the Code from err if it is (or wraps) a *ParseError.
func AsCode(err error) (Code, bool) {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return CodeUnexpectedError, false
	}
	return pe.Code, true
}
