// Package bencode implements bencoding of data as defined in BEP 3 using
// type assertion over reflection for performance.
package bencode

import "github.com/pkg/errors"

// ErrMalformed is the root cause of every error returned by the Decoder.
// Callers that load untrusted bencode (such as a session snapshot) can use
// errors.Cause to distinguish corrupt input from I/O failures.
var ErrMalformed = errors.New("bencode: malformed input")

// Dict represents a bencode dictionary.
type Dict map[string]interface{}

// NewDict allocates the memory for a Dict.
func NewDict() Dict {
	return make(Dict)
}

// List represents a bencode list.
type List []interface{}

// NewList allocates the memory for a List.
func NewList() List {
	return make(List, 0)
}
