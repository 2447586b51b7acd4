package secs2

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthOutOfRange indicates that an item length does not fit in the three-byte length field.
	ErrLengthOutOfRange = errors.New("item length out of range [0, 16777215]")

	// ErrMalformedHeader indicates that an item header is truncated or invalid.
	ErrMalformedHeader = errors.New("malformed item header")

	// ErrTruncatedBody indicates that fewer bytes remain than the item header declares.
	ErrTruncatedBody = errors.New("truncated item body")

	// ErrUnknownFormatCode indicates that an item header carries an unrecognized format code.
	ErrUnknownFormatCode = errors.New("unknown format code")
)

var (
	// ErrNotAList indicates that an index was applied to an item which is not a list.
	ErrNotAList = errors.New("item is not a list")

	// ErrIndexOutOfRange indicates that an index exceeds the size of the addressed item.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrTypeMismatch indicates that an accessor was used on an item of another variant.
	// Errors returned by accessors are *TypeMismatchError values matching ErrTypeMismatch.
	ErrTypeMismatch = errors.New("item type mismatch")
)

// TypeMismatchError records an accessor call on an item of the wrong variant.
type TypeMismatchError struct {
	Expected string // e.g. "ascii", "U4", "signed integer"
	Actual   Kind
}

func newTypeMismatch(expected string, actual Kind) *TypeMismatchError {
	return &TypeMismatchError{Expected: expected, Actual: actual}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("item type mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// Is reports whether target is ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}
