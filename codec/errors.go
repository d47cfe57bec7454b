package codec

import (
	"errors"
	"fmt"
)

// ErrTruncated matches every *DecodeError with errors.Is.
var ErrTruncated = errors.New("codec: truncated input")

// DecodeError reports input that ended before a value was complete.
type DecodeError struct {
	// Field is the dotted path of the field being decoded.
	Field string

	// Offset is the byte offset of the incomplete value.
	Offset int

	// Need and Have are the bytes required and remaining.
	Need int
	Have int
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: truncated input decoding %s at offset %d: need %d bytes, have %d",
		e.Field, e.Offset, e.Need, e.Have)
}

// Is reports whether target is ErrTruncated.
func (e *DecodeError) Is(target error) bool {
	return target == ErrTruncated
}
