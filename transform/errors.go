package transform

import "fmt"

// ErrorKind categorizes transform failures.
type ErrorKind uint8

const (
	// MissingData indicates a required config record was not supplied.
	MissingData ErrorKind = iota

	// InvalidConfig indicates a config record is inconsistent with itself
	// or with the module. It is reported before any rewriting happens.
	InvalidConfig

	// UnsupportedInput indicates a module shape the transform cannot
	// rewrite.
	UnsupportedInput

	// Internal indicates a bug: the transform produced an invalid module.
	Internal
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case MissingData:
		return "MissingData"
	case InvalidConfig:
		return "InvalidConfig"
	case UnsupportedInput:
		return "UnsupportedInput"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is a failure reported by a transform.
type Error struct {
	// Transform names the failing transform.
	Transform string

	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Transform == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Transform, e.Kind, e.Message)
}

// Is matches errors of the same kind, so errors.Is(err, ErrInvalidConfig)
// works for any transform.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Transform == "" && t.Message == ""
}

// Sentinels for errors.Is.
var (
	ErrMissingData      error = &Error{Kind: MissingData}
	ErrInvalidConfig    error = &Error{Kind: InvalidConfig}
	ErrUnsupportedInput error = &Error{Kind: UnsupportedInput}
	ErrInternal         error = &Error{Kind: Internal}
)

// NewError creates an error for the named transform.
func NewError(transform string, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Transform: transform, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// MissingDataError reports that t needs a config record it was not given.
func MissingDataError(t Transform) *Error {
	return &Error{Transform: t.Name(), Kind: MissingData, Message: "missing transform data for " + t.Name()}
}

// IsMissingData returns true if the error is MissingData.
func (e *Error) IsMissingData() bool {
	return e.Kind == MissingData
}

// IsInvalidConfig returns true if the error is InvalidConfig.
func (e *Error) IsInvalidConfig() bool {
	return e.Kind == InvalidConfig
}

// IsUnsupportedInput returns true if the error is UnsupportedInput.
func (e *Error) IsUnsupportedInput() bool {
	return e.Kind == UnsupportedInput
}

// IsInternal returns true if the error is Internal.
func (e *Error) IsInternal() bool {
	return e.Kind == Internal
}
