// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "fmt"

// ErrorKind categorizes HLSL option errors.
type ErrorKind uint8

const (
	// ErrMissingBinding indicates a resource binding was not found in BindingMap.
	ErrMissingBinding ErrorKind = iota

	// ErrRegisterCollision indicates two resources of one register type
	// were mapped to the same register.
	ErrRegisterCollision

	// ErrInvalidShaderModel indicates the shader model lacks a feature the
	// options request.
	ErrInvalidShaderModel
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrMissingBinding:
		return "MissingBinding"
	case ErrRegisterCollision:
		return "RegisterCollision"
	case ErrInvalidShaderModel:
		return "InvalidShaderModel"
	default:
		return "Unknown"
	}
}

// Error represents an HLSL option error, reported before any transform runs.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("hlsl %s: %s", e.Kind, e.Message)
}

// NewError creates a new HLSL error.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsMissingBinding returns true if the error is ErrMissingBinding.
func (e *Error) IsMissingBinding() bool {
	return e.Kind == ErrMissingBinding
}

// IsRegisterCollision returns true if the error is ErrRegisterCollision.
func (e *Error) IsRegisterCollision() bool {
	return e.Kind == ErrRegisterCollision
}

// IsInvalidShaderModel returns true if the error is ErrInvalidShaderModel.
func (e *Error) IsInvalidShaderModel() bool {
	return e.Kind == ErrInvalidShaderModel
}
