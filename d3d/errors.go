// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"errors"
	"fmt"

	"github.com/gogpu/d3dpipe/native"
)

// Kind classifies a failure.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	// KindCapability means an adapter or device lacks a required feature.
	// It is reported once per adapter and never retried.
	KindCapability
	// KindTransient means the device is lost or must be reset.
	KindTransient
	// KindAllocation means one resource could not be created.
	// The rest of the context stays usable.
	KindAllocation
	// KindContract means the caller passed an invalid argument or used a
	// released object.
	KindContract
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCapability:
		return "capability"
	case KindTransient:
		return "transient"
	case KindAllocation:
		return "allocation"
	case KindContract:
		return "contract"
	}
	return "unknown"
}

// Sentinel errors, matched with errors.Is.
var (
	// ErrNilContext is returned when an operation receives a nil context.
	ErrNilContext = errors.New("d3d: nil context")

	// ErrNilManager is returned when an operation receives a nil manager.
	ErrNilManager = errors.New("d3d: nil manager")

	// ErrNilResource is returned when an operation receives a nil resource.
	ErrNilResource = errors.New("d3d: nil resource")

	// ErrReleased is returned when a released context or resource is used.
	ErrReleased = errors.New("d3d: context released")

	// ErrNotInitialized is returned when a context has no device.
	ErrNotInitialized = errors.New("d3d: context not initialized")

	// ErrInvalidArgument is returned for out-of-range or inconsistent arguments.
	ErrInvalidArgument = errors.New("d3d: invalid argument")

	// ErrNoRenderTarget is returned when an operation needs a bound target.
	ErrNoRenderTarget = errors.New("d3d: no render target")

	// ErrDeviceLost is returned when the device is lost or needs a reset.
	ErrDeviceLost = errors.New("d3d: device lost")

	// ErrOSUnsupported is returned when the OS is older than the minimum.
	ErrOSUnsupported = errors.New("d3d: operating system not supported")

	// ErrNoFactory is returned when no native factory is available.
	ErrNoFactory = errors.New("d3d: native factory unavailable")

	// ErrNoUsableAdapter is returned when every adapter failed validation.
	ErrNoUsableAdapter = errors.New("d3d: no usable adapter")

	// ErrAdapterOutOfRange is returned for an adapter ordinal that does not exist.
	ErrAdapterOutOfRange = errors.New("d3d: adapter ordinal out of range")

	// ErrAdapterFailed is returned for an adapter that failed initialization.
	ErrAdapterFailed = errors.New("d3d: adapter failed initialization")

	// ErrBlockedHardware is returned for adapters on the bad-hardware list.
	ErrBlockedHardware = errors.New("d3d: adapter or driver is on the bad-hardware list")

	// ErrMissingCaps is returned when a device lacks required capabilities.
	ErrMissingCaps = errors.New("d3d: required device capabilities missing")

	// ErrNoDepthStencilFormat is returned when no depth format matches a target.
	ErrNoDepthStencilFormat = errors.New("d3d: no matching depth/stencil format")

	// ErrClosed is returned by a closed PipelineManager.
	ErrClosed = errors.New("d3d: pipeline manager closed")
)

// Error is a failure with its kind, the failing operation and the
// native result code.
type Error struct {
	Kind Kind
	Op   string
	Code native.Result
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("d3d: %s: %s (%s)", e.Op, e.Code.String(), e.Kind)
	}
	return fmt.Sprintf("d3d: %s: %v (%s)", e.Op, e.Err, e.Kind)
}

// Unwrap returns the wrapped error and the native code so that both
// errors.Is(err, ErrDeviceLost) and errors.Is(err, native.ErrDeviceLost)
// work.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Code.Failed() {
		errs = append(errs, e.Code)
	}
	if e.Kind == KindTransient {
		errs = append(errs, ErrDeviceLost)
	}
	return errs
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// nativeError wraps a failed native call. Device loss is always
// classified as transient regardless of the kind the caller expects.
func nativeError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	code := native.ResultOf(err)
	if code.IsDeviceLoss() {
		kind = KindTransient
	}
	return &Error{Kind: kind, Op: op, Code: code, Err: err}
}

// contractError reports a caller mistake.
func contractError(op string, err error) error {
	return &Error{Kind: KindContract, Op: op, Code: native.ErrInvalidCall, Err: err}
}
