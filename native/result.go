// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
)

// Result is an HRESULT-style status code returned by native calls.
// The high bit marks failure; zero and positive values are success codes.
type Result uint32

// Success codes.
const (
	OK    Result = 0x00000000
	False Result = 0x00000001

	// PresentOccluded is returned by Present when the window is hidden.
	PresentOccluded Result = 0x08760868
)

// Failure codes.
const (
	ErrFail                Result = 0x80004005
	ErrOutOfMemory         Result = 0x8007000E
	ErrInvalidArg          Result = 0x80070057
	ErrNotImplemented      Result = 0x80004001
	ErrWrongTextureFormat  Result = 0x88760818
	ErrUnsupportedColorOp  Result = 0x88760819
	ErrConflictingState    Result = 0x88760822
	ErrDriverInternalError Result = 0x88760827
	ErrNotFound            Result = 0x88760866
	ErrMoreData            Result = 0x88760867
	ErrDeviceLost          Result = 0x88760868
	ErrDeviceNotReset      Result = 0x88760869
	ErrNotAvailable        Result = 0x8876086A
	ErrInvalidDevice       Result = 0x8876086B
	ErrInvalidCall         Result = 0x8876086C
	ErrWasStillDrawing     Result = 0x8876021C
	ErrDeviceRemoved       Result = 0x88760870
	ErrDeviceHung          Result = 0x88760874
	ErrOutOfVideoMemory    Result = 0x8876017C
)

var resultNames = map[Result]string{
	OK:                     "S_OK",
	False:                  "S_FALSE",
	PresentOccluded:        "S_PRESENT_OCCLUDED",
	ErrFail:                "E_FAIL",
	ErrOutOfMemory:         "E_OUTOFMEMORY",
	ErrInvalidArg:          "E_INVALIDARG",
	ErrNotImplemented:      "E_NOTIMPL",
	ErrWrongTextureFormat:  "D3DERR_WRONGTEXTUREFORMAT",
	ErrUnsupportedColorOp:  "D3DERR_UNSUPPORTEDCOLOROPERATION",
	ErrConflictingState:    "D3DERR_CONFLICTINGRENDERSTATE",
	ErrDriverInternalError: "D3DERR_DRIVERINTERNALERROR",
	ErrNotFound:            "D3DERR_NOTFOUND",
	ErrMoreData:            "D3DERR_MOREDATA",
	ErrDeviceLost:          "D3DERR_DEVICELOST",
	ErrDeviceNotReset:      "D3DERR_DEVICENOTRESET",
	ErrNotAvailable:        "D3DERR_NOTAVAILABLE",
	ErrInvalidDevice:       "D3DERR_INVALIDDEVICE",
	ErrInvalidCall:         "D3DERR_INVALIDCALL",
	ErrWasStillDrawing:     "D3DERR_WASSTILLDRAWING",
	ErrDeviceRemoved:       "D3DERR_DEVICEREMOVED",
	ErrDeviceHung:          "D3DERR_DEVICEHUNG",
	ErrOutOfVideoMemory:    "D3DERR_OUTOFVIDEOMEMORY",
}

// Failed reports whether r is a failure code.
func (r Result) Failed() bool { return r&0x80000000 != 0 }

// Succeeded reports whether r is a success code.
func (r Result) Succeeded() bool { return !r.Failed() }

// String returns the symbolic name of r, or its hex value.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(r))
}

// Error implements the error interface.
func (r Result) Error() string {
	return "native: " + r.String()
}

// IsDeviceLoss reports whether r means the device must be reset or recreated.
func (r Result) IsDeviceLoss() bool {
	switch r {
	case ErrDeviceLost, ErrDeviceNotReset, ErrDeviceRemoved, ErrDeviceHung:
		return true
	}
	return false
}

// IsOutOfMemory reports whether r is an allocation failure.
func (r Result) IsOutOfMemory() bool {
	return r == ErrOutOfMemory || r == ErrOutOfVideoMemory
}

// ResultOf extracts the Result carried by err.
// It returns OK for nil and ErrFail for errors that carry no Result.
func ResultOf(err error) Result {
	if err == nil {
		return OK
	}
	var r Result
	if errors.As(err, &r) {
		return r
	}
	return ErrFail
}
