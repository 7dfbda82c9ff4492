// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "fmt"

// Format is a surface or buffer pixel format, numbered as D3DFORMAT.
type Format uint32

// Supported formats.
const (
	FormatUnknown       Format = 0
	FormatR8G8B8        Format = 20
	FormatA8R8G8B8      Format = 21
	FormatX8R8G8B8      Format = 22
	FormatR5G6B5        Format = 23
	FormatA8            Format = 28
	FormatA8B8G8R8      Format = 32
	FormatX8B8G8R8      Format = 33
	FormatL8            Format = 50
	FormatD32           Format = 71
	FormatD24S8         Format = 75
	FormatD24X8         Format = 77
	FormatD16           Format = 80
	FormatIndex16       Format = 101
	FormatIndex32       Format = 102
	FormatA16B16G16R16F Format = 113
	FormatA32B32G32R32F Format = 116
)

var formatNames = map[Format]string{
	FormatUnknown:       "UNKNOWN",
	FormatR8G8B8:        "R8G8B8",
	FormatA8R8G8B8:      "A8R8G8B8",
	FormatX8R8G8B8:      "X8R8G8B8",
	FormatR5G6B5:        "R5G6B5",
	FormatA8:            "A8",
	FormatA8B8G8R8:      "A8B8G8R8",
	FormatX8B8G8R8:      "X8B8G8R8",
	FormatL8:            "L8",
	FormatD32:           "D32",
	FormatD24S8:         "D24S8",
	FormatD24X8:         "D24X8",
	FormatD16:           "D16",
	FormatIndex16:       "INDEX16",
	FormatIndex32:       "INDEX32",
	FormatA16B16G16R16F: "A16B16G16R16F",
	FormatA32B32G32R32F: "A32B32G32R32F",
}

// String returns the format name.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// BytesPerPixel returns the storage size of one pixel, or 0 if unknown.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatA8, FormatL8:
		return 1
	case FormatR5G6B5, FormatD16, FormatIndex16:
		return 2
	case FormatR8G8B8:
		return 3
	case FormatA8R8G8B8, FormatX8R8G8B8, FormatA8B8G8R8, FormatX8B8G8R8,
		FormatD32, FormatD24S8, FormatD24X8, FormatIndex32:
		return 4
	case FormatA16B16G16R16F:
		return 8
	case FormatA32B32G32R32F:
		return 16
	}
	return 0
}

// IsDepthStencil reports whether f is a depth/stencil format.
func (f Format) IsDepthStencil() bool {
	switch f {
	case FormatD32, FormatD24S8, FormatD24X8, FormatD16:
		return true
	}
	return false
}

// HasAlpha reports whether f stores an alpha channel.
func (f Format) HasAlpha() bool {
	switch f {
	case FormatA8R8G8B8, FormatA8B8G8R8, FormatA8, FormatA16B16G16R16F, FormatA32B32G32R32F:
		return true
	}
	return false
}
