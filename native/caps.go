// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

// Caps describes what a device type on an adapter can do.
type Caps struct {
	DeviceType     DeviceType
	AdapterOrdinal int

	Caps2             uint32
	DevCaps           uint32
	PrimitiveMiscCaps uint32
	RasterCaps        uint32
	ZCmpCaps          uint32
	SrcBlendCaps      uint32
	DestBlendCaps     uint32
	TextureCaps       uint32

	MaxTextureWidth  uint32
	MaxTextureHeight uint32

	VertexShaderVersion  uint32
	PixelShaderVersion   uint32
	MaxVertexShaderConst uint32
}

// Caps2 bits.
const (
	Caps2DynamicTextures uint32 = 0x20000000
)

// DevCaps bits.
const (
	DevCapsHWTransformAndLight uint32 = 0x00010000
	DevCapsPureDevice          uint32 = 0x00100000
)

// PrimitiveMiscCaps bits.
const (
	PMiscCapsMaskZ    uint32 = 0x00000002
	PMiscCapsCullNone uint32 = 0x00000010
	PMiscCapsBlendOp  uint32 = 0x00000800
)

// RasterCaps bits.
const (
	RasterCapsScissorTest uint32 = 0x01000000
)

// Comparison caps bits, used for ZCmpCaps.
const (
	PCmpCapsNever        uint32 = 0x00000001
	PCmpCapsLess         uint32 = 0x00000002
	PCmpCapsEqual        uint32 = 0x00000004
	PCmpCapsLessEqual    uint32 = 0x00000008
	PCmpCapsGreater      uint32 = 0x00000010
	PCmpCapsNotEqual     uint32 = 0x00000020
	PCmpCapsGreaterEqual uint32 = 0x00000040
	PCmpCapsAlways       uint32 = 0x00000080
)

// Blend caps bits, used for SrcBlendCaps and DestBlendCaps.
const (
	PBlendCapsZero        uint32 = 0x00000001
	PBlendCapsOne         uint32 = 0x00000002
	PBlendCapsSrcAlpha    uint32 = 0x00000010
	PBlendCapsInvSrcAlpha uint32 = 0x00000020
)

// TextureCaps bits.
const (
	PTextureCapsPow2               uint32 = 0x00000002
	PTextureCapsSquareOnly         uint32 = 0x00000020
	PTextureCapsNonPow2Conditional uint32 = 0x00000100
	PTextureCapsMipMap             uint32 = 0x00004000
)

// PixelShaderVersion encodes a pixel shader model version.
func PixelShaderVersion(major, minor uint32) uint32 {
	return 0xFFFF0000 | major<<8 | minor
}

// VertexShaderVersion encodes a vertex shader model version.
func VertexShaderVersion(major, minor uint32) uint32 {
	return 0xFFFE0000 | major<<8 | minor
}

// ShaderVersionMajor returns the major number of an encoded shader version.
func ShaderVersionMajor(v uint32) uint32 { return (v >> 8) & 0xFF }

// ShaderVersionMinor returns the minor number of an encoded shader version.
func ShaderVersionMinor(v uint32) uint32 { return v & 0xFF }

// Has reports whether all bits of mask are set in v.
func Has(v, mask uint32) bool { return v&mask == mask }
