// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "fmt"

// Pool is the memory class a resource is allocated in.
type Pool uint32

// Memory pools.
const (
	// PoolDefault is device-resident memory lost on device reset.
	PoolDefault Pool = 0
	// PoolManaged is shadowed by the driver and survives reset.
	PoolManaged Pool = 1
	// PoolSystemMem is host memory; it always survives reset.
	PoolSystemMem Pool = 2
	// PoolScratch is host memory not accessible to the device.
	PoolScratch Pool = 3
)

// String returns the pool name.
func (p Pool) String() string {
	switch p {
	case PoolDefault:
		return "default"
	case PoolManaged:
		return "managed"
	case PoolSystemMem:
		return "systemmem"
	case PoolScratch:
		return "scratch"
	}
	return fmt.Sprintf("Pool(%d)", uint32(p))
}

// Usage is a set of resource usage flags.
type Usage uint32

// Usage flags.
const (
	UsageRenderTarget       Usage = 0x00000001
	UsageDepthStencil       Usage = 0x00000002
	UsageWriteOnly          Usage = 0x00000008
	UsageSoftwareProcessing Usage = 0x00000010
	UsageDynamic            Usage = 0x00000200
)

// DeviceType selects the rasterizer behind a device.
type DeviceType uint32

// Device types.
const (
	DeviceTypeHAL     DeviceType = 1
	DeviceTypeRef     DeviceType = 2
	DeviceTypeSW      DeviceType = 3
	DeviceTypeNullRef DeviceType = 4
)

// String returns the device type name.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeHAL:
		return "hal"
	case DeviceTypeRef:
		return "ref"
	case DeviceTypeSW:
		return "sw"
	case DeviceTypeNullRef:
		return "nullref"
	}
	return fmt.Sprintf("DeviceType(%d)", uint32(t))
}

// CreateFlags control device creation.
type CreateFlags uint32

// Device creation flags.
const (
	CreateFPUPreserve              CreateFlags = 0x00000002
	CreateMultithreaded            CreateFlags = 0x00000004
	CreatePureDevice               CreateFlags = 0x00000010
	CreateSoftwareVertexProcessing CreateFlags = 0x00000020
	CreateHardwareVertexProcessing CreateFlags = 0x00000040
	CreateMixedVertexProcessing    CreateFlags = 0x00000080
)

// LockFlags control buffer and surface locks.
type LockFlags uint32

// Lock flags.
const (
	LockReadOnly    LockFlags = 0x00000010
	LockNoSysLock   LockFlags = 0x00000800
	LockNoOverwrite LockFlags = 0x00001000
	LockDiscard     LockFlags = 0x00002000
)

// MultisampleType is the number of samples per pixel; 0 disables MSAA.
type MultisampleType uint32

// Common multisample types.
const (
	MultisampleNone    MultisampleType = 0
	MultisampleNonMask MultisampleType = 1
	Multisample2       MultisampleType = 2
	Multisample4       MultisampleType = 4
	Multisample8       MultisampleType = 8
)

// SwapEffect describes how a swap chain presents.
type SwapEffect uint32

// Swap effects.
const (
	SwapEffectDiscard SwapEffect = 1
	SwapEffectFlip    SwapEffect = 2
	SwapEffectCopy    SwapEffect = 3
)

// PresentInterval is the vertical sync policy of a swap chain.
type PresentInterval uint32

// Present intervals.
const (
	PresentIntervalDefault   PresentInterval = 0x00000000
	PresentIntervalOne       PresentInterval = 0x00000001
	PresentIntervalImmediate PresentInterval = 0x80000000
)

// PrimitiveType is the topology of a draw call.
type PrimitiveType uint32

// Primitive topologies.
const (
	PrimitivePointList     PrimitiveType = 1
	PrimitiveLineList      PrimitiveType = 2
	PrimitiveLineStrip     PrimitiveType = 3
	PrimitiveTriangleList  PrimitiveType = 4
	PrimitiveTriangleStrip PrimitiveType = 5
)

// ResourceType is used by format checks.
type ResourceType uint32

// Resource types.
const (
	ResourceSurface       ResourceType = 1
	ResourceTexture       ResourceType = 3
	ResourceVertexBuffer  ResourceType = 6
	ResourceIndexBuffer   ResourceType = 7
	ResourceVolumeTexture ResourceType = 4
)

// RenderState identifies a fixed-function pipeline state.
type RenderState uint32

// Render states.
const (
	RSZEnable           RenderState = 7
	RSZWriteEnable      RenderState = 14
	RSSrcBlend          RenderState = 19
	RSDestBlend         RenderState = 20
	RSCullMode          RenderState = 22
	RSZFunc             RenderState = 23
	RSAlphaBlendEnable  RenderState = 27
	RSLighting          RenderState = 137
	RSScissorTestEnable RenderState = 174
	RSMultisampleAA     RenderState = 161
	RSAntialiasedLine   RenderState = 176
)

// Render state values.
const (
	CullNone uint32 = 1

	BlendZero        uint32 = 1
	BlendOne         uint32 = 2
	BlendSrcAlpha    uint32 = 5
	BlendInvSrcAlpha uint32 = 6

	CmpLessEqual uint32 = 4
	CmpAlways    uint32 = 8
)

// Rect is an integer rectangle with exclusive right and bottom edges.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Width returns the rectangle width.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns the rectangle height.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// AdapterIdentifier describes a physical adapter.
type AdapterIdentifier struct {
	Driver        string
	Description   string
	VendorID      uint32
	DeviceID      uint32
	SubSysID      uint32
	Revision      uint32
	DriverVersion uint64
}

// DisplayMode is the current mode of an adapter's output.
type DisplayMode struct {
	Width       uint32
	Height      uint32
	RefreshRate uint32
	Format      Format
}

// PresentParams describe the swap chain of a device or an additional
// swap chain.
type PresentParams struct {
	BackBufferWidth        uint32
	BackBufferHeight       uint32
	BackBufferFormat       Format
	BackBufferCount        uint32
	Multisample            MultisampleType
	MultisampleQuality     uint32
	SwapEffect             SwapEffect
	Window                 uintptr
	Windowed               bool
	EnableAutoDepthStencil bool
	AutoDepthStencilFormat Format
	PresentInterval        PresentInterval
}

// SurfaceDesc describes a surface or texture level.
type SurfaceDesc struct {
	Format             Format
	Pool               Pool
	Usage              Usage
	Width              uint32
	Height             uint32
	Multisample        MultisampleType
	MultisampleQuality uint32
}

// LockedRect is a locked surface region. Bits is valid until UnlockRect.
type LockedRect struct {
	Pitch int
	Bits  []byte
}

// DeclType is the data type of a vertex element.
type DeclType uint8

// Vertex element types.
const (
	DeclFloat1   DeclType = 0
	DeclFloat2   DeclType = 1
	DeclFloat3   DeclType = 2
	DeclFloat4   DeclType = 3
	DeclD3DColor DeclType = 4
)

// DeclUsage is the semantic of a vertex element.
type DeclUsage uint8

// Vertex element semantics.
const (
	DeclUsagePosition DeclUsage = 0
	DeclUsageTexCoord DeclUsage = 5
	DeclUsageColor    DeclUsage = 10
)

// VertexElement is one entry of a vertex declaration.
type VertexElement struct {
	Stream     uint16
	Offset     uint16
	Type       DeclType
	Usage      DeclUsage
	UsageIndex uint8
}

// DriverVersion packs a driver version the way adapter identifiers
// report it: product.version.subversion.build, 16 bits each.
func DriverVersion(product, version, subVersion, build uint16) uint64 {
	return uint64(product)<<48 | uint64(version)<<32 | uint64(subVersion)<<16 | uint64(build)
}

// FormatDriverVersion renders a packed driver version.
func FormatDriverVersion(v uint64) string {
	return fmt.Sprintf("%d.%d.%d.%d", uint16(v>>48), uint16(v>>32), uint16(v>>16), uint16(v))
}
