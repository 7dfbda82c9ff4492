// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

// Factory enumerates adapters and creates devices on them.
// It corresponds to the IDirect3D9 object.
type Factory interface {
	// AdapterCount returns the number of adapters present.
	AdapterCount() int

	AdapterIdentifier(adapter int) (AdapterIdentifier, error)
	AdapterDisplayMode(adapter int) (DisplayMode, error)
	DeviceCaps(adapter int, deviceType DeviceType) (Caps, error)

	// CheckDeviceType verifies that a device of the given type can be
	// created for the display and back buffer formats.
	CheckDeviceType(adapter int, deviceType DeviceType, displayFormat, backBufferFormat Format, windowed bool) error

	// CheckDeviceFormat verifies that a resource of the given format and
	// usage can be created.
	CheckDeviceFormat(adapter int, deviceType DeviceType, adapterFormat Format, usage Usage, rtype ResourceType, checkFormat Format) error

	// CheckDepthStencilMatch verifies that a depth/stencil format can be
	// used with a render target format.
	CheckDepthStencilMatch(adapter int, deviceType DeviceType, adapterFormat, renderTargetFormat, depthStencilFormat Format) error

	// CheckDeviceMultiSampleType returns the number of quality levels for
	// a multisample type, or an error if unsupported.
	CheckDeviceMultiSampleType(adapter int, deviceType DeviceType, surfaceFormat Format, windowed bool, ms MultisampleType) (uint32, error)

	// CreateDevice creates a device. The returned PresentParams are
	// updated in place with the values the driver chose.
	CreateDevice(adapter int, deviceType DeviceType, focusWindow uintptr, flags CreateFlags, pp *PresentParams) (Device, error)

	Release()
}

// FactoryEx is a Factory that can create devices with robust loss
// detection (IDirect3D9Ex). Resources of an Ex device may live in the
// default pool everywhere.
type FactoryEx interface {
	Factory
	CreateDeviceEx(adapter int, deviceType DeviceType, focusWindow uintptr, flags CreateFlags, pp *PresentParams) (DeviceEx, error)
}

// Device is a logical GPU device (IDirect3DDevice9).
//
// Device methods must be called from a single goroutine.
type Device interface {
	// TestCooperativeLevel returns nil, ErrDeviceLost or ErrDeviceNotReset.
	TestCooperativeLevel() error
	// Reset resets the device; it fails while default-pool resources exist.
	Reset(pp *PresentParams) error

	BeginScene() error
	EndScene() error
	Present(window uintptr) error

	CreateTexture(width, height, levels uint32, usage Usage, format Format, pool Pool) (Texture, error)
	CreateOffscreenPlainSurface(width, height uint32, format Format, pool Pool) (Surface, error)
	CreateDepthStencilSurface(width, height uint32, format Format, ms MultisampleType, quality uint32, discard bool) (Surface, error)
	CreateAdditionalSwapChain(pp *PresentParams) (SwapChain, error)
	CreateVertexBuffer(length uint32, usage Usage, pool Pool) (VertexBuffer, error)
	CreateIndexBuffer(length uint32, usage Usage, format Format, pool Pool) (IndexBuffer, error)
	CreateVertexDeclaration(elements []VertexElement) (VertexDeclaration, error)
	CreateVertexShader(code []byte) (Shader, error)
	CreatePixelShader(code []byte) (Shader, error)

	SetRenderTarget(index int, target Surface) error
	// SetDepthStencilSurface binds a depth/stencil surface; nil unbinds.
	SetDepthStencilSurface(ds Surface) error
	SetRenderState(state RenderState, value uint32) error
	SetScissorRect(r Rect) error
	SetVertexShaderConstantF(register int, data []float32) error
	SetVertexDeclaration(decl VertexDeclaration) error
	SetVertexShader(s Shader) error
	SetPixelShader(s Shader) error
	SetStreamSource(stream int, vb VertexBuffer, offset, stride uint32) error
	SetIndices(ib IndexBuffer) error

	DrawPrimitive(pt PrimitiveType, startVertex, primCount uint32) error
	DrawIndexedPrimitive(pt PrimitiveType, baseVertex int32, minIndex, numVertices, startIndex, primCount uint32) error

	// GetRenderTargetData copies a render target into a system memory surface.
	GetRenderTargetData(src, dst Surface) error
	// UpdateSurface copies a system memory surface region into a default
	// pool surface at (x, y).
	UpdateSurface(src Surface, srcRect *Rect, dst Surface, x, y int32) error

	Release()
}

// DeviceEx is a Device created through FactoryEx (IDirect3DDevice9Ex).
type DeviceEx interface {
	Device
	// CheckDeviceState reports the device state for a window.
	CheckDeviceState(window uintptr) error
}

// Surface is a 2D image (IDirect3DSurface9).
type Surface interface {
	Desc() SurfaceDesc
	LockRect(rect *Rect, flags LockFlags) (LockedRect, error)
	UnlockRect() error
	Release()
}

// Texture is a mipmapped image (IDirect3DTexture9).
type Texture interface {
	Desc() SurfaceDesc
	// SurfaceLevel returns the surface of a mip level. The caller owns the
	// returned surface and must release it.
	SurfaceLevel(level uint32) (Surface, error)
	LockRect(level uint32, rect *Rect, flags LockFlags) (LockedRect, error)
	UnlockRect(level uint32) error
	Release()
}

// SwapChain presents to a window (IDirect3DSwapChain9).
type SwapChain interface {
	PresentParams() PresentParams
	// BackBuffer returns a back buffer surface owned by the caller.
	BackBuffer(index uint32) (Surface, error)
	Present() error
	Release()
}

// VertexBuffer is a device vertex buffer.
type VertexBuffer interface {
	Length() uint32
	Lock(offset, size uint32, flags LockFlags) ([]byte, error)
	Unlock() error
	Release()
}

// IndexBuffer is a device index buffer.
type IndexBuffer interface {
	Length() uint32
	Lock(offset, size uint32, flags LockFlags) ([]byte, error)
	Unlock() error
	Release()
}

// VertexDeclaration describes vertex stream layout.
type VertexDeclaration interface {
	Release()
}

// Shader is a compiled vertex or pixel shader object.
type Shader interface {
	Release()
}

// BuiltinShaders is implemented by devices that can supply the bytecode
// of the pass-through vertex shader used for 2D compositing.
type BuiltinShaders interface {
	PassThroughVertexShader() ([]byte, error)
}
