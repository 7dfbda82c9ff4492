// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halnative implements the native device boundary on top of
// github.com/gogpu/wgpu/hal.
//
// It is a headless device: every resource keeps a host copy that Lock
// calls map directly, and device-visible resources mirror that copy into
// a HAL buffer or texture on unlock. Draws into a single-sampled render
// target are recorded as one HAL render pass each, with the vertex shader
// set on the device and either the pixel shader or a built-in diffuse
// fragment shader. Rendered targets are copied back through a mapped
// staging buffer the next time their host copy is read. Draws into a
// multisampled back buffer are validated and counted only.
//
// The software HAL backend rasterizes on the CPU and is enough to run
// the pipeline on hosts without Direct3D9 or a GPU.
package halnative

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/d3dpipe/native"
)

// API creates HAL instances. Both the registered HAL backends and
// noop.API satisfy it.
type API interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// vendorGoGPU is reported for adapters whose PCI ids are not exposed.
const vendorGoGPU = 0x676F

// Factory enumerates HAL adapters as native adapters.
type Factory struct {
	instance   hal.Instance
	adapters   []adapter
	maxTexture uint32
	released   bool
}

type adapter struct {
	info   native.AdapterIdentifier
	format native.Format

	// shared is set for adapters that wrap a host device.
	shared *sharedDevice
	exp    *hal.ExposedAdapter
}

type sharedDevice struct {
	device hal.Device
	queue  hal.Queue
}

var (
	_ native.Factory   = (*Factory)(nil)
	_ native.FactoryEx = (*Factory)(nil)
)

// NewFactory creates an instance through api and exposes its adapters.
func NewFactory(api API) (*Factory, error) {
	if api == nil {
		return nil, fmt.Errorf("halnative: nil API: %w", native.ErrNotAvailable)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("halnative: create instance: %w", err)
	}
	exposed := instance.EnumerateAdapters(nil)
	f := &Factory{instance: instance, maxTexture: gputypes.DefaultLimits().MaxTextureDimension2D}
	for i := range exposed {
		e := &exposed[i]
		f.adapters = append(f.adapters, adapter{
			info: native.AdapterIdentifier{
				Driver:        "wgpu-hal",
				Description:   e.Info.Name,
				VendorID:      vendorGoGPU,
				DeviceID:      uint32(i + 1),
				DriverVersion: native.DriverVersion(1, 0, 0, 0),
			},
			format: native.FormatX8R8G8B8,
			exp:    e,
		})
	}
	return f, nil
}

// Open creates a factory over a registered HAL backend.
func Open(backend gputypes.Backend) (*Factory, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("halnative: backend %v not registered: %w", backend, native.ErrNotAvailable)
	}
	return NewFactory(b)
}

// NewFactoryFromProvider exposes a device owned by the host application
// as a single adapter. The provider must also expose its HAL objects
// through HalDevice and HalQueue. The device is never destroyed by the
// factory.
func NewFactoryFromProvider(provider gpucontext.DeviceProvider) (*Factory, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("halnative: provider does not expose HAL types: %w", native.ErrNotAvailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("halnative: provider HalDevice is not hal.Device: %w", native.ErrNotAvailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("halnative: provider HalQueue is not hal.Queue: %w", native.ErrNotAvailable)
	}

	format := native.FormatX8R8G8B8
	if provider.SurfaceFormat() == gputypes.TextureFormatRGBA8Unorm {
		format = native.FormatX8B8G8R8
	}
	return &Factory{
		maxTexture: gputypes.DefaultLimits().MaxTextureDimension2D,
		adapters: []adapter{{
			info: native.AdapterIdentifier{
				Driver:        "wgpu-hal",
				Description:   "shared device",
				VendorID:      vendorGoGPU,
				DeviceID:      1,
				DriverVersion: native.DriverVersion(1, 0, 0, 0),
			},
			format: format,
			shared: &sharedDevice{device: device, queue: queue},
		}},
	}, nil
}

func (f *Factory) adapter(i int) (*adapter, error) {
	if f.released || i < 0 || i >= len(f.adapters) {
		return nil, native.ErrInvalidCall
	}
	return &f.adapters[i], nil
}

// AdapterCount implements native.Factory.
func (f *Factory) AdapterCount() int {
	if f.released {
		return 0
	}
	return len(f.adapters)
}

// AdapterIdentifier implements native.Factory.
func (f *Factory) AdapterIdentifier(i int) (native.AdapterIdentifier, error) {
	a, err := f.adapter(i)
	if err != nil {
		return native.AdapterIdentifier{}, err
	}
	return a.info, nil
}

// AdapterDisplayMode implements native.Factory. Headless adapters
// report a fixed 1920x1080 desktop.
func (f *Factory) AdapterDisplayMode(i int) (native.DisplayMode, error) {
	a, err := f.adapter(i)
	if err != nil {
		return native.DisplayMode{}, err
	}
	return native.DisplayMode{Width: 1920, Height: 1080, RefreshRate: 60, Format: a.format}, nil
}

// DeviceCaps implements native.Factory.
func (f *Factory) DeviceCaps(i int, deviceType native.DeviceType) (native.Caps, error) {
	if _, err := f.adapter(i); err != nil {
		return native.Caps{}, err
	}
	if deviceType == native.DeviceTypeSW {
		return native.Caps{}, native.ErrNotAvailable
	}
	blend := native.PBlendCapsZero | native.PBlendCapsOne | native.PBlendCapsSrcAlpha | native.PBlendCapsInvSrcAlpha
	return native.Caps{
		DeviceType:        deviceType,
		AdapterOrdinal:    i,
		Caps2:             native.Caps2DynamicTextures,
		DevCaps:           native.DevCapsHWTransformAndLight,
		PrimitiveMiscCaps: native.PMiscCapsMaskZ | native.PMiscCapsCullNone | native.PMiscCapsBlendOp,
		RasterCaps:        native.RasterCapsScissorTest,
		ZCmpCaps: native.PCmpCapsNever | native.PCmpCapsLess | native.PCmpCapsEqual | native.PCmpCapsLessEqual |
			native.PCmpCapsGreater | native.PCmpCapsNotEqual | native.PCmpCapsGreaterEqual | native.PCmpCapsAlways,
		SrcBlendCaps:         blend,
		DestBlendCaps:        blend,
		TextureCaps:          native.PTextureCapsMipMap,
		MaxTextureWidth:      f.maxTexture,
		MaxTextureHeight:     f.maxTexture,
		VertexShaderVersion:  native.VertexShaderVersion(3, 0),
		PixelShaderVersion:   native.PixelShaderVersion(3, 0),
		MaxVertexShaderConst: constantRegisters,
	}, nil
}

// CheckDeviceType implements native.Factory.
func (f *Factory) CheckDeviceType(i int, deviceType native.DeviceType, displayFormat, backBufferFormat native.Format, _ bool) error {
	a, err := f.adapter(i)
	if err != nil {
		return err
	}
	if deviceType == native.DeviceTypeSW {
		return native.ErrNotAvailable
	}
	if displayFormat != a.format {
		return native.ErrNotAvailable
	}
	if _, ok := textureFormat(backBufferFormat); !ok || backBufferFormat.IsDepthStencil() {
		return native.ErrNotAvailable
	}
	return nil
}

// CheckDeviceFormat implements native.Factory.
func (f *Factory) CheckDeviceFormat(i int, _ native.DeviceType, _ native.Format, usage native.Usage, rtype native.ResourceType, check native.Format) error {
	if _, err := f.adapter(i); err != nil {
		return err
	}
	if _, ok := textureFormat(check); !ok {
		return native.ErrNotAvailable
	}
	if usage&native.UsageDepthStencil != 0 && (!check.IsDepthStencil() || rtype != native.ResourceSurface) {
		return native.ErrNotAvailable
	}
	if usage&native.UsageDepthStencil == 0 && check.IsDepthStencil() {
		return native.ErrNotAvailable
	}
	return nil
}

// CheckDepthStencilMatch implements native.Factory. Every depth format
// is stored as 24-bit depth with stencil, so it matches any target.
func (f *Factory) CheckDepthStencilMatch(i int, _ native.DeviceType, _, target, depth native.Format) error {
	if _, err := f.adapter(i); err != nil {
		return err
	}
	if !depth.IsDepthStencil() || target.IsDepthStencil() {
		return native.ErrNotAvailable
	}
	if _, ok := textureFormat(target); !ok {
		return native.ErrNotAvailable
	}
	return nil
}

// CheckDeviceMultiSampleType implements native.Factory. WebGPU-class
// devices guarantee one and four samples.
func (f *Factory) CheckDeviceMultiSampleType(i int, _ native.DeviceType, format native.Format, _ bool, ms native.MultisampleType) (uint32, error) {
	if _, err := f.adapter(i); err != nil {
		return 0, err
	}
	if _, ok := textureFormat(format); !ok {
		return 0, native.ErrNotAvailable
	}
	switch ms {
	case native.MultisampleNone, native.Multisample4:
		return 1, nil
	}
	return 0, native.ErrNotAvailable
}

// CreateDevice implements native.Factory.
func (f *Factory) CreateDevice(i int, deviceType native.DeviceType, focus uintptr, flags native.CreateFlags, pp *native.PresentParams) (native.Device, error) {
	return f.createDevice(i, deviceType, focus, pp, false)
}

// CreateDeviceEx implements native.FactoryEx.
func (f *Factory) CreateDeviceEx(i int, deviceType native.DeviceType, focus uintptr, flags native.CreateFlags, pp *native.PresentParams) (native.DeviceEx, error) {
	return f.createDevice(i, deviceType, focus, pp, true)
}

func (f *Factory) createDevice(i int, deviceType native.DeviceType, focus uintptr, pp *native.PresentParams, ex bool) (*Device, error) {
	a, err := f.adapter(i)
	if err != nil {
		return nil, err
	}
	if pp == nil {
		return nil, native.ErrInvalidCall
	}
	if err := f.CheckDeviceType(i, deviceType, a.format, backBufferFormat(*pp, a.format), true); err != nil {
		return nil, err
	}

	var dev hal.Device
	var queue hal.Queue
	owned := a.shared == nil
	if owned {
		open, err := a.exp.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
		if err != nil {
			return nil, fmt.Errorf("halnative: open device: %w: %w", native.ErrNotAvailable, err)
		}
		dev, queue = open.Device, open.Queue
	} else {
		dev, queue = a.shared.device, a.shared.queue
	}

	d, err := newDevice(dev, queue, owned, deviceType, focus, a.format, pp, ex)
	if err != nil {
		if owned {
			dev.Destroy()
		}
		return nil, err
	}
	return d, nil
}

// Release implements native.Factory. Devices created by the factory
// stay valid until they are released themselves.
func (f *Factory) Release() {
	if f.released {
		return
	}
	f.released = true
	if f.instance != nil {
		f.instance.Destroy()
	}
}

func backBufferFormat(pp native.PresentParams, display native.Format) native.Format {
	if pp.BackBufferFormat == native.FormatUnknown {
		return display
	}
	return pp.BackBufferFormat
}
