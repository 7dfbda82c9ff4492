// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package nativetest provides a scriptable in-memory native.Factory for
// tests. Every device call is recorded so tests can assert on the exact
// sequence the pipeline issues.
package nativetest

import (
	"fmt"

	"github.com/gogpu/d3dpipe/native"
)

// Adapter describes one fake adapter.
type Adapter struct {
	Identifier native.AdapterIdentifier
	Mode       native.DisplayMode
	Caps       native.Caps

	// DeviceTypeErr is returned by CheckDeviceType.
	DeviceTypeErr error
	// CreateErr is returned by CreateDevice and CreateDeviceEx.
	CreateErr error
	// DepthFormats lists the depth/stencil formats the adapter supports.
	// Nil means every depth format.
	DepthFormats []native.Format
	// Fail seeds the Fail map of every device created on the adapter.
	Fail map[string]error
}

// GoodCaps returns capabilities that pass every pipeline requirement.
func GoodCaps() native.Caps {
	return native.Caps{
		DeviceType:        native.DeviceTypeHAL,
		Caps2:             native.Caps2DynamicTextures,
		DevCaps:           native.DevCapsHWTransformAndLight,
		PrimitiveMiscCaps: native.PMiscCapsMaskZ | native.PMiscCapsCullNone | native.PMiscCapsBlendOp,
		RasterCaps:        native.RasterCapsScissorTest,
		ZCmpCaps:          native.PCmpCapsLessEqual | native.PCmpCapsAlways | native.PCmpCapsLess,
		SrcBlendCaps: native.PBlendCapsZero | native.PBlendCapsOne |
			native.PBlendCapsSrcAlpha | native.PBlendCapsInvSrcAlpha,
		DestBlendCaps: native.PBlendCapsZero | native.PBlendCapsOne |
			native.PBlendCapsSrcAlpha | native.PBlendCapsInvSrcAlpha,
		TextureCaps:          native.PTextureCapsMipMap,
		MaxTextureWidth:      8192,
		MaxTextureHeight:     8192,
		VertexShaderVersion:  native.VertexShaderVersion(3, 0),
		PixelShaderVersion:   native.PixelShaderVersion(3, 0),
		MaxVertexShaderConst: 256,
	}
}

// GoodAdapter returns an adapter that passes every check.
func GoodAdapter(deviceID uint32) Adapter {
	return Adapter{
		Identifier: native.AdapterIdentifier{
			Driver:        "fake.dll",
			Description:   fmt.Sprintf("Fake Adapter %04X", deviceID),
			VendorID:      0x10DE,
			DeviceID:      deviceID,
			DriverVersion: native.DriverVersion(31, 0, 15, 3000),
		},
		Mode: native.DisplayMode{Width: 1920, Height: 1080, RefreshRate: 60, Format: native.FormatX8R8G8B8},
		Caps: GoodCaps(),
	}
}

// Factory is a fake native.Factory.
type Factory struct {
	Adapters []Adapter

	// Devices holds every device created, in creation order.
	Devices []*Device

	// Released is set by Release.
	Released bool
}

var _ native.Factory = (*Factory)(nil)

// NewFactory returns a factory with the given adapters.
func NewFactory(adapters ...Adapter) *Factory {
	return &Factory{Adapters: adapters}
}

func (f *Factory) adapter(i int) (*Adapter, error) {
	if i < 0 || i >= len(f.Adapters) {
		return nil, native.ErrInvalidCall
	}
	return &f.Adapters[i], nil
}

// AdapterCount implements native.Factory.
func (f *Factory) AdapterCount() int { return len(f.Adapters) }

// AdapterIdentifier implements native.Factory.
func (f *Factory) AdapterIdentifier(adapter int) (native.AdapterIdentifier, error) {
	a, err := f.adapter(adapter)
	if err != nil {
		return native.AdapterIdentifier{}, err
	}
	return a.Identifier, nil
}

// AdapterDisplayMode implements native.Factory.
func (f *Factory) AdapterDisplayMode(adapter int) (native.DisplayMode, error) {
	a, err := f.adapter(adapter)
	if err != nil {
		return native.DisplayMode{}, err
	}
	return a.Mode, nil
}

// DeviceCaps implements native.Factory.
func (f *Factory) DeviceCaps(adapter int, deviceType native.DeviceType) (native.Caps, error) {
	a, err := f.adapter(adapter)
	if err != nil {
		return native.Caps{}, err
	}
	caps := a.Caps
	caps.AdapterOrdinal = adapter
	caps.DeviceType = deviceType
	return caps, nil
}

// CheckDeviceType implements native.Factory.
func (f *Factory) CheckDeviceType(adapter int, _ native.DeviceType, _, _ native.Format, _ bool) error {
	a, err := f.adapter(adapter)
	if err != nil {
		return err
	}
	return a.DeviceTypeErr
}

// CheckDeviceFormat implements native.Factory.
func (f *Factory) CheckDeviceFormat(adapter int, _ native.DeviceType, _ native.Format, usage native.Usage, _ native.ResourceType, check native.Format) error {
	a, err := f.adapter(adapter)
	if err != nil {
		return err
	}
	if usage&native.UsageDepthStencil == 0 {
		return nil
	}
	if !check.IsDepthStencil() {
		return native.ErrNotAvailable
	}
	if a.DepthFormats == nil {
		return nil
	}
	for _, df := range a.DepthFormats {
		if df == check {
			return nil
		}
	}
	return native.ErrNotAvailable
}

// CheckDepthStencilMatch implements native.Factory.
// 16-bit depth only matches 16-bit targets; everything else matches.
func (f *Factory) CheckDepthStencilMatch(adapter int, _ native.DeviceType, _, target, depth native.Format) error {
	if _, err := f.adapter(adapter); err != nil {
		return err
	}
	if !depth.IsDepthStencil() {
		return native.ErrNotAvailable
	}
	if target == native.FormatR5G6B5 && depth != native.FormatD16 {
		return native.ErrNotAvailable
	}
	return nil
}

// CheckDeviceMultiSampleType implements native.Factory.
func (f *Factory) CheckDeviceMultiSampleType(adapter int, _ native.DeviceType, _ native.Format, _ bool, ms native.MultisampleType) (uint32, error) {
	if _, err := f.adapter(adapter); err != nil {
		return 0, err
	}
	switch ms {
	case native.MultisampleNone, native.Multisample2, native.Multisample4:
		return 1, nil
	}
	return 0, native.ErrNotAvailable
}

// CreateDevice implements native.Factory.
func (f *Factory) CreateDevice(adapter int, deviceType native.DeviceType, focus uintptr, flags native.CreateFlags, pp *native.PresentParams) (native.Device, error) {
	return f.createDevice(adapter, deviceType, focus, flags, pp)
}

func (f *Factory) createDevice(adapter int, deviceType native.DeviceType, focus uintptr, flags native.CreateFlags, pp *native.PresentParams) (*Device, error) {
	a, err := f.adapter(adapter)
	if err != nil {
		return nil, err
	}
	if a.CreateErr != nil {
		return nil, a.CreateErr
	}
	if pp.BackBufferFormat == native.FormatUnknown {
		pp.BackBufferFormat = a.Mode.Format
	}
	d := newDevice(adapter, deviceType, focus, flags, *pp)
	for name, err := range a.Fail {
		d.Fail[name] = err
	}
	f.Devices = append(f.Devices, d)
	return d, nil
}

// Release implements native.Factory.
func (f *Factory) Release() { f.Released = true }

// LastDevice returns the most recently created device, or nil.
func (f *Factory) LastDevice() *Device {
	if len(f.Devices) == 0 {
		return nil
	}
	return f.Devices[len(f.Devices)-1]
}

// FactoryEx is a fake native.FactoryEx.
type FactoryEx struct {
	*Factory

	// ExErr makes CreateDeviceEx fail.
	ExErr error
}

var _ native.FactoryEx = (*FactoryEx)(nil)

// NewFactoryEx returns an Ex factory with the given adapters.
func NewFactoryEx(adapters ...Adapter) *FactoryEx {
	return &FactoryEx{Factory: NewFactory(adapters...)}
}

// CreateDeviceEx implements native.FactoryEx.
func (f *FactoryEx) CreateDeviceEx(adapter int, deviceType native.DeviceType, focus uintptr, flags native.CreateFlags, pp *native.PresentParams) (native.DeviceEx, error) {
	if f.ExErr != nil {
		return nil, f.ExErr
	}
	d, err := f.createDevice(adapter, deviceType, focus, flags, pp)
	if err != nil {
		return nil, err
	}
	d.Ex = true
	return &DeviceEx{Device: d}, nil
}

// DeviceEx is a fake native.DeviceEx.
type DeviceEx struct {
	*Device
}

// CheckDeviceState implements native.DeviceEx.
func (d *DeviceEx) CheckDeviceState(uintptr) error {
	d.record("CheckDeviceState")
	return d.StateErr
}
