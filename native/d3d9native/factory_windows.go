// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

// Package d3d9native implements the native device boundary on Direct3D9
// through github.com/gonutz/d3d9.
//
// The gonutz bindings expose IDirect3D9 only, so the factory never
// offers Ex devices and the pipeline falls back to the managed pool.
package d3d9native

import (
	"bytes"
	"fmt"

	"github.com/gonutz/d3d9"

	"github.com/gogpu/d3dpipe/native"
)

// Factory wraps an IDirect3D9 object.
type Factory struct {
	d3d      *d3d9.Direct3D
	released bool
}

var _ native.Factory = (*Factory)(nil)

// NewFactory loads d3d9.dll and creates the Direct3D9 object.
func NewFactory() (*Factory, error) {
	d, err := d3d9.Create(d3d9.SDK_VERSION)
	if err != nil {
		return nil, fmt.Errorf("d3d9native: create: %w", result(err))
	}
	return &Factory{d3d: d}, nil
}

func (f *Factory) ordinal(i int) (uint, error) {
	if f.released || i < 0 || i >= f.AdapterCount() {
		return 0, native.ErrInvalidCall
	}
	return uint(i), nil
}

// AdapterCount implements native.Factory.
func (f *Factory) AdapterCount() int {
	if f.released {
		return 0
	}
	return int(f.d3d.GetAdapterCount())
}

// AdapterIdentifier implements native.Factory.
func (f *Factory) AdapterIdentifier(i int) (native.AdapterIdentifier, error) {
	a, err := f.ordinal(i)
	if err != nil {
		return native.AdapterIdentifier{}, err
	}
	id, err := f.d3d.GetAdapterIdentifier(a, 0)
	if err != nil {
		return native.AdapterIdentifier{}, result(err)
	}
	return native.AdapterIdentifier{
		Driver:        cstring(id.Driver[:]),
		Description:   cstring(id.Description[:]),
		VendorID:      id.VendorId,
		DeviceID:      id.DeviceId,
		SubSysID:      id.SubSysId,
		Revision:      id.Revision,
		DriverVersion: uint64(id.DriverVersion),
	}, nil
}

// AdapterDisplayMode implements native.Factory.
func (f *Factory) AdapterDisplayMode(i int) (native.DisplayMode, error) {
	a, err := f.ordinal(i)
	if err != nil {
		return native.DisplayMode{}, err
	}
	mode, err := f.d3d.GetAdapterDisplayMode(a)
	if err != nil {
		return native.DisplayMode{}, result(err)
	}
	return native.DisplayMode{
		Width:       mode.Width,
		Height:      mode.Height,
		RefreshRate: mode.RefreshRate,
		Format:      native.Format(mode.Format),
	}, nil
}

// DeviceCaps implements native.Factory.
func (f *Factory) DeviceCaps(i int, deviceType native.DeviceType) (native.Caps, error) {
	a, err := f.ordinal(i)
	if err != nil {
		return native.Caps{}, err
	}
	c, err := f.d3d.GetDeviceCaps(a, d3d9.DEVTYPE(deviceType))
	if err != nil {
		return native.Caps{}, result(err)
	}
	return native.Caps{
		DeviceType:           native.DeviceType(c.DeviceType),
		AdapterOrdinal:       int(c.AdapterOrdinal),
		Caps2:                c.Caps2,
		DevCaps:              c.DevCaps,
		PrimitiveMiscCaps:    c.PrimitiveMiscCaps,
		RasterCaps:           c.RasterCaps,
		ZCmpCaps:             c.ZCmpCaps,
		SrcBlendCaps:         c.SrcBlendCaps,
		DestBlendCaps:        c.DestBlendCaps,
		TextureCaps:          c.TextureCaps,
		MaxTextureWidth:      c.MaxTextureWidth,
		MaxTextureHeight:     c.MaxTextureHeight,
		VertexShaderVersion:  c.VertexShaderVersion,
		PixelShaderVersion:   c.PixelShaderVersion,
		MaxVertexShaderConst: c.MaxVertexShaderConst,
	}, nil
}

// CheckDeviceType implements native.Factory.
func (f *Factory) CheckDeviceType(i int, deviceType native.DeviceType, displayFormat, backBufferFormat native.Format, windowed bool) error {
	a, err := f.ordinal(i)
	if err != nil {
		return err
	}
	return result(f.d3d.CheckDeviceType(a, d3d9.DEVTYPE(deviceType),
		d3d9.FORMAT(displayFormat), d3d9.FORMAT(backBufferFormat), windowed))
}

// CheckDeviceFormat implements native.Factory.
func (f *Factory) CheckDeviceFormat(i int, deviceType native.DeviceType, adapterFormat native.Format, usage native.Usage, rtype native.ResourceType, check native.Format) error {
	a, err := f.ordinal(i)
	if err != nil {
		return err
	}
	return result(f.d3d.CheckDeviceFormat(a, d3d9.DEVTYPE(deviceType), d3d9.FORMAT(adapterFormat),
		uint32(usage), d3d9.RESOURCETYPE(rtype), d3d9.FORMAT(check)))
}

// CheckDepthStencilMatch implements native.Factory.
func (f *Factory) CheckDepthStencilMatch(i int, deviceType native.DeviceType, adapterFormat, target, depth native.Format) error {
	a, err := f.ordinal(i)
	if err != nil {
		return err
	}
	return result(f.d3d.CheckDepthStencilMatch(a, d3d9.DEVTYPE(deviceType),
		d3d9.FORMAT(adapterFormat), d3d9.FORMAT(target), d3d9.FORMAT(depth)))
}

// CheckDeviceMultiSampleType implements native.Factory.
func (f *Factory) CheckDeviceMultiSampleType(i int, deviceType native.DeviceType, format native.Format, windowed bool, ms native.MultisampleType) (uint32, error) {
	a, err := f.ordinal(i)
	if err != nil {
		return 0, err
	}
	levels, err := f.d3d.CheckDeviceMultiSampleType(a, d3d9.DEVTYPE(deviceType),
		d3d9.FORMAT(format), windowed, d3d9.MULTISAMPLE_TYPE(ms))
	if err != nil {
		return 0, result(err)
	}
	return levels, nil
}

// CreateDevice implements native.Factory.
func (f *Factory) CreateDevice(i int, deviceType native.DeviceType, focus uintptr, flags native.CreateFlags, pp *native.PresentParams) (native.Device, error) {
	a, err := f.ordinal(i)
	if err != nil {
		return nil, err
	}
	if pp == nil {
		return nil, native.ErrInvalidCall
	}
	dev, actual, err := f.d3d.CreateDevice(a, d3d9.DEVTYPE(deviceType), d3d9.HWND(focus), uint32(flags), toPresentParams(*pp))
	if err != nil {
		return nil, result(err)
	}
	*pp = fromPresentParams(actual)
	return &Device{dev: dev, params: *pp}, nil
}

// Release implements native.Factory.
func (f *Factory) Release() {
	if f.released {
		return
	}
	f.released = true
	f.d3d.Release()
}

func cstring(b []byte) string {
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return string(b)
}
