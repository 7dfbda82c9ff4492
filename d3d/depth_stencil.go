// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"fmt"

	"github.com/gogpu/d3dpipe/native"
)

// DepthStencilFormats is the preference order used when choosing a
// depth/stencil format for a render target.
var DepthStencilFormats = []native.Format{
	native.FormatD32,
	native.FormatD24S8,
	native.FormatD24X8,
	native.FormatD16,
}

// matchingDepthStencilFormat returns the first preferred format that the
// adapter supports as a depth/stencil surface and that matches target.
func matchingDepthStencilFormat(f native.Factory, adapter int, devType native.DeviceType, adapterFormat, targetFormat native.Format) (native.Format, error) {
	for _, ds := range DepthStencilFormats {
		if err := f.CheckDeviceFormat(adapter, devType, adapterFormat, native.UsageDepthStencil, native.ResourceSurface, ds); err != nil {
			continue
		}
		if err := f.CheckDepthStencilMatch(adapter, devType, adapterFormat, targetFormat, ds); err != nil {
			continue
		}
		return ds, nil
	}
	return native.FormatUnknown, &Error{
		Kind: KindCapability, Op: "match depth/stencil format", Code: native.ErrNotAvailable,
		Err: fmt.Errorf("%w: target %s on adapter format %s", ErrNoDepthStencilFormat, targetFormat, adapterFormat),
	}
}

// IsDepthStencilBufferOk reports whether existing can serve as the depth
// buffer of a target described by target. It is true when existing is
// nil. Otherwise the depth surface must be at least as large, use the
// same multisample type and quality, and pass the native depth/stencil
// match against the current display mode.
func (c *Context) IsDepthStencilBufferOk(target native.SurfaceDesc, existing native.Surface) bool {
	if existing == nil {
		return true
	}
	d := existing.Desc()
	if d.Width < target.Width || d.Height < target.Height {
		return false
	}
	if d.Multisample != target.Multisample || d.MultisampleQuality != target.MultisampleQuality {
		return false
	}
	return c.factory.CheckDepthStencilMatch(c.adapter, c.opts.deviceType, c.mode.Format, target.Format, d.Format) == nil
}

// createDepthStencil allocates a depth/stencil surface matching target.
func (c *Context) createDepthStencil(target native.SurfaceDesc) (native.Surface, error) {
	const op = "create depth/stencil"
	format, err := matchingDepthStencilFormat(c.factory, c.adapter, c.opts.deviceType, c.mode.Format, target.Format)
	if err != nil {
		return nil, err
	}
	ds, err := c.dev.CreateDepthStencilSurface(target.Width, target.Height, format,
		target.Multisample, target.MultisampleQuality, false)
	if err != nil {
		return nil, nativeError(KindAllocation, op, err)
	}
	c.log.Debug("d3d: depth buffer created",
		"width", target.Width, "height", target.Height, "format", format, "ms", target.Multisample)
	return ds, nil
}
