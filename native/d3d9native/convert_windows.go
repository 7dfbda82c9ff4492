// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package d3d9native

import (
	"errors"
	"unsafe"

	"github.com/gonutz/d3d9"

	"github.com/gogpu/d3dpipe/native"
)

// result converts a d3d9 error into the native.Result it carries.
func result(err error) error {
	if err == nil {
		return nil
	}
	var e d3d9.Error
	if errors.As(err, &e) {
		return native.Result(uint32(e.Code()))
	}
	return err
}

func toPresentParams(pp native.PresentParams) d3d9.PRESENT_PARAMETERS {
	return d3d9.PRESENT_PARAMETERS{
		BackBufferWidth:        pp.BackBufferWidth,
		BackBufferHeight:       pp.BackBufferHeight,
		BackBufferFormat:       d3d9.FORMAT(pp.BackBufferFormat),
		BackBufferCount:        pp.BackBufferCount,
		MultiSampleType:        d3d9.MULTISAMPLE_TYPE(pp.Multisample),
		MultiSampleQuality:     pp.MultisampleQuality,
		SwapEffect:             d3d9.SWAPEFFECT(pp.SwapEffect),
		HDeviceWindow:          d3d9.HWND(pp.Window),
		Windowed:               boolInt(pp.Windowed),
		EnableAutoDepthStencil: boolInt(pp.EnableAutoDepthStencil),
		AutoDepthStencilFormat: d3d9.FORMAT(pp.AutoDepthStencilFormat),
		PresentationInterval:   uint32(pp.PresentInterval),
	}
}

func fromPresentParams(pp d3d9.PRESENT_PARAMETERS) native.PresentParams {
	return native.PresentParams{
		BackBufferWidth:        pp.BackBufferWidth,
		BackBufferHeight:       pp.BackBufferHeight,
		BackBufferFormat:       native.Format(pp.BackBufferFormat),
		BackBufferCount:        pp.BackBufferCount,
		Multisample:            native.MultisampleType(pp.MultiSampleType),
		MultisampleQuality:     pp.MultiSampleQuality,
		SwapEffect:             native.SwapEffect(pp.SwapEffect),
		Window:                 uintptr(pp.HDeviceWindow),
		Windowed:               pp.Windowed != 0,
		EnableAutoDepthStencil: pp.EnableAutoDepthStencil != 0,
		AutoDepthStencilFormat: native.Format(pp.AutoDepthStencilFormat),
		PresentInterval:        native.PresentInterval(pp.PresentationInterval),
	}
}

func fromSurfaceDesc(d d3d9.SURFACE_DESC) native.SurfaceDesc {
	return native.SurfaceDesc{
		Format:             native.Format(d.Format),
		Pool:               native.Pool(d.Pool),
		Usage:              native.Usage(d.Usage),
		Width:              d.Width,
		Height:             d.Height,
		Multisample:        native.MultisampleType(d.MultiSampleType),
		MultisampleQuality: d.MultiSampleQuality,
	}
}

func toRect(r *native.Rect) *d3d9.RECT {
	if r == nil {
		return nil
	}
	return &d3d9.RECT{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}
}

// toVertexElements appends the declaration terminator.
func toVertexElements(elements []native.VertexElement) []d3d9.VERTEXELEMENT {
	out := make([]d3d9.VERTEXELEMENT, 0, len(elements)+1)
	for _, e := range elements {
		out = append(out, d3d9.VERTEXELEMENT{
			Stream:     e.Stream,
			Offset:     e.Offset,
			Type:       d3d9.DECLTYPE(e.Type),
			Method:     d3d9.DECLMETHOD_DEFAULT,
			Usage:      d3d9.DECLUSAGE(e.Usage),
			UsageIndex: e.UsageIndex,
		})
	}
	return append(out, d3d9.DeclEnd())
}

// lockedBytes views the memory of a locked w×h rectangle. The last row
// ends after its pixels, not after a full pitch.
func lockedBytes(lr d3d9.LOCKED_RECT, desc native.SurfaceDesc, r *native.Rect) native.LockedRect {
	w, h := int(desc.Width), int(desc.Height)
	if r != nil {
		w, h = int(r.Width()), int(r.Height())
	}
	pitch := int(lr.Pitch)
	n := 0
	if w > 0 && h > 0 {
		n = (h-1)*pitch + w*desc.Format.BytesPerPixel()
	}
	//nolint:govet // memory is owned by the driver until unlock
	bits := unsafe.Slice((*byte)(unsafe.Pointer(lr.PBits)), n)
	return native.LockedRect{Pitch: pitch, Bits: bits}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
