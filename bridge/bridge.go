// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bridge exposes the pipeline as flat calls on opaque handles.
//
// It is the boundary for callers that cannot hold Go values, such as a
// cgo export layer: contexts and resources are addressed by integer
// handles, bulk data is passed as slices that are only read or written
// for the duration of one call, and every call returns a Code instead of
// an error. A stale or unknown handle yields a failure code; it never
// panics.
//
// A Bridge is not safe for concurrent use. All calls must come from the
// rendering goroutine.
package bridge

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/d3dpipe"
	"github.com/gogpu/d3dpipe/d3d"
	"github.com/gogpu/d3dpipe/internal/slotmap"
	"github.com/gogpu/d3dpipe/native"
)

// Code is an HRESULT-style status. Negative values are failures.
type Code int32

// Success codes.
const (
	OK    Code = 0
	False Code = 1
)

// CodeOf returns the status carried by err.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	//nolint:gosec // G115: HRESULT bit pattern
	return Code(int32(native.ResultOf(err)))
}

// Failed reports whether c is a failure code.
func (c Code) Failed() bool { return c < 0 }

// String returns the symbolic name of c.
func (c Code) String() string {
	//nolint:gosec // G115: HRESULT bit pattern
	return native.Result(uint32(c)).String()
}

// ContextHandle addresses a device context. Zero is never valid.
type ContextHandle uint64

// ResourceHandle addresses a resource of one context. Zero is never
// valid.
type ResourceHandle uint64

var codeInvalidCall = CodeOf(native.ErrInvalidCall)

// Bridge maps handles to the contexts of a PipelineManager.
type Bridge struct {
	mgr      *d3d.PipelineManager
	contexts *slotmap.Map[*d3d.Context]
	handles  map[*d3d.Context]ContextHandle
	log      *slog.Logger
	closed   bool
}

// New creates a bridge over mgr. The bridge owns mgr from now on and
// closes it in Close. A nil logger means d3dpipe.Logger().
func New(mgr *d3d.PipelineManager, log *slog.Logger) *Bridge {
	if log == nil {
		log = d3dpipe.Logger()
	}
	return &Bridge{
		mgr:      mgr,
		contexts: slotmap.New[*d3d.Context](),
		handles:  make(map[*d3d.Context]ContextHandle),
		log:      log,
	}
}

// fail logs a failed call and returns its code.
func (b *Bridge) fail(op string, err error) Code {
	code := CodeOf(err)
	b.log.Debug("bridge: call failed", "op", op, "code", code, "err", err)
	return code
}

// Context returns the handle of the adapter's context, creating the
// context on first use. Repeated calls return the same handle.
func (b *Bridge) Context(adapter int) (ContextHandle, Code) {
	if b == nil || b.closed || b.mgr == nil {
		return 0, codeInvalidCall
	}
	ctx, err := b.mgr.DeviceContext(adapter)
	if err != nil {
		return 0, b.fail("context", err)
	}
	if h, ok := b.handles[ctx]; ok {
		return h, OK
	}
	h := ContextHandle(b.contexts.Insert(ctx))
	b.handles[ctx] = h
	return h, OK
}

func (b *Bridge) context(h ContextHandle) (*d3d.Context, bool) {
	if b == nil || b.closed || h == 0 {
		return nil, false
	}
	return b.contexts.Get(slotmap.Key(h))
}

func (b *Bridge) resource(ctx *d3d.Context, h ResourceHandle) (d3d.Resource, bool) {
	rm := ctx.ResourceManager()
	if rm == nil || h == 0 {
		return nil, false
	}
	return rm.Get(d3d.Handle(h))
}

// call runs fn on the context behind h.
func (b *Bridge) call(op string, h ContextHandle, fn func(*d3d.Context) error) Code {
	ctx, ok := b.context(h)
	if !ok {
		return codeInvalidCall
	}
	if err := fn(ctx); err != nil {
		return b.fail(op, err)
	}
	return OK
}

// TestDeviceState polls the device. It returns OK, or the device-loss
// code that tells the caller what to do next.
func (b *Bridge) TestDeviceState(h ContextHandle) Code {
	ctx, ok := b.context(h)
	if !ok {
		return codeInvalidCall
	}
	switch ctx.TestDeviceState() {
	case d3d.DeviceOK:
		return OK
	case d3d.DeviceLost:
		return CodeOf(native.ErrDeviceLost)
	case d3d.DeviceNeedsReset:
		return CodeOf(native.ErrDeviceNotReset)
	case d3d.DeviceRemoved:
		return CodeOf(native.ErrDeviceRemoved)
	}
	return CodeOf(native.ErrFail)
}

// ResetContext recovers a lost device. Resource handles of default-pool
// resources are invalid afterwards.
func (b *Bridge) ResetContext(h ContextHandle) Code {
	return b.call("reset context", h, (*d3d.Context).ResetContext)
}

// BeginScene opens a scene.
func (b *Bridge) BeginScene(h ContextHandle) Code {
	return b.call("begin scene", h, (*d3d.Context).BeginScene)
}

// EndScene closes the open scene, if any.
func (b *Bridge) EndScene(h ContextHandle) Code {
	return b.call("end scene", h, (*d3d.Context).EndScene)
}

// DrawIndexedQuads draws numVertices/4 quads.
func (b *Bridge) DrawIndexedQuads(h ContextHandle, coords []float32, colors []byte, numVertices int) Code {
	return b.call("draw quads", h, func(ctx *d3d.Context) error {
		return ctx.DrawIndexedQuads(coords, colors, numVertices)
	})
}

// DrawTriangleList draws numTriangles triangles.
func (b *Bridge) DrawTriangleList(h ContextHandle, coords []float32, colors []byte, numTriangles int) Code {
	return b.call("draw triangles", h, func(ctx *d3d.Context) error {
		return ctx.DrawTriangleList(coords, colors, numTriangles)
	})
}

func matrix(m []float64) (d3d.Matrix, error) {
	var out d3d.Matrix
	if len(m) != len(out) {
		return out, fmt.Errorf("%w: matrix has %d elements", d3d.ErrInvalidArgument, len(m))
	}
	copy(out[:], m)
	return out, nil
}

// SetProjViewMatrix sets the projection/view matrix from 16 row-major
// elements.
func (b *Bridge) SetProjViewMatrix(h ContextHandle, depthTest bool, m []float64) Code {
	return b.call("set projection", h, func(ctx *d3d.Context) error {
		mat, err := matrix(m)
		if err != nil {
			return &d3d.Error{Kind: d3d.KindContract, Op: "set projection", Code: native.ErrInvalidCall, Err: err}
		}
		return ctx.SetProjViewMatrix(depthTest, mat)
	})
}

// SetTransform sets the world matrix from 16 row-major elements.
func (b *Bridge) SetTransform(h ContextHandle, m []float64) Code {
	return b.call("set transform", h, func(ctx *d3d.Context) error {
		mat, err := matrix(m)
		if err != nil {
			return &d3d.Error{Kind: d3d.KindContract, Op: "set transform", Code: native.ErrInvalidCall, Err: err}
		}
		return ctx.SetTransform(mat)
	})
}

// ResetTransform sets the world matrix to identity.
func (b *Bridge) ResetTransform(h ContextHandle) Code {
	return b.call("reset transform", h, (*d3d.Context).ResetTransform)
}

// SetClipRect restricts drawing to [x1,x2)x[y1,y2).
func (b *Bridge) SetClipRect(h ContextHandle, x1, y1, x2, y2 int) Code {
	return b.call("set clip rect", h, func(ctx *d3d.Context) error {
		return ctx.SetClipRect(x1, y1, x2, y2)
	})
}

// ResetClip disables clipping.
func (b *Bridge) ResetClip(h ContextHandle) Code {
	return b.call("reset clip", h, (*d3d.Context).ResetClip)
}

// CreateTexture creates a texture. format is a native format code;
// zero lets the pipeline choose one from isOpaque.
func (b *Bridge) CreateTexture(h ContextHandle, width, height int, isRenderTarget, isOpaque bool, format, usage int32) (ResourceHandle, Code) {
	ctx, ok := b.context(h)
	if !ok || width <= 0 || height <= 0 {
		return 0, codeInvalidCall
	}
	//nolint:gosec // G115: positive, checked above
	t, err := ctx.ResourceManager().CreateTexture(uint32(width), uint32(height), isRenderTarget, isOpaque,
		native.Format(format), native.Usage(usage))
	if err != nil {
		return 0, b.fail("create texture", err)
	}
	return ResourceHandle(t.Handle()), OK
}

// CreateSwapChain creates a swap chain for window with one back buffer.
func (b *Bridge) CreateSwapChain(h ContextHandle, window uintptr, width, height int, vsync bool) (ResourceHandle, Code) {
	ctx, ok := b.context(h)
	if !ok || width <= 0 || height <= 0 {
		return 0, codeInvalidCall
	}
	interval := native.PresentIntervalImmediate
	if vsync {
		interval = native.PresentIntervalOne
	}
	//nolint:gosec // G115: positive, checked above
	sc, err := ctx.ResourceManager().CreateSwapChain(window, 1, uint32(width), uint32(height), native.SwapEffectCopy, interval)
	if err != nil {
		return 0, b.fail("create swap chain", err)
	}
	return ResourceHandle(sc.Handle()), OK
}

// TextureInfo returns the actual size and format of a texture, which
// may differ from the requested ones.
func (b *Bridge) TextureInfo(h ContextHandle, r ResourceHandle) (width, height, format int32, code Code) {
	ctx, ok := b.context(h)
	if !ok {
		return 0, 0, 0, codeInvalidCall
	}
	res, ok := b.resource(ctx, r)
	t, isTex := res.(*d3d.Texture)
	if !ok || !isTex {
		return 0, 0, 0, codeInvalidCall
	}
	//nolint:gosec // G115: texture dimensions fit in int32
	return int32(t.Width()), int32(t.Height()), int32(t.Format()), OK
}

// ReleaseResource releases a resource. Its handle is invalid afterwards.
func (b *Bridge) ReleaseResource(h ContextHandle, r ResourceHandle) Code {
	ctx, ok := b.context(h)
	if !ok {
		return codeInvalidCall
	}
	res, ok := b.resource(ctx, r)
	if !ok {
		return codeInvalidCall
	}
	ctx.ResourceManager().ReleaseResource(res)
	return OK
}

func (b *Bridge) renderTarget(h ContextHandle, r ResourceHandle) (*d3d.Context, d3d.RenderTarget, bool) {
	ctx, ok := b.context(h)
	if !ok {
		return nil, nil, false
	}
	res, ok := b.resource(ctx, r)
	if !ok {
		return nil, nil, false
	}
	rt, ok := res.(d3d.RenderTarget)
	return ctx, rt, ok
}

// SetRenderTarget binds a texture or swap chain. It returns False when
// the target was already bound.
func (b *Bridge) SetRenderTarget(h ContextHandle, r ResourceHandle, depth, msaa bool) Code {
	ctx, rt, ok := b.renderTarget(h, r)
	if !ok {
		return codeInvalidCall
	}
	change, err := ctx.SetRenderTarget(rt, depth, msaa)
	if err != nil {
		return b.fail("set render target", err)
	}
	if change == d3d.TargetUnchanged {
		return False
	}
	return OK
}

// UpdateTexture copies a w×h block of pixels with stride bytes per row
// into a texture at (x, y).
func (b *Bridge) UpdateTexture(h ContextHandle, r ResourceHandle, pixels []byte, stride, x, y, w, hgt int) Code {
	ctx, ok := b.context(h)
	if !ok || x < 0 || y < 0 || w < 0 || hgt < 0 {
		return codeInvalidCall
	}
	res, ok := b.resource(ctx, r)
	t, isTex := res.(*d3d.Texture)
	if !ok || !isTex {
		return codeInvalidCall
	}
	//nolint:gosec // G115: non-negative, checked above
	if err := ctx.UpdateTexture(t, pixels, stride, uint32(x), uint32(y), uint32(w), uint32(hgt)); err != nil {
		return b.fail("update texture", err)
	}
	return OK
}

// ReadPixels copies a render target into dst.
func (b *Bridge) ReadPixels(h ContextHandle, r ResourceHandle, dst []byte) Code {
	ctx, rt, ok := b.renderTarget(h, r)
	if !ok {
		return codeInvalidCall
	}
	if err := ctx.ReadPixels(rt, dst); err != nil {
		return b.fail("read pixels", err)
	}
	return OK
}

// Present presents a swap chain, or the device swap chain when r is
// zero.
func (b *Bridge) Present(h ContextHandle, r ResourceHandle) Code {
	ctx, ok := b.context(h)
	if !ok {
		return codeInvalidCall
	}
	var err error
	if r == 0 {
		err = ctx.Present(0)
	} else {
		res, ok := b.resource(ctx, r)
		sc, isSC := res.(*d3d.SwapChain)
		if !ok || !isSC {
			return codeInvalidCall
		}
		err = ctx.PresentSwapChain(sc)
	}
	if err != nil {
		return b.fail("present", err)
	}
	return OK
}

// Close releases every context and the pipeline manager. All handles
// are invalid afterwards.
func (b *Bridge) Close() Code {
	if b == nil || b.closed {
		return OK
	}
	b.closed = true
	b.contexts.Clear()
	clear(b.handles)
	if err := b.mgr.Close(); err != nil {
		return b.fail("close", err)
	}
	return OK
}
