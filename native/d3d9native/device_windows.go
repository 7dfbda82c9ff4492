// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package d3d9native

import (
	"runtime"
	"unsafe"

	"github.com/gonutz/d3d9"

	"github.com/gogpu/d3dpipe/native"
)

// Device wraps an IDirect3DDevice9.
type Device struct {
	dev      *d3d9.Device
	params   native.PresentParams
	released bool
}

var (
	_ native.Device         = (*Device)(nil)
	_ native.BuiltinShaders = (*Device)(nil)
)

// TestCooperativeLevel implements native.Device.
func (d *Device) TestCooperativeLevel() error { return result(d.dev.TestCooperativeLevel()) }

// Reset implements native.Device.
func (d *Device) Reset(pp *native.PresentParams) error {
	if pp == nil {
		return native.ErrInvalidCall
	}
	actual, err := d.dev.Reset(toPresentParams(*pp))
	if err != nil {
		return result(err)
	}
	*pp = fromPresentParams(actual)
	d.params = *pp
	return nil
}

// BeginScene implements native.Device.
func (d *Device) BeginScene() error { return result(d.dev.BeginScene()) }

// EndScene implements native.Device.
func (d *Device) EndScene() error { return result(d.dev.EndScene()) }

// Present implements native.Device.
func (d *Device) Present(window uintptr) error {
	return result(d.dev.Present(nil, nil, d3d9.HWND(window), nil))
}

// CreateTexture implements native.Device.
func (d *Device) CreateTexture(width, height, levels uint32, usage native.Usage, format native.Format, pool native.Pool) (native.Texture, error) {
	tex, err := d.dev.CreateTexture(uint(width), uint(height), uint(levels), uint32(usage), d3d9.FORMAT(format), d3d9.POOL(pool), 0)
	if err != nil {
		return nil, result(err)
	}
	return &Texture{tex: tex}, nil
}

// CreateOffscreenPlainSurface implements native.Device.
func (d *Device) CreateOffscreenPlainSurface(width, height uint32, format native.Format, pool native.Pool) (native.Surface, error) {
	s, err := d.dev.CreateOffscreenPlainSurface(uint(width), uint(height), d3d9.FORMAT(format), d3d9.POOL(pool), 0)
	if err != nil {
		return nil, result(err)
	}
	return newSurface(s)
}

// CreateDepthStencilSurface implements native.Device.
func (d *Device) CreateDepthStencilSurface(width, height uint32, format native.Format, ms native.MultisampleType, quality uint32, discard bool) (native.Surface, error) {
	s, err := d.dev.CreateDepthStencilSurface(uint(width), uint(height), d3d9.FORMAT(format),
		d3d9.MULTISAMPLE_TYPE(ms), quality, discard, 0)
	if err != nil {
		return nil, result(err)
	}
	return newSurface(s)
}

// CreateAdditionalSwapChain implements native.Device.
func (d *Device) CreateAdditionalSwapChain(pp *native.PresentParams) (native.SwapChain, error) {
	if pp == nil {
		return nil, native.ErrInvalidCall
	}
	sc, actual, err := d.dev.CreateAdditionalSwapChain(toPresentParams(*pp))
	if err != nil {
		return nil, result(err)
	}
	*pp = fromPresentParams(actual)
	return &SwapChain{sc: sc, params: *pp}, nil
}

// CreateVertexBuffer implements native.Device.
func (d *Device) CreateVertexBuffer(length uint32, usage native.Usage, pool native.Pool) (native.VertexBuffer, error) {
	vb, err := d.dev.CreateVertexBuffer(uint(length), uint32(usage), 0, d3d9.POOL(pool), 0)
	if err != nil {
		return nil, result(err)
	}
	return &VertexBuffer{vb: vb, length: length}, nil
}

// CreateIndexBuffer implements native.Device.
func (d *Device) CreateIndexBuffer(length uint32, usage native.Usage, format native.Format, pool native.Pool) (native.IndexBuffer, error) {
	ib, err := d.dev.CreateIndexBuffer(uint(length), uint32(usage), d3d9.FORMAT(format), d3d9.POOL(pool), 0)
	if err != nil {
		return nil, result(err)
	}
	return &IndexBuffer{ib: ib, length: length}, nil
}

// CreateVertexDeclaration implements native.Device.
func (d *Device) CreateVertexDeclaration(elements []native.VertexElement) (native.VertexDeclaration, error) {
	decl, err := d.dev.CreateVertexDeclaration(toVertexElements(elements))
	if err != nil {
		return nil, result(err)
	}
	return &declaration{decl: decl}, nil
}

// CreateVertexShader implements native.Device. code is compiled
// shader bytecode.
func (d *Device) CreateVertexShader(code []byte) (native.Shader, error) {
	if len(code) == 0 {
		return nil, native.ErrInvalidCall
	}
	s, err := d.dev.CreateVertexShader(uintptr(unsafe.Pointer(&code[0])))
	runtime.KeepAlive(code)
	if err != nil {
		return nil, result(err)
	}
	return &vertexShader{s: s}, nil
}

// CreatePixelShader implements native.Device.
func (d *Device) CreatePixelShader(code []byte) (native.Shader, error) {
	if len(code) == 0 {
		return nil, native.ErrInvalidCall
	}
	s, err := d.dev.CreatePixelShader(uintptr(unsafe.Pointer(&code[0])))
	runtime.KeepAlive(code)
	if err != nil {
		return nil, result(err)
	}
	return &pixelShader{s: s}, nil
}

// PassThroughVertexShader implements native.BuiltinShaders.
func (d *Device) PassThroughVertexShader() ([]byte, error) {
	return Compile(PassThroughHLSL, "main", "vs_2_0")
}

// SetRenderTarget implements native.Device.
func (d *Device) SetRenderTarget(index int, target native.Surface) error {
	s, ok := target.(*Surface)
	if !ok || index < 0 {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetRenderTarget(uint32(index), s.s))
}

// SetDepthStencilSurface implements native.Device.
func (d *Device) SetDepthStencilSurface(ds native.Surface) error {
	if ds == nil {
		return result(d.dev.SetDepthStencilSurface(nil))
	}
	s, ok := ds.(*Surface)
	if !ok {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetDepthStencilSurface(s.s))
}

// SetRenderState implements native.Device.
func (d *Device) SetRenderState(state native.RenderState, value uint32) error {
	return result(d.dev.SetRenderState(d3d9.RENDERSTATETYPE(state), value))
}

// SetScissorRect implements native.Device.
func (d *Device) SetScissorRect(r native.Rect) error {
	return result(d.dev.SetScissorRect(*toRect(&r)))
}

// SetVertexShaderConstantF implements native.Device.
func (d *Device) SetVertexShaderConstantF(register int, data []float32) error {
	if register < 0 {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetVertexShaderConstantF(uint(register), data))
}

// SetVertexDeclaration implements native.Device.
func (d *Device) SetVertexDeclaration(decl native.VertexDeclaration) error {
	v, ok := decl.(*declaration)
	if !ok {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetVertexDeclaration(v.decl))
}

// SetVertexShader implements native.Device.
func (d *Device) SetVertexShader(s native.Shader) error {
	if s == nil {
		return result(d.dev.SetVertexShader(nil))
	}
	v, ok := s.(*vertexShader)
	if !ok {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetVertexShader(v.s))
}

// SetPixelShader implements native.Device.
func (d *Device) SetPixelShader(s native.Shader) error {
	if s == nil {
		return result(d.dev.SetPixelShader(nil))
	}
	p, ok := s.(*pixelShader)
	if !ok {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetPixelShader(p.s))
}

// SetStreamSource implements native.Device.
func (d *Device) SetStreamSource(stream int, vb native.VertexBuffer, offset, stride uint32) error {
	b, ok := vb.(*VertexBuffer)
	if !ok || stream < 0 {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetStreamSource(uint(stream), b.vb, uint(offset), uint(stride)))
}

// SetIndices implements native.Device.
func (d *Device) SetIndices(ib native.IndexBuffer) error {
	b, ok := ib.(*IndexBuffer)
	if !ok {
		return native.ErrInvalidCall
	}
	return result(d.dev.SetIndices(b.ib))
}

// DrawPrimitive implements native.Device.
func (d *Device) DrawPrimitive(pt native.PrimitiveType, start, count uint32) error {
	return result(d.dev.DrawPrimitive(d3d9.PRIMITIVETYPE(pt), uint(start), uint(count)))
}

// DrawIndexedPrimitive implements native.Device.
func (d *Device) DrawIndexedPrimitive(pt native.PrimitiveType, base int32, minIndex, numVertices, start, count uint32) error {
	return result(d.dev.DrawIndexedPrimitive(d3d9.PRIMITIVETYPE(pt), int(base),
		uint(minIndex), uint(numVertices), uint(start), uint(count)))
}

// GetRenderTargetData implements native.Device.
func (d *Device) GetRenderTargetData(src, dst native.Surface) error {
	s, ok1 := src.(*Surface)
	t, ok2 := dst.(*Surface)
	if !ok1 || !ok2 {
		return native.ErrInvalidCall
	}
	return result(d.dev.GetRenderTargetData(s.s, t.s))
}

// UpdateSurface implements native.Device.
func (d *Device) UpdateSurface(src native.Surface, srcRect *native.Rect, dst native.Surface, x, y int32) error {
	s, ok1 := src.(*Surface)
	t, ok2 := dst.(*Surface)
	if !ok1 || !ok2 {
		return native.ErrInvalidCall
	}
	return result(d.dev.UpdateSurface(s.s, toRect(srcRect), t.s, &d3d9.POINT{X: x, Y: y}))
}

// Release implements native.Device.
func (d *Device) Release() {
	if d.released {
		return
	}
	d.released = true
	d.dev.Release()
}
