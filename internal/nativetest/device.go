// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package nativetest

import (
	"github.com/gogpu/d3dpipe/native"
)

// Lock records a vertex buffer lock.
type Lock struct {
	Offset, Size uint32
	Flags        native.LockFlags
}

// Draw records a draw call.
type Draw struct {
	Indexed     bool
	Primitive   native.PrimitiveType
	BaseVertex  int32
	NumVertices uint32
	Start       uint32
	PrimCount   uint32
}

// PassThroughCode is the shader blob returned by PassThroughVertexShader.
var PassThroughCode = []byte{0x00, 0x03, 0xFE, 0xFF, 0xFF, 0xFF, 0x00, 0x00}

// Device is a fake native.Device.
//
// Failures are injected through Fail: the error stored under a method
// name is returned by the next call of that method and then removed.
type Device struct {
	Adapter    int
	Type       native.DeviceType
	Flags      native.CreateFlags
	Focus      uintptr
	Params     native.PresentParams
	Ex         bool
	IsReleased bool

	// Calls lists every method called, in order.
	Calls []string

	// Fail maps a method name to the error its next call returns.
	Fail map[string]error
	// CoopErr is returned by TestCooperativeLevel.
	CoopErr error
	// StateErr is returned by CheckDeviceState on Ex devices.
	StateErr error
	// PresentErr is returned by Present.
	PresentErr error

	Locks        []Lock
	Draws        []Draw
	RenderStates map[native.RenderState]uint32
	Scissors     []native.Rect
	Constants    map[int][]float32

	Target       native.Surface
	DepthStencil native.Surface
	Stream       native.VertexBuffer
	Indices      native.IndexBuffer

	live map[resource]struct{}
}

type resource interface {
	pool() native.Pool
}

func newDevice(adapter int, t native.DeviceType, focus uintptr, flags native.CreateFlags, pp native.PresentParams) *Device {
	return &Device{
		Adapter:      adapter,
		Type:         t,
		Flags:        flags,
		Focus:        focus,
		Params:       pp,
		Fail:         make(map[string]error),
		RenderStates: make(map[native.RenderState]uint32),
		Constants:    make(map[int][]float32),
		live:         make(map[resource]struct{}),
	}
}

var (
	_ native.Device         = (*Device)(nil)
	_ native.BuiltinShaders = (*Device)(nil)
)

// record appends name to Calls and returns any injected failure.
func (d *Device) record(name string) error {
	d.Calls = append(d.Calls, name)
	if err, ok := d.Fail[name]; ok {
		delete(d.Fail, name)
		return err
	}
	return nil
}

// Count returns how many times the method name was called.
func (d *Device) Count(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log, locks, draws and scissor history.
func (d *Device) ResetCalls() {
	d.Calls = nil
	d.Locks = nil
	d.Draws = nil
	d.Scissors = nil
}

// Live returns the number of unreleased resources.
func (d *Device) Live() int { return len(d.live) }

// LiveInPool returns the number of unreleased resources in pool p.
func (d *Device) LiveInPool(p native.Pool) int {
	n := 0
	for r := range d.live {
		if r.pool() == p {
			n++
		}
	}
	return n
}

func (d *Device) track(r resource)   { d.live[r] = struct{}{} }
func (d *Device) untrack(r resource) { delete(d.live, r) }

// TestCooperativeLevel implements native.Device.
func (d *Device) TestCooperativeLevel() error {
	if err := d.record("TestCooperativeLevel"); err != nil {
		return err
	}
	return d.CoopErr
}

// Reset implements native.Device. Like Direct3D9 it refuses while
// default-pool resources are alive.
func (d *Device) Reset(pp *native.PresentParams) error {
	if err := d.record("Reset"); err != nil {
		return err
	}
	if d.LiveInPool(native.PoolDefault) > 0 {
		return native.ErrInvalidCall
	}
	d.Params = *pp
	d.CoopErr = nil
	d.StateErr = nil
	d.Target = nil
	d.DepthStencil = nil
	d.RenderStates = make(map[native.RenderState]uint32)
	return nil
}

// BeginScene implements native.Device.
func (d *Device) BeginScene() error { return d.record("BeginScene") }

// EndScene implements native.Device.
func (d *Device) EndScene() error { return d.record("EndScene") }

// Present implements native.Device.
func (d *Device) Present(uintptr) error {
	if err := d.record("Present"); err != nil {
		return err
	}
	return d.PresentErr
}

// CreateTexture implements native.Device.
func (d *Device) CreateTexture(width, height, levels uint32, usage native.Usage, format native.Format, pool native.Pool) (native.Texture, error) {
	if err := d.record("CreateTexture"); err != nil {
		return nil, err
	}
	if width == 0 || height == 0 || format.BytesPerPixel() == 0 {
		return nil, native.ErrInvalidCall
	}
	t := &Texture{dev: d, surf: newSurface(d, native.SurfaceDesc{
		Format: format, Pool: pool, Usage: usage, Width: width, Height: height,
	})}
	d.track(t)
	return t, nil
}

// CreateOffscreenPlainSurface implements native.Device.
func (d *Device) CreateOffscreenPlainSurface(width, height uint32, format native.Format, pool native.Pool) (native.Surface, error) {
	if err := d.record("CreateOffscreenPlainSurface"); err != nil {
		return nil, err
	}
	if width == 0 || height == 0 || format.BytesPerPixel() == 0 {
		return nil, native.ErrInvalidCall
	}
	s := newSurface(d, native.SurfaceDesc{Format: format, Pool: pool, Width: width, Height: height})
	d.track(s)
	return s, nil
}

// CreateDepthStencilSurface implements native.Device.
func (d *Device) CreateDepthStencilSurface(width, height uint32, format native.Format, ms native.MultisampleType, quality uint32, _ bool) (native.Surface, error) {
	if err := d.record("CreateDepthStencilSurface"); err != nil {
		return nil, err
	}
	if !format.IsDepthStencil() {
		return nil, native.ErrInvalidCall
	}
	s := newSurface(d, native.SurfaceDesc{
		Format: format, Pool: native.PoolDefault, Usage: native.UsageDepthStencil,
		Width: width, Height: height, Multisample: ms, MultisampleQuality: quality,
	})
	d.track(s)
	return s, nil
}

// CreateAdditionalSwapChain implements native.Device.
func (d *Device) CreateAdditionalSwapChain(pp *native.PresentParams) (native.SwapChain, error) {
	if err := d.record("CreateAdditionalSwapChain"); err != nil {
		return nil, err
	}
	if pp.BackBufferFormat == native.FormatUnknown {
		pp.BackBufferFormat = d.Params.BackBufferFormat
	}
	sc := &SwapChain{dev: d, params: *pp}
	sc.back = newSurface(d, native.SurfaceDesc{
		Format: pp.BackBufferFormat, Pool: native.PoolDefault, Usage: native.UsageRenderTarget,
		Width: pp.BackBufferWidth, Height: pp.BackBufferHeight,
		Multisample: pp.Multisample, MultisampleQuality: pp.MultisampleQuality,
	})
	d.track(sc)
	return sc, nil
}

// CreateVertexBuffer implements native.Device.
func (d *Device) CreateVertexBuffer(length uint32, usage native.Usage, pool native.Pool) (native.VertexBuffer, error) {
	if err := d.record("CreateVertexBuffer"); err != nil {
		return nil, err
	}
	vb := &Buffer{dev: d, data: make([]byte, length), usage: usage, p: pool}
	d.track(vb)
	return vb, nil
}

// CreateIndexBuffer implements native.Device.
func (d *Device) CreateIndexBuffer(length uint32, usage native.Usage, _ native.Format, pool native.Pool) (native.IndexBuffer, error) {
	if err := d.record("CreateIndexBuffer"); err != nil {
		return nil, err
	}
	ib := &Buffer{dev: d, data: make([]byte, length), usage: usage, p: pool, index: true}
	d.track(ib)
	return ib, nil
}

// CreateVertexDeclaration implements native.Device.
func (d *Device) CreateVertexDeclaration(elements []native.VertexElement) (native.VertexDeclaration, error) {
	if err := d.record("CreateVertexDeclaration"); err != nil {
		return nil, err
	}
	decl := &Object{dev: d, Elements: elements}
	d.track(decl)
	return decl, nil
}

// CreateVertexShader implements native.Device.
func (d *Device) CreateVertexShader(code []byte) (native.Shader, error) {
	if err := d.record("CreateVertexShader"); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, native.ErrInvalidCall
	}
	s := &Object{dev: d, Code: code}
	d.track(s)
	return s, nil
}

// CreatePixelShader implements native.Device.
func (d *Device) CreatePixelShader(code []byte) (native.Shader, error) {
	if err := d.record("CreatePixelShader"); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, native.ErrInvalidCall
	}
	s := &Object{dev: d, Code: code}
	d.track(s)
	return s, nil
}

// SetRenderTarget implements native.Device.
func (d *Device) SetRenderTarget(index int, target native.Surface) error {
	if err := d.record("SetRenderTarget"); err != nil {
		return err
	}
	if index == 0 {
		d.Target = target
	}
	return nil
}

// SetDepthStencilSurface implements native.Device.
func (d *Device) SetDepthStencilSurface(ds native.Surface) error {
	if err := d.record("SetDepthStencilSurface"); err != nil {
		return err
	}
	d.DepthStencil = ds
	return nil
}

// SetRenderState implements native.Device.
func (d *Device) SetRenderState(state native.RenderState, value uint32) error {
	if err := d.record("SetRenderState"); err != nil {
		return err
	}
	d.RenderStates[state] = value
	return nil
}

// SetScissorRect implements native.Device.
func (d *Device) SetScissorRect(r native.Rect) error {
	if err := d.record("SetScissorRect"); err != nil {
		return err
	}
	d.Scissors = append(d.Scissors, r)
	return nil
}

// SetVertexShaderConstantF implements native.Device.
func (d *Device) SetVertexShaderConstantF(register int, data []float32) error {
	if err := d.record("SetVertexShaderConstantF"); err != nil {
		return err
	}
	d.Constants[register] = append([]float32(nil), data...)
	return nil
}

// SetVertexDeclaration implements native.Device.
func (d *Device) SetVertexDeclaration(native.VertexDeclaration) error {
	return d.record("SetVertexDeclaration")
}

// SetVertexShader implements native.Device.
func (d *Device) SetVertexShader(native.Shader) error { return d.record("SetVertexShader") }

// SetPixelShader implements native.Device.
func (d *Device) SetPixelShader(native.Shader) error { return d.record("SetPixelShader") }

// SetStreamSource implements native.Device.
func (d *Device) SetStreamSource(_ int, vb native.VertexBuffer, _, _ uint32) error {
	if err := d.record("SetStreamSource"); err != nil {
		return err
	}
	d.Stream = vb
	return nil
}

// SetIndices implements native.Device.
func (d *Device) SetIndices(ib native.IndexBuffer) error {
	if err := d.record("SetIndices"); err != nil {
		return err
	}
	d.Indices = ib
	return nil
}

// DrawPrimitive implements native.Device.
func (d *Device) DrawPrimitive(pt native.PrimitiveType, start, count uint32) error {
	if err := d.record("DrawPrimitive"); err != nil {
		return err
	}
	d.Draws = append(d.Draws, Draw{Primitive: pt, Start: start, PrimCount: count})
	return nil
}

// DrawIndexedPrimitive implements native.Device.
func (d *Device) DrawIndexedPrimitive(pt native.PrimitiveType, base int32, _, numVertices, start, count uint32) error {
	if err := d.record("DrawIndexedPrimitive"); err != nil {
		return err
	}
	d.Draws = append(d.Draws, Draw{
		Indexed: true, Primitive: pt, BaseVertex: base,
		NumVertices: numVertices, Start: start, PrimCount: count,
	})
	return nil
}

// GetRenderTargetData implements native.Device.
func (d *Device) GetRenderTargetData(src, dst native.Surface) error {
	if err := d.record("GetRenderTargetData"); err != nil {
		return err
	}
	s, ok1 := asSurface(src)
	t, ok2 := asSurface(dst)
	if !ok1 || !ok2 || s.desc.Width != t.desc.Width || s.desc.Height != t.desc.Height || s.desc.Format != t.desc.Format {
		return native.ErrInvalidCall
	}
	copy(t.data, s.data)
	return nil
}

// UpdateSurface implements native.Device.
func (d *Device) UpdateSurface(src native.Surface, srcRect *native.Rect, dst native.Surface, x, y int32) error {
	if err := d.record("UpdateSurface"); err != nil {
		return err
	}
	s, ok1 := asSurface(src)
	t, ok2 := asSurface(dst)
	if !ok1 || !ok2 || s.desc.Format != t.desc.Format {
		return native.ErrInvalidCall
	}
	r := native.Rect{Right: int32(s.desc.Width), Bottom: int32(s.desc.Height)}
	if srcRect != nil {
		r = *srcRect
	}
	if x < 0 || y < 0 || uint32(x+r.Width()) > t.desc.Width || uint32(y+r.Height()) > t.desc.Height {
		return native.ErrInvalidCall
	}
	bpp := int(s.desc.Format.BytesPerPixel())
	rowBytes := int(r.Width()) * bpp
	for row := int32(0); row < r.Height(); row++ {
		so := int(r.Top+row)*s.pitch() + int(r.Left)*bpp
		do := int(y+row)*t.pitch() + int(x)*bpp
		copy(t.data[do:do+rowBytes], s.data[so:so+rowBytes])
	}
	return nil
}

// PassThroughVertexShader implements native.BuiltinShaders.
func (d *Device) PassThroughVertexShader() ([]byte, error) {
	if err := d.record("PassThroughVertexShader"); err != nil {
		return nil, err
	}
	return PassThroughCode, nil
}

// Release implements native.Device.
func (d *Device) Release() {
	d.record("Release")
	d.IsReleased = true
}
