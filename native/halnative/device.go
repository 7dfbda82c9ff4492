// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halnative

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/d3dpipe/native"
)

// PassThroughWGSL is the vertex shader returned by
// PassThroughVertexShader. It transforms positions by the matrix in
// constant registers 0-3 and passes color and texture coordinates on.
//
//go:embed shaders/passthrough.wgsl
var PassThroughWGSL string

// constantRegisters is the number of float4 vertex shader constants.
const constantRegisters = 256

// Stats counts the work a device has done.
type Stats struct {
	Scenes         int
	Draws          int
	Primitives     int
	Presents       int
	BufferUploads  int
	TextureUploads int
	Resets         int
	// Rendered counts draws recorded into a render pass; Readbacks
	// counts copies of rendered targets back to host memory.
	Rendered  int
	Readbacks int
}

// Device is a headless device over a HAL device and queue.
type Device struct {
	dev   hal.Device
	queue hal.Queue
	owned bool

	deviceType native.DeviceType
	focus      uintptr
	format     native.Format
	ex         bool

	swap      *SwapChain
	constants hal.Buffer
	shadow    []float32
	r         *renderer

	target   *image
	depth    *image
	scissor  native.Rect
	states   map[native.RenderState]uint32
	decl     *declaration
	vs, ps   *shader
	stream   *Buffer
	stride   uint32
	indices  *Buffer
	inScene  bool
	stats    Stats
	live     map[any]native.Pool
	released bool
}

var (
	_ native.DeviceEx       = (*Device)(nil)
	_ native.BuiltinShaders = (*Device)(nil)
)

func newDevice(dev hal.Device, queue hal.Queue, owned bool, t native.DeviceType, focus uintptr, display native.Format, pp *native.PresentParams, ex bool) (*Device, error) {
	d := &Device{
		dev:        dev,
		queue:      queue,
		owned:      owned,
		deviceType: t,
		focus:      focus,
		format:     display,
		ex:         ex,
		shadow:     make([]float32, constantRegisters*4),
		states:     make(map[native.RenderState]uint32),
		live:       make(map[any]native.Pool),
	}
	constants, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "halnative_vs_constants",
		Size:  constantRegisters * 16,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("halnative: create constant buffer: %w: %w", native.ErrOutOfVideoMemory, err)
	}
	d.constants = constants
	if err := d.resetSwapChain(pp); err != nil {
		dev.DestroyBuffer(constants)
		return nil, err
	}
	return d, nil
}

// resetSwapChain fills in pp and recreates the implicit swap chain.
func (d *Device) resetSwapChain(pp *native.PresentParams) error {
	if pp.BackBufferFormat == native.FormatUnknown {
		pp.BackBufferFormat = d.format
	}
	if pp.BackBufferWidth == 0 {
		pp.BackBufferWidth = 1
	}
	if pp.BackBufferHeight == 0 {
		pp.BackBufferHeight = 1
	}
	if pp.BackBufferCount == 0 {
		pp.BackBufferCount = 1
	}
	sc, err := d.newSwapChain(*pp)
	if err != nil {
		return err
	}
	if d.swap != nil {
		d.destroyGPUTexture(d.swap.back.gpu)
	}
	d.swap = sc
	d.target = sc.back
	d.depth = nil
	d.scissor = sc.back.bounds()
	return nil
}

// Stats returns the work counters.
func (d *Device) Stats() Stats { return d.stats }

// Live returns the number of resources not yet released.
func (d *Device) Live() int { return len(d.live) }

func (d *Device) track(r any, p native.Pool) { d.live[r] = p }
func (d *Device) untrack(r any, _ native.Pool) { delete(d.live, r) }

func (d *Device) defaultPoolLive() int {
	n := 0
	for _, p := range d.live {
		if p == native.PoolDefault {
			n++
		}
	}
	return n
}

// TestCooperativeLevel implements native.Device. A headless device is
// never lost.
func (d *Device) TestCooperativeLevel() error {
	if d.released {
		return native.ErrInvalidDevice
	}
	return nil
}

// CheckDeviceState implements native.DeviceEx.
func (d *Device) CheckDeviceState(uintptr) error { return d.TestCooperativeLevel() }

// Reset implements native.Device. Like Direct3D9, a non-Ex device
// refuses to reset while default-pool resources are alive.
func (d *Device) Reset(pp *native.PresentParams) error {
	if d.released || pp == nil {
		return native.ErrInvalidCall
	}
	if !d.ex {
		if n := d.defaultPoolLive(); n > 0 {
			return fmt.Errorf("halnative: reset with %d default-pool resources: %w", n, native.ErrInvalidCall)
		}
	}
	if err := d.resetSwapChain(pp); err != nil {
		return err
	}
	d.inScene = false
	d.stats.Resets++
	return nil
}

// BeginScene implements native.Device.
func (d *Device) BeginScene() error {
	if d.inScene {
		return native.ErrInvalidCall
	}
	d.inScene = true
	d.stats.Scenes++
	return nil
}

// EndScene implements native.Device.
func (d *Device) EndScene() error {
	if !d.inScene {
		return native.ErrInvalidCall
	}
	d.inScene = false
	return nil
}

// Present implements native.Device.
func (d *Device) Present(uintptr) error {
	if d.inScene {
		return native.ErrInvalidCall
	}
	return d.swap.Present()
}

// CreateTexture implements native.Device. A level count of zero builds
// the full mip chain.
func (d *Device) CreateTexture(width, height, levels uint32, usage native.Usage, format native.Format, pool native.Pool) (native.Texture, error) {
	if _, ok := textureFormat(format); !ok || format.IsDepthStencil() {
		return nil, native.ErrInvalidCall
	}
	if usage&native.UsageRenderTarget != 0 && pool != native.PoolDefault {
		return nil, native.ErrInvalidCall
	}
	if levels == 0 {
		levels = mipLevels(width, height)
	}
	t := &Texture{dev: d}
	w, h := width, height
	for range levels {
		im, err := newImage(native.SurfaceDesc{Format: format, Pool: pool, Usage: usage, Width: w, Height: h})
		if err != nil {
			return nil, err
		}
		t.levels = append(t.levels, im)
		w, h = max(w/2, 1), max(h/2, 1)
	}
	if deviceVisible(pool) {
		g, err := d.newGPUTexture("halnative_texture", t.levels[0].desc, levels)
		if err != nil {
			return nil, err
		}
		t.gpu = g
		for l, im := range t.levels {
			im.gpu, im.level = g, uint32(l)
		}
	}
	d.track(t, pool)
	return t, nil
}

// CreateOffscreenPlainSurface implements native.Device.
func (d *Device) CreateOffscreenPlainSurface(width, height uint32, format native.Format, pool native.Pool) (native.Surface, error) {
	if _, ok := textureFormat(format); !ok || format.IsDepthStencil() {
		return nil, native.ErrInvalidCall
	}
	im, err := newImage(native.SurfaceDesc{Format: format, Pool: pool, Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	s := &Surface{dev: d, im: im}
	if pool == native.PoolDefault {
		g, err := d.newGPUTexture("halnative_surface", im.desc, 1)
		if err != nil {
			return nil, err
		}
		s.gpu, im.gpu = g, g
	}
	d.track(s, pool)
	return s, nil
}

// CreateDepthStencilSurface implements native.Device.
func (d *Device) CreateDepthStencilSurface(width, height uint32, format native.Format, ms native.MultisampleType, quality uint32, _ bool) (native.Surface, error) {
	if !format.IsDepthStencil() {
		return nil, native.ErrInvalidCall
	}
	desc := native.SurfaceDesc{
		Format:             format,
		Pool:               native.PoolDefault,
		Usage:              native.UsageDepthStencil,
		Width:              width,
		Height:             height,
		Multisample:        ms,
		MultisampleQuality: quality,
	}
	im, err := newImage(desc)
	if err != nil {
		return nil, err
	}
	g, err := d.newGPUTexture("halnative_depth", desc, 1)
	if err != nil {
		return nil, err
	}
	im.gpu = g
	s := &Surface{dev: d, im: im, gpu: g}
	d.track(s, native.PoolDefault)
	return s, nil
}

// CreateAdditionalSwapChain implements native.Device.
func (d *Device) CreateAdditionalSwapChain(pp *native.PresentParams) (native.SwapChain, error) {
	if pp == nil {
		return nil, native.ErrInvalidCall
	}
	if pp.BackBufferFormat == native.FormatUnknown {
		pp.BackBufferFormat = d.format
	}
	if pp.BackBufferCount == 0 {
		pp.BackBufferCount = 1
	}
	sc, err := d.newSwapChain(*pp)
	if err != nil {
		return nil, err
	}
	d.track(sc, native.PoolDefault)
	return sc, nil
}

// CreateVertexBuffer implements native.Device.
func (d *Device) CreateVertexBuffer(length uint32, _ native.Usage, pool native.Pool) (native.VertexBuffer, error) {
	b, err := d.newBuffer("halnative_vertices", length, pool, gputypes.BufferUsageVertex, native.FormatUnknown)
	if err != nil {
		return nil, err
	}
	d.track(b, pool)
	return b, nil
}

// CreateIndexBuffer implements native.Device.
func (d *Device) CreateIndexBuffer(length uint32, _ native.Usage, format native.Format, pool native.Pool) (native.IndexBuffer, error) {
	if format != native.FormatIndex16 && format != native.FormatIndex32 {
		return nil, native.ErrInvalidCall
	}
	b, err := d.newBuffer("halnative_indices", length, pool, gputypes.BufferUsageIndex, format)
	if err != nil {
		return nil, err
	}
	d.track(b, pool)
	return b, nil
}

// CreateVertexDeclaration implements native.Device.
func (d *Device) CreateVertexDeclaration(elements []native.VertexElement) (native.VertexDeclaration, error) {
	layout, err := bufferLayout(elements)
	if err != nil {
		return nil, err
	}
	v := &declaration{dev: d, layout: layout}
	d.track(v, native.PoolManaged)
	return v, nil
}

// bufferLayout translates stream 0 of a declaration. Attribute locations
// follow declaration order.
func bufferLayout(elements []native.VertexElement) (gputypes.VertexBufferLayout, error) {
	var layout gputypes.VertexBufferLayout
	if len(elements) == 0 {
		return layout, native.ErrInvalidCall
	}
	layout.StepMode = gputypes.VertexStepModeVertex
	for i, e := range elements {
		if e.Stream != 0 {
			return layout, fmt.Errorf("halnative: stream %d: %w", e.Stream, native.ErrNotAvailable)
		}
		format, size, ok := vertexFormat(e.Type)
		if !ok {
			return layout, fmt.Errorf("halnative: element type %d: %w", e.Type, native.ErrInvalidCall)
		}
		layout.Attributes = append(layout.Attributes, gputypes.VertexAttribute{
			Format:         format,
			Offset:         uint64(e.Offset),
			ShaderLocation: uint32(i),
		})
		layout.ArrayStride = max(layout.ArrayStride, uint64(e.Offset)+uint64(size))
	}
	return layout, nil
}

// CreateVertexShader implements native.Device. code is WGSL source with
// a vertex entry point.
func (d *Device) CreateVertexShader(code []byte) (native.Shader, error) {
	return d.createShader("halnative_vs", code)
}

// CreatePixelShader implements native.Device. code is WGSL source with
// a fragment entry point.
func (d *Device) CreatePixelShader(code []byte) (native.Shader, error) {
	return d.createShader("halnative_ps", code)
}

func (d *Device) createShader(label string, code []byte) (*shader, error) {
	if len(code) == 0 {
		return nil, native.ErrInvalidCall
	}
	spirv, err := CompileWGSL(string(code))
	if err != nil {
		return nil, fmt.Errorf("halnative: %s: %w: %w", label, native.ErrInvalidCall, err)
	}
	module, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("halnative: %s: %w: %w", label, native.ErrInvalidCall, err)
	}
	s := &shader{dev: d, module: module}
	d.track(s, native.PoolManaged)
	return s, nil
}

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	bytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	words := make([]uint32, len(bytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(bytes[i*4:])
	}
	return words, nil
}

// PassThroughVertexShader implements native.BuiltinShaders.
func (d *Device) PassThroughVertexShader() ([]byte, error) {
	return []byte(PassThroughWGSL), nil
}

// SetRenderTarget implements native.Device. Only target 0 exists.
func (d *Device) SetRenderTarget(index int, target native.Surface) error {
	s, ok := target.(*Surface)
	if index != 0 || !ok || s.released || s.im.desc.Usage&native.UsageRenderTarget == 0 {
		return native.ErrInvalidCall
	}
	d.target = s.im
	d.scissor = s.im.bounds()
	return nil
}

// SetDepthStencilSurface implements native.Device.
func (d *Device) SetDepthStencilSurface(ds native.Surface) error {
	if ds == nil {
		d.depth = nil
		return nil
	}
	s, ok := ds.(*Surface)
	if !ok || s.released || !s.im.desc.Format.IsDepthStencil() {
		return native.ErrInvalidCall
	}
	if d.target != nil && (s.im.desc.Width < d.target.desc.Width || s.im.desc.Height < d.target.desc.Height) {
		return native.ErrInvalidCall
	}
	d.depth = s.im
	return nil
}

// SetRenderState implements native.Device.
func (d *Device) SetRenderState(state native.RenderState, value uint32) error {
	d.states[state] = value
	return nil
}

// RenderState returns the last value set for state.
func (d *Device) RenderState(state native.RenderState) uint32 { return d.states[state] }

// SetScissorRect implements native.Device.
func (d *Device) SetScissorRect(r native.Rect) error {
	if r.Left > r.Right || r.Top > r.Bottom {
		return native.ErrInvalidCall
	}
	d.scissor = r
	return nil
}

// ScissorRect returns the current scissor rectangle.
func (d *Device) ScissorRect() native.Rect { return d.scissor }

// SetVertexShaderConstantF implements native.Device. data holds whole
// float4 registers.
func (d *Device) SetVertexShaderConstantF(register int, data []float32) error {
	if register < 0 || len(data)%4 != 0 || register*4+len(data) > len(d.shadow) {
		return native.ErrInvalidCall
	}
	copy(d.shadow[register*4:], data)
	buf := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	if err := d.queue.WriteBuffer(d.constants, uint64(register)*16, buf); err != nil {
		return fmt.Errorf("halnative: write constants: %w: %w", native.ErrDriverInternalError, err)
	}
	return nil
}

// VertexShaderConstants returns count float4 registers from register.
func (d *Device) VertexShaderConstants(register, count int) []float32 {
	return append([]float32(nil), d.shadow[register*4:(register+count)*4]...)
}

// SetVertexDeclaration implements native.Device.
func (d *Device) SetVertexDeclaration(decl native.VertexDeclaration) error {
	v, ok := decl.(*declaration)
	if !ok || v.released {
		return native.ErrInvalidCall
	}
	d.decl = v
	return nil
}

// SetVertexShader implements native.Device.
func (d *Device) SetVertexShader(s native.Shader) error {
	if s == nil {
		d.vs = nil
		return nil
	}
	v, ok := s.(*shader)
	if !ok || v.released {
		return native.ErrInvalidCall
	}
	d.vs = v
	return nil
}

// SetPixelShader implements native.Device.
func (d *Device) SetPixelShader(s native.Shader) error {
	if s == nil {
		d.ps = nil
		return nil
	}
	v, ok := s.(*shader)
	if !ok || v.released {
		return native.ErrInvalidCall
	}
	d.ps = v
	return nil
}

// SetStreamSource implements native.Device.
func (d *Device) SetStreamSource(stream int, vb native.VertexBuffer, offset, stride uint32) error {
	b, ok := vb.(*Buffer)
	if stream != 0 || offset != 0 || !ok || b.released || b.format != native.FormatUnknown {
		return native.ErrInvalidCall
	}
	d.stream, d.stride = b, stride
	return nil
}

// SetIndices implements native.Device.
func (d *Device) SetIndices(ib native.IndexBuffer) error {
	b, ok := ib.(*Buffer)
	if !ok || b.released || b.format == native.FormatUnknown {
		return native.ErrInvalidCall
	}
	d.indices = b
	return nil
}

func (d *Device) drawable() error {
	if !d.inScene || d.stream == nil || d.stream.released || d.decl == nil || d.vs == nil || d.target == nil {
		return native.ErrInvalidCall
	}
	if d.stride < uint32(d.decl.layout.ArrayStride) {
		return native.ErrInvalidCall
	}
	return nil
}

// DrawPrimitive implements native.Device.
func (d *Device) DrawPrimitive(pt native.PrimitiveType, start, count uint32) error {
	if err := d.drawable(); err != nil {
		return err
	}
	n, err := vertexCount(pt, count)
	if err != nil {
		return err
	}
	if uint64(start+n)*uint64(d.stride) > uint64(d.stream.Length()) {
		return native.ErrInvalidCall
	}
	if d.canRender() {
		if err := d.render(pt, d.streamVertices(start, n)); err != nil {
			return err
		}
	}
	d.stats.Draws++
	d.stats.Primitives += int(count)
	return nil
}

// DrawIndexedPrimitive implements native.Device.
func (d *Device) DrawIndexedPrimitive(pt native.PrimitiveType, base int32, minIndex, numVertices, start, count uint32) error {
	if err := d.drawable(); err != nil {
		return err
	}
	if d.indices == nil || d.indices.released || base < 0 {
		return native.ErrInvalidCall
	}
	n, err := vertexCount(pt, count)
	if err != nil {
		return err
	}
	if uint64(start+n)*uint64(d.indices.format.BytesPerPixel()) > uint64(d.indices.Length()) {
		return native.ErrInvalidCall
	}
	if uint64(uint32(base)+minIndex+numVertices)*uint64(d.stride) > uint64(d.stream.Length()) {
		return native.ErrInvalidCall
	}
	if d.canRender() {
		data, err := d.indexedVertices(base, start, n)
		if err != nil {
			return err
		}
		if err := d.render(pt, data); err != nil {
			return err
		}
	}
	d.stats.Draws++
	d.stats.Primitives += int(count)
	return nil
}

func vertexCount(pt native.PrimitiveType, prims uint32) (uint32, error) {
	if prims == 0 {
		return 0, native.ErrInvalidCall
	}
	switch pt {
	case native.PrimitivePointList:
		return prims, nil
	case native.PrimitiveLineList:
		return prims * 2, nil
	case native.PrimitiveLineStrip:
		return prims + 1, nil
	case native.PrimitiveTriangleList:
		return prims * 3, nil
	case native.PrimitiveTriangleStrip:
		return prims + 2, nil
	}
	return 0, native.ErrInvalidCall
}

// GetRenderTargetData implements native.Device.
func (d *Device) GetRenderTargetData(src, dst native.Surface) error {
	s, ok1 := src.(*Surface)
	t, ok2 := dst.(*Surface)
	if !ok1 || !ok2 || s.im.desc.Usage&native.UsageRenderTarget == 0 || t.im.desc.Pool != native.PoolSystemMem {
		return native.ErrInvalidCall
	}
	if s.im.desc.Width != t.im.desc.Width || s.im.desc.Height != t.im.desc.Height {
		return native.ErrInvalidCall
	}
	if err := d.sync(s.im); err != nil {
		return err
	}
	return copyRect(t.im, s.im, s.im.bounds(), 0, 0)
}

// UpdateSurface implements native.Device.
func (d *Device) UpdateSurface(src native.Surface, srcRect *native.Rect, dst native.Surface, x, y int32) error {
	s, ok1 := src.(*Surface)
	t, ok2 := dst.(*Surface)
	if !ok1 || !ok2 || s.im.desc.Pool != native.PoolSystemMem || t.im.desc.Pool != native.PoolDefault {
		return native.ErrInvalidCall
	}
	r := s.im.bounds()
	if srcRect != nil {
		r = *srcRect
	}
	if err := d.sync(t.im); err != nil {
		return err
	}
	if err := copyRect(t.im, s.im, r, x, y); err != nil {
		return err
	}
	return d.upload(t.gpu, t.level, t.im)
}

// Release implements native.Device. Resources still alive are freed
// with the device.
func (d *Device) Release() {
	if d.released {
		return
	}
	d.released = true
	d.destroyRenderer(d.r)
	d.r = nil
	d.destroyGPUTexture(d.swap.back.gpu)
	d.dev.DestroyBuffer(d.constants)
	if d.owned {
		d.dev.Destroy()
	}
}

func mipLevels(w, h uint32) uint32 {
	n := uint32(1)
	for w > 1 || h > 1 {
		w, h = max(w/2, 1), max(h/2, 1)
		n++
	}
	return n
}
