// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halnative

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/d3dpipe"
	"github.com/gogpu/d3dpipe/d3d"
	"github.com/gogpu/d3dpipe/native"
)

// newNoopFactory creates a factory over the noop HAL backend.
func newNoopFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactory(&noop.API{})
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	if f.AdapterCount() == 0 {
		f.Release()
		t.Fatal("noop backend exposes no adapters")
	}
	return f
}

func newTestDevice(t *testing.T, f *Factory, ex bool) *Device {
	t.Helper()
	pp := &native.PresentParams{BackBufferWidth: 64, BackBufferHeight: 32, Windowed: true}
	var (
		dev native.Device
		err error
	)
	if ex {
		dev, err = f.CreateDeviceEx(0, native.DeviceTypeHAL, 0, native.CreateHardwareVertexProcessing, pp)
	} else {
		dev, err = f.CreateDevice(0, native.DeviceTypeHAL, 0, native.CreateHardwareVertexProcessing, pp)
	}
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	t.Cleanup(dev.Release)
	return dev.(*Device)
}

func TestFactoryAdapters(t *testing.T) {
	f := newNoopFactory(t)
	defer f.Release()

	id, err := f.AdapterIdentifier(0)
	if err != nil {
		t.Fatal(err)
	}
	if id.VendorID != vendorGoGPU || id.DeviceID != 1 {
		t.Errorf("identifier = %+v", id)
	}
	caps, err := f.DeviceCaps(0, native.DeviceTypeHAL)
	if err != nil {
		t.Fatal(err)
	}
	if missing := d3d.MissingCaps(caps); len(missing) != 0 {
		t.Errorf("caps missing %v", missing)
	}
	if caps.MaxTextureWidth == 0 {
		t.Error("MaxTextureWidth = 0")
	}
	if _, err := f.DeviceCaps(0, native.DeviceTypeSW); !errors.Is(err, native.ErrNotAvailable) {
		t.Errorf("software caps = %v", err)
	}
	if _, err := f.AdapterIdentifier(f.AdapterCount()); !errors.Is(err, native.ErrInvalidCall) {
		t.Errorf("out of range = %v", err)
	}

	f.Release()
	if f.AdapterCount() != 0 {
		t.Error("released factory still reports adapters")
	}
}

func TestFactoryFormatChecks(t *testing.T) {
	f := newNoopFactory(t)
	defer f.Release()
	const hw = native.DeviceTypeHAL
	x8 := native.FormatX8R8G8B8

	if err := f.CheckDeviceType(0, hw, x8, native.FormatA8R8G8B8, true); err != nil {
		t.Errorf("CheckDeviceType(A8R8G8B8) = %v", err)
	}
	if err := f.CheckDeviceType(0, hw, x8, native.FormatR5G6B5, true); err == nil {
		t.Error("CheckDeviceType(R5G6B5) succeeded")
	}

	tests := []struct {
		usage  native.Usage
		rtype  native.ResourceType
		format native.Format
		ok     bool
	}{
		{native.UsageDepthStencil, native.ResourceSurface, native.FormatD24S8, true},
		{native.UsageDepthStencil, native.ResourceSurface, native.FormatD16, true},
		{native.UsageDepthStencil, native.ResourceTexture, native.FormatD24S8, false},
		{native.UsageDepthStencil, native.ResourceSurface, native.FormatA8R8G8B8, false},
		{native.UsageRenderTarget, native.ResourceTexture, native.FormatA8R8G8B8, true},
		{native.UsageRenderTarget, native.ResourceTexture, native.FormatD32, false},
		{0, native.ResourceTexture, native.FormatR5G6B5, false},
	}
	for _, tt := range tests {
		err := f.CheckDeviceFormat(0, hw, x8, tt.usage, tt.rtype, tt.format)
		if (err == nil) != tt.ok {
			t.Errorf("CheckDeviceFormat(%v, %v) = %v, want ok=%v", tt.usage, tt.format, err, tt.ok)
		}
	}

	if n, err := f.CheckDeviceMultiSampleType(0, hw, native.FormatA8R8G8B8, true, native.Multisample4); err != nil || n != 1 {
		t.Errorf("4x MSAA = %d, %v", n, err)
	}
	if _, err := f.CheckDeviceMultiSampleType(0, hw, native.FormatA8R8G8B8, true, native.Multisample8); err == nil {
		t.Error("8x MSAA accepted")
	}
	if err := f.CheckDepthStencilMatch(0, hw, x8, native.FormatR5G6B5, native.FormatD24S8); err == nil {
		t.Error("depth match for unsupported target succeeded")
	}
}

func TestTextureUpload(t *testing.T) {
	f := newNoopFactory(t)
	defer f.Release()
	d := newTestDevice(t, f, true)

	tex, err := d.CreateTexture(8, 4, 1, 0, native.FormatA8R8G8B8, native.PoolDefault)
	if err != nil {
		t.Fatal(err)
	}
	r := native.Rect{Left: 2, Top: 1, Right: 4, Bottom: 3}
	lr, err := tex.LockRect(0, &r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if lr.Pitch != 32 || len(lr.Bits) != 32+8 {
		t.Errorf("pitch %d, %d bytes", lr.Pitch, len(lr.Bits))
	}
	copy(lr.Bits[:8], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if _, err := tex.LockRect(0, nil, 0); !errors.Is(err, native.ErrInvalidCall) {
		t.Errorf("double lock = %v", err)
	}
	if err := tex.UnlockRect(0); err != nil {
		t.Fatal(err)
	}
	if d.Stats().TextureUploads != 1 {
		t.Errorf("uploads = %d, want 1", d.Stats().TextureUploads)
	}

	surf, err := tex.SurfaceLevel(0)
	if err != nil {
		t.Fatal(err)
	}
	full, err := surf.LockRect(nil, native.LockReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	if got := full.Bits[32+8 : 32+16]; !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("level surface sees %v", got)
	}
	_ = surf.UnlockRect()
	surf.Release()

	sys, err := d.CreateTexture(8, 8, 0, 0, native.FormatA8R8G8B8, native.PoolSystemMem)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sys.SurfaceLevel(3); err != nil {
		t.Errorf("full mip chain missing level 3: %v", err)
	}
	if _, err := sys.LockRect(0, nil, 0); err != nil {
		t.Fatal(err)
	}
	_ = sys.UnlockRect(0)
	if d.Stats().TextureUploads != 1 {
		t.Error("system memory texture was uploaded")
	}

	if d.Live() != 2 {
		t.Errorf("live = %d, want 2", d.Live())
	}
	tex.Release()
	sys.Release()
	tex.Release()
	if d.Live() != 0 {
		t.Errorf("live after release = %d", d.Live())
	}
}

func TestBufferUpload(t *testing.T) {
	f := newNoopFactory(t)
	defer f.Release()
	d := newTestDevice(t, f, true)

	vb, err := d.CreateVertexBuffer(64, native.UsageDynamic|native.UsageWriteOnly, native.PoolDefault)
	if err != nil {
		t.Fatal(err)
	}
	data, err := vb.Lock(32, 0, native.LockNoOverwrite)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 32 {
		t.Errorf("locked %d bytes, want 32", len(data))
	}
	if err := vb.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := vb.Unlock(); !errors.Is(err, native.ErrInvalidCall) {
		t.Errorf("second Unlock = %v", err)
	}
	if _, err := vb.Lock(60, 8, 0); !errors.Is(err, native.ErrInvalidCall) {
		t.Errorf("lock past end = %v", err)
	}
	if d.Stats().BufferUploads != 1 {
		t.Errorf("buffer uploads = %d", d.Stats().BufferUploads)
	}

	if _, err := d.CreateIndexBuffer(12, 0, native.FormatA8R8G8B8, native.PoolManaged); err == nil {
		t.Error("index buffer with a pixel format accepted")
	}
	ib, err := d.CreateIndexBuffer(6, native.UsageWriteOnly, native.FormatIndex16, native.PoolManaged)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ib.Lock(2, 4, 0); err != nil {
		t.Fatal(err)
	}
	if err := ib.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := d.SetStreamSource(0, ib.(*Buffer), 0, 32); err == nil {
		t.Error("index buffer bound as a stream")
	}
}

func TestResetRefusesDefaultPool(t *testing.T) {
	f := newNoopFactory(t)
	defer f.Release()
	d := newTestDevice(t, f, false)

	rt, err := d.CreateTexture(16, 16, 1, native.UsageRenderTarget, native.FormatA8R8G8B8, native.PoolDefault)
	if err != nil {
		t.Fatal(err)
	}
	managed, err := d.CreateTexture(16, 16, 1, 0, native.FormatA8R8G8B8, native.PoolManaged)
	if err != nil {
		t.Fatal(err)
	}
	defer managed.Release()

	pp := &native.PresentParams{BackBufferWidth: 128, BackBufferHeight: 64}
	if err := d.Reset(pp); !errors.Is(err, native.ErrInvalidCall) {
		t.Fatalf("Reset with live render target = %v", err)
	}
	rt.Release()
	if err := d.Reset(pp); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if pp.BackBufferFormat != native.FormatX8R8G8B8 {
		t.Errorf("back buffer format = %v", pp.BackBufferFormat)
	}
	if d.Stats().Resets != 1 {
		t.Errorf("resets = %d", d.Stats().Resets)
	}
}

func TestBufferLayout(t *testing.T) {
	layout, err := bufferLayout([]native.VertexElement{
		{Offset: 0, Type: native.DeclFloat3, Usage: native.DeclUsagePosition},
		{Offset: 12, Type: native.DeclD3DColor, Usage: native.DeclUsageColor},
		{Offset: 16, Type: native.DeclFloat2, Usage: native.DeclUsageTexCoord},
		{Offset: 24, Type: native.DeclFloat2, Usage: native.DeclUsageTexCoord, UsageIndex: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if layout.ArrayStride != 32 || len(layout.Attributes) != 4 {
		t.Fatalf("layout = %+v", layout)
	}
	if a := layout.Attributes[1]; a.Format != gputypes.VertexFormatUnorm8x4 || a.Offset != 12 || a.ShaderLocation != 1 {
		t.Errorf("color attribute = %+v", a)
	}

	if _, err := bufferLayout([]native.VertexElement{{Stream: 1, Type: native.DeclFloat2}}); !errors.Is(err, native.ErrNotAvailable) {
		t.Errorf("second stream = %v", err)
	}
	if _, err := bufferLayout(nil); !errors.Is(err, native.ErrInvalidCall) {
		t.Errorf("empty declaration = %v", err)
	}
}

func TestCompileWGSL(t *testing.T) {
	words, err := CompileWGSL(PassThroughWGSL)
	if err != nil {
		t.Fatalf("CompileWGSL(pass-through): %v", err)
	}
	const spirvMagic = 0x07230203
	if len(words) == 0 || words[0] != spirvMagic {
		t.Errorf("not SPIR-V: %d words", len(words))
	}
	if _, err := CompileWGSL("fn broken( {"); err == nil {
		t.Error("invalid source compiled")
	}

	f := newNoopFactory(t)
	defer f.Release()
	d := newTestDevice(t, f, true)
	if _, err := d.CreatePixelShader([]byte("not wgsl")); !errors.Is(err, native.ErrInvalidCall) {
		t.Errorf("CreatePixelShader(garbage) = %v", err)
	}
}

// TestPipeline drives the device pipeline end to end over the noop backend.
func TestPipeline(t *testing.T) {
	f := newNoopFactory(t)
	m, err := d3d.NewPipelineManager(f, d3dpipe.DefaultConfig(), d3d.WithOSVersion(d3d.OSVersion{}))
	if err != nil {
		t.Fatalf("NewPipelineManager: %v", err)
	}
	defer m.Close()

	ctx, err := m.DeviceContext(0)
	if err != nil {
		t.Fatalf("DeviceContext: %v", err)
	}
	if !ctx.IsEx() || ctx.DefaultPool() != native.PoolDefault {
		t.Errorf("Ex = %v, default pool = %v", ctx.IsEx(), ctx.DefaultPool())
	}
	dev := ctx.Device().(*Device)

	rt, err := ctx.ResourceManager().CreateRenderTarget(64, 64, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.SetRenderTarget(rt, true, false); err != nil {
		t.Fatalf("SetRenderTarget: %v", err)
	}
	if err := ctx.SetProjViewMatrix(false, d3d.Identity()); err != nil {
		t.Fatal(err)
	}

	const quads = 3
	coords := make([]float32, quads*4*d3d.FloatsPerVertex)
	colors := make([]byte, quads*4*d3d.ColorBytesPerVertex)
	if err := ctx.DrawIndexedQuads(coords, colors, quads*4); err != nil {
		t.Fatalf("DrawIndexedQuads: %v", err)
	}
	coords = make([]float32, 3*d3d.FloatsPerVertex)
	colors = make([]byte, 3*d3d.ColorBytesPerVertex)
	if err := ctx.DrawTriangleList(coords, colors, 1); err != nil {
		t.Fatalf("DrawTriangleList: %v", err)
	}

	pixels := make([]byte, 64*64*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	if err := ctx.UpdateTexture(rt, pixels, 64*4, 0, 0, 64, 64); err != nil {
		t.Fatalf("UpdateTexture: %v", err)
	}
	got := make([]byte, len(pixels))
	if err := ctx.ReadPixels(rt, got); err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if !bytes.Equal(got, pixels) {
		t.Error("pixels read back differ from pixels written")
	}
	if err := ctx.Present(0); err != nil {
		t.Fatalf("Present: %v", err)
	}

	st := dev.Stats()
	if st.Draws != 2 || st.Rendered != 2 || st.Primitives != quads*2+1 || st.Presents != 1 {
		t.Errorf("device stats = %+v", st)
	}
	wvp := ctx.WVP().Transpose()
	consts := dev.VertexShaderConstants(d3d.WVPRegister, 4)
	for i := range consts {
		if float64(consts[i]) != float64(float32(wvp[i])) {
			t.Fatalf("constant %d = %v, want %v", i, consts[i], wvp[i])
		}
	}
	if dev.RenderState(native.RSScissorTestEnable) != 0 {
		t.Error("scissor test enabled without a clip")
	}
}

type providerDevice struct{}

func (providerDevice) Poll(bool) {}
func (providerDevice) Destroy()  {}

type providerQueue struct{}

type providerAdapter struct{}

// provider is a host application sharing a noop HAL device.
type provider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p *provider) Device() gpucontext.Device             { return providerDevice{} }
func (p *provider) Queue() gpucontext.Queue               { return providerQueue{} }
func (p *provider) Adapter() gpucontext.Adapter           { return providerAdapter{} }
func (p *provider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *provider) HalDevice() any                        { return p.device }
func (p *provider) HalQueue() any                         { return p.queue }

func TestNewFactoryFromProvider(t *testing.T) {
	instance, err := (&noop.API{}).CreateInstance(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	defer open.Device.Destroy()

	p := &provider{device: open.Device, queue: open.Queue, format: gputypes.TextureFormatRGBA8Unorm}
	f, err := NewFactoryFromProvider(p)
	if err != nil {
		t.Fatalf("NewFactoryFromProvider: %v", err)
	}
	defer f.Release()

	if f.AdapterCount() != 1 {
		t.Fatalf("AdapterCount = %d", f.AdapterCount())
	}
	mode, _ := f.AdapterDisplayMode(0)
	if mode.Format != native.FormatX8B8G8R8 {
		t.Errorf("display format = %v, want X8B8G8R8", mode.Format)
	}
	d := newTestDevice(t, f, true)
	if d.owned {
		t.Error("shared device is owned by the factory")
	}

	if _, err := NewFactoryFromProvider(&provider{format: gputypes.TextureFormatBGRA8Unorm}); !errors.Is(err, native.ErrNotAvailable) {
		t.Errorf("provider without HAL device = %v", err)
	}
}
