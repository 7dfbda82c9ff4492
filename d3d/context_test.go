// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"errors"
	"testing"

	"github.com/gogpu/d3dpipe"
	"github.com/gogpu/d3dpipe/internal/nativetest"
	"github.com/gogpu/d3dpipe/native"
)

func TestNewContextNonEx(t *testing.T) {
	ctx, dev := newTestContext(t)

	if ctx.State() != StateReady {
		t.Fatalf("State() = %v, want ready", ctx.State())
	}
	if ctx.IsEx() {
		t.Error("IsEx() = true on plain factory")
	}
	if ctx.DefaultPool() != native.PoolManaged {
		t.Errorf("DefaultPool() = %v, want managed", ctx.DefaultPool())
	}
	if dev.Flags&native.CreateHardwareVertexProcessing == 0 {
		t.Errorf("flags %#x lack hardware vertex processing", dev.Flags)
	}
	if dev.Flags&native.CreateFPUPreserve == 0 {
		t.Errorf("flags %#x lack FPU preserve", dev.Flags)
	}
	if !dev.Params.Windowed || dev.Params.BackBufferWidth != 1 || dev.Params.BackBufferHeight != 1 {
		t.Errorf("present params = %+v, want windowed 1x1", dev.Params)
	}
	if dev.Params.PresentInterval != native.PresentIntervalOne {
		t.Errorf("PresentInterval = %#x, want one", dev.Params.PresentInterval)
	}

	// Shared pipeline objects are bound.
	if dev.Indices == nil || dev.Stream == nil {
		t.Error("index buffer or stream not bound")
	}
	for _, call := range []string{"SetVertexDeclaration", "SetVertexShader", "PassThroughVertexShader"} {
		if dev.Count(call) != 1 {
			t.Errorf("%s called %d times, want 1", call, dev.Count(call))
		}
	}
	if got := dev.RenderStates[native.RSDestBlend]; got != native.BlendInvSrcAlpha {
		t.Errorf("dest blend = %d, want InvSrcAlpha", got)
	}
	if got := dev.RenderStates[native.RSCullMode]; got != native.CullNone {
		t.Errorf("cull mode = %d, want none", got)
	}
	if got := dev.RenderStates[native.RSZEnable]; got != 0 {
		t.Errorf("z enable = %d, want 0", got)
	}

	// The streaming vertex buffer is the only tracked resource.
	if n := ctx.ResourceManager().Len(); n != 1 {
		t.Errorf("tracked resources = %d, want 1", n)
	}
}

func TestNewContextEx(t *testing.T) {
	f := nativetest.NewFactoryEx(nativetest.GoodAdapter(0x1234))
	ctx, dev := newContextOn(t, f)

	if !ctx.IsEx() || !dev.Ex {
		t.Fatal("Ex device not selected")
	}
	if ctx.DefaultPool() != native.PoolDefault {
		t.Errorf("DefaultPool() = %v, want default", ctx.DefaultPool())
	}
}

func TestNewContextExFallback(t *testing.T) {
	f := nativetest.NewFactoryEx(nativetest.GoodAdapter(0x1234))
	f.ExErr = native.ErrNotAvailable
	ctx, dev := newContextOn(t, f)

	if ctx.IsEx() || dev.Ex {
		t.Error("fallback created an Ex device")
	}
	if ctx.DefaultPool() != native.PoolManaged {
		t.Errorf("DefaultPool() = %v, want managed", ctx.DefaultPool())
	}
}

func TestNewContextSoftwareVertexProcessing(t *testing.T) {
	a := nativetest.GoodAdapter(0x1234)
	a.Caps.DevCaps = 0
	f := nativetest.NewFactory(a)
	ctx, dev := newContextOn(t, f, WithVSync(false))

	if dev.Flags&native.CreateSoftwareVertexProcessing == 0 {
		t.Errorf("flags %#x lack software vertex processing", dev.Flags)
	}
	if dev.Params.PresentInterval != native.PresentIntervalImmediate {
		t.Errorf("PresentInterval = %#x, want immediate", dev.Params.PresentInterval)
	}
	vb := ctx.vb.vb.(*nativetest.Buffer)
	if vb.Pool() != native.PoolSystemMem {
		t.Errorf("vertex buffer pool = %v, want systemmem", vb.Pool())
	}
	if vb.Usage()&native.UsageSoftwareProcessing == 0 {
		t.Errorf("vertex buffer usage %#x lacks software processing", vb.Usage())
	}
}

func TestNewContextFailures(t *testing.T) {
	t.Run("nil factory", func(t *testing.T) {
		ctx, err := NewContext(nil, 0)
		if ctx != nil || !errors.Is(err, ErrNoFactory) {
			t.Errorf("NewContext(nil) = %v, %v", ctx, err)
		}
	})

	t.Run("create device", func(t *testing.T) {
		a := nativetest.GoodAdapter(0x1234)
		a.CreateErr = native.ErrNotAvailable
		ctx, err := NewContext(nativetest.NewFactory(a), 0)
		if ctx != nil {
			t.Fatal("partial context returned")
		}
		if KindOf(err) != KindCapability || !errors.Is(err, native.ErrNotAvailable) {
			t.Errorf("err = %v (kind %v)", err, KindOf(err))
		}
	})

	t.Run("empty shader override uses builtin", func(t *testing.T) {
		f := nativetest.NewFactory(nativetest.GoodAdapter(0x1234))
		ctx, err := NewContext(f, 0, WithVertexShader([]byte{}))
		if err != nil {
			t.Fatalf("NewContext: %v", err)
		}
		defer ctx.Release()
		if f.LastDevice().Count("PassThroughVertexShader") != 1 {
			t.Error("builtin shader not requested")
		}
	})

	t.Run("failed object creation releases everything", func(t *testing.T) {
		a := nativetest.GoodAdapter(0x1234)
		a.Fail = map[string]error{"CreateVertexBuffer": native.ErrOutOfVideoMemory}
		f := nativetest.NewFactory(a)
		ctx, err := NewContext(f, 0)
		if ctx != nil {
			t.Fatal("partial context returned")
		}
		if KindOf(err) != KindAllocation || !errors.Is(err, native.ErrOutOfVideoMemory) {
			t.Errorf("err = %v (kind %v)", err, KindOf(err))
		}
		dev := f.LastDevice()
		if dev.Live() != 0 {
			t.Errorf("live resources = %d", dev.Live())
		}
		if !dev.IsReleased {
			t.Error("device not released")
		}
	})
}

func TestInitContextFailureTearsDown(t *testing.T) {
	ctx, dev := newTestContext(t)
	f := ctx.factory.(*nativetest.Factory)

	if err := ctx.InitContext(false); err != nil {
		t.Fatalf("InitContext: %v", err)
	}
	if !dev.IsReleased || dev.Live() != 0 {
		t.Errorf("old device released = %v, live = %d", dev.IsReleased, dev.Live())
	}
	next := f.LastDevice()
	if next == dev || next.Params.PresentInterval != native.PresentIntervalImmediate {
		t.Fatalf("reinit did not create a new immediate device")
	}

	f.Adapters[0].CreateErr = native.ErrDeviceLost
	err := ctx.InitContext(true)
	if err == nil {
		t.Fatal("InitContext succeeded with failing CreateDevice")
	}
	if KindOf(err) != KindTransient {
		t.Errorf("kind = %v, want transient for device loss", KindOf(err))
	}
	if ctx.State() != StateUninitialized || ctx.Device() != nil {
		t.Errorf("state = %v, device = %v after failed init", ctx.State(), ctx.Device())
	}
	if next.Live() != 0 || !next.IsReleased {
		t.Errorf("previous device live = %d released = %v", next.Live(), next.IsReleased)
	}
	if err := ctx.BeginScene(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("BeginScene on uninitialized context = %v", err)
	}
}

func TestTestDeviceState(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      DeviceState
		wantState State
	}{
		{"ok", nil, DeviceOK, StateReady},
		{"lost", native.ErrDeviceLost, DeviceLost, StateDeviceLost},
		{"not reset", native.ErrDeviceNotReset, DeviceNeedsReset, StateDeviceLost},
		{"removed", native.ErrDeviceRemoved, DeviceRemoved, StateDeviceLost},
		{"hung", native.ErrDeviceHung, DeviceRemoved, StateDeviceLost},
		{"other failure", native.ErrDriverInternalError, DeviceUnknown, StateReady},
		{"occluded", native.PresentOccluded, DeviceOK, StateReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, dev := newTestContext(t)
			dev.CoopErr = tt.err
			if got := ctx.TestDeviceState(); got != tt.want {
				t.Errorf("TestDeviceState() = %v, want %v", got, tt.want)
			}
			if ctx.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", ctx.State(), tt.wantState)
			}
		})
	}
}

func TestTestDeviceStateEx(t *testing.T) {
	f := nativetest.NewFactoryEx(nativetest.GoodAdapter(0x1234))
	ctx, dev := newContextOn(t, f)

	dev.StateErr = native.ErrDeviceHung
	dev.CoopErr = nil
	if got := ctx.TestDeviceState(); got != DeviceRemoved {
		t.Errorf("TestDeviceState() = %v, want removed", got)
	}
	if dev.Count("CheckDeviceState") != 1 || dev.Count("TestCooperativeLevel") != 0 {
		t.Errorf("Ex device polled with %v", dev.Calls)
	}
}

func TestDeviceLostBlocksDrawing(t *testing.T) {
	ctx, dev := newTestContext(t)
	dev.CoopErr = native.ErrDeviceLost
	ctx.TestDeviceState()

	coords, colors := quadInput(1)
	err := ctx.DrawIndexedQuads(coords, colors, 4)
	if !errors.Is(err, ErrDeviceLost) || KindOf(err) != KindTransient {
		t.Errorf("DrawIndexedQuads on lost device = %v", err)
	}
	if len(dev.Draws) != 0 {
		t.Errorf("draws issued on lost device: %d", len(dev.Draws))
	}
}

func TestResetContext(t *testing.T) {
	ctx, dev := newTestContext(t)
	rm := ctx.ResourceManager()

	managed, err := rm.CreateTexture(64, 64, false, true, native.FormatUnknown, 0)
	if err != nil {
		t.Fatal(err)
	}
	rt := mustTarget(t, ctx, 32, 32)
	if _, err := ctx.SetRenderTarget(rt, true, false); err != nil {
		t.Fatal(err)
	}
	plain, err := rm.CreateOSPlainSurface(16, 16, native.PoolSystemMem, native.FormatA8R8G8B8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.SetRenderTarget(plain, true, false); err != nil {
		t.Fatal(err)
	}
	if err := ctx.BeginScene(); err != nil {
		t.Fatal(err)
	}
	coords, colors := quadInput(2)
	if err := ctx.DrawIndexedQuads(coords, colors, 8); err != nil {
		t.Fatal(err)
	}

	dev.CoopErr = native.ErrDeviceNotReset
	if got := ctx.TestDeviceState(); got != DeviceNeedsReset {
		t.Fatalf("TestDeviceState() = %v", got)
	}
	if err := ctx.ResetContext(); err != nil {
		t.Fatalf("ResetContext: %v", err)
	}

	if ctx.State() != StateReady {
		t.Errorf("State() = %v, want ready", ctx.State())
	}
	if !rt.Released() || rt.DepthSurface() != nil {
		t.Error("default pool render target survived reset")
	}
	if managed.Released() {
		t.Error("managed texture released by reset")
	}
	if plain.Released() || plain.DepthSurface() != nil {
		t.Error("system memory target lost or kept its depth buffer")
	}
	if _, ok := rm.Get(managed.Handle()); !ok {
		t.Error("managed texture handle no longer resolves")
	}
	if ctx.InScene() || ctx.VertexCursor() != 0 {
		t.Errorf("InScene = %v, cursor = %d after reset", ctx.InScene(), ctx.VertexCursor())
	}
	if _, bound := ctx.RenderTargetDesc(); bound {
		t.Error("render target still bound after reset")
	}
	if dev.LiveInPool(native.PoolDefault) != 1 {
		t.Errorf("default pool live = %d, want only the new vertex buffer", dev.LiveInPool(native.PoolDefault))
	}
	if ctx.Stats().Resets != 1 {
		t.Errorf("Stats().Resets = %d", ctx.Stats().Resets)
	}

	// Drawing works again.
	if err := ctx.DrawIndexedQuads(coords, colors, 8); err != nil {
		t.Errorf("draw after reset: %v", err)
	}
}

func TestResetContextFailure(t *testing.T) {
	ctx, dev := newTestContext(t)
	dev.Fail["Reset"] = native.ErrDeviceLost

	err := ctx.ResetContext()
	if KindOf(err) != KindTransient || !errors.Is(err, ErrDeviceLost) {
		t.Errorf("ResetContext() = %v, want transient", err)
	}
	if ctx.State() != StateDeviceLost {
		t.Errorf("State() = %v, want device-lost", ctx.State())
	}

	// A later reset succeeds.
	if err := ctx.ResetContext(); err != nil {
		t.Fatalf("second ResetContext: %v", err)
	}
	if ctx.State() != StateReady {
		t.Errorf("State() = %v, want ready", ctx.State())
	}
}

func TestPresent(t *testing.T) {
	ctx, dev := newTestContext(t)

	if err := ctx.BeginScene(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Present(0); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if ctx.InScene() {
		t.Error("Present left the scene open")
	}

	dev.PresentErr = native.PresentOccluded
	if err := ctx.Present(0); err != nil {
		t.Errorf("occluded Present = %v, want nil", err)
	}

	dev.PresentErr = native.ErrDeviceLost
	err := ctx.Present(0)
	if KindOf(err) != KindTransient {
		t.Errorf("Present on lost device = %v", err)
	}
	if ctx.State() != StateDeviceLost {
		t.Errorf("State() = %v, want device-lost", ctx.State())
	}
}

func TestPresentSwapChain(t *testing.T) {
	ctx, dev := newTestContext(t)
	sc, err := ctx.ResourceManager().CreateSwapChain(0x42, 1, 320, 240, native.SwapEffectCopy, native.PresentIntervalOne)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.PresentSwapChain(sc); err != nil {
		t.Fatalf("PresentSwapChain: %v", err)
	}
	if dev.Count("SwapChain.Present") != 1 {
		t.Errorf("swap chain presents = %d", dev.Count("SwapChain.Present"))
	}
	if err := ctx.PresentSwapChain(nil); KindOf(err) != KindContract {
		t.Errorf("PresentSwapChain(nil) = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	f := nativetest.NewFactory(nativetest.GoodAdapter(0x1234))
	ctx, err := NewContext(f, 0)
	if err != nil {
		t.Fatal(err)
	}
	dev := f.LastDevice()
	if _, err := ctx.ResourceManager().CreateTexture(8, 8, false, false, native.FormatUnknown, 0); err != nil {
		t.Fatal(err)
	}
	if err := ctx.BeginScene(); err != nil {
		t.Fatal(err)
	}

	ctx.Release()
	ctx.Release()

	if ctx.State() != StateReleased {
		t.Errorf("State() = %v", ctx.State())
	}
	if dev.Live() != 0 {
		t.Errorf("live resources = %d", dev.Live())
	}
	if dev.Count("Release") != 1 {
		t.Errorf("device released %d times", dev.Count("Release"))
	}
	if dev.Count("EndScene") != 1 {
		t.Errorf("EndScene called %d times", dev.Count("EndScene"))
	}
	if err := ctx.BeginScene(); !errors.Is(err, ErrReleased) {
		t.Errorf("BeginScene after Release = %v", err)
	}
	if err := ctx.InitContext(true); !errors.Is(err, ErrReleased) {
		t.Errorf("InitContext after Release = %v", err)
	}
}

func TestNilContext(t *testing.T) {
	var ctx *Context
	if err := ctx.BeginScene(); !errors.Is(err, ErrNilContext) {
		t.Errorf("BeginScene() = %v", err)
	}
	if err := ctx.ResetContext(); !errors.Is(err, ErrNilContext) {
		t.Errorf("ResetContext() = %v", err)
	}
	if got := ctx.TestDeviceState(); got != DeviceUnknown {
		t.Errorf("TestDeviceState() = %v", got)
	}
	ctx.Release()
}

func TestNilReceivers(t *testing.T) {
	var ctx *Context
	if err := ctx.InitContext(false); !errors.Is(err, ErrNilContext) || KindOf(err) != KindContract {
		t.Errorf("InitContext() = %v", err)
	}
	if ctx.ResourceManager() != nil || ctx.State() != StateReleased || ctx.Adapter() != -1 {
		t.Error("nil context accessors returned live values")
	}

	var rm *ResourceManager
	if _, err := rm.CreateTexture(8, 8, false, false, native.FormatA8R8G8B8, 0); !errors.Is(err, ErrNilManager) {
		t.Errorf("CreateTexture() = %v", err)
	}
	if _, err := rm.CreateRenderTarget(8, 8, false); !errors.Is(err, ErrNilManager) {
		t.Errorf("CreateRenderTarget() = %v", err)
	}
	if _, err := rm.CreateSwapChain(0xBEEF, 1, 8, 8, native.SwapEffectDiscard, native.PresentIntervalDefault); !errors.Is(err, ErrNilManager) {
		t.Errorf("CreateSwapChain() = %v", err)
	}
	if _, err := rm.GetBlitSurface(8, 8, native.FormatA8R8G8B8); !errors.Is(err, ErrNilManager) {
		t.Errorf("GetBlitSurface() = %v", err)
	}
	if rm.Len() != 0 || rm.Resources() != nil {
		t.Error("nil manager reports resources")
	}
	rm.ReleaseDefaultPoolResources()
	rm.ReleaseAll()

	var m *PipelineManager
	if m.AdapterCount() != 0 || m.Adapters() != nil {
		t.Error("nil pipeline manager reports adapters")
	}
	if _, err := m.AdapterState(0); !errors.Is(err, ErrNilManager) {
		t.Errorf("AdapterState() = %v", err)
	}
	if err := m.SetFocusWindow(0, 1); !errors.Is(err, ErrNilManager) {
		t.Errorf("SetFocusWindow() = %v", err)
	}
	if _, err := m.MatchingDepthStencilFormat(0, native.FormatX8R8G8B8, native.FormatX8R8G8B8); !errors.Is(err, ErrNilManager) {
		t.Errorf("MatchingDepthStencilFormat() = %v", err)
	}
	if _, err := m.DeviceContext(0); KindOf(err) != KindContract {
		t.Errorf("DeviceContext() = %v", err)
	}
}

func TestReleasedContextResources(t *testing.T) {
	f := nativetest.NewFactory(nativetest.GoodAdapter(0x1234))
	m := newTestManager(t, f, d3dpipe.DefaultConfig())
	ctx, err := m.DeviceContext(0)
	if err != nil {
		t.Fatalf("DeviceContext: %v", err)
	}
	rm := ctx.ResourceManager()
	ctx.Release()
	if _, err := rm.CreateTexture(8, 8, false, false, native.FormatA8R8G8B8, 0); KindOf(err) != KindContract {
		t.Errorf("CreateTexture after Release = %v", err)
	}
	if _, err := ctx.ResourceManager().CreateRenderTarget(8, 8, false); !errors.Is(err, ErrNilManager) {
		t.Errorf("CreateRenderTarget via released context = %v", err)
	}
}
