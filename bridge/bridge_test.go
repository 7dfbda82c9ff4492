// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"testing"

	"github.com/gogpu/d3dpipe"
	"github.com/gogpu/d3dpipe/d3d"
	"github.com/gogpu/d3dpipe/internal/nativetest"
	"github.com/gogpu/d3dpipe/native"
)

var invalidCall = CodeOf(native.ErrInvalidCall)

func newTestBridge(t *testing.T) (*Bridge, *nativetest.Factory) {
	t.Helper()
	f := nativetest.NewFactory(nativetest.GoodAdapter(0x1234))
	m, err := d3d.NewPipelineManager(f, d3dpipe.DefaultConfig(), d3d.WithOSVersion(d3d.OSVersion{}))
	if err != nil {
		t.Fatalf("NewPipelineManager: %v", err)
	}
	b := New(m, nil)
	t.Cleanup(func() { b.Close() })
	return b, f
}

func quad() ([]float32, []byte) {
	coords := make([]float32, 4*d3d.FloatsPerVertex)
	colors := make([]byte, 4*d3d.ColorBytesPerVertex)
	for i := range colors {
		colors[i] = 0xFF
	}
	return coords, colors
}

func TestCode(t *testing.T) {
	tests := []struct {
		code   Code
		failed bool
		name   string
	}{
		{OK, false, "S_OK"},
		{False, false, "S_FALSE"},
		{invalidCall, true, "D3DERR_INVALIDCALL"},
		{CodeOf(native.ErrDeviceLost), true, "D3DERR_DEVICELOST"},
	}
	for _, tt := range tests {
		if tt.code.Failed() != tt.failed {
			t.Errorf("%s.Failed() = %v", tt.name, tt.code.Failed())
		}
		if got := tt.code.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
	if CodeOf(nil) != OK {
		t.Error("CodeOf(nil) != OK")
	}
}

func TestContextHandles(t *testing.T) {
	b, f := newTestBridge(t)

	h, code := b.Context(0)
	if code != OK || h == 0 {
		t.Fatalf("Context(0) = %d, %v", h, code)
	}
	again, code := b.Context(0)
	if code != OK || again != h {
		t.Errorf("second Context(0) = %d, %v; want %d", again, code, h)
	}
	if len(f.Devices) != 1 {
		t.Errorf("devices = %d, want 1", len(f.Devices))
	}
	if _, code := b.Context(5); code != invalidCall {
		t.Errorf("Context(5) = %v, want %v", code, invalidCall)
	}
	if code := b.BeginScene(h + 1000); code != invalidCall {
		t.Errorf("BeginScene(unknown) = %v", code)
	}
	if code := b.TestDeviceState(0); code != invalidCall {
		t.Errorf("TestDeviceState(0) = %v", code)
	}
}

func TestDrawSequence(t *testing.T) {
	b, f := newTestBridge(t)
	h, _ := b.Context(0)
	dev := f.LastDevice()

	rt, code := b.CreateTexture(h, 32, 16, true, true, 0, 0)
	if code != OK {
		t.Fatalf("CreateTexture = %v", code)
	}
	w, hgt, _, code := b.TextureInfo(h, rt)
	if code != OK || w != 32 || hgt != 16 {
		t.Errorf("TextureInfo = %dx%d, %v", w, hgt, code)
	}

	if code := b.SetRenderTarget(h, rt, true, false); code != OK {
		t.Fatalf("SetRenderTarget = %v", code)
	}
	if code := b.SetRenderTarget(h, rt, true, false); code != False {
		t.Errorf("repeated SetRenderTarget = %v, want S_FALSE", code)
	}

	proj := d3d.Identity()
	if code := b.SetProjViewMatrix(h, true, proj[:]); code != OK {
		t.Errorf("SetProjViewMatrix = %v", code)
	}
	if code := b.SetTransform(h, proj[:3]); code != invalidCall {
		t.Errorf("short matrix = %v, want invalid call", code)
	}
	if code := b.SetClipRect(h, 0, 0, 8, 8); code != OK {
		t.Errorf("SetClipRect = %v", code)
	}

	coords, colors := quad()
	if code := b.BeginScene(h); code != OK {
		t.Fatalf("BeginScene = %v", code)
	}
	if code := b.DrawIndexedQuads(h, coords, colors, 4); code != OK {
		t.Errorf("DrawIndexedQuads = %v", code)
	}
	if code := b.DrawIndexedQuads(h, coords, colors, 3); code != invalidCall {
		t.Errorf("DrawIndexedQuads(3) = %v, want invalid call", code)
	}
	if code := b.DrawTriangleList(h, coords[:3*d3d.FloatsPerVertex], colors[:3*d3d.ColorBytesPerVertex], 1); code != OK {
		t.Errorf("DrawTriangleList = %v", code)
	}
	if code := b.ResetClip(h); code != OK {
		t.Errorf("ResetClip = %v", code)
	}
	if code := b.EndScene(h); code != OK {
		t.Errorf("EndScene = %v", code)
	}
	if len(dev.Draws) == 0 {
		t.Error("no draws reached the device")
	}

	if code := b.ReadPixels(h, rt, make([]byte, 4)); code != invalidCall {
		t.Errorf("ReadPixels(short) = %v, want invalid call", code)
	}
	if code := b.ReadPixels(h, rt, make([]byte, 32*16*4)); code != OK {
		t.Errorf("ReadPixels = %v", code)
	}
	if code := b.Present(h, 0); code != OK {
		t.Errorf("Present = %v", code)
	}
	if code := b.Present(h, rt); code != invalidCall {
		t.Errorf("Present(texture) = %v, want invalid call", code)
	}
}

func TestReleaseResource(t *testing.T) {
	b, _ := newTestBridge(t)
	h, _ := b.Context(0)

	tex, code := b.CreateTexture(h, 8, 8, false, false, 0, 0)
	if code != OK {
		t.Fatalf("CreateTexture = %v", code)
	}
	pixels := make([]byte, 8*8*4)
	if code := b.UpdateTexture(h, tex, pixels, 8*4, 0, 0, 8, 8); code != OK {
		t.Errorf("UpdateTexture = %v", code)
	}
	if code := b.UpdateTexture(h, tex, pixels, 8*4, -1, 0, 8, 8); code != invalidCall {
		t.Errorf("UpdateTexture(x=-1) = %v", code)
	}
	if code := b.ReleaseResource(h, tex); code != OK {
		t.Fatalf("ReleaseResource = %v", code)
	}
	if code := b.ReleaseResource(h, tex); code != invalidCall {
		t.Errorf("second ReleaseResource = %v, want invalid call", code)
	}
	if _, _, _, code := b.TextureInfo(h, tex); code != invalidCall {
		t.Errorf("TextureInfo(stale) = %v", code)
	}
	if _, code := b.CreateTexture(h, -1, 8, false, false, 0, 0); code != invalidCall {
		t.Errorf("CreateTexture(-1) = %v", code)
	}
}

func TestSwapChain(t *testing.T) {
	b, _ := newTestBridge(t)
	h, _ := b.Context(0)

	if _, code := b.CreateSwapChain(h, 0, 64, 64, false); code != invalidCall {
		t.Errorf("CreateSwapChain(no window) = %v", code)
	}
	sc, code := b.CreateSwapChain(h, 0xBEEF, 64, 64, true)
	if code != OK {
		t.Fatalf("CreateSwapChain = %v", code)
	}
	if code := b.SetRenderTarget(h, sc, false, false); code != OK {
		t.Errorf("SetRenderTarget(swap chain) = %v", code)
	}
	if code := b.Present(h, sc); code != OK {
		t.Errorf("Present(swap chain) = %v", code)
	}
}

func TestDeviceLoss(t *testing.T) {
	b, f := newTestBridge(t)
	h, _ := b.Context(0)
	dev := f.LastDevice()

	rt, _ := b.CreateTexture(h, 16, 16, true, true, 0, 0)
	if code := b.TestDeviceState(h); code != OK {
		t.Fatalf("TestDeviceState = %v", code)
	}

	dev.CoopErr = native.ErrDeviceLost
	if code := b.TestDeviceState(h); code != CodeOf(native.ErrDeviceLost) {
		t.Errorf("lost: TestDeviceState = %v", code)
	}
	if code := b.BeginScene(h); !code.Failed() {
		t.Error("BeginScene succeeded on a lost device")
	}

	dev.CoopErr = native.ErrDeviceNotReset
	if code := b.TestDeviceState(h); code != CodeOf(native.ErrDeviceNotReset) {
		t.Errorf("not reset: TestDeviceState = %v", code)
	}

	dev.CoopErr = nil
	if code := b.ResetContext(h); code != OK {
		t.Fatalf("ResetContext = %v", code)
	}
	if code := b.SetRenderTarget(h, rt, false, false); code != invalidCall {
		t.Errorf("default pool target survived reset: %v", code)
	}
}

func TestClose(t *testing.T) {
	b, f := newTestBridge(t)
	h, _ := b.Context(0)

	if code := b.Close(); code != OK {
		t.Fatalf("Close = %v", code)
	}
	if code := b.Close(); code != OK {
		t.Errorf("second Close = %v", code)
	}
	if code := b.BeginScene(h); code != invalidCall {
		t.Errorf("BeginScene after Close = %v", code)
	}
	if _, code := b.Context(0); code != invalidCall {
		t.Errorf("Context after Close = %v", code)
	}
	if !f.LastDevice().IsReleased {
		t.Error("device not released")
	}
}

func TestFailedReinit(t *testing.T) {
	f := nativetest.NewFactory(nativetest.GoodAdapter(0x1234))
	m, err := d3d.NewPipelineManager(f, d3dpipe.DefaultConfig(), d3d.WithOSVersion(d3d.OSVersion{}))
	if err != nil {
		t.Fatalf("NewPipelineManager: %v", err)
	}
	b := New(m, nil)
	t.Cleanup(func() { b.Close() })
	h, code := b.Context(0)
	if code != OK {
		t.Fatalf("Context(0) = %v", code)
	}
	ctx, err := m.DeviceContext(0)
	if err != nil {
		t.Fatalf("DeviceContext: %v", err)
	}

	f.Adapters[0].CreateErr = native.ErrNotAvailable
	if err := ctx.InitContext(false); err == nil {
		t.Fatal("InitContext succeeded")
	}
	if ctx.ResourceManager() != nil {
		t.Fatal("resource manager survived a failed init")
	}
	if _, code := b.CreateTexture(h, 8, 8, false, false, 0, 0); code != invalidCall {
		t.Errorf("CreateTexture = %v, want invalid call", code)
	}
	if _, code := b.CreateSwapChain(h, 0xBEEF, 8, 8, false); code != invalidCall {
		t.Errorf("CreateSwapChain = %v, want invalid call", code)
	}
	if _, _, _, code := b.TextureInfo(h, 1); code != invalidCall {
		t.Errorf("TextureInfo = %v, want invalid call", code)
	}
}
