// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"testing"

	"github.com/gogpu/d3dpipe/internal/nativetest"
	"github.com/gogpu/d3dpipe/native"
)

// newTestContext creates a context on a single good adapter of a plain
// (non-Ex) fake factory.
func newTestContext(t *testing.T, opts ...Option) (*Context, *nativetest.Device) {
	t.Helper()
	f := nativetest.NewFactory(nativetest.GoodAdapter(0x1234))
	return newContextOn(t, f, opts...)
}

func newContextOn(t *testing.T, f native.Factory, opts ...Option) (*Context, *nativetest.Device) {
	t.Helper()
	ctx, err := NewContext(f, 0, opts...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(ctx.Release)

	var dev *nativetest.Device
	switch ff := f.(type) {
	case *nativetest.Factory:
		dev = ff.LastDevice()
	case *nativetest.FactoryEx:
		dev = ff.LastDevice()
	}
	if dev == nil {
		t.Fatal("no device created")
	}
	return ctx, dev
}

// quadInput returns coordinates and colors for n quads.
func quadInput(n int) ([]float32, []byte) {
	verts := n * 4
	coords := make([]float32, verts*FloatsPerVertex)
	colors := make([]byte, verts*ColorBytesPerVertex)
	for i := range coords {
		coords[i] = float32(i % 97)
	}
	for i := range colors {
		colors[i] = byte(i)
	}
	return coords, colors
}

// triangleInput returns coordinates and colors for n triangles.
func triangleInput(n int) ([]float32, []byte) {
	verts := n * 3
	return make([]float32, verts*FloatsPerVertex), make([]byte, verts*ColorBytesPerVertex)
}

func mustTarget(t *testing.T, ctx *Context, w, h uint32) *Texture {
	t.Helper()
	rt, err := ctx.ResourceManager().CreateRenderTarget(w, h, false)
	if err != nil {
		t.Fatalf("CreateRenderTarget(%d, %d): %v", w, h, err)
	}
	return rt
}
