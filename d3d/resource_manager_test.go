// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/d3dpipe/internal/nativetest"
	"github.com/gogpu/d3dpipe/native"
)

func TestCreateTexture(t *testing.T) {
	tests := []struct {
		name        string
		textureCaps uint32
		caps2       uint32
		ex          bool
		w, h        uint32
		rt, opaque  bool
		format      native.Format
		usage       native.Usage
		wantW       uint32
		wantH       uint32
		wantFormat  native.Format
		wantPool    native.Pool
		wantUsage   native.Usage
	}{
		{
			name: "translucent default format",
			w:    30, h: 20,
			wantW: 30, wantH: 20, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolManaged,
		},
		{
			name: "opaque default format",
			w:    30, h: 20, opaque: true,
			wantW: 30, wantH: 20, wantFormat: native.FormatX8R8G8B8, wantPool: native.PoolManaged,
		},
		{
			name: "explicit format",
			w:    8, h: 8, format: native.FormatA8,
			wantW: 8, wantH: 8, wantFormat: native.FormatA8, wantPool: native.PoolManaged,
		},
		{
			name:        "pow2 rounding",
			textureCaps: native.PTextureCapsPow2,
			w:           30, h: 20,
			wantW: 32, wantH: 32, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolManaged,
		},
		{
			name:        "pow2 exact",
			textureCaps: native.PTextureCapsPow2,
			w:           64, h: 16,
			wantW: 64, wantH: 16, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolManaged,
		},
		{
			name:        "square only",
			textureCaps: native.PTextureCapsSquareOnly,
			w:           30, h: 100,
			wantW: 100, wantH: 100, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolManaged,
		},
		{
			name:        "pow2 and square",
			textureCaps: native.PTextureCapsPow2 | native.PTextureCapsSquareOnly,
			w:           30, h: 70,
			wantW: 128, wantH: 128, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolManaged,
		},
		{
			name: "render target in default pool",
			w:    16, h: 16, rt: true,
			wantW: 16, wantH: 16, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolDefault,
			wantUsage: native.UsageRenderTarget,
		},
		{
			name:  "dynamic with support",
			caps2: native.Caps2DynamicTextures,
			w:     16, h: 16, usage: native.UsageDynamic,
			wantW: 16, wantH: 16, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolDefault,
			wantUsage: native.UsageDynamic,
		},
		{
			name: "dynamic without support",
			w:    16, h: 16, usage: native.UsageDynamic,
			wantW: 16, wantH: 16, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolManaged,
		},
		{
			name: "ex device default pool",
			ex:   true,
			w:    16, h: 16,
			wantW: 16, wantH: 16, wantFormat: native.FormatA8R8G8B8, wantPool: native.PoolDefault,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := nativetest.GoodAdapter(0x1234)
			a.Caps.TextureCaps = tt.textureCaps
			a.Caps.Caps2 = tt.caps2
			var f native.Factory = nativetest.NewFactory(a)
			if tt.ex {
				f = nativetest.NewFactoryEx(a)
			}
			ctx, _ := newContextOn(t, f)

			tex, err := ctx.ResourceManager().CreateTexture(tt.w, tt.h, tt.rt, tt.opaque, tt.format, tt.usage)
			if err != nil {
				t.Fatalf("CreateTexture: %v", err)
			}
			d := tex.Desc()
			got := []any{d.Width, d.Height, d.Format, d.Pool, d.Usage}
			want := []any{tt.wantW, tt.wantH, tt.wantFormat, tt.wantPool, tt.wantUsage}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("texture (-want +got):\n%s", diff)
			}
			if tex.IsDefaultPool() != (tt.wantPool == native.PoolDefault) {
				t.Errorf("IsDefaultPool() = %v", tex.IsDefaultPool())
			}
			if tex.Width() < tt.w || tex.Height() < tt.h {
				t.Errorf("texture %dx%d smaller than requested %dx%d", tex.Width(), tex.Height(), tt.w, tt.h)
			}
		})
	}
}

func TestCreateTextureFailures(t *testing.T) {
	ctx, dev := newTestContext(t)
	rm := ctx.ResourceManager()
	before := rm.Len()

	if _, err := rm.CreateTexture(0, 10, false, false, native.FormatUnknown, 0); KindOf(err) != KindContract {
		t.Errorf("zero width = %v", err)
	}
	_, err := rm.CreateTexture(10000, 10, false, false, native.FormatUnknown, 0)
	if KindOf(err) != KindAllocation {
		t.Errorf("oversize = %v (kind %v)", err, KindOf(err))
	}
	dev.Fail["CreateTexture"] = native.ErrOutOfVideoMemory
	tex, err := rm.CreateTexture(10, 10, false, false, native.FormatUnknown, 0)
	if tex != nil || KindOf(err) != KindAllocation || !errors.Is(err, native.ErrOutOfVideoMemory) {
		t.Errorf("device failure = %v, %v", tex, err)
	}
	if rm.Len() != before {
		t.Errorf("failed creations tracked: %d -> %d", before, rm.Len())
	}
	if ctx.State() != StateReady {
		t.Errorf("allocation failure changed state to %v", ctx.State())
	}
}

func TestNextPow2(t *testing.T) {
	for _, tt := range []struct{ in, want uint32 }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {255, 256}, {256, 256}, {257, 512},
	} {
		if got := nextPow2(tt.in); got != tt.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReleaseDefaultPoolResources(t *testing.T) {
	ctx, dev := newTestContext(t)
	rm := ctx.ResourceManager()

	// Sequence: managed, default, managed, system, default, shader.
	m1, _ := rm.CreateTexture(8, 8, false, false, native.FormatUnknown, 0)
	d1 := mustTarget(t, ctx, 8, 8)
	m2, _ := rm.CreateTexture(16, 16, false, true, native.FormatUnknown, 0)
	s1, _ := rm.CreateOSPlainSurface(4, 4, native.PoolSystemMem, native.FormatA8R8G8B8)
	sc, _ := rm.CreateSwapChain(0x10, 1, 8, 8, native.SwapEffectDiscard, native.PresentIntervalOne)
	ps, err := rm.CreatePixelShader([]byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	vb := ctx.vb

	rm.ReleaseDefaultPoolResources()

	for _, r := range []Resource{d1, sc, vb} {
		if !r.base().released {
			t.Errorf("default pool resource %T survived", r)
		}
	}
	if ctx.vb != nil {
		t.Error("context kept a released vertex buffer")
	}

	want := []Handle{m1.Handle(), m2.Handle(), s1.Handle(), ps.Handle()}
	var got []Handle
	rm.Each(func(r Resource) bool {
		if r.IsDefaultPool() {
			t.Errorf("default pool resource %T still tracked", r)
		}
		got = append(got, r.Handle())
		return true
	})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("survivor order (-want +got):\n%s", diff)
	}
	if _, ok := rm.Get(d1.Handle()); ok {
		t.Error("released handle still resolves")
	}
	if dev.LiveInPool(native.PoolDefault) != 0 {
		t.Errorf("native default pool objects alive: %d", dev.LiveInPool(native.PoolDefault))
	}
}

func TestHandlesNotReused(t *testing.T) {
	ctx, _ := newTestContext(t)
	rm := ctx.ResourceManager()

	a, _ := rm.CreateTexture(8, 8, false, false, native.FormatUnknown, 0)
	old := a.Handle()
	rm.ReleaseResource(a)
	b, _ := rm.CreateTexture(8, 8, false, false, native.FormatUnknown, 0)

	if b.Handle() == old {
		t.Error("handle reused after release")
	}
	if _, ok := rm.Get(old); ok {
		t.Error("stale handle resolves")
	}
	if r, ok := rm.Get(b.Handle()); !ok || r != Resource(b) {
		t.Error("new handle does not resolve")
	}
}

func TestReleaseResource(t *testing.T) {
	ctx, dev := newTestContext(t)
	rm := ctx.ResourceManager()

	rm.ReleaseResource(nil)
	var typed *Surface
	rm.ReleaseResource(typed)

	s, err := rm.CreateOSPlainSurface(4, 4, native.PoolDefault, native.FormatA8R8G8B8)
	if err != nil {
		t.Fatal(err)
	}
	n := rm.Len()
	rm.ReleaseResource(s)
	rm.ReleaseResource(s)
	if rm.Len() != n-1 {
		t.Errorf("Len() = %d, want %d", rm.Len(), n-1)
	}
	if !s.Released() || s.Native() != nil {
		t.Error("surface not released")
	}
	if dev.LiveInPool(native.PoolDefault) != 1 {
		t.Errorf("default pool live = %d, want only the vertex buffer", dev.LiveInPool(native.PoolDefault))
	}
}

func TestGetBlitSurface(t *testing.T) {
	ctx, dev := newTestContext(t)
	rm := ctx.ResourceManager()

	a, err := rm.GetBlitSurface(64, 32, native.FormatA8R8G8B8)
	if err != nil {
		t.Fatal(err)
	}
	if a.Desc().Pool != native.PoolSystemMem {
		t.Errorf("blit pool = %v", a.Desc().Pool)
	}
	same, _ := rm.GetBlitSurface(64, 32, native.FormatA8R8G8B8)
	if same != a {
		t.Error("exact match not reused")
	}

	for _, tt := range []struct {
		name string
		w, h uint32
		f    native.Format
	}{
		{"smaller", 32, 32, native.FormatA8R8G8B8},
		{"larger", 128, 32, native.FormatA8R8G8B8},
		{"other format", 128, 32, native.FormatX8R8G8B8},
	} {
		prev := rm.blit
		b, err := rm.GetBlitSurface(tt.w, tt.h, tt.f)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if b == prev || !prev.Released() {
			t.Errorf("%s: previous blit surface not replaced", tt.name)
		}
		if d := b.Desc(); d.Width != tt.w || d.Height != tt.h || d.Format != tt.f {
			t.Errorf("%s: desc = %+v", tt.name, d)
		}
	}

	if got := dev.Count("CreateOffscreenPlainSurface"); got != 4 {
		t.Errorf("surfaces created = %d, want 4", got)
	}
	blits := 0
	rm.Each(func(r Resource) bool {
		if _, ok := r.(*Surface); ok {
			blits++
		}
		return true
	})
	if blits != 1 {
		t.Errorf("tracked blit surfaces = %d, want 1", blits)
	}
}

func TestGetCachedDestTexture(t *testing.T) {
	ctx, dev := newTestContext(t)
	rm := ctx.ResourceManager()

	a, err := rm.GetCachedDestTexture(native.FormatA8R8G8B8)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := rm.GetCachedDestTexture(native.FormatA8R8G8B8)
	if a != b {
		t.Error("staging texture not reused")
	}
	c, _ := rm.GetCachedDestTexture(native.FormatA8)
	if c == a {
		t.Error("formats share a staging texture")
	}
	if got := dev.Count("CreateTexture"); got != 2 {
		t.Errorf("textures created = %d, want 2", got)
	}

	// Releasing a staging texture directly drops it from the cache.
	rm.ReleaseResource(a)
	d, _ := rm.GetCachedDestTexture(native.FormatA8R8G8B8)
	if d == a || d.Released() {
		t.Error("released staging texture returned from cache")
	}

	dev.Fail["CreateTexture"] = native.ErrOutOfMemory
	if _, err := rm.GetCachedDestTexture(native.FormatL8); KindOf(err) != KindAllocation {
		t.Errorf("failed staging creation = %v", err)
	}
}

func TestStagingCacheBound(t *testing.T) {
	ctx, _ := newTestContext(t)
	rm := ctx.ResourceManager()

	formats := []native.Format{
		native.FormatA8R8G8B8, native.FormatX8R8G8B8, native.FormatA8,
		native.FormatL8, native.FormatA8B8G8R8,
	}
	if len(formats) <= StagingCacheSize {
		t.Fatalf("need more than %d formats", StagingCacheSize)
	}
	staged := make([]*Texture, StagingCacheSize)
	for i := range StagingCacheSize {
		tex, err := rm.GetCachedDestTexture(formats[i])
		if err != nil {
			t.Fatal(err)
		}
		staged[i] = tex
	}
	before := rm.Len()

	// Touch the oldest so the second format becomes least recently used.
	if tex, _ := rm.GetCachedDestTexture(formats[0]); tex != staged[0] {
		t.Fatal("staging texture not reused")
	}
	extra, err := rm.GetCachedDestTexture(formats[StagingCacheSize])
	if err != nil {
		t.Fatal(err)
	}
	if rm.staging.Len() != StagingCacheSize {
		t.Errorf("cached = %d, want %d", rm.staging.Len(), StagingCacheSize)
	}
	if !staged[1].Released() {
		t.Error("least recently used staging texture kept")
	}
	if _, ok := rm.Get(staged[1].Handle()); ok {
		t.Error("evicted staging texture still tracked")
	}
	if staged[0].Released() || extra.Released() {
		t.Error("recently used staging texture released")
	}
	if rm.Len() != before {
		t.Errorf("Len() = %d, want %d", rm.Len(), before)
	}
}

func TestCreateSwapChain(t *testing.T) {
	ctx, _ := newTestContext(t)
	rm := ctx.ResourceManager()

	sc, err := rm.CreateSwapChain(0x99, 2, 640, 480, native.SwapEffectFlip, native.PresentIntervalImmediate)
	if err != nil {
		t.Fatal(err)
	}
	p := sc.PresentParams()
	if p.Window != 0x99 || p.BackBufferCount != 2 || p.BackBufferWidth != 640 || !p.Windowed {
		t.Errorf("PresentParams() = %+v", p)
	}
	if !sc.IsDefaultPool() {
		t.Error("swap chain not in default pool")
	}
	if sc.TargetSurface() == nil {
		t.Error("no back buffer")
	}
	if _, err := rm.CreateSwapChain(0, 1, 1, 1, native.SwapEffectDiscard, 0); KindOf(err) != KindContract {
		t.Errorf("nil window = %v", err)
	}
}

func TestCreatePixelShader(t *testing.T) {
	ctx, _ := newTestContext(t)
	rm := ctx.ResourceManager()

	ps, err := rm.CreatePixelShader([]byte{0, 3, 0xFF, 0xFF})
	if err != nil {
		t.Fatal(err)
	}
	if ps.IsDefaultPool() {
		t.Error("pixel shader treated as default pool")
	}
	if _, err := rm.CreatePixelShader(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty shader = %v", err)
	}
}

func TestReleaseAll(t *testing.T) {
	ctx, dev := newTestContext(t)
	rm := ctx.ResourceManager()

	if _, err := rm.CreateTexture(8, 8, false, false, native.FormatUnknown, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := rm.GetCachedDestTexture(native.FormatA8R8G8B8); err != nil {
		t.Fatal(err)
	}
	if _, err := rm.GetBlitSurface(8, 8, native.FormatA8R8G8B8); err != nil {
		t.Fatal(err)
	}

	rm.ReleaseAll()
	if rm.Len() != 0 {
		t.Errorf("Len() = %d after ReleaseAll", rm.Len())
	}
	if rm.staging.Len() != 0 || rm.blit != nil {
		t.Error("caches survived ReleaseAll")
	}
	// Only the shared pipeline objects remain.
	if got := dev.Live(); got != 3 {
		t.Errorf("live native objects = %d, want 3", got)
	}
}
