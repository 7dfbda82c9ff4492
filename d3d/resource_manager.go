// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/gogpu/d3dpipe/internal/metrics"
	"github.com/gogpu/d3dpipe/internal/slotmap"
	"github.com/gogpu/d3dpipe/native"
)

// StagingTextureSize is the edge length of the system memory textures
// used to stage uploads into default pool textures.
const StagingTextureSize = 256

// StagingCacheSize bounds the staging textures kept at once. The least
// recently used one is released when a new format needs a slot.
const StagingCacheSize = 4

// ResourceManager creates and tracks every resource of one device.
//
// Resources are kept in creation order. ReleaseDefaultPoolResources
// drops exactly those that do not survive a device reset; the others keep
// their handles and their relative order.
//
// ResourceManager is not safe for concurrent use.
type ResourceManager struct {
	ctx  *Context
	list *slotmap.Map[Resource]
	log  *slog.Logger
	m    *metrics.Adapter

	// blit is the single cached readback surface.
	blit *Surface

	// staging holds one small system memory texture per format.
	staging *simplelru.LRU[native.Format, *Texture]
}

func newResourceManager(ctx *Context) *ResourceManager {
	rm := &ResourceManager{
		ctx:  ctx,
		list: slotmap.New[Resource](),
		log:  ctx.log,
		m:    ctx.metrics,
	}
	// NewLRU fails only for a size below one.
	rm.staging, _ = simplelru.NewLRU[native.Format, *Texture](StagingCacheSize, func(_ native.Format, t *Texture) {
		rm.untrack(t)
		t.Release()
	})
	return rm
}

func (rm *ResourceManager) device() native.Device { return rm.ctx.dev }

// ready checks that rm belongs to a context with a live device.
func (rm *ResourceManager) ready(op string) error {
	switch {
	case rm == nil || rm.ctx == nil:
		return contractError(op, ErrNilManager)
	case rm.ctx.state == StateReleased:
		return contractError(op, ErrReleased)
	case rm.ctx.dev == nil:
		return contractError(op, ErrNotInitialized)
	}
	return nil
}

func (rm *ResourceManager) track(r Resource) {
	r.base().handle = Handle(rm.list.Insert(r))
	rm.m.SetResources(rm.list.Len())
}

func (rm *ResourceManager) untrack(r Resource) bool {
	_, ok := rm.list.Remove(slotmap.Key(r.Handle()))
	rm.m.SetResources(rm.list.Len())
	return ok
}

// Len returns the number of tracked resources.
func (rm *ResourceManager) Len() int {
	if rm == nil {
		return 0
	}
	return rm.list.Len()
}

// Get returns the resource addressed by h.
func (rm *ResourceManager) Get(h Handle) (Resource, bool) {
	if rm == nil {
		return nil, false
	}
	return rm.list.Get(slotmap.Key(h))
}

// Each calls fn for every tracked resource in creation order until fn
// returns false.
func (rm *ResourceManager) Each(fn func(Resource) bool) {
	if rm == nil {
		return
	}
	rm.list.Each(func(_ slotmap.Key, r Resource) bool {
		return fn(r)
	})
}

// Resources returns the tracked resources in creation order.
func (rm *ResourceManager) Resources() []Resource {
	if rm == nil {
		return nil
	}
	return rm.list.Values()
}

// nextPow2 rounds v up to a power of two.
func nextPow2(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len32(v-1)
}

// textureFormat resolves a format hint.
func textureFormat(hint native.Format, isOpaque bool) native.Format {
	if hint != native.FormatUnknown {
		return hint
	}
	if isOpaque {
		return native.FormatX8R8G8B8
	}
	return native.FormatA8R8G8B8
}

// CreateTexture creates a texture and tracks it.
//
// An unknown format hint selects X8R8G8B8 for opaque and A8R8G8B8 for
// translucent textures. The dimensions are rounded up to a power of two
// or made square when the device requires it, so the texture may be
// larger than requested. Render targets always go to the default pool;
// dynamic textures go there only if the device supports dynamic textures.
//
// On failure nothing is tracked and the returned texture is nil, which
// callers read as format FormatUnknown.
func (rm *ResourceManager) CreateTexture(width, height uint32, isRenderTarget, isOpaque bool, format native.Format, usage native.Usage) (*Texture, error) {
	const op = "create texture"
	if err := rm.ready(op); err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, contractError(op, fmt.Errorf("%w: %dx%d", ErrInvalidArgument, width, height))
	}

	caps := rm.ctx.caps
	format = textureFormat(format, isOpaque)
	pool := rm.ctx.defaultPool

	if isRenderTarget {
		usage |= native.UsageRenderTarget
		pool = native.PoolDefault
	} else if usage&native.UsageDynamic != 0 {
		if native.Has(caps.Caps2, native.Caps2DynamicTextures) {
			pool = native.PoolDefault
		} else {
			usage &^= native.UsageDynamic
		}
	}

	if native.Has(caps.TextureCaps, native.PTextureCapsPow2) {
		width, height = nextPow2(width), nextPow2(height)
	}
	if native.Has(caps.TextureCaps, native.PTextureCapsSquareOnly) {
		width = max(width, height)
		height = width
	}
	if (caps.MaxTextureWidth != 0 && width > caps.MaxTextureWidth) ||
		(caps.MaxTextureHeight != 0 && height > caps.MaxTextureHeight) {
		return nil, &Error{
			Kind: KindAllocation, Op: op, Code: native.ErrInvalidCall,
			Err: fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrInvalidArgument,
				width, height, caps.MaxTextureWidth, caps.MaxTextureHeight),
		}
	}

	t, err := rm.createTexture(width, height, usage, format, pool)
	if err != nil {
		rm.log.Warn("d3d: texture creation failed",
			"width", width, "height", height, "format", format, "pool", pool, "err", err)
		return nil, err
	}
	return t, nil
}

// createTexture allocates and tracks a texture with an explicit pool.
func (rm *ResourceManager) createTexture(width, height uint32, usage native.Usage, format native.Format, pool native.Pool) (*Texture, error) {
	const op = "create texture"
	tex, err := rm.device().CreateTexture(width, height, 1, usage, format, pool)
	if err != nil {
		return nil, nativeError(KindAllocation, op, err)
	}
	surf, err := tex.SurfaceLevel(0)
	if err != nil {
		tex.Release()
		return nil, nativeError(KindAllocation, op, err)
	}

	t := &Texture{
		resource: resource{defaultPool: pool == native.PoolDefault},
		tex:      tex,
		surface:  surf,
		desc:     tex.Desc(),
	}
	rm.track(t)
	rm.log.Debug("d3d: texture created",
		"width", t.desc.Width, "height", t.desc.Height, "format", t.desc.Format, "pool", pool)
	return t, nil
}

// CreateRenderTarget creates a render target texture.
func (rm *ResourceManager) CreateRenderTarget(width, height uint32, isOpaque bool) (*Texture, error) {
	return rm.CreateTexture(width, height, true, isOpaque, native.FormatUnknown, 0)
}

// CreateOSPlainSurface creates an offscreen plain surface and tracks it.
func (rm *ResourceManager) CreateOSPlainSurface(width, height uint32, pool native.Pool, format native.Format) (*Surface, error) {
	const op = "create surface"
	if err := rm.ready(op); err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, contractError(op, fmt.Errorf("%w: %dx%d", ErrInvalidArgument, width, height))
	}
	surf, err := rm.device().CreateOffscreenPlainSurface(width, height, format, pool)
	if err != nil {
		return nil, nativeError(KindAllocation, op, err)
	}
	s := &Surface{
		resource: resource{defaultPool: pool == native.PoolDefault},
		surf:     surf,
		desc:     surf.Desc(),
	}
	rm.track(s)
	return s, nil
}

// CreateSwapChain creates an additional swap chain for a window.
func (rm *ResourceManager) CreateSwapChain(window uintptr, bufferCount, width, height uint32, swapEffect native.SwapEffect, interval native.PresentInterval) (*SwapChain, error) {
	const op = "create swap chain"
	if err := rm.ready(op); err != nil {
		return nil, err
	}
	if window == 0 {
		return nil, contractError(op, fmt.Errorf("%w: nil window", ErrInvalidArgument))
	}
	pp := native.PresentParams{
		BackBufferWidth:  width,
		BackBufferHeight: height,
		BackBufferCount:  bufferCount,
		SwapEffect:       swapEffect,
		Window:           window,
		Windowed:         true,
		PresentInterval:  interval,
	}
	sc, err := rm.device().CreateAdditionalSwapChain(&pp)
	if err != nil {
		return nil, nativeError(KindAllocation, op, err)
	}
	back, err := sc.BackBuffer(0)
	if err != nil {
		sc.Release()
		return nil, nativeError(KindAllocation, op, err)
	}
	s := &SwapChain{
		resource: resource{defaultPool: true},
		sc:       sc,
		back:     back,
		params:   sc.PresentParams(),
	}
	rm.track(s)
	rm.log.Debug("d3d: swap chain created", "width", width, "height", height, "buffers", bufferCount)
	return s, nil
}

// CreateVertexBuffer creates the streaming vertex buffer, sized for
// MaxBatchQuads quads. Hardware vertex processing puts it in the default
// pool; software processing keeps it in system memory.
func (rm *ResourceManager) CreateVertexBuffer() (*VertexBuffer, error) {
	const op = "create vertex buffer"
	if err := rm.ready(op); err != nil {
		return nil, err
	}
	usage := native.UsageDynamic | native.UsageWriteOnly
	pool := native.PoolDefault
	if !rm.ctx.hwVertexProcessing {
		usage |= native.UsageSoftwareProcessing
		pool = native.PoolSystemMem
	}
	vb, err := rm.device().CreateVertexBuffer(MaxVertices*VertexSize, usage, pool)
	if err != nil {
		return nil, nativeError(KindAllocation, op, err)
	}
	v := &VertexBuffer{
		resource: resource{defaultPool: pool == native.PoolDefault},
		vb:       vb,
		capacity: MaxVertices,
	}
	rm.track(v)
	return v, nil
}

// CreatePixelShader creates a pixel shader from bytecode and tracks it.
func (rm *ResourceManager) CreatePixelShader(code []byte) (*PixelShader, error) {
	const op = "create pixel shader"
	if err := rm.ready(op); err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, contractError(op, fmt.Errorf("%w: empty shader", ErrInvalidArgument))
	}
	s, err := rm.device().CreatePixelShader(code)
	if err != nil {
		return nil, nativeError(KindAllocation, op, err)
	}
	p := &PixelShader{shader: s}
	rm.track(p)
	return p, nil
}

// GetCachedDestTexture returns the staging texture for format,
// creating it on first use. Staging textures live in system memory.
func (rm *ResourceManager) GetCachedDestTexture(format native.Format) (*Texture, error) {
	if err := rm.ready("get staging texture"); err != nil {
		return nil, err
	}
	if t, ok := rm.staging.Get(format); ok {
		return t, nil
	}
	t, err := rm.createTexture(StagingTextureSize, StagingTextureSize, 0, format, native.PoolSystemMem)
	if err != nil {
		return nil, err
	}
	t.staging = true
	if rm.staging.Add(format, t) {
		rm.log.Debug("d3d: staging texture evicted", "format", format, "cached", rm.staging.Len())
	}
	return t, nil
}

// GetBlitSurface returns the readback surface. The cached surface is
// reused only when width, height and format match exactly; otherwise it
// is released and replaced, so at most one exists at a time.
func (rm *ResourceManager) GetBlitSurface(width, height uint32, format native.Format) (*Surface, error) {
	if err := rm.ready("get blit surface"); err != nil {
		return nil, err
	}
	if b := rm.blit; b != nil {
		if b.desc.Width == width && b.desc.Height == height && b.desc.Format == format {
			return b, nil
		}
		rm.ReleaseResource(b)
	}
	s, err := rm.CreateOSPlainSurface(width, height, native.PoolSystemMem, format)
	if err != nil {
		return nil, err
	}
	rm.blit = s
	return s, nil
}

// forget drops manager-level references to r.
func (rm *ResourceManager) forget(r Resource) {
	if s, ok := r.(*Surface); ok && s == rm.blit {
		rm.blit = nil
	}
	if t, ok := r.(*Texture); ok && t.staging {
		if cur, ok := rm.staging.Peek(t.Format()); ok && cur == t {
			rm.staging.Remove(t.Format())
		}
	}
	rm.ctx.forget(r)
}

// ReleaseResource untracks and releases r. A nil r is ignored.
func (rm *ResourceManager) ReleaseResource(r Resource) {
	if rm == nil || r == nil || isNil(r) {
		return
	}
	rm.forget(r)
	rm.untrack(r)
	r.Release()
}

// ReleaseDefaultPoolResources releases every resource that does not
// survive a device reset. The remaining resources keep their order.
func (rm *ResourceManager) ReleaseDefaultPoolResources() {
	if rm == nil {
		return
	}
	removed := rm.list.RemoveFunc(func(r Resource) bool { return r.IsDefaultPool() })
	for _, r := range removed {
		rm.forget(r)
		r.Release()
	}
	rm.m.SetResources(rm.list.Len())
	if len(removed) > 0 {
		rm.log.Info("d3d: default pool resources released", "count", len(removed), "remaining", rm.list.Len())
	}
}

// ReleaseAll releases every tracked resource.
func (rm *ResourceManager) ReleaseAll() {
	if rm == nil {
		return
	}
	rm.staging.Purge()
	rm.blit = nil
	for _, r := range rm.list.Clear() {
		rm.ctx.forget(r)
		r.Release()
	}
	rm.m.SetResources(0)
}

// isNil reports whether r holds a typed nil pointer.
func isNil(r Resource) bool {
	switch v := r.(type) {
	case *Texture:
		return v == nil
	case *Surface:
		return v == nil
	case *SwapChain:
		return v == nil
	case *VertexBuffer:
		return v == nil
	case *PixelShader:
		return v == nil
	}
	return false
}
