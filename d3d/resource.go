// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"github.com/gogpu/d3dpipe/native"
)

// Handle addresses a resource tracked by a ResourceManager.
// A handle whose resource was released never resolves again, even when
// its slot is reused.
type Handle uint64

// Resource is anything a ResourceManager tracks.
type Resource interface {
	// IsDefaultPool reports whether the resource lives in device memory
	// that does not survive a device reset.
	IsDefaultPool() bool

	// Release frees the native objects. It is idempotent.
	Release()

	// Handle returns the tracking handle assigned by the manager.
	Handle() Handle

	base() *resource
}

// RenderTarget is a Resource that can be bound as the render target.
type RenderTarget interface {
	Resource

	// TargetSurface returns the surface drawn into.
	TargetSurface() native.Surface

	// DepthSurface returns the depth/stencil surface owned by the target,
	// or nil.
	DepthSurface() native.Surface
}

// resource carries the state common to all tracked resources.
type resource struct {
	handle      Handle
	defaultPool bool
	released    bool

	// depth is owned by render targets and released with them.
	depth native.Surface
}

func (r *resource) base() *resource { return r }

// IsDefaultPool implements Resource.
func (r *resource) IsDefaultPool() bool { return r.defaultPool }

// Handle implements Resource.
func (r *resource) Handle() Handle { return r.handle }

// Released reports whether Release has been called.
func (r *resource) Released() bool { return r.released }

// DepthSurface returns the depth/stencil surface attached to a render
// target, or nil.
func (r *resource) DepthSurface() native.Surface { return r.depth }

func (r *resource) releaseDepth() {
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
}

// markReleased returns false if the resource was already released.
func (r *resource) markReleased() bool {
	if r.released {
		return false
	}
	r.released = true
	return true
}

// Texture is a tracked texture with its first level surface.
type Texture struct {
	resource
	tex     native.Texture
	surface native.Surface
	desc    native.SurfaceDesc
	staging bool
}

var _ RenderTarget = (*Texture)(nil)

// Native returns the native texture.
func (t *Texture) Native() native.Texture { return t.tex }

// TargetSurface implements RenderTarget.
func (t *Texture) TargetSurface() native.Surface { return t.surface }

// Desc returns the description of level 0.
func (t *Texture) Desc() native.SurfaceDesc { return t.desc }

// Width returns the allocated width, which may exceed the requested width.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height returns the allocated height.
func (t *Texture) Height() uint32 { return t.desc.Height }

// Format returns the resolved pixel format.
func (t *Texture) Format() native.Format { return t.desc.Format }

// Release implements Resource.
func (t *Texture) Release() {
	if !t.markReleased() {
		return
	}
	t.releaseDepth()
	if t.surface != nil {
		t.surface.Release()
		t.surface = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// Surface is a tracked offscreen plain surface.
type Surface struct {
	resource
	surf native.Surface
	desc native.SurfaceDesc
}

var _ RenderTarget = (*Surface)(nil)

// Native returns the native surface.
func (s *Surface) Native() native.Surface { return s.surf }

// TargetSurface implements RenderTarget.
func (s *Surface) TargetSurface() native.Surface { return s.surf }

// Desc returns the surface description.
func (s *Surface) Desc() native.SurfaceDesc { return s.desc }

// Release implements Resource.
func (s *Surface) Release() {
	if !s.markReleased() {
		return
	}
	s.releaseDepth()
	if s.surf != nil {
		s.surf.Release()
		s.surf = nil
	}
}

// SwapChain is a tracked additional swap chain. Swap chains always live
// in the default pool.
type SwapChain struct {
	resource
	sc     native.SwapChain
	back   native.Surface
	params native.PresentParams
}

var _ RenderTarget = (*SwapChain)(nil)

// Native returns the native swap chain.
func (s *SwapChain) Native() native.SwapChain { return s.sc }

// TargetSurface implements RenderTarget; it is the first back buffer.
func (s *SwapChain) TargetSurface() native.Surface { return s.back }

// PresentParams returns the parameters the driver chose.
func (s *SwapChain) PresentParams() native.PresentParams { return s.params }

// Release implements Resource.
func (s *SwapChain) Release() {
	if !s.markReleased() {
		return
	}
	s.releaseDepth()
	if s.back != nil {
		s.back.Release()
		s.back = nil
	}
	if s.sc != nil {
		s.sc.Release()
		s.sc = nil
	}
}

// VertexBuffer is the tracked streaming vertex buffer.
type VertexBuffer struct {
	resource
	vb       native.VertexBuffer
	capacity uint32 // in vertices
}

// Native returns the native vertex buffer.
func (v *VertexBuffer) Native() native.VertexBuffer { return v.vb }

// Capacity returns the buffer capacity in vertices.
func (v *VertexBuffer) Capacity() uint32 { return v.capacity }

// Release implements Resource.
func (v *VertexBuffer) Release() {
	if !v.markReleased() {
		return
	}
	if v.vb != nil {
		v.vb.Release()
		v.vb = nil
	}
}

// PixelShader is a tracked pixel shader. Shaders survive device reset.
type PixelShader struct {
	resource
	shader native.Shader
}

// Native returns the native shader.
func (p *PixelShader) Native() native.Shader { return p.shader }

// Release implements Resource.
func (p *PixelShader) Release() {
	if !p.markReleased() {
		return
	}
	if p.shader != nil {
		p.shader.Release()
		p.shader = nil
	}
}
