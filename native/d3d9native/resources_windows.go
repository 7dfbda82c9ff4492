// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package d3d9native

import (
	"unsafe"

	"github.com/gonutz/d3d9"

	"github.com/gogpu/d3dpipe/native"
)

// Surface wraps an IDirect3DSurface9.
type Surface struct {
	s        *d3d9.Surface
	desc     native.SurfaceDesc
	released bool
}

func newSurface(s *d3d9.Surface) (*Surface, error) {
	desc, err := s.GetDesc()
	if err != nil {
		s.Release()
		return nil, result(err)
	}
	return &Surface{s: s, desc: fromSurfaceDesc(desc)}, nil
}

// Desc implements native.Surface.
func (s *Surface) Desc() native.SurfaceDesc { return s.desc }

// LockRect implements native.Surface.
func (s *Surface) LockRect(r *native.Rect, flags native.LockFlags) (native.LockedRect, error) {
	lr, err := s.s.LockRect(toRect(r), uint32(flags))
	if err != nil {
		return native.LockedRect{}, result(err)
	}
	return lockedBytes(lr, s.desc, r), nil
}

// UnlockRect implements native.Surface.
func (s *Surface) UnlockRect() error { return result(s.s.UnlockRect()) }

// Release implements native.Surface.
func (s *Surface) Release() {
	if s.released {
		return
	}
	s.released = true
	s.s.Release()
}

// Texture wraps an IDirect3DTexture9.
type Texture struct {
	tex      *d3d9.Texture
	released bool
}

func (t *Texture) levelDesc(level uint32) (native.SurfaceDesc, error) {
	d, err := t.tex.GetLevelDesc(uint(level))
	if err != nil {
		return native.SurfaceDesc{}, result(err)
	}
	return fromSurfaceDesc(d), nil
}

// Desc implements native.Texture.
func (t *Texture) Desc() native.SurfaceDesc {
	d, _ := t.levelDesc(0)
	return d
}

// SurfaceLevel implements native.Texture.
func (t *Texture) SurfaceLevel(level uint32) (native.Surface, error) {
	s, err := t.tex.GetSurfaceLevel(uint(level))
	if err != nil {
		return nil, result(err)
	}
	return newSurface(s)
}

// LockRect implements native.Texture.
func (t *Texture) LockRect(level uint32, r *native.Rect, flags native.LockFlags) (native.LockedRect, error) {
	desc, err := t.levelDesc(level)
	if err != nil {
		return native.LockedRect{}, err
	}
	lr, err := t.tex.LockRect(uint(level), toRect(r), uint32(flags))
	if err != nil {
		return native.LockedRect{}, result(err)
	}
	return lockedBytes(lr, desc, r), nil
}

// UnlockRect implements native.Texture.
func (t *Texture) UnlockRect(level uint32) error { return result(t.tex.UnlockRect(uint(level))) }

// Release implements native.Texture.
func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.tex.Release()
}

// SwapChain wraps an IDirect3DSwapChain9.
type SwapChain struct {
	sc       *d3d9.SwapChain
	params   native.PresentParams
	released bool
}

// PresentParams implements native.SwapChain.
func (sc *SwapChain) PresentParams() native.PresentParams { return sc.params }

// BackBuffer implements native.SwapChain.
func (sc *SwapChain) BackBuffer(index uint32) (native.Surface, error) {
	s, err := sc.sc.GetBackBuffer(uint(index), d3d9.BACKBUFFER_TYPE_MONO)
	if err != nil {
		return nil, result(err)
	}
	return newSurface(s)
}

// Present implements native.SwapChain.
func (sc *SwapChain) Present() error {
	return result(sc.sc.Present(nil, nil, 0, nil, 0))
}

// Release implements native.SwapChain.
func (sc *SwapChain) Release() {
	if sc.released {
		return
	}
	sc.released = true
	sc.sc.Release()
}

// VertexBuffer wraps an IDirect3DVertexBuffer9.
type VertexBuffer struct {
	vb       *d3d9.VertexBuffer
	length   uint32
	released bool
}

// Length implements native.VertexBuffer.
func (b *VertexBuffer) Length() uint32 { return b.length }

// Lock implements native.VertexBuffer. A size of zero locks the rest of
// the buffer.
func (b *VertexBuffer) Lock(offset, size uint32, flags native.LockFlags) ([]byte, error) {
	if size == 0 {
		size = b.length - offset
	}
	mem, err := b.vb.Lock(uint(offset), uint(size), uint32(flags))
	if err != nil {
		return nil, result(err)
	}
	return bufferBytes(mem.Memory, size), nil
}

// Unlock implements native.VertexBuffer.
func (b *VertexBuffer) Unlock() error { return result(b.vb.Unlock()) }

// Release implements native.VertexBuffer.
func (b *VertexBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.vb.Release()
}

// IndexBuffer wraps an IDirect3DIndexBuffer9.
type IndexBuffer struct {
	ib       *d3d9.IndexBuffer
	length   uint32
	released bool
}

// Length implements native.IndexBuffer.
func (b *IndexBuffer) Length() uint32 { return b.length }

// Lock implements native.IndexBuffer.
func (b *IndexBuffer) Lock(offset, size uint32, flags native.LockFlags) ([]byte, error) {
	if size == 0 {
		size = b.length - offset
	}
	mem, err := b.ib.Lock(uint(offset), uint(size), uint32(flags))
	if err != nil {
		return nil, result(err)
	}
	return bufferBytes(mem.Memory, size), nil
}

// Unlock implements native.IndexBuffer.
func (b *IndexBuffer) Unlock() error { return result(b.ib.Unlock()) }

// Release implements native.IndexBuffer.
func (b *IndexBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.ib.Release()
}

func bufferBytes(p uintptr, n uint32) []byte {
	//nolint:govet // memory is owned by the driver until unlock
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
}

type declaration struct {
	decl     *d3d9.VertexDeclaration
	released bool
}

func (v *declaration) Release() {
	if !v.released {
		v.released = true
		v.decl.Release()
	}
}

type vertexShader struct {
	s        *d3d9.VertexShader
	released bool
}

func (v *vertexShader) Release() {
	if !v.released {
		v.released = true
		v.s.Release()
	}
}

type pixelShader struct {
	s        *d3d9.PixelShader
	released bool
}

func (p *pixelShader) Release() {
	if !p.released {
		p.released = true
		p.s.Release()
	}
}
