// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package nativetest

import (
	"github.com/gogpu/d3dpipe/native"
)

// Surface is a fake native.Surface backed by a byte slice.
type Surface struct {
	dev      *Device
	desc     native.SurfaceDesc
	data     []byte
	locked   bool
	Released bool
}

func newSurface(d *Device, desc native.SurfaceDesc) *Surface {
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 {
		bpp = 4
	}
	return &Surface{dev: d, desc: desc, data: make([]byte, int(desc.Width)*int(desc.Height)*bpp)}
}

func (s *Surface) pool() native.Pool { return s.desc.Pool }

func (s *Surface) pitch() int {
	bpp := s.desc.Format.BytesPerPixel()
	if bpp == 0 {
		bpp = 4
	}
	return int(s.desc.Width) * bpp
}

// Pixels exposes the backing store.
func (s *Surface) Pixels() []byte { return s.data }

// Desc implements native.Surface.
func (s *Surface) Desc() native.SurfaceDesc { return s.desc }

// LockRect implements native.Surface.
func (s *Surface) LockRect(rect *native.Rect, _ native.LockFlags) (native.LockedRect, error) {
	if s.Released || s.locked {
		return native.LockedRect{}, native.ErrInvalidCall
	}
	off := 0
	if rect != nil {
		if rect.Left < 0 || rect.Top < 0 || uint32(rect.Right) > s.desc.Width || uint32(rect.Bottom) > s.desc.Height {
			return native.LockedRect{}, native.ErrInvalidCall
		}
		off = int(rect.Top)*s.pitch() + int(rect.Left)*s.desc.Format.BytesPerPixel()
	}
	s.locked = true
	return native.LockedRect{Pitch: s.pitch(), Bits: s.data[off:]}, nil
}

// UnlockRect implements native.Surface.
func (s *Surface) UnlockRect() error {
	if !s.locked {
		return native.ErrInvalidCall
	}
	s.locked = false
	return nil
}

// Release implements native.Surface.
func (s *Surface) Release() {
	if s.Released {
		return
	}
	s.Released = true
	if s.dev != nil {
		s.dev.untrack(s)
	}
}

// Texture is a fake single-level native.Texture.
type Texture struct {
	dev      *Device
	surf     *Surface
	Released bool
}

func (t *Texture) pool() native.Pool { return t.surf.desc.Pool }

// Level0 returns the backing surface without adding an owner.
func (t *Texture) Level0() *Surface { return t.surf }

// Desc implements native.Texture.
func (t *Texture) Desc() native.SurfaceDesc { return t.surf.desc }

// SurfaceLevel implements native.Texture. The level surface shares the
// texture's storage and is not tracked separately.
func (t *Texture) SurfaceLevel(level uint32) (native.Surface, error) {
	if level != 0 || t.Released {
		return nil, native.ErrInvalidCall
	}
	return &levelSurface{Surface: t.surf}, nil
}

// LockRect implements native.Texture.
func (t *Texture) LockRect(level uint32, rect *native.Rect, flags native.LockFlags) (native.LockedRect, error) {
	if level != 0 {
		return native.LockedRect{}, native.ErrInvalidCall
	}
	return t.surf.LockRect(rect, flags)
}

// UnlockRect implements native.Texture.
func (t *Texture) UnlockRect(level uint32) error {
	if level != 0 {
		return native.ErrInvalidCall
	}
	return t.surf.UnlockRect()
}

// Release implements native.Texture.
func (t *Texture) Release() {
	if t.Released {
		return
	}
	t.Released = true
	t.dev.untrack(t)
}

// levelSurface is a borrowed view of a texture level; releasing it does
// not free the texture storage.
type levelSurface struct {
	*Surface
}

// Release implements native.Surface.
func (levelSurface) Release() {}

// asSurface unwraps the fake surface behind s.
func asSurface(s native.Surface) (*Surface, bool) {
	switch v := s.(type) {
	case *Surface:
		return v, true
	case *levelSurface:
		return v.Surface, true
	}
	return nil, false
}

// Unwrap returns the fake surface behind s, or nil.
func Unwrap(s native.Surface) *Surface {
	v, _ := asSurface(s)
	return v
}

// SwapChain is a fake native.SwapChain.
type SwapChain struct {
	dev      *Device
	params   native.PresentParams
	back     *Surface
	Presents int
	Released bool
}

func (sc *SwapChain) pool() native.Pool { return native.PoolDefault }

// PresentParams implements native.SwapChain.
func (sc *SwapChain) PresentParams() native.PresentParams { return sc.params }

// BackBuffer implements native.SwapChain.
func (sc *SwapChain) BackBuffer(index uint32) (native.Surface, error) {
	if index != 0 || sc.Released {
		return nil, native.ErrInvalidCall
	}
	return &levelSurface{Surface: sc.back}, nil
}

// Present implements native.SwapChain.
func (sc *SwapChain) Present() error {
	if err := sc.dev.record("SwapChain.Present"); err != nil {
		return err
	}
	sc.Presents++
	return sc.dev.PresentErr
}

// Release implements native.SwapChain.
func (sc *SwapChain) Release() {
	if sc.Released {
		return
	}
	sc.Released = true
	sc.dev.untrack(sc)
}

// Buffer is a fake vertex or index buffer.
type Buffer struct {
	dev      *Device
	data     []byte
	usage    native.Usage
	p        native.Pool
	index    bool
	locked   bool
	Released bool
}

func (b *Buffer) pool() native.Pool { return b.p }

// Bytes exposes the backing store.
func (b *Buffer) Bytes() []byte { return b.data }

// Usage returns the creation usage flags.
func (b *Buffer) Usage() native.Usage { return b.usage }

// Pool returns the creation pool.
func (b *Buffer) Pool() native.Pool { return b.p }

// Length implements native.VertexBuffer.
func (b *Buffer) Length() uint32 { return uint32(len(b.data)) }

// Lock implements native.VertexBuffer. Vertex buffer locks are
// recorded on the owning device.
func (b *Buffer) Lock(offset, size uint32, flags native.LockFlags) ([]byte, error) {
	if b.Released || b.locked {
		return nil, native.ErrInvalidCall
	}
	if size == 0 {
		size = uint32(len(b.data)) - offset
	}
	if uint64(offset)+uint64(size) > uint64(len(b.data)) {
		return nil, native.ErrInvalidCall
	}
	if !b.index {
		if err := b.dev.record("Lock"); err != nil {
			return nil, err
		}
		b.dev.Locks = append(b.dev.Locks, Lock{Offset: offset, Size: size, Flags: flags})
	}
	b.locked = true
	return b.data[offset : offset+size], nil
}

// Unlock implements native.VertexBuffer.
func (b *Buffer) Unlock() error {
	if !b.locked {
		return native.ErrInvalidCall
	}
	b.locked = false
	return nil
}

// Release implements native.VertexBuffer.
func (b *Buffer) Release() {
	if b.Released {
		return
	}
	b.Released = true
	b.dev.untrack(b)
}

// Object is a fake vertex declaration or shader.
type Object struct {
	dev      *Device
	Elements []native.VertexElement
	Code     []byte
	Released bool
}

func (o *Object) pool() native.Pool { return native.PoolManaged }

// Release implements native.Shader and native.VertexDeclaration.
func (o *Object) Release() {
	if o.Released {
		return
	}
	o.Released = true
	o.dev.untrack(o)
}
