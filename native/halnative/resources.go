// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halnative

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/d3dpipe/native"
)

// image is host pixel storage for one surface or texture level.
type image struct {
	desc   native.SurfaceDesc
	data   []byte
	locked bool

	// gpu holds this image as level of a device texture, if any.
	gpu   *gpuTexture
	level uint32
	// stale is set once draws render into the device level; the host
	// copy is refreshed before it is read.
	stale bool
}

func newImage(desc native.SurfaceDesc) (*image, error) {
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 || desc.Width == 0 || desc.Height == 0 {
		return nil, native.ErrInvalidCall
	}
	return &image{desc: desc, data: make([]byte, int(desc.Width)*int(desc.Height)*bpp)}, nil
}

func (im *image) pitch() int { return int(im.desc.Width) * im.desc.Format.BytesPerPixel() }

func (im *image) bounds() native.Rect {
	return native.Rect{Right: int32(im.desc.Width), Bottom: int32(im.desc.Height)}
}

func (im *image) lock(rect *native.Rect) (native.LockedRect, error) {
	if im.locked || im.desc.Format.IsDepthStencil() {
		return native.LockedRect{}, native.ErrInvalidCall
	}
	r := im.bounds()
	if rect != nil {
		if !contains(r, *rect) {
			return native.LockedRect{}, native.ErrInvalidCall
		}
		r = *rect
	}
	bpp := im.desc.Format.BytesPerPixel()
	start := int(r.Top)*im.pitch() + int(r.Left)*bpp
	end := int(r.Bottom-1)*im.pitch() + int(r.Right)*bpp
	im.locked = true
	return native.LockedRect{Pitch: im.pitch(), Bits: im.data[start:end]}, nil
}

func (im *image) unlock() error {
	if !im.locked {
		return native.ErrInvalidCall
	}
	im.locked = false
	return nil
}

// copyRect copies r of src to (x, y) of dst.
func copyRect(dst, src *image, r native.Rect, x, y int32) error {
	if dst.desc.Format != src.desc.Format {
		return native.ErrInvalidCall
	}
	dr := native.Rect{Left: x, Top: y, Right: x + r.Width(), Bottom: y + r.Height()}
	if !contains(src.bounds(), r) || !contains(dst.bounds(), dr) {
		return native.ErrInvalidCall
	}
	bpp := src.desc.Format.BytesPerPixel()
	rowBytes := int(r.Width()) * bpp
	for row := int32(0); row < r.Height(); row++ {
		so := int(r.Top+row)*src.pitch() + int(r.Left)*bpp
		do := int(y+row)*dst.pitch() + int(x)*bpp
		copy(dst.data[do:do+rowBytes], src.data[so:so+rowBytes])
	}
	return nil
}

func contains(outer, r native.Rect) bool {
	return r.Left >= outer.Left && r.Top >= outer.Top && r.Right <= outer.Right && r.Bottom <= outer.Bottom &&
		r.Left < r.Right && r.Top < r.Bottom
}

// gpuTexture is the device copy of a texture or surface.
type gpuTexture struct {
	tex       hal.Texture
	levels    uint32
	destroyed bool
}

func (d *Device) newGPUTexture(label string, desc native.SurfaceDesc, levels uint32) (*gpuTexture, error) {
	format, ok := textureFormat(desc.Format)
	if !ok {
		return nil, native.ErrNotAvailable
	}
	samples := uint32(1)
	if desc.Multisample != native.MultisampleNone {
		samples = uint32(desc.Multisample)
	}
	tex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: levels,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc.Usage, desc.Format),
	})
	if err != nil {
		return nil, fmt.Errorf("halnative: create %s: %w: %w", label, native.ErrOutOfVideoMemory, err)
	}
	return &gpuTexture{tex: tex, levels: levels}, nil
}

func (d *Device) destroyGPUTexture(g *gpuTexture) {
	if g == nil || g.destroyed {
		return
	}
	g.destroyed = true
	d.dev.DestroyTexture(g.tex)
}

// upload mirrors one level into the device texture.
func (d *Device) upload(g *gpuTexture, level uint32, im *image) error {
	if g == nil || g.destroyed || im.desc.Format.IsDepthStencil() || im.desc.Multisample != native.MultisampleNone {
		return nil
	}
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: g.tex, MipLevel: level},
		im.data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(im.pitch()),
			RowsPerImage: im.desc.Height,
		},
		&hal.Extent3D{Width: im.desc.Width, Height: im.desc.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("halnative: write texture: %w: %w", native.ErrDriverInternalError, err)
	}
	im.stale = false
	d.stats.TextureUploads++
	return nil
}

// Surface is a standalone surface or a view of a texture level.
type Surface struct {
	dev   *Device
	im    *image
	gpu   *gpuTexture
	level uint32

	// owner is the texture or swap chain the surface views; views do
	// not free storage.
	owner    any
	released bool
}

var _ native.Surface = (*Surface)(nil)

// Desc implements native.Surface.
func (s *Surface) Desc() native.SurfaceDesc { return s.im.desc }

// LockRect implements native.Surface.
func (s *Surface) LockRect(rect *native.Rect, _ native.LockFlags) (native.LockedRect, error) {
	if s.released {
		return native.LockedRect{}, native.ErrInvalidCall
	}
	if err := s.dev.sync(s.im); err != nil {
		return native.LockedRect{}, err
	}
	return s.im.lock(rect)
}

// UnlockRect implements native.Surface.
func (s *Surface) UnlockRect() error {
	if err := s.im.unlock(); err != nil {
		return err
	}
	return s.dev.upload(s.gpu, s.level, s.im)
}

// Release implements native.Surface.
func (s *Surface) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.owner != nil {
		return
	}
	s.dev.destroyGPUTexture(s.gpu)
	s.dev.untrack(s, s.im.desc.Pool)
}

// Texture is a mipmapped image.
type Texture struct {
	dev      *Device
	levels   []*image
	gpu      *gpuTexture
	released bool
}

var _ native.Texture = (*Texture)(nil)

// Desc implements native.Texture.
func (t *Texture) Desc() native.SurfaceDesc { return t.levels[0].desc }

func (t *Texture) level(l uint32) (*image, error) {
	if t.released || int(l) >= len(t.levels) {
		return nil, native.ErrInvalidCall
	}
	return t.levels[l], nil
}

// SurfaceLevel implements native.Texture.
func (t *Texture) SurfaceLevel(l uint32) (native.Surface, error) {
	im, err := t.level(l)
	if err != nil {
		return nil, err
	}
	return &Surface{dev: t.dev, im: im, gpu: t.gpu, level: l, owner: t}, nil
}

// LockRect implements native.Texture.
func (t *Texture) LockRect(l uint32, rect *native.Rect, _ native.LockFlags) (native.LockedRect, error) {
	im, err := t.level(l)
	if err != nil {
		return native.LockedRect{}, err
	}
	if err := t.dev.sync(im); err != nil {
		return native.LockedRect{}, err
	}
	return im.lock(rect)
}

// UnlockRect implements native.Texture.
func (t *Texture) UnlockRect(l uint32) error {
	im, err := t.level(l)
	if err != nil {
		return err
	}
	if err := im.unlock(); err != nil {
		return err
	}
	return t.dev.upload(t.gpu, l, im)
}

// Release implements native.Texture.
func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.dev.destroyGPUTexture(t.gpu)
	t.dev.untrack(t, t.levels[0].desc.Pool)
}

// SwapChain is a headless swap chain with one back buffer.
type SwapChain struct {
	dev      *Device
	params   native.PresentParams
	back     *image
	presents int
	released bool
}

var _ native.SwapChain = (*SwapChain)(nil)

func (d *Device) newSwapChain(pp native.PresentParams) (*SwapChain, error) {
	back, err := newImage(native.SurfaceDesc{
		Format:      pp.BackBufferFormat,
		Pool:        native.PoolDefault,
		Usage:       native.UsageRenderTarget,
		Width:       pp.BackBufferWidth,
		Height:      pp.BackBufferHeight,
		Multisample: pp.Multisample,
	})
	if err != nil {
		return nil, err
	}
	if _, ok := textureFormat(pp.BackBufferFormat); ok && pp.Multisample == native.MultisampleNone {
		g, err := d.newGPUTexture("halnative_back_buffer", back.desc, 1)
		if err != nil {
			return nil, err
		}
		back.gpu = g
	}
	return &SwapChain{dev: d, params: pp, back: back}, nil
}

// PresentParams implements native.SwapChain.
func (sc *SwapChain) PresentParams() native.PresentParams { return sc.params }

// BackBuffer implements native.SwapChain.
func (sc *SwapChain) BackBuffer(index uint32) (native.Surface, error) {
	if sc.released || index >= max(sc.params.BackBufferCount, 1) {
		return nil, native.ErrInvalidCall
	}
	return &Surface{dev: sc.dev, im: sc.back, gpu: sc.back.gpu, owner: sc}, nil
}

// Present implements native.SwapChain.
func (sc *SwapChain) Present() error {
	if sc.released {
		return native.ErrInvalidCall
	}
	sc.presents++
	sc.dev.stats.Presents++
	return nil
}

// Release implements native.SwapChain.
func (sc *SwapChain) Release() {
	if sc.released {
		return
	}
	sc.released = true
	sc.dev.destroyGPUTexture(sc.back.gpu)
	sc.dev.untrack(sc, native.PoolDefault)
}

// Buffer is a vertex or index buffer.
type Buffer struct {
	dev      *Device
	data     []byte
	pool     native.Pool
	buf      hal.Buffer
	format   native.Format
	locked   bool
	lockOff  uint32
	lockSize uint32
	released bool
}

var (
	_ native.VertexBuffer = (*Buffer)(nil)
	_ native.IndexBuffer  = (*Buffer)(nil)
)

func (d *Device) newBuffer(label string, length uint32, pool native.Pool, usage gputypes.BufferUsage, format native.Format) (*Buffer, error) {
	if length == 0 {
		return nil, native.ErrInvalidCall
	}
	b := &Buffer{dev: d, data: make([]byte, length), pool: pool, format: format}
	if deviceVisible(pool) {
		buf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
			Label: label,
			Size:  uint64(alignUp(length, 4)),
			Usage: usage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("halnative: create %s: %w: %w", label, native.ErrOutOfVideoMemory, err)
		}
		b.buf = buf
	}
	return b, nil
}

// Length implements native.VertexBuffer.
func (b *Buffer) Length() uint32 { return uint32(len(b.data)) }

// Lock implements native.VertexBuffer. A size of zero locks the rest of
// the buffer.
func (b *Buffer) Lock(offset, size uint32, _ native.LockFlags) ([]byte, error) {
	if b.released || b.locked {
		return nil, native.ErrInvalidCall
	}
	if size == 0 {
		size = uint32(len(b.data)) - offset
	}
	if uint64(offset)+uint64(size) > uint64(len(b.data)) {
		return nil, native.ErrInvalidCall
	}
	b.locked, b.lockOff, b.lockSize = true, offset, size
	return b.data[offset : offset+size], nil
}

// Unlock implements native.VertexBuffer. The locked range is written to
// the device buffer, widened to four-byte alignment.
func (b *Buffer) Unlock() error {
	if !b.locked {
		return native.ErrInvalidCall
	}
	b.locked = false
	if b.buf == nil || b.lockSize == 0 {
		return nil
	}
	start := b.lockOff &^ 3
	end := min(alignUp(b.lockOff+b.lockSize, 4), uint32(len(b.data)))
	if err := b.dev.queue.WriteBuffer(b.buf, uint64(start), padded(b.data[start:end])); err != nil {
		return fmt.Errorf("halnative: write buffer: %w: %w", native.ErrDriverInternalError, err)
	}
	b.dev.stats.BufferUploads++
	return nil
}

// Release implements native.VertexBuffer.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.buf != nil {
		b.dev.dev.DestroyBuffer(b.buf)
	}
	b.dev.untrack(b, b.pool)
}

// declaration is a vertex declaration translated to a buffer layout.
type declaration struct {
	dev      *Device
	layout   gputypes.VertexBufferLayout
	released bool
}

// Release implements native.VertexDeclaration.
func (v *declaration) Release() {
	if v.released {
		return
	}
	v.released = true
	v.dev.dropPipelines(func(k pipelineKey) bool { return k.decl == v })
	v.dev.untrack(v, native.PoolManaged)
}

// shader is a compiled shader module.
type shader struct {
	dev      *Device
	module   hal.ShaderModule
	released bool
}

// Release implements native.Shader.
func (s *shader) Release() {
	if s.released {
		return
	}
	s.released = true
	s.dev.dropPipelines(func(k pipelineKey) bool { return k.vs == s || k.ps == s })
	s.dev.dev.DestroyShaderModule(s.module)
	s.dev.untrack(s, native.PoolManaged)
}

func alignUp(n, a uint32) uint32 { return (n + a - 1) &^ (a - 1) }

// padded extends b to a multiple of four bytes.
func padded(b []byte) []byte {
	if len(b)%4 == 0 {
		return b
	}
	out := make([]byte, alignUp(uint32(len(b)), 4))
	copy(out, b)
	return out
}
