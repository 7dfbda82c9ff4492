// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import (
	"fmt"

	"github.com/gogpu/d3dpipe/native"
)

// TargetChange reports what SetRenderTarget did.
type TargetChange int

// Render target outcomes.
const (
	// TargetUnchanged means the requested target and depth buffer were
	// already bound and no native call was made.
	TargetUnchanged TargetChange = iota
	// TargetChanged means the binding changed.
	TargetChanged
)

// String returns the outcome name.
func (t TargetChange) String() string {
	if t == TargetChanged {
		return "changed"
	}
	return "unchanged"
}

// SetRenderTarget binds rt. When wantDepth is set, a depth/stencil
// buffer owned by rt is created or replaced unless the one it has is
// compatible. A redundant request returns TargetUnchanged without native
// calls. A real switch resets the clip and recomputes the half-pixel
// adjustment for the new target size.
func (c *Context) SetRenderTarget(rt RenderTarget, wantDepth, msaa bool) (TargetChange, error) {
	const op = "set render target"
	if err := c.ready(op); err != nil {
		return TargetUnchanged, err
	}
	if rt == nil || isNil(rt) {
		return TargetUnchanged, contractError(op, ErrNilResource)
	}
	surf := rt.TargetSurface()
	if surf == nil {
		return TargetUnchanged, contractError(op, fmt.Errorf("%w: render target", ErrReleased))
	}
	desc := surf.Desc()

	var depth native.Surface
	if wantDepth {
		b := rt.base()
		if b.depth == nil || !c.IsDepthStencilBufferOk(desc, b.depth) {
			ds, err := c.createDepthStencil(desc)
			if err != nil {
				return TargetUnchanged, err
			}
			b.releaseDepth()
			b.depth = ds
		}
		depth = b.depth
	}

	if surf == c.target && depth == c.depth {
		c.stats.RedundantTargetSwitches++
		c.metrics.TargetSwitch(false)
		return TargetUnchanged, nil
	}

	if surf != c.target {
		if err := c.dev.SetRenderTarget(0, surf); err != nil {
			return TargetUnchanged, nativeError(KindUnknown, op, err)
		}
		c.target, c.targetDesc = surf, desc
		c.updatePixelAdjust(desc.Width, desc.Height)
		if err := c.ResetClip(); err != nil {
			return TargetChanged, err
		}
		if err := c.uploadWVP(); err != nil {
			return TargetChanged, err
		}
	}
	if depth != c.depth {
		if err := c.dev.SetDepthStencilSurface(depth); err != nil {
			return TargetChanged, nativeError(KindUnknown, op, err)
		}
		c.depth = depth
	}
	if err := c.dev.SetRenderState(native.RSMultisampleAA, boolState(msaa)); err != nil {
		return TargetChanged, nativeError(KindUnknown, op, err)
	}

	c.stats.TargetSwitches++
	c.metrics.TargetSwitch(true)
	c.log.Debug("d3d: render target set",
		"width", desc.Width, "height", desc.Height, "depth", depth != nil, "msaa", msaa)
	return TargetChanged, nil
}

// RenderTargetDesc returns the description of the bound target and
// whether one is bound.
func (c *Context) RenderTargetDesc() (native.SurfaceDesc, bool) {
	return c.targetDesc, c.target != nil
}

// ReadPixels copies the whole of rt into dst, tightly packed in the
// target's format. The copy goes through the cached blit surface.
func (c *Context) ReadPixels(rt RenderTarget, dst []byte) error {
	const op = "read pixels"
	if err := c.ready(op); err != nil {
		return err
	}
	if rt == nil || isNil(rt) || rt.TargetSurface() == nil {
		return contractError(op, ErrNilResource)
	}
	src := rt.TargetSurface()
	desc := src.Desc()
	bpp := desc.Format.BytesPerPixel()
	if bpp == 0 {
		return contractError(op, fmt.Errorf("%w: format %s", ErrInvalidArgument, desc.Format))
	}
	rowBytes := int(desc.Width) * bpp
	if len(dst) < rowBytes*int(desc.Height) {
		return contractError(op, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidArgument, rowBytes*int(desc.Height), len(dst)))
	}
	if err := c.EndScene(); err != nil {
		return err
	}

	blit, err := c.rm.GetBlitSurface(desc.Width, desc.Height, desc.Format)
	if err != nil {
		return err
	}
	if err := c.dev.GetRenderTargetData(src, blit.surf); err != nil {
		return nativeError(KindUnknown, op, err)
	}
	lr, err := blit.surf.LockRect(nil, native.LockReadOnly)
	if err != nil {
		return nativeError(KindUnknown, op, err)
	}
	for y := 0; y < int(desc.Height); y++ {
		copy(dst[y*rowBytes:(y+1)*rowBytes], lr.Bits[y*lr.Pitch:y*lr.Pitch+rowBytes])
	}
	if err := blit.surf.UnlockRect(); err != nil {
		return nativeError(KindUnknown, op, err)
	}
	return nil
}

// UpdateTexture copies a w×h block of pixels (stride bytes per row, in
// the texture's format) into t at (x, y). Textures that cannot be locked
// are written through the staging texture for their format, one
// StagingTextureSize tile at a time.
func (c *Context) UpdateTexture(t *Texture, pixels []byte, stride int, x, y, w, h uint32) error {
	const op = "update texture"
	if err := c.ready(op); err != nil {
		return err
	}
	if t == nil || t.tex == nil {
		return contractError(op, ErrNilResource)
	}
	bpp := t.desc.Format.BytesPerPixel()
	switch {
	case bpp == 0:
		return contractError(op, fmt.Errorf("%w: format %s", ErrInvalidArgument, t.desc.Format))
	case w == 0 || h == 0:
		return nil
	case x+w > t.desc.Width || y+h > t.desc.Height:
		return contractError(op, fmt.Errorf("%w: %dx%d at (%d,%d) outside %dx%d",
			ErrInvalidArgument, w, h, x, y, t.desc.Width, t.desc.Height))
	case stride < int(w)*bpp || len(pixels) < stride*int(h-1)+int(w)*bpp:
		return contractError(op, fmt.Errorf("%w: pixel buffer too small", ErrInvalidArgument))
	}

	lockable := t.desc.Pool != native.PoolDefault || t.desc.Usage&native.UsageDynamic != 0
	if lockable {
		//nolint:gosec // G115: bounded by texture size
		r := native.Rect{Left: int32(x), Top: int32(y), Right: int32(x + w), Bottom: int32(y + h)}
		lr, err := t.tex.LockRect(0, &r, 0)
		if err != nil {
			return nativeError(KindUnknown, op, err)
		}
		copyRows(lr.Bits, lr.Pitch, pixels, stride, int(w)*bpp, int(h))
		if err := t.tex.UnlockRect(0); err != nil {
			return nativeError(KindUnknown, op, err)
		}
		return nil
	}

	st, err := c.rm.GetCachedDestTexture(t.desc.Format)
	if err != nil {
		return err
	}
	for ty := uint32(0); ty < h; ty += StagingTextureSize {
		th := min(h-ty, StagingTextureSize)
		for tx := uint32(0); tx < w; tx += StagingTextureSize {
			tw := min(w-tx, StagingTextureSize)
			//nolint:gosec // G115: tile is at most StagingTextureSize
			r := native.Rect{Right: int32(tw), Bottom: int32(th)}
			lr, err := st.tex.LockRect(0, &r, 0)
			if err != nil {
				return nativeError(KindUnknown, op, err)
			}
			off := int(ty)*stride + int(tx)*bpp
			copyRows(lr.Bits, lr.Pitch, pixels[off:], stride, int(tw)*bpp, int(th))
			if err := st.tex.UnlockRect(0); err != nil {
				return nativeError(KindUnknown, op, err)
			}
			//nolint:gosec // G115: bounded by texture size
			if err := c.dev.UpdateSurface(st.surface, &r, t.surface, int32(x+tx), int32(y+ty)); err != nil {
				return nativeError(KindUnknown, op, err)
			}
		}
	}
	return nil
}

func copyRows(dst []byte, dstPitch int, src []byte, srcStride, rowBytes, rows int) {
	for i := 0; i < rows; i++ {
		copy(dst[i*dstPitch:i*dstPitch+rowBytes], src[i*srcStride:i*srcStride+rowBytes])
	}
}
