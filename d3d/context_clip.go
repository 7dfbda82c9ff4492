// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import "github.com/gogpu/d3dpipe/native"

// SetClipRect restricts drawing to [x1,x2)x[y1,y2), clamped to the bound
// render target. A rectangle covering the whole target disables
// scissoring instead of setting a scissor rect, because some devices
// reject a rect equal to the target bounds.
func (c *Context) SetClipRect(x1, y1, x2, y2 int) error {
	const op = "set clip rect"
	if err := c.ready(op); err != nil {
		return err
	}
	if c.target == nil {
		return contractError(op, ErrNoRenderTarget)
	}

	tw, th := int(c.targetDesc.Width), int(c.targetDesc.Height)
	x1 = clamp(x1, 0, tw)
	y1 = clamp(y1, 0, th)
	x2 = clamp(x2, x1, tw)
	y2 = clamp(y2, y1, th)

	if x1 == 0 && y1 == 0 && x2 == tw && y2 == th {
		return c.ResetClip()
	}

	//nolint:gosec // G115: clamped to target size
	r := native.Rect{Left: int32(x1), Top: int32(y1), Right: int32(x2), Bottom: int32(y2)}
	if err := c.dev.SetScissorRect(r); err != nil {
		return nativeError(KindUnknown, op, err)
	}
	if err := c.dev.SetRenderState(native.RSScissorTestEnable, 1); err != nil {
		return nativeError(KindUnknown, op, err)
	}
	c.clip, c.clipOn = r, true
	return nil
}

// ResetClip disables scissoring.
func (c *Context) ResetClip() error {
	const op = "reset clip"
	if err := c.ready(op); err != nil {
		return err
	}
	if err := c.dev.SetRenderState(native.RSScissorTestEnable, 0); err != nil {
		return nativeError(KindUnknown, op, err)
	}
	c.clip, c.clipOn = native.Rect{}, false
	return nil
}

// ClipRect returns the active scissor rect and whether scissoring is on.
func (c *Context) ClipRect() (native.Rect, bool) { return c.clip, c.clipOn }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
