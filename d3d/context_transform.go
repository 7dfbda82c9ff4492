// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3d

import "github.com/gogpu/d3dpipe/native"

// Matrix is a 4x4 matrix stored row-major that transforms column
// vectors: v' = M·v.
type Matrix [16]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m·n.
func (m Matrix) Mul(n Matrix) Matrix {
	var r Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i*4+k] * n[k*4+j]
			}
			r[i*4+j] = s
		}
	}
	return r
}

// Transpose returns the transpose of m.
func (m Matrix) Transpose() Matrix {
	var r Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[j*4+i] = m[i*4+j]
		}
	}
	return r
}

// WVPRegister is the first vertex shader constant register of the
// combined world-view-projection matrix.
const WVPRegister = 0

// SetProjViewMatrix sets the projection/view matrix and the depth test
// state, and pushes the combined matrix to the shader.
func (c *Context) SetProjViewMatrix(depthTest bool, m Matrix) error {
	const op = "set projection"
	if err := c.ready(op); err != nil {
		return err
	}
	if depthTest != c.depthTest {
		v := boolState(depthTest)
		if err := c.dev.SetRenderState(native.RSZEnable, v); err != nil {
			return nativeError(KindUnknown, op, err)
		}
		if err := c.dev.SetRenderState(native.RSZWriteEnable, v); err != nil {
			return nativeError(KindUnknown, op, err)
		}
		c.depthTest = depthTest
	}
	c.proj = m
	return c.uploadWVP()
}

// SetTransform sets the world matrix.
func (c *Context) SetTransform(m Matrix) error {
	const op = "set transform"
	if err := c.ready(op); err != nil {
		return err
	}
	c.world = m
	return c.uploadWVP()
}

// ResetTransform sets the world matrix to identity.
func (c *Context) ResetTransform() error {
	return c.SetTransform(Identity())
}

// WorldTransform returns the current world matrix.
func (c *Context) WorldTransform() Matrix { return c.world }

// ProjViewTransform returns the current projection/view matrix.
func (c *Context) ProjViewTransform() Matrix { return c.proj }

// DepthTest reports whether depth testing is enabled.
func (c *Context) DepthTest() bool { return c.depthTest }

// WVP returns the combined matrix in column-vector form, including the
// half-pixel adjustment of the bound render target.
func (c *Context) WVP() Matrix {
	adj := Identity()
	adj[3] = c.pixAdjX
	adj[7] = c.pixAdjY
	return adj.Mul(c.proj).Mul(c.world)
}

// uploadWVP pushes the combined matrix to the shader constants. The
// registers hold the matrix columns, so the upload is the transpose.
func (c *Context) uploadWVP() error {
	t := c.WVP().Transpose()
	var data [16]float32
	for i, v := range t {
		data[i] = float32(v)
	}
	if err := c.dev.SetVertexShaderConstantF(WVPRegister, data[:]); err != nil {
		return nativeError(KindUnknown, "set shader constants", err)
	}
	return nil
}

// updatePixelAdjust recomputes the offset that moves the device pixel
// center convention onto the pixel edge convention: half a pixel left and
// up, expressed in clip space.
func (c *Context) updatePixelAdjust(width, height uint32) {
	if width == 0 || height == 0 {
		c.pixAdjX, c.pixAdjY = 0, 0
		return
	}
	c.pixAdjX = -1 / float64(width)
	c.pixAdjY = 1 / float64(height)
}

func boolState(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
